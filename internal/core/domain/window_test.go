package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSyncWindow_Validate(t *testing.T) {
	tests := []struct {
		name    string
		window  SyncWindow
		wantErr bool
	}{
		{"full users window", FullWindow(EntityUsers), false},
		{"worklogs exactly at max", SyncWindow{EntityWorklogs, date(2024, 1, 1), date(2024, 2, 1)}, false},
		{"worklogs one day over max", SyncWindow{EntityWorklogs, date(2024, 1, 1), date(2024, 2, 2)}, true},
		{"worklogs without range", FullWindow(EntityWorklogs), true},
		{"projects with range", SyncWindow{EntityProjects, date(2024, 1, 1), date(2024, 1, 2)}, true},
		{"end before start", SyncWindow{EntityWorklogs, date(2024, 1, 5), date(2024, 1, 1)}, true},
		{"empty range", SyncWindow{EntityWorklogs, date(2024, 1, 5), date(2024, 1, 5)}, true},
		{"unknown entity", SyncWindow{EntityType: "screenshots"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.window.Validate(DefaultMaxDateRangeDays)
			if tt.wantErr {
				require.Error(t, err)
				var vErr *ValidationError
				assert.True(t, errors.As(err, &vErr))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSplitRange(t *testing.T) {
	t.Run("splits into max-sized windows", func(t *testing.T) {
		r := DateRange{Start: date(2024, 1, 1), End: date(2024, 3, 15)}

		windows, err := SplitRange(EntityWorklogs, r, 31)
		require.NoError(t, err)
		require.Len(t, windows, 3)

		assert.Equal(t, date(2024, 1, 1), windows[0].Start)
		assert.Equal(t, date(2024, 2, 1), windows[0].End)
		assert.Equal(t, date(2024, 2, 1), windows[1].Start)
		assert.Equal(t, date(2024, 3, 3), windows[1].End)
		assert.Equal(t, date(2024, 3, 3), windows[2].Start)
		assert.Equal(t, date(2024, 3, 15), windows[2].End)

		for _, w := range windows {
			assert.NoError(t, w.Validate(31))
		}
	})

	t.Run("short range is one window", func(t *testing.T) {
		r := DateRange{Start: date(2024, 1, 1), End: date(2024, 1, 3)}

		windows, err := SplitRange(EntityWorklogs, r, 31)
		require.NoError(t, err)
		require.Len(t, windows, 1)
		assert.Equal(t, r, windows[0].Range())
	})

	t.Run("rejects malformed range", func(t *testing.T) {
		_, err := SplitRange(EntityWorklogs, DateRange{Start: date(2024, 1, 3), End: date(2024, 1, 1)}, 31)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("rejects non-positive max", func(t *testing.T) {
		_, err := SplitRange(EntityWorklogs, DateRange{Start: date(2024, 1, 1), End: date(2024, 1, 3)}, 0)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestSyncWindow_String(t *testing.T) {
	assert.Equal(t, "users", FullWindow(EntityUsers).String())
	assert.Equal(t, "worklogs[2024-01-01..2024-01-15)",
		SyncWindow{EntityWorklogs, date(2024, 1, 1), date(2024, 1, 15)}.String())
}

func TestPageCursor_Validate(t *testing.T) {
	assert.NoError(t, FirstPage(250).Validate(250))
	assert.Error(t, PageCursor{Offset: 0, Limit: 251}.Validate(250))
	assert.Error(t, PageCursor{Offset: -1, Limit: 10}.Validate(250))
	assert.Error(t, PageCursor{Offset: 0, Limit: 0}.Validate(250))
}
