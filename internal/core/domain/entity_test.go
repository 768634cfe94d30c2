package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderEntityTypes(t *testing.T) {
	t.Run("empty means all in order", func(t *testing.T) {
		assert.Equal(t, SyncOrder, OrderEntityTypes(nil))
	})

	t.Run("reorders and deduplicates", func(t *testing.T) {
		got := OrderEntityTypes([]EntityType{EntityWorklogs, EntityUsers, EntityWorklogs})
		assert.Equal(t, []EntityType{EntityUsers, EntityWorklogs}, got)
	})

	t.Run("does not alias SyncOrder", func(t *testing.T) {
		got := OrderEntityTypes(nil)
		got[0] = EntityTasks
		assert.Equal(t, EntityUsers, SyncOrder[0])
	})
}

func TestParseEntityType(t *testing.T) {
	et, err := ParseEntityType("projects")
	require.NoError(t, err)
	assert.Equal(t, EntityProjects, et)

	_, err = ParseEntityType("screenshots")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRemoteEntity_Variants(t *testing.T) {
	mod := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	start := mod.Add(-time.Hour)

	entities := []RemoteEntity{
		User{ID: "u1", Modified: mod},
		Project{ID: "p1", Modified: mod},
		Task{ID: "t1", Modified: mod},
		Worklog{ID: "w1", Start: start, Modified: mod},
	}
	types := []EntityType{EntityUsers, EntityProjects, EntityTasks, EntityWorklogs}

	for i, e := range entities {
		assert.Equal(t, types[i], e.Type())
		assert.Equal(t, mod, e.ModifiedAt())
		assert.NotEmpty(t, e.ExternalID())
	}

	assert.Equal(t, start, Worklog{ID: "w2", Start: start}.ModifiedAt())
}

func TestUpsertResult_Add(t *testing.T) {
	r := UpsertResult{Inserted: 1}
	r.Add(UpsertResult{Inserted: 2, Updated: 3, Skipped: 1})

	assert.Equal(t, UpsertResult{Inserted: 3, Updated: 3, Skipped: 1}, r)
	assert.Equal(t, 7, r.Total())
}
