package domain

import (
	"fmt"
	"time"
)

const day = 24 * time.Hour

// DateRange is a half-open interval [Start, End).
type DateRange struct {
	Start time.Time
	End   time.Time
}

// IsZero returns true when no range was given.
func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// Duration returns End - Start.
func (r DateRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Validate checks that the range is well formed.
func (r DateRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return &ValidationError{Field: "date_range", Reason: "start and end are required"}
	}
	if !r.End.After(r.Start) {
		return &ValidationError{
			Field:  "date_range",
			Reason: fmt.Sprintf("end %s is not after start %s", r.End.Format(time.DateOnly), r.Start.Format(time.DateOnly)),
		}
	}
	return nil
}

// SyncWindow is one unit of sync work: an entity type and, for dated
// entities, the range being fetched.
type SyncWindow struct {
	EntityType EntityType
	Start      time.Time
	End        time.Time
}

// FullWindow returns the window for an entity without a date dimension.
func FullWindow(t EntityType) SyncWindow {
	return SyncWindow{EntityType: t}
}

// IsFull returns true if the window covers the whole entity set.
func (w SyncWindow) IsFull() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// Range returns the window's date range.
func (w SyncWindow) Range() DateRange {
	return DateRange{Start: w.Start, End: w.End}
}

// Validate rejects malformed windows and windows longer than maxDays.
// It does no I/O and runs before any provider call.
func (w SyncWindow) Validate(maxDays int) error {
	if !w.EntityType.IsValid() {
		return &ValidationError{Field: "entity_type", Reason: fmt.Sprintf("unknown entity type %q", w.EntityType)}
	}
	if w.IsFull() {
		if w.EntityType.HasDateDimension() {
			return &ValidationError{Field: "window", Reason: fmt.Sprintf("%s require a date range", w.EntityType)}
		}
		return nil
	}
	if !w.EntityType.HasDateDimension() {
		return &ValidationError{Field: "window", Reason: fmt.Sprintf("%s have no date dimension", w.EntityType)}
	}
	if err := w.Range().Validate(); err != nil {
		return err
	}
	if maxDays > 0 && w.Range().Duration() > time.Duration(maxDays)*day {
		return &ValidationError{
			Field:  "window",
			Reason: fmt.Sprintf("range of %s exceeds max_date_range_days (%d)", w.Range().Duration(), maxDays),
		}
	}
	return nil
}

// String renders the window for logs and ledger summaries.
func (w SyncWindow) String() string {
	if w.IsFull() {
		return string(w.EntityType)
	}
	return fmt.Sprintf("%s[%s..%s)", w.EntityType, w.Start.Format(time.DateOnly), w.End.Format(time.DateOnly))
}

// SplitRange partitions r into consecutive windows no longer than maxDays.
func SplitRange(t EntityType, r DateRange, maxDays int) ([]SyncWindow, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if maxDays <= 0 {
		return nil, &ValidationError{Field: "max_date_range_days", Reason: "must be positive"}
	}

	span := time.Duration(maxDays) * day
	var windows []SyncWindow
	for start := r.Start; start.Before(r.End); start = start.Add(span) {
		end := start.Add(span)
		if end.After(r.End) {
			end = r.End
		}
		windows = append(windows, SyncWindow{EntityType: t, Start: start, End: end})
	}
	return windows, nil
}

// PageCursor is the position within a window's result set.
type PageCursor struct {
	Offset int
	Limit  int
}

// FirstPage returns the cursor for the first page with the given limit.
func FirstPage(limit int) PageCursor {
	return PageCursor{Offset: 0, Limit: limit}
}

// Validate checks the cursor against the configured pagination limit.
func (c PageCursor) Validate(maxLimit int) error {
	if c.Offset < 0 {
		return &ValidationError{Field: "cursor", Reason: "offset must not be negative"}
	}
	if c.Limit <= 0 || (maxLimit > 0 && c.Limit > maxLimit) {
		return &ValidationError{Field: "cursor", Reason: fmt.Sprintf("limit %d outside 1..%d", c.Limit, maxLimit)}
	}
	return nil
}

// Page is one provider response.
// Next is nil once the provider reports no more pages.
type Page struct {
	Records []RemoteEntity
	Next    *PageCursor
}
