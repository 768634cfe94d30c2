package domain

import (
	"fmt"
	"time"
)

// EntityType identifies a kind of record pulled from Time Doctor.
type EntityType string

// Entity types, in the order a run must sync them.
const (
	EntityUsers    EntityType = "users"
	EntityProjects EntityType = "projects"
	EntityTasks    EntityType = "tasks"
	EntityWorklogs EntityType = "worklogs"
)

// SyncOrder is the fixed sync sequence. Later types reference ids from earlier ones.
var SyncOrder = []EntityType{EntityUsers, EntityProjects, EntityTasks, EntityWorklogs}

// IsValid returns true if the entity type is recognised.
func (t EntityType) IsValid() bool {
	switch t {
	case EntityUsers, EntityProjects, EntityTasks, EntityWorklogs:
		return true
	default:
		return false
	}
}

// HasDateDimension returns true for entities that are fetched per date window.
func (t EntityType) HasDateDimension() bool {
	return t == EntityWorklogs
}

// String returns the string representation.
func (t EntityType) String() string {
	return string(t)
}

// ParseEntityType converts user input into an EntityType.
func ParseEntityType(s string) (EntityType, error) {
	t := EntityType(s)
	if !t.IsValid() {
		return "", &ValidationError{Field: "entity_type", Reason: fmt.Sprintf("unknown entity type %q", s)}
	}
	return t, nil
}

// OrderEntityTypes returns the requested types in sync order, deduplicated.
// An empty request means every type.
func OrderEntityTypes(requested []EntityType) []EntityType {
	if len(requested) == 0 {
		return append([]EntityType(nil), SyncOrder...)
	}
	want := make(map[EntityType]bool, len(requested))
	for _, t := range requested {
		want[t] = true
	}
	ordered := make([]EntityType, 0, len(want))
	for _, t := range SyncOrder {
		if want[t] {
			ordered = append(ordered, t)
		}
	}
	return ordered
}

// RemoteEntity is a record owned by the provider.
// Local copies are upserted by ExternalID; ModifiedAt decides the winner
// when two writes race for the same id.
type RemoteEntity interface {
	ExternalID() string
	ModifiedAt() time.Time
	Type() EntityType
}

// User is a Time Doctor company member.
type User struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Role     string    `json:"role,omitempty"`
	TimeZone string    `json:"timezone,omitempty"`
	Active   bool      `json:"active"`
	Modified time.Time `json:"modified"`
}

// ExternalID returns the provider id.
func (u User) ExternalID() string { return u.ID }

// ModifiedAt returns the last-modified marker.
func (u User) ModifiedAt() time.Time { return u.Modified }

// Type returns EntityUsers.
func (u User) Type() EntityType { return EntityUsers }

// Project is a Time Doctor project.
type Project struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Archived bool      `json:"archived"`
	Modified time.Time `json:"modified"`
}

// ExternalID returns the provider id.
func (p Project) ExternalID() string { return p.ID }

// ModifiedAt returns the last-modified marker.
func (p Project) ModifiedAt() time.Time { return p.Modified }

// Type returns EntityProjects.
func (p Project) Type() EntityType { return EntityProjects }

// Task belongs to a project.
type Task struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	Status    string    `json:"status,omitempty"`
	Modified  time.Time `json:"modified"`
}

// ExternalID returns the provider id.
func (t Task) ExternalID() string { return t.ID }

// ModifiedAt returns the last-modified marker.
func (t Task) ModifiedAt() time.Time { return t.Modified }

// Type returns EntityTasks.
func (t Task) Type() EntityType { return EntityTasks }

// Worklog is a tracked time interval for a user.
type Worklog struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	ProjectID string        `json:"project_id,omitempty"`
	TaskID    string        `json:"task_id,omitempty"`
	Start     time.Time     `json:"start"`
	Duration  time.Duration `json:"duration"`
	Mode      string        `json:"mode,omitempty"`
	Modified  time.Time     `json:"modified"`
}

// ExternalID returns the provider id.
func (w Worklog) ExternalID() string { return w.ID }

// ModifiedAt returns the last-modified marker. Worklogs without one fall
// back to their start time.
func (w Worklog) ModifiedAt() time.Time {
	if w.Modified.IsZero() {
		return w.Start
	}
	return w.Modified
}

// Type returns EntityWorklogs.
func (w Worklog) Type() EntityType { return EntityWorklogs }

// UpsertResult counts what an upsert batch did to local state.
type UpsertResult struct {
	Inserted int
	Updated  int
	// Skipped counts records older than the stored copy.
	Skipped int
}

// Total returns the number of records the batch accepted.
func (r UpsertResult) Total() int {
	return r.Inserted + r.Updated + r.Skipped
}

// Add accumulates another result.
func (r *UpsertResult) Add(other UpsertResult) {
	r.Inserted += other.Inserted
	r.Updated += other.Updated
	r.Skipped += other.Skipped
}
