package timedoctor

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/custodia-labs/tdsync/internal/core/domain"
)

// endpoints maps entity types to their list paths.
var endpoints = map[domain.EntityType]string{
	domain.EntityUsers:    "/api/1.0/users",
	domain.EntityProjects: "/api/1.0/projects",
	domain.EntityTasks:    "/api/1.0/tasks",
	domain.EntityWorklogs: "/api/1.0/activity/worklog",
}

// listEnvelope is the body of every list response.
type listEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Paging struct {
		Next       *flexString `json:"next"`
		TotalCount int         `json:"totalCount"`
	} `json:"paging"`
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(b))
	}
	*f = flexString(n.String())
	return nil
}

type userJSON struct {
	ID         flexString `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Role       string     `json:"role"`
	TimeZone   string     `json:"timezone"`
	Active     *bool      `json:"active"`
	ModifiedAt time.Time  `json:"modifiedAt"`
}

type projectJSON struct {
	ID         flexString `json:"id"`
	Name       string     `json:"name"`
	Deleted    bool       `json:"deleted"`
	ModifiedAt time.Time  `json:"modifiedAt"`
}

type taskJSON struct {
	ID         flexString `json:"id"`
	Name       string     `json:"name"`
	Status     string     `json:"status"`
	ProjectID  flexString `json:"projectId"`
	ModifiedAt time.Time  `json:"modifiedAt"`
}

type worklogJSON struct {
	ID         flexString `json:"id"`
	UserID     flexString `json:"userId"`
	ProjectID  flexString `json:"projectId"`
	TaskID     flexString `json:"taskId"`
	Start      time.Time  `json:"start"`
	Time       int64      `json:"time"`
	Mode       string     `json:"mode"`
	ModifiedAt time.Time  `json:"modifiedAt"`
}

// decodeRecords decodes the data array for entityType.
func decodeRecords(entityType domain.EntityType, data json.RawMessage) ([]domain.RemoteEntity, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	switch entityType {
	case domain.EntityUsers:
		var rows []userJSON
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, fmt.Errorf("decode users: %w", err)
		}
		out := make([]domain.RemoteEntity, 0, len(rows))
		for _, r := range rows {
			out = append(out, domain.User{
				ID:       string(r.ID),
				Name:     r.Name,
				Email:    r.Email,
				Role:     r.Role,
				TimeZone: r.TimeZone,
				Active:   r.Active == nil || *r.Active,
				Modified: r.ModifiedAt.UTC(),
			})
		}
		return out, nil

	case domain.EntityProjects:
		var rows []projectJSON
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, fmt.Errorf("decode projects: %w", err)
		}
		out := make([]domain.RemoteEntity, 0, len(rows))
		for _, r := range rows {
			out = append(out, domain.Project{
				ID:       string(r.ID),
				Name:     r.Name,
				Archived: r.Deleted,
				Modified: r.ModifiedAt.UTC(),
			})
		}
		return out, nil

	case domain.EntityTasks:
		var rows []taskJSON
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, fmt.Errorf("decode tasks: %w", err)
		}
		out := make([]domain.RemoteEntity, 0, len(rows))
		for _, r := range rows {
			out = append(out, domain.Task{
				ID:        string(r.ID),
				ProjectID: string(r.ProjectID),
				Name:      r.Name,
				Status:    r.Status,
				Modified:  r.ModifiedAt.UTC(),
			})
		}
		return out, nil

	case domain.EntityWorklogs:
		var rows []worklogJSON
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, fmt.Errorf("decode worklogs: %w", err)
		}
		out := make([]domain.RemoteEntity, 0, len(rows))
		for _, r := range rows {
			out = append(out, domain.Worklog{
				ID:        string(r.ID),
				UserID:    string(r.UserID),
				ProjectID: string(r.ProjectID),
				TaskID:    string(r.TaskID),
				Start:     r.Start.UTC(),
				Duration:  time.Duration(r.Time) * time.Second,
				Mode:      r.Mode,
				Modified:  r.ModifiedAt.UTC(),
			})
		}
		return out, nil
	}

	return nil, &domain.ValidationError{Field: "entity_type", Reason: fmt.Sprintf("unknown entity type %q", entityType)}
}

// nextOffset parses the paging.next value. ok is false when there is no next page.
func nextOffset(next *flexString) (offset int, ok bool, err error) {
	if next == nil || *next == "" {
		return 0, false, nil
	}
	offset, err = strconv.Atoi(string(*next))
	if err != nil {
		return 0, false, fmt.Errorf("invalid paging.next %q: %w", string(*next), err)
	}
	return offset, true, nil
}
