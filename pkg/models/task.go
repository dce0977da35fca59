package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

type TaskStatus string

const (
	StatusTodo    TaskStatus = "todo"
	StatusDoing   TaskStatus = "doing"
	StatusReview  TaskStatus = "review"
	StatusDone    TaskStatus = "done"
	StatusBlocked TaskStatus = "blocked"
)

// TaskStatuses returns every persistable status value.
func TaskStatuses() []TaskStatus {
	return []TaskStatus{StatusTodo, StatusDoing, StatusReview, StatusDone, StatusBlocked}
}

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusDoing, StatusReview, StatusDone, StatusBlocked:
		return true
	}
	return false
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityNormal TaskPriority = "normal"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

func TaskPriorities() []TaskPriority {
	return []TaskPriority{PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent}
}

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// UnassignedProjectID is the sentinel project for tasks created without one.
const UnassignedProjectID = "00000000-0000-0000-0000-000000000000"

// Metadata is the open key/value extension map, persisted as JSONB.
type Metadata map[string]interface{}

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, "marshal metadata")
	}
	return b, nil
}

func (m *Metadata) Scan(src interface{}) error {
	if src == nil {
		*m = Metadata{}
		return nil
	}
	var b []byte
	switch v := src.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.Errorf("cannot scan metadata from %T", src)
	}
	if len(b) == 0 {
		*m = Metadata{}
		return nil
	}
	return errors.Wrap(json.Unmarshal(b, m), "unmarshal metadata")
}

// Task is the unit of trackable work owned by one of the fixed roles.
type Task struct {
	ID            string       `json:"id" db:"id"`
	ProjectID     string       `json:"projectId" db:"project_id"`
	Title         string       `json:"title" db:"title"`
	Description   string       `json:"description,omitempty" db:"description"`
	Owner         Role         `json:"owner" db:"owner"`
	AssigneeID    string       `json:"assigneeId,omitempty" db:"assignee_id"`
	Status        TaskStatus   `json:"status" db:"status"`
	Priority      TaskPriority `json:"priority" db:"priority"`
	DueDate       *time.Time   `json:"dueDate,omitempty" db:"due_date"`       // Nullable deadline
	StartedAt     *time.Time   `json:"startedAt,omitempty" db:"started_at"`   // Set on first transition to doing
	CompletedAt   *time.Time   `json:"completedAt,omitempty" db:"completed_at"` // Set on every transition to done
	ArtifactPath  string       `json:"artifactPath,omitempty" db:"artifact_path"`
	BlockerReason string       `json:"blockerReason,omitempty" db:"blocker_reason"` // Non-empty only while blocked
	Metadata      Metadata     `json:"metadata" db:"metadata"`
	CreatedAt     time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time    `json:"updatedAt" db:"updated_at"`
}
