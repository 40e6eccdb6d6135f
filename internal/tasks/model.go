package tasks

import (
	"time"

	"github.com/taskhub/taskhub-backend/internal/userclient"
)

// Status is the fixed task state enumeration.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Task represents a persisted task record. UserID is a weak reference to a
// user owned by the user registry; it is only known valid at the moment it
// was last checked against that service.
type Task struct {
	ID          int64     `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description *string   `db:"description" json:"description"`
	UserID      int64     `db:"user_id" json:"user_id"`
	Status      Status    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// EnrichedTask is a Task with the owning user attached best-effort.
// User is null whenever the lookup failed or the user no longer exists.
type EnrichedTask struct {
	Task
	User *userclient.User `json:"user"`
}

// CreateTaskRequest is the POST /tasks body.
type CreateTaskRequest struct {
	Title       string  `json:"title" validate:"required,min=3,max=200"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	UserID      int64   `json:"user_id" validate:"required,gt=0"`
	Status      Status  `json:"status" validate:"omitempty,oneof=pending in_progress completed"`
}

// UpdateTaskRequest is the PUT /tasks/:id body. All fields are optional but
// at least one must be present.
type UpdateTaskRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=3,max=200"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	UserID      *int64  `json:"user_id" validate:"omitempty,gt=0"`
	Status      *Status `json:"status" validate:"omitempty,oneof=pending in_progress completed"`
}

func (r UpdateTaskRequest) empty() bool {
	return r.Title == nil && r.Description == nil && r.UserID == nil && r.Status == nil
}

// UpdateStatusRequest is the PUT /tasks/:id/status body.
type UpdateStatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=pending in_progress completed"`
}

// StatusCounts groups task totals per state.
type StatusCounts struct {
	Pending    int64 `json:"pending"`
	InProgress int64 `json:"in_progress"`
	Completed  int64 `json:"completed"`
}

// Stats is the GET /tasks/stats payload.
type Stats struct {
	Total          int64        `json:"total"`
	ByStatus       StatusCounts `json:"by_status"`
	CompletionRate float64      `json:"completion_rate"`
}
