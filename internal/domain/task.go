package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	default:
		return false
	}
}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	default:
		return false
	}
}

type Task struct {
	ID         int64        `json:"id"`
	ProjectID  int64        `json:"projectId"`
	Title      string       `json:"title"`
	Status     TaskStatus   `json:"status"`
	Priority   TaskPriority `json:"priority"`
	AssigneeID *int64       `json:"assigneeId"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

func (t Task) Identity() int64 { return t.ID }

// NewTask creates an unsaved Task. Empty status and priority default to
// todo and medium.
func NewTask(projectID int64, title string, status TaskStatus, priority TaskPriority, assigneeID *int64) (*Task, error) {
	if projectID <= 0 {
		return nil, fmt.Errorf("task: project ID is required: %w", ErrValidation)
	}
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("task: title is required: %w", ErrValidation)
	}
	if status == "" {
		status = TaskStatusTodo
	}
	if priority == "" {
		priority = TaskPriorityMedium
	}
	if !status.Valid() {
		return nil, fmt.Errorf("task: unknown status %q: %w", status, ErrValidation)
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("task: unknown priority %q: %w", priority, ErrValidation)
	}
	return &Task{
		ProjectID:  projectID,
		Title:      title,
		Status:     status,
		Priority:   priority,
		AssigneeID: assigneeID,
	}, nil
}

// TaskPatch lists the fields an update may change. Nil means unchanged.
type TaskPatch struct {
	ProjectID  *int64
	Title      *string
	Status     *TaskStatus
	Priority   *TaskPriority
	AssigneeID *int64
}

func (p TaskPatch) Validate() error {
	if p.ProjectID != nil && *p.ProjectID <= 0 {
		return fmt.Errorf("task: project ID must be positive: %w", ErrValidation)
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return fmt.Errorf("task: title must not be empty: %w", ErrValidation)
	}
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("task: unknown status %q: %w", *p.Status, ErrValidation)
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return fmt.Errorf("task: unknown priority %q: %w", *p.Priority, ErrValidation)
	}
	return nil
}

type TaskRepository interface {
	Create(ctx context.Context, t *Task) error
	GetByID(ctx context.Context, id int64) (*Task, error)
	List(ctx context.Context) ([]*Task, error)
	Update(ctx context.Context, id int64, patch TaskPatch) (*Task, error)
	Delete(ctx context.Context, id int64) (*Task, error)
}
