package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type Comment struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"taskId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c Comment) Identity() int64 { return c.ID }

func NewComment(taskID int64, text string) (*Comment, error) {
	if taskID <= 0 {
		return nil, fmt.Errorf("comment: task ID is required: %w", ErrValidation)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("comment: text is required: %w", ErrValidation)
	}
	return &Comment{TaskID: taskID, Text: text}, nil
}

type CommentPatch struct {
	Text *string
}

func (p CommentPatch) Validate() error {
	if p.Text != nil && strings.TrimSpace(*p.Text) == "" {
		return fmt.Errorf("comment: text must not be empty: %w", ErrValidation)
	}
	return nil
}

type CommentRepository interface {
	Create(ctx context.Context, c *Comment) error
	GetByID(ctx context.Context, id int64) (*Comment, error)
	List(ctx context.Context) ([]*Comment, error)
	ListByTask(ctx context.Context, taskID int64) ([]*Comment, error)
	Update(ctx context.Context, id int64, patch CommentPatch) (*Comment, error)
	Delete(ctx context.Context, id int64) (*Comment, error)
}
