package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type Project struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Identity returns the project's primary key.
func (p Project) Identity() int64 { return p.ID }

// NewProject creates an unsaved Project. ID and timestamps are assigned by the store.
func NewProject(name string, description *string) (*Project, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("project: name is required: %w", ErrValidation)
	}
	return &Project{Name: name, Description: description}, nil
}

// ProjectPatch lists the fields an update may change. Nil means unchanged.
type ProjectPatch struct {
	Name        *string
	Description *string
}

func (p ProjectPatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return fmt.Errorf("project: name must not be empty: %w", ErrValidation)
	}
	return nil
}

type ProjectRepository interface {
	Create(ctx context.Context, p *Project) error
	GetByID(ctx context.Context, id int64) (*Project, error)
	List(ctx context.Context) ([]*Project, error)
	Update(ctx context.Context, id int64, patch ProjectPatch) (*Project, error)
	Delete(ctx context.Context, id int64) (*Project, error)
}
