package v1

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/tasklive/internal/domain"
	"github.com/gosuda/tasklive/internal/tracker"
)

// Tracker abstracts the mutation and query operations for handler testing.
// *tracker.Service satisfies this interface.
type Tracker interface {
	ListProjects(ctx context.Context) ([]*domain.Project, error)
	GetProject(ctx context.Context, id int64) (*domain.Project, error)
	CreateProject(ctx context.Context, name string, description *string) (*domain.Project, error)
	UpdateProject(ctx context.Context, id int64, patch domain.ProjectPatch) (*domain.Project, error)
	DeleteProject(ctx context.Context, id int64) (*domain.Project, error)

	ListTasks(ctx context.Context) ([]*domain.Task, error)
	GetTask(ctx context.Context, id int64) (*domain.Task, error)
	CreateTask(ctx context.Context, in tracker.NewTaskInput) (*domain.Task, error)
	UpdateTask(ctx context.Context, id int64, patch domain.TaskPatch) (*domain.Task, error)
	DeleteTask(ctx context.Context, id int64) (*domain.Task, error)

	ListComments(ctx context.Context) ([]*domain.Comment, error)
	ListTaskComments(ctx context.Context, taskID int64) ([]*domain.Comment, error)
	GetComment(ctx context.Context, id int64) (*domain.Comment, error)
	CreateComment(ctx context.Context, taskID int64, text string) (*domain.Comment, error)
	UpdateComment(ctx context.Context, id int64, patch domain.CommentPatch) (*domain.Comment, error)
	DeleteComment(ctx context.Context, id int64) (*domain.Comment, error)
}

// RegisterRoutes mounts every REST operation on api.
func RegisterRoutes(api huma.API, svc Tracker) {
	RegisterProjectRoutes(api, svc)
	RegisterTaskRoutes(api, svc)
	RegisterCommentRoutes(api, svc)
}
