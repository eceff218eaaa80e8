// Package rpc exposes the tracker as procedure calls at
// POST /{router}/{procedure}, one operation per procedure. Every procedure
// takes a JSON object body and returns the resulting record or collection.
package rpc

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/tasklive/internal/domain"
	"github.com/gosuda/tasklive/internal/tracker"
)

// Tracker abstracts the service for handler testing.
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
	CreateComment(ctx context.Context, taskID int64, text string) (*domain.Comment, error)
	UpdateComment(ctx context.Context, id int64, patch domain.CommentPatch) (*domain.Comment, error)
	DeleteComment(ctx context.Context, id int64) (*domain.Comment, error)
}

// Register mounts every procedure on api.
func Register(api huma.API, svc Tracker) {
	registerProjects(api, svc)
	registerTasks(api, svc)
	registerComments(api, svc)
}

type output[T any] struct {
	Body T
}

type emptyInput struct{}

type idInput struct {
	Body struct {
		ID int64 `json:"id" minimum:"1" doc:"Record ID"`
	}
}

func procedure(router, name, summary string) huma.Operation {
	return huma.Operation{
		OperationID: router + "-" + name,
		Method:      http.MethodPost,
		Path:        "/" + router + "/" + name,
		Summary:     summary,
		Tags:        []string{router},
	}
}

// rpcError maps a tracker error onto a huma status error.
func rpcError(err error, what string) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return huma.Error404NotFound(what + " not found")
	case errors.Is(err, domain.ErrValidation):
		return huma.Error400BadRequest("invalid "+what, err)
	case errors.Is(err, domain.ErrInvalidReference):
		return huma.Error400BadRequest(what+" references a missing parent", err)
	default:
		return huma.Error500InternalServerError(what+" procedure failed", err)
	}
}

func reply[T any](v T, err error, what string) (*output[T], error) {
	if err != nil {
		return nil, rpcError(err, what)
	}
	return &output[T]{Body: v}, nil
}
