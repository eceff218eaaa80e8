package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/tasklive/internal/domain"
)

type CreateProjectInput struct {
	Body struct {
		Name        string  `json:"name" minLength:"1" maxLength:"255" doc:"Project name"`
		Description *string `json:"description,omitempty" doc:"Free-form description"`
	}
}

type ProjectOutput struct {
	Body *domain.Project
}

type ListProjectsInput struct{}

type ListProjectsOutput struct {
	Body []*domain.Project
}

type ProjectIDInput struct {
	ID int64 `path:"id" minimum:"1" doc:"Project ID"`
}

type UpdateProjectInput struct {
	ID   int64 `path:"id" minimum:"1" doc:"Project ID"`
	Body struct {
		Name        *string `json:"name,omitempty" minLength:"1" maxLength:"255" doc:"Project name"`
		Description *string `json:"description,omitempty" doc:"Free-form description"`
	}
}

func RegisterProjectRoutes(api huma.API, svc Tracker) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Create a project",
		Tags:          []string{"Projects"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateProjectInput) (*ProjectOutput, error) {
		p, err := svc.CreateProject(ctx, input.Body.Name, input.Body.Description)
		if err != nil {
			return nil, httpError(err, "project", "create")
		}

		return &ProjectOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects, most recently updated first",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, _ *ListProjectsInput) (*ListProjectsOutput, error) {
		projects, err := svc.ListProjects(ctx)
		if err != nil {
			return nil, httpError(err, "projects", "list")
		}

		return &ListProjectsOutput{Body: projects}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{id}",
		Summary:     "Get a project by ID",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, input *ProjectIDInput) (*ProjectOutput, error) {
		p, err := svc.GetProject(ctx, input.ID)
		if err != nil {
			return nil, httpError(err, "project", "get")
		}

		return &ProjectOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-project",
		Method:      http.MethodPut,
		Path:        "/projects/{id}",
		Summary:     "Update a project",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, input *UpdateProjectInput) (*ProjectOutput, error) {
		p, err := svc.UpdateProject(ctx, input.ID, domain.ProjectPatch{
			Name:        input.Body.Name,
			Description: input.Body.Description,
		})
		if err != nil {
			return nil, httpError(err, "project", "update")
		}

		return &ProjectOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-project",
		Method:      http.MethodDelete,
		Path:        "/projects/{id}",
		Summary:     "Delete a project and return it",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, input *ProjectIDInput) (*ProjectOutput, error) {
		p, err := svc.DeleteProject(ctx, input.ID)
		if err != nil {
			return nil, httpError(err, "project", "delete")
		}

		return &ProjectOutput{Body: p}, nil
	})
}
