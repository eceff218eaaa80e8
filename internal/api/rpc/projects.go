package rpc

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/tasklive/internal/domain"
)

type projectFields struct {
	Name        *string `json:"name,omitempty" minLength:"1" maxLength:"255" doc:"Project name"`
	Description *string `json:"description,omitempty" doc:"Free-form description"`
}

type createProjectInput struct {
	Body struct {
		Name        string  `json:"name" minLength:"1" maxLength:"255" doc:"Project name"`
		Description *string `json:"description,omitempty" doc:"Free-form description"`
	}
}

type updateProjectInput struct {
	Body struct {
		ID   int64         `json:"id" minimum:"1" doc:"Project ID"`
		Data projectFields `json:"data" doc:"Fields to change"`
	}
}

func registerProjects(api huma.API, svc Tracker) {
	huma.Register(api, procedure("projects", "getAll", "List projects"),
		func(ctx context.Context, _ *emptyInput) (*output[[]*domain.Project], error) {
			v, err := svc.ListProjects(ctx)
			return reply(v, err, "projects")
		})

	huma.Register(api, procedure("projects", "getById", "Get a project"),
		func(ctx context.Context, in *idInput) (*output[*domain.Project], error) {
			v, err := svc.GetProject(ctx, in.Body.ID)
			return reply(v, err, "project")
		})

	huma.Register(api, procedure("projects", "create", "Create a project"),
		func(ctx context.Context, in *createProjectInput) (*output[*domain.Project], error) {
			v, err := svc.CreateProject(ctx, in.Body.Name, in.Body.Description)
			return reply(v, err, "project")
		})

	huma.Register(api, procedure("projects", "update", "Update a project"),
		func(ctx context.Context, in *updateProjectInput) (*output[*domain.Project], error) {
			v, err := svc.UpdateProject(ctx, in.Body.ID, domain.ProjectPatch{
				Name:        in.Body.Data.Name,
				Description: in.Body.Data.Description,
			})
			return reply(v, err, "project")
		})

	huma.Register(api, procedure("projects", "delete", "Delete a project and return it"),
		func(ctx context.Context, in *idInput) (*output[*domain.Project], error) {
			v, err := svc.DeleteProject(ctx, in.Body.ID)
			return reply(v, err, "project")
		})
}
