package rpc

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/tasklive/internal/domain"
	"github.com/gosuda/tasklive/internal/tracker"
)

type createTaskInput struct {
	Body struct {
		ProjectID  int64               `json:"projectId" minimum:"1" doc:"Owning project ID"`
		Title      string              `json:"title" minLength:"1" maxLength:"500" doc:"Task title"`
		Status     domain.TaskStatus   `json:"status,omitempty" enum:"todo,in_progress,done" doc:"Defaults to todo"`
		Priority   domain.TaskPriority `json:"priority,omitempty" enum:"low,medium,high" doc:"Defaults to medium"`
		AssigneeID *int64              `json:"assigneeId,omitempty" doc:"Assigned user ID"`
	}
}

type taskFields struct {
	ProjectID  *int64               `json:"projectId,omitempty" minimum:"1" doc:"Owning project ID"`
	Title      *string              `json:"title,omitempty" minLength:"1" maxLength:"500" doc:"Task title"`
	Status     *domain.TaskStatus   `json:"status,omitempty" enum:"todo,in_progress,done" doc:"Task status"`
	Priority   *domain.TaskPriority `json:"priority,omitempty" enum:"low,medium,high" doc:"Task priority"`
	AssigneeID *int64               `json:"assigneeId,omitempty" doc:"Assigned user ID"`
}

type updateTaskInput struct {
	Body struct {
		ID   int64      `json:"id" minimum:"1" doc:"Task ID"`
		Data taskFields `json:"data" doc:"Fields to change"`
	}
}

func registerTasks(api huma.API, svc Tracker) {
	huma.Register(api, procedure("tasks", "getAll", "List tasks"),
		func(ctx context.Context, _ *emptyInput) (*output[[]*domain.Task], error) {
			v, err := svc.ListTasks(ctx)
			return reply(v, err, "tasks")
		})

	huma.Register(api, procedure("tasks", "getById", "Get a task"),
		func(ctx context.Context, in *idInput) (*output[*domain.Task], error) {
			v, err := svc.GetTask(ctx, in.Body.ID)
			return reply(v, err, "task")
		})

	huma.Register(api, procedure("tasks", "create", "Create a task"),
		func(ctx context.Context, in *createTaskInput) (*output[*domain.Task], error) {
			v, err := svc.CreateTask(ctx, tracker.NewTaskInput{
				ProjectID:  in.Body.ProjectID,
				Title:      in.Body.Title,
				Status:     in.Body.Status,
				Priority:   in.Body.Priority,
				AssigneeID: in.Body.AssigneeID,
			})
			return reply(v, err, "task")
		})

	huma.Register(api, procedure("tasks", "update", "Update a task"),
		func(ctx context.Context, in *updateTaskInput) (*output[*domain.Task], error) {
			d := in.Body.Data
			v, err := svc.UpdateTask(ctx, in.Body.ID, domain.TaskPatch{
				ProjectID:  d.ProjectID,
				Title:      d.Title,
				Status:     d.Status,
				Priority:   d.Priority,
				AssigneeID: d.AssigneeID,
			})
			return reply(v, err, "task")
		})

	huma.Register(api, procedure("tasks", "delete", "Delete a task and return it"),
		func(ctx context.Context, in *idInput) (*output[*domain.Task], error) {
			v, err := svc.DeleteTask(ctx, in.Body.ID)
			return reply(v, err, "task")
		})
}
