package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/tasklive/internal/domain"
	"github.com/gosuda/tasklive/internal/tracker"
)

type CreateTaskInput struct {
	Body struct {
		ProjectID  int64               `json:"projectId" minimum:"1" doc:"Owning project ID"`
		Title      string              `json:"title" minLength:"1" maxLength:"500" doc:"Task title"`
		Status     domain.TaskStatus   `json:"status,omitempty" enum:"todo,in_progress,done" doc:"Defaults to todo"`
		Priority   domain.TaskPriority `json:"priority,omitempty" enum:"low,medium,high" doc:"Defaults to medium"`
		AssigneeID *int64              `json:"assigneeId,omitempty" doc:"Assigned user ID"`
	}
}

type TaskOutput struct {
	Body *domain.Task
}

type ListTasksInput struct{}

type ListTasksOutput struct {
	Body []*domain.Task
}

type TaskIDInput struct {
	ID int64 `path:"id" minimum:"1" doc:"Task ID"`
}

type UpdateTaskInput struct {
	ID   int64 `path:"id" minimum:"1" doc:"Task ID"`
	Body struct {
		ProjectID  *int64               `json:"projectId,omitempty" minimum:"1" doc:"Owning project ID"`
		Title      *string              `json:"title,omitempty" minLength:"1" maxLength:"500" doc:"Task title"`
		Status     *domain.TaskStatus   `json:"status,omitempty" enum:"todo,in_progress,done" doc:"Task status"`
		Priority   *domain.TaskPriority `json:"priority,omitempty" enum:"low,medium,high" doc:"Task priority"`
		AssigneeID *int64               `json:"assigneeId,omitempty" doc:"Assigned user ID"`
	}
}

func RegisterTaskRoutes(api huma.API, svc Tracker) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create a task",
		Tags:          []string{"Tasks"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateTaskInput) (*TaskOutput, error) {
		t, err := svc.CreateTask(ctx, tracker.NewTaskInput{
			ProjectID:  input.Body.ProjectID,
			Title:      input.Body.Title,
			Status:     input.Body.Status,
			Priority:   input.Body.Priority,
			AssigneeID: input.Body.AssigneeID,
		})
		if err != nil {
			return nil, httpError(err, "task", "create")
		}

		return &TaskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, _ *ListTasksInput) (*ListTasksOutput, error) {
		tasks, err := svc.ListTasks(ctx)
		if err != nil {
			return nil, httpError(err, "tasks", "list")
		}

		return &ListTasksOutput{Body: tasks}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}",
		Summary:     "Get a task by ID",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *TaskIDInput) (*TaskOutput, error) {
		t, err := svc.GetTask(ctx, input.ID)
		if err != nil {
			return nil, httpError(err, "task", "get")
		}

		return &TaskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPut,
		Path:        "/tasks/{id}",
		Summary:     "Update a task",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *UpdateTaskInput) (*TaskOutput, error) {
		t, err := svc.UpdateTask(ctx, input.ID, domain.TaskPatch{
			ProjectID:  input.Body.ProjectID,
			Title:      input.Body.Title,
			Status:     input.Body.Status,
			Priority:   input.Body.Priority,
			AssigneeID: input.Body.AssigneeID,
		})
		if err != nil {
			return nil, httpError(err, "task", "update")
		}

		return &TaskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-task",
		Method:      http.MethodDelete,
		Path:        "/tasks/{id}",
		Summary:     "Delete a task and return it",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *TaskIDInput) (*TaskOutput, error) {
		t, err := svc.DeleteTask(ctx, input.ID)
		if err != nil {
			return nil, httpError(err, "task", "delete")
		}

		return &TaskOutput{Body: t}, nil
	})
}
