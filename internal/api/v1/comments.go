package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/tasklive/internal/domain"
)

type CreateCommentInput struct {
	Body struct {
		TaskID int64  `json:"taskId" minimum:"1" doc:"Task the comment belongs to"`
		Text   string `json:"text" minLength:"1" doc:"Comment body"`
	}
}

type CommentOutput struct {
	Body *domain.Comment
}

type ListCommentsInput struct{}

type ListCommentsOutput struct {
	Body []*domain.Comment
}

type ListTaskCommentsInput struct {
	TaskID int64 `path:"taskId" minimum:"1" doc:"Task ID"`
}

type CommentIDInput struct {
	ID int64 `path:"id" minimum:"1" doc:"Comment ID"`
}

type UpdateCommentInput struct {
	ID   int64 `path:"id" minimum:"1" doc:"Comment ID"`
	Body struct {
		Text *string `json:"text,omitempty" minLength:"1" doc:"Comment body"`
	}
}

func RegisterCommentRoutes(api huma.API, svc Tracker) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-comment",
		Method:        http.MethodPost,
		Path:          "/comments",
		Summary:       "Add a comment to a task",
		Tags:          []string{"Comments"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateCommentInput) (*CommentOutput, error) {
		c, err := svc.CreateComment(ctx, input.Body.TaskID, input.Body.Text)
		if err != nil {
			return nil, httpError(err, "comment", "create")
		}

		return &CommentOutput{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-comments",
		Method:      http.MethodGet,
		Path:        "/comments",
		Summary:     "List comments",
		Tags:        []string{"Comments"},
	}, func(ctx context.Context, _ *ListCommentsInput) (*ListCommentsOutput, error) {
		comments, err := svc.ListComments(ctx)
		if err != nil {
			return nil, httpError(err, "comments", "list")
		}

		return &ListCommentsOutput{Body: comments}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-task-comments",
		Method:      http.MethodGet,
		Path:        "/comments/task/{taskId}",
		Summary:     "List the comments on one task",
		Tags:        []string{"Comments"},
	}, func(ctx context.Context, input *ListTaskCommentsInput) (*ListCommentsOutput, error) {
		comments, err := svc.ListTaskComments(ctx, input.TaskID)
		if err != nil {
			return nil, httpError(err, "comments", "list")
		}

		return &ListCommentsOutput{Body: comments}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-comment",
		Method:      http.MethodPut,
		Path:        "/comments/{id}",
		Summary:     "Edit a comment",
		Tags:        []string{"Comments"},
	}, func(ctx context.Context, input *UpdateCommentInput) (*CommentOutput, error) {
		c, err := svc.UpdateComment(ctx, input.ID, domain.CommentPatch{Text: input.Body.Text})
		if err != nil {
			return nil, httpError(err, "comment", "update")
		}

		return &CommentOutput{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-comment",
		Method:      http.MethodDelete,
		Path:        "/comments/{id}",
		Summary:     "Delete a comment and return it",
		Tags:        []string{"Comments"},
	}, func(ctx context.Context, input *CommentIDInput) (*CommentOutput, error) {
		c, err := svc.DeleteComment(ctx, input.ID)
		if err != nil {
			return nil, httpError(err, "comment", "delete")
		}

		return &CommentOutput{Body: c}, nil
	})
}
