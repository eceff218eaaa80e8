package rpc

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/tasklive/internal/domain"
)

type createCommentInput struct {
	Body struct {
		TaskID int64  `json:"taskId" minimum:"1" doc:"Task the comment belongs to"`
		Text   string `json:"text" minLength:"1" doc:"Comment body"`
	}
}

type byTaskInput struct {
	Body struct {
		TaskID int64 `json:"taskId" minimum:"1" doc:"Task ID"`
	}
}

type updateCommentInput struct {
	Body struct {
		ID   int64 `json:"id" minimum:"1" doc:"Comment ID"`
		Data struct {
			Text *string `json:"text,omitempty" minLength:"1" doc:"Comment body"`
		} `json:"data" doc:"Fields to change"`
	}
}

func registerComments(api huma.API, svc Tracker) {
	huma.Register(api, procedure("comments", "getAll", "List comments"),
		func(ctx context.Context, _ *emptyInput) (*output[[]*domain.Comment], error) {
			v, err := svc.ListComments(ctx)
			return reply(v, err, "comments")
		})

	huma.Register(api, procedure("comments", "getByTaskId", "List the comments on one task"),
		func(ctx context.Context, in *byTaskInput) (*output[[]*domain.Comment], error) {
			v, err := svc.ListTaskComments(ctx, in.Body.TaskID)
			return reply(v, err, "comments")
		})

	huma.Register(api, procedure("comments", "create", "Add a comment to a task"),
		func(ctx context.Context, in *createCommentInput) (*output[*domain.Comment], error) {
			v, err := svc.CreateComment(ctx, in.Body.TaskID, in.Body.Text)
			return reply(v, err, "comment")
		})

	huma.Register(api, procedure("comments", "update", "Edit a comment"),
		func(ctx context.Context, in *updateCommentInput) (*output[*domain.Comment], error) {
			v, err := svc.UpdateComment(ctx, in.Body.ID, domain.CommentPatch{Text: in.Body.Data.Text})
			return reply(v, err, "comment")
		})

	huma.Register(api, procedure("comments", "delete", "Delete a comment and return it"),
		func(ctx context.Context, in *idInput) (*output[*domain.Comment], error) {
			v, err := svc.DeleteComment(ctx, in.Body.ID)
			return reply(v, err, "comment")
		})
}
