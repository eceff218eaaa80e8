package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/tasklive/internal/domain"
)

const commentColumns = `id, task_id, text, created_at, updated_at`

type CommentRepo struct {
	pool *pgxpool.Pool
}

func NewCommentRepo(pool *pgxpool.Pool) *CommentRepo {
	return &CommentRepo{pool: pool}
}

func scanComment(row pgx.Row) (*domain.Comment, error) {
	var c domain.Comment
	err := row.Scan(&c.ID, &c.TaskID, &c.Text, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CommentRepo) Create(ctx context.Context, c *domain.Comment) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO comments (task_id, text)
		 VALUES ($1, $2)
		 RETURNING id, created_at, updated_at`,
		c.TaskID, c.Text,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("commentRepo.Create: %w", mapWriteErr(err))
	}

	return nil
}

func (r *CommentRepo) GetByID(ctx context.Context, id int64) (*domain.Comment, error) {
	c, err := scanComment(r.pool.QueryRow(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE id = $1`, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("commentRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("commentRepo.GetByID: %w", err)
	}

	return c, nil
}

func (r *CommentRepo) List(ctx context.Context) ([]*domain.Comment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+commentColumns+` FROM comments ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("commentRepo.List: %w", err)
	}
	defer rows.Close()

	return collectComments(rows, "commentRepo.List")
}

// ListByTask returns the comments on one task in posting order.
func (r *CommentRepo) ListByTask(ctx context.Context, taskID int64) ([]*domain.Comment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE task_id = $1 ORDER BY created_at, id`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("commentRepo.ListByTask: %w", err)
	}
	defer rows.Close()

	return collectComments(rows, "commentRepo.ListByTask")
}

func collectComments(rows pgx.Rows, op string) ([]*domain.Comment, error) {
	comments := make([]*domain.Comment, 0)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		comments = append(comments, c)
	}
	err := rows.Err()
	if err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}

	return comments, nil
}

func (r *CommentRepo) Update(ctx context.Context, id int64, patch domain.CommentPatch) (*domain.Comment, error) {
	c, err := scanComment(r.pool.QueryRow(ctx,
		`UPDATE comments
		 SET text = COALESCE($2, text),
		     updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+commentColumns,
		id, patch.Text,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("commentRepo.Update: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("commentRepo.Update: %w", err)
	}

	return c, nil
}

func (r *CommentRepo) Delete(ctx context.Context, id int64) (*domain.Comment, error) {
	c, err := scanComment(r.pool.QueryRow(ctx,
		`DELETE FROM comments WHERE id = $1 RETURNING `+commentColumns, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("commentRepo.Delete: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("commentRepo.Delete: %w", err)
	}

	return c, nil
}
