package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/tasklive/internal/domain"
)

const taskColumns = `id, project_id, title, status, priority, assignee_id, created_at, updated_at`

type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var t domain.Task
	err := row.Scan(
		&t.ID, &t.ProjectID, &t.Title, &t.Status, &t.Priority,
		&t.AssigneeID, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TaskRepo) Create(ctx context.Context, t *domain.Task) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO tasks (project_id, title, status, priority, assignee_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		t.ProjectID, t.Title, t.Status, t.Priority, t.AssigneeID,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("taskRepo.Create: %w", mapWriteErr(err))
	}

	return nil
}

func (r *TaskRepo) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	t, err := scanTask(r.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("taskRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("taskRepo.GetByID: %w", err)
	}

	return t, nil
}

func (r *TaskRepo) List(ctx context.Context) ([]*domain.Task, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks ORDER BY updated_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("taskRepo.List: %w", err)
	}
	defer rows.Close()

	tasks := make([]*domain.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("taskRepo.List: scan: %w", err)
		}
		tasks = append(tasks, t)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("taskRepo.List: rows: %w", err)
	}

	return tasks, nil
}

// Update applies the non-nil fields of patch. A nil AssigneeID leaves the
// current assignee in place.
func (r *TaskRepo) Update(ctx context.Context, id int64, patch domain.TaskPatch) (*domain.Task, error) {
	t, err := scanTask(r.pool.QueryRow(ctx,
		`UPDATE tasks
		 SET project_id = COALESCE($2, project_id),
		     title = COALESCE($3, title),
		     status = COALESCE($4, status),
		     priority = COALESCE($5, priority),
		     assignee_id = COALESCE($6, assignee_id),
		     updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+taskColumns,
		id, patch.ProjectID, patch.Title, patch.Status, patch.Priority, patch.AssigneeID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("taskRepo.Update: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("taskRepo.Update: %w", mapWriteErr(err))
	}

	return t, nil
}

func (r *TaskRepo) Delete(ctx context.Context, id int64) (*domain.Task, error) {
	t, err := scanTask(r.pool.QueryRow(ctx,
		`DELETE FROM tasks WHERE id = $1 RETURNING `+taskColumns, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("taskRepo.Delete: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("taskRepo.Delete: %w", err)
	}

	return t, nil
}
