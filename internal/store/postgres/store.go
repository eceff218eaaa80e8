package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/tasklive/internal/domain"
)

// foreignKeyViolation is the SQLSTATE postgres reports for a missing parent row.
const foreignKeyViolation = "23503"

type Store struct {
	pool     *pgxpool.Pool
	projects *ProjectRepo
	tasks    *TaskRepo
	comments *CommentRepo
}

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	return &Store{
		pool:     pool,
		projects: NewProjectRepo(pool),
		tasks:    NewTaskRepo(pool),
		comments: NewCommentRepo(pool),
	}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// Pool exposes the underlying pool for migrations and the notifier.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

func (s *Store) Projects() domain.ProjectRepository { return s.projects }
func (s *Store) Tasks() domain.TaskRepository       { return s.tasks }
func (s *Store) Comments() domain.CommentRepository { return s.comments }

// mapWriteErr translates constraint violations into domain errors.
func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return fmt.Errorf("%s: %w", pgErr.ConstraintName, domain.ErrInvalidReference)
	}
	return err
}
