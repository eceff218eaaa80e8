package tracker_test

import (
	"context"

	"github.com/gosuda/tasklive/internal/domain"
)

// ---------------------------------------------------------------------------
// Mock DataStore
// ---------------------------------------------------------------------------

type mockDataStore struct {
	projects domain.ProjectRepository
	tasks    domain.TaskRepository
	comments domain.CommentRepository
}

func (m *mockDataStore) Projects() domain.ProjectRepository { return m.projects }
func (m *mockDataStore) Tasks() domain.TaskRepository       { return m.tasks }
func (m *mockDataStore) Comments() domain.CommentRepository { return m.comments }

// ---------------------------------------------------------------------------
// Mock ProjectRepository
// ---------------------------------------------------------------------------

type mockProjectRepo struct {
	createFunc  func(ctx context.Context, p *domain.Project) error
	getByIDFunc func(ctx context.Context, id int64) (*domain.Project, error)
	listFunc    func(ctx context.Context) ([]*domain.Project, error)
	updateFunc  func(ctx context.Context, id int64, patch domain.ProjectPatch) (*domain.Project, error)
	deleteFunc  func(ctx context.Context, id int64) (*domain.Project, error)
}

func (m *mockProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	return m.createFunc(ctx, p)
}

func (m *mockProjectRepo) GetByID(ctx context.Context, id int64) (*domain.Project, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockProjectRepo) List(ctx context.Context) ([]*domain.Project, error) {
	return m.listFunc(ctx)
}

func (m *mockProjectRepo) Update(ctx context.Context, id int64, patch domain.ProjectPatch) (*domain.Project, error) {
	return m.updateFunc(ctx, id, patch)
}

func (m *mockProjectRepo) Delete(ctx context.Context, id int64) (*domain.Project, error) {
	return m.deleteFunc(ctx, id)
}

// ---------------------------------------------------------------------------
// Mock TaskRepository
// ---------------------------------------------------------------------------

type mockTaskRepo struct {
	createFunc  func(ctx context.Context, t *domain.Task) error
	getByIDFunc func(ctx context.Context, id int64) (*domain.Task, error)
	listFunc    func(ctx context.Context) ([]*domain.Task, error)
	updateFunc  func(ctx context.Context, id int64, patch domain.TaskPatch) (*domain.Task, error)
	deleteFunc  func(ctx context.Context, id int64) (*domain.Task, error)
}

func (m *mockTaskRepo) Create(ctx context.Context, t *domain.Task) error {
	return m.createFunc(ctx, t)
}

func (m *mockTaskRepo) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockTaskRepo) List(ctx context.Context) ([]*domain.Task, error) {
	return m.listFunc(ctx)
}

func (m *mockTaskRepo) Update(ctx context.Context, id int64, patch domain.TaskPatch) (*domain.Task, error) {
	return m.updateFunc(ctx, id, patch)
}

func (m *mockTaskRepo) Delete(ctx context.Context, id int64) (*domain.Task, error) {
	return m.deleteFunc(ctx, id)
}

// ---------------------------------------------------------------------------
// Mock CommentRepository
// ---------------------------------------------------------------------------

type mockCommentRepo struct {
	createFunc     func(ctx context.Context, c *domain.Comment) error
	getByIDFunc    func(ctx context.Context, id int64) (*domain.Comment, error)
	listFunc       func(ctx context.Context) ([]*domain.Comment, error)
	listByTaskFunc func(ctx context.Context, taskID int64) ([]*domain.Comment, error)
	updateFunc     func(ctx context.Context, id int64, patch domain.CommentPatch) (*domain.Comment, error)
	deleteFunc     func(ctx context.Context, id int64) (*domain.Comment, error)
}

func (m *mockCommentRepo) Create(ctx context.Context, c *domain.Comment) error {
	return m.createFunc(ctx, c)
}

func (m *mockCommentRepo) GetByID(ctx context.Context, id int64) (*domain.Comment, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockCommentRepo) List(ctx context.Context) ([]*domain.Comment, error) {
	return m.listFunc(ctx)
}

func (m *mockCommentRepo) ListByTask(ctx context.Context, taskID int64) ([]*domain.Comment, error) {
	return m.listByTaskFunc(ctx, taskID)
}

func (m *mockCommentRepo) Update(ctx context.Context, id int64, patch domain.CommentPatch) (*domain.Comment, error) {
	return m.updateFunc(ctx, id, patch)
}

func (m *mockCommentRepo) Delete(ctx context.Context, id int64) (*domain.Comment, error) {
	return m.deleteFunc(ctx, id)
}

func ptr[T any](v T) *T { return &v }
