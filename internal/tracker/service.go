// Package tracker implements the project, task and comment operations shared
// by the REST and RPC surfaces. Every successful mutation is announced to the
// connected clients exactly once; failed ones are not announced at all.
package tracker

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/tasklive/internal/domain"
	"github.com/gosuda/tasklive/internal/event"
	"github.com/gosuda/tasklive/internal/realtime"
)

// DataStore abstracts the repository accessor pattern.
// *postgres.Store satisfies this interface.
type DataStore interface {
	Projects() domain.ProjectRepository
	Tasks() domain.TaskRepository
	Comments() domain.CommentRepository
}

// Service validates input, performs one store operation and fans out the
// resulting change.
type Service struct {
	store DataStore
	out   realtime.Broadcaster
}

func NewService(store DataStore, out realtime.Broadcaster) *Service {
	return &Service{store: store, out: out}
}

func (s *Service) emit(ev event.ChangeEvent) {
	log.Debug().Str("resource", string(ev.Resource)).Str("op", string(ev.Op)).Msg("broadcasting change")
	s.out.FanOut(ev)
}

// --- projects ---

func (s *Service) ListProjects(ctx context.Context) ([]*domain.Project, error) {
	projects, err := s.store.Projects().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("tracker.Service.ListProjects: %w", err)
	}
	return projects, nil
}

func (s *Service) GetProject(ctx context.Context, id int64) (*domain.Project, error) {
	p, err := s.store.Projects().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("tracker.Service.GetProject: %w", err)
	}
	return p, nil
}

func (s *Service) CreateProject(ctx context.Context, name string, description *string) (*domain.Project, error) {
	p, err := domain.NewProject(name, description)
	if err != nil {
		return nil, fmt.Errorf("tracker.Service.CreateProject: %w", err)
	}

	err = s.store.Projects().Create(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("tracker.Service.CreateProject: %w", err)
	}

	s.emit(event.Created(event.ResourceProject, p))
	return p, nil
}

func (s *Service) UpdateProject(ctx context.Context, id int64, patch domain.ProjectPatch) (*domain.Project, error) {
	err := patch.Validate()
	if err != nil {
		return nil, fmt.Errorf("tracker.Service.UpdateProject: %w", err)
	}

	p, err := s.store.Projects().Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("tracker.Service.UpdateProject: %w", err)
	}

	s.emit(event.Updated(event.ResourceProject, p))
	return p, nil
}

func (s *Service) DeleteProject(ctx context.Context, id int64) (*domain.Project, error) {
	p, err := s.store.Projects().Delete(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("tracker.Service.DeleteProject: %w", err)
	}

	s.emit(event.Deleted(event.ResourceProject, p.ID))
	return p, nil
}

// --- tasks ---

func (s *Service) ListTasks(ctx context.Context) ([]*domain.Task, error) {
	tasks, err := s.store.Tasks().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("tracker.Service.ListTasks: %w", err)
	}
	return tasks, nil
}

func (s *Service) GetTask(ctx context.Context, id int64) (*domain.Task, error) {
	t, err := s.store.Tasks().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("tracker.Service.GetTask: %w", err)
	}
	return t, nil
}

// NewTaskInput carries the fields of a task to create. Empty status and
// priority take the domain defaults.
type NewTaskInput struct {
	ProjectID  int64
	Title      string
	Status     domain.TaskStatus
	Priority   domain.TaskPriority
	AssigneeID *int64
}

func (s *Service) CreateTask(ctx context.Context, in NewTaskInput) (*domain.Task, error) {
	t, err := domain.NewTask(in.ProjectID, in.Title, in.Status, in.Priority, in.AssigneeID)
	if err != nil {
		return nil, fmt.Errorf("tracker.Service.CreateTask: %w", err)
	}

	err = s.store.Tasks().Create(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("tracker.Service.CreateTask: %w", err)
	}

	s.emit(event.Created(event.ResourceTask, t))
	return t, nil
}

func (s *Service) UpdateTask(ctx context.Context, id int64, patch domain.TaskPatch) (*domain.Task, error) {
	err := patch.Validate()
	if err != nil {
		return nil, fmt.Errorf("tracker.Service.UpdateTask: %w", err)
	}

	t, err := s.store.Tasks().Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("tracker.Service.UpdateTask: %w", err)
	}

	s.emit(event.Updated(event.ResourceTask, t))
	return t, nil
}

func (s *Service) DeleteTask(ctx context.Context, id int64) (*domain.Task, error) {
	t, err := s.store.Tasks().Delete(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("tracker.Service.DeleteTask: %w", err)
	}

	s.emit(event.Deleted(event.ResourceTask, t.ID))
	return t, nil
}

// --- comments ---

func (s *Service) ListComments(ctx context.Context) ([]*domain.Comment, error) {
	comments, err := s.store.Comments().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("tracker.Service.ListComments: %w", err)
	}
	return comments, nil
}

func (s *Service) ListTaskComments(ctx context.Context, taskID int64) ([]*domain.Comment, error) {
	comments, err := s.store.Comments().ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("tracker.Service.ListTaskComments: %w", err)
	}
	return comments, nil
}

func (s *Service) GetComment(ctx context.Context, id int64) (*domain.Comment, error) {
	c, err := s.store.Comments().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("tracker.Service.GetComment: %w", err)
	}
	return c, nil
}

func (s *Service) CreateComment(ctx context.Context, taskID int64, text string) (*domain.Comment, error) {
	c, err := domain.NewComment(taskID, text)
	if err != nil {
		return nil, fmt.Errorf("tracker.Service.CreateComment: %w", err)
	}

	err = s.store.Comments().Create(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("tracker.Service.CreateComment: %w", err)
	}

	s.emit(event.Created(event.ResourceComment, c))
	return c, nil
}

func (s *Service) UpdateComment(ctx context.Context, id int64, patch domain.CommentPatch) (*domain.Comment, error) {
	err := patch.Validate()
	if err != nil {
		return nil, fmt.Errorf("tracker.Service.UpdateComment: %w", err)
	}

	c, err := s.store.Comments().Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("tracker.Service.UpdateComment: %w", err)
	}

	s.emit(event.Updated(event.ResourceComment, c))
	return c, nil
}

func (s *Service) DeleteComment(ctx context.Context, id int64) (*domain.Comment, error) {
	c, err := s.store.Comments().Delete(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("tracker.Service.DeleteComment: %w", err)
	}

	s.emit(event.Deleted(event.ResourceComment, c.ID))
	return c, nil
}

// Snapshot returns the full collection for r, as sent in a <resource>:data
// reply.
func (s *Service) Snapshot(ctx context.Context, r event.Resource) (any, error) {
	switch r {
	case event.ResourceProject:
		return s.ListProjects(ctx)
	case event.ResourceTask:
		return s.ListTasks(ctx)
	case event.ResourceComment:
		return s.ListComments(ctx)
	default:
		return nil, fmt.Errorf("tracker.Service.Snapshot: unknown resource %q: %w", r, domain.ErrValidation)
	}
}
