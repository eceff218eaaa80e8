// Package trackertest provides an in-memory DataStore and a recording
// Broadcaster for exercising the tracker service and its transports.
package trackertest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gosuda/tasklive/internal/domain"
	"github.com/gosuda/tasklive/internal/event"
)

// Store is an in-memory tracker.DataStore. Foreign keys are checked the way
// the database checks them.
type Store struct {
	mu       sync.Mutex
	nextID   int64
	clock    func() time.Time
	projects map[int64]domain.Project
	tasks    map[int64]domain.Task
	comments map[int64]domain.Comment
}

func NewStore() *Store {
	return &Store{
		clock:    time.Now,
		projects: make(map[int64]domain.Project),
		tasks:    make(map[int64]domain.Task),
		comments: make(map[int64]domain.Comment),
	}
}

func (s *Store) Projects() domain.ProjectRepository { return projectRepo{s} }
func (s *Store) Tasks() domain.TaskRepository       { return taskRepo{s} }
func (s *Store) Comments() domain.CommentRepository { return commentRepo{s} }

func (s *Store) stamp() (int64, time.Time) {
	s.nextID++
	return s.nextID, s.clock().UTC()
}

func notFound(op string) error {
	return fmt.Errorf("trackertest.%s: %w", op, domain.ErrNotFound)
}

func sortByUpdated[T any](items []*T, updated func(*T) time.Time, id func(*T) int64) {
	sort.Slice(items, func(i, j int) bool {
		ui, uj := updated(items[i]), updated(items[j])
		if !ui.Equal(uj) {
			return ui.After(uj)
		}
		return id(items[i]) > id(items[j])
	})
}

type projectRepo struct{ s *Store }

func (r projectRepo) Create(_ context.Context, p *domain.Project) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	id, now := r.s.stamp()
	p.ID, p.CreatedAt, p.UpdatedAt = id, now, now
	r.s.projects[id] = *p
	return nil
}

func (r projectRepo) GetByID(_ context.Context, id int64) (*domain.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.projects[id]
	if !ok {
		return nil, notFound("projectRepo.GetByID")
	}
	return &p, nil
}

func (r projectRepo) List(_ context.Context) ([]*domain.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*domain.Project, 0, len(r.s.projects))
	for _, p := range r.s.projects {
		out = append(out, &p)
	}
	sortByUpdated(out, func(p *domain.Project) time.Time { return p.UpdatedAt }, func(p *domain.Project) int64 { return p.ID })
	return out, nil
}

func (r projectRepo) Update(_ context.Context, id int64, patch domain.ProjectPatch) (*domain.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.projects[id]
	if !ok {
		return nil, notFound("projectRepo.Update")
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = patch.Description
	}
	p.UpdatedAt = r.s.clock().UTC()
	r.s.projects[id] = p
	return &p, nil
}

func (r projectRepo) Delete(_ context.Context, id int64) (*domain.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.projects[id]
	if !ok {
		return nil, notFound("projectRepo.Delete")
	}
	delete(r.s.projects, id)
	for tid, t := range r.s.tasks {
		if t.ProjectID == id {
			r.s.deleteTaskLocked(tid)
		}
	}
	return &p, nil
}

type taskRepo struct{ s *Store }

func (r taskRepo) Create(_ context.Context, t *domain.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.projects[t.ProjectID]; !ok {
		return fmt.Errorf("trackertest.taskRepo.Create: %w", domain.ErrInvalidReference)
	}
	id, now := r.s.stamp()
	t.ID, t.CreatedAt, t.UpdatedAt = id, now, now
	r.s.tasks[id] = *t
	return nil
}

func (r taskRepo) GetByID(_ context.Context, id int64) (*domain.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tasks[id]
	if !ok {
		return nil, notFound("taskRepo.GetByID")
	}
	return &t, nil
}

func (r taskRepo) List(_ context.Context) ([]*domain.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*domain.Task, 0, len(r.s.tasks))
	for _, t := range r.s.tasks {
		out = append(out, &t)
	}
	sortByUpdated(out, func(t *domain.Task) time.Time { return t.UpdatedAt }, func(t *domain.Task) int64 { return t.ID })
	return out, nil
}

func (r taskRepo) Update(_ context.Context, id int64, patch domain.TaskPatch) (*domain.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tasks[id]
	if !ok {
		return nil, notFound("taskRepo.Update")
	}
	if patch.ProjectID != nil {
		if _, ok := r.s.projects[*patch.ProjectID]; !ok {
			return nil, fmt.Errorf("trackertest.taskRepo.Update: %w", domain.ErrInvalidReference)
		}
		t.ProjectID = *patch.ProjectID
	}
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.AssigneeID != nil {
		t.AssigneeID = patch.AssigneeID
	}
	t.UpdatedAt = r.s.clock().UTC()
	r.s.tasks[id] = t
	return &t, nil
}

func (r taskRepo) Delete(_ context.Context, id int64) (*domain.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tasks[id]
	if !ok {
		return nil, notFound("taskRepo.Delete")
	}
	r.s.deleteTaskLocked(id)
	return &t, nil
}

func (s *Store) deleteTaskLocked(id int64) {
	delete(s.tasks, id)
	for cid, c := range s.comments {
		if c.TaskID == id {
			delete(s.comments, cid)
		}
	}
}

type commentRepo struct{ s *Store }

func (r commentRepo) Create(_ context.Context, c *domain.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tasks[c.TaskID]; !ok {
		return fmt.Errorf("trackertest.commentRepo.Create: %w", domain.ErrInvalidReference)
	}
	id, now := r.s.stamp()
	c.ID, c.CreatedAt, c.UpdatedAt = id, now, now
	r.s.comments[id] = *c
	return nil
}

func (r commentRepo) GetByID(_ context.Context, id int64) (*domain.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.comments[id]
	if !ok {
		return nil, notFound("commentRepo.GetByID")
	}
	return &c, nil
}

func (r commentRepo) List(_ context.Context) ([]*domain.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*domain.Comment, 0, len(r.s.comments))
	for _, c := range r.s.comments {
		out = append(out, &c)
	}
	sortByUpdated(out, func(c *domain.Comment) time.Time { return c.CreatedAt }, func(c *domain.Comment) int64 { return c.ID })
	return out, nil
}

func (r commentRepo) ListByTask(_ context.Context, taskID int64) ([]*domain.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*domain.Comment, 0)
	for _, c := range r.s.comments {
		if c.TaskID == taskID {
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r commentRepo) Update(_ context.Context, id int64, patch domain.CommentPatch) (*domain.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.comments[id]
	if !ok {
		return nil, notFound("commentRepo.Update")
	}
	if patch.Text != nil {
		c.Text = *patch.Text
	}
	c.UpdatedAt = r.s.clock().UTC()
	r.s.comments[id] = c
	return &c, nil
}

func (r commentRepo) Delete(_ context.Context, id int64) (*domain.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.comments[id]
	if !ok {
		return nil, notFound("commentRepo.Delete")
	}
	delete(r.s.comments, id)
	return &c, nil
}

// Recorder is a realtime.Broadcaster that keeps every event it is given.
type Recorder struct {
	mu     sync.Mutex
	events []event.ChangeEvent
}

func (r *Recorder) FanOut(ev event.ChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events in arrival order.
func (r *Recorder) Events() []event.ChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event.ChangeEvent(nil), r.events...)
}
