package v1_test

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	v1 "github.com/gosuda/tasklive/internal/api/v1"
	"github.com/gosuda/tasklive/internal/domain"
	"github.com/gosuda/tasklive/internal/tracker"
	"github.com/gosuda/tasklive/internal/tracker/trackertest"
)

type fixture struct {
	api   humatest.TestAPI
	store *trackertest.Store
	rec   *trackertest.Recorder
	svc   *tracker.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	_, api := humatest.New(t)
	store := trackertest.NewStore()
	rec := &trackertest.Recorder{}
	svc := tracker.NewService(store, rec)
	v1.RegisterRoutes(api, svc)

	return &fixture{api: api, store: store, rec: rec, svc: svc}
}

func (f *fixture) seedProject(t *testing.T, name string) *domain.Project {
	t.Helper()

	p, err := f.svc.CreateProject(context.Background(), name, nil)
	require.NoError(t, err)
	return p
}

func (f *fixture) seedTask(t *testing.T, projectID int64, title string) *domain.Task {
	t.Helper()

	task, err := f.svc.CreateTask(context.Background(), tracker.NewTaskInput{ProjectID: projectID, Title: title})
	require.NoError(t, err)
	return task
}

// eventTypes returns the recorded event types after skip seed events.
func (f *fixture) eventTypes(skip int) []string {
	events := f.rec.Events()
	if skip > len(events) {
		skip = len(events)
	}
	types := make([]string, 0, len(events)-skip)
	for _, ev := range events[skip:] {
		types = append(types, ev.Type())
	}
	return types
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(body, &v))
	return v
}

// brokenStore fails every repository call.
type brokenStore struct{}

var errDown = errors.New("db: connection refused")

func (brokenStore) Projects() domain.ProjectRepository { return brokenProjects{} }
func (brokenStore) Tasks() domain.TaskRepository       { return nil }
func (brokenStore) Comments() domain.CommentRepository { return nil }

type brokenProjects struct{}

func (brokenProjects) Create(context.Context, *domain.Project) error { return errDown }
func (brokenProjects) GetByID(context.Context, int64) (*domain.Project, error) {
	return nil, errDown
}
func (brokenProjects) List(context.Context) ([]*domain.Project, error) { return nil, errDown }
func (brokenProjects) Update(context.Context, int64, domain.ProjectPatch) (*domain.Project, error) {
	return nil, errDown
}
func (brokenProjects) Delete(context.Context, int64) (*domain.Project, error) { return nil, errDown }

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
