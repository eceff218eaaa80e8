package client_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/tasklive/internal/api/ws"
	"github.com/gosuda/tasklive/internal/client"
	"github.com/gosuda/tasklive/internal/event"
	"github.com/gosuda/tasklive/internal/realtime"
	"github.com/gosuda/tasklive/internal/tracker"
	"github.com/gosuda/tasklive/internal/tracker/trackertest"
)

const wait = 2 * time.Second

// ---------------------------------------------------------------------------
// Fake transport and dialer
// ---------------------------------------------------------------------------

type fakeTransport struct {
	in     chan []byte
	out    chan []byte
	closed chan struct{}
	once   sync.Once
	mu     sync.Mutex
	err    error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		in:     make(chan []byte, 16),
		out:    make(chan []byte, 256),
		closed: make(chan struct{}),
	}
}

func (f *fakeTransport) Read(ctx context.Context) ([]byte, error) {
	select {
	case data := <-f.in:
		return data, nil
	case <-f.closed:
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.err != nil {
			return nil, f.err
		}
		return nil, client.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeTransport) Write(_ context.Context, data []byte) error {
	select {
	case <-f.closed:
		return errors.New("write on closed transport")
	default:
	}
	select {
	case f.out <- data:
	default:
	}
	return nil
}

func (f *fakeTransport) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

// drop simulates a transport failure.
func (f *fakeTransport) drop(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
	_ = f.Close()
}

// nextWrite returns the next frame the client wrote.
func (f *fakeTransport) nextWrite(t *testing.T) string {
	t.Helper()

	select {
	case data := <-f.out:
		return string(data)
	case <-time.After(wait):
		t.Fatal("no write from client")
		return ""
	}
}

type fakeDialer struct {
	calls atomic.Int32
	// failFirst dials fail before one succeeds.
	failFirst int32
	conns     chan *fakeTransport
}

func newFakeDialer(failFirst int32) *fakeDialer {
	return &fakeDialer{failFirst: failFirst, conns: make(chan *fakeTransport, 16)}
}

func (d *fakeDialer) Dial(_ context.Context, _ string) (client.Transport, error) {
	n := d.calls.Add(1)
	if n <= d.failFirst {
		return nil, errors.New("connection refused")
	}
	t := newFakeTransport()
	d.conns <- t
	return t, nil
}

func (d *fakeDialer) next(t *testing.T) *fakeTransport {
	t.Helper()

	select {
	case c := <-d.conns:
		return c
	case <-time.After(wait):
		t.Fatal("client never connected")
		return nil
	}
}

type statusLog struct {
	mu       sync.Mutex
	statuses []client.Status
	delays   []time.Duration
	attempts []int
}

func (l *statusLog) onStatus(s client.Status) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.statuses = append(l.statuses, s)
}

func (l *statusLog) onReconnect(attempt int, delay time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts = append(l.attempts, attempt)
	l.delays = append(l.delays, delay)
}

func (l *statusLog) snapshot() ([]client.Status, []int, []time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]client.Status(nil), l.statuses...),
		append([]int(nil), l.attempts...),
		append([]time.Duration(nil), l.delays...)
}

func (l *statusLog) reconnects() int {
	_, attempts, _ := l.snapshot()
	return len(attempts)
}

func newManager(d client.Dialer, h client.Handler, l *statusLog, opts client.Options) *client.Manager {
	opts.Dialer = d
	opts.OnStatus = l.onStatus
	opts.OnReconnect = l.onReconnect
	return client.NewManager("ws://tracker.test/ws", h, opts)
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestManager_OpenFetchesTrackedResources(t *testing.T) {
	t.Parallel()

	d := newFakeDialer(0)
	cache := client.NewCache()
	log := &statusLog{}
	m := newManager(d, cache, log, client.Options{
		Resources: []event.Resource{event.ResourceProject, event.ResourceTask},
	})
	assert.Equal(t, client.StatusConnecting, m.Status())

	m.Start()
	defer m.Stop()
	tr := d.next(t)

	assert.JSONEq(t, `{"type":"projects:fetch"}`, tr.nextWrite(t))
	assert.JSONEq(t, `{"type":"tasks:fetch"}`, tr.nextWrite(t))
	assert.Equal(t, client.StatusConnected, m.Status())

	tr.in <- []byte(`{"type":"connected","message":"Connected to server"}`)
	tr.in <- []byte(`{"type":"projects:data","payload":[{"id":1,"name":"a","createdAt":"2026-01-01T00:00:00Z","updatedAt":"2026-01-01T00:00:00Z"}]}`)
	require.Eventually(t, func() bool { return len(cache.Projects()) == 1 }, wait, 5*time.Millisecond)
}

func TestManager_BackoffDelays(t *testing.T) {
	t.Parallel()

	d := newFakeDialer(4)
	log := &statusLog{}
	m := newManager(d, client.NewCache(), log, client.Options{
		Base: 5 * time.Millisecond,
		Cap:  20 * time.Millisecond,
	})

	m.Start()
	defer m.Stop()
	d.next(t)

	require.Eventually(t, func() bool { return m.Status() == client.StatusConnected }, wait, 5*time.Millisecond)
	assert.Equal(t, 0, m.Attempts())

	statuses, attempts, delays := log.snapshot()
	assert.Equal(t, []int{1, 2, 3, 4}, attempts)
	assert.Equal(t, []time.Duration{
		5 * time.Millisecond, 10 * time.Millisecond, 20 * time.Millisecond, 20 * time.Millisecond,
	}, delays)
	assert.Equal(t, []client.Status{
		client.StatusError, client.StatusDisconnected, client.StatusConnecting,
		client.StatusError, client.StatusDisconnected, client.StatusConnecting,
		client.StatusError, client.StatusDisconnected, client.StatusConnecting,
		client.StatusError, client.StatusDisconnected, client.StatusConnecting,
		client.StatusConnected,
	}, statuses)
}

func TestManager_AttemptsResetAfterOpen(t *testing.T) {
	t.Parallel()

	d := newFakeDialer(2)
	log := &statusLog{}
	m := newManager(d, client.NewCache(), log, client.Options{
		Base: 5 * time.Millisecond,
		Cap:  time.Second,
	})

	m.Start()
	defer m.Stop()
	tr := d.next(t)
	require.Eventually(t, func() bool { return m.Status() == client.StatusConnected }, wait, 5*time.Millisecond)

	tr.drop(errors.New("connection reset by peer"))
	d.next(t)
	require.Eventually(t, func() bool { return m.Status() == client.StatusConnected }, wait, 5*time.Millisecond)

	_, attempts, delays := log.snapshot()
	assert.Equal(t, []int{1, 2, 1}, attempts)
	assert.Equal(t, 5*time.Millisecond, delays[2], "backoff restarts at base")
}

func TestManager_CleanCloseSkipsError(t *testing.T) {
	t.Parallel()

	d := newFakeDialer(0)
	log := &statusLog{}
	m := newManager(d, client.NewCache(), log, client.Options{Base: time.Hour})

	m.Start()
	defer m.Stop()
	tr := d.next(t)
	require.Eventually(t, func() bool { return m.Status() == client.StatusConnected }, wait, 5*time.Millisecond)

	_ = tr.Close()
	require.Eventually(t, func() bool { return m.Status() == client.StatusDisconnected }, wait, 5*time.Millisecond)

	statuses, _, _ := log.snapshot()
	assert.Equal(t, []client.Status{client.StatusConnected, client.StatusDisconnected}, statuses)
	assert.Equal(t, 1, m.Attempts())
}

func TestManager_StopCancelsPendingReconnect(t *testing.T) {
	t.Parallel()

	d := newFakeDialer(1000)
	log := &statusLog{}
	m := newManager(d, client.NewCache(), log, client.Options{Base: 50 * time.Millisecond})

	m.Start()
	require.Eventually(t, func() bool { return log.reconnects() == 1 }, wait, 5*time.Millisecond)

	m.Stop()
	assert.Equal(t, client.StatusStopped, m.Status())

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), d.calls.Load())
	assert.Equal(t, client.StatusStopped, m.Status())

	m.Start()
	m.ReconnectNow()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), d.calls.Load(), "stopped manager never dials again")
}

func TestManager_StopClosesTransport(t *testing.T) {
	t.Parallel()

	d := newFakeDialer(0)
	log := &statusLog{}
	m := newManager(d, client.NewCache(), log, client.Options{})

	m.Start()
	tr := d.next(t)
	require.Eventually(t, func() bool { return m.Status() == client.StatusConnected }, wait, 5*time.Millisecond)

	m.Stop()
	select {
	case <-tr.closed:
	case <-time.After(wait):
		t.Fatal("transport left open")
	}

	time.Sleep(20 * time.Millisecond)
	statuses, attempts, _ := log.snapshot()
	assert.Equal(t, []client.Status{client.StatusConnected, client.StatusStopped}, statuses)
	assert.Empty(t, attempts)
}

func TestManager_ReconnectNowSkipsBackoff(t *testing.T) {
	t.Parallel()

	d := newFakeDialer(1)
	log := &statusLog{}
	m := newManager(d, client.NewCache(), log, client.Options{Base: time.Hour})

	m.Start()
	defer m.Stop()
	require.Eventually(t, func() bool { return m.Status() == client.StatusDisconnected }, wait, 5*time.Millisecond)

	m.ReconnectNow()
	d.next(t)
	require.Eventually(t, func() bool { return m.Status() == client.StatusConnected }, wait, 5*time.Millisecond)

	// Already connected: nothing to do.
	m.ReconnectNow()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(2), d.calls.Load())
}

func TestManager_SendRequiresConnection(t *testing.T) {
	t.Parallel()

	d := newFakeDialer(0)
	m := newManager(d, client.NewCache(), &statusLog{}, client.Options{})

	err := m.Send(context.Background(), event.Message{Type: event.TypePing})
	require.ErrorIs(t, err, client.ErrNotConnected)

	m.Start()
	defer m.Stop()
	tr := d.next(t)
	tr.nextWrite(t) // projects:fetch

	require.NoError(t, m.Send(context.Background(), event.Message{Type: event.TypePing}))
	assert.JSONEq(t, `{"type":"ping"}`, tr.nextWrite(t))
}

func TestManager_KeepAlivePings(t *testing.T) {
	t.Parallel()

	d := newFakeDialer(0)
	m := newManager(d, client.NewCache(), &statusLog{}, client.Options{KeepAlive: 10 * time.Millisecond})

	m.Start()
	defer m.Stop()
	tr := d.next(t)

	assert.JSONEq(t, `{"type":"projects:fetch"}`, tr.nextWrite(t))
	assert.JSONEq(t, `{"type":"ping"}`, tr.nextWrite(t))
	assert.JSONEq(t, `{"type":"ping"}`, tr.nextWrite(t))
}

func TestManager_MalformedMessageKeepsConnection(t *testing.T) {
	t.Parallel()

	d := newFakeDialer(0)
	cache := client.NewCache()
	m := newManager(d, cache, &statusLog{}, client.Options{})

	m.Start()
	defer m.Stop()
	tr := d.next(t)

	tr.in <- []byte(`garbage`)
	tr.in <- []byte(`{"type":"weird:thing"}`)
	tr.in <- []byte(`{"type":"project:created","payload":{"id":4,"name":"d","createdAt":"2026-01-01T00:00:00Z","updatedAt":"2026-01-01T00:00:00Z"}}`)

	require.Eventually(t, func() bool { return len(cache.Projects()) == 1 }, wait, 5*time.Millisecond)
	assert.Equal(t, client.StatusConnected, m.Status())
}

func TestManager_AgainstHub(t *testing.T) {
	t.Parallel()

	reg := realtime.NewRegistry(time.Second)
	svc := tracker.NewService(trackertest.NewStore(), reg)
	srv := httptest.NewServer(ws.NewHub(reg, svc, nil))
	defer srv.Close()

	ctx := context.Background()
	seed, err := svc.CreateProject(ctx, "seeded", nil)
	require.NoError(t, err)

	cache := client.NewCache()
	m := client.NewManager("ws"+strings.TrimPrefix(srv.URL, "http"), cache, client.Options{})
	m.Start()
	defer m.Stop()

	require.Eventually(t, func() bool { return len(cache.Projects()) == 1 }, wait, 10*time.Millisecond)
	require.Eventually(t, func() bool { return reg.Len() == 1 }, wait, 10*time.Millisecond)

	created, err := svc.CreateProject(ctx, "live", nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(cache.Projects()) == 2 }, wait, 10*time.Millisecond)
	assert.Equal(t, created.ID, cache.Projects()[0].ID, "created records are prepended")

	_, err = svc.DeleteProject(ctx, seed.ID)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(cache.Projects()) == 1 }, wait, 10*time.Millisecond)
	assert.Equal(t, "live", cache.Projects()[0].Name)
}

// hangingDialer never completes a dial on its own.
type hangingDialer struct {
	calls atomic.Int32
}

func (d *hangingDialer) Dial(ctx context.Context, _ string) (client.Transport, error) {
	d.calls.Add(1)
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestManager_DialTimeoutFailsAttempt(t *testing.T) {
	t.Parallel()

	d := &hangingDialer{}
	log := &statusLog{}
	m := newManager(d, client.NewCache(), log, client.Options{
		DialTimeout: 20 * time.Millisecond,
		Base:        time.Hour,
		Cap:         time.Hour,
	})

	m.Start()
	defer m.Stop()

	require.Eventually(t, func() bool { return m.Status() == client.StatusDisconnected }, wait, 5*time.Millisecond)
	assert.Equal(t, 1, m.Attempts())
	assert.Equal(t, int32(1), d.calls.Load())

	statuses, attempts, _ := log.snapshot()
	assert.Equal(t, []client.Status{client.StatusError, client.StatusDisconnected}, statuses)
	assert.Equal(t, []int{1}, attempts)
}
