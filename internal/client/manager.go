// Package client keeps a local copy of the tracker collections in sync with
// a server over the push channel. A Manager owns the connection lifecycle and
// reconnects with capped exponential backoff; a Cache reconciles the change
// events it receives.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/tasklive/internal/backoff"
	"github.com/gosuda/tasklive/internal/event"
)

// DefaultKeepAlive is the ping interval while connected.
const DefaultKeepAlive = 30 * time.Second

// DefaultDialTimeout bounds one connection attempt, handshake included.
const DefaultDialTimeout = 10 * time.Second

const writeTimeout = 10 * time.Second

// ErrNotConnected is returned by Send while no transport is open.
var ErrNotConnected = errors.New("client: not connected")

// Handler receives every decoded server message.
type Handler interface {
	Handle(env event.Envelope)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(env event.Envelope)

func (f HandlerFunc) Handle(env event.Envelope) { f(env) }

// Options tunes a Manager. Zero values select the defaults.
type Options struct {
	Dialer    Dialer
	Base      time.Duration
	Cap       time.Duration
	KeepAlive time.Duration
	// DialTimeout bounds each connection attempt; an attempt that times out
	// counts as a transport failure.
	DialTimeout time.Duration
	// Resources are fetched in full after every successful open.
	// Defaults to projects only.
	Resources []event.Resource

	// OnStatus observes every transition. It runs with transitions
	// serialized and must not call back into the Manager.
	OnStatus func(Status)
	// OnReconnect observes every scheduled reconnect, under the same
	// constraint as OnStatus.
	OnReconnect func(attempt int, delay time.Duration)
}

// Manager runs the client side of the push channel:
// connecting, connected, then disconnected and back to connecting after a
// backoff delay, for as long as it is not stopped. Transport failures pass
// through error before the close transition.
type Manager struct {
	url     string
	handler Handler
	opts    Options

	mu        sync.Mutex
	status    Status
	attempts  int
	gen       uint64
	started   bool
	stopped   bool
	transport Transport
	cancel    context.CancelFunc
	timer     *time.Timer
}

func NewManager(url string, handler Handler, opts Options) *Manager {
	if opts.Dialer == nil {
		opts.Dialer = WebSocketDialer{}
	}
	if opts.Base <= 0 {
		opts.Base = backoff.DefaultBase
	}
	if opts.Cap <= 0 {
		opts.Cap = backoff.DefaultCap
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = DefaultKeepAlive
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = DefaultDialTimeout
	}
	if len(opts.Resources) == 0 {
		opts.Resources = []event.Resource{event.ResourceProject}
	}
	return &Manager{url: url, handler: handler, opts: opts, status: StatusConnecting}
}

// Status reports the current state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Attempts reports consecutive failed connections since the last open.
func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// Start begins connecting and returns immediately. It is a no-op after the
// first call.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started || m.stopped {
		return
	}
	m.started = true
	m.connectLocked()
}

// Stop cancels any pending reconnect and keep-alive and closes the
// transport. No transition follows except the final stopped status.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	m.gen++
	m.stopTimerLocked()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	t := m.transport
	m.transport = nil
	m.setStatusLocked(StatusStopped)
	m.mu.Unlock()

	if t != nil {
		_ = t.Close()
	}
	log.Info().Str("url", m.url).Msg("client stopped")
}

// ReconnectNow skips a pending backoff delay, e.g. once the network is
// reachable again. It does nothing while connecting or connected.
func (m *Manager) ReconnectNow() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started || m.stopped {
		return
	}
	if m.status == StatusConnecting || m.status == StatusConnected {
		return
	}
	m.stopTimerLocked()
	m.connectLocked()
}

// Send writes a control message on the open transport.
func (m *Manager) Send(ctx context.Context, msg event.Message) error {
	m.mu.Lock()
	t := m.transport
	connected := m.status == StatusConnected
	m.mu.Unlock()

	if !connected || t == nil {
		return ErrNotConnected
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("client.Manager.Send: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	err = t.Write(ctx, data)
	if err != nil {
		return fmt.Errorf("client.Manager.Send: %w", err)
	}
	return nil
}

func (m *Manager) setStatusLocked(s Status) {
	if m.status == s {
		return
	}
	m.status = s
	log.Debug().Str("status", string(s)).Msg("client status")
	if m.opts.OnStatus != nil {
		m.opts.OnStatus(s)
	}
}

func (m *Manager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// connectLocked supersedes any previous connection and dials a new one.
func (m *Manager) connectLocked() {
	m.gen++
	gen := m.gen
	if m.cancel != nil {
		m.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.setStatusLocked(StatusConnecting)

	go m.run(ctx, gen)
}

// currentLocked reports whether gen still owns the manager.
func (m *Manager) currentLocked(gen uint64) bool {
	return gen == m.gen && !m.stopped
}

func (m *Manager) run(ctx context.Context, gen uint64) {
	dialCtx, cancel := context.WithTimeout(ctx, m.opts.DialTimeout)
	t, err := m.opts.Dialer.Dial(dialCtx, m.url)
	cancel()
	if err != nil {
		m.fail(gen, err)
		return
	}

	if !m.opened(ctx, gen, t) {
		_ = t.Close()
		return
	}

	for {
		data, err := t.Read(ctx)
		if err != nil {
			_ = t.Close()
			m.fail(gen, err)
			return
		}

		env, err := event.Decode(data)
		if err != nil {
			log.Warn().Err(err).Msg("ignoring malformed server message")
			continue
		}
		m.handler.Handle(env)
	}
}

func (m *Manager) opened(ctx context.Context, gen uint64, t Transport) bool {
	m.mu.Lock()
	if !m.currentLocked(gen) {
		m.mu.Unlock()
		return false
	}
	m.transport = t
	m.attempts = 0
	m.setStatusLocked(StatusConnected)
	m.mu.Unlock()

	log.Info().Str("url", m.url).Msg("client connected")

	for _, r := range m.opts.Resources {
		err := m.Send(ctx, event.Message{Type: event.FetchType(r)})
		if err != nil {
			log.Warn().Err(err).Str("resource", string(r)).Msg("fetch request")
		}
	}

	go m.keepAlive(ctx)
	return true
}

func (m *Manager) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(m.opts.KeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := m.Send(ctx, event.Message{Type: event.TypePing})
			if err != nil && !errors.Is(err, ErrNotConnected) {
				log.Debug().Err(err).Msg("keep-alive ping")
			}
		}
	}
}

// fail runs the close transition for gen, preceded by error unless the peer
// closed cleanly, and schedules exactly one reconnect.
func (m *Manager) fail(gen uint64, cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.currentLocked(gen) {
		return
	}

	if errors.Is(cause, ErrClosed) {
		log.Info().Err(cause).Str("url", m.url).Msg("client connection closed")
	} else {
		log.Warn().Err(cause).Str("url", m.url).Msg("client connection lost")
		m.setStatusLocked(StatusError)
	}

	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.transport = nil
	m.setStatusLocked(StatusDisconnected)

	m.attempts++
	delay := backoff.Delay(m.attempts, m.opts.Base, m.opts.Cap)
	m.stopTimerLocked()
	m.timer = time.AfterFunc(delay, func() { m.reconnect(gen) })

	log.Info().Int("attempt", m.attempts).Dur("delay", delay).Msg("client reconnect scheduled")
	if m.opts.OnReconnect != nil {
		m.opts.OnReconnect(m.attempts, delay)
	}
}

func (m *Manager) reconnect(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.currentLocked(gen) || m.status != StatusDisconnected {
		return
	}
	m.timer = nil
	m.connectLocked()
}
