// Package realtime fans change events out to live push-channel connections.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/tasklive/internal/event"
)

// DefaultSendTimeout bounds a single write to one connection.
const DefaultSendTimeout = 10 * time.Second

// SendQueueSize is the number of frames buffered per connection before
// further frames to it are dropped.
const SendQueueSize = 256

// Conn is one live push-channel transport.
type Conn interface {
	ID() string
	// Open reports whether the transport currently accepts writes.
	Open() bool
	Send(ctx context.Context, data []byte) error
}

// Broadcaster accepts change events for delivery to every connected client.
// *Registry and *Relay satisfy this interface.
type Broadcaster interface {
	FanOut(ev event.ChangeEvent)
}

// Registry is the process-wide set of open connections. Every connection
// owns a bounded send queue drained by a single writer goroutine, so frames
// reach one connection in fan-out order while a stalled connection only
// delays itself.
type Registry struct {
	mu          sync.RWMutex
	conns       map[string]*outbox
	sendTimeout time.Duration
}

// outbox is the per-connection send queue. queue is never closed; done stops
// the writer.
type outbox struct {
	conn  Conn
	queue chan []byte
	done  chan struct{}
}

// NewRegistry creates an empty registry. A non-positive sendTimeout selects
// DefaultSendTimeout.
func NewRegistry(sendTimeout time.Duration) *Registry {
	if sendTimeout <= 0 {
		sendTimeout = DefaultSendTimeout
	}
	return &Registry{
		conns:       make(map[string]*outbox),
		sendTimeout: sendTimeout,
	}
}

// Register adds c and starts its writer. Registering a known connection
// again is a no-op.
func (r *Registry) Register(c Conn) {
	r.mu.Lock()
	if _, ok := r.conns[c.ID()]; ok {
		r.mu.Unlock()
		return
	}
	ob := &outbox{
		conn:  c,
		queue: make(chan []byte, SendQueueSize),
		done:  make(chan struct{}),
	}
	r.conns[c.ID()] = ob
	n := len(r.conns)
	r.mu.Unlock()

	go r.write(ob)
	log.Info().Str("conn_id", c.ID()).Int("clients", n).Msg("websocket connected")
}

// Unregister removes c and stops its writer; queued frames are dropped.
// Unknown connections are ignored.
func (r *Registry) Unregister(c Conn) {
	r.mu.Lock()
	ob, ok := r.conns[c.ID()]
	delete(r.conns, c.ID())
	n := len(r.conns)
	r.mu.Unlock()

	if ok {
		close(ob.done)
		log.Info().Str("conn_id", c.ID()).Int("clients", n).Msg("websocket disconnected")
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// FanOut serializes ev once and queues it for every open connection.
func (r *Registry) FanOut(ev event.ChangeEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("type", ev.Type()).Msg("fan-out marshal")
		return
	}
	r.Broadcast(data)
}

// Broadcast queues an already serialized frame for every open connection and
// returns the number of frames queued. Closed connections are skipped and a
// full queue drops the frame for that connection only. Broadcast never waits
// for delivery.
func (r *Registry) Broadcast(data []byte) int {
	r.mu.RLock()
	targets := make([]*outbox, 0, len(r.conns))
	for _, ob := range r.conns {
		targets = append(targets, ob)
	}
	r.mu.RUnlock()

	queued := 0
	for _, ob := range targets {
		if !ob.conn.Open() {
			continue
		}
		select {
		case ob.queue <- data:
			queued++
		default:
			log.Warn().Str("conn_id", ob.conn.ID()).Msg("fan-out queue full, dropping frame")
		}
	}
	return queued
}

// write drains one connection's queue in order until it is unregistered.
func (r *Registry) write(ob *outbox) {
	for {
		select {
		case <-ob.done:
			return
		case data := <-ob.queue:
			select {
			case <-ob.done:
				return
			default:
			}
			if ob.conn.Open() {
				r.send(ob.conn, data)
			}
		}
	}
}

func (r *Registry) send(c Conn, data []byte) {
	defer func() {
		if p := recover(); p != nil {
			log.Error().Str("conn_id", c.ID()).Interface("panic", p).Msg("fan-out send panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), r.sendTimeout)
	defer cancel()

	if err := c.Send(ctx, data); err != nil {
		log.Debug().Err(err).Str("conn_id", c.ID()).Msg("fan-out send")
	}
}
