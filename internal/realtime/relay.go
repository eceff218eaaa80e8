package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/tasklive/internal/event"
)

// RelayChannel is the default pub/sub channel shared by all server instances.
const RelayChannel = "tasklive:changes"

const relayPublishTimeout = 5 * time.Second

// PubSub is the cross-instance channel used by Relay.
// *redis.Topic satisfies this interface.
type PubSub interface {
	Publish(ctx context.Context, frame []byte) error
	Subscribe(ctx context.Context) (<-chan []byte, func(), error)
}

type relayEnvelope struct {
	Origin uuid.UUID       `json:"origin"`
	Event  json.RawMessage `json:"event"`
}

// Relay fans events out locally and republishes them so clients attached to
// peer instances receive endpoint-originated events without waiting for the
// database notification path.
type Relay struct {
	local    *Registry
	pubsub   PubSub
	origin   uuid.UUID
	outgoing chan []byte
}

func NewRelay(local *Registry, pubsub PubSub) *Relay {
	return &Relay{
		local:    local,
		pubsub:   pubsub,
		origin:   uuid.New(),
		outgoing: make(chan []byte, SendQueueSize),
	}
}

// FanOut delivers ev to local connections and queues it for peers. Queued
// frames are published one at a time, in order, while Run is active; a full
// queue drops the frame for peers only.
func (r *Relay) FanOut(ev event.ChangeEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("type", ev.Type()).Msg("relay marshal")
		return
	}
	r.local.Broadcast(data)

	env, err := json.Marshal(relayEnvelope{Origin: r.origin, Event: data})
	if err != nil {
		log.Error().Err(err).Msg("relay envelope marshal")
		return
	}
	select {
	case r.outgoing <- env:
	default:
		log.Warn().Str("type", ev.Type()).Msg("relay queue full, dropping frame for peers")
	}
}

func (r *Relay) publish(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-r.outgoing:
			pubCtx, cancel := context.WithTimeout(ctx, relayPublishTimeout)
			err := r.pubsub.Publish(pubCtx, frame)
			cancel()
			if err != nil {
				log.Warn().Err(err).Msg("relay publish")
			}
		}
	}
}

// Run publishes queued frames and consumes events published by peer instances
// until ctx is done or the subscription closes. Events this instance
// published are skipped.
func (r *Relay) Run(ctx context.Context) error {
	messages, cleanup, err := r.pubsub.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("realtime.Relay.Run: %w", err)
	}
	defer cleanup()

	pubCtx, stop := context.WithCancel(ctx)
	defer stop()
	go r.publish(pubCtx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			r.handle(msg)
		}
	}
}

func (r *Relay) handle(msg []byte) {
	var env relayEnvelope
	if err := json.Unmarshal(msg, &env); err != nil {
		log.Warn().Err(err).Msg("dropping relay message")
		return
	}
	if env.Origin == r.origin {
		return
	}
	if len(env.Event) == 0 {
		log.Warn().Msg("dropping empty relay message")
		return
	}
	r.local.Broadcast(env.Event)
}
