package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/tasklive/internal/backoff"
	"github.com/gosuda/tasklive/internal/event"
)

// Channels are the database notification channels fed by the change triggers.
var Channels = []string{"projects_changes", "tasks_changes", "comments_changes"} //nolint:gochecknoglobals // fixed channel set

// ErrMalformedNotification is returned by DecodeNotification for payloads
// that cannot be mapped to a change event.
var ErrMalformedNotification = errors.New("realtime: malformed notification") //nolint:gochecknoglobals // sentinel error

// Notification is one raw message from the change source.
type Notification struct {
	Channel string
	Payload string
}

// NotificationSource is a subscription to the store's change channels.
// *postgres.Notifier satisfies this interface.
type NotificationSource interface {
	// Listen subscribes to channels and calls fn for each notification until
	// ctx is done or the subscription fails.
	Listen(ctx context.Context, channels []string, fn func(Notification)) error
}

// Listener forwards store change notifications into a Broadcaster. One
// Listener runs per process.
type Listener struct {
	source    NotificationSource
	out       Broadcaster
	retryBase time.Duration
	retryCap  time.Duration
}

// NewListener creates a Listener. Zero retry durations select the backoff
// package defaults.
func NewListener(source NotificationSource, out Broadcaster, retryBase, retryCap time.Duration) *Listener {
	if retryBase <= 0 {
		retryBase = backoff.DefaultBase
	}
	if retryCap <= 0 {
		retryCap = backoff.DefaultCap
	}
	return &Listener{source: source, out: out, retryBase: retryBase, retryCap: retryCap}
}

// Run holds the subscription until ctx is done. A lost subscription is logged
// and re-established after a capped exponential delay; it never stops the
// process.
func (l *Listener) Run(ctx context.Context) {
	attempt := 0
	for {
		started := time.Now()
		err := l.source.Listen(ctx, Channels, l.Handle)
		if ctx.Err() != nil {
			log.Info().Msg("database listener stopped")
			return
		}

		// A subscription that stayed up for a full cap window starts over.
		if time.Since(started) > l.retryCap {
			attempt = 0
		}
		attempt++
		delay := backoff.Delay(attempt, l.retryBase, l.retryCap)
		log.Error().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("database listener lost subscription")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info().Msg("database listener stopped")
			return
		case <-timer.C:
		}
	}
}

// Handle decodes one notification and fans it out. Malformed notifications
// are logged and dropped.
func (l *Listener) Handle(n Notification) {
	ev, err := DecodeNotification([]byte(n.Payload))
	if err != nil {
		log.Warn().Err(err).Str("channel", n.Channel).Msg("dropping database notification")
		return
	}

	log.Debug().Str("channel", n.Channel).Str("type", ev.Type()).Msg("database change")
	l.out.FanOut(ev)
}

type rawNotification struct {
	Table     string          `json:"table"`
	Operation string          `json:"operation"`
	Record    json.RawMessage `json:"record"`
}

var tableResources = map[string]event.Resource{ //nolint:gochecknoglobals // fixed mapping
	"projects": event.ResourceProject,
	"tasks":    event.ResourceTask,
	"comments": event.ResourceComment,
}

var operationOps = map[string]event.Op{ //nolint:gochecknoglobals // fixed mapping
	"INSERT": event.OpCreated,
	"UPDATE": event.OpUpdated,
	"DELETE": event.OpDeleted,
}

// DecodeNotification maps a {table, operation, record} payload to a change
// event. Deletes keep only the record identity.
func DecodeNotification(payload []byte) (event.ChangeEvent, error) {
	var raw rawNotification
	if err := json.Unmarshal(payload, &raw); err != nil {
		return event.ChangeEvent{}, fmt.Errorf("%w: %w", ErrMalformedNotification, err)
	}

	resource, ok := tableResources[raw.Table]
	if !ok {
		return event.ChangeEvent{}, fmt.Errorf("%w: unknown table %q", ErrMalformedNotification, raw.Table)
	}
	op, ok := operationOps[raw.Operation]
	if !ok {
		return event.ChangeEvent{}, fmt.Errorf("%w: unknown operation %q", ErrMalformedNotification, raw.Operation)
	}

	var ident struct {
		ID *int64 `json:"id"`
	}
	if err := json.Unmarshal(raw.Record, &ident); err != nil {
		return event.ChangeEvent{}, fmt.Errorf("%w: record: %w", ErrMalformedNotification, err)
	}
	if ident.ID == nil {
		return event.ChangeEvent{}, fmt.Errorf("%w: record without id", ErrMalformedNotification)
	}

	if op == event.OpDeleted {
		return event.Deleted(resource, *ident.ID), nil
	}
	return event.ChangeEvent{Resource: resource, Op: op, Payload: raw.Record}, nil
}
