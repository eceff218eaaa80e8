package client

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/tasklive/internal/domain"
	"github.com/gosuda/tasklive/internal/event"
)

// Identified is a record with a stable identity.
type Identified interface {
	Identity() int64
}

// ApplyCreated replaces the record with the same identity in place, or
// prepends it when absent. Applying the same record twice is a no-op the
// second time.
func ApplyCreated[T Identified](items []T, item T) []T {
	if i := indexOf(items, item.Identity()); i >= 0 {
		out := slices.Clone(items)
		out[i] = item
		return out
	}
	out := make([]T, 0, len(items)+1)
	out = append(out, item)
	return append(out, items...)
}

// ApplyUpdated replaces the record with the same identity. An unknown record
// leaves items unchanged.
func ApplyUpdated[T Identified](items []T, item T) []T {
	i := indexOf(items, item.Identity())
	if i < 0 {
		return items
	}
	out := slices.Clone(items)
	out[i] = item
	return out
}

// ApplyDeleted removes the record with identity id, if present.
func ApplyDeleted[T Identified](items []T, id int64) []T {
	i := indexOf(items, id)
	if i < 0 {
		return items
	}
	out := make([]T, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}

func indexOf[T Identified](items []T, id int64) int {
	return slices.IndexFunc(items, func(it T) bool { return it.Identity() == id })
}

// collection is one published, never mutated slice.
type collection[T Identified] struct {
	mu    sync.Mutex
	items atomic.Pointer[[]T]
}

func (c *collection[T]) load() []T {
	if p := c.items.Load(); p != nil {
		return *p
	}
	return nil
}

func (c *collection[T]) snapshot() []T {
	return slices.Clone(c.load())
}

func (c *collection[T]) update(fn func([]T) []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := fn(c.load())
	c.items.Store(&next)
}

func (c *collection[T]) apply(kind event.Kind, payload json.RawMessage) error {
	switch kind {
	case event.KindData:
		var items []T
		if err := json.Unmarshal(payload, &items); err != nil {
			return err
		}
		if items == nil {
			items = []T{}
		}
		c.update(func([]T) []T { return items })
	case event.KindCreated, event.KindUpdated:
		var item T
		if err := json.Unmarshal(payload, &item); err != nil {
			return err
		}
		if kind == event.KindCreated {
			c.update(func(old []T) []T { return ApplyCreated(old, item) })
		} else {
			c.update(func(old []T) []T { return ApplyUpdated(old, item) })
		}
	case event.KindDeleted:
		var id event.IDPayload
		if err := json.Unmarshal(payload, &id); err != nil {
			return err
		}
		c.update(func(old []T) []T { return ApplyDeleted(old, id.ID) })
	}
	return nil
}

// Cache holds the client copy of every collection. Readers always see a
// complete collection; each change publishes a new slice.
type Cache struct {
	projects collection[domain.Project]
	tasks    collection[domain.Task]
	comments collection[domain.Comment]
}

func NewCache() *Cache {
	return &Cache{}
}

func (c *Cache) Projects() []domain.Project { return c.projects.snapshot() }
func (c *Cache) Tasks() []domain.Task       { return c.tasks.snapshot() }
func (c *Cache) Comments() []domain.Comment { return c.comments.snapshot() }

// Handle reconciles one server message. Control messages and unknown types
// leave the cache untouched.
func (c *Cache) Handle(env event.Envelope) {
	if !event.Known(env.Type) {
		log.Debug().Str("type", env.Type).Msg("ignoring unknown message type")
		return
	}
	err := c.Apply(env)
	if err != nil {
		log.Warn().Err(err).Str("type", env.Type).Msg("ignoring server message")
	}
}

// Apply is Handle with the decode error returned.
func (c *Cache) Apply(env event.Envelope) error {
	r, kind, ok := event.ParseType(env.Type)
	if !ok || kind == event.KindFetch {
		return nil
	}

	var err error
	switch r {
	case event.ResourceProject:
		err = c.projects.apply(kind, env.Payload)
	case event.ResourceTask:
		err = c.tasks.apply(kind, env.Payload)
	case event.ResourceComment:
		err = c.comments.apply(kind, env.Payload)
	}
	if err != nil {
		return fmt.Errorf("client.Cache.Apply: %s: %w", env.Type, err)
	}
	return nil
}
