// Package event defines the push-channel wire format shared by the server
// hub and the client connection manager.
//
// Server to client:
//
//	{"type":"connected","message":"..."}
//	{"type":"projects:data","payload":[...]}
//	{"type":"task:created","payload":{...}}
//	{"type":"task:deleted","payload":{"id":7}}
//	{"type":"pong"}
//
// Client to server:
//
//	{"type":"projects:fetch"}
//	{"type":"ping"}
package event

import (
	"encoding/json"
	"strings"
)

type Resource string

const (
	ResourceProject Resource = "project"
	ResourceTask    Resource = "task"
	ResourceComment Resource = "comment"
)

// Resources lists every resource in a stable order.
var Resources = []Resource{ResourceProject, ResourceTask, ResourceComment} //nolint:gochecknoglobals // fixed enum

func (r Resource) Valid() bool {
	switch r {
	case ResourceProject, ResourceTask, ResourceComment:
		return true
	default:
		return false
	}
}

// Plural is the collection name used in fetch and data message types.
func (r Resource) Plural() string { return string(r) + "s" }

// ParseResource accepts the singular or plural resource name.
func ParseResource(s string) (Resource, bool) {
	r := Resource(strings.TrimSuffix(s, "s"))
	if !r.Valid() {
		return "", false
	}
	return r, true
}

type Op string

const (
	OpCreated Op = "created"
	OpUpdated Op = "updated"
	OpDeleted Op = "deleted"
)

func (o Op) Valid() bool {
	return o == OpCreated || o == OpUpdated || o == OpDeleted
}

// Control message types.
const (
	TypeConnected = "connected"
	TypePing      = "ping"
	TypePong      = "pong"
)

const (
	suffixFetch = "fetch"
	suffixData  = "data"
)

// FetchType is the client request for a full snapshot, e.g. "projects:fetch".
func FetchType(r Resource) string { return r.Plural() + ":" + suffixFetch }

// DataType is the snapshot reply, e.g. "projects:data".
func DataType(r Resource) string { return r.Plural() + ":" + suffixData }

// Kind classifies a resource-scoped message type.
type Kind string

const (
	KindFetch   Kind = suffixFetch
	KindData    Kind = suffixData
	KindCreated Kind = Kind(OpCreated)
	KindUpdated Kind = Kind(OpUpdated)
	KindDeleted Kind = Kind(OpDeleted)
)

// ParseType splits "<resource>:<kind>". Control types and unknown shapes
// report ok=false.
func ParseType(t string) (r Resource, k Kind, ok bool) {
	name, suffix, found := strings.Cut(t, ":")
	if !found {
		return "", "", false
	}
	r, ok = ParseResource(name)
	if !ok {
		return "", "", false
	}
	switch k = Kind(suffix); k {
	case KindFetch, KindData, KindCreated, KindUpdated, KindDeleted:
		return r, k, true
	default:
		return "", "", false
	}
}

// Known reports whether t is a control type or a resource-scoped type.
func Known(t string) bool {
	switch t {
	case TypeConnected, TypePing, TypePong:
		return true
	}
	_, _, ok := ParseType(t)
	return ok
}

// Message is the JSON envelope written to the push channel.
type Message struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// Envelope is the decoded form of a received Message; the payload is kept raw
// until the receiver knows its shape.
type Envelope struct {
	Type    string          `json:"type"`
	Message string          `json:"message,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Decode parses one push-channel frame.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// IDPayload is the identity-only payload carried by deleted events.
type IDPayload struct {
	ID int64 `json:"id"`
}

// ChangeEvent describes one create, update or delete of one resource.
type ChangeEvent struct {
	Resource Resource
	Op       Op
	Payload  any
}

func Created(r Resource, record any) ChangeEvent {
	return ChangeEvent{Resource: r, Op: OpCreated, Payload: record}
}

func Updated(r Resource, record any) ChangeEvent {
	return ChangeEvent{Resource: r, Op: OpUpdated, Payload: record}
}

// Deleted carries only the identity, never the prior record.
func Deleted(r Resource, id int64) ChangeEvent {
	return ChangeEvent{Resource: r, Op: OpDeleted, Payload: IDPayload{ID: id}}
}

// Type returns the wire type, e.g. "task:created".
func (e ChangeEvent) Type() string { return string(e.Resource) + ":" + string(e.Op) }

func (e ChangeEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(Message{Type: e.Type(), Payload: e.Payload})
}
