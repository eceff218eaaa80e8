package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/tasklive/internal/event"
	"github.com/gosuda/tasklive/internal/realtime"
)

// Greeting is the message text of the connected frame sent on open.
const Greeting = "Connected to server"

const replyTimeout = 10 * time.Second

// Snapshotter returns the full collection of one resource.
// *tracker.Service satisfies this interface.
type Snapshotter interface {
	Snapshot(ctx context.Context, r event.Resource) (any, error)
}

// Registrar tracks the open connections that receive change events.
// *realtime.Registry satisfies this interface.
type Registrar interface {
	Register(c realtime.Conn)
	Unregister(c realtime.Conn)
}

// Hub accepts push-channel connections, registers them for change events and
// answers their fetch and ping requests.
type Hub struct {
	conns  Registrar
	snap   Snapshotter
	accept *websocket.AcceptOptions
}

// NewHub creates a hub. originPatterns is passed to the WebSocket origin
// check; nil accepts same-origin requests only.
func NewHub(conns Registrar, snap Snapshotter, originPatterns []string) *Hub {
	return &Hub{
		conns:  conns,
		snap:   snap,
		accept: &websocket.AcceptOptions{OriginPatterns: originPatterns},
	}
}

// conn adapts a websocket connection to realtime.Conn.
type conn struct {
	id   string
	ws   *websocket.Conn
	open atomic.Bool
}

func (c *conn) ID() string { return c.id }

func (c *conn) Open() bool { return c.open.Load() }

func (c *conn) Send(ctx context.Context, data []byte) error {
	return c.ws.Write(ctx, websocket.MessageText, data)
}

func (c *conn) reply(ctx context.Context, msg event.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()
	return c.Send(ctx, data)
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// The connection outlives the server's request timeouts.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	wsConn, err := websocket.Accept(w, r, h.accept)
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer wsConn.CloseNow()

	c := &conn{id: uuid.NewString(), ws: wsConn}
	c.open.Store(true)
	h.conns.Register(c)
	defer func() {
		c.open.Store(false)
		h.conns.Unregister(c)
	}()

	ctx := r.Context()
	err = c.reply(ctx, event.Message{Type: event.TypeConnected, Message: Greeting})
	if err != nil {
		log.Debug().Err(err).Str("conn_id", c.id).Msg("websocket greeting")
		return
	}

	for {
		typ, data, err := wsConn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				log.Debug().Str("conn_id", c.id).Msg("websocket closed")
			} else {
				log.Debug().Err(err).Str("conn_id", c.id).Msg("websocket read")
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		err = h.handle(ctx, c, data)
		if err != nil {
			log.Debug().Err(err).Str("conn_id", c.id).Msg("websocket write")
			return
		}
	}
}

// handle answers one client frame. Only write failures are returned; bad
// frames are logged and ignored.
func (h *Hub) handle(ctx context.Context, c *conn, data []byte) error {
	env, err := event.Decode(data)
	if err != nil {
		log.Warn().Err(err).Str("conn_id", c.id).Msg("ignoring malformed message")
		return nil
	}

	if env.Type == event.TypePing {
		return c.reply(ctx, event.Message{Type: event.TypePong})
	}

	r, kind, ok := event.ParseType(env.Type)
	if !ok || kind != event.KindFetch {
		log.Debug().Str("conn_id", c.id).Str("type", env.Type).Msg("ignoring message type")
		return nil
	}

	snapshot, err := h.snap.Snapshot(ctx, r)
	if err != nil {
		log.Error().Err(err).Str("conn_id", c.id).Str("resource", string(r)).Msg("snapshot")
		return nil
	}

	return c.reply(ctx, event.Message{Type: event.DataType(r), Payload: snapshot})
}
