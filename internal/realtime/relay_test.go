package realtime_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/tasklive/internal/event"
	"github.com/gosuda/tasklive/internal/realtime"
	redisstore "github.com/gosuda/tasklive/internal/store/redis"
)

func newRedis(t *testing.T) (*redisstore.Topic, *miniredis.Miniredis) {
	t.Helper()

	s := miniredis.RunT(t)
	ps, err := redisstore.Open(context.Background(), redisstore.Options{Addr: s.Addr()}, realtime.RelayChannel)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ps.Close() })
	return ps, s
}

func waitSubscribers(t *testing.T, s *miniredis.Miniredis, n int) {
	t.Helper()

	require.Eventually(t, func() bool {
		return s.PubSubNumSub(realtime.RelayChannel)[realtime.RelayChannel] >= n
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRelay_DeliversToPeerInstances(t *testing.T) {
	t.Parallel()

	ps, srv := newRedis(t)

	regA, regB := realtime.NewRegistry(time.Second), realtime.NewRegistry(time.Second)
	relayA, relayB := realtime.NewRelay(regA, ps), realtime.NewRelay(regB, ps)

	clientA, clientB := newFakeConn("a"), newFakeConn("b")
	regA.Register(clientA)
	regB.Register(clientB)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = relayA.Run(ctx) }()
	go func() { _ = relayB.Run(ctx) }()

	waitSubscribers(t, srv, 2)

	relayA.FanOut(event.Created(event.ResourceProject, map[string]any{"id": 1, "name": "alpha"}))

	want := `{"type":"project:created","payload":{"id":1,"name":"alpha"}}`
	assert.JSONEq(t, want, string(recv(t, clientA)))
	assert.JSONEq(t, want, string(recv(t, clientB)))

	// The origin instance must not deliver its own event twice.
	assertNothing(t, clientA)
}

func TestRelay_DropsMalformedMessages(t *testing.T) {
	t.Parallel()

	ps, srv := newRedis(t)
	reg := realtime.NewRegistry(time.Second)
	relay := realtime.NewRelay(reg, ps)
	client := newFakeConn("a")
	reg.Register(client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = relay.Run(ctx) }()
	waitSubscribers(t, srv, 1)

	require.NoError(t, ps.Publish(ctx, []byte(`not json`)))
	require.NoError(t, ps.Publish(ctx, []byte(`{"origin":"00000000-0000-0000-0000-000000000000"}`)))

	assertNothing(t, client)
}

func TestRelay_RunStopsOnCancel(t *testing.T) {
	t.Parallel()

	ps, srv := newRedis(t)
	relay := realtime.NewRelay(realtime.NewRegistry(time.Second), ps)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	waitSubscribers(t, srv, 1)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRelay_PreservesOrderForPeers(t *testing.T) {
	t.Parallel()

	const n = 50

	ps, srv := newRedis(t)
	regA, regB := realtime.NewRegistry(time.Second), realtime.NewRegistry(time.Second)
	relayA, relayB := realtime.NewRelay(regA, ps), realtime.NewRelay(regB, ps)
	peer := newFakeConn("peer")
	regB.Register(peer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = relayA.Run(ctx) }()
	go func() { _ = relayB.Run(ctx) }()
	waitSubscribers(t, srv, 2)

	for i := range n {
		relayA.FanOut(event.Deleted(event.ResourceComment, int64(i+1)))
	}

	for i := range n {
		var msg struct {
			Payload event.IDPayload `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(recv(t, peer), &msg))
		require.Equalf(t, int64(i+1), msg.Payload.ID, "frame %d out of order", i)
	}
}
