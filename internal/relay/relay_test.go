package relay

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/internal/bus"
)

type captureBus struct {
	events []bus.Event
}

func (b *captureBus) Publish(ctx context.Context, e bus.Event) {
	b.events = append(b.events, e)
}

func TestPublishWithoutBrokersStaysLocal(t *testing.T) {
	local := &captureBus{}
	r := New(local, nil, "board-events", 4, "node-a")

	r.Publish(context.Background(), bus.Broadcast(bus.TaskCreated, map[string]string{"id": "t1"}))

	require.Len(t, local.events, 1)
	assert.Equal(t, bus.TaskCreated, local.events[0].Name)
}

func TestHandleSkipsOwnInstance(t *testing.T) {
	local := &captureBus{}
	r := New(local, nil, "board-events", 4, "node-a")

	value, err := json.Marshal(envelope{
		Instance: "node-a",
		Name:     bus.TaskUpdated,
		Payload:  json.RawMessage(`{"id":"t1"}`),
	})
	require.NoError(t, err)

	require.NoError(t, r.handle(context.Background(), value))
	assert.Empty(t, local.events)
}

func TestHandleDeliversRemoteEvents(t *testing.T) {
	local := &captureBus{}
	r := New(local, nil, "board-events", 4, "node-a")

	value, err := json.Marshal(envelope{
		Instance:     "node-b",
		Name:         bus.TaskConflict,
		TargetUserID: "alice",
		Payload:      json.RawMessage(`{"taskId":"t1"}`),
	})
	require.NoError(t, err)

	require.NoError(t, r.handle(context.Background(), value))
	require.Len(t, local.events, 1)
	e := local.events[0]
	assert.Equal(t, bus.TaskConflict, e.Name)
	assert.Equal(t, "alice", e.TargetUserID)

	// Routed payloads survive the round trip byte for byte.
	raw, ok := e.Payload.(json.RawMessage)
	require.True(t, ok)
	assert.JSONEq(t, `{"taskId":"t1"}`, string(raw))
}

func TestHandleRejectsGarbage(t *testing.T) {
	local := &captureBus{}
	r := New(local, nil, "board-events", 4, "node-a")

	assert.Error(t, r.handle(context.Background(), []byte("not json")))
	assert.Empty(t, local.events)
}
