package hub

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/internal/bus"
)

func addSession(h *Hub, userID string, buffer int) *Session {
	s := &Session{hub: h, userID: userID, send: make(chan []byte, buffer)}
	h.add(s)
	return s
}

func recv(t *testing.T, s *Session) map[string]interface{} {
	t.Helper()
	select {
	case frame := <-s.send:
		var out map[string]interface{}
		require.NoError(t, json.Unmarshal(frame, &out))
		return out
	default:
		t.Fatal("expected a frame")
		return nil
	}
}

func TestPublishBroadcastReachesEverySession(t *testing.T) {
	h := New()
	a1 := addSession(h, "alice", 4)
	a2 := addSession(h, "alice", 4)
	b1 := addSession(h, "bob", 4)

	h.Publish(context.Background(), bus.Broadcast(bus.TaskUpdated, map[string]string{"id": "t1"}))

	for _, s := range []*Session{a1, a2, b1} {
		frame := recv(t, s)
		assert.Equal(t, "task:updated", frame["event"])
	}
}

func TestPublishTargetedReachesOnlyThatUser(t *testing.T) {
	h := New()
	a1 := addSession(h, "alice", 4)
	a2 := addSession(h, "alice", 4)
	b1 := addSession(h, "bob", 4)

	h.Publish(context.Background(), bus.To("alice", bus.TaskConflict, map[string]string{"taskId": "t1"}))

	for _, s := range []*Session{a1, a2} {
		frame := recv(t, s)
		assert.Equal(t, "task:conflict", frame["event"])
	}
	assert.Empty(t, b1.send)
}

func TestPublishDropsSlowSession(t *testing.T) {
	h := New()
	slow := addSession(h, "alice", 1)
	ok := addSession(h, "bob", 4)

	// Fill the slow session's buffer, then publish twice more.
	h.Publish(context.Background(), bus.Broadcast(bus.LogNew, "one"))
	h.Publish(context.Background(), bus.Broadcast(bus.LogNew, "two"))

	assert.Equal(t, 1, h.Len())
	assert.Len(t, ok.send, 2)

	// Dropped session's channel is closed.
	<-slow.send
	_, open := <-slow.send
	assert.False(t, open)
}

func TestFrameShape(t *testing.T) {
	h := New()
	s := addSession(h, "alice", 1)

	h.Publish(context.Background(), bus.Broadcast(bus.TaskDeleted, map[string]string{"taskId": "t9"}))

	frame := recv(t, s)
	assert.Equal(t, "task:deleted", frame["event"])
	data, ok := frame["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "t9", data["taskId"])
}
