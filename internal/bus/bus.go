// Package bus defines the event channel between the mutation path and
// connected clients. The mutation handler depends on this interface only, not
// on any concrete transport.
package bus

import "context"

// Event names pushed to clients.
const (
	TaskCreated  = "task:created"
	TaskUpdated  = "task:updated"
	TaskDeleted  = "task:deleted"
	TaskConflict = "task:conflict"
	LogNew       = "log:new"
)

// Event is a single push notification. TargetUserID empty means broadcast to
// every connected session; otherwise delivery is routed to the sessions of
// that user only. Conflicts are always routed, never broadcast, so one user's
// rejected edit is not leaked to bystanders.
type Event struct {
	Name         string      `json:"event"`
	TargetUserID string      `json:"-"`
	Payload      interface{} `json:"data"`
}

// Bus delivers events to connected sessions. Publish must not block the
// caller on slow consumers; delivery is fire and forget.
type Bus interface {
	Publish(ctx context.Context, e Event)
}

// Broadcast builds an all-sessions event.
func Broadcast(name string, payload interface{}) Event {
	return Event{Name: name, Payload: payload}
}

// To builds an event routed to a single user's sessions.
func To(userID, name string, payload interface{}) Event {
	return Event{Name: name, TargetUserID: userID, Payload: payload}
}
