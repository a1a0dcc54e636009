package models

import "time"

// Task status columns.
const (
	StatusTodo       = "Todo"
	StatusInProgress = "In Progress"
	StatusDone       = "Done"
)

// Task priorities.
const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

// ValidStatus reports whether s is one of the board columns.
func ValidStatus(s string) bool {
	return s == StatusTodo || s == StatusInProgress || s == StatusDone
}

// ValidPriority reports whether p is a known priority.
func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// UserRef is the read-side shape of an assignee embedded in task payloads.
type UserRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Task is a board card. Version implements optimistic concurrency: it starts
// at 1 and every accepted mutation increments it by exactly 1. A writer must
// present the version it last read; a mismatch is a conflict, not an error.
type Task struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Status         string    `json:"status"`
	Priority       string    `json:"priority"`
	AssignedUserID string    `json:"-"`
	AssignedUser   *UserRef  `json:"assignedUser"`
	Version        int       `json:"version"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// TaskPatch is a partial task update. Nil fields were omitted by the client
// and leave the stored value unchanged. AssignedUser present but empty clears
// the assignment; this is why presence must be distinguishable from zero.
type TaskPatch struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	Status       *string `json:"status"`
	Priority     *string `json:"priority"`
	AssignedUser *string `json:"assignedUser"`
}
