package board

import (
	"errors"
	"fmt"

	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/internal/models"
)

// Validation failures surfaced to the client with a specific message.
var (
	ErrEmptyTitle       = errors.New("Task title must not be empty.")
	ErrReservedTitle    = errors.New("Task title cannot be a column name.")
	ErrDuplicateTitle   = errors.New("Task title must be unique.")
	ErrInvalidStatus    = errors.New("Invalid task status.")
	ErrInvalidPriority  = errors.New("Invalid task priority.")
	ErrNoUsersAvailable = errors.New("No users available")
)

// AttemptedState is the client's rejected mutation: the fields it tried to
// apply and the version it believed the task was at.
type AttemptedState struct {
	TaskID  string `json:"taskId"`
	Version int    `json:"version"`
	models.TaskPatch
}

// ConflictError is returned when a mutation carries a stale version. It holds
// both sides so the client can offer a resolution choice instead of a bare
// error message.
type ConflictError struct {
	TaskID         string         `json:"taskId"`
	ServerState    models.Task    `json:"serverState"`
	AttemptedState AttemptedState `json:"attemptedState"`
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on task %s: server at version %d, client at version %d",
		e.TaskID, e.ServerState.Version, e.AttemptedState.Version)
}
