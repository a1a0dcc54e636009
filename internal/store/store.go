// Package store defines the persistence boundary for the board. The only
// concurrency primitive the rest of the system relies on is the conditional
// write exposed by UpdateTask: the write commits only when the stored version
// equals the version the caller read, so two racing writers cannot both win.
package store

import (
	"context"
	"errors"

	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/internal/models"
)

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrVersionMismatch is returned by UpdateTask when the stored version
	// no longer equals the expected version.
	ErrVersionMismatch = errors.New("store: version mismatch")
	// ErrDuplicate is returned when a unique constraint would be violated.
	ErrDuplicate = errors.New("store: duplicate key")
)

// Store is the document store holding tasks, users and activity logs.
//
// Implementations must populate Task.AssignedUser on reads when the task has
// an assignee, and must keep user listing order stable across calls.
type Store interface {
	// Tasks returns all tasks, newest first.
	Tasks(ctx context.Context) ([]models.Task, error)
	Task(ctx context.Context, id string) (*models.Task, error)
	// TaskByTitle finds a task by case-insensitive exact title match.
	TaskByTitle(ctx context.Context, title string) (*models.Task, error)
	CreateTask(ctx context.Context, t *models.Task) error
	// UpdateTask persists t only if the stored version equals expectedVersion,
	// in which case it stamps t with expectedVersion+1 and a fresh UpdatedAt.
	// Returns ErrVersionMismatch otherwise without touching the stored task.
	UpdateTask(ctx context.Context, t *models.Task, expectedVersion int) error
	DeleteTask(ctx context.Context, id string) error

	// Users returns all users in stable listing order (oldest first).
	Users(ctx context.Context) ([]models.User, error)
	User(ctx context.Context, id string) (*models.User, error)
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error

	// AppendLog appends an immutable activity log entry.
	AppendLog(ctx context.Context, e *models.ActivityLog) error
	// RecentLogs returns at most limit entries, newest first.
	RecentLogs(ctx context.Context, limit int) ([]models.ActivityLog, error)

	Ping(ctx context.Context) error
	Close() error
}
