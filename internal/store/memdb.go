package store

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-memdb"

	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/internal/models"
)

// MemDB is an in-memory Store used by tests and local development. go-memdb
// serializes write transactions, which gives UpdateTask its atomic
// compare-and-swap for free.
type MemDB struct {
	db *memdb.MemDB
}

// NewMemDB returns an empty in-memory store.
func NewMemDB() (*MemDB, error) {
	schema := &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			"tasks": {
				Name: "tasks",
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					"title": {
						Name:    "title",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Title", Lowercase: true},
					},
				},
			},
			"users": {
				Name: "users",
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					"username": {
						Name:    "username",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Username", Lowercase: true},
					},
				},
			},
			"logs": {
				Name: "logs",
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
				},
			},
		},
	}

	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, err
	}
	return &MemDB{db: db}, nil
}

func (s *MemDB) Ping(ctx context.Context) error { return nil }

func (s *MemDB) Close() error { return nil }

// resolve fills the read-side assignee on a copy of the stored task.
func (s *MemDB) resolve(txn *memdb.Txn, t *models.Task) *models.Task {
	out := *t
	out.AssignedUser = nil
	if out.AssignedUserID != "" {
		if raw, _ := txn.First("users", "id", out.AssignedUserID); raw != nil {
			u := raw.(*models.User)
			out.AssignedUser = u.Ref()
		}
	}
	return &out
}

func (s *MemDB) Tasks(ctx context.Context) ([]models.Task, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()
	it, err := txn.Get("tasks", "id")
	if err != nil {
		return nil, err
	}
	var tasks []models.Task
	for raw := it.Next(); raw != nil; raw = it.Next() {
		tasks = append(tasks, *s.resolve(txn, raw.(*models.Task)))
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks, nil
}

func (s *MemDB) Task(ctx context.Context, id string) (*models.Task, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()
	raw, err := txn.First("tasks", "id", id)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrNotFound
	}
	return s.resolve(txn, raw.(*models.Task)), nil
}

func (s *MemDB) TaskByTitle(ctx context.Context, title string) (*models.Task, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()
	raw, err := txn.First("tasks", "title", strings.ToLower(title))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrNotFound
	}
	return s.resolve(txn, raw.(*models.Task)), nil
}

func (s *MemDB) CreateTask(ctx context.Context, t *models.Task) error {
	txn := s.db.Txn(true)
	defer txn.Abort()
	if raw, err := txn.First("tasks", "title", strings.ToLower(t.Title)); err != nil {
		return err
	} else if raw != nil {
		return ErrDuplicate
	}
	stored := *t
	stored.AssignedUser = nil
	if err := txn.Insert("tasks", &stored); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func (s *MemDB) UpdateTask(ctx context.Context, t *models.Task, expectedVersion int) error {
	txn := s.db.Txn(true)
	defer txn.Abort()
	raw, err := txn.First("tasks", "id", t.ID)
	if err != nil {
		return err
	}
	if raw == nil {
		return ErrNotFound
	}
	current := raw.(*models.Task)
	if current.Version != expectedVersion {
		return ErrVersionMismatch
	}
	// memdb does not reject colliding unique index values on its own.
	if other, err := txn.First("tasks", "title", strings.ToLower(t.Title)); err != nil {
		return err
	} else if other != nil && other.(*models.Task).ID != t.ID {
		return ErrDuplicate
	}
	stored := *t
	stored.AssignedUser = nil
	stored.Version = expectedVersion + 1
	stored.UpdatedAt = time.Now().UTC()
	if err := txn.Insert("tasks", &stored); err != nil {
		return err
	}
	txn.Commit()
	t.Version = stored.Version
	t.UpdatedAt = stored.UpdatedAt
	return nil
}

func (s *MemDB) DeleteTask(ctx context.Context, id string) error {
	txn := s.db.Txn(true)
	defer txn.Abort()
	raw, err := txn.First("tasks", "id", id)
	if err != nil {
		return err
	}
	if raw == nil {
		return ErrNotFound
	}
	if err := txn.Delete("tasks", raw); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func (s *MemDB) Users(ctx context.Context) ([]models.User, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()
	it, err := txn.Get("users", "id")
	if err != nil {
		return nil, err
	}
	var users []models.User
	for raw := it.Next(); raw != nil; raw = it.Next() {
		users = append(users, *raw.(*models.User))
	}
	sort.SliceStable(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (s *MemDB) User(ctx context.Context, id string) (*models.User, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()
	raw, err := txn.First("users", "id", id)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrNotFound
	}
	u := *raw.(*models.User)
	return &u, nil
}

func (s *MemDB) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()
	raw, err := txn.First("users", "username", strings.ToLower(username))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrNotFound
	}
	u := *raw.(*models.User)
	return &u, nil
}

func (s *MemDB) CreateUser(ctx context.Context, u *models.User) error {
	txn := s.db.Txn(true)
	defer txn.Abort()
	if raw, err := txn.First("users", "username", strings.ToLower(u.Username)); err != nil {
		return err
	} else if raw != nil {
		return ErrDuplicate
	}
	stored := *u
	if err := txn.Insert("users", &stored); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func (s *MemDB) AppendLog(ctx context.Context, e *models.ActivityLog) error {
	txn := s.db.Txn(true)
	defer txn.Abort()
	stored := *e
	if err := txn.Insert("logs", &stored); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func (s *MemDB) RecentLogs(ctx context.Context, limit int) ([]models.ActivityLog, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()
	it, err := txn.Get("logs", "id")
	if err != nil {
		return nil, err
	}
	var logs []models.ActivityLog
	for raw := it.Next(); raw != nil; raw = it.Next() {
		logs = append(logs, *raw.(*models.ActivityLog))
	}
	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].CreatedAt.After(logs[j].CreatedAt)
	})
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}
