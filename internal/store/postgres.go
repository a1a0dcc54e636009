package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/internal/models"
	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/pkg/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS users_username_idx ON users (LOWER(username));

CREATE TABLE IF NOT EXISTS tasks (
	id               TEXT PRIMARY KEY,
	title            TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL,
	priority         TEXT NOT NULL,
	assigned_user_id TEXT,
	version          INTEGER NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS tasks_title_idx ON tasks (LOWER(title));

CREATE TABLE IF NOT EXISTS activity_logs (
	id         TEXT PRIMARY KEY,
	username   TEXT NOT NULL,
	action     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS activity_logs_created_idx ON activity_logs (created_at DESC);
`

// Postgres is the production Store backed by lib/pq. The version check in
// UpdateTask rides on a single conditional UPDATE, so the read-compare-write
// sequence is atomic per task row without explicit locking.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens a connection pool, ensures the schema exists and returns
// the store.
func NewPostgres(ctx context.Context, dsn string, poolSize int) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(poolSize)
	db.SetMaxIdleConns(poolSize / 2)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info(ctx, "Postgres store initialized", "max_open", poolSize)
	return &Postgres{db: db}, nil
}

func (s *Postgres) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Postgres) Close() error { return s.db.Close() }

const taskColumns = `t.id, t.title, t.description, t.status, t.priority,
	COALESCE(t.assigned_user_id, ''), u.username, t.version, t.created_at, t.updated_at`

func scanTask(row interface{ Scan(...interface{}) error }) (*models.Task, error) {
	var t models.Task
	var username sql.NullString
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&t.AssignedUserID, &username, &t.Version, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if t.AssignedUserID != "" {
		t.AssignedUser = &models.UserRef{ID: t.AssignedUserID, Username: username.String}
	}
	return &t, nil
}

// Tasks returns all tasks newest first, with assignees resolved.
func (s *Postgres) Tasks(ctx context.Context) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks t
		 LEFT JOIN users u ON u.id = t.assigned_user_id
		 ORDER BY t.created_at DESC, t.id`)
	if err != nil {
		logger.Error(ctx, "Store list tasks failed", "error", err)
		return nil, err
	}
	defer rows.Close()
	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			logger.Error(ctx, "Store scan task failed", "error", err)
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *Postgres) Task(ctx context.Context, id string) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks t
		 LEFT JOIN users u ON u.id = t.assigned_user_id
		 WHERE t.id = $1`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

func (s *Postgres) TaskByTitle(ctx context.Context, title string) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks t
		 LEFT JOIN users u ON u.id = t.assigned_user_id
		 WHERE LOWER(t.title) = LOWER($1)`, title)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

func (s *Postgres) CreateTask(ctx context.Context, t *models.Task) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, title, description, status, priority, assigned_user_id, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9)`,
		t.ID, t.Title, t.Description, t.Status, t.Priority, t.AssignedUserID,
		t.Version, t.CreatedAt, t.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		logger.Error(ctx, "Store create task failed", "error", err, "id", t.ID)
	}
	return err
}

// UpdateTask writes t only when the stored version still equals
// expectedVersion. Zero rows affected means either the row is gone or another
// writer got there first; a follow-up existence check picks the right error.
func (s *Postgres) UpdateTask(ctx context.Context, t *models.Task, expectedVersion int) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET title = $1, description = $2, status = $3, priority = $4,
		 assigned_user_id = NULLIF($5, ''), version = $6, updated_at = $7
		 WHERE id = $8 AND version = $9`,
		t.Title, t.Description, t.Status, t.Priority, t.AssignedUserID,
		expectedVersion+1, now, t.ID, expectedVersion)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		logger.Error(ctx, "Store update task failed", "error", err, "id", t.ID)
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1)`, t.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrVersionMismatch
	}
	t.Version = expectedVersion + 1
	t.UpdatedAt = now
	return nil
}

func (s *Postgres) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		logger.Error(ctx, "Store delete task failed", "error", err, "id", id)
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Users returns users oldest first. The order is load-bearing: smart assign
// breaks count ties by listing position.
func (s *Postgres) Users(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users ORDER BY created_at, id`)
	if err != nil {
		logger.Error(ctx, "Store list users failed", "error", err)
		return nil, err
	}
	defer rows.Close()
	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Postgres) User(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Postgres) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE LOWER(username) = LOWER($1)`,
		username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Postgres) CreateUser(ctx context.Context, u *models.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		u.ID, u.Username, u.PasswordHash, u.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		logger.Error(ctx, "Store create user failed", "error", err)
	}
	return err
}

func (s *Postgres) AppendLog(ctx context.Context, e *models.ActivityLog) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activity_logs (id, username, action, created_at) VALUES ($1, $2, $3, $4)`,
		e.ID, e.User, e.Action, e.CreatedAt)
	if err != nil {
		logger.Error(ctx, "Store append log failed", "error", err)
	}
	return err
}

func (s *Postgres) RecentLogs(ctx context.Context, limit int) ([]models.ActivityLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, action, created_at FROM activity_logs
		 ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		logger.Error(ctx, "Store list logs failed", "error", err)
		return nil, err
	}
	defer rows.Close()
	var logs []models.ActivityLog
	for rows.Next() {
		var e models.ActivityLog
		if err := rows.Scan(&e.ID, &e.User, &e.Action, &e.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, e)
	}
	return logs, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
