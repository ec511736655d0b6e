package main

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const queryTimeout = 5 * time.Second

var (
	errRecordNotFound = errors.New("record not found")
	errDuplicateEmail = errors.New("duplicate email")
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func openDB(cfg config) (*sql.DB, error) {
	db, err := sql.Open(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		return nil, err
	}

	switch cfg.DB.Driver {
	case "sqlite":
		// a single connection keeps in-memory databases alive and serializes writers
		db.SetMaxOpenConns(1)
	default:
		db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
		db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
		db.SetConnMaxIdleTime(cfg.DB.MaxIdleTime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	err = db.PingContext(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func migrate(ctx context.Context, db *sql.DB, driver string) error {
	schema, err := migrationsFS.ReadFile("migrations/" + driver + ".sql")
	if err != nil {
		return fmt.Errorf("read schema for driver %q: %w", driver, err)
	}
	_, err = db.ExecContext(ctx, string(schema))
	if err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

type storage struct {
	db  *sql.DB
	now func() time.Time
}

func newStorage(db *sql.DB) *storage {
	return &storage{
		db: db,
		now: func() time.Time {
			// postgres keeps microseconds; truncating keeps returned rows equal to stored ones
			return time.Now().UTC().Truncate(time.Microsecond)
		},
	}
}

func (s *storage) insertUser(ctx context.Context, u *user) error {
	query := `INSERT INTO users (id, email, password_hash, name, created_at)
			  VALUES ($1, $2, $3, $4, $5)`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	id := uuid.NewString()
	createdAt := s.now()
	_, err := s.db.ExecContext(ctx, query, id, u.Email, u.PasswordHash, u.Name, createdAt)
	if err != nil {
		if isUniqueViolation(err) {
			return errDuplicateEmail
		}
		return err
	}
	u.ID = id
	u.CreatedAt = createdAt
	return nil
}

func (s *storage) getUserByEmail(ctx context.Context, email string) (*user, error) {
	query := `SELECT id, email, password_hash, name, created_at
			  FROM users
			  WHERE email = $1`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var u user
	err := s.db.QueryRowContext(ctx, query, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.CreatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, nil
		default:
			return nil, err
		}
	}
	return &u, nil
}

const taskColumns = `id, title, description, status, due_date, user_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*task, error) {
	var (
		t           task
		description sql.NullString
		dueDate     sql.NullTime
	)
	err := row.Scan(&t.ID, &t.Title, &description, &t.Status, &dueDate, &t.UserID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if description.Valid {
		t.Description = &description.String
	}
	if dueDate.Valid {
		t.DueDate = &dueDate.Time
	}
	return &t, nil
}

func (s *storage) insertTask(ctx context.Context, t *task) error {
	query := `INSERT INTO tasks (` + taskColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	id := uuid.NewString()
	now := s.now()
	_, err := s.db.ExecContext(ctx, query, id, t.Title, nullString(t.Description), string(t.Status), nullTime(t.DueDate), t.UserID, now, now)
	if err != nil {
		return err
	}
	t.ID = id
	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

// getTaskForUser returns nil when the task does not exist or belongs to someone else.
func (s *storage) getTaskForUser(ctx context.Context, id, userID string) (*task, error) {
	query := `SELECT ` + taskColumns + `
			  FROM tasks
			  WHERE id = $1 AND user_id = $2`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	t, err := scanTask(s.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, nil
		default:
			return nil, err
		}
	}
	return t, nil
}

// listTasksForUser returns the user's tasks by due date (undated last), newest first within a
// date. An empty status disables the filter.
func (s *storage) listTasksForUser(ctx context.Context, userID string, status taskStatus) ([]*task, error) {
	query := `SELECT ` + taskColumns + `
			  FROM tasks
			  WHERE user_id = $1`
	args := []any{userID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, string(status))
	}
	query += ` ORDER BY due_date ASC NULLS LAST, created_at DESC, id ASC`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []*task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *storage) updateTask(ctx context.Context, t *task) error {
	query := `UPDATE tasks SET title = $1, description = $2, status = $3, due_date = $4, updated_at = $5
			  WHERE id = $6 AND user_id = $7`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	updatedAt := s.now()
	res, err := s.db.ExecContext(ctx, query, t.Title, nullString(t.Description), string(t.Status), nullTime(t.DueDate), updatedAt, t.ID, t.UserID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errRecordNotFound
	}
	t.UpdatedAt = updatedAt
	return nil
}

func (s *storage) deleteTask(ctx context.Context, id, userID string) error {
	query := `DELETE FROM tasks
			  WHERE id = $1 AND user_id = $2`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errRecordNotFound
	}
	return nil
}

func (s *storage) insertActivity(ctx context.Context, a *activityLog) error {
	query := `INSERT INTO activity_logs (id, action, entity, entity_id, details, user_id, task_id, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	id := uuid.NewString()
	createdAt := s.now()
	_, err := s.db.ExecContext(ctx, query, id, a.Action, a.Entity, nullString(a.EntityID), nullString(a.Details), a.UserID, nullString(a.TaskID), createdAt)
	if err != nil {
		return err
	}
	a.ID = id
	a.CreatedAt = createdAt
	return nil
}

// listActivityForUser returns at most limit entries, newest first, each joined with the title of
// the task it references when that task still exists.
func (s *storage) listActivityForUser(ctx context.Context, userID string, limit int) ([]*activityLog, error) {
	query := `SELECT a.id, a.action, a.entity, a.entity_id, a.details, a.user_id, a.task_id, a.created_at, t.title
			  FROM activity_logs a
			  LEFT JOIN tasks t ON t.id = a.task_id
			  WHERE a.user_id = $1
			  ORDER BY a.created_at DESC
			  LIMIT $2`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []*activityLog{}
	for rows.Next() {
		var (
			a                         activityLog
			entityID, details, taskID sql.NullString
			taskTitle                 sql.NullString
		)
		err := rows.Scan(&a.ID, &a.Action, &a.Entity, &entityID, &details, &a.UserID, &taskID, &a.CreatedAt, &taskTitle)
		if err != nil {
			return nil, err
		}
		a.EntityID = nullStringPtr(entityID)
		a.Details = nullStringPtr(details)
		a.TaskID = nullStringPtr(taskID)
		if taskTitle.Valid {
			a.Task = &activityTask{Title: taskTitle.String}
		}
		logs = append(logs, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
