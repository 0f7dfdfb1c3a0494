package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"goaltracker/internal/models"
)

// SQLiteStore holds every user's data in one SQLite database. Use ForUser to
// get a Store scoped to a single account.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates a new SQLite store with the given database path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db, now: time.Now}
	if err := runMigrations(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ForUser returns a Store over the data owned by userID.
func (s *SQLiteStore) ForUser(userID int64) *UserStore {
	return &UserStore{db: s.db, userID: userID, now: s.now}
}

// CreateUser inserts a new account. Duplicate usernames or emails are
// reported as a ConflictError.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	if err := user.Validate(); err != nil {
		return err
	}
	user.CreatedAt = s.now().UTC()

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, email, password_hash, created_at)
		VALUES (?, ?, ?, ?)
	`, user.Username, user.Email, user.PasswordHash, user.CreatedAt)
	if err != nil {
		if isConstraint(err) {
			return &models.ConflictError{Msg: "username or email already registered"}
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	user.ID = id

	return nil
}

// EnsureDefaultUser creates the account used when authentication is optional.
func (s *SQLiteStore) EnsureDefaultUser(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO users (id, username, email, password_hash, created_at)
		VALUES (?, 'default', 'default@localhost', '', ?)
	`, models.DefaultUserID, s.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to create default user: %w", err)
	}
	return nil
}

// GetUser retrieves an account by ID.
func (s *SQLiteStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.getUser(ctx, `WHERE id = ?`, id, fmt.Sprint(id))
}

// GetUserByEmail retrieves an account by email address.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, `WHERE email = ?`, email, email)
}

func (s *SQLiteStore) getUser(ctx context.Context, where string, arg any, key string) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, created_at FROM users `+where, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &models.NotFoundError{Kind: "user", ID: key}
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// UserStore implements Store over one account's rows.
type UserStore struct {
	db     *sql.DB
	userID int64
	now    func() time.Time
}

var _ Store = (*UserStore)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Ping checks the database connection.
func (u *UserStore) Ping(ctx context.Context) error {
	return u.db.PingContext(ctx)
}

const taskColumns = `id, title, description, deadline, goal_id, status, priority,
	created_at, updated_at, completed_at, is_repeat_template, repeat_type,
	repeat_interval, repeat_end_date, parent_task_id, next_due_date`

func scanTask(sc scanner) (*models.Task, error) {
	task := &models.Task{}
	var (
		deadline, completedAt, repeatEnd, nextDue sql.NullTime
		goalID, parentID                          sql.NullString
	)

	err := sc.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&deadline,
		&goalID,
		&task.Status,
		&task.Priority,
		&task.CreatedAt,
		&task.UpdatedAt,
		&completedAt,
		&task.IsRepeatTemplate,
		&task.RepeatType,
		&task.RepeatInterval,
		&repeatEnd,
		&parentID,
		&nextDue,
	)
	if err != nil {
		return nil, err
	}

	task.Deadline = timePtr(deadline)
	task.CompletedAt = timePtr(completedAt)
	task.RepeatEndDate = timePtr(repeatEnd)
	task.NextDueDate = timePtr(nextDue)
	task.GoalID = stringPtr(goalID)
	task.ParentTemplateID = stringPtr(parentID)

	return task, nil
}

// ListTasks retrieves tasks ordered by priority, then newest first.
func (u *UserStore) ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	return u.listTasks(ctx, u.db, filter)
}

func (u *UserStore) listTasks(ctx context.Context, q querier, filter models.TaskFilter) ([]models.Task, error) {
	where := []string{"user_id = ?"}
	args := []any{u.userID}

	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Priority != "" {
		where = append(where, "priority = ?")
		args = append(args, filter.Priority)
	}
	if filter.GoalID != "" {
		where = append(where, "goal_id = ?")
		args = append(args, filter.GoalID)
	}
	if filter.IsTemplate != nil {
		where = append(where, "is_repeat_template = ?")
		args = append(args, *filter.IsTemplate)
	}
	if filter.ParentTemplateID != "" {
		where = append(where, "parent_task_id = ?")
		args = append(args, filter.ParentTemplateID)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY CASE priority WHEN 'high' THEN 1 WHEN 'medium' THEN 2 WHEN 'low' THEN 3 ELSE 4 END,
			created_at DESC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}

	return tasks, rows.Err()
}

// GetTask retrieves a task by ID.
func (u *UserStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	return u.getTask(ctx, u.db, id)
}

func (u *UserStore) getTask(ctx context.Context, q querier, id string) (*models.Task, error) {
	task, err := scanTask(q.QueryRowContext(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE user_id = ? AND id = ?
	`, u.userID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &models.NotFoundError{Kind: "task", ID: id}
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// CreateTask inserts a task and counts it in the user's statistics. Missing
// ids and timestamps are filled in.
func (u *UserStore) CreateTask(ctx context.Context, task *models.Task) (*models.Task, error) {
	t := *task
	u.prepareTask(&t)
	if err := t.Validate(); err != nil {
		return nil, err
	}

	err := withTx(ctx, u.db, func(tx *sql.Tx) error {
		if err := u.insertTask(ctx, tx, &t); err != nil {
			return err
		}
		return u.bumpCounter(ctx, tx, "total_tasks_created")
	})
	if err != nil {
		return nil, err
	}

	return &t, nil
}

func (u *UserStore) prepareTask(t *models.Task) {
	now := u.now().UTC()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	t.ApplyDefaults()
}

func (u *UserStore) insertTask(ctx context.Context, q querier, t *models.Task) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO tasks (user_id, `+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, u.userID, t.ID, t.Title, t.Description, nullTime(t.Deadline), nullString(t.GoalID),
		t.Status, t.Priority, t.CreatedAt.UTC(), t.UpdatedAt.UTC(), nullTime(t.CompletedAt),
		t.IsRepeatTemplate, t.RepeatType, t.RepeatInterval, nullTime(t.RepeatEndDate),
		nullString(t.ParentTemplateID), nullTime(t.NextDueDate))
	if err != nil {
		if isConstraint(err) {
			return &models.ConflictError{Msg: fmt.Sprintf("task %s already exists", t.ID)}
		}
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// UpdateTask merges patch into the stored task.
func (u *UserStore) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (*models.Task, error) {
	if patch.IsEmpty() {
		return nil, models.NewValidationError("no updatable fields provided")
	}

	var updated *models.Task
	err := withTx(ctx, u.db, func(tx *sql.Tx) error {
		task, err := u.getTask(ctx, tx, id)
		if err != nil {
			return err
		}

		patch.Apply(task, u.now().UTC())
		if err := task.Validate(); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE tasks
			SET title = ?, description = ?, deadline = ?, goal_id = ?, status = ?, priority = ?,
				updated_at = ?, completed_at = ?, is_repeat_template = ?, repeat_type = ?,
				repeat_interval = ?, repeat_end_date = ?, next_due_date = ?
			WHERE user_id = ? AND id = ?
		`, task.Title, task.Description, nullTime(task.Deadline), nullString(task.GoalID),
			task.Status, task.Priority, task.UpdatedAt, nullTime(task.CompletedAt),
			task.IsRepeatTemplate, task.RepeatType, task.RepeatInterval,
			nullTime(task.RepeatEndDate), nullTime(task.NextDueDate), u.userID, id)
		if err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}

		updated = task
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// DeleteTask deletes a task by ID.
func (u *UserStore) DeleteTask(ctx context.Context, id string) error {
	result, err := u.db.ExecContext(ctx, `DELETE FROM tasks WHERE user_id = ? AND id = ?`, u.userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return requireAffected(result, "task", id)
}

func (u *UserStore) bumpCounter(ctx context.Context, q querier, column string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO user_statistics (user_id, `+column+`, updated_at) VALUES (?, 1, ?)
		ON CONFLICT(user_id) DO UPDATE SET `+column+` = `+column+` + 1, updated_at = excluded.updated_at
	`, u.userID, u.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update statistics: %w", err)
	}
	return nil
}

func requireAffected(result sql.Result, kind, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return &models.NotFoundError{Kind: kind, ID: id}
	}
	return nil
}

func isConstraint(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
