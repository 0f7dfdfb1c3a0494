// Package localcache keeps a user's tasks, goals, settings and statistics as
// JSON documents in an embedded SQLite file. It is the offline stand-in for
// the remote API.
package localcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"goaltracker/internal/models"
	"goaltracker/internal/store"
)

const (
	keyTasks      = "tasks"
	keyGoals      = "goals"
	keySettings   = "settings"
	keyStatistics = "statistics"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);
`

// Cache implements store.Store over a local document table.
type Cache struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

var _ store.Store = (*Cache)(nil)

// Open opens or creates the cache at path. Use ":memory:" for a throwaway
// cache.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open local cache %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create local cache schema: %w", err)
	}

	c := &Cache{db: db, now: time.Now}
	if err := c.initialize(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Ping checks the underlying database.
func (c *Cache) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// initialize writes empty documents for any key that does not exist yet.
func (c *Cache) initialize(ctx context.Context) error {
	defaults := map[string]any{
		keyTasks:      []models.Task{},
		keyGoals:      []models.Goal{},
		keySettings:   models.DefaultSettings(),
		keyStatistics: models.Statistics{},
	}
	for key, value := range defaults {
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encode default %s: %w", key, err)
		}
		_, err = c.db.ExecContext(ctx, `
			INSERT OR IGNORE INTO documents (key, value, updated_at) VALUES (?, ?, ?)
		`, key, string(raw), c.now().UTC())
		if err != nil {
			return fmt.Errorf("initialize %s: %w", key, err)
		}
	}
	return nil
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (c *Cache) read(ctx context.Context, q querier, key string, dst any) error {
	var raw string
	err := q.QueryRowContext(ctx, `SELECT value FROM documents WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (c *Cache) write(ctx context.Context, q querier, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO documents (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, string(raw), c.now().UTC())
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// update runs fn under the cache lock inside one transaction.
func (c *Cache) update(ctx context.Context, fn func(tx *sql.Tx) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

func (c *Cache) view(ctx context.Context, key string, dst any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.read(ctx, c.db, key, dst)
}

func (c *Cache) bump(ctx context.Context, q querier, apply func(*models.Statistics)) error {
	var stats models.Statistics
	if err := c.read(ctx, q, keyStatistics, &stats); err != nil {
		return err
	}
	apply(&stats)
	return c.write(ctx, q, keyStatistics, stats)
}

// ListTasks returns the cached tasks ordered by priority, then newest first.
func (c *Cache) ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	var all []models.Task
	if err := c.view(ctx, keyTasks, &all); err != nil {
		return nil, err
	}
	tasks := []models.Task{}
	for i := range all {
		if filter.Match(&all[i]) {
			tasks = append(tasks, all[i])
		}
	}
	store.SortTasks(tasks)
	return tasks, nil
}

// GetTask returns one cached task.
func (c *Cache) GetTask(ctx context.Context, id string) (*models.Task, error) {
	var all []models.Task
	if err := c.view(ctx, keyTasks, &all); err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			return &all[i], nil
		}
	}
	return nil, &models.NotFoundError{Kind: "task", ID: id}
}

// CreateTask appends a task and counts it in the statistics document.
func (c *Cache) CreateTask(ctx context.Context, task *models.Task) (*models.Task, error) {
	t := *task
	now := c.now()
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
	if err := t.Validate(); err != nil {
		return nil, err
	}

	err := c.update(ctx, func(tx *sql.Tx) error {
		var all []models.Task
		if err := c.read(ctx, tx, keyTasks, &all); err != nil {
			return err
		}
		for i := range all {
			if all[i].ID == t.ID {
				return &models.ConflictError{Msg: fmt.Sprintf("task %s already exists", t.ID)}
			}
		}
		if err := c.write(ctx, tx, keyTasks, append(all, t)); err != nil {
			return err
		}
		return c.bump(ctx, tx, func(s *models.Statistics) { s.TotalTasksCreated++ })
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTask merges patch into a cached task.
func (c *Cache) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (*models.Task, error) {
	if patch.IsEmpty() {
		return nil, models.NewValidationError("no updatable fields provided")
	}

	var updated models.Task
	err := c.update(ctx, func(tx *sql.Tx) error {
		var all []models.Task
		if err := c.read(ctx, tx, keyTasks, &all); err != nil {
			return err
		}
		for i := range all {
			if all[i].ID != id {
				continue
			}
			t := all[i]
			patch.Apply(&t, c.now())
			if err := t.Validate(); err != nil {
				return err
			}
			all[i] = t
			updated = t
			return c.write(ctx, tx, keyTasks, all)
		}
		return &models.NotFoundError{Kind: "task", ID: id}
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteTask removes a cached task.
func (c *Cache) DeleteTask(ctx context.Context, id string) error {
	return c.update(ctx, func(tx *sql.Tx) error {
		var all []models.Task
		if err := c.read(ctx, tx, keyTasks, &all); err != nil {
			return err
		}
		for i := range all {
			if all[i].ID == id {
				return c.write(ctx, tx, keyTasks, append(all[:i], all[i+1:]...))
			}
		}
		return &models.NotFoundError{Kind: "task", ID: id}
	})
}
