package localcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"goaltracker/internal/models"
	"goaltracker/internal/store"
)

// ListGoals returns the cached goals newest first.
func (c *Cache) ListGoals(ctx context.Context) ([]models.Goal, error) {
	goals := []models.Goal{}
	if err := c.view(ctx, keyGoals, &goals); err != nil {
		return nil, err
	}
	store.SortGoals(goals)
	return goals, nil
}

// GetGoal returns one cached goal.
func (c *Cache) GetGoal(ctx context.Context, id string) (*models.Goal, error) {
	var all []models.Goal
	if err := c.view(ctx, keyGoals, &all); err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			return &all[i], nil
		}
	}
	return nil, &models.NotFoundError{Kind: "goal", ID: id}
}

// CreateGoal appends a goal and counts it in the statistics document.
func (c *Cache) CreateGoal(ctx context.Context, goal *models.Goal) (*models.Goal, error) {
	g := *goal
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = c.now()
	}
	if g.UpdatedAt.IsZero() {
		g.UpdatedAt = g.CreatedAt
	}
	g.ApplyDefaults()
	if err := g.Validate(); err != nil {
		return nil, err
	}

	err := c.update(ctx, func(tx *sql.Tx) error {
		var all []models.Goal
		if err := c.read(ctx, tx, keyGoals, &all); err != nil {
			return err
		}
		for i := range all {
			if all[i].ID == g.ID {
				return &models.ConflictError{Msg: fmt.Sprintf("goal %s already exists", g.ID)}
			}
		}
		if err := c.write(ctx, tx, keyGoals, append(all, g)); err != nil {
			return err
		}
		return c.bump(ctx, tx, func(s *models.Statistics) { s.TotalGoalsCreated++ })
	})
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// UpdateGoal merges patch into a cached goal.
func (c *Cache) UpdateGoal(ctx context.Context, id string, patch models.GoalPatch) (*models.Goal, error) {
	if patch.IsEmpty() {
		return nil, models.NewValidationError("no updatable fields provided")
	}

	var updated models.Goal
	err := c.update(ctx, func(tx *sql.Tx) error {
		var all []models.Goal
		if err := c.read(ctx, tx, keyGoals, &all); err != nil {
			return err
		}
		for i := range all {
			if all[i].ID != id {
				continue
			}
			g := all[i]
			patch.Apply(&g, c.now())
			if err := g.Validate(); err != nil {
				return err
			}
			all[i] = g
			updated = g
			return c.write(ctx, tx, keyGoals, all)
		}
		return &models.NotFoundError{Kind: "goal", ID: id}
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteGoal removes a cached goal. Linked tasks are left to the caller.
func (c *Cache) DeleteGoal(ctx context.Context, id string) error {
	return c.update(ctx, func(tx *sql.Tx) error {
		var all []models.Goal
		if err := c.read(ctx, tx, keyGoals, &all); err != nil {
			return err
		}
		for i := range all {
			if all[i].ID == id {
				return c.write(ctx, tx, keyGoals, append(all[:i], all[i+1:]...))
			}
		}
		return &models.NotFoundError{Kind: "goal", ID: id}
	})
}

// GetSettings returns the cached settings overlaid on the defaults.
func (c *Cache) GetSettings(ctx context.Context) (models.Settings, error) {
	settings := models.Settings{}
	if err := c.view(ctx, keySettings, &settings); err != nil {
		return nil, err
	}
	return settings.WithDefaults(), nil
}

// PutSetting stores one setting in the settings document.
func (c *Cache) PutSetting(ctx context.Context, key string, value any) error {
	if strings.TrimSpace(key) == "" {
		return models.NewValidationError("setting key is required")
	}
	if _, err := json.Marshal(value); err != nil {
		return models.NewValidationError("setting %s is not serializable", key)
	}

	return c.update(ctx, func(tx *sql.Tx) error {
		settings := models.Settings{}
		if err := c.read(ctx, tx, keySettings, &settings); err != nil {
			return err
		}
		settings[key] = value
		return c.write(ctx, tx, keySettings, settings)
	})
}

// GetStatistics returns the cached counters.
func (c *Cache) GetStatistics(ctx context.Context) (*models.Statistics, error) {
	var stats models.Statistics
	if err := c.view(ctx, keyStatistics, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// UpdateStatistics merges patch into the cached counters.
func (c *Cache) UpdateStatistics(ctx context.Context, patch models.StatisticsPatch) (*models.Statistics, error) {
	var stats models.Statistics
	err := c.update(ctx, func(tx *sql.Tx) error {
		return c.bump(ctx, tx, func(s *models.Statistics) {
			patch.Apply(s)
			stats = *s
		})
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// ExportAll returns every cached document as one snapshot.
func (c *Cache) ExportAll(ctx context.Context) (*models.Snapshot, error) {
	snap := &models.Snapshot{
		Tasks:      []models.Task{},
		Goals:      []models.Goal{},
		Settings:   models.Settings{},
		ExportDate: c.now(),
		Version:    models.SnapshotVersion,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	docs := []struct {
		key string
		dst any
	}{
		{keyTasks, &snap.Tasks},
		{keyGoals, &snap.Goals},
		{keySettings, &snap.Settings},
		{keyStatistics, &snap.Statistics},
	}
	for _, d := range docs {
		if err := c.read(ctx, c.db, d.key, d.dst); err != nil {
			return nil, err
		}
	}

	if snap.Statistics == nil {
		snap.Statistics = &models.Statistics{}
	}
	snap.Settings = snap.Settings.WithDefaults()
	return snap, nil
}

// ImportAll replaces all cached documents with the snapshot in one
// transaction. Statistics are kept when the snapshot carries none.
func (c *Cache) ImportAll(ctx context.Context, snapshot *models.Snapshot) error {
	tasks := make([]models.Task, 0, len(snapshot.Tasks))
	for _, t := range snapshot.Tasks {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		t.ApplyDefaults()
		if err := t.Validate(); err != nil {
			return err
		}
		tasks = append(tasks, t)
	}

	goals := make([]models.Goal, 0, len(snapshot.Goals))
	for _, g := range snapshot.Goals {
		if g.ID == "" {
			g.ID = uuid.NewString()
		}
		g.ApplyDefaults()
		if err := g.Validate(); err != nil {
			return err
		}
		goals = append(goals, g)
	}

	settings := snapshot.Settings
	if settings == nil {
		settings = models.Settings{}
	}

	return c.update(ctx, func(tx *sql.Tx) error {
		if err := c.write(ctx, tx, keyTasks, tasks); err != nil {
			return err
		}
		if err := c.write(ctx, tx, keyGoals, goals); err != nil {
			return err
		}
		if err := c.write(ctx, tx, keySettings, settings); err != nil {
			return err
		}
		if snapshot.Statistics == nil {
			return nil
		}
		return c.write(ctx, tx, keyStatistics, snapshot.Statistics)
	})
}
