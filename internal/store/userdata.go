package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"goaltracker/internal/models"
)

const goalColumns = `id, title, description, target_date, status, progress, category,
	created_at, updated_at, completed_at`

func scanGoal(sc scanner) (*models.Goal, error) {
	goal := &models.Goal{}
	var targetDate, completedAt sql.NullTime

	err := sc.Scan(
		&goal.ID,
		&goal.Title,
		&goal.Description,
		&targetDate,
		&goal.Status,
		&goal.Progress,
		&goal.Category,
		&goal.CreatedAt,
		&goal.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	goal.TargetDate = timePtr(targetDate)
	goal.CompletedAt = timePtr(completedAt)

	return goal, nil
}

// ListGoals retrieves goals newest first.
func (u *UserStore) ListGoals(ctx context.Context) ([]models.Goal, error) {
	return u.listGoals(ctx, u.db)
}

func (u *UserStore) listGoals(ctx context.Context, q querier) ([]models.Goal, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+goalColumns+` FROM goals WHERE user_id = ? ORDER BY created_at DESC
	`, u.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	defer rows.Close()

	goals := []models.Goal{}
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goals = append(goals, *goal)
	}

	return goals, rows.Err()
}

// GetGoal retrieves a goal by ID.
func (u *UserStore) GetGoal(ctx context.Context, id string) (*models.Goal, error) {
	return u.getGoal(ctx, u.db, id)
}

func (u *UserStore) getGoal(ctx context.Context, q querier, id string) (*models.Goal, error) {
	goal, err := scanGoal(q.QueryRowContext(ctx, `
		SELECT `+goalColumns+` FROM goals WHERE user_id = ? AND id = ?
	`, u.userID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &models.NotFoundError{Kind: "goal", ID: id}
		}
		return nil, fmt.Errorf("failed to get goal: %w", err)
	}
	return goal, nil
}

// CreateGoal inserts a goal and counts it in the user's statistics.
func (u *UserStore) CreateGoal(ctx context.Context, goal *models.Goal) (*models.Goal, error) {
	g := *goal
	u.prepareGoal(&g)
	if err := g.Validate(); err != nil {
		return nil, err
	}

	err := withTx(ctx, u.db, func(tx *sql.Tx) error {
		if err := u.insertGoal(ctx, tx, &g); err != nil {
			return err
		}
		return u.bumpCounter(ctx, tx, "total_goals_created")
	})
	if err != nil {
		return nil, err
	}

	return &g, nil
}

func (u *UserStore) prepareGoal(g *models.Goal) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = u.now().UTC()
	}
	if g.UpdatedAt.IsZero() {
		g.UpdatedAt = g.CreatedAt
	}
	g.ApplyDefaults()
}

func (u *UserStore) insertGoal(ctx context.Context, q querier, g *models.Goal) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO goals (user_id, `+goalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, u.userID, g.ID, g.Title, g.Description, nullTime(g.TargetDate), g.Status, g.Progress,
		g.Category, g.CreatedAt.UTC(), g.UpdatedAt.UTC(), nullTime(g.CompletedAt))
	if err != nil {
		if isConstraint(err) {
			return &models.ConflictError{Msg: fmt.Sprintf("goal %s already exists", g.ID)}
		}
		return fmt.Errorf("failed to create goal: %w", err)
	}
	return nil
}

// UpdateGoal merges patch into the stored goal.
func (u *UserStore) UpdateGoal(ctx context.Context, id string, patch models.GoalPatch) (*models.Goal, error) {
	if patch.IsEmpty() {
		return nil, models.NewValidationError("no updatable fields provided")
	}

	var updated *models.Goal
	err := withTx(ctx, u.db, func(tx *sql.Tx) error {
		goal, err := u.getGoal(ctx, tx, id)
		if err != nil {
			return err
		}

		patch.Apply(goal, u.now().UTC())
		if err := goal.Validate(); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE goals
			SET title = ?, description = ?, target_date = ?, status = ?, progress = ?,
				category = ?, updated_at = ?, completed_at = ?
			WHERE user_id = ? AND id = ?
		`, goal.Title, goal.Description, nullTime(goal.TargetDate), goal.Status, goal.Progress,
			goal.Category, goal.UpdatedAt, nullTime(goal.CompletedAt), u.userID, id)
		if err != nil {
			return fmt.Errorf("failed to update goal: %w", err)
		}

		updated = goal
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// DeleteGoal deletes a goal by ID. Linked tasks are left to the caller.
func (u *UserStore) DeleteGoal(ctx context.Context, id string) error {
	result, err := u.db.ExecContext(ctx, `DELETE FROM goals WHERE user_id = ? AND id = ?`, u.userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}
	return requireAffected(result, "goal", id)
}

// GetSettings returns the stored settings overlaid on the defaults.
func (u *UserStore) GetSettings(ctx context.Context) (models.Settings, error) {
	stored, err := u.storedSettings(ctx, u.db)
	if err != nil {
		return nil, err
	}
	return stored.WithDefaults(), nil
}

func (u *UserStore) storedSettings(ctx context.Context, q querier) (models.Settings, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT setting_key, setting_value FROM user_settings WHERE user_id = ?
	`, u.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	defer rows.Close()

	settings := models.Settings{}
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			return nil, fmt.Errorf("failed to decode setting %s: %w", key, err)
		}
		settings[key] = value
	}

	return settings, rows.Err()
}

// PutSetting stores one setting value as JSON.
func (u *UserStore) PutSetting(ctx context.Context, key string, value any) error {
	return u.putSetting(ctx, u.db, key, value)
}

func (u *UserStore) putSetting(ctx context.Context, q querier, key string, value any) error {
	if strings.TrimSpace(key) == "" {
		return models.NewValidationError("setting key is required")
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return models.NewValidationError("setting %s is not serializable", key)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO user_settings (user_id, setting_key, setting_value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, setting_key) DO UPDATE
		SET setting_value = excluded.setting_value, updated_at = excluded.updated_at
	`, u.userID, key, string(raw), u.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save setting: %w", err)
	}
	return nil
}

// GetStatistics returns the user's counters, all zero if none were recorded.
func (u *UserStore) GetStatistics(ctx context.Context) (*models.Statistics, error) {
	return u.getStatistics(ctx, u.db)
}

func (u *UserStore) getStatistics(ctx context.Context, q querier) (*models.Statistics, error) {
	stats := &models.Statistics{}
	var lastActive sql.NullTime

	err := q.QueryRowContext(ctx, `
		SELECT total_tasks_created, total_tasks_completed, total_goals_created,
			total_goals_completed, streak_days, last_active_date
		FROM user_statistics WHERE user_id = ?
	`, u.userID).Scan(
		&stats.TotalTasksCreated,
		&stats.TotalTasksCompleted,
		&stats.TotalGoalsCreated,
		&stats.TotalGoalsCompleted,
		&stats.StreakDays,
		&lastActive,
	)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get statistics: %w", err)
	}
	stats.LastActiveDate = timePtr(lastActive)

	return stats, nil
}

// UpdateStatistics merges patch into the stored counters.
func (u *UserStore) UpdateStatistics(ctx context.Context, patch models.StatisticsPatch) (*models.Statistics, error) {
	var stats *models.Statistics
	err := withTx(ctx, u.db, func(tx *sql.Tx) error {
		current, err := u.getStatistics(ctx, tx)
		if err != nil {
			return err
		}
		patch.Apply(current)
		stats = current
		return u.saveStatistics(ctx, tx, current)
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (u *UserStore) saveStatistics(ctx context.Context, q querier, s *models.Statistics) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO user_statistics (user_id, total_tasks_created, total_tasks_completed,
			total_goals_created, total_goals_completed, streak_days, last_active_date, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			total_tasks_created = excluded.total_tasks_created,
			total_tasks_completed = excluded.total_tasks_completed,
			total_goals_created = excluded.total_goals_created,
			total_goals_completed = excluded.total_goals_completed,
			streak_days = excluded.streak_days,
			last_active_date = excluded.last_active_date,
			updated_at = excluded.updated_at
	`, u.userID, s.TotalTasksCreated, s.TotalTasksCompleted, s.TotalGoalsCreated,
		s.TotalGoalsCompleted, s.StreakDays, nullTime(s.LastActiveDate), u.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save statistics: %w", err)
	}
	return nil
}

// ExportAll returns every record the user owns.
func (u *UserStore) ExportAll(ctx context.Context) (*models.Snapshot, error) {
	snap := &models.Snapshot{ExportDate: u.now().UTC(), Version: models.SnapshotVersion}

	err := withTx(ctx, u.db, func(tx *sql.Tx) error {
		var err error
		if snap.Tasks, err = u.listTasks(ctx, tx, models.TaskFilter{}); err != nil {
			return err
		}
		if snap.Goals, err = u.listGoals(ctx, tx); err != nil {
			return err
		}
		if snap.Settings, err = u.storedSettings(ctx, tx); err != nil {
			return err
		}
		stats, err := u.getStatistics(ctx, tx)
		if err != nil {
			return err
		}
		snap.Statistics = stats
		return nil
	})
	if err != nil {
		return nil, err
	}

	snap.Settings = snap.Settings.WithDefaults()
	return snap, nil
}

// ImportAll replaces the user's tasks, goals, settings and statistics with
// the snapshot in one transaction. Statistics are kept when the snapshot
// carries none.
func (u *UserStore) ImportAll(ctx context.Context, snapshot *models.Snapshot) error {
	return withTx(ctx, u.db, func(tx *sql.Tx) error {
		for _, table := range []string{"tasks", "goals", "user_settings"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE user_id = ?`, u.userID); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}

		for i := range snapshot.Goals {
			g := snapshot.Goals[i]
			u.prepareGoal(&g)
			if err := g.Validate(); err != nil {
				return err
			}
			if err := u.insertGoal(ctx, tx, &g); err != nil {
				return err
			}
		}

		for i := range snapshot.Tasks {
			t := snapshot.Tasks[i]
			u.prepareTask(&t)
			if err := t.Validate(); err != nil {
				return err
			}
			if err := u.insertTask(ctx, tx, &t); err != nil {
				return err
			}
		}

		for key, value := range snapshot.Settings {
			if err := u.putSetting(ctx, tx, key, value); err != nil {
				return err
			}
		}

		if snapshot.Statistics == nil {
			return nil
		}
		stats := *snapshot.Statistics
		return u.saveStatistics(ctx, tx, &stats)
	})
}
