package tracker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"goaltracker/internal/models"
	"goaltracker/internal/store"
)

// GoalStore is the session's view of the goal list. Progress is derived from
// the TaskStore's current tasks on every load.
type GoalStore struct {
	backend store.Store
	tasks   *TaskStore
	opts    Options

	loadMu sync.Mutex

	mu    sync.RWMutex
	goals []models.Goal
}

func NewGoalStore(backend store.Store, tasks *TaskStore, opts Options) *GoalStore {
	return &GoalStore{
		backend: backend,
		tasks:   tasks,
		opts:    opts.withDefaults(),
	}
}

// Load fetches goals, recomputes progress from the task list for every goal
// that is not completed, persists the goals whose progress changed and
// completes active goals that reached 100. Completed goals keep the progress
// they were completed with.
func (g *GoalStore) Load(ctx context.Context) ([]models.Goal, error) {
	g.loadMu.Lock()
	defer g.loadMu.Unlock()

	goals, err := g.backend.ListGoals(ctx)
	if err != nil {
		return nil, err
	}

	tasks := g.tasks.Tasks()
	now := g.opts.Now()
	completed := 0

	for i := range goals {
		goal := &goals[i]
		var patch models.GoalPatch

		if goal.Status != models.GoalCompleted {
			if p := models.Progress(goal.ID, tasks); p != goal.Progress {
				patch.Progress = models.Ptr(p)
			}
		}
		progress := goal.Progress
		if patch.Progress != nil {
			progress = *patch.Progress
		}
		if progress == 100 && goal.Status == models.GoalActive {
			patch.Status = models.Ptr(models.GoalCompleted)
			patch.CompletedAt = models.SetTo(now)
			completed++
		}
		if patch.IsEmpty() {
			continue
		}

		updated, err := g.backend.UpdateGoal(ctx, goal.ID, patch)
		if err != nil {
			return nil, fmt.Errorf("refresh goal %s: %w", goal.ID, err)
		}
		*goal = *updated
		if patch.Status != nil {
			g.opts.Logger.Infow("goal completed", "goal", goal.ID, "title", goal.Title)
		}
	}

	for i := 0; i < completed; i++ {
		if err := g.recordCompletion(ctx); err != nil {
			return nil, err
		}
	}

	store.SortGoals(goals)
	g.mu.Lock()
	g.goals = goals
	g.mu.Unlock()
	return clone(goals), nil
}

func (g *GoalStore) recordCompletion(ctx context.Context) error {
	stats, err := g.backend.GetStatistics(ctx)
	if err != nil {
		return err
	}
	if _, err := g.backend.UpdateStatistics(ctx, stats.GoalCompleted()); err != nil {
		return err
	}
	g.opts.Metrics.GoalCompleted()
	return nil
}

// Goals returns a copy of the current list.
func (g *GoalStore) Goals() []models.Goal {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return clone(g.goals)
}

// Get returns one goal from the current list.
func (g *GoalStore) Get(id string) (*models.Goal, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for i := range g.goals {
		if g.goals[i].ID == id {
			goal := g.goals[i]
			return &goal, nil
		}
	}
	return nil, &models.NotFoundError{Kind: "goal", ID: id}
}

// Create validates and stores a new goal.
func (g *GoalStore) Create(ctx context.Context, draft models.Goal) (*models.Goal, error) {
	now := g.opts.Now()

	goal := draft
	goal.Title = strings.TrimSpace(goal.Title)
	goal.Description = strings.TrimSpace(goal.Description)
	if goal.ID == "" {
		goal.ID = g.opts.NewID()
	}
	goal.CreatedAt = now
	goal.UpdatedAt = now
	goal.Progress = 0
	goal.CompletedAt = nil
	goal.ApplyDefaults()
	if goal.Status == models.GoalCompleted {
		goal.CompletedAt = &now
	}
	if err := goal.Validate(); err != nil {
		return nil, err
	}

	created, err := g.backend.CreateGoal(ctx, &goal)
	if err != nil {
		return nil, err
	}
	if _, err := g.Load(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

// Update merges patch into goal id. Moving into completed stamps completedAt
// and records the completion once; moving out of it clears the stamp.
func (g *GoalStore) Update(ctx context.Context, id string, patch models.GoalPatch) (*models.Goal, error) {
	if patch.IsEmpty() {
		return nil, models.NewValidationError("no updatable fields provided")
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, models.NewValidationError("title is required")
		}
		patch.Title = &title
	}

	current, err := g.backend.GetGoal(ctx, id)
	if err != nil {
		return nil, err
	}
	now := g.opts.Now()

	completing := patch.Status != nil && *patch.Status == models.GoalCompleted && current.Status != models.GoalCompleted
	reopening := patch.Status != nil && *patch.Status != models.GoalCompleted && current.Status == models.GoalCompleted
	if completing && !patch.CompletedAt.Set {
		patch.CompletedAt = models.SetTo(now)
	}
	if reopening && !patch.CompletedAt.Set {
		patch.CompletedAt = models.Clear[time.Time]()
	}

	merged := *current
	patch.Apply(&merged, now)
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	updated, err := g.backend.UpdateGoal(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if completing {
		if err := g.recordCompletion(ctx); err != nil {
			return nil, err
		}
	}

	if _, err := g.Load(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}

// Complete marks a goal completed at full progress.
func (g *GoalStore) Complete(ctx context.Context, id string) (*models.Goal, error) {
	return g.Update(ctx, id, models.GoalPatch{
		Status:   models.Ptr(models.GoalCompleted),
		Progress: models.Ptr(100),
	})
}

func (g *GoalStore) Pause(ctx context.Context, id string) (*models.Goal, error) {
	return g.Update(ctx, id, models.GoalPatch{Status: models.Ptr(models.GoalPaused)})
}

func (g *GoalStore) Resume(ctx context.Context, id string) (*models.Goal, error) {
	return g.Update(ctx, id, models.GoalPatch{Status: models.Ptr(models.GoalActive)})
}

func (g *GoalStore) Archive(ctx context.Context, id string) (*models.Goal, error) {
	return g.Update(ctx, id, models.GoalPatch{Status: models.Ptr(models.GoalArchived)})
}

// Delete removes goal id after unlinking every task that referenced it. The
// tasks themselves are kept.
func (g *GoalStore) Delete(ctx context.Context, id string) error {
	if _, err := g.backend.GetGoal(ctx, id); err != nil {
		return err
	}

	linked, err := g.backend.ListTasks(ctx, models.TaskFilter{GoalID: id})
	if err != nil {
		return err
	}
	for _, t := range linked {
		if _, err := g.backend.UpdateTask(ctx, t.ID, models.TaskPatch{GoalID: models.Clear[string]()}); err != nil {
			return fmt.Errorf("unlink task %s: %w", t.ID, err)
		}
	}

	if err := g.backend.DeleteGoal(ctx, id); err != nil {
		return err
	}

	if _, err := g.tasks.Load(ctx); err != nil {
		return err
	}
	_, err = g.Load(ctx)
	return err
}
