package tracker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"goaltracker/internal/models"
	"goaltracker/internal/recurrence"
	"goaltracker/internal/store"
)

// TaskStore is the session's view of the task list. Every mutation goes to
// the backend first and is followed by a reload, so the in-memory list always
// mirrors what was persisted.
type TaskStore struct {
	backend store.Store
	opts    Options

	// guard serializes sweeps. Load waits for it; the periodic Sweep skips
	// when it is taken.
	guard *semaphore.Weighted

	mu    sync.RWMutex
	tasks []models.Task
}

// NewTaskStore creates an empty store. Call Load before reading.
func NewTaskStore(backend store.Store, opts Options) *TaskStore {
	return &TaskStore{
		backend: backend,
		opts:    opts.withDefaults(),
		guard:   semaphore.NewWeighted(1),
	}
}

// Load fetches all tasks, expires overdue ones, materializes due templates,
// persists what changed and replaces the in-memory list. It waits for a
// sweep already in progress to finish.
func (s *TaskStore) Load(ctx context.Context) ([]models.Task, error) {
	if err := s.guard.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.guard.Release(1)
	return s.refresh(ctx)
}

// Sweep runs the same cycle as Load but returns immediately, with ran set to
// false, when another sweep or load holds the guard.
func (s *TaskStore) Sweep(ctx context.Context) (ran bool, err error) {
	if !s.guard.TryAcquire(1) {
		s.opts.Metrics.SweepSkipped()
		s.opts.Logger.Debugw("sweep already running, skipping")
		return false, nil
	}
	defer s.guard.Release(1)
	_, err = s.refresh(ctx)
	return true, err
}

func (s *TaskStore) refresh(ctx context.Context) ([]models.Task, error) {
	tasks, err := s.backend.ListTasks(ctx, models.TaskFilter{})
	if err != nil {
		return nil, err
	}

	now := s.opts.Now()
	res := s.opts.Engine.Sweep(tasks, now)
	if !res.Empty() {
		if err := s.persist(ctx, res); err != nil {
			return nil, err
		}
		if tasks, err = s.backend.ListTasks(ctx, models.TaskFilter{}); err != nil {
			return nil, err
		}
		s.opts.Logger.Infow("sweep applied",
			"expired", len(res.Expired),
			"templates", len(res.Templates),
			"spawned", len(res.Spawned),
		)
	}
	s.opts.Metrics.SweepRan(len(res.Expired), len(res.Spawned))

	store.SortTasks(tasks)
	s.mu.Lock()
	s.tasks = tasks
	s.mu.Unlock()
	return clone(tasks), nil
}

// persist writes a sweep result. Instances are created before their template
// is advanced, so an interrupted sweep can only leave a template behind,
// which the next sweep recognizes by its existing instance.
func (s *TaskStore) persist(ctx context.Context, res recurrence.SweepResult) error {
	for _, t := range res.Expired {
		patch := models.TaskPatch{Status: models.Ptr(models.StatusExpired)}
		if _, err := s.backend.UpdateTask(ctx, t.ID, patch); err != nil {
			return fmt.Errorf("expire task %s: %w", t.ID, err)
		}
		s.opts.Metrics.TaskTransition(string(models.StatusExpired))
	}
	for i := range res.Spawned {
		if _, err := s.backend.CreateTask(ctx, &res.Spawned[i]); err != nil {
			return fmt.Errorf("spawn instance of %s: %w", *res.Spawned[i].ParentTemplateID, err)
		}
	}
	for _, tpl := range res.Templates {
		patch := models.TaskPatch{
			IsRepeatTemplate: models.Ptr(tpl.IsRepeatTemplate),
			NextDueDate:      models.From(tpl.NextDueDate),
		}
		if _, err := s.backend.UpdateTask(ctx, tpl.ID, patch); err != nil {
			return fmt.Errorf("advance template %s: %w", tpl.ID, err)
		}
		if !tpl.IsRepeatTemplate {
			s.opts.Logger.Infow("recurrence ended", "template", tpl.ID, "title", tpl.Title)
		}
	}
	return nil
}

// Tasks returns a copy of the current list.
func (s *TaskStore) Tasks() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.tasks)
}

// Get returns one task from the current list.
func (s *TaskStore) Get(id string) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			t := s.tasks[i]
			return &t, nil
		}
	}
	return nil, &models.NotFoundError{Kind: "task", ID: id}
}

// Instances returns the tasks spawned from template id.
func (s *TaskStore) Instances(id string) []models.Task {
	return s.filter(func(t *models.Task) bool {
		return t.ParentTemplateID != nil && *t.ParentTemplateID == id
	})
}

func (s *TaskStore) filter(keep func(*models.Task) bool) []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Task
	for i := range s.tasks {
		if keep(&s.tasks[i]) {
			out = append(out, s.tasks[i])
		}
	}
	return out
}

// Create validates and stores a new task. A repeat type other than none
// turns the task into a template whose first cycle is due at its deadline,
// or one interval from now when it has none.
func (s *TaskStore) Create(ctx context.Context, draft models.Task) (*models.Task, error) {
	now := s.opts.Now()

	t := draft
	t.Title = strings.TrimSpace(t.Title)
	t.Description = strings.TrimSpace(t.Description)
	if t.ID == "" {
		t.ID = s.opts.NewID()
	}
	t.CreatedAt = now
	t.UpdatedAt = now
	t.CompletedAt = nil
	t.ApplyDefaults()
	if t.GoalID != nil && *t.GoalID == "" {
		t.GoalID = nil
	}

	if t.RepeatType != models.RepeatNone && !t.IsInstance() {
		t.IsRepeatTemplate = true
		t.NextDueDate = firstDue(&t, now)
	} else {
		t.IsRepeatTemplate = false
		t.NextDueDate = nil
	}
	if t.Status == models.StatusCompleted {
		t.CompletedAt = &now
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}

	created, err := s.backend.CreateTask(ctx, &t)
	if err != nil {
		return nil, err
	}
	if _, err := s.Load(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

func firstDue(t *models.Task, now time.Time) *time.Time {
	if t.Deadline != nil {
		d := *t.Deadline
		return &d
	}
	return recurrence.NextDueDate(&now, t.RepeatType, t.RepeatInterval)
}

// Update merges patch into task id. Moving into completed stamps completedAt
// and records the completion in the statistics exactly once; moving out of
// completed clears the stamp. Changing the recurrence of a task that is not
// an instance promotes or demotes it as a template.
func (s *TaskStore) Update(ctx context.Context, id string, patch models.TaskPatch) (*models.Task, error) {
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

	current, err := s.backend.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.opts.Now()

	completing := patch.Status != nil && *patch.Status == models.StatusCompleted && current.Status != models.StatusCompleted
	reopening := patch.Status != nil && *patch.Status != models.StatusCompleted && current.Status == models.StatusCompleted
	if completing && !patch.CompletedAt.Set {
		patch.CompletedAt = models.SetTo(now)
	}
	if reopening && !patch.CompletedAt.Set {
		patch.CompletedAt = models.Clear[time.Time]()
	}

	s.adjustRecurrence(current, &patch, now)

	// Validate the merged result before touching the backend.
	merged := *current
	patch.Apply(&merged, now)
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	updated, err := s.backend.UpdateTask(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	if completing {
		if err := s.recordCompletion(ctx, now); err != nil {
			return nil, err
		}
	}
	if patch.Status != nil && *patch.Status != current.Status {
		s.opts.Metrics.TaskTransition(string(*patch.Status))
	}

	if _, err := s.Load(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}

// adjustRecurrence keeps isRepeatTemplate and nextDueDate consistent with a
// patch that changes the repeat rule or deadline, unless the patch sets them
// explicitly.
func (s *TaskStore) adjustRecurrence(current *models.Task, patch *models.TaskPatch, now time.Time) {
	if current.IsInstance() || patch.IsRepeatTemplate != nil || patch.NextDueDate.Set {
		return
	}
	if patch.RepeatType == nil && patch.RepeatInterval == nil && !patch.Deadline.Set {
		return
	}

	next := *current
	patch.Apply(&next, now)

	if next.RepeatType == models.RepeatNone {
		if current.IsRepeatTemplate {
			patch.IsRepeatTemplate = models.Ptr(false)
			patch.NextDueDate = models.Clear[time.Time]()
		}
		return
	}
	patch.IsRepeatTemplate = models.Ptr(true)
	patch.NextDueDate = models.From(firstDue(&next, now))
}

func (s *TaskStore) recordCompletion(ctx context.Context, now time.Time) error {
	stats, err := s.backend.GetStatistics(ctx)
	if err != nil {
		return err
	}
	_, err = s.backend.UpdateStatistics(ctx, stats.TaskCompleted(now))
	return err
}

// Complete marks a task completed.
func (s *TaskStore) Complete(ctx context.Context, id string) (*models.Task, error) {
	return s.Update(ctx, id, models.TaskPatch{Status: models.Ptr(models.StatusCompleted)})
}

// Fail marks a task failed.
func (s *TaskStore) Fail(ctx context.Context, id string) (*models.Task, error) {
	return s.Update(ctx, id, models.TaskPatch{Status: models.Ptr(models.StatusFailed)})
}

// Reactivate moves a task back to pending.
func (s *TaskStore) Reactivate(ctx context.Context, id string) (*models.Task, error) {
	return s.Update(ctx, id, models.TaskPatch{Status: models.Ptr(models.StatusPending)})
}

// Delete removes task id. When cascade is set and the task is a template,
// its spawned instances are removed too; otherwise they are left in place.
// It returns the number of records deleted.
func (s *TaskStore) Delete(ctx context.Context, id string, cascade bool) (int, error) {
	current, err := s.backend.GetTask(ctx, id)
	if err != nil {
		return 0, err
	}

	deleted := 0
	if cascade && current.IsRepeatTemplate {
		instances, err := s.backend.ListTasks(ctx, models.TaskFilter{ParentTemplateID: id})
		if err != nil {
			return 0, err
		}
		for _, inst := range instances {
			if err := s.backend.DeleteTask(ctx, inst.ID); err != nil && !models.IsNotFound(err) {
				return deleted, err
			}
			deleted++
		}
	}

	if err := s.backend.DeleteTask(ctx, id); err != nil {
		return deleted, err
	}
	deleted++

	if _, err := s.Load(ctx); err != nil {
		return deleted, err
	}
	return deleted, nil
}

// View names a predefined slice of the task list.
type View string

const (
	ViewAll       View = "all"
	ViewPending   View = "pending"
	ViewCompleted View = "completed"
	ViewExpired   View = "expired"
	ViewFailed    View = "failed"
	ViewHigh      View = "high"
	ViewMedium    View = "medium"
	ViewLow       View = "low"
	ViewRepeating View = "repeating"
	ViewSingle    View = "single"
)

// Views lists every view in display order.
var Views = []View{ViewAll, ViewPending, ViewCompleted, ViewExpired, ViewFailed, ViewHigh, ViewMedium, ViewLow, ViewRepeating, ViewSingle}

// ParseView validates a view name.
func ParseView(name string) (View, error) {
	for _, v := range Views {
		if string(v) == name {
			return v, nil
		}
	}
	return "", models.NewValidationError("unknown view %q", name)
}

// View returns the tasks in view v, in list order.
func (s *TaskStore) View(v View) []models.Task {
	return s.filter(func(t *models.Task) bool {
		switch v {
		case ViewPending, ViewCompleted, ViewExpired, ViewFailed:
			return !t.IsRepeatTemplate && string(t.Status) == string(v)
		case ViewHigh, ViewMedium, ViewLow:
			return string(t.Priority) == string(v)
		case ViewRepeating:
			return t.IsRepeatTemplate
		case ViewSingle:
			return !t.IsRepeatTemplate && !t.IsInstance()
		default:
			return true
		}
	})
}

func clone[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
