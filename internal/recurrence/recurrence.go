// Package recurrence decides when recurring templates spawn task instances
// and when pending tasks expire. Everything here is pure: callers persist the
// results.
package recurrence

import (
	"time"

	"github.com/google/uuid"

	"goaltracker/internal/models"
)

// NextDueDate returns base advanced by one recurrence step, or nil when base
// is absent or the repeat type does not recur. Intervals below 1 count as 1.
func NextDueDate(base *time.Time, rt models.RepeatType, interval int) *time.Time {
	if base == nil {
		return nil
	}
	if interval < 1 {
		interval = 1
	}

	var next time.Time
	switch rt {
	case models.RepeatDaily, models.RepeatCustom:
		next = base.AddDate(0, 0, interval)
	case models.RepeatWeekly:
		next = base.AddDate(0, 0, 7*interval)
	case models.RepeatMonthly:
		// AddDate normalizes overflow, so Jan 31 + 1 month lands in early March.
		next = base.AddDate(0, interval, 0)
	default:
		return nil
	}
	return &next
}

// Engine spawns instances from templates.
type Engine struct {
	newID func() string
}

// New creates an Engine that assigns random UUIDs to spawned instances.
func New() *Engine {
	return &Engine{newID: uuid.NewString}
}

// NewWithIDs creates an Engine with a custom id generator.
func NewWithIDs(newID func() string) *Engine {
	return &Engine{newID: newID}
}

// Result is the outcome of one Materialize call.
type Result struct {
	Spawned  *models.Task
	Template models.Task
	// Stopped is set when the template passed its end date and was retired.
	Stopped bool
}

// Changed reports whether the template needs to be persisted.
func (r Result) Changed() bool {
	return r.Spawned != nil || r.Stopped
}

// Eligible reports whether t is a live template that can spawn instances.
func Eligible(t *models.Task) bool {
	return t.IsRepeatTemplate && t.RepeatType != models.RepeatNone && t.NextDueDate != nil
}

// Materialize spawns at most one instance from template for the cycle due at
// template.NextDueDate. Templates that are not eligible are returned as is.
func (e *Engine) Materialize(template models.Task, now time.Time) Result {
	res := Result{Template: template}
	if !Eligible(&template) {
		return res
	}

	if template.RepeatEndDate != nil && now.After(*template.RepeatEndDate) {
		res.Template.IsRepeatTemplate = false
		res.Template.NextDueDate = nil
		res.Template.UpdatedAt = now
		res.Stopped = true
		return res
	}

	if now.Before(*template.NextDueDate) {
		return res
	}

	inst := e.instance(&template, now)
	res.Spawned = &inst
	res.Template.NextDueDate = NextDueDate(template.NextDueDate, template.RepeatType, template.RepeatInterval)
	res.Template.UpdatedAt = now
	return res
}

func (e *Engine) instance(template *models.Task, now time.Time) models.Task {
	parent := template.ID
	return models.Task{
		ID:               e.newID(),
		Title:            template.Title,
		Description:      template.Description,
		Deadline:         clone(template.NextDueDate),
		GoalID:           clone(template.GoalID),
		Status:           models.StatusPending,
		Priority:         template.Priority,
		CreatedAt:        now,
		UpdatedAt:        now,
		RepeatType:       template.RepeatType,
		RepeatInterval:   template.RepeatInterval,
		RepeatEndDate:    clone(template.RepeatEndDate),
		ParentTemplateID: &parent,
	}
}

// CatchUp calls Materialize until the template is no longer due, so every
// cycle missed while offline gets its own instance.
func (e *Engine) CatchUp(template models.Task, now time.Time) ([]models.Task, models.Task) {
	spawned, tpl, _ := e.catchUp(template, now, nil)
	return spawned, tpl
}

// catchUp skips spawning for cycles already present in existing, keyed by
// instanceKey, while still advancing past them.
func (e *Engine) catchUp(template models.Task, now time.Time, existing map[string]bool) ([]models.Task, models.Task, bool) {
	var spawned []models.Task
	changed := false
	for {
		res := e.Materialize(template, now)
		if !res.Changed() {
			return spawned, template, changed
		}
		changed = true
		template = res.Template
		if res.Spawned != nil && !existing[instanceKey(res.Spawned)] {
			spawned = append(spawned, *res.Spawned)
		}
		if res.Stopped {
			return spawned, template, changed
		}
	}
}

func instanceKey(t *models.Task) string {
	if t.ParentTemplateID == nil || t.Deadline == nil {
		return ""
	}
	return *t.ParentTemplateID + "@" + t.Deadline.UTC().Format(time.RFC3339Nano)
}

// Expire returns copies of the non-template pending tasks whose deadline is
// before now, with their status set to expired.
func Expire(tasks []models.Task, now time.Time) []models.Task {
	var expired []models.Task
	for i := range tasks {
		if !tasks[i].IsOverdue(now) {
			continue
		}
		t := tasks[i]
		t.Status = models.StatusExpired
		t.UpdatedAt = now
		expired = append(expired, t)
	}
	return expired
}

// SweepResult lists everything one sweep changed.
type SweepResult struct {
	Expired   []models.Task
	Templates []models.Task
	Spawned   []models.Task
}

// Empty reports whether the sweep changed nothing.
func (r SweepResult) Empty() bool {
	return len(r.Expired) == 0 && len(r.Templates) == 0 && len(r.Spawned) == 0
}

// Sweep expires overdue tasks and then materializes every eligible template.
// Instances spawned here are not checked for expiry until the next sweep.
func (e *Engine) Sweep(tasks []models.Task, now time.Time) SweepResult {
	res := SweepResult{Expired: Expire(tasks, now)}

	existing := make(map[string]bool)
	for i := range tasks {
		if key := instanceKey(&tasks[i]); key != "" {
			existing[key] = true
		}
	}

	for i := range tasks {
		if !Eligible(&tasks[i]) {
			continue
		}
		spawned, tpl, changed := e.catchUp(tasks[i], now, existing)
		if !changed {
			continue
		}
		res.Templates = append(res.Templates, tpl)
		res.Spawned = append(res.Spawned, spawned...)
	}
	return res
}

func clone[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
