package wire

import (
	"encoding/json"
	"time"

	"goaltracker/internal/models"
)

// TaskPatchKeys lists the remote columns a task update may set.
var TaskPatchKeys = []string{
	"title", "description", "deadline", "status", "priority", "goal_id",
	"is_repeat_template", "repeat_type", "repeat_interval", "repeat_end_date",
	"next_due_date", "completed_at",
}

// GoalPatchKeys lists the remote columns a goal update may set.
var GoalPatchKeys = []string{
	"title", "description", "target_date", "status", "progress", "category", "completed_at",
}

// StatisticsPatchKeys lists the remote statistics columns an update may set.
var StatisticsPatchKeys = []string{
	"total_tasks_created", "total_tasks_completed", "total_goals_created",
	"total_goals_completed", "streak_days", "last_active_date",
}

// TaskPatchToMap encodes the set fields of p under their remote names.
func TaskPatchToMap(p models.TaskPatch) map[string]any {
	m := make(map[string]any)
	putValue(m, "title", p.Title)
	putValue(m, "description", p.Description)
	putNullable(m, "deadline", p.Deadline)
	putNullable(m, "goal_id", p.GoalID)
	putValue(m, "status", p.Status)
	putValue(m, "priority", p.Priority)
	putValue(m, "is_repeat_template", p.IsRepeatTemplate)
	putValue(m, "repeat_type", p.RepeatType)
	putValue(m, "repeat_interval", p.RepeatInterval)
	putNullable(m, "repeat_end_date", p.RepeatEndDate)
	putNullable(m, "next_due_date", p.NextDueDate)
	putNullable(m, "completed_at", p.CompletedAt)
	return m
}

// ParseTaskPatch decodes an update body keyed by remote names. Keys outside
// TaskPatchKeys are ignored; a body with no permitted key is rejected.
func ParseTaskPatch(body map[string]json.RawMessage) (models.TaskPatch, error) {
	var p models.TaskPatch
	d := decoder{body: body}
	p.Title = value[string](&d, "title")
	p.Description = value[string](&d, "description")
	p.Deadline = nullable[time.Time](&d, "deadline")
	p.GoalID = nullable[string](&d, "goal_id")
	p.Status = value[models.TaskStatus](&d, "status")
	p.Priority = value[models.Priority](&d, "priority")
	p.IsRepeatTemplate = value[bool](&d, "is_repeat_template")
	p.RepeatType = value[models.RepeatType](&d, "repeat_type")
	p.RepeatInterval = value[int](&d, "repeat_interval")
	p.RepeatEndDate = nullable[time.Time](&d, "repeat_end_date")
	p.NextDueDate = nullable[time.Time](&d, "next_due_date")
	p.CompletedAt = nullable[time.Time](&d, "completed_at")
	if d.err != nil {
		return models.TaskPatch{}, d.err
	}
	if p.IsEmpty() {
		return models.TaskPatch{}, models.NewValidationError("no updatable fields provided")
	}
	return p, nil
}

// GoalPatchToMap encodes the set fields of p under their remote names.
func GoalPatchToMap(p models.GoalPatch) map[string]any {
	m := make(map[string]any)
	putValue(m, "title", p.Title)
	putValue(m, "description", p.Description)
	putNullable(m, "target_date", p.TargetDate)
	putValue(m, "status", p.Status)
	putValue(m, "progress", p.Progress)
	putValue(m, "category", p.Category)
	putNullable(m, "completed_at", p.CompletedAt)
	return m
}

// ParseGoalPatch decodes a goal update body keyed by remote names.
func ParseGoalPatch(body map[string]json.RawMessage) (models.GoalPatch, error) {
	var p models.GoalPatch
	d := decoder{body: body}
	p.Title = value[string](&d, "title")
	p.Description = value[string](&d, "description")
	p.TargetDate = nullable[time.Time](&d, "target_date")
	p.Status = value[models.GoalStatus](&d, "status")
	p.Progress = value[int](&d, "progress")
	p.Category = value[string](&d, "category")
	p.CompletedAt = nullable[time.Time](&d, "completed_at")
	if d.err != nil {
		return models.GoalPatch{}, d.err
	}
	if p.IsEmpty() {
		return models.GoalPatch{}, models.NewValidationError("no updatable fields provided")
	}
	return p, nil
}

// StatisticsPatchToMap encodes the set fields of p under their remote names.
func StatisticsPatchToMap(p models.StatisticsPatch) map[string]any {
	m := make(map[string]any)
	putValue(m, "total_tasks_created", p.TotalTasksCreated)
	putValue(m, "total_tasks_completed", p.TotalTasksCompleted)
	putValue(m, "total_goals_created", p.TotalGoalsCreated)
	putValue(m, "total_goals_completed", p.TotalGoalsCompleted)
	putValue(m, "streak_days", p.StreakDays)
	putNullable(m, "last_active_date", p.LastActiveDate)
	return m
}

// ParseStatisticsPatch decodes a statistics update body keyed by remote names.
func ParseStatisticsPatch(body map[string]json.RawMessage) (models.StatisticsPatch, error) {
	var p models.StatisticsPatch
	d := decoder{body: body}
	p.TotalTasksCreated = value[int](&d, "total_tasks_created")
	p.TotalTasksCompleted = value[int](&d, "total_tasks_completed")
	p.TotalGoalsCreated = value[int](&d, "total_goals_created")
	p.TotalGoalsCompleted = value[int](&d, "total_goals_completed")
	p.StreakDays = value[int](&d, "streak_days")
	p.LastActiveDate = nullable[time.Time](&d, "last_active_date")
	if d.err != nil {
		return models.StatisticsPatch{}, d.err
	}
	if p.IsEmpty() {
		return models.StatisticsPatch{}, models.NewValidationError("no updatable fields provided")
	}
	return p, nil
}

func putValue[T any](m map[string]any, key string, v *T) {
	if v != nil {
		m[key] = *v
	}
}

func putNullable[T any](m map[string]any, key string, n models.Nullable[T]) {
	if !n.Set {
		return
	}
	if n.Value == nil {
		m[key] = nil
		return
	}
	m[key] = *n.Value
}

// decoder keeps the first decode error so field reads can be chained.
type decoder struct {
	body map[string]json.RawMessage
	err  error
}

func value[T any](d *decoder, key string) *T {
	raw, ok := d.body[key]
	if !ok || d.err != nil {
		return nil
	}
	var v *T
	if err := json.Unmarshal(raw, &v); err != nil {
		d.err = models.NewValidationError("invalid value for %s", key)
		return nil
	}
	if v == nil {
		d.err = models.NewValidationError("%s cannot be null", key)
	}
	return v
}

func nullable[T any](d *decoder, key string) models.Nullable[T] {
	raw, ok := d.body[key]
	if !ok || d.err != nil {
		return models.Nullable[T]{}
	}
	var v *T
	if err := json.Unmarshal(raw, &v); err != nil {
		d.err = models.NewValidationError("invalid value for %s", key)
		return models.Nullable[T]{}
	}
	return models.From(v)
}
