package models

import "time"

// Nullable is a patch value for an optional field. A set Nullable with a nil
// Value clears the field.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// SetTo returns a Nullable that assigns v.
func SetTo[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Value: &v}
}

// Clear returns a Nullable that clears the field.
func Clear[T any]() Nullable[T] {
	return Nullable[T]{Set: true}
}

// From returns a Nullable that assigns p, clearing the field when p is nil.
func From[T any](p *T) Nullable[T] {
	if p == nil {
		return Clear[T]()
	}
	return SetTo(*p)
}

func (n Nullable[T]) apply(dst **T) {
	if !n.Set {
		return
	}
	if n.Value == nil {
		*dst = nil
		return
	}
	v := *n.Value
	*dst = &v
}

// TaskPatch enumerates the task fields an update may change. Fields left nil
// or unset keep their stored values.
type TaskPatch struct {
	Title            *string
	Description      *string
	Deadline         Nullable[time.Time]
	GoalID           Nullable[string]
	Status           *TaskStatus
	Priority         *Priority
	IsRepeatTemplate *bool
	RepeatType       *RepeatType
	RepeatInterval   *int
	RepeatEndDate    Nullable[time.Time]
	NextDueDate      Nullable[time.Time]
	CompletedAt      Nullable[time.Time]
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && !p.Deadline.Set && !p.GoalID.Set &&
		p.Status == nil && p.Priority == nil && p.IsRepeatTemplate == nil && p.RepeatType == nil &&
		p.RepeatInterval == nil && !p.RepeatEndDate.Set && !p.NextDueDate.Set && !p.CompletedAt.Set
}

// Apply merges the patch into t and bumps UpdatedAt.
func (p TaskPatch) Apply(t *Task, now time.Time) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	p.Deadline.apply(&t.Deadline)
	p.GoalID.apply(&t.GoalID)
	if t.GoalID != nil && *t.GoalID == "" {
		t.GoalID = nil
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.IsRepeatTemplate != nil {
		t.IsRepeatTemplate = *p.IsRepeatTemplate
	}
	if p.RepeatType != nil {
		t.RepeatType = *p.RepeatType
	}
	if p.RepeatInterval != nil {
		t.RepeatInterval = *p.RepeatInterval
	}
	p.RepeatEndDate.apply(&t.RepeatEndDate)
	p.NextDueDate.apply(&t.NextDueDate)
	p.CompletedAt.apply(&t.CompletedAt)
	t.UpdatedAt = now
}

// GoalPatch enumerates the goal fields an update may change. Progress is an
// explicit override; it is otherwise derived from linked tasks.
type GoalPatch struct {
	Title       *string
	Description *string
	TargetDate  Nullable[time.Time]
	Status      *GoalStatus
	Progress    *int
	Category    *string
	CompletedAt Nullable[time.Time]
}

// IsEmpty reports whether the patch changes nothing.
func (p GoalPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && !p.TargetDate.Set && p.Status == nil &&
		p.Progress == nil && p.Category == nil && !p.CompletedAt.Set
}

// Apply merges the patch into g and bumps UpdatedAt.
func (p GoalPatch) Apply(g *Goal, now time.Time) {
	if p.Title != nil {
		g.Title = *p.Title
	}
	if p.Description != nil {
		g.Description = *p.Description
	}
	p.TargetDate.apply(&g.TargetDate)
	if p.Status != nil {
		g.Status = *p.Status
	}
	if p.Progress != nil {
		g.Progress = *p.Progress
	}
	if p.Category != nil {
		g.Category = *p.Category
	}
	p.CompletedAt.apply(&g.CompletedAt)
	g.UpdatedAt = now
}

// StatisticsPatch carries absolute counter values to store.
type StatisticsPatch struct {
	TotalTasksCreated   *int
	TotalTasksCompleted *int
	TotalGoalsCreated   *int
	TotalGoalsCompleted *int
	StreakDays          *int
	LastActiveDate      Nullable[time.Time]
}

// IsEmpty reports whether the patch changes nothing.
func (p StatisticsPatch) IsEmpty() bool {
	return p.TotalTasksCreated == nil && p.TotalTasksCompleted == nil && p.TotalGoalsCreated == nil &&
		p.TotalGoalsCompleted == nil && p.StreakDays == nil && !p.LastActiveDate.Set
}

// Apply merges the patch into s.
func (p StatisticsPatch) Apply(s *Statistics) {
	if p.TotalTasksCreated != nil {
		s.TotalTasksCreated = *p.TotalTasksCreated
	}
	if p.TotalTasksCompleted != nil {
		s.TotalTasksCompleted = *p.TotalTasksCompleted
	}
	if p.TotalGoalsCreated != nil {
		s.TotalGoalsCreated = *p.TotalGoalsCreated
	}
	if p.TotalGoalsCompleted != nil {
		s.TotalGoalsCompleted = *p.TotalGoalsCompleted
	}
	if p.StreakDays != nil {
		s.StreakDays = *p.StreakDays
	}
	p.LastActiveDate.apply(&s.LastActiveDate)
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
