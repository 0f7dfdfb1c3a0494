package models

import (
	"strings"
	"time"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusCompleted TaskStatus = "completed"
	StatusExpired   TaskStatus = "expired"
	StatusFailed    TaskStatus = "failed"
)

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusExpired, StatusFailed:
		return true
	}
	return false
}

// Priority ranks tasks for display.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Order returns a numeric value for sorting by priority.
// Lower numbers indicate higher priority.
func (p Priority) Order() int {
	switch p {
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 99
	}
}

// RepeatType is the recurrence rule of a template.
type RepeatType string

const (
	RepeatNone    RepeatType = "none"
	RepeatDaily   RepeatType = "daily"
	RepeatWeekly  RepeatType = "weekly"
	RepeatMonthly RepeatType = "monthly"
	RepeatCustom  RepeatType = "custom"
)

// Valid reports whether r is a known repeat type.
func (r RepeatType) Valid() bool {
	switch r {
	case RepeatNone, RepeatDaily, RepeatWeekly, RepeatMonthly, RepeatCustom:
		return true
	}
	return false
}

// Task is either a concrete actionable item or a recurrence template that
// spawns such items.
type Task struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Deadline         *time.Time `json:"deadline"`
	GoalID           *string    `json:"goalId"`
	Status           TaskStatus `json:"status"`
	Priority         Priority   `json:"priority"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
	CompletedAt      *time.Time `json:"completedAt"`
	IsRepeatTemplate bool       `json:"isRepeatTemplate"`
	RepeatType       RepeatType `json:"repeatType"`
	RepeatInterval   int        `json:"repeatInterval"`
	RepeatEndDate    *time.Time `json:"repeatEndDate"`
	ParentTemplateID *string    `json:"parentTemplateId"`
	NextDueDate      *time.Time `json:"nextDueDate"`
}

// Validate checks that the task has valid field values.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return NewValidationError("title is required")
	}

	if !t.Status.Valid() {
		return NewValidationError("status must be 'pending', 'completed', 'expired', or 'failed'")
	}

	if !t.Priority.Valid() {
		return NewValidationError("priority must be 'high', 'medium', or 'low'")
	}

	if !t.RepeatType.Valid() {
		return NewValidationError("repeat type must be 'none', 'daily', 'weekly', 'monthly', or 'custom'")
	}

	if t.RepeatType != RepeatNone && t.RepeatInterval < 1 {
		return NewValidationError("repeat interval must be a positive integer")
	}

	if t.IsRepeatTemplate && t.ParentTemplateID != nil {
		return NewValidationError("a recurring instance cannot be a template")
	}

	return nil
}

// ApplyDefaults fills zero-valued enum fields with their defaults.
func (t *Task) ApplyDefaults() {
	if t.Status == "" {
		t.Status = StatusPending
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.RepeatType == "" {
		t.RepeatType = RepeatNone
	}
	if t.RepeatInterval < 1 {
		t.RepeatInterval = 1
	}
}

// IsInstance reports whether the task was spawned from a template.
func (t *Task) IsInstance() bool {
	return t.ParentTemplateID != nil
}

// IsOverdue returns true if the task is pending with a deadline before now.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.IsRepeatTemplate || t.Status != StatusPending || t.Deadline == nil {
		return false
	}
	return t.Deadline.Before(now)
}

// LinkedTo reports whether the task references the given goal.
func (t *Task) LinkedTo(goalID string) bool {
	return t.GoalID != nil && *t.GoalID == goalID
}

// TaskFilter narrows ListTasks results. Zero fields match everything.
type TaskFilter struct {
	Status           TaskStatus
	Priority         Priority
	GoalID           string
	IsTemplate       *bool
	ParentTemplateID string
}

// Match reports whether t satisfies the filter.
func (f TaskFilter) Match(t *Task) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.GoalID != "" && !t.LinkedTo(f.GoalID) {
		return false
	}
	if f.IsTemplate != nil && t.IsRepeatTemplate != *f.IsTemplate {
		return false
	}
	if f.ParentTemplateID != "" && (t.ParentTemplateID == nil || *t.ParentTemplateID != f.ParentTemplateID) {
		return false
	}
	return true
}
