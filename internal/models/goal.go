package models

import (
	"math"
	"strings"
	"time"
)

// GoalStatus is the lifecycle state of a goal.
type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalPaused    GoalStatus = "paused"
	GoalArchived  GoalStatus = "archived"
)

// Valid reports whether s is a known goal status.
func (s GoalStatus) Valid() bool {
	switch s {
	case GoalActive, GoalCompleted, GoalPaused, GoalArchived:
		return true
	}
	return false
}

// DefaultGoalCategory is assigned to goals created without a category.
const DefaultGoalCategory = "personal"

// Goal groups tasks and derives its progress from them.
type Goal struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	TargetDate  *time.Time `json:"targetDate"`
	Status      GoalStatus `json:"status"`
	Progress    int        `json:"progress"`
	Category    string     `json:"category"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt"`
}

// Validate checks that the goal has valid field values.
func (g *Goal) Validate() error {
	if strings.TrimSpace(g.Title) == "" {
		return NewValidationError("title is required")
	}

	if !g.Status.Valid() {
		return NewValidationError("status must be 'active', 'completed', 'paused', or 'archived'")
	}

	if g.Progress < 0 || g.Progress > 100 {
		return NewValidationError("progress must be between 0 and 100")
	}

	return nil
}

// ApplyDefaults fills zero-valued fields with their defaults.
func (g *Goal) ApplyDefaults() {
	if g.Status == "" {
		g.Status = GoalActive
	}
	if g.Category == "" {
		g.Category = DefaultGoalCategory
	}
}

// IsOverdue returns true if the goal is still open past its target date.
func (g *Goal) IsOverdue(now time.Time) bool {
	if g.TargetDate == nil || g.Status == GoalCompleted || g.Status == GoalArchived {
		return false
	}
	return g.TargetDate.Before(now)
}

// Progress returns round(100 * completed / total) over the non-template tasks
// linked to goalID, or 0 when none are linked.
func Progress(goalID string, tasks []Task) int {
	total, completed := 0, 0
	for i := range tasks {
		if tasks[i].IsRepeatTemplate || !tasks[i].LinkedTo(goalID) {
			continue
		}
		total++
		if tasks[i].Status == StatusCompleted {
			completed++
		}
	}
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}
