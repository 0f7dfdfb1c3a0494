package models

import "time"

// SnapshotVersion is written into every exported snapshot.
const SnapshotVersion = "1.0.0"

// Settings is a flat per-user key/value document.
type Settings map[string]any

// DefaultSettings returns the settings every user starts with.
func DefaultSettings() Settings {
	return Settings{
		"theme":                "light",
		"notifications":        true,
		"autoCleanup":          true,
		"defaultDeadlineHours": 24,
	}
}

// WithDefaults returns the defaults overlaid by s.
func (s Settings) WithDefaults() Settings {
	out := DefaultSettings()
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Statistics holds usage counters. Counters only grow, except when a
// snapshot import replaces them.
type Statistics struct {
	TotalTasksCreated   int        `json:"totalTasksCreated"`
	TotalTasksCompleted int        `json:"totalTasksCompleted"`
	TotalGoalsCreated   int        `json:"totalGoalsCreated"`
	TotalGoalsCompleted int        `json:"totalGoalsCompleted"`
	StreakDays          int        `json:"streakDays"`
	LastActiveDate      *time.Time `json:"lastActiveDate"`
}

// TaskCompleted returns the patch that records one task completion at now.
func (s Statistics) TaskCompleted(now time.Time) StatisticsPatch {
	p := s.activity(now)
	p.TotalTasksCompleted = Ptr(s.TotalTasksCompleted + 1)
	return p
}

// GoalCompleted returns the patch that records one goal completion.
func (s Statistics) GoalCompleted() StatisticsPatch {
	return StatisticsPatch{TotalGoalsCompleted: Ptr(s.TotalGoalsCompleted + 1)}
}

// activity keeps the streak on the same day, extends it on the next day and
// restarts it after a gap.
func (s Statistics) activity(now time.Time) StatisticsPatch {
	streak := 1
	if s.LastActiveDate != nil {
		switch daysBetween(*s.LastActiveDate, now) {
		case 0:
			streak = max(s.StreakDays, 1)
		case 1:
			streak = s.StreakDays + 1
		}
	}
	return StatisticsPatch{
		StreakDays:     Ptr(streak),
		LastActiveDate: SetTo(now),
	}
}

func daysBetween(from, to time.Time) int {
	from = from.In(to.Location())
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// Snapshot is the full export of one user's data. A snapshot without
// statistics leaves the destination's counters in place on import.
type Snapshot struct {
	Tasks      []Task      `json:"tasks"`
	Goals      []Goal      `json:"goals"`
	Settings   Settings    `json:"settings"`
	Statistics *Statistics `json:"statistics,omitempty"`
	ExportDate time.Time   `json:"exportDate"`
	Version    string      `json:"version"`
}
