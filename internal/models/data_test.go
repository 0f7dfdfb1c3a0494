package models

import (
	"testing"
	"time"
)

func TestSettings_WithDefaults(t *testing.T) {
	s := Settings{"theme": "dark", "language": "en"}.WithDefaults()

	if s["theme"] != "dark" {
		t.Errorf("expected stored theme to win, got %v", s["theme"])
	}
	if s["notifications"] != true {
		t.Errorf("expected default notifications true, got %v", s["notifications"])
	}
	if s["defaultDeadlineHours"] != 24 {
		t.Errorf("expected default deadline hours 24, got %v", s["defaultDeadlineHours"])
	}
	if s["language"] != "en" {
		t.Errorf("expected extra key to survive, got %v", s["language"])
	}
}

func TestStatistics_TaskCompletedStreak(t *testing.T) {
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	sameDay := now.Add(-3 * time.Hour)
	yesterday := now.AddDate(0, 0, -1)
	lastWeek := now.AddDate(0, 0, -7)

	tests := []struct {
		name       string
		stats      Statistics
		wantStreak int
	}{
		{"first activity starts streak", Statistics{}, 1},
		{"same day keeps streak", Statistics{StreakDays: 4, LastActiveDate: &sameDay}, 4},
		{"next day extends streak", Statistics{StreakDays: 4, LastActiveDate: &yesterday}, 5},
		{"gap resets streak", Statistics{StreakDays: 4, LastActiveDate: &lastWeek}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.stats
			s.TotalTasksCompleted = 7
			s.TaskCompleted(now).Apply(&s)

			if s.StreakDays != tt.wantStreak {
				t.Errorf("expected streak %d, got %d", tt.wantStreak, s.StreakDays)
			}
			if s.TotalTasksCompleted != 8 {
				t.Errorf("expected 8 completed tasks, got %d", s.TotalTasksCompleted)
			}
			if s.LastActiveDate == nil || !s.LastActiveDate.Equal(now) {
				t.Errorf("expected last active date %v, got %v", now, s.LastActiveDate)
			}
		})
	}
}
