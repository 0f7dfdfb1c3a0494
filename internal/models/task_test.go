package models

import (
	"testing"
	"time"
)

func validTask() Task {
	return Task{Title: "Test task", Status: StatusPending, Priority: PriorityMedium, RepeatType: RepeatNone, RepeatInterval: 1}
}

func TestTaskValidation_RequiredFields(t *testing.T) {
	withTitle := func(title string) Task {
		task := validTask()
		task.Title = title
		return task
	}

	tests := []struct {
		name    string
		task    Task
		wantErr bool
		errMsg  string
	}{
		{
			name:    "empty title should fail",
			task:    withTitle(""),
			wantErr: true,
			errMsg:  "title is required",
		},
		{
			name:    "whitespace title should fail",
			task:    withTitle("   "),
			wantErr: true,
			errMsg:  "title is required",
		},
		{
			name:    "valid task should pass",
			task:    validTask(),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.task.Validate()
			if tt.wantErr {
				if err == nil {
					t.Error("expected error but got none")
				} else if err.Error() != tt.errMsg {
					t.Errorf("expected error %q, got %q", tt.errMsg, err.Error())
				}
				if err != nil && !IsValidation(err) {
					t.Errorf("expected a ValidationError, got %T", err)
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			}
		})
	}
}

func TestTaskValidation_EnumValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Task)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "high priority is valid",
			mutate:  func(t *Task) { t.Priority = PriorityHigh },
			wantErr: false,
		},
		{
			name:    "invalid priority should fail",
			mutate:  func(t *Task) { t.Priority = "urgent" },
			wantErr: true,
			errMsg:  "priority must be 'high', 'medium', or 'low'",
		},
		{
			name:    "expired status is valid",
			mutate:  func(t *Task) { t.Status = StatusExpired },
			wantErr: false,
		},
		{
			name:    "unknown status should fail",
			mutate:  func(t *Task) { t.Status = "archived" },
			wantErr: true,
			errMsg:  "status must be 'pending', 'completed', 'expired', or 'failed'",
		},
		{
			name:    "unknown repeat type should fail",
			mutate:  func(t *Task) { t.RepeatType = "yearly" },
			wantErr: true,
			errMsg:  "repeat type must be 'none', 'daily', 'weekly', 'monthly', or 'custom'",
		},
		{
			name: "zero interval on recurring task should fail",
			mutate: func(t *Task) {
				t.RepeatType = RepeatDaily
				t.RepeatInterval = 0
			},
			wantErr: true,
			errMsg:  "repeat interval must be a positive integer",
		},
		{
			name: "instance marked as template should fail",
			mutate: func(t *Task) {
				t.IsRepeatTemplate = true
				t.ParentTemplateID = Ptr("tpl")
			},
			wantErr: true,
			errMsg:  "a recurring instance cannot be a template",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := validTask()
			tt.mutate(&task)
			err := task.Validate()
			if tt.wantErr {
				if err == nil {
					t.Error("expected error but got none")
				} else if err.Error() != tt.errMsg {
					t.Errorf("expected error %q, got %q", tt.errMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestTask_ApplyDefaults(t *testing.T) {
	task := Task{Title: "Defaults"}
	task.ApplyDefaults()

	if task.Status != StatusPending {
		t.Errorf("expected status %q, got %q", StatusPending, task.Status)
	}
	if task.Priority != PriorityMedium {
		t.Errorf("expected priority %q, got %q", PriorityMedium, task.Priority)
	}
	if task.RepeatType != RepeatNone {
		t.Errorf("expected repeat type %q, got %q", RepeatNone, task.RepeatType)
	}
	if task.RepeatInterval != 1 {
		t.Errorf("expected repeat interval 1, got %d", task.RepeatInterval)
	}
}

func TestTask_IsOverdue(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	tomorrow := now.AddDate(0, 0, 1)

	tests := []struct {
		name     string
		task     Task
		expected bool
	}{
		{
			name:     "past deadline and pending is overdue",
			task:     Task{Deadline: &yesterday, Status: StatusPending},
			expected: true,
		},
		{
			name:     "past deadline but completed is not overdue",
			task:     Task{Deadline: &yesterday, Status: StatusCompleted},
			expected: false,
		},
		{
			name:     "templates are never overdue",
			task:     Task{Deadline: &yesterday, Status: StatusPending, IsRepeatTemplate: true},
			expected: false,
		},
		{
			name:     "future deadline is not overdue",
			task:     Task{Deadline: &tomorrow, Status: StatusPending},
			expected: false,
		},
		{
			name:     "no deadline is not overdue",
			task:     Task{Status: StatusPending},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.task.IsOverdue(now)
			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestPriority_Order(t *testing.T) {
	tests := []struct {
		priority Priority
		expected int
	}{
		{PriorityHigh, 1},
		{PriorityMedium, 2},
		{PriorityLow, 3},
		{"unknown", 99},
	}

	for _, tt := range tests {
		t.Run(string(tt.priority), func(t *testing.T) {
			if got := tt.priority.Order(); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestTaskPatch_Apply(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	deadline := now.AddDate(0, 0, 2)
	task := validTask()
	task.Deadline = &deadline
	task.GoalID = Ptr("goal-1")

	patch := TaskPatch{
		Title:    Ptr("Renamed"),
		Deadline: Clear[time.Time](),
		Priority: Ptr(PriorityHigh),
	}
	if patch.IsEmpty() {
		t.Fatal("expected patch to be non-empty")
	}
	patch.Apply(&task, now)

	if task.Title != "Renamed" {
		t.Errorf("expected title %q, got %q", "Renamed", task.Title)
	}
	if task.Deadline != nil {
		t.Errorf("expected deadline to be cleared, got %v", task.Deadline)
	}
	if task.GoalID == nil || *task.GoalID != "goal-1" {
		t.Errorf("expected goal id to be untouched, got %v", task.GoalID)
	}
	if task.Priority != PriorityHigh {
		t.Errorf("expected priority %q, got %q", PriorityHigh, task.Priority)
	}
	if !task.UpdatedAt.Equal(now) {
		t.Errorf("expected updated_at %v, got %v", now, task.UpdatedAt)
	}
}

func TestTaskPatch_EmptyGoalIDClears(t *testing.T) {
	task := validTask()
	task.GoalID = Ptr("goal-1")

	TaskPatch{GoalID: SetTo("")}.Apply(&task, time.Now())

	if task.GoalID != nil {
		t.Errorf("expected goal id to be cleared, got %q", *task.GoalID)
	}
}

func TestTaskFilter_Match(t *testing.T) {
	template := validTask()
	template.IsRepeatTemplate = true
	instance := validTask()
	instance.ParentTemplateID = Ptr("tpl-1")
	instance.GoalID = Ptr("goal-1")

	tests := []struct {
		name     string
		filter   TaskFilter
		task     Task
		expected bool
	}{
		{"empty filter matches", TaskFilter{}, instance, true},
		{"template filter matches template", TaskFilter{IsTemplate: Ptr(true)}, template, true},
		{"template filter skips instance", TaskFilter{IsTemplate: Ptr(true)}, instance, false},
		{"goal filter matches linked task", TaskFilter{GoalID: "goal-1"}, instance, true},
		{"goal filter skips unlinked task", TaskFilter{GoalID: "goal-1"}, template, false},
		{"parent filter matches instance", TaskFilter{ParentTemplateID: "tpl-1"}, instance, true},
		{"status filter skips other status", TaskFilter{Status: StatusCompleted}, instance, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(&tt.task); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}
