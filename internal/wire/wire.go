// Package wire translates records between the camelCase shape kept in the
// local cache and the snake_case shape spoken by the remote API.
package wire

import (
	"time"

	"goaltracker/internal/models"
)

// FieldMapping pairs a model field name with its remote column name.
type FieldMapping struct {
	Local  string
	Remote string
}

// TaskFields is the fixed task field mapping.
var TaskFields = []FieldMapping{
	{"id", "id"},
	{"title", "title"},
	{"description", "description"},
	{"deadline", "deadline"},
	{"goalId", "goal_id"},
	{"status", "status"},
	{"priority", "priority"},
	{"createdAt", "created_at"},
	{"updatedAt", "updated_at"},
	{"completedAt", "completed_at"},
	{"isRepeatTemplate", "is_repeat_template"},
	{"repeatType", "repeat_type"},
	{"repeatInterval", "repeat_interval"},
	{"repeatEndDate", "repeat_end_date"},
	{"parentTemplateId", "parent_task_id"},
	{"nextDueDate", "next_due_date"},
}

// GoalFields is the fixed goal field mapping.
var GoalFields = []FieldMapping{
	{"id", "id"},
	{"title", "title"},
	{"description", "description"},
	{"targetDate", "target_date"},
	{"status", "status"},
	{"progress", "progress"},
	{"category", "category"},
	{"createdAt", "created_at"},
	{"updatedAt", "updated_at"},
	{"completedAt", "completed_at"},
}

// RemoteName returns the remote column for a local field name.
func RemoteName(fields []FieldMapping, local string) (string, bool) {
	for _, f := range fields {
		if f.Local == local {
			return f.Remote, true
		}
	}
	return "", false
}

// LocalName returns the local field name for a remote column.
func LocalName(fields []FieldMapping, remote string) (string, bool) {
	for _, f := range fields {
		if f.Remote == remote {
			return f.Local, true
		}
	}
	return "", false
}

// TaskRecord is a task as the remote API sends and receives it.
type TaskRecord struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Deadline         *time.Time `json:"deadline"`
	GoalID           *string    `json:"goal_id"`
	Status           string     `json:"status"`
	Priority         string     `json:"priority"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	CompletedAt      *time.Time `json:"completed_at"`
	IsRepeatTemplate bool       `json:"is_repeat_template"`
	RepeatType       string     `json:"repeat_type"`
	RepeatInterval   int        `json:"repeat_interval"`
	RepeatEndDate    *time.Time `json:"repeat_end_date"`
	ParentTaskID     *string    `json:"parent_task_id"`
	NextDueDate      *time.Time `json:"next_due_date"`
}

// TaskToRecord converts a task to its remote shape.
func TaskToRecord(t models.Task) TaskRecord {
	return TaskRecord{
		ID:               t.ID,
		Title:            t.Title,
		Description:      t.Description,
		Deadline:         t.Deadline,
		GoalID:           t.GoalID,
		Status:           string(t.Status),
		Priority:         string(t.Priority),
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
		CompletedAt:      t.CompletedAt,
		IsRepeatTemplate: t.IsRepeatTemplate,
		RepeatType:       string(t.RepeatType),
		RepeatInterval:   t.RepeatInterval,
		RepeatEndDate:    t.RepeatEndDate,
		ParentTaskID:     t.ParentTemplateID,
		NextDueDate:      t.NextDueDate,
	}
}

// TaskFromRecord converts a remote record to a task. Missing enum values
// take their defaults.
func TaskFromRecord(r TaskRecord) models.Task {
	t := models.Task{
		ID:               r.ID,
		Title:            r.Title,
		Description:      r.Description,
		Deadline:         r.Deadline,
		GoalID:           r.GoalID,
		Status:           models.TaskStatus(r.Status),
		Priority:         models.Priority(r.Priority),
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
		CompletedAt:      r.CompletedAt,
		IsRepeatTemplate: r.IsRepeatTemplate,
		RepeatType:       models.RepeatType(r.RepeatType),
		RepeatInterval:   r.RepeatInterval,
		RepeatEndDate:    r.RepeatEndDate,
		ParentTemplateID: r.ParentTaskID,
		NextDueDate:      r.NextDueDate,
	}
	t.ApplyDefaults()
	return t
}

// TasksFromRecords converts a slice of remote records.
func TasksFromRecords(rs []TaskRecord) []models.Task {
	tasks := make([]models.Task, 0, len(rs))
	for _, r := range rs {
		tasks = append(tasks, TaskFromRecord(r))
	}
	return tasks
}

// TasksToRecords converts a slice of tasks.
func TasksToRecords(ts []models.Task) []TaskRecord {
	records := make([]TaskRecord, 0, len(ts))
	for _, t := range ts {
		records = append(records, TaskToRecord(t))
	}
	return records
}

// GoalRecord is a goal as the remote API sends and receives it.
type GoalRecord struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	TargetDate  *time.Time `json:"target_date"`
	Status      string     `json:"status"`
	Progress    int        `json:"progress"`
	Category    string     `json:"category"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// GoalToRecord converts a goal to its remote shape.
func GoalToRecord(g models.Goal) GoalRecord {
	return GoalRecord{
		ID:          g.ID,
		Title:       g.Title,
		Description: g.Description,
		TargetDate:  g.TargetDate,
		Status:      string(g.Status),
		Progress:    g.Progress,
		Category:    g.Category,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
		CompletedAt: g.CompletedAt,
	}
}

// GoalFromRecord converts a remote record to a goal.
func GoalFromRecord(r GoalRecord) models.Goal {
	g := models.Goal{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		TargetDate:  r.TargetDate,
		Status:      models.GoalStatus(r.Status),
		Progress:    r.Progress,
		Category:    r.Category,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		CompletedAt: r.CompletedAt,
	}
	g.ApplyDefaults()
	return g
}

// GoalsFromRecords converts a slice of remote records.
func GoalsFromRecords(rs []GoalRecord) []models.Goal {
	goals := make([]models.Goal, 0, len(rs))
	for _, r := range rs {
		goals = append(goals, GoalFromRecord(r))
	}
	return goals
}

// GoalsToRecords converts a slice of goals.
func GoalsToRecords(gs []models.Goal) []GoalRecord {
	records := make([]GoalRecord, 0, len(gs))
	for _, g := range gs {
		records = append(records, GoalToRecord(g))
	}
	return records
}

// StatisticsRecord is the remote statistics row.
type StatisticsRecord struct {
	TotalTasksCreated   int        `json:"total_tasks_created"`
	TotalTasksCompleted int        `json:"total_tasks_completed"`
	TotalGoalsCreated   int        `json:"total_goals_created"`
	TotalGoalsCompleted int        `json:"total_goals_completed"`
	StreakDays          int        `json:"streak_days"`
	LastActiveDate      *time.Time `json:"last_active_date"`
}

// StatisticsToRecord converts statistics to their remote shape.
func StatisticsToRecord(s models.Statistics) StatisticsRecord {
	return StatisticsRecord(s)
}

// StatisticsFromRecord converts a remote record to statistics.
func StatisticsFromRecord(r StatisticsRecord) models.Statistics {
	return models.Statistics(r)
}

// SnapshotRecord is the remote export document.
type SnapshotRecord struct {
	Tasks      []TaskRecord      `json:"tasks"`
	Goals      []GoalRecord      `json:"goals"`
	Settings   models.Settings   `json:"settings"`
	Statistics *StatisticsRecord `json:"statistics,omitempty"`
	ExportDate time.Time         `json:"exportDate"`
	Version    string            `json:"version"`
}

// SnapshotToRecord converts a snapshot to its remote shape.
func SnapshotToRecord(s models.Snapshot) SnapshotRecord {
	var stats *StatisticsRecord
	if s.Statistics != nil {
		r := StatisticsToRecord(*s.Statistics)
		stats = &r
	}
	return SnapshotRecord{
		Tasks:      TasksToRecords(s.Tasks),
		Goals:      GoalsToRecords(s.Goals),
		Settings:   s.Settings,
		Statistics: stats,
		ExportDate: s.ExportDate,
		Version:    s.Version,
	}
}

// SnapshotFromRecord converts a remote export document to a snapshot.
func SnapshotFromRecord(r SnapshotRecord) models.Snapshot {
	var stats *models.Statistics
	if r.Statistics != nil {
		s := StatisticsFromRecord(*r.Statistics)
		stats = &s
	}
	return models.Snapshot{
		Tasks:      TasksFromRecords(r.Tasks),
		Goals:      GoalsFromRecords(r.Goals),
		Settings:   r.Settings,
		Statistics: stats,
		ExportDate: r.ExportDate,
		Version:    r.Version,
	}
}
