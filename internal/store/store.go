package store

import (
	"context"
	"sort"

	"goaltracker/internal/models"
)

// Store is the persistence contract shared by the remote API client, the
// local cache and the server's per-user view. Implementations report
// *models.NotFoundError for unknown ids, *models.ValidationError for bad
// input and *models.ConnectivityError when they cannot be reached.
type Store interface {
	// Task operations
	ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error)
	GetTask(ctx context.Context, id string) (*models.Task, error)
	CreateTask(ctx context.Context, task *models.Task) (*models.Task, error)
	UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (*models.Task, error)
	DeleteTask(ctx context.Context, id string) error

	// Goal operations
	ListGoals(ctx context.Context) ([]models.Goal, error)
	GetGoal(ctx context.Context, id string) (*models.Goal, error)
	CreateGoal(ctx context.Context, goal *models.Goal) (*models.Goal, error)
	UpdateGoal(ctx context.Context, id string, patch models.GoalPatch) (*models.Goal, error)
	DeleteGoal(ctx context.Context, id string) error

	// Settings and statistics
	GetSettings(ctx context.Context) (models.Settings, error)
	PutSetting(ctx context.Context, key string, value any) error
	GetStatistics(ctx context.Context) (*models.Statistics, error)
	UpdateStatistics(ctx context.Context, patch models.StatisticsPatch) (*models.Statistics, error)

	// Bulk transfer
	ExportAll(ctx context.Context) (*models.Snapshot, error)
	ImportAll(ctx context.Context, snapshot *models.Snapshot) error

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}

// SortTasks orders tasks by priority, then newest first.
func SortTasks(tasks []models.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		pi, pj := tasks[i].Priority.Order(), tasks[j].Priority.Order()
		if pi != pj {
			return pi < pj
		}
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
}

// SortGoals orders goals newest first.
func SortGoals(goals []models.Goal) {
	sort.SliceStable(goals, func(i, j int) bool {
		return goals[i].CreatedAt.After(goals[j].CreatedAt)
	})
}
