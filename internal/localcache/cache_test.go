package localcache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"goaltracker/internal/models"
)

func setupTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open local cache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestOpen_InitializesDefaults(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	tasks, err := c.ListTasks(ctx, models.TaskFilter{})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("expected no tasks, got %d", len(tasks))
	}

	settings, err := c.GetSettings(ctx)
	if err != nil {
		t.Fatalf("GetSettings failed: %v", err)
	}
	if settings["theme"] != "light" || settings["autoCleanup"] != true {
		t.Errorf("expected default settings, got %v", settings)
	}
}

func TestTaskCRUD(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	created, err := c.CreateTask(ctx, &models.Task{Title: "Buy milk", Priority: models.PriorityLow})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if created.ID == "" || created.Status != models.StatusPending {
		t.Errorf("expected id and pending status, got %+v", created)
	}

	updated, err := c.UpdateTask(ctx, created.ID, models.TaskPatch{Status: models.Ptr(models.StatusCompleted)})
	if err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	if updated.Status != models.StatusCompleted {
		t.Errorf("expected status completed, got %s", updated.Status)
	}

	got, err := c.GetTask(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.Status != models.StatusCompleted {
		t.Errorf("expected persisted status completed, got %s", got.Status)
	}

	if err := c.DeleteTask(ctx, created.ID); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	if _, err := c.GetTask(ctx, created.ID); !models.IsNotFound(err) {
		t.Errorf("expected not found after delete, got %v", err)
	}

	stats, _ := c.GetStatistics(ctx)
	if stats.TotalTasksCreated != 1 {
		t.Errorf("expected 1 task created, got %d", stats.TotalTasksCreated)
	}
}

func TestTaskErrors(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	if _, err := c.CreateTask(ctx, &models.Task{}); !models.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
	if _, err := c.UpdateTask(ctx, "missing", models.TaskPatch{Title: models.Ptr("x")}); !models.IsNotFound(err) {
		t.Errorf("expected not found error, got %v", err)
	}
	if err := c.DeleteTask(ctx, "missing"); !models.IsNotFound(err) {
		t.Errorf("expected not found error, got %v", err)
	}

	c.CreateTask(ctx, &models.Task{ID: "dup", Title: "first"})
	if _, err := c.CreateTask(ctx, &models.Task{ID: "dup", Title: "second"}); !models.IsConflict(err) {
		t.Errorf("expected conflict error, got %v", err)
	}
}

func TestListTasks_FilterAndOrder(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.CreateTask(ctx, &models.Task{ID: "low", Title: "low", Priority: models.PriorityLow, CreatedAt: base})
	c.CreateTask(ctx, &models.Task{ID: "high", Title: "high", Priority: models.PriorityHigh, CreatedAt: base})
	c.CreateTask(ctx, &models.Task{ID: "tpl", Title: "tpl", IsRepeatTemplate: true, RepeatType: models.RepeatDaily, CreatedAt: base})

	tasks, _ := c.ListTasks(ctx, models.TaskFilter{IsTemplate: models.Ptr(false)})
	if len(tasks) != 2 {
		t.Fatalf("expected 2 non-template tasks, got %d", len(tasks))
	}
	if tasks[0].ID != "high" || tasks[1].ID != "low" {
		t.Errorf("expected high before low, got %s, %s", tasks[0].ID, tasks[1].ID)
	}
}

func TestGoalsSettingsStatistics(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	goal, err := c.CreateGoal(ctx, &models.Goal{Title: "Save money"})
	if err != nil {
		t.Fatalf("CreateGoal failed: %v", err)
	}
	if _, err := c.UpdateGoal(ctx, goal.ID, models.GoalPatch{Progress: models.Ptr(50)}); err != nil {
		t.Fatalf("UpdateGoal failed: %v", err)
	}
	got, _ := c.GetGoal(ctx, goal.ID)
	if got.Progress != 50 {
		t.Errorf("expected progress 50, got %d", got.Progress)
	}
	if err := c.DeleteGoal(ctx, goal.ID); err != nil {
		t.Fatalf("DeleteGoal failed: %v", err)
	}

	if err := c.PutSetting(ctx, "theme", "dark"); err != nil {
		t.Fatalf("PutSetting failed: %v", err)
	}
	settings, _ := c.GetSettings(ctx)
	if settings["theme"] != "dark" {
		t.Errorf("expected theme dark, got %v", settings["theme"])
	}

	stats, err := c.UpdateStatistics(ctx, models.StatisticsPatch{StreakDays: models.Ptr(3)})
	if err != nil {
		t.Fatalf("UpdateStatistics failed: %v", err)
	}
	if stats.StreakDays != 3 || stats.TotalGoalsCreated != 1 {
		t.Errorf("unexpected statistics: %+v", stats)
	}
}

func TestExportImport(t *testing.T) {
	src := setupTestCache(t)
	ctx := context.Background()
	src.CreateTask(ctx, &models.Task{ID: "a", Title: "A"})
	src.CreateGoal(ctx, &models.Goal{ID: "g", Title: "G"})
	src.PutSetting(ctx, "theme", "dark")

	snap, err := src.ExportAll(ctx)
	if err != nil {
		t.Fatalf("ExportAll failed: %v", err)
	}

	dst := setupTestCache(t)
	dst.CreateTask(ctx, &models.Task{ID: "stale", Title: "stale"})
	if err := dst.ImportAll(ctx, snap); err != nil {
		t.Fatalf("ImportAll failed: %v", err)
	}

	tasks, _ := dst.ListTasks(ctx, models.TaskFilter{})
	if len(tasks) != 1 || tasks[0].ID != "a" {
		t.Errorf("expected only imported task, got %+v", tasks)
	}
	stats, _ := dst.GetStatistics(ctx)
	if stats.TotalTasksCreated != 1 || stats.TotalGoalsCreated != 1 {
		t.Errorf("expected imported counters, got %+v", stats)
	}

	bad := &models.Snapshot{Tasks: []models.Task{{ID: "x"}}}
	if err := dst.ImportAll(ctx, bad); !models.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := dst.GetTask(ctx, "a"); err != nil {
		t.Errorf("expected failed import to leave data intact, got %v", err)
	}
}

func TestImportAll_KeepsStatisticsWhenSnapshotHasNone(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()
	c.CreateTask(ctx, &models.Task{ID: "a", Title: "A"})
	c.CreateTask(ctx, &models.Task{ID: "b", Title: "B"})

	snap := &models.Snapshot{Tasks: []models.Task{{ID: "c", Title: "C"}}}
	if err := c.ImportAll(ctx, snap); err != nil {
		t.Fatalf("ImportAll failed: %v", err)
	}

	stats, _ := c.GetStatistics(ctx)
	if stats.TotalTasksCreated != 2 {
		t.Errorf("expected counters to survive, got %d tasks created", stats.TotalTasksCreated)
	}
	tasks, _ := c.ListTasks(ctx, models.TaskFilter{})
	if len(tasks) != 1 || tasks[0].ID != "c" {
		t.Errorf("expected only the imported task, got %+v", tasks)
	}
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	first, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	first.CreateTask(ctx, &models.Task{ID: "kept", Title: "Kept"})
	first.Close()

	second, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	t.Cleanup(func() { second.Close() })

	if _, err := second.GetTask(ctx, "kept"); err != nil {
		t.Fatalf("expected task to survive reopen, got %v", err)
	}
}
