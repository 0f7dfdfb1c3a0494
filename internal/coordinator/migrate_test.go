package coordinator

import (
	"context"
	"testing"

	"goaltracker/internal/models"
)

func TestParseDirection(t *testing.T) {
	if d, err := ParseDirection("local-to-remote"); err != nil || d != LocalToRemote {
		t.Errorf("expected local-to-remote, got %q, %v", d, err)
	}
	if _, err := ParseDirection("sideways"); !models.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestMigration_PlanThenApply(t *testing.T) {
	ctx := context.Background()
	local := setupCache(t)
	remoteStore := setupCache(t)

	goal, _ := local.CreateGoal(ctx, &models.Goal{Title: "Read more"})
	local.CreateTask(ctx, &models.Task{Title: "Chapter 1", GoalID: &goal.ID})
	local.CreateTask(ctx, &models.Task{Title: "Chapter 2", GoalID: &goal.ID})
	local.PutSetting(ctx, "theme", "dark")

	remoteStore.CreateTask(ctx, &models.Task{Title: "Stale remote task"})

	c := New(local, remoteStore)

	plan, err := c.PlanMigration(ctx, LocalToRemote)
	if err != nil {
		t.Fatalf("PlanMigration failed: %v", err)
	}
	if plan.Tasks() != 2 || plan.Goals() != 1 || plan.ReplacedTasks != 1 {
		t.Errorf("unexpected plan: tasks=%d goals=%d replaced=%d", plan.Tasks(), plan.Goals(), plan.ReplacedTasks)
	}

	tasks, _ := remoteStore.ListTasks(ctx, models.TaskFilter{})
	if len(tasks) != 1 {
		t.Fatalf("expected planning to leave destination untouched, got %d tasks", len(tasks))
	}

	if err := c.ApplyMigration(ctx, plan); err != nil {
		t.Fatalf("ApplyMigration failed: %v", err)
	}

	tasks, _ = remoteStore.ListTasks(ctx, models.TaskFilter{})
	if len(tasks) != 2 {
		t.Errorf("expected 2 migrated tasks, got %d", len(tasks))
	}
	for _, task := range tasks {
		if task.GoalID == nil || *task.GoalID != goal.ID {
			t.Errorf("expected goal link to survive migration, got %v", task.GoalID)
		}
	}
	settings, _ := remoteStore.GetSettings(ctx)
	if settings["theme"] != "dark" {
		t.Errorf("expected migrated theme dark, got %v", settings["theme"])
	}
}

func TestMigration_RequiresRemote(t *testing.T) {
	c := New(setupCache(t), nil)
	if _, err := c.PlanMigration(context.Background(), RemoteToLocal); err != ErrNoRemote {
		t.Errorf("expected ErrNoRemote, got %v", err)
	}
}
