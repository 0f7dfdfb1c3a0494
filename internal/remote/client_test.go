package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"goaltracker/internal/auth"
	"goaltracker/internal/handlers"
	"goaltracker/internal/models"
	"goaltracker/internal/store"
)

func setupServer(t *testing.T, required bool) *Client {
	t.Helper()
	db, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.EnsureDefaultUser(context.Background()); err != nil {
		t.Fatalf("failed to create default user: %v", err)
	}

	h := handlers.New(db, auth.NewService("test-secret", time.Hour), handlers.Options{AuthRequired: required})
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return New(srv.URL + "/api")
}

func TestClient_TaskRoundTrip(t *testing.T) {
	c := setupServer(t, false)
	ctx := context.Background()

	if err := c.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	goal, err := c.CreateGoal(ctx, &models.Goal{Title: "Fitness"})
	if err != nil {
		t.Fatalf("CreateGoal failed: %v", err)
	}

	deadline := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	task, err := c.CreateTask(ctx, &models.Task{
		Title:            "Run",
		GoalID:           &goal.ID,
		Deadline:         &deadline,
		RepeatType:       models.RepeatDaily,
		RepeatInterval:   1,
		IsRepeatTemplate: true,
		NextDueDate:      &deadline,
	})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if task.GoalID == nil || *task.GoalID != goal.ID || task.NextDueDate == nil || !task.NextDueDate.Equal(deadline) {
		t.Errorf("expected fields to survive the round trip, got %+v", task)
	}

	isTemplate := true
	tasks, err := c.ListTasks(ctx, models.TaskFilter{GoalID: goal.ID, IsTemplate: &isTemplate})
	if err != nil || len(tasks) != 1 {
		t.Fatalf("expected 1 template, got %d, %v", len(tasks), err)
	}

	updated, err := c.UpdateTask(ctx, task.ID, models.TaskPatch{GoalID: models.Clear[string]()})
	if err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	if updated.GoalID != nil {
		t.Errorf("expected goal cleared, got %v", *updated.GoalID)
	}

	if err := c.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	_, err = c.GetTask(ctx, task.ID)
	var nf *models.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected not found, got %v", err)
	}
	if nf.Kind != "task" || nf.ID != task.ID {
		t.Errorf("expected not found for task %s, got %v", task.ID, err)
	}
}

func TestClient_ErrorMapping(t *testing.T) {
	c := setupServer(t, false)
	ctx := context.Background()

	if _, err := c.CreateTask(ctx, &models.Task{Title: ""}); !models.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
	if _, err := c.UpdateGoal(ctx, "missing", models.GoalPatch{Title: models.Ptr("x")}); !models.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}

	task, _ := c.CreateTask(ctx, &models.Task{ID: "fixed", Title: "First"})
	if _, err := c.CreateTask(ctx, &models.Task{ID: task.ID, Title: "Second"}); !models.IsConflict(err) {
		t.Errorf("expected conflict for duplicate id, got %v", err)
	}
}

func TestClient_ConnectivityErrors(t *testing.T) {
	ctx := context.Background()

	down := httptest.NewServer(http.NotFoundHandler())
	url := down.URL
	down.Close()
	if err := New(url + "/api").Ping(ctx); !models.IsConnectivity(err) {
		t.Errorf("expected connectivity error for closed server, got %v", err)
	}

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"success":false,"error":"upstream"}`))
	}))
	t.Cleanup(failing.Close)
	if _, err := New(failing.URL+"/api").ListGoals(ctx); !models.IsConnectivity(err) {
		t.Errorf("expected connectivity error for 502, got %v", err)
	}

	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	t.Cleanup(garbage.Close)
	if _, err := New(garbage.URL+"/api").GetSettings(ctx); !models.IsConnectivity(err) {
		t.Errorf("expected connectivity error for malformed body, got %v", err)
	}
}

func TestClient_AuthAndIsolation(t *testing.T) {
	c := setupServer(t, true)
	ctx := context.Background()

	if err := c.Ping(ctx); !models.IsConnectivity(err) {
		t.Errorf("expected unauthenticated ping to fail, got %v", err)
	}

	sess, err := c.Register(ctx, "ada", "ada@example.com", "secret1")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if sess.Token == "" || sess.User.Email != "ada@example.com" {
		t.Errorf("unexpected session: %+v", sess)
	}
	if err := c.Ping(ctx); err != nil {
		t.Fatalf("expected authenticated ping, got %v", err)
	}

	if _, err := c.Login(ctx, "ada@example.com", "nope"); !models.IsConnectivity(err) {
		t.Errorf("expected rejected login, got %v", err)
	}
	if _, err := c.Login(ctx, "ada@example.com", "secret1"); err != nil {
		t.Errorf("Login failed: %v", err)
	}
}

func TestClient_SnapshotAndSettings(t *testing.T) {
	c := setupServer(t, false)
	ctx := context.Background()

	c.CreateTask(ctx, &models.Task{Title: "Keep"})
	if err := c.PutSetting(ctx, "theme", "dark"); err != nil {
		t.Fatalf("PutSetting failed: %v", err)
	}
	stats, err := c.UpdateStatistics(ctx, models.StatisticsPatch{StreakDays: models.Ptr(5)})
	if err != nil || stats.StreakDays != 5 {
		t.Fatalf("expected streak 5, got %+v, %v", stats, err)
	}

	snap, err := c.ExportAll(ctx)
	if err != nil {
		t.Fatalf("ExportAll failed: %v", err)
	}
	if len(snap.Tasks) != 1 || snap.Settings["theme"] != "dark" || snap.Version != models.SnapshotVersion {
		t.Errorf("unexpected snapshot: %+v", snap)
	}

	snap.Tasks = append(snap.Tasks, models.Task{ID: "imported", Title: "Imported"})
	if err := c.ImportAll(ctx, snap); err != nil {
		t.Fatalf("ImportAll failed: %v", err)
	}
	tasks, _ := c.ListTasks(ctx, models.TaskFilter{})
	if len(tasks) != 2 {
		t.Errorf("expected 2 tasks after import, got %d", len(tasks))
	}
}
