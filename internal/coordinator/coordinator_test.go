package coordinator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"goaltracker/internal/localcache"
	"goaltracker/internal/models"
	"goaltracker/internal/remote"
)

func setupCache(t *testing.T) *localcache.Cache {
	t.Helper()
	c, err := localcache.Open(":memory:")
	if err != nil {
		t.Fatalf("open local cache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

// flakyServer answers pings and rejects task creation with 400 until down is
// set, after which every request fails with 503.
type flakyServer struct {
	down  atomic.Bool
	calls atomic.Int32
}

func (f *flakyServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	w.Header().Set("Content-Type", "application/json")
	if f.down.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"success":false,"error":"maintenance"}`))
		return
	}
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/statistics":
		w.Write([]byte(`{"success":true,"data":{}}`))
	case r.Method == http.MethodPost && r.URL.Path == "/api/tasks":
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"success":false,"error":"title is required"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"error":"not found"}`))
	}
}

func setupFlaky(t *testing.T) (*flakyServer, *remote.Client) {
	t.Helper()
	f := &flakyServer{}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, remote.New(srv.URL + "/api")
}

func TestStart_LocalWithoutRemote(t *testing.T) {
	c := New(setupCache(t), nil)
	if mode := c.Start(context.Background()); mode != Local {
		t.Errorf("expected local mode, got %s", mode)
	}
	if err := c.Reconnect(context.Background()); err != ErrNoRemote {
		t.Errorf("expected ErrNoRemote, got %v", err)
	}
}

func TestStart_LocalWhenRemoteUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(setupCache(t), remote.New(url+"/api"))
	if mode := c.Start(context.Background()); mode != Local {
		t.Errorf("expected local mode, got %s", mode)
	}
}

func TestFallback_LatchesLocalAfterConnectivityFailure(t *testing.T) {
	ctx := context.Background()
	server, client := setupFlaky(t)
	cache := setupCache(t)

	var changes []Mode
	c := New(cache, client, OnModeChange(func(from, to Mode, cause error) {
		changes = append(changes, to)
	}))
	if mode := c.Start(ctx); mode != Remote {
		t.Fatalf("expected remote mode, got %s", mode)
	}

	server.down.Store(true)

	task, err := c.CreateTask(ctx, &models.Task{Title: "Written while offline"})
	if err != nil {
		t.Fatalf("expected create to fall back to local, got %v", err)
	}
	if c.Mode() != Local {
		t.Errorf("expected local mode after failure, got %s", c.Mode())
	}
	if _, err := cache.GetTask(ctx, task.ID); err != nil {
		t.Errorf("expected task in local cache, got %v", err)
	}

	before := server.calls.Load()
	for i := 0; i < 3; i++ {
		if _, err := c.ListTasks(ctx, models.TaskFilter{}); err != nil {
			t.Fatalf("ListTasks failed: %v", err)
		}
	}
	if server.calls.Load() != before {
		t.Errorf("expected no remote calls after fallback, got %d", server.calls.Load()-before)
	}

	if len(changes) != 2 || changes[0] != Remote || changes[1] != Local {
		t.Errorf("expected mode changes [remote local], got %v", changes)
	}
}

func TestFallback_ValidationErrorsPassThrough(t *testing.T) {
	ctx := context.Background()
	_, client := setupFlaky(t)
	c := New(setupCache(t), client)
	c.Start(ctx)

	_, err := c.CreateTask(ctx, &models.Task{Title: "rejected by server"})
	if !models.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if c.Mode() != Remote {
		t.Errorf("expected to stay in remote mode, got %s", c.Mode())
	}
}

func TestReconnect(t *testing.T) {
	ctx := context.Background()
	server, client := setupFlaky(t)
	c := New(setupCache(t), client)
	c.Start(ctx)

	server.down.Store(true)
	c.ListGoals(ctx)
	if c.Mode() != Local {
		t.Fatalf("expected local mode, got %s", c.Mode())
	}

	if err := c.Reconnect(ctx); err == nil {
		t.Error("expected reconnect to fail while server is down")
	}

	server.down.Store(false)
	if err := c.Reconnect(ctx); err != nil {
		t.Fatalf("Reconnect failed: %v", err)
	}
	if c.Mode() != Remote {
		t.Errorf("expected remote mode after reconnect, got %s", c.Mode())
	}
}
