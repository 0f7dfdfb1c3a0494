package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"goaltracker/internal/coordinator"
	"goaltracker/internal/localcache"
	"goaltracker/internal/remote"
	"goaltracker/internal/store"
	"goaltracker/internal/tracker"
	"goaltracker/internal/ui"
)

// session is one client run: the local cache, the optional remote backend,
// the coordinator that picks between them and the stores built on top.
type session struct {
	cache *localcache.Cache
	coord *coordinator.Coordinator
	tasks *tracker.TaskStore
	goals *tracker.GoalStore
}

func (a *app) openSession(ctx context.Context) (*session, error) {
	if dir := filepath.Dir(a.cfg.Local.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create local cache directory: %w", err)
		}
	}
	cache, err := localcache.Open(a.cfg.Local.Path)
	if err != nil {
		return nil, err
	}

	var backend store.Store
	if a.cfg.Remote.URL != "" {
		backend = remote.New(a.cfg.Remote.URL,
			remote.WithToken(a.cfg.Remote.Token),
			remote.WithRetries(a.cfg.Remote.Retries),
			remote.WithLogger(a.logger),
			remote.WithHTTPClient(&http.Client{Timeout: a.cfg.Remote.Timeout}),
		)
	}

	coord := coordinator.New(cache, backend,
		coordinator.WithLogger(a.logger),
		coordinator.WithMetrics(a.metrics),
		coordinator.OnModeChange(func(from, to coordinator.Mode, cause error) {
			if from == coordinator.Remote && to == coordinator.Local {
				fmt.Fprintln(os.Stderr, ui.Warn.Render(ui.IconWarn+" server unreachable, working from the local cache"))
			}
		}),
	)
	coord.Start(ctx)

	opts := tracker.Options{Logger: a.logger, Metrics: a.metrics}
	tasks := tracker.NewTaskStore(coord, opts)
	goals := tracker.NewGoalStore(coord, tasks, opts)

	s := &session{cache: cache, coord: coord, tasks: tasks, goals: goals}
	if err := s.load(ctx); err != nil {
		cache.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) load(ctx context.Context) error {
	if _, err := s.tasks.Load(ctx); err != nil {
		return err
	}
	_, err := s.goals.Load(ctx)
	return err
}

func (s *session) Close() error {
	return s.cache.Close()
}
