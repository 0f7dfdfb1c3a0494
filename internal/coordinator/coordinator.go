// Package coordinator routes persistence calls to the remote backend while it
// is reachable and to the local cache otherwise.
package coordinator

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"goaltracker/internal/metrics"
	"goaltracker/internal/models"
	"goaltracker/internal/store"
)

// Mode names the backend currently serving calls.
type Mode int

const (
	Local Mode = iota
	Remote
)

func (m Mode) String() string {
	if m == Remote {
		return "remote"
	}
	return "local"
}

// ErrNoRemote is returned by operations that need a remote backend when none
// is configured.
var ErrNoRemote = errors.New("no remote backend configured")

// ModeChangeFunc is called after every mode switch. cause is nil for an
// explicit reconnect.
type ModeChangeFunc func(from, to Mode, cause error)

// Coordinator implements store.Store over a local cache and an optional
// remote backend. A connectivity failure in remote mode latches the
// coordinator into local mode; only Reconnect moves it back.
type Coordinator struct {
	local  store.Store
	remote store.Store

	logger   *zap.SugaredLogger
	metrics  *metrics.Metrics
	onChange ModeChangeFunc

	mu   sync.Mutex
	mode Mode
}

var _ store.Store = (*Coordinator)(nil)

type Option func(*Coordinator)

func WithLogger(logger *zap.SugaredLogger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// OnModeChange registers a callback for mode switches.
func OnModeChange(fn ModeChangeFunc) Option {
	return func(c *Coordinator) { c.onChange = fn }
}

// New creates a coordinator in local mode. remote may be nil.
func New(local, remote store.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		local:  local,
		remote: remote,
		logger: zap.NewNop().Sugar(),
		mode:   Local,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start picks the initial mode: remote when a remote backend is configured
// and answers a ping, local otherwise.
func (c *Coordinator) Start(ctx context.Context) Mode {
	if c.remote == nil {
		c.logger.Infow("no remote backend configured, using local cache")
		c.setMode(Local, nil)
		return Local
	}
	if err := c.remote.Ping(ctx); err != nil {
		c.logger.Warnw("remote backend unreachable, using local cache", "error", err)
		c.setMode(Local, err)
		return Local
	}
	c.setMode(Remote, nil)
	return Remote
}

// Mode returns the current mode.
func (c *Coordinator) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// HasRemote reports whether a remote backend is configured.
func (c *Coordinator) HasRemote() bool {
	return c.remote != nil
}

// Reconnect pings the remote backend and switches to remote mode when it
// answers. Local changes made in the meantime are not uploaded.
func (c *Coordinator) Reconnect(ctx context.Context) error {
	if c.remote == nil {
		return ErrNoRemote
	}
	if err := c.remote.Ping(ctx); err != nil {
		return err
	}
	c.setMode(Remote, nil)
	return nil
}

func (c *Coordinator) setMode(to Mode, cause error) {
	c.mu.Lock()
	from := c.mode
	c.mode = to
	c.mu.Unlock()

	c.metrics.SetRemote(to == Remote)
	if from == to {
		return
	}
	c.logger.Infow("backend mode changed", "from", from, "to", to)
	if c.onChange != nil {
		c.onChange(from, to, cause)
	}
}

// fallback latches local mode after a connectivity failure. It returns false
// when another call already switched.
func (c *Coordinator) fallback(op string, cause error) bool {
	c.mu.Lock()
	if c.mode != Remote {
		c.mu.Unlock()
		return false
	}
	c.mode = Local
	c.mu.Unlock()

	c.metrics.Fallback()
	c.metrics.SetRemote(false)
	c.logger.Warnw("remote backend failed, falling back to local cache", "op", op, "error", cause)
	if c.onChange != nil {
		c.onChange(Remote, Local, cause)
	}
	return true
}

func (c *Coordinator) current() (store.Store, Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode == Remote && c.remote != nil {
		return c.remote, Remote
	}
	return c.local, Local
}

// call runs fn against the active backend. A connectivity failure in remote
// mode switches to local and runs fn once more there; other errors pass
// through untouched.
func call[T any](c *Coordinator, op string, fn func(store.Store) (T, error)) (T, error) {
	backend, mode := c.current()
	v, err := fn(backend)
	if err == nil || mode != Remote || !models.IsConnectivity(err) {
		return v, err
	}
	c.fallback(op, err)
	return fn(c.local)
}

func exec(c *Coordinator, op string, fn func(store.Store) error) error {
	_, err := call(c, op, func(s store.Store) (struct{}, error) {
		return struct{}{}, fn(s)
	})
	return err
}

func (c *Coordinator) Ping(ctx context.Context) error {
	backend, _ := c.current()
	return backend.Ping(ctx)
}

func (c *Coordinator) ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	return call(c, "list tasks", func(s store.Store) ([]models.Task, error) {
		return s.ListTasks(ctx, filter)
	})
}

func (c *Coordinator) GetTask(ctx context.Context, id string) (*models.Task, error) {
	return call(c, "get task", func(s store.Store) (*models.Task, error) {
		return s.GetTask(ctx, id)
	})
}

func (c *Coordinator) CreateTask(ctx context.Context, task *models.Task) (*models.Task, error) {
	return call(c, "create task", func(s store.Store) (*models.Task, error) {
		return s.CreateTask(ctx, task)
	})
}

func (c *Coordinator) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (*models.Task, error) {
	return call(c, "update task", func(s store.Store) (*models.Task, error) {
		return s.UpdateTask(ctx, id, patch)
	})
}

func (c *Coordinator) DeleteTask(ctx context.Context, id string) error {
	return exec(c, "delete task", func(s store.Store) error {
		return s.DeleteTask(ctx, id)
	})
}

func (c *Coordinator) ListGoals(ctx context.Context) ([]models.Goal, error) {
	return call(c, "list goals", func(s store.Store) ([]models.Goal, error) {
		return s.ListGoals(ctx)
	})
}

func (c *Coordinator) GetGoal(ctx context.Context, id string) (*models.Goal, error) {
	return call(c, "get goal", func(s store.Store) (*models.Goal, error) {
		return s.GetGoal(ctx, id)
	})
}

func (c *Coordinator) CreateGoal(ctx context.Context, goal *models.Goal) (*models.Goal, error) {
	return call(c, "create goal", func(s store.Store) (*models.Goal, error) {
		return s.CreateGoal(ctx, goal)
	})
}

func (c *Coordinator) UpdateGoal(ctx context.Context, id string, patch models.GoalPatch) (*models.Goal, error) {
	return call(c, "update goal", func(s store.Store) (*models.Goal, error) {
		return s.UpdateGoal(ctx, id, patch)
	})
}

func (c *Coordinator) DeleteGoal(ctx context.Context, id string) error {
	return exec(c, "delete goal", func(s store.Store) error {
		return s.DeleteGoal(ctx, id)
	})
}

func (c *Coordinator) GetSettings(ctx context.Context) (models.Settings, error) {
	return call(c, "get settings", func(s store.Store) (models.Settings, error) {
		return s.GetSettings(ctx)
	})
}

func (c *Coordinator) PutSetting(ctx context.Context, key string, value any) error {
	return exec(c, "put setting", func(s store.Store) error {
		return s.PutSetting(ctx, key, value)
	})
}

func (c *Coordinator) GetStatistics(ctx context.Context) (*models.Statistics, error) {
	return call(c, "get statistics", func(s store.Store) (*models.Statistics, error) {
		return s.GetStatistics(ctx)
	})
}

func (c *Coordinator) UpdateStatistics(ctx context.Context, patch models.StatisticsPatch) (*models.Statistics, error) {
	return call(c, "update statistics", func(s store.Store) (*models.Statistics, error) {
		return s.UpdateStatistics(ctx, patch)
	})
}

func (c *Coordinator) ExportAll(ctx context.Context) (*models.Snapshot, error) {
	return call(c, "export", func(s store.Store) (*models.Snapshot, error) {
		return s.ExportAll(ctx)
	})
}

func (c *Coordinator) ImportAll(ctx context.Context, snapshot *models.Snapshot) error {
	return exec(c, "import", func(s store.Store) error {
		return s.ImportAll(ctx, snapshot)
	})
}
