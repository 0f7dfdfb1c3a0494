// Package tracker holds the session's in-memory task and goal lists and keeps
// them consistent with the persistence backend.
package tracker

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"goaltracker/internal/metrics"
	"goaltracker/internal/recurrence"
)

// Options carries the collaborators shared by TaskStore and GoalStore. Zero
// fields get working defaults.
type Options struct {
	Logger  *zap.SugaredLogger
	Metrics *metrics.Metrics
	Engine  *recurrence.Engine
	Now     func() time.Time
	NewID   func() string
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = zap.NewNop().Sugar()
	}
	if o.Engine == nil {
		o.Engine = recurrence.New()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	return o
}
