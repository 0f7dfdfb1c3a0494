package coordinator

import (
	"context"
	"fmt"

	"goaltracker/internal/models"
	"goaltracker/internal/store"
)

// Direction selects the source and destination of a migration.
type Direction string

const (
	LocalToRemote Direction = "local-to-remote"
	RemoteToLocal Direction = "remote-to-local"
)

// ParseDirection validates a direction name.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case LocalToRemote, RemoteToLocal:
		return d, nil
	default:
		return "", models.NewValidationError("direction must be %q or %q", LocalToRemote, RemoteToLocal)
	}
}

// MigrationPlan describes a pending migration so it can be confirmed before
// anything on the destination is replaced.
type MigrationPlan struct {
	Direction Direction
	Snapshot  *models.Snapshot

	// Records currently on the destination that the migration will replace.
	ReplacedTasks int
	ReplacedGoals int
}

func (p *MigrationPlan) Tasks() int { return len(p.Snapshot.Tasks) }
func (p *MigrationPlan) Goals() int { return len(p.Snapshot.Goals) }

func (c *Coordinator) endpoints(dir Direction) (src, dst store.Store, err error) {
	if c.remote == nil {
		return nil, nil, ErrNoRemote
	}
	switch dir {
	case LocalToRemote:
		return c.local, c.remote, nil
	case RemoteToLocal:
		return c.remote, c.local, nil
	default:
		return nil, nil, models.NewValidationError("unknown migration direction %q", dir)
	}
}

// PlanMigration exports the source and counts what the destination holds.
// Nothing is written.
func (c *Coordinator) PlanMigration(ctx context.Context, dir Direction) (*MigrationPlan, error) {
	src, dst, err := c.endpoints(dir)
	if err != nil {
		return nil, err
	}

	snap, err := src.ExportAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("export source: %w", err)
	}
	existingTasks, err := dst.ListTasks(ctx, models.TaskFilter{})
	if err != nil {
		return nil, fmt.Errorf("inspect destination: %w", err)
	}
	existingGoals, err := dst.ListGoals(ctx)
	if err != nil {
		return nil, fmt.Errorf("inspect destination: %w", err)
	}

	return &MigrationPlan{
		Direction:     dir,
		Snapshot:      snap,
		ReplacedTasks: len(existingTasks),
		ReplacedGoals: len(existingGoals),
	}, nil
}

// ApplyMigration replaces the destination's data with the planned snapshot in
// one atomic import. Connectivity failures are returned, not retried locally.
func (c *Coordinator) ApplyMigration(ctx context.Context, plan *MigrationPlan) error {
	_, dst, err := c.endpoints(plan.Direction)
	if err != nil {
		return err
	}
	if err := dst.ImportAll(ctx, plan.Snapshot); err != nil {
		return fmt.Errorf("import into destination: %w", err)
	}
	c.logger.Infow("migration applied",
		"direction", plan.Direction,
		"tasks", plan.Tasks(),
		"goals", plan.Goals(),
	)
	return nil
}
