package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"goaltracker/internal/coordinator"
	"goaltracker/internal/ui"
)

func newSyncCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Inspect the storage mode and move data between local and remote",
	}
	cmd.AddCommand(newSyncStatusCmd(a), newSyncReconnectCmd(a), newSyncMigrateCmd(a))
	return cmd
}

func newSyncStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which backend is in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd.Context(), func(s *session) error {
				a.println(ui.Heading(ui.IconSync, "Sync status"))
				a.println(ui.LabelValue("Mode", modeBadge(s)))
				remoteURL := a.cfg.Remote.URL
				if remoteURL == "" {
					remoteURL = ui.Muted.Render("not configured")
				}
				a.println(ui.LabelValue("Server", remoteURL))
				a.println(ui.LabelValue("Local cache", a.cfg.Local.Path))
				a.println(ui.LabelValue("Tasks", len(s.tasks.Tasks())))
				a.println(ui.LabelValue("Goals", len(s.goals.Goals())))
				return nil
			})
		},
	}
}

func newSyncReconnectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reconnect",
		Short: "Probe the server and switch back to remote mode if it answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd.Context(), func(s *session) error {
				if err := s.coord.Reconnect(cmd.Context()); err != nil {
					return err
				}
				a.println(ui.Good.Render(ui.IconRemote + " connected to " + a.cfg.Remote.URL))
				return nil
			})
		},
	}
}

func newSyncMigrateCmd(a *app) *cobra.Command {
	var direction string
	var yes bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Replace the data on one side with the data from the other",
		Long: "migrate copies every task, goal, setting and statistic from the source to the destination, " +
			"replacing what the destination holds. Without --yes it only shows what would change.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := coordinator.ParseDirection(direction)
			if err != nil {
				return err
			}
			return a.withSession(cmd.Context(), func(s *session) error {
				plan, err := s.coord.PlanMigration(cmd.Context(), dir)
				if err != nil {
					return err
				}
				a.println(ui.Heading(ui.IconBox, "Migration "+string(plan.Direction)))
				a.println(ui.LabelValue("Copy", fmt.Sprintf("%d tasks, %d goals", plan.Tasks(), plan.Goals())))
				a.println(ui.LabelValue("Replace", fmt.Sprintf("%d tasks, %d goals", plan.ReplacedTasks, plan.ReplacedGoals)))
				if !yes {
					a.println(ui.Warn.Render(ui.IconWarn + " nothing written; rerun with --yes to apply"))
					return nil
				}
				if err := s.coord.ApplyMigration(cmd.Context(), plan); err != nil {
					return err
				}
				a.println(ui.Good.Render(ui.IconDone + " migration applied"))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&direction, "direction", string(coordinator.LocalToRemote),
		fmt.Sprintf("%s or %s", coordinator.LocalToRemote, coordinator.RemoteToLocal))
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Apply the migration")
	return cmd
}
