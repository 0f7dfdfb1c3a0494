package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"goaltracker/internal/scheduler"
	"goaltracker/internal/ui"
)

func newAgentCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Keep recurring tasks and expirations up to date in the background",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := a.openSession(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			sched := scheduler.New(scheduler.SweepFunc(func(ctx context.Context) (bool, error) {
				ran, err := s.tasks.Sweep(ctx)
				if err != nil || !ran {
					return ran, err
				}
				_, err = s.goals.Load(ctx)
				return true, err
			}), a.cfg.Sweep.Interval, a.logger)
			if err := sched.Start(ctx); err != nil {
				return err
			}

			a.println(ui.Heading(ui.IconLoop, "agent running"))
			a.println(ui.LabelValue("Mode", s.coord.Mode()))
			a.println(ui.LabelValue("Interval", a.cfg.Sweep.Interval))

			<-ctx.Done()
			sched.Stop()
			a.println(ui.Muted.Render("agent stopped"))
			return nil
		},
	}
	return cmd
}
