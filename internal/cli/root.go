// Package cli wires the tracker's commands.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"goaltracker/internal/config"
	"goaltracker/internal/logging"
	"goaltracker/internal/metrics"
	"goaltracker/internal/ui"
)

const Version = "1.0.0"

// app is the state shared by every command once flags are parsed.
type app struct {
	configPath string
	cfg        *config.Config
	logger     *zap.SugaredLogger
	metrics    *metrics.Metrics
	out        io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{out: os.Stdout}

	cmd := &cobra.Command{
		Use:           "tracker",
		Short:         "Personal task and goal tracker",
		Long:          "tracker keeps tasks, recurring tasks and goals in a local cache or on a tracker server, falling back to the cache when the server is unreachable.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.out = cmd.OutOrStdout()
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			logger, err := logging.New(logging.Options{
				Level:   cfg.Log.Level,
				Format:  cfg.Log.Format,
				File:    cfg.Log.File,
				Console: cfg.Log.Console,
			})
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			a.cfg = cfg
			a.logger = logger
			a.metrics = metrics.New()
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")
	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file (default ./tracker.yaml or ~/.config/tracker/tracker.yaml)")

	cmd.AddCommand(
		newServeCmd(a),
		newAgentCmd(a),
		newLoginCmd(a),
		newTaskCmd(a),
		newGoalCmd(a),
		newSyncCmd(a),
		newExportCmd(a),
		newImportCmd(a),
	)
	return cmd
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Bad.Render(ui.IconError+" "+err.Error()))
		os.Exit(1)
	}
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *app) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}
