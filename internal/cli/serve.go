package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"goaltracker/internal/auth"
	"goaltracker/internal/handlers"
	"goaltracker/internal/store"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the tracker HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func (a *app) serve(ctx context.Context, addr string) error {
	dbPath := a.cfg.Server.DBPath
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	db, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.EnsureDefaultUser(ctx); err != nil {
		return fmt.Errorf("seed default user: %w", err)
	}
	if a.cfg.Auth.Required && a.cfg.Auth.Secret == "change-me" {
		a.logger.Warnw("auth is required but the default secret is in use")
	}

	h := handlers.New(db, auth.NewService(a.cfg.Auth.Secret, a.cfg.Auth.TokenTTL), handlers.Options{
		AuthRequired: a.cfg.Auth.Required,
		Logger:       a.logger,
		Metrics:      a.metrics,
	})
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Infow("server starting", "addr", addr, "db", dbPath, "auth_required", a.cfg.Auth.Required)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Infow("server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
