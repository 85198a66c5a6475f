package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/tmarchal/chantier/internal/api"
	"github.com/tmarchal/chantier/internal/assignment"
	"github.com/tmarchal/chantier/internal/config"
	"github.com/tmarchal/chantier/internal/contact"
	"github.com/tmarchal/chantier/internal/metrics"
	"github.com/tmarchal/chantier/internal/object"
	"github.com/tmarchal/chantier/internal/ratelimit"
	"github.com/tmarchal/chantier/internal/task"
	"github.com/tmarchal/chantier/internal/team"
	"github.com/tmarchal/chantier/internal/user"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Chantier API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// sessionCleanupInterval controls how often expired sessions are purged.
const sessionCleanupInterval = time.Hour

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return err
	}
	slog.Info("connected to database")

	m := metrics.New()
	m.RegisterDBPoolCollector(func() (total, idle, acquired int32) {
		st := pool.Stat()
		return st.TotalConns(), st.IdleConns(), st.AcquiredConns()
	})

	userStore := user.NewStore(pool, cfg.Session.TTL)
	contactStore := contact.NewStore(pool)
	objectStore := object.NewStore(pool)
	assignmentStore := assignment.NewStore(pool)
	taskStore := task.NewStore(pool)
	teamService := team.NewService(team.NewPgStore(pool))

	limiter := ratelimit.New(cfg.RateLimit.Default, cfg.RateLimit.Window)

	go cleanSessions(ctx, userStore)

	router := api.NewRouter(api.RouterDeps{
		Users:       userStore,
		Contacts:    contactStore,
		Objects:     objectStore,
		Assignments: assignmentStore,
		Tasks:       taskStore,
		Teams:       teamService,
		Limiter:     limiter,
		Metrics:     m,
		Config:      cfg,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	return srv.Shutdown(shutdownCtx)
}

func cleanSessions(ctx context.Context, store *user.Store) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.CleanExpiredSessions(ctx)
			if err != nil {
				slog.Error("session cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("expired sessions removed", "count", n)
			}
		}
	}
}
