package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/planora/planora/internal/api"
	"github.com/planora/planora/internal/auth"
	"github.com/planora/planora/internal/config"
	"github.com/planora/planora/internal/metrics"
	"github.com/planora/planora/internal/retry"
	"github.com/planora/planora/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Planora API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

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

	caches := store.NewCaches(store.CacheTTLs{
		Users:        cfg.Cache.UsersTTL,
		Events:       cfg.Cache.EventsTTL,
		Tasks:        cfg.Cache.TasksTTL,
		Documents:    cfg.Cache.DocumentsTTL,
		Participants: cfg.Cache.ParticipantsTTL,
	})

	exec := retry.New(cfg.Retry.MaxRetries, cfg.Retry.Delay, retry.WithOnRetry(func(attempt int) {
		m.RetryAttempt(strconv.Itoa(attempt))
	}))

	st := store.New(pool, exec, caches, m)
	authService := auth.NewService(st, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	router := api.NewRouter(api.RouterDeps{
		Store:          st,
		Auth:           authService,
		Metrics:        m,
		DBPing:         pool.Ping,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
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
