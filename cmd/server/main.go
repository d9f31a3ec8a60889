package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/p-n-ai/preppysphere/internal/ai"
	"github.com/p-n-ai/preppysphere/internal/api"
	"github.com/p-n-ai/preppysphere/internal/dashboard"
	"github.com/p-n-ai/preppysphere/internal/doubt"
	"github.com/p-n-ai/preppysphere/internal/events"
	"github.com/p-n-ai/preppysphere/internal/gateway"
	"github.com/p-n-ai/preppysphere/internal/issues"
	"github.com/p-n-ai/preppysphere/internal/platform/cache"
	"github.com/p-n-ai/preppysphere/internal/platform/config"
	"github.com/p-n-ai/preppysphere/internal/platform/database"
	"github.com/p-n-ai/preppysphere/internal/wellness"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.Log))

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	handler, cleanup, err := newApp(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "ai_configured", ai.CredentialUsable(cfg.AI.APIKey))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Level))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// newApp connects the stores and builds the HTTP handler. cleanup closes
// whatever was opened.
func newApp(ctx context.Context, cfg *config.Config) (http.Handler, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (http.Handler, func(), error) {
		cleanup()
		return nil, func() {}, err
	}
	checks := map[string]api.Check{}

	var kv cache.Store
	switch cfg.Cache.Driver {
	case config.DriverRedis:
		r, err := cache.NewRedis(ctx, cfg.Cache.URL, cfg.Cache.Prefix)
		if err != nil {
			return fail(fmt.Errorf("connect cache: %w", err))
		}
		closers = append(closers, func() { r.Close() })
		checks["cache"] = r.HealthCheck
		kv = r
	default:
		kv = cache.NewMemory()
	}

	var db *database.DB
	if cfg.NeedsDatabase() {
		var err error
		db, err = database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return fail(fmt.Errorf("connect database: %w", err))
		}
		closers = append(closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			return fail(err)
		}
		checks["database"] = db.HealthCheck
	}

	var eventLog events.Logger = events.NopLogger{}
	if cfg.Events.Driver == config.DriverPostgres {
		eventLog = events.NewPostgresLogger(db.Pool)
	}

	var issueStore issues.Store = issues.NewMemoryStore()
	if cfg.Issues.Driver == config.DriverPostgres {
		s, err := issues.NewPostgresStore(db.Pool)
		if err != nil {
			return fail(err)
		}
		issueStore = s
	}

	var doubtStore doubt.Store = doubt.NewMemoryStore()
	if cfg.Doubts.Driver == config.DriverPostgres {
		s, err := doubt.NewPostgresStore(db.Pool)
		if err != nil {
			return fail(err)
		}
		doubtStore = s
	}

	gwCfg := gateway.Config{
		APIKey:  cfg.AI.APIKey,
		Model:   cfg.AI.Model,
		BaseURL: cfg.AI.BaseURL,
		Cache: wellness.NewDailyCache(kv,
			wellness.WithKey(cfg.Wellness.CacheKey),
			wellness.WithVersion(cfg.Wellness.CacheVersion),
		),
		Events: eventLog,
	}
	if cfg.AI.DailyTokenBudget > 0 {
		budget := ai.NewInMemoryBudget()
		budget.SetBudget(gateway.DefaultBudgetScope, int64(cfg.AI.DailyTokenBudget))
		gwCfg.Budget = budget
	}
	if cfg.AI.Probe {
		probe, err := ai.NewDialProbe(cfg.AI.BaseURL, time.Duration(cfg.AI.ProbeTimeoutMS)*time.Millisecond)
		if err != nil {
			return fail(fmt.Errorf("reachability probe: %w", err))
		}
		gwCfg.Probe = probe
	}

	gw, err := gateway.New(gwCfg)
	if err != nil {
		return fail(err)
	}
	if !gw.Configured() {
		slog.Warn("no AI credential configured, AI features will report missing_credential")
	}

	session, err := wellness.NewSession(gw, gwCfg.Cache)
	if err != nil {
		return fail(err)
	}
	questionnaire, err := wellness.LoadQuestionnaire()
	if err != nil {
		return fail(err)
	}

	srv := api.New(api.Deps{
		Gateway:        gw,
		Issues:         issues.NewService(issueStore, gw, issues.WithEvents(eventLog)),
		Wellness:       session,
		Questionnaire:  questionnaire,
		Doubts:         doubt.NewAssistant(gw, doubtStore),
		Profiles:       dashboard.NewProfiles(kv, time.Now),
		Tasks:          dashboard.NewTodoList(kv, dashboard.TasksKey, dashboard.DefaultTasks()),
		CampusTasks:    dashboard.NewTodoList(kv, dashboard.FormalityTasksKey, nil),
		Checks:         checks,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})
	return srv.Handler(), cleanup, nil
}
