package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"caseflow.dev/caseflowlearn/internal/bootstrap"
	"caseflow.dev/caseflowlearn/internal/config"
	"caseflow.dev/caseflowlearn/internal/logging"
	searchService "caseflow.dev/caseflowlearn/internal/modules/search/service"
	"caseflow.dev/caseflowlearn/internal/server"
	"caseflow.dev/caseflowlearn/pkg/authevents"
	"caseflow.dev/caseflowlearn/pkg/database"
	"caseflow.dev/caseflowlearn/pkg/storage"
	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.LogLevel)
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.AppEnv,
			AttachStacktrace: true,
		}); err != nil {
			slog.Warn("sentry disabled", "error", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	if err := run(cfg); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.Database, cfg.IsDevelopment())
	if err != nil {
		return err
	}
	if err := bootstrap.Migrate(db); err != nil {
		return err
	}
	if err := bootstrap.SeedReferenceData(db); err != nil {
		return err
	}
	if cfg.IsDevelopment() {
		if err := bootstrap.SeedAdminUser(db); err != nil {
			return err
		}
	}

	redisClient, err := database.ConnectRedis(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient == nil {
		slog.Warn("REDIS_URL not set; caching, rate limits and pub/sub are disabled")
	} else {
		defer redisClient.Close()
	}

	fileStorage, err := storage.NewCloudinaryStorage(cfg.Cloudinary)
	if err != nil {
		return err
	}

	var meili searchService.MeiliSearchService
	if cfg.MeiliSearchHost != "" {
		host := cfg.MeiliSearchHost
		if !strings.HasPrefix(host, "http") {
			host = "http://" + host + ":7700"
		}
		meili = searchService.NewMeiliSearchService(meilisearch.New(host, meilisearch.WithAPIKey(cfg.MeiliMasterKey)))
	} else {
		slog.Warn("MEILISEARCH_HOST not set; search falls back to the database")
	}

	srv, err := server.NewServer(server.Deps{
		Config:      cfg,
		DB:          db,
		Redis:       redisClient,
		FileStorage: fileStorage,
		Meili:       meili,
		Hub:         authevents.NewHub(redisClient),
	})
	if err != nil {
		return err
	}

	srv.Scheduler().Start()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", httpServer.Addr, "env", cfg.AppEnv)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	srv.Scheduler().Stop(shutdownCtx)
	return httpServer.Shutdown(shutdownCtx)
}
