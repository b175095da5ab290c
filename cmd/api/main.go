package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jeremyjsx/quill/internal/config"
	"github.com/jeremyjsx/quill/internal/database"
	"github.com/jeremyjsx/quill/internal/events"
	"github.com/jeremyjsx/quill/internal/handlers"
	"github.com/jeremyjsx/quill/internal/middleware"
	"github.com/jeremyjsx/quill/internal/posts"
	"github.com/jeremyjsx/quill/internal/render"
	"github.com/jeremyjsx/quill/internal/snapshots"
	"github.com/jeremyjsx/quill/internal/storage"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("quill api stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	db, err := database.Open(startCtx, database.Config{
		Driver:          cfg.DatabaseDriver,
		URL:             cfg.DatabaseURL,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: 30 * time.Minute,
	})
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("database connected", "driver", db.Dialect())

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.RabbitMQURL != "" {
		rp, err := events.NewRabbitMQPublisher(cfg.RabbitMQURL)
		if err != nil {
			return err
		}
		defer rp.Close()
		publisher = rp
		logger.Info("publishing post events", "exchange", events.ExchangeName)
	}

	svc := posts.NewService(posts.NewSQLRepository(db), publisher, logger)

	var (
		store    storage.Storage
		exporter *snapshots.Exporter
	)
	if cfg.S3Bucket != "" {
		client, err := storage.NewS3Client(startCtx, cfg.AWSRegion, cfg.S3Endpoint)
		if err != nil {
			return err
		}
		store = storage.NewS3Storage(client, cfg.S3Bucket)
		exporter = snapshots.NewExporter(svc, store)
	}

	postsHandler := handlers.NewPostsHandler(svc, render.NewMarkdown(), logger)
	adminHandler := handlers.NewAdminHandler(svc, exporter, handlers.Admin{
		Name:  cfg.AdminName,
		Email: cfg.AdminEmail,
	}, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handlers.Health(&handlers.HealthDeps{
		DB:          db,
		Storage:     store,
		RabbitMQURL: cfg.RabbitMQURL,
	}))
	mux.HandleFunc("GET /posts", postsHandler.List())
	mux.HandleFunc("POST /posts", postsHandler.Create())
	mux.HandleFunc("GET /posts/{slug}", postsHandler.GetBySlug())
	mux.HandleFunc("GET /admin", adminHandler.Dashboard())
	mux.HandleFunc("GET /admin/posts/{id}", postsHandler.GetForEdit())
	mux.HandleFunc("PUT /admin/posts/{id}", postsHandler.Update())
	mux.HandleFunc("DELETE /admin/posts/{id}", postsHandler.Delete())
	mux.HandleFunc("POST /admin/snapshots", adminHandler.ExportSnapshot())
	mux.HandleFunc("GET /admin/snapshots/{name}", adminHandler.GetSnapshot())

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: middleware.Chain(mux,
			middleware.RequestID,
			middleware.Logging(logger),
			middleware.CORS(cfg.CORSOrigins),
		),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("quill api listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	return server.Shutdown(shutdownCtx)
}
