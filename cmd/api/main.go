package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dan9191/social-auth/internal/auth"
	"github.com/Dan9191/social-auth/internal/config"
	"github.com/Dan9191/social-auth/internal/handler"
	"github.com/Dan9191/social-auth/internal/repository"
	"github.com/Dan9191/social-auth/internal/service"
	"github.com/Dan9191/social-auth/internal/utils"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	router, cleanup, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize: %v", err)
	}
	defer cleanup()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Errorf("Server failed: %v", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Graceful shutdown failed: %v", err)
		}
	}
}

// newApp wires the store, service and handlers behind the router. The
// returned cleanup releases the database pool.
func newApp(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (http.Handler, func(), error) {
	tokens := auth.NewIssuer(cfg.JWTSecret, cfg.AccessTokenTTL)
	hasher := utils.NewPasswordHasher(cfg.BcryptCost)

	if cfg.InMemory() {
		logger.Warn("DB_CONN is memory, users are not persisted")
		svc := service.NewService(service.MemorySessions(repository.NewMemoryStore()), hasher, tokens, logger)
		h := handler.NewHandler(svc, nil, logger)
		return handler.NewRouter(h, tokens, cfg.CORS, logger), func() {}, nil
	}

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if cfg.RunMigrations {
		if err := repository.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	repo := repository.NewRepository(db)
	svc := service.NewService(service.RepositorySessions(repo), hasher, tokens, logger)
	h := handler.NewHandler(svc, repo, logger)
	return handler.NewRouter(h, tokens, cfg.CORS, logger), func() { db.Close() }, nil
}
