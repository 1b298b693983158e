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

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/signal-checkin/internal/authz"
	"github.com/iliyamo/signal-checkin/internal/config"
	"github.com/iliyamo/signal-checkin/internal/database"
	"github.com/iliyamo/signal-checkin/internal/fieldcrypt"
	"github.com/iliyamo/signal-checkin/internal/handler"
	"github.com/iliyamo/signal-checkin/internal/logging"
	"github.com/iliyamo/signal-checkin/internal/queue"
	"github.com/iliyamo/signal-checkin/internal/repository"
	"github.com/iliyamo/signal-checkin/internal/router"
	"github.com/iliyamo/signal-checkin/internal/service"
)

func main() {
	if err := config.LoadDotenv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.Env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	var events service.EventPublisher
	if cfg.RabbitMQURL != "" {
		events = queue.NewPublisher(cfg.RabbitMQURL, log)
		consumer := queue.NewConsumer(cfg.RabbitMQURL, cfg.EventLogDir, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Warn("event consumer stopped", zap.Error(err))
			}
		}()
	} else {
		log.Info("RABBITMQ_URL not set; events disabled")
	}

	journal := service.New(
		repository.NewEntryRepo(db, cfg.EnforceCiphertextFormat),
		repository.NewSignupRepo(db),
		fieldcrypt.New(cfg.EncryptionKey),
		events,
		log,
		service.Options{
			StoreTimeout: cfg.StoreTimeout,
			Retries:      cfg.StoreRetries,
			ListLimit:    cfg.ListLimit,
		},
	)

	rdb := config.NewRedisClient(log)
	if rdb != nil {
		defer rdb.Close()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	router.RegisterRoutes(e, router.Deps{
		Journal:    handler.NewJournalHandler(journal),
		Resolver:   authz.NewResolver(cfg.JWTSecret, cfg.JWTAudience),
		DB:         db,
		Redis:      rdb,
		RateLimit:  config.LoadRateLimitConfig(),
		ServiceKey: cfg.ServiceRoleKey,
		Log:        log,
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.Info("listening", zap.String("addr", addr), zap.String("db", cfg.DBDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func openDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBDriver, err)
	}
	if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
