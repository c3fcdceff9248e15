package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"visitor-system-backend/config"
	"visitor-system-backend/internal/api"
	"visitor-system-backend/internal/attendance"
	"visitor-system-backend/internal/auth"
	"visitor-system-backend/internal/blob"
	"visitor-system-backend/internal/clock"
	"visitor-system-backend/internal/db"
	"visitor-system-backend/internal/document"
	"visitor-system-backend/internal/logger"
	"visitor-system-backend/internal/masterdata"
	"visitor-system-backend/internal/notification"
	"visitor-system-backend/internal/registry"
	"visitor-system-backend/internal/report"
	"visitor-system-backend/internal/store"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", configPath, err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "visitord")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	log.Info("configuration loaded", zap.String("path", configPath))

	os.Exit(exitCode(log, run(cfg, log)))
}

// exitCode logs how the server stopped and flushes the logger, which os.Exit
// would otherwise skip.
func exitCode(log *zap.Logger, err error) int {
	code := 0
	if err != nil {
		log.Error("server stopped with error", zap.Error(err))
		code = 1
	} else {
		log.Info("server gracefully stopped")
	}
	_ = log.Sync()
	return code
}

func run(cfg *config.Config, log *zap.Logger) error {
	// Initialize database
	gormDB, err := db.Init(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	appStore := store.NewGormStore(gormDB)
	log.Info("database initialized", zap.String("driver", cfg.Database.Driver))

	blobs, err := blob.NewLocalStore(cfg.Storage.UploadDir)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		webpushOptions *webpush.Options
		notifier       attendance.Notifier
		pool           *notification.WorkerPool
	)
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool = notification.NewWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize, appStore, webpushOptions, log)
		pool.Start(ctx)
		notifier = pool
		log.Info("push notifications enabled", zap.Int("workers", cfg.WorkerPool.Size))
	} else {
		log.Warn("VAPID keys are not configured; push notifications are disabled")
	}

	clk := clock.System{}
	zone := clock.NewZone(cfg.Attendance.ZoneName, cfg.Attendance.UTCOffsetHours)
	listCache := cache.New(cfg.Server.CacheTTL, 2*cfg.Server.CacheTTL)

	docs := document.NewManager(appStore, blobs, clk, document.Config{
		MaxFileSize: cfg.Storage.MaxFileSizeBytes,
		MaxPerVisit: cfg.Storage.MaxTaskLetters,
	}, log)
	master := masterdata.NewService(appStore, log, listCache.Flush)
	authSvc := auth.NewService(appStore, auth.Config{
		SecretKey:       cfg.Auth.SecretKey,
		Issuer:          cfg.Auth.Issuer,
		TokenTTL:        cfg.Auth.TokenTTL,
		AllowSetupAdmin: cfg.Auth.AllowSetupAdmin,
		BcryptCost:      cfg.Auth.BcryptCost,
	}, log)

	handler := api.NewHandler(api.Deps{
		Store:       appStore,
		Auth:        authSvc,
		Registry:    registry.New(appStore, docs, log),
		Tracker:     attendance.NewTracker(appStore, master, docs, notifier, clk, zone, log),
		Documents:   docs,
		MasterData:  master,
		Reports:     report.NewService(appStore, clk, zone, log),
		Blobs:       blobs,
		WebPush:     webpushOptions,
		MaxFileSize: cfg.Storage.MaxFileSizeBytes,
		Log:         log,
	})

	// Photo, ID card, legacy letter and the task letters, plus form fields.
	maxBody := int64(cfg.Storage.MaxTaskLetters+3)*cfg.Storage.MaxFileSizeBytes + 1<<20
	router := api.NewRouter(handler, api.RouterConfig{
		RateLimitPerSec: cfg.Server.RateLimitPerSec,
		RateLimitBurst:  cfg.Server.RateLimitBurst,
		LoginPerMinute:  cfg.Server.LoginPerMinute,
		CORSOrigins:     cfg.Server.CORSOrigins,
		Cache:           listCache,
		CacheTTL:        cfg.Server.CacheTTL,
		MaxBodyBytes:    maxBody,
		Log:             log,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Info("shutdown signal received, stopping services", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("HTTP server ListenAndServe: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server Shutdown: %w", err)
	}

	cancel()
	if pool != nil {
		pool.Wait()
	}

	if sqlDB, err := gormDB.DB(); err == nil {
		sqlDB.Close()
	}
	return nil
}
