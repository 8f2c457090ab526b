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

	"go.uber.org/zap"

	"pharmacare/backend/internal/archive"
	"pharmacare/backend/internal/cache"
	"pharmacare/backend/internal/config"
	"pharmacare/backend/internal/domain"
	"pharmacare/backend/internal/httpapi"
	"pharmacare/backend/internal/notify"
	"pharmacare/backend/internal/scheduler"
	"pharmacare/backend/internal/service"
	"pharmacare/backend/internal/session"
	"pharmacare/backend/internal/store"
	"pharmacare/backend/internal/store/memory"
	pgstore "pharmacare/backend/internal/store/postgres"
	"pharmacare/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.Must(logger.New(cfg.LogLevel))
	defer func() { _ = log.Sync() }()

	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatal("invalid security configuration", zap.Error(err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 4)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback", zap.Error(err))
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Fatal("failed to prepare postgres schema", zap.Error(err))
		}
		repo = pg
		closers = append(closers, pg.Close)
		log.Info("repository: postgres")
	} else {
		repo = memory.NewSeeded(logger.Named(log, "seed"))
		log.Info("repository: in-memory")
	}

	dashboards := cache.DashboardCache(cache.NoopDashboardCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisDashboardCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Warn("redis unavailable, using noop cache", zap.Error(err))
		} else {
			dashboards = redisCache
			closers = append(closers, redisCache.Close)
			log.Info("cache: redis")
		}
	} else {
		log.Info("cache: noop")
	}

	summaries := archive.Archive(archive.NoopArchive{})
	if cfg.MongoURI != "" {
		mongoArchive, err := archive.NewMongoArchive(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			log.Warn("mongodb unavailable, daily summaries will not be archived", zap.Error(err))
		} else {
			summaries = mongoArchive
			closers = append(closers, func() error {
				closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer closeCancel()
				return mongoArchive.Close(closeCtx)
			})
			log.Info("archive: mongodb")
		}
	}

	notifier := notify.Notifier(notify.NoopNotifier{})
	if cfg.AlertWebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.AlertWebhookURL)
		log.Info("stock alerts: webhook")
	}

	svc := service.New(repo, dashboards, time.Duration(cfg.DashboardCacheTTLSeconds)*time.Second, logger.Named(log, "service"))
	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.SessionTimeoutMinutes)*time.Minute, cfg.ManagerPIN, repo, logger.Named(log, "auth"))
	if err := bootstrapAdmin(ctx, auth, cfg); err != nil {
		log.Fatal("failed to bootstrap admin account", zap.Error(err))
	}
	api := httpapi.New(svc, auth, cfg.AllowedOrigin, logger.Named(log, "http"))

	jobs := scheduler.New(svc, summaries, notifier, cfg.ReportCronSchedule, cfg.AlertCronSchedule, logger.Named(log, "scheduler"))
	if err := jobs.Start(); err != nil {
		log.Fatal("failed to start scheduler", zap.Error(err))
	}

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("pharmacy backend listening", zap.String("addr", cfg.Address()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}
	jobs.Stop(shutdownCtx)

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Error("close error", zap.Error(err))
		}
	}

	log.Info("server stopped")
}

// bootstrapAdmin creates the first admin account on an empty user table.
// The in-memory store ships its own demo users.
func bootstrapAdmin(ctx context.Context, auth *httpapi.AuthManager, cfg config.Config) error {
	users, err := auth.ListUsers(ctx)
	if err != nil {
		return err
	}
	if len(users) > 0 {
		return nil
	}
	if cfg.BootstrapAdminEmail == "" || cfg.BootstrapAdminPassword == "" {
		return fmt.Errorf("no user accounts exist; set BOOTSTRAP_ADMIN_EMAIL and BOOTSTRAP_ADMIN_PASSWORD")
	}
	_, err = auth.CreateUser(ctx, domain.UserCreateRequest{
		Email:    cfg.BootstrapAdminEmail,
		FullName: "Administrator",
		Password: cfg.BootstrapAdminPassword,
		Role:     session.RoleAdmin,
	})
	return err
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if len(cfg.ManagerPIN) < 6 {
		return fmt.Errorf("MANAGER_PIN must be set and at least 6 digits")
	}
	for _, r := range cfg.ManagerPIN {
		if r < '0' || r > '9' {
			return fmt.Errorf("MANAGER_PIN must contain digits only")
		}
	}
	if err := validatePINStrength(cfg.ManagerPIN); err != nil {
		return fmt.Errorf("MANAGER_PIN is too weak: %w", err)
	}
	return nil
}

// validatePINStrength rejects repeated digits, straight runs like 123456 or
// 987654, and a short list of common PINs.
func validatePINStrength(pin string) error {
	common := map[string]bool{
		"000000": true, "111111": true, "121212": true, "112233": true,
		"123123": true, "123321": true, "102030": true, "696969": true,
	}
	if common[pin] {
		return fmt.Errorf("common PIN not allowed")
	}

	repeated := true
	ascending, descending := true, true
	for i := 1; i < len(pin); i++ {
		if pin[i] != pin[0] {
			repeated = false
		}
		diff := int(pin[i]) - int(pin[i-1])
		if diff != 1 {
			ascending = false
		}
		if diff != -1 {
			descending = false
		}
	}
	switch {
	case repeated:
		return fmt.Errorf("repeated-digit PIN not allowed")
	case ascending || descending:
		return fmt.Errorf("sequential PIN not allowed")
	}
	return nil
}
