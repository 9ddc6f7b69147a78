package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"tenant-console-api/internal/core/config"
	"tenant-console-api/internal/core/database"
	"tenant-console-api/internal/core/logger"
	"tenant-console-api/internal/core/secrets"
	"tenant-console-api/internal/core/server"
	"tenant-console-api/internal/identity"
	"tenant-console-api/internal/repo"
	"tenant-console-api/internal/service"
	"tenant-console-api/internal/transport/http/handler"
	"tenant-console-api/internal/transport/http/router"
)

// Operator server: tenant seeding and bootstrap. Tenants are created here,
// out-of-band; the tenant-facing API only ever references them.
func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := buildLog(cfg)
	defer cleanup()

	pool := mustBuildPool(cfg, log)
	defer pool.Close()

	var idp identity.Provider
	if cfg.Identity.Mode == "local" {
		idp = identity.NewLocal()
	} else {
		idp = identity.NewHTTPClient(cfg.Identity.BaseURL, cfg.Identity.Token, nil)
	}

	users := repo.NewUserRepo(pool)
	tenants := repo.NewTenantRepo(pool)
	guard := service.NewGuard(users, log)
	lifecycle := service.NewLifecycle(idp, users, guard, log)

	adminH := handler.NewAdminHandler(tenants, lifecycle, log)
	r := router.NewAdminEngine(log, cfg.App.Admin.Token, adminH)

	addr := server.Addr(cfg.App.Admin.Host, cfg.App.Admin.Port)
	srv := server.BuildServer(addr, r, 5*time.Second, 10*time.Second, 60*time.Second)

	go func() {
		log.Info("admin api starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("admin api start failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Info("admin api stopped gracefully")
}

func buildLog(cfg *config.Config) (*zap.Logger, func()) {
	if cfg.Log.File != "" {
		return logger.NewWithRotate(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File,
			cfg.Log.MaxSizeMB, cfg.Log.MaxBackups, cfg.Log.MaxAgeDays, cfg.Log.Compress)
	}
	return logger.New(cfg.Log.Level, cfg.Log.JSON)
}

func mustBuildPool(cfg *config.Config, l *zap.Logger) *database.Manager {
	src, err := secrets.NewVaultSource(cfg.Secrets.VaultAddr, cfg.Secrets.VaultToken, cfg.Secrets.SecretPath)
	if err != nil {
		l.Fatal("vault client", zap.Error(err))
	}
	credCache := secrets.NewCache(src, time.Duration(cfg.Secrets.CacheTTLMin)*time.Minute, l)
	return database.NewManager(database.Opts{
		Driver:         cfg.DB.Driver,
		MaxOpenConns:   cfg.DB.MaxOpenConns,
		MaxIdleConns:   cfg.DB.MaxIdleConns,
		IdleTimeout:    time.Duration(cfg.DB.IdleTimeoutSec) * time.Second,
		ConnectTimeout: time.Duration(cfg.DB.ConnectTimeoutSec) * time.Second,
		LogLevel:       cfg.DB.LogLevel,
		Retry: database.RetryPolicy{
			MaxRetries:   cfg.DB.Retry.MaxRetries,
			InitialDelay: time.Duration(cfg.DB.Retry.InitialDelayMs) * time.Millisecond,
			Multiplier:   cfg.DB.Retry.Multiplier,
			MaxDelay:     time.Duration(cfg.DB.Retry.MaxDelayMs) * time.Millisecond,
		},
	}, credCache, l)
}
