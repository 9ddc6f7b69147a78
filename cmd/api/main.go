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

	"tenant-console-api/internal/core/auth"
	"tenant-console-api/internal/core/cache"
	"tenant-console-api/internal/core/config"
	"tenant-console-api/internal/core/database"
	"tenant-console-api/internal/core/logger"
	"tenant-console-api/internal/core/secrets"
	"tenant-console-api/internal/core/server"
	"tenant-console-api/internal/domain"
	"tenant-console-api/internal/embed"
	"tenant-console-api/internal/identity"
	"tenant-console-api/internal/repo"
	"tenant-console-api/internal/service"
	"tenant-console-api/internal/transport/http/handler"
	"tenant-console-api/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := buildLog(cfg)
	defer cleanup()

	// credential source feeds the pool manager; the pool opens lazily on first use
	pool := mustBuildPool(cfg, log)
	defer pool.Close()

	if cfg.DB.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		db, err := pool.DB(ctx)
		if err != nil {
			cancel()
			log.Fatal("db open", zap.Error(err))
		}
		if err := db.AutoMigrate(&domain.Tenant{}, &domain.User{}, &domain.GovernanceRule{}); err != nil {
			cancel()
			log.Fatal("automigrate failed", zap.Error(err))
		}
		cancel()
		log.Info("automigrate done")
	}

	idp := buildIdentityProvider(cfg)

	users := repo.NewUserRepo(pool)
	gov := repo.NewGovernanceRepo(pool)

	guard := service.NewGuard(users, log)
	lifecycle := service.NewLifecycle(idp, users, guard, log)

	var rc *cache.Cache
	if cfg.Redis.Addr != "" {
		rc = cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	}
	rls := service.NewRLSBuilder(gov, rc, time.Duration(cfg.Embed.GovernanceTTLSec)*time.Second, log)
	embedClient := embed.NewClient(cfg.Embed.DashboardBaseURL, cfg.Embed.Token, time.Duration(cfg.Embed.SessionTTLMin)*time.Minute, nil)

	verifier := &auth.Verifier{Secret: []byte(cfg.JWT.Secret), Issuer: cfg.JWT.Issuer}
	userH := handler.NewUserHandler(lifecycle, rls, embedClient, log)
	r := router.NewAPIEngine(log, verifier, userH)

	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
	)

	go func() {
		log.Info("api starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("api start failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Info("api stopped gracefully")
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

func buildIdentityProvider(cfg *config.Config) identity.Provider {
	if cfg.Identity.Mode == "local" {
		return identity.NewLocal()
	}
	return identity.NewHTTPClient(cfg.Identity.BaseURL, cfg.Identity.Token, nil)
}
