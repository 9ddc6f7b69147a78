package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tenant-console-api/internal/core/secrets"
)

var ErrUnsupportedDriver = errors.New("database: unsupported driver")

type Opts struct {
	Driver         string
	MaxOpenConns   int
	MaxIdleConns   int
	IdleTimeout    time.Duration
	ConnectTimeout time.Duration
	LogLevel       string
	Retry          RetryPolicy
}

// Manager owns the single pooled connection to the relational store. The pool
// is built lazily on first use from credentials fetched through the secret
// cache, survives across requests, and is torn down only on process shutdown.
type Manager struct {
	opts  Opts
	creds *secrets.Cache
	log   *zap.Logger

	g singleflight.Group

	mu sync.Mutex // guards db only; never held across credential fetch or dial
	db *gorm.DB
}

func NewManager(opts Opts, creds *secrets.Cache, log *zap.Logger) *Manager {
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 10
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 5
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 30 * time.Second
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.Retry.MaxRetries == 0 {
		opts.Retry = DefaultRetryPolicy()
	}
	return &Manager{opts: opts, creds: creds, log: log}
}

// DB returns the live pool, opening it on first use. A credential rejection
// invalidates the cached secret and the open is retried with a fresh one.
// The fetch and dial happen outside m.mu; concurrent first users collapse
// into one open and waiters stay cancellable through their own context.
func (m *Manager) DB(ctx context.Context) (*gorm.DB, error) {
	m.mu.Lock()
	if m.db != nil {
		db := m.db
		m.mu.Unlock()
		return db, nil
	}
	m.mu.Unlock()

	ch := m.g.DoChan("open", func() (any, error) {
		// an earlier flight may have installed the pool already
		m.mu.Lock()
		if m.db != nil {
			db := m.db
			m.mu.Unlock()
			return db, nil
		}
		m.mu.Unlock()

		var db *gorm.DB
		err := m.opts.Retry.Run(ctx, func() error {
			d, err := m.open(ctx)
			if err != nil {
				if isAuthError(err) {
					m.creds.Invalidate()
					// auth failures are worth one more attempt with new creds
					return fmt.Errorf("stale credentials: %w", err)
				}
				return err
			}
			db = d
			return nil
		})
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		m.db = db
		m.mu.Unlock()
		m.log.Info("database pool ready",
			zap.String("driver", m.opts.Driver),
			zap.Int("max_open", m.opts.MaxOpenConns))
		return db, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*gorm.DB), nil
	}
}

func (m *Manager) open(ctx context.Context) (*gorm.DB, error) {
	creds, err := m.creds.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch db credentials: %w", err)
	}

	var dial gorm.Dialector
	switch m.opts.Driver {
	case "postgres":
		dial = postgres.Open(postgresDSN(creds, m.opts.ConnectTimeout))
	case "mysql":
		dial = mysql.Open(mysqlDSN(creds, m.opts.ConnectTimeout))
	default:
		return nil, ErrUnsupportedDriver
	}

	lvl := logger.Warn
	switch m.opts.LogLevel {
	case "silent":
		lvl = logger.Silent
	case "error":
		lvl = logger.Error
	case "info":
		lvl = logger.Info
	}
	db, err := gorm.Open(dial, &gorm.Config{
		Logger:         logger.Default.LogMode(lvl),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(m.opts.MaxOpenConns)
	sqlDB.SetMaxIdleConns(m.opts.MaxIdleConns)
	sqlDB.SetConnMaxIdleTime(m.opts.IdleTimeout)

	pingCtx, cancel := context.WithTimeout(ctx, m.opts.ConnectTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return db.Session(&gorm.Session{PrepareStmt: true, SkipDefaultTransaction: true}), nil
}

// Do runs fn against the pool, retrying the whole call on transient failures.
func (m *Manager) Do(ctx context.Context, fn func(db *gorm.DB) error) error {
	db, err := m.DB(ctx)
	if err != nil {
		return err
	}
	return m.opts.Retry.Run(ctx, func() error {
		return fn(db.WithContext(ctx))
	})
}

// Transaction runs fn inside a database transaction; every attempt is a fresh
// transaction so a transient failure never leaves half a batch behind.
func (m *Manager) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	db, err := m.DB(ctx)
	if err != nil {
		return err
	}
	return m.opts.Retry.Run(ctx, func() error {
		return db.WithContext(ctx).Transaction(fn)
	})
}

// Close tears down the pool. Process shutdown only.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db == nil {
		return
	}
	if sqlDB, err := m.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	m.db = nil
}

// Transport encryption is mandatory on both drivers.

func postgresDSN(c secrets.Credentials, connectTimeout time.Duration) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=require connect_timeout=%d",
		c.Host, c.Port, c.Username, c.Password, c.DBName, int(connectTimeout.Seconds()))
}

func mysqlDSN(c secrets.Credentials, connectTimeout time.Duration) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&tls=true&timeout=%ds",
		c.Username, c.Password, c.Host, c.Port, c.DBName, int(connectTimeout.Seconds()))
}
