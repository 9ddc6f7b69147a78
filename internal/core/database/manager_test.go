package database

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tenant-console-api/internal/core/secrets"
)

// stallSource blocks Fetch until released, signalling entry once.
type stallSource struct {
	enterOnce sync.Once
	entered   chan struct{}
	release   chan struct{}
}

func newStallSource() *stallSource {
	return &stallSource{entered: make(chan struct{}), release: make(chan struct{})}
}

func (s *stallSource) Fetch(ctx context.Context) (secrets.Credentials, error) {
	s.enterOnce.Do(func() { close(s.entered) })
	select {
	case <-s.release:
		return secrets.Credentials{}, errors.New("vault sealed")
	case <-ctx.Done():
		return secrets.Credentials{}, ctx.Err()
	}
}

type staticSource struct{ creds secrets.Credentials }

func (s staticSource) Fetch(context.Context) (secrets.Credentials, error) { return s.creds, nil }

func fastManagerOpts(driver string) Opts {
	return Opts{
		Driver: driver,
		Retry: RetryPolicy{
			MaxRetries:   1,
			InitialDelay: time.Millisecond,
			Multiplier:   1,
			MaxDelay:     time.Millisecond,
		},
	}
}

func TestManagerDBWaiterHonorsContext(t *testing.T) {
	src := newStallSource()
	m := NewManager(fastManagerOpts("postgres"),
		secrets.NewCache(src, time.Minute, zap.NewNop()), zap.NewNop())

	opener := make(chan error, 1)
	go func() {
		_, err := m.DB(context.Background())
		opener <- err
	}()
	<-src.entered

	// a second caller joins the in-flight open but backs out on its own
	// context without waiting for the stalled credential fetch
	cctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.DB(cctx)
	require.ErrorIs(t, err, context.Canceled)

	close(src.release)
	err = <-opener
	require.Error(t, err)
	require.Contains(t, err.Error(), "vault sealed")
}

func TestManagerDBUnsupportedDriver(t *testing.T) {
	src := staticSource{creds: secrets.Credentials{
		Username: "svc", Password: "x", Host: "db.internal", Port: 5432, DBName: "console",
	}}
	m := NewManager(fastManagerOpts("oracle"),
		secrets.NewCache(src, time.Minute, zap.NewNop()), zap.NewNop())

	_, err := m.DB(context.Background())
	require.ErrorIs(t, err, ErrUnsupportedDriver)
}
