package secrets

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSource struct {
	calls int32
	creds Credentials
	err   error
}

func (f *fakeSource) Fetch(context.Context) (Credentials, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return Credentials{}, f.err
	}
	return f.creds, nil
}

func TestCacheGet(t *testing.T) {
	ctx := context.Background()
	creds := Credentials{Username: "svc", Password: "s3cr3t", Host: "db.internal", Port: 5432, DBName: "console"}

	t.Run("serves from cache within ttl", func(t *testing.T) {
		src := &fakeSource{creds: creds}
		c := NewCache(src, time.Minute, zap.NewNop())

		for i := 0; i < 5; i++ {
			got, err := c.Get(ctx)
			require.NoError(t, err)
			require.Equal(t, creds, got)
		}
		require.EqualValues(t, 1, atomic.LoadInt32(&src.calls))
	})

	t.Run("invalidate forces a refetch", func(t *testing.T) {
		src := &fakeSource{creds: creds}
		c := NewCache(src, time.Minute, zap.NewNop())

		_, err := c.Get(ctx)
		require.NoError(t, err)
		c.Invalidate()
		_, err = c.Get(ctx)
		require.NoError(t, err)
		require.EqualValues(t, 2, atomic.LoadInt32(&src.calls))
	})

	t.Run("source failure is not cached", func(t *testing.T) {
		src := &fakeSource{err: errors.New("sealed")}
		c := NewCache(src, time.Minute, zap.NewNop())

		_, err := c.Get(ctx)
		require.Error(t, err)

		src.err = nil
		src.creds = creds
		got, err := c.Get(ctx)
		require.NoError(t, err)
		require.Equal(t, creds, got)
	})

	t.Run("concurrent cold reads collapse to one fetch", func(t *testing.T) {
		src := &fakeSource{creds: creds}
		c := NewCache(src, time.Minute, zap.NewNop())

		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = c.Get(ctx)
			}()
		}
		wg.Wait()
		require.LessOrEqual(t, atomic.LoadInt32(&src.calls), int32(2))
	})
}

func TestNum(t *testing.T) {
	require.Equal(t, 5432, num(float64(5432)))
	require.Equal(t, 3306, num("3306"))
	require.Equal(t, 7, num(7))
	require.Equal(t, 0, num(nil))
}
