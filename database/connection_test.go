package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquire_ExhaustedPoolTimesOut(t *testing.T) {
	ctx := context.Background()
	m, err := Open(ctx, Config{
		Driver:         DriverSQLite,
		Database:       filepath.Join(t.TempDir(), "pool.db"),
		Max:            1,
		ConnectTimeout: 200 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	products := newProducts(t, m)

	held, err := m.acquire(ctx)
	require.NoError(t, err)

	start := time.Now()
	_, err = products.ListAll(ctx)
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrConnection)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, elapsed, 150*time.Millisecond, "acquisition waits for ConnectTimeout")

	require.NoError(t, held.Close())
	_, err = products.ListAll(ctx)
	assert.NoError(t, err, "released connection is reused")
}

func TestAcquire_CanceledContext(t *testing.T) {
	m := newTestManager(t)
	products := newProducts(t, m)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := products.ListAll(ctx)
	assert.ErrorIs(t, err, ErrConnection)
	assert.ErrorIs(t, err, context.Canceled)
}
