package resource

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Memory(t *testing.T) {
	// Test with limit
	c := NewController(Config{MemoryLimitBytes: 100})

	// Acquire 50
	err := c.AcquireMemory(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, int64(50), c.MemoryUsage())

	// Acquire 40
	err = c.AcquireMemory(context.Background(), 40)
	require.NoError(t, err)
	assert.Equal(t, int64(90), c.MemoryUsage())

	// TryAcquire 20 (should fail)
	ok := c.TryAcquireMemory(20)
	assert.False(t, ok)
	assert.Equal(t, int64(90), c.MemoryUsage())

	// Acquire 20 (should block/timeout)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err = c.AcquireMemory(ctx, 20)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// Release 50
	c.ReleaseMemory(50)
	assert.Equal(t, int64(40), c.MemoryUsage())

	// Now Acquire 20 should succeed
	err = c.AcquireMemory(context.Background(), 20)
	require.NoError(t, err)
	assert.Equal(t, int64(60), c.MemoryUsage())
}

func TestController_UnlimitedMemory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 0})

	err := c.AcquireMemory(context.Background(), 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), c.MemoryUsage())

	c.ReleaseMemory(500)
	assert.Equal(t, int64(500), c.MemoryUsage())
}

func TestController_Jobs(t *testing.T) {
	c := NewController(Config{MaxConcurrentJobs: 2})

	require.NoError(t, c.AcquireJob(context.Background()))
	require.NoError(t, c.AcquireJob(context.Background()))
	assert.Equal(t, int64(2), c.RunningJobs())

	assert.False(t, c.TryAcquireJob())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.AcquireJob(ctx), context.DeadlineExceeded)

	c.ReleaseJob()
	assert.Equal(t, int64(1), c.RunningJobs())

	assert.True(t, c.TryAcquireJob())
	assert.Equal(t, int64(2), c.RunningJobs())
}

func TestController_DefaultJobs(t *testing.T) {
	c := NewController(Config{})
	assert.Equal(t, int64(1), c.Config().MaxConcurrentJobs)
	assert.True(t, c.TryAcquireJob())
	assert.False(t, c.TryAcquireJob())
}

func TestController_RequestRate(t *testing.T) {
	c := NewController(Config{RequestsPerSecond: 0.001, Burst: 2})

	assert.True(t, c.AllowRequest())
	assert.True(t, c.AllowRequest())
	assert.False(t, c.AllowRequest())

	unlimited := NewController(Config{})
	for range 100 {
		assert.True(t, unlimited.AllowRequest())
	}
}

func TestController_Nil(t *testing.T) {
	var c *Controller
	ctx := context.Background()

	assert.True(t, c.AllowRequest())
	require.NoError(t, c.AcquireJob(ctx))
	assert.True(t, c.TryAcquireJob())
	c.ReleaseJob()
	require.NoError(t, c.AcquireMemory(ctx, 10))
	assert.True(t, c.TryAcquireMemory(10))
	c.ReleaseMemory(10)
	assert.Zero(t, c.MemoryUsage())
	assert.Zero(t, c.RunningJobs())
	require.NoError(t, c.AcquireIO(ctx, 10))
	assert.Equal(t, Config{}, c.Config())
}

func TestRateLimitedReader(t *testing.T) {
	data := strings.Repeat("x", 4096)

	t.Run("Unlimited", func(t *testing.T) {
		r := NewRateLimitedReader(context.Background(), strings.NewReader(data), NewController(Config{}))
		got, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, data, string(got))
	})

	t.Run("Limited", func(t *testing.T) {
		// Burst covers the whole payload, so reads never wait.
		c := NewController(Config{IOLimitBytesPerSec: 1 << 20})
		r := NewRateLimitedReader(context.Background(), bytes.NewReader([]byte(data)), c)
		got, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, data, string(got))
	})

	t.Run("Cancelled", func(t *testing.T) {
		c := NewController(Config{IOLimitBytesPerSec: 1})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		r := NewRateLimitedReader(ctx, strings.NewReader(data), c)
		_, err := r.Read(make([]byte, 16))
		assert.Error(t, err)
	})
}
