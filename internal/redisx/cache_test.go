package redisx

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheRoundTrip(t *testing.T) {
	addr := os.Getenv("TEMPVOICE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEMPVOICE_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()

	client, err := NewClient(ctx, Config{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	c := NewCache(client, "test:"+uuid.NewString()+":")

	_, ok, err := c.Get(ctx, "tv:room:1:201")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "tv:room:1:201", "1", time.Minute))
	v, ok, err := c.Get(ctx, "tv:room:1:201")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	require.NoError(t, c.Del(ctx, "tv:room:1:201"))
	_, ok, err = c.Get(ctx, "tv:room:1:201")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewClientFailsFast(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := NewClient(ctx, Config{Addr: "127.0.0.1:1"})
	require.Error(t, err)
}
