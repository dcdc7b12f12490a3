package app

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/cwrk-planet/tempvoice/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func memoryConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Store.Driver = config.DriverSQLite
	cfg.Store.SQLite.Path = ":memory:"
	cfg.Reconcile.Concurrency = 2
	return cfg
}

func TestOpenStoreSQLite(t *testing.T) {
	ctx := context.Background()
	st, err := OpenStore(ctx, memoryConfig(), discard())
	require.NoError(t, err)
	defer func() { require.NoError(t, st.Close()) }()

	out, err := st.MarkGenerator(ctx, "100", "Voice", "1")
	require.NoError(t, err)
	assert.True(t, out.OK())

	ok, err := st.IsGeneratorCategory(ctx, "100", "1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	cfg := memoryConfig()
	cfg.Store.Driver = "mongo"
	_, err := OpenStore(context.Background(), cfg, discard())
	assert.Error(t, err)
}

func TestOpenStoreRedisUnreachable(t *testing.T) {
	cfg := memoryConfig()
	cfg.Redis.Addr = "127.0.0.1:1"
	_, err := OpenStore(context.Background(), cfg, discard())
	assert.ErrorContains(t, err, "redis ping")
}

func TestNewServices(t *testing.T) {
	st, err := OpenStore(context.Background(), memoryConfig(), discard())
	require.NoError(t, err)
	defer st.Close()

	svc := NewServices(st, nil, memoryConfig(), discard())
	assert.NotNil(t, svc.Rooms)
	assert.NotNil(t, svc.Generators)
	assert.NotNil(t, svc.Provisioner)
	assert.NotNil(t, svc.Reconciler)
}

func TestServeRequiresToken(t *testing.T) {
	err := Serve(context.Background(), memoryConfig(), discard())
	assert.ErrorContains(t, err, "discord.token")
}
