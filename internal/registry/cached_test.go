package registry_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cwrk-planet/tempvoice/internal/domain"
	"github.com/cwrk-planet/tempvoice/internal/registry"
	"github.com/cwrk-planet/tempvoice/internal/registry/registrytest"
	"github.com/cwrk-planet/tempvoice/internal/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapCache struct {
	mu   sync.Mutex
	data map[string]string
	gets int
	fail bool
}

func newMapCache() *mapCache { return &mapCache{data: map[string]string{}} }

func (m *mapCache) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.fail {
		return "", false, errors.New("cache down")
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("cache down")
	}
	m.data[key] = value
	return nil
}

func (m *mapCache) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("cache down")
	}
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *mapCache) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

func newSQLite(t *testing.T) registry.Registry {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, sqlite.Config{Path: ":memory:"})
	require.NoError(t, err)
	r := sqlite.NewRegistry(db)
	require.NoError(t, r.Migrate(ctx))
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestCachedContract(t *testing.T) {
	registrytest.Run(t, func(t *testing.T) registry.Registry {
		return registry.NewCached(newSQLite(t), newMapCache(), time.Minute, nil)
	})
}

func TestCachedInvalidatesOnMutation(t *testing.T) {
	ctx := context.Background()
	cache := newMapCache()
	r := registry.NewCached(newSQLite(t), cache, time.Minute, nil)

	ok, err := r.IsActiveRoom(ctx, "201", "1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, cache.has("tv:room:1:201"))

	out, err := r.RegisterRoom(ctx, "201", "room", "100", "1", "42")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, out)
	assert.False(t, cache.has("tv:room:1:201"))

	ok, err = r.IsActiveRoom(ctx, "201", "1")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = r.DeactivateRoom(ctx, "201", "1")
	require.NoError(t, err)

	ok, err = r.IsActiveRoom(ctx, "201", "1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCachedFallsThroughWhenCacheFails(t *testing.T) {
	ctx := context.Background()
	cache := newMapCache()
	cache.fail = true
	r := registry.NewCached(newSQLite(t), cache, time.Minute, nil)

	out, err := r.MarkGenerator(ctx, "100", "Voice", "1")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, out)

	ok, err := r.IsGeneratorCategory(ctx, "100", "1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCachedServesHits(t *testing.T) {
	ctx := context.Background()
	cache := newMapCache()
	r := registry.NewCached(newSQLite(t), cache, time.Minute, nil)

	_, err := r.MarkGenerator(ctx, "100", "Voice", "1")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		ok, err := r.IsGeneratorCategory(ctx, "100", "1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, 3, cache.gets)
	assert.True(t, cache.has("tv:gen:1:100"))
}

func TestResult(t *testing.T) {
	out, err := registry.Result(1, domain.OutcomeNotFound, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, out)

	out, err = registry.Result(0, domain.OutcomeNotFound, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNotFound, out)

	out, err = registry.Result(0, domain.OutcomeNotFound, domain.ErrAlreadyExists)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeDuplicate, out)

	boom := errors.New("disk full")
	out, err = registry.Result(0, domain.OutcomeNotFound, boom)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, domain.OutcomeUnexpected, out)
}
