package registry

import (
	"context"
	"log/slog"
	"time"

	"github.com/cwrk-planet/tempvoice/internal/domain"
)

// Cache is a small string key/value store with expiry.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

const (
	cacheTrue  = "1"
	cacheFalse = "0"
)

func generatorKey(guildID, categoryID string) string { return "tv:gen:" + guildID + ":" + categoryID }
func roomKey(guildID, channelID string) string       { return "tv:room:" + guildID + ":" + channelID }

// Cached is a read-through cache in front of a Registry for the two lookups
// made on every voice event. Mutations go to the store and drop the key.
// A failing cache is logged and bypassed.
type Cached struct {
	Registry
	cache Cache
	ttl   time.Duration
	log   *slog.Logger
}

func NewCached(inner Registry, cache Cache, ttl time.Duration, log *slog.Logger) *Cached {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	return &Cached{Registry: inner, cache: cache, ttl: ttl, log: log.With("component", "registry_cache")}
}

func (c *Cached) IsGeneratorCategory(ctx context.Context, categoryID, guildID string) (bool, error) {
	return c.lookup(ctx, generatorKey(guildID, categoryID), func() (bool, error) {
		return c.Registry.IsGeneratorCategory(ctx, categoryID, guildID)
	})
}

func (c *Cached) IsActiveRoom(ctx context.Context, channelID, guildID string) (bool, error) {
	return c.lookup(ctx, roomKey(guildID, channelID), func() (bool, error) {
		return c.Registry.IsActiveRoom(ctx, channelID, guildID)
	})
}

func (c *Cached) MarkGenerator(ctx context.Context, categoryID, name, guildID string) (domain.Outcome, error) {
	defer c.drop(ctx, generatorKey(guildID, categoryID))
	return c.Registry.MarkGenerator(ctx, categoryID, name, guildID)
}

func (c *Cached) UnmarkGenerator(ctx context.Context, categoryID, guildID string) (domain.Outcome, error) {
	defer c.drop(ctx, generatorKey(guildID, categoryID))
	return c.Registry.UnmarkGenerator(ctx, categoryID, guildID)
}

func (c *Cached) RegisterRoom(ctx context.Context, channelID, name, categoryID, guildID, ownerID string) (domain.Outcome, error) {
	defer c.drop(ctx, roomKey(guildID, channelID))
	return c.Registry.RegisterRoom(ctx, channelID, name, categoryID, guildID, ownerID)
}

func (c *Cached) DeactivateRoom(ctx context.Context, channelID, guildID string) (domain.Outcome, error) {
	defer c.drop(ctx, roomKey(guildID, channelID))
	return c.Registry.DeactivateRoom(ctx, channelID, guildID)
}

func (c *Cached) lookup(ctx context.Context, key string, load func() (bool, error)) (bool, error) {
	v, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.log.WarnContext(ctx, "cache get failed", "key", key, "err", err)
	} else if ok {
		return v == cacheTrue, nil
	}

	res, err := load()
	if err != nil {
		return false, err
	}

	val := cacheFalse
	if res {
		val = cacheTrue
	}
	if err := c.cache.Set(ctx, key, val, c.ttl); err != nil {
		c.log.WarnContext(ctx, "cache set failed", "key", key, "err", err)
	}
	return res, nil
}

func (c *Cached) drop(ctx context.Context, key string) {
	if err := c.cache.Del(ctx, key); err != nil {
		c.log.WarnContext(ctx, "cache invalidate failed", "key", key, "err", err)
	}
}
