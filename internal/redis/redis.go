package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	calendarPrefix        = "calendar:"
	// kept outside calendarPrefix so invalidation never deletes it
	calendarGenerationKey = "calendar-generation"
)

func NewClient(redisAddress string, redisUsername string, redisPassword string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     redisAddress,
		Username: redisUsername,
		Password: redisPassword,
		DB:       0,
	})
}

// CalendarCache keeps rendered calendar feeds. Failures are logged and
// treated as misses so the feed is still served from the database.
type CalendarCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCalendarCache(rdb *redis.Client, ttl time.Duration) *CalendarCache {
	return &CalendarCache{rdb: rdb, ttl: ttl}
}

// Generation is the current invalidation count. A redis failure reports
// ok == false and the caller skips the cache.
func (c *CalendarCache) Generation(ctx context.Context) (string, bool) {
	gen, err := c.rdb.Get(ctx, calendarGenerationKey).Result()
	if errors.Is(err, redis.Nil) {
		return "0", true
	}
	if err != nil {
		log.Warn().Err(err).Msg("calendar cache generation read failed")
		return "", false
	}
	return gen, true
}

func (c *CalendarCache) Get(ctx context.Context, key string) ([]byte, bool) {
	raw, err := c.rdb.Get(ctx, calendarPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("key", key).Msg("calendar cache read failed")
		}
		return nil, false
	}
	return raw, true
}

func (c *CalendarCache) Set(ctx context.Context, key string, value []byte) {
	if err := c.rdb.Set(ctx, calendarPrefix+key, value, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to add calendar feed to redis")
	}
}

// Invalidate advances the generation, then drops every cached feed.
func (c *CalendarCache) Invalidate(ctx context.Context) {
	if err := c.rdb.Incr(ctx, calendarGenerationKey).Err(); err != nil {
		log.Warn().Err(err).Msg("calendar cache generation bump failed")
	}

	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, calendarPrefix+"*", 100).Result()
		if err != nil {
			log.Warn().Err(err).Msg("calendar cache scan failed")
			return
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				log.Warn().Err(err).Msg("calendar cache invalidation failed")
				return
			}
		}
		if next == 0 {
			return
		}
		cursor = next
	}
}
