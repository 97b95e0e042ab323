package repository

import (
	"context"
	"strconv"
	"time"

	"valwatch/domain/entities"
	"valwatch/domain/interfaces"

	"github.com/patrickmn/go-cache"
)

// CachedGuildSettings memoizes guild settings lookups. Misses are cached too, so guilds without
// settings do not hit the database on every account turn.
type CachedGuildSettings struct {
	next  interfaces.GuildSettingsRepository
	cache *cache.Cache
}

// NewCachedGuildSettings wraps a guild settings repository with a TTL cache
func NewCachedGuildSettings(next interfaces.GuildSettingsRepository, ttl time.Duration) *CachedGuildSettings {
	return &CachedGuildSettings{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

// GetGuildSettings returns a copy of the cached settings, loading them on a miss
func (c *CachedGuildSettings) GetGuildSettings(ctx context.Context, guildID int64) (*entities.GuildSettings, error) {
	key := strconv.FormatInt(guildID, 10)

	if cached, found := c.cache.Get(key); found {
		settings, _ := cached.(*entities.GuildSettings)
		return copySettings(settings), nil
	}

	settings, err := c.next.GetGuildSettings(ctx, guildID)
	if err != nil {
		return nil, err
	}

	c.cache.SetDefault(key, copySettings(settings))
	return settings, nil
}

// Invalidate drops the cached settings of a guild
func (c *CachedGuildSettings) Invalidate(guildID int64) {
	c.cache.Delete(strconv.FormatInt(guildID, 10))
}

func copySettings(settings *entities.GuildSettings) *entities.GuildSettings {
	if settings == nil {
		return nil
	}
	copied := *settings
	copied.FeedingMessages = append([]string(nil), settings.FeedingMessages...)
	copied.StreakMessages = append([]string(nil), settings.StreakMessages...)
	return &copied
}
