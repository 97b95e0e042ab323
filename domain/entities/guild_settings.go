package entities

import "time"

// GuildSettings holds per-guild overrides for the watcher. The watch cycle only reads these.
type GuildSettings struct {
	GuildID          int64    `db:"guild_id"`
	PollingChannelID *int64   `db:"polling_channel_id"` // Nullable - channel for match alerts
	CooldownSeconds  *int     `db:"cooldown_seconds"`   // Nullable - overrides the default cooldown
	StreakThreshold  *int     `db:"streak_threshold"`   // Nullable - overrides the default streak alert threshold
	FeedingMessages  []string `db:"feeding_messages"`
	StreakMessages   []string `db:"streak_messages"`
}

// HasPollingChannel checks if an alert channel is configured
func (gs *GuildSettings) HasPollingChannel() bool {
	return gs != nil && gs.PollingChannelID != nil && *gs.PollingChannelID > 0
}

// Cooldown returns the guild cooldown or the provided default
func (gs *GuildSettings) Cooldown(defaultCooldown time.Duration) time.Duration {
	if gs == nil || gs.CooldownSeconds == nil || *gs.CooldownSeconds < 0 {
		return defaultCooldown
	}
	return time.Duration(*gs.CooldownSeconds) * time.Second
}

// StreakAlertThreshold returns the guild streak threshold or the provided default
func (gs *GuildSettings) StreakAlertThreshold(defaultThreshold int) int {
	if gs == nil || gs.StreakThreshold == nil || *gs.StreakThreshold < 1 {
		return defaultThreshold
	}
	return *gs.StreakThreshold
}
