package testutil

import (
	"fmt"
	"time"

	"valwatch/domain/entities"
)

// CreateTestAccount creates a tracked account with default values
func CreateTestAccount(accountID, guildID int64) *entities.TrackedAccount {
	return entities.NewTrackedAccount(accountID, guildID, entities.ExternalRef{
		Region: "na",
		PUUID:  fmt.Sprintf("puuid-%d", accountID),
		Name:   fmt.Sprintf("player%d", accountID),
		Tag:    "NA1",
	}, time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC))
}

// CreateTestAccountWithStats creates a tracked account that already has a streak and window
func CreateTestAccountWithStats(accountID, guildID int64, streak int, samples ...entities.PerformanceSample) *entities.TrackedAccount {
	account := CreateTestAccount(accountID, guildID)
	account.Streak = streak
	for _, s := range samples {
		account.PushSample(s)
	}
	return account
}

// CreateTestGuildSettings creates guild settings with a polling channel and overrides
func CreateTestGuildSettings(guildID, channelID int64, cooldownSeconds, streakThreshold int) *entities.GuildSettings {
	return &entities.GuildSettings{
		GuildID:          guildID,
		PollingChannelID: &channelID,
		CooldownSeconds:  &cooldownSeconds,
		StreakThreshold:  &streakThreshold,
		FeedingMessages:  []string{"{player} is feeding"},
		StreakMessages:   []string{"{player} is on a {magnitude} game {direction} streak"},
	}
}
