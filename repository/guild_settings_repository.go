package repository

import (
	"context"
	"errors"
	"fmt"

	"valwatch/database"
	"valwatch/domain/entities"

	"github.com/jackc/pgx/v5"
)

// GuildSettingsRepository implements the GuildSettingsRepository interface
type GuildSettingsRepository struct {
	q Queryable
}

// NewGuildSettingsRepository creates a new guild settings repository
func NewGuildSettingsRepository(db *database.DB) *GuildSettingsRepository {
	return &GuildSettingsRepository{q: db.Pool}
}

// NewGuildSettingsRepositoryWithTx creates a new guild settings repository with a transaction
func NewGuildSettingsRepositoryWithTx(tx Queryable) *GuildSettingsRepository {
	return &GuildSettingsRepository{q: tx}
}

// GetGuildSettings retrieves the settings of a guild, or nil when none are stored
func (r *GuildSettingsRepository) GetGuildSettings(ctx context.Context, guildID int64) (*entities.GuildSettings, error) {
	query := `
		SELECT guild_id, polling_channel_id, cooldown_seconds, streak_threshold,
		       feeding_messages, streak_messages
		FROM guild_settings
		WHERE guild_id = $1
	`

	var settings entities.GuildSettings
	err := r.q.QueryRow(ctx, query, guildID).Scan(
		&settings.GuildID,
		&settings.PollingChannelID,
		&settings.CooldownSeconds,
		&settings.StreakThreshold,
		&settings.FeedingMessages,
		&settings.StreakMessages,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get guild settings for guild %d: %w", guildID, err)
	}

	return &settings, nil
}

// UpsertGuildSettings creates or replaces the settings of a guild.
// The watch cycle never calls this; it backs the chat layer's configuration commands.
func (r *GuildSettingsRepository) UpsertGuildSettings(ctx context.Context, settings *entities.GuildSettings) error {
	query := `
		INSERT INTO guild_settings (
			guild_id, polling_channel_id, cooldown_seconds, streak_threshold,
			feeding_messages, streak_messages
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (guild_id) DO UPDATE SET
			polling_channel_id = EXCLUDED.polling_channel_id,
			cooldown_seconds = EXCLUDED.cooldown_seconds,
			streak_threshold = EXCLUDED.streak_threshold,
			feeding_messages = EXCLUDED.feeding_messages,
			streak_messages = EXCLUDED.streak_messages,
			updated_at = NOW()
	`

	_, err := r.q.Exec(ctx, query,
		settings.GuildID,
		settings.PollingChannelID,
		settings.CooldownSeconds,
		settings.StreakThreshold,
		stringsOrEmpty(settings.FeedingMessages),
		stringsOrEmpty(settings.StreakMessages),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert guild settings for guild %d: %w", settings.GuildID, err)
	}

	return nil
}

func stringsOrEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
