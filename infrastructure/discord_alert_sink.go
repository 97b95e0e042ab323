package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	"valwatch/application"
	"valwatch/application/dto"
	"valwatch/domain/entities"
	"valwatch/domain/interfaces"

	"github.com/bwmarrin/discordgo"
	"github.com/elliotchance/pie/v2"
	log "github.com/sirupsen/logrus"
)

// Embed colors
const (
	ColorWin     = 0x57F287
	ColorLoss    = 0xED4245
	ColorNeutral = 0x5865F2
)

// Default alert lines, used when a guild has no custom messages
const (
	DefaultFeedingMessage = "{player} went {kills}/{deaths}/{assists} and is feeding"
	DefaultStreakMessage  = "{player} is on a {magnitude} game {direction} streak"
)

// DiscordSession is the part of *discordgo.Session the sink uses
type DiscordSession interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// DiscordAlertSink renders match alerts as Discord embeds. Alerts with a channel go to that
// channel; alerts without one are sent as direct messages to the origin and every waiter.
type DiscordAlertSink struct {
	session  DiscordSession
	settings interfaces.GuildSettingsRepository
}

var _ application.AlertSink = (*DiscordAlertSink)(nil)

// NewDiscordAlertSink creates a sink posting through session. settings supplies guild message
// templates and may be nil.
func NewDiscordAlertSink(session DiscordSession, settings interfaces.GuildSettingsRepository) *DiscordAlertSink {
	return &DiscordAlertSink{
		session:  session,
		settings: settings,
	}
}

// PublishMatchAlert renders and sends one alert
func (s *DiscordAlertSink) PublishMatchAlert(ctx context.Context, alert dto.MatchAlertDTO) error {
	settings := s.guildSettings(ctx, alert.GuildID)
	message := &discordgo.MessageSend{
		Content: waiterMentions(alert.WaitersToNotify),
		Embeds:  []*discordgo.MessageEmbed{BuildMatchAlertEmbed(alert, settings)},
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Users: pie.Map(alert.WaitersToNotify, formatID),
		},
	}

	if alert.ChannelID != 0 {
		if _, err := s.session.ChannelMessageSendComplex(formatID(alert.ChannelID), message); err != nil {
			return fmt.Errorf("failed to send match alert to channel %d: %w", alert.ChannelID, err)
		}
		return nil
	}

	recipients := pie.Unique(append([]int64{alert.OriginAccountID}, alert.WaitersToNotify...))
	var errs []error
	for _, recipient := range recipients {
		if err := s.sendDirect(recipient, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *DiscordAlertSink) sendDirect(userID int64, message *discordgo.MessageSend) error {
	channel, err := s.session.UserChannelCreate(formatID(userID))
	if err != nil {
		return fmt.Errorf("failed to open direct message with %d: %w", userID, err)
	}
	if _, err := s.session.ChannelMessageSendComplex(channel.ID, message); err != nil {
		return fmt.Errorf("failed to send direct message to %d: %w", userID, err)
	}
	return nil
}

func (s *DiscordAlertSink) guildSettings(ctx context.Context, guildID int64) *entities.GuildSettings {
	if s.settings == nil || guildID == 0 {
		return nil
	}
	settings, err := s.settings.GetGuildSettings(ctx, guildID)
	if err != nil {
		log.WithFields(log.Fields{
			"guild_id": guildID,
			"error":    err,
		}).Warn("Failed to load guild settings, using default alert messages")
		return nil
	}
	return settings
}

// BuildMatchAlertEmbed renders an alert. settings may be nil.
func BuildMatchAlertEmbed(alert dto.MatchAlertDTO, settings *entities.GuildSettings) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:     fmt.Sprintf("%s · %s", titleCase(alert.Map), titleCase(alert.Mode)),
		Color:     resultColor(alert.Result),
		Timestamp: alert.CompletionTime.UTC().Format("2006-01-02T15:04:05Z07:00"),
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Match %s", alert.MatchID),
		},
	}

	if alert.Result != "" {
		embed.Description = fmt.Sprintf("**%s** %d - %d", strings.ToUpper(alert.Result), alert.Score.TeamA, alert.Score.TeamB)
	} else {
		embed.Description = fmt.Sprintf("%d - %d", alert.Score.TeamA, alert.Score.TeamB)
	}

	if len(alert.Party.TeamA) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Team A",
			Value:  userMentions(alert.Party.TeamA),
			Inline: true,
		})
	}
	if len(alert.Party.TeamB) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Team B",
			Value:  userMentions(alert.Party.TeamB),
			Inline: true,
		})
	}

	var feedingTemplates, streakTemplates []string
	if settings != nil {
		feedingTemplates = settings.FeedingMessages
		streakTemplates = settings.StreakMessages
	}

	var lines []string
	for _, f := range alert.Feeding {
		template := pickTemplate(feedingTemplates, DefaultFeedingMessage, alert.MatchID, f.AccountID)
		lines = append(lines, strings.NewReplacer(
			"{player}", mention(f.AccountID),
			"{kills}", strconv.Itoa(f.Kills),
			"{deaths}", strconv.Itoa(f.Deaths),
			"{assists}", strconv.Itoa(f.Assists),
			"{acs}", strconv.FormatFloat(f.ACS, 'f', 0, 64),
		).Replace(template))
	}
	for _, st := range alert.Streaking {
		template := pickTemplate(streakTemplates, DefaultStreakMessage, alert.MatchID, st.AccountID)
		lines = append(lines, strings.NewReplacer(
			"{player}", mention(st.AccountID),
			"{magnitude}", strconv.Itoa(st.Magnitude),
			"{direction}", st.Direction,
		).Replace(template))
	}
	if len(lines) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Callouts",
			Value: strings.Join(lines, "\n"),
		})
	}

	return embed
}

// pickTemplate chooses a template deterministically so a redelivered alert reads the same
func pickTemplate(templates []string, fallback, matchID string, accountID int64) string {
	if len(templates) == 0 {
		return fallback
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(matchID))
	_, _ = h.Write([]byte(formatID(accountID)))
	return templates[h.Sum32()%uint32(len(templates))]
}

func resultColor(result string) int {
	switch result {
	case string(entities.ResultWin):
		return ColorWin
	case string(entities.ResultLoss):
		return ColorLoss
	default:
		return ColorNeutral
	}
}

func titleCase(s string) string {
	if s == "" {
		return "Unknown"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func mention(id int64) string {
	return "<@" + formatID(id) + ">"
}

func userMentions(ids []int64) string {
	return strings.Join(pie.Map(ids, mention), " ")
}

func waiterMentions(waiters []int64) string {
	if len(waiters) == 0 {
		return ""
	}
	return userMentions(waiters) + " the match you were waiting on just finished"
}
