package testhelpers

import (
	"fmt"
	"time"

	"valwatch/domain/entities"
)

// BaseTime is a fixed reference instant for fixtures
var BaseTime = time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)

// NewAccount builds a tracked account whose watermark sits at BaseTime
func NewAccount(accountID, guildID int64, puuid string) *entities.TrackedAccount {
	return entities.NewTrackedAccount(accountID, guildID, entities.ExternalRef{
		Region: "na",
		PUUID:  puuid,
		Name:   fmt.Sprintf("player%d", accountID),
		Tag:    "NA1",
	}, BaseTime)
}

// MatchBuilder assembles MatchRecords for tests
type MatchBuilder struct {
	fields entities.MatchFields
}

// NewMatch starts a 13-7 competitive match that completes endsAfter past BaseTime
func NewMatch(id string, endsAfter time.Duration) *MatchBuilder {
	return &MatchBuilder{fields: entities.MatchFields{
		MatchID:      id,
		Mode:         entities.ModeCompetitive,
		Map:          "Ascent",
		RedScore:     13,
		BlueScore:    7,
		RoundsPlayed: 20,
		StartedAt:    BaseTime.Add(endsAfter - 40*time.Minute),
		Duration:     40 * time.Minute,
	}}
}

func (b *MatchBuilder) Mode(mode entities.GameMode) *MatchBuilder {
	b.fields.Mode = mode
	return b
}

func (b *MatchBuilder) Score(red, blue int) *MatchBuilder {
	b.fields.RedScore, b.fields.BlueScore = red, blue
	return b
}

func (b *MatchBuilder) Rounds(played int) *MatchBuilder {
	b.fields.RoundsPlayed = played
	return b
}

// Player adds a roster entry with the given kills/deaths and 200 ACS. Call Rounds first when overriding it.
func (b *MatchBuilder) Player(puuid string, team entities.Team, kills, deaths int) *MatchBuilder {
	b.fields.Players = append(b.fields.Players, entities.PlayerStats{
		PlayerID:  puuid,
		Team:      team,
		Agent:     "Jett",
		RankLabel: "Gold 2",
		Kills:     kills,
		Deaths:    deaths,
		Assists:   3,
		Score:     200 * b.fields.RoundsPlayed,
		Headshots: 10,
		Bodyshots: 25,
		Legshots:  5,
	})
	return b
}

// PlayerStats adds a fully specified roster entry
func (b *MatchBuilder) PlayerStats(p entities.PlayerStats) *MatchBuilder {
	b.fields.Players = append(b.fields.Players, p)
	return b
}

func (b *MatchBuilder) Build() *entities.MatchRecord {
	return entities.NewMatchRecord(b.fields)
}
