package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMatchRecord(t *testing.T) {
	start := time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)
	players := []PlayerStats{
		{PlayerID: "a", Team: TeamRed, Kills: 20},
		{PlayerID: "b", Team: TeamBlue, Kills: 5},
	}
	match := NewMatchRecord(MatchFields{
		MatchID:      "m1",
		Mode:         ModeCompetitive,
		Map:          "Ascent",
		RedScore:     13,
		BlueScore:    11,
		RoundsPlayed: 24,
		StartedAt:    start,
		Duration:     42 * time.Minute,
		Players:      players,
	})

	assert.Equal(t, start.Add(42*time.Minute), match.CompletionTime())
	assert.Equal(t, ResultWin, match.ResultFor(TeamRed))
	assert.Equal(t, ResultLoss, match.ResultFor(TeamBlue))
	assert.True(t, match.IsSubstantive())

	p, ok := match.FindPlayer("b")
	assert.True(t, ok)
	assert.Equal(t, TeamBlue, p.Team)
	_, ok = match.FindPlayer("zzz")
	assert.False(t, ok)

	roster := match.Roster(TeamRed)
	roster[0].Kills = 0
	assert.Equal(t, 20, match.Roster(TeamRed)[0].Kills, "roster copies do not alias the record")

	players[0].Kills = 1
	found, _ := match.FindPlayer("a")
	assert.Equal(t, 20, found.Kills, "input slice changes do not leak in")
}

func TestMatchRecord_DrawAndNonSubstantive(t *testing.T) {
	draw := NewMatchRecord(MatchFields{Mode: ModeUnrated, RedScore: 12, BlueScore: 12, RoundsPlayed: 24})
	assert.Equal(t, ResultDraw, draw.ResultFor(TeamRed))

	assert.False(t, NewMatchRecord(MatchFields{Mode: ModeDeathmatch}).IsSubstantive())
	assert.False(t, NewMatchRecord(MatchFields{Mode: ModeCompetitive, Forfeited: true}).IsSubstantive())
}

func TestGameMode(t *testing.T) {
	assert.Equal(t, ModeSpikeRush, NormalizeMode("  Spike Rush "))

	testCases := []struct {
		mode    GameMode
		window  bool
		feeding bool
	}{
		{ModeCompetitive, true, true},
		{ModeUnrated, true, true},
		{ModeSpikeRush, false, true},
		{ModeSwiftplay, false, true},
		{ModeTeamDeathmatch, false, false},
		{ModeDeathmatch, false, false},
	}
	for _, tc := range testCases {
		t.Run(string(tc.mode), func(t *testing.T) {
			assert.Equal(t, tc.window, tc.mode.TracksRollingWindow())
			assert.Equal(t, tc.feeding, tc.mode.ChecksFeeding())
		})
	}
}

func TestParseTeam(t *testing.T) {
	team, ok := ParseTeam(" Red ")
	assert.True(t, ok)
	assert.Equal(t, TeamRed, team)
	assert.Equal(t, TeamBlue, team.Opponent())

	_, ok = ParseTeam("green")
	assert.False(t, ok)
}

func TestGuildSettings(t *testing.T) {
	var missing *GuildSettings
	assert.False(t, missing.HasPollingChannel())
	assert.Equal(t, 5*time.Minute, missing.Cooldown(5*time.Minute))
	assert.Equal(t, 3, missing.StreakAlertThreshold(3))

	channel, zero, negative, four := int64(9), 0, -1, 4
	settings := &GuildSettings{PollingChannelID: &channel, CooldownSeconds: &zero, StreakThreshold: &four}
	assert.True(t, settings.HasPollingChannel())
	assert.Equal(t, time.Duration(0), settings.Cooldown(5*time.Minute), "zero disables the cooldown")
	assert.Equal(t, 4, settings.StreakAlertThreshold(3))

	settings.CooldownSeconds = &negative
	settings.StreakThreshold = &zero
	assert.Equal(t, 5*time.Minute, settings.Cooldown(5*time.Minute))
	assert.Equal(t, 3, settings.StreakAlertThreshold(3))
}
