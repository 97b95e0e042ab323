package services

import (
	"fmt"
	"math"
	"sort"

	"valwatch/domain/entities"

	"github.com/mitchellh/copystructure"
)

// DefaultStreakThreshold is the streak magnitude at which a streak alert fires
const DefaultStreakThreshold = 3

// EngineOptions tunes alert thresholds for one account
type EngineOptions struct {
	StreakThreshold int
}

// StatsEngine folds newly observed matches into an account's stats
type StatsEngine struct{}

// NewStatsEngine creates a new stats engine
func NewStatsEngine() *StatsEngine {
	return &StatsEngine{}
}

// IsFeeding applies the feeding heuristic: deaths >= kills + (1.1e)^(kills/5) + 2.9
func IsFeeding(kills, deaths int) bool {
	threshold := float64(kills) + math.Pow(1.1*math.E, float64(kills)/5) + 2.9
	return float64(deaths) >= threshold
}

// NextStreak returns the streak after a result. Draws leave it untouched.
func NextStreak(streak int, result entities.MatchResult) int {
	switch result {
	case entities.ResultWin:
		return max(streak+1, 1)
	case entities.ResultLoss:
		return min(streak-1, -1)
	}
	return streak
}

// Apply processes matches oldest to newest against a copy of the account and returns the
// mutated copy with one outcome per ingested match. The input account is never modified,
// so a caller that fails to persist the result still holds the pre-match state.
func (e *StatsEngine) Apply(account *entities.TrackedAccount, matches []*entities.MatchRecord, opts EngineOptions) (*entities.TrackedAccount, []entities.MatchOutcome, error) {
	updated, err := copyAccount(account)
	if err != nil {
		return nil, nil, err
	}

	threshold := opts.StreakThreshold
	if threshold < 1 {
		threshold = DefaultStreakThreshold
	}

	ordered := make([]*entities.MatchRecord, 0, len(matches))
	for _, m := range matches {
		if m != nil {
			ordered = append(ordered, m)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CompletionTime().Before(ordered[j].CompletionTime())
	})

	var outcomes []entities.MatchOutcome
	for _, match := range ordered {
		if outcome, ok := e.applyOne(updated, match, threshold); ok {
			outcomes = append(outcomes, outcome)
		}
	}
	return updated, outcomes, nil
}

func (e *StatsEngine) applyOne(account *entities.TrackedAccount, match *entities.MatchRecord, threshold int) (entities.MatchOutcome, bool) {
	outcome := entities.MatchOutcome{AccountID: account.AccountID, Match: match}

	var player entities.PlayerStats
	if !match.Mode().IsDeathmatch() {
		var found bool
		player, found = match.FindPlayer(account.ExternalRef.PUUID)
		if !found {
			return outcome, false
		}
	}

	if account.HasProcessed(match.CompletionTime()) {
		return outcome, false
	}
	account.AdvanceWatermark(match.CompletionTime())

	if !match.IsSubstantive() {
		return outcome, true
	}

	outcome.Substantive = true
	outcome.Team = player.Team
	outcome.Result = match.ResultFor(player.Team)
	outcome.Kills = player.Kills
	outcome.Deaths = player.Deaths
	outcome.Assists = player.Assists
	outcome.CombatScore = float64(player.Score) / float64(match.RoundsPlayed())

	if match.Mode().ChecksFeeding() {
		outcome.Feeding = IsFeeding(player.Kills, player.Deaths)
	}

	account.Streak = NextStreak(account.Streak, outcome.Result)
	outcome.Streak = account.Streak
	if outcome.Result != entities.ResultDraw {
		outcome.StreakAlert = abs(account.Streak) >= threshold
	}

	if match.Mode().TracksRollingWindow() {
		account.PushSample(entities.PerformanceSample{
			Headshots:   player.Headshots,
			Bodyshots:   player.Bodyshots,
			Legshots:    player.Legshots,
			CombatScore: outcome.CombatScore,
		})
		if match.Mode() == entities.ModeCompetitive && player.RankLabel != "" {
			account.RankLabel = player.RankLabel
		}
	}

	return outcome, true
}

// Alerts filters outcomes down to those that raised a feeding or streak alert
func Alerts(outcomes []entities.MatchOutcome) []entities.MatchOutcome {
	var alerts []entities.MatchOutcome
	for _, o := range outcomes {
		if o.HasAlert() {
			alerts = append(alerts, o)
		}
	}
	return alerts
}

func copyAccount(account *entities.TrackedAccount) (*entities.TrackedAccount, error) {
	copied, err := copystructure.Copy(account)
	if err != nil {
		return nil, fmt.Errorf("failed to copy account %d: %w", account.AccountID, err)
	}
	return copied.(*entities.TrackedAccount), nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
