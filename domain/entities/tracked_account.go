package entities

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"
)

// RollingWindowSize is the number of ranked/unrated samples kept per account
const RollingWindowSize = 5

// ExternalRef links a tracked account to its upstream match-history identity.
// Resolved once at registration and never re-resolved by the watch cycle.
type ExternalRef struct {
	Region string `db:"region" json:"region"`
	PUUID  string `db:"puuid" json:"puuid"`
	Name   string `db:"game_name" json:"name"`
	Tag    string `db:"tag_line" json:"tag"`
}

// GetFullName returns the Riot ID in "Name#Tag" format
func (r ExternalRef) GetFullName() string {
	return fmt.Sprintf("%s#%s", r.Name, r.Tag)
}

// PerformanceSample is one ranked/unrated game in the rolling window
type PerformanceSample struct {
	Headshots   int     `json:"headshots"`
	Bodyshots   int     `json:"bodyshots"`
	Legshots    int     `json:"legshots"`
	CombatScore float64 `json:"acs"`
}

// TotalShots returns the number of hits recorded for the sample
func (s PerformanceSample) TotalShots() int {
	return s.Headshots + s.Bodyshots + s.Legshots
}

// TrackedAccount is a roster entry watched by the watch cycle
type TrackedAccount struct {
	AccountID   int64       `db:"account_id"`
	GuildID     int64       `db:"guild_id"` // 0 = private scope
	ExternalRef ExternalRef `db:"external_ref"`

	// LastProcessedEnd is the watermark: completion time of the newest match already accounted for
	LastProcessedEnd time.Time `db:"last_processed_end"`

	Streak        int                 `db:"streak"`
	RollingWindow []PerformanceSample `db:"rolling_window"`
	RankLabel     string              `db:"rank_label"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// NewTrackedAccount creates a freshly registered account with its watermark at registration time
func NewTrackedAccount(accountID, guildID int64, ref ExternalRef, registeredAt time.Time) *TrackedAccount {
	return &TrackedAccount{
		AccountID:        accountID,
		GuildID:          guildID,
		ExternalRef:      ref,
		LastProcessedEnd: registeredAt.UTC(),
		RollingWindow:    []PerformanceSample{},
	}
}

// IsPrivateScope reports whether the account is tracked outside any guild
func (a *TrackedAccount) IsPrivateScope() bool {
	return a.GuildID == 0
}

// HasProcessed reports whether a match completing at t is already behind the watermark
func (a *TrackedAccount) HasProcessed(t time.Time) bool {
	return !t.After(a.LastProcessedEnd)
}

// AdvanceWatermark moves the watermark forward. It never moves backwards.
func (a *TrackedAccount) AdvanceWatermark(t time.Time) {
	if t.After(a.LastProcessedEnd) {
		a.LastProcessedEnd = t.UTC()
	}
}

// PushSample appends a sample and drops the oldest entries beyond RollingWindowSize
func (a *TrackedAccount) PushSample(sample PerformanceSample) {
	a.RollingWindow = append(a.RollingWindow, sample)
	if overflow := len(a.RollingWindow) - RollingWindowSize; overflow > 0 {
		a.RollingWindow = append([]PerformanceSample(nil), a.RollingWindow[overflow:]...)
	}
}

// HeadshotRate returns headshots over all hits across the window, 0 when there are no hits
func (a *TrackedAccount) HeadshotRate() float64 {
	var headshots, total int
	for _, s := range a.RollingWindow {
		headshots += s.Headshots
		total += s.TotalShots()
	}
	if total == 0 {
		return 0
	}
	return float64(headshots) / float64(total)
}

// AverageCombatScore returns the mean ACS across the window, 0 when empty
func (a *TrackedAccount) AverageCombatScore() float64 {
	if len(a.RollingWindow) == 0 {
		return 0
	}
	scores := make([]float64, len(a.RollingWindow))
	for i, s := range a.RollingWindow {
		scores[i] = s.CombatScore
	}
	return stat.Mean(scores, nil)
}
