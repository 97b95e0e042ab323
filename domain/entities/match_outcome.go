package entities

// MatchOutcome describes what ingesting one match did to one account
type MatchOutcome struct {
	AccountID int64
	Match     *MatchRecord

	// Substantive is false for deathmatch and zero-round matches, which only move the watermark
	Substantive bool
	Team        Team
	Result      MatchResult

	Kills       int
	Deaths      int
	Assists     int
	CombatScore float64

	Feeding     bool
	Streak      int
	StreakAlert bool
}

// HasAlert reports whether the match raised a feeding or streak alert
func (o MatchOutcome) HasAlert() bool {
	return o.Feeding || o.StreakAlert
}
