package dto

import "time"

// MatchAlertDTO contains everything the notification layer needs to announce one match
type MatchAlertDTO struct {
	// Routing
	GuildID         int64  `json:"guild_id"`
	ChannelID       int64  `json:"channel_id,omitempty"`
	MatchID         string `json:"match_id"`
	OriginAccountID int64  `json:"origin_account_id"`

	Party PartyDTO `json:"party"`
	// OtherTeam lists tracked accounts on the opposing side, reported without a result
	OtherTeam      []int64   `json:"other_team,omitempty"`
	Result         string    `json:"result,omitempty"`
	Map            string    `json:"map"`
	Mode           string    `json:"mode"`
	Score          ScoreDTO  `json:"score"`
	CompletionTime time.Time `json:"completion_time"`

	Feeding         []FeedingDTO `json:"feeding"`
	Streaking       []StreakDTO  `json:"streaking"`
	WaitersToNotify []int64      `json:"waiters_to_notify"`
}

// PartyDTO lists tracked accounts per side
type PartyDTO struct {
	TeamA []int64 `json:"team_a"`
	TeamB []int64 `json:"team_b"`
}

// ScoreDTO is the final round score per side
type ScoreDTO struct {
	TeamA int `json:"team_a"`
	TeamB int `json:"team_b"`
}

// FeedingDTO describes one feeding alert
type FeedingDTO struct {
	AccountID int64   `json:"account_id"`
	Kills     int     `json:"kills"`
	Deaths    int     `json:"deaths"`
	Assists   int     `json:"assists"`
	ACS       float64 `json:"acs"`
}

// StreakDTO describes one streak alert
type StreakDTO struct {
	AccountID int64  `json:"account_id"`
	Magnitude int    `json:"magnitude"`
	Direction string `json:"direction"`
}

// Streak directions
const (
	StreakDirectionWin  = "win"
	StreakDirectionLoss = "loss"
)

// HasAlerts reports whether any feeding or streak alert is attached
func (a MatchAlertDTO) HasAlerts() bool {
	return len(a.Feeding) > 0 || len(a.Streaking) > 0
}

// Members returns every party member, TeamA first
func (a MatchAlertDTO) Members() []int64 {
	members := make([]int64, 0, len(a.Party.TeamA)+len(a.Party.TeamB))
	members = append(members, a.Party.TeamA...)
	return append(members, a.Party.TeamB...)
}
