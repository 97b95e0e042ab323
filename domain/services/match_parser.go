package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"valwatch/domain/entities"
)

// roundEndSurrendered marks a round ended by a team forfeiting
const roundEndSurrendered = "surrendered"

type rawMatch struct {
	Metadata *rawMetadata `json:"metadata"`
	Players  *rawPlayers  `json:"players"`
	Rounds   []rawRound   `json:"rounds"`
}

type rawMetadata struct {
	MatchID    string `json:"matchid"`
	Map        string `json:"map"`
	Mode       string `json:"mode"`
	GameStart  int64  `json:"game_start"`  // unix seconds
	GameLength int64  `json:"game_length"` // seconds
}

type rawPlayers struct {
	AllPlayers []rawPlayer `json:"all_players"`
}

type rawPlayer struct {
	PUUID              string          `json:"puuid"`
	Name               string          `json:"name"`
	Tag                string          `json:"tag"`
	Team               string          `json:"team"`
	Character          string          `json:"character"`
	CurrentTierPatched string          `json:"currenttier_patched"`
	Stats              *rawPlayerStats `json:"stats"`
}

type rawPlayerStats struct {
	Score     int `json:"score"`
	Kills     int `json:"kills"`
	Deaths    int `json:"deaths"`
	Assists   int `json:"assists"`
	Bodyshots int `json:"bodyshots"`
	Headshots int `json:"headshots"`
	Legshots  int `json:"legshots"`
}

type rawRound struct {
	WinningTeam string `json:"winning_team"`
	EndType     string `json:"end_type"`
}

// ParseMatch converts a raw match payload into a MatchRecord.
// Returns an error wrapping entities.ErrMalformedMatch when required fields are missing.
func ParseMatch(payload []byte) (*entities.MatchRecord, error) {
	var raw rawMatch
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrMalformedMatch, err)
	}

	md := raw.Metadata
	if md == nil {
		return nil, fmt.Errorf("%w: missing metadata", entities.ErrMalformedMatch)
	}
	if md.MatchID == "" || md.Mode == "" || md.GameStart <= 0 {
		return nil, fmt.Errorf("%w: incomplete metadata for match %q", entities.ErrMalformedMatch, md.MatchID)
	}

	fields := entities.MatchFields{
		MatchID:   md.MatchID,
		Mode:      entities.NormalizeMode(md.Mode),
		Map:       md.Map,
		StartedAt: time.Unix(md.GameStart, 0).UTC(),
		Duration:  time.Duration(md.GameLength) * time.Second,
	}

	// Deathmatch has no teams or rounds; only the metadata is needed to move the watermark
	if fields.Mode.IsDeathmatch() {
		return entities.NewMatchRecord(fields), nil
	}

	if raw.Players == nil || len(raw.Players.AllPlayers) == 0 {
		return nil, fmt.Errorf("%w: match %s has no roster", entities.ErrMalformedMatch, md.MatchID)
	}

	players := make([]entities.PlayerStats, 0, len(raw.Players.AllPlayers))
	for i, p := range raw.Players.AllPlayers {
		team, ok := entities.ParseTeam(p.Team)
		if p.PUUID == "" || p.Stats == nil || !ok {
			return nil, fmt.Errorf("%w: match %s roster entry %d incomplete", entities.ErrMalformedMatch, md.MatchID, i)
		}
		players = append(players, entities.PlayerStats{
			PlayerID:  p.PUUID,
			Name:      p.Name,
			Tag:       p.Tag,
			Team:      team,
			Agent:     p.Character,
			RankLabel: p.CurrentTierPatched,
			Kills:     p.Stats.Kills,
			Deaths:    p.Stats.Deaths,
			Assists:   p.Stats.Assists,
			Score:     p.Stats.Score,
			Headshots: p.Stats.Headshots,
			Bodyshots: p.Stats.Bodyshots,
			Legshots:  p.Stats.Legshots,
		})
	}
	fields.Players = players

	fields.RedScore, fields.BlueScore, fields.RoundsPlayed, fields.Forfeited = scoreRounds(raw.Rounds)

	return entities.NewMatchRecord(fields), nil
}

// scoreRounds counts round wins per side. Forfeited rounds still award the win
// but are excluded from the rounds played.
func scoreRounds(rounds []rawRound) (red, blue, played int, forfeited bool) {
	for _, r := range rounds {
		if team, ok := entities.ParseTeam(r.WinningTeam); ok {
			if team == entities.TeamRed {
				red++
			} else {
				blue++
			}
		}
		if strings.EqualFold(strings.TrimSpace(r.EndType), roundEndSurrendered) {
			forfeited = true
			continue
		}
		played++
	}
	return red, blue, played, forfeited
}

// ParseMatches parses a batch. A failure for one payload never discards its siblings;
// failures are returned keyed by the payload index.
func ParseMatches(payloads []json.RawMessage) ([]*entities.MatchRecord, map[int]error) {
	records := make([]*entities.MatchRecord, 0, len(payloads))
	var failures map[int]error
	for i, payload := range payloads {
		record, err := ParseMatch(payload)
		if err != nil {
			if failures == nil {
				failures = make(map[int]error)
			}
			failures[i] = err
			continue
		}
		records = append(records, record)
	}
	return records, failures
}
