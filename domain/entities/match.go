package entities

import (
	"strings"
	"time"
)

// GameMode is the normalized queue/mode name of a match
type GameMode string

const (
	ModeCompetitive    GameMode = "competitive"
	ModeUnrated        GameMode = "unrated"
	ModeSpikeRush      GameMode = "spike rush"
	ModeSwiftplay      GameMode = "swiftplay"
	ModeDeathmatch     GameMode = "deathmatch"
	ModeTeamDeathmatch GameMode = "team deathmatch"
)

// NormalizeMode lowercases and trims an upstream mode label
func NormalizeMode(mode string) GameMode {
	return GameMode(strings.ToLower(strings.TrimSpace(mode)))
}

// TracksRollingWindow reports whether games in this mode feed the rolling window
func (m GameMode) TracksRollingWindow() bool {
	return m == ModeCompetitive || m == ModeUnrated
}

// ChecksFeeding reports whether the feeding heuristic applies to this mode
func (m GameMode) ChecksFeeding() bool {
	switch m {
	case ModeCompetitive, ModeUnrated, ModeSpikeRush, ModeSwiftplay:
		return true
	}
	return false
}

// IsDeathmatch reports whether the mode carries no team roster or rounds
func (m GameMode) IsDeathmatch() bool {
	return m == ModeDeathmatch
}

// Team is one of the two named sides of a match
type Team string

const (
	TeamRed  Team = "red"
	TeamBlue Team = "blue"
)

// ParseTeam normalizes an upstream team label. ok is false for unknown labels.
func ParseTeam(label string) (Team, bool) {
	switch Team(strings.ToLower(strings.TrimSpace(label))) {
	case TeamRed:
		return TeamRed, true
	case TeamBlue:
		return TeamBlue, true
	}
	return "", false
}

// Opponent returns the other side
func (t Team) Opponent() Team {
	if t == TeamRed {
		return TeamBlue
	}
	return TeamRed
}

// MatchResult is the outcome of a match from one side's perspective
type MatchResult string

const (
	ResultWin  MatchResult = "win"
	ResultLoss MatchResult = "loss"
	ResultDraw MatchResult = "draw"
)

// PlayerStats is one roster entry of a match
type PlayerStats struct {
	PlayerID  string
	Name      string
	Tag       string
	Team      Team
	Agent     string
	RankLabel string
	Kills     int
	Deaths    int
	Assists   int
	Score     int
	Headshots int
	Bodyshots int
	Legshots  int
}

// MatchFields carries the values a MatchRecord is built from
type MatchFields struct {
	MatchID      string
	Mode         GameMode
	Map          string
	RedScore     int
	BlueScore    int
	RoundsPlayed int
	Forfeited    bool
	StartedAt    time.Time
	Duration     time.Duration
	Players      []PlayerStats
}

// MatchRecord is a parsed match. It is immutable once constructed.
type MatchRecord struct {
	id             string
	mode           GameMode
	mapName        string
	scores         map[Team]int
	roundsPlayed   int
	forfeited      bool
	startedAt      time.Time
	completionTime time.Time
	roster         map[Team][]PlayerStats
	byPlayer       map[string]PlayerStats
}

// NewMatchRecord builds a MatchRecord. Completion time is start + duration.
func NewMatchRecord(f MatchFields) *MatchRecord {
	m := &MatchRecord{
		id:             f.MatchID,
		mode:           f.Mode,
		mapName:        f.Map,
		scores:         map[Team]int{TeamRed: f.RedScore, TeamBlue: f.BlueScore},
		roundsPlayed:   f.RoundsPlayed,
		forfeited:      f.Forfeited,
		startedAt:      f.StartedAt.UTC(),
		completionTime: f.StartedAt.Add(f.Duration).UTC(),
		roster:         make(map[Team][]PlayerStats),
		byPlayer:       make(map[string]PlayerStats, len(f.Players)),
	}
	for _, p := range f.Players {
		m.roster[p.Team] = append(m.roster[p.Team], p)
		m.byPlayer[p.PlayerID] = p
	}
	return m
}

func (m *MatchRecord) ID() string                { return m.id }
func (m *MatchRecord) Mode() GameMode            { return m.mode }
func (m *MatchRecord) Map() string               { return m.mapName }
func (m *MatchRecord) RoundsPlayed() int         { return m.roundsPlayed }
func (m *MatchRecord) Forfeited() bool           { return m.forfeited }
func (m *MatchRecord) StartedAt() time.Time      { return m.startedAt }
func (m *MatchRecord) CompletionTime() time.Time { return m.completionTime }

// Score returns the rounds won by a side
func (m *MatchRecord) Score(team Team) int {
	return m.scores[team]
}

// Roster returns a copy of the roster entries for a side
func (m *MatchRecord) Roster(team Team) []PlayerStats {
	return append([]PlayerStats(nil), m.roster[team]...)
}

// FindPlayer looks up a roster entry by upstream player identifier
func (m *MatchRecord) FindPlayer(playerID string) (PlayerStats, bool) {
	p, ok := m.byPlayer[playerID]
	return p, ok
}

// ResultFor classifies the match from one side's perspective
func (m *MatchRecord) ResultFor(team Team) MatchResult {
	own, other := m.scores[team], m.scores[team.Opponent()]
	switch {
	case own > other:
		return ResultWin
	case own < other:
		return ResultLoss
	default:
		return ResultDraw
	}
}

// IsSubstantive reports whether the match can mutate stats: it has a roster and played rounds
func (m *MatchRecord) IsSubstantive() bool {
	return !m.mode.IsDeathmatch() && m.roundsPlayed > 0
}
