package services

import (
	"valwatch/domain/entities"

	"github.com/elliotchance/pie/v2"
)

// Party is the set of tracked accounts from one guild that played the same match, split by side.
// TeamA is the red side and TeamB the blue side.
type Party struct {
	TeamA []*entities.TrackedAccount
	TeamB []*entities.TrackedAccount
}

// IsEmpty reports whether no tracked account was identified on either side
func (p Party) IsEmpty() bool {
	return len(p.TeamA) == 0 && len(p.TeamB) == 0
}

// Side returns the accounts on one side of the match
func (p Party) Side(team entities.Team) []*entities.TrackedAccount {
	if team == entities.TeamRed {
		return p.TeamA
	}
	return p.TeamB
}

// Members returns every account in the party, TeamA first
func (p Party) Members() []*entities.TrackedAccount {
	members := make([]*entities.TrackedAccount, 0, len(p.TeamA)+len(p.TeamB))
	members = append(members, p.TeamA...)
	return append(members, p.TeamB...)
}

// MemberIDs returns the account IDs of every party member
func (p Party) MemberIDs() []int64 {
	return pie.Map(p.Members(), accountID)
}

// TeamAIDs returns the account IDs on the red side
func (p Party) TeamAIDs() []int64 {
	return pie.Map(p.TeamA, accountID)
}

// TeamBIDs returns the account IDs on the blue side
func (p Party) TeamBIDs() []int64 {
	return pie.Map(p.TeamB, accountID)
}

// Classification is the party's result and the side it was judged from
type Classification struct {
	Team   entities.Team
	Result entities.MatchResult
	// OtherTeam lists tracked accounts on the opposing side, reported without a result of their own
	OtherTeam []int64
}

// PartyResolver groups tracked accounts that co-occurred in a match
type PartyResolver struct{}

// NewPartyResolver creates a new party resolver
func NewPartyResolver() *PartyResolver {
	return &PartyResolver{}
}

// Resolve finds, per side, the tracked accounts from the origin's guild that appear in the match.
// Accounts in the private scope (guild 0) never party, so both sides come back empty for them.
func (r *PartyResolver) Resolve(match *entities.MatchRecord, origin *entities.TrackedAccount, roster []*entities.TrackedAccount) Party {
	if origin == nil || origin.IsPrivateScope() || match.Mode().IsDeathmatch() {
		return Party{}
	}

	sameGuild := pie.Filter(roster, func(a *entities.TrackedAccount) bool {
		return a != nil && a.GuildID == origin.GuildID
	})
	sameGuild = uniqueAccounts(sameGuild)

	return Party{
		TeamA: onSide(match, entities.TeamRed, sameGuild),
		TeamB: onSide(match, entities.TeamBlue, sameGuild),
	}
}

// Classify judges the match from the origin's side when the origin is in the party,
// otherwise from whichever side is non-empty.
func (r *PartyResolver) Classify(party Party, match *entities.MatchRecord, origin *entities.TrackedAccount) Classification {
	team := entities.TeamRed
	switch {
	case origin != nil && containsAccount(party.TeamB, origin.AccountID):
		team = entities.TeamBlue
	case origin != nil && containsAccount(party.TeamA, origin.AccountID):
		team = entities.TeamRed
	case len(party.TeamA) == 0 && len(party.TeamB) > 0:
		team = entities.TeamBlue
	}

	return Classification{
		Team:      team,
		Result:    match.ResultFor(team),
		OtherTeam: pie.Map(party.Side(team.Opponent()), accountID),
	}
}

// SoloParty places the origin alone on its own side, for matches where no party resolved
func SoloParty(match *entities.MatchRecord, origin *entities.TrackedAccount) Party {
	player, ok := match.FindPlayer(origin.ExternalRef.PUUID)
	if !ok {
		return Party{}
	}
	if player.Team == entities.TeamRed {
		return Party{TeamA: []*entities.TrackedAccount{origin}}
	}
	return Party{TeamB: []*entities.TrackedAccount{origin}}
}

func onSide(match *entities.MatchRecord, team entities.Team, accounts []*entities.TrackedAccount) []*entities.TrackedAccount {
	onTeam := make(map[string]bool)
	for _, p := range match.Roster(team) {
		onTeam[p.PlayerID] = true
	}
	return pie.Filter(accounts, func(a *entities.TrackedAccount) bool {
		return onTeam[a.ExternalRef.PUUID]
	})
}

func uniqueAccounts(accounts []*entities.TrackedAccount) []*entities.TrackedAccount {
	seen := make(map[int64]bool, len(accounts))
	return pie.Filter(accounts, func(a *entities.TrackedAccount) bool {
		if seen[a.AccountID] {
			return false
		}
		seen[a.AccountID] = true
		return true
	})
}

func containsAccount(accounts []*entities.TrackedAccount, id int64) bool {
	return pie.Any(accounts, func(a *entities.TrackedAccount) bool {
		return a.AccountID == id
	})
}

func accountID(a *entities.TrackedAccount) int64 {
	return a.AccountID
}
