package application

import (
	"valwatch/application/dto"
	"valwatch/domain/entities"
	"valwatch/domain/services"
)

// buildMatchAlert converts the outcomes of one shared match into the sink payload
func buildMatchAlert(
	origin *entities.TrackedAccount,
	match *entities.MatchRecord,
	party services.Party,
	classification services.Classification,
	outcomes []entities.MatchOutcome,
	released services.ReleasedWaiters,
	settings *entities.GuildSettings,
) dto.MatchAlertDTO {
	alert := dto.MatchAlertDTO{
		GuildID:         origin.GuildID,
		MatchID:         match.ID(),
		OriginAccountID: origin.AccountID,
		Party: dto.PartyDTO{
			TeamA: party.TeamAIDs(),
			TeamB: party.TeamBIDs(),
		},
		Map:  match.Map(),
		Mode: string(match.Mode()),
		Score: dto.ScoreDTO{
			TeamA: match.Score(entities.TeamRed),
			TeamB: match.Score(entities.TeamBlue),
		},
		CompletionTime:  match.CompletionTime(),
		Feeding:         []dto.FeedingDTO{},
		Streaking:       []dto.StreakDTO{},
		WaitersToNotify: released.Waiters,
	}
	if alert.WaitersToNotify == nil {
		alert.WaitersToNotify = []int64{}
	}
	if settings.HasPollingChannel() {
		alert.ChannelID = *settings.PollingChannelID
	}

	if !party.IsEmpty() {
		alert.Result = string(classification.Result)
		alert.OtherTeam = classification.OtherTeam
	}

	for _, o := range outcomes {
		if !o.Substantive {
			continue
		}
		if o.Feeding {
			alert.Feeding = append(alert.Feeding, dto.FeedingDTO{
				AccountID: o.AccountID,
				Kills:     o.Kills,
				Deaths:    o.Deaths,
				Assists:   o.Assists,
				ACS:       o.CombatScore,
			})
		}
		if o.StreakAlert {
			alert.Streaking = append(alert.Streaking, streakDTO(o))
		}
	}

	return alert
}

func streakDTO(o entities.MatchOutcome) dto.StreakDTO {
	if o.Streak < 0 {
		return dto.StreakDTO{AccountID: o.AccountID, Magnitude: -o.Streak, Direction: dto.StreakDirectionLoss}
	}
	return dto.StreakDTO{AccountID: o.AccountID, Magnitude: o.Streak, Direction: dto.StreakDirectionWin}
}
