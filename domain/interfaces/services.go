package interfaces

import (
	"context"

	"valwatch/domain/entities"
)

// AccountResolver resolves a Riot ID to its upstream identity
type AccountResolver interface {
	ResolveAccount(ctx context.Context, name, tag string) (*entities.ExternalRef, error)
}

// StatsSummary is the read-only view of an account's derived statistics
type StatsSummary struct {
	AccountID          int64
	RiotID             string
	RankLabel          string
	Streak             int
	GamesInWindow      int
	HeadshotRate       float64
	AverageCombatScore float64
}

// TrackingService defines roster management operations
type TrackingService interface {
	// Register starts tracking a Riot ID for an account
	Register(ctx context.Context, accountID, guildID int64, name, tag string) (*entities.TrackedAccount, error)

	// Unregister stops tracking an account and drops its waitlist
	Unregister(ctx context.Context, accountID int64) error

	// RequestWait asks to be notified when the target account's next match completes
	RequestWait(ctx context.Context, targetAccountID, waiterID int64) error

	// Summary returns the rolling statistics of an account
	Summary(ctx context.Context, accountID int64) (*StatsSummary, error)
}
