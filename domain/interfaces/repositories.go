package interfaces

import (
	"context"

	"valwatch/domain/entities"
)

// UpsertResult reports whether an upsert inserted or replaced a row
type UpsertResult string

const (
	UpsertCreated UpsertResult = "created"
	UpsertUpdated UpsertResult = "updated"
)

// TrackedAccountRepository defines keyed access to tracked accounts
type TrackedAccountRepository interface {
	// Get retrieves an account by ID, returning nil when it is not tracked
	Get(ctx context.Context, accountID int64) (*entities.TrackedAccount, error)

	// Upsert inserts or fully replaces an account
	Upsert(ctx context.Context, account *entities.TrackedAccount) (UpsertResult, error)

	// ListAll returns every tracked account
	ListAll(ctx context.Context) ([]*entities.TrackedAccount, error)

	// Delete removes an account and its waitlist entry. Returns entities.ErrAccountNotFound when absent.
	Delete(ctx context.Context, accountID int64) error
}

// WaitlistRepository defines access to per-account waitlists
type WaitlistRepository interface {
	// GetWaitlist returns the waiters registered on an account
	GetWaitlist(ctx context.Context, accountID int64) ([]int64, error)

	// SetWaitlist replaces the waiters registered on an account
	SetWaitlist(ctx context.Context, accountID int64, waiterIDs []int64) error

	// AddWaiters registers waiters on an account, ignoring ones already present
	AddWaiters(ctx context.Context, accountID int64, waiterIDs []int64) error

	// ClearWaitlist removes every waiter registered on an account
	ClearWaitlist(ctx context.Context, accountID int64) error

	// TakeWaitlist atomically returns and removes every waiter registered on an account
	TakeWaitlist(ctx context.Context, accountID int64) ([]int64, error)
}

// GuildSettingsRepository defines read access to guild settings
type GuildSettingsRepository interface {
	// GetGuildSettings returns settings for a guild, or nil when none are stored
	GetGuildSettings(ctx context.Context, guildID int64) (*entities.GuildSettings, error)
}

// AccountStore is the full keyed store the watch cycle runs against
type AccountStore interface {
	TrackedAccountRepository
	WaitlistRepository
	GuildSettingsRepository
}
