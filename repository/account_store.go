package repository

import (
	"context"
	"fmt"

	"valwatch/database"
	"valwatch/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

// AccountStore is the PostgreSQL-backed AccountStore. Single-key operations are one statement each;
// Delete spans both tables in one transaction.
type AccountStore struct {
	*TrackedAccountRepository
	*WaitlistRepository
	interfaces.GuildSettingsRepository

	db *database.DB
}

var _ interfaces.AccountStore = (*AccountStore)(nil)

// NewAccountStore creates the store. settings may wrap the database repository, e.g. with
// NewCachedGuildSettings; nil reads guild settings straight from the database.
func NewAccountStore(db *database.DB, settings interfaces.GuildSettingsRepository) *AccountStore {
	if settings == nil {
		settings = NewGuildSettingsRepository(db)
	}
	return &AccountStore{
		TrackedAccountRepository: NewTrackedAccountRepository(db),
		WaitlistRepository:       NewWaitlistRepository(db),
		GuildSettingsRepository:  settings,
		db:                       db,
	}
}

// Delete removes an account together with the waitlist keyed by it
func (s *AccountStore) Delete(ctx context.Context, accountID int64) error {
	return s.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if err := NewWaitlistRepositoryWithTx(tx).ClearWaitlist(ctx, accountID); err != nil {
			return err
		}
		return NewTrackedAccountRepositoryWithTx(tx).Delete(ctx, accountID)
	})
}

// SetWaitlist replaces an account's waitlist in one transaction
func (s *AccountStore) SetWaitlist(ctx context.Context, accountID int64, waiterIDs []int64) error {
	err := s.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		return NewWaitlistRepositoryWithTx(tx).SetWaitlist(ctx, accountID, waiterIDs)
	})
	if err != nil {
		return fmt.Errorf("failed to replace waitlist for account %d: %w", accountID, err)
	}
	return nil
}
