package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"valwatch/database"
	"valwatch/domain/entities"
	"valwatch/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

const trackedAccountColumns = `
	account_id, guild_id, region, puuid, game_name, tag_line,
	last_processed_end, streak, rolling_window, rank_label, created_at, updated_at`

// TrackedAccountRepository implements the TrackedAccountRepository interface
type TrackedAccountRepository struct {
	q Queryable
}

// NewTrackedAccountRepository creates a new tracked account repository
func NewTrackedAccountRepository(db *database.DB) *TrackedAccountRepository {
	return &TrackedAccountRepository{q: db.Pool}
}

// NewTrackedAccountRepositoryWithTx creates a new tracked account repository with a transaction
func NewTrackedAccountRepositoryWithTx(tx Queryable) *TrackedAccountRepository {
	return &TrackedAccountRepository{q: tx}
}

// Get retrieves an account by ID
func (r *TrackedAccountRepository) Get(ctx context.Context, accountID int64) (*entities.TrackedAccount, error) {
	query := `SELECT ` + trackedAccountColumns + ` FROM tracked_accounts WHERE account_id = $1`

	account, err := scanTrackedAccount(r.q.QueryRow(ctx, query, accountID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tracked account %d: %w", accountID, err)
	}
	return account, nil
}

// Upsert inserts an account or fully replaces its stored state
func (r *TrackedAccountRepository) Upsert(ctx context.Context, account *entities.TrackedAccount) (interfaces.UpsertResult, error) {
	window, err := json.Marshal(windowOrEmpty(account.RollingWindow))
	if err != nil {
		return "", fmt.Errorf("failed to encode rolling window: %w", err)
	}

	// xmax is only zero on a freshly inserted row
	query := `
		INSERT INTO tracked_accounts (
			account_id, guild_id, region, puuid, game_name, tag_line,
			last_processed_end, streak, rolling_window, rank_label
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (account_id) DO UPDATE SET
			guild_id = EXCLUDED.guild_id,
			region = EXCLUDED.region,
			puuid = EXCLUDED.puuid,
			game_name = EXCLUDED.game_name,
			tag_line = EXCLUDED.tag_line,
			last_processed_end = EXCLUDED.last_processed_end,
			streak = EXCLUDED.streak,
			rolling_window = EXCLUDED.rolling_window,
			rank_label = EXCLUDED.rank_label,
			updated_at = NOW()
		RETURNING (xmax = 0) AS inserted, created_at, updated_at`

	var inserted bool
	err = r.q.QueryRow(ctx, query,
		account.AccountID,
		account.GuildID,
		account.ExternalRef.Region,
		account.ExternalRef.PUUID,
		account.ExternalRef.Name,
		account.ExternalRef.Tag,
		account.LastProcessedEnd.UTC(),
		account.Streak,
		window,
		account.RankLabel,
	).Scan(&inserted, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return "", fmt.Errorf("failed to upsert tracked account %d: %w", account.AccountID, err)
	}

	if inserted {
		return interfaces.UpsertCreated, nil
	}
	return interfaces.UpsertUpdated, nil
}

// ListAll returns every tracked account ordered by ID
func (r *TrackedAccountRepository) ListAll(ctx context.Context) ([]*entities.TrackedAccount, error) {
	query := `SELECT ` + trackedAccountColumns + ` FROM tracked_accounts ORDER BY account_id`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracked accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*entities.TrackedAccount
	for rows.Next() {
		account, err := scanTrackedAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tracked account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over tracked account rows: %w", err)
	}

	return accounts, nil
}

// Delete removes an account row. Waitlist rows are removed by AccountStore.Delete in the same transaction.
func (r *TrackedAccountRepository) Delete(ctx context.Context, accountID int64) error {
	result, err := r.q.Exec(ctx, `DELETE FROM tracked_accounts WHERE account_id = $1`, accountID)
	if err != nil {
		return fmt.Errorf("failed to delete tracked account %d: %w", accountID, err)
	}
	if result.RowsAffected() == 0 {
		return entities.ErrAccountNotFound
	}
	return nil
}

func scanTrackedAccount(row pgx.Row) (*entities.TrackedAccount, error) {
	var account entities.TrackedAccount
	var window []byte
	err := row.Scan(
		&account.AccountID,
		&account.GuildID,
		&account.ExternalRef.Region,
		&account.ExternalRef.PUUID,
		&account.ExternalRef.Name,
		&account.ExternalRef.Tag,
		&account.LastProcessedEnd,
		&account.Streak,
		&window,
		&account.RankLabel,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(window, &account.RollingWindow); err != nil {
		return nil, fmt.Errorf("failed to decode rolling window for account %d: %w", account.AccountID, err)
	}
	account.RollingWindow = windowOrEmpty(account.RollingWindow)
	account.LastProcessedEnd = account.LastProcessedEnd.UTC()

	return &account, nil
}

func windowOrEmpty(window []entities.PerformanceSample) []entities.PerformanceSample {
	if window == nil {
		return []entities.PerformanceSample{}
	}
	return window
}
