package repository

import (
	"context"
	"fmt"

	"valwatch/database"

	"github.com/jackc/pgx/v5"
)

// WaitlistRepository implements the WaitlistRepository interface.
// Each waiter is one row keyed by (target_account_id, waiter_id).
type WaitlistRepository struct {
	q Queryable
}

// NewWaitlistRepository creates a new waitlist repository
func NewWaitlistRepository(db *database.DB) *WaitlistRepository {
	return &WaitlistRepository{q: db.Pool}
}

// NewWaitlistRepositoryWithTx creates a new waitlist repository with a transaction
func NewWaitlistRepositoryWithTx(tx Queryable) *WaitlistRepository {
	return &WaitlistRepository{q: tx}
}

// GetWaitlist returns the waiters registered on an account, oldest first
func (r *WaitlistRepository) GetWaitlist(ctx context.Context, accountID int64) ([]int64, error) {
	query := `
		SELECT waiter_id
		FROM waitlist_entries
		WHERE target_account_id = $1
		ORDER BY created_at, waiter_id`

	rows, err := r.q.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get waitlist for account %d: %w", accountID, err)
	}
	return collectWaiterIDs(rows)
}

// SetWaitlist replaces the waiters registered on an account. Callers wanting atomicity run it
// inside a transaction.
func (r *WaitlistRepository) SetWaitlist(ctx context.Context, accountID int64, waiterIDs []int64) error {
	if err := r.ClearWaitlist(ctx, accountID); err != nil {
		return err
	}
	return r.AddWaiters(ctx, accountID, waiterIDs)
}

// AddWaiters registers waiters on an account, ignoring ones already present
func (r *WaitlistRepository) AddWaiters(ctx context.Context, accountID int64, waiterIDs []int64) error {
	if len(waiterIDs) == 0 {
		return nil
	}

	query := `
		INSERT INTO waitlist_entries (target_account_id, waiter_id)
		SELECT $1, UNNEST($2::BIGINT[])
		ON CONFLICT (target_account_id, waiter_id) DO NOTHING`

	if _, err := r.q.Exec(ctx, query, accountID, waiterIDs); err != nil {
		return fmt.Errorf("failed to add waiters to account %d: %w", accountID, err)
	}
	return nil
}

// ClearWaitlist removes every waiter registered on an account
func (r *WaitlistRepository) ClearWaitlist(ctx context.Context, accountID int64) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM waitlist_entries WHERE target_account_id = $1`, accountID); err != nil {
		return fmt.Errorf("failed to clear waitlist for account %d: %w", accountID, err)
	}
	return nil
}

// TakeWaitlist atomically returns and removes every waiter registered on an account
func (r *WaitlistRepository) TakeWaitlist(ctx context.Context, accountID int64) ([]int64, error) {
	query := `
		DELETE FROM waitlist_entries
		WHERE target_account_id = $1
		RETURNING waiter_id`

	rows, err := r.q.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to take waitlist for account %d: %w", accountID, err)
	}
	return collectWaiterIDs(rows)
}

func collectWaiterIDs(rows pgx.Rows) ([]int64, error) {
	defer rows.Close()

	var waiters []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan waiter: %w", err)
		}
		waiters = append(waiters, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over waitlist rows: %w", err)
	}
	return waiters, nil
}
