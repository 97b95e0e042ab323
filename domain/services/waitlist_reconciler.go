package services

import (
	"context"
	"errors"
	"fmt"

	"valwatch/domain/interfaces"

	"github.com/elliotchance/pie/v2"
)

// ReleasedWaiters is the result of clearing the waitlists of a party
type ReleasedWaiters struct {
	// ByTarget holds the waiters taken from each party member's waitlist
	ByTarget map[int64][]int64
	// Waiters is the deduplicated, sorted union handed to the notification sink
	Waiters []int64
}

// IsEmpty reports whether no waiter was released
func (r ReleasedWaiters) IsEmpty() bool {
	return len(r.Waiters) == 0
}

// WaitlistReconciler releases the waiters of accounts whose next match was just ingested
type WaitlistReconciler struct {
	waitlists interfaces.WaitlistRepository
}

// NewWaitlistReconciler creates a new waitlist reconciler
func NewWaitlistReconciler(waitlists interfaces.WaitlistRepository) *WaitlistReconciler {
	return &WaitlistReconciler{waitlists: waitlists}
}

// Reconcile takes and clears the waitlist of every party member. Members whose waitlist
// could not be taken are reported in the returned error; the others are still released.
func (r *WaitlistReconciler) Reconcile(ctx context.Context, memberIDs []int64) (ReleasedWaiters, error) {
	released := ReleasedWaiters{ByTarget: make(map[int64][]int64)}
	var errs []error

	for _, memberID := range pie.Unique(memberIDs) {
		waiters, err := r.waitlists.TakeWaitlist(ctx, memberID)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to take waitlist for account %d: %w", memberID, err))
			continue
		}
		if len(waiters) == 0 {
			continue
		}
		released.ByTarget[memberID] = waiters
		released.Waiters = append(released.Waiters, waiters...)
	}

	if len(released.Waiters) > 0 {
		released.Waiters = pie.Sort(pie.Unique(released.Waiters))
	}
	return released, errors.Join(errs...)
}

// Restore puts released waiters back, so they are notified on the target's next match instead
func (r *WaitlistReconciler) Restore(ctx context.Context, released ReleasedWaiters) error {
	var errs []error
	for targetID, waiters := range released.ByTarget {
		if err := r.waitlists.AddWaiters(ctx, targetID, waiters); err != nil {
			errs = append(errs, fmt.Errorf("failed to restore waitlist for account %d: %w", targetID, err))
		}
	}
	return errors.Join(errs...)
}
