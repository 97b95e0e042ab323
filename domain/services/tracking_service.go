package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"valwatch/domain/entities"
	"valwatch/domain/interfaces"
)

type trackingService struct {
	store    interfaces.AccountStore
	resolver interfaces.AccountResolver
	now      func() time.Time
}

// NewTrackingService creates a new tracking service
func NewTrackingService(store interfaces.AccountStore, resolver interfaces.AccountResolver) interfaces.TrackingService {
	return &trackingService{
		store:    store,
		resolver: resolver,
		now:      time.Now,
	}
}

// Register resolves a Riot ID and starts tracking it for an account
func (s *trackingService) Register(ctx context.Context, accountID, guildID int64, name, tag string) (*entities.TrackedAccount, error) {
	if err := s.validateGameName(name); err != nil {
		return nil, err
	}
	if err := s.validateTagLine(tag); err != nil {
		return nil, err
	}

	existing, err := s.store.Get(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up account %d: %w", accountID, err)
	}
	if existing != nil {
		return nil, entities.ErrAccountAlreadyTracked
	}

	ref, err := s.resolver.ResolveAccount(ctx, strings.TrimSpace(name), strings.TrimSpace(tag))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s#%s: %w", name, tag, err)
	}

	account := entities.NewTrackedAccount(accountID, guildID, *ref, s.now())
	if _, err := s.store.Upsert(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to save tracked account: %w", err)
	}

	return account, nil
}

// Unregister stops tracking an account. The store drops its waitlist with it.
func (s *trackingService) Unregister(ctx context.Context, accountID int64) error {
	if err := s.store.Delete(ctx, accountID); err != nil {
		return fmt.Errorf("failed to remove tracked account: %w", err)
	}
	return nil
}

// RequestWait registers a waiter for the target account's next match
func (s *trackingService) RequestWait(ctx context.Context, targetAccountID, waiterID int64) error {
	if targetAccountID == waiterID {
		return fmt.Errorf("%w: cannot wait on your own account", entities.ErrInvalidRequest)
	}

	target, err := s.store.Get(ctx, targetAccountID)
	if err != nil {
		return fmt.Errorf("failed to look up account %d: %w", targetAccountID, err)
	}
	if target == nil {
		return entities.ErrAccountNotFound
	}

	if err := s.store.AddWaiters(ctx, targetAccountID, []int64{waiterID}); err != nil {
		return fmt.Errorf("failed to add waiter: %w", err)
	}
	return nil
}

// Summary returns the rolling statistics of an account
func (s *trackingService) Summary(ctx context.Context, accountID int64) (*interfaces.StatsSummary, error) {
	account, err := s.store.Get(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up account %d: %w", accountID, err)
	}
	if account == nil {
		return nil, entities.ErrAccountNotFound
	}

	return &interfaces.StatsSummary{
		AccountID:          account.AccountID,
		RiotID:             account.ExternalRef.GetFullName(),
		RankLabel:          account.RankLabel,
		Streak:             account.Streak,
		GamesInWindow:      len(account.RollingWindow),
		HeadshotRate:       account.HeadshotRate(),
		AverageCombatScore: account.AverageCombatScore(),
	}, nil
}

// validateGameName validates the name half of a Riot ID
func (s *trackingService) validateGameName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: game name cannot be empty", entities.ErrInvalidRequest)
	}

	if n := utf8.RuneCountInString(trimmed); n < 3 || n > 16 {
		return fmt.Errorf("%w: game name must be between 3 and 16 characters", entities.ErrInvalidRequest)
	}

	if strings.Contains(trimmed, "#") {
		return fmt.Errorf("%w: game name cannot contain '#'", entities.ErrInvalidRequest)
	}

	return nil
}

// validateTagLine validates the tag half of a Riot ID
func (s *trackingService) validateTagLine(tag string) error {
	trimmed := strings.TrimSpace(tag)
	if trimmed == "" {
		return fmt.Errorf("%w: tag line cannot be empty", entities.ErrInvalidRequest)
	}

	if n := utf8.RuneCountInString(trimmed); n < 3 || n > 5 {
		return fmt.Errorf("%w: tag line must be between 3 and 5 characters", entities.ErrInvalidRequest)
	}

	for _, char := range trimmed {
		if !unicode.IsLetter(char) && !unicode.IsDigit(char) {
			return fmt.Errorf("%w: tag line contains invalid characters. Only letters and numbers are allowed", entities.ErrInvalidRequest)
		}
	}

	return nil
}
