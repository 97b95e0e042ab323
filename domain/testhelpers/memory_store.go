package testhelpers

import (
	"context"
	"sort"
	"sync"

	"valwatch/domain/entities"
	"valwatch/domain/interfaces"
)

// MemoryAccountStore is an in-memory AccountStore for tests that need real read-your-writes
// behaviour across many calls. Accounts are copied on the way in and out.
type MemoryAccountStore struct {
	mu        sync.Mutex
	accounts  map[int64]entities.TrackedAccount
	waitlists map[int64][]int64
	settings  map[int64]entities.GuildSettings

	// Upserts records every account written, in order
	Upserts []entities.TrackedAccount
	// FailUpsertFor makes Upsert fail for the listed account IDs
	FailUpsertFor map[int64]error
	// FailListAll makes ListAll fail
	FailListAll error
}

// NewMemoryAccountStore creates an empty store
func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{
		accounts:      make(map[int64]entities.TrackedAccount),
		waitlists:     make(map[int64][]int64),
		settings:      make(map[int64]entities.GuildSettings),
		FailUpsertFor: make(map[int64]error),
	}
}

// PutGuildSettings seeds settings for a guild
func (s *MemoryAccountStore) PutGuildSettings(settings entities.GuildSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[settings.GuildID] = settings
}

func (s *MemoryAccountStore) Get(_ context.Context, accountID int64) (*entities.TrackedAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[accountID]
	if !ok {
		return nil, nil
	}
	return cloneAccount(account), nil
}

func (s *MemoryAccountStore) Upsert(_ context.Context, account *entities.TrackedAccount) (interfaces.UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.FailUpsertFor[account.AccountID]; err != nil {
		return "", err
	}
	_, exists := s.accounts[account.AccountID]
	s.accounts[account.AccountID] = *cloneAccount(*account)
	s.Upserts = append(s.Upserts, *cloneAccount(*account))
	if exists {
		return interfaces.UpsertUpdated, nil
	}
	return interfaces.UpsertCreated, nil
}

func (s *MemoryAccountStore) ListAll(_ context.Context) ([]*entities.TrackedAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailListAll != nil {
		return nil, s.FailListAll
	}
	accounts := make([]*entities.TrackedAccount, 0, len(s.accounts))
	for _, a := range s.accounts {
		accounts = append(accounts, cloneAccount(a))
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].AccountID < accounts[j].AccountID })
	return accounts, nil
}

func (s *MemoryAccountStore) Delete(_ context.Context, accountID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[accountID]; !ok {
		return entities.ErrAccountNotFound
	}
	delete(s.accounts, accountID)
	delete(s.waitlists, accountID)
	return nil
}

func (s *MemoryAccountStore) GetWaitlist(_ context.Context, accountID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.waitlists[accountID]...), nil
}

func (s *MemoryAccountStore) SetWaitlist(_ context.Context, accountID int64, waiterIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(waiterIDs) == 0 {
		delete(s.waitlists, accountID)
		return nil
	}
	s.waitlists[accountID] = append([]int64(nil), waiterIDs...)
	return nil
}

func (s *MemoryAccountStore) AddWaiters(_ context.Context, accountID int64, waiterIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range waiterIDs {
		present := false
		for _, existing := range s.waitlists[accountID] {
			if existing == id {
				present = true
				break
			}
		}
		if !present {
			s.waitlists[accountID] = append(s.waitlists[accountID], id)
		}
	}
	return nil
}

func (s *MemoryAccountStore) ClearWaitlist(_ context.Context, accountID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.waitlists, accountID)
	return nil
}

func (s *MemoryAccountStore) TakeWaitlist(_ context.Context, accountID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	waiters := s.waitlists[accountID]
	delete(s.waitlists, accountID)
	return waiters, nil
}

func (s *MemoryAccountStore) GetGuildSettings(_ context.Context, guildID int64) (*entities.GuildSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings, ok := s.settings[guildID]
	if !ok {
		return nil, nil
	}
	return &settings, nil
}

func cloneAccount(a entities.TrackedAccount) *entities.TrackedAccount {
	a.RollingWindow = append([]entities.PerformanceSample(nil), a.RollingWindow...)
	return &a
}
