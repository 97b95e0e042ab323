package testhelpers

import (
	"context"

	"valwatch/domain/entities"
	"valwatch/domain/interfaces"

	"github.com/stretchr/testify/mock"
)

// MockAccountStore is a mock implementation of AccountStore
type MockAccountStore struct {
	mock.Mock
}

func (m *MockAccountStore) Get(ctx context.Context, accountID int64) (*entities.TrackedAccount, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.TrackedAccount), args.Error(1)
}

func (m *MockAccountStore) Upsert(ctx context.Context, account *entities.TrackedAccount) (interfaces.UpsertResult, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(interfaces.UpsertResult), args.Error(1)
}

func (m *MockAccountStore) ListAll(ctx context.Context) ([]*entities.TrackedAccount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.TrackedAccount), args.Error(1)
}

func (m *MockAccountStore) Delete(ctx context.Context, accountID int64) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

func (m *MockAccountStore) GetWaitlist(ctx context.Context, accountID int64) ([]int64, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockAccountStore) SetWaitlist(ctx context.Context, accountID int64, waiterIDs []int64) error {
	args := m.Called(ctx, accountID, waiterIDs)
	return args.Error(0)
}

func (m *MockAccountStore) AddWaiters(ctx context.Context, accountID int64, waiterIDs []int64) error {
	args := m.Called(ctx, accountID, waiterIDs)
	return args.Error(0)
}

func (m *MockAccountStore) ClearWaitlist(ctx context.Context, accountID int64) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

func (m *MockAccountStore) TakeWaitlist(ctx context.Context, accountID int64) ([]int64, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockAccountStore) GetGuildSettings(ctx context.Context, guildID int64) (*entities.GuildSettings, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.GuildSettings), args.Error(1)
}

// MockAccountResolver is a mock implementation of AccountResolver
type MockAccountResolver struct {
	mock.Mock
}

func (m *MockAccountResolver) ResolveAccount(ctx context.Context, name, tag string) (*entities.ExternalRef, error) {
	args := m.Called(ctx, name, tag)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ExternalRef), args.Error(1)
}
