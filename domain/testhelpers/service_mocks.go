package testhelpers

import (
	"context"

	"valwatch/domain/entities"
	"valwatch/domain/interfaces"

	"github.com/stretchr/testify/mock"
)

// MockTrackingService is a mock implementation of TrackingService
type MockTrackingService struct {
	mock.Mock
}

var _ interfaces.TrackingService = (*MockTrackingService)(nil)

func (m *MockTrackingService) Register(ctx context.Context, accountID, guildID int64, name, tag string) (*entities.TrackedAccount, error) {
	args := m.Called(ctx, accountID, guildID, name, tag)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.TrackedAccount), args.Error(1)
}

func (m *MockTrackingService) Unregister(ctx context.Context, accountID int64) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

func (m *MockTrackingService) RequestWait(ctx context.Context, targetAccountID, waiterID int64) error {
	args := m.Called(ctx, targetAccountID, waiterID)
	return args.Error(0)
}

func (m *MockTrackingService) Summary(ctx context.Context, accountID int64) (*interfaces.StatsSummary, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.StatsSummary), args.Error(1)
}
