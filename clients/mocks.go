package clients

import (
	"context"

	"github.com/stretchr/testify/mock"

	"reacttracker/models"
)

// MockResolver implements the Resolver interface for testing
type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) ResolveUser(ctx context.Context, guildID, userID string) (*models.UserRef, error) {
	args := m.Called(ctx, guildID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserRef), args.Error(1)
}

func (m *MockResolver) ResolveMessage(ctx context.Context, messageID string) (*models.MessageRef, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MessageRef), args.Error(1)
}

func (m *MockResolver) ResolveEmoji(ctx context.Context, guildID, emojiID string) (string, error) {
	args := m.Called(ctx, guildID, emojiID)
	return args.String(0), args.Error(1)
}
