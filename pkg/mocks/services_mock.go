package mocks

import (
	"context"

	"github.com/dukex/autopilot/pkg/notify"
	"github.com/stretchr/testify/mock"
)

// MockMailer is a mock implementation of notify.Mailer interface.
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, email notify.Email) error {
	args := m.Called(ctx, email)

	return args.Error(0)
}

// MockConversationUpdater is a mock implementation of actions.ConversationUpdater interface.
type MockConversationUpdater struct {
	mock.Mock
}

func (m *MockConversationUpdater) UpdateMetadata(ctx context.Context, conversationID string, metadata map[string]any) error {
	args := m.Called(ctx, conversationID, metadata)

	return args.Error(0)
}
