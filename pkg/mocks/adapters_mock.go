package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/protocol"
)

// MockAIAdapter is a mock implementation of protocol.AIAdapter interface.
type MockAIAdapter struct {
	mock.Mock
}

func (m *MockAIAdapter) Analyze(ctx context.Context, task models.Task) (string, error) {
	args := m.Called(ctx, task)

	return args.String(0), args.Error(1)
}

func (m *MockAIAdapter) Generate(ctx context.Context, task models.Task, contentType string) (string, error) {
	args := m.Called(ctx, task, contentType)

	return args.String(0), args.Error(1)
}

func (m *MockAIAdapter) Categorize(ctx context.Context, task models.Task) (string, error) {
	args := m.Called(ctx, task)

	return args.String(0), args.Error(1)
}

// MockDocumentStoreAdapter is a mock implementation of protocol.DocumentStoreAdapter interface.
type MockDocumentStoreAdapter struct {
	mock.Mock
}

func (m *MockDocumentStoreAdapter) UpsertTaskPage(
	ctx context.Context,
	databaseID string,
	task models.Task,
	summary string,
) (protocol.PageRef, error) {
	args := m.Called(ctx, databaseID, task, summary)

	return args.Get(0).(protocol.PageRef), args.Error(1)
}

// MockChatAdapter is a mock implementation of protocol.ChatAdapter interface.
type MockChatAdapter struct {
	mock.Mock
}

func (m *MockChatAdapter) PostTaskUpdate(
	ctx context.Context,
	channel string,
	task models.Task,
	text string,
) (protocol.MessageRef, error) {
	args := m.Called(ctx, channel, task, text)

	return args.Get(0).(protocol.MessageRef), args.Error(1)
}
