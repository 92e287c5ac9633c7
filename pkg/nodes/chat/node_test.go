package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dukex/taskflow/pkg/mocks"
	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/protocol"
)

var task = models.Task{ID: "t1", Title: "Ship v2", Completed: true}

func execContext() *models.ExecutionContext {
	return &models.ExecutionContext{ProjectID: "p1", ProjectName: "Launch", Tasks: []models.Task{task}}
}

func TestPostChatMessageNode_DefaultMessage(t *testing.T) {
	adapter := &mocks.MockChatAdapter{}
	adapter.On("PostTaskUpdate", mock.Anything, "", task, "*Launch*: Ship v2 (completed)\nall green").
		Return(protocol.MessageRef{ID: "1712.0001", Channel: "C123"}, nil)

	node, err := NewPostChatMessageNode("chat", nil, adapter)
	require.NoError(t, err)

	prior := protocol.Prior{{NodeID: "gen", Payload: map[string]any{models.PayloadKeyContent: "all green"}}}

	result := node.Execute(context.Background(), execContext(), prior)

	assert.True(t, result.Success)
	assert.Equal(t, map[string]any{
		models.PayloadKeyMessageID: "1712.0001",
		models.PayloadKeyChannel:   "C123",
	}, result.Payload)
	adapter.AssertExpectations(t)
}

func TestPostChatMessageNode_CustomChannelAndMessage(t *testing.T) {
	adapter := &mocks.MockChatAdapter{}
	adapter.On("PostTaskUpdate", mock.Anything, "#releases", task, "Ship v2 done").
		Return(protocol.MessageRef{ID: "1", Channel: "#releases"}, nil)

	node, err := NewPostChatMessageNode("chat", map[string]any{
		"channel": "#releases",
		"message": "{{.task.title}} done",
	}, adapter)
	require.NoError(t, err)

	result := node.Execute(context.Background(), execContext(), nil)

	assert.True(t, result.Success)
	adapter.AssertExpectations(t)
}

func TestPostChatMessageNode_InvalidTemplate(t *testing.T) {
	_, err := NewPostChatMessageNode("chat", map[string]any{"message": "{{.task.title"}, &mocks.MockChatAdapter{})
	assert.Error(t, err)

	_, err = NewPostChatMessageNode("chat", map[string]any{"message": "{{.unknown}}"}, &mocks.MockChatAdapter{})
	assert.Error(t, err)
}

func TestPostChatMessageNode_AdapterError(t *testing.T) {
	adapter := &mocks.MockChatAdapter{}
	adapter.On("PostTaskUpdate", mock.Anything, "", task, mock.Anything).
		Return(protocol.MessageRef{}, errors.New("channel_not_found"))

	node, err := NewPostChatMessageNode("chat", nil, adapter)
	require.NoError(t, err)

	result := node.Execute(context.Background(), execContext(), nil)

	assert.False(t, result.Success)
	assert.Equal(t, "channel_not_found", result.Message)
}

func TestPostChatMessageNodeFactory(t *testing.T) {
	_, err := NewPostChatMessageNodeFactory(nil).Create(context.Background(), "chat", nil)
	require.ErrorIs(t, err, protocol.ErrAdapterNotConfigured)

	factory := NewPostChatMessageNodeFactory(&mocks.MockChatAdapter{})
	assert.Equal(t, models.SubtypePostChatMessage, factory.ID())
	assert.Contains(t, factory.Schema()["properties"], "channel")
}
