package registry

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/taskflow/pkg/mocks"
	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/protocol"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()

	registry := NewRegistry(slog.Default())
	require.NoError(t, registry.RegisterDefaultNodes(protocol.Adapters{
		AI:            &mocks.MockAIAdapter{},
		DocumentStore: &mocks.MockDocumentStoreAdapter{},
		Chat:          &mocks.MockChatAdapter{},
	}))

	return registry
}

func TestRegisterDefaultNodes(t *testing.T) {
	registry := newTestRegistry(t)

	available := registry.GetAvailableNodes()
	require.Len(t, available, len(models.Subtypes()))

	ids := make([]string, 0, len(available))
	for _, factory := range available {
		ids = append(ids, factory.ID())

		kind, ok := models.KindOfSubtype(factory.ID())
		require.True(t, ok)
		assert.Equal(t, kind, factory.Kind(), factory.ID())
	}

	assert.Equal(t, models.Subtypes(), ids)
	assert.NoError(t, registry.HealthCheck(context.Background()))
}

func TestHealthCheck_Missing(t *testing.T) {
	registry := NewRegistry(slog.Default())

	err := registry.HealthCheck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), models.SubtypeTaskCreated)
}

func TestCreateNode(t *testing.T) {
	registry := newTestRegistry(t)

	testCases := []struct {
		name    string
		node    *models.Node
		wantErr error
	}{
		{
			name: "input",
			node: &models.Node{ID: "in", Kind: models.NodeKindInput, Subtype: models.SubtypeTaskCreated},
		},
		{
			name: "generate with content type",
			node: &models.Node{
				ID:      "gen",
				Kind:    models.NodeKindProcessing,
				Subtype: models.SubtypeAIGenerate,
				Config:  map[string]any{"content_type": "checklist"},
			},
		},
		{
			name: "chat with channel",
			node: &models.Node{
				ID:      "chat",
				Kind:    models.NodeKindOutput,
				Subtype: models.SubtypePostChatMessage,
				Config:  map[string]any{"channel": "#general"},
			},
		},
		{
			name:    "unknown subtype",
			node:    &models.Node{ID: "x", Kind: models.NodeKindProcessing, Subtype: "ai-translate"},
			wantErr: ErrUnknownSubtype,
		},
		{
			name:    "kind mismatch",
			node:    &models.Node{ID: "x", Kind: models.NodeKindOutput, Subtype: models.SubtypeAIAnalyze},
			wantErr: ErrKindMismatch,
		},
		{
			name: "content type outside enum",
			node: &models.Node{
				ID:      "gen",
				Kind:    models.NodeKindProcessing,
				Subtype: models.SubtypeAIGenerate,
				Config:  map[string]any{"content_type": "poem"},
			},
			wantErr: ErrInvalidConfig,
		},
		{
			name: "unexpected property",
			node: &models.Node{
				ID:      "in",
				Kind:    models.NodeKindInput,
				Subtype: models.SubtypeTaskCompleted,
				Config:  map[string]any{"url": "https://example.com"},
			},
			wantErr: ErrInvalidConfig,
		},
		{
			name: "broken message template",
			node: &models.Node{
				ID:      "chat",
				Kind:    models.NodeKindOutput,
				Subtype: models.SubtypePostChatMessage,
				Config:  map[string]any{"message": "{{.task.title"},
			},
			wantErr: ErrInvalidConfig,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			executor, err := registry.CreateNode(context.Background(), tc.node)
			if tc.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.node.ID, executor.ID())
			assert.Equal(t, tc.node.Subtype, executor.Type())
		})
	}
}

func TestCreateNode_AdapterNotConfigured(t *testing.T) {
	registry := NewRegistry(slog.Default())
	require.NoError(t, registry.RegisterDefaultNodes(protocol.Adapters{}))

	_, err := registry.CreateNode(context.Background(), &models.Node{
		ID:      "ana",
		Kind:    models.NodeKindProcessing,
		Subtype: models.SubtypeAIAnalyze,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, protocol.ErrAdapterNotConfigured)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidateWorkflow(t *testing.T) {
	registry := newTestRegistry(t)

	workflow := &models.Workflow{
		Nodes: []*models.Node{
			{ID: "in", Kind: models.NodeKindInput, Subtype: models.SubtypeTaskCreated},
			{ID: "doc", Kind: models.NodeKindOutput, Subtype: models.SubtypeUpdateDocumentStore,
				Config: map[string]any{"database_id": ""}},
		},
	}

	err := registry.ValidateWorkflow(workflow)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), `node "doc"`)

	workflow.Nodes[1].Config = nil
	assert.NoError(t, registry.ValidateWorkflow(workflow))
}
