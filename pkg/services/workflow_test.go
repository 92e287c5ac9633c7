package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type configValidatorFunc func(*models.Workflow) error

func (f configValidatorFunc) ValidateWorkflow(workflow *models.Workflow) error {
	return f(workflow)
}

func validWorkflow() *models.Workflow {
	return &models.Workflow{
		Name: "Summarize",
		Nodes: []*models.Node{
			{ID: "in", Kind: models.NodeKindInput, Subtype: models.SubtypeTaskCreated},
			{ID: "ai", Kind: models.NodeKindProcessing, Subtype: models.SubtypeAIGenerate},
		},
		Edges: []*models.Edge{{ID: "e1", SourceNodeID: "in", TargetNodeID: "ai"}},
	}
}

func TestNewWorkflow(t *testing.T) {
	persistence := file.NewPersistence(t.TempDir())
	service := NewWorkflow(persistence, nil)

	assert.NotNil(t, service)
	assert.Equal(t, persistence, service.persistence)

	message, ok := service.HealthCheck(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "Persistence layer is healthy", message)
}

func TestWorkflow_SaveAndFetch(t *testing.T) {
	ctx := context.Background()
	service := NewWorkflow(file.NewPersistence(t.TempDir()), nil)

	saved, err := service.Save(ctx, "wf-1", validWorkflow())
	require.NoError(t, err)
	assert.Equal(t, "wf-1", saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())

	createdAt := saved.CreatedAt

	update := validWorkflow()
	update.Name = "Summarize v2"

	updated, err := service.Save(ctx, "wf-1", update)
	require.NoError(t, err)
	assert.Equal(t, createdAt, updated.CreatedAt)

	got, err := service.GetWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "Summarize v2", got.Name)

	all, err := service.FetchAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestWorkflow_SaveRejectsInvalid(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		id       string
		workflow func() *models.Workflow
		want     error
	}{
		{
			name:     "nil workflow",
			id:       "wf-1",
			workflow: func() *models.Workflow { return nil },
			want:     ErrWorkflowNil,
		},
		{
			name: "id mismatch",
			id:   "wf-1",
			workflow: func() *models.Workflow {
				w := validWorkflow()
				w.ID = "other"

				return w
			},
			want: ErrIDMismatch,
		},
		{
			name: "missing name",
			id:   "wf-1",
			workflow: func() *models.Workflow {
				w := validWorkflow()
				w.Name = ""

				return w
			},
			want: ErrInvalidRequest,
		},
		{
			name: "cycle",
			id:   "wf-1",
			workflow: func() *models.Workflow {
				w := validWorkflow()
				w.Nodes = append(w.Nodes, &models.Node{ID: "ai2", Kind: models.NodeKindProcessing, Subtype: models.SubtypeAIAnalyze})
				w.Edges = append(w.Edges,
					&models.Edge{ID: "e2", SourceNodeID: "ai", TargetNodeID: "ai2"},
					&models.Edge{ID: "e3", SourceNodeID: "ai2", TargetNodeID: "ai"},
				)

				return w
			},
			want: ErrInvalidWorkflow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewWorkflow(file.NewPersistence(t.TempDir()), nil)

			_, err := service.Save(ctx, tt.id, tt.workflow())
			require.ErrorIs(t, err, tt.want)
			assert.True(t, IsValidationError(err))

			_, err = service.FetchByID(ctx, tt.id)
			assert.ErrorIs(t, err, ErrWorkflowNotFound)
		})
	}
}

func TestWorkflow_ValidateUsesConfigValidator(t *testing.T) {
	configErr := errors.New(`node "ai": invalid node configuration`)
	service := NewWorkflow(file.NewPersistence(t.TempDir()), configValidatorFunc(func(*models.Workflow) error {
		return configErr
	}))

	err := service.Validate(validWorkflow())
	require.ErrorIs(t, err, ErrInvalidWorkflow)
	assert.Contains(t, err.Error(), "invalid node configuration")
}

func TestWorkflow_Delete(t *testing.T) {
	ctx := context.Background()
	service := NewWorkflow(file.NewPersistence(t.TempDir()), nil)

	err := service.Delete(ctx, "wf-1")
	require.ErrorIs(t, err, ErrWorkflowNotFound)

	_, err = service.Save(ctx, "wf-1", validWorkflow())
	require.NoError(t, err)

	require.NoError(t, service.Delete(ctx, "wf-1"))

	_, err = service.FetchByID(ctx, "wf-1")
	require.ErrorIs(t, err, ErrWorkflowNotFound)
}
