package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/persistence"
)

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock

	Projects  *MockProjectRepository
	Workflows *MockWorkflowRepository
	Actions   *MockActionRepository
}

// NewMockPersistence returns a MockPersistence with empty repository mocks.
func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		Projects:  &MockProjectRepository{},
		Workflows: &MockWorkflowRepository{},
		Actions:   &MockActionRepository{},
	}
}

func (m *MockPersistence) ProjectRepository() persistence.ProjectRepository {
	return m.Projects
}

func (m *MockPersistence) WorkflowRepository() persistence.WorkflowRepository {
	return m.Workflows
}

func (m *MockPersistence) ActionRepository() persistence.ActionRepository {
	return m.Actions
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

// MockProjectRepository is a mock implementation of persistence.ProjectRepository interface.
type MockProjectRepository struct {
	mock.Mock
}

func (m *MockProjectRepository) GetAll(ctx context.Context) ([]*models.Project, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Project), args.Error(1)
}

func (m *MockProjectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Project), args.Error(1)
}

func (m *MockProjectRepository) Save(ctx context.Context, project *models.Project) error {
	args := m.Called(ctx, project)

	return args.Error(0)
}

func (m *MockProjectRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockProjectRepository) Couple(ctx context.Context, projectID, workflowID string) error {
	args := m.Called(ctx, projectID, workflowID)

	return args.Error(0)
}

func (m *MockProjectRepository) Decouple(ctx context.Context, projectID, workflowID string) error {
	args := m.Called(ctx, projectID, workflowID)

	return args.Error(0)
}

// MockWorkflowRepository is a mock implementation of persistence.WorkflowRepository interface.
type MockWorkflowRepository struct {
	mock.Mock
}

func (m *MockWorkflowRepository) GetAll(ctx context.Context) ([]*models.Workflow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

func (m *MockWorkflowRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockActionRepository is a mock implementation of persistence.ActionRepository interface.
type MockActionRepository struct {
	mock.Mock
}

func (m *MockActionRepository) Create(ctx context.Context, record *models.ActionRecord) error {
	args := m.Called(ctx, record)

	return args.Error(0)
}

func (m *MockActionRepository) GetByID(ctx context.Context, id string) (*models.ActionRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.ActionRecord), args.Error(1)
}

func (m *MockActionRepository) Finalize(ctx context.Context, record *models.ActionRecord) error {
	args := m.Called(ctx, record)

	return args.Error(0)
}

func (m *MockActionRepository) ListByProject(ctx context.Context, projectID string, limit int) ([]*models.ActionRecord, error) {
	args := m.Called(ctx, projectID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.ActionRecord), args.Error(1)
}
