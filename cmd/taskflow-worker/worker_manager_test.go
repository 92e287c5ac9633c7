package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dukex/taskflow/pkg/engine"
	"github.com/dukex/taskflow/pkg/events"
	"github.com/dukex/taskflow/pkg/mocks"
	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/persistence/file"
	"github.com/dukex/taskflow/pkg/protocol"
	"github.com/dukex/taskflow/pkg/registry"
	"github.com/dukex/taskflow/pkg/services"
	"github.com/dukex/taskflow/pkg/testutil"
	"github.com/dukex/taskflow/pkg/throttle"
)

type workerEnv struct {
	worker  *WorkerManager
	files   *file.Persistence
	ai      *mocks.MockAIAdapter
	bus     *mocks.MockEventBus
	actions *services.ActionRecorder
}

func setupWorker(t *testing.T, schedule string) *workerEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	files := file.NewPersistence(t.TempDir())
	ai := &mocks.MockAIAdapter{}
	bus := &mocks.MockEventBus{}

	reg := registry.NewRegistry(logger)
	require.NoError(t, reg.RegisterDefaultNodes(protocol.Adapters{AI: ai}))

	projects := services.NewProject(files, logger)
	actions := services.NewActionRecorder(files.ActionRepository(), nil, logger)

	eng := engine.New(
		projects,
		services.NewWorkflow(files, reg),
		actions,
		throttle.NewMemoryThrottle(time.Minute, clockwork.NewRealClock()),
		engine.NewScheduler(engine.NewDispatcher(reg, logger), logger),
		logger,
	)

	return &workerEnv{
		worker:  NewWorkerManager("test-worker", projects, eng, bus, schedule, logger),
		files:   files,
		ai:      ai,
		bus:     bus,
		actions: actions,
	}
}

// seed stores a project coupled to a task-created -> ai-generate workflow.
func (e *workerEnv) seed(t *testing.T, project *models.Project) {
	t.Helper()

	ctx := context.Background()

	workflow := testutil.CreateTestWorkflow(
		[]*models.Node{
			testutil.CreateTestNode("created", models.SubtypeTaskCreated),
			testutil.CreateTestNode("generate", models.SubtypeAIGenerate),
		},
		[]*models.Edge{testutil.CreateTestEdge("created", "generate")},
		testutil.WithWorkflowID("wf-1"),
	)

	require.NoError(t, e.files.WorkflowRepository().Save(ctx, workflow))
	require.NoError(t, e.files.ProjectRepository().Save(ctx, project))
	require.NoError(t, e.files.ProjectRepository().Couple(ctx, project.ID, "wf-1"))
}

func (e *workerEnv) history(t *testing.T, projectID string) []*models.ActionRecord {
	t.Helper()

	records, err := e.actions.History(context.Background(), projectID, 0)
	require.NoError(t, err)

	return records
}

func TestNewWorkerManager(t *testing.T) {
	env := setupWorker(t, "")

	assert.Equal(t, "test-worker", env.worker.id)
	assert.Equal(t, env.bus, env.worker.eventBus)
	assert.NotNil(t, env.worker.logger)
}

func TestWorkerManager_HandleProjectChanged_StoredProject(t *testing.T) {
	env := setupWorker(t, "")
	task := testutil.CreateTestTask("t1", "Write docs")

	env.ai.On("Generate", mock.Anything, task, "summary").Return("summary text", nil).Once()
	env.seed(t, testutil.CreateTestProject("p1", task))

	err := env.worker.handleProjectChanged(context.Background(), &events.ProjectChanged{
		BaseEvent: events.NewBaseEvent(events.ProjectChangedEvent, "p1"),
	})
	require.NoError(t, err)

	records := env.history(t, "p1")
	require.Len(t, records, 1)
	assert.Equal(t, models.ActionStatusCompleted, records[0].Status)

	env.ai.AssertExpectations(t)
}

func TestWorkerManager_HandleProjectChanged_Snapshot(t *testing.T) {
	env := setupWorker(t, "")
	env.seed(t, testutil.CreateTestProject("p1", testutil.CreateTestTask("t1", "Write docs")))

	// An empty proposed snapshot emits no trigger.
	err := env.worker.handleProjectChanged(context.Background(), &events.ProjectChanged{
		BaseEvent: events.NewBaseEvent(events.ProjectChangedEvent, "p1"),
		Snapshot:  &models.Project{Tasks: []models.Task{}},
	})
	require.NoError(t, err)

	assert.Empty(t, env.history(t, "p1"))
	env.ai.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func TestWorkerManager_HandleProjectChanged_UnknownProject(t *testing.T) {
	env := setupWorker(t, "")

	err := env.worker.handleProjectChanged(context.Background(), &events.ProjectChanged{
		BaseEvent: events.NewBaseEvent(events.ProjectChangedEvent, "missing"),
	})
	require.NoError(t, err)
}

func TestWorkerManager_HandleProjectChanged_InvalidEvent(t *testing.T) {
	env := setupWorker(t, "")

	require.NoError(t, env.worker.handleProjectChanged(context.Background(), "invalid-event"))
}

func TestWorkerManager_HandleProjectChanged_EvaluationError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	files := file.NewPersistence(t.TempDir())
	projects := services.NewProject(files, logger)

	require.NoError(t, files.ProjectRepository().Save(context.Background(), testutil.CreateTestProject("p1")))

	evalErr := errors.New("redis: connection refused")
	worker := NewWorkerManager("w", projects, evaluatorFunc(func(context.Context, *models.Project) (*engine.Report, error) {
		return nil, evalErr
	}), &mocks.MockEventBus{}, "", logger)

	err := worker.handleProjectChanged(context.Background(), &events.ProjectChanged{
		BaseEvent: events.NewBaseEvent(events.ProjectChangedEvent, "p1"),
	})
	require.ErrorIs(t, err, evalErr)
}

func TestWorkerManager_Sweep(t *testing.T) {
	env := setupWorker(t, "")
	task := testutil.CreateTestTask("t1", "Write docs")

	env.ai.On("Generate", mock.Anything, task, "summary").Return("summary text", nil)
	env.seed(t, testutil.CreateTestProject("p1", task))
	require.NoError(t, env.files.ProjectRepository().Save(context.Background(), testutil.CreateTestProject("p2")))

	env.worker.sweep(context.Background())

	assert.Len(t, env.history(t, "p1"), 1)
	assert.Empty(t, env.history(t, "p2"))
}

type prunerFunc func() int

func (f prunerFunc) Prune() int { return f() }

func TestWorkerManager_SweepPrunesThrottle(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	files := file.NewPersistence(t.TempDir())
	require.NoError(t, files.ProjectRepository().Save(context.Background(), testutil.CreateTestProject("p1")))

	calls := 0
	worker := NewWorkerManager("w", services.NewProject(files, logger),
		evaluatorFunc(func(context.Context, *models.Project) (*engine.Report, error) {
			return &engine.Report{}, nil
		}),
		&mocks.MockEventBus{}, "", logger,
		WithPruner(prunerFunc(func() int {
			calls++

			return 0
		})),
	)

	worker.sweep(context.Background())
	worker.sweep(context.Background())

	assert.Equal(t, 2, calls)
}

func TestWorkerManager_StartStopsOnCancel(t *testing.T) {
	env := setupWorker(t, "@every 1h")

	env.bus.On("Handle", events.ProjectChangedEvent, mock.Anything).Return(nil).Once()
	env.bus.On("Subscribe", mock.Anything).Return(nil).Once()

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- env.worker.Start(ctx) }()

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}

	env.bus.AssertExpectations(t)
}

func TestWorkerManager_StartInvalidSchedule(t *testing.T) {
	env := setupWorker(t, "not a schedule")

	env.bus.On("Handle", events.ProjectChangedEvent, mock.Anything).Return(nil)
	env.bus.On("Subscribe", mock.Anything).Return(nil)

	require.Error(t, env.worker.Start(context.Background()))
}

func TestWorkerManager_StartSubscribeError(t *testing.T) {
	env := setupWorker(t, "")
	subscribeErr := errors.New("kafka: brokers unavailable")

	env.bus.On("Handle", events.ProjectChangedEvent, mock.Anything).Return(nil)
	env.bus.On("Subscribe", mock.Anything).Return(subscribeErr)

	require.ErrorIs(t, env.worker.Start(context.Background()), subscribeErr)
}

type evaluatorFunc func(ctx context.Context, project *models.Project) (*engine.Report, error)

func (f evaluatorFunc) Evaluate(ctx context.Context, project *models.Project) (*engine.Report, error) {
	return f(ctx, project)
}
