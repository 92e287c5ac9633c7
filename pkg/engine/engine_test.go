package engine_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dukex/taskflow/pkg/engine"
	"github.com/dukex/taskflow/pkg/eventbus"
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

const cooldown = time.Minute

type recordingPublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)

	return nil
}

type harness struct {
	engine    *engine.Engine
	projects  *services.Project
	workflows *services.Workflow
	recorder  *services.ActionRecorder
	files     *file.Persistence
	clock     *clockwork.FakeClock
	ai        *mocks.MockAIAdapter
	chat      *mocks.MockChatAdapter
	publisher *recordingPublisher
	scheduler *engine.Scheduler
	logger    *slog.Logger
}

// liveContextRecorder refuses terminal writes on a cancelled context, the
// way a database-backed store does.
type liveContextRecorder struct {
	*services.ActionRecorder
}

func (r liveContextRecorder) Complete(ctx context.Context, id string, results map[string]models.NodeResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.ActionRecorder.Complete(ctx, id, results)
}

func (r liveContextRecorder) Fail(ctx context.Context, id string, runErr error, results map[string]models.NodeResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.ActionRecorder.Fail(ctx, id, runErr, results)
}

type liveContextPublisher struct {
	recordingPublisher
}

func (p *liveContextPublisher) Publish(ctx context.Context, key string, event eventbus.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return p.recordingPublisher.Publish(ctx, key, event)
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	files := file.NewPersistence(t.TempDir())

	ai := &mocks.MockAIAdapter{}
	chat := &mocks.MockChatAdapter{}

	nodes := registry.NewRegistry(logger)
	require.NoError(t, nodes.RegisterDefaultNodes(protocol.Adapters{AI: ai, Chat: chat}))

	h := &harness{
		projects:  services.NewProject(files, logger),
		workflows: services.NewWorkflow(files, nodes),
		recorder:  services.NewActionRecorder(files.ActionRepository(), clock, logger),
		files:     files,
		clock:     clock,
		ai:        ai,
		chat:      chat,
		publisher: &recordingPublisher{},
		logger:    logger,
	}

	h.scheduler = engine.NewScheduler(engine.NewDispatcher(nodes, logger), logger)

	h.engine = engine.New(
		h.projects,
		h.workflows,
		h.recorder,
		throttle.NewMemoryThrottle(cooldown, clock),
		h.scheduler,
		logger,
		engine.WithClock(clock),
		engine.WithPublisher(h.publisher),
	)

	return h
}

// coupledProject stores the project and couples the workflows to it.
func (h *harness) coupledProject(t *testing.T, project *models.Project, workflows ...*models.Workflow) {
	t.Helper()

	ctx := context.Background()

	_, _, err := h.projects.Save(ctx, project.ID, project)
	require.NoError(t, err)

	for _, workflow := range workflows {
		require.NoError(t, h.files.WorkflowRepository().Save(ctx, workflow))

		_, err = h.projects.Couple(ctx, project.ID, workflow.ID)
		require.NoError(t, err)
	}
}

func (h *harness) history(t *testing.T, projectID string) []*models.ActionRecord {
	t.Helper()

	records, err := h.recorder.History(context.Background(), projectID, 0)
	require.NoError(t, err)

	return records
}

func TestEngine_CompletedTaskRunsWholeGraph(t *testing.T) {
	h := newHarness(t)
	task := testutil.CreateTestTask("t1", "Write docs", testutil.Completed())

	h.ai.On("Analyze", mock.Anything, task).Return("docs are thorough", nil).Once()
	h.chat.On("PostTaskUpdate", mock.Anything, "#releases", task, mock.MatchedBy(func(text string) bool {
		return strings.Contains(text, "docs are thorough")
	})).Return(protocol.MessageRef{ID: "1700000000.0001", Channel: "#releases"}, nil).Once()

	workflow := testutil.CreateAnalyzeAndPostWorkflow(testutil.WithWorkflowID("wf-a"))
	h.coupledProject(t, testutil.CreateTestProject("p1", task), workflow)

	report, err := h.engine.HandleProject(context.Background(), "p1")
	require.NoError(t, err)

	assert.True(t, report.Triggers.Has(models.TriggerTaskCompleted))
	assert.False(t, report.Throttled)
	require.Len(t, report.Runs, 1)

	run := report.Runs[0]
	assert.Equal(t, engine.RunStatusCompleted, run.Status)
	require.Len(t, run.Results, 3)

	for _, id := range []string{"completed", "analyze", "post"} {
		assert.True(t, run.Results[id].Success, id)
	}

	assert.False(t, run.Results["analyze"].StartedAt.After(run.Results["post"].StartedAt))

	records := h.history(t, "p1")
	require.Len(t, records, 1)
	assert.Equal(t, models.ActionStatusCompleted, records[0].Status)
	assert.Equal(t, run.ActionID, records[0].ID)
	assert.Len(t, records[0].Results, 3)

	require.Len(t, h.publisher.events, 1)
	assert.Equal(t, events.WorkflowRunCompletedEvent, h.publisher.events[0].GetType())

	h.ai.AssertExpectations(t)
	h.chat.AssertExpectations(t)
}

func TestEngine_NoTasksCreatesNoRecord(t *testing.T) {
	h := newHarness(t)

	h.coupledProject(t, testutil.CreateTestProject("p1"), testutil.CreateAnalyzeAndPostWorkflow())

	report, err := h.engine.HandleProject(context.Background(), "p1")
	require.NoError(t, err)

	assert.False(t, report.Triggers.Has(models.TriggerTaskCompleted))
	assert.Empty(t, report.Runs)
	assert.Empty(t, h.history(t, "p1"))
	assert.Empty(t, h.publisher.events)

	h.ai.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything)
}

func TestEngine_CycleFailsOnce(t *testing.T) {
	h := newHarness(t)

	workflow := testutil.CreateTestWorkflow(
		[]*models.Node{
			testutil.CreateTestNode("completed", models.SubtypeTaskCompleted),
			testutil.CreateTestNode("analyze", models.SubtypeAIAnalyze),
			testutil.CreateTestNode("generate", models.SubtypeAIGenerate),
		},
		[]*models.Edge{
			testutil.CreateTestEdge("completed", "analyze"),
			testutil.CreateTestEdge("analyze", "generate"),
			testutil.CreateTestEdge("generate", "analyze"),
		},
	)

	h.coupledProject(t, testutil.CreateTestProject("p1", testutil.CreateTestTask("t1", "Ship", testutil.Completed())), workflow)

	report, err := h.engine.HandleProject(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, report.Runs, 1)

	run := report.Runs[0]
	assert.Equal(t, engine.RunStatusFailed, run.Status)
	assert.Contains(t, run.Error, "cycle detected")
	assert.Contains(t, []string{"analyze", "generate"}, run.NodeID)

	records := h.history(t, "p1")
	require.Len(t, records, 1)
	assert.Equal(t, models.ActionStatusError, records[0].Status)
	assert.Equal(t, run.Error, records[0].Error)

	h.ai.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything)
}

func TestEngine_AdapterErrorFailsRun(t *testing.T) {
	h := newHarness(t)
	task := testutil.CreateTestTask("t1", "Write docs", testutil.Completed())

	h.ai.On("Analyze", mock.Anything, task).Return("", errors.New("openai: rate limit exceeded")).Once()

	h.coupledProject(t, testutil.CreateTestProject("p1", task), testutil.CreateAnalyzeAndPostWorkflow())

	report, err := h.engine.HandleProject(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, report.Runs, 1)

	run := report.Runs[0]
	assert.Equal(t, engine.RunStatusFailed, run.Status)
	assert.Equal(t, "analyze", run.NodeID)
	assert.False(t, run.Results["analyze"].Success)
	assert.NotContains(t, run.Results, "post")

	records := h.history(t, "p1")
	require.Len(t, records, 1)
	assert.Equal(t, models.ActionStatusError, records[0].Status)
	assert.Contains(t, records[0].Error, "openai: rate limit exceeded")

	require.Len(t, h.publisher.events, 1)
	failed, ok := h.publisher.events[0].(events.WorkflowRunFailed)
	require.True(t, ok)
	assert.Equal(t, "analyze", failed.NodeID)

	h.chat.AssertNotCalled(t, "PostTaskUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEngine_Throttle(t *testing.T) {
	h := newHarness(t)
	task := testutil.CreateTestTask("t1", "Write docs")

	h.ai.On("Generate", mock.Anything, task, "summary").Return("a summary", nil)

	workflow := testutil.CreateTestWorkflow(
		[]*models.Node{
			testutil.CreateTestNode("created", models.SubtypeTaskCreated),
			testutil.CreateTestNode("generate", models.SubtypeAIGenerate),
		},
		[]*models.Edge{testutil.CreateTestEdge("created", "generate")},
	)
	h.coupledProject(t, testutil.CreateTestProject("p1", task), workflow)

	ctx := context.Background()

	first, err := h.engine.HandleProject(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, first.Throttled)
	require.Len(t, first.Runs, 1)

	second, err := h.engine.HandleProject(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, second.Throttled)
	assert.Empty(t, second.Runs)
	assert.Len(t, h.history(t, "p1"), 1)

	h.clock.Advance(cooldown)

	third, err := h.engine.HandleProject(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, third.Throttled)
	assert.Len(t, h.history(t, "p1"), 2)
}

func TestEngine_SiblingWorkflowsAreIsolated(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	task := testutil.CreateTestTask("t1", "Write docs", testutil.Completed())

	h.ai.On("Categorize", mock.Anything, task).Return("documentation", nil)

	categorize := testutil.CreateTestWorkflow(
		[]*models.Node{
			testutil.CreateTestNode("completed", models.SubtypeTaskCompleted),
			testutil.CreateTestNode("categorize", models.SubtypeAICategorize),
		},
		[]*models.Edge{testutil.CreateTestEdge("completed", "categorize")},
		testutil.WithWorkflowID("wf-ok"),
	)
	// Only input nodes: runs when tasks exist but never touches an adapter.
	skipped := testutil.CreateTestWorkflow(
		[]*models.Node{testutil.CreateTestNode("updated", models.SubtypeTaskUpdated)},
		nil,
		testutil.WithWorkflowID("wf-inputs"),
	)

	h.coupledProject(t, testutil.CreateTestProject("p1", task), categorize, skipped)
	require.NoError(t, h.files.ProjectRepository().Couple(ctx, "p1", "wf-missing"))
	require.NoError(t, h.files.ProjectRepository().Decouple(ctx, "p1", "wf-ok"))
	require.NoError(t, h.files.ProjectRepository().Couple(ctx, "p1", "wf-ok"))

	report, err := h.engine.HandleProject(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, report.Runs, 3)

	assert.Equal(t, "wf-inputs", report.Runs[0].WorkflowID)
	assert.Equal(t, engine.RunStatusCompleted, report.Runs[0].Status)

	assert.Equal(t, "wf-missing", report.Runs[1].WorkflowID)
	assert.Equal(t, engine.RunStatusFailed, report.Runs[1].Status)
	assert.Contains(t, report.Runs[1].Error, "workflow not found")

	assert.Equal(t, "wf-ok", report.Runs[2].WorkflowID)
	assert.Equal(t, engine.RunStatusCompleted, report.Runs[2].Status)
	assert.Equal(t, "documentation", report.Runs[2].Results["categorize"].Payload[models.PayloadKeyCategory])

	assert.Len(t, h.history(t, "p1"), 3)
}

func TestEngine_WorkflowWithoutFiredInputIsSkipped(t *testing.T) {
	h := newHarness(t)

	h.coupledProject(t,
		testutil.CreateTestProject("p1", testutil.CreateTestTask("t1", "Open task")),
		testutil.CreateAnalyzeAndPostWorkflow(),
	)

	report, err := h.engine.HandleProject(context.Background(), "p1")
	require.NoError(t, err)

	assert.True(t, report.Triggers.Has(models.TriggerTaskCreated))
	require.Len(t, report.Runs, 1)
	assert.Equal(t, engine.RunStatusSkipped, report.Runs[0].Status)
	assert.Empty(t, report.Runs[0].ActionID)
	assert.Empty(t, h.history(t, "p1"))
}

func TestEngine_UnknownProject(t *testing.T) {
	h := newHarness(t)

	_, err := h.engine.HandleProject(context.Background(), "missing")
	require.ErrorIs(t, err, services.ErrProjectNotFound)
}

func TestEngine_ThrottleError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	files := file.NewPersistence(t.TempDir())
	projects := services.NewProject(files, logger)

	_, _, err := projects.Save(context.Background(), "p1", testutil.CreateTestProject("p1", testutil.CreateTestTask("t1", "x")))
	require.NoError(t, err)

	throttleErr := errors.New("redis: connection refused")
	e := engine.New(projects, services.NewWorkflow(files, nil),
		services.NewActionRecorder(files.ActionRepository(), nil, logger),
		throttleFunc(func(context.Context, string) (bool, error) { return false, throttleErr }),
		engine.NewScheduler(engine.NewDispatcher(registry.NewRegistry(logger), logger), logger),
		logger,
	)

	report, err := e.HandleProject(context.Background(), "p1")
	require.ErrorIs(t, err, throttleErr)
	assert.Nil(t, report)
}

type throttleFunc func(ctx context.Context, projectID string) (bool, error)

func (f throttleFunc) ShouldThrottle(ctx context.Context, projectID string) (bool, error) {
	return f(ctx, projectID)
}

func TestEngine_CancelledRunIsStillRecorded(t *testing.T) {
	h := newHarness(t)
	task := testutil.CreateTestTask("t1", "Write docs", testutil.Completed())
	publisher := &liveContextPublisher{}

	eng := engine.New(
		h.projects,
		h.workflows,
		liveContextRecorder{h.recorder},
		throttle.NewMemoryThrottle(cooldown, h.clock),
		h.scheduler,
		h.logger,
		engine.WithClock(h.clock),
		engine.WithPublisher(publisher),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.ai.On("Analyze", mock.Anything, task).
		Run(func(mock.Arguments) { cancel() }).
		Return("", context.Canceled).Once()

	h.coupledProject(t, testutil.CreateTestProject("p1", task), testutil.CreateAnalyzeAndPostWorkflow())

	report, err := eng.HandleProject(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, report.Runs, 1)
	assert.Equal(t, engine.RunStatusFailed, report.Runs[0].Status)
	require.ErrorIs(t, ctx.Err(), context.Canceled)

	records := h.history(t, "p1")
	require.Len(t, records, 1)
	assert.Equal(t, models.ActionStatusError, records[0].Status)
	assert.Contains(t, records[0].Error, "context canceled")

	require.Len(t, publisher.events, 1)
	assert.Equal(t, events.WorkflowRunFailedEvent, publisher.events[0].GetType())

	h.chat.AssertNotCalled(t, "PostTaskUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
