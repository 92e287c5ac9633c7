package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/persistence"
	"github.com/dukex/taskflow/pkg/persistence/file"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRecorder(t *testing.T) (*ActionRecorder, *clockwork.FakeClock) {
	t.Helper()

	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	p := file.NewPersistence(t.TempDir())

	return NewActionRecorder(p.ActionRepository(), clock, discardLogger()), clock
}

func TestActionRecorder_Complete(t *testing.T) {
	ctx := context.Background()
	recorder, clock := newRecorder(t)

	id, err := recorder.Begin(ctx, "p1", "wf-1", "Summarize")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	record, err := recorder.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.ActionStatusLoading, record.Status)
	assert.Equal(t, "Summarize", record.WorkflowName)
	assert.Nil(t, record.FinishedAt)

	clock.Advance(2 * time.Second)

	results := map[string]models.NodeResult{"in": {NodeID: "in", Success: true}}
	require.NoError(t, recorder.Complete(ctx, id, results))

	record, err = recorder.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.ActionStatusCompleted, record.Status)
	assert.Empty(t, record.Error)
	assert.Len(t, record.Results, 1)
	require.NotNil(t, record.FinishedAt)
	assert.Equal(t, 2*time.Second, record.FinishedAt.Sub(record.StartedAt))
}

func TestActionRecorder_Fail(t *testing.T) {
	ctx := context.Background()
	recorder, _ := newRecorder(t)

	id, err := recorder.Begin(ctx, "p1", "wf-1", "Summarize")
	require.NoError(t, err)

	require.NoError(t, recorder.Fail(ctx, id, errors.New("node ai failed: rate limited"), nil))

	record, err := recorder.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.ActionStatusError, record.Status)
	assert.Equal(t, "node ai failed: rate limited", record.Error)
}

func TestActionRecorder_SingleTerminalTransition(t *testing.T) {
	ctx := context.Background()
	recorder, _ := newRecorder(t)

	id, err := recorder.Begin(ctx, "p1", "wf-1", "Summarize")
	require.NoError(t, err)

	require.NoError(t, recorder.Fail(ctx, id, errors.New("boom"), nil))

	err = recorder.Complete(ctx, id, nil)
	require.ErrorIs(t, err, ErrActionFinalized)

	err = recorder.Fail(ctx, id, errors.New("again"), nil)
	require.ErrorIs(t, err, ErrActionFinalized)

	record, err := recorder.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "boom", record.Error)
}

func TestActionRecorder_UnknownID(t *testing.T) {
	recorder, _ := newRecorder(t)

	err := recorder.Complete(context.Background(), "missing", nil)
	require.ErrorIs(t, err, persistence.ErrActionNotFound)
}

func TestActionRecorder_History(t *testing.T) {
	ctx := context.Background()
	recorder, clock := newRecorder(t)

	first, err := recorder.Begin(ctx, "p1", "wf-1", "A")
	require.NoError(t, err)

	clock.Advance(time.Minute)

	second, err := recorder.Begin(ctx, "p1", "wf-2", "B")
	require.NoError(t, err)

	_, err = recorder.Begin(ctx, "p2", "wf-1", "A")
	require.NoError(t, err)

	records, err := recorder.History(ctx, "p1", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, second, records[0].ID)
	assert.Equal(t, first, records[1].ID)
}
