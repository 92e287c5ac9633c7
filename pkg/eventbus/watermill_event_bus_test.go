package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/taskflow/pkg/channels/gochannel"
	"github.com/dukex/taskflow/pkg/eventbus"
	"github.com/dukex/taskflow/pkg/events"
	"github.com/dukex/taskflow/pkg/models"
)

func TestWatermillEventBus_PublishAndHandle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pub, sub, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	defer func() { _ = bus.Close() }()

	received := make(chan *events.ProjectChanged, 1)

	require.NoError(t, bus.Handle(events.ProjectChangedEvent, func(_ context.Context, event any) error {
		changed, ok := event.(*events.ProjectChanged)
		if ok {
			received <- changed
		}

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	published := events.ProjectChanged{
		BaseEvent: events.NewBaseEvent(events.ProjectChangedEvent, "p1"),
		Snapshot:  &models.Project{ID: "p1", Name: "Launch"},
	}
	require.NoError(t, bus.Publish(ctx, "p1", published))

	select {
	case event := <-received:
		assert.Equal(t, published.ID, event.ID)
		assert.Equal(t, "Launch", event.Snapshot.Name)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for project.changed")
	}
}

func TestWatermillEventBus_UnhandledEventsAreAcked(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pub, sub, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	defer func() { _ = bus.Close() }()

	failed := make(chan struct{}, 1)

	require.NoError(t, bus.Handle(events.WorkflowRunFailedEvent, func(context.Context, any) error {
		failed <- struct{}{}

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	require.NoError(t, bus.Publish(ctx, "p1", events.WorkflowRunCompleted{
		BaseEvent: events.NewBaseEvent(events.WorkflowRunCompletedEvent, "p1"),
	}))
	require.NoError(t, bus.Publish(ctx, "p1", events.WorkflowRunFailed{
		BaseEvent: events.NewBaseEvent(events.WorkflowRunFailedEvent, "p1"),
		Error:     "boom",
	}))

	select {
	case <-failed:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for workflow.run.failed")
	}
}
