package observer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	name   string
	filter EventFilter
	err    error

	mu     sync.Mutex
	events []Event
	seen   chan struct{}
}

func newRecordingObserver(name string, filter EventFilter) *recordingObserver {
	return &recordingObserver{name: name, filter: filter, seen: make(chan struct{}, 16)}
}

func (o *recordingObserver) Name() string        { return o.name }
func (o *recordingObserver) Filter() EventFilter { return o.filter }

func (o *recordingObserver) OnEvent(_ context.Context, event Event) error {
	o.mu.Lock()
	o.events = append(o.events, event)
	o.mu.Unlock()
	o.seen <- struct{}{}
	return o.err
}

func (o *recordingObserver) wait(t *testing.T) Event {
	t.Helper()
	select {
	case <-o.seen:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.events[len(o.events)-1]
}

func TestManagerRegisterRejectsDuplicates(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register(newRecordingObserver("a", nil)))
	require.Error(t, m.Register(newRecordingObserver("a", nil)))
	assert.Equal(t, 1, m.Count())
}

func TestManagerUnregister(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register(newRecordingObserver("a", nil)))
	require.NoError(t, m.Unregister("a"))
	assert.Equal(t, 0, m.Count())
	require.Error(t, m.Unregister("a"))
}

func TestManagerNotifyDeliversAndStamps(t *testing.T) {
	m := NewManager()
	obs := newRecordingObserver("a", nil)
	require.NoError(t, m.Register(obs))

	m.Notify(context.Background(), Event{Type: EventTaskMoved, PlanningID: 1, TaskID: 7})

	event := obs.wait(t)
	assert.Equal(t, EventTaskMoved, event.Type)
	assert.Equal(t, int64(7), event.TaskID)
	assert.False(t, event.Timestamp.IsZero())
}

func TestManagerNotifyAppliesFilter(t *testing.T) {
	m := NewManager()
	moved := newRecordingObserver("moved-only", NewEventTypeFilter(EventTaskMoved))
	all := newRecordingObserver("all", nil)
	require.NoError(t, m.Register(moved))
	require.NoError(t, m.Register(all))

	m.Notify(context.Background(), Event{Type: EventTaskResized, PlanningID: 1})

	all.wait(t)
	select {
	case <-moved.seen:
		t.Fatal("filtered observer should not receive the event")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestManagerNotifySwallowsObserverErrors(t *testing.T) {
	m := NewManager()
	obs := newRecordingObserver("failing", nil)
	obs.err = errors.New("boom")
	require.NoError(t, m.Register(obs))

	m.Notify(context.Background(), Event{Type: EventTaskMoved})
	obs.wait(t) // delivery happened despite the error
}

func TestPlanningFilter(t *testing.T) {
	f := NewPlanningFilter("prod", 1)
	assert.True(t, f.ShouldNotify(Event{DatabaseID: "prod", PlanningID: 1}))
	assert.False(t, f.ShouldNotify(Event{DatabaseID: "prod", PlanningID: 2}))
	assert.False(t, f.ShouldNotify(Event{DatabaseID: "staging", PlanningID: 1}))
}

func TestCompoundEventFilter(t *testing.T) {
	assert.Nil(t, NewCompoundEventFilter(nil, nil))

	f := NewCompoundEventFilter(
		NewEventTypeFilter(EventTaskMoved),
		NewPlanningFilter("prod", 1),
	)
	assert.True(t, f.ShouldNotify(Event{Type: EventTaskMoved, DatabaseID: "prod", PlanningID: 1}))
	assert.False(t, f.ShouldNotify(Event{Type: EventTaskResized, DatabaseID: "prod", PlanningID: 1}))
}
