package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recorder struct {
	mu       sync.Mutex
	name     string
	kind     Kind
	disabled bool
	err      error
	panics   bool
	events   []Event
}

func (r *recorder) Update(_ context.Context, e Event) error {
	if r.panics {
		panic("boom")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.disabled
}

func (r *recorder) Kind() Kind { return r.kind }

func (r *recorder) SetEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disabled = !enabled
}

func (r *recorder) received() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func event(t Type, progress float64) Event {
	return Event{Type: t, Phase: "Test", Progress: progress, Message: string(t)}
}

func float(v float64) *float64 { return &v }

func TestBus_AddObserverIsIdempotent(t *testing.T) {
	bus := NewBus(zap.NewNop())
	o := &recorder{name: "log", kind: KindLog}

	bus.AddObserver(o)
	bus.AddObserver(o)
	require.Equal(t, 1, bus.ObserverCount())

	bus.Notify(context.Background(), event(Progress, 10))
	assert.Len(t, o.received(), 1)
}

// countingObserver is a value type holding a map, so values of it cannot be
// compared with ==
type countingObserver struct {
	counts map[Type]int
}

func (c countingObserver) Update(_ context.Context, e Event) error {
	c.counts[e.Type]++
	return nil
}

func (c countingObserver) Name() string  { return "counting" }
func (c countingObserver) Enabled() bool { return true }
func (c countingObserver) Kind() Kind    { return KindMetrics }

// boxedObserver is comparable by type but may hold a slice behind tag
type boxedObserver struct {
	tag any
}

func (boxedObserver) Update(context.Context, Event) error { return nil }
func (boxedObserver) Name() string                        { return "boxed" }
func (boxedObserver) Enabled() bool                       { return true }
func (boxedObserver) Kind() Kind                          { return KindWebhook }

func TestBus_RejectsUncomparableObservers(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	bus := NewBus(zap.New(core))
	valid := &recorder{name: "log", kind: KindLog}
	bus.AddObserver(valid)

	require.NotPanics(t, func() {
		bus.AddObserver(countingObserver{counts: map[Type]int{}})
		bus.AddObserver(&boxedObserver{tag: []int{1}})
		bus.AddObserver(boxedObserver{tag: []int{1}})
		bus.AddObserver(nil)
		bus.RemoveObserver(countingObserver{counts: map[Type]int{}})
	})

	assert.Equal(t, 2, bus.ObserverCount())
	assert.Equal(t, 2, logs.FilterMessage("rejected observer that cannot be compared").Len())

	bus.Notify(context.Background(), event(Progress, 10))
	assert.Len(t, valid.received(), 1)
}

func TestBus_RemoveObserver(t *testing.T) {
	bus := NewBus(zap.NewNop())
	a := &recorder{name: "a", kind: KindLog}
	b := &recorder{name: "b", kind: KindChat}

	bus.RemoveObserver(a)
	assert.Equal(t, 0, bus.ObserverCount())

	bus.AddObserver(a)
	bus.AddObserver(b)
	bus.RemoveObserver(a)
	bus.RemoveObserver(a)
	assert.Equal(t, 1, bus.ObserverCount())

	bus.Notify(context.Background(), event(Progress, 10))
	assert.Empty(t, a.received())
	assert.Len(t, b.received(), 1)
}

func TestBus_HistoryIsCapped(t *testing.T) {
	bus := NewBus(zap.NewNop())

	for i := 0; i < 150; i++ {
		bus.Notify(context.Background(), Event{Type: Progress, Message: fmt.Sprintf("e%d", i)})
	}

	history := bus.History()
	require.Len(t, history, MaxHistory)
	assert.Equal(t, "e50", history[0].Message)
	assert.Equal(t, "e149", history[len(history)-1].Message)
}

func TestBus_HistoryIsDefensiveCopy(t *testing.T) {
	bus := NewBus(zap.NewNop())
	bus.Notify(context.Background(), event(Progress, 10))

	history := bus.History()
	history[0].Message = "changed"

	assert.Equal(t, string(Progress), bus.History()[0].Message)
}

func TestBus_NotifyStampsIDAndTimestamp(t *testing.T) {
	bus := NewBus(zap.NewNop())
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	bus.now = func() time.Time { return fixed }

	bus.Notify(context.Background(), event(Progress, 0))

	last, ok := bus.LastEvent()
	require.True(t, ok)
	assert.NotEmpty(t, last.ID)
	assert.Equal(t, fixed, last.Timestamp)
}

func TestBus_ObserverFailureIsIsolated(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	bus := NewBus(zap.New(core))

	failing := &recorder{name: "failing", kind: KindWebhook, err: errors.New("unreachable")}
	panicking := &recorder{name: "panicking", kind: KindChat, panics: true}
	healthy := &recorder{name: "healthy", kind: KindLog}
	bus.AddObserver(failing)
	bus.AddObserver(panicking)
	bus.AddObserver(healthy)

	bus.Notify(context.Background(), event(ProjectCreated, 30))

	assert.Len(t, healthy.received(), 1)
	assert.Len(t, failing.received(), 1)
	assert.Len(t, bus.History(), 1)
	assert.Equal(t, 1, logs.FilterMessage("observer failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("observer panicked").Len())
}

func TestBus_DisabledObserversAreSkipped(t *testing.T) {
	bus := NewBus(zap.NewNop())
	slack := &recorder{name: "SlackNotifier", kind: KindChat}
	logw := &recorder{name: "LogWriter", kind: KindLog}
	bus.AddObserver(slack)
	bus.AddObserver(logw)

	changed := bus.SetObserversEnabled("Slack", false)
	assert.Equal(t, 1, changed)

	bus.Notify(context.Background(), event(Progress, 10))
	assert.Empty(t, slack.received())
	assert.Len(t, logw.received(), 1)

	bus.SetObserversEnabled("Slack", true)
	bus.Notify(context.Background(), event(Progress, 20))
	assert.Len(t, slack.received(), 1)
}

func TestBus_ObserversByKind(t *testing.T) {
	bus := NewBus(zap.NewNop())
	a := &recorder{name: "a", kind: KindHealth}
	b := &recorder{name: "b", kind: KindLog}
	c := &recorder{name: "c", kind: KindHealth}
	bus.AddObserver(a)
	bus.AddObserver(b)
	bus.AddObserver(c)

	health := bus.ObserversByKind(KindHealth)
	assert.Equal(t, []Observer{a, c}, health)
	assert.Empty(t, bus.ObserversByKind(KindStream))
}

func TestBus_Statistics(t *testing.T) {
	bus := NewBus(zap.NewNop())
	assert.Equal(t, 0, bus.Statistics().TotalEvents)

	bus.Notify(context.Background(), event(Progress, 20))
	bus.Notify(context.Background(), event(Progress, 40))
	bus.Notify(context.Background(), event(Error, 0))
	bus.Notify(context.Background(), event(Completion, 100))

	stats := bus.Statistics()
	assert.Equal(t, 4, stats.TotalEvents)
	assert.Equal(t, 2, stats.EventsByType[Progress])
	assert.Equal(t, 1, stats.EventsByType[Error])
	assert.InDelta(t, 40.0, stats.AverageProgress, 0.001)
	assert.InDelta(t, 25.0, stats.ErrorRate, 0.001)
}

func TestBus_Filter(t *testing.T) {
	bus := NewBus(zap.NewNop())
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	bus.Notify(context.Background(), Event{Type: Progress, Phase: "A", Progress: 10, Timestamp: start})
	bus.Notify(context.Background(), Event{Type: Progress, Phase: "B", Progress: 50, Timestamp: start.Add(time.Minute)})
	bus.Notify(context.Background(), Event{Type: Error, Phase: "B", Progress: 70, Timestamp: start.Add(2 * time.Minute)})
	bus.Notify(context.Background(), Event{Type: Completion, Phase: "C", Progress: 100, Timestamp: start.Add(3 * time.Minute)})

	tests := []struct {
		name   string
		filter Filter
		want   []float64
	}{
		{name: "no criteria", filter: Filter{}, want: []float64{10, 50, 70, 100}},
		{name: "by type", filter: Filter{Type: Progress}, want: []float64{10, 50}},
		{name: "by phase", filter: Filter{Phase: "B"}, want: []float64{50, 70}},
		{name: "progress range", filter: Filter{MinProgress: float(50), MaxProgress: float(70)}, want: []float64{50, 70}},
		{name: "since", filter: Filter{Since: start.Add(2 * time.Minute)}, want: []float64{70, 100}},
		{name: "conjunction", filter: Filter{Phase: "B", Type: Progress}, want: []float64{50}},
		{name: "no match", filter: Filter{Type: SprintSetup}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []float64
			for _, e := range bus.Filter(tt.filter) {
				got = append(got, e.Progress)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBus_LastEventEmpty(t *testing.T) {
	_, ok := NewBus(nil).LastEvent()
	assert.False(t, ok)
}
