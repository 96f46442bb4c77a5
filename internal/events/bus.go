// Package events implements the progress event bus: a bounded history of
// events plus concurrent fan-out to registered observers.
package events

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MaxHistory is the number of events retained by a Bus
const MaxHistory = 100

// Kind is the capability tag an observer declares when registered
type Kind string

const (
	KindLog       Kind = "log"
	KindChat      Kind = "chat"
	KindDashboard Kind = "dashboard"
	KindEmail     Kind = "email"
	KindWebhook   Kind = "webhook"
	KindHealth    Kind = "health"
	KindMetrics   Kind = "metrics"
	KindTracker   Kind = "tracker"
	KindStream    Kind = "stream"
)

// Observer receives events from a Bus. Registration is keyed by identity, so
// implementations should use pointer receivers. Observers that cannot be
// compared are rejected by AddObserver.
type Observer interface {
	Update(ctx context.Context, e Event) error
	Name() string
	Enabled() bool
	Kind() Kind
}

// Toggler is implemented by observers that can be switched on and off
type Toggler interface {
	SetEnabled(enabled bool)
}

type registration struct {
	observer Observer
	kind     Kind
}

// Bus is the subject side of the observer pattern
type Bus struct {
	mu        sync.RWMutex
	observers []registration
	history   []Event
	logger    *zap.Logger
	now       func() time.Time
}

// NewBus creates an empty bus
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		logger: logger,
		now:    time.Now,
	}
}

// AddObserver registers o. Adding the same observer twice has no effect.
func (b *Bus) AddObserver(o Observer) {
	if o == nil {
		return
	}
	if _, ok := sameObserver(o, o); !ok {
		b.logger.Warn("rejected observer that cannot be compared",
			zap.String("observer", o.Name()),
			zap.String("type", fmt.Sprintf("%T", o)),
		)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, r := range b.observers {
		if same, _ := sameObserver(r.observer, o); same {
			return
		}
	}
	b.observers = append(b.observers, registration{observer: o, kind: o.Kind()})
	b.logger.Debug("added observer", zap.String("observer", o.Name()), zap.String("kind", string(o.Kind())))
}

// RemoveObserver unregisters o if present
func (b *Bus) RemoveObserver(o Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, r := range b.observers {
		if same, _ := sameObserver(r.observer, o); same {
			b.observers = append(b.observers[:i], b.observers[i+1:]...)
			b.logger.Debug("removed observer", zap.String("observer", o.Name()))
			return
		}
	}
}

// sameObserver compares two observers by identity. ok is false when the
// comparison panics because a dynamic value is not comparable.
func sameObserver(a, b Observer) (same, ok bool) {
	defer func() {
		if recover() != nil {
			same, ok = false, false
		}
	}()
	return a == b, true
}

// ObserverCount returns the number of registered observers
func (b *Bus) ObserverCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.observers)
}

// ObserversByKind returns the observers registered with kind
func (b *Bus) ObserversByKind(kind Kind) []Observer {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []Observer
	for _, r := range b.observers {
		if r.kind == kind {
			out = append(out, r.observer)
		}
	}
	return out
}

// SetObserversEnabled toggles every observer whose name contains pattern
// and returns how many were changed.
func (b *Bus) SetObserversEnabled(pattern string, enabled bool) int {
	b.mu.RLock()
	regs := append([]registration(nil), b.observers...)
	b.mu.RUnlock()

	changed := 0
	for _, r := range regs {
		t, ok := r.observer.(Toggler)
		if !ok || !strings.Contains(r.observer.Name(), pattern) {
			continue
		}
		t.SetEnabled(enabled)
		changed++
	}
	return changed
}

// Notify records e in the history and delivers it to every enabled
// observer concurrently. It returns once all deliveries have finished.
// Observer failures are logged and never reach the caller.
func (b *Bus) Notify(ctx context.Context, e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = b.now()
	}

	b.mu.Lock()
	b.history = append(b.history, e)
	if len(b.history) > MaxHistory {
		n := copy(b.history, b.history[len(b.history)-MaxHistory:])
		b.history = b.history[:n]
	}
	regs := append([]registration(nil), b.observers...)
	b.mu.Unlock()

	b.logger.Debug("notifying observers",
		zap.Int("observers", len(regs)),
		zap.String("event_type", string(e.Type)),
		zap.String("message", e.Message),
	)

	var g errgroup.Group
	for _, r := range regs {
		o := r.observer
		if !o.Enabled() {
			continue
		}
		g.Go(func() error {
			b.deliver(ctx, o, e)
			return nil
		})
	}
	_ = g.Wait()
}

func (b *Bus) deliver(ctx context.Context, o Observer, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("observer panicked",
				zap.String("observer", o.Name()),
				zap.String("event_type", string(e.Type)),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()

	if err := o.Update(ctx, e); err != nil {
		b.logger.Error("observer failed",
			zap.String("observer", o.Name()),
			zap.String("event_type", string(e.Type)),
			zap.Error(err),
		)
	}
}

// History returns a copy of the retained events, oldest first
func (b *Bus) History() []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Event(nil), b.history...)
}

// LastEvent returns the most recent event
func (b *Bus) LastEvent() (Event, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.history) == 0 {
		return Event{}, false
	}
	return b.history[len(b.history)-1], true
}

// Statistics aggregates the retained history
func (b *Bus) Statistics() Statistics {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stats := Statistics{
		TotalEvents:  len(b.history),
		EventsByType: make(map[Type]int),
	}
	if len(b.history) == 0 {
		return stats
	}

	var progress float64
	for _, e := range b.history {
		stats.EventsByType[e.Type]++
		progress += e.Progress
	}
	stats.AverageProgress = progress / float64(len(b.history))
	stats.ErrorRate = float64(stats.EventsByType[Error]) / float64(len(b.history)) * 100

	return stats
}

// Filter returns the retained events matching f, oldest first
func (b *Bus) Filter(f Filter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []Event
	for _, e := range b.history {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}
