package observer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/smilemakc/atelier/internal/infrastructure/logger"
)

// Manager fans planning events out to registered observers without
// blocking the caller.
type Manager struct {
	observers  []Observer
	logger     *logger.Logger
	mu         sync.RWMutex
	bufferSize int
}

// ManagerOption configures Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger for the manager.
func WithLogger(l *logger.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithBufferSize sets the async notification buffer size.
func WithBufferSize(size int) ManagerOption {
	return func(m *Manager) {
		m.bufferSize = size
	}
}

// NewManager creates a new observer manager.
func NewManager(opts ...ManagerOption) *Manager {
	mgr := &Manager{
		observers:  make([]Observer, 0),
		bufferSize: 100,
	}

	for _, opt := range opts {
		opt(mgr)
	}

	return mgr
}

// Register adds an observer to the manager.
func (m *Manager) Register(observer Observer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, obs := range m.observers {
		if obs.Name() == observer.Name() {
			return fmt.Errorf("observer with name %q already registered", observer.Name())
		}
	}

	m.observers = append(m.observers, observer)
	return nil
}

// Unregister removes an observer by name.
func (m *Manager) Unregister(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, obs := range m.observers {
		if obs.Name() == name {
			m.observers = append(m.observers[:i], m.observers[i+1:]...)
			return nil
		}
	}

	return fmt.Errorf("observer %q not found", name)
}

// Notify sends an event to all registered observers without blocking:
// each observer runs in its own goroutine and errors are logged, never
// propagated back to the edit path.
func (m *Manager) Notify(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	m.mu.RLock()
	observersCopy := make([]Observer, len(m.observers))
	copy(observersCopy, m.observers)
	m.mu.RUnlock()

	for _, obs := range observersCopy {
		go m.notifyObserver(ctx, obs, event)
	}
}

// notifyObserver notifies a single observer with panic recovery.
func (m *Manager) notifyObserver(ctx context.Context, obs Observer, event Event) {
	defer func() {
		if r := recover(); r != nil {
			if m.logger != nil {
				m.logger.ErrorContext(ctx, "observer panic recovered",
					"observer", obs.Name(),
					"event_type", string(event.Type),
					"panic", r,
				)
			}
		}
	}()

	filter := obs.Filter()
	if filter != nil && !filter.ShouldNotify(event) {
		return
	}

	if err := obs.OnEvent(ctx, event); err != nil {
		if m.logger != nil {
			m.logger.ErrorContext(ctx, "observer notification failed",
				"observer", obs.Name(),
				"event_type", string(event.Type),
				"error", err,
			)
		}
	}
}

// Count returns the number of registered observers.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.observers)
}
