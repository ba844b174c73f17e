package observer

import (
	"context"

	"github.com/smilemakc/atelier/internal/infrastructure/logger"
)

// LoggerObserver writes planning events to the structured log.
type LoggerObserver struct {
	name   string
	filter EventFilter
	logger *logger.Logger
}

// LoggerObserverOption configures LoggerObserver.
type LoggerObserverOption func(*LoggerObserver)

// WithLoggerFilter sets the event filter.
func WithLoggerFilter(filter EventFilter) LoggerObserverOption {
	return func(o *LoggerObserver) {
		o.filter = filter
	}
}

// WithLoggerInstance sets the logger instance.
func WithLoggerInstance(l *logger.Logger) LoggerObserverOption {
	return func(o *LoggerObserver) {
		o.logger = l
	}
}

// NewLoggerObserver creates a logger observer.
func NewLoggerObserver(opts ...LoggerObserverOption) *LoggerObserver {
	obs := &LoggerObserver{name: "logger"}
	for _, opt := range opts {
		opt(obs)
	}
	if obs.logger == nil {
		obs.logger = logger.Default()
	}
	return obs
}

// Name returns the observer's name.
func (o *LoggerObserver) Name() string { return o.name }

// Filter returns the event filter.
func (o *LoggerObserver) Filter() EventFilter { return o.filter }

// OnEvent logs the event with its scheduling context.
func (o *LoggerObserver) OnEvent(ctx context.Context, event Event) error {
	args := []any{
		"event_type", string(event.Type),
		"database", event.DatabaseID,
		"planning_id", event.PlanningID,
	}
	if event.TaskID != 0 {
		args = append(args,
			"task_id", event.TaskID,
			"row_id", event.RowID,
			"prev_slot", event.PrevSlot,
			"new_slot", event.NewSlot,
		)
	}
	if event.Message != "" {
		args = append(args, "message", event.Message)
	}

	o.logger.InfoContext(ctx, "planning event", args...)
	return nil
}
