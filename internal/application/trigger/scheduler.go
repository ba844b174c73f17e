// Package trigger runs the optional background jobs: periodic reload of
// the loaded plannings and periodic propagation of start times into the
// upstream work orders, for installations that don't trigger either from
// the UI.
package trigger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/smilemakc/atelier/internal/application/planner"
	"github.com/smilemakc/atelier/internal/config"
	"github.com/smilemakc/atelier/internal/infrastructure/logger"
)

// jobTimeout bounds one background run; a stuck upstream database must
// not pile up overlapping runs.
const jobTimeout = 5 * time.Minute

// Scheduler owns the cron loop and its registered jobs.
type Scheduler struct {
	cron       *cron.Cron
	manager    *planner.Manager
	propagator *planner.Propagator
	logger     *logger.Logger

	mu      sync.Mutex
	entries []cron.EntryID
}

// NewScheduler creates a Scheduler running in the given display
// timezone, with second-precision cron expressions.
func NewScheduler(manager *planner.Manager, propagator *planner.Propagator, log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithSeconds(), cron.WithLocation(manager.Location())),
		manager:    manager,
		propagator: propagator,
		logger:     log,
	}
}

// Configure registers the jobs enabled in cfg. Empty specs disable the
// corresponding job; invalid specs are reported before the loop starts.
func (s *Scheduler) Configure(cfg config.JobsConfig) error {
	if cfg.ReloadCron != "" {
		if err := s.addJob(cfg.ReloadCron, "reload", s.runReload); err != nil {
			return err
		}
	}
	if cfg.PropagateCron != "" {
		if err := s.addJob(cfg.PropagateCron, "propagate", s.runPropagate); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) addJob(spec, name string, job func(context.Context)) error {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(spec)
	if err != nil {
		return fmt.Errorf("invalid %s cron expression %q: %w", name, spec, err)
	}

	entryID := s.cron.Schedule(schedule, cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		job(ctx)
	}))

	s.mu.Lock()
	s.entries = append(s.entries, entryID)
	s.mu.Unlock()

	s.logger.Info("background job scheduled", "job", name, "spec", spec)
	return nil
}

// Start starts the cron loop.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the cron loop, waiting for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// JobCount returns the number of registered jobs.
func (s *Scheduler) JobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// runReload refreshes every loaded planning from its upstream database.
func (s *Scheduler) runReload(ctx context.Context) {
	for _, session := range s.manager.Sessions() {
		if err := s.manager.Reload(ctx, session, planner.ReloadAll); err != nil {
			s.logger.ErrorContext(ctx, "scheduled reload failed",
				"database", session.DatabaseID,
				"planning_id", session.Planning.ID,
				"error", err,
			)
		}
	}
}

// runPropagate runs both propagation passes on every loaded planning.
func (s *Scheduler) runPropagate(ctx context.Context) {
	for _, session := range s.manager.Sessions() {
		if _, err := s.propagator.PropagateProductionStarts(ctx, session); err != nil {
			s.logger.ErrorContext(ctx, "scheduled production propagation failed",
				"planning_id", session.Planning.ID,
				"error", err,
			)
		}
		if _, err := s.propagator.PropagateOperationTimes(ctx, session); err != nil {
			s.logger.ErrorContext(ctx, "scheduled operation propagation failed",
				"planning_id", session.Planning.ID,
				"error", err,
			)
		}
	}
}
