package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smilemakc/atelier/internal/application/planner"
	"github.com/smilemakc/atelier/internal/config"
	"github.com/smilemakc/atelier/internal/infrastructure/logger"
	"github.com/smilemakc/atelier/testutil"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	backends := testutil.NewFakeBackends(nil, nil)
	log := logger.Default()

	manager, err := planner.NewManager(backends, testutil.SchedulingConfig(), log)
	require.NoError(t, err)
	propagator := planner.NewPropagator(backends, log, nil)

	return NewScheduler(manager, propagator, log)
}

func TestConfigureNoJobs(t *testing.T) {
	s := newTestScheduler(t)
	require.NoError(t, s.Configure(config.JobsConfig{}))
	assert.Equal(t, 0, s.JobCount())
}

func TestConfigureBothJobs(t *testing.T) {
	s := newTestScheduler(t)
	require.NoError(t, s.Configure(config.JobsConfig{
		ReloadCron:    "0 0 6 * * *",
		PropagateCron: "@hourly",
	}))
	assert.Equal(t, 2, s.JobCount())
}

func TestConfigureRejectsInvalidSpec(t *testing.T) {
	s := newTestScheduler(t)
	err := s.Configure(config.JobsConfig{ReloadCron: "not a cron"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reload")
}

func TestStartStop(t *testing.T) {
	s := newTestScheduler(t)
	require.NoError(t, s.Configure(config.JobsConfig{ReloadCron: "0 0 6 * * *"}))
	s.Start()
	s.Stop()
}
