package thoughtspace

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecaySchedulerRunsPass(t *testing.T) {
	svc, store, _ := newTestService(t)

	now := time.Now().UTC()
	seedIdle(t, store, "idle", 2.0, now.Add(-3*time.Hour))

	scheduler := NewDecayScheduler(svc, 20*time.Millisecond, nil)
	scheduler.Start()
	defer scheduler.Stop()

	require.Eventually(t, func() bool {
		stored, err := svc.GetThought(context.Background(), "idle")
		if err != nil {
			return false
		}
		return stored.PheromoneWeight < 2.0
	}, time.Second, 10*time.Millisecond)
}

func TestDecaySchedulerStartStopIdempotent(t *testing.T) {
	svc, _, _ := newTestService(t)
	scheduler := NewDecayScheduler(svc, time.Hour, nil)

	scheduler.Start()
	scheduler.Start()
	scheduler.Stop()
	scheduler.Stop()
}

func TestDecaySchedulerRestart(t *testing.T) {
	svc, _, _ := newTestService(t)
	scheduler := NewDecayScheduler(svc, time.Hour, nil)

	scheduler.Start()
	scheduler.Stop()
	scheduler.Start()
	scheduler.Stop()
}

func TestDecaySchedulerDefaultInterval(t *testing.T) {
	svc, _, _ := newTestService(t)
	scheduler := NewDecayScheduler(svc, 0, nil)
	assert.Equal(t, DefaultDecayInterval, scheduler.interval)
}
