package daemon

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsJob(t *testing.T) {
	var runs atomic.Int32
	s := NewScheduler("@every 1s", nil, func() { runs.Add(1) })

	require.NoError(t, s.Start())
	assert.False(t, s.NextRun().IsZero())

	assert.Eventually(t, func() bool { return runs.Load() > 0 }, 5*time.Second, 50*time.Millisecond)

	s.Stop(time.Second)
	assert.True(t, s.NextRun().IsZero())
}

func TestSchedulerStartTwice(t *testing.T) {
	s := NewScheduler("0 3 * * *", nil, func() {})
	require.NoError(t, s.Start())
	defer s.Stop(time.Second)

	assert.ErrorContains(t, s.Start(), "already running")
}

func TestSchedulerInvalidSpec(t *testing.T) {
	s := NewScheduler("every day", nil, func() {})
	assert.Error(t, s.Start())
	s.Stop(time.Second)
}

func TestSchedulerStopWaitsForRun(t *testing.T) {
	started := make(chan struct{})
	var finished atomic.Bool

	s := NewScheduler("@every 1s", nil, func() {
		select {
		case <-started:
			return
		default:
			close(started)
		}
		time.Sleep(200 * time.Millisecond)
		finished.Store(true)
	})
	require.NoError(t, s.Start())

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("job never started")
	}

	s.Stop(5 * time.Second)
	assert.True(t, finished.Load())
}
