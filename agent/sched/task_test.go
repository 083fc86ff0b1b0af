package sched

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTask_StartIdempotent(t *testing.T) {
	var n atomic.Int32
	task := New("test sweeper", 10*time.Millisecond, func() { n.Add(1) })
	require.False(t, task.IsRunning())

	require.True(t, task.Start())
	require.False(t, task.Start())
	require.True(t, task.IsRunning())

	require.Eventually(t, func() bool { return n.Load() > 0 }, 2*time.Second, 5*time.Millisecond)

	task.Stop()
	task.Stop()
	require.False(t, task.IsRunning())
}

func TestTask_RestartAndInterval(t *testing.T) {
	var n atomic.Int32
	task := New("test", time.Hour, func() { n.Add(1) })

	task.UpdateInterval(10 * time.Millisecond)
	assert.False(t, task.IsRunning(), "update must not start a stopped task")
	assert.Equal(t, 10*time.Millisecond, task.Interval())

	require.True(t, task.Start())
	task.Restart()
	require.True(t, task.IsRunning())
	require.Eventually(t, func() bool { return n.Load() > 0 }, 2*time.Second, 5*time.Millisecond)

	task.UpdateInterval(time.Hour)
	require.True(t, task.IsRunning())
	task.Stop()
}

func TestTask_PanicRecovered(t *testing.T) {
	task := New("panicky", time.Hour, func() { panic("boom") })
	assert.NotPanics(t, task.RunNow)
}
