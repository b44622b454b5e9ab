package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGateInitiallyRunning(t *testing.T) {
	g := NewGate()
	assert.False(t, g.Paused())
	assert.True(t, g.Wait())
}

func TestGateIdempotence(t *testing.T) {
	g := NewGate()

	// Resume before any pause is a no-op.
	assert.False(t, g.Resume())
	assert.False(t, g.Paused())

	assert.True(t, g.Pause())
	assert.False(t, g.Pause())
	assert.True(t, g.Paused())

	assert.True(t, g.Resume())
	assert.False(t, g.Resume())
	assert.False(t, g.Paused())
}

func TestGateWaitBlocksUntilResume(t *testing.T) {
	g := NewGate()
	g.Pause()

	done := make(chan bool)
	go func() {
		done <- g.Wait()
	}()

	select {
	case <-done:
		t.Fatal("Wait returned while paused")
	case <-time.After(50 * time.Millisecond):
	}

	g.Resume()

	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Resume")
	}
}

func TestGateStopReleasesWaiters(t *testing.T) {
	g := NewGate()
	g.Pause()

	const waiters = 5
	done := make(chan bool, waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			done <- g.Wait()
		}()
	}

	assert.True(t, g.Stop())
	assert.False(t, g.Stop())

	for i := 0; i < waiters; i++ {
		select {
		case ok := <-done:
			assert.False(t, ok)
		case <-time.After(time.Second):
			t.Fatal("Wait did not return after Stop")
		}
	}
	assert.True(t, g.Stopped())
}

func TestGatePauseResumeCycles(t *testing.T) {
	g := NewGate()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			if !g.Wait() {
				return
			}
		}
	}()

	for i := 0; i < 100; i++ {
		g.Pause()
		g.Resume()
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("waiter stuck")
	}
}
