// Copyright 2019 Lanikai Labs. All rights reserved.

package stream

import "sync"

// A Gate holds the pause state shared by a session's two workers. The command
// listener flips it with Pause and Resume; the streaming worker blocks in Wait
// before each send. Stop releases any waiter for good.
type Gate struct {
	mu      sync.Mutex
	cond    *sync.Cond
	paused  bool
	stopped bool
}

func NewGate() *Gate {
	g := &Gate{}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Pause reports whether the gate was running before the call.
func (g *Gate) Pause() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.paused {
		return false
	}
	g.paused = true
	g.cond.Broadcast()
	return true
}

// Resume reports whether the gate was paused before the call.
func (g *Gate) Resume() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.paused {
		return false
	}
	g.paused = false
	g.cond.Broadcast()
	return true
}

// Stop reports whether this was the first call.
func (g *Gate) Stop() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stopped {
		return false
	}
	g.stopped = true
	g.cond.Broadcast()
	return true
}

// Wait blocks while the gate is paused. It returns false if the gate has been
// stopped, true once it is running.
func (g *Gate) Wait() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	for g.paused && !g.stopped {
		g.cond.Wait()
	}
	return !g.stopped
}

func (g *Gate) Paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}

func (g *Gate) Stopped() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stopped
}
