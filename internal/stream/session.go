//////////////////////////////////////////////////////////////////////////////
//
// Stream session: a streaming worker and a command listener sharing one
// connection and one pause gate.
//
// Copyright 2019 Lanikai Labs. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package stream

import (
	"bufio"
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"

	"github.com/lanikai/framecast/internal/logging"
	"github.com/lanikai/framecast/internal/protocol"
	"github.com/lanikai/framecast/internal/quality"
	"github.com/lanikai/framecast/internal/source"
)

var log = logging.DefaultLogger.WithTag("stream")

// DefaultInterval is the delay between batches.
const DefaultInterval = time.Second

// Session lifecycle states.
const (
	StateReady     = "ready"
	StateStreaming = "streaming"
	StateFinished  = "finished"
	StateAborted   = "aborted"
)

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// Hooks observe session activity. Any of them may be nil. They are called
// from the session's worker goroutines and must not block.
type Hooks struct {
	OnBatch   func(frames int)
	OnCommand func(cmd protocol.Command)
	OnPause   func(paused bool)
}

type Options struct {
	// Identifier used in logs. A random UUID if empty.
	ID string

	// Delay after each full batch. Zero sends batches back to back.
	Interval time.Duration

	// Bound on a single batch write, if the connection supports deadlines.
	// Zero means no bound.
	WriteTimeout time.Duration

	Hooks Hooks
}

// Result summarizes a finished session.
type Result struct {
	ID          string
	Quality     quality.Level
	Reason      EndReason
	Err         error
	FramesRead  int64
	FramesSent  int64
	BatchesSent int64
	Duration    time.Duration
}

// A Session streams one dataset to one peer. It runs two goroutines: the
// streaming worker, which owns the frame cursor and the batch, and the
// command listener. They share only the Gate and the stop signal.
type Session struct {
	ID      string
	Quality quality.Level

	conn   io.ReadWriteCloser
	reader *bufio.Reader
	src    source.Source
	opts   Options

	gate  *Gate
	state *fsm.FSM

	// Frame cursor, advanced once per frame read. Worker only.
	cursor  int
	batcher *Batcher

	// Closed on the first stop request.
	quit     chan struct{}
	stopOnce sync.Once
	reason   EndReason
	err      error

	closeOnce sync.Once

	framesRead  atomic.Int64
	framesSent  atomic.Int64
	batchesSent atomic.Int64

	log *logging.Logger
}

// NewSession creates a session streaming src to conn at the given quality.
// reader is the buffered reader returned by Handshake; if nil, one is created.
// The session takes ownership of conn and src.
func NewSession(conn io.ReadWriteCloser, reader *bufio.Reader, src source.Source, level quality.Level, opts Options) *Session {
	if opts.ID == "" {
		opts.ID = uuid.New().String()
	}
	if reader == nil {
		reader = bufio.NewReader(conn)
	}

	s := &Session{
		ID:      opts.ID,
		Quality: level,
		conn:    conn,
		reader:  reader,
		src:     src,
		opts:    opts,
		gate:    NewGate(),
		batcher: NewBatcher(BatchSize),
		quit:    make(chan struct{}),
		log:     log.WithTag("stream/" + shortID(opts.ID)),
	}

	s.state = fsm.NewFSM(
		StateReady,
		fsm.Events{
			{Name: "start", Src: []string{StateReady}, Dst: StateStreaming},
			{Name: "finish", Src: []string{StateStreaming}, Dst: StateFinished},
			{Name: "abort", Src: []string{StateReady, StateStreaming}, Dst: StateAborted},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				s.log.Debug("%s -> %s", e.Src, e.Dst)
			},
		},
	)

	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// State returns the lifecycle state. Safe for concurrent use.
func (s *Session) State() string {
	return s.state.Current()
}

// Paused reports whether the peer has paused the stream.
func (s *Session) Paused() bool {
	return s.gate.Paused()
}

// Stats returns the frames read, frames sent and batches sent so far.
func (s *Session) Stats() (framesRead, framesSent, batchesSent int64) {
	return s.framesRead.Load(), s.framesSent.Load(), s.batchesSent.Load()
}

// Stop asks the session to end, as if the peer had sent a stop command.
func (s *Session) Stop() {
	s.requestStop(EndStopped, nil)
}

// Run streams until the dataset is exhausted, the peer stops or disconnects,
// or ctx is canceled. Both workers have returned and the connection has been
// closed when Run returns.
func (s *Session) Run(ctx context.Context) Result {
	start := time.Now()
	s.state.Event(ctx, "start")
	s.log.Info("Streaming at %v (stride %d)", s.Quality, quality.Stride(s.Quality))

	listenerDone := make(chan struct{})
	go func() {
		defer close(listenerDone)
		s.listen()
	}()

	workerDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			s.requestStop(EndCanceled, ctx.Err())
		case <-workerDone:
		}
	}()

	s.stream()
	close(workerDone)

	// The worker is done, so the listener is the only one left. Unblock its
	// read and wait for it before releasing the connection.
	s.requestStop(EndExhausted, nil)
	if !s.interruptRead() {
		s.closeConn()
	}
	<-listenerDone
	s.closeConn()

	if err := s.src.Close(); err != nil {
		s.log.Warn("Closing source: %v", err)
	}

	if s.reason.Failed() {
		s.state.Event(context.Background(), "abort")
	} else {
		s.state.Event(context.Background(), "finish")
	}

	framesRead, framesSent, batchesSent := s.Stats()
	return Result{
		ID:          s.ID,
		Quality:     s.Quality,
		Reason:      s.reason,
		Err:         s.err,
		FramesRead:  framesRead,
		FramesSent:  framesSent,
		BatchesSent: batchesSent,
		Duration:    time.Since(start),
	}
}

// requestStop records the first reason the session ends and wakes both
// workers. Later calls are no-ops.
func (s *Session) requestStop(reason EndReason, err error) {
	s.stopOnce.Do(func() {
		s.reason = reason
		s.err = err
		close(s.quit)
		s.gate.Stop()

		if reason != EndExhausted {
			s.log.Debug("Stop requested: %v", reason)
			// Abandon a send that is blocked on a slow peer.
			if d, ok := s.conn.(writeDeadliner); ok {
				if err := d.SetWriteDeadline(time.Now()); err != nil {
					s.log.Debug("Interrupting write: %v", err)
				}
			}
		}
	})
}

func (s *Session) stopping() bool {
	select {
	case <-s.quit:
		return true
	default:
		return false
	}
}

// interruptRead unblocks a pending read on the connection, if the transport
// supports read deadlines.
func (s *Session) interruptRead() bool {
	d, ok := s.conn.(readDeadliner)
	if !ok {
		return false
	}
	if err := d.SetReadDeadline(time.Now()); err != nil {
		s.log.Debug("Interrupting read: %v", err)
		return false
	}
	return true
}

func (s *Session) closeConn() {
	s.closeOnce.Do(func() {
		if err := s.conn.Close(); err != nil {
			s.log.Debug("Closing connection: %v", err)
		}
	})
}
