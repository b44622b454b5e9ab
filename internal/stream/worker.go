package stream

import (
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/lanikai/framecast/internal/protocol"
	"github.com/lanikai/framecast/internal/quality"
)

// stream is the streaming worker. It reads the dataset, decimates it, and
// sends full batches at the configured interval. A stop request takes effect
// at the next frame, or immediately while paused or sleeping.
func (s *Session) stream() {
	stride := quality.Stride(s.Quality)

	for !s.stopping() {
		frame, err := s.src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			s.log.Error("Reading dataset: %v", err)
			s.requestStop(EndSourceError, errors.Wrap(err, "read frame"))
			return
		}
		s.framesRead.Add(1)

		keep := quality.Keep(s.cursor, stride)
		s.cursor++
		if !keep {
			continue
		}

		if s.batcher.Add(frame) {
			if !s.send() {
				return
			}
			if !s.sleep(s.opts.Interval) {
				return
			}
		}
	}

	// Final partial batch.
	if s.batcher.Len() > 0 && !s.stopping() {
		if !s.send() {
			return
		}
	}
	if !s.stopping() {
		s.log.Info("Dataset exhausted after %d frames", s.cursor)
	}
}

// send waits for the gate to open and writes the current batch. It returns
// false if the session should end.
func (s *Session) send() bool {
	if !s.gate.Wait() {
		return false
	}

	frames := s.batcher.Take()
	if s.opts.WriteTimeout > 0 {
		if d, ok := s.conn.(writeDeadliner); ok {
			if err := d.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout)); err != nil {
				s.log.Debug("Setting write deadline: %v", err)
			}
		}
	}
	if err := protocol.WriteBatch(s.conn, frames); err != nil {
		if !s.stopping() {
			s.log.Warn("Sending batch: %v", err)
		}
		s.requestStop(EndTransportError, &TransportError{Op: "write", Err: err})
		return false
	}

	s.framesSent.Add(int64(len(frames)))
	s.batchesSent.Add(1)
	s.log.Trace(5, "Sent batch of %d frames", len(frames))
	if s.opts.Hooks.OnBatch != nil {
		s.opts.Hooks.OnBatch(len(frames))
	}
	return true
}

// sleep waits out the inter-batch interval. It returns false if the session is
// stopped in the meantime.
func (s *Session) sleep(d time.Duration) bool {
	if d <= 0 {
		return !s.stopping()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-s.quit:
		return false
	}
}
