package stream

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanikai/framecast/internal/protocol"
	"github.com/lanikai/framecast/internal/quality"
	"github.com/lanikai/framecast/internal/source"
)

// countingConn records how many times Close is called.
type countingConn struct {
	net.Conn
	closes atomic.Int32
}

func (c *countingConn) Close() error {
	c.closes.Add(1)
	return c.Conn.Close()
}

// plainConn hides the deadline methods of a net.Conn.
type plainConn struct {
	c net.Conn
}

func (p plainConn) Read(b []byte) (int, error)  { return p.c.Read(b) }
func (p plainConn) Write(b []byte) (int, error) { return p.c.Write(b) }
func (p plainConn) Close() error                { return p.c.Close() }

// failingSource yields n frames and then an error.
type failingSource struct {
	n int
}

func (f *failingSource) Next() (int, error) {
	if f.n == 0 {
		return 0, errors.New("disk on fire")
	}
	f.n--
	return f.n, nil
}

func (f *failingSource) Close() error { return nil }

// collect reads batches from conn until it ends.
func collect(conn net.Conn) <-chan []int {
	ch := make(chan []int, 1024)
	go func() {
		defer close(ch)
		br := protocol.NewBatchReader(conn)
		for {
			frames, err := br.ReadBatch()
			if err != nil {
				return
			}
			ch <- frames
		}
	}()
	return ch
}

func runSession(s *Session) <-chan Result {
	done := make(chan Result, 1)
	go func() {
		done <- s.Run(context.Background())
	}()
	return done
}

func waitResult(t *testing.T, done <-chan Result) Result {
	select {
	case r := <-done:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("session did not end")
		return Result{}
	}
}

func TestSessionHighQualityFullBatches(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	s := NewSession(server, nil, source.NewSequence(1, 300), quality.High, Options{})
	done := runSession(s)

	var batches [][]int
	for b := range collect(client) {
		batches = append(batches, b)
	}

	r := waitResult(t, done)
	assert.Equal(t, EndExhausted, r.Reason)
	assert.NoError(t, r.Err)
	assert.EqualValues(t, 300, r.FramesRead)
	assert.EqualValues(t, 300, r.FramesSent)
	assert.EqualValues(t, 10, r.BatchesSent)
	assert.Equal(t, StateFinished, s.State())

	require.Len(t, batches, 10)
	next := 1
	for _, b := range batches {
		require.Len(t, b, BatchSize)
		for _, f := range b {
			assert.Equal(t, next, f)
			next++
		}
	}
}

func TestSessionLowQualityPartialBatch(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	s := NewSession(server, nil, source.NewSequence(1, 50), quality.Low, Options{})
	done := runSession(s)

	var batches [][]int
	for b := range collect(client) {
		batches = append(batches, b)
	}

	r := waitResult(t, done)
	assert.Equal(t, EndExhausted, r.Reason)
	assert.EqualValues(t, 50, r.FramesRead)
	assert.Equal(t, [][]int{{1}}, batches)
}

func TestSessionMediumQualityDecimation(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	s := NewSession(server, nil, source.NewSequence(0, 999), quality.Medium, Options{})
	done := runSession(s)

	var frames []int
	var sizes []int
	for b := range collect(client) {
		frames = append(frames, b...)
		sizes = append(sizes, len(b))
	}
	waitResult(t, done)

	// 100 kept frames: three full batches and a final one of 10.
	assert.Equal(t, []int{30, 30, 30, 10}, sizes)
	for i, f := range frames {
		assert.Equal(t, i*10, f)
	}
}

func TestSessionPauseResume(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	s := NewSession(server, nil, source.NewSequence(1, 30000), quality.High, Options{
		Interval: 5 * time.Millisecond,
	})
	done := runSession(s)
	batches := collect(client)

	var received []int
	receive := func() {
		select {
		case b, ok := <-batches:
			require.True(t, ok)
			received = append(received, b...)
		case <-time.After(2 * time.Second):
			t.Fatal("no batch received")
		}
	}
	receive()
	receive()

	_, err := client.Write([]byte("PAUSE\n"))
	require.NoError(t, err)
	require.Eventually(t, s.Paused, time.Second, time.Millisecond)

	// At most one batch may already have passed the gate.
	_, _, before := s.Stats()
	time.Sleep(50 * time.Millisecond)
	_, _, settled := s.Stats()
	assert.LessOrEqual(t, settled-before, int64(1))
	time.Sleep(100 * time.Millisecond)
	_, _, after := s.Stats()
	assert.Equal(t, settled, after, "batches sent while paused")

	// Pausing again changes nothing.
	_, err = client.Write([]byte("pause\n"))
	require.NoError(t, err)
	assert.True(t, s.Paused())

	_, err = client.Write([]byte("play\n"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, _, n := s.Stats()
		return n > after
	}, time.Second, time.Millisecond)

	_, err = client.Write([]byte("stop\n"))
	require.NoError(t, err)

	for b := range batches {
		received = append(received, b...)
	}

	r := waitResult(t, done)
	assert.Equal(t, EndStopped, r.Reason)
	assert.NoError(t, r.Err)

	// No frame was lost or reordered across the pause.
	for i, f := range received {
		require.Equal(t, i+1, f)
	}
}

func TestSessionStopWhilePaused(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	s := NewSession(server, nil, source.NewSequence(1, 30000), quality.High, Options{
		Interval: time.Hour,
	})
	done := runSession(s)
	batches := collect(client)

	<-batches
	_, err := client.Write([]byte("pause stop\n"))
	require.NoError(t, err)

	r := waitResult(t, done)
	assert.Equal(t, EndStopped, r.Reason)
	assert.EqualValues(t, 1, r.BatchesSent)
}

func TestSessionIgnoresUnknownCommands(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	s := NewSession(server, nil, source.NewSequence(1, 90), quality.High, Options{
		Interval: 50 * time.Millisecond,
	})

	var commands []protocol.Command
	var mu sync.Mutex
	s.opts.Hooks.OnCommand = func(cmd protocol.Command) {
		mu.Lock()
		commands = append(commands, cmd)
		mu.Unlock()
	}

	done := runSession(s)
	batches := collect(client)

	_, err := client.Write([]byte("rewind HD resume\n"))
	require.NoError(t, err)

	n := 0
	for range batches {
		n++
	}
	r := waitResult(t, done)
	assert.Equal(t, EndExhausted, r.Reason)
	assert.Equal(t, 3, n)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []protocol.Command{
		protocol.CommandUnknown, protocol.CommandQuality, protocol.CommandResume,
	}, commands)
}

func TestSessionPeerDisconnect(t *testing.T) {
	server, client := net.Pipe()
	conn := &countingConn{Conn: server}

	s := NewSession(conn, nil, source.NewSequence(1, 300000), quality.High, Options{})
	done := runSession(s)

	br := protocol.NewBatchReader(client)
	_, err := br.ReadBatch()
	require.NoError(t, err)
	client.Close()

	r := waitResult(t, done)
	assert.Contains(t, []EndReason{EndPeerClosed, EndTransportError}, r.Reason)
	assert.EqualValues(t, 1, conn.closes.Load())
	assert.Less(t, r.FramesRead, int64(300000))
}

func TestSessionWithoutDeadlines(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	s := NewSession(plainConn{server}, nil, source.NewSequence(1, 60), quality.High, Options{})
	done := runSession(s)

	n := 0
	for range collect(client) {
		n++
	}
	r := waitResult(t, done)
	assert.Equal(t, EndExhausted, r.Reason)
	assert.Equal(t, 2, n)
}

func TestSessionSourceError(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	s := NewSession(server, nil, &failingSource{n: 45}, quality.High, Options{})
	done := runSession(s)

	n := 0
	for range collect(client) {
		n++
	}
	r := waitResult(t, done)
	assert.Equal(t, EndSourceError, r.Reason)
	assert.Error(t, r.Err)
	assert.Equal(t, 1, n)
	assert.Equal(t, StateAborted, s.State())
}

func TestSessionCanceled(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	s := NewSession(server, nil, source.NewSequence(1, 30000), quality.High, Options{
		Interval: time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Result, 1)
	go func() {
		done <- s.Run(ctx)
	}()

	batches := collect(client)
	<-batches
	cancel()

	r := waitResult(t, done)
	assert.Equal(t, EndCanceled, r.Reason)
}

func TestHandshake(t *testing.T) {
	level, r, err := Handshake(context.Background(), strings.NewReader("  hd\npause "))
	require.NoError(t, err)
	assert.Equal(t, quality.High, level)

	// Bytes after the quality token remain buffered for the listener.
	token, err := readToken(r, nil)
	require.NoError(t, err)
	assert.Equal(t, "pause", token)

	_, err = readToken(r, nil)
	assert.Equal(t, io.EOF, err)
}

func TestHandshakeErrors(t *testing.T) {
	_, _, err := Handshake(context.Background(), strings.NewReader("UHD\n"))
	assert.Equal(t, quality.ErrUnknownLevel, err)

	_, _, err = Handshake(context.Background(), strings.NewReader(""))
	assert.Equal(t, io.EOF, err)
}

func TestHandshakeDeadline(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, err := Handshake(ctx, server)
	var ne net.Error
	require.True(t, errors.As(err, &ne))
	assert.True(t, ne.Timeout())
}

func TestReadTokenTruncatesLongTokens(t *testing.T) {
	r := bufio.NewReader(strings.NewReader(strings.Repeat("x", 100) + " play"))

	token, err := readToken(r, nil)
	require.NoError(t, err)
	assert.Len(t, token, maxTokenLength)

	token, err = readToken(r, nil)
	require.NoError(t, err)
	assert.Equal(t, "play", token)
}

func TestReadTokenEndsBareTokenAtInputBoundary(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go func() {
		client.Write([]byte("pa"))
		client.Write([]byte("use"))
		client.Write([]byte("bogus"))
		client.Write([]byte(" stop"))
	}()

	r := bufio.NewReader(server)
	token, err := readToken(r, isCommand)
	require.NoError(t, err)
	assert.Equal(t, "pause", token)

	// Unknown words still need a delimiter.
	token, err = readToken(r, isCommand)
	require.NoError(t, err)
	assert.Equal(t, "bogus", token)

	token, err = readToken(r, isCommand)
	require.NoError(t, err)
	assert.Equal(t, "stop", token)
}

func TestHandshakeBareToken(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go client.Write([]byte("LD"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	level, _, err := Handshake(ctx, server)
	require.NoError(t, err)
	assert.Equal(t, quality.Low, level)
}

func TestSessionBareCommands(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	s := NewSession(server, nil, source.NewSequence(1, 30000), quality.High, Options{
		Interval: time.Hour,
	})
	done := runSession(s)
	batches := collect(client)

	select {
	case <-batches:
	case <-time.After(2 * time.Second):
		t.Fatal("no batch received")
	}

	_, err := client.Write([]byte("pause"))
	require.NoError(t, err)
	require.Eventually(t, s.Paused, time.Second, time.Millisecond)

	_, err = client.Write([]byte("stop"))
	require.NoError(t, err)
	r := waitResult(t, done)
	assert.Equal(t, EndStopped, r.Reason)
}

// brokenDeadlineConn refuses every deadline.
type brokenDeadlineConn struct {
	countingConn
}

func (c *brokenDeadlineConn) SetReadDeadline(time.Time) error {
	return errors.New("deadlines unsupported")
}

func (c *brokenDeadlineConn) SetWriteDeadline(time.Time) error {
	return errors.New("deadlines unsupported")
}

func TestSessionSurvivesDeadlineErrors(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()
	conn := &brokenDeadlineConn{countingConn{Conn: server}}

	s := NewSession(conn, nil, source.NewSequence(1, 50), quality.Low, Options{
		WriteTimeout: time.Second,
	})
	done := runSession(s)

	var batches [][]int
	for b := range collect(client) {
		batches = append(batches, b)
	}

	r := waitResult(t, done)
	assert.Equal(t, EndExhausted, r.Reason)
	assert.Equal(t, [][]int{{1}}, batches)
	assert.EqualValues(t, 1, conn.closes.Load())
}
