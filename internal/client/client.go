// Package client implements the peer side of a framecast session.
package client

import (
	"context"
	"io"
	"net"
	"sync"

	"github.com/pkg/errors"

	"github.com/lanikai/framecast/internal/logging"
	"github.com/lanikai/framecast/internal/protocol"
	"github.com/lanikai/framecast/internal/quality"
)

var log = logging.DefaultLogger.WithTag("client")

// A Client receives batches from a framecast server and sends it control
// commands. Batches and commands may be used from different goroutines.
type Client struct {
	conn net.Conn

	// Quality requested at connection time.
	Quality quality.Level

	// Serializes command writes.
	wmu sync.Mutex

	batches chan []int
	err     error
}

// Dial connects to a server and requests the given quality.
func Dial(ctx context.Context, address string, level quality.Level) (*Client, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, errors.Wrapf(err, "connect %s", address)
	}

	c, err := New(conn, level)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// New performs the quality handshake on an established connection and starts
// receiving batches. The client takes ownership of conn.
func New(conn net.Conn, level quality.Level) (*Client, error) {
	if !level.Valid() {
		return nil, quality.ErrUnknownLevel
	}

	c := &Client{
		conn:    conn,
		Quality: level,
		batches: make(chan []int, 16),
	}
	if err := c.writeToken(level.String()); err != nil {
		return nil, errors.Wrap(err, "sending quality")
	}

	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	defer close(c.batches)

	br := protocol.NewBatchReader(c.conn)
	for {
		frames, err := br.ReadBatch()
		if err != nil {
			if err != io.EOF {
				c.err = err
			}
			return
		}
		log.Debug("Received %d frames", len(frames))
		c.batches <- frames
	}
}

// Batches delivers each batch as it arrives. The channel is closed when the
// server ends the stream; Err then reports why.
func (c *Client) Batches() <-chan []int {
	return c.batches
}

// Err returns the error that ended the stream, or nil if the server closed it
// cleanly. Only valid after Batches is closed.
func (c *Client) Err() error {
	return c.err
}

func (c *Client) Play() error  { return c.writeToken("play") }
func (c *Client) Pause() error { return c.writeToken("pause") }
func (c *Client) Stop() error  { return c.writeToken("stop") }

// RequestQuality asks for a different quality. Servers keep the quality chosen
// at connection time, so this has no effect on the current stream.
func (c *Client) RequestQuality(level quality.Level) error {
	return c.writeToken(level.String())
}

func (c *Client) writeToken(token string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_, err := io.WriteString(c.conn, token+"\n")
	return err
}

func (c *Client) Close() error {
	return c.conn.Close()
}
