package client

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanikai/framecast/internal/protocol"
	"github.com/lanikai/framecast/internal/quality"
)

// fakeServer reads the handshake, sends the given batches, then records
// commands until stop or EOF.
func fakeServer(t *testing.T, conn net.Conn, batches [][]int) <-chan []string {
	tokens := make(chan []string, 1)
	go func() {
		defer conn.Close()
		var got []string
		scanner := bufio.NewScanner(conn)
		scanner.Split(bufio.ScanWords)

		if scanner.Scan() {
			got = append(got, scanner.Text())
		}
		for _, b := range batches {
			if err := protocol.WriteBatch(conn, b); err != nil {
				t.Errorf("write batch: %v", err)
			}
		}
		for scanner.Scan() {
			got = append(got, scanner.Text())
			if scanner.Text() == "stop" {
				break
			}
		}
		tokens <- got
	}()
	return tokens
}

func TestClientReceivesBatches(t *testing.T) {
	server, conn := net.Pipe()
	tokens := fakeServer(t, server, [][]int{{1, 2, 3}, {4}})

	c, err := New(conn, quality.Medium)
	require.NoError(t, err)
	defer c.Close()

	var got [][]int
	for i := 0; i < 2; i++ {
		select {
		case b := <-c.Batches():
			got = append(got, b)
		case <-time.After(time.Second):
			t.Fatal("no batch")
		}
	}
	assert.Equal(t, [][]int{{1, 2, 3}, {4}}, got)

	require.NoError(t, c.Pause())
	require.NoError(t, c.Play())
	require.NoError(t, c.RequestQuality(quality.High))
	require.NoError(t, c.Stop())

	assert.Equal(t, []string{"MD", "pause", "play", "HD", "stop"}, <-tokens)

	_, ok := <-c.Batches()
	assert.False(t, ok)
	assert.NoError(t, c.Err())
}

func TestClientRejectsInvalidQuality(t *testing.T) {
	server, conn := net.Pipe()
	defer server.Close()

	_, err := New(conn, quality.Level(9))
	assert.Equal(t, quality.ErrUnknownLevel, err)
}

func TestMenu(t *testing.T) {
	color.NoColor = true

	server, conn := net.Pipe()
	tokens := fakeServer(t, server, [][]int{{10, 20, 30}})

	c, err := New(conn, quality.Low)
	require.NoError(t, err)
	defer c.Close()

	// Wait for the batch so the output is deterministic.
	var first []int
	select {
	case first = <-c.Batches():
	case <-time.After(time.Second):
		t.Fatal("no batch")
	}
	assert.Equal(t, []int{10, 20, 30}, first)

	out := &bytes.Buffer{}
	m := NewMenu(c, strings.NewReader("2\n6\nbogus\n1\n3\n"), out)
	require.NoError(t, m.Run())

	assert.Equal(t, []string{"LD", "pause", "HD", "play", "stop"}, <-tokens)
	assert.Contains(t, out.String(), "Current bitrate: LD")
	assert.Contains(t, out.String(), "Bitrate set to HD")
	assert.Contains(t, out.String(), "Invalid choice")
	assert.Contains(t, out.String(), "Stopping streaming...")
}

func TestMenuInputClosed(t *testing.T) {
	color.NoColor = true

	server, conn := net.Pipe()
	tokens := fakeServer(t, server, nil)

	c, err := New(conn, quality.High)
	require.NoError(t, err)
	defer c.Close()

	out := &bytes.Buffer{}
	require.NoError(t, NewMenu(c, strings.NewReader(""), out).Run())
	assert.Equal(t, []string{"HD", "stop"}, <-tokens)
}

func TestMenuReleasesInputWhenStreamEnds(t *testing.T) {
	color.NoColor = true

	server, conn := net.Pipe()
	go func() {
		defer server.Close()
		bufio.NewReader(server).ReadString('\n')
		protocol.WriteBatch(server, []int{7})
	}()

	c, err := New(conn, quality.High)
	require.NoError(t, err)
	defer c.Close()

	in, input := io.Pipe()
	defer input.Close()

	m := NewMenu(c, in, &bytes.Buffer{})
	require.NoError(t, m.Run())

	// A choice typed after the stream ended is dropped, not left blocking.
	_, err = io.WriteString(input, "1\n")
	require.NoError(t, err)
	select {
	case <-m.inputDone:
	case <-time.After(time.Second):
		t.Fatal("input reader still blocked")
	}
}

func TestFormatFrames(t *testing.T) {
	assert.Equal(t, "1 2 3", formatFrames([]int{1, 2, 3}))
	assert.Equal(t, "", formatFrames(nil))
}
