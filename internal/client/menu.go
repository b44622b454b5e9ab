package client

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/lanikai/framecast/internal/quality"
)

var (
	menuTitle  = color.New(color.FgCyan, color.Bold)
	menuFrames = color.New(color.FgGreen)
	menuError  = color.New(color.FgRed)
)

// Menu drives a client from a line-oriented terminal: received batches are
// printed as they arrive, and numbered choices are turned into commands.
type Menu struct {
	client *Client
	in     io.Reader
	out    io.Writer

	mu      sync.Mutex
	quality quality.Level

	// Closed when the input reader goroutine exits.
	inputDone chan struct{}
}

func NewMenu(c *Client, in io.Reader, out io.Writer) *Menu {
	return &Menu{client: c, in: in, out: out, quality: c.Quality, inputDone: make(chan struct{})}
}

func (m *Menu) show() {
	menuTitle.Fprintln(m.out, "\nSelect an action:")
	fmt.Fprintln(m.out, "1. Play")
	fmt.Fprintln(m.out, "2. Pause")
	fmt.Fprintln(m.out, "3. Stop")
	fmt.Fprintln(m.out, "4. Set Low Definition (LD)")
	fmt.Fprintln(m.out, "5. Set Medium Definition (MD)")
	fmt.Fprintln(m.out, "6. Set High Definition (HD)")
	fmt.Fprintf(m.out, "Current bitrate: %v\n", m.quality)
}

func (m *Menu) printf(c *color.Color, format string, a ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.Fprintf(m.out, format, a...)
}

// Run prints the menu and processes choices until the user stops the stream,
// the input ends, or the server ends the stream.
func (m *Menu) Run() error {
	m.mu.Lock()
	m.show()
	m.mu.Unlock()

	streamDone := make(chan struct{})
	go func() {
		defer close(streamDone)
		for frames := range m.client.Batches() {
			m.mu.Lock()
			menuFrames.Fprintf(m.out, "\n%s\n", formatFrames(frames))
			m.show()
			m.mu.Unlock()
		}
	}()

	// A read from the input may still be pending when Run returns; the reader
	// then drops the line and exits instead of blocking on choices.
	done := make(chan struct{})
	defer close(done)

	choices := make(chan string)
	go func() {
		defer close(m.inputDone)
		defer close(choices)
		scanner := bufio.NewScanner(m.in)
		for scanner.Scan() {
			select {
			case choices <- strings.TrimSpace(scanner.Text()):
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case <-streamDone:
			m.printf(color.New(color.Reset), "Finished receiving frames.\n")
			return m.client.Err()

		case choice, ok := <-choices:
			if !ok {
				// Input closed; end the session as if stop was chosen.
				m.client.Stop()
				<-streamDone
				return m.client.Err()
			}
			if stop, err := m.handle(choice); err != nil {
				return err
			} else if stop {
				<-streamDone
				return nil
			}
		}
	}
}

// handle applies one menu choice. It reports whether the stream was stopped.
func (m *Menu) handle(choice string) (bool, error) {
	var err error
	switch choice {
	case "1":
		err = m.client.Play()
	case "2":
		err = m.client.Pause()
	case "3":
		m.printf(color.New(color.Reset), "Stopping streaming...\n")
		return true, m.client.Stop()
	case "4", "5", "6":
		level, _ := quality.Parse(map[string]string{"4": "LD", "5": "MD", "6": "HD"}[choice])
		m.mu.Lock()
		m.quality = level
		m.mu.Unlock()
		m.printf(color.New(color.Reset), "Bitrate set to %v\n", level)
		err = m.client.RequestQuality(level)
	default:
		m.printf(menuError, "Invalid choice. Please choose a valid action.\n")
	}
	return false, err
}

func formatFrames(frames []int) string {
	var sb strings.Builder
	for i, f := range frames {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprint(&sb, f)
	}
	return sb.String()
}
