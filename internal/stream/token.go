package stream

import (
	"bufio"
	"context"
	"io"
	"strings"
	"time"

	"github.com/lanikai/framecast/internal/protocol"
	"github.com/lanikai/framecast/internal/quality"
)

// Control tokens longer than this are cut short and will fail to parse.
const maxTokenLength = 32

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

// readToken returns the next whitespace-delimited token from r. A token cut
// off by EOF is returned without error; io.EOF is returned only when no token
// bytes were read.
//
// Peers may also send a bare token with no delimiter. When the bytes read so
// far exhaust the buffered input and form a token accepted by complete, the
// token ends there rather than waiting for more input.
func readToken(r *bufio.Reader, complete func(string) bool) (string, error) {
	var sb strings.Builder
	for {
		c, err := r.ReadByte()
		if err != nil {
			if err == io.EOF && sb.Len() > 0 {
				return sb.String(), nil
			}
			return "", err
		}
		if isSpace(c) {
			if sb.Len() > 0 {
				return sb.String(), nil
			}
			continue
		}
		if sb.Len() < maxTokenLength {
			sb.WriteByte(c)
		}
		if r.Buffered() == 0 && complete != nil && complete(sb.String()) {
			return sb.String(), nil
		}
	}
}

func isCommand(token string) bool {
	_, err := protocol.ParseCommand(token)
	return err == nil
}

func isLevel(token string) bool {
	_, err := quality.Parse(token)
	return err == nil
}

// Handshake reads the peer's quality selection, the first token on the
// connection. The returned reader must be passed to NewSession, since it may
// already hold buffered control commands.
func Handshake(ctx context.Context, conn io.Reader) (quality.Level, *bufio.Reader, error) {
	r := bufio.NewReader(conn)

	if deadline, ok := ctx.Deadline(); ok {
		if d, ok := conn.(readDeadliner); ok {
			if err := d.SetReadDeadline(deadline); err != nil {
				log.Debug("Setting handshake deadline: %v", err)
			}
			defer func() {
				if err := d.SetReadDeadline(time.Time{}); err != nil {
					log.Debug("Clearing handshake deadline: %v", err)
				}
			}()
		}
	}

	token, err := readToken(r, isLevel)
	if err != nil {
		return 0, nil, err
	}
	level, err := quality.Parse(token)
	if err != nil {
		return 0, nil, err
	}
	return level, r, nil
}
