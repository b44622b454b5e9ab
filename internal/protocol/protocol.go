// Package protocol defines the framecast wire format.
//
// After connecting, the peer sends a quality token ("LD", "MD" or "HD").
// From then on the connection carries, in each direction:
//
//	peer -> server   whitespace-delimited control tokens: pause, play, resume, stop
//	server -> peer   one batch per line: decimal frame identifiers separated by
//	                 single spaces, terminated by '\n'
//
// Tokens are compared without regard to case. A token ends at whitespace, or,
// for a recognized token sent bare, where the data received so far ends. Peers
// should terminate tokens with '\n' so that a token split in transit is not
// mistaken for a shorter one.
package protocol

import (
	"strings"

	errors "golang.org/x/xerrors"
)

// Command is a control token sent by the peer.
type Command int

const (
	CommandUnknown Command = iota
	CommandPause
	CommandResume
	CommandStop
	// A quality token received after the handshake.
	CommandQuality
)

var ErrMalformedCommand = errors.New("protocol: malformed command")

// ParseCommand maps a control token to a Command. Unrecognized tokens yield
// CommandUnknown and an error wrapping ErrMalformedCommand.
func ParseCommand(token string) (Command, error) {
	switch strings.ToLower(token) {
	case "pause":
		return CommandPause, nil
	case "play", "resume":
		return CommandResume, nil
	case "stop":
		return CommandStop, nil
	case "ld", "md", "hd":
		return CommandQuality, nil
	}
	return CommandUnknown, errors.Errorf("%q: %w", token, ErrMalformedCommand)
}

func (c Command) String() string {
	switch c {
	case CommandPause:
		return "pause"
	case CommandResume:
		return "play"
	case CommandStop:
		return "stop"
	case CommandQuality:
		return "quality"
	default:
		return "unknown"
	}
}
