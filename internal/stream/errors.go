// Copyright 2019 Lanikai Labs. All rights reserved.

package stream

import (
	"errors"
	"fmt"
)

// ErrTransport matches any TransportError via errors.Is.
var ErrTransport = errors.New("transport error")

// A TransportError is a send or receive failure not explained by an orderly
// peer close.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// EndReason records why a session ended.
type EndReason int

const (
	EndUnknown EndReason = iota
	// The dataset was exhausted and the final batch flushed.
	EndExhausted
	// The peer sent a stop command.
	EndStopped
	// The peer closed the connection.
	EndPeerClosed
	// A send or receive failed.
	EndTransportError
	// The dataset failed mid-stream.
	EndSourceError
	// The server is shutting down.
	EndCanceled
)

func (r EndReason) String() string {
	switch r {
	case EndExhausted:
		return "exhausted"
	case EndStopped:
		return "stopped"
	case EndPeerClosed:
		return "peer_closed"
	case EndTransportError:
		return "transport_error"
	case EndSourceError:
		return "source_error"
	case EndCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Failed reports whether the reason indicates an abnormal end.
func (r EndReason) Failed() bool {
	return r == EndTransportError || r == EndSourceError
}
