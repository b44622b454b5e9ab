package stream

import (
	"io"

	"github.com/lanikai/framecast/internal/protocol"
)

// listen is the command listener. It never waits on the gate, so it stays
// responsive while the worker is paused.
func (s *Session) listen() {
	for {
		token, err := readToken(s.reader, isCommand)
		if err != nil {
			switch {
			case s.stopping():
				// Read interrupted by teardown.
			case err == io.EOF:
				s.log.Info("Peer closed connection")
				s.requestStop(EndPeerClosed, nil)
			default:
				s.log.Warn("Reading command: %v", err)
				s.requestStop(EndTransportError, &TransportError{Op: "read", Err: err})
			}
			return
		}

		cmd, err := protocol.ParseCommand(token)
		if s.opts.Hooks.OnCommand != nil {
			s.opts.Hooks.OnCommand(cmd)
		}

		switch cmd {
		case protocol.CommandPause:
			if s.gate.Pause() {
				s.log.Info("Paused")
				s.notifyPause(true)
			}
		case protocol.CommandResume:
			if s.gate.Resume() {
				s.log.Info("Resumed")
				s.notifyPause(false)
			}
		case protocol.CommandStop:
			s.log.Info("Stop requested by peer")
			s.requestStop(EndStopped, nil)
			return
		case protocol.CommandQuality:
			s.log.Info("Ignoring quality change to %s: quality is fixed for the session", token)
		default:
			s.log.Warn("Ignoring command: %v", err)
		}
	}
}

func (s *Session) notifyPause(paused bool) {
	if s.opts.Hooks.OnPause != nil {
		s.opts.Hooks.OnPause(paused)
	}
}
