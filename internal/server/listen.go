package server

import (
	"context"
	"net"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/net/netutil"
)

// Listen opens a TCP listener for stream sessions. If maxConns is positive, at
// most that many connections are accepted at a time; further peers wait in the
// kernel backlog until a session ends. A positive userTimeout is applied to
// every accepted connection as TCP_USER_TIMEOUT.
func Listen(addr string, maxConns int, userTimeout time.Duration) (net.Listener, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			return controlListener(c)
		},
	}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen %s", addr)
	}
	if userTimeout > 0 {
		// Tuned before the limit wrapper hides the *net.TCPConn.
		ln = &tunedListener{ln, userTimeout}
	}
	if maxConns > 0 {
		ln = netutil.LimitListener(ln, maxConns)
	}
	return ln, nil
}

type tunedListener struct {
	net.Listener
	userTimeout time.Duration
}

func (l *tunedListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	tuneConn(conn, l.userTimeout)
	return conn, nil
}

// tuneConn applies per-connection socket options to accepted TCP connections.
func tuneConn(conn net.Conn, userTimeout time.Duration) {
	tc, ok := conn.(*net.TCPConn)
	if !ok || userTimeout <= 0 {
		return
	}
	rc, err := tc.SyscallConn()
	if err != nil {
		return
	}
	if err := setUserTimeout(rc, userTimeout); err != nil {
		log.Debug("TCP_USER_TIMEOUT on %v: %v", conn.RemoteAddr(), err)
	}
}
