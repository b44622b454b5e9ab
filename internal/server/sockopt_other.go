//go:build !linux

package server

import (
	"syscall"
	"time"
)

func controlListener(c syscall.RawConn) error {
	return nil
}

func setUserTimeout(c syscall.RawConn, d time.Duration) error {
	return nil
}
