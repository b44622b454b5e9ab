// Copyright 2019 Lanikai Labs. All rights reserved.

// Package server accepts peer connections and runs one stream session per
// connection.
package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lanikai/framecast/internal/config"
	"github.com/lanikai/framecast/internal/logging"
	"github.com/lanikai/framecast/internal/source"
	"github.com/lanikai/framecast/internal/stream"
)

var log = logging.DefaultLogger.WithTag("server")

var ErrServerClosed = errors.New("server: closed")

type Server struct {
	cfg      config.Server
	metrics  *Metrics
	sessions *registry

	ctx    context.Context
	cancel context.CancelFunc

	// Tracks connection handlers, so Shutdown can wait for them.
	wg sync.WaitGroup

	mu        sync.Mutex
	listeners []net.Listener
	http      *http.Server
	closed    bool
}

func New(cfg config.Server) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:      cfg,
		metrics:  newMetrics(),
		sessions: newRegistry(cfg.History),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// ListenAndServe listens on the configured TCP address, and on the HTTP
// address if one is set. Blocks until Shutdown is called or the TCP listener
// fails.
func (s *Server) ListenAndServe() error {
	ln, err := Listen(s.cfg.Listen, s.cfg.MaxSessions, s.cfg.UserTimeout)
	if err != nil {
		return err
	}

	if s.cfg.HTTP != "" {
		hln, err := net.Listen("tcp", s.cfg.HTTP)
		if err != nil {
			ln.Close()
			return err
		}
		go func() {
			if err := s.ServeHTTP(hln); err != nil && err != ErrServerClosed {
				log.Error("HTTP server: %v", err)
			}
		}()
	}

	return s.Serve(ln)
}

// Serve accepts stream connections on ln until Shutdown or a permanent
// accept error.
func (s *Server) Serve(ln net.Listener) error {
	if !s.track(ln) {
		ln.Close()
		return ErrServerClosed
	}
	log.Info("Listening for stream sessions on %v", ln.Addr())

	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.ctx.Err() != nil {
				return ErrServerClosed
			}
			if te, ok := err.(interface{ Temporary() bool }); ok && te.Temporary() {
				if delay == 0 {
					delay = 5 * time.Millisecond
				} else if delay *= 2; delay > time.Second {
					delay = time.Second
				}
				log.Warn("Accept error: %v; retrying in %v", err, delay)
				time.Sleep(delay)
				continue
			}
			return err
		}
		delay = 0

		if !s.begin() {
			conn.Close()
			return ErrServerClosed
		}
		go func() {
			defer s.wg.Done()
			s.ServeConn(conn, conn.RemoteAddr().String())
		}()
	}
}

// ServeHTTP serves /metrics, /sessions and the /stream WebSocket endpoint on
// ln until Shutdown.
func (s *Server) ServeHTTP(ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return ErrServerClosed
	}
	s.http = srv
	s.mu.Unlock()

	log.Info("Serving HTTP on %v", ln.Addr())
	if err := srv.Serve(ln); err != http.ErrServerClosed {
		return err
	}
	return ErrServerClosed
}

// begin registers a connection handler. It returns false once the server is
// shutting down.
func (s *Server) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.wg.Add(1)
	return true
}

func (s *Server) track(ln net.Listener) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.listeners = append(s.listeners, ln)
	return true
}

// ServeConn runs the quality handshake and a stream session on an accepted
// connection. It blocks until the session ends and always closes conn.
func (s *Server) ServeConn(conn io.ReadWriteCloser, remote string) {
	id := uuid.New().String()

	defer func() {
		if r := recover(); r != nil {
			log.Error("Session %s from %s panicked: %v\n%s", id, remote, r, debug.Stack())
			conn.Close()
		}
	}()

	ctx := s.ctx
	if s.cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, s.cfg.HandshakeTimeout)
		defer cancel()
	}

	level, reader, err := stream.Handshake(ctx, conn)
	if err != nil {
		if err == io.EOF {
			log.Info("%s disconnected before selecting a quality", remote)
		} else {
			log.Warn("Handshake with %s failed: %v", remote, err)
		}
		s.metrics.handshakesFailed.Inc()
		conn.Close()
		return
	}

	src, err := source.Open(s.cfg.Dataset)
	if err != nil {
		log.Error("Session %s from %s: %v", id, remote, err)
		s.metrics.sessionsEnded.WithLabelValues("source_unavailable").Inc()
		conn.Close()
		return
	}

	sess := stream.NewSession(conn, reader, src, level, stream.Options{
		ID:           id,
		Interval:     s.cfg.Interval,
		WriteTimeout: s.cfg.WriteTimeout,
		Hooks:        s.metrics.hooks(level),
	})

	log.Info("Session %s from %s, quality %v", id, remote, level)
	s.sessions.add(sess, remote)
	s.metrics.sessionStarted()

	result := sess.Run(s.ctx)

	s.sessions.finish(sess, result)
	s.metrics.sessionEnded(sess, result)

	if result.Reason.Failed() {
		log.Warn("Session %s ended (%v) after %d batches: %v", id, result.Reason, result.BatchesSent, result.Err)
	} else {
		log.Info("Session %s ended (%v) after %d batches, %d/%d frames sent in %v",
			id, result.Reason, result.BatchesSent, result.FramesSent, result.FramesRead,
			result.Duration.Round(time.Millisecond))
	}
}

// Shutdown stops accepting connections, stops every session and waits for
// their handlers to return.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.cancel()

	var firstErr error
	for _, ln := range s.listeners {
		if err := ln.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	srv := s.http
	s.mu.Unlock()

	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	s.wg.Wait()
	return firstErr
}
