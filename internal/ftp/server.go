// Package ftp implements the server side of the File Transfer Protocol:
// the command lexicon, path resolver, reply writer, listing formatter,
// data-channel manager, session state machine, and the listener that
// spawns one session per accepted control connection.
package ftp

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"

	"github.com/telebroad/dockftp/internal/config"
)

// Version is the server's reported version string, surfaced in the
// startup log line.
const Version = "dockftp/1.0"

// Server binds the configured address and spawns one session per
// accepted control connection.
type Server struct {
	cfg      *config.Config
	logger   *slog.Logger
	listener net.Listener

	nextID atomic.Uint64
}

// New creates a Server bound to no listener yet; call ListenAndServe to
// start accepting connections.
func New(cfg *config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = NewLogger(slog.LevelInfo)
	}
	return &Server{cfg: cfg, logger: logger}
}

// ListenAndServe binds cfg.Address and serves until the listener is
// closed (typically via Close from another goroutine on shutdown).
func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("binding %s: %w", s.cfg.Address, err)
	}
	s.listener = l

	s.logger.Info("server starting", "version", Version, "address", s.cfg.Address)

	for {
		conn, err := l.Accept()
		if err != nil {
			if isClosed(err) {
				return nil
			}
			return fmt.Errorf("accepting connection: %w", err)
		}
		go s.serveConn(conn)
	}
}

// Close stops accepting new connections. In-flight sessions finish on
// their own.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) serveConn(conn net.Conn) {
	id := fmt.Sprintf("sess-%d", s.nextID.Add(1))
	s.logger.Info("connection accepted", "peer", conn.RemoteAddr().String(), "session", id)

	sess := newSession(id, conn, s.cfg, s.logger)
	if err := sess.reply.reply(StatusServiceReady, "dockftp ready."); err != nil {
		return
	}

	sessErr := sess.Serve()
	if sessErr == nil {
		return
	}
	if sessErr.IsClean() {
		s.logger.Info("session closed", "session", id, "reason", sessErr.Kind.String())
		return
	}
	s.logger.Error("session failed", "session", id, "kind", sessErr.Kind.String(), "error", sessErr.Err)
}

func isClosed(err error) bool {
	return errors.Is(err, net.ErrClosed)
}
