package ftp

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"net"

	"github.com/telebroad/dockftp/internal/config"
)

// Session is one control connection's worth of state: the authenticated
// transport, the logical cwd, and at most one armed data channel. A
// Session is only ever driven by its own Serve loop, so it needs no
// internal synchronization.
type Session struct {
	id     string
	conn   net.Conn
	reader *bufio.Reader
	reply  *replyWriter
	logger *slog.Logger
	cfg    *config.Config

	cwd        string
	username   string
	user       config.User
	authorized bool
	restOffset int64
	data       dataChannel
}

// newSession wraps an accepted connection in a fresh, unauthenticated
// Session rooted at "/".
func newSession(id string, conn net.Conn, cfg *config.Config, logger *slog.Logger) *Session {
	w := bufio.NewWriter(conn)
	return &Session{
		id:     id,
		conn:   conn,
		reader: bufio.NewReader(conn),
		reply:  newReplyWriter(w),
		logger: logger,
		cfg:    cfg,
		cwd:    "/",
	}
}

// Serve runs the session loop: read a command, dispatch it, write a
// reply, repeat, until the client disconnects, issues QUIT, or a fatal
// I/O error occurs. It always closes the owned sockets before returning.
func (s *Session) Serve() *SessionError {
	defer s.data.disarm()
	defer s.conn.Close()

	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return sessionErr(KindDisconnected, nil)
			}
			return sessionErr(KindReadFailed, err)
		}

		req := parseLine(line)
		if req.Verb == "" {
			continue
		}

		if sessErr := s.dispatch(req); sessErr != nil {
			return sessErr
		}
	}
}

// dispatch enforces the authentication gate and routes a parsed request
// to its handler. It returns non-nil only when the session must end.
func (s *Session) dispatch(req request) *SessionError {
	if !s.authorized && !commandsAllowedUnauthenticated[req.Command] {
		return s.writeReply(StatusNotLoggedIn, "Please login with USER and PASS.")
	}

	switch req.Command {
	case CmdUser:
		return s.handleUser(req.Arg)
	case CmdPass:
		return s.handlePass(req.Arg)
	case CmdQuit:
		if err := s.reply.reply(StatusClosingControlConn, "Bye!"); err != nil {
			return sessionErr(KindWriteError, err)
		}
		return sessionErr(KindClosedByQuit, nil)
	case CmdFeat:
		return s.handleFeat()
	case CmdSyst:
		return s.writeReply(StatusNameSystemType, "UNIX Type: L8")
	case CmdType:
		return s.writeReply(StatusCommandOK, "OK")
	case CmdOPTS:
		return s.handleOpts(req.Arg)
	case CmdPWD:
		return s.handlePWD()
	case CmdCWD:
		return s.handleCWD(req.Arg)
	case CmdCDUP:
		return s.handleCDUP()
	case CmdPort:
		return s.handlePORT(req.Arg)
	case CmdPasv:
		return s.handlePASV()
	case CmdRest:
		return s.handleREST(req.Arg)
	case CmdRetr:
		return s.handleRETR(req.Arg)
	case CmdStor:
		return s.handleSTOR(req.Arg)
	case CmdSize:
		return s.handleSIZE(req.Arg)
	case CmdList:
		return s.handleLIST()
	default:
		return s.writeReply(StatusCommandNotImplemented, "Unknown command.")
	}
}

// writeReply is a thin wrapper turning a write failure into a session-
// terminating error, matching the "reply write failure is fatal" rule.
func (s *Session) writeReply(code StatusCode, format string, args ...any) *SessionError {
	if err := s.reply.reply(code, format, args...); err != nil {
		return sessionErr(KindWriteError, err)
	}
	return nil
}

// resolve applies the path resolver to arg against the session's cwd.
func (s *Session) resolve(arg string) (logical, physical string, ok bool) {
	logical, physical, err := resolvePath(s.cfg.Root, s.cwd, arg)
	if err != nil {
		return "", "", false
	}
	return logical, physical, true
}
