package ftp

import (
	"io"
	"os"
	"path"
	"strconv"
	"time"
)

// handlePORT implements PORT: arms the active data target.
func (s *Session) handlePORT(arg string) *SessionError {
	addr, err := parsePORT(arg)
	if err != nil {
		return s.writeReply(StatusSyntaxErrorInParameters, "Invalid PORT argument.")
	}
	s.data.armActive(addr)
	return s.writeReply(StatusCommandOK, "PORT command successful.")
}

// handlePASV implements PASV: binds a fresh listener and advertises it.
func (s *Session) handlePASV() *SessionError {
	port, err := s.data.armPassive()
	if err != nil {
		return s.writeReply(StatusCantOpenDataConnection, "Can't open passive connection.")
	}

	h1, h2, h3, h4, p1, p2 := pasvOctets(s.conn.LocalAddr(), port)
	return s.writeReply(StatusEnteringPassiveMode, "Entering Passive Mode (%d,%d,%d,%d,%d,%d)", h1, h2, h3, h4, p1, p2)
}

// handleREST implements REST: records an offset to be consumed by the
// next RETR. Only its syntax is checked here (a non-negative decimal);
// whether it lies inside the file is checked at RETR.
func (s *Session) handleREST(arg string) *SessionError {
	if arg == "" {
		return s.writeReply(StatusSyntaxErrorInParameters, "Restart offset required.")
	}
	n, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || n < 0 {
		return s.writeReply(StatusSyntaxErrorInParameters, "Invalid restart offset.")
	}
	s.restOffset = n
	return s.writeReply(StatusFileActionPending, "Restarting at %d. Send RETR.", n)
}

// handleSIZE implements SIZE: requires auth, reports a regular file's
// byte size.
func (s *Session) handleSIZE(arg string) *SessionError {
	_, physical, ok := s.resolve(arg)
	if !ok {
		return s.writeReply(StatusFileUnavailable, "File not found.")
	}

	info, err := os.Stat(physical)
	if err != nil || !info.Mode().IsRegular() {
		return s.writeReply(StatusFileUnavailable, "File not found.")
	}

	return s.writeReply(StatusFileStatus, "%d", info.Size())
}

// handleRETR implements RETR: downloads a file, honoring a pending
// restart offset.
func (s *Session) handleRETR(arg string) *SessionError {
	if !s.user.Permissions.CanRead() {
		return s.writeReply(StatusFileUnavailable, "Permission denied.")
	}

	_, physical, ok := s.resolve(arg)
	if !ok {
		return s.writeReply(StatusFileUnavailable, "File not found.")
	}

	f, err := os.Open(physical)
	if err != nil {
		return s.writeReply(StatusFileUnavailable, "File not found.")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return s.writeReply(StatusFileUnavailable, "File not found.")
	}

	offset := s.restOffset
	if offset > 0 {
		if offset >= info.Size() {
			s.restOffset = 0
			return s.writeReply(StatusFileUnavailable, "Restart offset beyond end of file.")
		}
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return sessionErr(KindFileSystemError, err)
		}
	}

	conn, err := s.data.open()
	if err != nil {
		// rest_offset is not consumed when the data channel fails to open.
		return s.writeReply(StatusCantOpenDataConnection, "Can't open data connection.")
	}
	defer conn.Close()

	if err := s.writeReply(StatusFileStatusOK, "Ready to transfer..."); err != nil {
		return err
	}

	if _, err := io.Copy(conn, f); err != nil {
		return sessionErr(KindDataConnectionFailed, err)
	}
	conn.Close()

	s.restOffset = 0
	s.logger.Info("file retrieved", "session", s.id, "user", s.user.Name, "file", arg)
	return s.writeReply(StatusClosingDataConn, "Done.")
}

// handleSTOR implements STOR: uploads a file, creating parent
// directories as needed. rest_offset is ignored on upload.
func (s *Session) handleSTOR(arg string) *SessionError {
	if !s.user.Permissions.CanWrite() {
		return s.writeReply(StatusFileUnavailable, "Permission denied.")
	}
	if arg == "." || arg == ".." {
		return s.writeReply(StatusFileNameNotAllowed, "Invalid file name.")
	}

	_, physical, ok := s.resolve(arg)
	if !ok {
		return s.writeReply(StatusFileUnavailable, "Invalid path.")
	}

	if err := os.MkdirAll(path.Dir(physical), 0o755); err != nil {
		return sessionErr(KindFileSystemError, err)
	}

	f, err := os.Create(physical)
	if err != nil {
		return s.writeReply(StatusFileUnavailable, "Could not create file.")
	}
	defer f.Close()

	conn, err := s.data.open()
	if err != nil {
		return s.writeReply(StatusCantOpenDataConnection, "Can't open data connection.")
	}
	defer conn.Close()

	if _, err := io.Copy(f, conn); err != nil {
		return sessionErr(KindDataConnectionFailed, err)
	}
	conn.Close()

	s.logger.Info("file stored", "session", s.id, "user", s.user.Name, "file", arg)
	return s.writeReply(StatusClosingDataConn, "Transfer complete.")
}

// handleLIST implements LIST/NLST/MLST/MLSD: opens a data channel and
// streams an ls -l style listing of the resolved cwd.
func (s *Session) handleLIST() *SessionError {
	_, physical, ok := s.resolve("")
	if !ok {
		return s.writeReply(StatusFileUnavailable, "Directory not found.")
	}

	conn, err := s.data.open()
	if err != nil {
		return sessionErr(KindDataConnectionFailed, err)
	}
	defer conn.Close()

	if err := s.writeReply(StatusFileStatusOK, "Listing of directory"); err != nil {
		return err
	}

	entries, err := os.ReadDir(physical)
	if err != nil {
		return sessionErr(KindFileSystemError, err)
	}

	now := time.Now()
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if _, err := conn.Write([]byte(formatEntry(info, now))); err != nil {
			return sessionErr(KindDataConnectionFailed, err)
		}
	}
	conn.Close()

	return s.writeReply(StatusClosingDataConn, "Transfer complete.")
}
