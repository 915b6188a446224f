package ftp

// handleFeat implements FEAT: a fixed multi-line capability block whose
// content lines carry no leading status code. REST is intentionally not
// advertised here even though it is implemented; this mirrors the known
// behavior of earlier servers this one descends from.
func (s *Session) handleFeat() *SessionError {
	lines := []string{
		"UTF8",
		"MLST type*;size*;modify*;perm*;",
		"PASV",
		"PORT",
	}
	if err := s.reply.multiline(StatusSystemStatus, "Features", lines, StatusSystemStatus, "End"); err != nil {
		return sessionErr(KindWriteError, err)
	}
	return nil
}

// handleOpts implements OPTS: only "UTF8" is a recognized option.
func (s *Session) handleOpts(arg string) *SessionError {
	if arg == "UTF8" {
		return s.writeReply(StatusCommandOK, "OK")
	}
	return s.writeReply(StatusSyntaxErrorInParameters, "Option not supported.")
}
