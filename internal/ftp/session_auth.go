package ftp

// handleUser implements USER: records the candidate username and asks
// for a password, or rejects an unknown username outright.
func (s *Session) handleUser(arg string) *SessionError {
	if s.authorized {
		return s.writeReply(StatusUserLoggedIn, "Already logged in.")
	}
	if arg == "" {
		return s.writeReply(StatusSyntaxErrorInParameters, "Username required.")
	}
	if _, ok := s.cfg.Lookup(arg); !ok {
		return s.writeReply(StatusNotLoggedIn, "Authorization failed.")
	}

	s.username = arg
	return s.writeReply(StatusNeedPassword, "Password is required")
}

// handlePass implements PASS: validates the password against the
// username recorded by a prior USER and flips the session authorized.
func (s *Session) handlePass(arg string) *SessionError {
	if s.username == "" {
		return s.writeReply(StatusSyntaxErrorInParameters, "Login with USER first.")
	}
	if arg == "" {
		return s.writeReply(StatusSyntaxErrorInParameters, "Password required.")
	}

	user, ok := s.cfg.Authenticate(s.username, arg)
	if !ok {
		s.username = ""
		return s.writeReply(StatusNotLoggedIn, "Authorization failed.")
	}

	s.user = user
	s.authorized = true
	s.logger.Info("user authorized", "session", s.id, "user", user.Name)
	return s.writeReply(StatusUserLoggedIn, "Login success.")
}
