package notes

// Session is what the identity provider currently knows about the user.
// Pending means it has not decided yet; a settled session with a nil Principal
// means nobody is signed in.
type Session struct {
	Principal *Principal
	Pending   bool
}

// Resolved returns a settled session for p (nil for signed out).
func Resolved(p *Principal) Session {
	return Session{Principal: p}
}

// PendingSession returns a session that is still being determined.
func PendingSession() Session {
	return Session{Pending: true}
}

// Ready reports whether queries may be issued for this session.
func (s Session) Ready() bool {
	return !s.Pending && s.Principal != nil && s.Principal.Email != ""
}
