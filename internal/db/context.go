package db

import "context"

type sessionKey struct{}

// ContextWithSession returns a copy of ctx that carries s.
// Repositories pick it up through Engine.Session, so every call made while
// handling one request shares the request's connection and transaction.
func ContextWithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the Session stored by ContextWithSession.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok && s != nil
}
