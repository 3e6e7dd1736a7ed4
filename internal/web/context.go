package web

import (
	"context"

	"github.com/serviapp/serviapp/internal/core"
)

type contextKey int

const (
	sessionKey contextKey = iota
	tokenKey
)

// withSession stores the resolved session and its token on the context.
func withSession(ctx context.Context, sess core.SessionContext, token string) context.Context {
	ctx = context.WithValue(ctx, sessionKey, sess)
	return context.WithValue(ctx, tokenKey, token)
}

// sessionFrom returns the resolved session, or the anonymous session when
// the request carried no valid token.
func sessionFrom(ctx context.Context) core.SessionContext {
	if sess, ok := ctx.Value(sessionKey).(core.SessionContext); ok {
		return sess
	}
	return core.Anonymous()
}

// tokenFrom returns the bearer token of the request, or "".
func tokenFrom(ctx context.Context) string {
	if tok, ok := ctx.Value(tokenKey).(string); ok {
		return tok
	}
	return ""
}
