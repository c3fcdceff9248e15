package ctxutil

import (
	"context"

	"visitor-system-backend/internal/apperr"
)

type ctxKey string

const (
	principalKey ctxKey = "principal"
	requestIDKey ctxKey = "request_id"
)

// Principal is the authenticated admin behind a request.
type Principal struct {
	AdminID  int64
	Username string
}

// WithPrincipal stores the authenticated admin in the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromCtx extracts the admin from the context.
// Returns false if the value is missing or has no username.
func PrincipalFromCtx(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	if !ok || p.Username == "" {
		return Principal{}, false
	}
	return p, true
}

// RequireAdmin fails with apperr.ErrUnauthorized unless ctx carries a principal.
func RequireAdmin(ctx context.Context) (Principal, error) {
	p, ok := PrincipalFromCtx(ctx)
	if !ok {
		return Principal{}, apperr.ErrUnauthorized
	}
	return p, nil
}

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromCtx extracts the request ID from the context.
// Returns an empty string if absent.
func RequestIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
