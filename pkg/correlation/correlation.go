// Package correlation provides correlation id generation and context
// propagation.
//
// The Global stage assigns one id per request, stores it in the request
// context and the RequestContext, and echoes it in the X-Correlation-ID
// response header:
//
//	id := correlation.New()
//	ctx := correlation.WithValue(r.Context(), id)
//
// Reading it anywhere downstream:
//
//	id := correlation.FromCtx(ctx)
package correlation

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type ctxKey struct{}

// Header is the HTTP header name used to propagate the correlation id.
const Header = "X-Correlation-ID"

// New generates a random (v4) correlation id.
func New() string {
	return uuid.NewString()
}

// WithValue stores id in ctx and returns the new context.
func WithValue(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromCtx extracts the correlation id from ctx.
// Returns an empty string if none is present.
func FromCtx(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(ctxKey{}).(string); ok {
		return id
	}
	return ""
}

// Upstream returns the X-Correlation-ID sent by the caller, if any. It is
// kept for log correlation only; every request still gets its own id.
func Upstream(r *http.Request) string {
	if r == nil {
		return ""
	}
	return r.Header.Get(Header)
}
