// Package requestcontext carries request-scoped values from middleware to
// services without an import of net/http.
package requestcontext

import (
	"context"
	"time"

	id "flock/pkg/domain"
)

type contextKey int

const (
	callerKey contextKey = iota
	clientIPKey
	userAgentKey
	requestIDKey
	requestTimeKey
)

// Caller returns the authenticated caller, or the zero Caller for anonymous
// requests.
func Caller(ctx context.Context) id.Caller {
	c, _ := ctx.Value(callerKey).(id.Caller)
	return c
}

func WithCaller(ctx context.Context, caller id.Caller) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}

func UserAgent(ctx context.Context) string {
	ua, _ := ctx.Value(userAgentKey).(string)
	return ua
}

// WithClientMetadata records where the request came from.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey, clientIP)
	return context.WithValue(ctx, userAgentKey, userAgent)
}

func RequestID(ctx context.Context) string {
	reqID, _ := ctx.Value(requestIDKey).(string)
	return reqID
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// Now returns the time pinned for this request, or the wall clock when none
// was pinned (workers, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime pins the time every Now call on ctx returns.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey, t)
}
