package testutil

import (
	"net/http"
	"time"

	id "flock/pkg/domain"
	"flock/pkg/requestcontext"
)

// WithCaller attaches an authenticated caller to the request context, as the
// auth middleware would.
func WithCaller(req *http.Request, caller id.Caller) *http.Request {
	return req.WithContext(requestcontext.WithCaller(req.Context(), caller))
}

// WithTime pins the request-scoped clock.
func WithTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

// WithRequestID sets the request ID the handlers log with.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
