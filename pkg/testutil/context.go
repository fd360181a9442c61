package testutil

import (
	"net/http"
	"time"

	"contribution-metrics/pkg/platform/middleware/admin"
	"contribution-metrics/pkg/requestcontext"
)

// WithRequestTime pins the request clock so handlers and services see now.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

// WithAdminToken sets the admin token header on req.
func WithAdminToken(req *http.Request, token string) *http.Request {
	req.Header.Set(admin.HeaderName, token)
	return req
}
