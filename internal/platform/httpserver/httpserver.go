// Package httpserver builds the process's *http.Server.
package httpserver

import (
	"net/http"
	"time"

	"flock/internal/platform/config"
)

// New returns a server for cfg. The write timeout leaves headroom over the
// per-request timeout so the timeout middleware can still write its 504.
func New(cfg config.Server, handler http.Handler) *http.Server {
	writeTimeout := 30 * time.Second
	if cfg.RequestTimeout > 0 {
		writeTimeout = cfg.RequestTimeout + 5*time.Second
	}
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}
}
