package httpserver

import (
	"net/http"
	"time"
)

// New builds the HTTP server for the verification API. Read and idle
// timeouts are sized for artifact-upload requests, which carry document
// photo references and can come from slow mobile clients.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
