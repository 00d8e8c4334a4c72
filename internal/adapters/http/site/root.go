// Package site serves the embedded browser client of the essay API.
package site

import (
	"context"
	"net/http"
)

// Register attaches the client routes to mux. The client is served at / and
// talks to the JSON API on the same origin.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("GET /", http.FileServer(FS()))
}
