package server

import (
	"net/http"

	"github.com/Sternrassler/data-service/pkg/dataset"
	"github.com/Sternrassler/data-service/pkg/metrics"
)

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /data", s.handleGetData)
	mux.HandleFunc("PUT /data", s.handlePutData)

	for _, c := range dataset.Collections() {
		mux.HandleFunc("GET "+c.Path(), s.handleCollection(c))
		mux.HandleFunc("GET "+c.Path()+"/{id}", s.handleEntry(c))
		// Trailing slash variants
		mux.HandleFunc("GET "+c.Path()+"/{$}", s.handleCollection(c))
		mux.HandleFunc("GET "+c.Path()+"/{id}/{$}", s.handleEntry(c))
	}

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", metrics.Handler())

	return mux
}
