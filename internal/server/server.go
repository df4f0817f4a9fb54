// Package server exposes a persisted coverage report over HTTP.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/unbound-force/apicov/internal/report"
)

// Server serves one report document. Both renderings are produced once
// at construction, so handlers never fail on a bad document.
type Server struct {
	doc    *report.Document
	html   []byte
	json   []byte
	logger *log.Logger
}

// New renders doc and returns a Server for it.
func New(doc *report.Document, logger *log.Logger) (*Server, error) {
	var htmlBuf, jsonBuf bytes.Buffer
	if err := report.WriteHTML(&htmlBuf, doc); err != nil {
		return nil, err
	}
	if err := report.WriteJSON(&jsonBuf, doc); err != nil {
		return nil, err
	}
	return &Server{doc: doc, html: htmlBuf.Bytes(), json: jsonBuf.Bytes(), logger: logger}, nil
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)

	r.Get("/", s.handleHTML)
	r.Get("/report.json", s.handleJSON)
	r.Get("/healthz", s.handleHealth)
	return r
}

func (s *Server) handleHTML(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(s.html)
}

func (s *Server) handleJSON(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(s.json)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, "{\"status\":\"ok\",\"runId\":%q}\n", s.doc.RunID)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		if s.logger != nil {
			s.logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"elapsed", time.Since(start))
		}
	})
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
