// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the scan pipeline and the local history over a
// small JSON API. At most one scan runs at a time; a second request while
// one is in flight is rejected with 409.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/pdiddy/maezuru/internal/dossier"
	"github.com/pdiddy/maezuru/internal/graph"
	"github.com/pdiddy/maezuru/internal/history"
	"github.com/pdiddy/maezuru/internal/scan"
	"github.com/pdiddy/maezuru/pkg/types"
)

// ErrScanInProgress is reported when a scan request arrives while another
// scan is running.
var ErrScanInProgress = errors.New("a scan is already in progress")

// maxBodyBytes bounds a scan request body. Attachments travel base64
// encoded, so the limit sits above scan.MaxAttachmentSize.
const maxBodyBytes = 8 << 20

// Scanner runs one scan. *scan.Scanner satisfies it.
type Scanner interface {
	Scan(ctx context.Context, req types.ScanRequest) (types.ScanResult, error)
}

// Server holds the collaborators behind the HTTP routes.
type Server struct {
	scanner Scanner
	history *history.History
	log     logrus.FieldLogger
	version string

	// scanning admits one scan at a time.
	scanning sync.Mutex

	now func() time.Time
}

// New returns a Server. version is reported by /healthz.
func New(scanner Scanner, h *history.History, log logrus.FieldLogger, version string) *Server {
	return &Server{
		scanner: scanner,
		history: h,
		log:     log,
		version: version,
		now:     time.Now,
	}
}

// ScanResponse is the body returned by POST /api/scans.
type ScanResponse struct {
	// ID is the history entry ID, empty when the scan was not recorded.
	ID     string           `json:"id,omitempty"`
	Result types.ScanResult `json:"result"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Routes returns the router with all API routes mounted.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/scans", s.handleScan)

		r.Route("/history", func(r chi.Router) {
			r.Get("/", s.handleHistoryList)
			r.Delete("/", s.handleHistoryClear)
			r.Get("/{id}", s.handleHistoryGet)
			r.Get("/{id}/dossier", s.handleDossier)
			r.Get("/{id}/graph", s.handleGraph)
		})
	})

	return r
}

// ListenAndServe serves Routes on addr until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("starting server")
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		s.log.Info("shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			srv.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start),
			"request_id": chimiddleware.GetReqID(r.Context()),
		}).Debug("request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.version})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req types.ScanRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decoding scan request: %w", err))
		return
	}
	req = scan.PrepareRequest(req)

	if !s.scanning.TryLock() {
		writeError(w, http.StatusConflict, ErrScanInProgress)
		return
	}
	defer s.scanning.Unlock()

	result, err := s.scanner.Scan(r.Context(), req)
	switch {
	case errors.Is(err, scan.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err)
		return
	case errors.Is(err, scan.ErrAttachmentTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	case errors.Is(err, scan.ErrScanFailed):
		writeError(w, http.StatusBadGateway, err)
		return
	case err != nil:
		s.log.WithError(err).Error("scan")
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	result = result.WithCapture(s.now())
	resp := ScanResponse{Result: result}
	if s.history != nil {
		// The scan already succeeded; a client hanging up must not lose it.
		entry, err := s.history.Append(context.WithoutCancel(r.Context()), req, result)
		if err != nil {
			s.log.WithError(err).Warn("failed to record scan in history")
		} else {
			resp.ID = entry.ID
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistoryList(w http.ResponseWriter, _ *http.Request) {
	entries := []types.HistoryEntry{}
	if s.history != nil {
		entries = s.history.Entries()
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleHistoryClear(w http.ResponseWriter, r *http.Request) {
	if s.history != nil {
		if err := s.history.Clear(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHistoryGet(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleDossier(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", dossier.FileName(entry.Result)))
	if err := dossier.Render(w, entry.Result); err != nil {
		s.log.WithError(err).Error("rendering dossier")
	}
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}
	g := graph.Build(entry.Result)
	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, http.StatusOK, g)
		return
	}
	w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
	if err := graph.WriteDOT(w, g); err != nil {
		s.log.WithError(err).Error("writing graph")
	}
}

// lookup resolves the {id} URL parameter, writing 404 when it is unknown.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (types.HistoryEntry, bool) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, history.ErrNotFound)
		return types.HistoryEntry{}, false
	}
	entry, err := s.history.Get(chi.URLParam(r, "id"))
	if errors.Is(err, history.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return types.HistoryEntry{}, false
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return types.HistoryEntry{}, false
	}
	return entry, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{Error: err.Error()})
}
