// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/maezuru/internal/history"
	"github.com/pdiddy/maezuru/internal/kvstore"
	"github.com/pdiddy/maezuru/internal/scan"
	"github.com/pdiddy/maezuru/pkg/types"
)

// fakeScanner returns a fixed result or error and records its calls.
type fakeScanner struct {
	mu     sync.Mutex
	calls  []types.ScanRequest
	result types.ScanResult
	err    error

	// started and release, when set, make Scan block until released.
	started chan struct{}
	release chan struct{}
}

func (f *fakeScanner) Scan(_ context.Context, req types.ScanRequest) (types.ScanResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.started != nil {
		close(f.started)
		<-f.release
	}
	return f.result, f.err
}

var fixedNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, sc Scanner) (*Server, *history.History) {
	t.Helper()
	log, _ := test.NewNullLogger()
	h, err := history.Open(context.Background(), &kvstore.Memory{}, log, 0)
	require.NoError(t, err)
	s := New(sc, h, log, "test")
	s.now = func() time.Time { return fixedNow }
	return s, h
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	return rec
}

func sampleResult() types.ScanResult {
	return types.ScanResult{
		Summary:       "Report.",
		PersonalData:  &types.PersonalData{FullName: "Ana Silva"},
		FoundProfiles: []types.DiscoveredProfile{{Platform: "Instagram", URL: "https://instagram.com/anasilva", Confidence: types.ConfidenceHigh}},
		Sources:       []types.SourceReference{{Web: &types.WebSource{URI: "https://instagram.com/anasilva"}}},
	}
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t, &fakeScanner{})
	rec := do(t, s, http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","version":"test"}`, rec.Body.String())
}

func TestScanRecordsHistory(t *testing.T) {
	sc := &fakeScanner{result: sampleResult()}
	s, h := newTestServer(t, sc)

	rec := do(t, s, http.MethodPost, "/api/scans", `{"query":"anasilva","type":"USERNAME","deep_scan":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ScanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "Report.", resp.Result.Summary)
	require.NotNil(t, resp.Result.CapturedAt)
	assert.True(t, fixedNow.Equal(*resp.Result.CapturedAt))

	require.Len(t, sc.calls, 1)
	assert.Equal(t, types.ScanRequest{Query: "anasilva", Type: types.SearchUsername, DeepScan: true}, sc.calls[0])

	entries := h.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, resp.ID, entries[0].ID)
	assert.Equal(t, "anasilva", entries[0].Query)
}

func TestScanErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"bad json", `{"query":`, nil, http.StatusBadRequest},
		{"unknown field", `{"query":"x","type":"EMAIL","extra":1}`, nil, http.StatusBadRequest},
		{"invalid request", `{"query":"x","type":"NOPE"}`, fmt.Errorf("%w: type", scan.ErrInvalidRequest), http.StatusBadRequest},
		{"scan failed", `{"query":"x","type":"EMAIL"}`, scan.ErrScanFailed, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, h := newTestServer(t, &fakeScanner{err: tt.err})
			rec := do(t, s, http.MethodPost, "/api/scans", tt.body)

			assert.Equal(t, tt.status, rec.Code)
			var body errorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
			assert.Zero(t, h.Len())
		})
	}
}

func TestScanFailedMessageIsOpaque(t *testing.T) {
	s, _ := newTestServer(t, &fakeScanner{err: scan.ErrScanFailed})
	rec := do(t, s, http.MethodPost, "/api/scans", `{"query":"x","type":"EMAIL"}`)

	assert.JSONEq(t, `{"error":"scan failed: try refining the parameters"}`, rec.Body.String())
}

func TestSecondScanWhileRunningConflicts(t *testing.T) {
	sc := &fakeScanner{
		result:  sampleResult(),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	s, _ := newTestServer(t, sc)
	handler := s.Routes()

	first := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		req := httptest.NewRequest(http.MethodPost, "/api/scans", strings.NewReader(`{"query":"a","type":"EMAIL"}`))
		handler.ServeHTTP(first, req)
	}()
	<-sc.started

	second := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/scans", strings.NewReader(`{"query":"b","type":"EMAIL"}`))
	handler.ServeHTTP(second, req)
	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Contains(t, second.Body.String(), ErrScanInProgress.Error())

	close(sc.release)
	<-done
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Len(t, sc.calls, 1)
}

// countingBackend stands in for the AI backend behind a real scan.Scanner.
type countingBackend struct {
	mu    sync.Mutex
	calls int
}

func (b *countingBackend) Generate(_ context.Context, _ scan.Prompt) (scan.Response, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	return scan.Response{
		Text:    "Found one profile.",
		Sources: []types.SourceReference{{Web: &types.WebSource{URI: "https://instagram.com/anasilva", Title: "Ana Silva"}}},
	}, nil
}

func (b *countingBackend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func attachmentBody(t *testing.T, size int) string {
	t.Helper()
	data := base64.StdEncoding.EncodeToString(make([]byte, size))
	body, err := json.Marshal(map[string]any{
		"query": "",
		"type":  string(types.SearchMultimedia),
		"attachment": map[string]string{
			"mime_type": "image/png",
			"data":      data,
		},
	})
	require.NoError(t, err)
	return string(body)
}

func TestScanRejectsOversizedAttachment(t *testing.T) {
	backend := &countingBackend{}
	s, h := newTestServer(t, scan.NewScanner(backend))

	rec := do(t, s, http.MethodPost, "/api/scans", attachmentBody(t, scan.MaxAttachmentSize+1))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), scan.ErrAttachmentTooLarge.Error())
	assert.Zero(t, backend.Calls())
	assert.Zero(t, h.Len())
}

func TestScanAttachmentOnlyRecordsDefaultQuery(t *testing.T) {
	backend := &countingBackend{}
	s, h := newTestServer(t, scan.NewScanner(backend))

	rec := do(t, s, http.MethodPost, "/api/scans", attachmentBody(t, 16))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, backend.Calls())

	entries := h.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, scan.DefaultAttachmentQuery, entries[0].Query)
	assert.Equal(t, types.SearchMultimedia, entries[0].Type)
}

func TestScanBlankQueryRejected(t *testing.T) {
	backend := &countingBackend{}
	s, h := newTestServer(t, scan.NewScanner(backend))

	rec := do(t, s, http.MethodPost, "/api/scans", `{"query":"   \t ","type":"EMAIL"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, backend.Calls())
	assert.Zero(t, h.Len())
}

func TestScanResponseCarriesPivot(t *testing.T) {
	s, _ := newTestServer(t, scan.NewScanner(&countingBackend{}))

	rec := do(t, s, http.MethodPost, "/api/scans", `{"query":"  anasilva ","type":"USERNAME"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ScanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Result.FoundProfiles, 1)
	assert.Equal(t, "anasilva", resp.Result.FoundProfiles[0].Pivot)
	assert.Contains(t, rec.Body.String(), `"pivot":"anasilva"`)
}

func TestHistoryRoutes(t *testing.T) {
	s, h := newTestServer(t, &fakeScanner{})
	entry, err := h.Append(context.Background(), types.ScanRequest{Query: "anasilva", Type: types.SearchUsername}, sampleResult())
	require.NoError(t, err)

	rec := do(t, s, http.MethodGet, "/api/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []types.HistoryEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, entry.ID, entries[0].ID)

	rec = do(t, s, http.MethodGet, "/api/history/"+entry.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"summary":"Report."`)

	rec = do(t, s, http.MethodGet, "/api/history/"+entry.ID+"/dossier", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="DOSSIER_Ana_Silva.html"`, rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Body.String(), "<title>DOSSIER - Ana Silva</title>")

	rec = do(t, s, http.MethodGet, "/api/history/"+entry.ID+"/graph", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "digraph maezuru")
	assert.Contains(t, rec.Body.String(), `"instagram.com"`)
	assert.Equal(t, 2, strings.Count(rec.Body.String(), "->"))

	rec = do(t, s, http.MethodGet, "/api/history/"+entry.ID+"/graph?format=json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"label":"instagram.com"`)

	rec = do(t, s, http.MethodDelete, "/api/history", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, h.Len())
}

func TestHistoryUnknownID(t *testing.T) {
	s, _ := newTestServer(t, &fakeScanner{})
	for _, path := range []string{"/api/history/nope", "/api/history/nope/dossier", "/api/history/nope/graph"} {
		rec := do(t, s, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestEmptyHistoryListsArray(t *testing.T) {
	s, _ := newTestServer(t, &fakeScanner{})
	rec := do(t, s, http.MethodGet, "/api/history", "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}
