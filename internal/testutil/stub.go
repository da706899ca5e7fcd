// Package testutil provides a stub Flagship API for tests: canned tier
// payloads behind the real routes, request counting for cache-first
// assertions, and a sink for posted event batches.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// APIStub is an httptest server speaking the Flagship API surface.
type APIStub struct {
	Server *httptest.Server

	mu           sync.Mutex
	flagsJSON    string
	expJSON      string
	configJSON   map[string]string // version -> payload
	failStatus   int               // non-zero: every request fails with this status
	getCounts    map[string]int    // path -> GET count
	eventBatches []json.RawMessage
}

// NewAPIStub starts a stub server. The caller owns cleanup via t.Cleanup.
func NewAPIStub(t *testing.T) *APIStub {
	t.Helper()

	stub := &APIStub{
		flagsJSON:  `{"flags":[]}`,
		expJSON:    `{"experiments":[]}`,
		configJSON: map[string]string{},
		getCounts:  map[string]int{},
	}

	r := chi.NewRouter()
	r.Get("/v1/flags", stub.handleGet(func() string { return stub.flagsJSON }))
	r.Get("/v1/experiments", stub.handleGet(func() string { return stub.expJSON }))
	r.Get("/v1/configs", stub.handleConfig)
	r.Post("/v1/events/batch", stub.handleEvents)

	stub.Server = httptest.NewServer(r)
	t.Cleanup(stub.Server.Close)
	return stub
}

// SetFlags replaces the flags payload served by the stub.
func (s *APIStub) SetFlags(payload string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flagsJSON = payload
}

// SetExperiments replaces the experiments payload.
func (s *APIStub) SetExperiments(payload string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expJSON = payload
}

// SetConfig sets the config payload for one version channel.
func (s *APIStub) SetConfig(version, payload string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configJSON[version] = payload
}

// FailWith makes every subsequent request fail with the given status.
// Zero restores normal behavior.
func (s *APIStub) FailWith(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failStatus = status
}

// GetCount reports how many GETs hit the given route path.
func (s *APIStub) GetCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getCounts[path]
}

// EventBatches returns the raw bodies posted to the events route.
func (s *APIStub) EventBatches() []json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]json.RawMessage(nil), s.eventBatches...)
}

func (s *APIStub) handleGet(payload func() string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.getCounts[r.URL.Path]++
		status := s.failStatus
		body := payload()
		s.mu.Unlock()

		if status != 0 {
			http.Error(w, "stub failure", status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func (s *APIStub) handleConfig(w http.ResponseWriter, r *http.Request) {
	version := r.URL.Query().Get("version")

	s.mu.Lock()
	s.getCounts[r.URL.Path]++
	status := s.failStatus
	body, ok := s.configJSON[version]
	s.mu.Unlock()

	if status != 0 {
		http.Error(w, "stub failure", status)
		return
	}
	if !ok {
		http.Error(w, "unknown config version", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func (s *APIStub) handleEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	status := s.failStatus
	if status == 0 {
		s.eventBatches = append(s.eventBatches, json.RawMessage(body))
	}
	s.mu.Unlock()

	if status != 0 {
		http.Error(w, "stub failure", status)
		return
	}
	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write([]byte(`{"accepted":true}`))
}
