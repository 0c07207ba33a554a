package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// indexServer serves the JSON API of a package index from memory.
type indexServer struct {
	mu       sync.Mutex
	releases map[string][]string
	requests int
}

// startIndex serves releases per package until the test ends.
func startIndex(t *testing.T, releases map[string][]string) (*indexServer, string) {
	t.Helper()

	s := &indexServer{releases: releases}
	srv := httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(srv.Close)

	return s, srv.URL
}

func (s *indexServer) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests++

	name, ok := strings.CutSuffix(strings.Trim(r.URL.Path, "/"), "/json")
	versions, known := s.releases[name]

	if !ok || !known {
		http.NotFound(w, r)
		return
	}

	doc := map[string]map[string][]any{"releases": {}}
	for _, v := range versions {
		doc["releases"][v] = []any{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(doc)
}

// publish makes v visible for name.
func (s *indexServer) publish(name, v string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.releases[name] = append(s.releases[name], v)
}
