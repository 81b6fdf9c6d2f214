// Package alicetest provides an in-memory dialogs API for tests.
package alicetest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alexjbarnes/asset-sync/internal/models"
)

// Server serves the images, sounds and status endpoints for one skill.
type Server struct {
	*httptest.Server

	token   string
	skillID string

	mu      sync.Mutex
	seq     int
	items   map[string]map[string]models.RemoteItem
	uploads int
	deletes int
	quota   int64
}

// NewServer starts a Server. Requests must carry "OAuth <token>".
func NewServer(token, skillID string) *Server {
	s := &Server{
		token:   token,
		skillID: skillID,
		items: map[string]map[string]models.RemoteItem{
			"images": {},
			"sounds": {},
		},
		quota: 100 << 20,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /skills/{skill}/{kind}", s.handleList)
	mux.HandleFunc("POST /skills/{skill}/{kind}", s.handleUpload)
	mux.HandleFunc("GET /skills/{skill}/{kind}/{id}", s.handleGet)
	mux.HandleFunc("DELETE /skills/{skill}/{kind}/{id}", s.handleDelete)

	s.Server = httptest.NewServer(s.authorize(mux))

	return s
}

// Add stores an item directly, as if uploaded earlier.
func (s *Server) Add(kind string, item models.RemoteItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[kind][item.ID] = item
}

// IDs returns the IDs stored in kind, sorted.
func (s *Server) IDs(kind string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.items[kind]))
	for id := range s.items[kind] {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

// Uploads returns the number of successful uploads.
func (s *Server) Uploads() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.uploads
}

// Deletes returns the number of successful deletes.
func (s *Server) Deletes() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deletes
}

func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "OAuth "+s.token {
			writeJSON(w, http.StatusForbidden, map[string]string{"message": "Invalid OAuth token"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// collection validates the path and returns the kind's items. The caller
// holds s.mu.
func (s *Server) collection(w http.ResponseWriter, r *http.Request) (string, map[string]models.RemoteItem, bool) {
	kind := r.PathValue("kind")

	items, ok := s.items[kind]
	if !ok || r.PathValue("skill") != s.skillID {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Resource not found"})
		return "", nil, false
	}

	return kind, items, true
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := make(map[string]any, len(s.items))
	for kind, items := range s.items {
		var used int64
		for _, item := range items {
			used += item.Size
		}

		status[kind] = map[string]models.Quota{"quota": {Total: s.quota, Used: used}}
	}

	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kind, items, ok := s.collection(w, r)
	if !ok {
		return
	}

	list := make([]models.RemoteItem, 0, len(items))
	for _, item := range items {
		list = append(list, item)
	}

	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })

	writeJSON(w, http.StatusOK, map[string]any{kind: list})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kind, items, ok := s.collection(w, r)
	if !ok {
		return
	}

	item, found := items[r.PathValue("id")]
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Resource not found"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{strings.TrimSuffix(kind, "s"): item})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "file is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kind, items, ok := s.collection(w, r)
	if !ok {
		return
	}

	s.seq++
	s.uploads++

	item := models.RemoteItem{
		ID:           fmt.Sprintf("%s-%d", strings.TrimSuffix(kind, "s"), s.seq),
		Size:         int64(len(data)),
		CreatedAt:    time.Now().UTC(),
		OriginalName: header.Filename,
		IsProcessed:  true,
	}
	items[item.ID] = item

	writeJSON(w, http.StatusCreated, map[string]any{strings.TrimSuffix(kind, "s"): item})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, items, ok := s.collection(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if _, found := items[id]; !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Resource not found"})
		return
	}

	delete(items, id)
	s.deletes++

	writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
