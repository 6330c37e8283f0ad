// Package httpapi exposes the service over HTTP with JSON bodies.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/unkn0wn-root/resultdesk/internal/results"
	"github.com/unkn0wn-root/resultdesk/internal/storage"
	"github.com/unkn0wn-root/resultdesk/internal/students"
)

const banner = "Student Results API"

// Error bodies are pinned: callers match on these strings.
const (
	msgResultNotFound     = "Result not found"
	msgInvalidStudentData = "Invalid student data"
	msgInvalidResultData  = "Invalid result data"
	msgInternalError      = "Internal server error"
)

// Pinger probes a downstream dependency for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	students *students.Directory
	results  *results.Service
	store    Pinger
	cache    Pinger
	log      *zap.Logger
}

// NewHandler creates a new API handler. store and cache are only probed, not
// queried; all data access goes through the services.
func NewHandler(
	students *students.Directory,
	results *results.Service,
	store Pinger,
	cache Pinger,
	log *zap.Logger,
) *Handler {
	return &Handler{
		students: students,
		results:  results,
		store:    store,
		cache:    cache,
		log:      log,
	}
}

/* ---------------- GET / ---------------- */

func (h *Handler) Banner(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(banner))
}

/* ---------------- GET /health ---------------- */

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ts := time.Now().UTC().Format(time.RFC3339)

	for name, dep := range map[string]Pinger{"mongodb": h.store, "redis": h.cache} {
		if err := dep.Ping(r.Context()); err != nil {
			h.log.Warn("health probe failed", zap.String("service", name), zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status":    "unhealthy",
				"timestamp": ts,
				"error":     name + " unreachable",
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": ts,
		"services": map[string]string{
			"mongodb": "connected",
			"redis":   "connected",
		},
	})
}

/* ---------------- GET /getStudents ---------------- */

func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	list, err := h.students.ListAll(r.Context())
	if err != nil {
		h.log.Error("list students failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	if list == nil {
		list = []storage.Student{}
	}
	writeJSON(w, http.StatusOK, list)
}

/* ---------------- POST /addStudent ---------------- */

func (h *Handler) AddStudent(w http.ResponseWriter, r *http.Request) {
	var s storage.Student
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidStudentData)
		return
	}

	storeID, err := h.students.Add(r.Context(), s)
	if errors.Is(err, students.ErrInvalidStudent) {
		writeError(w, http.StatusBadRequest, msgInvalidStudentData)
		return
	}
	if err != nil {
		h.log.Error("add student failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"message":    "Student added successfully",
		"id":         s.ID,
		"insertedId": storeID,
	})
}

/* ---------------- GET /result/:id ---------------- */

func (h *Handler) GetResult(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/result/")
	if id == "" {
		writeError(w, http.StatusNotFound, msgResultNotFound)
		return
	}

	doc, err := h.results.Lookup(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, msgResultNotFound)
		return
	}
	if err != nil {
		h.log.Error("result lookup failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

/* ---------------- POST /addResult ---------------- */

func (h *Handler) AddResult(w http.ResponseWriter, r *http.Request) {
	var doc storage.Result
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidResultData)
		return
	}

	ins, err := h.results.Ingest(r.Context(), doc)
	if errors.Is(err, results.ErrInvalidResult) {
		writeError(w, http.StatusBadRequest, msgInvalidResultData)
		return
	}
	if err != nil {
		h.log.Error("add result failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"message":    "Result added successfully",
		"id":         ins.ID,
		"insertedId": ins.StoreID,
	})
}
