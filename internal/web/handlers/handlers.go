package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/saltyorg/taskd/internal/database"
	"github.com/saltyorg/taskd/internal/tasks"
	sessionmw "github.com/saltyorg/taskd/internal/web/middleware"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

// VersionInfo holds application version information
type VersionInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Handlers contains all HTTP handlers
type Handlers struct {
	versionInfo VersionInfo
}

// New creates a new Handlers instance
func New(version VersionInfo) *Handlers {
	return &Handlers{versionInfo: version}
}

// service builds the task service over the request's session
func (h *Handlers) service(r *http.Request) *tasks.Service {
	return tasks.NewService(database.NewTaskRepository(sessionmw.Session(r.Context())))
}

// APIFunc is a handler that reports failures by returning an error
type APIFunc func(w http.ResponseWriter, r *http.Request) error

// httpError is an error with a client-facing status and detail message
type httpError struct {
	status int
	detail string
}

func (e *httpError) Error() string {
	return e.detail
}

func notFound(detail string) error {
	return &httpError{status: http.StatusNotFound, detail: detail}
}

func unprocessable(detail string) error {
	return &httpError{status: http.StatusUnprocessableEntity, detail: detail}
}

// API adapts an APIFunc to http.HandlerFunc. Client errors become their
// status with a detail body; any other error is logged and becomes a 500,
// which makes the session middleware roll back.
func (h *Handlers) API(fn APIFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}

		var hErr *httpError
		if errors.As(err, &hErr) {
			h.jsonError(w, hErr.detail, hErr.status)
			return
		}

		log.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("Request failed")
		h.jsonError(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// jsonError sends a JSON error response
func (h *Handlers) jsonError(w http.ResponseWriter, detail string, status int) {
	h.jsonResponse(w, status, map[string]string{"detail": detail})
}

// jsonResponse encodes v as the response body
func (h *Handlers) jsonResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// decodeJSON reads a JSON request body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return unprocessable("invalid JSON body")
	}
	return nil
}

// taskID parses the {id} URL parameter
func taskID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, unprocessable("task id must be an integer")
	}
	return id, nil
}

// positiveQueryInt reads an optional positive integer query parameter
func positiveQueryInt(r *http.Request, name string, defaultVal int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultVal, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, unprocessable(name + " must be a positive integer")
	}
	return v, nil
}
