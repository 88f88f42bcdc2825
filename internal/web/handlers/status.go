package handlers

import (
	"net/http"

	"github.com/saltyorg/taskd/internal/database"
	sessionmw "github.com/saltyorg/taskd/internal/web/middleware"
)

// Status is the liveness endpoint
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Version reports build information
func (h *Handlers) Version(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, h.versionInfo)
}

// DBCheck runs a trivial query through the request session
func (h *Handlers) DBCheck(w http.ResponseWriter, r *http.Request) error {
	results, err := database.Check(r.Context(), sessionmw.Session(r.Context()))
	if err != nil {
		return err
	}
	h.jsonResponse(w, http.StatusOK, map[string][]int64{"results": results})
	return nil
}
