package api

import (
	"errors"
	"net/http"
)

// SessionHandler starts, stops and describes recognition sessions.
type SessionHandler struct {
	deps Dependencies
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(deps Dependencies) *SessionHandler {
	return &SessionHandler{deps: deps}
}

// HandleStart handles POST /session/start.
func (h *SessionHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	info, err := h.deps.StartSession(r.Context())
	if err != nil {
		writeServiceError(w, "api.session_start", err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// HandleStop handles POST /session/stop. The response carries the final
// outcome counts once queued sightings have drained.
func (h *SessionHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	info, err := h.deps.StopSession(r.Context())
	if err != nil && info.ID == "" {
		writeServiceError(w, "api.session_stop", err)
		return
	}
	// a drain timeout still stops the session
	writeJSON(w, http.StatusOK, info)
}

// HandleGet handles GET /session.
func (h *SessionHandler) HandleGet(w http.ResponseWriter, _ *http.Request) {
	info, ok := h.deps.Session()
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", errors.New("no session has run yet"))
		return
	}
	writeJSON(w, http.StatusOK, info)
}
