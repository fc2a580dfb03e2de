package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/rollcall/internal/domain/model"
)

// EventsHandler handles sightings posted by the recognizer.
type EventsHandler struct {
	deps Dependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps Dependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// eventRequest is the JSON shape of one identity match. Recognizers that
// only know the enrollment label ("<name>_<id>") may send it instead of
// subject_id and display_name.
type eventRequest struct {
	SubjectID   string  `json:"subject_id"`
	DisplayName string  `json:"display_name"`
	Label       string  `json:"label"`
	TS          string  `json:"ts"`
	Confidence  float64 `json:"confidence"`
}

func (e eventRequest) toEvent() (model.IdentityEvent, error) {
	if strings.TrimSpace(e.Label) != "" {
		name, id := model.ParseEnrollmentName(e.Label)
		if strings.TrimSpace(e.SubjectID) == "" {
			e.SubjectID = id
		}
		if e.DisplayName == "" {
			e.DisplayName = name
		}
	}
	if strings.TrimSpace(e.SubjectID) == "" {
		return model.IdentityEvent{}, errors.New("missing subject_id")
	}
	ev := model.IdentityEvent{
		SubjectID:   e.SubjectID,
		DisplayName: e.DisplayName,
		Confidence:  e.Confidence,
	}
	if ev.DisplayName == "" {
		ev.DisplayName = ev.SubjectID
	}
	if strings.TrimSpace(e.TS) != "" {
		ts, err := time.Parse(time.RFC3339, e.TS)
		if err != nil {
			return model.IdentityEvent{}, errors.New("invalid ts; must be RFC3339")
		}
		ev.Timestamp = ts
	}
	return ev, nil
}

type ackResponse struct {
	Status   string `json:"status"`
	Accepted int    `json:"accepted"`
}

// HandlePostEvent handles POST /events.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	var req eventRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	ev, err := req.toEvent()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.deps.Submit(r.Context(), ev); err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Accepted: 1})
}

// HandlePostBatch handles POST /events/batch: the detections of one frame.
// The whole batch is validated before anything is queued.
func (h *EventsHandler) HandlePostBatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_batch"
	var reqs []eventRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&reqs); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if len(reqs) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("empty batch")))
		return
	}
	evs := make([]model.IdentityEvent, len(reqs))
	for i, req := range reqs {
		ev, err := req.toEvent()
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		evs[i] = ev
	}
	n, err := h.deps.SubmitBatch(r.Context(), evs)
	if err != nil {
		if n > 0 {
			w.Header().Set("X-Accepted-Count", strconv.Itoa(n))
		}
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Accepted: n})
}
