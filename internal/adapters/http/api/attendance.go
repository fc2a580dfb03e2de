package api

import (
	"net/http"

	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/types"
)

// AttendanceHandler serves ledger contents to the presentation layer.
type AttendanceHandler struct {
	deps Dependencies
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(deps Dependencies) *AttendanceHandler {
	return &AttendanceHandler{deps: deps}
}

type attendanceResponse struct {
	Date    string                  `json:"date"`
	Count   int                     `json:"count"`
	Records []types.AttendanceEntry `json:"records"`
}

// HandleGet handles GET /attendance?date=YYYY-MM-DD; the date defaults to today.
func (h *AttendanceHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_attendance"
	date := h.deps.Today()
	if q := r.URL.Query().Get("date"); q != "" {
		d, err := model.ParseDate(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		date = d
	}
	rows, err := h.deps.Attendance(r.Context(), date)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, attendanceResponse{Date: date.String(), Count: len(rows), Records: rows})
}

type datesResponse struct {
	Dates []string `json:"dates"`
}

// HandleDates handles GET /attendance/dates, listing every date with a ledger.
func (h *AttendanceHandler) HandleDates(w http.ResponseWriter, r *http.Request) {
	dates, err := h.deps.Dates(r.Context())
	if err != nil {
		writeServiceError(w, "api.list_dates", err)
		return
	}
	resp := datesResponse{Dates: make([]string, 0, len(dates))}
	for _, d := range dates {
		resp.Dates = append(resp.Dates, d.String())
	}
	writeJSON(w, http.StatusOK, resp)
}
