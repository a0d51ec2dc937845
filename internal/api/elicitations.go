package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/oncopath/meningioma-decision-flow-backend/internal/store"
)

// elicitationRow is the wire shape of one audit entry. Raw model text is
// deliberately omitted from the listing; it stays in the database for
// operators who need it.
type elicitationRow struct {
	ID         string          `json:"id"`
	Op         string          `json:"op"`
	Mode       string          `json:"mode,omitempty"`
	CaseCount  int             `json:"caseCount"`
	Model      string          `json:"model"`
	Status     string          `json:"status"`
	Record     json.RawMessage `json:"record,omitempty"`
	Error      string          `json:"error,omitempty"`
	DurationMs int64           `json:"durationMs"`
	CreatedAt  time.Time       `json:"createdAt"`
}

type elicitationsResponse struct {
	Elicitations []elicitationRow `json:"elicitations"`
}

// handleListElicitations returns recent audit rows, newest first. With the
// store disabled the listing is empty rather than an error.
func (s *Server) handleListElicitations(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 || n > 200 {
			respondErr(w, http.StatusBadRequest, "bad_request", "limit must be an integer in [1,200]")
			return
		}
		limit = n
	}

	rows, err := s.audit.RecentElicitations(r.Context(), limit)
	if err != nil {
		s.respondInternalErr(w, r, err)
		return
	}

	out := elicitationsResponse{Elicitations: make([]elicitationRow, 0, len(rows))}
	for _, e := range rows {
		out.Elicitations = append(out.Elicitations, toElicitationRow(e))
	}

	respond(w, http.StatusOK, out)
}

func toElicitationRow(e store.Elicitation) elicitationRow {
	row := elicitationRow{
		ID:         e.ID.String(),
		Op:         e.Op,
		Mode:       e.Mode,
		CaseCount:  e.CaseCount,
		Model:      e.Model,
		Status:     string(e.Status),
		DurationMs: e.DurationMs,
		CreatedAt:  e.CreatedAt,
	}
	if e.Record.Valid {
		row.Record = json.RawMessage(e.Record.RawMessage)
	}
	if e.ErrorMessage.Valid {
		row.Error = e.ErrorMessage.String
	}
	return row
}
