package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oncopath/meningioma-decision-flow-backend/internal/cases"
	"github.com/oncopath/meningioma-decision-flow-backend/internal/diagram"
	"github.com/oncopath/meningioma-decision-flow-backend/internal/elicit"
	"github.com/oncopath/meningioma-decision-flow-backend/internal/store"
	"github.com/sqlc-dev/pqtype"
)

// ─── POST /api/treatment ─────────────────────────────────────────────────────

// treatmentRequest is the inbound body: the selected case records (sent in
// full, not as indices) and the treatment style whose narratives to use.
type treatmentRequest struct {
	Cases         []cases.CaseRecord `json:"cases"`
	TreatmentType string             `json:"treatmentType"`
}

// handleTreatment runs one elicitation and returns the bare probability
// record on success. A single attempt is made; on failure the error envelope
// is returned with status 500 and the caller keeps its previous diagram state.
func (s *Server) handleTreatment(w http.ResponseWriter, r *http.Request) {
	var req treatmentRequest
	if !decode(w, r, &req) {
		return
	}

	mode, ok := elicit.ParseMode(req.TreatmentType)
	if !ok {
		respondErr(w, http.StatusBadRequest, "bad_request",
			`treatmentType must be "aggressive" or "conservative"`)
		return
	}

	rec, err := s.elicitOnce(r, req.Cases, mode)
	if err != nil {
		s.respondElicitErr(w, r, err)
		return
	}

	respond(w, http.StatusOK, rec)
}

// elicitOnce selects the per-style notes, runs one elicitation with the
// configured deadline, and writes the audit row.
func (s *Server) elicitOnce(r *http.Request, records []cases.CaseRecord, mode elicit.Mode) (*elicit.ProbabilityRecord, error) {
	notes := cases.Notes(records, mode)

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.ElicitTimeout)
	defer cancel()

	start := time.Now()
	rec, err := s.elicitor.Elicit(ctx, notes, mode)
	s.writeAudit(r, auditEntry{
		op:        "elicit",
		mode:      mode,
		caseCount: len(records),
		started:   start,
		rec:       rec,
		err:       err,
	})
	return rec, err
}

// ─── POST /api/treatment/compare ─────────────────────────────────────────────

type compareRequest struct {
	Cases []cases.CaseRecord `json:"cases"`
}

type compareResponse struct {
	Aggressive   *elicit.ProbabilityRecord `json:"aggressive"`
	Conservative *elicit.ProbabilityRecord `json:"conservative"`
	Diagram      string                    `json:"diagram"`
}

// handleTreatmentCompare elicits both treatment styles concurrently and
// responds only once both have resolved, so a client never sees one style's
// result without the other. Either failure fails the whole response.
func (s *Server) handleTreatmentCompare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if !decode(w, r, &req) {
		return
	}

	modes := [2]elicit.Mode{elicit.ModeAggressive, elicit.ModeConservative}
	var (
		recs [2]*elicit.ProbabilityRecord
		errs [2]error
		wg   sync.WaitGroup
	)

	for i, mode := range modes {
		wg.Add(1)
		go func(i int, mode elicit.Mode) {
			defer wg.Done()
			recs[i], errs[i] = s.elicitOnce(r, req.Cases, mode)
		}(i, mode)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			s.respondElicitErr(w, r, err)
			return
		}
	}

	respond(w, http.StatusOK, compareResponse{
		Aggressive:   recs[0],
		Conservative: recs[1],
		Diagram:      diagram.RenderComparison(recs[0], recs[1], recs[0]),
	})
}

// ─── POST /api/tree ──────────────────────────────────────────────────────────

type treeResponse struct {
	Diagram string `json:"diagram"`
}

// handleDeriveTree runs the free-form tree-derivation mode: the model invents
// a decision tree from the notes and the fence-stripped text is returned
// verbatim. No JSON parsing, no key validation.
func (s *Server) handleDeriveTree(w http.ResponseWriter, r *http.Request) {
	var req treatmentRequest
	if !decode(w, r, &req) {
		return
	}

	mode, ok := elicit.ParseMode(req.TreatmentType)
	if !ok {
		respondErr(w, http.StatusBadRequest, "bad_request",
			`treatmentType must be "aggressive" or "conservative"`)
		return
	}

	notes := cases.Notes(req.Cases, mode)

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.ElicitTimeout)
	defer cancel()

	start := time.Now()
	text, err := s.elicitor.DeriveTree(ctx, notes)
	s.writeAudit(r, auditEntry{
		op:        "derive_tree",
		mode:      mode,
		caseCount: len(req.Cases),
		started:   start,
		raw:       text,
		err:       err,
	})
	if err != nil {
		s.respondElicitErr(w, r, err)
		return
	}

	respond(w, http.StatusOK, treeResponse{Diagram: text})
}

// ─── ERROR MAPPING ───────────────────────────────────────────────────────────

// respondElicitErr maps an elicitation failure to the wire envelope. All
// three kinds surface as 500 — the client retains its previous state and
// shows the error; raw model text is included for format failures so the
// operator can see what the model actually said.
func (s *Server) respondElicitErr(w http.ResponseWriter, r *http.Request, err error) {
	var ee *elicit.Error
	if !errors.As(err, &ee) {
		s.respondInternalErr(w, r, err)
		return
	}

	s.logger.Error("elicitation failed",
		"kind", ee.Kind,
		"details", ee.Detail,
		"missing_keys", ee.MissingKeys,
		logField(r),
	)

	respond(w, http.StatusInternalServerError, errorResponse{
		Error:   string(ee.Kind),
		Details: ee.Detail,
		Raw:     ee.Raw,
	})
}

// ─── AUDIT ───────────────────────────────────────────────────────────────────

type auditEntry struct {
	op        string
	mode      elicit.Mode
	caseCount int
	started   time.Time
	rec       *elicit.ProbabilityRecord
	raw       string
	err       error
}

// writeAudit persists one audit row. Audit failures are logged, never
// surfaced — the elicitation result stands on its own.
func (s *Server) writeAudit(r *http.Request, a auditEntry) {
	row := store.Elicitation{
		ID:         uuid.New(),
		Op:         a.op,
		Mode:       string(a.mode),
		CaseCount:  a.caseCount,
		Model:      s.cfg.Model,
		Status:     store.StatusOK,
		DurationMs: time.Since(a.started).Milliseconds(),
	}

	if a.raw != "" {
		row.RawResponse = sql.NullString{String: a.raw, Valid: true}
	}
	if a.rec != nil {
		if recJSON, err := json.Marshal(a.rec); err == nil {
			row.Record = pqtype.NullRawMessage{RawMessage: recJSON, Valid: true}
		}
	}
	if a.err != nil {
		row.ErrorMessage = sql.NullString{String: a.err.Error(), Valid: true}
		row.Status = store.StatusServiceFailure
		var ee *elicit.Error
		if errors.As(a.err, &ee) {
			switch ee.Kind {
			case elicit.KindInvalidFormat:
				row.Status = store.StatusInvalidFormat
			case elicit.KindIncompleteResponse:
				row.Status = store.StatusIncompleteResponse
			}
			if ee.Raw != "" {
				row.RawResponse = sql.NullString{String: ee.Raw, Valid: true}
			}
		}
	}

	if err := s.audit.RecordElicitation(r.Context(), row); err != nil {
		s.logger.Warn("audit write failed", "error", err, logField(r))
	}
}
