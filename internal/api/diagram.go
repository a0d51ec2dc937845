package api

import (
	"net/http"

	"github.com/oncopath/meningioma-decision-flow-backend/internal/diagram"
	"github.com/oncopath/meningioma-decision-flow-backend/internal/elicit"
)

// renderRequest accepts either a single record or a pair. Exactly one form
// must be supplied: {record} renders single-style labels, {aggressive,
// conservative} renders the dual-marker comparison.
type renderRequest struct {
	Record       *elicit.ProbabilityRecord `json:"record"`
	Aggressive   *elicit.ProbabilityRecord `json:"aggressive"`
	Conservative *elicit.ProbabilityRecord `json:"conservative"`
}

// handleRenderDiagram templates a Mermaid flowchart from caller-supplied
// probability records. Deterministic, no model call.
func (s *Server) handleRenderDiagram(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if !decode(w, r, &req) {
		return
	}

	single := req.Record != nil
	pair := req.Aggressive != nil && req.Conservative != nil

	switch {
	case single && pair:
		respondErr(w, http.StatusBadRequest, "bad_request",
			"supply either record or aggressive+conservative, not both")
	case single:
		respond(w, http.StatusOK, treeResponse{Diagram: diagram.Render(req.Record)})
	case pair:
		respond(w, http.StatusOK, treeResponse{
			Diagram: diagram.RenderComparison(req.Aggressive, req.Conservative, req.Aggressive),
		})
	default:
		respondErr(w, http.StatusBadRequest, "bad_request",
			"supply either record or aggressive+conservative")
	}
}

// handleDefaultDiagram returns the flowchart populated with the initial
// population-level probabilities shown before any elicitation has run.
func (s *Server) handleDefaultDiagram(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, treeResponse{Diagram: diagram.Render(diagram.Default())})
}
