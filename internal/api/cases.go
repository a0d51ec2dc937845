package api

import (
	"net/http"
	"strconv"

	"github.com/oncopath/meningioma-decision-flow-backend/internal/cases"
)

// caseSummary is one entry in the case-picker listing. Index is the case's
// identity: treatment requests send the full records back, but clients key
// their selection state on this index.
type caseSummary struct {
	Index        int    `json:"index"`
	Age          int    `json:"age"`
	Gender       string `json:"gender"`
	Occupation   string `json:"occupation"`
	Grade        int    `json:"grade"`
	SymptomCount int    `json:"symptomCount"`
}

type casesResponse struct {
	Cases []caseDetail `json:"cases"`
	Total int          `json:"total"`
}

type caseDetail struct {
	caseSummary
	Record cases.CaseRecord `json:"record"`
}

// handleListCases returns every bundled case with its summary fields and the
// full record the client echoes back in treatment requests. An optional
// ?grade=N query narrows the listing; Total always reports the full dataset
// size.
func (s *Server) handleListCases(w http.ResponseWriter, r *http.Request) {
	grade := -1
	if g := r.URL.Query().Get("grade"); g != "" {
		n, err := strconv.Atoi(g)
		if err != nil {
			respondErr(w, http.StatusBadRequest, "bad_request", "grade must be an integer")
			return
		}
		grade = n
	}

	out := casesResponse{Cases: make([]caseDetail, 0, s.data.Len()), Total: s.data.Len()}
	for i, c := range s.data.All() {
		if grade >= 0 && c.ClinicalData.MeningiomaGrade != grade {
			continue
		}
		out.Cases = append(out.Cases, caseDetail{
			caseSummary: caseSummary{
				Index:        i,
				Age:          c.Demographics.Age,
				Gender:       c.Demographics.Gender,
				Occupation:   c.Demographics.Occupation.Label(),
				Grade:        c.ClinicalData.MeningiomaGrade,
				SymptomCount: len(c.ClinicalData.PresentingSymptoms),
			},
			Record: c,
		})
	}

	respond(w, http.StatusOK, out)
}
