package api_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oncopath/meningioma-decision-flow-backend/internal/api"
	"github.com/oncopath/meningioma-decision-flow-backend/internal/cases"
	"github.com/oncopath/meningioma-decision-flow-backend/internal/diagram"
	"github.com/oncopath/meningioma-decision-flow-backend/internal/elicit"
)

// ─── STUBS ────────────────────────────────────────────────────────────────────

// stubElicitor returns canned results, keyed by mode so comparison tests can
// distinguish the two concurrent calls. The counter is atomic: the compare
// handler invokes Elicit from two goroutines at once.
type stubElicitor struct {
	recs  map[elicit.Mode]*elicit.ProbabilityRecord
	errs  map[elicit.Mode]error
	tree  string
	calls atomic.Int32
}

func (s *stubElicitor) Elicit(_ context.Context, _ []string, mode elicit.Mode) (*elicit.ProbabilityRecord, error) {
	s.calls.Add(1)
	if err, ok := s.errs[mode]; ok {
		return nil, err
	}
	return s.recs[mode], nil
}

func (s *stubElicitor) DeriveTree(context.Context, []string) (string, error) {
	s.calls.Add(1)
	return s.tree, nil
}

func newTestServer(t *testing.T, e elicit.Elicitor) http.Handler {
	t.Helper()
	return newTestServerCfg(t, e, api.Config{
		Env:           "development",
		Model:         "test-model",
		ElicitTimeout: 5 * time.Second,
	})
}

func newTestServerCfg(t *testing.T, e elicit.Elicitor, cfg api.Config) http.Handler {
	t.Helper()
	data, err := cases.Load()
	if err != nil {
		t.Fatalf("cases.Load: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return api.NewServer(data, e, nil, cfg, logger)
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// ─── HEALTH ──────────────────────────────────────────────────────────────────

func TestHealthz(t *testing.T) {
	h := newTestServer(t, &stubElicitor{})
	rr := doJSON(t, h, http.MethodGet, "/healthz", "")
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

// ─── CORS ────────────────────────────────────────────────────────────────────

func TestCORS_ProductionAllowlist(t *testing.T) {
	cfg := api.Config{
		Env:            "production",
		Model:          "test-model",
		ElicitTimeout:  5 * time.Second,
		AllowedOrigins: []string{"https://flow.oncopath.example"},
	}
	h := newTestServerCfg(t, &stubElicitor{}, cfg)

	// Listed origin is echoed back, never "*".
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://flow.oncopath.example")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://flow.oncopath.example" {
		t.Errorf("allowed origin: Access-Control-Allow-Origin = %q", got)
	}

	// Unlisted origin: the request is still served, but without CORS
	// headers the browser refuses the cross-origin read.
	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://other.example")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("unlisted origin GET: status = %d, want 200", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unlisted origin: Access-Control-Allow-Origin = %q, want unset", got)
	}

	// Unlisted origin preflight is rejected outright.
	req = httptest.NewRequest(http.MethodOptions, "/api/cases", nil)
	req.Header.Set("Origin", "https://other.example")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("unlisted origin preflight: status = %d, want 403", rr.Code)
	}
}

func TestCORS_DevelopmentEchoesOrigin(t *testing.T) {
	h := newTestServer(t, &stubElicitor{})

	req := httptest.NewRequest(http.MethodOptions, "/api/cases", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q, want origin echoed", got)
	}
}

// ─── CASES ───────────────────────────────────────────────────────────────────

func TestListCases(t *testing.T) {
	h := newTestServer(t, &stubElicitor{})
	rr := doJSON(t, h, http.MethodGet, "/api/cases", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rr.Code, rr.Body)
	}

	var resp struct {
		Cases []struct {
			Index        int              `json:"index"`
			Age          int              `json:"age"`
			Occupation   string           `json:"occupation"`
			Grade        int              `json:"grade"`
			SymptomCount int              `json:"symptomCount"`
			Record       cases.CaseRecord `json:"record"`
		} `json:"cases"`
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total == 0 || len(resp.Cases) != resp.Total {
		t.Fatalf("total = %d, cases = %d", resp.Total, len(resp.Cases))
	}
	for _, c := range resp.Cases {
		if c.Occupation == "" {
			t.Errorf("case %d: empty occupation label", c.Index)
		}
		if c.Record.ClinicalNotes.Aggressive == "" {
			t.Errorf("case %d: record missing narrative", c.Index)
		}
	}
}

func TestListCases_GradeFilter(t *testing.T) {
	h := newTestServer(t, &stubElicitor{})
	rr := doJSON(t, h, http.MethodGet, "/api/cases?grade=3", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var resp struct {
		Cases []struct {
			Grade int `json:"grade"`
		} `json:"cases"`
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, c := range resp.Cases {
		if c.Grade != 3 {
			t.Errorf("filtered listing contains grade %d", c.Grade)
		}
	}
	if len(resp.Cases) >= resp.Total {
		t.Errorf("filter returned %d of %d cases, expected a strict subset", len(resp.Cases), resp.Total)
	}

	rr = doJSON(t, h, http.MethodGet, "/api/cases?grade=x", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad grade: status = %d, want 400", rr.Code)
	}
}

// ─── TREATMENT ───────────────────────────────────────────────────────────────

const treatmentBody = `{"cases": [{"clinical_notes": {"aggressive": "note a", "conservative": "note c"}}], "treatmentType": "aggressive"}`

func TestTreatment_Success(t *testing.T) {
	want := diagram.Default()
	stub := &stubElicitor{recs: map[elicit.Mode]*elicit.ProbabilityRecord{
		elicit.ModeAggressive: want,
	}}
	h := newTestServer(t, stub)

	rr := doJSON(t, h, http.MethodPost, "/api/treatment", treatmentBody)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rr.Code, rr.Body)
	}

	// The response is the bare record, no envelope.
	var rec elicit.ProbabilityRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Symptomatic != want.Symptomatic || rec.FollowupSchedule != want.FollowupSchedule {
		t.Errorf("record = %+v, want %+v", rec, *want)
	}
	if got := stub.calls.Load(); got != 1 {
		t.Errorf("elicitor calls = %d, want exactly 1 (no retries)", got)
	}
}

func TestTreatment_ZeroRecordRendersCompleteDiagram(t *testing.T) {
	// A legitimately all-zero answer flows through untouched and still
	// produces a full diagram downstream.
	stub := &stubElicitor{recs: map[elicit.Mode]*elicit.ProbabilityRecord{
		elicit.ModeAggressive: {},
	}}
	h := newTestServer(t, stub)

	rr := doJSON(t, h, http.MethodPost, "/api/treatment", treatmentBody)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var rec elicit.ProbabilityRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	out := diagram.Render(&rec)
	if !strings.Contains(out, "0.0%") || !strings.Contains(out, "Decision Point 10") {
		t.Error("zero record should render a complete diagram with 0.0% labels")
	}
}

func TestTreatment_BadTreatmentType(t *testing.T) {
	h := newTestServer(t, &stubElicitor{})
	body := `{"cases": [], "treatmentType": "moderate"}`

	rr := doJSON(t, h, http.MethodPost, "/api/treatment", body)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestTreatment_ErrorEnvelopes(t *testing.T) {
	tests := []struct {
		name    string
		err     *elicit.Error
		wantRaw bool
	}{
		{
			name:    "service failure",
			err:     &elicit.Error{Kind: elicit.KindServiceFailure, Detail: "provider unreachable"},
			wantRaw: false,
		},
		{
			name:    "invalid format",
			err:     &elicit.Error{Kind: elicit.KindInvalidFormat, Detail: "bad json", Raw: "not json at all"},
			wantRaw: true,
		},
		{
			name: "incomplete response",
			err: &elicit.Error{
				Kind:        elicit.KindIncompleteResponse,
				Detail:      "missing required keys: high_risk",
				Raw:         `{"symptomatic": 0.5}`,
				MissingKeys: []string{"high_risk"},
			},
			wantRaw: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubElicitor{errs: map[elicit.Mode]error{elicit.ModeAggressive: tt.err}}
			h := newTestServer(t, stub)

			rr := doJSON(t, h, http.MethodPost, "/api/treatment", treatmentBody)
			if rr.Code != http.StatusInternalServerError {
				t.Fatalf("status = %d, want 500", rr.Code)
			}

			var envelope map[string]any
			if err := json.Unmarshal(rr.Body.Bytes(), &envelope); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if envelope["error"] != string(tt.err.Kind) {
				t.Errorf("error = %v, want %s", envelope["error"], tt.err.Kind)
			}
			if envelope["details"] != tt.err.Detail {
				t.Errorf("details = %v, want %q", envelope["details"], tt.err.Detail)
			}
			_, hasRaw := envelope["raw"]
			if hasRaw != tt.wantRaw {
				t.Errorf("raw present = %v, want %v", hasRaw, tt.wantRaw)
			}
			if tt.wantRaw && envelope["raw"] != tt.err.Raw {
				t.Errorf("raw = %v, want %q", envelope["raw"], tt.err.Raw)
			}
		})
	}
}

// ─── COMPARE ─────────────────────────────────────────────────────────────────

func TestTreatmentCompare(t *testing.T) {
	agg := diagram.Default()
	agg.Symptomatic = 0.9
	con := diagram.Default()
	con.Symptomatic = 0.4

	stub := &stubElicitor{recs: map[elicit.Mode]*elicit.ProbabilityRecord{
		elicit.ModeAggressive:   agg,
		elicit.ModeConservative: con,
	}}
	h := newTestServer(t, stub)

	body := `{"cases": [{"clinical_notes": {"aggressive": "a", "conservative": "c"}}]}`
	rr := doJSON(t, h, http.MethodPost, "/api/treatment/compare", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rr.Code, rr.Body)
	}

	var resp struct {
		Aggressive   *elicit.ProbabilityRecord `json:"aggressive"`
		Conservative *elicit.ProbabilityRecord `json:"conservative"`
		Diagram      string                    `json:"diagram"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Aggressive == nil || resp.Conservative == nil {
		t.Fatal("both records must be present")
	}
	if resp.Aggressive.Symptomatic != 0.9 || resp.Conservative.Symptomatic != 0.4 {
		t.Errorf("records swapped or wrong: agg=%v con=%v",
			resp.Aggressive.Symptomatic, resp.Conservative.Symptomatic)
	}
	if !strings.Contains(resp.Diagram, "🔴 90.0%\n🔵 40.0%") {
		t.Error("comparison diagram missing dual edge labels")
	}
	if got := stub.calls.Load(); got != 2 {
		t.Errorf("elicitor calls = %d, want 2 (one per style)", got)
	}
}

func TestTreatmentCompare_OneFailureFailsBoth(t *testing.T) {
	stub := &stubElicitor{
		recs: map[elicit.Mode]*elicit.ProbabilityRecord{
			elicit.ModeAggressive: diagram.Default(),
		},
		errs: map[elicit.Mode]error{
			elicit.ModeConservative: &elicit.Error{Kind: elicit.KindServiceFailure, Detail: "down"},
		},
	}
	h := newTestServer(t, stub)

	body := `{"cases": []}`
	rr := doJSON(t, h, http.MethodPost, "/api/treatment/compare", body)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500; body: %s", rr.Code, rr.Body)
	}
	// The envelope must not leak the successful half.
	if strings.Contains(rr.Body.String(), `"aggressive"`) {
		t.Error("partial result leaked into error response")
	}
}

// ─── TREE ────────────────────────────────────────────────────────────────────

func TestDeriveTree(t *testing.T) {
	stub := &stubElicitor{tree: "flowchart TD\n    A --> B"}
	h := newTestServer(t, stub)

	rr := doJSON(t, h, http.MethodPost, "/api/tree", treatmentBody)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rr.Code, rr.Body)
	}

	var resp struct {
		Diagram string `json:"diagram"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Diagram != "flowchart TD\n    A --> B" {
		t.Errorf("diagram = %q", resp.Diagram)
	}
}

// ─── DIAGRAM ─────────────────────────────────────────────────────────────────

func TestRenderDiagram_SingleRecord(t *testing.T) {
	h := newTestServer(t, &stubElicitor{})

	rec, _ := json.Marshal(diagram.Default())
	rr := doJSON(t, h, http.MethodPost, "/api/diagram", `{"record": `+string(rec)+`}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rr.Code, rr.Body)
	}

	var resp struct {
		Diagram string `json:"diagram"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(resp.Diagram, "Decision Point 1") {
		t.Error("diagram missing decision points")
	}
}

func TestRenderDiagram_Pair(t *testing.T) {
	h := newTestServer(t, &stubElicitor{})

	rec, _ := json.Marshal(diagram.Default())
	body := `{"aggressive": ` + string(rec) + `, "conservative": ` + string(rec) + `}`
	rr := doJSON(t, h, http.MethodPost, "/api/diagram", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rr.Code, rr.Body)
	}
	if !strings.Contains(rr.Body.String(), "🔴") {
		t.Error("pair rendering should carry dual markers")
	}
}

func TestRenderDiagram_BadRequests(t *testing.T) {
	h := newTestServer(t, &stubElicitor{})

	rec, _ := json.Marshal(diagram.Default())
	for _, body := range []string{
		`{}`,
		`{"record": ` + string(rec) + `, "aggressive": ` + string(rec) + `, "conservative": ` + string(rec) + `}`,
	} {
		rr := doJSON(t, h, http.MethodPost, "/api/diagram", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, rr.Code)
		}
	}
}

func TestDefaultDiagram(t *testing.T) {
	h := newTestServer(t, &stubElicitor{})

	rr := doJSON(t, h, http.MethodGet, "/api/diagram/default", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "100.0%") {
		t.Error("default diagram should show the 100% symptomatic prior")
	}
}

// ─── AUDIT ───────────────────────────────────────────────────────────────────

func TestListElicitations_StoreDisabled(t *testing.T) {
	h := newTestServer(t, &stubElicitor{})

	rr := doJSON(t, h, http.MethodGet, "/api/elicitations", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rr.Code, rr.Body)
	}

	var resp struct {
		Elicitations []any `json:"elicitations"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Elicitations) != 0 {
		t.Errorf("disabled store should list nothing, got %d rows", len(resp.Elicitations))
	}

	rr = doJSON(t, h, http.MethodGet, "/api/elicitations?limit=0", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("limit=0: status = %d, want 400", rr.Code)
	}
}
