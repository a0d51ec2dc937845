// Package cases loads the bundled meningioma case dataset. The dataset is a
// static JSON document compiled into the binary; it is read once at startup
// and never mutated. A case's identity is its position in the dataset.
package cases

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/oncopath/meningioma-decision-flow-backend/internal/elicit"
)

//go:embed meningioma_cases.json
var rawDataset []byte

// Occupation mirrors the dataset's occupation block. At most one of the
// profession fields is set.
type Occupation struct {
	KnowledgeWorker           bool    `json:"knowledge_worker"`
	KnowledgeWorkerProfession *string `json:"knowledge_worker_profession"`
	OlfactoryProfession       *string `json:"olfactory_profession"`
	StageArtist               bool    `json:"stage_artist"`
}

// Label returns the display string for the occupation, in the same fallback
// order the case picker uses: knowledge-worker profession, then olfactory
// profession, then stage artist, then "Not specified".
func (o Occupation) Label() string {
	switch {
	case o.KnowledgeWorkerProfession != nil && *o.KnowledgeWorkerProfession != "":
		return *o.KnowledgeWorkerProfession
	case o.OlfactoryProfession != nil && *o.OlfactoryProfession != "":
		return *o.OlfactoryProfession
	case o.StageArtist:
		return "Stage Artist"
	}
	return "Not specified"
}

// Demographics holds the patient-level fields shown on a case card.
type Demographics struct {
	Age        int        `json:"age"`
	Gender     string     `json:"gender"`
	Occupation Occupation `json:"occupation"`
}

// ClinicalData holds the structured clinical fields of a case.
type ClinicalData struct {
	PresentingSymptoms []string `json:"presenting_symptoms"`
	MedicalHistory     []string `json:"medical_history"`
	MeningiomaGrade    int      `json:"meningioma_grade"`
}

// ClinicalNotes carries the pair of free-text narratives, one per treatment
// style.
type ClinicalNotes struct {
	Aggressive   string `json:"aggressive"`
	Conservative string `json:"conservative"`
}

// CaseRecord is one patient case. The same shape is accepted on the wire in
// POST /api/treatment bodies.
type CaseRecord struct {
	Demographics  Demographics  `json:"demographics"`
	ClinicalData  ClinicalData  `json:"clinical_data"`
	ClinicalNotes ClinicalNotes `json:"clinical_notes"`
}

// Dataset is the loaded, read-only case collection.
type Dataset struct {
	cases []CaseRecord
}

// Load parses the embedded dataset. Called once at startup; a failure here is
// a build defect, not a runtime condition.
func Load() (*Dataset, error) {
	var doc struct {
		MeningiomaCases []CaseRecord `json:"meningioma_cases"`
	}
	if err := json.Unmarshal(rawDataset, &doc); err != nil {
		return nil, fmt.Errorf("cases: parse embedded dataset: %w", err)
	}
	if len(doc.MeningiomaCases) == 0 {
		return nil, fmt.Errorf("cases: embedded dataset is empty")
	}
	return &Dataset{cases: doc.MeningiomaCases}, nil
}

// Len returns the number of cases in the dataset.
func (d *Dataset) Len() int { return len(d.cases) }

// All returns every case in dataset order.
func (d *Dataset) All() []CaseRecord { return d.cases }

// Get returns the case at index i.
func (d *Dataset) Get(i int) (CaseRecord, error) {
	if i < 0 || i >= len(d.cases) {
		return CaseRecord{}, fmt.Errorf("cases: index %d out of range [0,%d)", i, len(d.cases))
	}
	return d.cases[i], nil
}

// FilterByGrade returns the cases whose meningioma grade equals g, in
// dataset order.
func (d *Dataset) FilterByGrade(g int) []CaseRecord {
	var out []CaseRecord
	for _, c := range d.cases {
		if c.ClinicalData.MeningiomaGrade == g {
			out = append(out, c)
		}
	}
	return out
}

// Notes selects the per-style narrative from each case, preserving order.
// This is the only place the treatment mode touches case data.
func Notes(records []CaseRecord, mode elicit.Mode) []string {
	notes := make([]string, len(records))
	for i, c := range records {
		if mode == elicit.ModeAggressive {
			notes[i] = c.ClinicalNotes.Aggressive
		} else {
			notes[i] = c.ClinicalNotes.Conservative
		}
	}
	return notes
}
