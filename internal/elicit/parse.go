package elicit

import (
	"encoding/json"
	"fmt"
	"strings"
)

// requiredKeys lists the ten top-level keys a response must carry, in the
// order they are checked (and reported when missing).
var requiredKeys = []string{
	"symptomatic",
	"high_risk",
	"growth_on_followup",
	"surgical_candidate",
	"radiation_choice",
	"resection_extent",
	"post_incomplete_treatment",
	"grade_1_management",
	"grade_2_management",
	"followup_schedule",
}

// requiredSubKeys maps each composite key to its required sub-keys, again in
// check order. Missing sub-keys are reported dotted ("radiation_choice.srs_eligible").
var requiredSubKeys = map[string][]string{
	"radiation_choice":          {"srs_eligible", "fractionated_rt"},
	"resection_extent":          {"complete", "incomplete"},
	"post_incomplete_treatment": {"observe", "immediate_rt"},
	"grade_1_management":        {"observe_only", "adjuvant_rt"},
	"grade_2_management":        {"observe", "immediate_rt", "clinical_trial"},
	"followup_schedule":         {"grade_1", "grade_2", "grade_3"},
}

// StripFences removes Markdown code-fence delimiters from the start and end
// of a model response. Fences tagged json or mermaid are handled; leading and
// trailing whitespace is trimmed. The enclosed content is returned unchanged.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```mermaid")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseRecord turns raw model output into a validated ProbabilityRecord.
//
// Steps: fence-strip, JSON parse, required-key validation (top-level and
// nested), then decode into the typed record. Numeric values are not clamped
// or range-checked — an out-of-range probability passes through and shows up
// in the rendered diagram exactly as the model produced it.
//
// All failures return *Error: a parse failure is KindInvalidFormat carrying
// the cleaned text; missing keys are KindIncompleteResponse naming every
// missing key in check order.
func ParseRecord(raw string) (*ProbabilityRecord, error) {
	clean := StripFences(raw)

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(clean), &top); err != nil {
		return nil, invalidFormat(clean, err)
	}

	var missing []string
	for _, key := range requiredKeys {
		nested, ok := top[key]
		if !ok {
			missing = append(missing, key)
			continue
		}
		subKeys, composite := requiredSubKeys[key]
		if !composite {
			continue
		}
		var sub map[string]json.RawMessage
		if err := json.Unmarshal(nested, &sub); err != nil {
			// Not an object at all — every sub-key is effectively absent.
			for _, sk := range subKeys {
				missing = append(missing, key+"."+sk)
			}
			continue
		}
		for _, sk := range subKeys {
			if _, ok := sub[sk]; !ok {
				missing = append(missing, key+"."+sk)
			}
		}
	}
	if len(missing) > 0 {
		return nil, incompleteResponse(clean, missing)
	}

	var rec ProbabilityRecord
	if err := json.Unmarshal([]byte(clean), &rec); err != nil {
		return nil, invalidFormat(clean, fmt.Errorf("decode record: %w", err))
	}
	return &rec, nil
}
