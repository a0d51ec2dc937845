// Package diagram renders a ProbabilityRecord into a Mermaid flowchart
// description. The topology is fixed — ten decision points, fixed node ids,
// fixed terminal labels — and only the numbers interpolated into edge labels
// vary per call. Rendering is pure string templating: no graph algorithm, no
// reordering, no recomputation of nodes from input.
package diagram

import (
	"fmt"
	"strconv"

	"github.com/oncopath/meningioma-decision-flow-backend/internal/elicit"
)

// Markers prefixing the two treatment styles in comparison mode, always in
// this order: aggressive first, conservative second.
const (
	markerAggressive   = "🔴"
	markerConservative = "🔵"
)

// Percent formats a fractional probability as a percentage with exactly one
// decimal digit: 0.827 → "82.7%".
func Percent(p float64) string {
	return strconv.FormatFloat(p*100, 'f', 1, 64) + "%"
}

// Default returns the probabilities the diagram shows before any elicitation
// has run.
func Default() *elicit.ProbabilityRecord {
	return &elicit.ProbabilityRecord{
		Symptomatic:       1.0,
		HighRisk:          0.8,
		GrowthOnFollowup:  0.0,
		SurgicalCandidate: 0.4,
		RadiationChoice: elicit.RadiationChoice{
			SRSEligible:    0.7,
			FractionatedRT: 0.3,
		},
		Grade1Management: elicit.Grade1Management{
			ObserveOnly: 0.6,
			AdjuvantRT:  0.4,
		},
		FollowupSchedule: elicit.FollowupSchedule{
			Grade1: 3,
			Grade2: 3,
			Grade3: 2,
		},
	}
}

// Render produces the single-record flowchart. Binary decision points label
// their two branches with p and 1-p; the grade-2 three-way split labels each
// branch with its own probability; follow-up nodes interpolate the integer
// month values.
func Render(rec *elicit.ProbabilityRecord) string {
	return render(singleLabels(rec), rec.FollowupSchedule)
}

// RenderComparison produces the dual-record flowchart: every probability edge
// carries both styles' percentages on two lines, aggressive first. Schedule
// labels come from scheduleSource (one of the two records — the caller picks).
func RenderComparison(aggressive, conservative *elicit.ProbabilityRecord, scheduleSource *elicit.ProbabilityRecord) string {
	return render(dualLabels(aggressive, conservative), scheduleSource.FollowupSchedule)
}

// edgeLabels holds one pre-formatted percentage string per probability edge.
// Keeping the label computation separate from the topology template is what
// lets single and comparison mode share one template.
type edgeLabels struct {
	symYes, symNo            string
	riskHigh, riskLow        string
	growthYes, growthNo      string
	surgery, radiation       string
	srs, fractionated        string
	resComplete, resPartial  string
	g1Observe, g1RT          string
	piObserve, piRT          string
	g2Observe, g2RT, g2Trial string
}

func singleLabels(r *elicit.ProbabilityRecord) edgeLabels {
	return edgeLabels{
		symYes:       Percent(r.Symptomatic),
		symNo:        Percent(1 - r.Symptomatic),
		riskHigh:     Percent(r.HighRisk),
		riskLow:      Percent(1 - r.HighRisk),
		growthYes:    Percent(r.GrowthOnFollowup),
		growthNo:     Percent(1 - r.GrowthOnFollowup),
		surgery:      Percent(r.SurgicalCandidate),
		radiation:    Percent(1 - r.SurgicalCandidate),
		srs:          Percent(r.RadiationChoice.SRSEligible),
		fractionated: Percent(r.RadiationChoice.FractionatedRT),
		resComplete:  Percent(r.ResectionExtent.Complete),
		resPartial:   Percent(r.ResectionExtent.Incomplete),
		g1Observe:    Percent(r.Grade1Management.ObserveOnly),
		g1RT:         Percent(r.Grade1Management.AdjuvantRT),
		piObserve:    Percent(r.PostIncompleteTreatment.Observe),
		piRT:         Percent(r.PostIncompleteTreatment.ImmediateRT),
		g2Observe:    Percent(r.Grade2Management.Observe),
		g2RT:         Percent(r.Grade2Management.ImmediateRT),
		g2Trial:      Percent(r.Grade2Management.ClinicalTrial),
	}
}

// dual formats one edge label carrying both styles, two lines, fixed order.
func dual(agg, con float64) string {
	return markerAggressive + " " + Percent(agg) + "\n" + markerConservative + " " + Percent(con)
}

func dualLabels(a, c *elicit.ProbabilityRecord) edgeLabels {
	return edgeLabels{
		symYes:       dual(a.Symptomatic, c.Symptomatic),
		symNo:        dual(1-a.Symptomatic, 1-c.Symptomatic),
		riskHigh:     dual(a.HighRisk, c.HighRisk),
		riskLow:      dual(1-a.HighRisk, 1-c.HighRisk),
		growthYes:    dual(a.GrowthOnFollowup, c.GrowthOnFollowup),
		growthNo:     dual(1-a.GrowthOnFollowup, 1-c.GrowthOnFollowup),
		surgery:      dual(a.SurgicalCandidate, c.SurgicalCandidate),
		radiation:    dual(1-a.SurgicalCandidate, 1-c.SurgicalCandidate),
		srs:          dual(a.RadiationChoice.SRSEligible, c.RadiationChoice.SRSEligible),
		fractionated: dual(a.RadiationChoice.FractionatedRT, c.RadiationChoice.FractionatedRT),
		resComplete:  dual(a.ResectionExtent.Complete, c.ResectionExtent.Complete),
		resPartial:   dual(a.ResectionExtent.Incomplete, c.ResectionExtent.Incomplete),
		g1Observe:    dual(a.Grade1Management.ObserveOnly, c.Grade1Management.ObserveOnly),
		g1RT:         dual(a.Grade1Management.AdjuvantRT, c.Grade1Management.AdjuvantRT),
		piObserve:    dual(a.PostIncompleteTreatment.Observe, c.PostIncompleteTreatment.Observe),
		piRT:         dual(a.PostIncompleteTreatment.ImmediateRT, c.PostIncompleteTreatment.ImmediateRT),
		g2Observe:    dual(a.Grade2Management.Observe, c.Grade2Management.Observe),
		g2RT:         dual(a.Grade2Management.ImmediateRT, c.Grade2Management.ImmediateRT),
		g2Trial:      dual(a.Grade2Management.ClinicalTrial, c.Grade2Management.ClinicalTrial),
	}
}

// render interpolates the labels into the fixed topology. Node order, ids,
// and terminal labels never change; a caller cannot make this function omit
// or reorder anything.
func render(l edgeLabels, sched elicit.FollowupSchedule) string {
	return fmt.Sprintf(`flowchart TD
    A[Initial MRI:
Suspected Meningioma] --> B{{Decision Point 1:
Treat as Symptomatic?}}

    B -->|Treat as Symptomatic
%s| E
    B -->|Treat as Asymptomatic
%s| C

    C{{Decision Point 2:
Risk Level?}}
    C -->|Classify High Risk
%s| E
    C -->|Classify Low Risk
%s| D

    D[Watch & Scan] --> D1{{Decision Point 3:
Intervene on Growth?}}
    D1 -->|Intervene
%s| E
    D1 -->|Continue Monitoring
%s| D2[Scan every %dmo]

    E{{Decision Point 4:
Surgical vs Radiation?}}
    E -->|Choose Surgery
%s| G
    E -->|Choose Radiation
%s| F

    F{{Decision Point 5:
Radiation Type?}}
    F -->|Choose SRS
%s| F1[SRS Treatment]
    F -->|Choose Fractionated
%s| F2[Fractionated RT]

    G[Surgery] --> H{{Decision Point 6:
Post-Surgery Management by Grade}}

    H -->|Grade 1 Cases| I{{Decision Point 7:
Resection Goal?}}
    I -->|Attempt Complete
%s| I1
    I -->|Accept Partial
%s| I2

    I1[Complete Resection] --> I1M{{Decision Point 8:
Post-Complete Management?}}
    I1M -->|Observe Only
%s| I1O
    I1M -->|Add RT
%s| I1R

    I2[Incomplete Resection] --> I2M{{Decision Point 9:
Post-Incomplete Management?}}
    I2M -->|Observe
%s| I2O
    I2M -->|Add RT
%s| I2R

    H -->|Grade 2 Cases| J{{Decision Point 10:
Grade 2 Management?}}
    J -->|Observation
%s| J1
    J -->|Immediate RT
%s| J2
    J -->|Clinical Trial
%s| J3

    H -->|Grade 3 Cases| K[Standard Grade 3 Protocol]

    I1O & I1R & I2O & I2R --> L1[Grade 1 Follow-up:
Scan q%dmo]
    J1 & J2 & J3 --> L2[Grade 2 Follow-up:
Scan q%dmo]
    K --> L3[Grade 3 Follow-up:
Scan q%dmo]

    L1 & L2 & L3 --> M[Standardized Monitoring Protocol]

    style H fill:#f9f,stroke:#333,stroke-width:4px
    style G fill:#bbf,stroke:#333,stroke-width:4px
    style E fill:#dfd,stroke:#333,stroke-width:4px
    style M fill:#ffd,stroke:#333,stroke-width:4px`,
		l.symYes, l.symNo,
		l.riskHigh, l.riskLow,
		l.growthYes, l.growthNo, sched.Grade1,
		l.surgery, l.radiation,
		l.srs, l.fractionated,
		l.resComplete, l.resPartial,
		l.g1Observe, l.g1RT,
		l.piObserve, l.piRT,
		l.g2Observe, l.g2RT, l.g2Trial,
		sched.Grade1, sched.Grade2, sched.Grade3)
}
