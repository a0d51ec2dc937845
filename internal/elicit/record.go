package elicit

// ProbabilityRecord is the structured answer set the model returns: one
// fractional value per branch of the fixed decision tree, plus scan intervals
// per WHO grade. Values are taken from the model uncorrected — no clamping,
// no complement enforcement. A record is immutable once parsed.
type ProbabilityRecord struct {
	// P(treated as symptomatic).
	Symptomatic float64 `json:"symptomatic"`

	// P(classified high risk | asymptomatic).
	HighRisk float64 `json:"high_risk"`

	// P(intervene on growth | watchful waiting).
	GrowthOnFollowup float64 `json:"growth_on_followup"`

	// P(surgery chosen over radiation).
	SurgicalCandidate float64 `json:"surgical_candidate"`

	RadiationChoice         RadiationChoice         `json:"radiation_choice"`
	ResectionExtent         ResectionExtent         `json:"resection_extent"`
	PostIncompleteTreatment PostIncompleteTreatment `json:"post_incomplete_treatment"`
	Grade1Management        Grade1Management        `json:"grade_1_management"`
	Grade2Management        Grade2Management        `json:"grade_2_management"`
	FollowupSchedule        FollowupSchedule        `json:"followup_schedule"`
}

// RadiationChoice splits the radiation arm between stereotactic radiosurgery
// and fractionated radiotherapy.
type RadiationChoice struct {
	SRSEligible    float64 `json:"srs_eligible"`
	FractionatedRT float64 `json:"fractionated_rt"`
}

// ResectionExtent splits grade-1 surgery by achieved resection.
type ResectionExtent struct {
	Complete   float64 `json:"complete"`
	Incomplete float64 `json:"incomplete"`
}

// PostIncompleteTreatment is the management split after incomplete resection.
type PostIncompleteTreatment struct {
	Observe     float64 `json:"observe"`
	ImmediateRT float64 `json:"immediate_rt"`
}

// Grade1Management is the management split after complete grade-1 resection.
type Grade1Management struct {
	ObserveOnly float64 `json:"observe_only"`
	AdjuvantRT  float64 `json:"adjuvant_rt"`
}

// Grade2Management is the three-way grade-2 split. The three values are
// assumed, not enforced, to sum to ~1.
type Grade2Management struct {
	Observe       float64 `json:"observe"`
	ImmediateRT   float64 `json:"immediate_rt"`
	ClinicalTrial float64 `json:"clinical_trial"`
}

// FollowupSchedule holds the scan interval in months per WHO grade.
type FollowupSchedule struct {
	Grade1 int `json:"grade_1"`
	Grade2 int `json:"grade_2"`
	Grade3 int `json:"grade_3"`
}
