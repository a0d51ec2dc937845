package elicit

import "strings"

// decisionTree is the fixed ten-decision-point clinical pathway embedded in
// every elicitation prompt. It is a constant description of the pathway, not
// derived from input. The {p[...]} placeholders are part of the description
// the model sees — they name the probability each edge corresponds to.
const decisionTree = `    A[Initial MRI:\nSuspected Meningioma] --> B{{Symptomatic?}}

    %% Asymptomatic Branch
    B -->|{1-p['symptomatic']:.1%}| C{{Risk Assessment}}
    C -->|{1-p['high_risk']:.1%}| D[Watch & Scan]
    C -->|{p['high_risk']:.1%}| E[Consider Treatment]

    D --> D1{{Growth on\nFollow-up?}}
    D1 -->|{1-p['growth']:.1%}| D2[Continue Annual MRI\n5 years, then biennial]
    D1 -->|{p['growth']:.1%}| E

    %% Risk Factors Box
    C ---- C1[Low Risk:<br>- Small size<br>- Calcified<br>- No edema<br>- T2 hypointense]
    C ---- C2[High Risk:<br>- Size >3cm<br>- No calcification<br>- Peritumoral edema<br>- Near critical structures]

    %% Symptomatic Branch
    B -->|{p['symptomatic']:.1%}| E
    E{{Treatment\nCandidate?}}

    %% Poor Surgical Branch
    E -->|{1-p['surgical_candidate']:.1%}| F[Radiation Options]
    F -->|{p['srs_vs_rt']:.1%}| F1[SRS:<br>- Size ≤3cm<br>- Single fraction<br>- >13 Gy]
    F -->|{1-p['srs_vs_rt']:.1%}| F2[Fractionated RT:<br>- Size >3cm<br>- 54-60 Gy/30fx]

    %% Surgical Branch
    E -->|{p['surgical_candidate']:.1%}| G[Surgery]
    G --> H{{WHO Grade?}}

    %% Grade 1 Branch
    H -->|80%| I{{Resection\nExtent?}}
    I -->|{p['complete_resection']:.1%}| I1[Observe:<br>Annual MRI x 5y<br>then biennial]
    I -->|{1-p['complete_resection']:.1%}| I2{{Symptoms?}}
    I2 -->|{1-p['rt_after_incomplete']:.1%}| I3[Observe or RT]
    I2 -->|{p['rt_after_incomplete']:.1%}| I4[RT/SRS]

    %% Grade 2/3 Branches and Follow-up remain constant
    H -->|15%| J{{Resection\nExtent?}}
    H -->|5%| K[Mandatory:<br>- RT 60 Gy/30fx<br>- Consider systemic<br>therapy if progressive]

    %% Follow-up Paths
    I1 & I3 & I4 --> L1[Grade 1 Follow-up:<br>Annual MRI x 5y<br>then biennial]
    J --> L2[Grade 2 Follow-up:<br>q6mo MRI x 5y<br>then annual]
    K --> L3[Grade 3 Follow-up:<br>q3-6mo MRI]

    %% Monitoring
    L1 & L2 & L3 --> M[Monitor:<br>- Neurology<br>- Cognition<br>- Quality of Life]`

// responseFormat is the exact JSON shape the model must return. Kept as one
// block so the prompt and ParseRecord never drift apart silently.
const responseFormat = `{
    "symptomatic": <float>,
    "high_risk": <float>,
    "growth_on_followup": <float>,
    "surgical_candidate": <float>,
    "radiation_choice": {
        "srs_eligible": <float>,
        "fractionated_rt": <float>
    },
    "resection_extent": {
        "complete": <float>,
        "incomplete": <float>
    },
    "post_incomplete_treatment": {
        "observe": <float>,
        "immediate_rt": <float>
    },
    "grade_1_management": {
        "observe_only": <float>,
        "adjuvant_rt": <float>
    },
    "grade_2_management": {
        "observe": <float>,
        "immediate_rt": <float>,
        "clinical_trial": <float>
    },
    "followup_schedule": {
        "grade_1": <int>,
        "grade_2": <int>,
        "grade_3": <int>
    }
}`

// BuildPrompt renders the fixed-schema elicitation prompt: the decision-tree
// description, the case narratives separated by blank lines, and the output
// schema instruction. An empty notes slice is allowed — the prompt simply
// carries no narratives.
func BuildPrompt(notes []string) string {
	var sb strings.Builder
	sb.WriteString("Based on the given decision tree and clinical notes, determine the probabilities observed for the given decisions \n\n")
	sb.WriteString("Decision Tree\n")
	sb.WriteString(decisionTree)
	sb.WriteString("\n\nClinical Notes:\n")
	sb.WriteString(strings.Join(notes, "\n\n"))
	sb.WriteString("\n\nYou must respond with ONLY a valid JSON object in this exact format, with no additional text or explanation:\n")
	sb.WriteString(responseFormat)
	sb.WriteString("\n\nReplace all <float> with numbers between 0 and 1, and <int> with whole numbers. ")
	sb.WriteString("For any branch with zero observed cases, report 0 for all probabilities under that branch. ")
	sb.WriteString("Do not include any comments, explanations, or additional text in your response. Only return the JSON object.")
	return sb.String()
}

// BuildTreePrompt renders the free-form tree-derivation prompt: instead of
// filling the fixed schema, the model is asked to invent a decision tree for
// the observed treatment pathway. The response is consumed verbatim after
// fence-stripping.
func BuildTreePrompt(notes []string) string {
	var sb strings.Builder
	sb.WriteString("From the following clinical notes, derive the treatment decision tree that the treating clinicians appear to be following. ")
	sb.WriteString("Include the decision points, their branches, and the observed branch frequencies as percentage edge labels where the notes support them.\n\n")
	sb.WriteString("Clinical Notes:\n")
	sb.WriteString(strings.Join(notes, "\n\n"))
	sb.WriteString("\n\nRespond with ONLY a Mermaid flowchart definition (flowchart TD), with no additional text or explanation.")
	return sb.String()
}
