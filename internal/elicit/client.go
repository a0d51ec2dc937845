// Package elicit implements probability elicitation: it prompts a
// text-generation model to infer branch probabilities for the fixed
// meningioma treatment decision tree from free-text clinical notes, and
// parses the model's JSON answer into a typed ProbabilityRecord.
package elicit

import "context"

// Mode is the treatment style a set of clinical notes describes. Each case in
// the bundled dataset carries one narrative per mode; the caller selects the
// narratives before invoking the Elicitor.
type Mode string

const (
	ModeAggressive   Mode = "aggressive"
	ModeConservative Mode = "conservative"
)

// ParseMode converts a wire string ("aggressive" / "conservative") into a
// Mode. Unknown values return ok=false.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeAggressive, ModeConservative:
		return Mode(s), true
	}
	return "", false
}

// Elicitor is the interface the HTTP layer uses to talk to a model provider.
// The concrete implementations live in anthropic.go and deepseek.go.
// Tests inject a stub that returns canned responses.
type Elicitor interface {
	// Elicit builds the fixed-schema prompt from the given clinical notes,
	// submits it, and returns the parsed, key-validated ProbabilityRecord.
	//
	// notes may be empty — the prompt is still sent and the model's behaviour
	// is best-effort. A single attempt is made; there are no retries. Errors
	// are always *Error values (service failure, invalid format, or
	// incomplete response).
	//
	// Implementations must be safe to call concurrently.
	Elicit(ctx context.Context, notes []string, mode Mode) (*ProbabilityRecord, error)

	// DeriveTree asks the model to invent a decision-tree diagram from the
	// notes, with no fixed output schema. The returned text is the model
	// output verbatim after fence-stripping — no JSON parse, no validation.
	DeriveTree(ctx context.Context, notes []string) (string, error)
}
