package elicit

import (
	"fmt"
	"strings"
)

// Kind classifies an elicitation failure. The HTTP layer maps each kind to
// the error envelope it returns to the client; none are retried.
type Kind string

const (
	// KindServiceFailure covers network and provider errors — the model was
	// never heard from, or answered with an API-level error.
	KindServiceFailure Kind = "service_failure"

	// KindInvalidFormat means the model answered, but the fence-stripped text
	// was not parseable JSON (or did not decode into the record shape).
	KindInvalidFormat Kind = "invalid_format"

	// KindIncompleteResponse means the model returned valid JSON that is
	// missing required keys.
	KindIncompleteResponse Kind = "incomplete_response"
)

// Error is the failure type every Elicitor method returns. Raw carries the
// cleaned model output for diagnostics — it is never silently replaced with a
// default record.
type Error struct {
	Kind        Kind
	Detail      string
	Raw         string   // fence-stripped model text, set for format/key errors
	MissingKeys []string // set for KindIncompleteResponse, in check order
	Err         error    // underlying cause, if any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("elicit: %s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("elicit: %s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

func serviceFailure(detail string, err error) *Error {
	return &Error{Kind: KindServiceFailure, Detail: detail, Err: err}
}

func invalidFormat(raw string, err error) *Error {
	return &Error{Kind: KindInvalidFormat, Detail: err.Error(), Raw: raw, Err: err}
}

func incompleteResponse(raw string, missing []string) *Error {
	return &Error{
		Kind:        KindIncompleteResponse,
		Detail:      "missing required keys: " + strings.Join(missing, ", "),
		Raw:         raw,
		MissingKeys: missing,
	}
}
