package elicit

import (
	"context"
	"errors"
	"log/slog"
)

// fallbackElicitor wraps two Elicitor implementations. It calls the primary
// first; on a provider-availability failure it logs and tries the secondary.
//
// Only KindServiceFailure triggers the fallback. A parse or key-validation
// failure means the primary provider WAS reachable and simply answered badly
// — re-asking a different model would be a retry, and the elicitation
// contract is single-attempt. Those errors surface directly.
type fallbackElicitor struct {
	primary   Elicitor
	secondary Elicitor
	logger    *slog.Logger
}

// NewFallbackElicitor returns an Elicitor that calls primary and, on a
// service failure, falls back to secondary. Either argument may be nil — if
// primary is nil it goes straight to secondary; if secondary is nil and
// primary fails, the primary error is returned directly.
func NewFallbackElicitor(primary, secondary Elicitor, logger *slog.Logger) Elicitor {
	return &fallbackElicitor{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}
}

func (f *fallbackElicitor) Elicit(ctx context.Context, notes []string, mode Mode) (*ProbabilityRecord, error) {
	if f.primary != nil {
		rec, err := f.primary.Elicit(ctx, notes, mode)
		if err == nil {
			return rec, nil
		}
		if !f.shouldFallBack(err, "elicit", mode) {
			return nil, err
		}
	}
	return f.secondary.Elicit(ctx, notes, mode)
}

func (f *fallbackElicitor) DeriveTree(ctx context.Context, notes []string) (string, error) {
	if f.primary != nil {
		text, err := f.primary.DeriveTree(ctx, notes)
		if err == nil {
			return text, nil
		}
		if !f.shouldFallBack(err, "derive_tree", "") {
			return "", err
		}
	}
	return f.secondary.DeriveTree(ctx, notes)
}

// shouldFallBack reports whether the secondary should be tried for err.
// It returns false when there is no secondary — the caller then surfaces the
// primary error — and false for non-service failures.
func (f *fallbackElicitor) shouldFallBack(err error, op string, mode Mode) bool {
	var ee *Error
	if errors.As(err, &ee) && ee.Kind != KindServiceFailure {
		return false
	}
	if f.secondary == nil {
		return false
	}
	f.logger.Warn("elicit: primary provider failed, trying secondary",
		"op", op,
		"mode", mode,
		"error", err,
	)
	return true
}
