package generator

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable means the generation service failed after the retry
	// budget was exhausted.
	ErrUnavailable = errors.New("generation service unavailable")
	// ErrContentRejected means the service refused the request on content
	// policy grounds. Never retried.
	ErrContentRejected = errors.New("generation request rejected by content policy")
)

// Generator bridges to the external text-generation service. Implementations
// own timeout and retry policy, never mutate session state, and report
// failure only through the typed errors above.
type Generator interface {
	Generate(ctx context.Context, spec PromptSpec) (string, error)
}
