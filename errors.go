package lexrag

import "errors"

var (
	// ErrKBDisabled is returned internally when the knowledge base
	// feature flag is off. Public entry points degrade instead of
	// surfacing it.
	ErrKBDisabled = errors.New("lexrag: knowledge base is disabled")

	// ErrEmptyQuestion is returned for blank input.
	ErrEmptyQuestion = errors.New("lexrag: question is empty")

	// ErrRetrievalFailed is returned when every retrieval strategy
	// failed against the upstream KB.
	ErrRetrievalFailed = errors.New("lexrag: retrieval failed")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("lexrag: invalid configuration")
)
