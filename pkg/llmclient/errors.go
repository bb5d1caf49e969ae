package llmclient

import "errors"

// Sentinel causes the retry wrapper pattern-matches on (spec §7's
// rate_limited/transient kinds).
var (
	ErrRateLimit     = errors.New("llmclient: rate limit exceeded")
	ErrEmptyResponse = errors.New("llmclient: empty response")
	ErrRefusal       = errors.New("llmclient: model refused to respond")
)

// RateLimitError reports a provider rate-limit rejection with an optional
// message.
type RateLimitError struct {
	Message string
}

func (e *RateLimitError) Error() string {
	if e.Message == "" {
		return ErrRateLimit.Error()
	}
	return e.Message
}

func (e *RateLimitError) Is(target error) bool {
	_, ok := target.(*RateLimitError)
	return ok
}

// NewRateLimitError constructs a RateLimitError with an optional message.
func NewRateLimitError(message string) *RateLimitError {
	return &RateLimitError{Message: message}
}

// RefusalError reports a model safety refusal, which is not retryable.
type RefusalError struct {
	Message string
}

func (e *RefusalError) Error() string { return e.Message }

func (e *RefusalError) Is(target error) bool {
	_, ok := target.(*RefusalError)
	return ok
}

// NewRefusalError constructs a RefusalError.
func NewRefusalError(message string) *RefusalError {
	return &RefusalError{Message: message}
}
