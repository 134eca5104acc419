package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrPositionUnavailable means no usable fix exists yet, or location use is not permitted.
	ErrPositionUnavailable = errors.New("current position unavailable")

	// ErrEmptyCandidateSet means there is nothing to draw from.
	ErrEmptyCandidateSet = errors.New("no candidate available")

	ErrValidation    = errors.New("validation failed")
	ErrConfiguration = errors.New("invalid weighting configuration")
)

// ValidationError rejects malformed add-location input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ConfigurationError reports weighting parameters that produce non-finite scores.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "weighting configuration: " + e.Reason
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }
