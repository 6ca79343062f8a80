package domain

import (
	"errors"
	"fmt"
)

var (
	ErrCapabilityUnavailable = errors.New("CAPABILITY_UNAVAILABLE")
	ErrUnauthenticated       = errors.New("UNAUTHENTICATED")
	ErrNoActionableOperation = errors.New("NO_ACTIONABLE_OPERATION")
	ErrMalformedOutput       = errors.New("MALFORMED_OUTPUT")
	ErrNoActiveLayers        = errors.New("NO_ACTIVE_LAYERS")
	ErrEmptyPrompt           = errors.New("EMPTY_PROMPT")
	ErrNoGateway             = errors.New("GATEWAY_NOT_CONFIGURED")
	ErrUnknownOperation      = errors.New("UNKNOWN_OPERATION")
	ErrLayerNotFound         = errors.New("LAYER_NOT_FOUND")
	ErrBackendFailed         = errors.New("BACKEND_FAILED")
)

// ErrorCategory groups failures by how they surface to the user.
type ErrorCategory string

const (
	CategoryInput          ErrorCategory = "input"
	CategoryGateway        ErrorCategory = "gateway"
	CategoryValidation     ErrorCategory = "validation"
	CategoryExecution      ErrorCategory = "execution"
	CategoryPostProcessing ErrorCategory = "post_processing"
)

// StageError is a categorised failure of one request stage.
type StageError struct {
	Category ErrorCategory
	Message  string
	Err      error
}

func (e *StageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError builds a StageError.
func NewStageError(category ErrorCategory, message string, err error) *StageError {
	return &StageError{Category: category, Message: message, Err: err}
}
