package domain

import (
	"errors"
	"fmt"
)

// FailureReason tags why a prediction could not be produced.
type FailureReason string

const (
	ReasonInvalidInput     FailureReason = "invalid_input"
	ReasonInvalidDate      FailureReason = "invalid_date"
	ReasonFacilityNotFound FailureReason = "facility_not_found"
	ReasonUnknownCategory  FailureReason = "unknown_category"
	ReasonModelUnavailable FailureReason = "model_unavailable"
	ReasonInternal         FailureReason = "internal"
)

var failureMessages = map[FailureReason]string{
	ReasonInvalidInput:     "Stock level and reorder level must be valid numbers.",
	ReasonInvalidDate:      "Last restock date must be a valid date (YYYY-MM-DD).",
	ReasonFacilityNotFound: "Facility not found in database.",
	ReasonUnknownCategory:  "This item's category is not supported by the prediction model.",
	ReasonModelUnavailable: "The prediction model is currently unavailable. Please try again later.",
	ReasonInternal:         "Prediction failed due to an internal error.",
}

// Message returns the fixed user-facing message for the reason.
func (r FailureReason) Message() string {
	if msg, ok := failureMessages[r]; ok {
		return msg
	}
	return failureMessages[ReasonInternal]
}

var (
	ErrFacilityNotFound = errors.New("facility not found")
	ErrItemNotFound     = errors.New("item not found")
	ErrNoItems          = errors.New("no items found")
)

// PredictionError is a tagged prediction failure. Err holds internal detail for logs only.
type PredictionError struct {
	Reason FailureReason
	Err    error
}

// NewPredictionError wraps err with a failure reason.
func NewPredictionError(reason FailureReason, err error) *PredictionError {
	return &PredictionError{Reason: reason, Err: err}
}

func (e *PredictionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return string(e.Reason)
}

func (e *PredictionError) Unwrap() error { return e.Err }

// UserMessage is the text safe to show to end users.
func (e *PredictionError) UserMessage() string {
	return e.Reason.Message()
}

// ReasonOf extracts the failure reason from err, defaulting to ReasonInternal.
func ReasonOf(err error) FailureReason {
	var pe *PredictionError
	if errors.As(err, &pe) {
		return pe.Reason
	}
	return ReasonInternal
}
