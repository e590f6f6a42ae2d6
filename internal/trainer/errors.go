package trainer

import (
	"github.com/myrjola/aitrainer/internal/errors"
)

var (
	// ErrStepPrecondition is returned when a step is submitted, shown or edited before the steps it depends on.
	ErrStepPrecondition = errors.NewSentinel("step precondition not met")
	// ErrInvalidField matches every *FieldError.
	ErrInvalidField = errors.NewSentinel("invalid field")
	// ErrIncomplete is returned when the merged submission is requested before all records exist.
	ErrIncomplete = errors.NewSentinel("wizard incomplete")
	// ErrGenerationInProgress rejects a second generate call while the first is still running.
	ErrGenerationInProgress = errors.NewSentinel("plan generation already in progress")
	// ErrGeneration wraps failures of the plan generator.
	ErrGeneration = errors.NewSentinel("plan generation failed")
)

// FieldError describes one field that failed validation.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Reason
}

func (e *FieldError) Is(target error) bool {
	return target == ErrInvalidField
}

func invalid(field, reason string) error {
	return &FieldError{Field: field, Reason: reason}
}

// FieldErrors flattens the field errors in err into field name to reason.
func FieldErrors(err error) map[string]string {
	out := map[string]string{}
	collectFieldErrors(err, out)
	return out
}

func collectFieldErrors(err error, out map[string]string) {
	if err == nil {
		return
	}
	var fe *FieldError
	if joined, ok := err.(interface{ Unwrap() []error }); ok { //nolint:errorlint // walking the tree.
		for _, e := range joined.Unwrap() {
			collectFieldErrors(e, out)
		}
		return
	}
	if errors.As(err, &fe) {
		if prev, ok := out[fe.Field]; ok {
			out[fe.Field] = prev + "; " + fe.Reason
			return
		}
		out[fe.Field] = fe.Reason
	}
}
