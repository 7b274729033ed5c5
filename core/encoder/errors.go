package encoder

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFitted is returned by lookups on an encoder that was never fit.
	ErrNotFitted = errors.New("encoder not fitted")
	// ErrNoLabels is returned when Fit receives an empty label set.
	ErrNoLabels = errors.New("no labels to fit")
	// ErrEmptyLabel is returned when a label normalizes to the empty string.
	ErrEmptyLabel = errors.New("label is empty after normalization")
)

// DuplicateFitError is returned when Fit is called on an already fitted encoder.
type DuplicateFitError struct {
	Labels int
}

func (e *DuplicateFitError) Error() string {
	return fmt.Sprintf("encoder already fitted with %d labels", e.Labels)
}

// UnknownCategoryError is returned when a label was not seen at fit time.
// Known lists every fitted label so callers can report the valid choices.
type UnknownCategoryError struct {
	Label string
	Known []string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("entity %q not recognized, available: [%s]", e.Label, strings.Join(e.Known, ", "))
}

// InvalidCodeError is returned by Decode for out of range codes.
type InvalidCodeError struct {
	Code int
	Size int
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("code %d out of range [0,%d)", e.Code, e.Size)
}
