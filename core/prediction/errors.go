package prediction

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilianp07/fleetcast/core/model"
)

var (
	// ErrNoBackend is the cause reported when no predictor was configured.
	ErrNoBackend = errors.New("no prediction backend configured")
	// ErrOutputShape is returned when a predictor returns a different number
	// of outputs than rows.
	ErrOutputShape = errors.New("predictor output length mismatch")
)

// BackendUnavailableError reports a predictor that failed to load or cannot
// be reached. It is not recoverable per request.
type BackendUnavailableError struct {
	Backend string
	Cause   error
}

func (e *BackendUnavailableError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("prediction backend %s unavailable", e.Backend)
	}
	return fmt.Sprintf("prediction backend %s unavailable: %v", e.Backend, e.Cause)
}

func (e *BackendUnavailableError) Unwrap() error { return e.Cause }

// Unavailable returns a backend that fails every call with a
// BackendUnavailableError wrapping cause.
func Unavailable(kind string, cause error) Backend {
	return unavailable{err: &BackendUnavailableError{Backend: kind, Cause: cause}}
}

type unavailable struct {
	err *BackendUnavailableError
}

func (u unavailable) Predict(context.Context, []model.FeatureRow) ([]model.PredictionResult, error) {
	return nil, u.err
}

func (u unavailable) Check() error { return u.err }

func (u unavailable) Kind() string { return u.err.Backend }
