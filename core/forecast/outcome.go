package forecast

import (
	"context"
	"errors"

	"github.com/kilianp07/fleetcast/core/calendar"
	"github.com/kilianp07/fleetcast/core/encoder"
	"github.com/kilianp07/fleetcast/core/model"
	"github.com/kilianp07/fleetcast/core/prediction"
)

// Outcome labels used in metrics and audit records.
const (
	OutcomeOK                 = "ok"
	OutcomeUnknownEntity      = "unknown_entity"
	OutcomeInvalidHorizon     = "invalid_horizon"
	OutcomeInvalidPeriod      = "invalid_period"
	OutcomeBackendUnavailable = "backend_unavailable"
	OutcomeCanceled           = "canceled"
	OutcomeError              = "error"
)

// Outcome classifies err into one of the outcome labels.
func Outcome(err error) string {
	var (
		unk *encoder.UnknownCategoryError
		ih  *calendar.InvalidHorizonError
		ip  *model.InvalidPeriodError
		bu  *prediction.BackendUnavailableError
	)
	switch {
	case err == nil:
		return OutcomeOK
	case errors.As(err, &unk):
		return OutcomeUnknownEntity
	case errors.As(err, &ih):
		return OutcomeInvalidHorizon
	case errors.As(err, &ip):
		return OutcomeInvalidPeriod
	case errors.As(err, &bu):
		return OutcomeBackendUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	}
	return OutcomeError
}

// IsClientError reports whether err was caused by the request itself.
func IsClientError(err error) bool {
	switch Outcome(err) {
	case OutcomeUnknownEntity, OutcomeInvalidHorizon, OutcomeInvalidPeriod:
		return true
	}
	return false
}

type requestIDKey struct{}

// WithRequestID attaches a request identifier to ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the identifier set by WithRequestID.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// ErrorInfo is the client facing description of a failed request.
type ErrorInfo struct {
	Error       string   `json:"error"`
	Code        string   `json:"code"`
	KnownLabels []string `json:"known_labels,omitempty"`
}

// Describe builds the ErrorInfo for err. Unknown entities carry the known
// labels so callers can correct the request.
func Describe(err error) ErrorInfo {
	info := ErrorInfo{Error: err.Error(), Code: Outcome(err)}
	var unk *encoder.UnknownCategoryError
	if errors.As(err, &unk) {
		info.KnownLabels = unk.Known
	}
	return info
}
