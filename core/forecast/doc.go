// Package forecast composes the calendar walker, the entity encoder and the
// prediction backend into period-indexed fleet forecasts.
//
// The Orchestrator is a pure function of its inputs and the artifact bundle
// it reads at the start of each call. Side effects (metrics, audit records,
// caching) live in decorators that implement the same Forecaster interface.
package forecast
