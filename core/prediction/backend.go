package prediction

import (
	"context"
	"fmt"

	"github.com/kilianp07/fleetcast/core/model"
)

// Option configures the joint and split adapters.
type Option func(*adapterConfig)

type adapterConfig struct {
	batchSize int
	contract  OutputContract
	kind      string
}

// WithBatchSize caps the number of rows sent to a predictor per call. Zero
// sends every row in a single call.
func WithBatchSize(n int) Option {
	return func(c *adapterConfig) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithContract sets the output contract applied to raw values.
func WithContract(oc OutputContract) Option {
	return func(c *adapterConfig) { c.contract = oc }
}

// WithKind names the backend in logs, health reports and errors.
func WithKind(kind string) Option {
	return func(c *adapterConfig) { c.kind = kind }
}

func newAdapterConfig(kind string, opts []Option) adapterConfig {
	c := adapterConfig{kind: kind}
	for _, o := range opts {
		o(&c)
	}
	return c
}

// chunks calls fn for consecutive slices of rows of at most size elements.
func chunks(rows []model.FeatureRow, size int, fn func(lo, hi int) error) error {
	if size <= 0 || size > len(rows) {
		size = len(rows)
	}
	for lo := 0; lo < len(rows); lo += size {
		hi := min(lo+size, len(rows))
		if err := fn(lo, hi); err != nil {
			return err
		}
	}
	return nil
}

// JointBackend adapts a JointPredictor.
type JointBackend struct {
	p   JointPredictor
	cfg adapterConfig
}

// NewJointBackend wraps p.
func NewJointBackend(p JointPredictor, opts ...Option) *JointBackend {
	return &JointBackend{p: p, cfg: newAdapterConfig("joint", opts)}
}

// Predict slices each joint output into trips and passengers.
func (b *JointBackend) Predict(ctx context.Context, rows []model.FeatureRow) ([]model.PredictionResult, error) {
	if b.p == nil {
		return nil, &BackendUnavailableError{Backend: b.cfg.kind, Cause: ErrNoBackend}
	}
	out := make([]model.PredictionResult, len(rows))
	err := chunks(rows, b.cfg.batchSize, func(lo, hi int) error {
		raw, err := b.p.PredictJoint(ctx, rows[lo:hi])
		if err != nil {
			return err
		}
		if len(raw) != hi-lo {
			return fmt.Errorf("%s: %w: got %d outputs for %d rows", b.cfg.kind, ErrOutputShape, len(raw), hi-lo)
		}
		for i, v := range raw {
			out[lo+i] = b.cfg.contract.Result(v[0], v[1])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Check reports a missing predictor.
func (b *JointBackend) Check() error {
	if b.p == nil {
		return &BackendUnavailableError{Backend: b.cfg.kind, Cause: ErrNoBackend}
	}
	return nil
}

// Kind returns the configured backend name.
func (b *JointBackend) Kind() string { return b.cfg.kind }

// Ping forwards to the predictor when it can reach a remote service.
func (b *JointBackend) Ping(ctx context.Context) error {
	if p, ok := b.p.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// SplitBackend adapts two independent TargetPredictors.
type SplitBackend struct {
	trips      TargetPredictor
	passengers TargetPredictor
	cfg        adapterConfig
}

// NewSplitBackend wraps one predictor per target.
func NewSplitBackend(trips, passengers TargetPredictor, opts ...Option) *SplitBackend {
	return &SplitBackend{trips: trips, passengers: passengers, cfg: newAdapterConfig("split", opts)}
}

// Predict calls both predictors on each batch and zips their outputs.
func (b *SplitBackend) Predict(ctx context.Context, rows []model.FeatureRow) ([]model.PredictionResult, error) {
	if err := b.Check(); err != nil {
		return nil, err
	}
	out := make([]model.PredictionResult, len(rows))
	err := chunks(rows, b.cfg.batchSize, func(lo, hi int) error {
		batch := rows[lo:hi]
		trips, err := b.trips.PredictTarget(ctx, batch)
		if err != nil {
			return fmt.Errorf("trips: %w", err)
		}
		pass, err := b.passengers.PredictTarget(ctx, batch)
		if err != nil {
			return fmt.Errorf("passengers: %w", err)
		}
		if len(trips) != len(batch) || len(pass) != len(batch) {
			return fmt.Errorf("%s: %w: got %d trips and %d passengers for %d rows",
				b.cfg.kind, ErrOutputShape, len(trips), len(pass), len(batch))
		}
		for i := range batch {
			out[lo+i] = b.cfg.contract.Result(trips[i], pass[i])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Check reports a missing predictor.
func (b *SplitBackend) Check() error {
	if b.trips == nil || b.passengers == nil {
		return &BackendUnavailableError{Backend: b.cfg.kind, Cause: ErrNoBackend}
	}
	return nil
}

// Kind returns the configured backend name.
func (b *SplitBackend) Kind() string { return b.cfg.kind }

// Ping forwards to each predictor that can reach a remote service.
func (b *SplitBackend) Ping(ctx context.Context) error {
	for _, t := range []TargetPredictor{b.trips, b.passengers} {
		if p, ok := t.(Pinger); ok {
			if err := p.Ping(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}
