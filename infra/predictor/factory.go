package predictor

import (
	"fmt"
	"strings"

	"github.com/kilianp07/fleetcast/core/factory"
	"github.com/kilianp07/fleetcast/core/prediction"
)

// AdapterConfig holds the settings shared by every backend type.
type AdapterConfig struct {
	Mode      string `json:"mode"`
	Decimals  int    `json:"decimals"`
	BatchSize int    `json:"batch_size"`
}

func (a AdapterConfig) options(kind string) []prediction.Option {
	return []prediction.Option{
		prediction.WithKind(kind),
		prediction.WithBatchSize(a.BatchSize),
		prediction.WithContract(prediction.OutputContract{Decimals: a.Decimals}),
	}
}

// LinearConfig is the "linear" backend configuration.
type LinearConfig struct {
	Entities   int          `json:"entities"`
	Trips      Coefficients `json:"trips"`
	Passengers Coefficients `json:"passengers"`
}

func init() {
	must(prediction.RegisterBackend("linear", newLinearBackend))
	must(prediction.RegisterBackend("remote", newRemoteBackend))
	must(prediction.RegisterBackend("simulation", newSimulationBackend))
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func decode(conf map[string]any, out any) (AdapterConfig, error) {
	var a AdapterConfig
	if err := factory.Decode(conf, &a); err != nil {
		return a, err
	}
	if err := factory.Decode(conf, out); err != nil {
		return a, err
	}
	a.Mode = strings.ToLower(a.Mode)
	return a, nil
}

func newLinearBackend(conf map[string]any) (prediction.Backend, error) {
	var c LinearConfig
	a, err := decode(conf, &c)
	if err != nil {
		return nil, err
	}
	if err := c.Trips.Validate(c.Entities); err != nil {
		return nil, fmt.Errorf("trips: %w", err)
	}
	if err := c.Passengers.Validate(c.Entities); err != nil {
		return nil, fmt.Errorf("passengers: %w", err)
	}
	switch a.Mode {
	case "", "joint":
		return prediction.NewJointBackend(NewLinear(c.Trips, c.Passengers), a.options("linear")...), nil
	case "split":
		return prediction.NewSplitBackend(NewLinearTarget(c.Trips), NewLinearTarget(c.Passengers), a.options("linear")...), nil
	default:
		return nil, fmt.Errorf("unknown mode %q (joint or split)", a.Mode)
	}
}

func newRemoteBackend(conf map[string]any) (prediction.Backend, error) {
	var c RemoteConfig
	a, err := decode(conf, &c)
	if err != nil {
		return nil, err
	}
	r, err := NewRemote(c)
	if err != nil {
		return nil, err
	}
	return prediction.NewJointBackend(r, a.options("remote")...), nil
}

func newSimulationBackend(conf map[string]any) (prediction.Backend, error) {
	var c SimulationConfig
	a, err := decode(conf, &c)
	if err != nil {
		return nil, err
	}
	return prediction.NewJointBackend(NewSimulation(c), a.options("simulation")...), nil
}
