package predictor

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/kilianp07/fleetcast/core/model"
)

// SimulationConfig shapes the synthetic demand.
type SimulationConfig struct {
	Seed          uint64    `json:"seed"`
	BaseTrips     float64   `json:"base_trips"`
	LoadFactor    float64   `json:"load_factor"`
	Seasonal      []float64 `json:"seasonal"`
	EntitySpread  float64   `json:"entity_spread"`
	YearlyGrowth  float64   `json:"yearly_growth"`
	ReferenceYear int       `json:"reference_year"`
}

// SetDefaults fills unset fields.
func (c *SimulationConfig) SetDefaults() {
	if c.BaseTrips <= 0 {
		c.BaseTrips = 400
	}
	if c.LoadFactor <= 0 {
		c.LoadFactor = 35
	}
	if c.EntitySpread <= 0 {
		c.EntitySpread = 0.1
	}
	if c.ReferenceYear == 0 {
		c.ReferenceYear = 2025
	}
}

// Simulation draws Poisson distributed trips and passengers. The draw for a
// row depends only on the seed and the row, so repeated calls agree. It is
// meant for demos and load tests, never for real planning.
type Simulation struct {
	cfg SimulationConfig
}

// NewSimulation returns a simulation backend for cfg.
func NewSimulation(cfg SimulationConfig) *Simulation {
	cfg.SetDefaults()
	return &Simulation{cfg: cfg}
}

func (s *Simulation) source(r model.FeatureRow) rand.Source {
	h := fnv.New64a()
	var b [24]byte
	for i, v := range []int{r.Year, r.Month, r.EntityCode} {
		u := uint64(int64(v))
		for j := 0; j < 8; j++ {
			b[i*8+j] = byte(u >> (8 * j))
		}
	}
	_, _ = h.Write(b[:])
	return rand.NewPCG(s.cfg.Seed, h.Sum64())
}

func (s *Simulation) mean(r model.FeatureRow) float64 {
	m := s.cfg.BaseTrips * (1 + s.cfg.EntitySpread*float64(r.EntityCode%5))
	if len(s.cfg.Seasonal) == 12 && r.Month >= 1 && r.Month <= 12 {
		m *= s.cfg.Seasonal[r.Month-1]
	} else {
		m *= 1 + 0.15*math.Cos(2*math.Pi*float64(r.Month-1)/12)
	}
	m *= math.Pow(1+s.cfg.YearlyGrowth, float64(r.Year-s.cfg.ReferenceYear))
	return math.Max(m, 1e-9)
}

// PredictJoint implements prediction.JointPredictor.
func (s *Simulation) PredictJoint(ctx context.Context, rows []model.FeatureRow) ([][2]float64, error) {
	out := make([][2]float64, len(rows))
	for i, r := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src := s.source(r)
		trips := distuv.Poisson{Lambda: s.mean(r), Src: src}.Rand()
		pass := distuv.Poisson{Lambda: math.Max(trips, 1e-9) * s.cfg.LoadFactor, Src: src}.Rand()
		out[i] = [2]float64{trips, pass}
	}
	return out, nil
}
