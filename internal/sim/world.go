package sim

import (
	"fmt"
	"math/rand"
)

// Config describes the shape of a world before reset.
type Config struct {
	Zones             int     `json:"zones"`
	Shelters          int     `json:"shelters"`
	Resources         int     `json:"resources"`
	MaxTimesteps      int     `json:"max_timesteps"`
	DisasterIntensity float64 `json:"disaster_intensity"`
}

// DefaultConfig matches the configuration trained policies were fit
// against: 25 zones, 5 shelters, 10 resources, 100 steps.
func DefaultConfig() Config {
	return Config{
		Zones:             25,
		Shelters:          5,
		Resources:         10,
		MaxTimesteps:      100,
		DisasterIntensity: 0.5,
	}
}

// Validate rejects unusable configurations.
func (c Config) Validate() error {
	if c.Zones <= 0 {
		return fmt.Errorf("%w: zones must be positive, got %d", ErrBadConfig, c.Zones)
	}
	if c.Shelters <= 0 {
		return fmt.Errorf("%w: shelters must be positive, got %d", ErrBadConfig, c.Shelters)
	}
	if c.Resources <= 0 {
		return fmt.Errorf("%w: resources must be positive, got %d", ErrBadConfig, c.Resources)
	}
	if c.MaxTimesteps <= 0 {
		return fmt.Errorf("%w: max_timesteps must be positive, got %d", ErrBadConfig, c.MaxTimesteps)
	}
	if c.DisasterIntensity < 0 || c.DisasterIntensity > 1 {
		return fmt.Errorf("%w: disaster_intensity must be in [0,1], got %g", ErrBadConfig, c.DisasterIntensity)
	}
	return nil
}

// World is the complete mutable state of one disaster instance.
// Exactly one session owns a World; Step is its only mutator.
type World struct {
	Config Config
	Seed   int64

	Zones     []Zone
	Shelters  []Shelter
	Resources []Resource

	// Roads[i][j] is the passability of the link between zones i and j
	// in [0,1]. Degrades over time, never repairs.
	Roads [][]float64

	CurrentStep     int
	TotalCasualties float64
	TotalEvacuated  float64
	ResourcesUsed   int

	// Sum of initial zone populations, fixed at reset.
	totalPopulation float64

	// Per-world generator seeded at reset. Never a process global, so
	// concurrently stepped sessions stay independent and replayable.
	rng *rand.Rand
}

// NewWorld resets a fresh world from config and seed. The returned
// world is deterministic: same config and seed, same initial state.
func NewWorld(cfg Config, seed int64) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	w := &World{
		Config:    cfg,
		Seed:      seed,
		Zones:     make([]Zone, cfg.Zones),
		Shelters:  make([]Shelter, cfg.Shelters),
		Resources: make([]Resource, cfg.Resources),
		Roads:     make([][]float64, cfg.Zones),
		rng:       rand.New(rand.NewSource(seed)),
	}

	for i := range w.Zones {
		w.Zones[i] = Zone{
			ID:         i,
			Population: float64(100 + w.rng.Intn(900)),
		}
	}
	for i := range w.Zones {
		w.Zones[i].Risk = w.rng.Float64() * cfg.DisasterIntensity
	}
	for i := range w.Shelters {
		w.Shelters[i] = Shelter{
			ID:       i,
			Capacity: float64(200 + w.rng.Intn(300)),
		}
	}
	for i := range w.Resources {
		w.Resources[i] = Resource{
			ID:        i,
			Kind:      ResourceKind(i % 3),
			X:         w.rng.Float64(),
			Y:         w.rng.Float64(),
			Available: true,
		}
	}
	for i := range w.Roads {
		w.Roads[i] = make([]float64, cfg.Zones)
		for j := range w.Roads[i] {
			w.Roads[i][j] = 1.0
		}
	}

	for i := range w.Zones {
		w.totalPopulation += w.Zones[i].Population
	}

	return w, nil
}

// TotalPopulation returns the fixed sum of initial zone populations.
func (w *World) TotalPopulation() float64 { return w.totalPopulation }

// EvacuationRate is the fraction of the total population evacuated so far.
func (w *World) EvacuationRate() float64 {
	if w.totalPopulation == 0 {
		return 0
	}
	return w.TotalEvacuated / w.totalPopulation
}

// AverageRisk is the mean zone risk.
func (w *World) AverageRisk() float64 {
	if len(w.Zones) == 0 {
		return 0
	}
	sum := 0.0
	for i := range w.Zones {
		sum += w.Zones[i].Risk
	}
	return sum / float64(len(w.Zones))
}

// Info snapshots the running metrics.
func (w *World) Info() Info {
	return Info{
		Timestep:        w.CurrentStep,
		TotalCasualties: w.TotalCasualties,
		TotalEvacuated:  w.TotalEvacuated,
		EvacuationRate:  w.EvacuationRate(),
		ResourcesUsed:   w.ResourcesUsed,
		AverageRisk:     w.AverageRisk(),
	}
}
