package sim

import "fmt"

// Normalization divisors. Soft: a pathological world (population over
// 1000) produces values above 1, and that is accepted rather than
// clamped away.
const (
	populationNorm = 1000.0
	casualtyNorm   = 100.0
	shelterNorm    = 500.0
)

// ObservationDim is the length of the encoded vector for a config:
// three blocks per zone, two per shelter, three per resource, the
// flattened road matrix, and the normalized timestep.
func ObservationDim(cfg Config) int {
	return 3*cfg.Zones + 2*cfg.Shelters + 3*cfg.Resources + cfg.Zones*cfg.Zones + 1
}

// ValidateObservation checks a vector's length against a config.
// Every consumer must do this before use; a policy trained against one
// layout silently misreads any other.
func ValidateObservation(obs []float64, cfg Config) error {
	if want := ObservationDim(cfg); len(obs) != want {
		return fmt.Errorf("%w: got %d values, want %d", ErrDimension, len(obs), want)
	}
	return nil
}

// Observe projects the world into its fixed-order normalized vector.
// Layout (order is part of the policy contract): zone populations,
// zone evacuated, zone casualties, shelter capacities, shelter
// occupancies, resource positions (x0,y0,x1,y1,...), resource
// availability, road matrix row-major, current step / max steps.
func (w *World) Observe() []float64 {
	obs := make([]float64, 0, ObservationDim(w.Config))

	for i := range w.Zones {
		obs = append(obs, w.Zones[i].Population/populationNorm)
	}
	for i := range w.Zones {
		obs = append(obs, w.Zones[i].Evacuated/populationNorm)
	}
	for i := range w.Zones {
		obs = append(obs, w.Zones[i].Casualties/casualtyNorm)
	}

	for i := range w.Shelters {
		obs = append(obs, w.Shelters[i].Capacity/shelterNorm)
	}
	for i := range w.Shelters {
		obs = append(obs, w.Shelters[i].Occupancy/shelterNorm)
	}

	for i := range w.Resources {
		obs = append(obs, w.Resources[i].X, w.Resources[i].Y)
	}
	for i := range w.Resources {
		if w.Resources[i].Available {
			obs = append(obs, 1)
		} else {
			obs = append(obs, 0)
		}
	}

	for i := range w.Roads {
		obs = append(obs, w.Roads[i]...)
	}

	obs = append(obs, float64(w.CurrentStep)/float64(w.Config.MaxTimesteps))
	return obs
}
