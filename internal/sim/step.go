package sim

import (
	"fmt"
	"math"
)

// Tunables of the transition model. Trained policy artifacts assume
// these exact values; changing them invalidates every artifact.
const (
	maxEvacueesPerAction = 50
	riskReductionFactor  = 0.9
	riskGrowthFactor     = 1.02
	maxRoadDecayPerStep  = 0.01
	casualtyRate         = 0.01

	casualtyPenaltyWeight = 100
	evacuationWeight      = 50
	resourceUsePenalty    = 0.1
	failedActionPenalty   = 5
	efficiencyBonus       = 100
)

// Step applies one action and advances the disaster by one timestep.
// A failed action never aborts the step: disaster progression and
// casualty accrual run regardless, and the failure only shows up in
// ActionSuccess and the reward. The returned error is reserved for
// actions that are malformed for this world (out-of-range indices).
func (w *World) Step(a Action) (StepResult, error) {
	if a.Resource < 0 || a.Resource >= len(w.Resources) {
		return StepResult{}, fmt.Errorf("%w: resource id %d out of range [0,%d)", ErrBadAction, a.Resource, len(w.Resources))
	}
	if a.Zone < 0 || a.Zone >= len(w.Zones) {
		return StepResult{}, fmt.Errorf("%w: zone id %d out of range [0,%d)", ErrBadAction, a.Zone, len(w.Zones))
	}

	success := w.execute(a)

	w.progressDisaster()

	newCasualties := w.accrueCasualties()
	w.TotalCasualties += newCasualties

	reward := w.reward(newCasualties, success)

	w.CurrentStep++
	terminated := w.CurrentStep >= w.Config.MaxTimesteps

	return StepResult{
		Observation:   w.Observe(),
		Reward:        reward,
		Terminated:    terminated,
		Truncated:     false,
		ActionSuccess: success,
		Info:          w.Info(),
	}, nil
}

// execute performs the action's effect and reports success. An
// unavailable resource fails every action type before any effect.
func (w *World) execute(a Action) bool {
	if !w.Resources[a.Resource].Available {
		return false
	}

	switch a.Type {
	case EvacuateZone:
		z := &w.Zones[a.Zone]
		evacuees := math.Min(z.Population-z.Evacuated, maxEvacueesPerAction)
		if evacuees <= 0 {
			return false
		}
		// First shelter with spare capacity takes the load, in fixed
		// index order. Zones carry no coordinates, so there is no
		// nearest-shelter notion to prefer.
		for i := range w.Shelters {
			s := &w.Shelters[i]
			spare := s.Capacity - s.Occupancy
			if spare > 0 {
				moved := math.Min(evacuees, spare)
				z.Evacuated += moved
				s.Occupancy += moved
				w.TotalEvacuated += moved
				w.ResourcesUsed++
				return true
			}
		}
		return false

	case SendAmbulance, SendMedicalTeam, SendSupplyTruck:
		w.Zones[a.Zone].Risk *= riskReductionFactor
		w.ResourcesUsed++
		return true
	}

	// OpenShelter has no defined effect in this model.
	return false
}

// progressDisaster intensifies zone risk and degrades road links.
// Runs every step no matter what the action did.
func (w *World) progressDisaster() {
	for i := range w.Zones {
		w.Zones[i].Risk = clamp01(w.Zones[i].Risk * riskGrowthFactor)
	}
	for i := range w.Roads {
		for j := range w.Roads[i] {
			decay := w.rng.Float64() * maxRoadDecayPerStep
			w.Roads[i][j] = clamp01(w.Roads[i][j] - decay)
		}
	}
}

// accrueCasualties draws this step's casualties from each zone's
// unprotected population at the current (post-progression) risk.
// Casualties are never removed from Population, so a zone's
// Evacuated+Casualties can exceed Population over a long run. The
// reference model behaves this way; keep it until the model changes.
func (w *World) accrueCasualties() float64 {
	total := 0.0
	for i := range w.Zones {
		z := &w.Zones[i]
		unprotected := z.Population - z.Evacuated
		c := unprotected * z.Risk * casualtyRate
		z.Casualties += c
		total += c
	}
	return total
}

// reward scores the step. All terms except new casualties and the
// failure penalty accumulate against running totals.
func (w *World) reward(newCasualties float64, success bool) float64 {
	r := -newCasualties * casualtyPenaltyWeight

	rate := w.EvacuationRate()
	r += rate * evacuationWeight
	r -= float64(w.ResourcesUsed) * resourceUsePenalty

	if !success {
		r -= failedActionPenalty
	}
	if rate > 0.8 && w.TotalCasualties < 10 {
		r += efficiencyBonus
	}
	return r
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
