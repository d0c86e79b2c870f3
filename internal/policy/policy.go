// Package policy provides the decision capability behind the serving
// layer: a trained artifact when one loads, a uniform random policy
// otherwise. The serving process stays up either way; which one is
// active is visible only through Status.
package policy

import (
	"math/rand"
	"sync"

	"github.com/talgya/crisis-sim/internal/sim"
)

// Confidence constants. These are reporting placeholders, not
// probabilities derived from the policy distribution; callers must not
// treat them as calibrated.
const (
	TrainedConfidence = 0.85
	RandomConfidence  = 0.0
)

// Policy maps an observation to an action and a confidence score.
// Implementations must be safe for concurrent Predict calls across
// sessions.
type Policy interface {
	// Predict returns the chosen action. With deterministic=true the
	// same observation yields the same action for the process lifetime.
	Predict(obs []float64, deterministic bool) (sim.Action, float64, error)
	// Status reports what is actually serving decisions.
	Status() Status
}

// Status describes the loaded decision artifact, if any.
type Status struct {
	ModelLoaded bool   `json:"model_loaded"`
	ModelPath   string `json:"model_path,omitempty"`
	ModelType   string `json:"model_type"`
}

// Random is the fallback policy: every component of the action triple
// drawn independently and uniformly. Confidence is always zero.
type Random struct {
	resources int
	zones     int

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom builds a uniform policy over the given action ranges.
func NewRandom(cfg sim.Config, seed int64) *Random {
	return &Random{
		resources: cfg.Resources,
		zones:     cfg.Zones,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// Predict draws a uniform action. The deterministic flag is ignored:
// there is no artifact to be deterministic about.
func (r *Random) Predict(obs []float64, deterministic bool) (sim.Action, float64, error) {
	r.mu.Lock()
	t := r.rng.Intn(5)
	res := r.rng.Intn(r.resources)
	zone := r.rng.Intn(r.zones)
	r.mu.Unlock()

	at, err := sim.ActionTypeFromWire(t)
	if err != nil {
		return sim.Action{}, 0, err
	}
	return sim.Action{Type: at, Resource: res, Zone: zone}, RandomConfidence, nil
}

// Status reports that no model is loaded.
func (r *Random) Status() Status {
	return Status{ModelLoaded: false, ModelType: "random"}
}
