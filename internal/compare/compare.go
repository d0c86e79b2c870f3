// Package compare scores a recorded human action trace against what
// the served policy would have done over the same observations.
package compare

import (
	"errors"
	"fmt"

	"github.com/talgya/crisis-sim/internal/policy"
	"github.com/talgya/crisis-sim/internal/sim"
)

// Sentinel errors for comparison input.
var (
	// ErrLengthMismatch means the observation and action traces do not
	// pair up positionally. Never silently truncated.
	ErrLengthMismatch = errors.New("observations and actions must have equal length")
	// ErrNoModel means comparison was requested with no trained
	// artifact loaded. Unlike predict, compare does not degrade to the
	// random policy: a random baseline says nothing about the human.
	ErrNoModel = errors.New("no trained model loaded")
)

// Divergence records one timestep where the human and the policy chose
// different action types. Only mismatches are recorded, so Match is
// always false on emitted records; the flag exists for wire symmetry.
type Divergence struct {
	Timestep        int        `json:"timestep"`
	HumanAction     sim.Action `json:"human_action"`
	AIAction        sim.Action `json:"ai_action"`
	ActionTypeMatch bool       `json:"action_type_match"`
}

// Result is the outcome of comparing one trace.
type Result struct {
	AgreementRate float64      `json:"agreement_rate"`
	AIActions     []sim.Action `json:"ai_actions"`
	TotalSteps    int          `json:"total_steps"`
	Divergences   []Divergence `json:"differences"`
}

// Run replays the observation trace through the policy in deterministic
// mode and scores agreement by action type. An empty trace yields an
// agreement rate of zero, not an error.
func Run(p policy.Policy, observations [][]float64, humanActions []sim.Action) (Result, error) {
	if len(observations) != len(humanActions) {
		return Result{}, fmt.Errorf("%w: %d observations, %d actions", ErrLengthMismatch, len(observations), len(humanActions))
	}
	if !p.Status().ModelLoaded {
		return Result{}, ErrNoModel
	}

	res := Result{
		AIActions:   make([]sim.Action, 0, len(observations)),
		Divergences: []Divergence{},
		TotalSteps:  len(humanActions),
	}

	agreements := 0
	for i, obs := range observations {
		aiAction, _, err := p.Predict(obs, true)
		if err != nil {
			return Result{}, fmt.Errorf("predict at step %d: %w", i, err)
		}
		res.AIActions = append(res.AIActions, aiAction)

		if humanActions[i].Type == aiAction.Type {
			agreements++
			continue
		}
		res.Divergences = append(res.Divergences, Divergence{
			Timestep:        i,
			HumanAction:     humanActions[i],
			AIAction:        aiAction,
			ActionTypeMatch: false,
		})
	}

	if res.TotalSteps > 0 {
		res.AgreementRate = float64(agreements) / float64(res.TotalSteps)
	}
	return res, nil
}
