package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/talgya/crisis-sim/internal/compare"
	"github.com/talgya/crisis-sim/internal/sim"
)

// Illustrative probabilities attached to the synthetic alternative
// actions in explain responses. Presentation placeholders, not a
// sampled distribution.
const (
	altResourceProbability = 0.10
	altZoneProbability     = 0.05
)

type observationRequest struct {
	Observation []float64 `json:"observation"`
	SessionID   string    `json:"session_id,omitempty"`
}

type predictResponse struct {
	Action      []int   `json:"action"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
}

func (s *Server) handleModelStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Policy.Status())
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req observationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := sim.ValidateObservation(req.Observation, s.Cfg); err != nil {
		writeError(w, err)
		return
	}

	action, confidence, err := s.Policy.Predict(req.Observation, true)
	if err != nil {
		writeError(w, err)
		return
	}

	explanation := fmt.Sprintf("Action: %s - Resource #%d to Zone #%d", action.Type, action.Resource, action.Zone)
	if !s.Policy.Status().ModelLoaded {
		explanation = "Random action (no model loaded)"
	}

	slog.Debug("predict", "session", req.SessionID, "action", action.Wire(), "confidence", confidence)
	writeJSON(w, predictResponse{
		Action:      action.Wire(),
		Confidence:  confidence,
		Explanation: explanation,
	})
}

type alternativeAction struct {
	Action      []int   `json:"action"`
	Probability float64 `json:"probability"`
}

type explainResponse struct {
	Action             []int               `json:"action"`
	ActionDescription  string              `json:"action_description"`
	Reasoning          []string            `json:"reasoning"`
	Confidence         float64             `json:"confidence"`
	AlternativeActions []alternativeAction `json:"alternative_actions"`
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	var req observationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := sim.ValidateObservation(req.Observation, s.Cfg); err != nil {
		writeError(w, err)
		return
	}

	action, confidence, err := s.Policy.Predict(req.Observation, true)
	if err != nil {
		writeError(w, err)
		return
	}

	// The reasoning bullets are fixed narrative, not model
	// introspection; the alternatives are synthesized by rotating the
	// resource and zone indices.
	resp := explainResponse{
		Action:            action.Wire(),
		ActionDescription: fmt.Sprintf("%s to Zone %d", action.Type, action.Zone),
		Reasoning: []string{
			"High casualty risk detected in target zone",
			"Resource availability confirmed",
			"Road network accessible",
			"Shelter capacity available",
		},
		Confidence: confidence,
		AlternativeActions: []alternativeAction{
			{
				Action:      []int{action.Type.Wire(), (action.Resource + 1) % s.Cfg.Resources, action.Zone},
				Probability: altResourceProbability,
			},
			{
				Action:      []int{action.Type.Wire(), action.Resource, (action.Zone + 1) % s.Cfg.Zones},
				Probability: altZoneProbability,
			},
		},
	}
	if !s.Policy.Status().ModelLoaded {
		resp.Reasoning = []string{"No model loaded; action drawn uniformly at random"}
	}
	writeJSON(w, resp)
}

type evaluateRequest struct {
	Observations [][]float64  `json:"observations"`
	HumanActions []sim.Action `json:"human_actions"`
	SessionID    string       `json:"session_id,omitempty"`
}

type evaluateResponse struct {
	AgreementRate float64              `json:"agreement_rate"`
	AIActions     []sim.Action         `json:"ai_actions"`
	TotalSteps    int                  `json:"total_steps"`
	Differences   []compare.Divergence `json:"differences"`
}

// handleEvaluate compares a human trace against the policy. The trace
// comes inline or, when a session id is given, from the recorded human
// steps of that session.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	observations := req.Observations
	humanActions := req.HumanActions
	if req.SessionID != "" {
		if s.Store == nil {
			http.Error(w, "trace storage disabled", http.StatusNotImplemented)
			return
		}
		trace, err := s.Store.LoadTrace(req.SessionID)
		if err != nil {
			writeError(w, err)
			return
		}
		observations = observations[:0]
		humanActions = humanActions[:0]
		for _, rec := range trace {
			if rec.Source != "human" {
				continue
			}
			observations = append(observations, rec.Observation)
			humanActions = append(humanActions, rec.Action)
		}
	}

	for i, obs := range observations {
		if err := sim.ValidateObservation(obs, s.Cfg); err != nil {
			writeError(w, fmt.Errorf("observation %d: %w", i, err))
			return
		}
	}

	result, err := compare.Run(s.Policy, observations, humanActions)
	if err != nil {
		writeError(w, err)
		return
	}

	slog.Info("strategy evaluated",
		"session", req.SessionID,
		"steps", result.TotalSteps,
		"agreement_rate", fmt.Sprintf("%.2f", result.AgreementRate),
	)
	writeJSON(w, evaluateResponse{
		AgreementRate: result.AgreementRate,
		AIActions:     result.AIActions,
		TotalSteps:    result.TotalSteps,
		Differences:   result.Divergences,
	})
}
