package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/talgya/crisis-sim/internal/session"
	"github.com/talgya/crisis-sim/internal/sim"
	"github.com/talgya/crisis-sim/internal/store"
)

func storeRecord(timestep int, a sim.Action, source string, res sim.StepResult, preObs []float64) store.StepRecord {
	return store.StepRecord{
		Timestep:    timestep,
		Action:      a,
		Source:      source,
		Success:     res.ActionSuccess,
		Reward:      res.Reward,
		Observation: preObs,
	}
}

type sessionCreateRequest struct {
	ScenarioID string      `json:"scenario_id,omitempty"`
	Config     *sim.Config `json:"config,omitempty"`
	Seed       *int64      `json:"seed,omitempty"`
	Mode       string      `json:"mode,omitempty"`
}

type sessionResponse struct {
	SessionID   string     `json:"session_id"`
	ScenarioID  string     `json:"scenario_id,omitempty"`
	Mode        string     `json:"mode"`
	Seed        int64      `json:"seed"`
	Config      sim.Config `json:"config"`
	Finished    bool       `json:"finished"`
	Info        sim.Info   `json:"info"`
	Observation []float64  `json:"observation"`
}

func (s *Server) sessionResponse(sess *session.Session) sessionResponse {
	return sessionResponse{
		SessionID:   sess.ID,
		ScenarioID:  sess.ScenarioID,
		Mode:        sess.Mode,
		Seed:        sess.Seed,
		Config:      sess.Config(),
		Finished:    sess.Finished(),
		Info:        sess.Info(),
		Observation: sess.Observe(),
	}
}

// handleSessionCreate resets a fresh world. The config comes from a
// stored scenario, an inline config, or the server default, in that
// order of preference. An omitted seed falls back to the clock: the
// session is then unique but still replayable from the returned seed.
func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	var req sessionCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cfg := s.Cfg
	seed := time.Now().UnixNano()
	switch {
	case req.ScenarioID != "":
		if s.Store == nil {
			http.Error(w, "scenario storage disabled", http.StatusNotImplemented)
			return
		}
		sc, err := s.Store.GetScenario(req.ScenarioID)
		if err != nil {
			writeError(w, err)
			return
		}
		cfg = sc.Config
		seed = sc.Seed
	case req.Config != nil:
		cfg = *req.Config
	}
	if req.Seed != nil {
		seed = *req.Seed
	}

	mode := req.Mode
	if mode == "" {
		mode = session.ModeManual
	}

	sess, err := s.Sessions.Create(cfg, seed, req.ScenarioID, mode)
	if err != nil {
		writeError(w, err)
		return
	}

	slog.Info("session created",
		"session", sess.ID,
		"scenario", sess.ScenarioID,
		"mode", sess.Mode,
		"seed", sess.Seed,
		"zones", cfg.Zones,
	)
	writeJSON(w, s.sessionResponse(sess))
}

func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Sessions.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, s.sessionResponse(sess))
}

type stepRequest struct {
	Action sim.Action `json:"action"`
	Source string     `json:"source,omitempty"`
}

type stepResponse struct {
	SessionID string `json:"session_id"`
	sim.StepResult
}

func (s *Server) handleSessionStep(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Sessions.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req stepRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	source := req.Source
	if source == "" {
		source = "human"
	}

	// Snapshot before stepping: the trace stores the observation the
	// action was chosen from.
	preObs := sess.Observe()
	timestep := sess.Info().Timestep

	res, err := sess.Step(req.Action)
	if err != nil {
		writeError(w, err)
		return
	}

	if s.Store != nil {
		rec := storeRecord(timestep, req.Action, source, res, preObs)
		if err := s.Store.RecordStep(sess.ID, rec); err != nil {
			// Trace loss does not fail the step; the world already moved.
			slog.Error("trace record failed", "session", sess.ID, "timestep", timestep, "error", err)
		}
	}

	if res.Terminated {
		slog.Info("session finished",
			"session", sess.ID,
			"casualties", res.Info.TotalCasualties,
			"evacuated", res.Info.TotalEvacuated,
		)
	}
	writeJSON(w, stepResponse{SessionID: sess.ID, StepResult: res})
}

func (s *Server) handleSessionTrace(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		http.Error(w, "trace storage disabled", http.StatusNotImplemented)
		return
	}
	trace, err := s.Store.LoadTrace(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"session_id": r.PathValue("id"),
		"steps":      trace,
	})
}

func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	s.Sessions.Delete(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}
