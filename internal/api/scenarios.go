package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/talgya/crisis-sim/internal/scenario"
)

func (s *Server) handleScenarioList(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		http.Error(w, "scenario storage disabled", http.StatusNotImplemented)
		return
	}
	scenarios, err := s.Store.ListScenarios()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, scenarios)
}

func (s *Server) handleScenarioGet(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		http.Error(w, "scenario storage disabled", http.StatusNotImplemented)
		return
	}
	sc, err := s.Store.GetScenario(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, sc)
}

type scenarioCreateRequest struct {
	Name         string                `json:"name"`
	Description  string                `json:"description"`
	DisasterType scenario.DisasterType `json:"disaster_type"`
	Difficulty   scenario.Difficulty   `json:"difficulty"`
	Seed         int64                 `json:"seed"`
}

func (s *Server) handleScenarioCreate(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		http.Error(w, "scenario storage disabled", http.StatusNotImplemented)
		return
	}

	var req scenarioCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	sc, err := scenario.New(req.Name, req.Description, req.DisasterType, req.Difficulty, req.Seed)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.Store.SaveScenario(sc); err != nil {
		writeError(w, err)
		return
	}

	slog.Info("scenario created", "scenario", sc.ID, "name", sc.Name, "type", sc.DisasterType, "difficulty", sc.Difficulty)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(sc); err != nil {
		slog.Error("encode response", "error", err)
	}
}
