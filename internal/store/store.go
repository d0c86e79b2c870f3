// Package store provides SQLite-backed storage for scenario presets
// and per-session step traces. Traces exist so a finished human run can
// be replayed against the policy; live world state is never persisted.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/crisis-sim/internal/scenario"
	"github.com/talgya/crisis-sim/internal/sim"
)

// ErrNotFound means the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store wraps a SQLite connection.
type Store struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*Store, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scenarios (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL,
		disaster_type TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		config_json TEXT NOT NULL,
		seed INTEGER NOT NULL,
		risk_field_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS session_steps (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		timestep INTEGER NOT NULL,
		action_type INTEGER NOT NULL,
		resource_id INTEGER NOT NULL,
		target_zone_id INTEGER NOT NULL,
		source TEXT NOT NULL,
		success INTEGER NOT NULL,
		reward REAL NOT NULL,
		observation_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_session_steps_session
		ON session_steps(session_id, timestep);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// SaveScenario inserts or replaces a scenario preset.
func (s *Store) SaveScenario(sc scenario.Scenario) error {
	configJSON, err := json.Marshal(sc.Config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	fieldJSON, err := json.Marshal(sc.RiskField)
	if err != nil {
		return fmt.Errorf("marshal risk field: %w", err)
	}

	_, err = s.conn.Exec(`INSERT OR REPLACE INTO scenarios
		(id, name, description, disaster_type, difficulty, config_json, seed, risk_field_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sc.ID, sc.Name, sc.Description, string(sc.DisasterType), string(sc.Difficulty),
		string(configJSON), sc.Seed, string(fieldJSON), sc.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert scenario %s: %w", sc.ID, err)
	}
	return nil
}

type scenarioRow struct {
	ID           string `db:"id"`
	Name         string `db:"name"`
	Description  string `db:"description"`
	DisasterType string `db:"disaster_type"`
	Difficulty   string `db:"difficulty"`
	ConfigJSON   string `db:"config_json"`
	Seed         int64  `db:"seed"`
	RiskField    string `db:"risk_field_json"`
	CreatedAt    string `db:"created_at"`
}

func (r scenarioRow) toScenario() (scenario.Scenario, error) {
	sc := scenario.Scenario{
		ID:           r.ID,
		Name:         r.Name,
		Description:  r.Description,
		DisasterType: scenario.DisasterType(r.DisasterType),
		Difficulty:   scenario.Difficulty(r.Difficulty),
		Seed:         r.Seed,
	}
	if err := json.Unmarshal([]byte(r.ConfigJSON), &sc.Config); err != nil {
		return scenario.Scenario{}, fmt.Errorf("scenario %s config: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.RiskField), &sc.RiskField); err != nil {
		return scenario.Scenario{}, fmt.Errorf("scenario %s risk field: %w", r.ID, err)
	}
	sc.CreatedAt, _ = time.Parse(time.RFC3339, r.CreatedAt)
	return sc, nil
}

// GetScenario loads one scenario by id.
func (s *Store) GetScenario(id string) (scenario.Scenario, error) {
	var row scenarioRow
	err := s.conn.Get(&row, "SELECT * FROM scenarios WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return scenario.Scenario{}, fmt.Errorf("%w: scenario %s", ErrNotFound, id)
	}
	if err != nil {
		return scenario.Scenario{}, fmt.Errorf("get scenario %s: %w", id, err)
	}
	return row.toScenario()
}

// ListScenarios returns all stored scenarios, newest first.
func (s *Store) ListScenarios() ([]scenario.Scenario, error) {
	var rows []scenarioRow
	if err := s.conn.Select(&rows, "SELECT * FROM scenarios ORDER BY created_at DESC"); err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}

	scenarios := make([]scenario.Scenario, 0, len(rows))
	for _, r := range rows {
		sc, err := r.toScenario()
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}

// StepRecord is one trace row: the observation an action was chosen
// from, the action, and what the step produced.
type StepRecord struct {
	Timestep    int        `json:"timestep"`
	Action      sim.Action `json:"action"`
	Source      string     `json:"source"` // "human" or "ai"
	Success     bool       `json:"success"`
	Reward      float64    `json:"reward"`
	Observation []float64  `json:"observation"`
}

// RecordStep appends one step to a session's trace.
func (s *Store) RecordStep(sessionID string, rec StepRecord) error {
	obsJSON, err := json.Marshal(rec.Observation)
	if err != nil {
		return fmt.Errorf("marshal observation: %w", err)
	}

	success := 0
	if rec.Success {
		success = 1
	}

	_, err = s.conn.Exec(`INSERT INTO session_steps
		(session_id, timestep, action_type, resource_id, target_zone_id, source, success, reward, observation_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, rec.Timestep, rec.Action.Type.Wire(), rec.Action.Resource, rec.Action.Zone,
		rec.Source, success, rec.Reward, string(obsJSON),
	)
	if err != nil {
		return fmt.Errorf("record step %d for session %s: %w", rec.Timestep, sessionID, err)
	}
	return nil
}

// LoadTrace returns a session's recorded steps in timestep order.
// A session with no recorded steps is ErrNotFound, not an empty trace.
func (s *Store) LoadTrace(sessionID string) ([]StepRecord, error) {
	type stepRow struct {
		Timestep    int     `db:"timestep"`
		ActionType  int     `db:"action_type"`
		ResourceID  int     `db:"resource_id"`
		TargetZone  int     `db:"target_zone_id"`
		Source      string  `db:"source"`
		Success     int     `db:"success"`
		Reward      float64 `db:"reward"`
		Observation string  `db:"observation_json"`
	}

	var rows []stepRow
	err := s.conn.Select(&rows, `SELECT timestep, action_type, resource_id, target_zone_id,
		source, success, reward, observation_json
		FROM session_steps WHERE session_id = ? ORDER BY timestep`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load trace %s: %w", sessionID, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no trace for session %s", ErrNotFound, sessionID)
	}

	trace := make([]StepRecord, 0, len(rows))
	for _, r := range rows {
		action, err := sim.ActionFromWire([]int{r.ActionType, r.ResourceID, r.TargetZone})
		if err != nil {
			return nil, fmt.Errorf("trace %s step %d: %w", sessionID, r.Timestep, err)
		}
		rec := StepRecord{
			Timestep: r.Timestep,
			Action:   action,
			Source:   r.Source,
			Success:  r.Success != 0,
			Reward:   r.Reward,
		}
		if err := json.Unmarshal([]byte(r.Observation), &rec.Observation); err != nil {
			return nil, fmt.Errorf("trace %s step %d observation: %w", sessionID, r.Timestep, err)
		}
		trace = append(trace, rec)
	}
	return trace, nil
}
