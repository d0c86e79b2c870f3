// Package session owns the registry of live simulation worlds. Each
// session wraps exactly one world; worlds are never shared between
// sessions. The registry is injected into the HTTP layer rather than
// living in a package global.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/crisis-sim/internal/sim"
)

var (
	// ErrNotFound means no session exists under the given id.
	ErrNotFound = errors.New("session not found")
	// ErrFinished means the session's episode already terminated.
	ErrFinished = errors.New("session already finished")
)

// Modes a session can run in, mirroring how the frontend drives it.
const (
	ModeManual     = "manual"
	ModeAIAssisted = "ai_assisted"
	ModeAIOnly     = "ai_only"
	ModeComparison = "comparison"
)

// Session is one live episode. The registry hands out the pointer; the
// session's own lock serializes steps so a confused client issuing
// concurrent steps cannot corrupt the world.
type Session struct {
	ID         string
	ScenarioID string
	Mode       string
	Seed       int64
	CreatedAt  time.Time

	mu       sync.Mutex
	world    *sim.World
	finished bool
}

// Step applies one action to the session's world.
func (s *Session) Step(a sim.Action) (sim.StepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return sim.StepResult{}, fmt.Errorf("%w: %s", ErrFinished, s.ID)
	}
	res, err := s.world.Step(a)
	if err != nil {
		return sim.StepResult{}, err
	}
	if res.Terminated || res.Truncated {
		s.finished = true
	}
	return res, nil
}

// Observe returns the current observation without advancing the world.
func (s *Session) Observe() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.world.Observe()
}

// Info returns the session's running metrics.
func (s *Session) Info() sim.Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.world.Info()
}

// Config returns the immutable world configuration.
func (s *Session) Config() sim.Config {
	return s.world.Config
}

// Finished reports whether the episode has terminated.
func (s *Session) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// Registry is a uuid-keyed map of live sessions, safe for concurrent
// use by the HTTP layer.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Create resets a fresh world and registers a session around it.
func (r *Registry) Create(cfg sim.Config, seed int64, scenarioID, mode string) (*Session, error) {
	w, err := sim.NewWorld(cfg, seed)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:         uuid.NewString(),
		ScenarioID: scenarioID,
		Mode:       mode,
		Seed:       seed,
		CreatedAt:  time.Now().UTC(),
		world:      w,
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s, nil
}

// Get looks up a session by id.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// Delete releases a session. Deleting an unknown id is a no-op: the
// caller has no cleanup obligation beyond letting go.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
