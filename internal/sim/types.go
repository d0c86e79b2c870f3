// Package sim implements the crisis response environment: world state,
// the step transition engine, and the observation encoding consumed by
// decision policies. One World per simulation session; the session owner
// is the only mutator.
package sim

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Sentinel errors for the environment boundary.
var (
	// ErrBadConfig means reset was called with unusable parameters.
	ErrBadConfig = errors.New("invalid environment config")
	// ErrBadAction means an action failed wire-level validation
	// (unknown type, negative or out-of-range index).
	ErrBadAction = errors.New("invalid action")
	// ErrDimension means an observation vector has the wrong length
	// for the configured world.
	ErrDimension = errors.New("observation dimension mismatch")
)

// ActionType is the closed set of dispatch decisions a caller can take.
// Wire values are fixed: trained policies emit the integer form.
type ActionType uint8

const (
	SendAmbulance ActionType = iota
	SendMedicalTeam
	SendSupplyTruck
	EvacuateZone
	OpenShelter

	numActionTypes = 5
)

// ActionTypeFromWire maps a wire integer to an ActionType, rejecting
// anything outside the closed set.
func ActionTypeFromWire(v int) (ActionType, error) {
	if v < 0 || v >= numActionTypes {
		return 0, fmt.Errorf("%w: action type %d out of range [0,%d)", ErrBadAction, v, numActionTypes)
	}
	return ActionType(v), nil
}

// Wire returns the integer wire form of the action type.
func (t ActionType) Wire() int { return int(t) }

func (t ActionType) String() string {
	switch t {
	case SendAmbulance:
		return "Send Ambulance"
	case SendMedicalTeam:
		return "Send Medical Team"
	case SendSupplyTruck:
		return "Send Supply Truck"
	case EvacuateZone:
		return "Evacuate Zone"
	case OpenShelter:
		return "Open Shelter"
	}
	return fmt.Sprintf("ActionType(%d)", uint8(t))
}

// Action is one dispatch decision: what to do, with which resource,
// where. Encoded on the wire as [type, resource, zone].
type Action struct {
	Type     ActionType
	Resource int
	Zone     int
}

// MarshalJSON encodes the action as the wire triple.
func (a Action) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]int{a.Type.Wire(), a.Resource, a.Zone})
}

// UnmarshalJSON decodes the wire triple, rejecting malformed input at
// the boundary rather than letting a bad index reach the engine.
func (a *Action) UnmarshalJSON(b []byte) error {
	var raw []int
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("%w: want [type, resource, zone]: %v", ErrBadAction, err)
	}
	return a.fromWire(raw)
}

// ActionFromWire builds an Action from a decoded wire triple.
func ActionFromWire(raw []int) (Action, error) {
	var a Action
	err := a.fromWire(raw)
	return a, err
}

func (a *Action) fromWire(raw []int) error {
	if len(raw) != 3 {
		return fmt.Errorf("%w: want 3 elements, got %d", ErrBadAction, len(raw))
	}
	t, err := ActionTypeFromWire(raw[0])
	if err != nil {
		return err
	}
	if raw[1] < 0 {
		return fmt.Errorf("%w: negative resource id %d", ErrBadAction, raw[1])
	}
	if raw[2] < 0 {
		return fmt.Errorf("%w: negative zone id %d", ErrBadAction, raw[2])
	}
	a.Type = t
	a.Resource = raw[1]
	a.Zone = raw[2]
	return nil
}

// Wire returns the action as its wire triple.
func (a Action) Wire() []int { return []int{a.Type.Wire(), a.Resource, a.Zone} }

// ResourceKind labels a deployable unit.
type ResourceKind uint8

const (
	KindAmbulance ResourceKind = iota
	KindMedicalTeam
	KindSupplyTruck
)

func (k ResourceKind) String() string {
	switch k {
	case KindAmbulance:
		return "ambulance"
	case KindMedicalTeam:
		return "medical_team"
	case KindSupplyTruck:
		return "supply_truck"
	}
	return fmt.Sprintf("ResourceKind(%d)", uint8(k))
}

// Zone is an abstract population bucket with a risk level.
// Casualties accumulate independently of the evacuation counter (the
// reference model's accounting — see DESIGN.md), so Evacuated+Casualties
// may exceed Population on long runs.
type Zone struct {
	ID         int     `json:"id"`
	Population float64 `json:"population"`
	Evacuated  float64 `json:"evacuated"`
	Casualties float64 `json:"casualties"`
	Risk       float64 `json:"risk"`
}

// Shelter is a capacity-bounded destination for evacuees.
// Occupancy never exceeds Capacity.
type Shelter struct {
	ID        int     `json:"id"`
	Capacity  float64 `json:"capacity"`
	Occupancy float64 `json:"occupancy"`
}

// Resource is a deployable unit somewhere in the unit square.
// The engine checks Available but never flips it; availability is
// operator/scenario input.
type Resource struct {
	ID        int          `json:"id"`
	Kind      ResourceKind `json:"kind"`
	X         float64      `json:"x"`
	Y         float64      `json:"y"`
	Available bool         `json:"available"`
}

// Info is the per-step metrics bag returned alongside observations.
type Info struct {
	Timestep        int     `json:"timestep"`
	TotalCasualties float64 `json:"total_casualties"`
	TotalEvacuated  float64 `json:"total_evacuated"`
	EvacuationRate  float64 `json:"evacuation_rate"`
	ResourcesUsed   int     `json:"resources_used"`
	AverageRisk     float64 `json:"average_risk"`
}

// StepResult is everything one step produces. Not persisted here;
// trace recording is the service layer's concern.
type StepResult struct {
	Observation   []float64 `json:"observation"`
	Reward        float64   `json:"reward"`
	Terminated    bool      `json:"terminated"`
	Truncated     bool      `json:"truncated"`
	ActionSuccess bool      `json:"action_success"`
	Info          Info      `json:"info"`
}
