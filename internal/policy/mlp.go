package policy

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sync"

	"log/slog"

	"github.com/talgya/crisis-sim/internal/sim"
)

// artifact is the on-disk form of an exported policy network: a stack
// of tanh trunk layers feeding three linear heads, one per action
// component.
type artifact struct {
	ModelType string  `json:"model_type"`
	ObsDim    int     `json:"obs_dim"`
	Trunk     []layer `json:"trunk"`
	Heads     struct {
		ActionType layer `json:"action_type"`
		Resource   layer `json:"resource"`
		Zone       layer `json:"zone"`
	} `json:"heads"`
}

// layer holds row-major weights (out x in) and a bias per output.
type layer struct {
	Weights [][]float64 `json:"weights"`
	Biases  []float64   `json:"biases"`
}

func (l layer) forward(in []float64) ([]float64, error) {
	out := make([]float64, len(l.Weights))
	for i, row := range l.Weights {
		if len(row) != len(in) {
			return nil, fmt.Errorf("layer shape mismatch: row %d has %d weights, input has %d", i, len(row), len(in))
		}
		sum := l.Biases[i]
		for j, wj := range row {
			sum += wj * in[j]
		}
		out[i] = sum
	}
	return out, nil
}

func (l layer) check() error {
	if len(l.Weights) == 0 {
		return fmt.Errorf("layer has no weights")
	}
	if len(l.Biases) != len(l.Weights) {
		return fmt.Errorf("layer has %d bias values for %d outputs", len(l.Biases), len(l.Weights))
	}
	return nil
}

// MLP serves a loaded policy artifact. The network is immutable after
// load; only the sampling generator is guarded.
type MLP struct {
	art  artifact
	path string
	cfg  sim.Config

	mu  sync.Mutex
	rng *rand.Rand
}

// Load reads a policy artifact from path, falling back silently to the
// uniform random policy when the file is missing, unparsable, or shaped
// for a different world. The caller always gets a serving policy; the
// fallback is observable only through Status.
func Load(path string, cfg sim.Config, seed int64) Policy {
	if path == "" {
		slog.Info("no model path configured, serving random policy")
		return NewRandom(cfg, seed)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("model artifact unreadable, serving random policy", "path", path, "error", err)
		return NewRandom(cfg, seed)
	}

	var art artifact
	if err := json.Unmarshal(data, &art); err != nil {
		slog.Warn("model artifact unparsable, serving random policy", "path", path, "error", err)
		return NewRandom(cfg, seed)
	}
	if err := validateArtifact(art, cfg); err != nil {
		slog.Warn("model artifact rejected, serving random policy", "path", path, "error", err)
		return NewRandom(cfg, seed)
	}

	slog.Info("model artifact loaded",
		"path", path,
		"model_type", art.ModelType,
		"obs_dim", art.ObsDim,
		"trunk_layers", len(art.Trunk),
	)
	return &MLP{art: art, path: path, cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

func validateArtifact(art artifact, cfg sim.Config) error {
	if art.ObsDim != sim.ObservationDim(cfg) {
		return fmt.Errorf("artifact obs_dim %d does not match configured world (%d)", art.ObsDim, sim.ObservationDim(cfg))
	}
	for i, l := range art.Trunk {
		if err := l.check(); err != nil {
			return fmt.Errorf("trunk layer %d: %w", i, err)
		}
	}
	heads := []struct {
		name string
		l    layer
		want int
	}{
		{"action_type", art.Heads.ActionType, 5},
		{"resource", art.Heads.Resource, cfg.Resources},
		{"zone", art.Heads.Zone, cfg.Zones},
	}
	for _, h := range heads {
		if err := h.l.check(); err != nil {
			return fmt.Errorf("%s head: %w", h.name, err)
		}
		if len(h.l.Weights) != h.want {
			return fmt.Errorf("%s head has %d outputs, want %d", h.name, len(h.l.Weights), h.want)
		}
	}
	return nil
}

// Predict runs the network forward. Deterministic mode takes the
// argmax of each head; otherwise each head is sampled from its softmax.
func (m *MLP) Predict(obs []float64, deterministic bool) (sim.Action, float64, error) {
	if err := sim.ValidateObservation(obs, m.cfg); err != nil {
		return sim.Action{}, 0, err
	}

	h := obs
	for i, l := range m.art.Trunk {
		out, err := l.forward(h)
		if err != nil {
			return sim.Action{}, 0, fmt.Errorf("trunk layer %d: %w", i, err)
		}
		for j := range out {
			out[j] = math.Tanh(out[j])
		}
		h = out
	}

	typeLogits, err := m.art.Heads.ActionType.forward(h)
	if err != nil {
		return sim.Action{}, 0, fmt.Errorf("action_type head: %w", err)
	}
	resLogits, err := m.art.Heads.Resource.forward(h)
	if err != nil {
		return sim.Action{}, 0, fmt.Errorf("resource head: %w", err)
	}
	zoneLogits, err := m.art.Heads.Zone.forward(h)
	if err != nil {
		return sim.Action{}, 0, fmt.Errorf("zone head: %w", err)
	}

	var tIdx, rIdx, zIdx int
	if deterministic {
		tIdx, rIdx, zIdx = argmax(typeLogits), argmax(resLogits), argmax(zoneLogits)
	} else {
		m.mu.Lock()
		tIdx = m.sample(typeLogits)
		rIdx = m.sample(resLogits)
		zIdx = m.sample(zoneLogits)
		m.mu.Unlock()
	}

	at, err := sim.ActionTypeFromWire(tIdx)
	if err != nil {
		return sim.Action{}, 0, err
	}
	return sim.Action{Type: at, Resource: rIdx, Zone: zIdx}, TrainedConfidence, nil
}

// Status reports the loaded artifact.
func (m *MLP) Status() Status {
	return Status{ModelLoaded: true, ModelPath: m.path, ModelType: m.art.ModelType}
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

// sample draws an index from the softmax of the logits. Caller holds mu.
func (m *MLP) sample(logits []float64) int {
	max := logits[argmax(logits)]
	sum := 0.0
	probs := make([]float64, len(logits))
	for i, l := range logits {
		probs[i] = math.Exp(l - max)
		sum += probs[i]
	}
	u := m.rng.Float64() * sum
	acc := 0.0
	for i, p := range probs {
		acc += p
		if u < acc {
			return i
		}
	}
	return len(logits) - 1
}
