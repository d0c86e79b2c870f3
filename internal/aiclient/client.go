// Package aiclient is the HTTP client for a remotely deployed decision
// service. Transport failures surface as ErrUnavailable so callers can
// degrade (show "AI unavailable") instead of treating them like any
// other error.
package aiclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/talgya/crisis-sim/internal/sim"
)

// ErrUnavailable means the decision service could not be reached or
// answered that it cannot serve (HTTP 503).
var ErrUnavailable = errors.New("decision service unavailable")

// Client wraps the decision service HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the service at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Prediction mirrors POST /api/v1/predict.
type Prediction struct {
	Action      []int   `json:"action"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
}

// Explanation mirrors POST /api/v1/explain.
type Explanation struct {
	Action             []int    `json:"action"`
	ActionDescription  string   `json:"action_description"`
	Reasoning          []string `json:"reasoning"`
	Confidence         float64  `json:"confidence"`
	AlternativeActions []struct {
		Action      []int   `json:"action"`
		Probability float64 `json:"probability"`
	} `json:"alternative_actions"`
}

// Evaluation mirrors POST /api/v1/evaluate.
type Evaluation struct {
	AgreementRate float64      `json:"agreement_rate"`
	AIActions     []sim.Action `json:"ai_actions"`
	TotalSteps    int          `json:"total_steps"`
}

// ModelStatus mirrors GET /api/v1/model/status, with a Status field
// describing reachability.
type ModelStatus struct {
	ModelLoaded bool   `json:"model_loaded"`
	ModelPath   string `json:"model_path,omitempty"`
	ModelType   string `json:"model_type,omitempty"`
	Status      string `json:"status,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Predict asks the service for the next action.
func (c *Client) Predict(observation []float64, sessionID string) (Prediction, error) {
	var out Prediction
	err := c.post("/api/v1/predict", map[string]any{
		"observation": observation,
		"session_id":  sessionID,
	}, &out)
	return out, err
}

// Explain asks the service for the reasoned form of its next action.
func (c *Client) Explain(observation []float64, sessionID string) (Explanation, error) {
	var out Explanation
	err := c.post("/api/v1/explain", map[string]any{
		"observation": observation,
		"session_id":  sessionID,
	}, &out)
	return out, err
}

// Evaluate compares a human trace against the service's policy.
func (c *Client) Evaluate(observations [][]float64, humanActions []sim.Action) (Evaluation, error) {
	var out Evaluation
	err := c.post("/api/v1/evaluate", map[string]any{
		"observations":  observations,
		"human_actions": humanActions,
	}, &out)
	return out, err
}

// Status reports the remote model state. Never returns an error: an
// unreachable service degrades to {model_loaded:false, status:"unavailable"}.
func (c *Client) Status() ModelStatus {
	resp, err := c.httpClient.Get(c.baseURL + "/api/v1/model/status")
	if err != nil {
		return ModelStatus{ModelLoaded: false, Status: "unavailable", Error: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ModelStatus{ModelLoaded: false, Status: "unavailable", Error: fmt.Sprintf("status %d", resp.StatusCode)}
	}

	var out ModelStatus
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ModelStatus{ModelLoaded: false, Status: "unavailable", Error: err.Error()}
	}
	out.Status = "ok"
	return out
}

// Healthy reports whether the service answers its health endpoint.
func (c *Client) Healthy() bool {
	resp, err := c.httpClient.Get(c.baseURL + "/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *Client) post(path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.httpClient.Post(c.baseURL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: %s", ErrUnavailable, bytes.TrimSpace(msg))
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, bytes.TrimSpace(msg))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
