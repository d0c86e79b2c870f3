// Command rollout drives policy episodes against the simulation and
// prints a summary. It can run a local policy artifact or call a
// remote decision server, and can optionally record traces to sqlite
// for later comparison against human play.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"

	"github.com/talgya/crisis-sim/internal/aiclient"
	"github.com/talgya/crisis-sim/internal/policy"
	"github.com/talgya/crisis-sim/internal/sim"
	"github.com/talgya/crisis-sim/internal/store"
)

func main() {
	setupLogging()

	episodes := envIntOrDefault("ROLLOUT_EPISODES", 5)
	seed := int64(envIntOrDefault("ROLLOUT_SEED", 42))
	modelPath := envOrDefault("ROLLOUT_MODEL_PATH", "models/crisis_policy.json")
	remoteURL := os.Getenv("ROLLOUT_REMOTE_URL")
	dbPath := os.Getenv("ROLLOUT_DB")

	cfg := sim.DefaultConfig()
	cfg.Zones = envIntOrDefault("ROLLOUT_ZONES", cfg.Zones)
	cfg.Shelters = envIntOrDefault("ROLLOUT_SHELTERS", cfg.Shelters)
	cfg.Resources = envIntOrDefault("ROLLOUT_RESOURCES", cfg.Resources)
	cfg.MaxTimesteps = envIntOrDefault("ROLLOUT_MAX_TIMESTEPS", cfg.MaxTimesteps)
	if err := cfg.Validate(); err != nil {
		slog.Error("bad environment config", "error", err)
		os.Exit(1)
	}

	var remote *aiclient.Client
	if remoteURL != "" {
		remote = aiclient.New(remoteURL)
		if !waitForServer(remote, 10) {
			slog.Error("decision server never became healthy", "url", remoteURL)
			os.Exit(1)
		}
		status := remote.Status()
		slog.Info("using remote policy", "url", remoteURL, "model_loaded", status.ModelLoaded, "model_type", status.ModelType)
	}

	// Local policy doubles as the fallback when the remote degrades.
	local := policy.Load(modelPath, cfg, seed)

	var st *store.Store
	if dbPath != "" {
		var err error
		st, err = store.Open(dbPath)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer st.Close()
	}

	var (
		totalReward     float64
		totalCasualties float64
		totalEvacuated  float64
	)

	for ep := 0; ep < episodes; ep++ {
		info, reward, err := runEpisode(cfg, seed+int64(ep), local, remote, st)
		if err != nil {
			slog.Error("episode failed", "episode", ep, "error", err)
			os.Exit(1)
		}
		totalReward += reward
		totalCasualties += info.TotalCasualties
		totalEvacuated += info.TotalEvacuated
		slog.Info("episode finished",
			"episode", ep,
			"reward", fmt.Sprintf("%.1f", reward),
			"casualties", humanize.CommafWithDigits(info.TotalCasualties, 0),
			"evacuated", humanize.CommafWithDigits(info.TotalEvacuated, 0),
			"evacuation_rate", fmt.Sprintf("%.1f%%", info.EvacuationRate*100),
			"resources_used", info.ResourcesUsed,
		)
	}

	n := float64(episodes)
	slog.Info("rollout summary",
		"episodes", episodes,
		"mean_reward", fmt.Sprintf("%.1f", totalReward/n),
		"total_casualties", humanize.CommafWithDigits(totalCasualties, 0),
		"total_evacuated", humanize.CommafWithDigits(totalEvacuated, 0),
	)
}

// runEpisode steps one world to termination. Actions come from the
// remote server when configured, falling back to the local policy
// whenever the remote is unavailable.
func runEpisode(cfg sim.Config, seed int64, local policy.Policy, remote *aiclient.Client, st *store.Store) (sim.Info, float64, error) {
	w, err := sim.NewWorld(cfg, seed)
	if err != nil {
		return sim.Info{}, 0, err
	}

	traceID := ""
	if st != nil {
		traceID = uuid.New().String()
		slog.Info("recording trace", "session_id", traceID, "seed", seed)
	}

	var episodeReward float64
	for {
		obs := w.Observe()

		action, err := pickAction(obs, local, remote)
		if err != nil {
			return sim.Info{}, 0, err
		}

		timestep := w.CurrentStep
		res, err := w.Step(action)
		if err != nil {
			return sim.Info{}, 0, err
		}
		episodeReward += res.Reward

		if st != nil {
			rec := store.StepRecord{
				Timestep:    timestep,
				Action:      action,
				Source:      "ai",
				Success:     res.ActionSuccess,
				Reward:      res.Reward,
				Observation: obs,
			}
			if err := st.RecordStep(traceID, rec); err != nil {
				slog.Error("failed to record step", "session_id", traceID, "error", err)
			}
		}

		if res.Terminated || res.Truncated {
			return res.Info, episodeReward, nil
		}
	}
}

func pickAction(obs []float64, local policy.Policy, remote *aiclient.Client) (sim.Action, error) {
	if remote != nil {
		pred, err := remote.Predict(obs, "")
		if err == nil {
			return sim.ActionFromWire(pred.Action)
		}
		slog.Warn("remote predict failed, using local policy", "error", err)
	}
	action, _, err := local.Predict(obs, true)
	return action, err
}

func waitForServer(c *aiclient.Client, attempts int) bool {
	for i := 0; i < attempts; i++ {
		if c.Healthy() {
			return true
		}
		time.Sleep(time.Second)
	}
	return false
}

func setupLogging() {
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if isatty.IsTerminal(os.Stdout.Fd()) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func envOrDefault(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		slog.Warn("ignoring non-integer env value", "key", key, "value", v)
	}
	return def
}
