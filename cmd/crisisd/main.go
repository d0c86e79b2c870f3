// Command crisisd runs the crisis response decision server: the
// simulation environment behind session endpoints, the policy serving
// endpoints, and sqlite-backed scenario presets and step traces.
package main

import (
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/talgya/crisis-sim/internal/api"
	"github.com/talgya/crisis-sim/internal/policy"
	"github.com/talgya/crisis-sim/internal/scenario"
	"github.com/talgya/crisis-sim/internal/session"
	"github.com/talgya/crisis-sim/internal/sim"
	"github.com/talgya/crisis-sim/internal/store"
)

func main() {
	setupLogging()

	// Configuration from environment.
	port := envIntOrDefault("CRISISD_PORT", 8001)
	dbPath := envOrDefault("CRISISD_DB", "data/crisis.db")
	modelPath := envOrDefault("CRISISD_MODEL_PATH", "models/crisis_policy.json")
	adminKey := os.Getenv("CRISISD_ADMIN_KEY")

	cfg := sim.DefaultConfig()
	cfg.Zones = envIntOrDefault("CRISISD_ZONES", cfg.Zones)
	cfg.Shelters = envIntOrDefault("CRISISD_SHELTERS", cfg.Shelters)
	cfg.Resources = envIntOrDefault("CRISISD_RESOURCES", cfg.Resources)
	cfg.MaxTimesteps = envIntOrDefault("CRISISD_MAX_TIMESTEPS", cfg.MaxTimesteps)
	if err := cfg.Validate(); err != nil {
		slog.Error("bad environment config", "error", err)
		os.Exit(1)
	}

	slog.Info("Crisis Response Decision Server",
		"zones", cfg.Zones,
		"shelters", cfg.Shelters,
		"resources", cfg.Resources,
		"max_timesteps", cfg.MaxTimesteps,
		"observation_dim", sim.ObservationDim(cfg),
	)

	// ── Database ──────────────────────────────────────────────────────
	var st *store.Store
	if dbPath != "" {
		os.MkdirAll(filepath.Dir(dbPath), 0755)
		var err error
		st, err = store.Open(dbPath)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer st.Close()
		slog.Info("database opened", "path", dbPath)

		seedScenarios(st)
	} else {
		slog.Warn("CRISISD_DB empty, traces and scenarios disabled")
	}

	// ── Policy ────────────────────────────────────────────────────────
	// Falls back to the random policy when the artifact is missing or
	// broken; the server must come up regardless.
	pol := policy.Load(modelPath, cfg, time.Now().UnixNano())

	// ── HTTP API ──────────────────────────────────────────────────────
	srv := &api.Server{
		Policy:   pol,
		Sessions: session.NewRegistry(),
		Store:    st,
		Cfg:      cfg,
		Port:     port,
		AdminKey: adminKey,
	}
	srv.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig)
}

// seedScenarios installs one preset per disaster type on first run so
// a fresh deployment has something to start sessions from.
func seedScenarios(st *store.Store) {
	existing, err := st.ListScenarios()
	if err != nil {
		slog.Error("failed to list scenarios", "error", err)
		return
	}
	if len(existing) > 0 {
		return
	}

	presets := []struct {
		name, description string
		dt                scenario.DisasterType
		diff              scenario.Difficulty
		seed              int64
	}{
		{"Urban Earthquake", "magnitude 7.2 earthquake in a dense urban area", scenario.Earthquake, scenario.Medium, 101},
		{"River Delta Flood", "slow-onset flooding across low-lying districts", scenario.Flood, scenario.Easy, 102},
		{"Coastal Cyclone", "category 4 cyclone at landfall", scenario.Cyclone, scenario.Hard, 103},
		{"Canyon Wildfire", "wind-driven fire front near settlements", scenario.Wildfire, scenario.Expert, 104},
	}

	for _, p := range presets {
		sc, err := scenario.New(p.name, p.description, p.dt, p.diff, p.seed)
		if err != nil {
			slog.Error("failed to build preset scenario", "name", p.name, "error", err)
			continue
		}
		if err := st.SaveScenario(sc); err != nil {
			slog.Error("failed to save preset scenario", "name", p.name, "error", err)
			continue
		}
		slog.Info("preset scenario installed", "name", p.name, "type", p.dt, "difficulty", p.diff)
	}
}

// setupLogging uses the text handler on a terminal and JSON otherwise
// (for log collectors).
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
