package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(c *Config) {}, false},
		{"zero-zones", func(c *Config) { c.Zones = 0 }, true},
		{"negative-shelters", func(c *Config) { c.Shelters = -1 }, true},
		{"zero-resources", func(c *Config) { c.Resources = 0 }, true},
		{"zero-timesteps", func(c *Config) { c.MaxTimesteps = 0 }, true},
		{"intensity-low", func(c *Config) { c.DisasterIntensity = -0.1 }, true},
		{"intensity-high", func(c *Config) { c.DisasterIntensity = 1.1 }, true},
		{"intensity-edge", func(c *Config) { c.DisasterIntensity = 1.0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrBadConfig)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestNewWorldInitialState(t *testing.T) {
	cfg := DefaultConfig()
	w, err := NewWorld(cfg, 7)
	require.NoError(t, err)

	require.Len(t, w.Zones, cfg.Zones)
	require.Len(t, w.Shelters, cfg.Shelters)
	require.Len(t, w.Resources, cfg.Resources)
	require.Len(t, w.Roads, cfg.Zones)

	total := 0.0
	for _, z := range w.Zones {
		require.GreaterOrEqual(t, z.Population, 100.0)
		require.Less(t, z.Population, 1000.0)
		require.Zero(t, z.Evacuated)
		require.Zero(t, z.Casualties)
		require.GreaterOrEqual(t, z.Risk, 0.0)
		require.LessOrEqual(t, z.Risk, cfg.DisasterIntensity)
		total += z.Population
	}
	require.Equal(t, total, w.TotalPopulation())

	for _, s := range w.Shelters {
		require.GreaterOrEqual(t, s.Capacity, 200.0)
		require.Less(t, s.Capacity, 500.0)
		require.Zero(t, s.Occupancy)
	}
	for _, r := range w.Resources {
		require.True(t, r.Available)
		require.GreaterOrEqual(t, r.X, 0.0)
		require.Less(t, r.X, 1.0)
	}
	for i := range w.Roads {
		require.Len(t, w.Roads[i], cfg.Zones)
		for j := range w.Roads[i] {
			require.Equal(t, 1.0, w.Roads[i][j])
		}
	}
}

func TestNewWorldRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Zones = 0
	_, err := NewWorld(cfg, 1)
	require.ErrorIs(t, err, ErrBadConfig)
}

// Two worlds with the same seed and action sequence must produce
// bit-identical trajectories.
func TestDeterminismGivenSeed(t *testing.T) {
	cfg := Config{Zones: 6, Shelters: 2, Resources: 4, MaxTimesteps: 30, DisasterIntensity: 0.7}

	run := func() ([]StepResult, *World) {
		w, err := NewWorld(cfg, 42)
		require.NoError(t, err)
		var results []StepResult
		for i := 0; i < 25; i++ {
			a := Action{Type: ActionType(i % int(numActionTypes)), Resource: i % cfg.Resources, Zone: i % cfg.Zones}
			res, err := w.Step(a)
			require.NoError(t, err)
			results = append(results, res)
		}
		return results, w
	}

	first, w1 := run()
	second, w2 := run()

	require.Equal(t, first, second)
	require.Equal(t, w1.Zones, w2.Zones)
	require.Equal(t, w1.Roads, w2.Roads)
	require.Equal(t, w1.TotalCasualties, w2.TotalCasualties)
}

func TestDifferentSeedsDiverge(t *testing.T) {
	cfg := DefaultConfig()
	w1, err := NewWorld(cfg, 1)
	require.NoError(t, err)
	w2, err := NewWorld(cfg, 2)
	require.NoError(t, err)
	require.NotEqual(t, w1.Zones, w2.Zones)
}
