package scenario

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/talgya/crisis-sim/internal/sim"
)

func TestConfigFor(t *testing.T) {
	tests := []struct {
		dt            DisasterType
		diff          Difficulty
		wantIntensity float64
		wantShelters  int
	}{
		{Earthquake, Medium, 0.7, 5},
		{Flood, Easy, 0.3, 5},
		{Cyclone, Hard, 0.72, 4},
		{Wildfire, Expert, 0.77, 3},
	}

	for _, tt := range tests {
		t.Run(string(tt.dt)+"-"+string(tt.diff), func(t *testing.T) {
			cfg, err := ConfigFor(tt.dt, tt.diff)
			require.NoError(t, err)
			require.NoError(t, cfg.Validate())
			require.InDelta(t, tt.wantIntensity, cfg.DisasterIntensity, 1e-9)
			require.Equal(t, tt.wantShelters, cfg.Shelters)
		})
	}
}

func TestConfigForRejectsUnknown(t *testing.T) {
	_, err := ConfigFor("meteor", Medium)
	require.ErrorIs(t, err, sim.ErrBadConfig)

	_, err = ConfigFor(Flood, "impossible")
	require.ErrorIs(t, err, sim.ErrBadConfig)
}

func TestNewScenario(t *testing.T) {
	sc, err := New("Delta Flood", "river delta inundation", Flood, Hard, 1234)
	require.NoError(t, err)

	require.NotEmpty(t, sc.ID)
	require.Equal(t, Flood, sc.DisasterType)
	require.Len(t, sc.RiskField, RiskFieldSize)
	for _, row := range sc.RiskField {
		require.Len(t, row, RiskFieldSize)
		for _, v := range row {
			require.GreaterOrEqual(t, v, 0.0)
			require.LessOrEqual(t, v, sc.Config.DisasterIntensity)
		}
	}
}

func TestRiskFieldDeterministicPerSeed(t *testing.T) {
	a := RiskField(7, 8, 0.5)
	b := RiskField(7, 8, 0.5)
	c := RiskField(8, 8, 0.5)

	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
}
