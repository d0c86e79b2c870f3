package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestObservationDim(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want int
	}{
		{"default", DefaultConfig(), 3*25 + 2*5 + 3*10 + 25*25 + 1},
		{"tiny", Config{Zones: 2, Shelters: 1, Resources: 1, MaxTimesteps: 10, DisasterIntensity: 0.5}, 6 + 2 + 3 + 4 + 1},
		{"single", Config{Zones: 1, Shelters: 1, Resources: 1, MaxTimesteps: 1, DisasterIntensity: 0}, 3 + 2 + 3 + 1 + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ObservationDim(tt.cfg))

			w, err := NewWorld(tt.cfg, 13)
			require.NoError(t, err)
			require.Len(t, w.Observe(), tt.want)
		})
	}
}

func TestObserveLayout(t *testing.T) {
	cfg := Config{Zones: 2, Shelters: 1, Resources: 1, MaxTimesteps: 10, DisasterIntensity: 0.5}
	w, err := NewWorld(cfg, 21)
	require.NoError(t, err)

	w.Zones[0].Population = 400
	w.Zones[1].Population = 1000
	w.Zones[0].Evacuated = 50
	w.Zones[1].Casualties = 25
	w.Shelters[0].Capacity = 250
	w.Shelters[0].Occupancy = 50
	w.Resources[0].X = 0.25
	w.Resources[0].Y = 0.75
	w.Resources[0].Available = false
	w.Roads[0][1] = 0.5
	w.CurrentStep = 5

	obs := w.Observe()
	want := []float64{
		0.4, 1.0, // populations / 1000
		0.05, 0, // evacuated / 1000
		0, 0.25, // casualties / 100
		0.5,  // capacity / 500
		0.1,  // occupancy / 500
		0.25, 0.75, // resource position
		0,                // availability
		1, 0.5, w.Roads[1][0], w.Roads[1][1], // road matrix row-major
		0.5, // step / max
	}
	require.InDeltaSlice(t, want, obs, 1e-12)
}

func TestObservationNotClamped(t *testing.T) {
	cfg := Config{Zones: 1, Shelters: 1, Resources: 1, MaxTimesteps: 10, DisasterIntensity: 0.5}
	w, err := NewWorld(cfg, 2)
	require.NoError(t, err)

	// Soft normalization: an oversized population exceeds 1 and is
	// passed through untouched.
	w.Zones[0].Population = 2500
	require.Equal(t, 2.5, w.Observe()[0])
}

func TestValidateObservation(t *testing.T) {
	cfg := Config{Zones: 2, Shelters: 1, Resources: 1, MaxTimesteps: 10, DisasterIntensity: 0.5}
	w, err := NewWorld(cfg, 4)
	require.NoError(t, err)

	require.NoError(t, ValidateObservation(w.Observe(), cfg))
	require.ErrorIs(t, ValidateObservation(w.Observe()[1:], cfg), ErrDimension)
	require.ErrorIs(t, ValidateObservation(nil, cfg), ErrDimension)
}
