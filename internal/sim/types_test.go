package sim

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestActionTypeFromWire(t *testing.T) {
	for v := 0; v < 5; v++ {
		at, err := ActionTypeFromWire(v)
		require.NoError(t, err)
		require.Equal(t, v, at.Wire())
	}
	for _, v := range []int{-1, 5, 99} {
		_, err := ActionTypeFromWire(v)
		require.ErrorIs(t, err, ErrBadAction)
	}
}

func TestActionJSONRoundTrip(t *testing.T) {
	a := Action{Type: EvacuateZone, Resource: 2, Zone: 7}

	b, err := json.Marshal(a)
	require.NoError(t, err)
	require.JSONEq(t, "[3,2,7]", string(b))

	var got Action
	require.NoError(t, json.Unmarshal(b, &got))
	require.Equal(t, a, got)
}

func TestActionUnmarshalRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"wrong-length", "[1,2]"},
		{"too-long", "[1,2,3,4]"},
		{"bad-type", "[9,0,0]"},
		{"negative-resource", "[0,-1,0]"},
		{"negative-zone", "[0,0,-2]"},
		{"not-an-array", `{"action_type":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a Action
			require.ErrorIs(t, json.Unmarshal([]byte(tt.in), &a), ErrBadAction)
		})
	}
}

func TestActionTypeStrings(t *testing.T) {
	require.Equal(t, "Send Ambulance", SendAmbulance.String())
	require.Equal(t, "Evacuate Zone", EvacuateZone.String())
	require.Equal(t, "supply_truck", KindSupplyTruck.String())
}
