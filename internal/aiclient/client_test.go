package aiclient

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/talgya/crisis-sim/internal/api"
	"github.com/talgya/crisis-sim/internal/policy"
	"github.com/talgya/crisis-sim/internal/session"
	"github.com/talgya/crisis-sim/internal/sim"
	"github.com/talgya/crisis-sim/internal/store"
)

func testConfig() sim.Config {
	return sim.Config{Zones: 2, Shelters: 1, Resources: 2, MaxTimesteps: 3, DisasterIntensity: 0.5}
}

func newService(t *testing.T) *Client {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "svc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	srv := &api.Server{
		Policy:   policy.NewRandom(testConfig(), 7),
		Sessions: session.NewRegistry(),
		Store:    st,
		Cfg:      testConfig(),
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return New(ts.URL)
}

func TestPredictAgainstLiveService(t *testing.T) {
	c := newService(t)

	w, err := sim.NewWorld(testConfig(), 3)
	require.NoError(t, err)

	pred, err := c.Predict(w.Observe(), "sess-x")
	require.NoError(t, err)
	require.Len(t, pred.Action, 3)
	require.Equal(t, policy.RandomConfidence, pred.Confidence)
	require.Equal(t, "Random action (no model loaded)", pred.Explanation)
}

func TestEvaluateUnavailableWithoutModel(t *testing.T) {
	c := newService(t)

	w, err := sim.NewWorld(testConfig(), 3)
	require.NoError(t, err)

	// The random fallback serves predict but refuses comparison; the
	// client maps the 503 onto ErrUnavailable.
	_, err = c.Evaluate([][]float64{w.Observe()}, []sim.Action{{Type: sim.SendAmbulance}})
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestStatusDegradesWhenUnreachable(t *testing.T) {
	// A server that is immediately closed leaves nothing listening.
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := New(url)
	st := c.Status()
	require.False(t, st.ModelLoaded)
	require.Equal(t, "unavailable", st.Status)
	require.NotEmpty(t, st.Error)
	require.False(t, c.Healthy())
}

func TestStatusAgainstLiveService(t *testing.T) {
	c := newService(t)

	st := c.Status()
	require.Equal(t, "ok", st.Status)
	require.False(t, st.ModelLoaded)
	require.Equal(t, "random", st.ModelType)
	require.True(t, c.Healthy())
}

func TestPredictUnreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	_, err := New(url).Predict([]float64{0.1}, "")
	require.ErrorIs(t, err, ErrUnavailable)
}
