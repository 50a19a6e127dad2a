package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

type pingRegistrar struct{}

func (pingRegistrar) RegisterRoutes(r chi.Router) {
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("pong"))
	})
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	srv, err := New(&Config{
		ListenAddr:    ":0",
		DrainDuration: time.Millisecond,
	}, pingRegistrar{})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.srv.Handler)
	t.Cleanup(ts.Close)
	return srv, ts
}

func get(t *testing.T, url string) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestHealthEndpoints(t *testing.T) {
	_, ts := newTestServer(t)

	require.Equal(t, http.StatusOK, get(t, ts.URL+"/livez"))
	require.Equal(t, http.StatusOK, get(t, ts.URL+"/readyz"))
	require.Equal(t, http.StatusOK, get(t, ts.URL+"/ping"))
}

func TestDrainTogglesReadiness(t *testing.T) {
	_, ts := newTestServer(t)

	require.Equal(t, http.StatusOK, get(t, ts.URL+"/drain"))
	require.Equal(t, http.StatusServiceUnavailable, get(t, ts.URL+"/readyz"))

	// Liveness and the API itself are unaffected by draining.
	require.Equal(t, http.StatusOK, get(t, ts.URL+"/livez"))
	require.Equal(t, http.StatusOK, get(t, ts.URL+"/ping"))

	require.Equal(t, http.StatusOK, get(t, ts.URL+"/undrain"))
	require.Equal(t, http.StatusOK, get(t, ts.URL+"/readyz"))
}
