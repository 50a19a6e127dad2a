// Package metrics exposes protocol counters on a dedicated Prometheus
// endpoint.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	vmetrics "github.com/VictoriaMetrics/metrics"
)

// MetricsServer serves the /metrics endpoint on its own listener, kept
// separate from the API server so scraping survives API drains.
type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server for the given package namespace. The
// namespace prefixes every counter emitted through this package.
func New(pkgName, listenAddr string) (*MetricsServer, error) {
	if pkgName == "" {
		return nil, fmt.Errorf("metrics package name must not be empty")
	}
	namespace = pkgName

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		vmetrics.WritePrometheus(w, true)
	})

	return &MetricsServer{
		srv: &http.Server{
			Addr:         listenAddr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
	}, nil
}

// ListenAndServe starts the metrics listener.
func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics listener.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}

var namespace = "clue_fhe"

func counter(name string) *vmetrics.Counter {
	return vmetrics.GetOrCreateCounter(fmt.Sprintf("%s_%s", sanitize(namespace), name))
}

func sanitize(s string) string {
	out := []rune(s)
	for i, r := range out {
		if r == '-' || r == '.' || r == '/' {
			out[i] = '_'
		}
	}
	return string(out)
}

// IncSubmission counts an accepted contribution.
func IncSubmission() {
	counter("submissions_total").Inc()
}

// IncAccusation counts an accepted accusation request.
func IncAccusation() {
	counter("accusations_total").Inc()
}

// IncSolutionRequest counts an accepted solution-disclosure request.
func IncSolutionRequest() {
	counter("solution_requests_total").Inc()
}

// IncSettlement counts a successful settlement by kind.
func IncSettlement(kind string) {
	counter(fmt.Sprintf(`settlements_total{kind=%q}`, kind)).Inc()
}

// IncSettlementFailure counts a rejected settlement by reason.
func IncSettlementFailure(reason string) {
	counter(fmt.Sprintf(`settlement_failures_total{reason=%q}`, reason)).Inc()
}
