package server

import (
	"net/http"

	"github.com/VictoriaMetrics/metrics"
	"github.com/jkrings/larch/lib/worker"
)

// --------------------------------------------------------------------------
// Server Metrics
// --------------------------------------------------------------------------

var (
	connectionsAccepted = metrics.NewCounter("larch_connections_accepted_total")
	connectionsClosed   = metrics.NewCounter("larch_connections_closed_total")
	connectionsIdleDrop = metrics.NewCounter("larch_connections_idle_timeout_total")
	requestsParsed      = metrics.NewCounter("larch_requests_total")
	keysExpired         = metrics.NewCounter("larch_keys_expired_total")
)

// ServeMetrics exposes the metrics of the process in Prometheus text
// format. It blocks and is meant to run in its own goroutine; it only
// reads counters, never the keyspace.
func ServeMetrics(endpoint string, pool *worker.Pool) {
	logger := GetLogger("metrics")

	metrics.NewGauge("larch_worker_tasks_submitted", func() float64 {
		return float64(pool.Submitted())
	})
	metrics.NewGauge("larch_worker_tasks_completed", func() float64 {
		return float64(pool.Completed())
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	logger.Infof("serving metrics on %s", endpoint)
	logger.Errorf("metrics server stopped: %v", http.ListenAndServe(endpoint, mux))
}
