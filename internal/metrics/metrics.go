package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mark-e-deyoung/qperf/internal/logging"
)

// Prometheus counters for server mode. The endpoint is optional; counting is
// always on and costs nothing measurable next to a test run.
var (
	RequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qperf_requests_total",
		Help: "Total test requests received.",
	})
	VersionRejects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qperf_version_rejects_total",
		Help: "Total requests rejected for a protocol version mismatch.",
	})
	BadIndexRejects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qperf_bad_index_rejects_total",
		Help: "Total requests naming a test index outside the registry.",
	})
	TestsRun = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qperf_tests_run_total",
		Help: "Tests run by name.",
	}, []string{"test"})
	TransferErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qperf_transfer_errors_total",
		Help: "Control-channel transfer failures by kind.",
	}, []string{"kind"})
	ActiveTest = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "qperf_active_test",
		Help: "1 while a test is being served.",
	})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "qperf_build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version"})
)

// Transfer error label constants (stable label values to bound cardinality).
const (
	ErrTimeout = "timeout"
	ErrClosed  = "peer_closed"
	ErrIO      = "io"
)

// InitBuildInfo sets the build info gauge; call once at startup.
func InitBuildInfo(version string) {
	BuildInfo.WithLabelValues(version).Set(1)
	for _, lbl := range []string{ErrTimeout, ErrClosed, ErrIO} {
		TransferErrors.WithLabelValues(lbl).Add(0)
	}
}

// StartHTTP serves Prometheus metrics at /metrics on addr.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}
