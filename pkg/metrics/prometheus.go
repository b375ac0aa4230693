// Package metrics exposes Prometheus instruments for the solver service.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Solve outcomes.
const (
	OutcomeFeasible   = "feasible"
	OutcomeInfeasible = "infeasible"
	OutcomeError      = "error"
)

// Cache lookup results.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Metrics holds every instrument. Build one with New; the zero value is not
// usable.
type Metrics struct {
	registry *prometheus.Registry

	GRPCRequestsTotal    *prometheus.CounterVec
	GRPCRequestDuration  *prometheus.HistogramVec
	GRPCRequestsInFlight prometheus.Gauge

	SolvesTotal       *prometheus.CounterVec
	SolveDuration     *prometheus.HistogramVec
	SoldiersRequested prometheus.Histogram
	Augmentations     prometheus.Histogram
	GraphIslands      prometheus.Histogram
	GraphArcs         prometheus.Histogram

	CacheLookups  *prometheus.CounterVec
	HistoryWrites *prometheus.CounterVec

	ServiceInfo *prometheus.GaugeVec
}

var (
	defaultMu      sync.Mutex
	defaultMetrics *Metrics
)

// New registers every instrument on a fresh registry, together with the
// runtime collector.
func New(namespace, subsystem string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,

		GRPCRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "grpc_requests_total",
				Help:      "gRPC requests by method and status code",
			},
			[]string{"method", "code"},
		),

		GRPCRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "grpc_request_duration_seconds",
				Help:      "gRPC request latency",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method"},
		),

		GRPCRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "grpc_requests_in_flight",
				Help:      "gRPC requests being handled",
			},
		),

		SolvesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "solves_total",
				Help:      "Solves by outcome: feasible, infeasible or error",
			},
			[]string{"outcome"},
		),

		SolveDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "solve_duration_seconds",
				Help:      "Time to produce an answer, by where it came from",
				Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"source"},
		),

		SoldiersRequested: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "soldiers_requested",
				Help:      "Soldiers per solve request",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
			},
		),

		Augmentations: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "augmentations",
				Help:      "Augmenting paths per solve",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
			},
		),

		GraphIslands: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "graph_islands",
				Help:      "Islands per solved problem",
				Buckets:   []float64{2, 10, 50, 100, 500, 1000, 5000, 10000, 50000, 100000},
			},
		),

		GraphArcs: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "graph_arcs",
				Help:      "Residual arcs per solved problem, four per bridge",
				Buckets:   []float64{4, 40, 400, 4000, 40000, 400000, 4000000},
			},
		),

		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cache_lookups_total",
				Help:      "Answer cache lookups by result",
			},
			[]string{"result"},
		),

		HistoryWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "history_writes_total",
				Help:      "Solve history inserts by status",
			},
			[]string{"status"},
		),

		ServiceInfo: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "service_info",
				Help:      "Constant 1, labelled with the build",
			},
			[]string{"version", "environment"},
		),
	}

	reg.MustRegister(NewRuntimeCollector(namespace, subsystem))

	return m
}

// Init replaces the process-wide metrics.
func Init(namespace, subsystem string) *Metrics {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	defaultMetrics = New(namespace, subsystem)
	return defaultMetrics
}

// Get returns the process-wide metrics, creating them on first use.
func Get() *Metrics {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultMetrics == nil {
		defaultMetrics = New("islandflow", "solver")
	}
	return defaultMetrics
}

// Registry is where the instruments live.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RecordGRPCRequest(method, code string, duration time.Duration) {
	m.GRPCRequestsTotal.WithLabelValues(method, code).Inc()
	m.GRPCRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordSolve counts a solve that ran the solver.
func (m *Metrics) RecordSolve(outcome string, duration time.Duration, soldiers, augmentations int) {
	m.SolvesTotal.WithLabelValues(outcome).Inc()
	m.SolveDuration.WithLabelValues("solver").Observe(duration.Seconds())
	m.SoldiersRequested.Observe(float64(soldiers))
	m.Augmentations.Observe(float64(augmentations))
}

// RecordCachedSolve counts a solve answered from the cache.
func (m *Metrics) RecordCachedSolve(outcome string, duration time.Duration) {
	m.SolvesTotal.WithLabelValues(outcome).Inc()
	m.SolveDuration.WithLabelValues("cache").Observe(duration.Seconds())
}

func (m *Metrics) RecordGraphSize(islands, arcs int) {
	m.GraphIslands.Observe(float64(islands))
	m.GraphArcs.Observe(float64(arcs))
}

func (m *Metrics) RecordCacheLookup(result string) {
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordHistoryWrite(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.HistoryWrites.WithLabelValues(status).Inc()
}

func (m *Metrics) SetServiceInfo(version, environment string) {
	m.ServiceInfo.WithLabelValues(version, environment).Set(1)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Server serves metrics and a liveness probe over HTTP.
type Server struct {
	srv *http.Server
}

// NewServer mounts the metrics handler at path on port.
func NewServer(m *Metrics, port int, path string) *Server {
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		srv: &http.Server{
			Addr:         ":" + strconv.Itoa(port),
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Start blocks until the server stops. A clean Shutdown returns nil.
func (s *Server) Start() error {
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
