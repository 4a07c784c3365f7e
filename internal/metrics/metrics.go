// Package metrics exposes Prometheus instrumentation for the predictor.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cryptoPredictor/internal/domain"
	"cryptoPredictor/internal/ports"
)

// Metrics holds all Prometheus metrics for the predictor.
type Metrics struct {
	SignalsTotal     *prometheus.CounterVec // labels: symbol, signal, source
	FailuresTotal    *prometheus.CounterVec // labels: symbol, reason
	GenerateDur      prometheus.Histogram
	ScorerFallbacks  *prometheus.CounterVec // labels: reason
	CacheLookups     *prometheus.CounterVec // labels: result=hit|miss|stale
	LastConfidence   *prometheus.GaugeVec   // labels: symbol
	BatchSymbolsLast prometheus.Gauge
}

// NewMetrics creates all metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "predictor_signals_total",
			Help: "Signals generated (by symbol, signal and scorer source)",
		}, []string{"symbol", "signal", "source"}),
		FailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "predictor_failures_total",
			Help: "Signal generations that returned an error",
		}, []string{"symbol", "reason"}),
		GenerateDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "predictor_generate_duration_seconds",
			Help:    "Latency of one fetch-and-evaluate cycle",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		ScorerFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "predictor_scorer_fallbacks_total",
			Help: "Model-backed scoring attempts that fell back to rules",
		}, []string{"reason"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "predictor_candle_cache_lookups_total",
			Help: "Candle cache outcomes (hit, miss, stale)",
		}, []string{"result"}),
		LastConfidence: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "predictor_last_confidence_pct",
			Help: "Confidence of the most recent signal per symbol",
		}, []string{"symbol"}),
		BatchSymbolsLast: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "predictor_batch_symbols",
			Help: "Symbols evaluated in the most recent batch",
		}),
	}

	reg.MustRegister(
		m.SignalsTotal,
		m.FailuresTotal,
		m.GenerateDur,
		m.ScorerFallbacks,
		m.CacheLookups,
		m.LastConfidence,
		m.BatchSymbolsLast,
	)

	return m
}

// ObserveSignal records a generated signal and how long it took.
func (m *Metrics) ObserveSignal(sig *domain.Signal, source domain.ScoreSource, elapsed time.Duration) {
	m.SignalsTotal.WithLabelValues(sig.Symbol, string(sig.Signal), string(source)).Inc()
	m.LastConfidence.WithLabelValues(sig.Symbol).Set(sig.Confidence)
	m.GenerateDur.Observe(elapsed.Seconds())
}

// ObserveFailure records a failed generation, labelled by error class.
func (m *Metrics) ObserveFailure(symbol string, err error) {
	m.FailuresTotal.WithLabelValues(symbol, Reason(err)).Inc()
}

// ObserveBatch records the size of a multi-symbol run.
func (m *Metrics) ObserveBatch(symbols int) {
	m.BatchSymbolsLast.Set(float64(symbols))
}

// ObserveScorerFallback implements strategy.FallbackObserver.
func (m *Metrics) ObserveScorerFallback(reason string) {
	m.ScorerFallbacks.WithLabelValues(reason).Inc()
}

// ObserveCacheLookup records a cache hit, miss, or stale fallback.
func (m *Metrics) ObserveCacheLookup(result string) {
	m.CacheLookups.WithLabelValues(result).Inc()
}

// Reason maps an error to a bounded label value. Causes are tested before
// ErrDataUnavailable, which adapters add to every failed fetch.
func Reason(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, ports.ErrContextCanceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ports.ErrTimeout):
		return "timeout"
	case errors.Is(err, ports.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ports.ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ports.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, ports.ErrInvalidCandles):
		return "invalid_candles"
	case errors.Is(err, ports.ErrDataUnavailable):
		return "data_unavailable"
	default:
		return "other"
	}
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr   string
	logger ports.Logger
	srv    *http.Server
}

// NewServer creates a metrics server for the given gatherer.
func NewServer(addr string, gatherer prometheus.Gatherer, logger ports.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})

	return &Server{
		addr:   addr,
		logger: logger,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start(ctx context.Context) {
	go func() {
		s.logger.Info(ctx, "Metrics server listening", map[string]interface{}{"addr": s.addr})
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(ctx, err, "Metrics server error")
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
