// Package metrics exposes Prometheus metrics and a health endpoint for the
// trading loop.
package metrics

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the trader.
type Metrics struct {
	CyclesTotal   *prometheus.CounterVec // labels: result=ok|data_unavailable|order_failed|error
	SignalsTotal  *prometheus.CounterVec // labels: action, strategy
	OrdersTotal   *prometheus.CounterVec // labels: status=success|failed
	GateBlocks    prometheus.Counter
	ComputeDur    prometheus.Histogram
	TradesToday   prometheus.Gauge
	ConsecFails   prometheus.Gauge
	LastCandleAge prometheus.Gauge
}

// New registers and returns the trader metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trader_cycles_total",
			Help: "Analysis cycles by outcome",
		}, []string{"result"}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trader_signals_total",
			Help: "Signals emitted by action and strategy",
		}, []string{"action", "strategy"}),
		OrdersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trader_orders_total",
			Help: "Order submissions by status",
		}, []string{"status"}),
		GateBlocks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trader_gate_blocks_total",
			Help: "Signals downgraded to HOLD by the daily trade cap",
		}),
		ComputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trader_indicator_compute_duration_seconds",
			Help:    "Indicator pipeline latency per cycle",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		TradesToday: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trader_trades_today",
			Help: "Trades recorded in the current calendar day",
		}),
		ConsecFails: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trader_consecutive_failures",
			Help: "Consecutive unexpected cycle failures",
		}),
		LastCandleAge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trader_last_candle_age_seconds",
			Help: "Age of the newest fetched candle at compute time",
		}),
	}

	reg.MustRegister(
		m.CyclesTotal,
		m.SignalsTotal,
		m.OrdersTotal,
		m.GateBlocks,
		m.ComputeDur,
		m.TradesToday,
		m.ConsecFails,
		m.LastCandleAge,
	)
	return m
}

// HealthStatus tracks liveness facts reported by the loop.
type HealthStatus struct {
	mu sync.RWMutex

	StartedAt   time.Time
	LastCycleAt time.Time
	LastCycleOK bool
}

// NewHealthStatus initializes the health tracker.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now()}
}

// RecordCycle notes the outcome of one analysis cycle.
func (h *HealthStatus) RecordCycle(ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.LastCycleAt = time.Now()
	h.LastCycleOK = ok
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overall := "healthy"
	code := http.StatusOK
	if !h.LastCycleAt.IsZero() && !h.LastCycleOK {
		overall = "degraded"
		code = http.StatusServiceUnavailable
	}

	lastCycle := ""
	if !h.LastCycleAt.IsZero() {
		lastCycle = h.LastCycleAt.Format(time.RFC3339)
	}

	status := struct {
		Status      string `json:"status"`
		Uptime      string `json:"uptime"`
		LastCycleAt string `json:"last_cycle_at"`
		LastCycleOK bool   `json:"last_cycle_ok"`
	}{
		Status:      overall,
		Uptime:      time.Since(h.StartedAt).Round(time.Second).String(),
		LastCycleAt: lastCycle,
		LastCycleOK: h.LastCycleOK,
	}

	w.Header().Set("Content-Type", "application/json")
	if code != http.StatusOK {
		w.WriteHeader(code)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	srv *http.Server
}

// NewServer creates the metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		srv: &http.Server{Addr: addr, Handler: mux},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
