/*
Package metrics exposes ledger and HTTP metrics in Prometheus format.

METRICS:
  ledger_bills_created_total{account_type}
  ledger_bills_deleted_total{account_type}
  ledger_rejections_total{op, code}
  ledger_compensation_total{op, outcome}      outcome = restored | failed
  ledger_payment_method_position{payment_method_id, account_type}
  http_requests_total{method, route, status}
  http_request_duration_seconds{method, route}

A compensation with outcome="failed" means a payment method balance no longer
matches its bills and needs manual repair.
*/
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/warp/household-ledger/expense"
)

// Metrics owns a private registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	billsCreated  *prometheus.CounterVec
	billsDeleted  *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	compensations *prometheus.CounterVec
	position      *prometheus.GaugeVec

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		billsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_bills_created_total",
			Help: "Bills recorded by the ledger engine.",
		}, []string{"account_type"}),
		billsDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_bills_deleted_total",
			Help: "Bills removed by the ledger engine.",
		}, []string{"account_type"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_rejections_total",
			Help: "Ledger operations rejected before any write, by error code.",
		}, []string{"op", "code"}),
		compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_compensation_total",
			Help: "Compensating balance writes after a failed bill write.",
		}, []string{"op", "outcome"}),
		position: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ledger_payment_method_position",
			Help: "Outstanding debt (credit) or balance (savings) after the last bill.",
		}, []string{"payment_method_id", "account_type"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		m.billsCreated, m.billsDeleted, m.rejections, m.compensations, m.position,
		m.requests, m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// =============================================================================
// LEDGER RECORDER (expense.Recorder)
// =============================================================================

func (m *Metrics) BillCreated(pm expense.PaymentMethod, _ decimal.Decimal) {
	m.billsCreated.WithLabelValues(string(pm.Account)).Inc()
	m.setPosition(pm)
}

func (m *Metrics) BillDeleted(pm expense.PaymentMethod, _ decimal.Decimal) {
	m.billsDeleted.WithLabelValues(string(pm.Account)).Inc()
	m.setPosition(pm)
}

func (m *Metrics) Rejected(op string, err error) {
	m.rejections.WithLabelValues(op, expense.Code(err)).Inc()
}

func (m *Metrics) Compensated(op string, ok bool) {
	outcome := "restored"
	if !ok {
		outcome = "failed"
	}
	m.compensations.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) setPosition(pm expense.PaymentMethod) {
	m.position.WithLabelValues(string(pm.ID), string(pm.Account)).Set(pm.Position().InexactFloat64())
}

// =============================================================================
// HTTP MIDDLEWARE
// =============================================================================

// Middleware records request counts and latency keyed by the chi route
// pattern, so path parameters do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

var _ expense.Recorder = (*Metrics)(nil)
