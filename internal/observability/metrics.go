package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the HTTP surface and the commerce
// workflows.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	salesTotal      *prometheus.CounterVec
	paymentsTotal   prometheus.Counter
	stockMovements  *prometheus.CounterVec
	stockRejections prometheus.Counter
}

// NewMetrics initialises the registry and the base collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tillpoint_http_requests_total",
		Help: "HTTP requests partitioned by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tillpoint_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	sales := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tillpoint_sales_total",
		Help: "Completed sales partitioned by payment method.",
	}, []string{"payment_method"})
	payments := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tillpoint_credit_payments_total",
		Help: "Payments applied against credit sales.",
	})
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tillpoint_stock_movements_total",
		Help: "Stock ledger entries partitioned by kind.",
	}, []string{"kind"})
	rejections := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tillpoint_stock_rejections_total",
		Help: "Checkouts rejected because stock would go negative.",
	})
	registry.MustRegister(requests, duration, sales, payments, movements, rejections)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		salesTotal:      sales,
		paymentsTotal:   payments,
		stockMovements:  movements,
		stockRejections: rejections,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// CountSale increments the sale counter for a payment method.
func (m *Metrics) CountSale(paymentMethod string) {
	if m == nil {
		return
	}
	m.salesTotal.WithLabelValues(paymentMethod).Inc()
}

// CountCreditPayment increments the payment counter.
func (m *Metrics) CountCreditPayment() {
	if m == nil {
		return
	}
	m.paymentsTotal.Inc()
}

// CountStockRejection increments the insufficient-stock rejection counter.
func (m *Metrics) CountStockRejection() {
	if m == nil {
		return
	}
	m.stockRejections.Inc()
}

// CountStockMovement increments the ledger entry counter for a kind.
func (m *Metrics) CountStockMovement(kind string) {
	if m == nil {
		return
	}
	m.stockMovements.WithLabelValues(kind).Inc()
}

// Registerer exposes the registry for custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
