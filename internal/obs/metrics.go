package obs

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	workflowTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relief_workflow_transitions_total",
			Help: "Needs-list workflow transitions by outcome.",
		},
		[]string{"transition", "outcome"},
	)

	lockConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relief_lock_conflicts_total",
		Help: "Fulfilment edit lock acquisitions refused because another user holds the lock.",
	})

	stockMovements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relief_stock_movements_total",
			Help: "Stock ledger movements appended, by direction.",
		},
		[]string{"direction"},
	)

	ready = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "relief_ready",
		Help: "1 when the service considers itself ready to serve traffic.",
	})

	initOnce sync.Once
)

// Init registers metrics in the default registry.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight,
			httpRequestsTotal,
			httpRequestDuration,
			workflowTransitions,
			lockConflicts,
			stockMovements,
			ready,
		)
	})
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveTransition records a workflow transition attempt and its outcome.
func ObserveTransition(transition string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "refused"
	}
	workflowTransitions.WithLabelValues(transition, outcome).Inc()
}

// ObserveLockConflict counts a refused lock acquisition.
func ObserveLockConflict() { lockConflicts.Inc() }

// ObserveMovement counts an appended stock movement.
func ObserveMovement(direction string) {
	stockMovements.WithLabelValues(direction).Inc()
}

// SetReady flips the readiness gauge.
func SetReady(ok bool) {
	if ok {
		ready.Set(1)
		return
	}
	ready.Set(0)
}

// Instrument wraps a handler with RPS/latency/in-flight measurements.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// CanonicalPath collapses resource identifiers so metric label cardinality stays bounded.
func CanonicalPath(raw string) string {
	if raw == "" {
		return "/"
	}
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[:i]
	}
	parts := strings.Split(raw, "/")
	canonical := func(prefix []string, action string) string {
		p := "/" + strings.Join(prefix, "/") + "/:id"
		if action != "" {
			p += "/" + action
		}
		return p
	}
	// /v1/needs-lists/:id[/...]
	if len(parts) >= 4 && parts[1] == "v1" && parts[2] == "needs-lists" {
		switch len(parts) {
		case 4:
			return canonical(parts[1:3], "")
		case 5:
			return canonical(parts[1:3], parts[4])
		case 6:
			return canonical(parts[1:3], parts[4]+"/"+parts[5])
		}
	}
	// /v1/stock/:sku
	if len(parts) == 4 && parts[1] == "v1" && parts[2] == "stock" && parts[3] != "movements" && parts[3] != "items" {
		return "/v1/stock/:sku"
	}
	// /v1/change-requests/:id[/action]
	if len(parts) >= 4 && parts[1] == "v1" && parts[2] == "change-requests" {
		switch len(parts) {
		case 4:
			return canonical(parts[1:3], "")
		case 5:
			return canonical(parts[1:3], parts[4])
		}
	}
	return raw
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
