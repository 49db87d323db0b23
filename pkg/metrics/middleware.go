package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	httpRequestsTotal   = "http_requests_total"
	httpRequestDuration = "http_request_duration_seconds"
	httpResponseSize    = "http_response_size_bytes"

	// route label of requests no route matched
	unmatchedRoute = "unmatched"
)

var defaultLatencyBuckets = []float64{0.05, 0.1, 0.3, 0.5, 1, 5}

type MiddlewareOpts func(m *middlewareConfig)

type middlewareConfig struct {
	buckets []float64
}

// WithLatencyBuckets overrides the histogram buckets, in seconds.
func WithLatencyBuckets(buckets ...float64) MiddlewareOpts {
	return func(m *middlewareConfig) {
		if len(buckets) > 0 {
			m.buckets = buckets
		}
	}
}

// Middleware records requests, latency and response size by status code,
// method and chi route pattern. The pattern keeps ids out of the label values.
type Middleware struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	size     *prometheus.SummaryVec
}

func NewMiddleware(service string, opts ...MiddlewareOpts) *Middleware {
	cfg := &middlewareConfig{buckets: defaultLatencyBuckets}
	for _, o := range opts {
		o(cfg)
	}

	labels := []string{"code", "method", "route"}
	constLabels := prometheus.Labels{"service": service}

	return &Middleware{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem:   leasePlanner,
			Name:        httpRequestsTotal,
			Help:        "number of http requests by status code, method and route",
			ConstLabels: constLabels,
		}, labels),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Subsystem:   leasePlanner,
			Name:        httpRequestDuration,
			Help:        "time spent serving http requests by status code, method and route",
			ConstLabels: constLabels,
			Buckets:     cfg.buckets,
		}, labels),
		size: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Subsystem:   leasePlanner,
			Name:        httpResponseSize,
			Help:        "size of http responses by status code, method and route",
			ConstLabels: constLabels,
		}, labels),
	}
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		code := strconv.Itoa(ww.Status())

		m.requests.WithLabelValues(code, r.Method, route).Inc()
		m.latency.WithLabelValues(code, r.Method, route).Observe(time.Since(start).Seconds())
		m.size.WithLabelValues(code, r.Method, route).Observe(float64(ww.BytesWritten()))
	})
}

func (m *Middleware) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.requests, m.latency, m.size}
}

// MustRegister adds the collectors to reg. Collectors registered by an earlier
// middleware of the same service are reused.
func (m *Middleware) MustRegister(reg prometheus.Registerer) {
	m.requests = registerOrExisting(reg, m.requests)
	m.latency = registerOrExisting(reg, m.latency)
	m.size = registerOrExisting(reg, m.size)
}

func (m *Middleware) MustRegisterDefault() {
	m.MustRegister(prometheus.DefaultRegisterer)
}

func registerOrExisting[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing
		}
	}
	panic(err)
}
