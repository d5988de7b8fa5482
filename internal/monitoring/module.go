package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options control monitoring module configuration.
type Options struct {
	// Namespace configures the Prometheus namespace. Defaults to "simple_verify".
	Namespace string
	// DisableRuntimeCollectors skips the Go and process collectors.
	DisableRuntimeCollectors bool
}

// Module owns a Prometheus registry and the verification collectors.
// It satisfies auth.MetricsRecorder.
type Module struct {
	registry *prometheus.Registry

	codesIssued          *prometheus.CounterVec
	verificationAttempts *prometheus.CounterVec
	resendRequests       *prometheus.CounterVec
	deliveries           *prometheus.CounterVec
	requestLatency       *prometheus.HistogramVec
}

// NewModule constructs a monitoring module with its own Prometheus registry.
func NewModule(opts Options) (*Module, error) {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "simple_verify"
	}

	m := &Module{
		registry: prometheus.NewRegistry(),
		codesIssued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "verification_codes_issued_total",
				Help:      "Verification codes issued by reason",
			},
			[]string{"reason"},
		),
		verificationAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "verification_attempts_total",
				Help:      "Verification code submissions by result",
			},
			[]string{"result"},
		),
		resendRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "verification_resend_requests_total",
				Help:      "Resend requests by result",
			},
			[]string{"result"},
		),
		deliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "verification_email_deliveries_total",
				Help:      "Verification email delivery attempts by result",
			},
			[]string{"result"},
		),
		requestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
	}

	collectors := []prometheus.Collector{
		m.codesIssued, m.verificationAttempts, m.resendRequests, m.deliveries, m.requestLatency,
	}
	if !opts.DisableRuntimeCollectors {
		collectors = append(collectors,
			prometheus.NewGoCollector(),
			prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		)
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Registry exposes the underlying Prometheus registry.
func (m *Module) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler serving Prometheus metrics for this module.
func (m *Module) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// CodeIssued counts a code issued for reason ("registration" or "resend").
func (m *Module) CodeIssued(reason string) {
	m.codesIssued.WithLabelValues(reason).Inc()
}

// VerificationAttempt counts a code submission by outcome.
func (m *Module) VerificationAttempt(result string) {
	m.verificationAttempts.WithLabelValues(result).Inc()
}

// ResendRequest counts a resend request by outcome.
func (m *Module) ResendRequest(result string) {
	m.resendRequests.WithLabelValues(result).Inc()
}

// Delivery counts an attempt to mail a code, "sent" or "failed".
func (m *Module) Delivery(result string) {
	m.deliveries.WithLabelValues(result).Inc()
}

// Middleware records request latency labelled by the chi route pattern.
func (m *Module) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		m.requestLatency.
			WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}
