package transport

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type requestMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newRequestMetrics(reg prometheus.Registerer) (*requestMetrics, error) {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mlflow",
		Subsystem: "client",
		Name:      "requests_total",
		Help:      "MLflow REST requests by method, endpoint and response code.",
	}, []string{"method", "endpoint", "code"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mlflow",
		Subsystem: "client",
		Name:      "request_duration_seconds",
		Help:      "Latency of MLflow REST requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "endpoint"})

	var err error
	if requests, err = registerOrReuse(reg, requests); err != nil {
		return nil, err
	}
	if duration, err = registerOrReuse(reg, duration); err != nil {
		return nil, err
	}

	return &requestMetrics{requests: requests, duration: duration}, nil
}

// registerOrReuse registers c, returning the existing collector when an
// identical one is already registered so several clients can share a registry.
func registerOrReuse[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *requestMetrics) observe(method, endpoint, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, endpoint, code).Inc()
	m.duration.WithLabelValues(method, endpoint).Observe(d.Seconds())
}
