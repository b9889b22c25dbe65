// ABOUTME: Defines functional options for configuring the SDK client.
// ABOUTME: Covers connection, logging, metrics, and tracing settings.

package mlflow

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// options holds the configuration for a Client.
type options struct {
	trackingURI    string
	token          string
	headers        map[string]string
	httpClient     *http.Client
	logger         *slog.Logger
	insecure       bool
	timeout        time.Duration
	registerer     prometheus.Registerer
	tracerProvider trace.TracerProvider
}

// Option configures a Client.
type Option func(*options)

// WithTrackingURI sets the MLflow server URL.
// Overrides MLFLOW_TRACKING_URI environment variable.
func WithTrackingURI(uri string) Option {
	return func(o *options) {
		o.trackingURI = uri
	}
}

// WithToken sets the bearer token sent with every request.
// Overrides MLFLOW_TRACKING_TOKEN environment variable.
func WithToken(token string) Option {
	return func(o *options) {
		o.token = token
	}
}

// WithHeaders adds headers sent with every request, such as a workspace
// selector required by a proxy in front of the server. Repeated calls merge;
// the Authorization header set by WithToken wins over one given here.
func WithHeaders(headers map[string]string) Option {
	return func(o *options) {
		if o.headers == nil {
			o.headers = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			o.headers[k] = v
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
// Use this to configure TLS or proxies.
// When a custom client is provided, WithTimeout is ignored;
// configure the timeout directly on the provided client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets a structured logger for debug output.
// If not set, the SDK is silent.
func WithLogger(handler slog.Handler) Option {
	return func(o *options) {
		if handler != nil {
			o.logger = slog.New(handler)
		}
	}
}

// WithInsecure allows HTTP connections (not recommended for production).
// Overrides MLFLOW_INSECURE_SKIP_TLS_VERIFY environment variable.
func WithInsecure() Option {
	return func(o *options) {
		o.insecure = true
	}
}

// WithTimeout sets the per-request timeout.
// Default: 30 seconds.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithMetricsRegisterer registers request counters and latency histograms
// with reg. Clients sharing a registerer share the collectors.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithTracerProvider sets the OpenTelemetry provider used to trace requests.
// Default: the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}
