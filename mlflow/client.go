// ABOUTME: Main SDK client for MLflow experiment tracking.
// ABOUTME: Provides NewClient constructor and the Tracking accessor.

package mlflow

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/opendatahub-io/mlflow-tracking-go/internal/transport"
	"github.com/opendatahub-io/mlflow-tracking-go/mlflow/tracking"
)

// apiPrefix is appended to the tracking URI to form the REST API root.
const apiPrefix = "/api"

// Client is the MLflow SDK client.
// It is safe for concurrent use after construction.
type Client struct {
	transport *transport.Client
	tracking  *tracking.Client
	opts      options
}

// NewClient creates a new MLflow client with the given options.
// If no options are provided, configuration is read from environment variables:
//   - MLFLOW_TRACKING_URI: MLflow server URL (required)
//   - MLFLOW_TRACKING_TOKEN: Authentication token (optional)
//   - MLFLOW_INSECURE_SKIP_TLS_VERIFY: Allow HTTP (optional, default false)
func NewClient(clientOpts ...Option) (*Client, error) {
	opts := options{}

	// Apply provided options first (they take precedence over env vars)
	for _, opt := range clientOpts {
		opt(&opts)
	}

	// Fill in missing values from environment variables
	if opts.trackingURI == "" {
		opts.trackingURI = os.Getenv("MLFLOW_TRACKING_URI")
	}
	if opts.token == "" {
		opts.token = os.Getenv("MLFLOW_TRACKING_TOKEN")
	}
	if !opts.insecure {
		if v := os.Getenv("MLFLOW_INSECURE_SKIP_TLS_VERIFY"); v == "true" || v == "1" {
			opts.insecure = true
		}
	}

	if opts.trackingURI == "" {
		return nil, fmt.Errorf("mlflow: tracking URI is required (set MLFLOW_TRACKING_URI or use WithTrackingURI)")
	}

	parsedURL, err := url.Parse(opts.trackingURI)
	if err != nil {
		return nil, fmt.Errorf("mlflow: invalid tracking URI: %w", err)
	}

	// Enforce HTTPS unless insecure mode is enabled
	if !opts.insecure && parsedURL.Scheme == "http" {
		return nil, fmt.Errorf("mlflow: HTTP is not allowed (use HTTPS or enable insecure mode with WithInsecure)")
	}

	// "mlflow.example.com" parses as a bare path
	if parsedURL.Scheme == "" {
		parsedURL, err = url.Parse("https://" + opts.trackingURI)
		if err != nil {
			return nil, fmt.Errorf("mlflow: invalid tracking URI: %w", err)
		}
	}
	parsedURL.Path = strings.TrimSuffix(parsedURL.Path, "/")
	opts.trackingURI = parsedURL.String()

	transportClient, err := transport.New(transport.Config{
		BaseURL:        opts.trackingURI + apiPrefix,
		Token:          opts.token,
		Headers:        opts.headers,
		HTTPClient:     opts.httpClient,
		Logger:         opts.logger,
		Timeout:        opts.timeout,
		Registerer:     opts.registerer,
		TracerProvider: opts.tracerProvider,
	})
	if err != nil {
		return nil, fmt.Errorf("mlflow: failed to create transport: %w", err)
	}

	return &Client{
		transport: transportClient,
		tracking:  tracking.NewClient(transportClient),
		opts:      opts,
	}, nil
}

// Tracking returns the experiment tracking client.
func (c *Client) Tracking() *tracking.Client {
	return c.tracking
}

// TrackingURI returns the configured MLflow tracking URI.
func (c *Client) TrackingURI() string {
	return c.opts.trackingURI
}

// APIBaseURL returns the root that REST paths are resolved against.
func (c *Client) APIBaseURL() string {
	return c.transport.BaseURL()
}

// IsInsecure returns whether insecure (HTTP) connections are allowed.
func (c *Client) IsInsecure() bool {
	return c.opts.insecure
}
