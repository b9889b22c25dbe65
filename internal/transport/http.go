package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/go-querystring/query"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/opendatahub-io/mlflow-tracking-go/internal/errors"
	"github.com/opendatahub-io/mlflow-tracking-go/internal/mlflowapi"
)

const (
	defaultTimeout = 30 * time.Second
	tracerName     = "github.com/opendatahub-io/mlflow-tracking-go/internal/transport"
)

// Client handles HTTP communication with the MLflow API.
type Client struct {
	baseURL    *url.URL
	headers    map[string]string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *requestMetrics
	tracer     trace.Tracer
}

// Config holds configuration for creating a transport Client.
//
// BaseURL is the API root (for example https://mlflow.example.com/api).
// Request paths are joined onto it.
type Config struct {
	BaseURL        string
	Token          string
	Headers        map[string]string
	HTTPClient     *http.Client
	Logger         *slog.Logger
	Timeout        time.Duration
	Registerer     prometheus.Registerer
	TracerProvider trace.TracerProvider
}

// New creates a new transport Client.
func New(cfg Config) (*Client, error) {
	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host are required", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	headers := make(map[string]string, len(cfg.Headers)+1)
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	if cfg.Token != "" {
		headers["Authorization"] = "Bearer " + cfg.Token
	}

	var metrics *requestMetrics
	if cfg.Registerer != nil {
		metrics, err = newRequestMetrics(cfg.Registerer)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return &Client{
		baseURL:    baseURL,
		headers:    headers,
		httpClient: httpClient,
		logger:     cfg.Logger,
		metrics:    metrics,
		tracer:     tp.Tracer(tracerName),
	}, nil
}

// BaseURL returns the API root requests are resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Get performs a GET request. params is encoded as a query string using its
// url struct tags; it may be nil, a url.Values, or a tagged struct.
func (c *Client) Get(ctx context.Context, path string, params, result any) error {
	q, err := encodeQuery(params)
	if err != nil {
		return fmt.Errorf("failed to encode query: %w", err)
	}
	return c.do(ctx, http.MethodGet, path, q, nil, result)
}

// Post performs a POST request to the specified path with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, result any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, result)
}

func encodeQuery(params any) (url.Values, error) {
	switch p := params.(type) {
	case nil:
		return nil, nil
	case url.Values:
		return p, nil
	default:
		return query.Values(params)
	}
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body, result any) (err error) {
	reqURL := c.baseURL.JoinPath(path)
	reqURL.RawQuery = q.Encode()

	ctx, span := c.tracer.Start(ctx, "mlflow "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", reqURL.Path),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var bodyReader io.Reader
	if body != nil {
		data, encErr := json.Marshal(body)
		if encErr != nil {
			return fmt.Errorf("failed to encode request body: %w", encErr)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	if c.logger != nil {
		c.logger.Debug("request",
			"method", method,
			"url", reqURL.String(),
		)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.observe(method, path, "error", time.Since(start))
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start)
	c.metrics.observe(method, path, strconv.Itoa(resp.StatusCode), duration)
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if c.logger != nil {
		c.logger.Debug("response",
			"method", method,
			"url", reqURL.String(),
			"status", resp.StatusCode,
			"duration_ms", duration.Milliseconds(),
		)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return parseError(resp.StatusCode, respBody)
	}

	return decodeResult(respBody, result)
}

// decodeResult unmarshals a successful response into result. Only
// *mlflowapi.Empty tolerates a blank body; every other result must decode
// and, when it implements Validate, pass it.
func decodeResult(body []byte, result any) error {
	if result == nil {
		return nil
	}
	if _, ok := result.(*mlflowapi.Empty); ok && len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, result); err != nil {
		return &errors.DecodeError{Body: string(body), Err: err}
	}
	if v, ok := result.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return &errors.DecodeError{Body: string(body), Err: err}
		}
	}
	return nil
}

// parseError builds an APIError from an error response. Bodies that are
// not an MLflow error envelope are kept verbatim.
func parseError(statusCode int, body []byte) error {
	var errResp mlflowapi.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.ErrorCode == "" {
		return &errors.APIError{
			StatusCode: statusCode,
			Body:       string(body),
		}
	}

	return &errors.APIError{
		StatusCode: statusCode,
		Code:       errors.ErrorCode(errResp.ErrorCode),
		Message:    errResp.Message,
	}
}
