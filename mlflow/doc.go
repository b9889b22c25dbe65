// ABOUTME: Package mlflow provides a Go SDK for MLflow experiment tracking.
// ABOUTME: This is the main package containing the Client and its options.

// Package mlflow provides a Go SDK for the MLflow tracking server.
//
// The SDK talks to the MLflow REST API to manage experiments and runs and to
// log parameters, metrics, and tags. Tracking operations live in the
// tracking subpackage; this package builds the configured client.
//
// # Quick Start
//
// Create a client, get or create an experiment, and record a run:
//
//	client, err := mlflow.NewClient()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	t := client.Tracking()
//
//	exp, err := t.GetExperimentByName(ctx, "churn")
//	var expID tracking.ExperimentID
//	switch {
//	case err == nil:
//	    expID = exp.ID
//	case mlflow.IsNotFound(err):
//	    expID, err = t.CreateExperiment(ctx, "churn")
//	}
//
//	run := tracking.NewBufferedRun()
//	run.LogParam("alpha", "0.5")
//	run.LogMetric("rmse", 0.73, 0)
//	if _, err := run.Submit(ctx, t, expID); err != nil {
//	    log.Fatal(err)
//	}
//
// # Configuration
//
// The client reads configuration from environment variables by default:
//
//   - MLFLOW_TRACKING_URI: MLflow server URL (required)
//   - MLFLOW_TRACKING_TOKEN: Authentication token (optional)
//   - MLFLOW_INSECURE_SKIP_TLS_VERIFY: Allow HTTP connections (optional)
//
// Configuration can also be provided explicitly:
//
//	client, err := mlflow.NewClient(
//	    mlflow.WithTrackingURI("https://mlflow.example.com"),
//	    mlflow.WithToken("my-token"),
//	)
//
// Requests go to <tracking URI>/api/2.0/mlflow/...
//
// # Observability
//
// WithLogger enables debug logging of every request and response.
// WithMetricsRegisterer exports Prometheus request counters and latency
// histograms, and WithTracerProvider records an OpenTelemetry span per request.
//
// # Error Handling
//
// Tracking operations return typed errors that can be inspected:
//
//	if mlflow.IsAlreadyExists(err) {
//	    // experiment name taken
//	}
//	if mlflow.IsNotFound(err) {
//	    // experiment or run missing
//	}
//	if mlflow.IsUnauthorized(err) {
//	    // invalid token
//	}
//
// Batches that exceed the server limits fail with *BatchError before any
// request is sent.
//
// # Thread Safety
//
// The Client is safe for concurrent use after construction.
// BufferedRun is not; use one per goroutine.
package mlflow
