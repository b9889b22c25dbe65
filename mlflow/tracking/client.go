package tracking

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/opendatahub-io/mlflow-tracking-go/internal/conv"
	"github.com/opendatahub-io/mlflow-tracking-go/internal/mlflowapi"
	"github.com/opendatahub-io/mlflow-tracking-go/internal/transport"
)

// defaultSearchMaxResults is the default page size for search operations.
// Matches the MLflow Python SDK default.
const defaultSearchMaxResults = 1000

// Client provides access to MLflow experiment tracking over REST.
// It is safe for concurrent use.
type Client struct {
	transport *transport.Client
}

// NewClient creates a new Tracking client.
// This is typically called internally by the root mlflow.Client.
func NewClient(t *transport.Client) *Client {
	return &Client{transport: t}
}

// --- Experiment operations ---

// CreateExperiment creates a new experiment and returns its ID.
func (c *Client) CreateExperiment(ctx context.Context, name string, opts ...CreateExperimentOption) (ExperimentID, error) {
	const op = "create experiment"
	if name == "" {
		return "", invalidArgument(op, "experiment name")
	}

	o := &createExperimentOptions{}
	for _, opt := range opts {
		opt(o)
	}

	req := mlflowapi.CreateExperiment{
		Name:             name,
		ArtifactLocation: o.artifactLocation,
	}
	for _, k := range sortedKeys(o.tags) {
		req.Tags = append(req.Tags, mlflowapi.ExperimentTag{Key: k, Value: o.tags[k]})
	}

	id, err := call(ctx, c.transport, createExperimentEndpoint, req)
	if err != nil {
		return "", wrapError(op, mapAlreadyExists, name, err)
	}

	return id, nil
}

// ListExperiments returns all experiments selected by viewType.
// An empty viewType lets the server apply its default (active only).
func (c *Client) ListExperiments(ctx context.Context, viewType ViewType) ([]Experiment, error) {
	const op = "list experiments"

	exps, err := call(ctx, c.transport, listExperimentsEndpoint, mlflowapi.ListExperiments{
		ViewType: mlflowapi.ViewType(viewType),
	})
	if err != nil {
		return nil, wrapError(op, mapNone, "", err)
	}

	return exps, nil
}

// GetExperiment retrieves an experiment by ID.
func (c *Client) GetExperiment(ctx context.Context, id ExperimentID) (*Experiment, error) {
	const op = "get experiment"
	if id == "" {
		return nil, invalidArgument(op, "experiment ID")
	}

	exp, err := call(ctx, c.transport, getExperimentEndpoint, mlflowapi.GetExperiment{ExperimentID: string(id)})
	if err != nil {
		return nil, wrapError(op, mapDoesNotExist, string(id), err)
	}

	return &exp, nil
}

// GetExperimentByName retrieves an experiment by name.
func (c *Client) GetExperimentByName(ctx context.Context, name string) (*Experiment, error) {
	const op = "get experiment by name"
	if name == "" {
		return nil, invalidArgument(op, "experiment name")
	}

	exp, err := call(ctx, c.transport, getExperimentByNameEndpoint, mlflowapi.GetExperimentByName{ExperimentName: name})
	if err != nil {
		return nil, wrapError(op, mapDoesNotExist, name, err)
	}

	return &exp, nil
}

// DeleteExperiment marks an experiment for deletion.
func (c *Client) DeleteExperiment(ctx context.Context, id ExperimentID) error {
	const op = "delete experiment"
	if id == "" {
		return invalidArgument(op, "experiment ID")
	}

	if _, err := call(ctx, c.transport, deleteExperimentEndpoint, mlflowapi.DeleteExperiment{ExperimentID: string(id)}); err != nil {
		return wrapError(op, mapDoesNotExist, string(id), err)
	}

	return nil
}

// UpdateExperiment renames an experiment. An empty newName is omitted from
// the request, leaving the name unchanged.
func (c *Client) UpdateExperiment(ctx context.Context, id ExperimentID, newName string) error {
	const op = "update experiment"
	if id == "" {
		return invalidArgument(op, "experiment ID")
	}

	req := mlflowapi.UpdateExperiment{ExperimentID: string(id), NewName: newName}
	if _, err := call(ctx, c.transport, updateExperimentEndpoint, req); err != nil {
		return wrapError(op, mapNone, "", err)
	}

	return nil
}

// SearchExperiments searches for experiments matching the given criteria.
func (c *Client) SearchExperiments(ctx context.Context, opts ...SearchExperimentsOption) (*ExperimentList, error) {
	const op = "search experiments"

	o := ResolveSearchExperimentsOptions(opts...)

	if o.MaxResults <= 0 {
		return nil, invalidArgument(op, "positive max results")
	}
	if o.ViewType != "" && !o.ViewType.Valid() {
		return nil, invalidArgument(op, "valid view type")
	}

	req := mlflowapi.SearchExperiments{
		Filter:     o.Filter,
		MaxResults: int64(o.MaxResults),
		OrderBy:    o.OrderBy,
		PageToken:  string(o.PageToken),
		ViewType:   mlflowapi.ViewType(o.ViewType),
	}

	list, err := call(ctx, c.transport, searchExperimentsEndpoint, req)
	if err != nil {
		return nil, wrapError(op, mapNone, "", err)
	}

	return &list, nil
}

// SetExperimentTag sets a tag on an experiment.
func (c *Client) SetExperimentTag(ctx context.Context, id ExperimentID, key, value string) error {
	const op = "set experiment tag"
	if id == "" {
		return invalidArgument(op, "experiment ID")
	}
	if key == "" {
		return invalidArgument(op, "tag key")
	}

	req := mlflowapi.SetExperimentTag{ExperimentID: string(id), Key: key, Value: value}
	if _, err := call(ctx, c.transport, setExperimentTagEndpoint, req); err != nil {
		return wrapError(op, mapDoesNotExist, string(id), err)
	}

	return nil
}

// --- Run operations ---

// CreateRun creates a new run in the specified experiment. A zero startTime
// is replaced with the current time.
func (c *Client) CreateRun(ctx context.Context, experimentID ExperimentID, startTime time.Time, tags []RunTag, opts ...CreateRunOption) (*Run, error) {
	const op = "create run"
	if experimentID == "" {
		return nil, invalidArgument(op, "experiment ID")
	}

	o := &createRunOptions{}
	for _, opt := range opts {
		opt(o)
	}

	if startTime.IsZero() {
		startTime = time.Now()
	}

	req := mlflowapi.CreateRun{
		ExperimentID: string(experimentID),
		UserID:       o.userID,
		RunName:      o.runName,
		StartTime:    toMillis(startTime),
		Tags:         tagsToWire(tags),
	}

	run, err := call(ctx, c.transport, createRunEndpoint, req)
	if err != nil {
		return nil, wrapError(op, mapNone, "", err)
	}

	return &run, nil
}

// GetRun retrieves a run by ID.
func (c *Client) GetRun(ctx context.Context, id RunID) (*Run, error) {
	const op = "get run"
	if id == "" {
		return nil, invalidArgument(op, "run ID")
	}

	run, err := call(ctx, c.transport, getRunEndpoint, mlflowapi.GetRun{RunID: string(id)})
	if err != nil {
		return nil, wrapError(op, mapDoesNotExist, string(id), err)
	}

	return &run, nil
}

// UpdateRun sets a run's status and end time. A zero endTime is omitted.
func (c *Client) UpdateRun(ctx context.Context, id RunID, status RunStatus, endTime time.Time, opts ...UpdateRunOption) (*RunInfo, error) {
	const op = "update run"
	if id == "" {
		return nil, invalidArgument(op, "run ID")
	}
	if status != "" && !status.Valid() {
		return nil, invalidArgument(op, "valid run status")
	}

	o := &updateRunOptions{}
	for _, opt := range opts {
		opt(o)
	}

	req := mlflowapi.UpdateRun{
		RunID:   string(id),
		Status:  mlflowapi.RunStatus(status),
		RunName: o.runName,
	}
	if !endTime.IsZero() {
		req.EndTime = conv.Ptr(toMillis(endTime))
	}

	info, err := call(ctx, c.transport, updateRunEndpoint, req)
	if err != nil {
		return nil, wrapError(op, mapDoesNotExist, string(id), err)
	}

	return &info, nil
}

// DeleteRun marks a run for deletion.
func (c *Client) DeleteRun(ctx context.Context, id RunID) error {
	const op = "delete run"
	if id == "" {
		return invalidArgument(op, "run ID")
	}

	if _, err := call(ctx, c.transport, deleteRunEndpoint, mlflowapi.DeleteRun{RunID: string(id)}); err != nil {
		return wrapError(op, mapDoesNotExist, string(id), err)
	}

	return nil
}

// SearchRuns searches for runs in the specified experiments.
func (c *Client) SearchRuns(ctx context.Context, experimentIDs []ExperimentID, opts ...SearchRunsOption) (*RunList, error) {
	const op = "search runs"
	if len(experimentIDs) == 0 {
		return nil, invalidArgument(op, "at least one experiment ID")
	}

	req, err := buildSearchRuns(op, experimentIDs, opts)
	if err != nil {
		return nil, err
	}

	list, err := call(ctx, c.transport, searchRunsEndpoint, req)
	if err != nil {
		return nil, wrapError(op, mapNone, "", err)
	}

	return &list, nil
}

// ListRunInfos lists run metadata for one experiment. It uses the search
// endpoint with an empty filter; run data is dropped.
func (c *Client) ListRunInfos(ctx context.Context, experimentID ExperimentID, opts ...SearchRunsOption) (*RunInfoList, error) {
	const op = "list run infos"
	if experimentID == "" {
		return nil, invalidArgument(op, "experiment ID")
	}

	req, err := buildSearchRuns(op, []ExperimentID{experimentID}, opts)
	if err != nil {
		return nil, err
	}
	req.Filter = ""

	list, err := call(ctx, c.transport, listRunInfosEndpoint, req)
	if err != nil {
		return nil, wrapError(op, mapNone, "", err)
	}

	return &list, nil
}

func buildSearchRuns(op string, experimentIDs []ExperimentID, opts []SearchRunsOption) (mlflowapi.SearchRuns, error) {
	o := ResolveSearchRunsOptions(opts...)

	if o.MaxResults <= 0 {
		return mlflowapi.SearchRuns{}, invalidArgument(op, "positive max results")
	}
	if !o.ViewType.Valid() {
		return mlflowapi.SearchRuns{}, invalidArgument(op, "valid view type")
	}

	ids := make([]string, 0, len(experimentIDs))
	for _, id := range experimentIDs {
		ids = append(ids, string(id))
	}

	n := o.MaxResults
	if n > math.MaxInt32 {
		n = math.MaxInt32
	}

	return mlflowapi.SearchRuns{
		ExperimentIDs: ids,
		Filter:        o.Filter,
		RunViewType:   mlflowapi.ViewType(o.ViewType),
		MaxResults:    int32(n), //nolint:gosec // bounds checked above
		OrderBy:       o.OrderBy,
		PageToken:     string(o.PageToken),
	}, nil
}

// GetMetricHistory returns every logged value of a metric.
func (c *Client) GetMetricHistory(ctx context.Context, runID RunID, key string) ([]Metric, error) {
	const op = "get metric history"
	if runID == "" {
		return nil, invalidArgument(op, "run ID")
	}
	if key == "" {
		return nil, invalidArgument(op, "metric key")
	}

	metrics, err := call(ctx, c.transport, getMetricHistoryEndpoint, mlflowapi.GetMetricHistory{
		RunID:     string(runID),
		MetricKey: key,
	})
	if err != nil {
		return nil, wrapError(op, mapDoesNotExist, string(runID), err)
	}

	return metrics, nil
}

// --- Logging operations ---

// LogParam logs a parameter for a run.
func (c *Client) LogParam(ctx context.Context, runID RunID, key, value string) error {
	const op = "log param"
	if runID == "" {
		return invalidArgument(op, "run ID")
	}
	if key == "" {
		return invalidArgument(op, "param key")
	}

	req := mlflowapi.LogParam{RunID: string(runID), Key: key, Value: value}
	if _, err := call(ctx, c.transport, logParamEndpoint, req); err != nil {
		return wrapError(op, mapNone, "", err)
	}

	return nil
}

// LogMetric logs a metric value for a run. A zero timestamp is replaced
// with the current time.
func (c *Client) LogMetric(ctx context.Context, runID RunID, key string, value float64, timestamp time.Time, step int64) error {
	const op = "log metric"
	if runID == "" {
		return invalidArgument(op, "run ID")
	}
	if key == "" {
		return invalidArgument(op, "metric key")
	}

	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	req := mlflowapi.LogMetric{
		RunID:     string(runID),
		Key:       key,
		Value:     mlflowapi.Float64(value),
		Timestamp: toMillis(timestamp),
		Step:      mlflowapi.Int64(step),
	}
	if _, err := call(ctx, c.transport, logMetricEndpoint, req); err != nil {
		return wrapError(op, mapNone, "", err)
	}

	return nil
}

// LogBatch logs metrics, params, and tags for a run in one request.
// The batch is checked against the server limits before anything is sent.
func (c *Client) LogBatch(ctx context.Context, runID RunID, metrics []Metric, params []Param, tags []RunTag) error {
	const op = "log batch"
	if err := ValidateBatch(metrics, params, tags); err != nil {
		return err
	}
	if runID == "" {
		return invalidArgument(op, "run ID")
	}

	req := mlflowapi.LogBatch{
		RunID:   string(runID),
		Metrics: metricsToWire(metrics, time.Now()),
		Params:  paramsToWire(params),
		Tags:    tagsToWire(tags),
	}
	if _, err := call(ctx, c.transport, logBatchEndpoint, req); err != nil {
		return wrapError(op, mapNone, "", err)
	}

	return nil
}

// SetTag sets a tag on a run.
func (c *Client) SetTag(ctx context.Context, runID RunID, key, value string) error {
	const op = "set tag"
	if runID == "" {
		return invalidArgument(op, "run ID")
	}
	if key == "" {
		return invalidArgument(op, "tag key")
	}

	req := mlflowapi.SetTag{RunID: string(runID), Key: key, Value: value}
	if _, err := call(ctx, c.transport, setTagEndpoint, req); err != nil {
		return wrapError(op, mapNone, "", err)
	}

	return nil
}

// DeleteTag removes a tag from a run.
func (c *Client) DeleteTag(ctx context.Context, runID RunID, key string) error {
	const op = "delete tag"
	if runID == "" {
		return invalidArgument(op, "run ID")
	}
	if key == "" {
		return invalidArgument(op, "tag key")
	}

	req := mlflowapi.DeleteTag{RunID: string(runID), Key: key}
	if _, err := call(ctx, c.transport, deleteTagEndpoint, req); err != nil {
		return wrapError(op, mapNone, "", err)
	}

	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
