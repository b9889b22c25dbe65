package mlflowapi

import "errors"

// --- Records ---

// Experiment is the wire form of an experiment.
type Experiment struct {
	ExperimentID     string          `json:"experiment_id"`
	Name             string          `json:"name"`
	ArtifactLocation string          `json:"artifact_location,omitempty"`
	LifecycleStage   string          `json:"lifecycle_stage,omitempty"`
	CreationTime     *Int64          `json:"creation_time,omitempty"`
	LastUpdateTime   *Int64          `json:"last_update_time,omitempty"`
	Tags             []ExperimentTag `json:"tags,omitempty"`
}

// ExperimentTag is a key/value tag attached to an experiment.
type ExperimentTag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Run is the wire form of a run.
type Run struct {
	Info RunInfo  `json:"info"`
	Data *RunData `json:"data,omitempty"`
}

// RunInfo holds run metadata.
type RunInfo struct {
	RunID          string    `json:"run_id"`
	RunUUID        string    `json:"run_uuid,omitempty"`
	ExperimentID   string    `json:"experiment_id"`
	RunName        string    `json:"run_name,omitempty"`
	UserID         string    `json:"user_id,omitempty"`
	Status         RunStatus `json:"status"`
	StartTime      Int64     `json:"start_time"`
	EndTime        *Int64    `json:"end_time,omitempty"`
	ArtifactURI    string    `json:"artifact_uri,omitempty"`
	LifecycleStage string    `json:"lifecycle_stage,omitempty"`
}

// RunData holds the values logged to a run.
type RunData struct {
	Metrics []Metric `json:"metrics,omitempty"`
	Params  []Param  `json:"params,omitempty"`
	Tags    []RunTag `json:"tags,omitempty"`
}

// Metric is one logged metric value.
type Metric struct {
	Key       string  `json:"key"`
	Value     Float64 `json:"value"`
	Timestamp Int64   `json:"timestamp"`
	Step      Int64   `json:"step"`
}

// Param is one logged parameter.
type Param struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// RunTag is one run tag.
type RunTag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ErrorResponse is the envelope the server returns on failure.
type ErrorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// Empty is the response of endpoints that return nothing.
type Empty struct{}

// --- Experiments ---

// CreateExperiment is the body of POST experiments/create.
type CreateExperiment struct {
	Name             string          `json:"name"`
	ArtifactLocation string          `json:"artifact_location,omitempty"`
	Tags             []ExperimentTag `json:"tags,omitempty"`
}

// CreateExperimentResponse carries the ID of the new experiment.
type CreateExperimentResponse struct {
	ExperimentID string `json:"experiment_id"`
}

// Validate rejects a response with no experiment ID.
func (r *CreateExperimentResponse) Validate() error {
	if r.ExperimentID == "" {
		return errors.New("response has no experiment_id")
	}
	return nil
}

// GetExperiment is the query of GET experiments/get.
type GetExperiment struct {
	ExperimentID string `json:"experiment_id" url:"experiment_id"`
}

// GetExperimentByName is the query of GET experiments/get-by-name.
type GetExperimentByName struct {
	ExperimentName string `json:"experiment_name" url:"experiment_name"`
}

// GetExperimentResponse is shared by get and get-by-name.
type GetExperimentResponse struct {
	Experiment *Experiment `json:"experiment"`
}

// Validate rejects a response with no experiment envelope.
func (r *GetExperimentResponse) Validate() error {
	if r.Experiment == nil {
		return errors.New("response has no experiment")
	}
	return nil
}

// ListExperiments is the query of GET experiments/list.
type ListExperiments struct {
	ViewType ViewType `json:"view_type,omitempty" url:"view_type,omitempty"`
}

// ListExperimentsResponse holds every experiment in the requested view.
type ListExperimentsResponse struct {
	Experiments []Experiment `json:"experiments"`
}

// SearchExperiments is the body of POST experiments/search.
type SearchExperiments struct {
	Filter     string   `json:"filter,omitempty"`
	MaxResults int64    `json:"max_results,omitempty"`
	OrderBy    []string `json:"order_by,omitempty"`
	PageToken  string   `json:"page_token,omitempty"`
	ViewType   ViewType `json:"view_type,omitempty"`
}

// SearchExperimentsResponse is one page of experiments.
type SearchExperimentsResponse struct {
	Experiments   []Experiment `json:"experiments"`
	NextPageToken string       `json:"next_page_token,omitempty"`
}

// UpdateExperiment is the body of POST experiments/update.
type UpdateExperiment struct {
	ExperimentID string `json:"experiment_id"`
	NewName      string `json:"new_name,omitempty"`
}

// DeleteExperiment is the body of POST experiments/delete.
type DeleteExperiment struct {
	ExperimentID string `json:"experiment_id"`
}

// SetExperimentTag is the body of POST experiments/set-experiment-tag.
type SetExperimentTag struct {
	ExperimentID string `json:"experiment_id"`
	Key          string `json:"key"`
	Value        string `json:"value"`
}

// --- Runs ---

// CreateRun is the body of POST runs/create.
type CreateRun struct {
	ExperimentID string   `json:"experiment_id"`
	UserID       string   `json:"user_id,omitempty"`
	RunName      string   `json:"run_name,omitempty"`
	StartTime    Int64    `json:"start_time"`
	Tags         []RunTag `json:"tags"`
}

// GetRunResponse is shared by create and get.
type GetRunResponse struct {
	Run *Run `json:"run"`
}

// Validate rejects a response with no run envelope.
func (r *GetRunResponse) Validate() error {
	if r.Run == nil {
		return errors.New("response has no run")
	}
	return nil
}

// GetRun is the query of GET runs/get.
type GetRun struct {
	RunID string `json:"run_id" url:"run_id"`
}

// DeleteRun is the body of POST runs/delete.
type DeleteRun struct {
	RunID string `json:"run_id"`
}

// UpdateRun is the body of POST runs/update.
type UpdateRun struct {
	RunID   string    `json:"run_id"`
	Status  RunStatus `json:"status,omitempty"`
	EndTime *Int64    `json:"end_time,omitempty"`
	RunName string    `json:"run_name,omitempty"`
}

// UpdateRunResponse carries the run metadata after the update.
type UpdateRunResponse struct {
	RunInfo *RunInfo `json:"run_info"`
}

// Validate rejects a response with no run_info envelope.
func (r *UpdateRunResponse) Validate() error {
	if r.RunInfo == nil {
		return errors.New("response has no run_info")
	}
	return nil
}

// SearchRuns is the body of POST runs/search.
type SearchRuns struct {
	ExperimentIDs []string `json:"experiment_ids"`
	Filter        string   `json:"filter"`
	RunViewType   ViewType `json:"run_view_type,omitempty"`
	MaxResults    int32    `json:"max_results"`
	OrderBy       []string `json:"order_by,omitempty"`
	PageToken     string   `json:"page_token,omitempty"`
}

// SearchRunsResponse is one page of runs.
type SearchRunsResponse struct {
	Runs          []Run  `json:"runs"`
	NextPageToken string `json:"next_page_token,omitempty"`
}

// --- Logging ---

// LogParam is the body of POST runs/log-parameter.
type LogParam struct {
	RunID string `json:"run_id"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

// LogMetric is the body of POST runs/log-metric.
type LogMetric struct {
	RunID     string  `json:"run_id"`
	Key       string  `json:"key"`
	Value     Float64 `json:"value"`
	Timestamp Int64   `json:"timestamp"`
	Step      Int64   `json:"step"`
}

// LogBatch is the body of POST runs/log-batch.
type LogBatch struct {
	RunID   string   `json:"run_id"`
	Metrics []Metric `json:"metrics"`
	Params  []Param  `json:"params"`
	Tags    []RunTag `json:"tags"`
}

// SetTag is the body of POST runs/set-tag.
type SetTag struct {
	RunID string `json:"run_id"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

// DeleteTag is the body of POST runs/delete-tag.
type DeleteTag struct {
	RunID string `json:"run_id"`
	Key   string `json:"key"`
}

// GetMetricHistory is the query of GET metrics/get-history.
type GetMetricHistory struct {
	RunID     string `json:"run_id" url:"run_id"`
	MetricKey string `json:"metric_key" url:"metric_key"`
}

// GetMetricHistoryResponse holds every value logged for one metric key.
type GetMetricHistoryResponse struct {
	Metrics []Metric `json:"metrics"`
}
