// Package tracking provides types and operations for MLflow experiment tracking.
//
// Experiment tracking records runs of ML code, logging parameters, metrics,
// and tags for later comparison. This package provides a Go client for the
// MLflow tracking REST API, a Store interface shared with in-memory
// implementations, and BufferedRun, which batches a run's values into as few
// requests as the server's batch limits allow.
package tracking

import (
	"time"

	"github.com/opendatahub-io/mlflow-tracking-go/internal/mlflowapi"
)

// RunStatus represents the status of a run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusScheduled RunStatus = "SCHEDULED"
	RunStatusFinished  RunStatus = "FINISHED"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusKilled    RunStatus = "KILLED"
)

// Valid reports whether s is a status the server accepts.
func (s RunStatus) Valid() bool {
	return mlflowapi.RunStatus(s).Valid()
}

// ViewType controls which lifecycle stages are returned by list and search calls.
type ViewType string

const (
	ViewTypeActiveOnly  ViewType = "ACTIVE_ONLY"
	ViewTypeDeletedOnly ViewType = "DELETED_ONLY"
	ViewTypeAll         ViewType = "ALL"
)

// Valid reports whether v is a known view type.
func (v ViewType) Valid() bool {
	return mlflowapi.ViewType(v).Valid()
}

// Includes reports whether an entity in stage is selected by v.
// The empty view type behaves like ViewTypeActiveOnly.
func (v ViewType) Includes(stage LifecycleStage) bool {
	switch v {
	case ViewTypeAll:
		return true
	case ViewTypeDeletedOnly:
		return stage == LifecycleDeleted
	default:
		return stage == LifecycleActive
	}
}

// LifecycleStage is the soft-delete state of an experiment or run.
type LifecycleStage string

const (
	LifecycleActive  LifecycleStage = mlflowapi.LifecycleActive
	LifecycleDeleted LifecycleStage = mlflowapi.LifecycleDeleted
)

// Experiment represents an MLflow experiment.
// CreationTime and LastUpdateTime are zero when the server omits them.
type Experiment struct {
	ID               ExperimentID
	Name             string
	ArtifactLocation string
	LifecycleStage   LifecycleStage
	Tags             map[string]string
	CreationTime     time.Time
	LastUpdateTime   time.Time
}

// ExperimentList contains experiments and a pagination token.
type ExperimentList struct {
	Experiments   []Experiment
	NextPageToken PageToken
}

// Run represents an MLflow run with its info and data.
type Run struct {
	Info RunInfo
	Data RunData
}

// RunInfo contains metadata about a run. EndTime is zero while the run is open.
type RunInfo struct {
	RunID          RunID
	ExperimentID   ExperimentID
	RunName        string
	UserID         string
	Status         RunStatus
	StartTime      time.Time
	EndTime        time.Time
	ArtifactURI    string
	LifecycleStage LifecycleStage
}

// RunData contains the metrics, params, and tags for a run.
type RunData struct {
	Metrics []Metric
	Params  []Param
	Tags    []RunTag
}

// Tag returns the value of the run tag with the given key.
func (d RunData) Tag(key string) (string, bool) {
	for _, t := range d.Tags {
		if t.Key == key {
			return t.Value, true
		}
	}
	return "", false
}

// Metric represents a metric logged to a run.
type Metric struct {
	Key       string
	Value     float64
	Timestamp time.Time
	Step      int64
}

// Param represents a parameter logged to a run.
type Param struct {
	Key   string
	Value string
}

// RunTag is a key/value tag on a run.
type RunTag struct {
	Key   string
	Value string
}

// RunList contains runs and a pagination token.
type RunList struct {
	Runs          []Run
	NextPageToken PageToken
}

// RunInfoList contains run metadata and a pagination token.
type RunInfoList struct {
	Runs      []RunInfo
	PageToken PageToken
}

// --- wire conversion ---

func toMillis(t time.Time) mlflowapi.Int64 {
	if t.IsZero() {
		return 0
	}
	return mlflowapi.Int64(t.UnixMilli())
}

func fromMillis(ms mlflowapi.Int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(int64(ms))
}

func fromOptionalMillis(ms *mlflowapi.Int64) time.Time {
	if ms == nil {
		return time.Time{}
	}
	return fromMillis(*ms)
}

func experimentFromWire(exp *mlflowapi.Experiment) Experiment {
	e := Experiment{
		ID:               ExperimentID(exp.ExperimentID),
		Name:             exp.Name,
		ArtifactLocation: exp.ArtifactLocation,
		LifecycleStage:   LifecycleStage(exp.LifecycleStage),
		CreationTime:     fromOptionalMillis(exp.CreationTime),
		LastUpdateTime:   fromOptionalMillis(exp.LastUpdateTime),
	}

	if len(exp.Tags) > 0 {
		e.Tags = make(map[string]string, len(exp.Tags))
		for _, tag := range exp.Tags {
			e.Tags[tag.Key] = tag.Value
		}
	}

	return e
}

func runFromWire(r *mlflowapi.Run) Run {
	run := Run{Info: runInfoFromWire(&r.Info)}
	if r.Data != nil {
		run.Data = runDataFromWire(r.Data)
	}
	return run
}

func runInfoFromWire(ri *mlflowapi.RunInfo) RunInfo {
	id := ri.RunID
	if id == "" {
		id = ri.RunUUID
	}

	return RunInfo{
		RunID:          RunID(id),
		ExperimentID:   ExperimentID(ri.ExperimentID),
		RunName:        ri.RunName,
		UserID:         ri.UserID,
		Status:         RunStatus(ri.Status),
		StartTime:      fromMillis(ri.StartTime),
		EndTime:        fromOptionalMillis(ri.EndTime),
		ArtifactURI:    ri.ArtifactURI,
		LifecycleStage: LifecycleStage(ri.LifecycleStage),
	}
}

func runDataFromWire(rd *mlflowapi.RunData) RunData {
	var data RunData

	if len(rd.Metrics) > 0 {
		data.Metrics = metricsFromWire(rd.Metrics)
	}
	if len(rd.Params) > 0 {
		data.Params = make([]Param, 0, len(rd.Params))
		for _, p := range rd.Params {
			data.Params = append(data.Params, Param{Key: p.Key, Value: p.Value})
		}
	}
	if len(rd.Tags) > 0 {
		data.Tags = make([]RunTag, 0, len(rd.Tags))
		for _, t := range rd.Tags {
			data.Tags = append(data.Tags, RunTag{Key: t.Key, Value: t.Value})
		}
	}

	return data
}

func metricsFromWire(in []mlflowapi.Metric) []Metric {
	out := make([]Metric, 0, len(in))
	for _, m := range in {
		out = append(out, Metric{
			Key:       m.Key,
			Value:     float64(m.Value),
			Timestamp: fromMillis(m.Timestamp),
			Step:      int64(m.Step),
		})
	}
	return out
}

func metricsToWire(in []Metric, now time.Time) []mlflowapi.Metric {
	out := make([]mlflowapi.Metric, 0, len(in))
	for _, m := range in {
		ts := m.Timestamp
		if ts.IsZero() {
			ts = now
		}
		out = append(out, mlflowapi.Metric{
			Key:       m.Key,
			Value:     mlflowapi.Float64(m.Value),
			Timestamp: toMillis(ts),
			Step:      mlflowapi.Int64(m.Step),
		})
	}
	return out
}

func paramsToWire(in []Param) []mlflowapi.Param {
	out := make([]mlflowapi.Param, 0, len(in))
	for _, p := range in {
		out = append(out, mlflowapi.Param{Key: p.Key, Value: p.Value})
	}
	return out
}

func tagsToWire(in []RunTag) []mlflowapi.RunTag {
	out := make([]mlflowapi.RunTag, 0, len(in))
	for _, t := range in {
		out = append(out, mlflowapi.RunTag{Key: t.Key, Value: t.Value})
	}
	return out
}
