package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/opendatahub-io/mlflow-tracking-go/internal/conv"
	"github.com/opendatahub-io/mlflow-tracking-go/internal/mlflowapi"
	"github.com/opendatahub-io/mlflow-tracking-go/mlflow/tracking"
)

type outputFormat string

const (
	formatText outputFormat = "text"
	formatJSON outputFormat = "json"
	formatYAML outputFormat = "yaml"
)

// printer renders command results in the selected output format.
type printer struct {
	format outputFormat
	w      io.Writer
}

func newPrinter(format string, w io.Writer) (printer, error) {
	switch f := outputFormat(format); f {
	case formatText, formatJSON, formatYAML:
		return printer{format: f, w: w}, nil
	case "":
		return printer{format: formatText, w: w}, nil
	default:
		return printer{}, fmt.Errorf("unknown output format %q (valid: text, json, yaml)", format)
	}
}

// print writes v as JSON or YAML, or calls text with a tab-aligned writer.
func (p printer) print(v any, text func(w io.Writer)) error {
	switch p.format {
	case formatJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
		text(tw)
		return tw.Flush()
	}
}

type experimentView struct {
	ID               string            `json:"experiment_id" yaml:"experiment_id"`
	Name             string            `json:"name" yaml:"name"`
	ArtifactLocation string            `json:"artifact_location,omitempty" yaml:"artifact_location,omitempty"`
	LifecycleStage   string            `json:"lifecycle_stage" yaml:"lifecycle_stage"`
	Tags             map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`
	CreationTime     *time.Time        `json:"creation_time,omitempty" yaml:"creation_time,omitempty"`
	LastUpdateTime   *time.Time        `json:"last_update_time,omitempty" yaml:"last_update_time,omitempty"`
}

func newExperimentView(exp *tracking.Experiment) experimentView {
	return experimentView{
		ID:               exp.ID.String(),
		Name:             exp.Name,
		ArtifactLocation: exp.ArtifactLocation,
		LifecycleStage:   string(exp.LifecycleStage),
		Tags:             exp.Tags,
		CreationTime:     optionalTime(exp.CreationTime),
		LastUpdateTime:   optionalTime(exp.LastUpdateTime),
	}
}

type runInfoView struct {
	RunID          string     `json:"run_id" yaml:"run_id"`
	ExperimentID   string     `json:"experiment_id" yaml:"experiment_id"`
	RunName        string     `json:"run_name,omitempty" yaml:"run_name,omitempty"`
	UserID         string     `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	Status         string     `json:"status" yaml:"status"`
	StartTime      *time.Time `json:"start_time,omitempty" yaml:"start_time,omitempty"`
	EndTime        *time.Time `json:"end_time,omitempty" yaml:"end_time,omitempty"`
	ArtifactURI    string     `json:"artifact_uri,omitempty" yaml:"artifact_uri,omitempty"`
	LifecycleStage string     `json:"lifecycle_stage" yaml:"lifecycle_stage"`
}

func newRunInfoView(info *tracking.RunInfo) runInfoView {
	return runInfoView{
		RunID:          info.RunID.String(),
		ExperimentID:   info.ExperimentID.String(),
		RunName:        info.RunName,
		UserID:         info.UserID,
		Status:         string(info.Status),
		StartTime:      optionalTime(info.StartTime),
		EndTime:        optionalTime(info.EndTime),
		ArtifactURI:    info.ArtifactURI,
		LifecycleStage: string(info.LifecycleStage),
	}
}

type runView struct {
	Info    runInfoView       `json:"info" yaml:"info"`
	Params  map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
	Tags    map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Metrics []metricView      `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

func newRunView(run *tracking.Run) runView {
	v := runView{
		Info:    newRunInfoView(&run.Info),
		Metrics: newMetricViews(run.Data.Metrics),
	}
	if len(run.Data.Params) > 0 {
		v.Params = make(map[string]string, len(run.Data.Params))
		for _, p := range run.Data.Params {
			v.Params[p.Key] = p.Value
		}
	}
	if len(run.Data.Tags) > 0 {
		v.Tags = make(map[string]string, len(run.Data.Tags))
		for _, t := range run.Data.Tags {
			v.Tags[t.Key] = t.Value
		}
	}
	return v
}

type metricView struct {
	Key       string            `json:"key" yaml:"key"`
	Value     mlflowapi.Float64 `json:"value" yaml:"value"`
	Step      int64             `json:"step" yaml:"step"`
	Timestamp *time.Time        `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

func newMetricViews(metrics []tracking.Metric) []metricView {
	if len(metrics) == 0 {
		return nil
	}
	out := make([]metricView, 0, len(metrics))
	for _, m := range metrics {
		out = append(out, metricView{
			Key:       m.Key,
			Value:     mlflowapi.Float64(m.Value),
			Step:      m.Step,
			Timestamp: optionalTime(m.Timestamp),
		})
	}
	return out
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return conv.Ptr(t.UTC())
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
