package trackingtest

import (
	"sort"
	"time"

	"github.com/opendatahub-io/mlflow-tracking-go/internal/conv"
	"github.com/opendatahub-io/mlflow-tracking-go/internal/mlflowapi"
	"github.com/opendatahub-io/mlflow-tracking-go/mlflow/tracking"
)

func fromMillis(ms mlflowapi.Int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(int64(ms))
}

func millis(t time.Time) mlflowapi.Int64 {
	if t.IsZero() {
		return 0
	}
	return mlflowapi.Int64(t.UnixMilli())
}

func optionalMillis(t time.Time) *mlflowapi.Int64 {
	if t.IsZero() {
		return nil
	}
	return conv.Ptr(millis(t))
}

func experimentToWire(exp *tracking.Experiment) mlflowapi.Experiment {
	out := mlflowapi.Experiment{
		ExperimentID:     exp.ID.String(),
		Name:             exp.Name,
		ArtifactLocation: exp.ArtifactLocation,
		LifecycleStage:   string(exp.LifecycleStage),
		CreationTime:     optionalMillis(exp.CreationTime),
		LastUpdateTime:   optionalMillis(exp.LastUpdateTime),
	}

	keys := make([]string, 0, len(exp.Tags))
	for k := range exp.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out.Tags = append(out.Tags, mlflowapi.ExperimentTag{Key: k, Value: exp.Tags[k]})
	}

	return out
}

func runToWire(run *tracking.Run) mlflowapi.Run {
	out := mlflowapi.Run{Info: runInfoToWire(&run.Info)}

	data := &mlflowapi.RunData{Metrics: metricsToWire(run.Data.Metrics)}
	for _, p := range run.Data.Params {
		data.Params = append(data.Params, mlflowapi.Param{Key: p.Key, Value: p.Value})
	}
	for _, t := range run.Data.Tags {
		data.Tags = append(data.Tags, mlflowapi.RunTag{Key: t.Key, Value: t.Value})
	}
	out.Data = data

	return out
}

func runInfoToWire(info *tracking.RunInfo) mlflowapi.RunInfo {
	return mlflowapi.RunInfo{
		RunID:          info.RunID.String(),
		RunUUID:        info.RunID.String(),
		ExperimentID:   info.ExperimentID.String(),
		RunName:        info.RunName,
		UserID:         info.UserID,
		Status:         mlflowapi.RunStatus(info.Status),
		StartTime:      millis(info.StartTime),
		EndTime:        optionalMillis(info.EndTime),
		ArtifactURI:    info.ArtifactURI,
		LifecycleStage: string(info.LifecycleStage),
	}
}

func metricsToWire(in []tracking.Metric) []mlflowapi.Metric {
	out := make([]mlflowapi.Metric, 0, len(in))
	for _, m := range in {
		out = append(out, mlflowapi.Metric{
			Key:       m.Key,
			Value:     mlflowapi.Float64(m.Value),
			Timestamp: millis(m.Timestamp),
			Step:      mlflowapi.Int64(m.Step),
		})
	}
	return out
}

func metricsFromWire(in []mlflowapi.Metric) []tracking.Metric {
	if len(in) == 0 {
		return nil
	}
	out := make([]tracking.Metric, 0, len(in))
	for _, m := range in {
		out = append(out, tracking.Metric{
			Key:       m.Key,
			Value:     float64(m.Value),
			Timestamp: fromMillis(m.Timestamp),
			Step:      int64(m.Step),
		})
	}
	return out
}

func paramsFromWire(in []mlflowapi.Param) []tracking.Param {
	if len(in) == 0 {
		return nil
	}
	out := make([]tracking.Param, 0, len(in))
	for _, p := range in {
		out = append(out, tracking.Param{Key: p.Key, Value: p.Value})
	}
	return out
}

func tagsFromWire(in []mlflowapi.RunTag) []tracking.RunTag {
	if len(in) == 0 {
		return nil
	}
	out := make([]tracking.RunTag, 0, len(in))
	for _, t := range in {
		out = append(out, tracking.RunTag{Key: t.Key, Value: t.Value})
	}
	return out
}
