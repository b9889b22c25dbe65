package tracking

import (
	"context"
	"net/http"

	"github.com/opendatahub-io/mlflow-tracking-go/internal/mlflowapi"
	"github.com/opendatahub-io/mlflow-tracking-go/internal/transport"
)

// endpoint describes one REST operation: the request type Req is sent to
// path with method, the body decodes into Resp, and extract projects the
// value returned to callers.
type endpoint[Req, Resp, Val any] struct {
	method  string
	path    string
	extract func(*Resp) Val
}

// call executes ep. GET requests send req as a query string, everything
// else as a JSON body.
func call[Req, Resp, Val any](ctx context.Context, t *transport.Client, ep endpoint[Req, Resp, Val], req Req) (Val, error) {
	var resp Resp
	var err error

	switch ep.method {
	case http.MethodGet:
		err = t.Get(ctx, ep.path, req, &resp)
	default:
		err = t.Post(ctx, ep.path, req, &resp)
	}
	if err != nil {
		var zero Val
		return zero, err
	}

	return ep.extract(&resp), nil
}

// none is the value of endpoints whose response carries nothing.
type none struct{}

func discard(*mlflowapi.Empty) none { return none{} }

func voidEndpoint[Req any](path string) endpoint[Req, mlflowapi.Empty, none] {
	return endpoint[Req, mlflowapi.Empty, none]{method: http.MethodPost, path: path, extract: discard}
}

// Paths are relative to the API root (<tracking-uri>/api).
const (
	pathCreateExperiment    = "2.0/mlflow/experiments/create"
	pathGetExperiment       = "2.0/mlflow/experiments/get"
	pathGetExperimentByName = "2.0/mlflow/experiments/get-by-name"
	pathListExperiments     = "2.0/mlflow/experiments/list"
	pathSearchExperiments   = "2.0/mlflow/experiments/search"
	pathUpdateExperiment    = "2.0/mlflow/experiments/update"
	pathDeleteExperiment    = "2.0/mlflow/experiments/delete"
	pathSetExperimentTag    = "2.0/mlflow/experiments/set-experiment-tag"
	pathCreateRun           = "2.0/mlflow/runs/create"
	pathGetRun              = "2.0/mlflow/runs/get"
	pathDeleteRun           = "2.0/mlflow/runs/delete"
	pathUpdateRun           = "2.0/mlflow/runs/update"
	pathSearchRuns          = "2.0/mlflow/runs/search"
	pathLogParam            = "2.0/mlflow/runs/log-parameter"
	pathLogMetric           = "2.0/mlflow/runs/log-metric"
	pathLogBatch            = "2.0/mlflow/runs/log-batch"
	pathSetTag              = "2.0/mlflow/runs/set-tag"
	pathDeleteTag           = "2.0/mlflow/runs/delete-tag"
	pathGetMetricHistory    = "2.0/mlflow/metrics/get-history"
)

var (
	createExperimentEndpoint = endpoint[mlflowapi.CreateExperiment, mlflowapi.CreateExperimentResponse, ExperimentID]{
		method: http.MethodPost,
		path:   pathCreateExperiment,
		extract: func(r *mlflowapi.CreateExperimentResponse) ExperimentID {
			return ExperimentID(r.ExperimentID)
		},
	}

	getExperimentEndpoint = endpoint[mlflowapi.GetExperiment, mlflowapi.GetExperimentResponse, Experiment]{
		method:  http.MethodGet,
		path:    pathGetExperiment,
		extract: extractExperiment,
	}

	getExperimentByNameEndpoint = endpoint[mlflowapi.GetExperimentByName, mlflowapi.GetExperimentResponse, Experiment]{
		method:  http.MethodGet,
		path:    pathGetExperimentByName,
		extract: extractExperiment,
	}

	listExperimentsEndpoint = endpoint[mlflowapi.ListExperiments, mlflowapi.ListExperimentsResponse, []Experiment]{
		method: http.MethodGet,
		path:   pathListExperiments,
		extract: func(r *mlflowapi.ListExperimentsResponse) []Experiment {
			out := make([]Experiment, 0, len(r.Experiments))
			for i := range r.Experiments {
				out = append(out, experimentFromWire(&r.Experiments[i]))
			}
			return out
		},
	}

	searchExperimentsEndpoint = endpoint[mlflowapi.SearchExperiments, mlflowapi.SearchExperimentsResponse, ExperimentList]{
		method: http.MethodPost,
		path:   pathSearchExperiments,
		extract: func(r *mlflowapi.SearchExperimentsResponse) ExperimentList {
			list := ExperimentList{
				Experiments:   make([]Experiment, 0, len(r.Experiments)),
				NextPageToken: PageToken(r.NextPageToken),
			}
			for i := range r.Experiments {
				list.Experiments = append(list.Experiments, experimentFromWire(&r.Experiments[i]))
			}
			return list
		},
	}

	updateExperimentEndpoint = voidEndpoint[mlflowapi.UpdateExperiment](pathUpdateExperiment)
	deleteExperimentEndpoint = voidEndpoint[mlflowapi.DeleteExperiment](pathDeleteExperiment)
	setExperimentTagEndpoint = voidEndpoint[mlflowapi.SetExperimentTag](pathSetExperimentTag)

	createRunEndpoint = endpoint[mlflowapi.CreateRun, mlflowapi.GetRunResponse, Run]{
		method:  http.MethodPost,
		path:    pathCreateRun,
		extract: extractRun,
	}

	getRunEndpoint = endpoint[mlflowapi.GetRun, mlflowapi.GetRunResponse, Run]{
		method:  http.MethodGet,
		path:    pathGetRun,
		extract: extractRun,
	}

	deleteRunEndpoint = voidEndpoint[mlflowapi.DeleteRun](pathDeleteRun)

	updateRunEndpoint = endpoint[mlflowapi.UpdateRun, mlflowapi.UpdateRunResponse, RunInfo]{
		method: http.MethodPost,
		path:   pathUpdateRun,
		extract: func(r *mlflowapi.UpdateRunResponse) RunInfo {
			return runInfoFromWire(r.RunInfo)
		},
	}

	searchRunsEndpoint = endpoint[mlflowapi.SearchRuns, mlflowapi.SearchRunsResponse, RunList]{
		method: http.MethodPost,
		path:   pathSearchRuns,
		extract: func(r *mlflowapi.SearchRunsResponse) RunList {
			list := RunList{
				Runs:          make([]Run, 0, len(r.Runs)),
				NextPageToken: PageToken(r.NextPageToken),
			}
			for i := range r.Runs {
				list.Runs = append(list.Runs, runFromWire(&r.Runs[i]))
			}
			return list
		},
	}

	// listRunInfosEndpoint shares the search endpoint but keeps only run metadata.
	listRunInfosEndpoint = endpoint[mlflowapi.SearchRuns, mlflowapi.SearchRunsResponse, RunInfoList]{
		method: http.MethodPost,
		path:   pathSearchRuns,
		extract: func(r *mlflowapi.SearchRunsResponse) RunInfoList {
			list := RunInfoList{
				Runs:      make([]RunInfo, 0, len(r.Runs)),
				PageToken: PageToken(r.NextPageToken),
			}
			for i := range r.Runs {
				list.Runs = append(list.Runs, runInfoFromWire(&r.Runs[i].Info))
			}
			return list
		},
	}

	getMetricHistoryEndpoint = endpoint[mlflowapi.GetMetricHistory, mlflowapi.GetMetricHistoryResponse, []Metric]{
		method: http.MethodGet,
		path:   pathGetMetricHistory,
		extract: func(r *mlflowapi.GetMetricHistoryResponse) []Metric {
			return metricsFromWire(r.Metrics)
		},
	}

	logParamEndpoint  = voidEndpoint[mlflowapi.LogParam](pathLogParam)
	logMetricEndpoint = voidEndpoint[mlflowapi.LogMetric](pathLogMetric)
	logBatchEndpoint  = voidEndpoint[mlflowapi.LogBatch](pathLogBatch)
	setTagEndpoint    = voidEndpoint[mlflowapi.SetTag](pathSetTag)
	deleteTagEndpoint = voidEndpoint[mlflowapi.DeleteTag](pathDeleteTag)
)

// extractExperiment and extractRun see non-nil envelopes; the transport
// rejects responses that fail Validate.
func extractExperiment(r *mlflowapi.GetExperimentResponse) Experiment {
	return experimentFromWire(r.Experiment)
}

func extractRun(r *mlflowapi.GetRunResponse) Run {
	return runFromWire(r.Run)
}
