package trackingtest

import (
	"net/http"
	"time"

	"github.com/opendatahub-io/mlflow-tracking-go/internal/conv"
	"github.com/opendatahub-io/mlflow-tracking-go/internal/mlflowapi"
	"github.com/opendatahub-io/mlflow-tracking-go/mlflow/tracking"
)

// --- Experiments ---

func (h *handler) createExperiment(w http.ResponseWriter, r *http.Request) {
	var req mlflowapi.CreateExperiment
	if !decode(w, r, &req) {
		return
	}

	var opts []tracking.CreateExperimentOption
	if req.ArtifactLocation != "" {
		opts = append(opts, tracking.WithArtifactLocation(req.ArtifactLocation))
	}
	if len(req.Tags) > 0 {
		tags := make(map[string]string, len(req.Tags))
		for _, t := range req.Tags {
			tags[t.Key] = t.Value
		}
		opts = append(opts, tracking.WithExperimentTags(tags))
	}

	id, err := h.store.CreateExperiment(r.Context(), req.Name, opts...)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, mlflowapi.CreateExperimentResponse{ExperimentID: id.String()})
}

func (h *handler) getExperiment(w http.ResponseWriter, r *http.Request) {
	id, ok := query(w, r, "experiment_id")
	if !ok {
		return
	}

	exp, err := h.store.GetExperiment(r.Context(), tracking.ExperimentID(id))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, mlflowapi.GetExperimentResponse{Experiment: conv.Ptr(experimentToWire(exp))})
}

func (h *handler) getExperimentByName(w http.ResponseWriter, r *http.Request) {
	name, ok := query(w, r, "experiment_name")
	if !ok {
		return
	}

	exp, err := h.store.GetExperimentByName(r.Context(), name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, mlflowapi.GetExperimentResponse{Experiment: conv.Ptr(experimentToWire(exp))})
}

func (h *handler) listExperiments(w http.ResponseWriter, r *http.Request) {
	viewType := tracking.ViewType(r.URL.Query().Get("view_type"))

	exps, err := h.store.ListExperiments(r.Context(), viewType)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp := mlflowapi.ListExperimentsResponse{Experiments: make([]mlflowapi.Experiment, 0, len(exps))}
	for i := range exps {
		resp.Experiments = append(resp.Experiments, experimentToWire(&exps[i]))
	}
	writeJSON(w, resp)
}

func (h *handler) searchExperiments(w http.ResponseWriter, r *http.Request) {
	searcher, ok := h.store.(experimentSearcher)
	if !ok {
		notImplemented(w, "experiment search")
		return
	}

	var req mlflowapi.SearchExperiments
	if !decode(w, r, &req) {
		return
	}

	opts := []tracking.SearchExperimentsOption{
		tracking.WithExperimentsFilter(req.Filter),
		tracking.WithExperimentsPageToken(tracking.PageToken(req.PageToken)),
		tracking.WithExperimentsViewType(tracking.ViewType(req.ViewType)),
	}
	if req.MaxResults > 0 {
		opts = append(opts, tracking.WithExperimentsMaxResults(int(req.MaxResults)))
	}
	if len(req.OrderBy) > 0 {
		opts = append(opts, tracking.WithExperimentsOrderBy(req.OrderBy...))
	}

	list, err := searcher.SearchExperiments(r.Context(), opts...)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp := mlflowapi.SearchExperimentsResponse{
		Experiments:   make([]mlflowapi.Experiment, 0, len(list.Experiments)),
		NextPageToken: list.NextPageToken.String(),
	}
	for i := range list.Experiments {
		resp.Experiments = append(resp.Experiments, experimentToWire(&list.Experiments[i]))
	}
	writeJSON(w, resp)
}

func (h *handler) updateExperiment(w http.ResponseWriter, r *http.Request) {
	var req mlflowapi.UpdateExperiment
	if !decode(w, r, &req) {
		return
	}
	if err := h.store.UpdateExperiment(r.Context(), tracking.ExperimentID(req.ExperimentID), req.NewName); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, mlflowapi.Empty{})
}

func (h *handler) deleteExperiment(w http.ResponseWriter, r *http.Request) {
	var req mlflowapi.DeleteExperiment
	if !decode(w, r, &req) {
		return
	}
	if err := h.store.DeleteExperiment(r.Context(), tracking.ExperimentID(req.ExperimentID)); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, mlflowapi.Empty{})
}

func (h *handler) setExperimentTag(w http.ResponseWriter, r *http.Request) {
	tagger, ok := h.store.(experimentTagger)
	if !ok {
		notImplemented(w, "experiment tags")
		return
	}

	var req mlflowapi.SetExperimentTag
	if !decode(w, r, &req) {
		return
	}
	if err := tagger.SetExperimentTag(r.Context(), tracking.ExperimentID(req.ExperimentID), req.Key, req.Value); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, mlflowapi.Empty{})
}

// --- Runs ---

func (h *handler) createRun(w http.ResponseWriter, r *http.Request) {
	var req mlflowapi.CreateRun
	if !decode(w, r, &req) {
		return
	}

	var opts []tracking.CreateRunOption
	if req.RunName != "" {
		opts = append(opts, tracking.WithRunName(req.RunName))
	}
	if req.UserID != "" {
		opts = append(opts, tracking.WithUserID(req.UserID))
	}

	run, err := h.store.CreateRun(r.Context(), tracking.ExperimentID(req.ExperimentID), fromMillis(req.StartTime), tagsFromWire(req.Tags), opts...)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, mlflowapi.GetRunResponse{Run: conv.Ptr(runToWire(run))})
}

func (h *handler) getRun(w http.ResponseWriter, r *http.Request) {
	id, ok := query(w, r, "run_id")
	if !ok {
		return
	}

	run, err := h.store.GetRun(r.Context(), tracking.RunID(id))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, mlflowapi.GetRunResponse{Run: conv.Ptr(runToWire(run))})
}

func (h *handler) deleteRun(w http.ResponseWriter, r *http.Request) {
	var req mlflowapi.DeleteRun
	if !decode(w, r, &req) {
		return
	}
	if err := h.store.DeleteRun(r.Context(), tracking.RunID(req.RunID)); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, mlflowapi.Empty{})
}

func (h *handler) updateRun(w http.ResponseWriter, r *http.Request) {
	var req mlflowapi.UpdateRun
	if !decode(w, r, &req) {
		return
	}

	var endTime time.Time
	if req.EndTime != nil {
		endTime = fromMillis(*req.EndTime)
	}
	var opts []tracking.UpdateRunOption
	if req.RunName != "" {
		opts = append(opts, tracking.WithRunNameUpdate(req.RunName))
	}

	info, err := h.store.UpdateRun(r.Context(), tracking.RunID(req.RunID), tracking.RunStatus(req.Status), endTime, opts...)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, mlflowapi.UpdateRunResponse{RunInfo: conv.Ptr(runInfoToWire(info))})
}

func (h *handler) searchRuns(w http.ResponseWriter, r *http.Request) {
	var req mlflowapi.SearchRuns
	if !decode(w, r, &req) {
		return
	}

	ids := make([]tracking.ExperimentID, 0, len(req.ExperimentIDs))
	for _, id := range req.ExperimentIDs {
		ids = append(ids, tracking.ExperimentID(id))
	}

	opts := []tracking.SearchRunsOption{
		tracking.WithRunsFilter(req.Filter),
		tracking.WithRunsPageToken(tracking.PageToken(req.PageToken)),
	}
	if req.MaxResults > 0 {
		opts = append(opts, tracking.WithRunsMaxResults(int(req.MaxResults)))
	}
	if len(req.OrderBy) > 0 {
		opts = append(opts, tracking.WithRunsOrderBy(req.OrderBy...))
	}
	if req.RunViewType != "" {
		opts = append(opts, tracking.WithRunsViewType(tracking.ViewType(req.RunViewType)))
	}

	list, err := h.store.SearchRuns(r.Context(), ids, opts...)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp := mlflowapi.SearchRunsResponse{
		Runs:          make([]mlflowapi.Run, 0, len(list.Runs)),
		NextPageToken: list.NextPageToken.String(),
	}
	for i := range list.Runs {
		resp.Runs = append(resp.Runs, runToWire(&list.Runs[i]))
	}
	writeJSON(w, resp)
}

func (h *handler) getMetricHistory(w http.ResponseWriter, r *http.Request) {
	runID, ok := query(w, r, "run_id")
	if !ok {
		return
	}
	key, ok := query(w, r, "metric_key")
	if !ok {
		return
	}

	metrics, err := h.store.GetMetricHistory(r.Context(), tracking.RunID(runID), key)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, mlflowapi.GetMetricHistoryResponse{Metrics: metricsToWire(metrics)})
}

// --- Logging ---

func (h *handler) logParam(w http.ResponseWriter, r *http.Request) {
	var req mlflowapi.LogParam
	if !decode(w, r, &req) {
		return
	}
	if err := h.store.LogParam(r.Context(), tracking.RunID(req.RunID), req.Key, req.Value); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, mlflowapi.Empty{})
}

func (h *handler) logMetric(w http.ResponseWriter, r *http.Request) {
	var req mlflowapi.LogMetric
	if !decode(w, r, &req) {
		return
	}
	err := h.store.LogMetric(r.Context(), tracking.RunID(req.RunID), req.Key, float64(req.Value), fromMillis(req.Timestamp), int64(req.Step))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, mlflowapi.Empty{})
}

func (h *handler) logBatch(w http.ResponseWriter, r *http.Request) {
	var req mlflowapi.LogBatch
	if !decode(w, r, &req) {
		return
	}
	err := h.store.LogBatch(r.Context(), tracking.RunID(req.RunID),
		metricsFromWire(req.Metrics), paramsFromWire(req.Params), tagsFromWire(req.Tags))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, mlflowapi.Empty{})
}

func (h *handler) setTag(w http.ResponseWriter, r *http.Request) {
	var req mlflowapi.SetTag
	if !decode(w, r, &req) {
		return
	}
	if err := h.store.SetTag(r.Context(), tracking.RunID(req.RunID), req.Key, req.Value); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, mlflowapi.Empty{})
}

func (h *handler) deleteTag(w http.ResponseWriter, r *http.Request) {
	deleter, ok := h.store.(tagDeleter)
	if !ok {
		notImplemented(w, "tag deletion")
		return
	}

	var req mlflowapi.DeleteTag
	if !decode(w, r, &req) {
		return
	}
	if err := deleter.DeleteTag(r.Context(), tracking.RunID(req.RunID), req.Key); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, mlflowapi.Empty{})
}
