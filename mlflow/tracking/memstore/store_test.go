package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendatahub-io/mlflow-tracking-go/mlflow/tracking"
)

func newStore(t *testing.T) (*Store, time.Time) {
	t.Helper()
	now := time.UnixMilli(1_700_000_000_000)
	return New(WithClock(func() time.Time { return now })), now
}

func mustCreateExperiment(t *testing.T, s *Store, name string) tracking.ExperimentID {
	t.Helper()
	id, err := s.CreateExperiment(context.Background(), name)
	require.NoError(t, err)
	return id
}

func mustCreateRun(t *testing.T, s *Store, exp tracking.ExperimentID, start time.Time) tracking.RunID {
	t.Helper()
	run, err := s.CreateRun(context.Background(), exp, start, nil)
	require.NoError(t, err)
	return run.Info.RunID
}

func TestCreateExperiment(t *testing.T) {
	s, now := newStore(t)
	ctx := context.Background()

	id, err := s.CreateExperiment(ctx, "churn", tracking.WithExperimentTags(map[string]string{"team": "ml"}))
	require.NoError(t, err)
	assert.Equal(t, tracking.ExperimentID("1"), id)

	exp, err := s.GetExperiment(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "churn", exp.Name)
	assert.Equal(t, "memory:///1", exp.ArtifactLocation)
	assert.Equal(t, tracking.LifecycleActive, exp.LifecycleStage)
	assert.Equal(t, map[string]string{"team": "ml"}, exp.Tags)
	assert.Equal(t, now, exp.CreationTime)

	second, err := s.CreateExperiment(ctx, "other", tracking.WithArtifactLocation("s3://bucket/x"))
	require.NoError(t, err)
	assert.Equal(t, tracking.ExperimentID("2"), second)
}

func TestCreateExperiment_AlreadyExists(t *testing.T) {
	s, _ := newStore(t)
	mustCreateExperiment(t, s, "foo")

	_, err := s.CreateExperiment(context.Background(), "foo")

	var exists *tracking.AlreadyExistsError
	require.ErrorAs(t, err, &exists)
	assert.Equal(t, "foo", exists.Name)
}

func TestCreateExperiment_EmptyName(t *testing.T) {
	s, _ := newStore(t)

	_, err := s.CreateExperiment(context.Background(), "")

	require.ErrorIs(t, err, tracking.ErrInvalidArgument)
	var storageErr *tracking.StorageError
	assert.ErrorAs(t, err, &storageErr)
}

func TestGetExperimentByName_DoesNotExist(t *testing.T) {
	s, _ := newStore(t)

	_, err := s.GetExperimentByName(context.Background(), "bar")

	var missing *tracking.DoesNotExistError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "bar", missing.Name)
}

func TestDeleteExperiment_ViewTypes(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	keep := mustCreateExperiment(t, s, "keep")
	gone := mustCreateExperiment(t, s, "gone")

	require.NoError(t, s.DeleteExperiment(ctx, gone))

	ids := func(exps []tracking.Experiment) []tracking.ExperimentID {
		var out []tracking.ExperimentID
		for _, e := range exps {
			out = append(out, e.ID)
		}
		return out
	}

	active, err := s.ListExperiments(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []tracking.ExperimentID{keep}, ids(active))

	deleted, err := s.ListExperiments(ctx, tracking.ViewTypeDeletedOnly)
	require.NoError(t, err)
	assert.Equal(t, []tracking.ExperimentID{gone}, ids(deleted))

	all, err := s.ListExperiments(ctx, tracking.ViewTypeAll)
	require.NoError(t, err)
	assert.Equal(t, []tracking.ExperimentID{keep, gone}, ids(all))

	assert.True(t, tracking.IsDoesNotExist(s.DeleteExperiment(ctx, "99")))
}

func TestUpdateExperiment(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	id := mustCreateExperiment(t, s, "old")
	mustCreateExperiment(t, s, "taken")

	require.NoError(t, s.UpdateExperiment(ctx, id, "new"))
	exp, err := s.GetExperiment(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "new", exp.Name)

	require.NoError(t, s.UpdateExperiment(ctx, id, ""), "empty name leaves experiment unchanged")

	err = s.UpdateExperiment(ctx, id, "taken")
	var storageErr *tracking.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.True(t, tracking.IsAlreadyExists(err))

	err = s.UpdateExperiment(ctx, "42", "x")
	require.ErrorAs(t, err, &storageErr)
	assert.True(t, tracking.IsDoesNotExist(err))
}

func TestSearchExperiments_Pagination(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	for _, name := range []string{"a", "b", "c"} {
		mustCreateExperiment(t, s, name)
	}

	page, err := s.SearchExperiments(ctx, tracking.WithExperimentsMaxResults(2))
	require.NoError(t, err)
	require.Len(t, page.Experiments, 2)
	assert.Equal(t, tracking.PageToken("2"), page.NextPageToken)

	page, err = s.SearchExperiments(ctx, tracking.WithExperimentsMaxResults(2), tracking.WithExperimentsPageToken(page.NextPageToken))
	require.NoError(t, err)
	require.Len(t, page.Experiments, 1)
	assert.Equal(t, "c", page.Experiments[0].Name)
	assert.Empty(t, page.NextPageToken)

	_, err = s.SearchExperiments(ctx, tracking.WithExperimentsFilter("name = 'a'"))
	assert.ErrorIs(t, err, tracking.ErrInvalidArgument)
}

func TestSetExperimentTag(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	id := mustCreateExperiment(t, s, "e")

	require.NoError(t, s.SetExperimentTag(ctx, id, "owner", "alice"))
	exp, err := s.GetExperiment(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "alice", exp.Tags["owner"])

	assert.True(t, tracking.IsDoesNotExist(s.SetExperimentTag(ctx, "7", "k", "v")))
}

func TestCreateRun(t *testing.T) {
	s, now := newStore(t)
	ctx := context.Background()
	exp := mustCreateExperiment(t, s, "e")

	run, err := s.CreateRun(ctx, exp, time.Time{}, []tracking.RunTag{{Key: "source", Value: "test"}},
		tracking.WithRunName("first"), tracking.WithUserID("bob"))
	require.NoError(t, err)

	assert.Len(t, string(run.Info.RunID), 32)
	assert.Equal(t, exp, run.Info.ExperimentID)
	assert.Equal(t, "first", run.Info.RunName)
	assert.Equal(t, "bob", run.Info.UserID)
	assert.Equal(t, tracking.RunStatusRunning, run.Info.Status)
	assert.Equal(t, now, run.Info.StartTime)
	assert.True(t, run.Info.EndTime.IsZero())
	assert.Equal(t, "memory:///1/"+run.Info.RunID.String()+"/artifacts", run.Info.ArtifactURI)

	name, ok := run.Data.Tag(tracking.RunNameTag)
	assert.True(t, ok)
	assert.Equal(t, "first", name)
	source, _ := run.Data.Tag("source")
	assert.Equal(t, "test", source)
}

func TestCreateRun_MissingExperiment(t *testing.T) {
	s, _ := newStore(t)

	_, err := s.CreateRun(context.Background(), "9", time.Time{}, nil)

	var storageErr *tracking.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "create run", storageErr.Op)
	assert.True(t, tracking.IsDoesNotExist(err))
}

func TestGetRun_LatestMetrics(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	id := mustCreateRun(t, s, mustCreateExperiment(t, s, "e"), time.Time{})

	ts := time.UnixMilli(1000)
	require.NoError(t, s.LogMetric(ctx, id, "loss", 0.9, ts, 0))
	require.NoError(t, s.LogMetric(ctx, id, "loss", 0.5, ts, 2))
	require.NoError(t, s.LogMetric(ctx, id, "loss", 0.7, ts, 1))
	require.NoError(t, s.LogMetric(ctx, id, "acc", 0.1, ts, 0))

	run, err := s.GetRun(ctx, id)
	require.NoError(t, err)
	require.Len(t, run.Data.Metrics, 2)
	assert.Equal(t, "loss", run.Data.Metrics[0].Key)
	assert.Equal(t, 0.5, run.Data.Metrics[0].Value)
	assert.Equal(t, "acc", run.Data.Metrics[1].Key)

	history, err := s.GetMetricHistory(ctx, id, "loss")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, []float64{0.9, 0.5, 0.7}, []float64{history[0].Value, history[1].Value, history[2].Value})

	history, err = s.GetMetricHistory(ctx, id, "missing")
	require.NoError(t, err)
	assert.Empty(t, history)

	_, err = s.GetMetricHistory(ctx, "nope", "loss")
	assert.True(t, tracking.IsDoesNotExist(err))
}

func TestUpdateRun(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	id := mustCreateRun(t, s, mustCreateExperiment(t, s, "e"), time.UnixMilli(10))

	end := time.UnixMilli(20)
	info, err := s.UpdateRun(ctx, id, tracking.RunStatusFinished, end, tracking.WithRunNameUpdate("renamed"))
	require.NoError(t, err)
	assert.Equal(t, tracking.RunStatusFinished, info.Status)
	assert.Equal(t, end, info.EndTime)
	assert.Equal(t, "renamed", info.RunName)

	info, err = s.UpdateRun(ctx, id, "", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, tracking.RunStatusFinished, info.Status, "empty status keeps stored value")
	assert.Equal(t, end, info.EndTime)

	_, err = s.UpdateRun(ctx, "missing", tracking.RunStatusFailed, end)
	assert.True(t, tracking.IsDoesNotExist(err))

	_, err = s.UpdateRun(ctx, id, "BOGUS", end)
	assert.ErrorIs(t, err, tracking.ErrInvalidArgument)
}

func TestDeleteRun(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	exp := mustCreateExperiment(t, s, "e")
	id := mustCreateRun(t, s, exp, time.Time{})

	require.NoError(t, s.DeleteRun(ctx, id))

	run, err := s.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, tracking.LifecycleDeleted, run.Info.LifecycleStage)

	err = s.LogParam(ctx, id, "k", "v")
	assert.ErrorIs(t, err, tracking.ErrInvalidArgument, "deleted runs reject writes")

	assert.True(t, tracking.IsDoesNotExist(s.DeleteRun(ctx, "missing")))
}

func TestSearchRuns(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	exp := mustCreateExperiment(t, s, "e")
	other := mustCreateExperiment(t, s, "other")

	oldest := mustCreateRun(t, s, exp, time.UnixMilli(100))
	middle := mustCreateRun(t, s, exp, time.UnixMilli(200))
	newest := mustCreateRun(t, s, exp, time.UnixMilli(300))
	mustCreateRun(t, s, other, time.UnixMilli(400))
	deleted := mustCreateRun(t, s, exp, time.UnixMilli(500))
	require.NoError(t, s.DeleteRun(ctx, deleted))

	runIDs := func(list *tracking.RunList) []tracking.RunID {
		var out []tracking.RunID
		for _, r := range list.Runs {
			out = append(out, r.Info.RunID)
		}
		return out
	}

	list, err := s.SearchRuns(ctx, []tracking.ExperimentID{exp})
	require.NoError(t, err)
	assert.Equal(t, []tracking.RunID{newest, middle, oldest}, runIDs(list))
	assert.Empty(t, list.NextPageToken)

	list, err = s.SearchRuns(ctx, []tracking.ExperimentID{exp}, tracking.WithRunsOrderBy("start_time ASC"), tracking.WithRunsMaxResults(2))
	require.NoError(t, err)
	assert.Equal(t, []tracking.RunID{oldest, middle}, runIDs(list))
	require.Equal(t, tracking.PageToken("2"), list.NextPageToken)

	list, err = s.SearchRuns(ctx, []tracking.ExperimentID{exp}, tracking.WithRunsOrderBy("start_time ASC"),
		tracking.WithRunsMaxResults(2), tracking.WithRunsPageToken(list.NextPageToken))
	require.NoError(t, err)
	assert.Equal(t, []tracking.RunID{newest}, runIDs(list))

	list, err = s.SearchRuns(ctx, []tracking.ExperimentID{exp}, tracking.WithRunsViewType(tracking.ViewTypeDeletedOnly))
	require.NoError(t, err)
	assert.Equal(t, []tracking.RunID{deleted}, runIDs(list))

	list, err = s.SearchRuns(ctx, []tracking.ExperimentID{"404"})
	require.NoError(t, err)
	assert.Empty(t, list.Runs)
}

func TestSearchRuns_Rejects(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	exp := []tracking.ExperimentID{mustCreateExperiment(t, s, "e")}

	tests := []struct {
		name string
		opts []tracking.SearchRunsOption
	}{
		{name: "filter", opts: []tracking.SearchRunsOption{tracking.WithRunsFilter("metrics.loss < 1")}},
		{name: "order by metric", opts: []tracking.SearchRunsOption{tracking.WithRunsOrderBy("metrics.loss")}},
		{name: "bad page token", opts: []tracking.SearchRunsOption{tracking.WithRunsPageToken("abc")}},
		{name: "zero max results", opts: []tracking.SearchRunsOption{tracking.WithRunsMaxResults(0)}},
		{name: "bad view type", opts: []tracking.SearchRunsOption{tracking.WithRunsViewType("SOME")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.SearchRuns(ctx, exp, tt.opts...)
			assert.ErrorIs(t, err, tracking.ErrInvalidArgument)
		})
	}

	_, err := s.SearchRuns(ctx, nil)
	assert.ErrorIs(t, err, tracking.ErrInvalidArgument)
}

func TestListRunInfos_IgnoresFilter(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	exp := mustCreateExperiment(t, s, "e")
	id := mustCreateRun(t, s, exp, time.Time{})

	list, err := s.ListRunInfos(ctx, exp, tracking.WithRunsFilter("params.x = 'y'"))
	require.NoError(t, err)
	require.Len(t, list.Runs, 1)
	assert.Equal(t, id, list.Runs[0].RunID)
}

func TestLogParam_Immutable(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	id := mustCreateRun(t, s, mustCreateExperiment(t, s, "e"), time.Time{})

	require.NoError(t, s.LogParam(ctx, id, "lr", "0.1"))
	require.NoError(t, s.LogParam(ctx, id, "lr", "0.1"), "same value is idempotent")

	err := s.LogParam(ctx, id, "lr", "0.2")
	assert.ErrorIs(t, err, tracking.ErrInvalidArgument)

	err = s.LogParam(ctx, "missing", "lr", "0.1")
	var storageErr *tracking.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.True(t, tracking.IsDoesNotExist(err))
}

func TestLogBatch(t *testing.T) {
	s, now := newStore(t)
	ctx := context.Background()
	id := mustCreateRun(t, s, mustCreateExperiment(t, s, "e"), time.Time{})

	err := s.LogBatch(ctx, id,
		[]tracking.Metric{{Key: "loss", Value: 1, Step: 0}},
		[]tracking.Param{{Key: "lr", Value: "0.1"}},
		[]tracking.RunTag{{Key: "stage", Value: "train"}})
	require.NoError(t, err)

	run, err := s.GetRun(ctx, id)
	require.NoError(t, err)
	require.Len(t, run.Data.Metrics, 1)
	assert.Equal(t, now, run.Data.Metrics[0].Timestamp, "zero timestamps use the store clock")
	assert.Equal(t, []tracking.Param{{Key: "lr", Value: "0.1"}}, run.Data.Params)
	stage, _ := run.Data.Tag("stage")
	assert.Equal(t, "train", stage)
}

func TestLogBatch_AllOrNothing(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	id := mustCreateRun(t, s, mustCreateExperiment(t, s, "e"), time.Time{})
	require.NoError(t, s.LogParam(ctx, id, "lr", "0.1"))

	err := s.LogBatch(ctx, id,
		[]tracking.Metric{{Key: "loss", Value: 1}},
		[]tracking.Param{{Key: "lr", Value: "0.5"}},
		nil)
	require.ErrorIs(t, err, tracking.ErrInvalidArgument)

	history, err := s.GetMetricHistory(ctx, id, "loss")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestLogBatch_Limits(t *testing.T) {
	s, _ := newStore(t)

	err := s.LogBatch(context.Background(), "missing", make([]tracking.Metric, 1001), nil, nil)

	var batchErr *tracking.BatchError
	require.ErrorAs(t, err, &batchErr, "limits are checked before the run lookup")
	assert.Equal(t, tracking.TooManyMetrics, batchErr.Limit)
}

func TestTags(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	id := mustCreateRun(t, s, mustCreateExperiment(t, s, "e"), time.Time{})

	require.NoError(t, s.SetTag(ctx, id, "k", "v1"))
	require.NoError(t, s.SetTag(ctx, id, "k", "v2"))
	require.NoError(t, s.SetTag(ctx, id, tracking.RunNameTag, "via-tag"))

	run, err := s.GetRun(ctx, id)
	require.NoError(t, err)
	v, _ := run.Data.Tag("k")
	assert.Equal(t, "v2", v)
	assert.Equal(t, "via-tag", run.Info.RunName)

	require.NoError(t, s.DeleteTag(ctx, id, "k"))
	run, err = s.GetRun(ctx, id)
	require.NoError(t, err)
	_, ok := run.Data.Tag("k")
	assert.False(t, ok)

	err = s.DeleteTag(ctx, id, "k")
	assert.True(t, tracking.IsDoesNotExist(err))
}

func TestBufferedRunSubmit(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	exp := mustCreateExperiment(t, s, "e")

	br := tracking.NewBufferedRun()
	require.NoError(t, br.LogParam("lr", "0.01"))
	require.NoError(t, br.LogTag("source", "memstore"))
	for i := 0; i < 2100; i++ {
		br.LogMetric("loss", float64(i), int64(i))
	}

	run, err := br.Submit(ctx, s, exp)
	require.NoError(t, err)
	assert.Equal(t, tracking.RunStatusFinished, run.Info.Status)
	assert.False(t, run.Info.EndTime.IsZero())

	history, err := s.GetMetricHistory(ctx, run.Info.RunID, "loss")
	require.NoError(t, err)
	require.Len(t, history, 2100)
	assert.Equal(t, float64(2099), history[2099].Value)
}

func TestConcurrentLogging(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	id := mustCreateRun(t, s, mustCreateExperiment(t, s, "e"), time.Time{})

	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		go func(step int64) {
			errs <- s.LogMetric(ctx, id, "m", 1, time.Time{}, step)
		}(int64(i))
	}
	for i := 0; i < 50; i++ {
		require.NoError(t, <-errs)
	}

	history, err := s.GetMetricHistory(ctx, id, "m")
	require.NoError(t, err)
	assert.Len(t, history, 50)
}
