//go:build integration

// Tests in this package run against a live MLflow tracking server named by
// MLFLOW_TRACKING_URI (for example http://localhost:5000).

package integration

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"testing"
	"time"

	"github.com/opendatahub-io/mlflow-tracking-go/mlflow"
	"github.com/opendatahub-io/mlflow-tracking-go/mlflow/tracking"
)

// newTracking returns a tracking client for the live server and a context
// bounded by timeout.
func newTracking(t *testing.T, timeout time.Duration) (*tracking.Client, context.Context) {
	t.Helper()
	if os.Getenv("MLFLOW_TRACKING_URI") == "" {
		t.Skip("MLFLOW_TRACKING_URI not set")
	}

	client, err := mlflow.NewClient(mlflow.WithInsecure())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return client.Tracking(), ctx
}

// newExperiment creates a uniquely named experiment that is deleted when the
// test ends.
func newExperiment(t *testing.T, ctx context.Context, tc *tracking.Client, prefix string) (tracking.ExperimentID, string) {
	t.Helper()
	name := fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	id, err := tc.CreateExperiment(ctx, name)
	if err != nil {
		t.Fatalf("CreateExperiment(%q) error = %v", name, err)
	}
	t.Cleanup(func() { _ = tc.DeleteExperiment(context.Background(), id) })
	return id, name
}

// TestBufferedRunSubmit records a run with more metrics than fit in one
// batch and reads every value back.
func TestBufferedRunSubmit(t *testing.T) {
	tc, ctx := newTracking(t, 2*time.Minute)
	expID, _ := newExperiment(t, ctx, tc, "it-buffered")

	const n = 2500
	br := tracking.NewBufferedRun()
	if err := br.LogParam("optimizer", "adam"); err != nil {
		t.Fatalf("LogParam() error = %v", err)
	}
	if err := br.LogTag(tracking.RunNameTag, "buffered-2500"); err != nil {
		t.Fatalf("LogTag() error = %v", err)
	}
	for i := 0; i < n; i++ {
		br.LogMetric("loss", 1/float64(i+1), int64(i))
	}

	run, err := br.Submit(ctx, tc, expID)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if run.Info.Status != tracking.RunStatusFinished {
		t.Errorf("Status = %q, want FINISHED", run.Info.Status)
	}
	if run.Info.EndTime.IsZero() {
		t.Error("EndTime not set after Submit")
	}

	stored, err := tc.GetRun(ctx, run.Info.RunID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if stored.Info.Status != tracking.RunStatusFinished {
		t.Errorf("stored Status = %q, want FINISHED", stored.Info.Status)
	}
	if v, _ := stored.Data.Tag(tracking.RunNameTag); v != "buffered-2500" {
		t.Errorf("run name tag = %q", v)
	}
	if len(stored.Data.Params) != 1 || stored.Data.Params[0].Value != "adam" {
		t.Errorf("params = %+v", stored.Data.Params)
	}

	history, err := tc.GetMetricHistory(ctx, run.Info.RunID, "loss")
	if err != nil {
		t.Fatalf("GetMetricHistory() error = %v", err)
	}
	if len(history) != n {
		t.Fatalf("history has %d values, want %d", len(history), n)
	}
	steps := make(map[int64]bool, n)
	for _, m := range history {
		steps[m.Step] = true
	}
	if len(steps) != n {
		t.Errorf("history covers %d distinct steps, want %d", len(steps), n)
	}
}

// TestBufferedRunSubmitNonFinite checks that NaN and infinite values are
// accepted by the server and the run still finishes.
func TestBufferedRunSubmitNonFinite(t *testing.T) {
	tc, ctx := newTracking(t, 30*time.Second)
	expID, _ := newExperiment(t, ctx, tc, "it-nonfinite")

	br := tracking.NewBufferedRun()
	br.LogMetric("loss", math.NaN(), 0)
	br.LogMetric("loss", math.Inf(1), 1)

	run, err := br.Submit(ctx, tc, expID)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if run.Info.Status != tracking.RunStatusFinished {
		t.Errorf("Status = %q, want FINISHED", run.Info.Status)
	}

	history, err := tc.GetMetricHistory(ctx, run.Info.RunID, "loss")
	if err != nil {
		t.Fatalf("GetMetricHistory() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history = %+v, want 2 values", history)
	}
	for _, m := range history {
		switch m.Step {
		case 0:
			if !math.IsNaN(m.Value) {
				t.Errorf("step 0 = %v, want NaN", m.Value)
			}
		case 1:
			if !math.IsInf(m.Value, 1) {
				t.Errorf("step 1 = %v, want +Inf", m.Value)
			}
		}
	}
}

// TestListExperimentsViewTypes deletes an experiment and checks which views
// include it.
func TestListExperimentsViewTypes(t *testing.T) {
	tc, ctx := newTracking(t, 30*time.Second)
	expID, _ := newExperiment(t, ctx, tc, "it-views")

	if err := tc.DeleteExperiment(ctx, expID); err != nil {
		t.Fatalf("DeleteExperiment() error = %v", err)
	}

	contains := func(view tracking.ViewType) bool {
		t.Helper()
		exps, err := tc.ListExperiments(ctx, view)
		if err != nil {
			t.Fatalf("ListExperiments(%s) error = %v", view, err)
		}
		for _, e := range exps {
			if e.ID == expID {
				return true
			}
		}
		return false
	}

	if contains(tracking.ViewTypeActiveOnly) {
		t.Error("deleted experiment listed in ACTIVE_ONLY")
	}
	if !contains(tracking.ViewTypeDeletedOnly) {
		t.Error("deleted experiment missing from DELETED_ONLY")
	}
	if !contains(tracking.ViewTypeAll) {
		t.Error("deleted experiment missing from ALL")
	}

	exp, err := tc.GetExperiment(ctx, expID)
	if err != nil {
		t.Fatalf("GetExperiment() error = %v", err)
	}
	if exp.LifecycleStage != tracking.LifecycleDeleted {
		t.Errorf("LifecycleStage = %q, want deleted", exp.LifecycleStage)
	}
}

// TestUpdateExperimentRefetch renames an experiment and reads it back by ID
// and by the new name.
func TestUpdateExperimentRefetch(t *testing.T) {
	tc, ctx := newTracking(t, 30*time.Second)
	expID, name := newExperiment(t, ctx, tc, "it-rename")

	renamed := name + "-renamed"
	if err := tc.UpdateExperiment(ctx, expID, renamed); err != nil {
		t.Fatalf("UpdateExperiment() error = %v", err)
	}

	exp, err := tc.GetExperiment(ctx, expID)
	if err != nil {
		t.Fatalf("GetExperiment() error = %v", err)
	}
	if exp.Name != renamed {
		t.Errorf("Name = %q, want %q", exp.Name, renamed)
	}

	byName, err := tc.GetExperimentByName(ctx, renamed)
	if err != nil {
		t.Fatalf("GetExperimentByName() error = %v", err)
	}
	if byName.ID != expID {
		t.Errorf("ID = %q, want %q", byName.ID, expID)
	}

	_, err = tc.GetExperimentByName(ctx, name)
	if !tracking.IsDoesNotExist(err) {
		t.Errorf("old name lookup error = %v, want does not exist", err)
	}
}

// TestErrorNames checks that typed errors carry the name the caller used.
func TestErrorNames(t *testing.T) {
	tc, ctx := newTracking(t, 30*time.Second)
	_, name := newExperiment(t, ctx, tc, "it-errors")

	_, err := tc.CreateExperiment(ctx, name)
	var exists *tracking.AlreadyExistsError
	if !errors.As(err, &exists) {
		t.Fatalf("duplicate CreateExperiment() error = %v, want AlreadyExistsError", err)
	}
	if exists.Name != name {
		t.Errorf("AlreadyExistsError.Name = %q, want %q", exists.Name, name)
	}
	if !mlflow.IsAlreadyExists(err) {
		t.Error("mlflow.IsAlreadyExists() = false")
	}

	missing := fmt.Sprintf("it-missing-%d", time.Now().UnixNano())
	_, err = tc.GetExperimentByName(ctx, missing)
	var notFound *tracking.DoesNotExistError
	if !errors.As(err, &notFound) {
		t.Fatalf("GetExperimentByName() error = %v, want DoesNotExistError", err)
	}
	if notFound.Name != missing {
		t.Errorf("DoesNotExistError.Name = %q, want %q", notFound.Name, missing)
	}

	_, err = tc.GetRun(ctx, "0123456789abcdef0123456789abcdef")
	if !errors.As(err, &notFound) || notFound.Name != "0123456789abcdef0123456789abcdef" {
		t.Errorf("GetRun() error = %v, want DoesNotExistError naming the run", err)
	}
}

// TestListRunInfosIgnoresFilter checks that run metadata listing returns
// every run regardless of a filter option.
func TestListRunInfosIgnoresFilter(t *testing.T) {
	tc, ctx := newTracking(t, 30*time.Second)
	expID, _ := newExperiment(t, ctx, tc, "it-infos")

	for i := 0; i < 2; i++ {
		if _, err := tc.CreateRun(ctx, expID, time.Now(), nil); err != nil {
			t.Fatalf("CreateRun(%d) error = %v", i, err)
		}
	}

	infos, err := tc.ListRunInfos(ctx, expID, tracking.WithRunsFilter("params.none = 'x'"))
	if err != nil {
		t.Fatalf("ListRunInfos() error = %v", err)
	}
	if len(infos.Runs) != 2 {
		t.Errorf("got %d run infos, want 2", len(infos.Runs))
	}
	for _, info := range infos.Runs {
		if info.Status != tracking.RunStatusRunning {
			t.Errorf("run %s Status = %q, want RUNNING", info.RunID, info.Status)
		}
	}
}

// TestLogBatchLimitRejectedLocally checks that an oversized batch fails
// before any request is made.
func TestLogBatchLimitRejectedLocally(t *testing.T) {
	tc, ctx := newTracking(t, 10*time.Second)

	err := tc.LogBatch(ctx, "no-such-run", nil, make([]tracking.Param, 101), nil)
	var batchErr *tracking.BatchError
	if !errors.As(err, &batchErr) {
		t.Fatalf("LogBatch() error = %v, want BatchError", err)
	}
	if batchErr.Limit != tracking.TooManyParams || batchErr.Count != 101 {
		t.Errorf("BatchError = %+v", batchErr)
	}
}
