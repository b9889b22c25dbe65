// ABOUTME: BufferedRun collects a run's params, tags and metrics locally.
// ABOUTME: Submit replays them in as few LogBatch calls as the batch limits allow.

package tracking

import (
	"context"
	"log/slog"
	"time"
)

// BufferedRun accumulates the values of a single run and submits them in
// one pass: create the run, send params and tags in one batch, send metrics
// in chunks of MaxBatchMetrics, then mark the run finished.
//
// A BufferedRun is not safe for concurrent use.
type BufferedRun struct {
	now       func() time.Time
	logger    *slog.Logger
	startTime time.Time
	params    []Param
	tags      []RunTag
	metrics   [][]Metric
	submitted bool
}

// BufferedRunOption configures a BufferedRun.
type BufferedRunOption func(*BufferedRun)

// WithClock replaces time.Now as the source of the start time, metric
// timestamps and the end time.
func WithClock(now func() time.Time) BufferedRunOption {
	return func(r *BufferedRun) {
		if now != nil {
			r.now = now
		}
	}
}

// WithRunLogger logs submission progress at debug level.
func WithRunLogger(logger *slog.Logger) BufferedRunOption {
	return func(r *BufferedRun) {
		r.logger = logger
	}
}

// NewBufferedRun starts a run. The start time is captured now.
func NewBufferedRun(opts ...BufferedRunOption) *BufferedRun {
	r := &BufferedRun{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	r.startTime = r.now()
	return r
}

// StartTime returns the time the run was started.
func (r *BufferedRun) StartTime() time.Time {
	return r.startTime
}

// Len returns the number of buffered params, tags and metrics.
func (r *BufferedRun) Len() (params, tags, metrics int) {
	for _, chunk := range r.metrics {
		metrics += len(chunk)
	}
	return len(r.params), len(r.tags), metrics
}

// LogParam buffers a parameter. Only MaxBatchParams params fit in a run;
// the next one fails with a *BatchError of kind TooManyParams.
func (r *BufferedRun) LogParam(key, value string) error {
	if len(r.params) >= MaxBatchParams {
		return &BatchError{Limit: TooManyParams, Count: len(r.params) + 1}
	}
	r.params = append(r.params, Param{Key: key, Value: value})
	return nil
}

// LogTag buffers a tag. Only MaxBatchTags tags fit in a run; the next one
// fails with a *BatchError of kind TooManyTags.
func (r *BufferedRun) LogTag(key, value string) error {
	if len(r.tags) >= MaxBatchTags {
		return &BatchError{Limit: TooManyTags, Count: len(r.tags) + 1}
	}
	r.tags = append(r.tags, RunTag{Key: key, Value: value})
	return nil
}

// LogMetric buffers a metric value stamped with the current time.
// There is no limit on the number of metrics.
func (r *BufferedRun) LogMetric(key string, value float64, step int64) {
	n := len(r.metrics)
	if n == 0 || len(r.metrics[n-1]) == MaxBatchMetrics {
		r.metrics = append(r.metrics, make([]Metric, 0, MaxBatchMetrics))
		n++
	}
	r.metrics[n-1] = append(r.metrics[n-1], Metric{
		Key:       key,
		Value:     value,
		Timestamp: r.now(),
		Step:      step,
	})
}

// Submit creates the run in experimentID and flushes the buffers to store.
// The first failing call aborts the submission and its error is returned
// unchanged; calls already made are not undone. A run can be submitted once.
func (r *BufferedRun) Submit(ctx context.Context, store Store, experimentID ExperimentID) (*Run, error) {
	if r.submitted {
		return nil, ErrAlreadySubmitted
	}
	r.submitted = true

	run, err := store.CreateRun(ctx, experimentID, r.startTime, nil)
	if err != nil {
		return nil, err
	}
	id := run.Info.RunID
	r.debug("run created", "run_id", id, "experiment_id", experimentID)

	if err := store.LogBatch(ctx, id, nil, r.params, r.tags); err != nil {
		return nil, err
	}

	for i, chunk := range r.metrics {
		if err := store.LogBatch(ctx, id, chunk, nil, nil); err != nil {
			return nil, err
		}
		r.debug("metrics flushed", "run_id", id, "chunk", i, "size", len(chunk))
	}

	info, err := store.UpdateRun(ctx, id, RunStatusFinished, r.now())
	if err != nil {
		return nil, err
	}
	run.Info = *info
	r.debug("run finished", "run_id", id)

	return run, nil
}

func (r *BufferedRun) debug(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}
