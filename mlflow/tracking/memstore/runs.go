package memstore

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opendatahub-io/mlflow-tracking-go/mlflow/tracking"
)

var errFilterUnsupported = fmt.Errorf("%w: filter expressions are not supported", tracking.ErrInvalidArgument)

// --- Runs ---

// CreateRun implements tracking.Store. A missing or deleted experiment is a
// *StorageError.
func (s *Store) CreateRun(_ context.Context, experimentID tracking.ExperimentID, startTime time.Time, tags []tracking.RunTag, opts ...tracking.CreateRunOption) (*tracking.Run, error) {
	const op = "create run"
	if experimentID == "" {
		return nil, required(op, "experiment ID")
	}

	o := tracking.ResolveCreateRunOptions(opts...)

	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.experiments[experimentID]
	if !ok {
		return nil, storageErr(op, notFound(experimentID.String()))
	}
	if exp.LifecycleStage != tracking.LifecycleActive {
		return nil, storageErr(op, fmt.Errorf("%w: experiment %s is not active", tracking.ErrInvalidArgument, experimentID))
	}

	if startTime.IsZero() {
		startTime = s.now()
	}

	id := tracking.RunID(strings.ReplaceAll(uuid.NewString(), "-", ""))
	r := &run{
		info: tracking.RunInfo{
			RunID:          id,
			ExperimentID:   experimentID,
			RunName:        o.RunName,
			UserID:         o.UserID,
			Status:         tracking.RunStatusRunning,
			StartTime:      startTime,
			ArtifactURI:    strings.TrimSuffix(exp.ArtifactLocation, "/") + "/" + id.String() + "/artifacts",
			LifecycleStage: tracking.LifecycleActive,
		},
		tags: append([]tracking.RunTag(nil), tags...),
	}
	if r.info.RunName == "" {
		if name, ok := r.data().Tag(tracking.RunNameTag); ok {
			r.info.RunName = name
		}
	} else {
		r.setTag(tracking.RunNameTag, r.info.RunName)
	}
	s.runs[id] = r

	out := r.snapshot()
	return &out, nil
}

// GetRun implements tracking.Store. Run data carries the latest value of
// each metric.
func (s *Store) GetRun(_ context.Context, id tracking.RunID) (*tracking.Run, error) {
	if id == "" {
		return nil, required("get run", "run ID")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[id]
	if !ok {
		return nil, notFound(id.String())
	}
	out := r.snapshot()
	return &out, nil
}

// UpdateRun implements tracking.Store. An empty status or zero endTime
// leaves the stored value unchanged.
func (s *Store) UpdateRun(_ context.Context, id tracking.RunID, status tracking.RunStatus, endTime time.Time, opts ...tracking.UpdateRunOption) (*tracking.RunInfo, error) {
	const op = "update run"
	if id == "" {
		return nil, required(op, "run ID")
	}
	if status != "" && !status.Valid() {
		return nil, storageErr(op, fmt.Errorf("%w: run status %q", tracking.ErrInvalidArgument, status))
	}

	o := tracking.ResolveUpdateRunOptions(opts...)

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs[id]
	if !ok {
		return nil, notFound(id.String())
	}
	if status != "" {
		r.info.Status = status
	}
	if !endTime.IsZero() {
		r.info.EndTime = endTime
	}
	if o.RunName != "" {
		r.info.RunName = o.RunName
		r.setTag(tracking.RunNameTag, o.RunName)
	}

	info := r.info
	return &info, nil
}

// DeleteRun implements tracking.Store.
func (s *Store) DeleteRun(_ context.Context, id tracking.RunID) error {
	if id == "" {
		return required("delete run", "run ID")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs[id]
	if !ok {
		return notFound(id.String())
	}
	r.info.LifecycleStage = tracking.LifecycleDeleted
	return nil
}

// SearchRuns implements tracking.Store. Filter expressions are rejected;
// ordering supports start_time only and defaults to newest first. Runs of
// unknown experiments are simply absent from the result.
func (s *Store) SearchRuns(_ context.Context, experimentIDs []tracking.ExperimentID, opts ...tracking.SearchRunsOption) (*tracking.RunList, error) {
	const op = "search runs"
	if len(experimentIDs) == 0 {
		return nil, required(op, "at least one experiment ID")
	}

	o := tracking.ResolveSearchRunsOptions(opts...)
	if o.Filter != "" {
		return nil, storageErr(op, errFilterUnsupported)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	page, next, err := s.selectRuns(op, experimentIDs, o)
	if err != nil {
		return nil, err
	}

	list := &tracking.RunList{Runs: make([]tracking.Run, 0, len(page)), NextPageToken: next}
	for _, r := range page {
		list.Runs = append(list.Runs, r.snapshot())
	}
	return list, nil
}

// ListRunInfos implements tracking.Store. Any filter option is ignored.
func (s *Store) ListRunInfos(_ context.Context, experimentID tracking.ExperimentID, opts ...tracking.SearchRunsOption) (*tracking.RunInfoList, error) {
	const op = "list run infos"
	if experimentID == "" {
		return nil, required(op, "experiment ID")
	}

	o := tracking.ResolveSearchRunsOptions(opts...)
	o.Filter = ""

	s.mu.RLock()
	defer s.mu.RUnlock()

	page, next, err := s.selectRuns(op, []tracking.ExperimentID{experimentID}, o)
	if err != nil {
		return nil, err
	}

	list := &tracking.RunInfoList{Runs: make([]tracking.RunInfo, 0, len(page)), PageToken: next}
	for _, r := range page {
		list.Runs = append(list.Runs, r.info)
	}
	return list, nil
}

func (s *Store) selectRuns(op string, experimentIDs []tracking.ExperimentID, o tracking.SearchRunsConfig) ([]*run, tracking.PageToken, error) {
	if o.MaxResults <= 0 {
		return nil, "", required(op, "positive max results")
	}
	if !o.ViewType.Valid() {
		return nil, "", storageErr(op, fmt.Errorf("%w: view type %q", tracking.ErrInvalidArgument, o.ViewType))
	}
	ascending, err := parseRunOrder(o.OrderBy)
	if err != nil {
		return nil, "", storageErr(op, err)
	}
	offset, err := parsePageToken(o.PageToken)
	if err != nil {
		return nil, "", storageErr(op, err)
	}

	wanted := make(map[tracking.ExperimentID]bool, len(experimentIDs))
	for _, id := range experimentIDs {
		wanted[id] = true
	}

	var matched []*run
	for _, r := range s.runs {
		if wanted[r.info.ExperimentID] && o.ViewType.Includes(r.info.LifecycleStage) {
			matched = append(matched, r)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i].info, matched[j].info
		if !a.StartTime.Equal(b.StartTime) {
			if ascending {
				return a.StartTime.Before(b.StartTime)
			}
			return a.StartTime.After(b.StartTime)
		}
		return a.RunID < b.RunID
	})

	if offset >= len(matched) {
		return nil, "", nil
	}
	end := offset + o.MaxResults
	if end >= len(matched) || end < offset {
		return matched[offset:], "", nil
	}
	return matched[offset:end], tracking.PageToken(strconv.Itoa(end)), nil
}

func parseRunOrder(orderBy []string) (ascending bool, err error) {
	if len(orderBy) == 0 {
		return false, nil
	}
	if len(orderBy) > 1 {
		return false, fmt.Errorf("%w: only one order_by clause is supported", tracking.ErrInvalidArgument)
	}

	fields := strings.Fields(orderBy[0])
	if len(fields) == 0 || len(fields) > 2 {
		return false, fmt.Errorf("%w: order_by %q", tracking.ErrInvalidArgument, orderBy[0])
	}
	if strings.TrimPrefix(fields[0], "attributes.") != "start_time" {
		return false, fmt.Errorf("%w: cannot order by %q", tracking.ErrInvalidArgument, fields[0])
	}
	if len(fields) == 1 {
		return true, nil
	}
	switch strings.ToUpper(fields[1]) {
	case "ASC":
		return true, nil
	case "DESC":
		return false, nil
	default:
		return false, fmt.Errorf("%w: order_by %q", tracking.ErrInvalidArgument, orderBy[0])
	}
}

func parsePageToken(token tracking.PageToken) (int, error) {
	if token == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(string(token))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: invalid page token %q", tracking.ErrInvalidArgument, token)
	}
	return n, nil
}

// GetMetricHistory implements tracking.Store. Values come back in the
// order they were logged.
func (s *Store) GetMetricHistory(_ context.Context, runID tracking.RunID, key string) ([]tracking.Metric, error) {
	const op = "get metric history"
	if runID == "" {
		return nil, required(op, "run ID")
	}
	if key == "" {
		return nil, required(op, "metric key")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[runID]
	if !ok {
		return nil, notFound(runID.String())
	}

	history := []tracking.Metric{}
	for _, m := range r.metrics {
		if m.Key == key {
			history = append(history, m)
		}
	}
	return history, nil
}

// --- Logging ---

// LogParam implements tracking.Store. Params are immutable: logging an
// existing key with a different value fails.
func (s *Store) LogParam(_ context.Context, runID tracking.RunID, key, value string) error {
	const op = "log param"
	if key == "" {
		return required(op, "param key")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.writableRun(op, runID)
	if err != nil {
		return err
	}
	params := []tracking.Param{{Key: key, Value: value}}
	if err := r.checkParams(params); err != nil {
		return storageErr(op, err)
	}
	r.addParams(params)
	return nil
}

// LogMetric implements tracking.Store. A zero timestamp is replaced with
// the store clock.
func (s *Store) LogMetric(_ context.Context, runID tracking.RunID, key string, value float64, timestamp time.Time, step int64) error {
	const op = "log metric"
	if key == "" {
		return required(op, "metric key")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.writableRun(op, runID)
	if err != nil {
		return err
	}
	if timestamp.IsZero() {
		timestamp = s.now()
	}
	r.metrics = append(r.metrics, tracking.Metric{Key: key, Value: value, Timestamp: timestamp, Step: step})
	return nil
}

// LogBatch implements tracking.Store. The batch is applied entirely or not
// at all.
func (s *Store) LogBatch(_ context.Context, runID tracking.RunID, metrics []tracking.Metric, params []tracking.Param, tags []tracking.RunTag) error {
	const op = "log batch"
	if err := tracking.ValidateBatch(metrics, params, tags); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.writableRun(op, runID)
	if err != nil {
		return err
	}
	if err := r.checkParams(params); err != nil {
		return storageErr(op, err)
	}
	for _, m := range metrics {
		if m.Key == "" {
			return required(op, "metric key")
		}
	}
	for _, t := range tags {
		if t.Key == "" {
			return required(op, "tag key")
		}
	}

	now := s.now()
	for _, m := range metrics {
		if m.Timestamp.IsZero() {
			m.Timestamp = now
		}
		r.metrics = append(r.metrics, m)
	}
	r.addParams(params)
	for _, t := range tags {
		r.setTag(t.Key, t.Value)
	}
	return nil
}

// SetTag implements tracking.Store. Setting the run name tag renames the run.
func (s *Store) SetTag(_ context.Context, runID tracking.RunID, key, value string) error {
	const op = "set tag"
	if key == "" {
		return required(op, "tag key")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.writableRun(op, runID)
	if err != nil {
		return err
	}
	r.setTag(key, value)
	return nil
}

// DeleteTag removes a tag from a run. A missing tag is a *DoesNotExistError
// wrapped in a *StorageError.
func (s *Store) DeleteTag(_ context.Context, runID tracking.RunID, key string) error {
	const op = "delete tag"
	if key == "" {
		return required(op, "tag key")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.writableRun(op, runID)
	if err != nil {
		return err
	}
	for i, t := range r.tags {
		if t.Key == key {
			r.tags = append(r.tags[:i], r.tags[i+1:]...)
			return nil
		}
	}
	return storageErr(op, notFound(key))
}

// writableRun returns an active run or a *StorageError. A missing run is
// reported as a wrapped *DoesNotExistError.
func (s *Store) writableRun(op string, id tracking.RunID) (*run, error) {
	if id == "" {
		return nil, required(op, "run ID")
	}
	r, ok := s.runs[id]
	if !ok {
		return nil, storageErr(op, notFound(id.String()))
	}
	if r.info.LifecycleStage != tracking.LifecycleActive {
		return nil, storageErr(op, fmt.Errorf("%w: run %s is not active", tracking.ErrInvalidArgument, id))
	}
	return r, nil
}

func (r *run) checkParams(params []tracking.Param) error {
	seen := make(map[string]string, len(r.params)+len(params))
	for _, p := range r.params {
		seen[p.Key] = p.Value
	}
	for _, p := range params {
		if p.Key == "" {
			return fmt.Errorf("%w: param key is required", tracking.ErrInvalidArgument)
		}
		if old, ok := seen[p.Key]; ok && old != p.Value {
			return fmt.Errorf("%w: param %q already logged with value %q", tracking.ErrInvalidArgument, p.Key, old)
		}
		seen[p.Key] = p.Value
	}
	return nil
}

// addParams appends params whose keys are not yet present. Call checkParams
// first.
func (r *run) addParams(params []tracking.Param) {
	for _, p := range params {
		dup := false
		for _, existing := range r.params {
			if existing.Key == p.Key {
				dup = true
				break
			}
		}
		if !dup {
			r.params = append(r.params, p)
		}
	}
}

func (r *run) setTag(key, value string) {
	if key == tracking.RunNameTag {
		r.info.RunName = value
	}
	for i := range r.tags {
		if r.tags[i].Key == key {
			r.tags[i].Value = value
			return
		}
	}
	r.tags = append(r.tags, tracking.RunTag{Key: key, Value: value})
}

func (r *run) data() tracking.RunData {
	return tracking.RunData{Params: r.params, Tags: r.tags}
}

// snapshot copies the run, keeping only the latest value of each metric
// (highest step, then newest timestamp).
func (r *run) snapshot() tracking.Run {
	latest := make(map[string]int)
	var order []string
	for i, m := range r.metrics {
		j, ok := latest[m.Key]
		if !ok {
			order = append(order, m.Key)
			latest[m.Key] = i
			continue
		}
		cur := r.metrics[j]
		if m.Step > cur.Step || (m.Step == cur.Step && !m.Timestamp.Before(cur.Timestamp)) {
			latest[m.Key] = i
		}
	}

	out := tracking.Run{
		Info: r.info,
		Data: tracking.RunData{
			Metrics: make([]tracking.Metric, 0, len(order)),
			Params:  append([]tracking.Param{}, r.params...),
			Tags:    append([]tracking.RunTag{}, r.tags...),
		},
	}
	for _, key := range order {
		out.Data.Metrics = append(out.Data.Metrics, r.metrics[latest[key]])
	}
	return out
}
