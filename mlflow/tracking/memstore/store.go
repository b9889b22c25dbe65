// Package memstore is an in-memory tracking.Store.
//
// It follows the same error contract as the REST client and is intended for
// tests and for programs that want to exercise tracking code without a
// server. Data is lost when the Store is discarded.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/opendatahub-io/mlflow-tracking-go/mlflow/tracking"
)

type experiment struct {
	tracking.Experiment
	seq int
}

type run struct {
	info    tracking.RunInfo
	params  []tracking.Param
	tags    []tracking.RunTag
	metrics []tracking.Metric
}

// Store keeps experiments and runs in memory. It is safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	now         func() time.Time
	nextExpID   int
	experiments map[tracking.ExperimentID]*experiment
	runs        map[tracking.RunID]*run
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now for creation and update timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New returns an empty Store. Experiment IDs are assigned sequentially
// starting at "1"; run IDs are random UUIDs.
func New(opts ...Option) *Store {
	s := &Store{
		now:         time.Now,
		nextExpID:   1,
		experiments: make(map[tracking.ExperimentID]*experiment),
		runs:        make(map[tracking.RunID]*run),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ tracking.Store = (*Store)(nil)

func storageErr(op string, err error) error {
	return &tracking.StorageError{Op: op, Err: err}
}

func required(op, what string) error {
	return storageErr(op, fmt.Errorf("%w: %s is required", tracking.ErrInvalidArgument, what))
}

func notFound(name string) *tracking.DoesNotExistError {
	return &tracking.DoesNotExistError{Name: name}
}

// --- Experiments ---

// CreateExperiment implements tracking.Store.
func (s *Store) CreateExperiment(_ context.Context, name string, opts ...tracking.CreateExperimentOption) (tracking.ExperimentID, error) {
	const op = "create experiment"
	if name == "" {
		return "", required(op, "experiment name")
	}

	o := tracking.ResolveCreateExperimentOptions(opts...)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.experimentByName(name) != nil {
		return "", &tracking.AlreadyExistsError{Name: name}
	}

	seq := s.nextExpID
	s.nextExpID++
	id := tracking.ExperimentID(strconv.Itoa(seq))

	location := o.ArtifactLocation
	if location == "" {
		location = "memory:///" + id.String()
	}

	now := s.now()
	exp := &experiment{
		seq: seq,
		Experiment: tracking.Experiment{
			ID:               id,
			Name:             name,
			ArtifactLocation: location,
			LifecycleStage:   tracking.LifecycleActive,
			CreationTime:     now,
			LastUpdateTime:   now,
		},
	}
	if len(o.Tags) > 0 {
		exp.Tags = make(map[string]string, len(o.Tags))
		for k, v := range o.Tags {
			exp.Tags[k] = v
		}
	}
	s.experiments[id] = exp

	return id, nil
}

// ListExperiments implements tracking.Store.
func (s *Store) ListExperiments(_ context.Context, viewType tracking.ViewType) ([]tracking.Experiment, error) {
	if viewType != "" && !viewType.Valid() {
		return nil, storageErr("list experiments", fmt.Errorf("%w: view type %q", tracking.ErrInvalidArgument, viewType))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	selected := make([]*experiment, 0, len(s.experiments))
	for _, exp := range s.experiments {
		if viewType.Includes(exp.LifecycleStage) {
			selected = append(selected, exp)
		}
	}
	sort.Slice(selected, func(i, j int) bool { return selected[i].seq < selected[j].seq })

	out := make([]tracking.Experiment, 0, len(selected))
	for _, exp := range selected {
		out = append(out, copyExperiment(exp))
	}
	return out, nil
}

// GetExperiment implements tracking.Store.
func (s *Store) GetExperiment(_ context.Context, id tracking.ExperimentID) (*tracking.Experiment, error) {
	if id == "" {
		return nil, required("get experiment", "experiment ID")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	exp, ok := s.experiments[id]
	if !ok {
		return nil, notFound(id.String())
	}
	e := copyExperiment(exp)
	return &e, nil
}

// GetExperimentByName implements tracking.Store.
func (s *Store) GetExperimentByName(_ context.Context, name string) (*tracking.Experiment, error) {
	if name == "" {
		return nil, required("get experiment by name", "experiment name")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	exp := s.experimentByName(name)
	if exp == nil {
		return nil, notFound(name)
	}
	e := copyExperiment(exp)
	return &e, nil
}

// DeleteExperiment implements tracking.Store.
func (s *Store) DeleteExperiment(_ context.Context, id tracking.ExperimentID) error {
	if id == "" {
		return required("delete experiment", "experiment ID")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.experiments[id]
	if !ok {
		return notFound(id.String())
	}
	exp.LifecycleStage = tracking.LifecycleDeleted
	exp.LastUpdateTime = s.now()
	return nil
}

// UpdateExperiment implements tracking.Store. Failures are *StorageError;
// a missing experiment is reported as a wrapped *DoesNotExistError.
func (s *Store) UpdateExperiment(_ context.Context, id tracking.ExperimentID, newName string) error {
	const op = "update experiment"
	if id == "" {
		return required(op, "experiment ID")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.experiments[id]
	if !ok {
		return storageErr(op, notFound(id.String()))
	}
	if exp.LifecycleStage != tracking.LifecycleActive {
		return storageErr(op, fmt.Errorf("%w: experiment %s is not active", tracking.ErrInvalidArgument, id))
	}
	if newName == "" || newName == exp.Name {
		return nil
	}
	if s.experimentByName(newName) != nil {
		return storageErr(op, &tracking.AlreadyExistsError{Name: newName})
	}

	exp.Name = newName
	exp.LastUpdateTime = s.now()
	return nil
}

func (s *Store) experimentByName(name string) *experiment {
	for _, exp := range s.experiments {
		if exp.Name == name {
			return exp
		}
	}
	return nil
}

func copyExperiment(exp *experiment) tracking.Experiment {
	e := exp.Experiment
	if exp.Tags != nil {
		e.Tags = make(map[string]string, len(exp.Tags))
		for k, v := range exp.Tags {
			e.Tags[k] = v
		}
	}
	return e
}

// SetExperimentTag sets a tag on an experiment.
func (s *Store) SetExperimentTag(_ context.Context, id tracking.ExperimentID, key, value string) error {
	const op = "set experiment tag"
	if key == "" {
		return required(op, "tag key")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.experiments[id]
	if !ok {
		return notFound(id.String())
	}
	if exp.Tags == nil {
		exp.Tags = make(map[string]string)
	}
	exp.Tags[key] = value
	return nil
}

// SearchExperiments pages through experiments in creation order. Filter
// expressions and ordering are not supported.
func (s *Store) SearchExperiments(_ context.Context, opts ...tracking.SearchExperimentsOption) (*tracking.ExperimentList, error) {
	const op = "search experiments"
	o := tracking.ResolveSearchExperimentsOptions(opts...)
	if o.Filter != "" {
		return nil, storageErr(op, errFilterUnsupported)
	}
	if len(o.OrderBy) > 0 {
		return nil, storageErr(op, fmt.Errorf("%w: order_by is not supported", tracking.ErrInvalidArgument))
	}
	if o.MaxResults <= 0 {
		return nil, required(op, "positive max results")
	}
	offset, err := parsePageToken(o.PageToken)
	if err != nil {
		return nil, storageErr(op, err)
	}

	all, err := s.ListExperiments(context.Background(), o.ViewType)
	if err != nil {
		return nil, err
	}

	list := &tracking.ExperimentList{}
	if offset >= len(all) {
		return list, nil
	}
	end := offset + o.MaxResults
	if end >= len(all) || end < offset {
		list.Experiments = all[offset:]
		return list, nil
	}
	list.Experiments = all[offset:end]
	list.NextPageToken = tracking.PageToken(strconv.Itoa(end))
	return list, nil
}
