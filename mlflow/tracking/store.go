package tracking

import (
	"context"
	"time"
)

// Store is the set of tracking operations a backend provides. Client
// implements it against the REST API; memstore implements it in memory.
//
// Errors are *AlreadyExistsError, *DoesNotExistError, *BatchError or
// *StorageError as documented per method.
type Store interface {
	// CreateExperiment creates an experiment and returns its ID.
	// Fails with *AlreadyExistsError when the name is taken.
	CreateExperiment(ctx context.Context, name string, opts ...CreateExperimentOption) (ExperimentID, error)

	// ListExperiments returns the experiments selected by viewType.
	ListExperiments(ctx context.Context, viewType ViewType) ([]Experiment, error)

	// GetExperiment fails with *DoesNotExistError for unknown IDs.
	GetExperiment(ctx context.Context, id ExperimentID) (*Experiment, error)

	// GetExperimentByName fails with *DoesNotExistError for unknown names.
	GetExperimentByName(ctx context.Context, name string) (*Experiment, error)

	// DeleteExperiment marks an experiment deleted.
	DeleteExperiment(ctx context.Context, id ExperimentID) error

	// UpdateExperiment renames an experiment. An empty newName leaves it unchanged.
	UpdateExperiment(ctx context.Context, id ExperimentID, newName string) error

	// CreateRun starts a run in an experiment.
	CreateRun(ctx context.Context, experimentID ExperimentID, startTime time.Time, tags []RunTag, opts ...CreateRunOption) (*Run, error)

	// DeleteRun marks a run deleted.
	DeleteRun(ctx context.Context, id RunID) error

	// GetRun fails with *DoesNotExistError for unknown IDs.
	GetRun(ctx context.Context, id RunID) (*Run, error)

	// UpdateRun sets a run's status and end time and returns the new metadata.
	UpdateRun(ctx context.Context, id RunID, status RunStatus, endTime time.Time, opts ...UpdateRunOption) (*RunInfo, error)

	// SearchRuns returns one page of runs across experimentIDs.
	SearchRuns(ctx context.Context, experimentIDs []ExperimentID, opts ...SearchRunsOption) (*RunList, error)

	// ListRunInfos returns one page of run metadata for an experiment.
	ListRunInfos(ctx context.Context, experimentID ExperimentID, opts ...SearchRunsOption) (*RunInfoList, error)

	// GetMetricHistory returns every logged value of key for a run.
	GetMetricHistory(ctx context.Context, runID RunID, key string) ([]Metric, error)

	LogParam(ctx context.Context, runID RunID, key, value string) error
	LogMetric(ctx context.Context, runID RunID, key string, value float64, timestamp time.Time, step int64) error

	// LogBatch fails with *BatchError, before contacting the backend, when
	// the batch exceeds a limit.
	LogBatch(ctx context.Context, runID RunID, metrics []Metric, params []Param, tags []RunTag) error

	SetTag(ctx context.Context, runID RunID, key, value string) error
}

var _ Store = (*Client)(nil)
