package tracking

// Server-side limits on a single log-batch request.
const (
	MaxBatchMetrics = 1000
	MaxBatchParams  = 100
	MaxBatchTags    = 100
	MaxBatchItems   = 1000
)

// ValidateBatch checks a batch against the log-batch limits. Metrics,
// params and tags are checked in that order, then the combined total; the
// first violation is returned.
func ValidateBatch(metrics []Metric, params []Param, tags []RunTag) error {
	if n := len(metrics); n > MaxBatchMetrics {
		return &BatchError{Limit: TooManyMetrics, Count: n}
	}
	if n := len(params); n > MaxBatchParams {
		return &BatchError{Limit: TooManyParams, Count: n}
	}
	if n := len(tags); n > MaxBatchTags {
		return &BatchError{Limit: TooManyTags, Count: n}
	}
	if n := len(metrics) + len(params) + len(tags); n > MaxBatchItems {
		return &BatchError{Limit: TooManyItems, Count: n}
	}
	return nil
}
