package tracking

// ExperimentID identifies an experiment on the tracking server.
type ExperimentID string

func (id ExperimentID) String() string { return string(id) }

// RunID identifies a run on the tracking server.
type RunID string

func (id RunID) String() string { return string(id) }

// PageToken is an opaque cursor returned by paginated searches.
// The empty token means there are no further pages.
type PageToken string

func (t PageToken) String() string { return string(t) }

// RunNameTag is the system tag MLflow uses to mirror a run's name.
const RunNameTag = "mlflow.runName"
