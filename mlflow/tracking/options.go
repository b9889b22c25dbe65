package tracking

// createExperimentOptions holds configuration for a CreateExperiment call.
type createExperimentOptions struct {
	artifactLocation string
	tags             map[string]string
}

// CreateExperimentOption configures a CreateExperiment call.
type CreateExperimentOption func(*createExperimentOptions)

// WithArtifactLocation sets the artifact storage location for the experiment.
// If not set, the server picks its default root.
func WithArtifactLocation(loc string) CreateExperimentOption {
	return func(o *createExperimentOptions) {
		o.artifactLocation = loc
	}
}

// WithExperimentTags sets tags on the experiment. Repeated calls merge.
func WithExperimentTags(tags map[string]string) CreateExperimentOption {
	return func(o *createExperimentOptions) {
		if len(tags) == 0 {
			return
		}
		if o.tags == nil {
			o.tags = make(map[string]string, len(tags))
		}
		for k, v := range tags {
			o.tags[k] = v
		}
	}
}

// createRunOptions holds configuration for a CreateRun call.
type createRunOptions struct {
	runName string
	userID  string
}

// CreateRunOption configures a CreateRun call.
type CreateRunOption func(*createRunOptions)

// WithRunName sets the name for the run.
func WithRunName(name string) CreateRunOption {
	return func(o *createRunOptions) {
		o.runName = name
	}
}

// WithUserID records the user that owns the run.
func WithUserID(user string) CreateRunOption {
	return func(o *createRunOptions) {
		o.userID = user
	}
}

// updateRunOptions holds configuration for an UpdateRun call.
type updateRunOptions struct {
	runName string
}

// UpdateRunOption configures an UpdateRun call.
type UpdateRunOption func(*updateRunOptions)

// WithRunNameUpdate renames the run as part of the update.
func WithRunNameUpdate(name string) UpdateRunOption {
	return func(o *updateRunOptions) {
		o.runName = name
	}
}

// searchExperimentsOptions holds configuration for a SearchExperiments call.
type searchExperimentsOptions struct {
	filter     string
	maxResults int
	pageToken  PageToken
	orderBy    []string
	viewType   ViewType
}

// SearchExperimentsOption configures a SearchExperiments call.
type SearchExperimentsOption func(*searchExperimentsOptions)

// WithExperimentsFilter sets the filter expression (e.g. "name LIKE 'churn%'").
func WithExperimentsFilter(filter string) SearchExperimentsOption {
	return func(o *searchExperimentsOptions) {
		o.filter = filter
	}
}

// WithExperimentsMaxResults sets the page size. Default: 1000.
func WithExperimentsMaxResults(n int) SearchExperimentsOption {
	return func(o *searchExperimentsOptions) {
		o.maxResults = n
	}
}

// WithExperimentsPageToken continues a previous search.
func WithExperimentsPageToken(token PageToken) SearchExperimentsOption {
	return func(o *searchExperimentsOptions) {
		o.pageToken = token
	}
}

// WithExperimentsOrderBy sets the sort order, e.g. "name ASC".
func WithExperimentsOrderBy(fields ...string) SearchExperimentsOption {
	return func(o *searchExperimentsOptions) {
		o.orderBy = fields
	}
}

// WithExperimentsViewType sets the view type filter for experiments.
func WithExperimentsViewType(viewType ViewType) SearchExperimentsOption {
	return func(o *searchExperimentsOptions) {
		o.viewType = viewType
	}
}

// searchRunsOptions holds configuration for SearchRuns and ListRunInfos.
type searchRunsOptions struct {
	filter     string
	maxResults int
	pageToken  PageToken
	orderBy    []string
	viewType   ViewType
}

// SearchRunsOption configures a SearchRuns or ListRunInfos call.
type SearchRunsOption func(*searchRunsOptions)

// WithRunsFilter sets the filter expression (e.g. "metrics.rmse < 1").
// ListRunInfos ignores it.
func WithRunsFilter(filter string) SearchRunsOption {
	return func(o *searchRunsOptions) {
		o.filter = filter
	}
}

// WithRunsMaxResults sets the page size. Default: 1000.
func WithRunsMaxResults(n int) SearchRunsOption {
	return func(o *searchRunsOptions) {
		o.maxResults = n
	}
}

// WithRunsPageToken continues a previous search.
func WithRunsPageToken(token PageToken) SearchRunsOption {
	return func(o *searchRunsOptions) {
		o.pageToken = token
	}
}

// WithRunsOrderBy sets the sort order, e.g. "metrics.rmse ASC".
func WithRunsOrderBy(fields ...string) SearchRunsOption {
	return func(o *searchRunsOptions) {
		o.orderBy = fields
	}
}

// WithRunsViewType sets the view type filter for runs.
// Default: ViewTypeActiveOnly.
func WithRunsViewType(viewType ViewType) SearchRunsOption {
	return func(o *searchRunsOptions) {
		o.viewType = viewType
	}
}

// CreateExperimentConfig is the resolved form of CreateExperimentOptions,
// for Store implementations outside this package.
type CreateExperimentConfig struct {
	ArtifactLocation string
	Tags             map[string]string
}

// ResolveCreateExperimentOptions applies opts to an empty configuration.
func ResolveCreateExperimentOptions(opts ...CreateExperimentOption) CreateExperimentConfig {
	o := &createExperimentOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return CreateExperimentConfig{ArtifactLocation: o.artifactLocation, Tags: o.tags}
}

// CreateRunConfig is the resolved form of CreateRunOptions.
type CreateRunConfig struct {
	RunName string
	UserID  string
}

// ResolveCreateRunOptions applies opts to an empty configuration.
func ResolveCreateRunOptions(opts ...CreateRunOption) CreateRunConfig {
	o := &createRunOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return CreateRunConfig{RunName: o.runName, UserID: o.userID}
}

// UpdateRunConfig is the resolved form of UpdateRunOptions.
type UpdateRunConfig struct {
	RunName string
}

// ResolveUpdateRunOptions applies opts to an empty configuration.
func ResolveUpdateRunOptions(opts ...UpdateRunOption) UpdateRunConfig {
	o := &updateRunOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return UpdateRunConfig{RunName: o.runName}
}

// SearchRunsConfig is the resolved form of SearchRunsOptions, with the
// client defaults applied.
type SearchRunsConfig struct {
	Filter     string
	MaxResults int
	PageToken  PageToken
	OrderBy    []string
	ViewType   ViewType
}

// ResolveSearchRunsOptions applies opts on top of the defaults: 1000
// results per page, active runs only.
func ResolveSearchRunsOptions(opts ...SearchRunsOption) SearchRunsConfig {
	o := &searchRunsOptions{
		maxResults: defaultSearchMaxResults,
		viewType:   ViewTypeActiveOnly,
	}
	for _, opt := range opts {
		opt(o)
	}
	return SearchRunsConfig{
		Filter:     o.filter,
		MaxResults: o.maxResults,
		PageToken:  o.pageToken,
		OrderBy:    o.orderBy,
		ViewType:   o.viewType,
	}
}

// SearchExperimentsConfig is the resolved form of SearchExperimentsOptions.
// ViewType stays empty unless set.
type SearchExperimentsConfig struct {
	Filter     string
	MaxResults int
	PageToken  PageToken
	OrderBy    []string
	ViewType   ViewType
}

// ResolveSearchExperimentsOptions applies opts on top of a 1000 result page.
func ResolveSearchExperimentsOptions(opts ...SearchExperimentsOption) SearchExperimentsConfig {
	o := &searchExperimentsOptions{maxResults: defaultSearchMaxResults}
	for _, opt := range opts {
		opt(o)
	}
	return SearchExperimentsConfig{
		Filter:     o.filter,
		MaxResults: o.maxResults,
		PageToken:  o.pageToken,
		OrderBy:    o.orderBy,
		ViewType:   o.viewType,
	}
}
