package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/opendatahub-io/mlflow-tracking-go/mlflow/tracking"
)

var endStatuses = map[string]tracking.RunStatus{
	"FINISHED": tracking.RunStatusFinished,
	"FAILED":   tracking.RunStatusFailed,
	"KILLED":   tracking.RunStatusKilled,
}

func newRunsCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "runs",
		Aliases: []string{"run"},
		Short:   "Manage runs",
	}

	cmd.AddCommand(
		newRunsCreateCommand(o),
		newRunsGetCommand(o),
		newRunsDeleteCommand(o),
		newRunsEndCommand(o),
		newRunsSearchCommand(o),
	)

	return cmd
}

func newRunsCreateCommand(o *Options) *cobra.Command {
	var (
		experimentID string
		name         string
		user         string
		tags         []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Start a run",
		Long:  "Start a run in an experiment and print its ID",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tagMap, err := parseTags(tags)
			if err != nil {
				return err
			}
			t, err := o.tracking()
			if err != nil {
				return err
			}

			var runTags []tracking.RunTag
			for _, k := range sortedKeys(tagMap) {
				runTags = append(runTags, tracking.RunTag{Key: k, Value: tagMap[k]})
			}
			var opts []tracking.CreateRunOption
			if name != "" {
				opts = append(opts, tracking.WithRunName(name))
			}
			if user != "" {
				opts = append(opts, tracking.WithUserID(user))
			}

			run, err := t.CreateRun(cmd.Context(), tracking.ExperimentID(experimentID), time.Now(), runTags, opts...)
			if err != nil {
				return err
			}

			return o.printer.print(newRunView(run), func(w io.Writer) {
				fmt.Fprintln(w, run.Info.RunID)
			})
		},
	}

	cmd.Flags().StringVar(&experimentID, "experiment-id", "", "`ID` of the experiment to start the run in")
	cmd.Flags().StringVar(&name, "name", "", "run name")
	cmd.Flags().StringVar(&user, "user", "", "user ID recorded on the run")
	cmd.Flags().StringArrayVar(&tags, "tag", nil, "run tag in key=value format (repeatable)")
	_ = cmd.MarkFlagRequired("experiment-id")

	return cmd
}

func newRunsGetCommand(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "get RUN_ID",
		Short: "Show a run with its latest metrics, params and tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := o.tracking()
			if err != nil {
				return err
			}

			run, err := t.GetRun(cmd.Context(), tracking.RunID(args[0]))
			if err != nil {
				return err
			}

			return o.printer.print(newRunView(run), func(w io.Writer) {
				printRunText(w, run)
			})
		},
	}
}

func printRunText(w io.Writer, run *tracking.Run) {
	info := run.Info
	fmt.Fprintf(w, "Run ID:\t%s\n", info.RunID)
	fmt.Fprintf(w, "Experiment ID:\t%s\n", info.ExperimentID)
	fmt.Fprintf(w, "Name:\t%s\n", info.RunName)
	fmt.Fprintf(w, "Status:\t%s\n", info.Status)
	fmt.Fprintf(w, "Started:\t%s\n", formatTime(info.StartTime))
	fmt.Fprintf(w, "Ended:\t%s\n", formatTime(info.EndTime))
	fmt.Fprintf(w, "Artifact URI:\t%s\n", info.ArtifactURI)
	for _, p := range run.Data.Params {
		fmt.Fprintf(w, "Param %s:\t%s\n", p.Key, p.Value)
	}
	for _, m := range run.Data.Metrics {
		fmt.Fprintf(w, "Metric %s:\t%g (step %d)\n", m.Key, m.Value, m.Step)
	}
	for _, tag := range run.Data.Tags {
		fmt.Fprintf(w, "Tag %s:\t%s\n", tag.Key, tag.Value)
	}
}

func newRunsDeleteCommand(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete RUN_ID",
		Short: "Mark a run deleted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := o.tracking()
			if err != nil {
				return err
			}
			return t.DeleteRun(cmd.Context(), tracking.RunID(args[0]))
		},
	}
}

func newRunsEndCommand(o *Options) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "end RUN_ID",
		Short: "End a run",
		Long:  "Set the final status of a run and stamp its end time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runStatus, ok := endStatuses[strings.ToUpper(status)]
			if !ok {
				return fmt.Errorf("invalid status: %s (valid: FINISHED, FAILED, KILLED)", status)
			}
			t, err := o.tracking()
			if err != nil {
				return err
			}

			info, err := t.UpdateRun(cmd.Context(), tracking.RunID(args[0]), runStatus, time.Now())
			if err != nil {
				return err
			}

			return o.printer.print(newRunInfoView(info), func(w io.Writer) {
				fmt.Fprintf(w, "%s\t%s\n", info.RunID, info.Status)
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", string(tracking.RunStatusFinished), "end status: FINISHED, FAILED or KILLED")

	return cmd
}

type runListView struct {
	Runs          []runView `json:"runs" yaml:"runs"`
	NextPageToken string    `json:"next_page_token,omitempty" yaml:"next_page_token,omitempty"`
}

func newRunsSearchCommand(o *Options) *cobra.Command {
	var (
		experimentIDs []string
		filter        string
		view          string
		maxResults    int
		orderBy       []string
		pageToken     string
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search runs",
		Long:  "Print one page of the runs in the given experiments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			viewType, err := parseViewType(view)
			if err != nil {
				return err
			}
			t, err := o.tracking()
			if err != nil {
				return err
			}

			ids := make([]tracking.ExperimentID, 0, len(experimentIDs))
			for _, id := range experimentIDs {
				ids = append(ids, tracking.ExperimentID(id))
			}
			opts := []tracking.SearchRunsOption{
				tracking.WithRunsFilter(filter),
				tracking.WithRunsPageToken(tracking.PageToken(pageToken)),
				tracking.WithRunsOrderBy(orderBy...),
			}
			if viewType != "" {
				opts = append(opts, tracking.WithRunsViewType(viewType))
			}
			if maxResults > 0 {
				opts = append(opts, tracking.WithRunsMaxResults(maxResults))
			}

			list, err := t.SearchRuns(cmd.Context(), ids, opts...)
			if err != nil {
				return err
			}

			out := runListView{Runs: make([]runView, 0, len(list.Runs)), NextPageToken: list.NextPageToken.String()}
			for i := range list.Runs {
				out.Runs = append(out.Runs, newRunView(&list.Runs[i]))
			}

			return o.printer.print(out, func(w io.Writer) {
				fmt.Fprintln(w, "RUN ID\tNAME\tSTATUS\tSTARTED")
				for _, r := range list.Runs {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Info.RunID, r.Info.RunName, r.Info.Status, formatTime(r.Info.StartTime))
				}
				if list.NextPageToken != "" {
					fmt.Fprintf(w, "\nNext page token:\t%s\n", list.NextPageToken)
				}
			})
		},
	}

	cmd.Flags().StringSliceVar(&experimentIDs, "experiment-id", nil, "experiment `ID` to search (repeatable)")
	cmd.Flags().StringVar(&filter, "filter", "", "search filter expression")
	cmd.Flags().StringVar(&view, "view", "", "lifecycle stages to include: active, deleted or all")
	cmd.Flags().IntVar(&maxResults, "max-results", 0, "maximum number of runs to return")
	cmd.Flags().StringArrayVar(&orderBy, "order-by", nil, "ordering clause, e.g. \"start_time DESC\" (repeatable)")
	cmd.Flags().StringVar(&pageToken, "page-token", "", "token from a previous search")
	_ = cmd.MarkFlagRequired("experiment-id")

	return cmd
}
