package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opendatahub-io/mlflow-tracking-go/mlflow/tracking"
)

var viewTypes = map[string]tracking.ViewType{
	"active":  tracking.ViewTypeActiveOnly,
	"deleted": tracking.ViewTypeDeletedOnly,
	"all":     tracking.ViewTypeAll,
}

func parseViewType(s string) (tracking.ViewType, error) {
	if s == "" {
		return "", nil
	}
	v, ok := viewTypes[strings.ToLower(s)]
	if !ok {
		return "", fmt.Errorf("invalid view %q (valid: active, deleted, all)", s)
	}
	return v, nil
}

// parseTags parses tag strings in key=value format.
func parseTags(tags []string) (map[string]string, error) {
	return parseKeyValues("tag", tags)
}

func parseKeyValues(kind string, items []string) (map[string]string, error) {
	if len(items) == 0 {
		return nil, nil
	}
	m := make(map[string]string, len(items))
	for _, item := range items {
		k, v, ok := strings.Cut(item, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid %s format: %s (expected key=value)", kind, item)
		}
		m[k] = v
	}
	return m, nil
}

func newExperimentsCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "experiments",
		Aliases: []string{"experiment", "exp"},
		Short:   "Manage experiments",
	}

	cmd.AddCommand(
		newExperimentsCreateCommand(o),
		newExperimentsGetCommand(o),
		newExperimentsListCommand(o),
		newExperimentsRenameCommand(o),
		newExperimentsDeleteCommand(o),
	)

	return cmd
}

func newExperimentsCreateCommand(o *Options) *cobra.Command {
	var (
		artifactLocation string
		tags             []string
	)

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create an experiment",
		Long:  "Create an experiment and print its ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tagMap, err := parseTags(tags)
			if err != nil {
				return err
			}
			t, err := o.tracking()
			if err != nil {
				return err
			}

			var opts []tracking.CreateExperimentOption
			if artifactLocation != "" {
				opts = append(opts, tracking.WithArtifactLocation(artifactLocation))
			}
			if tagMap != nil {
				opts = append(opts, tracking.WithExperimentTags(tagMap))
			}

			id, err := t.CreateExperiment(cmd.Context(), args[0], opts...)
			if err != nil {
				return err
			}

			return o.printer.print(map[string]string{"experiment_id": id.String()}, func(w io.Writer) {
				fmt.Fprintln(w, id)
			})
		},
	}

	cmd.Flags().StringVar(&artifactLocation, "artifact-location", "", "root `URI` for the experiment's artifacts")
	cmd.Flags().StringArrayVar(&tags, "tag", nil, "experiment tag in key=value format (repeatable)")

	return cmd
}

func newExperimentsGetCommand(o *Options) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "get [ID]",
		Short: "Show an experiment",
		Long:  "Show an experiment selected by ID or, with --name, by name",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 0) == (name == "") {
				return errors.New("exactly one of an experiment ID or --name is required")
			}
			t, err := o.tracking()
			if err != nil {
				return err
			}

			var exp *tracking.Experiment
			if name != "" {
				exp, err = t.GetExperimentByName(cmd.Context(), name)
			} else {
				exp, err = t.GetExperiment(cmd.Context(), tracking.ExperimentID(args[0]))
			}
			if err != nil {
				return err
			}

			return o.printer.print(newExperimentView(exp), func(w io.Writer) {
				fmt.Fprintf(w, "ID:\t%s\n", exp.ID)
				fmt.Fprintf(w, "Name:\t%s\n", exp.Name)
				fmt.Fprintf(w, "Artifact location:\t%s\n", exp.ArtifactLocation)
				fmt.Fprintf(w, "Lifecycle stage:\t%s\n", exp.LifecycleStage)
				fmt.Fprintf(w, "Created:\t%s\n", formatTime(exp.CreationTime))
				for _, k := range sortedKeys(exp.Tags) {
					fmt.Fprintf(w, "Tag %s:\t%s\n", k, exp.Tags[k])
				}
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "look the experiment up by `name`")

	return cmd
}

func newExperimentsListCommand(o *Options) *cobra.Command {
	var view string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List experiments",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			viewType, err := parseViewType(view)
			if err != nil {
				return err
			}
			t, err := o.tracking()
			if err != nil {
				return err
			}

			exps, err := t.ListExperiments(cmd.Context(), viewType)
			if err != nil {
				return err
			}

			views := make([]experimentView, 0, len(exps))
			for i := range exps {
				views = append(views, newExperimentView(&exps[i]))
			}

			return o.printer.print(views, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tNAME\tSTAGE\tARTIFACT LOCATION")
				for _, exp := range exps {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", exp.ID, exp.Name, exp.LifecycleStage, exp.ArtifactLocation)
				}
			})
		},
	}

	cmd.Flags().StringVar(&view, "view", "", "lifecycle stages to list: active, deleted or all")

	return cmd
}

func newExperimentsRenameCommand(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "rename ID NEW_NAME",
		Short: "Rename an experiment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := o.tracking()
			if err != nil {
				return err
			}
			if err := t.UpdateExperiment(cmd.Context(), tracking.ExperimentID(args[0]), args[1]); err != nil {
				return err
			}
			o.logger.Info("experiment renamed", "experimentID", args[0], "name", args[1])
			return nil
		},
	}
}

func newExperimentsDeleteCommand(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Mark an experiment deleted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := o.tracking()
			if err != nil {
				return err
			}
			return t.DeleteExperiment(cmd.Context(), tracking.ExperimentID(args[0]))
		},
	}
}
