package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/opendatahub-io/mlflow-tracking-go/mlflow/tracking"
)

func newLogCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Log values to a run",
	}

	cmd.AddCommand(
		newLogParamCommand(o),
		newLogMetricCommand(o),
	)

	return cmd
}

func newLogParamCommand(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "param RUN_ID KEY VALUE",
		Short: "Log a parameter",
		Long:  "Log a parameter. A parameter cannot be changed once logged.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := o.tracking()
			if err != nil {
				return err
			}
			return t.LogParam(cmd.Context(), tracking.RunID(args[0]), args[1], args[2])
		},
	}
}

func newLogMetricCommand(o *Options) *cobra.Command {
	var (
		step      int64
		timestamp int64
	)

	cmd := &cobra.Command{
		Use:   "metric RUN_ID KEY VALUE",
		Short: "Log a metric value",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("invalid metric value %q: %w", args[2], err)
			}
			t, err := o.tracking()
			if err != nil {
				return err
			}

			var ts time.Time
			if timestamp > 0 {
				ts = time.UnixMilli(timestamp)
			}
			return t.LogMetric(cmd.Context(), tracking.RunID(args[0]), args[1], value, ts, step)
		},
	}

	cmd.Flags().Int64Var(&step, "step", 0, "training step of the value")
	cmd.Flags().Int64Var(&timestamp, "timestamp", 0, "Unix time in `milliseconds` (default now)")

	return cmd
}

func newMetricsCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "metrics",
		Aliases: []string{"metric"},
		Short:   "Inspect run metrics",
	}

	cmd.AddCommand(newMetricsHistoryCommand(o))

	return cmd
}

func newMetricsHistoryCommand(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "history RUN_ID KEY",
		Short: "Show every logged value of a metric",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := o.tracking()
			if err != nil {
				return err
			}

			history, err := t.GetMetricHistory(cmd.Context(), tracking.RunID(args[0]), args[1])
			if err != nil {
				return err
			}

			views := newMetricViews(history)
			if views == nil {
				views = []metricView{}
			}

			return o.printer.print(views, func(w io.Writer) {
				fmt.Fprintln(w, "STEP\tVALUE\tTIMESTAMP")
				for _, m := range history {
					fmt.Fprintf(w, "%d\t%g\t%s\n", m.Step, m.Value, formatTime(m.Timestamp))
				}
			})
		},
	}
}
