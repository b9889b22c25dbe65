package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/opendatahub-io/mlflow-tracking-go/mlflow/tracking"
)

// runFile is the document accepted by submit.
//
//	name: baseline
//	params:
//	  alpha: "0.5"
//	tags:
//	  team: ml
//	metrics:
//	  - {key: rmse, value: 0.31, step: 0}
type runFile struct {
	Name    string            `json:"name" yaml:"name"`
	Params  map[string]string `json:"params" yaml:"params"`
	Tags    map[string]string `json:"tags" yaml:"tags"`
	Metrics []runFileMetric   `json:"metrics" yaml:"metrics"`
}

type runFileMetric struct {
	Key   string  `json:"key" yaml:"key"`
	Value float64 `json:"value" yaml:"value"`
	Step  int64   `json:"step" yaml:"step"`
}

// parseRunFile decodes JSON when filename ends in .json and YAML otherwise.
func parseRunFile(filename string, r io.Reader) (*runFile, error) {
	var rf runFile
	if strings.EqualFold(filepath.Ext(filename), ".json") {
		if err := json.NewDecoder(r).Decode(&rf); err != nil {
			return nil, fmt.Errorf("failed to parse JSON run file: %w", err)
		}
	} else {
		if err := yaml.NewDecoder(r).Decode(&rf); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse YAML run file: %w", err)
		}
	}

	for i, m := range rf.Metrics {
		if m.Key == "" {
			return nil, fmt.Errorf("metric %d has no key", i)
		}
	}
	return &rf, nil
}

// buffer replays the file into a new BufferedRun. An explicit name wins over
// the file's.
func (rf *runFile) buffer(name string, logger *slog.Logger) (*tracking.BufferedRun, error) {
	run := tracking.NewBufferedRun(tracking.WithRunLogger(logger))

	if name == "" {
		name = rf.Name
	}
	if name != "" {
		if err := run.LogTag(tracking.RunNameTag, name); err != nil {
			return nil, err
		}
	}
	for _, k := range sortedKeys(rf.Params) {
		if err := run.LogParam(k, rf.Params[k]); err != nil {
			return nil, err
		}
	}
	for _, k := range sortedKeys(rf.Tags) {
		if err := run.LogTag(k, rf.Tags[k]); err != nil {
			return nil, err
		}
	}
	for _, m := range rf.Metrics {
		run.LogMetric(m.Key, m.Value, m.Step)
	}

	return run, nil
}

func newSubmitCommand(o *Options) *cobra.Command {
	var (
		experimentID string
		filename     string
		name         string
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Record a complete run from a file",
		Long: `Record a complete run from a YAML or JSON file.

The run is created, its params, tags and metrics are logged in as few batch
requests as the server limits allow, and it is marked FINISHED. Use "-" as
the file name to read YAML from stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rf, err := o.readRunFile(filename)
			if err != nil {
				return err
			}
			buffered, err := rf.buffer(name, slog.New(o.slogHandler()))
			if err != nil {
				return err
			}
			t, err := o.tracking()
			if err != nil {
				return err
			}

			run, err := buffered.Submit(cmd.Context(), t, tracking.ExperimentID(experimentID))
			if err != nil {
				return err
			}

			return o.printer.print(newRunInfoView(&run.Info), func(w io.Writer) {
				fmt.Fprintln(w, run.Info.RunID)
			})
		},
	}

	cmd.Flags().StringVar(&experimentID, "experiment-id", "", "`ID` of the experiment to record the run in")
	cmd.Flags().StringVarP(&filename, "from-file", "f", "", "YAML or JSON `file` describing the run")
	cmd.Flags().StringVar(&name, "name", "", "run name (overrides the file's name)")
	_ = cmd.MarkFlagFilename("from-file", "yaml", "yml", "json")
	_ = cmd.MarkFlagRequired("experiment-id")
	_ = cmd.MarkFlagRequired("from-file")

	return cmd
}

func (o *Options) readRunFile(filename string) (*runFile, error) {
	if filename == "-" {
		return parseRunFile(filename, o.In)
	}

	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return parseRunFile(filename, f)
}
