// ABOUTME: Root command for mlflowctl: global flags, config loading and logging.
// ABOUTME: Subcommands share an Options value that lazily builds the SDK client.

// Package cli implements the mlflowctl command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/opendatahub-io/mlflow-tracking-go/mlflow"
	"github.com/opendatahub-io/mlflow-tracking-go/mlflow/tracking"
)

// IOStreams are the process streams a command reads from and writes to.
type IOStreams struct {
	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer
}

// StandardStreams returns the os.Stdin, os.Stdout and os.Stderr streams.
func StandardStreams() IOStreams {
	return IOStreams{In: os.Stdin, Out: os.Stdout, ErrOut: os.Stderr}
}

// Options is the state shared by every mlflowctl command.
type Options struct {
	IOStreams

	config  *viper.Viper
	logger  logr.Logger
	printer printer
	client  *mlflow.Client
}

// flag name -> configuration key
var globalFlags = map[string]string{
	"tracking-uri": "tracking_uri",
	"token":        "token",
	"header":       "headers",
	"insecure":     "insecure",
	"timeout":      "timeout",
	"verbose":      "verbose",
	"config":       "config",
	"output":       "output",
}

// NewRootCommand creates the mlflowctl command tree.
func NewRootCommand(streams IOStreams) *cobra.Command {
	o := &Options{IOStreams: streams, config: viper.New(), logger: logr.Discard()}

	cmd := &cobra.Command{
		Use:   "mlflowctl",
		Short: "MLflow tracking command line client",
		Long: `A command line client for an MLflow tracking server.

The server is taken from --tracking-uri, the MLFLOW_TRACKING_URI environment
variable or the tracking_uri key of the --config file, in that order.`,

		SilenceUsage:      true,
		PersistentPreRunE: func(*cobra.Command, []string) error { return o.complete() },
	}
	cmd.SetIn(streams.In)
	cmd.SetOut(streams.Out)
	cmd.SetErr(streams.ErrOut)

	flags := cmd.PersistentFlags()
	flags.String("tracking-uri", "", "MLflow tracking server URL (overrides MLFLOW_TRACKING_URI)")
	flags.String("token", "", "bearer token sent with every request (overrides MLFLOW_TRACKING_TOKEN)")
	flags.StringArray("header", nil, "extra request header in key=value format (repeatable)")
	flags.Bool("insecure", false, "allow plain HTTP tracking URIs")
	flags.Duration("timeout", 30*time.Second, "per-request timeout")
	flags.BoolP("verbose", "v", false, "log every request to stderr")
	flags.String("config", "", "YAML `file` with default values for the global flags")
	flags.StringP("output", "o", string(formatText), "output format: text, json or yaml")

	for name, key := range globalFlags {
		_ = o.config.BindPFlag(key, flags.Lookup(name))
	}
	_ = o.config.BindEnv("token", "MLFLOW_TRACKING_TOKEN")
	_ = o.config.BindEnv("insecure", "MLFLOW_INSECURE_SKIP_TLS_VERIFY")
	o.config.SetEnvPrefix("MLFLOW")
	o.config.AutomaticEnv()

	cmd.AddCommand(
		newExperimentsCommand(o),
		newRunsCommand(o),
		newLogCommand(o),
		newMetricsCommand(o),
		newSubmitCommand(o),
	)

	return cmd
}

// complete reads the config file and prepares the printer and logger.
func (o *Options) complete() error {
	if path := o.config.GetString("config"); path != "" {
		o.config.SetConfigFile(path)
		if err := o.config.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	p, err := newPrinter(o.config.GetString("output"), o.Out)
	if err != nil {
		return err
	}
	o.printer = p
	o.logger = newLogger(o.config.GetBool("verbose"), o.ErrOut)

	return nil
}

// tracking returns the tracking client, creating the SDK client on first use.
func (o *Options) tracking() (*tracking.Client, error) {
	if o.client != nil {
		return o.client.Tracking(), nil
	}

	opts := []mlflow.Option{
		mlflow.WithLogger(o.slogHandler()),
		mlflow.WithTimeout(o.config.GetDuration("timeout")),
	}
	if uri := o.config.GetString("tracking_uri"); uri != "" {
		opts = append(opts, mlflow.WithTrackingURI(uri))
	}
	if token := o.config.GetString("token"); token != "" {
		opts = append(opts, mlflow.WithToken(token))
	}
	if o.config.GetBool("insecure") {
		opts = append(opts, mlflow.WithInsecure())
	}
	headers, err := parseKeyValues("header", o.config.GetStringSlice("headers"))
	if err != nil {
		return nil, err
	}
	if len(headers) > 0 {
		opts = append(opts, mlflow.WithHeaders(headers))
	}

	client, err := mlflow.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create MLflow client: %w", err)
	}
	o.client = client
	o.logger.V(1).Info("client ready", "trackingURI", client.TrackingURI())

	return client.Tracking(), nil
}

func (o *Options) slogHandler() slog.Handler {
	return logr.ToSlogHandler(o.logger)
}

// newLogger returns a console logger writing to w. Only warnings and errors
// are shown unless verbose is set.
func newLogger(verbose bool, w io.Writer) logr.Logger {
	level := zapcore.WarnLevel
	if verbose {
		// slog debug records reach zapr as V(4), which zap sees as level -4
		level = zapcore.Level(-4)
	}

	encoder := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:     "ts",
		MessageKey:  "msg",
		LevelKey:    "level",
		EncodeTime:  zapcore.ISO8601TimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	})

	return zapr.NewLogger(zap.New(zapcore.NewCore(encoder, zapcore.AddSync(w), level)))
}
