package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/BartekS5/lake-etl/internal/config"
	"github.com/BartekS5/lake-etl/pkg/logger"
)

// Options are the flags shared by every command.
type Options struct {
	ConfigFile      string
	MappingFile     string
	CredentialsFile string
	LogFile         string
	Workers         int
	DryRun          bool
	Debug           bool
	LoadMongo       bool
	LoadSQL         bool
}

// Execute runs the root command with args. The logger is closed on every
// path, including a failed run.
func Execute(ctx context.Context, args []string) error {
	defer logger.Close()
	rootCmd := NewRootCmd()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func NewRootCmd() *cobra.Command {
	opts := &Options{}

	rootCmd := &cobra.Command{
		Use:   "lake-etl",
		Short: "lake-etl - builds the listening data lake",
		Long: `lake-etl reads song catalog and listening event JSON, derives the songs,
artists, users, time and songplays tables and writes them as partitioned
Parquet to a local directory or an S3 bucket.

Running without a sub-command performs a full run.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), opts)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.ConfigFile, "config", "c", "", "Path to YAML job file")
	flags.StringVarP(&opts.MappingFile, "mapping", "m", "", "Path to source mapping file (default: logical field names)")
	flags.StringVar(&opts.CredentialsFile, "credentials", "dl.cfg", "Path to AWS credentials file")
	flags.StringVar(&opts.LogFile, "log-file", "", "Also write JSON logs to this file")
	flags.IntVarP(&opts.Workers, "workers", "w", 0, "Parallel readers and writers (default: config or CPU count)")
	flags.BoolVar(&opts.DryRun, "dry-run", false, "Transform and report counts without writing")
	flags.BoolVar(&opts.Debug, "debug", false, "Enable debug logging")
	flags.BoolVar(&opts.LoadMongo, "load-mongo", false, "Copy published tables into MongoDB")
	flags.BoolVar(&opts.LoadSQL, "load-sql", false, "Copy published tables into SQL Server")

	rootCmd.AddCommand(NewRunCmd(opts), NewRunsCmd(opts))

	return rootCmd
}

func NewRunCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the full job (same as no sub-command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), opts)
		},
	}
}

func NewRunsCmd(opts *Options) *cobra.Command {
	limit := 0
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listRuns(cmd.Context(), cmd.OutOrStdout(), opts, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most this many runs")
	return cmd
}

// setup starts logging and exports credentials before any command runs.
// A missing credentials file is not fatal; a malformed one is.
func (o *Options) setup() error {
	level := logger.INFO
	if o.Debug {
		level = logger.DEBUG
	}
	if err := logger.InitLogger(o.LogFile, level); err != nil {
		return err
	}

	if o.CredentialsFile == "" {
		return nil
	}
	err := config.ExportCredentials(o.CredentialsFile)
	if errors.Is(err, config.ErrNoCredentialsFile) {
		logger.Warnf("%v, using the existing environment", err)
		return nil
	}
	return err
}
