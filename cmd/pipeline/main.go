package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"movie-dq-pipeline/internal/api"
	"movie-dq-pipeline/internal/beamjob"
	"movie-dq-pipeline/internal/config"
	"movie-dq-pipeline/internal/jobs"
	"movie-dq-pipeline/internal/logging"
	"movie-dq-pipeline/internal/model"
	"movie-dq-pipeline/internal/pipeline"
	"movie-dq-pipeline/internal/store"
	"movie-dq-pipeline/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfg *config.Config

	root := &cobra.Command{
		Use:          "pipeline",
		Short:        "Movie data-quality pipeline",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if it exists (Overload overwrites existing env vars)
			_ = godotenv.Overload()

			c, err := config.Load()
			if err != nil {
				slog.Error("failed to load configuration", "error", err)
				return err
			}
			logging.Setup(c.Logging.Level, c.Logging.Format)
			cfg = c
			return nil
		},
	}

	root.AddCommand(
		newServeCmd(&cfg),
		newRunCmd(&cfg),
		newBeamCmd(),
	)
	return root
}

func newServeCmd(cfg **config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP job API",
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Info("configuration loaded", "config", (*cfg).String())
			if err := api.Serve(cmd.Context(), *cfg); err != nil {
				slog.Error("server stopped", "error", err)
				return err
			}
			return nil
		},
	}
}

type runFlags struct {
	inputs                 []string
	jobFile                string
	db                     string
	table                  string
	rejects                string
	appendRows             bool
	routeTransformFailures bool
	logging                bool
}

func newRunCmd(cfg **config.Config) *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one job to completion and print its quality summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := f.jobSpec()
			if err != nil {
				return err
			}
			return runJob(cmd.Context(), *cfg, spec, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVarP(&f.inputs, "input", "i", nil, "input CSV: local path, http(s):// URL or gs:// object (repeatable)")
	flags.StringVarP(&f.jobFile, "job", "j", "", "job definition file (.yaml or .json)")
	flags.StringVar(&f.db, "db", "", "valid table location: sqlite path or postgres:// URL (default: job store)")
	flags.StringVar(&f.table, "table", "", "valid table name (default: "+model.DefaultTable+")")
	flags.StringVar(&f.rejects, "rejects", "", "rejected records path, local or gs:// (default: <output-dir>/<job-id>/bad_data/errors.json)")
	flags.BoolVar(&f.appendRows, "append", false, "append to the valid table instead of truncating it")
	flags.BoolVar(&f.routeTransformFailures, "route-transform-failures", false, "write records that fail type coercion to the rejects file")
	flags.BoolVar(&f.logging, "verbose", false, "log worker progress")
	return cmd
}

// jobSpec merges the job file with flag overrides
func (f runFlags) jobSpec() (model.PipelineJobSpec, error) {
	var spec model.PipelineJobSpec
	if f.jobFile != "" {
		s, err := config.LoadJobFile(f.jobFile)
		if err != nil {
			return spec, err
		}
		spec = s
	}
	if len(f.inputs) > 0 {
		spec.Sources = nil
		for _, in := range f.inputs {
			spec.Sources = append(spec.Sources, model.Source{URL: in})
		}
	}
	if len(spec.Sources) == 0 {
		return spec, errors.New("no input: pass --input or a --job file with sources")
	}

	if spec.Export == nil {
		spec.Export = &model.Export{}
	}
	if f.db != "" {
		spec.Export.DB = f.db
	}
	if f.table != "" {
		spec.Export.Table = f.table
	}
	if f.rejects != "" {
		spec.Export.RejectsPath = f.rejects
	}
	if f.appendRows {
		spec.Export.WriteDisposition = model.WriteAppend
	}
	if f.routeTransformFailures {
		spec.RouteTransformFailures = true
	}
	if f.logging {
		spec.Logging = true
	}
	return spec, nil
}

func runJob(ctx context.Context, cfg *config.Config, spec model.PipelineJobSpec, out io.Writer) error {
	st, err := store.Open(cfg.Storage.SQLitePath)
	if err != nil {
		return fmt.Errorf("open job store: %w", err)
	}
	defer st.Close()

	manager := jobs.NewManager(jobs.Options{
		Store:       st,
		Outputs:     utils.NewOutputManager(cfg.Storage.OutputDir),
		Defaults:    cfg.JobDefaults(),
		PostgresURL: cfg.Storage.PostgresURL,
	})

	jobID, result, runErr := manager.RunSync(ctx, spec)
	if result != nil {
		rejects, _ := manager.RejectsPath(context.Background(), jobID)
		printSummary(out, jobID, rejects, result)
	}
	if runErr != nil {
		slog.Error("job failed", "job_id", jobID, "error", runErr)
	}
	return runErr
}

func printSummary(out io.Writer, jobID, rejectsPath string, res *pipeline.Result) {
	m, r := res.Metrics, res.Report

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "job\t%s\n", jobID)
	fmt.Fprintf(w, "status\t%s\n", res.Status)
	fmt.Fprintf(w, "duration\t%s\n", m.Duration)
	fmt.Fprintf(w, "lines read\t%d\n", m.LinesRead)
	fmt.Fprintf(w, "valid\t%d\n", m.ValidRecords)
	fmt.Fprintf(w, "rejected\t%d\n", m.RejectedRecords)
	fmt.Fprintf(w, "dropped\t%d\n", m.DroppedRecords)
	fmt.Fprintf(w, "exported\t%d\n", m.ExportedRecords)
	fmt.Fprintf(w, "mean imdb rating\t%.2f\n", r.MeanIMDBRating)
	fmt.Fprintf(w, "rejects file\t%s\n", rejectsPath)

	if len(r.ValidByYear) > 0 {
		years := make([]int64, 0, len(r.ValidByYear))
		for y := range r.ValidByYear {
			years = append(years, y)
		}
		sort.Slice(years, func(i, j int) bool { return years[i] < years[j] })
		fmt.Fprintln(w, "\nvalid by year\t")
		for _, y := range years {
			fmt.Fprintf(w, "  %d\t%d\n", y, r.ValidByYear[y])
		}
	}

	if violations := pipeline.SortViolations(r); len(violations) > 0 {
		fmt.Fprintln(w, "\nrule violations\t")
		for _, v := range violations {
			fmt.Fprintf(w, "  %s\t%d\n", v.Message, v.Count)
		}
	}
	w.Flush()
}

func newBeamCmd() *cobra.Command {
	var (
		opts   beamjob.Options
		output string
	)

	cmd := &cobra.Command{
		Use:   "beam",
		Short: "Run the quality graph as an Apache Beam pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			valid, rejects := beamjob.OutputsUnder(output)
			if opts.ValidOutput == "" {
				opts.ValidOutput = valid
			}
			if opts.RejectsOutput == "" {
				opts.RejectsOutput = rejects
			}
			slog.Info("starting beam pipeline",
				"input", opts.Input,
				"runner", opts.Runner,
				"valid", opts.ValidOutput,
				"rejects", opts.RejectsOutput,
			)
			if err := beamjob.Run(cmd.Context(), opts); err != nil {
				slog.Error("beam pipeline failed", "error", err)
				return err
			}
			slog.Info("beam pipeline finished")
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.Input, "input", "i", "", "input file glob or gs:// pattern")
	flags.StringVarP(&output, "output", "o", "outputs/beam", "directory (local or gs://) for the default outputs")
	flags.StringVar(&opts.ValidOutput, "valid-output", "", "valid records JSON lines file")
	flags.StringVar(&opts.RejectsOutput, "rejects-output", "", "rejected records JSON lines file")
	flags.StringVar(&opts.Runner, "runner", beamjob.DefaultRunner, "beam runner")
	flags.BoolVar(&opts.RouteTransformFailures, "route-transform-failures", false, "write records that fail type coercion to the rejects output")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
