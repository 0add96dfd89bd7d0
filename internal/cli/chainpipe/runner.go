package chainpipe

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/chainpipe/chainpipe/internal/config"
	"github.com/chainpipe/chainpipe/internal/dataset"
	"github.com/chainpipe/chainpipe/internal/observability"
	"github.com/chainpipe/chainpipe/internal/pipeline"
)

type Options struct {
	Config   config.Config
	Logger   *slog.Logger
	Datasets func() ([]dataset.Descriptor, error)
	Build    BuildFunc
	Clock    func() time.Time
	Stdout   io.Writer
	Stderr   io.Writer
}

func Run(ctx context.Context, args []string, opts Options) int {
	opts = withDefaults(opts)

	fs := flag.NewFlagSet("chainpipe", flag.ContinueOnError)
	fs.SetOutput(opts.Stderr)
	fs.Usage = func() { writeUsage(opts.Stderr) }
	if err := fs.Parse(args); err != nil {
		return 2
	}

	command := "run"
	var rest []string
	if fs.NArg() > 0 {
		command = strings.TrimSpace(fs.Arg(0))
		rest = fs.Args()[1:]
	}

	switch command {
	case "run":
		return runPipeline(ctx, rest, opts)
	case "datasets":
		return listDatasets(opts)
	case "export":
		return exportDataset(ctx, rest, opts)
	default:
		_, _ = fmt.Fprintf(opts.Stderr, "unknown command %q\n\n", command)
		writeUsage(opts.Stderr)
		return 2
	}
}

func runPipeline(ctx context.Context, args []string, opts Options) int {
	fs := flag.NewFlagSet("chainpipe run", flag.ContinueOnError)
	fs.SetOutput(opts.Stderr)
	dryRun := fs.Bool("dry-run", false, "Run the queries and render CSVs without calling Dune")
	names := fs.String("datasets", "", "Comma-separated dataset names (default: all)")
	reportPath := fs.String("report", "", "Write the run report as JSON to this file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	selected, err := selectDatasets(opts, splitNames(*names))
	if err != nil {
		return fail(ctx, opts, "select datasets", err)
	}

	started := opts.Clock()
	_, _ = fmt.Fprintf(opts.Stdout, "Connecting to %s warehouse...\n", opts.Config.Warehouse.Driver)
	deps, err := opts.Build(ctx, opts.Config, opts.Logger, !*dryRun)
	if err != nil {
		return fail(ctx, opts, "build dependencies", err)
	}
	defer closeDependencies(ctx, opts.Logger, deps)
	_, _ = fmt.Fprintln(opts.Stdout, "Warehouse connection established!")

	service := &pipeline.Service{
		Engine:    deps.Engine,
		Publisher: deps.Publisher,
		Archiver:  deps.Archiver,
		Datasets:  selected,
		Private:   opts.Config.Dune.Private,
		DryRun:    *dryRun,
		Stdout:    opts.Stdout,
		Logger:    opts.Logger,
		Clock:     opts.Clock,
		Started:   started,
	}
	report, runErr := service.Run(ctx)
	writeMetrics(ctx, opts)
	if *reportPath != "" {
		if err := writeReport(*reportPath, report); err != nil {
			opts.Logger.WarnContext(ctx, "write run report failed", "path", *reportPath, "error", err)
		}
	}
	if runErr != nil {
		return fail(ctx, opts, "run pipeline", runErr)
	}
	return 0
}

func listDatasets(opts Options) int {
	all, err := opts.Datasets()
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "load datasets: %v\n", err)
		return 1
	}
	tw := tabwriter.NewWriter(opts.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tTITLE\tTABLE")
	for _, descriptor := range all {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", descriptor.Name, descriptor.Title, descriptor.TableName)
	}
	if err := tw.Flush(); err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "write datasets: %v\n", err)
		return 1
	}
	return 0
}

func exportDataset(ctx context.Context, args []string, opts Options) int {
	fs := flag.NewFlagSet("chainpipe export", flag.ContinueOnError)
	fs.SetOutput(opts.Stderr)
	name := fs.String("dataset", "", "Dataset name to export")
	outPath := fs.String("out", "", "Output file (default: stdout)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if strings.TrimSpace(*name) == "" {
		_, _ = fmt.Fprintln(opts.Stderr, "-dataset is required")
		return 2
	}

	all, err := opts.Datasets()
	if err != nil {
		return fail(ctx, opts, "load datasets", err)
	}
	descriptor, ok := dataset.Find(all, strings.TrimSpace(*name))
	if !ok {
		return fail(ctx, opts, "select dataset", fmt.Errorf("unknown dataset %q", *name))
	}

	deps, err := opts.Build(ctx, opts.Config, opts.Logger, false)
	if err != nil {
		return fail(ctx, opts, "build dependencies", err)
	}
	defer closeDependencies(ctx, opts.Logger, deps)

	out := opts.Stdout
	if *outPath != "" {
		file, err := os.Create(*outPath)
		if err != nil {
			return fail(ctx, opts, "create output file", err)
		}
		defer func() { _ = file.Close() }()
		out = file
	}

	result, err := pipeline.Export(ctx, deps.Engine, descriptor, out)
	if err != nil {
		return fail(ctx, opts, "export dataset", err)
	}
	opts.Logger.InfoContext(ctx, "dataset exported", "dataset", descriptor.Name, "rows", len(result.Rows), "out", *outPath)
	return 0
}

func selectDatasets(opts Options, names []string) ([]dataset.Descriptor, error) {
	all, err := opts.Datasets()
	if err != nil {
		return nil, err
	}
	return dataset.Select(all, names)
}

func closeDependencies(ctx context.Context, logger *slog.Logger, deps Dependencies) {
	if deps.Close == nil {
		return
	}
	if err := deps.Close(); err != nil {
		logger.WarnContext(ctx, "close warehouse failed", "error", err)
	}
}

func writeMetrics(ctx context.Context, opts Options) {
	path := opts.Config.Metrics.TextfilePath
	if path == "" {
		return
	}
	if err := observability.WriteTextfile(path); err != nil {
		opts.Logger.WarnContext(ctx, "write metrics textfile failed", "path", path, "error", err)
	}
}

func writeReport(path string, report pipeline.Report) error {
	raw, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return os.WriteFile(path, append(raw, '\n'), 0o644)
}

func fail(ctx context.Context, opts Options, stage string, err error) int {
	opts.Logger.ErrorContext(ctx, stage+" failed", "error", err)
	_, _ = fmt.Fprintf(opts.Stderr, "%s: %v\n", stage, err)
	return 1
}

func splitNames(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return names
}

func withDefaults(opts Options) Options {
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.Stderr == nil {
		opts.Stderr = io.Discard
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Datasets == nil {
		opts.Datasets = dataset.All
	}
	if opts.Build == nil {
		opts.Build = BuildDependencies
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return opts
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: chainpipe <command> [flags]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  run        query every dataset, then replace each table on Dune (default)")
	_, _ = fmt.Fprintln(w, "             flags: -dry-run -datasets a,b -report FILE")
	_, _ = fmt.Fprintln(w, "  datasets   list datasets and their destination tables")
	_, _ = fmt.Fprintln(w, "  export     write one dataset as CSV: -dataset NAME [-out FILE]")
}
