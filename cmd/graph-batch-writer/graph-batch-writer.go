package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/diwise/graph-batch-writer/internal/pkg/application/batchwriter"
	"github.com/diwise/graph-batch-writer/internal/pkg/application/graphimport"
	"github.com/diwise/service-chassis/pkg/infrastructure/buildinfo"
	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	flag "github.com/spf13/pflag"
)

const (
	appName string = "graph-batch-writer"
)

const (
	exitOK int = iota
	exitUsage
	exitConfig
	exitFailure
)

var errUsage = errors.New("usage")

func main() {
	appVersion := buildinfo.SourceVersion()

	ctx, log, cleanup := o11y.Init(context.Background(), appName, appVersion, "json")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)

	log.Debug("starting", "version", appVersion)

	code := run(ctx, os.Args[1:], os.Stdout)

	stop()
	cleanup()

	os.Exit(code)
}

func run(ctx context.Context, args []string, out io.Writer) int {
	if len(args) == 0 {
		usage(os.Stderr)
		return exitUsage
	}

	switch args[0] {
	case "write":
		flags, err := parseWriteFlags(ctx, args[1:])
		if err != nil {
			return exitUsage
		}
		return runWrite(ctx, flags, out)
	case "verify":
		flags, err := parseVerifyFlags(args[1:])
		if err != nil {
			return exitUsage
		}
		return runVerify(ctx, flags, out)
	case "help", "-h", "--help":
		usage(out)
		return exitOK
	default:
		usage(os.Stderr)
		return exitUsage
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, `Usage: %s <command> [options]

Commands:
  write     Write a stream of json entities as header and part files
  verify    Check the part files of a type against its header

Run '%s <command> --help' for the options of a command.
`, appName, appName)
}

func parseWriteFlags(ctx context.Context, args []string) (FlagMap, error) {
	fs := flag.NewFlagSet("write", flag.ContinueOnError)

	cfg := fs.String("config", env.GetVariableOrDefault(ctx, "GRAPH_BATCH_WRITER_CONFIG", "/opt/diwise/config/graph-batch-writer.yaml"), "path to the run configuration")
	ontology := fs.String("ontology", env.GetVariableOrDefault(ctx, "GRAPH_BATCH_WRITER_ONTOLOGY", ""), "path to the class hierarchy, headers only carry the type label without it")
	input := fs.String("input", "-", "json lines file to read entities from, - reads from stdin")
	output := fs.String("output", env.GetVariableOrDefault(ctx, "GRAPH_BATCH_WRITER_OUTPUT", ""), "output directory, overrides the configuration")
	isLenient := fs.Bool("lenient", false, "skip and coerce invalid entities instead of aborting")
	metrics := fs.String("metrics-file", "", "write prometheus metrics to this file when done")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected arguments: %v\n", fs.Args())
		return nil, errUsage
	}

	return FlagMap{
		configPath:   *cfg,
		ontologyPath: *ontology,
		inputPath:    *input,
		outputDir:    *output,
		lenient:      strconv.FormatBool(*isLenient),
		metricsFile:  *metrics,
	}, nil
}

func parseVerifyFlags(args []string) (FlagMap, error) {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)

	output := fs.String("output", ".", "directory holding the header and part files")
	tn := fs.String("type", "", "type to verify")
	delim := fs.String("delimiter", string(batchwriter.DefaultDelimiter), "field delimiter")
	q := fs.String("quote", string(batchwriter.DefaultQuote), "quote character, empty when quoting was disabled")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *tn == "" {
		fmt.Fprintln(os.Stderr, "a type is required")
		return nil, errUsage
	}

	return FlagMap{
		outputDir: *output,
		typeName:  *tn,
		delimiter: *delim,
		quote:     *q,
	}, nil
}

func runWrite(ctx context.Context, flags FlagMap, out io.Writer) int {
	log := logging.GetFromContext(ctx)

	cfg, err := loadConfiguration(flags)
	if err != nil {
		log.Error("failed to load configuration", "err", err.Error())
		return exitConfig
	}

	var ontologyFile io.Reader
	if flags[ontologyPath] != "" {
		f, err := os.Open(flags[ontologyPath])
		if err != nil {
			log.Error("failed to open class hierarchy", "err", err.Error())
			return exitConfig
		}
		defer f.Close()
		ontologyFile = f
	}

	reg := prometheus.NewRegistry()

	app, err := graphimport.New(ctx, cfg, ontologyFile, reg)
	if err != nil {
		log.Error("failed to set up import", "err", err.Error())
		return exitConfig
	}

	input := io.Reader(os.Stdin)
	if flags[inputPath] != "" && flags[inputPath] != "-" {
		f, err := os.Open(flags[inputPath])
		if err != nil {
			log.Error("failed to open input", "err", err.Error())
			return exitConfig
		}
		defer f.Close()
		input = f
	}

	report, importErr := app.Import(ctx, input)
	if report != nil {
		printSummary(out, report)
	}

	if flags[metricsFile] != "" {
		if err := prometheus.WriteToTextfile(flags[metricsFile], reg); err != nil {
			log.Error("failed to write metrics", "path", flags[metricsFile], "err", err.Error())
		}
	}

	if importErr != nil {
		log.Error("import failed", "err", importErr.Error())
		return exitFailure
	}

	return exitOK
}

func loadConfiguration(flags FlagMap) (*graphimport.Config, error) {
	f, err := os.Open(flags[configPath])
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg, err := graphimport.LoadConfiguration(f)
	if err != nil {
		return nil, err
	}

	if flags[outputDir] != "" {
		cfg.Output.Directory = flags[outputDir]
	}

	if isLenient, _ := strconv.ParseBool(flags[lenient]); isLenient {
		cfg.Mode = string(batchwriter.LenientMode)
	}

	return cfg, nil
}

func printSummary(out io.Writer, report *batchwriter.Report) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "TYPE\tAS\tROWS\tPARTS\tDUPLICATES\tCOERCED\tSIZE\tCOMPLETE")
	for _, tr := range report.Types {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%t\n",
			tr.Type, tr.RepresentedAs, humanize.Comma(tr.Rows), tr.Parts,
			humanize.Comma(tr.Duplicates), humanize.Comma(tr.Coerced), humanize.Bytes(uint64(tr.Bytes)), tr.Complete,
		)
	}
	tw.Flush()

	if report.SkippedCount > 0 {
		fmt.Fprintf(out, "\n%s entities skipped\n", humanize.Comma(report.SkippedCount))
	}

	for _, w := range report.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}

	for _, tr := range report.Types {
		for _, path := range tr.IncompleteFiles() {
			fmt.Fprintf(out, "incomplete: %s\n", path)
		}
	}
}

func runVerify(ctx context.Context, flags FlagMap, out io.Writer) int {
	log := logging.GetFromContext(ctx)

	delim, err := singleRune(flags[delimiter])
	if err != nil {
		log.Error("invalid delimiter", "err", err.Error())
		return exitUsage
	}

	var q rune
	if flags[quote] != "" {
		q, err = singleRune(flags[quote])
		if err != nil {
			log.Error("invalid quote", "err", err.Error())
			return exitUsage
		}
	}

	ts, err := batchwriter.ReadTypeSet(flags[outputDir], flags[typeName], delim, q)
	if err != nil {
		log.Error("verification failed", "type", flags[typeName], "err", err.Error())
		return exitFailure
	}

	fmt.Fprintf(out, "%s: %s rows in %d parts, %d columns\n",
		ts.Type, humanize.Comma(int64(ts.RowCount())), len(ts.Parts), len(ts.Header))

	return exitOK
}

func singleRune(s string) (rune, error) {
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("expected a single character, got \"%s\"", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}
