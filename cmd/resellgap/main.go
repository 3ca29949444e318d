// Command resellgap compares a supplier catalog against marketplace and
// open-web prices.
//
// Usage:
//
//	resellgap preview -file catalog.csv
//	resellgap compare -file catalog.csv -out results.csv
//	resellgap watch -file catalog.csv -schedule "@every 6h" -out results.json
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/guarzo/resellgap/internal/catalog"
	"github.com/guarzo/resellgap/internal/concurrent"
	"github.com/guarzo/resellgap/internal/config"
	"github.com/guarzo/resellgap/internal/model"
	"github.com/guarzo/resellgap/internal/progress"
	"github.com/guarzo/resellgap/internal/report"
	"github.com/guarzo/resellgap/internal/schedule"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

const usage = `usage: resellgap <command> [flags]

commands:
  preview   show the detected header row and column mapping of a catalog
  compare   compare every catalog item and write the results
  watch     re-run compare on a cron schedule
`

// common holds the flags every command accepts.
type common struct {
	file      string
	encoding  string
	config    string
	logFormat string
	logLevel  string
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.file, "file", "", "catalog CSV file (required)")
	fs.StringVar(&c.encoding, "encoding", "utf-8", "catalog encoding: utf-8, windows-1252, iso-8859-1, iso-8859-15")
	fs.StringVar(&c.config, "config", "", "optional YAML config file")
	fs.StringVar(&c.logFormat, "log-format", "text", "log format: text or json")
	fs.StringVar(&c.logLevel, "log-level", "info", "log level: debug, info, warn, error")
}

func (c *common) setup(stderr io.Writer) (*config.Config, *slog.Logger, error) {
	if c.file == "" {
		return nil, nil, errors.New("-file is required")
	}
	logger, err := newLogger(stderr, c.logFormat, c.logLevel)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(c.config)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	var err error
	switch args[0] {
	case "preview":
		err = runPreview(args[1:], stdout, stderr)
	case "compare":
		err = runCompare(ctx, args[1:], stdout, stderr)
	case "watch":
		err = runWatch(ctx, args[1:], stderr)
	case "-h", "-help", "--help", "help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "resellgap: %v\n", err)
		return 1
	}
	return 0
}

func runPreview(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("preview", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var c common
	c.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, logger, err := c.setup(stderr)
	if err != nil {
		return err
	}
	grid, err := readGrid(c.file, c.encoding)
	if err != nil {
		return err
	}
	return report.WriteJSON(stdout, catalog.NewImporter(*cfg, logger).Preview(grid))
}

func runCompare(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("compare", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var c common
	c.register(fs)
	out := fs.String("out", "", "output file (.csv or .json); JSON to stdout when empty")
	history := fs.String("history", "", "JSON file accumulating observed prices between runs")
	noArbitrage := fs.Bool("no-arbitrage", false, "skip the multi-market comparison")
	quiet := fs.Bool("quiet", false, "hide the progress bar")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, logger, err := c.setup(stderr)
	if err != nil {
		return err
	}
	a, err := newApp(*cfg, *history, !*noArbitrage, logger)
	if err != nil {
		return err
	}
	defer a.close()

	summary, err := compareOnce(ctx, a, c.file, c.encoding, stderr, !*quiet)
	if err != nil {
		return err
	}
	return writeSummary(summary, *out, stdout)
}

func runWatch(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var c common
	c.register(fs)
	spec := fs.String("schedule", "@every 6h", "cron schedule")
	out := fs.String("out", "results.json", "output file (.csv or .json), rewritten each run")
	history := fs.String("history", "./data/price_history.json", "JSON file accumulating observed prices between runs")
	noArbitrage := fs.Bool("no-arbitrage", false, "skip the multi-market comparison")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, logger, err := c.setup(stderr)
	if err != nil {
		return err
	}
	a, err := newApp(*cfg, *history, !*noArbitrage, logger)
	if err != nil {
		return err
	}
	defer a.close()

	s, err := schedule.New(*spec, func(ctx context.Context) error {
		summary, err := compareOnce(ctx, a, c.file, c.encoding, stderr, false)
		if err != nil {
			return err
		}
		return report.WriteFile(*out, summary)
	}, logger)
	if err != nil {
		return err
	}
	return s.Run(ctx, true)
}

func compareOnce(ctx context.Context, a *app, file, encoding string, stderr io.Writer, showProgress bool) (model.BatchSummary, error) {
	var bar *progress.Indicator
	summary, err := a.compareAll(ctx, file, encoding, func(total int) concurrent.Reporter {
		bar = progress.NewIndicator(stderr, "Comparing catalog", total, showProgress)
		bar.Start()
		return bar
	})
	if bar != nil {
		bar.Finish()
	}
	return summary, err
}

func writeSummary(summary model.BatchSummary, path string, stdout io.Writer) error {
	if path == "" {
		return report.WriteJSON(stdout, summary)
	}
	return report.WriteFile(path, summary)
}

func newLogger(w io.Writer, format, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid -log-level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch format {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid -log-format %q", format)
	}
}
