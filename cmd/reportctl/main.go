// Command reportctl aggregates day-report JSON files offline.
//
//	reportctl [-format json|xlsx] [-out file] [-tz zone] reports.json...
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/tech17x/fizzyadmin-sub000/internal/config"
	"github.com/tech17x/fizzyadmin-sub000/internal/exporter"
	"github.com/tech17x/fizzyadmin-sub000/internal/models"
	"github.com/tech17x/fizzyadmin-sub000/internal/observability"
	"github.com/tech17x/fizzyadmin-sub000/internal/services"
)

type options struct {
	format   string
	out      string
	timezone string
	quiet    bool
	files    []string
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := observability.NewLoggerTo(os.Stderr, config.LoggerConfig{Level: "warn", Format: "text"})
	if err := run(context.Background(), opts, os.Stdout, logger); err != nil {
		logger.Error("reportctl failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("reportctl", flag.ContinueOnError)
	fs.StringVar(&opts.format, "format", "json", "output format: json or xlsx")
	fs.StringVar(&opts.out, "out", "", "output file (default stdout)")
	fs.StringVar(&opts.timezone, "tz", "Local", "time zone for hourly and daily buckets")
	fs.BoolVar(&opts.quiet, "quiet", false, "hide the progress bar")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	opts.files = fs.Args()
	if len(opts.files) == 0 {
		return opts, fmt.Errorf("at least one reports file is required")
	}
	if opts.format != "json" && opts.format != "xlsx" {
		return opts, fmt.Errorf("unknown format %q", opts.format)
	}
	if opts.format == "xlsx" && opts.out == "" {
		return opts, fmt.Errorf("-out is required for xlsx output")
	}
	return opts, nil
}

func run(ctx context.Context, opts options, stdout io.Writer, logger *slog.Logger) error {
	loc := time.Local
	if opts.timezone != "" && opts.timezone != "Local" {
		l, err := time.LoadLocation(opts.timezone)
		if err != nil {
			return fmt.Errorf("load time zone: %w", err)
		}
		loc = l
	}

	reports, err := loadFiles(ctx, opts.files, !opts.quiet)
	if err != nil {
		return err
	}

	metrics := services.Aggregator{Location: loc}.Aggregate(reports)
	if metrics.UntimedOrders > 0 {
		logger.Warn("orders without kds_at were bucketed at the current time",
			"untimed_orders", metrics.UntimedOrders)
	}

	write := func(w io.Writer) error {
		if opts.format == "xlsx" {
			return exporter.WriteMetrics(w, metrics)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(metrics)
	}

	if opts.out == "" {
		return write(stdout)
	}
	f, err := os.Create(opts.out)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	return writeAndClose(f, write)
}

// writeAndClose runs write against dst and closes it. A close failure is
// reported when the write itself succeeded, since buffered data may be lost.
func writeAndClose(dst io.WriteCloser, write func(io.Writer) error) error {
	if err := write(dst); err != nil {
		_ = dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	return nil
}

// loadFiles decodes every file concurrently and concatenates the reports in
// argument order.
func loadFiles(ctx context.Context, files []string, progress bool) ([]models.DayReport, error) {
	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("loading reports"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetVisibility(progress),
	)

	parts := make([][]models.DayReport, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, name := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			raw, err := os.ReadFile(name)
			if err != nil {
				return fmt.Errorf("read %s: %w", name, err)
			}
			reports, err := models.DecodeDayReports(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			parts[i] = reports
			return bar.Add(1)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	_ = bar.Finish()

	var all []models.DayReport
	for _, p := range parts {
		all = append(all, p...)
	}
	return all, nil
}
