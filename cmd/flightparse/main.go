// Command flightparse runs a telegram file or workbook through the parsing
// engine offline and prints the resulting flights as JSON.
//
// Usage:
//
//	go run ./cmd/flightparse -input data/telegrams.txt -pretty -stats
//	go run ./cmd/flightparse -input data/registry.xlsx -format excel -regions
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bas-flights/telegram-etl/internal/adapter/regions"
	"github.com/bas-flights/telegram-etl/internal/domain"
	"github.com/bas-flights/telegram-etl/internal/ingest"
	"github.com/bas-flights/telegram-etl/internal/observability"
)

type options struct {
	input   string
	format  string
	pretty  bool
	stats   bool
	regions bool
}

func main() {
	var opts options
	flag.StringVar(&opts.input, "input", "", "telegram text file or .xlsx/.xlsm workbook")
	flag.StringVar(&opts.format, "format", "auto", "input format: auto, telegrams or excel")
	flag.BoolVar(&opts.pretty, "pretty", false, "indent the JSON output")
	flag.BoolVar(&opts.stats, "stats", false, "print a batch summary to stderr")
	flag.BoolVar(&opts.regions, "regions", false, "resolve departure and arrival regions")
	flag.Parse()

	if opts.input == "" {
		flag.Usage()
		os.Exit(2)
	}

	if code := run(context.Background(), opts, os.Stdout, os.Stderr); code != 0 {
		os.Exit(code)
	}
}

func run(ctx context.Context, opts options, stdout, stderr io.Writer) int {
	data, err := os.ReadFile(opts.input)
	if err != nil {
		fmt.Fprintf(stderr, "read input: %v\n", err)
		return 1
	}

	format, err := resolveFormat(opts.format, opts.input)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	var lookup domain.RegionLookup
	if opts.regions {
		lookup = regions.NewBoundingBoxLookup(nil)
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	svc := ingest.NewService(lookup, logger, observability.NewMetricsForTesting())

	var report ingest.Report
	if format == "excel" {
		report, err = svc.IngestWorkbook(ctx, bytes.NewReader(data))
	} else {
		report, err = svc.IngestText(ctx, data)
	}
	if err != nil {
		fmt.Fprintf(stderr, "parse %s: %v\n", opts.input, err)
		return 1
	}

	enc := json.NewEncoder(stdout)
	enc.SetEscapeHTML(false)
	if opts.pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(report.Flights); err != nil {
		fmt.Fprintf(stderr, "write output: %v\n", err)
		return 1
	}

	if opts.stats {
		printStats(stderr, report)
	}
	if report.Status == domain.StatusFailed {
		return 1
	}
	return 0
}

func resolveFormat(format, path string) (string, error) {
	switch format {
	case "telegrams", "excel":
		return format, nil
	case "auto", "":
		switch strings.ToLower(filepath.Ext(path)) {
		case ".xlsx", ".xlsm":
			return "excel", nil
		default:
			return "telegrams", nil
		}
	default:
		return "", fmt.Errorf("unknown format %q: want auto, telegrams or excel", format)
	}
}

func printStats(w io.Writer, r ingest.Report) {
	fmt.Fprintf(w, "source=%s status=%s processed=%d skipped=%d warnings=%d\n",
		r.Source, r.Status, r.Processed, r.Skipped, r.WarningCount)
	for _, s := range r.Sheets {
		fmt.Fprintf(w, "  sheet %q layout=%s processed=%d skipped=%d\n", s.Name, s.Layout, s.Processed, s.Skipped)
	}
	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "  %s\n", warning)
	}
}
