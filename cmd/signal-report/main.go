// Command signal-report computes signal families for a market and
// writes them to a CSV or xlsx report.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"fundata/internal/config"
	"fundata/internal/exporter"
	"fundata/internal/hub"
	"fundata/internal/infrastructure"
	"fundata/pkg/domain"
	"fundata/pkg/frame"
)

// family pairs a flag name with its sheet title.
type family struct {
	name  string
	title string
}

// families lists the signal families in report order.
var families = []family{
	{"price", "Price"},
	{"volume", "Volume"},
	{"fin", "Financial"},
	{"growth", "Growth"},
	{"val", "Valuation"},
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (empty searches the standard locations)")
	market := flag.String("market", "", "market to report on (defaults to the configured market)")
	tickersFlag := flag.String("tickers", "", "comma-separated tickers; empty keeps every company")
	familiesFlag := flag.String("signals", "all", "comma-separated signal families: price, volume, fin, growth, val")
	out := flag.String("out", "", "output path (defaults to a dated file under the data directory)")
	format := flag.String("format", "xlsx", "output format: csv or xlsx")
	lag := flag.Int("lag", 0, "publication lag in days applied to report dates")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := infrastructure.MustInitializeLogger(cfg.Logging)
	if err := infrastructure.InitTracing(cfg.Tracing); err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer infrastructure.ShutdownTracing(context.Background())

	if err := cfg.EnsureDirectories(); err != nil {
		logger.Error("failed to create data directories", "error", err)
		os.Exit(1)
	}
	if *format != "csv" && *format != "xlsx" {
		logger.Error("unknown output format", slog.String("format", *format))
		os.Exit(1)
	}
	requested, err := resolveFamilies(*familiesFlag)
	if err != nil {
		logger.Error("invalid signal selection", "error", err)
		os.Exit(1)
	}

	runID := uuid.NewString()
	logger = logger.With(slog.String("run_id", runID))

	opts := []hub.Option{hub.WithLogger(logger)}
	if *market != "" {
		opts = append(opts, hub.WithMarket(domain.Market(*market)))
	}
	if tickers := splitList(*tickersFlag); len(tickers) > 0 {
		opts = append(opts, hub.WithTickers(tickers...))
	}
	if *lag > 0 {
		opts = append(opts, hub.WithPublicationLag(*lag))
	}
	h := hub.New(cfg, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	logger.Info("computing signal report",
		slog.String("market", string(h.Market())),
		slog.Any("families", requested))

	sheets := make([]exporter.Sheet, 0, len(requested))
	for _, fam := range requested {
		f, err := computeFamily(ctx, h, fam.name)
		if err != nil {
			logger.Error("failed to compute signal family",
				slog.String("family", fam.name), "error", err)
			os.Exit(1)
		}
		sheets = append(sheets, exporter.Sheet{Name: fam.title, Frame: f})
	}

	path := *out
	if path == "" {
		path = filepath.Join(cfg.Data.Dir, "reports",
			fmt.Sprintf("signals_%s.%s", time.Now().Format("20060102"), *format))
	}

	switch *format {
	case "xlsx":
		if err := exporter.NewExcelWriter(logger).Write(path, sheets); err != nil {
			logger.Error("failed to write report", "error", err)
			os.Exit(1)
		}
	case "csv":
		w := exporter.NewCSVWriter(logger)
		for _, s := range sheets {
			if err := w.Write(familyPath(path, s.Name), s.Frame, exporter.CSVOptions{}); err != nil {
				logger.Error("failed to write report",
					slog.String("family", s.Name), "error", err)
				os.Exit(1)
			}
		}
	}

	printReportSummary(sheets)
	logger.Info("signal report written",
		slog.String("path", path),
		slog.Int("families", len(sheets)),
		slog.Duration("elapsed", time.Since(start)))
}

// resolveFamilies parses the -signals flag, preserving the requested
// order. "all" selects every family.
func resolveFamilies(selection string) ([]family, error) {
	if selection == "" || selection == "all" {
		return families, nil
	}
	byName := make(map[string]family, len(families))
	for _, fam := range families {
		byName[fam.name] = fam
	}

	var out []family
	for _, name := range splitList(selection) {
		fam, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown signal family %q", name)
		}
		out = append(out, fam)
	}
	return out, nil
}

func computeFamily(ctx context.Context, h *hub.Hub, name string) (*frame.Frame, error) {
	switch name {
	case "price":
		return h.PriceSignals(ctx)
	case "volume":
		return h.VolumeSignals(ctx, hub.VolumeSignalsOptions{})
	case "fin":
		return h.FinSignals(ctx, hub.FinSignalsOptions{})
	case "growth":
		return h.GrowthSignals(ctx)
	case "val":
		return h.ValSignals(ctx, hub.ValSignalsOptions{})
	default:
		return nil, fmt.Errorf("unknown signal family %q", name)
	}
}

// familyPath derives a per-family CSV path from the report path, e.g.
// signals.csv becomes signals_valuation.csv.
func familyPath(base, title string) string {
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "_" + strings.ToLower(title) + ".csv"
}

func printReportSummary(sheets []exporter.Sheet) {
	fmt.Println("\nFamily     | Entities | Rows    | Columns")
	fmt.Println("-----------|----------|---------|--------")
	for _, s := range sheets {
		fmt.Printf("%-10s | %8d | %7d | %7d\n",
			s.Name, len(s.Frame.EntityNames()), s.Frame.Len(), len(s.Frame.Columns()))
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
