// Command fetch downloads bulk datasets from the vendor API into the
// local data directory, skipping files that are still fresh.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"fundata/internal/config"
	"fundata/internal/feed"
	"fundata/internal/infrastructure"
	"fundata/pkg/domain"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (empty searches the standard locations)")
	datasetsFlag := flag.String("datasets", "income,balance,cashflow,shareprices,companies,industries,markets", "comma-separated datasets to download")
	variantsFlag := flag.String("variants", "ttm,daily", "comma-separated variants; each dataset uses the ones that apply to it")
	marketsFlag := flag.String("markets", "", "comma-separated markets (defaults to the configured market)")
	refresh := flag.Int("refresh", -1, "refresh age in days; 0 forces a download, -1 uses the configured values")
	concurrency := flag.Int("concurrency", 4, "maximum downloads in flight")
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

	markets := splitList(*marketsFlag)
	if len(markets) == 0 {
		markets = []string{cfg.Data.Market}
	}
	specs, err := buildSpecs(splitList(*datasetsFlag), splitList(*variantsFlag), markets, cfg, *refresh)
	if err != nil {
		logger.Error("invalid dataset selection", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := feed.NewClient(cfg, logger)
	logger.Info("downloading datasets",
		slog.Int("count", len(specs)),
		slog.Int("concurrency", *concurrency),
		slog.String("download_dir", cfg.DownloadDir()))
	start := time.Now()

	downloadErr := client.DownloadAll(ctx, specs, *concurrency)
	printStatus(client, specs)

	if downloadErr != nil {
		logger.Error("download finished with failures",
			"error", downloadErr,
			slog.Duration("elapsed", time.Since(start)))
		os.Exit(1)
	}
	logger.Info("download complete",
		slog.Int("datasets", len(specs)),
		slog.Duration("elapsed", time.Since(start)))
}

// buildSpecs expands the requested datasets, variants, and markets into
// download specs, keeping only the combinations the registry knows.
// Datasets without variants or markets contribute a single spec.
func buildSpecs(datasets, variants, markets []string, cfg *config.Config, refresh int) ([]feed.Spec, error) {
	var specs []feed.Spec
	for _, name := range datasets {
		d := domain.Dataset(name)
		info, err := domain.Lookup(d)
		if err != nil {
			return nil, err
		}

		vs := []domain.Variant{domain.VariantNone}
		if len(info.Variants) > 0 {
			vs = vs[:0]
			for _, v := range variants {
				if info.HasVariant(domain.Variant(v)) {
					vs = append(vs, domain.Variant(v))
				}
			}
			if len(vs) == 0 {
				return nil, fmt.Errorf("none of the requested variants apply to dataset %q", name)
			}
		}

		ms := []domain.Market{domain.MarketNone}
		if len(info.Markets) > 0 {
			ms = ms[:0]
			for _, m := range markets {
				if !info.HasMarket(domain.Market(m)) {
					return nil, fmt.Errorf("market %q is not available for dataset %q", m, name)
				}
				ms = append(ms, domain.Market(m))
			}
		}

		for _, v := range vs {
			for _, m := range ms {
				specs = append(specs, feed.Spec{
					Dataset:     d,
					Variant:     v,
					Market:      m,
					RefreshDays: refreshFor(cfg, d, refresh),
				})
			}
		}
	}
	return specs, nil
}

// refreshFor picks the refresh age: the flag when set, otherwise the
// configured value. Share prices change daily and carry their own
// setting.
func refreshFor(cfg *config.Config, d domain.Dataset, refresh int) int {
	if refresh >= 0 {
		return refresh
	}
	if d == domain.DatasetSharePrices {
		return cfg.Data.RefreshDaysPrices
	}
	return cfg.Data.RefreshDays
}

func printStatus(client *feed.Client, specs []feed.Spec) {
	fmt.Println("\nFile                            | Status  | Size      | Updated")
	fmt.Println("--------------------------------|---------|-----------|-----------------")
	for _, s := range specs {
		name := domain.Filename(s.Dataset, s.Variant, s.Market)
		info, err := os.Stat(client.LocalPath(s.Dataset, s.Variant, s.Market))
		if err != nil {
			fmt.Printf("%-31s | missing | %9s | %s\n", name, "-", "-")
			continue
		}
		fmt.Printf("%-31s | ok      | %9s | %s\n",
			name, formatSize(info.Size()), info.ModTime().Format("2006-01-02 15:04"))
	}
}

func formatSize(bytes int64) string {
	switch {
	case bytes >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1<<20))
	case bytes >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(bytes)/(1<<10))
	default:
		return fmt.Sprintf("%d B", bytes)
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
