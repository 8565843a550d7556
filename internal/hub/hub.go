// Package hub is the one-stop API for loading datasets and computing
// signals. A Hub fixes the market, ticker selection and publication
// lag once, then hands out statement frames, share prices and derived
// signal frames on demand.
//
// Loaded datasets are memoized in RAM for the lifetime of the Hub, and
// derived results are additionally persisted through the disk cache,
// keyed by a hash of the arguments and invalidated whenever a source
// dataset file is refreshed. Because results are shared, callers must
// treat returned frames as read-only and clone before modifying.
package hub

import (
	"context"
	"crypto/sha1"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"fundata/internal/cache"
	"fundata/internal/config"
	"fundata/internal/feed"
	"fundata/internal/infrastructure"
	"fundata/pkg/domain"
	"fundata/pkg/frame"
)

// Feed loads datasets from disk, downloading them first when stale.
// *feed.Client is the production implementation.
type Feed interface {
	LoadDataset(ctx context.Context, d domain.Dataset, v domain.Variant, m domain.Market, refreshDays int) (*frame.Frame, error)
	LoadCompanies(ctx context.Context, m domain.Market, refreshDays int) (map[string]domain.Company, error)
	LocalPath(d domain.Dataset, v domain.Variant, m domain.Market) string
}

// Hub combines the feed, the disk cache and an in-RAM memo behind one
// API. Construct with New and share freely; all methods are safe for
// concurrent use.
type Hub struct {
	cfg        *config.Config
	feed       Feed
	cache      *cache.Manager
	logger     *slog.Logger
	market     domain.Market
	extension  string
	tickers    []string
	tickerHash string
	offsetDays int
	fill       domain.FillMethod

	mu        sync.RWMutex
	memo      map[string]*frame.Frame
	companies map[string]domain.Company
	hits      int64
	misses    int64
}

// Option adjusts a Hub during construction.
type Option func(*Hub)

// WithFeed replaces the feed client, typically with a test double or a
// client pointed at a fixture server.
func WithFeed(f Feed) Option { return func(h *Hub) { h.feed = f } }

// WithCache replaces the disk cache manager.
func WithCache(m *cache.Manager) Option { return func(h *Hub) { h.cache = m } }

// WithLogger replaces the logger.
func WithLogger(l *slog.Logger) Option { return func(h *Hub) { h.logger = l } }

// WithMarket overrides the configured market.
func WithMarket(m domain.Market) Option { return func(h *Hub) { h.market = m } }

// WithTickers restricts every dataset and signal frame to the given
// tickers. The full datasets are still downloaded and loaded.
func WithTickers(tickers ...string) Option {
	return func(h *Hub) { h.tickers = append([]string(nil), tickers...) }
}

// WithPublicationLag shifts statement dates forward by the given
// number of days in the signal computations, modelling the delay
// between a report's date and its public availability. Reports commonly
// surface one to three months after the report date.
func WithPublicationLag(days int) Option { return func(h *Hub) { h.offsetDays = days } }

// WithFillMethod sets how statement figures are carried onto daily
// price dates. The default is forward fill.
func WithFillMethod(m domain.FillMethod) Option { return func(h *Hub) { h.fill = m } }

// WithBanks switches the fundamentals to the bank-specific datasets.
func WithBanks() Option { return func(h *Hub) { h.extension = "-banks" } }

// WithInsurance switches the fundamentals to the insurance-specific
// datasets.
func WithInsurance() Option { return func(h *Hub) { h.extension = "-insurance" } }

// New creates a Hub on the given configuration. A nil cfg uses the
// process-wide default.
func New(cfg *config.Config, opts ...Option) *Hub {
	if cfg == nil {
		cfg = config.Default()
	}
	h := &Hub{
		cfg:    cfg,
		market: domain.Market(cfg.Data.Market),
		fill:   domain.FillForward,
		memo:   make(map[string]*frame.Frame),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = infrastructure.GetLogger()
	}
	if h.feed == nil {
		h.feed = feed.NewClient(cfg, h.logger)
	}
	if h.cache == nil {
		h.cache = cache.NewManager(cfg.CacheDir(), h.logger)
	}
	if len(h.tickers) > 0 {
		// Sorted so the same selection always hashes the same.
		sorted := append([]string(nil), h.tickers...)
		sort.Strings(sorted)
		sum := sha1.Sum([]byte(strings.Join(sorted, "-")))
		h.tickerHash = fmt.Sprintf("%x", sum)
	}
	return h
}

// Config returns the configuration the Hub was built on.
func (h *Hub) Config() *config.Config { return h.cfg }

// Market returns the market every dataset is loaded for.
func (h *Hub) Market() domain.Market { return h.market }

// MemoStats counts RAM memo activity since construction or the last
// Reset.
type MemoStats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// Stats returns a snapshot of the RAM memo counters. The disk cache
// keeps its own counters on the Manager.
func (h *Hub) Stats() MemoStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	entries := len(h.memo)
	if h.companies != nil {
		entries++
	}
	return MemoStats{Hits: h.hits, Misses: h.misses, Entries: entries}
}

// Reset clears the RAM memo and its counters. The disk cache is left
// alone, so subsequent calls repopulate from disk where still fresh.
func (h *Hub) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.memo = make(map[string]*frame.Frame)
	h.companies = nil
	h.hits, h.misses = 0, 0
}

// Income loads the income statements for the Hub's market.
// The variant is annual, quarterly or ttm.
func (h *Hub) Income(ctx context.Context, v domain.Variant) (*frame.Frame, error) {
	return h.dataset(ctx, h.fundamental(domain.DatasetIncome), v)
}

// Balance loads the balance sheets for the Hub's market.
func (h *Hub) Balance(ctx context.Context, v domain.Variant) (*frame.Frame, error) {
	return h.dataset(ctx, h.fundamental(domain.DatasetBalance), v)
}

// Cashflow loads the cash flow statements for the Hub's market.
func (h *Hub) Cashflow(ctx context.Context, v domain.Variant) (*frame.Frame, error) {
	return h.dataset(ctx, h.fundamental(domain.DatasetCashflow), v)
}

// SharePrices loads the share prices for the Hub's market. The variant
// is daily or latest.
func (h *Hub) SharePrices(ctx context.Context, v domain.Variant) (*frame.Frame, error) {
	return h.dataset(ctx, domain.DatasetSharePrices, v)
}

// Companies loads the company reference data for the Hub's market,
// keyed by ticker.
func (h *Hub) Companies(ctx context.Context) (map[string]domain.Company, error) {
	h.mu.RLock()
	companies := h.companies
	h.mu.RUnlock()
	if companies != nil {
		h.count(true)
		return companies, nil
	}
	h.count(false)

	loaded, err := h.feed.LoadCompanies(ctx, h.market, h.cfg.Data.RefreshDays)
	if err != nil {
		return nil, err
	}
	if len(h.tickers) > 0 {
		kept := make(map[string]domain.Company, len(h.tickers))
		for _, ticker := range h.tickers {
			if c, ok := loaded[ticker]; ok {
				kept[ticker] = c
			}
		}
		loaded = kept
	}

	h.mu.Lock()
	h.companies = loaded
	h.mu.Unlock()
	return loaded, nil
}

// fundamental applies the banks or insurance dataset extension.
func (h *Hub) fundamental(base domain.Dataset) domain.Dataset {
	return domain.Dataset(string(base) + h.extension)
}

// refreshDays returns the staleness horizon for a dataset. Share
// prices change every trading day and have their own setting.
func (h *Hub) refreshDays(d domain.Dataset) int {
	if d == domain.DatasetSharePrices {
		return h.cfg.Data.RefreshDaysPrices
	}
	return h.cfg.Data.RefreshDays
}

// dataset loads through the RAM memo, restricting to the Hub's tickers
// when a selection is set.
func (h *Hub) dataset(ctx context.Context, d domain.Dataset, v domain.Variant) (*frame.Frame, error) {
	key := fmt.Sprintf("%s-%s-%s", d, v, h.market)
	if f, ok := h.memoGet(key); ok {
		return f, nil
	}
	f, err := h.feed.LoadDataset(ctx, d, v, h.market, h.refreshDays(d))
	if err != nil {
		return nil, err
	}
	if len(h.tickers) > 0 {
		f = f.FilterEntities(h.tickers...)
	}
	h.memoPut(key, f)
	return f, nil
}

func (h *Hub) memoGet(key string) (*frame.Frame, bool) {
	h.mu.RLock()
	f, ok := h.memo[key]
	h.mu.RUnlock()
	h.count(ok)
	return f, ok
}

func (h *Hub) memoPut(key string, f *frame.Frame) {
	h.mu.Lock()
	h.memo[key] = f
	h.mu.Unlock()
}

func (h *Hub) count(hit bool) {
	h.mu.Lock()
	if hit {
		h.hits++
	} else {
		h.misses++
	}
	h.mu.Unlock()
}
