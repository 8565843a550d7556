package hub

import (
	"context"
	"crypto/sha1"
	"fmt"
	"strings"

	"fundata/internal/cache"
	"fundata/internal/signals"
	"fundata/internal/transform"
	"fundata/pkg/domain"
	"fundata/pkg/frame"
)

// derived serves a computed frame through the RAM memo and the disk
// cache, in that order.
func (h *Hub) derived(ctx context.Context, key string, policy cache.Policy, compute func(context.Context) (*frame.Frame, error)) (*frame.Frame, error) {
	if f, ok := h.memoGet(key); ok {
		return f, nil
	}
	f, err := h.cache.GetOrCompute(ctx, key, policy, compute)
	if err != nil {
		return nil, err
	}
	h.memoPut(key, f)
	return f, nil
}

// cacheKey builds "<name>-<hash>" where the hash is the first 8 hex
// characters of SHA-1 over the Hub's identity and the call arguments,
// so different settings never collide on the same cache file.
func (h *Hub) cacheKey(name string, ids ...any) string {
	parts := []string{
		string(h.market), h.extension, string(h.fill),
		fmt.Sprint(h.offsetDays), h.tickerHash,
	}
	for _, id := range ids {
		parts = append(parts, fmt.Sprint(id))
	}
	sum := sha1.Sum([]byte(strings.Join(parts, "-")))
	return fmt.Sprintf("%s-%x", name, sum[:4])
}

// sourcePolicy ties a cached result to the dataset files it was
// computed from: refreshing any of them invalidates the cache.
func (h *Hub) sourcePolicy(sources ...datasetRef) cache.Policy {
	paths := make([]string, len(sources))
	for i, s := range sources {
		paths[i] = h.feed.LocalPath(s.d, s.v, h.market)
	}
	return cache.NewerThan(paths...)
}

type datasetRef struct {
	d domain.Dataset
	v domain.Variant
}

func (h *Hub) pricesRef() datasetRef {
	return datasetRef{domain.DatasetSharePrices, domain.VariantDaily}
}

func (h *Hub) statementRefs() []datasetRef {
	return []datasetRef{
		{h.fundamental(domain.DatasetIncome), domain.VariantTTM},
		{h.fundamental(domain.DatasetBalance), domain.VariantTTM},
		{h.fundamental(domain.DatasetCashflow), domain.VariantTTM},
	}
}

// ReturnsOptions parameterizes Returns.
type ReturnsOptions struct {
	// Name is the output column. Defaults to TotalReturn.
	Name domain.Column
	// Span is the length of the investment period.
	Span domain.Span
	// Future computes forward-looking returns, the usual choice for
	// prediction targets. The default looks back.
	Future bool
	// Annualized rescales multi-year returns to a yearly rate.
	Annualized bool
}

// Returns computes stock returns over the given investment period from
// the adjusted closing price, which accounts for splits and dividends.
func (h *Hub) Returns(ctx context.Context, opts ReturnsOptions) (*frame.Frame, error) {
	if opts.Name == "" {
		opts.Name = domain.TotalReturn
	}
	prices, err := h.SharePrices(ctx, domain.VariantDaily)
	if err != nil {
		return nil, err
	}

	key := h.cacheKey("returns", opts.Name, opts.Span, opts.Future, opts.Annualized)
	return h.derived(ctx, key, h.sourcePolicy(h.pricesRef()), func(ctx context.Context) (*frame.Frame, error) {
		px, err := prices.Select(domain.AdjClose)
		if err != nil {
			return nil, err
		}
		return transform.RelChange(px, transform.ChangeOptions{
			Freq:       domain.FreqBusinessDaily,
			Span:       opts.Span,
			Future:     opts.Future,
			Annualized: opts.Annualized,
			Rename:     map[domain.Column]domain.Column{domain.AdjClose: opts.Name},
		})
	})
}

// MeanLogReturnsOptions parameterizes MeanLogReturns.
type MeanLogReturnsOptions struct {
	// Name is the output column. Defaults to TotalReturn.
	Name domain.Column
	// Windows are the investment periods averaged over.
	Windows []domain.Span
	// Future computes forward-looking returns.
	Future bool
	// Annualized rescales each window to a yearly rate before
	// averaging; otherwise each window contributes its per-period rate.
	Annualized bool
}

// MeanLogReturns computes the mean logarithmic return across several
// investment periods, a smoother prediction target than a single
// period's return.
func (h *Hub) MeanLogReturns(ctx context.Context, opts MeanLogReturnsOptions) (*frame.Frame, error) {
	if opts.Name == "" {
		opts.Name = domain.TotalReturn
	}
	prices, err := h.SharePrices(ctx, domain.VariantDaily)
	if err != nil {
		return nil, err
	}

	key := h.cacheKey("mean-log-returns", opts.Name, opts.Windows, opts.Future, opts.Annualized)
	return h.derived(ctx, key, h.sourcePolicy(h.pricesRef()), func(ctx context.Context) (*frame.Frame, error) {
		px, err := prices.Select(domain.AdjClose)
		if err != nil {
			return nil, err
		}
		return transform.MeanLogChange(px, transform.MeanLogOptions{
			Freq:       domain.FreqBusinessDaily,
			Windows:    opts.Windows,
			Future:     opts.Future,
			Annualized: opts.Annualized,
			Rename:     map[domain.Column]domain.Column{domain.AdjClose: opts.Name},
		})
	})
}

// PriceSignals computes moving averages, EMA and MACD from the daily
// closing prices.
func (h *Hub) PriceSignals(ctx context.Context) (*frame.Frame, error) {
	prices, err := h.SharePrices(ctx, domain.VariantDaily)
	if err != nil {
		return nil, err
	}

	key := h.cacheKey("price-signals")
	return h.derived(ctx, key, h.sourcePolicy(h.pricesRef()), func(ctx context.Context) (*frame.Frame, error) {
		return signals.Price(prices)
	})
}

// VolumeSignalsOptions parameterizes VolumeSignals.
type VolumeSignalsOptions struct {
	// Window is the length of the moving averages in trading days.
	// Defaults to 20.
	Window int
	// SharesCol is the share count used for turnover. Defaults to the
	// basic count.
	SharesCol domain.Column
}

// VolumeSignals computes trading-volume signals from daily prices and
// the share counts reported in the TTM income statements.
func (h *Hub) VolumeSignals(ctx context.Context, opts VolumeSignalsOptions) (*frame.Frame, error) {
	if opts.Window == 0 {
		opts.Window = 20
	}
	if opts.SharesCol == "" {
		opts.SharesCol = domain.SharesBasic
	}

	prices, err := h.SharePrices(ctx, domain.VariantDaily)
	if err != nil {
		return nil, err
	}
	income, err := h.Income(ctx, domain.VariantTTM)
	if err != nil {
		return nil, err
	}

	key := h.cacheKey("volume-signals", opts.Window, opts.SharesCol)
	policy := h.sourcePolicy(h.pricesRef(),
		datasetRef{h.fundamental(domain.DatasetIncome), domain.VariantTTM})
	return h.derived(ctx, key, policy, func(ctx context.Context) (*frame.Frame, error) {
		return signals.Volume(prices, income, signals.VolumeOptions{
			Window:         opts.Window,
			Fill:           h.fill,
			SharesCol:      opts.SharesCol,
			DateOffsetDays: h.offsetDays,
		})
	})
}

// FinSignalsOptions parameterizes FinSignals.
type FinSignalsOptions struct {
	// Winsorize clamps every signal column at this quantile and its
	// complement. Zero disables clamping.
	Winsorize float64
}

// FinSignals computes financial ratios from the TTM statements and
// carries them onto the daily price dates.
func (h *Hub) FinSignals(ctx context.Context, opts FinSignalsOptions) (*frame.Frame, error) {
	prices, err := h.SharePrices(ctx, domain.VariantDaily)
	if err != nil {
		return nil, err
	}
	income, balance, cashflow, err := h.statements(ctx)
	if err != nil {
		return nil, err
	}

	key := h.cacheKey("fin-signals", opts.Winsorize)
	policy := h.sourcePolicy(append(h.statementRefs(), h.pricesRef())...)
	return h.derived(ctx, key, policy, func(ctx context.Context) (*frame.Frame, error) {
		return signals.Financial(income, balance, cashflow, signals.FinancialOptions{
			Prices:            prices,
			Fill:              h.fill,
			DateOffsetDays:    h.offsetDays,
			WinsorizeQuantile: opts.Winsorize,
		})
	})
}

// GrowthSignals computes sales, earnings, FCF and assets growth from
// the TTM and quarterly statements and carries them onto the daily
// price dates.
func (h *Hub) GrowthSignals(ctx context.Context) (*frame.Frame, error) {
	prices, err := h.SharePrices(ctx, domain.VariantDaily)
	if err != nil {
		return nil, err
	}
	incomeTTM, balanceTTM, cashflowTTM, err := h.statements(ctx)
	if err != nil {
		return nil, err
	}
	incomeQ, err := h.Income(ctx, domain.VariantQuarterly)
	if err != nil {
		return nil, err
	}
	balanceQ, err := h.Balance(ctx, domain.VariantQuarterly)
	if err != nil {
		return nil, err
	}
	cashflowQ, err := h.Cashflow(ctx, domain.VariantQuarterly)
	if err != nil {
		return nil, err
	}

	key := h.cacheKey("growth-signals")
	sources := append(h.statementRefs(),
		datasetRef{h.fundamental(domain.DatasetIncome), domain.VariantQuarterly},
		datasetRef{h.fundamental(domain.DatasetBalance), domain.VariantQuarterly},
		datasetRef{h.fundamental(domain.DatasetCashflow), domain.VariantQuarterly},
		h.pricesRef())
	return h.derived(ctx, key, h.sourcePolicy(sources...), func(ctx context.Context) (*frame.Frame, error) {
		return signals.Growth(incomeTTM, incomeQ, balanceTTM, balanceQ, cashflowTTM, cashflowQ,
			signals.GrowthOptions{
				Prices:         prices,
				Fill:           h.fill,
				DateOffsetDays: h.offsetDays,
			})
	})
}

// ValSignalsOptions parameterizes ValSignals.
type ValSignalsOptions struct {
	// SharesCol is the share count for per-share figures. Defaults to
	// the diluted count, the more conservative choice for valuation.
	SharesCol domain.Column
}

// ValSignals computes price multiples and yields on the daily price
// dates from the TTM statements.
func (h *Hub) ValSignals(ctx context.Context, opts ValSignalsOptions) (*frame.Frame, error) {
	if opts.SharesCol == "" {
		opts.SharesCol = domain.SharesDiluted
	}

	prices, err := h.SharePrices(ctx, domain.VariantDaily)
	if err != nil {
		return nil, err
	}
	income, balance, cashflow, err := h.statements(ctx)
	if err != nil {
		return nil, err
	}

	key := h.cacheKey("val-signals", opts.SharesCol)
	policy := h.sourcePolicy(append(h.statementRefs(), h.pricesRef())...)
	return h.derived(ctx, key, policy, func(ctx context.Context) (*frame.Frame, error) {
		return signals.Valuation(prices, income, balance, cashflow, signals.ValuationOptions{
			Fill:           h.fill,
			DateOffsetDays: h.offsetDays,
			SharesCol:      opts.SharesCol,
		})
	})
}

// statements loads the three TTM statement frames.
func (h *Hub) statements(ctx context.Context) (income, balance, cashflow *frame.Frame, err error) {
	if income, err = h.Income(ctx, domain.VariantTTM); err != nil {
		return nil, nil, nil, err
	}
	if balance, err = h.Balance(ctx, domain.VariantTTM); err != nil {
		return nil, nil, nil, err
	}
	if cashflow, err = h.Cashflow(ctx, domain.VariantTTM); err != nil {
		return nil, nil, nil, err
	}
	return income, balance, cashflow, nil
}
