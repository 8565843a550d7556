package hub

import (
	"context"
	"math"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundata/internal/cache"
	"fundata/pkg/domain"
	"fundata/pkg/frame"
)

var nan = math.NaN()

func assertValues(t *testing.T, f *frame.Frame, c domain.Column, want []float64) {
	t.Helper()
	got, err := f.Column(c)
	require.NoError(t, err, "column %s", c)
	require.Len(t, got, len(want), "column %s", c)
	for i, w := range want {
		if math.IsNaN(w) {
			assert.True(t, math.IsNaN(got[i]), "column %s row %d: want NaN, got %v", c, i, got[i])
			continue
		}
		assert.InDelta(t, w, got[i], 1e-9, "column %s row %d", c, i)
	}
}

// addPriceFixture serves two trading days around the 2023 Q1 report.
// The adjusted close moves 20% while the raw close moves 10%, so tests
// can tell which column a computation used.
func addPriceFixture(t *testing.T, stub *stubFeed) {
	t.Helper()
	prices := priceFrame(t, []domain.Column{domain.Close, domain.AdjClose, domain.Volume}, []testRow{
		{"AAPL", day(2023, time.March, 31), []float64{100, 100, 1000}},
		{"AAPL", day(2023, time.April, 3), []float64{110, 120, 2000}},
	})
	stub.add(t, domain.DatasetSharePrices, domain.VariantDaily, prices)
}

// addStatementFixtures serves one 2023 Q1 report as both the TTM and
// quarterly variants: 40 basic and 50 diluted shares, 100 in free cash
// flow, NCAV and common earnings, and a book value of 500.
func addStatementFixtures(t *testing.T, stub *stubFeed) {
	t.Helper()
	income := statementFrame(t, []domain.Column{
		domain.Revenue, domain.GrossProfit, domain.OperatingIncome, domain.InterestExpNet,
		domain.NetIncome, domain.ResearchDev, domain.NetIncomeCommon,
		domain.SharesBasic, domain.SharesDiluted,
	}, []testRow{
		{"AAPL", day(2023, time.March, 31), []float64{1000, 400, 200, -10, 150, -50, 100, 40, 50}},
	})
	balance := statementFrame(t, []domain.Column{
		domain.TotalAssets, domain.TotalCurAssets, domain.TotalCurLiab, domain.TotalEquity,
		domain.StDebt, domain.LtDebt, domain.Inventories, domain.CashEquivStInvest,
		domain.AccNotesRecv, domain.TotalLiabilities,
	}, []testRow{
		{"AAPL", day(2023, time.March, 31), []float64{2000, 400, 400, 500, 100, 300, 60, 200, 100, 300}},
	})
	cashflow := statementFrame(t, []domain.Column{
		domain.NetCashOps, domain.Capex, domain.DividendsPaid,
		domain.CashRepurchaseEquity, domain.NetCashAcq, domain.DeprAmor,
	}, []testRow{
		{"AAPL", day(2023, time.March, 31), []float64{150, -50, -25, -40, -20, 80}},
	})
	for _, v := range []domain.Variant{domain.VariantTTM, domain.VariantQuarterly} {
		stub.add(t, domain.DatasetIncome, v, income)
		stub.add(t, domain.DatasetBalance, v, balance)
		stub.add(t, domain.DatasetCashflow, v, cashflow)
	}
}

func TestCacheKeys(t *testing.T) {
	stub := newStubFeed(t)
	h := newTestHub(t, stub)

	k1 := h.cacheKey("volume-signals", 20)
	k2 := h.cacheKey("volume-signals", 20)
	k3 := h.cacheKey("volume-signals", 10)
	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.True(t, strings.HasPrefix(k1, "volume-signals-"))
	assert.Len(t, k1, len("volume-signals-")+8)

	lagged := newTestHub(t, stub, WithPublicationLag(60))
	assert.NotEqual(t, k1, lagged.cacheKey("volume-signals", 20))

	// Ticker selections hash order-independently.
	a := newTestHub(t, stub, WithTickers("AAPL", "MSFT"))
	b := newTestHub(t, stub, WithTickers("MSFT", "AAPL"))
	assert.Equal(t, a.cacheKey("returns"), b.cacheKey("returns"))
	assert.NotEqual(t, h.cacheKey("returns"), a.cacheKey("returns"))
}

func TestPriceSignalsCaching(t *testing.T) {
	stub := newStubFeed(t)
	addPriceFixture(t, stub)
	mgr := cache.NewManager(t.TempDir(), nil)
	h := newTestHub(t, stub, WithCache(mgr))
	ctx := context.Background()

	first, err := h.PriceSignals(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.Column{
		domain.MovAvg20, domain.MovAvg200, domain.EMA, domain.MACD, domain.MACDSignal,
	}, first.Columns())
	assert.Equal(t, int64(1), mgr.Stats().Misses)
	assert.Equal(t, int64(1), mgr.Stats().Writes)

	// Second call is served from the RAM memo without touching disk.
	second, err := h.PriceSignals(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int64(0), mgr.Stats().Hits)

	// After a reset the disk cache serves an identical frame.
	h.Reset()
	third, err := h.PriceSignals(ctx)
	require.NoError(t, err)
	assert.True(t, first.Equal(third))
	assert.Equal(t, int64(1), mgr.Stats().Hits)

	// A refreshed source dataset supersedes the cached result.
	pricesPath := stub.LocalPath(domain.DatasetSharePrices, domain.VariantDaily, domain.MarketUS)
	touchLater(t, pricesPath)
	h.Reset()
	_, err = h.PriceSignals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), mgr.Stats().Misses)

	// The share prices were loaded once per memo generation (three
	// generations across the two Resets), never per signal call.
	assert.Equal(t, 3, stub.loadCount("shareprices-daily"))
}

func TestReturns(t *testing.T) {
	stub := newStubFeed(t)
	addPriceFixture(t, stub)
	h := newTestHub(t, stub)
	ctx := context.Background()

	past, err := h.Returns(ctx, ReturnsOptions{Span: domain.SpanBDays(1)})
	require.NoError(t, err)
	// 20% on the adjusted close, not 10% on the raw close.
	assertValues(t, past, domain.TotalReturn, []float64{nan, 0.2})

	future, err := h.Returns(ctx, ReturnsOptions{Span: domain.SpanBDays(1), Future: true})
	require.NoError(t, err)
	assertValues(t, future, domain.TotalReturn, []float64{0.2, nan})
}

func TestMeanLogReturns(t *testing.T) {
	stub := newStubFeed(t)
	addPriceFixture(t, stub)
	h := newTestHub(t, stub)

	out, err := h.MeanLogReturns(context.Background(), MeanLogReturnsOptions{
		Windows: []domain.Span{domain.SpanBDays(1)},
	})
	require.NoError(t, err)
	assertValues(t, out, domain.TotalReturn, []float64{nan, math.Log(1.2)})
}

func TestValSignalsThroughHub(t *testing.T) {
	stub := newStubFeed(t)
	addPriceFixture(t, stub)
	addStatementFixtures(t, stub)
	ctx := context.Background()

	h := newTestHub(t, stub)
	out, err := h.ValSignals(ctx, ValSignalsOptions{})
	require.NoError(t, err)
	// 50 diluted shares: 20 revenue per share at closes of 100 and 110.
	assertValues(t, out, domain.PSales, []float64{5, 5.5})
	assertValues(t, out, domain.MarketCap, []float64{5000, 5500})

	basic, err := h.ValSignals(ctx, ValSignalsOptions{SharesCol: domain.SharesBasic})
	require.NoError(t, err)
	assertValues(t, basic, domain.MarketCap, []float64{4000, 4400})
}

func TestValSignalsPublicationLag(t *testing.T) {
	stub := newStubFeed(t)
	addPriceFixture(t, stub)
	addStatementFixtures(t, stub)

	h := newTestHub(t, stub, WithPublicationLag(3))
	out, err := h.ValSignals(context.Background(), ValSignalsOptions{})
	require.NoError(t, err)
	// The report only becomes visible three days after its date.
	assertValues(t, out, domain.PSales, []float64{nan, 5.5})
}

func TestFinSignalsThroughHub(t *testing.T) {
	stub := newStubFeed(t)
	addPriceFixture(t, stub)
	addStatementFixtures(t, stub)

	h := newTestHub(t, stub)
	out, err := h.FinSignals(context.Background(), FinSignalsOptions{})
	require.NoError(t, err)
	assertValues(t, out, domain.NetProfitMargin, []float64{0.15, 0.15})
	assertValues(t, out, domain.ROE, []float64{0.3, 0.3})
}

func TestGrowthSignalsThroughHub(t *testing.T) {
	stub := newStubFeed(t)
	addPriceFixture(t, stub)
	addStatementFixtures(t, stub)

	h := newTestHub(t, stub)
	out, err := h.GrowthSignals(context.Background())
	require.NoError(t, err)
	// A single quarter has no history to grow from.
	assert.Len(t, out.Columns(), 12)
	assertValues(t, out, domain.SalesGrowth, []float64{nan, nan})
	assertValues(t, out, domain.SalesGrowthQOQ, []float64{nan, nan})
}

func TestVolumeSignalsThroughHub(t *testing.T) {
	stub := newStubFeed(t)
	addPriceFixture(t, stub)
	addStatementFixtures(t, stub)

	h := newTestHub(t, stub)
	out, err := h.VolumeSignals(context.Background(), VolumeSignalsOptions{Window: 1})
	require.NoError(t, err)
	assertValues(t, out, domain.RelVol, []float64{0, 0})
	assertValues(t, out, domain.VolumeMCap, []float64{100000, 220000})
	// 40 basic shares against volumes of 1000 and 2000.
	assertValues(t, out, domain.VolumeTurnover, []float64{25, 50})
}

// touchLater bumps a file's timestamps past any artifact written
// earlier in the test.
func touchLater(t *testing.T, path string) {
	t.Helper()
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))
}
