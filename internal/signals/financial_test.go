package signals

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "fundata/internal/errors"
	"fundata/pkg/domain"
	"fundata/pkg/frame"
)

var (
	incomeCols = []domain.Column{
		domain.Revenue, domain.GrossProfit, domain.OperatingIncome,
		domain.InterestExpNet, domain.NetIncome, domain.ResearchDev,
	}
	balanceCols = []domain.Column{
		domain.TotalAssets, domain.TotalCurAssets, domain.TotalCurLiab,
		domain.TotalEquity, domain.StDebt, domain.LtDebt, domain.Inventories,
		domain.CashEquivStInvest, domain.AccNotesRecv,
	}
	cashflowCols = []domain.Column{
		domain.NetCashOps, domain.Capex, domain.DividendsPaid,
		domain.CashRepurchaseEquity, domain.NetCashAcq, domain.DeprAmor,
	}
)

func TestFinancialRatios(t *testing.T) {
	income := statementFrame(t, incomeCols, []testRow{
		{"AAPL", quarterEnd(2023, 1), []float64{1000, 400, 200, -10, 150, -50}},
		{"AAPL", quarterEnd(2023, 2), []float64{0, 100, 50, 0, 40, -50}},
	})
	balance := statementFrame(t, balanceCols, []testRow{
		{"AAPL", quarterEnd(2023, 1), []float64{2000, 800, 400, 1000, 100, 300, 200, 250, 150}},
		{"AAPL", quarterEnd(2023, 2), []float64{2000, 800, 400, 1000, nan, 300, nan, 250, 150}},
	})
	cashflow := statementFrame(t, cashflowCols, []testRow{
		{"AAPL", quarterEnd(2023, 1), []float64{300, -100, -60, -40, -20, 80}},
		{"AAPL", quarterEnd(2023, 2), []float64{300, -100, nan, -40, -20, 80}},
	})

	out, err := Financial(income, balance, cashflow, FinancialOptions{})
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())

	want := map[domain.Column][]float64{
		domain.NetProfitMargin:    {0.15, nan},
		domain.GrossProfitMargin:  {0.4, nan},
		domain.RDRevenue:          {0.05, nan},
		domain.RDGrossProfit:      {0.125, 0.5},
		domain.RORC:               {8, 2},
		domain.InterestCoverage:   {20, nan},
		domain.CurrentRatio:       {2, 2},
		domain.QuickRatio:         {1, 1},
		domain.DebtRatio:          {0.2, nan},
		domain.ROA:                {0.075, 0.02},
		domain.ROE:                {0.15, 0.04},
		domain.AssetTurnover:      {0.5, 0},
		domain.InventoryTurnover:  {5, nan},
		domain.PayoutRatio:        {0.3, 0},
		domain.BuybackRatio:       {0.2, 0.2},
		domain.PayoutBuybackRatio: {0.5, 0.2},
		domain.AcqAssetsRatio:     {0.01, 0.01},
		domain.CapexDeprRatio:     {1.25, 1.25},
		domain.LogRevenue:         {3, nan},
	}
	for c, values := range want {
		assertValues(t, out, c, values)
	}
}

func TestFinancialWinsorize(t *testing.T) {
	netIncomes := []float64{10, 20, 30, 40, 1000}
	var incomeRows, balanceRows, cashflowRows []testRow
	for q, ni := range netIncomes {
		date := quarterEnd(2023, 1).AddDate(0, 3*q, 0)
		incomeRows = append(incomeRows, testRow{"AAPL", date,
			[]float64{1000, 400, 200, -10, ni, -50}})
		balanceRows = append(balanceRows, testRow{"AAPL", date,
			[]float64{2000, 800, 400, 1000, 100, 300, 200, 250, 150}})
		cashflowRows = append(cashflowRows, testRow{"AAPL", date,
			[]float64{300, -100, -60, -40, -20, 80}})
	}
	income := statementFrame(t, incomeCols, incomeRows)
	balance := statementFrame(t, balanceCols, balanceRows)
	cashflow := statementFrame(t, cashflowCols, cashflowRows)

	out, err := Financial(income, balance, cashflow, FinancialOptions{WinsorizeQuantile: 0.2})
	require.NoError(t, err)

	// Margins of 1%..4% and an outlier at 100%, clamped at the 20th
	// and 80th percentiles.
	assertValues(t, out, domain.NetProfitMargin, []float64{0.018, 0.02, 0.03, 0.04, 0.232})

	_, err = Financial(income, balance, cashflow, FinancialOptions{WinsorizeQuantile: 0.6})
	require.Error(t, err)
	assert.True(t, apierrors.IsType(err, apierrors.ErrTypeValidation))
}

func TestFinancialDailyCarry(t *testing.T) {
	income := statementFrame(t, incomeCols, []testRow{
		{"AAPL", quarterEnd(2023, 1), []float64{1000, 400, 200, -10, 150, -50}},
	})
	balance := statementFrame(t, balanceCols, []testRow{
		{"AAPL", quarterEnd(2023, 1), []float64{2000, 800, 400, 1000, 100, 300, 200, 250, 150}},
	})
	cashflow := statementFrame(t, cashflowCols, []testRow{
		{"AAPL", quarterEnd(2023, 1), []float64{300, -100, -60, -40, -20, 80}},
	})
	px := priceFrame(t, []domain.Column{domain.Close}, []testRow{
		{"AAPL", day(2023, time.April, 3), []float64{100}},
		{"AAPL", day(2023, time.April, 12), []float64{110}},
	})

	t.Run("no lag", func(t *testing.T) {
		out, err := Financial(income, balance, cashflow, FinancialOptions{Prices: px})
		require.NoError(t, err)
		require.Equal(t, 2, out.Len())
		assert.Equal(t, day(2023, time.April, 3), out.Date(0))
		assertValues(t, out, domain.NetProfitMargin, []float64{0.15, 0.15})
	})

	t.Run("publication lag", func(t *testing.T) {
		out, err := Financial(income, balance, cashflow, FinancialOptions{
			Prices:         px,
			DateOffsetDays: 10,
		})
		require.NoError(t, err)
		// Shifted to April 10th: invisible on the 3rd, carried on the 12th.
		assertValues(t, out, domain.NetProfitMargin, []float64{nan, 0.15})
	})
}

func TestFinancialMissingColumn(t *testing.T) {
	income := statementFrame(t, []domain.Column{domain.Revenue}, []testRow{
		{"AAPL", quarterEnd(2023, 1), []float64{1000}},
	})
	balance := statementFrame(t, balanceCols, []testRow{
		{"AAPL", quarterEnd(2023, 1), []float64{2000, 800, 400, 1000, 100, 300, 200, 250, 150}},
	})
	cashflow := statementFrame(t, cashflowCols, []testRow{
		{"AAPL", quarterEnd(2023, 1), []float64{300, -100, -60, -40, -20, 80}},
	})

	_, err := Financial(income, balance, cashflow, FinancialOptions{})
	require.Error(t, err)
	assert.True(t, apierrors.IsType(err, apierrors.ErrTypeValidation))
	assert.ErrorIs(t, err, frame.ErrColumnMissing)
}
