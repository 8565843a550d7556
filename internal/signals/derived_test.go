package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "fundata/internal/errors"
	"fundata/pkg/domain"
)

func TestFreeCashFlow(t *testing.T) {
	cashflow := statementFrame(t,
		[]domain.Column{domain.NetCashOps, domain.Capex},
		[]testRow{
			{"AAPL", quarterEnd(2023, 1), []float64{100, -30}},
			{"AAPL", quarterEnd(2023, 2), []float64{nan, -30}},
			{"AAPL", quarterEnd(2023, 3), []float64{50, nan}},
		})

	fcf, err := FreeCashFlow(cashflow)
	require.NoError(t, err)
	assertValues(t, fcf, domain.FreeCashFlow, []float64{70, -30, 50})
}

func TestEBITDA(t *testing.T) {
	income := statementFrame(t,
		[]domain.Column{domain.NetIncome, domain.InterestExpNet, domain.IncomeTax, domain.OperatingIncome},
		[]testRow{
			{"AAPL", quarterEnd(2023, 1), []float64{80, -5, -20, 100}},
			{"AAPL", quarterEnd(2023, 2), []float64{90, nan, -25, 110}},
		})
	cashflow := statementFrame(t,
		[]domain.Column{domain.DeprAmor},
		[]testRow{
			{"AAPL", quarterEnd(2023, 1), []float64{30}},
			// No second-quarter row: the missing join counts as zero.
		})

	t.Run("net income basis", func(t *testing.T) {
		f, err := EBITDA(income, cashflow, EBITDANetIncome)
		require.NoError(t, err)
		// 80 - (-5) - (-20) + 30, then 90 - 0 - (-25) + 0.
		assertValues(t, f, domain.EBITDA, []float64{135, 115})
	})

	t.Run("operating income basis", func(t *testing.T) {
		f, err := EBITDA(income, cashflow, EBITDAOperating)
		require.NoError(t, err)
		assertValues(t, f, domain.EBITDA, []float64{130, 110})
	})

	t.Run("unknown basis", func(t *testing.T) {
		_, err := EBITDA(income, cashflow, EBITDABasis("ebit"))
		require.Error(t, err)
		assert.True(t, apierrors.IsType(err, apierrors.ErrTypeValidation))
	})
}

func TestNCAV(t *testing.T) {
	balance := statementFrame(t,
		[]domain.Column{domain.TotalCurAssets, domain.TotalLiabilities},
		[]testRow{
			{"AAPL", quarterEnd(2023, 1), []float64{200, 120}},
			{"AAPL", quarterEnd(2023, 2), []float64{210, nan}},
		})

	f, err := NCAV(balance)
	require.NoError(t, err)
	assertValues(t, f, domain.NCAV, []float64{80, nan})
}

func TestNetNet(t *testing.T) {
	cols := []domain.Column{
		domain.CashEquivStInvest, domain.AccNotesRecv, domain.Inventories, domain.TotalLiabilities,
	}
	balance := statementFrame(t, cols, []testRow{
		{"AAPL", quarterEnd(2023, 1), []float64{50, 40, 20, 60}},
		{"AAPL", quarterEnd(2023, 2), []float64{50, nan, 20, 60}},
		{"AAPL", quarterEnd(2023, 3), []float64{50, 40, 20, nan}},
	})

	f, err := NetNet(balance)
	require.NoError(t, err)
	// 50 + 0.75*40 + 0.5*20 - 60, with missing assets as zero and
	// missing liabilities poisoning the row.
	assertValues(t, f, domain.NetNet, []float64{30, 0, nan})
}

func TestShares(t *testing.T) {
	f := statementFrame(t,
		[]domain.Column{domain.SharesBasic, domain.SharesDiluted},
		[]testRow{
			{"AAPL", quarterEnd(2023, 1), []float64{100, 105}},
			{"AAPL", quarterEnd(2023, 2), []float64{nan, 110}},
			{"AAPL", quarterEnd(2023, 3), []float64{102, nan}},
		})

	t.Run("diluted primary", func(t *testing.T) {
		counts, err := Shares(f, domain.SharesDiluted)
		require.NoError(t, err)
		assertValues(t, counts, domain.Shares, []float64{105, 110, 102})
	})

	t.Run("basic primary", func(t *testing.T) {
		counts, err := Shares(f, domain.SharesBasic)
		require.NoError(t, err)
		assertValues(t, counts, domain.Shares, []float64{100, 110, 102})
	})

	t.Run("invalid primary", func(t *testing.T) {
		_, err := Shares(f, domain.Close)
		require.Error(t, err)
		assert.True(t, apierrors.IsType(err, apierrors.ErrTypeValidation))
	})
}
