package signals

import (
	apierrors "fundata/internal/errors"
	"fundata/internal/transform"
	"fundata/pkg/domain"
	"fundata/pkg/frame"
)

// FinancialOptions parameterizes Financial.
type FinancialOptions struct {
	// Prices, when set, carries the signals onto its daily dates.
	Prices *frame.Frame
	// Fill is how signals are carried onto price dates. Defaults to
	// forward fill.
	Fill domain.FillMethod
	// DateOffsetDays shifts the statement dates forward to model
	// publication lag.
	DateOffsetDays int
	// WinsorizeQuantile clamps every signal column at the q and 1-q
	// quantiles across all rows. Zero disables it.
	WinsorizeQuantile float64
}

// Financial computes ratio signals from TTM statements, one row per
// report. Each ratio divides per-row figures from the income
// statement, balance sheet and cash flow statement, matched by entity
// and report date on the income statement's index. A missing or zero
// denominator makes the ratio missing.
func Financial(income, balance, cashflow *frame.Frame, opts FinancialOptions) (*frame.Frame, error) {
	if opts.Fill == "" {
		opts.Fill = domain.FillForward
	}

	combined, err := combineStatements(income, balance, cashflow)
	if err != nil {
		return nil, err
	}

	get := func(c domain.Column) ([]float64, error) { return column(combined, c) }
	revenue, err := get(domain.Revenue)
	if err != nil {
		return nil, err
	}
	grossProfit, err := get(domain.GrossProfit)
	if err != nil {
		return nil, err
	}
	operatingIncome, err := get(domain.OperatingIncome)
	if err != nil {
		return nil, err
	}
	interest, err := get(domain.InterestExpNet)
	if err != nil {
		return nil, err
	}
	netIncome, err := get(domain.NetIncome)
	if err != nil {
		return nil, err
	}
	researchDev, err := get(domain.ResearchDev)
	if err != nil {
		return nil, err
	}
	totalAssets, err := get(domain.TotalAssets)
	if err != nil {
		return nil, err
	}
	curAssets, err := get(domain.TotalCurAssets)
	if err != nil {
		return nil, err
	}
	curLiab, err := get(domain.TotalCurLiab)
	if err != nil {
		return nil, err
	}
	equity, err := get(domain.TotalEquity)
	if err != nil {
		return nil, err
	}
	stDebt, err := get(domain.StDebt)
	if err != nil {
		return nil, err
	}
	ltDebt, err := get(domain.LtDebt)
	if err != nil {
		return nil, err
	}
	inventories, err := get(domain.Inventories)
	if err != nil {
		return nil, err
	}
	cash, err := get(domain.CashEquivStInvest)
	if err != nil {
		return nil, err
	}
	receivables, err := get(domain.AccNotesRecv)
	if err != nil {
		return nil, err
	}
	dividends, err := get(domain.DividendsPaid)
	if err != nil {
		return nil, err
	}
	buybacks, err := get(domain.CashRepurchaseEquity)
	if err != nil {
		return nil, err
	}
	acquisitions, err := get(domain.NetCashAcq)
	if err != nil {
		return nil, err
	}
	capex, err := get(domain.Capex)
	if err != nil {
		return nil, err
	}
	depr, err := get(domain.DeprAmor)
	if err != nil {
		return nil, err
	}
	fcf, err := get(domain.FreeCashFlow)
	if err != nil {
		return nil, err
	}

	out, err := indexOnly(combined)
	if err != nil {
		return nil, err
	}

	// Research & development, interest, dividends, buybacks, capex and
	// acquisitions are reported as negative outflows, hence the
	// negations below.
	ratios := []struct {
		name   domain.Column
		values []float64
	}{
		{domain.NetProfitMargin, div(netIncome, revenue)},
		{domain.GrossProfitMargin, div(grossProfit, revenue)},
		{domain.RDRevenue, div(neg(researchDev), revenue)},
		{domain.RDGrossProfit, div(neg(researchDev), grossProfit)},
		{domain.RORC, div(grossProfit, neg(researchDev))},
		{domain.InterestCoverage, div(operatingIncome, neg(interest))},
		{domain.CurrentRatio, div(curAssets, curLiab)},
		{domain.QuickRatio, div(add(cash, filled(receivables)), curLiab)},
		{domain.DebtRatio, div(add(stDebt, ltDebt), totalAssets)},
		{domain.ROA, div(netIncome, totalAssets)},
		{domain.ROE, div(netIncome, equity)},
		{domain.AssetTurnover, div(revenue, totalAssets)},
		{domain.InventoryTurnover, div(revenue, inventories)},
		{domain.PayoutRatio, div(neg(filled(dividends)), fcf)},
		{domain.BuybackRatio, div(neg(filled(buybacks)), fcf)},
		{domain.PayoutBuybackRatio, div(neg(add(filled(dividends), filled(buybacks))), fcf)},
		{domain.AcqAssetsRatio, div(neg(acquisitions), totalAssets)},
		{domain.CapexDeprRatio, div(neg(capex), depr)},
		{domain.LogRevenue, log10s(revenue)},
	}
	for _, r := range ratios {
		if err := addColumn(out, r.name, r.values); err != nil {
			return nil, err
		}
	}

	if opts.WinsorizeQuantile != 0 {
		out, err = transform.Winsorize(out, opts.WinsorizeQuantile)
		if err != nil {
			return nil, err
		}
	}
	return finish(out, opts.DateOffsetDays, opts.Prices, opts.Fill)
}

// combineStatements joins balance sheet, cash flow and derived free
// cash flow figures onto the income statement's index.
func combineStatements(income, balance, cashflow *frame.Frame) (*frame.Frame, error) {
	base := sortedCopy(income)
	combined, err := base.Join(balance,
		domain.TotalAssets, domain.TotalCurAssets, domain.TotalCurLiab,
		domain.TotalEquity, domain.StDebt, domain.LtDebt, domain.Inventories,
		domain.CashEquivStInvest, domain.AccNotesRecv)
	if err != nil {
		return nil, wrapInput("joining balance sheet", err)
	}
	combined, err = combined.Join(cashflow,
		domain.DividendsPaid, domain.CashRepurchaseEquity, domain.NetCashAcq,
		domain.Capex, domain.DeprAmor)
	if err != nil {
		return nil, wrapInput("joining cash flow statement", err)
	}
	fcf, err := FreeCashFlow(cashflow)
	if err != nil {
		return nil, err
	}
	combined, err = combined.Join(fcf)
	if err != nil {
		return nil, apierrors.NewConflictError("joining free cash flow", err)
	}
	return combined, nil
}

// finish applies the publication lag and the optional carry onto
// daily price dates, shared by the statement-based families.
func finish(out *frame.Frame, offsetDays int, prices *frame.Frame, fill domain.FillMethod) (*frame.Frame, error) {
	var err error
	if offsetDays != 0 {
		out, err = transform.ShiftDates(out, offsetDays)
		if err != nil {
			return nil, err
		}
	}
	if prices != nil {
		out, err = transform.Reindex(out, sortedCopy(prices), fill)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
