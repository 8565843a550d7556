package signals

import (
	apierrors "fundata/internal/errors"
	"fundata/internal/transform"
	"fundata/pkg/domain"
	"fundata/pkg/frame"
)

// ValuationOptions parameterizes Valuation.
type ValuationOptions struct {
	// Fill is how statement figures are carried onto price dates.
	// Defaults to forward fill.
	Fill domain.FillMethod
	// DateOffsetDays shifts the statement dates forward to model
	// publication lag.
	DateOffsetDays int
	// SharesCol is the primary share count for per-share figures.
	// Defaults to the diluted count, which includes the potential
	// impact of stock options.
	SharesCol domain.Column
}

// valuationFigures are the statement values that become per-share
// numbers before meeting the share price.
var valuationFigures = []domain.Column{
	domain.Revenue, domain.NetIncomeCommon, domain.FreeCashFlow,
	domain.TotalEquity, domain.NCAV, domain.NetNet,
	domain.CashEquivStInvest, domain.DividendsPaid,
}

// Valuation computes price multiples and yields on daily price rows.
// TTM statement figures are turned into per-share numbers, carried
// onto the daily dates without looking ahead, and divided into (or by)
// the closing price. MarketCap is the closing price times the share
// count itself. Price rows with no statement history yet are missing.
func Valuation(prices, incomeTTM, balanceTTM, cashflowTTM *frame.Frame, opts ValuationOptions) (*frame.Frame, error) {
	if opts.Fill == "" {
		opts.Fill = domain.FillForward
	}
	if opts.SharesCol == "" {
		opts.SharesCol = domain.SharesDiluted
	}

	base, err := valuationBase(incomeTTM, balanceTTM, cashflowTTM)
	if err != nil {
		return nil, err
	}
	if opts.DateOffsetDays != 0 {
		base, err = transform.ShiftDates(base, opts.DateOffsetDays)
		if err != nil {
			return nil, err
		}
	}

	counts, err := Shares(base, opts.SharesCol)
	if err != nil {
		return nil, err
	}
	shareCounts, err := column(counts, domain.Shares)
	if err != nil {
		return nil, err
	}

	perShare, err := indexOnly(base)
	if err != nil {
		return nil, err
	}
	for _, c := range valuationFigures {
		values, err := column(base, c)
		if err != nil {
			return nil, err
		}
		if err := addColumn(perShare, c, div(values, shareCounts)); err != nil {
			return nil, err
		}
	}

	px, err := sortedCopy(prices).Select(domain.Close)
	if err != nil {
		return nil, wrapInput("valuation signals", err)
	}
	daily, err := transform.Reindex(perShare, px, opts.Fill)
	if err != nil {
		return nil, err
	}
	countsDaily, err := transform.Reindex(counts, px, opts.Fill)
	if err != nil {
		return nil, err
	}
	combined, err := px.Join(daily)
	if err != nil {
		return nil, apierrors.NewConflictError("joining per-share figures onto prices", err)
	}
	combined, err = combined.Join(countsDaily)
	if err != nil {
		return nil, apierrors.NewConflictError("joining share counts onto prices", err)
	}

	get := func(c domain.Column) ([]float64, error) { return column(combined, c) }
	closes, err := get(domain.Close)
	if err != nil {
		return nil, err
	}
	revenue, err := get(domain.Revenue)
	if err != nil {
		return nil, err
	}
	earnings, err := get(domain.NetIncomeCommon)
	if err != nil {
		return nil, err
	}
	fcf, err := get(domain.FreeCashFlow)
	if err != nil {
		return nil, err
	}
	book, err := get(domain.TotalEquity)
	if err != nil {
		return nil, err
	}
	ncav, err := get(domain.NCAV)
	if err != nil {
		return nil, err
	}
	netnet, err := get(domain.NetNet)
	if err != nil {
		return nil, err
	}
	cash, err := get(domain.CashEquivStInvest)
	if err != nil {
		return nil, err
	}
	dividends, err := get(domain.DividendsPaid)
	if err != nil {
		return nil, err
	}
	sharesDaily, err := get(domain.Shares)
	if err != nil {
		return nil, err
	}

	out, err := indexOnly(combined)
	if err != nil {
		return nil, err
	}
	multiples := []struct {
		name   domain.Column
		values []float64
	}{
		{domain.PSales, div(closes, revenue)},
		{domain.PE, div(closes, earnings)},
		{domain.PFCF, div(closes, fcf)},
		{domain.PBook, div(closes, book)},
		{domain.PNCAV, div(closes, ncav)},
		{domain.PNetNet, div(closes, netnet)},
		{domain.PCash, div(closes, cash)},
		{domain.EarningsYield, div(earnings, closes)},
		{domain.FCFYield, div(fcf, closes)},
		{domain.DividendYield, div(neg(dividends), closes)},
		{domain.MarketCap, mul(sharesDaily, closes)},
	}
	for _, m := range multiples {
		if err := addColumn(out, m.name, m.values); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// valuationBase assembles the statement figures on the income
// statement's index, including the derived liquidation values.
func valuationBase(income, balance, cashflow *frame.Frame) (*frame.Frame, error) {
	base, err := sortedCopy(income).Select(
		domain.Revenue, domain.NetIncomeCommon, domain.SharesBasic, domain.SharesDiluted)
	if err != nil {
		return nil, wrapInput("valuation signals", err)
	}
	base, err = base.Join(balance, domain.TotalEquity, domain.CashEquivStInvest)
	if err != nil {
		return nil, wrapInput("valuation signals", err)
	}
	base, err = base.Join(cashflow, domain.DividendsPaid)
	if err != nil {
		return nil, wrapInput("valuation signals", err)
	}

	fcf, err := FreeCashFlow(cashflow)
	if err != nil {
		return nil, err
	}
	ncav, err := NCAV(balance)
	if err != nil {
		return nil, err
	}
	netnet, err := NetNet(balance)
	if err != nil {
		return nil, err
	}
	for _, derived := range []*frame.Frame{fcf, ncav, netnet} {
		base, err = base.Join(derived)
		if err != nil {
			return nil, apierrors.NewConflictError("joining derived figures", err)
		}
	}
	return base, nil
}
