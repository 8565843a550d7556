package signals

import (
	apierrors "fundata/internal/errors"
	"fundata/internal/transform"
	"fundata/pkg/domain"
	"fundata/pkg/frame"
)

// GrowthOptions parameterizes Growth.
type GrowthOptions struct {
	// Prices, when set, carries the signals onto its daily dates.
	Prices *frame.Frame
	// Fill is how signals are carried onto price dates. Defaults to
	// forward fill.
	Fill domain.FillMethod
	// DateOffsetDays shifts the statement dates forward to model
	// publication lag.
	DateOffsetDays int
}

// Growth computes growth signals for revenue, earnings, free cash
// flow and total assets. Three variants are produced for each figure:
// the plain signal compares TTM values one year apart, the YOY signal
// compares quarterly values one year apart, and the QOQ signal
// compares consecutive quarters. Rows without enough history are
// missing.
func Growth(incomeTTM, incomeQ, balanceTTM, balanceQ, cashflowTTM, cashflowQ *frame.Frame, opts GrowthOptions) (*frame.Frame, error) {
	if opts.Fill == "" {
		opts.Fill = domain.FillForward
	}

	ttm, err := growthBase(incomeTTM, balanceTTM, cashflowTTM)
	if err != nil {
		return nil, err
	}
	qrt, err := growthBase(incomeQ, balanceQ, cashflowQ)
	if err != nil {
		return nil, err
	}

	annual, err := transform.RelChange(ttm, transform.ChangeOptions{
		Freq: domain.FreqQuarterly,
		Span: domain.SpanQuarters(4),
		Rename: map[domain.Column]domain.Column{
			domain.Revenue:      domain.SalesGrowth,
			domain.NetIncome:    domain.EarningsGrowth,
			domain.FreeCashFlow: domain.FCFGrowth,
			domain.TotalAssets:  domain.AssetsGrowth,
		},
	})
	if err != nil {
		return nil, err
	}

	yoy, err := transform.RelChange(qrt, transform.ChangeOptions{
		Freq: domain.FreqQuarterly,
		Span: domain.SpanQuarters(4),
		Rename: map[domain.Column]domain.Column{
			domain.Revenue:      domain.SalesGrowthYOY,
			domain.NetIncome:    domain.EarningsGrowthYOY,
			domain.FreeCashFlow: domain.FCFGrowthYOY,
			domain.TotalAssets:  domain.AssetsGrowthYOY,
		},
	})
	if err != nil {
		return nil, err
	}

	qoq, err := transform.RelChange(qrt, transform.ChangeOptions{
		Freq: domain.FreqQuarterly,
		Span: domain.SpanQuarters(1),
		Rename: map[domain.Column]domain.Column{
			domain.Revenue:      domain.SalesGrowthQOQ,
			domain.NetIncome:    domain.EarningsGrowthQOQ,
			domain.FreeCashFlow: domain.FCFGrowthQOQ,
			domain.TotalAssets:  domain.AssetsGrowthQOQ,
		},
	})
	if err != nil {
		return nil, err
	}

	out, err := annual.Join(yoy)
	if err != nil {
		return nil, apierrors.NewConflictError("combining growth variants", err)
	}
	out, err = out.Join(qoq)
	if err != nil {
		return nil, apierrors.NewConflictError("combining growth variants", err)
	}
	return finish(out, opts.DateOffsetDays, opts.Prices, opts.Fill)
}

// growthBase assembles the four figures the growth signals derive
// from, on the income statement's index.
func growthBase(income, balance, cashflow *frame.Frame) (*frame.Frame, error) {
	base, err := sortedCopy(income).Select(domain.Revenue, domain.NetIncome)
	if err != nil {
		return nil, wrapInput("growth signals", err)
	}
	fcf, err := FreeCashFlow(cashflow)
	if err != nil {
		return nil, err
	}
	base, err = base.Join(fcf)
	if err != nil {
		return nil, apierrors.NewConflictError("joining free cash flow", err)
	}
	base, err = base.Join(balance, domain.TotalAssets)
	if err != nil {
		return nil, wrapInput("growth signals", err)
	}
	return base, nil
}
