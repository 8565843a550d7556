package signals

import (
	"fmt"
	"math"

	apierrors "fundata/internal/errors"
	"fundata/pkg/domain"
	"fundata/pkg/frame"
)

// FreeCashFlow returns a one-column frame with Free Cash Flow per row:
// operating cash flow plus capital expenditures, which the feed
// reports as a negative number. Missing operands count as zero.
func FreeCashFlow(cashflow *frame.Frame) (*frame.Frame, error) {
	ops, err := column(cashflow, domain.NetCashOps)
	if err != nil {
		return nil, err
	}
	capex, err := column(cashflow, domain.Capex)
	if err != nil {
		return nil, err
	}
	out, err := indexOnly(cashflow)
	if err != nil {
		return nil, err
	}
	if err := addColumn(out, domain.FreeCashFlow, add(filled(ops), filled(capex))); err != nil {
		return nil, err
	}
	return out, nil
}

// EBITDABasis selects which formula EBITDA starts from.
type EBITDABasis string

const (
	// EBITDANetIncome works up from net income, backing out interest
	// and taxes before adding depreciation and amortization.
	EBITDANetIncome EBITDABasis = "net-income"
	// EBITDAOperating starts from operating income, which already
	// excludes interest and taxes.
	EBITDAOperating EBITDABasis = "operating-income"
)

// EBITDA returns a one-column frame on the income statement's index.
// Depreciation and amortization comes from the cash flow statement,
// matched by entity and report date. Missing operands count as zero.
func EBITDA(income, cashflow *frame.Frame, basis EBITDABasis) (*frame.Frame, error) {
	combined, err := income.Join(cashflow, domain.DeprAmor)
	if err != nil {
		return nil, apierrors.NewConflictError("joining depreciation onto income", err)
	}
	depr, err := column(combined, domain.DeprAmor)
	if err != nil {
		return nil, err
	}

	var values []float64
	switch basis {
	case EBITDANetIncome:
		netIncome, err := column(combined, domain.NetIncome)
		if err != nil {
			return nil, err
		}
		interest, err := column(combined, domain.InterestExpNet)
		if err != nil {
			return nil, err
		}
		tax, err := column(combined, domain.IncomeTax)
		if err != nil {
			return nil, err
		}
		values = add(sub(sub(filled(netIncome), filled(interest)), filled(tax)), filled(depr))
	case EBITDAOperating:
		opIncome, err := column(combined, domain.OperatingIncome)
		if err != nil {
			return nil, err
		}
		values = add(filled(opIncome), filled(depr))
	default:
		return nil, apierrors.NewValidationError(
			fmt.Sprintf("unknown EBITDA basis %q", string(basis)), nil)
	}

	out, err := indexOnly(income)
	if err != nil {
		return nil, err
	}
	if err := addColumn(out, domain.EBITDA, values); err != nil {
		return nil, err
	}
	return out, nil
}

// NCAV returns the Net Current Asset Value, a conservative liquidation
// estimate: current assets minus all liabilities. Missing operands
// propagate, because treating an unknown liability as zero would
// overstate the value.
func NCAV(balance *frame.Frame) (*frame.Frame, error) {
	curAssets, err := column(balance, domain.TotalCurAssets)
	if err != nil {
		return nil, err
	}
	liabilities, err := column(balance, domain.TotalLiabilities)
	if err != nil {
		return nil, err
	}
	out, err := indexOnly(balance)
	if err != nil {
		return nil, err
	}
	if err := addColumn(out, domain.NCAV, sub(curAssets, liabilities)); err != nil {
		return nil, err
	}
	return out, nil
}

// NetNet returns the NetNet Working Capital, stricter still than NCAV:
// cash at full value, receivables at 75%, inventories at 50%, minus
// all liabilities. Missing asset parts count as zero; missing
// liabilities propagate.
func NetNet(balance *frame.Frame) (*frame.Frame, error) {
	cash, err := column(balance, domain.CashEquivStInvest)
	if err != nil {
		return nil, err
	}
	recv, err := column(balance, domain.AccNotesRecv)
	if err != nil {
		return nil, err
	}
	inv, err := column(balance, domain.Inventories)
	if err != nil {
		return nil, err
	}
	liabilities, err := column(balance, domain.TotalLiabilities)
	if err != nil {
		return nil, err
	}

	assets := add(filled(cash), add(scale(filled(recv), 0.75), scale(filled(inv), 0.5)))

	out, err := indexOnly(balance)
	if err != nil {
		return nil, err
	}
	if err := addColumn(out, domain.NetNet, sub(assets, liabilities)); err != nil {
		return nil, err
	}
	return out, nil
}

// Shares returns a one-column frame with the share count, preferring
// the given column and filling gaps from the other count. Only the
// basic and diluted counts are valid choices.
func Shares(f *frame.Frame, primary domain.Column) (*frame.Frame, error) {
	var fallbackCol domain.Column
	switch primary {
	case domain.SharesBasic:
		fallbackCol = domain.SharesDiluted
	case domain.SharesDiluted:
		fallbackCol = domain.SharesBasic
	default:
		return nil, apierrors.NewValidationError(
			fmt.Sprintf("share count column %q", string(primary)), nil)
	}

	counts, err := column(f, primary)
	if err != nil {
		return nil, err
	}
	fallback, err := column(f, fallbackCol)
	if err != nil {
		return nil, err
	}

	values := make([]float64, len(counts))
	for i, v := range counts {
		if math.IsNaN(v) {
			v = fallback[i]
		}
		values[i] = v
	}

	out, err := indexOnly(f)
	if err != nil {
		return nil, err
	}
	if err := addColumn(out, domain.Shares, values); err != nil {
		return nil, err
	}
	return out, nil
}
