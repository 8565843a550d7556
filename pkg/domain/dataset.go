package domain

import (
	"errors"
	"fmt"
)

// Dataset identifies a bulk dataset offered by the vendor API.
type Dataset string

const (
	DatasetIncome            Dataset = "income"
	DatasetIncomeBanks       Dataset = "income-banks"
	DatasetIncomeInsurance   Dataset = "income-insurance"
	DatasetBalance           Dataset = "balance"
	DatasetBalanceBanks      Dataset = "balance-banks"
	DatasetBalanceInsurance  Dataset = "balance-insurance"
	DatasetCashflow          Dataset = "cashflow"
	DatasetCashflowBanks     Dataset = "cashflow-banks"
	DatasetCashflowInsurance Dataset = "cashflow-insurance"
	DatasetSharePrices       Dataset = "shareprices"
	DatasetCompanies         Dataset = "companies"
	DatasetIndustries        Dataset = "industries"
	DatasetMarkets           Dataset = "markets"
)

// Variant selects the reporting period or snapshot type of a dataset.
type Variant string

const (
	VariantAnnual    Variant = "annual"
	VariantQuarterly Variant = "quarterly"
	VariantTTM       Variant = "ttm"
	VariantDaily     Variant = "daily"
	VariantLatest    Variant = "latest"
	// VariantNone is used for datasets that have no variants.
	VariantNone Variant = ""
)

// Market selects the stock market a dataset covers.
type Market string

const (
	MarketUS Market = "us"
	MarketDE Market = "de"
	MarketSG Market = "sg"
	// MarketNone is used for global datasets that are not split by market.
	MarketNone Market = ""
)

// Sentinel errors for registry lookups. Callers match with errors.Is.
var (
	ErrUnknownDataset = errors.New("unknown dataset")
	ErrUnknownVariant = errors.New("unknown variant for dataset")
	ErrUnknownMarket  = errors.New("unknown market for dataset")
	ErrUnknownColumn  = errors.New("unknown column")
)

// Info describes one dataset in the closed registry: which variants and
// markets exist for it, which columns identify a row, which columns hold
// dates, and the full set of value columns the vendor ships.
type Info struct {
	Dataset     Dataset
	Variants    []Variant
	Markets     []Market
	EntityCol   Column
	DateCol     Column
	DateCols    []Column
	ValueCols   []Column
	StringCols  []Column
	Description string
}

// HasVariant reports whether v is valid for this dataset.
func (i Info) HasVariant(v Variant) bool {
	if len(i.Variants) == 0 {
		return v == VariantNone
	}
	for _, known := range i.Variants {
		if known == v {
			return true
		}
	}
	return false
}

// HasMarket reports whether m is valid for this dataset.
func (i Info) HasMarket(m Market) bool {
	if len(i.Markets) == 0 {
		return m == MarketNone
	}
	for _, known := range i.Markets {
		if known == m {
			return true
		}
	}
	return false
}

// HasColumn reports whether c is part of this dataset.
func (i Info) HasColumn(c Column) bool {
	if c == i.EntityCol {
		return true
	}
	for _, known := range i.DateCols {
		if known == c {
			return true
		}
	}
	for _, known := range i.ValueCols {
		if known == c {
			return true
		}
	}
	for _, known := range i.StringCols {
		if known == c {
			return true
		}
	}
	return false
}

var (
	fundamentalVariants = []Variant{VariantAnnual, VariantQuarterly, VariantTTM}
	defaultMarkets      = []Market{MarketUS, MarketDE, MarketSG}
)

var registry = map[Dataset]Info{
	DatasetIncome: {
		Dataset:     DatasetIncome,
		Variants:    fundamentalVariants,
		Markets:     defaultMarkets,
		EntityCol:   Ticker,
		DateCol:     ReportDate,
		DateCols:    []Column{ReportDate, PublishDate},
		ValueCols:   incomeColumns,
		StringCols:  []Column{Currency, FiscalYear, FiscalPeriod},
		Description: "Income Statements",
	},
	DatasetIncomeBanks: {
		Dataset:     DatasetIncomeBanks,
		Variants:    fundamentalVariants,
		Markets:     defaultMarkets,
		EntityCol:   Ticker,
		DateCol:     ReportDate,
		DateCols:    []Column{ReportDate, PublishDate},
		ValueCols:   incomeColumns,
		StringCols:  []Column{Currency, FiscalYear, FiscalPeriod},
		Description: "Income Statements (banks)",
	},
	DatasetIncomeInsurance: {
		Dataset:     DatasetIncomeInsurance,
		Variants:    fundamentalVariants,
		Markets:     defaultMarkets,
		EntityCol:   Ticker,
		DateCol:     ReportDate,
		DateCols:    []Column{ReportDate, PublishDate},
		ValueCols:   incomeColumns,
		StringCols:  []Column{Currency, FiscalYear, FiscalPeriod},
		Description: "Income Statements (insurance)",
	},
	DatasetBalance: {
		Dataset:     DatasetBalance,
		Variants:    fundamentalVariants,
		Markets:     defaultMarkets,
		EntityCol:   Ticker,
		DateCol:     ReportDate,
		DateCols:    []Column{ReportDate, PublishDate},
		ValueCols:   balanceColumns,
		StringCols:  []Column{Currency, FiscalYear, FiscalPeriod},
		Description: "Balance Sheets",
	},
	DatasetBalanceBanks: {
		Dataset:     DatasetBalanceBanks,
		Variants:    fundamentalVariants,
		Markets:     defaultMarkets,
		EntityCol:   Ticker,
		DateCol:     ReportDate,
		DateCols:    []Column{ReportDate, PublishDate},
		ValueCols:   balanceColumns,
		StringCols:  []Column{Currency, FiscalYear, FiscalPeriod},
		Description: "Balance Sheets (banks)",
	},
	DatasetBalanceInsurance: {
		Dataset:     DatasetBalanceInsurance,
		Variants:    fundamentalVariants,
		Markets:     defaultMarkets,
		EntityCol:   Ticker,
		DateCol:     ReportDate,
		DateCols:    []Column{ReportDate, PublishDate},
		ValueCols:   balanceColumns,
		StringCols:  []Column{Currency, FiscalYear, FiscalPeriod},
		Description: "Balance Sheets (insurance)",
	},
	DatasetCashflow: {
		Dataset:     DatasetCashflow,
		Variants:    fundamentalVariants,
		Markets:     defaultMarkets,
		EntityCol:   Ticker,
		DateCol:     ReportDate,
		DateCols:    []Column{ReportDate, PublishDate},
		ValueCols:   cashflowColumns,
		StringCols:  []Column{Currency, FiscalYear, FiscalPeriod},
		Description: "Cash-Flow Statements",
	},
	DatasetCashflowBanks: {
		Dataset:     DatasetCashflowBanks,
		Variants:    fundamentalVariants,
		Markets:     defaultMarkets,
		EntityCol:   Ticker,
		DateCol:     ReportDate,
		DateCols:    []Column{ReportDate, PublishDate},
		ValueCols:   cashflowColumns,
		StringCols:  []Column{Currency, FiscalYear, FiscalPeriod},
		Description: "Cash-Flow Statements (banks)",
	},
	DatasetCashflowInsurance: {
		Dataset:     DatasetCashflowInsurance,
		Variants:    fundamentalVariants,
		Markets:     defaultMarkets,
		EntityCol:   Ticker,
		DateCol:     ReportDate,
		DateCols:    []Column{ReportDate, PublishDate},
		ValueCols:   cashflowColumns,
		StringCols:  []Column{Currency, FiscalYear, FiscalPeriod},
		Description: "Cash-Flow Statements (insurance)",
	},
	DatasetSharePrices: {
		Dataset:     DatasetSharePrices,
		Variants:    []Variant{VariantDaily, VariantLatest},
		Markets:     defaultMarkets,
		EntityCol:   Ticker,
		DateCol:     Date,
		DateCols:    []Column{Date},
		ValueCols:   sharePriceColumns,
		Description: "Share Prices",
	},
	DatasetCompanies: {
		Dataset:     DatasetCompanies,
		Variants:    nil,
		Markets:     defaultMarkets,
		EntityCol:   Ticker,
		ValueCols:   []Column{IndustryID},
		StringCols:  []Column{CompanyName, VendorID},
		Description: "Company Details",
	},
	DatasetIndustries: {
		Dataset:     DatasetIndustries,
		Variants:    nil,
		Markets:     nil,
		EntityCol:   IndustryID,
		StringCols:  []Column{Sector, Industry},
		Description: "Industries",
	},
	DatasetMarkets: {
		Dataset:     DatasetMarkets,
		Variants:    nil,
		Markets:     nil,
		EntityCol:   MarketID,
		StringCols:  []Column{MarketName, Currency},
		Description: "Markets",
	},
}

// Datasets returns the names of all datasets in the registry.
func Datasets() []Dataset {
	out := make([]Dataset, 0, len(registry))
	for d := range registry {
		out = append(out, d)
	}
	return out
}

// Lookup returns the registry entry for d.
func Lookup(d Dataset) (Info, error) {
	info, ok := registry[d]
	if !ok {
		return Info{}, fmt.Errorf("%w: %q", ErrUnknownDataset, string(d))
	}
	return info, nil
}

// Validate checks that the (dataset, variant, market) combination exists in
// the registry. Unknown names fail fast here, before any download or load.
func Validate(d Dataset, v Variant, m Market) (Info, error) {
	info, err := Lookup(d)
	if err != nil {
		return Info{}, err
	}
	if !info.HasVariant(v) {
		return Info{}, fmt.Errorf("%w %q: %q", ErrUnknownVariant, string(d), string(v))
	}
	if !info.HasMarket(m) {
		return Info{}, fmt.Errorf("%w %q: %q", ErrUnknownMarket, string(d), string(m))
	}
	return info, nil
}

// Filename returns the canonical local file name for a dataset download,
// e.g. "income-ttm-us.csv" or "industries.csv".
func Filename(d Dataset, v Variant, m Market) string {
	name := string(d)
	if v != VariantNone {
		name += "-" + string(v)
	}
	if m != MarketNone {
		name += "-" + string(m)
	}
	return name + ".csv"
}
