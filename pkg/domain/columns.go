package domain

// Column is the name of one table column. The catalog below is closed: a
// column unknown to the catalog cannot be loaded, requested, or written, so
// typos surface as errors instead of silent NaN columns.
type Column string

// Index and identity columns shared across datasets.
const (
	Ticker       Column = "Ticker"
	VendorID     Column = "VendorId"
	Date         Column = "Date"
	ReportDate   Column = "Report Date"
	PublishDate  Column = "Publish Date"
	Currency     Column = "Currency"
	FiscalYear   Column = "Fiscal Year"
	FiscalPeriod Column = "Fiscal Period"
)

// Income statement columns.
const (
	Revenue         Column = "Revenue"
	CostOfRevenue   Column = "Cost of Revenue"
	GrossProfit     Column = "Gross Profit"
	OperatingExp    Column = "Operating Expenses"
	SellingGenAdmin Column = "Selling, General & Administrative"
	ResearchDev     Column = "Research & Development"
	DeprAmorIncome  Column = "Depreciation & Amortization (IS)"
	OperatingIncome Column = "Operating Income (Loss)"
	NonOperatingInc Column = "Non-Operating Income (Loss)"
	InterestExpNet  Column = "Interest Expense, Net"
	PretaxIncome    Column = "Pretax Income (Loss)"
	IncomeTax       Column = "Income Tax (Expense) Benefit, Net"
	NetIncome       Column = "Net Income"
	NetIncomeCommon Column = "Net Income (Common)"
	SharesBasic     Column = "Shares (Basic)"
	SharesDiluted   Column = "Shares (Diluted)"
)

// Balance sheet columns.
const (
	CashEquivStInvest Column = "Cash, Cash Equivalents & Short Term Investments"
	AccNotesRecv      Column = "Accounts & Notes Receivable"
	Inventories       Column = "Inventories"
	TotalCurAssets    Column = "Total Current Assets"
	PropPlantEquipNet Column = "Property, Plant & Equipment, Net"
	LtInvestRecv      Column = "Long Term Investments & Receivables"
	OtherLtAssets     Column = "Other Long Term Assets"
	TotalNoncurAssets Column = "Total Noncurrent Assets"
	TotalAssets       Column = "Total Assets"
	PayablesAccruals  Column = "Payables & Accruals"
	StDebt            Column = "Short Term Debt"
	TotalCurLiab      Column = "Total Current Liabilities"
	LtDebt            Column = "Long Term Debt"
	TotalNoncurLiab   Column = "Total Noncurrent Liabilities"
	TotalLiabilities  Column = "Total Liabilities"
	ShareCapital      Column = "Share Capital & Additional Paid-In Capital"
	TreasuryStock     Column = "Treasury Stock"
	RetainedEarnings  Column = "Retained Earnings"
	TotalEquity       Column = "Total Equity"
)

// Cash-flow statement columns.
const (
	NetIncomeStartLine   Column = "Net Income/Starting Line"
	DeprAmor             Column = "Depreciation & Amortization"
	NonCashItems         Column = "Non-Cash Items"
	ChgWorkingCapital    Column = "Change in Working Capital"
	NetCashOps           Column = "Net Cash from Operating Activities"
	Capex                Column = "Change in Fixed Assets & Intangibles"
	NetCashAcq           Column = "Net Cash from Acquisitions & Divestitures"
	NetCashInvest        Column = "Net Cash from Investing Activities"
	DividendsPaid        Column = "Dividends Paid"
	CashRepayDebt        Column = "Cash from (Repayment of) Debt"
	CashRepurchaseEquity Column = "Cash from (Repurchase of) Equity"
	NetCashFin           Column = "Net Cash from Financing Activities"
	NetChgCash           Column = "Net Change in Cash"
)

// Share price columns.
const (
	Open              Column = "Open"
	High              Column = "High"
	Low               Column = "Low"
	Close             Column = "Close"
	AdjClose          Column = "Adj. Close"
	Volume            Column = "Volume"
	Dividend          Column = "Dividend"
	SharesOutstanding Column = "Shares Outstanding"
)

// Reference data columns.
const (
	CompanyName Column = "Company Name"
	IndustryID  Column = "IndustryId"
	Sector      Column = "Sector"
	Industry    Column = "Industry"
	MarketID    Column = "MarketId"
	MarketName  Column = "Market Name"
)

// Derived metric columns, computed rather than downloaded.
const (
	FreeCashFlow Column = "Free Cash Flow"
	EBITDA       Column = "EBITDA"
	NCAV         Column = "Net Current Asset Value"
	NetNet       Column = "NetNet Working Capital"
	Shares       Column = "Shares"
	MarketCap    Column = "Market-Cap"
	TotalReturn  Column = "Total Return"
)

// Price signal columns.
const (
	MovAvg20   Column = "MAVG 20"
	MovAvg200  Column = "MAVG 200"
	EMA        Column = "EMA"
	MACD       Column = "MACD"
	MACDSignal Column = "MACD Signal"
)

// Trade signal columns.
const (
	Buy  Column = "Buy"
	Sell Column = "Sell"
	Hold Column = "Hold"
)

// Volume signal columns.
const (
	RelVol         Column = "Relative Volume"
	VolumeMCap     Column = "Volume Market-Cap"
	VolumeTurnover Column = "Volume Turnover"
)

// Financial signal columns.
const (
	NetProfitMargin    Column = "Net Profit Margin"
	GrossProfitMargin  Column = "Gross Profit Margin"
	RDRevenue          Column = "R&D / Revenue"
	RDGrossProfit      Column = "R&D / Gross Profit"
	RORC               Column = "Return on Research Capital"
	InterestCoverage   Column = "Interest Coverage"
	CurrentRatio       Column = "Current Ratio"
	QuickRatio         Column = "Quick Ratio"
	DebtRatio          Column = "Debt Ratio"
	ROA                Column = "Return on Assets"
	ROE                Column = "Return on Equity"
	AssetTurnover      Column = "Asset Turnover"
	InventoryTurnover  Column = "Inventory Turnover"
	PayoutRatio        Column = "Payout Ratio"
	BuybackRatio       Column = "Buyback Ratio"
	PayoutBuybackRatio Column = "Payout + Buyback Ratio"
	AcqAssetsRatio     Column = "Net Acquisitions / Total Assets"
	CapexDeprRatio     Column = "CapEx / (Depr + Amor)"
	LogRevenue         Column = "Log Revenue"
)

// Growth signal columns.
const (
	SalesGrowth       Column = "Sales Growth"
	EarningsGrowth    Column = "Earnings Growth"
	FCFGrowth         Column = "FCF Growth"
	AssetsGrowth      Column = "Assets Growth"
	SalesGrowthYOY    Column = "Sales Growth YOY"
	EarningsGrowthYOY Column = "Earnings Growth YOY"
	FCFGrowthYOY      Column = "FCF Growth YOY"
	AssetsGrowthYOY   Column = "Assets Growth YOY"
	SalesGrowthQOQ    Column = "Sales Growth QOQ"
	EarningsGrowthQOQ Column = "Earnings Growth QOQ"
	FCFGrowthQOQ      Column = "FCF Growth QOQ"
	AssetsGrowthQOQ   Column = "Assets Growth QOQ"
)

// Valuation signal columns.
const (
	PSales        Column = "P/Sales"
	PE            Column = "P/E"
	PFCF          Column = "P/FCF"
	PBook         Column = "P/Book"
	PNCAV         Column = "P/NCAV"
	PNetNet       Column = "P/NetNet"
	PCash         Column = "P/Cash"
	EarningsYield Column = "Earnings Yield"
	FCFYield      Column = "FCF Yield"
	DividendYield Column = "Dividend Yield"
)

var incomeColumns = []Column{
	SharesBasic, SharesDiluted, Revenue, CostOfRevenue, GrossProfit,
	OperatingExp, SellingGenAdmin, ResearchDev, DeprAmorIncome,
	OperatingIncome, NonOperatingInc, InterestExpNet, PretaxIncome,
	IncomeTax, NetIncome, NetIncomeCommon,
}

var balanceColumns = []Column{
	SharesBasic, SharesDiluted, CashEquivStInvest, AccNotesRecv, Inventories,
	TotalCurAssets, PropPlantEquipNet, LtInvestRecv, OtherLtAssets,
	TotalNoncurAssets, TotalAssets, PayablesAccruals, StDebt, TotalCurLiab,
	LtDebt, TotalNoncurLiab, TotalLiabilities, ShareCapital, TreasuryStock,
	RetainedEarnings, TotalEquity,
}

var cashflowColumns = []Column{
	SharesBasic, SharesDiluted, NetIncomeStartLine, DeprAmor, NonCashItems,
	ChgWorkingCapital, NetCashOps, Capex, NetCashAcq, NetCashInvest,
	DividendsPaid, CashRepayDebt, CashRepurchaseEquity, NetCashFin,
	NetChgCash,
}

var sharePriceColumns = []Column{
	Open, High, Low, Close, AdjClose, Volume, Dividend, SharesOutstanding,
}
