package domain

// Company is one row of the companies dataset.
type Company struct {
	Ticker     string
	VendorID   string
	Name       string
	IndustryID int
}

// IndustryInfo is one row of the industries dataset, keyed by the
// numeric industry ID the companies dataset references.
type IndustryInfo struct {
	IndustryID int
	Sector     string
	Industry   string
}

// MarketInfo is one row of the markets dataset.
type MarketInfo struct {
	ID       string
	Name     string
	Currency string
}
