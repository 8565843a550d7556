package feed

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	apierrors "fundata/internal/errors"
	"fundata/pkg/domain"
	"fundata/pkg/frame"
)

// DateFormat is the vendor's date layout.
const DateFormat = "2006-01-02"

// epochDay converts a date to whole days since the Unix epoch, the
// numeric encoding secondary date columns use inside frames.
func epochDay(t time.Time) float64 {
	return float64(t.Unix()) / 86400
}

// ReadDatasetFile parses a time-series dataset CSV into a frame.
//
// The header must consist of columns the dataset's registry entry
// knows; an unknown header fails fast naming the column. The entity
// and primary date columns become the frame index. Secondary date
// columns (publish dates) load as days since the Unix epoch, numeric
// columns as float64 with empty cells missing, and string columns
// (currency, fiscal period) are skipped: frames carry numbers only.
func ReadDatasetFile(path string, info domain.Info) (*frame.Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, apierrors.NewStorageError(
			fmt.Sprintf("dataset file %s not available", path), err)
	}
	defer file.Close()
	f, err := readDataset(file, info)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

func readDataset(r io.Reader, info domain.Info) (*frame.Frame, error) {
	reader := csv.NewReader(stripBOM(r))
	reader.Comma = ';'

	header, err := reader.Read()
	if err != nil {
		return nil, apierrors.NewParsingError("reading header", err)
	}

	layout, err := resolveHeader(header, info)
	if err != nil {
		return nil, err
	}

	out, err := frame.New(info.EntityCol, info.DateCol, layout.frameCols...)
	if err != nil {
		return nil, apierrors.NewParsingError("building frame", err)
	}

	values := make([]float64, len(layout.frameCols))
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apierrors.NewParsingError(fmt.Sprintf("line %d", line), err)
		}

		entity := strings.TrimSpace(record[layout.entityIdx])
		date, err := time.Parse(DateFormat, strings.TrimSpace(record[layout.dateIdx]))
		if err != nil {
			return nil, apierrors.NewParsingError(
				fmt.Sprintf("line %d: bad %s", line, string(info.DateCol)), err)
		}

		for i, src := range layout.sources {
			cell := strings.TrimSpace(record[src.idx])
			values[i], err = src.parse(cell)
			if err != nil {
				return nil, apierrors.NewParsingError(
					fmt.Sprintf("line %d: bad %s value %q", line, string(layout.frameCols[i]), cell), err)
			}
		}
		if err := out.AppendRow(entity, date, values); err != nil {
			return nil, apierrors.NewParsingError(fmt.Sprintf("line %d", line), err)
		}
	}

	out.SortCanonical()
	return out, nil
}

// cellSource maps one frame column to its CSV field and parser.
type cellSource struct {
	idx   int
	parse func(string) (float64, error)
}

type headerLayout struct {
	entityIdx int
	dateIdx   int
	frameCols []domain.Column
	sources   []cellSource
}

// resolveHeader validates the CSV header against the dataset's column
// catalog and plans which fields load into the frame.
func resolveHeader(header []string, info domain.Info) (*headerLayout, error) {
	layout := &headerLayout{entityIdx: -1, dateIdx: -1}
	seen := make(map[domain.Column]bool, len(header))

	for idx, cell := range header {
		name := domain.Column(strings.TrimSpace(cell))
		if !info.HasColumn(name) {
			return nil, apierrors.NewParsingError(
				fmt.Sprintf("dataset %s", string(info.Dataset)),
				fmt.Errorf("%w: %q", domain.ErrUnknownColumn, string(name)))
		}
		if seen[name] {
			return nil, apierrors.NewParsingError(
				fmt.Sprintf("duplicate column %q", string(name)), nil)
		}
		seen[name] = true

		switch {
		case name == info.EntityCol:
			layout.entityIdx = idx
		case name == info.DateCol:
			layout.dateIdx = idx
		case isIn(name, info.DateCols):
			layout.frameCols = append(layout.frameCols, name)
			layout.sources = append(layout.sources, cellSource{idx: idx, parse: parseDateCell})
		case isIn(name, info.ValueCols):
			layout.frameCols = append(layout.frameCols, name)
			layout.sources = append(layout.sources, cellSource{idx: idx, parse: parseFloatCell})
		}
		// String columns validate but do not load.
	}

	if layout.entityIdx < 0 {
		return nil, apierrors.NewParsingError(
			fmt.Sprintf("missing %s column", string(info.EntityCol)), nil)
	}
	if layout.dateIdx < 0 {
		return nil, apierrors.NewParsingError(
			fmt.Sprintf("missing %s column", string(info.DateCol)), nil)
	}
	return layout, nil
}

func isIn(c domain.Column, cols []domain.Column) bool {
	for _, known := range cols {
		if known == c {
			return true
		}
	}
	return false
}

func parseFloatCell(cell string) (float64, error) {
	if cell == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(cell, 64)
}

func parseDateCell(cell string) (float64, error) {
	if cell == "" {
		return math.NaN(), nil
	}
	t, err := time.Parse(DateFormat, cell)
	if err != nil {
		return 0, err
	}
	return epochDay(t), nil
}

// stripBOM removes a UTF-8 byte order mark so files exported for Excel
// load like any other.
func stripBOM(r io.Reader) io.Reader {
	buf := bufio.NewReader(r)
	if lead, err := buf.Peek(3); err == nil && lead[0] == 0xEF && lead[1] == 0xBB && lead[2] == 0xBF {
		buf.Discard(3)
	}
	return buf
}

// ReadCompaniesFile parses the companies dataset into a map keyed by
// ticker. Rows without an industry id keep IndustryID zero.
func ReadCompaniesFile(path string) (map[string]domain.Company, error) {
	records, header, err := readReference(path, domain.DatasetCompanies)
	if err != nil {
		return nil, err
	}

	out := make(map[string]domain.Company, len(records))
	for _, rec := range records {
		company := domain.Company{
			Ticker:   header.get(rec, domain.Ticker),
			VendorID: header.get(rec, domain.VendorID),
			Name:     header.get(rec, domain.CompanyName),
		}
		if raw := header.get(rec, domain.IndustryID); raw != "" {
			id, err := strconv.Atoi(raw)
			if err != nil {
				return nil, apierrors.NewParsingError(
					fmt.Sprintf("bad industry id %q for %s", raw, company.Ticker), err)
			}
			company.IndustryID = id
		}
		out[company.Ticker] = company
	}
	return out, nil
}

// ReadIndustriesFile parses the industries dataset keyed by industry id.
func ReadIndustriesFile(path string) (map[int]domain.IndustryInfo, error) {
	records, header, err := readReference(path, domain.DatasetIndustries)
	if err != nil {
		return nil, err
	}

	out := make(map[int]domain.IndustryInfo, len(records))
	for _, rec := range records {
		raw := header.get(rec, domain.IndustryID)
		id, err := strconv.Atoi(raw)
		if err != nil {
			return nil, apierrors.NewParsingError(
				fmt.Sprintf("bad industry id %q", raw), err)
		}
		out[id] = domain.IndustryInfo{
			IndustryID: id,
			Sector:     header.get(rec, domain.Sector),
			Industry:   header.get(rec, domain.Industry),
		}
	}
	return out, nil
}

// ReadMarketsFile parses the markets dataset.
func ReadMarketsFile(path string) ([]domain.MarketInfo, error) {
	records, header, err := readReference(path, domain.DatasetMarkets)
	if err != nil {
		return nil, err
	}

	out := make([]domain.MarketInfo, 0, len(records))
	for _, rec := range records {
		out = append(out, domain.MarketInfo{
			ID:       header.get(rec, domain.MarketID),
			Name:     header.get(rec, domain.MarketName),
			Currency: header.get(rec, domain.Currency),
		})
	}
	return out, nil
}

// refHeader maps column names to field positions for reference CSVs.
type refHeader map[domain.Column]int

func (h refHeader) get(record []string, c domain.Column) string {
	idx, ok := h[c]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func readReference(path string, dataset domain.Dataset) ([][]string, refHeader, error) {
	info, err := domain.Lookup(dataset)
	if err != nil {
		return nil, nil, apierrors.NewValidationError("dataset selection", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, nil, apierrors.NewStorageError(
			fmt.Sprintf("dataset file %s not available", path), err)
	}
	defer file.Close()

	reader := csv.NewReader(stripBOM(file))
	reader.Comma = ';'

	rawHeader, err := reader.Read()
	if err != nil {
		return nil, nil, apierrors.NewParsingError("reading header", err)
	}
	header := make(refHeader, len(rawHeader))
	for idx, cell := range rawHeader {
		name := domain.Column(strings.TrimSpace(cell))
		if !info.HasColumn(name) {
			return nil, nil, apierrors.NewParsingError(
				fmt.Sprintf("dataset %s", string(dataset)),
				fmt.Errorf("%w: %q", domain.ErrUnknownColumn, string(name)))
		}
		header[name] = idx
	}
	if _, ok := header[info.EntityCol]; !ok {
		return nil, nil, apierrors.NewParsingError(
			fmt.Sprintf("missing %s column", string(info.EntityCol)), nil)
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, apierrors.NewParsingError("reading records", err)
	}
	return records, header, nil
}

// LoadDataset ensures the dataset is on disk per refreshDays and loads
// it. This is the general form behind the per-family helpers.
func (c *Client) LoadDataset(ctx context.Context, d domain.Dataset, v domain.Variant, m domain.Market, refreshDays int) (*frame.Frame, error) {
	info, err := domain.Validate(d, v, m)
	if err != nil {
		return nil, apierrors.NewValidationError("dataset selection", err)
	}
	path, err := c.EnsureFresh(ctx, d, v, m, refreshDays)
	if err != nil {
		return nil, err
	}
	return ReadDatasetFile(path, info)
}

// LoadIncome loads an income statement dataset.
func (c *Client) LoadIncome(ctx context.Context, v domain.Variant, m domain.Market, refreshDays int) (*frame.Frame, error) {
	return c.LoadDataset(ctx, domain.DatasetIncome, v, m, refreshDays)
}

// LoadBalance loads a balance sheet dataset.
func (c *Client) LoadBalance(ctx context.Context, v domain.Variant, m domain.Market, refreshDays int) (*frame.Frame, error) {
	return c.LoadDataset(ctx, domain.DatasetBalance, v, m, refreshDays)
}

// LoadCashflow loads a cash flow statement dataset.
func (c *Client) LoadCashflow(ctx context.Context, v domain.Variant, m domain.Market, refreshDays int) (*frame.Frame, error) {
	return c.LoadDataset(ctx, domain.DatasetCashflow, v, m, refreshDays)
}

// LoadSharePrices loads a share price dataset.
func (c *Client) LoadSharePrices(ctx context.Context, v domain.Variant, m domain.Market, refreshDays int) (*frame.Frame, error) {
	return c.LoadDataset(ctx, domain.DatasetSharePrices, v, m, refreshDays)
}

// LoadCompanies loads the company reference data for a market.
func (c *Client) LoadCompanies(ctx context.Context, m domain.Market, refreshDays int) (map[string]domain.Company, error) {
	if _, err := domain.Validate(domain.DatasetCompanies, domain.VariantNone, m); err != nil {
		return nil, apierrors.NewValidationError("dataset selection", err)
	}
	path, err := c.EnsureFresh(ctx, domain.DatasetCompanies, domain.VariantNone, m, refreshDays)
	if err != nil {
		return nil, err
	}
	return ReadCompaniesFile(path)
}

// LoadIndustries loads the industry reference data.
func (c *Client) LoadIndustries(ctx context.Context, refreshDays int) (map[int]domain.IndustryInfo, error) {
	path, err := c.EnsureFresh(ctx, domain.DatasetIndustries, domain.VariantNone, domain.MarketNone, refreshDays)
	if err != nil {
		return nil, err
	}
	return ReadIndustriesFile(path)
}

// LoadMarkets loads the market reference data.
func (c *Client) LoadMarkets(ctx context.Context, refreshDays int) ([]domain.MarketInfo, error) {
	path, err := c.EnsureFresh(ctx, domain.DatasetMarkets, domain.VariantNone, domain.MarketNone, refreshDays)
	if err != nil {
		return nil, err
	}
	return ReadMarketsFile(path)
}
