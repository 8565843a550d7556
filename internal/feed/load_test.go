package feed

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "fundata/internal/errors"
	"fundata/pkg/domain"
)

const incomeCSV = "Ticker;Report Date;Publish Date;Fiscal Year;Revenue;Net Income\n" +
	"MSFT;2023-09-30;2023-10-24;2023;56517000000;22291000000\n" +
	"AAPL;2023-09-30;2023-11-03;2023;89498000000;22956000000\n" +
	"AAPL;2023-06-30;2023-08-04;2023;81797000000;\n"

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dataset.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func incomeInfo(t *testing.T) domain.Info {
	t.Helper()
	info, err := domain.Lookup(domain.DatasetIncome)
	require.NoError(t, err)
	return info
}

func TestReadDatasetFile(t *testing.T) {
	path := writeTempCSV(t, incomeCSV)

	f, err := ReadDatasetFile(path, incomeInfo(t))
	require.NoError(t, err)
	require.Equal(t, 3, f.Len())

	// Canonical order: AAPL before MSFT, dates ascending within AAPL.
	assert.Equal(t, "AAPL", f.Entity(0))
	assert.Equal(t, time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC), f.Date(0))
	assert.Equal(t, "AAPL", f.Entity(1))
	assert.Equal(t, "MSFT", f.Entity(2))

	assert.True(t, f.HasColumn(domain.Revenue))
	assert.True(t, f.HasColumn(domain.PublishDate))
	assert.False(t, f.HasColumn(domain.FiscalYear), "string columns stay out of frames")

	assert.Equal(t, 81797000000.0, f.Value(0, domain.Revenue))
	assert.True(t, math.IsNaN(f.Value(0, domain.NetIncome)), "empty cell loads as missing")
	assert.Equal(t, 22956000000.0, f.Value(1, domain.NetIncome))

	wantPublish := float64(time.Date(2023, 8, 4, 0, 0, 0, 0, time.UTC).Unix()) / 86400
	assert.Equal(t, wantPublish, f.Value(0, domain.PublishDate))
}

func TestReadDatasetFileByteOrderMark(t *testing.T) {
	path := writeTempCSV(t, "\xEF\xBB\xBF"+incomeCSV)

	f, err := ReadDatasetFile(path, incomeInfo(t))
	require.NoError(t, err)
	assert.Equal(t, 3, f.Len())
	assert.True(t, f.HasColumn(domain.Revenue))
}

func TestReadDatasetFileUnknownColumn(t *testing.T) {
	path := writeTempCSV(t, "Ticker;Report Date;Publish Date;Profit Margin\nAAPL;2023-09-30;2023-11-03;0.25\n")

	_, err := ReadDatasetFile(path, incomeInfo(t))
	require.Error(t, err)
	assert.True(t, apierrors.IsType(err, apierrors.ErrTypeParsing))
	assert.ErrorIs(t, err, domain.ErrUnknownColumn)
	assert.Contains(t, err.Error(), "Profit Margin")
}

func TestReadDatasetFileMissingIndexColumns(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"no ticker", "Report Date;Revenue\n", "missing Ticker column"},
		{"no report date", "Ticker;Revenue\n", "missing Report Date column"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempCSV(t, tt.header)
			_, err := ReadDatasetFile(path, incomeInfo(t))
			require.Error(t, err)
			assert.True(t, apierrors.IsType(err, apierrors.ErrTypeParsing))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReadDatasetFileBadCells(t *testing.T) {
	tests := []struct {
		name string
		csv  string
		want string
	}{
		{
			"bad number",
			"Ticker;Report Date;Revenue\nAAPL;2023-09-30;12x\n",
			"Revenue",
		},
		{
			"bad date",
			"Ticker;Report Date;Revenue\nAAPL;2023/09/30;100\n",
			"Report Date",
		},
		{
			"bad publish date",
			"Ticker;Report Date;Publish Date;Revenue\nAAPL;2023-09-30;soon;100\n",
			"Publish Date",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempCSV(t, tt.csv)
			_, err := ReadDatasetFile(path, incomeInfo(t))
			require.Error(t, err)
			assert.True(t, apierrors.IsType(err, apierrors.ErrTypeParsing))
			assert.Contains(t, err.Error(), "line 2")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReadDatasetFileMissing(t *testing.T) {
	_, err := ReadDatasetFile(filepath.Join(t.TempDir(), "absent.csv"), incomeInfo(t))
	require.Error(t, err)
	assert.True(t, apierrors.IsType(err, apierrors.ErrTypeStorage))
}

func TestReadCompaniesFile(t *testing.T) {
	path := writeTempCSV(t, "Ticker;VendorId;Company Name;IndustryId\n"+
		"AAPL;111052;Apple Inc.;101001\n"+
		"NEWCO;999999;New Co;\n")

	companies, err := ReadCompaniesFile(path)
	require.NoError(t, err)
	require.Len(t, companies, 2)

	apple := companies["AAPL"]
	assert.Equal(t, "Apple Inc.", apple.Name)
	assert.Equal(t, "111052", apple.VendorID)
	assert.Equal(t, 101001, apple.IndustryID)

	assert.Equal(t, 0, companies["NEWCO"].IndustryID, "missing industry stays zero")
}

func TestReadIndustriesFile(t *testing.T) {
	path := writeTempCSV(t, "IndustryId;Sector;Industry\n"+
		"101001;Industrials;Aerospace & Defense\n"+
		"103002;Technology;Software\n")

	industries, err := ReadIndustriesFile(path)
	require.NoError(t, err)
	require.Len(t, industries, 2)
	assert.Equal(t, "Technology", industries[103002].Sector)
	assert.Equal(t, "Software", industries[103002].Industry)
}

func TestReadMarketsFile(t *testing.T) {
	path := writeTempCSV(t, "MarketId;Market Name;Currency\nus;US Market;USD\nde;German Market;EUR\n")

	markets, err := ReadMarketsFile(path)
	require.NoError(t, err)
	require.Len(t, markets, 2)
	assert.Equal(t, "us", markets[0].ID)
	assert.Equal(t, "EUR", markets[1].Currency)
}

func TestReadCompaniesFileUnknownColumn(t *testing.T) {
	path := writeTempCSV(t, "Ticker;Company Name;Founded\nAAPL;Apple Inc.;1976\n")

	_, err := ReadCompaniesFile(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownColumn)
	assert.Contains(t, err.Error(), "Founded")
}

func TestLoadIncomeDownloadsWhenMissing(t *testing.T) {
	payload := zipPayload(t, "us-income-ttm.csv", incomeCSV)
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write(payload)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	ctx := context.Background()

	f, err := c.LoadIncome(ctx, domain.VariantTTM, domain.MarketUS, 30)
	require.NoError(t, err)
	assert.Equal(t, 3, f.Len())
	assert.Equal(t, int64(1), calls.Load())

	// Second load reuses the fresh file.
	f, err = c.LoadIncome(ctx, domain.VariantTTM, domain.MarketUS, 30)
	require.NoError(t, err)
	assert.Equal(t, 3, f.Len())
	assert.Equal(t, int64(1), calls.Load())
}

func TestLoadCompaniesEndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "Ticker;Company Name;IndustryId\nAAPL;Apple Inc.;101001\n")
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	companies, err := c.LoadCompanies(context.Background(), domain.MarketUS, 30)
	require.NoError(t, err)
	assert.Equal(t, "Apple Inc.", companies["AAPL"].Name)
}

func TestLoadDatasetRejectsUnknownSelection(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:0")
	_, err := c.LoadDataset(context.Background(), domain.Dataset("dividends"), domain.VariantNone, domain.MarketNone, 30)
	require.Error(t, err)
	assert.True(t, apierrors.IsType(err, apierrors.ErrTypeValidation))
}
