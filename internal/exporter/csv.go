package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"

	apierrors "fundata/internal/errors"
	"fundata/internal/infrastructure"
	"fundata/pkg/frame"
)

// utf8BOM marks a file as UTF-8 so Excel decodes column names like
// "Selling, General & Administrative" correctly.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter exports frames as CSV files.
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a CSV writer. A nil logger falls back to the
// process default.
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &CSVWriter{logger: logger}
}

// CSVOptions configures CSV output.
type CSVOptions struct {
	// Separator between fields. Defaults to a semicolon.
	Separator rune

	// BOM prefixes the file with a UTF-8 byte order mark for Excel.
	BOM bool

	// Precision limits values to this many decimal places. Zero keeps
	// the full precision.
	Precision int
}

// Write exports the frame to path, creating parent directories as
// needed. The file is written to a temporary name and renamed into
// place, so readers never observe a partial export. Missing values
// become empty fields.
func (w *CSVWriter) Write(path string, f *frame.Frame, opts CSVOptions) error {
	if opts.Separator == 0 {
		opts.Separator = frame.Separator
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apierrors.NewStorageError(fmt.Sprintf("creating directory %s", dir), err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return apierrors.NewStorageError("creating temporary export file", err)
	}
	tmpName := tmp.Name()
	if err := w.writeTo(tmp, f, opts); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apierrors.NewStorageError(fmt.Sprintf("writing %s", path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apierrors.NewStorageError(fmt.Sprintf("writing %s", path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return apierrors.NewStorageError(fmt.Sprintf("replacing %s", path), err)
	}

	w.logger.Info("wrote CSV export",
		slog.String("path", path),
		slog.Int("rows", f.Len()),
		slog.Int("columns", len(f.Columns())))
	return nil
}

func (w *CSVWriter) writeTo(file *os.File, f *frame.Frame, opts CSVOptions) error {
	if opts.BOM {
		if _, err := file.Write(utf8BOM); err != nil {
			return err
		}
	}

	cw := csv.NewWriter(file)
	cw.Comma = opts.Separator

	cols := f.Columns()
	header := make([]string, 0, len(cols)+2)
	header = append(header, string(f.EntityLabel()), string(f.DateLabel()))
	for _, c := range cols {
		header = append(header, string(c))
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for i := 0; i < f.Len(); i++ {
		record[0] = f.Entity(i)
		record[1] = f.Date(i).Format(frame.DateFormat)
		for j, c := range cols {
			record[j+2] = formatValue(f.Value(i, c), opts.Precision)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// formatValue renders one cell. Missing values become empty fields.
func formatValue(v float64, precision int) string {
	if math.IsNaN(v) {
		return ""
	}
	if precision > 0 {
		return strconv.FormatFloat(v, 'f', precision, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
