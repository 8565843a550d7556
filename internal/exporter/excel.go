package exporter

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	apierrors "fundata/internal/errors"
	"fundata/internal/infrastructure"
	"fundata/pkg/frame"
)

// summarySheet is the name of the overview sheet that leads every
// workbook.
const summarySheet = "Summary"

// ratioNumFmt shows signal values with four decimals, enough for
// yields of a fraction of a percent.
const ratioNumFmt = "0.0000"

// ExcelWriter exports frames as a multi-sheet xlsx workbook, one
// sheet per frame plus a summary sheet.
type ExcelWriter struct {
	logger *slog.Logger
}

// NewExcelWriter creates an Excel writer. A nil logger falls back to
// the process default.
func NewExcelWriter(logger *slog.Logger) *ExcelWriter {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &ExcelWriter{logger: logger}
}

// Sheet pairs a frame with its sheet name.
type Sheet struct {
	Name  string
	Frame *frame.Frame
}

// Write exports the sheets to an xlsx workbook at path. Each sheet
// gets a frozen header row and numeric formatting on the value
// columns; the summary sheet lists per-sheet entity counts, row
// counts and date spans. Like the CSV writer, the workbook is written
// to a temporary file and renamed into place.
func (w *ExcelWriter) Write(path string, sheets []Sheet) error {
	if len(sheets) == 0 {
		return apierrors.NewValidationError("workbook needs at least one sheet", nil)
	}

	book := excelize.NewFile()
	defer book.Close()

	if err := w.writeSummary(book, sheets); err != nil {
		return err
	}
	for _, s := range sheets {
		if err := w.writeSheet(book, s); err != nil {
			return err
		}
	}

	// The workbook starts on the summary, and the default sheet
	// excelize creates goes away.
	if err := book.DeleteSheet("Sheet1"); err != nil {
		return apierrors.NewStorageError("removing default sheet", err)
	}
	idx, err := book.GetSheetIndex(summarySheet)
	if err != nil {
		return apierrors.NewStorageError("locating summary sheet", err)
	}
	book.SetActiveSheet(idx)

	if err := w.save(book, path); err != nil {
		return err
	}
	w.logger.Info("wrote Excel export",
		slog.String("path", path),
		slog.Int("sheets", len(sheets)))
	return nil
}

func (w *ExcelWriter) writeSummary(book *excelize.File, sheets []Sheet) error {
	if _, err := book.NewSheet(summarySheet); err != nil {
		return apierrors.NewStorageError("creating summary sheet", err)
	}
	header := []any{"Sheet", "Entities", "Rows", "Columns", "From", "To"}
	if err := book.SetSheetRow(summarySheet, "A1", &header); err != nil {
		return apierrors.NewStorageError("writing summary header", err)
	}
	for i, s := range sheets {
		from, to := dateSpan(s.Frame)
		row := []any{
			s.Name,
			len(s.Frame.EntityNames()),
			s.Frame.Len(),
			len(s.Frame.Columns()),
			from,
			to,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return apierrors.NewStorageError("addressing summary row", err)
		}
		if err := book.SetSheetRow(summarySheet, cell, &row); err != nil {
			return apierrors.NewStorageError("writing summary row", err)
		}
	}
	if err := book.SetColWidth(summarySheet, "A", "A", 24); err != nil {
		return apierrors.NewStorageError("sizing summary columns", err)
	}
	return freezeHeader(book, summarySheet)
}

func (w *ExcelWriter) writeSheet(book *excelize.File, s Sheet) error {
	f := s.Frame
	if _, err := book.NewSheet(s.Name); err != nil {
		return apierrors.NewStorageError(fmt.Sprintf("creating sheet %s", s.Name), err)
	}

	cols := f.Columns()
	header := make([]any, 0, len(cols)+2)
	header = append(header, string(f.EntityLabel()), string(f.DateLabel()))
	for _, c := range cols {
		header = append(header, string(c))
	}
	if err := book.SetSheetRow(s.Name, "A1", &header); err != nil {
		return apierrors.NewStorageError(fmt.Sprintf("writing header of sheet %s", s.Name), err)
	}

	row := make([]any, len(header))
	for i := 0; i < f.Len(); i++ {
		row[0] = f.Entity(i)
		row[1] = f.Date(i).Format(frame.DateFormat)
		for j, c := range cols {
			if v := f.Value(i, c); math.IsNaN(v) {
				row[j+2] = nil
			} else {
				row[j+2] = v
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return apierrors.NewStorageError(fmt.Sprintf("addressing row %d of sheet %s", i, s.Name), err)
		}
		if err := book.SetSheetRow(s.Name, cell, &row); err != nil {
			return apierrors.NewStorageError(fmt.Sprintf("writing row %d of sheet %s", i, s.Name), err)
		}
	}

	if len(cols) > 0 && f.Len() > 0 {
		numFmt := ratioNumFmt
		style, err := book.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
		if err != nil {
			return apierrors.NewStorageError("creating number style", err)
		}
		first, err := excelize.CoordinatesToCellName(3, 2)
		if err != nil {
			return apierrors.NewStorageError("addressing style range", err)
		}
		last, err := excelize.CoordinatesToCellName(len(cols)+2, f.Len()+1)
		if err != nil {
			return apierrors.NewStorageError("addressing style range", err)
		}
		if err := book.SetCellStyle(s.Name, first, last, style); err != nil {
			return apierrors.NewStorageError(fmt.Sprintf("styling sheet %s", s.Name), err)
		}
	}
	if err := book.SetColWidth(s.Name, "A", "B", 12); err != nil {
		return apierrors.NewStorageError(fmt.Sprintf("sizing sheet %s", s.Name), err)
	}
	return freezeHeader(book, s.Name)
}

// freezeHeader keeps the header row visible while scrolling.
func freezeHeader(book *excelize.File, sheet string) error {
	err := book.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
	if err != nil {
		return apierrors.NewStorageError(fmt.Sprintf("freezing header of sheet %s", sheet), err)
	}
	return nil
}

// save writes the workbook through a temporary file.
func (w *ExcelWriter) save(book *excelize.File, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apierrors.NewStorageError(fmt.Sprintf("creating directory %s", dir), err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return apierrors.NewStorageError("creating temporary export file", err)
	}
	tmpName := tmp.Name()
	if err := book.Write(tmp); err != nil {
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
	return nil
}

// dateSpan returns the first and last index dates as strings, empty
// for an empty frame.
func dateSpan(f *frame.Frame) (string, string) {
	if f.Len() == 0 {
		return "", ""
	}
	first, last := f.Date(0), f.Date(0)
	for i := 1; i < f.Len(); i++ {
		if d := f.Date(i); d.Before(first) {
			first = d
		} else if d.After(last) {
			last = d
		}
	}
	return first.Format(frame.DateFormat), last.Format(frame.DateFormat)
}
