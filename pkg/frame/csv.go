package frame

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"fundata/pkg/domain"
)

// DateFormat is the wire format for index dates.
const DateFormat = "2006-01-02"

// Separator is the field separator for frame CSV files. Semicolons keep
// column names containing commas intact.
const Separator = ';'

// WriteCSV serializes the frame: a header row with the two index labels and
// the value columns, then one row per observation. NaN cells serialize as
// empty fields; floats round-trip exactly.
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.Comma = Separator

	header := make([]string, 0, len(f.order)+2)
	header = append(header, string(f.entityLabel), string(f.dateLabel))
	for _, c := range f.order {
		header = append(header, string(c))
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, len(header))
	for i := 0; i < f.Len(); i++ {
		record[0] = f.entities[i]
		record[1] = f.dates[i].Format(DateFormat)
		for j, c := range f.order {
			v := f.cols[c][i]
			if math.IsNaN(v) {
				record[j+2] = ""
			} else {
				record[j+2] = strconv.FormatFloat(v, 'g', -1, 64)
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a frame previously written with WriteCSV. The first two
// header fields become the index labels; the rest become value columns.
func ReadCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.Comma = Separator
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("header has %d fields, need at least entity and date", len(header))
	}

	cols := make([]domain.Column, 0, len(header)-2)
	for _, h := range header[2:] {
		cols = append(cols, domain.Column(h))
	}
	f, err := New(domain.Column(header[0]), domain.Column(header[1]), cols...)
	if err != nil {
		return nil, err
	}

	values := make([]float64, len(cols))
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		if len(record) != len(header) {
			return nil, fmt.Errorf("line %d: %d fields, header has %d", line, len(record), len(header))
		}
		date, err := time.Parse(DateFormat, record[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: parse date %q: %w", line, record[1], err)
		}
		for j, field := range record[2:] {
			if field == "" {
				values[j] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: parse %q column %q: %w", line, field, header[j+2], err)
			}
			values[j] = v
		}
		if err := f.AppendRow(record[0], date, values); err != nil {
			return nil, err
		}
	}
	return f, nil
}
