// Package exporter writes frames to files meant for people rather
// than for the cache: CSV with an optional UTF-8 BOM so Excel picks
// the right encoding, and multi-sheet xlsx workbooks with a summary
// sheet.
//
// Both writers replace the target atomically through a temporary
// file, so a crash mid-export never leaves a half-written report.
//
// Example usage:
//
//	w := exporter.NewCSVWriter(logger)
//	err := w.Write("reports/val-signals.csv", signals, exporter.CSVOptions{BOM: true})
//
//	xw := exporter.NewExcelWriter(logger)
//	err = xw.Write("reports/signals.xlsx", []exporter.Sheet{
//		{Name: "Valuation", Frame: valuation},
//		{Name: "Growth", Frame: growth},
//	})
package exporter
