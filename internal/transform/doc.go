// Package transform is the temporal transform engine: pure, per-entity
// operations over frame.Frame time series.
//
// # Model
//
// Every operation is a pure function of (input frame, parameters) that
// returns a new frame and never mutates its input. All operations are
// built on Apply, which partitions the frame by entity and hands each
// entity's date-sorted rows to a kernel in isolation. Two consequences
// follow from that construction:
//
//   - Entity isolation: one entity's output depends only on that
//     entity's rows. Adding or deleting another entity cannot change it.
//   - No look-ahead: backward-looking operations (forward fill, past
//     relative change, rolling statistics) at row t read only rows at
//     or before t. Operations that intentionally look forward, such as
//     RelChange with Future set, say so in their options.
//
// # Missing values
//
// NaN marks a missing cell. Insufficient history for a window produces
// NaN, never an error; NaN operands propagate to NaN results. Errors
// are reserved for invalid parameters (a window that rounds to zero
// periods, an unknown frequency, an inverted clip range) and naming
// conflicts, which fail fast before any computation.
//
// # Windows
//
// Lookback windows are calendar spans (domain.Span) converted to whole
// period counts at the series frequency, so {Years: 1} means 4 rows on
// quarterly data and 252 rows on business-daily data. The same span
// also yields the year fraction used for annualizing.
package transform
