// Package signals derives trading and fundamental indicators from
// dataset frames: moving averages and MACD from prices, crossing
// flags, volume measures, financial ratios, growth rates, and price
// multiples.
//
// Every family computes per entity through the transform engine and
// returns a fresh frame holding only signal columns, named from the
// column catalog. Inputs are never modified.
//
// # Missing values
//
// NaN marks a missing cell throughout. Arithmetic propagates it, a
// ratio with a missing or zero denominator is missing, and logarithms
// of non-positive values are missing, so infinities never appear in a
// result. A few formulas instead count a missing operand as zero
// where an absent line item means the flow did not happen, such as
// capital expenditures inside free cash flow; those cases are called
// out on the functions.
//
// # Publication lag
//
// Statement-based families accept a date offset in days. Shifting the
// report dates forward models the delay between a fiscal period
// ending and its figures reaching the public, so daily signals only
// reflect reports the market could have seen.
package signals
