package domain

import (
	"errors"
	"fmt"
	"math"
)

// Frequency is the native spacing of a time series. Transform windows are
// expressed in calendar units and converted to whole periods at a stated
// frequency before any computation.
type Frequency string

const (
	FreqBusinessDaily Frequency = "bdays"
	FreqDaily         Frequency = "days"
	FreqWeekly        Frequency = "weeks"
	FreqMonthly       Frequency = "months"
	FreqQuarterly     Frequency = "quarters"
	FreqAnnual        Frequency = "years"
)

var (
	ErrUnknownFrequency = errors.New("unknown frequency")
	ErrInvalidSpan      = errors.New("invalid span")
)

// periodsPerYear holds the number of periods one year contains at each
// frequency. Business days use the 252 trading-day convention.
var periodsPerYear = map[Frequency]float64{
	FreqBusinessDaily: 252,
	FreqDaily:         365,
	FreqWeekly:        52,
	FreqMonthly:       12,
	FreqQuarterly:     4,
	FreqAnnual:        1,
}

// PeriodsPerYear returns how many periods of f make up one year.
func (f Frequency) PeriodsPerYear() (float64, error) {
	ppy, ok := periodsPerYear[f]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownFrequency, string(f))
	}
	return ppy, nil
}

func (f Frequency) String() string { return string(f) }

// Validate reports whether f is a known frequency.
func (f Frequency) Validate() error {
	_, err := f.PeriodsPerYear()
	return err
}

// FillMethod controls how gaps are filled when resampling or reindexing.
type FillMethod string

const (
	// FillNone leaves gaps as missing values.
	FillNone FillMethod = "none"
	// FillForward propagates the last known value forward, never backward.
	FillForward FillMethod = "ffill"
	// FillLinear interpolates linearly between surrounding observations.
	FillLinear FillMethod = "linear"
)

// Validate reports whether m is a known fill method.
func (m FillMethod) Validate() error {
	switch m {
	case FillNone, FillForward, FillLinear:
		return nil
	}
	return fmt.Errorf("%w: fill method %q", ErrInvalidSpan, string(m))
}

// Span is a calendar window. The unit counts are combined into a single
// whole-period shift at a given data frequency, e.g. Span{Years: 1} at
// quarterly frequency is 4 periods, at business-daily frequency 252 periods.
type Span struct {
	BDays    int
	Days     int
	Weeks    int
	Months   int
	Quarters int
	Years    int
}

// Periods converts the span to the whole number of periods it covers at
// frequency freq, along with the number of years that period count
// represents (used for annualizing). The period count must come out
// positive, otherwise the span is invalid for that frequency.
func (s Span) Periods(freq Frequency) (int, float64, error) {
	ppy, err := freq.PeriodsPerYear()
	if err != nil {
		return 0, 0, err
	}

	exact := float64(s.BDays)*ppy/periodsPerYear[FreqBusinessDaily] +
		float64(s.Days)*ppy/periodsPerYear[FreqDaily] +
		float64(s.Weeks)*ppy/periodsPerYear[FreqWeekly] +
		float64(s.Months)*ppy/periodsPerYear[FreqMonthly] +
		float64(s.Quarters)*ppy/periodsPerYear[FreqQuarterly] +
		float64(s.Years)*ppy/periodsPerYear[FreqAnnual]

	periods := int(math.Round(exact))
	if periods <= 0 {
		return 0, 0, fmt.Errorf("%w: %+v at frequency %q yields %d periods",
			ErrInvalidSpan, s, string(freq), periods)
	}
	return periods, float64(periods) / ppy, nil
}

// SpanQuarters and friends are shorthands for the common windows.
func SpanQuarters(n int) Span { return Span{Quarters: n} }
func SpanYears(n int) Span    { return Span{Years: n} }
func SpanBDays(n int) Span    { return Span{BDays: n} }
