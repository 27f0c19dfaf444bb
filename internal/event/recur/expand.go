package recur

import "time"

// Frequency defines the repeat unit for a recurrence
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// defaultUntilCap bounds end-date expansion so an indefinite or far-future
// end date cannot produce an unbounded slice.
const defaultUntilCap = 1000

// Occurrence is one concrete start/end pair of a calendar appearance.
// Generated is true for every instance produced beyond the original, so the
// presentation layer can tell "occurs once" from "this row is a repeat".
type Occurrence struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Generated bool      `json:"generated"`
}

// Descriptor controls count-based expansion. Count includes the original
// occurrence; a Count below 1 is treated as non-repeating.
type Descriptor struct {
	Frequency Frequency `json:"frequency"`
	Count     int       `json:"count"`
}

// Expand produces an ordered sequence of exactly max(Count, 1) occurrences.
// Index 0 is the base occurrence verbatim. For i > 0 the start is the base
// start advanced i units via time.AddDate, so monthly and yearly steps use
// calendar arithmetic with Go's month-rollover normalization (Jan 31 + 1
// month lands on Mar 3 in a non-leap year). Every generated instance keeps
// the base duration, computed once.
//
// Expand is pure: same input, same output, no side effects. A zero base
// start yields nil so calendar rendering stays non-fatal; the caller is
// expected to log the bad input.
func Expand(base Occurrence, d Descriptor) []Occurrence {
	if base.Start.IsZero() {
		return nil
	}

	count := d.Count
	if count < 1 {
		count = 1
	}

	duration := base.End.Sub(base.Start)

	out := make([]Occurrence, 0, count)
	out = append(out, base)

	if !validFrequency(d.Frequency) {
		// Unknown unit: nothing to step by, behave as non-repeating.
		return out
	}

	for i := 1; i < count; i++ {
		start := step(base.Start, d.Frequency, i)
		out = append(out, Occurrence{
			Start:     start,
			End:       start.Add(duration),
			Generated: true,
		})
	}

	return out
}

// ExpandUntil expands the base occurrence at the given frequency until the
// last start at or before until, then delegates to Expand so both the
// count-bound and end-date-bound call sites share one expansion path.
// maxCount caps the sequence length; values below 1 fall back to the
// package default.
func ExpandUntil(base Occurrence, freq Frequency, until time.Time, maxCount int) []Occurrence {
	if base.Start.IsZero() {
		return nil
	}
	if maxCount < 1 {
		maxCount = defaultUntilCap
	}
	if !validFrequency(freq) || until.Before(base.Start) {
		return Expand(base, Descriptor{Frequency: freq, Count: 1})
	}

	count := 1
	for count < maxCount && !step(base.Start, freq, count).After(until) {
		count++
	}

	return Expand(base, Descriptor{Frequency: freq, Count: count})
}

// step returns the base start advanced i whole units of freq.
func step(start time.Time, freq Frequency, i int) time.Time {
	switch freq {
	case FrequencyDaily:
		return start.AddDate(0, 0, i)
	case FrequencyWeekly:
		return start.AddDate(0, 0, 7*i)
	case FrequencyMonthly:
		return start.AddDate(0, i, 0)
	case FrequencyYearly:
		return start.AddDate(i, 0, 0)
	default:
		return start
	}
}

func validFrequency(f Frequency) bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}
