package domain

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Sample is one calendar day of a series.
type Sample struct {
	Date  time.Time
	Value float64
}

// Series is strictly ascending by date with no duplicate dates.
type Series []Sample

// Dates returns the series dates formatted as YYYY-MM-DD.
func (s Series) Dates() []string {
	out := make([]string, len(s))
	for i, smp := range s {
		out[i] = smp.Date.Format(DateLayout)
	}
	return out
}

// Values returns the series values in date order.
func (s Series) Values() []float64 {
	out := make([]float64, len(s))
	for i, smp := range s {
		out[i] = smp.Value
	}
	return out
}

// ValueRange is an inclusive validity interval.
type ValueRange struct {
	Min float64
	Max float64
}

// Contains reports whether v lies in [Min, Max].
func (r ValueRange) Contains(v float64) bool { return v >= r.Min && v <= r.Max }

// NDVIRange is the validity filter applied to every vegetation series.
var NDVIRange = ValueRange{Min: 0, Max: 1}

// AggregateOptions controls the optional range filter. A nil Range disables
// it, which is how precipitation is aggregated.
type AggregateOptions struct {
	Range *ValueRange
	Stage RangeStage
}

type dayAccumulator struct {
	date  time.Time
	sum   float64
	count int
}

// Aggregate turns unordered raw samples into a Series: nulls are dropped,
// the optional range filter is applied at the configured stage, same-day
// values are averaged and the result is sorted by date. A raw date that does
// not parse is a malformed payload and fails the whole aggregation.
func Aggregate(raw []RawSample, opts AggregateOptions) (Series, error) {
	days := make(map[string]*dayAccumulator)
	for _, r := range raw {
		if r.Value == nil || math.IsNaN(*r.Value) || math.IsInf(*r.Value, 0) {
			continue
		}
		v := *r.Value
		if opts.Range != nil && opts.Stage == FilterBeforeAverage && !opts.Range.Contains(v) {
			continue
		}
		acc, ok := days[r.Date]
		if !ok {
			d, err := time.Parse(DateLayout, r.Date)
			if err != nil {
				return nil, fmt.Errorf("aggregate: malformed sample date %q: %w", r.Date, err)
			}
			acc = &dayAccumulator{date: d}
			days[r.Date] = acc
		}
		acc.sum += v
		acc.count++
	}

	out := make(Series, 0, len(days))
	for _, acc := range days {
		mean := acc.sum / float64(acc.count)
		if opts.Range != nil && opts.Stage == FilterAfterAverage && !opts.Range.Contains(mean) {
			continue
		}
		out = append(out, Sample{Date: acc.date, Value: mean})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
