// Package hours computes the "activatable hours" report: merge overlapping
// busy intervals, subtract exclusions, bucket the remainder per day and
// apply a percentage factor.
package hours

import (
	"sort"
	"time"
)

// Interval is a half-open [Start, End) time range.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Duration returns the interval length, never negative.
func (iv Interval) Duration() time.Duration {
	d := iv.End.Sub(iv.Start)
	if d < 0 {
		return 0
	}
	return d
}

// Merge sorts intervals by start and folds overlapping or adjacent ones
// (next.start <= current.end) into maximal runs.
func Merge(in []Interval) []Interval {
	if len(in) == 0 {
		return nil
	}
	sorted := make([]Interval, len(in))
	copy(sorted, in)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	out := []Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		cur := &out[len(out)-1]
		if !iv.Start.After(cur.End) {
			if iv.End.After(cur.End) {
				cur.End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

// Subtract removes an exclusion from each interval: disjoint intervals pass
// through, covered intervals vanish, partial overlaps keep the surviving
// left and/or right remainder.
func Subtract(exclusion Interval, from []Interval) []Interval {
	var out []Interval
	for _, iv := range from {
		if !exclusion.End.After(iv.Start) || !exclusion.Start.Before(iv.End) {
			out = append(out, iv)
			continue
		}
		if exclusion.Start.After(iv.Start) {
			out = append(out, Interval{Start: iv.Start, End: exclusion.Start})
		}
		if exclusion.End.Before(iv.End) {
			out = append(out, Interval{Start: exclusion.End, End: iv.End})
		}
	}
	return out
}

// DayBucket is one calendar day of the report.
type DayBucket struct {
	// Day is midnight of the bucket's calendar day.
	Day time.Time
	// Activatable is the net duration after exclusions and the factor.
	Activatable time.Duration
	// Excluded collects subtracted time plus the factor's scaled-away share.
	Excluded time.Duration
}

// Options tunes Compute.
type Options struct {
	// Percent scales the net duration (0-100). Zero means 100.
	Percent int
	// Location decides where day boundaries fall. Nil means time.Local.
	Location *time.Location
}

// Compute applies exclusions to the merged working intervals, buckets the
// remainder per calendar day by walking day boundaries, and scales the net
// duration by the percentage factor. The scaled-away portion is
// redistributed into the excluded bucket so totals stay accountable.
func Compute(working, exclusions []Interval, opt Options) []DayBucket {
	if opt.Percent <= 0 || opt.Percent > 100 {
		opt.Percent = 100
	}
	loc := opt.Location
	if loc == nil {
		loc = time.Local
	}

	merged := Merge(working)
	remaining := merged
	for _, excl := range Merge(exclusions) {
		remaining = Subtract(excl, remaining)
	}

	net := bucketByDay(remaining, loc)
	cut := bucketByDay(intervalDiff(merged, remaining), loc)

	days := make(map[time.Time]*DayBucket)
	order := []time.Time{}
	bucket := func(day time.Time) *DayBucket {
		if b, ok := days[day]; ok {
			return b
		}
		b := &DayBucket{Day: day}
		days[day] = b
		order = append(order, day)
		return b
	}

	for day, d := range net {
		b := bucket(day)
		scaled := d * time.Duration(opt.Percent) / 100
		b.Activatable += scaled
		b.Excluded += d - scaled
	}
	for day, d := range cut {
		bucket(day).Excluded += d
	}

	sort.Slice(order, func(i, j int) bool { return order[i].Before(order[j]) })
	out := make([]DayBucket, 0, len(order))
	for _, day := range order {
		out = append(out, *days[day])
	}
	return out
}

// intervalDiff returns the parts of base not present in keep. Both inputs
// must be merged and sorted, which Merge guarantees.
func intervalDiff(base, keep []Interval) []Interval {
	out := base
	for _, iv := range keep {
		out = Subtract(iv, out)
	}
	return out
}

// bucketByDay splits intervals at local midnight boundaries and sums the
// duration per day.
func bucketByDay(in []Interval, loc *time.Location) map[time.Time]time.Duration {
	buckets := make(map[time.Time]time.Duration)
	for _, iv := range in {
		cur := iv.Start.In(loc)
		end := iv.End.In(loc)
		for cur.Before(end) {
			day := time.Date(cur.Year(), cur.Month(), cur.Day(), 0, 0, 0, 0, loc)
			next := day.AddDate(0, 0, 1)
			stop := end
			if next.Before(end) {
				stop = next
			}
			buckets[day] += stop.Sub(cur)
			cur = stop
		}
	}
	return buckets
}
