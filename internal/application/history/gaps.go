// Package history computes date coverage and gaps across residence or employment intervals.
//
// Months are a fixed 30 days throughout. Displayed coverage and gap lengths depend on
// that approximation, so it is not calendar accurate near month boundaries.
package history

import (
	"sort"
	"time"

	"driver-application/internal/models"
)

const (
	DaysPerMonth = 30

	// GapThresholdMonths is exclusive: a gap of exactly one month is not reported.
	GapThresholdMonths = 1

	DefaultLookbackYears   = 3
	RegulatedLookbackYears = 10
)

// Interval is one residence or employment period. A nil End is still ongoing.
type Interval struct {
	Start     time.Time
	End       *time.Time
	Regulated bool
}

// Gap is an uncovered period between two intervals.
type Gap struct {
	// PrecedingIndex is the input index of the interval that resumes after the gap.
	PrecedingIndex int       `json:"preceding_index"`
	Months         int       `json:"months"`
	Start          time.Time `json:"start_date"`
	End            time.Time `json:"end_date"`
}

// Coverage summarizes a set of intervals.
type Coverage struct {
	TotalMonths   int   `json:"total_months"`
	Years         int   `json:"years"`
	Months        int   `json:"months"`
	Gaps          []Gap `json:"gaps"`
	RequiredYears int   `json:"required_years"`
	MeetsLookback bool  `json:"meets_lookback"`
}

// HasGaps reports whether any gap exceeded the threshold.
func (c Coverage) HasGaps() bool {
	return len(c.Gaps) > 0
}

// GapBefore returns the gap resumed by the interval at input index i.
func (c Coverage) GapBefore(i int) (Gap, bool) {
	for _, g := range c.Gaps {
		if g.PrecedingIndex == i {
			return g, true
		}
	}
	return Gap{}, false
}

type indexed struct {
	Interval
	index int
	end   time.Time
}

// Analyze computes coverage and gaps. Open intervals end at today. The result does not
// depend on input order, and nothing is cached between calls.
func Analyze(intervals []Interval, today time.Time) Coverage {
	today = models.Today(today)

	items := make([]indexed, len(intervals))
	regulated := false
	for i, iv := range intervals {
		end := today
		if iv.End != nil {
			end = models.Today(*iv.End)
		}
		items[i] = indexed{Interval: iv, index: i, end: end}
		if iv.Regulated {
			regulated = true
		}
	}

	sort.Slice(items, func(a, b int) bool {
		return before(items[a], items[b])
	})

	gaps := []Gap{}
	for i := 0; i+1 < len(items); i++ {
		current, next := items[i], items[i+1]
		gapDays := daysBetween(next.end, models.Today(current.Start))
		if gapDays <= 0 {
			continue
		}
		months := gapDays / DaysPerMonth
		if months > GapThresholdMonths {
			gaps = append(gaps, Gap{
				PrecedingIndex: current.index,
				Months:         months,
				Start:          next.end,
				End:            models.Today(current.Start),
			})
		}
	}

	totalDays := 0
	for _, it := range items {
		if d := daysBetween(models.Today(it.Start), it.end); d > 0 {
			totalDays += d
		}
	}
	totalMonths := totalDays / DaysPerMonth

	required := DefaultLookbackYears
	if regulated {
		required = RegulatedLookbackYears
	}

	return Coverage{
		TotalMonths:   totalMonths,
		Years:         totalMonths / 12,
		Months:        totalMonths % 12,
		Gaps:          gaps,
		RequiredYears: required,
		MeetsLookback: totalMonths >= required*12,
	}
}

// before orders by end descending, then start descending. Fully identical
// intervals fall back to regulated first, then input index.
func before(a, b indexed) bool {
	if !a.end.Equal(b.end) {
		return a.end.After(b.end)
	}
	if as, bs := models.Today(a.Start), models.Today(b.Start); !as.Equal(bs) {
		return as.After(bs)
	}
	if a.Regulated != b.Regulated {
		return a.Regulated
	}
	return a.index < b.index
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

// FromResidences converts residence entries. Entries with unparseable dates are skipped;
// the returned positions map each interval back to its entry.
func FromResidences(residences []models.Residence) ([]Interval, []int) {
	var out []Interval
	var positions []int
	for i, r := range residences {
		iv, ok := interval(r.FromDate, r.ToDate, r.IsCurrent, false)
		if !ok {
			continue
		}
		out = append(out, iv)
		positions = append(positions, i)
	}
	return out, positions
}

// FromEmployers converts employment entries; an employer without an end date is current.
func FromEmployers(employers []models.Employer) ([]Interval, []int) {
	var out []Interval
	var positions []int
	for i, e := range employers {
		iv, ok := interval(e.FromDate, e.ToDate, e.ToDate == "", e.SubjectToFMCSR)
		if !ok {
			continue
		}
		out = append(out, iv)
		positions = append(positions, i)
	}
	return out, positions
}

func interval(from, to string, current, regulated bool) (Interval, bool) {
	start, err := models.ParseDate(from)
	if err != nil {
		return Interval{}, false
	}
	iv := Interval{Start: start, Regulated: regulated}
	if current || to == "" {
		return iv, true
	}
	end, err := models.ParseDate(to)
	if err != nil {
		return Interval{}, false
	}
	iv.End = &end
	return iv, true
}

// Remap rewrites gap indexes from interval positions back to source entry positions.
func (c Coverage) Remap(positions []int) Coverage {
	gaps := make([]Gap, len(c.Gaps))
	for i, g := range c.Gaps {
		if g.PrecedingIndex < len(positions) {
			g.PrecedingIndex = positions[g.PrecedingIndex]
		}
		gaps[i] = g
	}
	c.Gaps = gaps
	return c
}
