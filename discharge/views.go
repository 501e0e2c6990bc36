package discharge

import (
	"context"
	"math"
	"sort"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// DefaultTopN is the length of the charge gap ranking.
const DefaultTopN = 15

// YearlyTotal is the discharge sum for one (facility, year).
type YearlyTotal struct {
	Facility   string
	Year       int
	Discharges float64
}

// YearlyTotals sums discharges per (facility, year), ordered by facility
// then year.
func YearlyTotals(t *Table) []YearlyTotal {
	type key struct {
		facility string
		year     int
	}
	idx := make(map[key]int)
	var out []YearlyTotal
	t.each(func(r *Record) {
		k := key{r.Facility, r.Year}
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, YearlyTotal{Facility: r.Facility, Year: r.Year})
		}
		out[i].Discharges += r.Discharges
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Facility != out[j].Facility {
			return out[i].Facility < out[j].Facility
		}
		return out[i].Year < out[j].Year
	})
	return out
}

// ChargeGap is a facility's summed (mean charge − mean cost).
type ChargeGap struct {
	Facility string
	TotalGap float64
}

// ChargeGapRanking sums each facility's per-record charge gap across all
// years, ranks facilities by that sum descending and keeps the first n
// (DefaultTopN when n <= 0). Missing gaps add nothing to the sum. Ties
// keep the order in which facilities first appear in the table.
func ChargeGapRanking(t *Table, n int) []ChargeGap {
	if n <= 0 {
		n = DefaultTopN
	}
	idx := make(map[string]int)
	var gaps []ChargeGap
	t.each(func(r *Record) {
		i, ok := idx[r.Facility]
		if !ok {
			i = len(gaps)
			idx[r.Facility] = i
			gaps = append(gaps, ChargeGap{Facility: r.Facility})
		}
		if g := r.Gap(); !math.IsNaN(g) {
			gaps[i].TotalGap += g
		}
	})
	sort.SliceStable(gaps, func(i, j int) bool {
		return gaps[i].TotalGap > gaps[j].TotalGap
	})
	if len(gaps) > n {
		gaps = gaps[:n]
	}
	return gaps
}

// TimePoint is one record of a facility trend.
type TimePoint struct {
	Year       int
	MeanCharge float64
	Discharges float64
}

// FacilityTimeSeries returns every record of facility projected to
// (year, mean charge, discharges), ordered by year. Several points may
// share a year; see AverageByYear.
func FacilityTimeSeries(t *Table, facility string) []TimePoint {
	var out []TimePoint
	t.each(func(r *Record) {
		if r.Facility == facility {
			out = append(out, TimePoint{Year: r.Year, MeanCharge: r.MeanCharge, Discharges: r.Discharges})
		}
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// AverageByYear collapses points to one per year: the mean of mean
// charge and the sum of discharges. Input must be ordered by year, as
// FacilityTimeSeries returns it.
func AverageByYear(points []TimePoint) []TimePoint {
	var out []TimePoint
	var n int
	for i, p := range points {
		if i == 0 || p.Year != out[len(out)-1].Year {
			if n > 0 {
				out[len(out)-1].MeanCharge /= float64(n)
			}
			out = append(out, TimePoint{Year: p.Year})
			n = 0
		}
		last := &out[len(out)-1]
		last.MeanCharge += p.MeanCharge
		last.Discharges += p.Discharges
		n++
	}
	if n > 0 {
		out[len(out)-1].MeanCharge /= float64(n)
	}
	return out
}

// SeverityAverage holds the average mean cost and mean charge over all
// records of one severity level.
type SeverityAverage struct {
	Severity   string
	MeanCost   float64
	MeanCharge float64
	Records    int
}

// SeverityLevels is the expected severity domain, in display order.
var SeverityLevels = []string{"Minor", "Moderate", "Major", "Extreme"}

func severityRank(s string) int {
	if i := lo.IndexOf(SeverityLevels, s); i >= 0 {
		return i
	}
	return len(SeverityLevels)
}

// SeverityAverages groups records by severity level. Only levels present
// in the table get a row; known levels come first in SeverityLevels
// order, anything else follows alphabetically.
func SeverityAverages(t *Table) []SeverityAverage {
	idx := make(map[string]int)
	var out []SeverityAverage
	t.each(func(r *Record) {
		i, ok := idx[r.Severity]
		if !ok {
			i = len(out)
			idx[r.Severity] = i
			out = append(out, SeverityAverage{Severity: r.Severity})
		}
		out[i].MeanCost += r.MeanCost
		out[i].MeanCharge += r.MeanCharge
		out[i].Records++
	})
	for i := range out {
		out[i].MeanCost /= float64(out[i].Records)
		out[i].MeanCharge /= float64(out[i].Records)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := severityRank(out[i].Severity), severityRank(out[j].Severity)
		if ri != rj {
			return ri < rj
		}
		return out[i].Severity < out[j].Severity
	})
	return out
}

// Facilities lists distinct facilities in first-seen order.
func Facilities(t *Table) []string {
	var names []string
	t.each(func(r *Record) { names = append(names, r.Facility) })
	return lo.Uniq(names)
}

// DefaultFacility picks the facility with the most discharges overall,
// first seen on ties. Empty for an empty table.
func DefaultFacility(t *Table) string {
	totals := make(map[string]float64)
	t.each(func(r *Record) { totals[r.Facility] += r.Discharges })

	return lo.MaxBy(Facilities(t), func(a, b string) bool { return totals[a] > totals[b] })
}

// Views bundles the four aggregate views of one table.
type Views struct {
	Facility     string
	YearlyTotals []YearlyTotal
	ChargeGaps   []ChargeGap
	TimeSeries   []TimePoint
	Severity     []SeverityAverage
}

// BuildViews computes all views concurrently. Views only read t, so no
// coordination beyond waiting is needed. An empty facility selects
// DefaultFacility(t).
func BuildViews(ctx context.Context, t *Table, facility string, topN int) (*Views, error) {
	if facility == "" {
		facility = DefaultFacility(t)
	}
	v := &Views{Facility: facility}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v.YearlyTotals = YearlyTotals(t)
		return ctx.Err()
	})
	g.Go(func() error {
		v.ChargeGaps = ChargeGapRanking(t, topN)
		return ctx.Err()
	})
	g.Go(func() error {
		v.TimeSeries = FacilityTimeSeries(t, facility)
		return ctx.Err()
	})
	g.Go(func() error {
		v.Severity = SeverityAverages(t)
		return ctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return v, nil
}
