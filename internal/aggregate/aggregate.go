// Package aggregate computes summed statistics over a set of patrols for a
// date range. Everything here is pure: no I/O, no clock, deterministic and
// order-independent output.
package aggregate

import (
	"time"

	"github.com/streetwatch/patrol-log/internal/model"
)

// Range is an inclusive [Start, End] window matched against each patrol's
// start time.
type Range struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls within the range, bounds included.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Result is the aggregation over a filtered patrol set.
//
// Totals always carries all nine counters and Contacts all 32 matrix
// cells, even when NoData is set, so formatters never have to nil-check.
type Result struct {
	Patrols  int           // number of patrols in range
	Totals   model.StatMap // summed service counters
	Contacts model.StatMap // summed contact matrix cells
	NoData   bool          // true when no patrol fell inside the range
}

// Filter returns the patrols whose start time lies inside r, preserving
// input order. Formatters list exactly this subset so report rows and
// report totals can never disagree.
func Filter(patrols []model.Patrol, r Range) []model.Patrol {
	out := make([]model.Patrol, 0, len(patrols))
	for _, p := range patrols {
		if r.Contains(p.StartTime) {
			out = append(out, p)
		}
	}
	return out
}

// Aggregate filters patrols by r and sums their statistics and contact
// matrices. Counters absent from a patrol's maps count as zero. An empty
// filtered set yields an all-zero result with NoData set rather than nil.
func Aggregate(patrols []model.Patrol, r Range) Result {
	filtered := Filter(patrols, r)
	res := Result{
		Patrols:  len(filtered),
		Totals:   model.ZeroStatistics(),
		Contacts: model.ZeroContactStatistics(),
		NoData:   len(filtered) == 0,
	}
	contactKeys := model.ContactKeys()
	for _, p := range filtered {
		for _, key := range model.CounterKeys {
			res.Totals[key] += p.Statistics.Get(key)
		}
		for _, key := range contactKeys {
			res.Contacts[key] += p.ContactStatistics.Get(key)
		}
	}
	return res
}
