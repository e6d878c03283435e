package stabforest

import (
	"math/rand"
	"sort"
)

// randomEvents returns n events satisfying the (Start,End) lexicographic
// non-decreasing order Forest.Append requires, with enough repeated and
// nested starts/ends to exercise the forest index's merge and navigation
// paths rather than just a sequence of singleton forest-points.
func randomEvents(rng *rand.Rand, n int) []Event {
	events := make([]Event, n)
	var start Time
	for i := range events {
		if i > 0 && rng.Intn(3) != 0 {
			start += Time(1 + rng.Intn(3))
		}
		end := start + Time(rng.Intn(15))
		if i > 0 && events[i-1].Start == start && end < events[i-1].End {
			end = events[i-1].End + Time(rng.Intn(5))
		}
		events[i] = Event{Start: start, End: end}
	}
	return events
}

func buildForest(events []Event) *Forest {
	f := NewForest()
	for _, e := range events {
		if err := f.AppendEvent(e); err != nil {
			panic(err)
		}
	}
	return f
}

func bruteForceStab(events []Event, v Time) []Event {
	var out []Event
	for _, e := range events {
		if e.Start <= v && v <= e.End {
			out = append(out, e)
		}
	}
	return out
}

func bruteForceJoin(l, r []Event) []Pair {
	var out []Pair
	for _, le := range l {
		for _, re := range r {
			if le.Start <= re.End && re.Start <= le.End {
				out = append(out, Pair{L: le, R: re})
			}
		}
	}
	return out
}

func canonicalEvents(events []Event) []Event {
	out := append([]Event(nil), events...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].End < out[j].End
	})
	return out
}

func canonicalPairs(pairs []Pair) []Pair {
	out := append([]Pair(nil), pairs...)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.L.Start != b.L.Start {
			return a.L.Start < b.L.Start
		}
		if a.L.End != b.L.End {
			return a.L.End < b.L.End
		}
		if a.R.Start != b.R.Start {
			return a.R.Start < b.R.Start
		}
		return a.R.End < b.R.End
	})
	return out
}
