package stabforest

import (
	"context"
	"math"
	"sort"
)

// ParallelJoin joins l and r by recursively splitting both event-lists at
// a pseudo-median start-time and fanning the two halves, plus the pairs
// that straddle the split, out across runtime, f levels deep. sink may be
// invoked concurrently from multiple tasks; it must be safe for
// concurrent use. f <= 1 degenerates to a single-threaded
// ForwardSkipJoin using policyL/policyR.
func ParallelJoin(ctx context.Context, runtime TaskRuntime, f int, l, r *Forest, sink PairSink, policyL, policyR JumpPolicy) error {
	if f <= 1 {
		ForwardSkipJoin(l, r, sink, policyL, policyR)
		return runtime.Join(ctx)
	}
	recursiveJoin(runtime, f, l, l.Begin(), l.End(), r, r.Begin(), r.End(), sink)
	return runtime.Join(ctx)
}

// recursiveJoin submits work for the [lBegin,lEnd)x[rBegin,rEnd) join to
// runtime, splitting into two independent same-shaped subproblems plus
// two spill-over joins when fan-out remains, or a single bounded sweep
// once it doesn't. Every recursive call submits at least one task before
// returning, so runtime.Join always waits for the full join to finish.
func recursiveJoin(runtime TaskRuntime, f int, l *Forest, lBegin, lEnd Cursor, r *Forest, rBegin, rEnd Cursor, sink PairSink) {
	if f <= 1 || lBegin == lEnd || rBegin == rEnd {
		runtime.Submit(func() error {
			joinSubrange(l, lBegin, lEnd, r, rBegin, rEnd, sink)
			return nil
		})
		return
	}

	m, err := pseudoMedian(startTimes(l, lBegin, lEnd), startTimes(r, rBegin, rEnd))
	if err != nil {
		runtime.Submit(func() error { return err })
		return
	}

	lMid := splitAt(l, lBegin, lEnd, m)
	rMid := splitAt(r, rBegin, rEnd, m)

	// [lBegin,lMid)x[rBegin,rMid) and [lMid,lEnd)x[rMid,rEnd) are
	// self-contained: every event in a pair either starts at-or-before m
	// in both forests, or strictly after m in both.
	recursiveJoin(runtime, f-1, l, lBegin, lMid, r, rBegin, rMid, sink)
	recursiveJoin(runtime, f-1, l, lMid, lEnd, r, rMid, rEnd, sink)

	// The remaining pairs have one event starting at-or-before m and the
	// other strictly after; such a pair can only overlap through m, so
	// only events straddling m (start <= m <= end, i.e. active at m) can
	// take part. Collect those from each side's near half and join them
	// against the other side's far half.
	runtime.Submit(func() error {
		joinSpillover(true, l, r, lBegin, lMid, m, rMid, rEnd, sink)
		return nil
	})
	runtime.Submit(func() error {
		joinSpillover(false, r, l, rBegin, rMid, m, lMid, lEnd, sink)
		return nil
	})
}

// joinSpillover joins every event in [straddleBegin,straddleMid) active
// at m (the near half of straddleForest) against every event in
// [farBegin,farEnd) it overlaps (the far half of farForest).
// straddleIsLeft says which forest plays the L role in emitted Pairs.
func joinSpillover(straddleIsLeft bool, straddleForest, farForest *Forest, straddleBegin, straddleMid Cursor, m Time, farBegin, farEnd Cursor, sink PairSink) {
	for i := straddleBegin; i != straddleMid; i++ {
		e := straddleForest.At(i)
		if e.End < m {
			continue
		}
		for j := farBegin; j != farEnd; j++ {
			fe := farForest.At(j)
			if fe.Start > e.End {
				break
			}
			if straddleIsLeft {
				sink(Pair{L: e, R: fe})
			} else {
				sink(Pair{L: fe, R: e})
			}
		}
	}
}

// joinSubrange is ForwardScan bounded to [lBegin,lEnd) and [rBegin,rEnd):
// the leaf-level join once fan-out is exhausted. It does not use the
// forest index (and so ignores any jump policy), because the index spans
// the whole forest and cannot safely be bounded to an arbitrary subrange.
func joinSubrange(l *Forest, lBegin, lEnd Cursor, r *Forest, rBegin, rEnd Cursor, sink PairSink) {
	leftRJ := &stabResultJoin{side: sideLeft, other: &r.events, end: rEnd, sink: sink}
	rightRJ := &stabResultJoin{side: sideRight, other: &l.events, end: lEnd, sink: sink}

	lit, rit := lBegin, rBegin
	for lit != lEnd && rit != rEnd {
		le, re := l.At(lit), r.At(rit)
		if le.Start <= re.Start {
			leftRJ.setIterator(rit)
			leftRJ.pushBack(le)
			lit++
		} else {
			rightRJ.setIterator(lit)
			rightRJ.pushBack(re)
			rit++
		}
	}
}

func startTimes(f *Forest, begin, end Cursor) []Time {
	events := f.events.Slice(begin, end)
	starts := make([]Time, len(events))
	for i, e := range events {
		starts[i] = e.Start
	}
	return starts
}

func splitAt(f *Forest, begin, end Cursor, m Time) Cursor {
	events := f.events.Slice(begin, end)
	idx := sort.Search(len(events), func(i int) bool { return events[i].Start > m })
	return begin + Cursor(idx)
}

// pseudoMedian returns a value splitting a and b (each sorted ascending)
// roughly in half by combined rank: the standard median-of-two-sorted-
// arrays binary search, bisecting the shorter array only (the other
// orientation is never tried), and taking the midpoint of the other side
// when one side is empty. It returns ErrPseudoMedianFailed only if both
// are empty, or if that single bisection finds no valid partition, which
// does not happen for two sorted, non-empty inputs.
func pseudoMedian(a, b []Time) (Time, error) {
	if len(a) == 0 && len(b) == 0 {
		return 0, ErrPseudoMedianFailed
	}
	if len(a) == 0 {
		return b[len(b)/2], nil
	}
	if len(b) == 0 {
		return a[len(a)/2], nil
	}

	if len(a) > len(b) {
		a, b = b, a
	}

	lo, hi := 0, len(a)
	half := (len(a) + len(b) + 1) / 2

	for lo <= hi {
		i := (lo + hi) / 2
		j := half - i

		aLeft, aRight := Time(0), Time(math.MaxUint32)
		if i > 0 {
			aLeft = a[i-1]
		}
		if i < len(a) {
			aRight = a[i]
		}

		bLeft, bRight := Time(0), Time(math.MaxUint32)
		if j > 0 {
			bLeft = b[j-1]
		}
		if j < len(b) {
			bRight = b[j]
		}

		switch {
		case aLeft > bRight:
			hi = i - 1
		case bLeft > aRight:
			lo = i + 1
		default:
			if aLeft > bLeft {
				return aLeft, nil
			}
			return bLeft, nil
		}
	}

	return 0, ErrPseudoMedianFailed
}
