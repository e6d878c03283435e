package stabforest

// PairSink receives overlapping event pairs produced by a join driver, in
// (left-forest event, right-forest event) order regardless of which side
// the driver happened to be sweeping when it found the pair.
type PairSink func(Pair)

type joinSide int

const (
	sideLeft joinSide = iota
	sideRight
)

// stabResultJoin joins a single swept event against a window [iterator,end)
// of the other forest's event-list: every event in that window starting
// at-or-before the swept event's end overlaps it. push_back-style: set the
// window once per step, then feed it events one at a time.
type stabResultJoin struct {
	side  joinSide
	other *EventList
	it    EventPointer
	end   EventPointer
	sink  PairSink
}

func (j *stabResultJoin) setIterator(it EventPointer) {
	j.it = it
}

func (j *stabResultJoin) pushBack(e Event) {
	it := j.it
	for it != j.end {
		o := j.other.At(it)
		if o.Start > e.End {
			break
		}
		if j.side == sideLeft {
			j.sink(Pair{L: e, R: o})
		} else {
			j.sink(Pair{L: o, R: e})
		}
		it++
	}
}

// ForwardScan joins l and r with a plain sweep over both event-lists,
// with no use of either forest's index. It is the baseline join driver:
// O(|l|+|r|+k) where k is the number of overlapping pairs found.
func ForwardScan(l, r *Forest, sink PairSink) {
	leftRJ := &stabResultJoin{side: sideLeft, other: &r.events, end: r.End(), sink: sink}
	rightRJ := &stabResultJoin{side: sideRight, other: &l.events, end: l.End(), sink: sink}

	lit, lend := l.Begin(), l.End()
	rit, rend := r.Begin(), r.End()

	for lit != lend && rit != rend {
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

// ForwardSkipJoin joins l and r the same way ForwardScan does, but
// advances each side with a ForwardCursor instead of a plain increment:
// whenever the swept event does not overlap the other side's current
// position, it jumps the lagging side's cursor forward to the other
// side's start-time instead of stepping one event at a time.
func ForwardSkipJoin(l, r *Forest, sink PairSink, policyL, policyR JumpPolicy) {
	leftRJ := &stabResultJoin{side: sideLeft, other: &r.events, end: r.End(), sink: sink}
	rightRJ := &stabResultJoin{side: sideRight, other: &l.events, end: l.End(), sink: sink}

	lcur := l.ForwardCursor(EventSink(leftRJ.pushBack), policyL)
	rcur := r.ForwardCursor(EventSink(rightRJ.pushBack), policyR)

	lend, rend := l.End(), r.End()

	for lcur.Position() != lend && rcur.Position() != rend {
		le, re := l.At(lcur.Position()), r.At(rcur.Position())
		if le.Start <= re.Start {
			leftRJ.setIterator(rcur.Position())
			if re.Start <= le.End {
				leftRJ.pushBack(le)
				lcur.Advance()
			} else {
				lcur.StabForward(re.Start)
			}
		} else {
			rightRJ.setIterator(lcur.Position())
			if le.Start <= re.End {
				rightRJ.pushBack(re)
				rcur.Advance()
			} else {
				rcur.StabForward(le.Start)
			}
		}
	}
}
