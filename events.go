package stabforest

// Time is the unsigned timestamp domain used by events. The reference
// implementation uses a 32-bit domain; this module follows it.
type Time = uint32

// Event is a closed interval [Start, End] over the timestamp domain.
type Event struct {
	Start Time
	End   Time
}

// Pair is an overlapping pair produced by a join driver.
type Pair struct {
	L Event
	R Event
}

// EventPointer is a stable pointer into an EventList: an index that
// continues to denote the same event after any number of further appends.
// Growing a Go slice may move its elements to a new backing array, but
// an index keeps denoting the same element, so a plain index satisfies
// the stable-pointer contract without the block-list machinery the
// reference implementation uses to the same end.
type EventPointer int

// EventList is an append-only, insertion-ordered container of events.
// Events must be appended in non-decreasing (Start, End) lexicographic
// order; EventList itself does not enforce this (Forest does, at the
// point where order matters for index maintenance).
type EventList struct {
	events []Event
}

// Append adds e to the end of the list and returns a stable pointer to it.
func (l *EventList) Append(e Event) EventPointer {
	p := EventPointer(len(l.events))
	l.events = append(l.events, e)
	return p
}

// Len returns the number of events in the list.
func (l *EventList) Len() int {
	return len(l.events)
}

// At dereferences a stable pointer. p must be in [0, Len()).
func (l *EventList) At(p EventPointer) Event {
	return l.events[p]
}

// Back returns the last appended event. Len() must be > 0.
func (l *EventList) Back() Event {
	return l.events[len(l.events)-1]
}

// End returns the one-past-last stable pointer, i.e. EventPointer(Len()).
func (l *EventList) End() EventPointer {
	return EventPointer(len(l.events))
}

// Slice returns the events in [from, to). The returned slice aliases the list's backing array and must be treated as read-only by
// the caller.
func (l *EventList) Slice(from, to EventPointer) []Event {
	return l.events[from:to]
}
