package stabforest

import (
	"errors"
	"fmt"
)

// ErrOutOfOrderAppend is returned by Forest.Append/AppendEvent when the
// supplied event precedes, in (start, end) lexicographic order, the last
// event appended to the forest. This is a programming error at the call
// site: the forest's index maintenance assumes monotone ingestion, so the
// rejected event is not added and the forest is left as it was.
var ErrOutOfOrderAppend = errors.New("stabforest: event precedes last appended event")

// ErrPseudoMedianFailed signals that pseudoMedian could not converge to a
// valid split timestamp (both inputs empty, or its bisection of the
// shorter input found no valid partition). This is an
// internal invariant violation: for any non-empty combination of valid,
// sorted inputs a pseudo-median always exists. Seeing this error means a
// precondition (sortedness, non-emptiness) was violated upstream.
var ErrPseudoMedianFailed = errors.New("stabforest: pseudo-median bisection failed to converge")

func outOfOrderError(last, next Event) error {
	return fmt.Errorf("%w: last=(%d,%d) next=(%d,%d)", ErrOutOfOrderAppend, last.Start, last.End, next.Start, next.End)
}
