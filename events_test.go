package stabforest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEventListAppendStablePointers(t *testing.T) {
	var l EventList
	require.Equal(t, 0, l.Len())
	require.Equal(t, EventPointer(0), l.End())

	p0 := l.Append(Event{Start: 1, End: 5})
	p1 := l.Append(Event{Start: 2, End: 9})

	require.Equal(t, EventPointer(0), p0)
	require.Equal(t, EventPointer(1), p1)
	require.Equal(t, 2, l.Len())
	require.Equal(t, Event{Start: 1, End: 5}, l.At(p0))
	require.Equal(t, Event{Start: 2, End: 9}, l.Back())
	require.Equal(t, EventPointer(2), l.End())
}

func TestEventListAppendPreservesEarlierPointers(t *testing.T) {
	var l EventList
	var pointers []EventPointer
	for i := 0; i < 64; i++ {
		pointers = append(pointers, l.Append(Event{Start: Time(i), End: Time(i) + 1}))
	}
	for i, p := range pointers {
		require.Equal(t, Event{Start: Time(i), End: Time(i) + 1}, l.At(p))
	}
}

func TestEventListSliceAliasesBackingArray(t *testing.T) {
	var l EventList
	l.Append(Event{Start: 1, End: 2})
	l.Append(Event{Start: 3, End: 4})
	l.Append(Event{Start: 5, End: 6})

	s := l.Slice(1, 3)
	require.Equal(t, []Event{{Start: 3, End: 4}, {Start: 5, End: 6}}, s)
	require.Same(t, &l.events[1], &s[0])
}
