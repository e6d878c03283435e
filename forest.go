package stabforest

import (
	"math"
	"sort"

	"go.uber.org/zap"
)

// EventSink receives events produced by a stab or join operation, in the
// order the underlying traversal produces them. Implementations that need
// to retain results typically append to a slice; implementations that
// drive a join typically feed a probe-window helper (see join.go).
type EventSink func(Event)

// Cursor is a stable pointer into a Forest's event list, as returned by
// Stab and consumed by ForwardCursor.
type Cursor = EventPointer

// stabTreeNode is an internal node of a stab-tree: a binary search tree
// over start-timestamps in which every descendant's dkey falls within
// [nkey, dkey]. Forest-points (the roots of the forest's index) embed one
// of these to play the role of a BST node during navigation, with their
// own left-list reinterpreted as a max-list (see forestPoint).
type stabTreeNode struct {
	nkey, dkey Time

	left, right *stabTreeNode

	height int

	dataBegin, dataEnd EventPointer

	// llData holds three logical views in one contiguous buffer:
	//   [0:nllSize)              navigation-key list, ascending start
	//   [nllSize:llSize)         data-key list, descending end
	//   [llSize:llSize+nllSize)  navigation-key list, descending end
	nllSize, llSize int
	llData          []Event
}

func (n *stabTreeNode) navAscStart() []Event { return n.llData[:n.nllSize] }
func (n *stabTreeNode) dataDescEnd() []Event { return n.llData[n.nllSize:n.llSize] }
func (n *stabTreeNode) navDescEnd() []Event  { return n.llData[n.llSize : n.llSize+n.nllSize] }

// forestPoint is the root of one tree in the forest index. Its embedded
// stabTreeNode fields represent the forest-point's own cell: left points
// to the subtree it roots, right chains to the next forest-point in the
// index (used only while navigating across multiple forest-points), and
// its left-list doubles as a max-list covering the entire subtree.
// replacementNode is the plain node that takes the forest-point's place
// once it is merged with a neighbour of equal height.
type forestPoint struct {
	stabTreeNode
	replacementNode *stabTreeNode
}

// Forest is the stab-forest index (component B) layered over an
// append-only EventList (component A). It is safe for any number of
// concurrent readers (Stab, ForwardCursor) as long as no Append runs
// concurrently with them (see SPEC_FULL.md §5).
type Forest struct {
	events EventList

	// nodes is an append-only arena of the leaf nodes built for each
	// flushed tail; entries never change identity once allocated (only
	// their field values mutate, during merges). index lists the current
	// forest-points; maintainIndex removes each merged pair and appends
	// the forest-point that replaces it.
	nodes []*stabTreeNode
	index []*forestPoint

	tailPointer EventPointer
	minKey      Time

	log *zap.Logger
}

// NewForest returns an empty stab-forest with a no-op logger.
func NewForest() *Forest {
	return NewForestWithLogger(nil)
}

// NewForestWithLogger returns an empty stab-forest that reports index
// maintenance at debug level on the given logger. A nil logger behaves
// like NewForest.
func NewForestWithLogger(log *zap.Logger) *Forest {
	return &Forest{
		minKey: math.MaxUint32,
		log:    orNop(log),
	}
}

// Len returns the number of events appended to the forest.
func (f *Forest) Len() int { return f.events.Len() }

// Begin returns the cursor of the first event in the forest.
func (f *Forest) Begin() Cursor { return 0 }

// End returns the one-past-last cursor.
func (f *Forest) End() Cursor { return f.events.End() }

// At dereferences a cursor previously returned by this forest.
func (f *Forest) At(c Cursor) Event { return f.events.At(c) }

// IndexHeight returns the height of the forest index (0 if empty).
func (f *Forest) IndexHeight() int {
	if len(f.index) == 0 {
		return 0
	}
	return f.index[0].height
}

func lexLess(a, b Event) bool {
	if a.Start != b.Start {
		return a.Start < b.Start
	}
	return a.End < b.End
}

// Append appends the interval [start,end] to the forest. start and end
// must not precede, in (start,end) lexicographic order, the last event
// appended; violating this returns ErrOutOfOrderAppend and leaves the
// forest's state from before the call untouched.
func (f *Forest) Append(start, end Time) error {
	return f.AppendEvent(Event{Start: start, End: end})
}

// AppendEvent is the Event-valued form of Append.
func (f *Forest) AppendEvent(e Event) error {
	if f.events.Len() > 0 {
		last := f.events.Back()
		if lexLess(e, last) {
			return outOfOrderError(last, e)
		}
		if e.Start != last.Start {
			f.buildLeafForestPoint()
		}
	} else {
		f.minKey = e.Start
	}
	f.events.Append(e)
	return nil
}

// buildLeafForestPoint absorbs the current event-list tail (every event
// appended since the last start-time change) into a new height-1
// forest-point and advances the tail pointer past it, then runs
// maintenance to merge any now-equal-height trailing forest-points.
func (f *Forest) buildLeafForestPoint() {
	first := f.tailPointer
	last := f.events.End()
	tail := f.events.Slice(first, last)
	key := tail[0].Start

	var nkey Time
	if len(f.index) > 0 {
		nkey = f.index[len(f.index)-1].dkey + 1
	} else {
		nkey = key
	}

	leaf := &stabTreeNode{
		nkey:      nkey,
		dkey:      key,
		dataBegin: first,
		dataEnd:   last,
	}
	f.nodes = append(f.nodes, leaf)

	reversedTail := make([]Event, len(tail))
	for i, e := range tail {
		reversedTail[len(tail)-1-i] = e
	}

	fp := &forestPoint{
		stabTreeNode: stabTreeNode{
			nkey:      nkey,
			dkey:      key,
			height:    1,
			dataBegin: first,
			dataEnd:   last,
			nllSize:   0,
			llSize:    len(tail),
			llData:    reversedTail,
		},
		replacementNode: leaf,
	}
	f.index = append(f.index, fp)
	f.tailPointer = last

	f.maintainIndex()
}

// maintainIndex merges the last two forest-points in the index while
// they have equal height, preserving the invariant that forest-point
// heights strictly decrease (except transiently during this call).
func (f *Forest) maintainIndex() {
	for len(f.index) >= 2 {
		right := f.index[len(f.index)-1]
		left := f.index[len(f.index)-2]

		if left.height != right.height {
			left.right = &right.stabTreeNode
			return
		}

		merged := f.mergeForestPoints(left, right)
		f.index = f.index[:len(f.index)-2]
		f.index = append(f.index, merged)

		f.log.Debug("stab-forest: merged forest points",
			zap.Uint32("nkey", merged.nkey),
			zap.Uint32("dkey", merged.dkey),
			zap.Int("height", merged.height),
		)
	}
}

// mergeThreeDescByEnd merges three slices already sorted by descending
// End into one, breaking ties in favour of a, then b, then c.
func mergeThreeDescByEnd(a, b, c []Event) []Event {
	result := make([]Event, 0, len(a)+len(b)+len(c))
	i, j, k := 0, 0, 0
	for i < len(a) || j < len(b) || k < len(c) {
		pick := -1
		var bestEnd Time
		if i < len(a) {
			pick, bestEnd = 0, a[i].End
		}
		if j < len(b) && (pick == -1 || b[j].End > bestEnd) {
			pick, bestEnd = 1, b[j].End
		}
		if k < len(c) && (pick == -1 || c[k].End > bestEnd) {
			pick, bestEnd = 2, c[k].End
		}
		switch pick {
		case 0:
			result = append(result, a[i])
			i++
		case 1:
			result = append(result, b[j])
			j++
		case 2:
			result = append(result, c[k])
			k++
		}
	}
	return result
}

// mergeForestPoints merges two equal-height forest-points into one,
// turning left's pre-allocated replacement node into a genuine internal
// node (root) and right's replacement node into the basis of the new,
// taller forest-point. See DESIGN.md and stab_forest.hpp for the
// left-list/max-list bookkeeping this performs.
func (f *Forest) mergeForestPoints(left, right *forestPoint) *forestPoint {
	root := left.replacementNode
	fpNode := right.replacementNode

	root.left = left.left
	root.right = right.left
	root.height = left.height

	leftNavAsc := left.navAscStart()
	leftDataDesc := left.dataDescEnd()
	leftNavDesc := left.navDescEnd()

	// Split left's descending-end views at the point where End drops
	// below the new dividing key (right's nkey): the prefix remains
	// active past the divide and survives into the new max-list, the
	// suffix becomes final and settles into root's own left-list.
	dllSplit := sort.Search(len(leftDataDesc), func(i int) bool { return leftDataDesc[i].End < fpNode.nkey })
	nllSplit := sort.Search(len(leftNavDesc), func(i int) bool { return leftNavDesc[i].End < fpNode.nkey })

	// Partition left's ascending-start view by the same criterion,
	// preserving relative order within each partition.
	maxNavAscKept := make([]Event, 0, len(leftNavAsc))
	rootNavAscDropped := make([]Event, 0, len(leftNavAsc))
	for _, e := range leftNavAsc {
		if e.End >= fpNode.nkey {
			maxNavAscKept = append(maxNavAscKept, e)
		} else {
			rootNavAscDropped = append(rootNavAscDropped, e)
		}
	}

	// root's new left-list: ascending-start dropped prefix, then the
	// dropped (now final) suffixes of the descending-end views.
	rootLeftList := make([]Event, 0, len(rootNavAscDropped)+(len(leftDataDesc)-dllSplit)+(len(leftNavDesc)-nllSplit))
	rootLeftList = append(rootLeftList, rootNavAscDropped...)
	rootLeftList = append(rootLeftList, leftDataDesc[dllSplit:]...)
	rootLeftList = append(rootLeftList, leftNavDesc[nllSplit:]...)

	// new forest-point's ascending-start section: left's kept nav-asc
	// events, then left's kept data-desc prefix reversed back into
	// ascending order (valid because, per I1, same-start events are
	// appended in ascending end order, so the descending-end data-key
	// list is exactly that run reversed), then right's entire nav-asc
	// view (right's max-list needs no splitting: every member already
	// satisfies end >= right.nkey == fpNode.nkey).
	newNavAsc := make([]Event, 0, len(maxNavAscKept)+dllSplit+right.nllSize)
	newNavAsc = append(newNavAsc, maxNavAscKept...)
	for i := dllSplit - 1; i >= 0; i-- {
		newNavAsc = append(newNavAsc, leftDataDesc[i])
	}
	newNavAsc = append(newNavAsc, right.navAscStart()...)

	newDataDesc := append([]Event{}, right.dataDescEnd()...)

	newNavDesc := mergeThreeDescByEnd(leftNavDesc[:nllSplit], leftDataDesc[:dllSplit], right.navDescEnd())

	newNllSize := len(newNavAsc)
	newLlSize := newNllSize + len(newDataDesc)

	rawMaxList := make([]Event, 0, newLlSize+newNllSize)
	rawMaxList = append(rawMaxList, newNavAsc...)
	rawMaxList = append(rawMaxList, newDataDesc...)
	rawMaxList = append(rawMaxList, newNavDesc...)

	newFP := &forestPoint{
		stabTreeNode: stabTreeNode{
			nkey:      fpNode.nkey,
			dkey:      fpNode.dkey,
			left:      root,
			right:     nil,
			height:    root.height + 1,
			dataBegin: fpNode.dataBegin,
			dataEnd:   fpNode.dataEnd,
			nllSize:   newNllSize,
			llSize:    newLlSize,
			llData:    rawMaxList,
		},
		replacementNode: fpNode,
	}

	root.nllSize = len(rootNavAscDropped)
	root.llSize = root.nllSize + (len(leftDataDesc) - dllSplit)
	root.llData = rootLeftList

	return newFP
}

// navigateIndex walks into the forest index to find the node whose
// [nkey,dkey] window contains value, dispatching to ops at each step.
// startAtAfter, when non-nil, is threaded through to ops to let a
// continuing stab-forward filter out already-emitted events (see
// cursor.go); it is nil for one-shot stabs.
func (f *Forest) navigateIndex(value Time, ops navOps, startAtAfter *Time) {
	switch {
	case value <= f.minKey:
		ops.beforeTrees(value, startAtAfter)
	case len(f.index) > 0 && value <= f.index[len(f.index)-1].dkey:
		f.navigateStabTreeNode(&f.index[0].stabTreeNode, value, ops, startAtAfter)
	default:
		ops.afterTrees(value, startAtAfter)
	}
}

func (f *Forest) navigateStabTreeNode(node *stabTreeNode, value Time, ops navOps, startAtAfter *Time) {
	for !(node.nkey <= value && value <= node.dkey) {
		if value < node.nkey {
			ops.leftChild(node, value, startAtAfter)
			node = node.left
		} else {
			ops.rightChild(node, value, startAtAfter)
			node = node.right
		}
	}
	ops.selectNode(node, value, startAtAfter)
}

// navOps is the callback interface driving navigateIndex/navigateStabTreeNode.
type navOps interface {
	beforeTrees(value Time, startAtAfter *Time)
	afterTrees(value Time, startAtAfter *Time)
	leftChild(node *stabTreeNode, value Time, startAtAfter *Time)
	rightChild(node *stabTreeNode, value Time, startAtAfter *Time)
	selectNode(node *stabTreeNode, value Time, startAtAfter *Time)
}

// copy helpers. These mirror the copy_start_asc/copy_end_dec family from
// stab_forest.hpp: they stop at the first element that fails the
// predicate (the source ranges are always sorted such that this is safe).
// The slice variants return the unconsumed remainder of the input, the
// reverse variants return nothing.

func copyStartAscSlice(events []Event, sink EventSink, v Time) []Event {
	i := 0
	for i < len(events) && events[i].Start <= v {
		if sink != nil {
			sink(events[i])
		}
		i++
	}
	return events[i:]
}

func copyEndDecSlice(events []Event, sink EventSink, v Time) []Event {
	i := 0
	for i < len(events) && events[i].End >= v {
		if sink != nil {
			sink(events[i])
		}
		i++
	}
	return events[i:]
}

func copyEndDecSliceFiltered(events []Event, sink EventSink, v, mstart Time) []Event {
	i := 0
	for i < len(events) && events[i].End >= v {
		if mstart <= events[i].Start && sink != nil {
			sink(events[i])
		}
		i++
	}
	return events[i:]
}

func copyEndDecReverse(events []Event, sink EventSink, v Time) {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].End < v {
			return
		}
		if sink != nil {
			sink(events[i])
		}
	}
}

func copyEndDecReverseFiltered(events []Event, sink EventSink, v, mstart Time) {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].End < v {
			return
		}
		if mstart <= events[i].Start && sink != nil {
			sink(events[i])
		}
	}
}

// copyStartAscEvents advances the event-list cursor from "from" while
// events start at-or-before v, copying them to sink; it returns the
// cursor positioned at the first event with start > v (or the list end).
func (f *Forest) copyStartAscEvents(from EventPointer, sink EventSink, v Time) EventPointer {
	i := int(from)
	n := f.events.Len()
	for i < n {
		e := f.events.At(EventPointer(i))
		if e.Start > v {
			break
		}
		if sink != nil {
			sink(e)
		}
		i++
	}
	return EventPointer(i)
}

// stabCollector implements navOps for a one-shot Stab call.
type stabCollector struct {
	forest  *Forest
	sink    EventSink
	nextPtr Cursor
}

func (c *stabCollector) beforeTrees(v Time, _ *Time) {
	c.nextPtr = c.forest.copyStartAscEvents(0, c.sink, v)
}

func (c *stabCollector) afterTrees(v Time, _ *Time) {
	for _, fp := range c.forest.index {
		c.rightChild(&fp.stabTreeNode, v, nil)
	}

	tailBegin := c.forest.tailPointer
	if c.forest.events.Len() > 0 && v < c.forest.events.Back().Start {
		c.nextPtr = tailBegin
		return
	}
	tail := c.forest.events.Slice(tailBegin, c.forest.events.End())
	copyEndDecReverse(tail, c.sink, v)
	c.nextPtr = c.forest.events.End()
}

func (c *stabCollector) leftChild(node *stabTreeNode, v Time, _ *Time) {
	copyStartAscSlice(node.navAscStart(), c.sink, v)
}

func (c *stabCollector) rightChild(node *stabTreeNode, v Time, _ *Time) {
	copyEndDecSlice(node.dataDescEnd(), c.sink, v)
	copyEndDecSlice(node.navDescEnd(), c.sink, v)
}

func (c *stabCollector) selectNode(node *stabTreeNode, v Time, _ *Time) {
	if v == node.dkey {
		copyEndDecSlice(node.dataDescEnd(), c.sink, v)
	}
	copyEndDecSlice(node.navDescEnd(), c.sink, v)
	if v < node.dkey {
		c.nextPtr = node.dataBegin
	} else {
		c.nextPtr = node.dataEnd
	}
}

// Stab copies every event active at value (start <= value <= end) to
// sink, in the order the underlying forest/tail traversal produces them,
// and returns a cursor positioned at the first event with start > value.
func (f *Forest) Stab(value Time, sink EventSink) Cursor {
	c := &stabCollector{forest: f}
	c.sink = sink
	f.navigateIndex(value, c, nil)
	return c.nextPtr
}
