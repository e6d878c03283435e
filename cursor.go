package stabforest

// JumpPolicy decides, for a single ForwardCursor.StabForward call, whether
// to resolve the request by scanning the event-list (list_stab_forward)
// or by navigating the forest index (index_stab_forward). Forest.Stab
// always uses the index; the forward cursor makes this a policy because
// near the end of a long event-list a linear scan can beat an index
// descent, and vice versa near the beginning.
type JumpPolicy interface {
	jumpForward(c *ForwardCursor, value Time)
}

// ListPolicy always scans the event-list forward from the cursor's
// current position.
type ListPolicy struct{}

func (ListPolicy) jumpForward(c *ForwardCursor, value Time) { c.listStabForward(value) }

// IndexPolicy always navigates the forest index.
type IndexPolicy struct{}

func (IndexPolicy) jumpForward(c *ForwardCursor, value Time) { c.indexStabForward(value) }

// CheckPolicy scans the event-list when the cursor is within Threshold
// events of the end, or when the event Threshold steps ahead already
// starts at-or-after value (meaning an index descent would not skip
// enough of the list to be worth its overhead); otherwise it navigates
// the index.
type CheckPolicy struct {
	Threshold int
}

func (p CheckPolicy) jumpForward(c *ForwardCursor, value Time) {
	total := c.forest.events.Len()
	remaining := total - int(c.eventListIt)
	if remaining <= p.Threshold {
		c.listStabForward(value)
		return
	}
	peek := c.forest.events.At(EventPointer(int(c.eventListIt) + p.Threshold))
	if value <= peek.Start {
		c.listStabForward(value)
		return
	}
	c.indexStabForward(value)
}

// ForwardCursor performs repeated, monotonically non-decreasing
// stab-forward queries against a Forest: StabForward(v) emits every
// event active at v that starts at-or-after the start-time of the event
// the cursor is currently positioned at, and advances the cursor past
// every event with start <= v. It is only valid while the underlying
// forest is not appended to; construct a new cursor after any Append.
type ForwardCursor struct {
	forest *Forest
	sink   EventSink
	policy JumpPolicy

	eventListIt EventPointer

	// wentLeft/firstLeftParent record, for the duration of a single
	// StabForward call, whether and where the index descent first went
	// left; after_trees reuses firstLeftParent between calls to resume
	// walking the forest-point chain without rescanning it from the top.
	wentLeft        bool
	firstLeftParent *stabTreeNode

	// visitedNodes[h]/startAscIt[h] remember, per node height, the node
	// last visited at that height and how far its ascending-start
	// left-list view has been consumed, so a later call resuming at the
	// same node continues instead of rescanning from the beginning.
	visitedNodes []*stabTreeNode
	startAscIt   [][]Event
}

// ForwardCursor returns a cursor starting at the beginning of the forest.
func (f *Forest) ForwardCursor(sink EventSink, policy JumpPolicy) *ForwardCursor {
	return f.ForwardCursorPtr(f.Begin(), sink, policy)
}

// ForwardCursorPtr returns a cursor starting at an existing position,
// e.g. the cursor previously returned by Stab or by another
// ForwardCursor's StabForward.
func (f *Forest) ForwardCursorPtr(start Cursor, sink EventSink, policy JumpPolicy) *ForwardCursor {
	size := 0
	if len(f.index) > 0 {
		size = f.IndexHeight() + 1
	}
	return &ForwardCursor{
		forest:       f,
		sink:         sink,
		policy:       policy,
		eventListIt:  start,
		visitedNodes: make([]*stabTreeNode, size),
		startAscIt:   make([][]Event, size),
	}
}

// Position returns the cursor's current position in the event-list.
func (c *ForwardCursor) Position() Cursor { return c.eventListIt }

// Done reports whether the cursor has reached the end of the event-list.
func (c *ForwardCursor) Done() bool { return c.eventListIt == c.forest.End() }

// Advance moves the cursor to the next event in the event-list, without
// performing any stab. Used by join drivers once the event at the
// cursor's current position has been fully processed.
func (c *ForwardCursor) Advance() { c.eventListIt++ }

// StabForward emits every not-yet-emitted event active at value and
// advances the cursor past every event starting at-or-before value.
// value must be greater than or equal to every value passed to a
// previous call on this cursor.
func (c *ForwardCursor) StabForward(value Time) {
	c.policy.jumpForward(c, value)
}

func (c *ForwardCursor) listStabForward(value Time) {
	end := c.forest.End()
	for c.eventListIt != end {
		e := c.forest.events.At(c.eventListIt)
		if e.Start > value {
			break
		}
		if value <= e.End && c.sink != nil {
			c.sink(e)
		}
		c.eventListIt++
	}
}

func (c *ForwardCursor) indexStabForward(value Time) {
	c.wentLeft = false

	if c.firstLeftParent == nil {
		if c.eventListIt == c.forest.Begin() {
			c.forest.navigateIndex(value, c, nil)
		} else {
			startAtAfter := c.forest.events.At(c.eventListIt).Start
			c.forest.navigateIndex(value, c, &startAtAfter)
		}
		return
	}

	startAtAfter := c.forest.events.At(c.eventListIt).Start
	if len(c.forest.index) > 0 && value <= c.forest.index[len(c.forest.index)-1].dkey {
		c.forest.navigateStabTreeNode(c.firstLeftParent, value, c, &startAtAfter)
	} else {
		c.afterTrees(value, &startAtAfter)
	}
}

func copyStartAscSliceFiltered(events []Event, sink EventSink, v, mstart Time) []Event {
	i := 0
	for i < len(events) && events[i].Start < mstart {
		i++
	}
	return copyStartAscSlice(events[i:], sink, v)
}

func (c *ForwardCursor) copyStartAscEventsFiltered(from EventPointer, v, mstart Time) EventPointer {
	i := int(from)
	n := c.forest.events.Len()
	for i < n && c.forest.events.At(EventPointer(i)).Start < mstart {
		i++
	}
	return c.forest.copyStartAscEvents(EventPointer(i), c.sink, v)
}

// navOps implementation. Mirrors stab_forward_helper's before_trees/
// after_trees/left_child/right_child/select_node, in their first-stab
// (startAtAfter == nil) and continuing-stab (startAtAfter != nil) forms.

func (c *ForwardCursor) beforeTrees(value Time, startAtAfter *Time) {
	if startAtAfter != nil {
		c.eventListIt = c.copyStartAscEventsFiltered(c.eventListIt, value, *startAtAfter)
	} else {
		c.eventListIt = c.forest.copyStartAscEvents(c.eventListIt, c.sink, value)
	}
}

func (c *ForwardCursor) afterTrees(value Time, startAtAfter *Time) {
	if len(c.forest.index) > 0 {
		if c.firstLeftParent == nil {
			c.firstLeftParent = &c.forest.index[0].stabTreeNode
		}
		for c.firstLeftParent != nil {
			c.rightChild(c.firstLeftParent, value, startAtAfter)
			c.firstLeftParent = c.firstLeftParent.right
		}
		c.firstLeftParent = &c.forest.index[len(c.forest.index)-1].stabTreeNode
	}

	tailBegin := c.forest.tailPointer
	if c.forest.events.Len() > 0 && value < c.forest.events.Back().Start {
		c.eventListIt = tailBegin
		return
	}

	tail := c.forest.events.Slice(tailBegin, c.forest.events.End())
	if startAtAfter != nil {
		copyEndDecReverseFiltered(tail, c.sink, value, *startAtAfter)
	} else {
		copyEndDecReverse(tail, c.sink, value)
	}
	c.eventListIt = c.forest.events.End()
}

func (c *ForwardCursor) leftChild(node *stabTreeNode, value Time, startAtAfter *Time) {
	if !c.wentLeft {
		c.wentLeft = true
		c.firstLeftParent = node
	}

	if c.visitedNodes[node.height] != node {
		c.visitedNodes[node.height] = node
		c.startAscIt[node.height] = node.navAscStart()
	}

	if startAtAfter != nil {
		c.startAscIt[node.height] = copyStartAscSliceFiltered(c.startAscIt[node.height], c.sink, value, *startAtAfter)
	} else {
		c.startAscIt[node.height] = copyStartAscSlice(c.startAscIt[node.height], c.sink, value)
	}
}

func (c *ForwardCursor) rightChild(node *stabTreeNode, value Time, startAtAfter *Time) {
	c.visitedNodes[node.height] = node

	if startAtAfter == nil {
		copyEndDecSlice(node.dataDescEnd(), c.sink, value)
		copyEndDecSlice(node.navDescEnd(), c.sink, value)
		return
	}

	sa := *startAtAfter
	if sa <= node.dkey {
		copyEndDecSliceFiltered(node.dataDescEnd(), c.sink, value, sa)
	}
	if node.nkey != 0 && sa < node.nkey-1 {
		copyEndDecSliceFiltered(node.navDescEnd(), c.sink, value, sa)
	}
}

func (c *ForwardCursor) selectNode(node *stabTreeNode, value Time, startAtAfter *Time) {
	c.visitedNodes[node.height] = node

	if startAtAfter == nil {
		if value == node.dkey {
			copyEndDecSlice(node.dataDescEnd(), c.sink, value)
		}
		copyEndDecSlice(node.navDescEnd(), c.sink, value)
	} else {
		sa := *startAtAfter
		if value == node.dkey {
			copyEndDecSliceFiltered(node.dataDescEnd(), c.sink, value, sa)
		}
		if node.nkey != 0 && sa < node.nkey-1 {
			copyEndDecSliceFiltered(node.navDescEnd(), c.sink, value, sa)
		}
	}

	if value < node.dkey {
		c.eventListIt = node.dataBegin
	} else {
		c.eventListIt = node.dataEnd
	}
}
