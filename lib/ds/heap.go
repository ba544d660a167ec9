package ds

// --------------------------------------------------------------------------
// Min-Heap with Back-References
// --------------------------------------------------------------------------

// HeapRef receives the item's current position whenever the heap moves
// it. The owning struct stores the slot so it can later update or
// remove its item in O(log N) without searching.
type HeapRef interface {
	SetSlot(slot int)
}

// HeapItem is one heap element: a deadline and the back-reference to
// its owner.
type HeapItem struct {
	Val int64
	Ref HeapRef
}

// Heap is an array-based binary min-heap on HeapItem.Val. Every move of
// an item writes the new position through its back-reference, so the
// invariant holds that the owner of items[i] always knows i.
type Heap struct {
	items []HeapItem
}

func (h *Heap) Len() int { return len(h.items) }

func (h *Heap) Empty() bool { return len(h.items) == 0 }

// At returns the item at position i.
func (h *Heap) At(i int) HeapItem { return h.items[i] }

// Top returns the minimum item. The heap must not be empty.
func (h *Heap) Top() HeapItem { return h.items[0] }

// set places an item and informs its owner of the new position.
func (h *Heap) set(i int, it HeapItem) {
	h.items[i] = it
	it.Ref.SetSlot(i)
}

func (h *Heap) up(i int) {
	it := h.items[i]
	for i > 0 && h.items[(i-1)/2].Val > it.Val {
		h.set(i, h.items[(i-1)/2])
		i = (i - 1) / 2
	}
	h.set(i, it)
}

func (h *Heap) down(i int) {
	it := h.items[i]
	n := len(h.items)
	for {
		l, r := i*2+1, i*2+2
		minPos, minVal := -1, it.Val
		if l < n && h.items[l].Val < minVal {
			minPos, minVal = l, h.items[l].Val
		}
		if r < n && h.items[r].Val < minVal {
			minPos = r
		}
		if minPos < 0 {
			break
		}
		h.set(i, h.items[minPos])
		i = minPos
	}
	h.set(i, it)
}

// Update restores the heap order around position i after its value
// changed. Idempotent if the order already holds.
func (h *Heap) Update(i int) {
	if i > 0 && h.items[(i-1)/2].Val > h.items[i].Val {
		h.up(i)
	} else {
		h.down(i)
	}
}

// SetVal changes the deadline of the item at position i and restores
// the heap order.
func (h *Heap) SetVal(i int, val int64) {
	h.items[i].Val = val
	h.Update(i)
}

// Push appends an item and sifts it up.
func (h *Heap) Push(it HeapItem) {
	h.items = append(h.items, it)
	h.up(len(h.items) - 1)
}

// PopAt removes and returns the item at position i: the last element is
// moved into the hole, the array is shortened and the order restored.
func (h *Heap) PopAt(i int) HeapItem {
	it := h.items[i]
	last := len(h.items) - 1
	h.items[i] = h.items[last]
	h.items[last] = HeapItem{}
	h.items = h.items[:last]
	if i < last {
		h.Update(i)
	}
	return it
}
