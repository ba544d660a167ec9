package ds

// --------------------------------------------------------------------------
// Intrusive Doubly-Linked List
// --------------------------------------------------------------------------

// ListNode is a node of a circular doubly-linked list. A detached node
// links to itself. A list is represented by a sentinel ListNode whose
// Owner is nil; the first element is sentinel.Next(), the last is
// sentinel.Prev().
type ListNode struct {
	prev, next *ListNode

	// Owner is the struct this node is embedded in (nil for sentinels)
	Owner any
}

// Init resets the node to the detached (self-linked) state.
// Must be called before first use, both for sentinels and for element
// nodes.
func (n *ListNode) Init(owner any) {
	n.prev = n
	n.next = n
	n.Owner = owner
}

// Empty reports whether the list is empty. Only meaningful on the
// sentinel.
func (n *ListNode) Empty() bool {
	return n.next == n
}

// Next returns the successor of n in list order.
func (n *ListNode) Next() *ListNode { return n.next }

// Prev returns the predecessor of n in list order.
func (n *ListNode) Prev() *ListNode { return n.prev }

// Detach unlinks the node from whatever list it is on and leaves it
// self-linked. Detaching an already detached node is a no-op.
func (n *ListNode) Detach() {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev = n
	n.next = n
}

// InsertBefore links node directly before n. With n being the sentinel
// this appends at the tail of the list.
func (n *ListNode) InsertBefore(node *ListNode) {
	node.prev = n.prev
	node.next = n
	n.prev.next = node
	n.prev = node
}
