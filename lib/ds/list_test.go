package ds

import "testing"

type listOwner struct {
	id   int
	node ListNode
}

func newListOwner(id int) *listOwner {
	o := &listOwner{id: id}
	o.node.Init(o)
	return o
}

func collectIDs(sentinel *ListNode) []int {
	var ids []int
	for n := sentinel.Next(); n != sentinel; n = n.Next() {
		ids = append(ids, n.Owner.(*listOwner).id)
	}
	return ids
}

func TestListAppendOrder(t *testing.T) {
	var sentinel ListNode
	sentinel.Init(nil)

	if !sentinel.Empty() {
		t.Fatal("new list should be empty")
	}

	for i := 0; i < 5; i++ {
		sentinel.InsertBefore(&newListOwner(i).node)
	}

	ids := collectIDs(&sentinel)
	for i, id := range ids {
		if id != i {
			t.Errorf("position %d: expected id %d, got %d", i, i, id)
		}
	}
	if len(ids) != 5 {
		t.Errorf("expected 5 elements, got %d", len(ids))
	}
}

func TestListDetach(t *testing.T) {
	var sentinel ListNode
	sentinel.Init(nil)

	owners := make([]*listOwner, 4)
	for i := range owners {
		owners[i] = newListOwner(i)
		sentinel.InsertBefore(&owners[i].node)
	}

	// remove from the middle, the head and the tail
	owners[1].node.Detach()
	owners[0].node.Detach()
	owners[3].node.Detach()

	ids := collectIDs(&sentinel)
	if len(ids) != 1 || ids[0] != 2 {
		t.Errorf("expected [2], got %v", ids)
	}

	// detaching twice must be harmless
	owners[1].node.Detach()

	owners[2].node.Detach()
	if !sentinel.Empty() {
		t.Error("list should be empty after removing all elements")
	}
}

func TestListMoveToTail(t *testing.T) {
	var sentinel ListNode
	sentinel.Init(nil)

	owners := make([]*listOwner, 3)
	for i := range owners {
		owners[i] = newListOwner(i)
		sentinel.InsertBefore(&owners[i].node)
	}

	// re-appending the head must move it to the tail
	owners[0].node.Detach()
	sentinel.InsertBefore(&owners[0].node)

	ids := collectIDs(&sentinel)
	expected := []int{1, 2, 0}
	for i := range expected {
		if ids[i] != expected[i] {
			t.Fatalf("expected %v, got %v", expected, ids)
		}
	}
}
