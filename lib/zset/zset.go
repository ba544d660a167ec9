// Package zset implements the sorted-set value type: a weighted set of
// byte-string members with two indexes over the same nodes. The hash
// side answers by-name lookups in O(1), the tree side keeps the members
// ordered by (score, name) and answers seek and rank-offset queries in
// O(log N).
package zset

import (
	"bytes"

	"github.com/jkrings/larch/lib/ds"
)

// ZNode is one member. The same allocation is a node of both indexes;
// for every member exactly one ZNode exists and it appears in both.
type ZNode struct {
	tree  ds.AVLNode
	hash  ds.HNode
	score float64
	name  []byte
}

// Name returns the member name. The slice is owned by the set and must
// not be modified.
func (n *ZNode) Name() []byte { return n.name }

// Score returns the member's weight.
func (n *ZNode) Score() float64 { return n.score }

// Offset returns the member k positions after n in (score, name) order,
// or nil when the rank is out of range.
func (n *ZNode) Offset(k int64) *ZNode {
	t := n.tree.Offset(k)
	if t == nil {
		return nil
	}
	return t.Owner.(*ZNode)
}

// ZSet is the dual-indexed sorted set.
type ZSet struct {
	root  *ds.AVLNode
	index ds.HMap
}

// New creates an empty sorted set.
func New() *ZSet { return &ZSet{} }

// Len returns the number of members.
func (z *ZSet) Len() int { return z.index.Size() }

func newZNode(name []byte, score float64) *ZNode {
	node := &ZNode{
		score: score,
		name:  append([]byte(nil), name...),
	}
	node.tree.Init(node)
	node.hash.HCode = ds.Hash(node.name)
	node.hash.Owner = node
	return node
}

// nodeLess orders by score ascending, then name bytewise ascending.
func nodeLess(node *ds.AVLNode, score float64, name []byte) bool {
	zn := node.Owner.(*ZNode)
	if zn.score != score {
		return zn.score < score
	}
	return bytes.Compare(zn.name, name) < 0
}

// treeInsert attaches the node at its ordered position and rebalances.
func (z *ZSet) treeInsert(node *ZNode) {
	node.tree.Init(node)
	if z.root == nil {
		z.root = &node.tree
		return
	}
	cur := z.root
	for {
		if nodeLess(cur, node.score, node.name) {
			if cur.Right() == nil {
				cur.AttachRight(&node.tree)
				break
			}
			cur = cur.Right()
		} else {
			if cur.Left() == nil {
				cur.AttachLeft(&node.tree)
				break
			}
			cur = cur.Left()
		}
	}
	z.root = node.tree.Fix()
}

// Insert adds the member or updates its score. An existing member is
// detached from the tree and reinserted at its new position; the hash
// side is untouched. Reports whether the member was newly added.
func (z *ZSet) Insert(name []byte, score float64) bool {
	if node := z.Lookup(name); node != nil {
		if node.score != score {
			z.root = node.tree.Del()
			node.score = score
			z.treeInsert(node)
		}
		return false
	}
	node := newZNode(name, score)
	z.index.Insert(&node.hash)
	z.treeInsert(node)
	return true
}

// Lookup finds a member by name, nil if absent.
func (z *ZSet) Lookup(name []byte) *ZNode {
	found := z.index.Lookup(ds.Hash(name), func(n *ds.HNode) bool {
		return bytes.Equal(n.Owner.(*ZNode).name, name)
	})
	if found == nil {
		return nil
	}
	return found.Owner.(*ZNode)
}

// Delete removes a member by name. Reports whether it existed.
func (z *ZSet) Delete(name []byte) bool {
	detached := z.index.Delete(ds.Hash(name), func(n *ds.HNode) bool {
		return bytes.Equal(n.Owner.(*ZNode).name, name)
	})
	if detached == nil {
		return false
	}
	node := detached.Owner.(*ZNode)
	z.root = node.tree.Del()
	node.tree.Init(nil)
	return true
}

// SeekGE returns the smallest member whose (score, name) key is greater
// than or equal to the argument, or nil.
func (z *ZSet) SeekGE(score float64, name []byte) *ZNode {
	var found *ds.AVLNode
	for cur := z.root; cur != nil; {
		if nodeLess(cur, score, name) {
			cur = cur.Right()
		} else {
			found = cur
			cur = cur.Left()
		}
	}
	if found == nil {
		return nil
	}
	return found.Owner.(*ZNode)
}

// Dispose unlinks every member so the structure can be reclaimed
// piecemeal. Intended for asynchronous destruction of large sets that
// have already been detached from all other indexes.
func (z *ZSet) Dispose() {
	disposeTree(z.root)
	z.root = nil
	z.index.Clear()
}

func disposeTree(n *ds.AVLNode) {
	if n == nil {
		return
	}
	disposeTree(n.Left())
	disposeTree(n.Right())
	node := n.Owner.(*ZNode)
	node.name = nil
	node.hash.Owner = nil
	node.tree.Init(nil)
}
