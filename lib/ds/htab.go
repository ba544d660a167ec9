package ds

// --------------------------------------------------------------------------
// Hash Map with Progressive Rehashing
// --------------------------------------------------------------------------

const (
	// maximum load factor (items per bucket) of the active table
	hLoadFactor = 8
	// nodes migrated from the older table per map operation
	hMigrateWork = 128
	// initial bucket count, must be a power of two
	hInitSize = 4
)

// HNode is an intrusive hash node. The embedding struct computes and
// stores the hash code itself; the map never looks at keys, equality is
// resolved through the callback passed to Lookup/Delete.
type HNode struct {
	next  *HNode
	HCode uint64

	// Owner is the struct this node is embedded in
	Owner any
}

// htab is one fixed-size chained table. Bucket count is a power of two
// so the mask replaces the modulo.
type htab struct {
	slots []*HNode
	mask  uint64
	size  int
}

func newHTab(n int) htab {
	return htab{slots: make([]*HNode, n), mask: uint64(n - 1)}
}

func (t *htab) insert(node *HNode) {
	pos := node.HCode & t.mask
	node.next = t.slots[pos]
	t.slots[pos] = node
	t.size++
}

// lookup returns the address of the pointer that refers to the first
// matching node, or nil. Returning the slot rather than the node makes
// detach O(1).
func (t *htab) lookup(hcode uint64, eq func(*HNode) bool) **HNode {
	if t.slots == nil {
		return nil
	}
	from := &t.slots[hcode&t.mask]
	for *from != nil {
		if (*from).HCode == hcode && eq(*from) {
			return from
		}
		from = &(*from).next
	}
	return nil
}

// detach unlinks and returns the node the slot points at.
func (t *htab) detach(from **HNode) *HNode {
	node := *from
	*from = node.next
	node.next = nil
	t.size--
	return node
}

// HMap is the progressive-rehash map: at most two tables exist at a
// time. While a migration is in progress inserts go to the newer table,
// lookups and deletes consult newer then older, and every operation
// moves a bounded batch of nodes out of the older table first.
type HMap struct {
	newer      htab
	older      htab
	migratePos uint64
}

// helpMigrate moves up to hMigrateWork nodes from the older table into
// the newer one. When the older table drains it is released.
func (m *HMap) helpMigrate() {
	nwork := 0
	for nwork < hMigrateWork && m.older.size > 0 {
		from := &m.older.slots[m.migratePos]
		if *from == nil {
			m.migratePos++
			continue
		}
		m.newer.insert(m.older.detach(from))
		nwork++
	}
	if m.older.size == 0 && m.older.slots != nil {
		m.older = htab{}
		m.migratePos = 0
	}
}

// Lookup returns the matching node or nil.
func (m *HMap) Lookup(hcode uint64, eq func(*HNode) bool) *HNode {
	m.helpMigrate()
	from := m.newer.lookup(hcode, eq)
	if from == nil {
		from = m.older.lookup(hcode, eq)
	}
	if from == nil {
		return nil
	}
	return *from
}

// Insert places the node into the map. The caller guarantees the key is
// not already present. Exceeding the load factor starts a migration
// into a table of twice the capacity.
func (m *HMap) Insert(node *HNode) {
	if m.newer.slots == nil {
		m.newer = newHTab(hInitSize)
	}
	m.helpMigrate()
	m.newer.insert(node)

	if m.older.slots == nil && m.newer.size > len(m.newer.slots)*hLoadFactor {
		m.older = m.newer
		m.newer = newHTab(len(m.older.slots) * 2)
		m.migratePos = 0
	}
}

// Delete detaches and returns the matching node, or nil.
func (m *HMap) Delete(hcode uint64, eq func(*HNode) bool) *HNode {
	m.helpMigrate()
	if from := m.newer.lookup(hcode, eq); from != nil {
		return m.newer.detach(from)
	}
	if from := m.older.lookup(hcode, eq); from != nil {
		return m.older.detach(from)
	}
	return nil
}

// Size returns the number of nodes across both tables.
func (m *HMap) Size() int { return m.newer.size + m.older.size }

// ForEach visits every node in both tables until fn returns false.
// A node lives in exactly one table at any instant, so no key is
// visited twice during a migration.
func (m *HMap) ForEach(fn func(*HNode) bool) {
	for _, t := range [2]*htab{&m.newer, &m.older} {
		for _, n := range t.slots {
			for ; n != nil; n = n.next {
				if !fn(n) {
					return
				}
			}
		}
	}
}

// Clear drops both tables. The nodes themselves are untouched.
func (m *HMap) Clear() {
	m.newer = htab{}
	m.older = htab{}
	m.migratePos = 0
}
