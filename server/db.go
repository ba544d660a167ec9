package server

import (
	"bytes"

	"github.com/jkrings/larch/lib/ds"
	"github.com/jkrings/larch/lib/worker"
	"github.com/jkrings/larch/lib/zset"
)

// --------------------------------------------------------------------------
// Entry Type (value cell of the keyspace)
// --------------------------------------------------------------------------

type entryType uint8

const (
	typeStr entryType = iota
	typeZSet
)

// Entry owns one key and its value. It is simultaneously an intrusive
// node of the main map (keyed by name) and, while a TTL is set, the
// owner of one heap item that keeps the entry's slot field current.
type Entry struct {
	node ds.HNode
	name []byte

	typ  entryType
	str  []byte
	zset *zset.ZSet

	// slot is this entry's current index in the TTL heap, -1 without TTL
	slot int
}

// SetSlot receives the heap position whenever the TTL item moves.
func (e *Entry) SetSlot(slot int) { e.slot = slot }

// --------------------------------------------------------------------------
// DB (keyspace + TTL schedule)
// --------------------------------------------------------------------------

// DB is the keyspace: the progressive-rehash main map, the TTL min-heap
// over its entries and the pool that absorbs large deallocations.
//
// Thread-safety: none. The DB is owned by the event-loop goroutine; the
// worker pool only ever sees values that were detached first.
type DB struct {
	index ds.HMap
	ttl   ds.Heap
	pool  *worker.Pool

	largeContainer int
	log            *Logger
}

// NewDB creates an empty keyspace.
func NewDB(pool *worker.Pool, largeContainer int) *DB {
	if largeContainer <= 0 {
		largeContainer = 1000
	}
	return &DB{
		pool:           pool,
		largeContainer: largeContainer,
		log:            GetLogger("db"),
	}
}

func entryEq(name []byte) func(*ds.HNode) bool {
	return func(n *ds.HNode) bool {
		return bytes.Equal(n.Owner.(*Entry).name, name)
	}
}

// get returns the entry for a key, nil if absent.
func (db *DB) get(name []byte) *Entry {
	node := db.index.Lookup(ds.Hash(name), entryEq(name))
	if node == nil {
		return nil
	}
	return node.Owner.(*Entry)
}

// insert creates an empty entry for a key not currently present. The
// caller fills in the value.
func (db *DB) insert(name []byte) *Entry {
	e := &Entry{
		name: append([]byte(nil), name...),
		slot: -1,
	}
	e.node.HCode = ds.Hash(e.name)
	e.node.Owner = e
	db.index.Insert(&e.node)
	return e
}

// remove deletes a key and destroys its value. Reports whether the key
// existed.
func (db *DB) remove(name []byte) bool {
	node := db.index.Delete(ds.Hash(name), entryEq(name))
	if node == nil {
		return false
	}
	db.destroy(node.Owner.(*Entry))
	return true
}

// destroy finishes off an entry that is already out of the main map:
// drop its TTL item and release the value.
func (db *DB) destroy(e *Entry) {
	db.clearTTL(e)
	if e.typ == typeZSet && e.zset != nil && e.zset.Len() > db.largeContainer {
		// too big to tear down on the loop; the task owns the set now
		set := e.zset
		db.log.Debugf("dispatching destruction of %q (%d members)", e.name, set.Len())
		db.pool.Submit(func() { set.Dispose() })
	}
	e.zset = nil
	e.str = nil
}

// keys returns every key name, each exactly once, including during an
// index migration.
func (db *DB) keys() [][]byte {
	names := make([][]byte, 0, db.index.Size())
	db.index.ForEach(func(n *ds.HNode) bool {
		names = append(names, n.Owner.(*Entry).name)
		return true
	})
	return names
}

// --------------------------------------------------------------------------
// TTL Schedule
// --------------------------------------------------------------------------

// setTTL installs or moves the entry's deadline; a negative ttlMs
// removes it.
func (db *DB) setTTL(e *Entry, ttlMs, nowMs int64) {
	if ttlMs < 0 {
		db.clearTTL(e)
		return
	}
	deadline := nowMs + ttlMs
	if e.slot < 0 {
		db.ttl.Push(ds.HeapItem{Val: deadline, Ref: e})
	} else {
		db.ttl.SetVal(e.slot, deadline)
	}
}

// clearTTL frees the entry's heap slot if it has one.
func (db *DB) clearTTL(e *Entry) {
	if e.slot >= 0 {
		db.ttl.PopAt(e.slot)
		e.slot = -1
	}
}

// ttlMs returns the remaining time of an entry: -1 without TTL,
// otherwise clamped to >= 0.
func (db *DB) ttlMs(e *Entry, nowMs int64) int64 {
	if e.slot < 0 {
		return -1
	}
	remaining := db.ttl.At(e.slot).Val - nowMs
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// nextDeadline returns the earliest TTL deadline.
func (db *DB) nextDeadline() (int64, bool) {
	if db.ttl.Empty() {
		return 0, false
	}
	return db.ttl.Top().Val, true
}

// expireDue removes entries whose deadline has passed, at most maxWorks
// of them, and returns how many it processed.
func (db *DB) expireDue(nowMs int64, maxWorks int) int {
	works := 0
	for works < maxWorks && !db.ttl.Empty() && db.ttl.Top().Val <= nowMs {
		e := db.ttl.Top().Ref.(*Entry)
		db.index.Delete(e.node.HCode, func(n *ds.HNode) bool {
			return n.Owner.(*Entry) == e
		})
		db.destroy(e)
		works++
	}
	return works
}
