// Package ds provides the intrusive data structures the server's data
// plane is built from: a sentinelled doubly-linked list, a balanced
// ordered tree with rank annotations, a min-heap with back-references
// and a hash map with progressive rehashing.
//
// All structures in this package are intrusive: the caller embeds the
// node type into its own struct and hands node pointers to the
// container. The container never allocates and never owns the nodes.
// List, tree and hash nodes carry an Owner field so the embedding
// struct can be recovered from a bare node pointer; the heap instead
// reports every position change through a back-reference interface.
//
// None of these structures are thread-safe. They are designed to be
// driven by a single event-loop goroutine; external synchronization is
// required for any other use.
package ds
