// Package server contains the request engine: the single-goroutine
// event loop with readiness multiplexing, the connection and buffer
// layer, the keyspace with TTL expiration, and the command handlers.
//
// All keyspace state is owned by the loop goroutine. The only other
// execution contexts are the worker-pool goroutines, and the only work
// they ever receive is the teardown of containers that have already
// been detached from every index.
package server
