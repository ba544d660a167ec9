// Package proto implements the wire protocol: length-prefixed request
// frames and tagged response values, all little-endian.
//
// A request is one u32 total length (excluding the prefix itself),
// then a u32 argument count, then per argument a u32 length and the
// raw bytes. A response is one u32 total length followed by a single
// tagged value; arrays nest further tagged values.
//
// The parser and serializer work on caller-owned byte buffers and never
// do I/O; the connection layer decides when enough bytes have arrived
// and where responses go.
package proto
