package server

import (
	"bytes"
	"testing"
)

func TestBufferAppendConsume(t *testing.T) {
	var b buffer

	b.Append([]byte("hello "))
	b.Append([]byte("world"))
	if b.Len() != 11 {
		t.Fatalf("expected 11 bytes, got %d", b.Len())
	}
	if !bytes.Equal(b.Bytes(), []byte("hello world")) {
		t.Fatalf("unexpected content %q", b.Bytes())
	}

	b.Consume(6)
	if !bytes.Equal(b.Bytes(), []byte("world")) {
		t.Fatalf("after consume: %q", b.Bytes())
	}

	b.Consume(5)
	if b.Len() != 0 {
		t.Fatalf("expected empty buffer, got %d bytes", b.Len())
	}
	if b.head != 0 {
		t.Error("fully drained buffer should reset its head")
	}
}

func TestBufferInterleaved(t *testing.T) {
	var b buffer

	// interleave appends and consumes and check the stream comes out intact
	var fed, drained []byte
	next := byte(0)
	for round := 0; round < 1000; round++ {
		chunk := make([]byte, 100)
		for i := range chunk {
			chunk[i] = next
			next++
		}
		fed = append(fed, chunk...)
		b.Append(chunk)

		take := b.Len() / 2
		drained = append(drained, b.Bytes()[:take]...)
		b.Consume(take)
	}
	drained = append(drained, b.Bytes()...)
	b.Consume(b.Len())

	if !bytes.Equal(fed, drained) {
		t.Fatal("buffer reordered or lost bytes")
	}
	if b.head != 0 || len(b.data) != 0 {
		t.Error("drained buffer should be reset")
	}
}

func TestBufferCompaction(t *testing.T) {
	var b buffer

	b.Append(make([]byte, 64*1024))
	b.Consume(60 * 1024)
	if b.head != 0 {
		t.Error("consuming most of the buffer should trigger compaction")
	}
	if b.Len() != 4*1024 {
		t.Errorf("compaction changed the length: %d", b.Len())
	}
}
