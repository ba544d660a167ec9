package proto

import (
	"bytes"
	"encoding/binary"
	"reflect"
	"testing"
)

func TestParseRequestRoundTrip(t *testing.T) {
	cases := [][][]byte{
		{[]byte("get"), []byte("k")},
		{[]byte("set"), []byte("k"), []byte("v")},
		{[]byte("keys")},
		{[]byte("set"), []byte("k"), {}}, // empty argument
	}

	for _, args := range cases {
		buf := AppendRequest(nil, args)
		got, consumed, err := ParseRequest(buf)
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if consumed != len(buf) {
			t.Fatalf("consumed %d of %d bytes", consumed, len(buf))
		}
		if len(got) != len(args) {
			t.Fatalf("expected %d args, got %d", len(args), len(got))
		}
		for i := range args {
			if !bytes.Equal(got[i], args[i]) {
				t.Fatalf("arg %d: expected %q, got %q", i, args[i], got[i])
			}
		}
	}
}

func TestParseRequestIncomplete(t *testing.T) {
	full := AppendRequest(nil, [][]byte{[]byte("get"), []byte("some-key")})

	// every strict prefix must ask for more bytes, not error
	for i := 0; i < len(full); i++ {
		args, consumed, err := ParseRequest(full[:i])
		if err != nil {
			t.Fatalf("prefix of %d bytes: unexpected error %v", i, err)
		}
		if args != nil || consumed != 0 {
			t.Fatalf("prefix of %d bytes: parser should wait", i)
		}
	}
}

func TestParseRequestPipelined(t *testing.T) {
	buf := AppendRequest(nil, [][]byte{[]byte("set"), []byte("a"), []byte("1")})
	buf = AppendRequest(buf, [][]byte{[]byte("get"), []byte("a")})

	first, n1, err := ParseRequest(buf)
	if err != nil || len(first) != 3 {
		t.Fatalf("first request: args=%d err=%v", len(first), err)
	}
	second, n2, err := ParseRequest(buf[n1:])
	if err != nil || len(second) != 2 {
		t.Fatalf("second request: args=%d err=%v", len(second), err)
	}
	if n1+n2 != len(buf) {
		t.Fatalf("consumed %d of %d bytes", n1+n2, len(buf))
	}
}

func TestParseRequestMalformed(t *testing.T) {
	// message length over the limit
	big := binary.LittleEndian.AppendUint32(nil, MaxMsgLen+1)
	if _, _, err := ParseRequest(big); err != ErrProtocol {
		t.Errorf("oversized length: expected ErrProtocol, got %v", err)
	}

	// argument count over the limit
	buf := binary.LittleEndian.AppendUint32(nil, 4)
	buf = binary.LittleEndian.AppendUint32(buf, MaxArgs+1)
	if _, _, err := ParseRequest(buf); err != ErrProtocol {
		t.Errorf("oversized argc: expected ErrProtocol, got %v", err)
	}

	// argument length running past the frame
	buf = binary.LittleEndian.AppendUint32(nil, 8)
	buf = binary.LittleEndian.AppendUint32(buf, 1)
	buf = binary.LittleEndian.AppendUint32(buf, 100)
	if _, _, err := ParseRequest(buf); err != ErrProtocol {
		t.Errorf("overrunning arg: expected ErrProtocol, got %v", err)
	}

	// trailing bytes inside the frame
	buf = binary.LittleEndian.AppendUint32(nil, 6)
	buf = binary.LittleEndian.AppendUint32(buf, 0)
	buf = append(buf, 0xde, 0xad)
	if _, _, err := ParseRequest(buf); err != ErrProtocol {
		t.Errorf("trailing bytes: expected ErrProtocol, got %v", err)
	}

	// frame shorter than the argument count field
	buf = binary.LittleEndian.AppendUint32(nil, 2)
	buf = append(buf, 0, 0)
	if _, _, err := ParseRequest(buf); err != ErrProtocol {
		t.Errorf("short frame: expected ErrProtocol, got %v", err)
	}
}

func TestValueRoundTrip(t *testing.T) {
	values := []Value{
		Nil(),
		Err(CodeBadType, "expect string"),
		Str([]byte("hello")),
		Str(nil),
		Int(-42),
		Int(1 << 60),
		Dbl(3.25),
		Arr(nil),
		Arr([]Value{Str([]byte("a")), Dbl(1), Str([]byte("b")), Dbl(2)}),
		Arr([]Value{Arr([]Value{Int(1), Int(2)}), Nil()}),
	}

	for _, v := range values {
		buf := AppendValue(nil, v)
		got, n, err := ReadValue(buf)
		if err != nil {
			t.Fatalf("decode failed for kind %d: %v", v.Kind, err)
		}
		if n != len(buf) {
			t.Fatalf("kind %d: consumed %d of %d bytes", v.Kind, n, len(buf))
		}
		if !equalValue(got, v) {
			t.Fatalf("kind %d: round trip mismatch: %+v != %+v", v.Kind, got, v)
		}
	}
}

// equalValue compares values treating nil and empty slices alike.
func equalValue(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNil:
		return true
	case KindErr:
		return a.Code == b.Code && a.Msg == b.Msg
	case KindStr:
		return bytes.Equal(a.Str, b.Str)
	case KindInt:
		return a.Int == b.Int
	case KindDbl:
		return a.Dbl == b.Dbl
	case KindArr:
		if len(a.Arr) != len(b.Arr) {
			return false
		}
		for i := range a.Arr {
			if !equalValue(a.Arr[i], b.Arr[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func TestAppendResponseFraming(t *testing.T) {
	out := AppendResponse(nil, Str([]byte("value")))
	out = AppendResponse(out, Int(7))

	v1, n1, err := ReadResponse(out)
	if err != nil || v1.Kind != KindStr || !bytes.Equal(v1.Str, []byte("value")) {
		t.Fatalf("first response: %+v err=%v", v1, err)
	}
	v2, n2, err := ReadResponse(out[n1:])
	if err != nil || v2.Kind != KindInt || v2.Int != 7 {
		t.Fatalf("second response: %+v err=%v", v2, err)
	}
	if n1+n2 != len(out) {
		t.Fatalf("consumed %d of %d bytes", n1+n2, len(out))
	}
}

func TestAppendResponseTooBig(t *testing.T) {
	huge := Str(make([]byte, MaxMsgLen+1))
	out := AppendResponse(nil, huge)

	v, n, err := ReadResponse(out)
	if err != nil || n != len(out) {
		t.Fatalf("decode failed: n=%d err=%v", n, err)
	}
	if v.Kind != KindErr || v.Code != CodeTooBig {
		t.Fatalf("expected TOO_BIG error, got %+v", v)
	}
	if len(out) > 64 {
		t.Errorf("oversized body should be discarded, response is %d bytes", len(out))
	}
}

func TestReadValueTruncated(t *testing.T) {
	buf := AppendValue(nil, Arr([]Value{Str([]byte("abc")), Int(1)}))
	for i := 1; i < len(buf); i++ {
		if _, _, err := ReadValue(buf[:i]); err == nil {
			t.Fatalf("prefix of %d bytes should not decode", i)
		}
	}
	if !reflect.DeepEqual(mustReadValue(t, buf), Arr([]Value{Str([]byte("abc")), Int(1)})) {
		t.Fatal("full buffer should decode")
	}
}

func mustReadValue(t *testing.T, buf []byte) Value {
	t.Helper()
	v, _, err := ReadValue(buf)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return v
}
