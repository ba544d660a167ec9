package proto

import (
	"encoding/binary"
	"errors"
)

// --------------------------------------------------------------------------
// Protocol Limits
// --------------------------------------------------------------------------

const (
	// MaxMsgLen is the largest request or response body in bytes.
	MaxMsgLen = 32 << 20
	// MaxArgs is the largest argument count a request may carry.
	MaxArgs = 200_000
)

// ErrProtocol signals malformed framing. The connection carrying it is
// beyond recovery and must be closed without a reply.
var ErrProtocol = errors.New("protocol error")

// --------------------------------------------------------------------------
// Request Parsing
// --------------------------------------------------------------------------

// ParseRequest extracts one request from the head of buf.
//
// It returns the argument list and the number of bytes consumed. A
// (nil, 0, nil) result means the buffer does not yet hold a complete
// request. The argument slices alias buf and are only valid until the
// caller consumes those bytes.
func ParseRequest(buf []byte) (args [][]byte, consumed int, err error) {
	if len(buf) < 4 {
		return nil, 0, nil
	}
	msgLen := binary.LittleEndian.Uint32(buf)
	if msgLen > MaxMsgLen {
		return nil, 0, ErrProtocol
	}
	if uint64(len(buf)) < 4+uint64(msgLen) {
		return nil, 0, nil
	}
	body := buf[4 : 4+msgLen]

	if len(body) < 4 {
		return nil, 0, ErrProtocol
	}
	nargs := binary.LittleEndian.Uint32(body)
	if nargs > MaxArgs {
		return nil, 0, ErrProtocol
	}

	pos := 4
	args = make([][]byte, 0, nargs)
	for i := uint32(0); i < nargs; i++ {
		if pos+4 > len(body) {
			return nil, 0, ErrProtocol
		}
		argLen := binary.LittleEndian.Uint32(body[pos:])
		pos += 4
		if uint64(pos)+uint64(argLen) > uint64(len(body)) {
			return nil, 0, ErrProtocol
		}
		args = append(args, body[pos:pos+int(argLen)])
		pos += int(argLen)
	}
	if pos != len(body) {
		// trailing bytes inside the frame
		return nil, 0, ErrProtocol
	}
	return args, 4 + int(msgLen), nil
}

// AppendRequest frames an argument list the way a client would send it.
// Mainly useful for tests and tooling.
func AppendRequest(out []byte, args [][]byte) []byte {
	bodyLen := 4
	for _, a := range args {
		bodyLen += 4 + len(a)
	}
	out = binary.LittleEndian.AppendUint32(out, uint32(bodyLen))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(args)))
	for _, a := range args {
		out = binary.LittleEndian.AppendUint32(out, uint32(len(a)))
		out = append(out, a...)
	}
	return out
}
