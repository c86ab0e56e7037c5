// Package wire implements the control protocol's NUL-separated field
// codec.
//
// A datagram is a concatenation of fields, each NUL-terminated; the
// final byte of every valid datagram is therefore NUL. Fields are
// copied into owned byte slices on decode. The codec never touches
// sockets; ancillary.go builds and parses the peer-credential and
// fd-triple control messages that ride alongside a wire message as
// out-of-band data, and package transport carries both.
package wire

import (
	"bytes"
	"fmt"

	"svcd/svcerr"
)

// MaxMessageSize bounds the sum of field lengths (including NUL
// terminators) in a single datagram.
const MaxMessageSize = 65536

// Encode concatenates fields, NUL-terminating each one. It refuses to
// encode an empty field list (a caller error, not a protocol error)
// and fails if the encoded size would exceed MaxMessageSize.
func Encode(fields [][]byte) ([]byte, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("wire: cannot encode an empty field list")
	}

	size := 0
	for _, f := range fields {
		size += len(f) + 1
	}
	if size > MaxMessageSize {
		return nil, fmt.Errorf("wire: message too large: %d bytes exceeds %d", size, MaxMessageSize)
	}

	buf := make([]byte, 0, size)
	for _, f := range fields {
		buf = append(buf, f...)
		buf = append(buf, 0)
	}
	return buf, nil
}

// EncodeStrings is a convenience wrapper over Encode for string fields.
func EncodeStrings(fields ...string) ([]byte, error) {
	b := make([][]byte, len(fields))
	for i, f := range fields {
		b[i] = []byte(f)
	}
	return Encode(b)
}

// Decode splits a received buffer into owned fields. A zero-length
// buffer or one whose final byte is not NUL is a protocol error: the
// former yields a NOMSG-coded error ("empty message"), the latter a
// BADMSG-coded one ("message does not end in NUL").
func Decode(buf []byte) ([][]byte, error) {
	if len(buf) == 0 {
		return nil, svcerr.Protocol("decode", svcerr.CodeNoMsg, "empty message")
	}
	if len(buf) > MaxMessageSize {
		return nil, svcerr.Protocol("decode", svcerr.CodeBadMsg, "oversized message")
	}
	if buf[len(buf)-1] != 0 {
		return nil, svcerr.Protocol("decode", svcerr.CodeBadMsg, "message does not end in NUL")
	}

	var fields [][]byte
	start := 0
	for i, b := range buf {
		if b == 0 {
			field := make([]byte, i-start)
			copy(field, buf[start:i])
			fields = append(fields, field)
			start = i + 1
		}
	}
	return fields, nil
}

// DecodeStrings decodes and converts fields to strings.
func DecodeStrings(buf []byte) ([]string, error) {
	fields, err := Decode(buf)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = string(f)
	}
	return out, nil
}

// Equal reports whether two field slices hold equal byte content.
func Equal(a, b [][]byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !bytes.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
