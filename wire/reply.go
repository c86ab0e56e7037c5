package wire

import (
	"fmt"
	"strconv"
)

// Reply is a wire reply message. Outbound replies are constructed
// through OKReply/ErrorReply and received ones through
// ReplyFromFields, so a reply is an error or a success by
// construction; the empty-first-field convention is an on-the-wire
// encoding detail, not something callers branch on.
type Reply struct {
	fields  [][]byte
	isError bool
}

// OKReply builds a non-error reply. first is the reply-kind field
// (e.g. "PONG", "OK", "LISTING") and must be non-empty.
func OKReply(first string, rest ...string) Reply {
	if first == "" {
		panic("wire: OKReply requires a non-empty first field")
	}
	fields := make([][]byte, 0, len(rest)+1)
	fields = append(fields, []byte(first))
	for _, r := range rest {
		fields = append(fields, []byte(r))
	}
	return Reply{fields: fields}
}

// ErrorReply builds the wire error-reply form ["", code, description].
func ErrorReply(code, description string) Reply {
	return Reply{
		fields:  [][]byte{[]byte(""), []byte(code), []byte(description)},
		isError: true,
	}
}

// OKCode builds the "OK <n>" reply used for synchronous and
// waiter-delivered completions. n is clamped to the open interval
// (-256, 256).
func OKCode(n int) Reply {
	if n <= -256 {
		n = -255
	}
	if n >= 256 {
		n = 255
	}
	return OKReply("OK", strconv.Itoa(n))
}

// IsError reports whether this is an error reply.
func (r Reply) IsError() bool { return r.isError }

// Fields returns the reply's wire fields.
func (r Reply) Fields() [][]byte { return r.fields }

// Encode renders the reply to wire bytes.
func (r Reply) Encode() ([]byte, error) {
	return Encode(r.fields)
}

// String renders the reply for logging.
func (r Reply) String() string {
	parts := make([]string, len(r.fields))
	for i, f := range r.fields {
		parts[i] = string(f)
	}
	return fmt.Sprintf("%v", parts)
}

// ReplyFromFields interprets a decoded field slice as a Reply, used by
// the client runtime to classify a received datagram. An empty first
// field (or zero fields) is always an error reply.
func ReplyFromFields(fields [][]byte) Reply {
	if len(fields) == 0 || len(fields[0]) == 0 {
		return Reply{fields: fields, isError: true}
	}
	return Reply{fields: fields}
}
