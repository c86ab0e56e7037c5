package wire

import "testing"

func TestOKReply(t *testing.T) {
	r := OKReply("LISTING", "myprog", "running")
	if r.IsError() {
		t.Fatal("OKReply should not be an error")
	}
	fields := r.Fields()
	if len(fields) != 3 || string(fields[0]) != "LISTING" {
		t.Errorf("Fields = %v", fields)
	}
}

func TestErrorReply(t *testing.T) {
	r := ErrorReply("NOPROG", "no such program")
	if !r.IsError() {
		t.Fatal("ErrorReply should be an error")
	}
	fields := r.Fields()
	if len(fields) != 3 || len(fields[0]) != 0 || string(fields[1]) != "NOPROG" {
		t.Errorf("Fields = %v", fields)
	}
}

func TestOKCodeClamping(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{255, "255"},
		{-255, "-255"},
		{1000, "255"},
		{-1000, "-255"},
	}
	for _, tt := range tests {
		r := OKCode(tt.in)
		fields := r.Fields()
		if len(fields) != 2 || string(fields[1]) != tt.want {
			t.Errorf("OKCode(%d) = %v, want second field %q", tt.in, fields, tt.want)
		}
	}
}

func TestReplyEncodeRoundTrip(t *testing.T) {
	r := OKCode(0)
	buf, err := r.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	fields, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	r2 := ReplyFromFields(fields)
	if r2.IsError() {
		t.Error("round-tripped OK reply should not be an error")
	}
}

func TestReplyFromFieldsDetectsError(t *testing.T) {
	fields := [][]byte{[]byte(""), []byte("BADCMD"), []byte("unknown verb")}
	r := ReplyFromFields(fields)
	if !r.IsError() {
		t.Error("expected error reply from empty first field")
	}

	r = ReplyFromFields(nil)
	if !r.IsError() {
		t.Error("expected error reply from nil fields")
	}
}

func TestOKReplyPanicsOnEmptyFirst(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for empty first field")
		}
	}()
	OKReply("")
}
