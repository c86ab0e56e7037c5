package svcclient

import (
	"bytes"
	"strings"
	"testing"

	"svcd/wire"
)

func TestExitCodeOK(t *testing.T) {
	n, err := ExitCode(wire.OKCode(7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 7 {
		t.Fatalf("ExitCode = %d, want 7", n)
	}
}

func TestExitCodeClampsHigh(t *testing.T) {
	n, err := ExitCode(wire.OKCode(1000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 255 {
		t.Fatalf("ExitCode = %d, want 255", n)
	}
}

func TestExitCodeClampsLow(t *testing.T) {
	n, err := ExitCode(wire.OKCode(-1000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != -255 {
		t.Fatalf("ExitCode = %d, want -255", n)
	}
}

func TestExitCodeErrorReply(t *testing.T) {
	_, err := ExitCode(wire.ErrorReply("EPERM", "not authorized"))
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !strings.Contains(err.Error(), "EPERM") || !strings.Contains(err.Error(), "not authorized") {
		t.Fatalf("error %q missing code/description", err.Error())
	}
}

func TestPrintErrorFormat(t *testing.T) {
	var buf bytes.Buffer
	PrintError(&buf, wire.ErrorReply("NOPROG", "no such program"))
	want := "ERROR: (NOPROG) no such program\n"
	if buf.String() != want {
		t.Fatalf("PrintError = %q, want %q", buf.String(), want)
	}
}

func TestPrintListingTable(t *testing.T) {
	reply := wire.OKReply("LISTING", "alpha", "running", "beta", "stopped")
	var buf bytes.Buffer
	PrintListing(&buf, reply, false)
	out := buf.String()
	if !strings.Contains(out, "NAME") || !strings.Contains(out, "STATE") {
		t.Fatalf("missing header: %q", out)
	}
	if !strings.Contains(out, "alpha") || !strings.Contains(out, "running") {
		t.Fatalf("missing alpha row: %q", out)
	}
	if !strings.Contains(out, "beta") || !strings.Contains(out, "stopped") {
		t.Fatalf("missing beta row: %q", out)
	}
}

func TestPrintListingNull(t *testing.T) {
	reply := wire.OKReply("LISTING", "alpha", "running")
	var buf bytes.Buffer
	PrintListing(&buf, reply, true)
	want := "alpha\x00running\x00"
	if buf.String() != want {
		t.Fatalf("PrintListing null = %q, want %q", buf.String(), want)
	}
}

func TestPrintListingEmpty(t *testing.T) {
	reply := wire.OKReply("LISTING")
	var buf bytes.Buffer
	PrintListing(&buf, reply, true)
	if buf.Len() != 0 {
		t.Fatalf("expected no output for an empty listing, got %q", buf.String())
	}
}
