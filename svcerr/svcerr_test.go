package svcerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected string
	}{
		{KindProtocol, "protocol"},
		{KindTransient, "transient"},
		{KindFatal, "fatal"},
		{Kind(99), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.expected {
				t.Errorf("Kind.String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{"nil", nil, "<nil>"},
		{
			"full",
			&Error{Op: "authorize", Code: CodeEPerm, Detail: "permission denied", Err: fmt.Errorf("uid mismatch"), Kind: KindProtocol},
			"protocol: authorize: permission denied: uid mismatch",
		},
		{
			"code only",
			&Error{Op: "decode", Code: CodeBadMsg, Kind: KindProtocol},
			"protocol: decode: BADMSG",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestError_IsAndAs(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", WrapProtocol(errors.New("boom"), "validate", CodeBadAuth, "nope"))

	if !errors.Is(err, &Error{Kind: KindProtocol}) {
		t.Errorf("expected errors.Is match on Kind")
	}
	if errors.Is(err, &Error{Kind: KindFatal}) {
		t.Errorf("did not expect match against KindFatal")
	}

	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected errors.As to find *Error")
	}
	if e.Code != CodeBadAuth {
		t.Errorf("Code = %q, want %q", e.Code, CodeBadAuth)
	}

	kind, ok := KindOf(err)
	if !ok || kind != KindProtocol {
		t.Errorf("KindOf() = %v, %v; want KindProtocol, true", kind, ok)
	}

	code, ok := CodeOf(err)
	if !ok || code != CodeBadAuth {
		t.Errorf("CodeOf() = %v, %v; want %q, true", code, ok, CodeBadAuth)
	}
}

func TestSentinelsCarryCodes(t *testing.T) {
	if ErrBusy.Code != CodeBusy {
		t.Errorf("ErrBusy.Code = %q, want %q", ErrBusy.Code, CodeBusy)
	}
	if ErrNotRunning.Kind != KindProtocol {
		t.Errorf("ErrNotRunning.Kind = %v, want KindProtocol", ErrNotRunning.Kind)
	}
}
