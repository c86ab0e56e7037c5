// Package request implements the Request validation/authorization/
// execution pipeline, default per-kind action policies, waiters, and
// SIGCHLD-driven supervision including restart-delay scheduling.
package request

import (
	"golang.org/x/sys/unix"

	"svcd/registry"
)

// InvalidID is the "not a valid uid/gid" credential sentinel.
const InvalidID = -1

// Request is a transient, per-invocation intent to perform one Action
// on one Program.
type Request struct {
	Program *registry.Program
	Action  *registry.Action

	// Argv is the free-form argument vector forwarded to the shell
	// command (or, for a default-policy action, largely unused).
	Argv []string

	// Creds are the peer credentials the kernel attached to the
	// inbound datagram (or, for an internally synthesized Request,
	// the daemon's own identity).
	Creds Creds

	// FDs is the stdin/stdout/stderr triple to forward into the
	// action's child, valid only when HasFDs is true.
	FDs    [3]int
	HasFDs bool

	// ReplyTo is the client address a reply is sent to; nil means
	// unrepliable, and implies no reply is ever attempted regardless
	// of NoReply.
	ReplyTo unix.Sockaddr

	// NoReply: the caller does not want a reply sent at all.
	NoReply bool
	// DropIfRunning: silently drop rather than reply BUSY (used by
	// the autostart sweep).
	DropIfRunning bool
	// DropIfNotRunning: silently drop rather than reply NOTRUNNING.
	// For a synthesized Start used by auto-restart, also silently
	// drop before even attempting the start if the program's desired
	// running state (the Running flag, not the live-pid check) has
	// since been cleared, so a restart queued behind an explicit
	// stop never fires.
	DropIfNotRunning bool
	// NoFlagsUpdate suppresses the running-flag side effect.
	NoFlagsUpdate bool
}

// Creds are the peer (pid, uid, gid) attached to a control datagram.
// It mirrors wire.Creds field for field; the daemon copies one into
// the other when it builds a Request.
type Creds struct {
	PID int32
	UID uint32
	GID uint32
}

// Root is the credential set internally synthesized Requests carry
// (autostart sweep, auto-restart); uid 0 always passes authorization.
var Root = Creds{PID: 0, UID: 0, GID: 0}

// Clone duplicates r, including independent fd duplicates of any
// forwarded stdio triple, so the clone and the original can each be
// closed without affecting the other. If duplication fails partway
// through, the clone carries no fds rather than a partial,
// mismatched set.
func (r *Request) Clone() *Request {
	clone := *r
	if r.HasFDs {
		var dup [3]int
		ok := true
		for i, fd := range r.FDs {
			nfd, err := unix.Dup(fd)
			if err != nil {
				ok = false
				break
			}
			dup[i] = nfd
		}
		if ok {
			clone.FDs = dup
		} else {
			for _, fd := range dup {
				if fd > 0 {
					unix.Close(fd)
				}
			}
			clone.HasFDs = false
			clone.FDs = [3]int{}
		}
	}
	return &clone
}

// CloseFDs closes any forwarded stdio triple this Request owns.
func (r *Request) CloseFDs() {
	if !r.HasFDs {
		return
	}
	for _, fd := range r.FDs {
		if fd >= 0 {
			unix.Close(fd)
		}
	}
	r.HasFDs = false
}
