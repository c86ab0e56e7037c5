package wire

import (
	"svcd/svcerr"

	"golang.org/x/sys/unix"
)

// Creds carries the peer credentials the kernel attaches to a
// control-socket datagram via SCM_CREDENTIALS. A request's
// authorization check (Action.allow_uid/allow_gid) runs against these
// fields, never against anything the client claims in the message
// body.
type Creds struct {
	PID int32
	UID uint32
	GID uint32
}

// EncodeCreds builds an SCM_CREDENTIALS control message for c. In
// practice callers never construct this for sending (the kernel
// stamps credentials itself), but tests build synthetic control
// messages with it.
func EncodeCreds(c Creds) []byte {
	u := &unix.Ucred{Pid: c.PID, Uid: c.UID, Gid: c.GID}
	return unix.UnixCredentials(u)
}

// DecodeCreds parses a raw control-message buffer (the oob bytes
// received alongside a datagram) with unix.ParseSocketControlMessage,
// returning the first SCM_CREDENTIALS record found. It is a protocol
// error (wire code BADMSG) for a datagram on the control socket to arrive without credentials, since
// the pipeline cannot authorize an anonymous request.
func DecodeCreds(oob []byte) (Creds, error) {
	scms, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return Creds{}, svcerr.WrapProtocol(err, "decodeCreds", svcerr.CodeBadMsg, "malformed control message")
	}
	for _, scm := range scms {
		u, err := unix.ParseUnixCredentials(&scm)
		if err != nil {
			continue
		}
		return Creds{PID: u.Pid, UID: u.Uid, GID: u.Gid}, nil
	}
	return Creds{}, svcerr.Protocol("decodeCreds", svcerr.CodeBadMsg, "no peer credentials attached")
}

// MaxFDs is the number of descriptors a RUN request's fd-triple
// carries: stdin, stdout, stderr. Any other count received alongside
// a message is discarded in full: the request proceeds as if no fds
// were passed, rather than guessing which of a short or long list map
// to which stream.
const MaxFDs = 3

// EncodeFDs builds the SCM_RIGHTS ancillary data for sending exactly
// MaxFDs descriptors alongside a RUN request.
func EncodeFDs(fds [MaxFDs]int) []byte {
	return unix.UnixRights(fds[0], fds[1], fds[2])
}

// DecodeFDs extracts descriptors from a control message buffer. If
// the message carries a number of descriptors other than MaxFDs, all
// of them are closed (so none leak) and ok is false: a malformed
// fd-triple means "no fds passed", not a partial mapping.
func DecodeFDs(oob []byte) (fds [MaxFDs]int, ok bool, err error) {
	scms, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return fds, false, svcerr.WrapProtocol(err, "decodeFDs", svcerr.CodeBadMsg, "malformed control message")
	}

	var all []int
	for _, scm := range scms {
		got, perr := unix.ParseUnixRights(&scm)
		if perr != nil {
			continue
		}
		all = append(all, got...)
	}

	if len(all) == 0 {
		return fds, false, nil
	}
	if len(all) != MaxFDs {
		for _, fd := range all {
			unix.Close(fd)
		}
		return fds, false, nil
	}

	copy(fds[:], all)
	return fds, true, nil
}
