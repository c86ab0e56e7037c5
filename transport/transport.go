// Package transport implements the daemon's and client's local
// AF_UNIX SOCK_DGRAM control-socket endpoint. It never interprets
// message contents; see package wire for the field codec and
// ancillary-data shapes this package carries as opaque bytes.
package transport

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Endpoint wraps a single datagram socket, either the server's bound
// listening socket or a client's autobound connected socket.
type Endpoint struct {
	fd     int
	path   string // non-empty only for a server endpoint; unlinked on Close.
	server bool
}

// NewServer creates the daemon's control socket at path: any
// pre-existing file at path is unlinked first, the socket is bound
// with mode 0777, and peer-credential reception is enabled.
func NewServer(path string) (*Endpoint, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_DGRAM, 0)
	if err != nil {
		return nil, fmt.Errorf("transport: socket: %w", err)
	}

	if err := unix.Unlink(path); err != nil && !os.IsNotExist(err) {
		unix.Close(fd)
		return nil, fmt.Errorf("transport: unlink %s: %w", path, err)
	}

	addr := &unix.SockaddrUnix{Name: path}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("transport: bind %s: %w", path, err)
	}

	if err := os.Chmod(path, 0777); err != nil {
		unix.Close(fd)
		unix.Unlink(path)
		return nil, fmt.Errorf("transport: chmod %s: %w", path, err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_PASSCRED, 1); err != nil {
		unix.Close(fd)
		unix.Unlink(path)
		return nil, fmt.Errorf("transport: SO_PASSCRED: %w", err)
	}

	return &Endpoint{fd: fd, path: path, server: true}, nil
}

// NewClient creates an autobound client socket connected to path, so
// that subsequent Recv calls return the server's replies without the
// caller tracking an address.
func NewClient(path string) (*Endpoint, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_DGRAM, 0)
	if err != nil {
		return nil, fmt.Errorf("transport: socket: %w", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_PASSCRED, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("transport: SO_PASSCRED: %w", err)
	}

	if err := unix.Connect(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("transport: connect %s: %w", path, err)
	}

	return &Endpoint{fd: fd, server: false}, nil
}

// Fd returns the underlying file descriptor, for use in an event
// loop's read-set.
func (e *Endpoint) Fd() int { return e.fd }

// Close closes the socket. A server endpoint also unlinks its path.
func (e *Endpoint) Close() error {
	err := unix.Close(e.fd)
	if e.server && e.path != "" {
		if uerr := unix.Unlink(e.path); uerr != nil && !os.IsNotExist(uerr) && err == nil {
			err = uerr
		}
	}
	return err
}

// wouldBlockErr reports whether err is the would-block errno MSG_DONTWAIT
// produces on an empty socket.
func wouldBlockErr(err error) bool {
	return err == unix.EAGAIN || err == unix.EWOULDBLOCK
}

// Recv reads one datagram. nonblock requests MSG_DONTWAIT; if the
// socket has nothing pending, wouldBlock is true and err is nil, a
// distinct outcome from a real error, letting the event loop keep
// scheduling instead of treating it as failure. from is the sender's
// address as recvmsg reports it, needed by a server to target its
// reply; a connected client endpoint has no use for it.
func (e *Endpoint) Recv(buf []byte, oob []byte, nonblock bool) (n int, oobn int, from unix.Sockaddr, wouldBlock bool, err error) {
	flags := 0
	if nonblock {
		flags = unix.MSG_DONTWAIT
	}
	n, oobn, _, from, err = unix.Recvmsg(e.fd, buf, oob, flags)
	if err != nil {
		if wouldBlockErr(err) {
			return 0, 0, nil, true, nil
		}
		return 0, 0, nil, false, fmt.Errorf("transport: recvmsg: %w", err)
	}
	return n, oobn, from, false, nil
}

// Send writes one datagram, optionally to a specific peer address (a
// server reply) or to the connected peer (to == nil, client sends).
// oob carries credential and/or fd-triple ancillary data built by
// package wire; pass nil for none.
func (e *Endpoint) Send(buf []byte, oob []byte, to unix.Sockaddr, nonblock bool) (wouldBlock bool, err error) {
	flags := 0
	if nonblock {
		flags = unix.MSG_DONTWAIT
	}
	if to != nil {
		err = unix.Sendmsg(e.fd, buf, oob, to, flags)
	} else {
		err = unix.Sendmsg(e.fd, buf, oob, nil, flags)
	}
	if err != nil {
		if wouldBlockErr(err) {
			return true, nil
		}
		return false, fmt.Errorf("transport: sendmsg: %w", err)
	}
	return false, nil
}

// Repliable reports whether from is usable as a reply destination.
// A zero-length or AF_UNSPEC address means the datagram that carried
// it must be silently dropped after any side effects, not retried or
// logged as an error.
func Repliable(from unix.Sockaddr) bool {
	if from == nil {
		return false
	}
	su, ok := from.(*unix.SockaddrUnix)
	if !ok {
		return false
	}
	return len(su.Name) > 0
}
