// Package sigfunnel converts POSIX signal delivery into channel
// receives the event loop can select on, plus a wake pipe the loop
// can include in a poll(2) read set alongside the control socket. It
// is the channel-based equivalent of the classic self-pipe trick: no
// logic runs in signal context, and delivery order for distinct
// signals is preserved.
package sigfunnel

import (
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
)

// Funnel forwards a fixed set of signals onto a buffered channel the
// event loop selects on, preserving the kernel's delivery order for
// distinct signals. Each forwarded signal also writes one byte to a
// non-blocking wake pipe, so a poll over WakeFd and the control
// socket returns as soon as either has work. Modest buffer depth is
// sufficient since the loop drains the channel promptly and SIGCHLD
// coalescing is handled by looping waitpid, not by channel depth.
type Funnel struct {
	ch    chan os.Signal
	stop  chan struct{}
	relay chan syscall.Signal

	pipeR int
	pipeW int
}

// New starts the funnel goroutine and returns it. Stop must be called
// to release the underlying signal.Notify registration.
func New() *Funnel {
	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		// Degrade to channel-only operation; the loop's poll timeout
		// still bounds signal latency.
		p[0], p[1] = -1, -1
	}

	f := &Funnel{
		ch:    make(chan os.Signal, 16),
		stop:  make(chan struct{}),
		relay: make(chan syscall.Signal, 16),
		pipeR: p[0],
		pipeW: p[1],
	}
	signal.Notify(f.ch, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGCHLD)
	go f.pump()
	return f
}

func (f *Funnel) pump() {
	for {
		select {
		case s := <-f.ch:
			sig, ok := s.(syscall.Signal)
			if !ok {
				continue
			}
			f.relay <- sig
			f.wake()
		case <-f.stop:
			return
		}
	}
}

// wake writes one byte to the wake pipe. A full pipe is fine: the
// loop is already guaranteed to wake, and it drains the channel
// rather than counting bytes.
func (f *Funnel) wake() {
	if f.pipeW < 0 {
		return
	}
	var b [1]byte
	unix.Write(f.pipeW, b[:])
}

// C returns the channel the event loop receives funneled signals on.
func (f *Funnel) C() <-chan syscall.Signal {
	return f.relay
}

// WakeFd returns the read end of the wake pipe, for inclusion in the
// event loop's poll read set, or -1 if the pipe could not be created.
func (f *Funnel) WakeFd() int {
	return f.pipeR
}

// DrainWake consumes any pending wake bytes. Called by the loop after
// every poll, before receiving from C.
func (f *Funnel) DrainWake() {
	if f.pipeR < 0 {
		return
	}
	var buf [16]byte
	for {
		n, err := unix.Read(f.pipeR, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

// Stop unregisters signal delivery and shuts down the pump goroutine.
func (f *Funnel) Stop() {
	signal.Stop(f.ch)
	close(f.stop)
	if f.pipeR >= 0 {
		unix.Close(f.pipeR)
		unix.Close(f.pipeW)
		f.pipeR, f.pipeW = -1, -1
	}
}
