// Package daemon runs the supervising event loop: a single-threaded
// multiplex over the control socket, the signal funnel, and ready
// jobs. One Daemon owns the registry, job queue, and transport for
// the process lifetime; nothing else touches them concurrently.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"svcd/clock"
	"svcd/config"
	"svcd/job"
	"svcd/logging"
	"svcd/registry"
	"svcd/request"
	"svcd/sigfunnel"
	"svcd/svcerr"
	"svcd/transport"
	"svcd/wire"
)

// tick bounds the loop's per-iteration wait, so time-gated jobs run
// within a second of becoming ready.
const tick = time.Second

// recvBufSize is generously larger than wire.MaxMessageSize is not
// required; it simply must be at least that large to never truncate a
// valid datagram.
const recvBufSize = wire.MaxMessageSize

// oobBufSize comfortably holds one SCM_CREDENTIALS record plus one
// SCM_RIGHTS record carrying wire.MaxFDs descriptors.
const oobBufSize = 256

// DefaultSocketPath is the control socket location used when neither
// Config.SocketPath nor the configuration file's global "socket-path"
// key is set.
const DefaultSocketPath = "/var/run/svcd"

// Config holds everything needed to build a Daemon.
type Config struct {
	SocketPath    string
	ConfigPath    string
	PIDFile       string
	AutostartGrp  int
	Log           *slog.Logger
	Clock         clock.Clock
}

// Daemon owns the registry, job queue, control socket, and signal
// funnel for one run of the event loop. All of them are built and
// injected at startup rather than resolved through globals.
type Daemon struct {
	cfg      Config
	log      *slog.Logger
	clk      clock.Clock
	store    config.Store
	registry *registry.Registry
	jobs     *job.Queue
	pipeline *request.Pipeline
	ep       *transport.Endpoint
	sig      *sigfunnel.Funnel
}

// New builds a Daemon: loads configuration, builds the initial
// registry, binds the control socket, and starts the signal funnel.
// It does not run the autostart sweep or enter the loop; call Start
// for that.
func New(cfg Config) (*Daemon, error) {
	if cfg.Log == nil {
		cfg.Log = logging.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real{}
	}

	store, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("daemon: %w", err)
	}

	reg, errs := registry.LoadFromStore(store)
	for _, e := range errs {
		cfg.Log.Warn("config parse error", "error", e)
	}

	sockPath := cfg.SocketPath
	if sockPath == "" {
		sockPath = DefaultSocketPath
		if v, ok := store.Global("socket-path"); ok && v != "" {
			sockPath = v
		}
	}

	ep, err := transport.NewServer(sockPath)
	if err != nil {
		return nil, fmt.Errorf("daemon: %w", err)
	}

	jobs := job.NewQueue(cfg.Clock)
	pipeline := request.New(reg, jobs, cfg.Clock, ep, cfg.Log)

	return &Daemon{
		cfg:      cfg,
		log:      cfg.Log,
		clk:      cfg.Clock,
		store:    store,
		registry: reg,
		jobs:     jobs,
		pipeline: pipeline,
		ep:       ep,
	}, nil
}

// Start runs the autostart sweep, writes the pid file (if
// configured), and enters the event loop. It returns when the loop
// exits cleanly (INT/TERM) or on a Fatal-kind error.
func (d *Daemon) Start() error {
	request.MarkInheritedFDsCloseOnExec()

	if d.cfg.PIDFile != "" {
		if err := os.WriteFile(d.cfg.PIDFile, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644); err != nil {
			return fmt.Errorf("daemon: write pid file: %w", err)
		}
		defer os.Remove(d.cfg.PIDFile)
	}

	d.autostartSweep()

	d.sig = sigfunnel.New()
	defer d.sig.Stop()

	err := d.loop()
	if err != nil {
		d.log.Log(context.Background(), logging.LevelCritical, "event loop stopped", "error", err)
	}
	return err
}

// Close releases the control socket. Start already handles pid-file
// cleanup and signal-funnel teardown on return.
func (d *Daemon) Close() error {
	return d.ep.Close()
}

// autostartSweep synthesizes a start Request, with drop_if_running set
// (so an already-running program from, e.g., a restart of the daemon
// itself is skipped silently), for every Program tagged with the
// selected autostart group.
func (d *Daemon) autostartSweep() {
	for _, p := range d.registry.All() {
		if p.AutostartGroup != d.cfg.AutostartGrp {
			continue
		}
		d.log.Info("autostart", "program", p.Name, "group", p.AutostartGroup)
		d.pipeline.Execute(&request.Request{
			Program:       p,
			Action:        p.Action(registry.Start),
			Creds:         request.Root,
			NoReply:       true,
			DropIfRunning: true,
		})
	}
}

// loop is the single-threaded event loop. Each iteration waits up to
// tick for the control socket or the signal wake pipe to become
// readable, drains pending signals, drains pending datagrams, then
// runs ready unbound jobs. INT/TERM finish the current iteration
// before the loop returns.
func (d *Daemon) loop() error {
	for {
		if err := d.poll(); err != nil {
			return err
		}

		stop := d.drainSignals()

		if err := d.drainSocket(); err != nil {
			return err
		}

		d.drainUnboundJobs()

		if stop {
			return nil
		}
	}
}

// poll waits up to tick for the control socket or the signal wake
// pipe to become readable. EINTR is a normal wake, not a failure.
func (d *Daemon) poll() error {
	fds := []unix.PollFd{{Fd: int32(d.ep.Fd()), Events: unix.POLLIN}}
	if wfd := d.sig.WakeFd(); wfd >= 0 {
		fds = append(fds, unix.PollFd{Fd: int32(wfd), Events: unix.POLLIN})
	}
	if _, err := unix.Poll(fds, int(tick/time.Millisecond)); err != nil && err != unix.EINTR {
		return svcerr.Fatal(err, "poll", "event loop poll failed")
	}
	return nil
}

// drainSignals handles every funneled signal currently pending.
// SIGCHLD reaps every exited child (SIGCHLDs coalesce, so one
// delivery may cover several exits); HUP reloads; INT/TERM report
// stop=true.
func (d *Daemon) drainSignals() (stop bool) {
	d.sig.DrainWake()
	for {
		select {
		case sig, ok := <-d.sig.C():
			if !ok {
				return true
			}
			switch sig {
			case syscall.SIGHUP:
				d.reload()
			case syscall.SIGINT, syscall.SIGTERM:
				d.log.Info("received shutdown signal", "signal", sig)
				stop = true
			case syscall.SIGCHLD:
				d.reapChildren()
			}
		default:
			return stop
		}
	}
}

// reapChildren loops Wait4(-1, WNOHANG) until no more children are
// immediately reapable, feeding each into the pipeline's supervision
// path.
func (d *Daemon) reapChildren() {
	for {
		var ws syscall.WaitStatus
		pid, err := syscall.Wait4(-1, &ws, syscall.WNOHANG, nil)
		if err != nil {
			if err == syscall.ECHILD {
				return
			}
			d.log.Warn("wait4", "error", err)
			return
		}
		if pid <= 0 {
			return
		}
		d.pipeline.HandleChildExit(pid, ws)
	}
}

// reload re-parses the configuration store and merges a fresh shadow
// registry into the live one: mark everything remove-pending, merge
// the shadow set in, then sweep entries with no live child.
func (d *Daemon) reload() {
	if err := d.store.Reload(); err != nil {
		d.log.Warn("config reload failed", "error", err)
		return
	}

	fresh, errs := registry.LoadFromStore(d.store)
	for _, e := range errs {
		d.log.Warn("config parse error", "error", e)
	}

	d.registry.MarkAllRemovePending()
	for _, p := range fresh.All() {
		d.registry.Merge(p)
	}
	for _, name := range d.registry.Sweep() {
		d.log.Info("removed program on reload", "program", name)
	}
	d.log.Info("configuration reloaded")
}

// drainSocket receives and dispatches every datagram currently pending
// on the control socket, non-blocking.
func (d *Daemon) drainSocket() error {
	buf := make([]byte, recvBufSize)
	oob := make([]byte, oobBufSize)

	for {
		n, oobn, from, wouldBlock, err := d.ep.Recv(buf, oob, true)
		if wouldBlock {
			return nil
		}
		if err != nil {
			return svcerr.Fatal(err, "recv", "control socket receive failed")
		}
		d.dispatch(buf[:n], oob[:oobn], from)
	}
}

// dispatch decodes and routes one received datagram by verb.
func (d *Daemon) dispatch(buf, oob []byte, from unix.Sockaddr) {
	replyTo := from
	if !transport.Repliable(from) {
		replyTo = nil
	}

	fields, err := wire.DecodeStrings(buf)
	if err != nil {
		d.replyErr(replyTo, err)
		return
	}
	if len(fields) == 0 {
		d.replyErr(replyTo, svcerr.ErrNoMsg)
		return
	}

	creds, cerr := wire.DecodeCreds(oob)
	if cerr != nil {
		d.replyErr(replyTo, cerr)
		return
	}
	fds, hasFDs, _ := wire.DecodeFDs(oob)

	verb := fields[0]
	args := fields[1:]

	switch verb {
	case "PING":
		d.handlePing(replyTo, args)
	case "SIGNAL":
		d.handleSignalVerb(replyTo, args, creds)
	case "RUN":
		d.handleRun(replyTo, args, creds, fds, hasFDs)
	case "LIST":
		d.handleList(replyTo)
	default:
		d.replyErr(replyTo, svcerr.Protocol("dispatch", svcerr.CodeBadCmd, "unknown verb"))
	}
}

func (d *Daemon) handlePing(replyTo unix.Sockaddr, args []string) {
	if len(args) > 1 {
		d.replyErr(replyTo, svcerr.ErrBadMsg)
		return
	}
	if len(args) == 1 {
		d.send(replyTo, wire.OKReply("PONG", args[0]))
		return
	}
	d.send(replyTo, wire.OKReply("PONG"))
}

// handleSignalVerb implements the SIGNAL verb, which triggers the
// reload/shutdown paths remotely rather than by an actual incoming OS
// signal: restricted to uid 0 or this process's own effective uid,
// raises HUP or TERM on self, replies OK.
func (d *Daemon) handleSignalVerb(replyTo unix.Sockaddr, args []string, creds wire.Creds) {
	if len(args) != 1 || (args[0] != "reload" && args[0] != "shutdown") {
		d.replyErr(replyTo, svcerr.ErrBadMsg)
		return
	}
	if int(creds.UID) != 0 && int(creds.UID) != os.Geteuid() {
		d.replyErr(replyTo, svcerr.ErrEPerm)
		return
	}

	sig := syscall.SIGHUP
	if args[0] == "shutdown" {
		sig = syscall.SIGTERM
	}
	if err := syscall.Kill(os.Getpid(), sig); err != nil {
		d.log.Warn("self-signal failed", "signal", sig, "error", err)
	}
	d.send(replyTo, wire.OKReply("OK"))
}

// handleRun implements the RUN verb: program, action, and free-form
// args.
func (d *Daemon) handleRun(replyTo unix.Sockaddr, args []string, creds wire.Creds, fds [wire.MaxFDs]int, hasFDs bool) {
	if len(args) < 2 {
		d.replyErr(replyTo, svcerr.ErrNoParams)
		return
	}

	progName, actionName := args[0], args[1]
	prog := d.registry.Get(progName)
	if prog == nil {
		d.replyErr(replyTo, svcerr.ErrNoProg)
		return
	}
	kind, ok := registry.ParseActionKind(actionName)
	if !ok {
		d.replyErr(replyTo, svcerr.ErrNoAction)
		return
	}

	req := &request.Request{
		Program: prog,
		Action:  prog.Action(kind),
		Argv:    args[2:],
		Creds:   request.Creds{PID: creds.PID, UID: creds.UID, GID: creds.GID},
		FDs:     fds,
		HasFDs:  hasFDs,
		ReplyTo: replyTo,
	}
	d.pipeline.Execute(req)
}

// handleList implements the LIST verb: alternating name/state pairs,
// in registration order.
func (d *Daemon) handleList(replyTo unix.Sockaddr) {
	progs := d.registry.All()
	fields := make([]string, 0, 1+2*len(progs))
	for _, p := range progs {
		fields = append(fields, p.Name, p.State())
	}
	d.send(replyTo, wire.OKReply("LISTING", fields...))
}

// drainUnboundJobs runs every ready unbound job until none remain
// ready.
func (d *Daemon) drainUnboundJobs() {
	for {
		jobs := d.jobs.ExtractUnbound()
		if len(jobs) == 0 {
			return
		}
		for _, j := range jobs {
			job.Run(d.jobs, j, 0)
		}
	}
}

func (d *Daemon) send(to unix.Sockaddr, reply wire.Reply) {
	if to == nil {
		return
	}
	buf, err := reply.Encode()
	if err != nil {
		d.log.Error("encode reply", "error", err)
		return
	}
	if _, err := d.ep.Send(buf, nil, to, false); err != nil {
		d.log.Error("send reply", "error", err)
	}
}

func (d *Daemon) replyErr(to unix.Sockaddr, err error) {
	code, ok := svcerr.CodeOf(err)
	if !ok {
		code = svcerr.CodeBadMsg
	}
	d.send(to, wire.ErrorReply(code, err.Error()))
}
