package request

import (
	"log/slog"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"svcd/clock"
	"svcd/job"
	"svcd/logging"
	"svcd/registry"
	"svcd/svcerr"
	"svcd/wire"
)

// invalidCredU32 is InvalidID (-1) reinterpreted as the uint32 the
// Creds struct actually stores, since a uint32 field cannot hold a
// negative constant directly.
const invalidCredU32 = ^uint32(0)

// Sender is the subset of *transport.Endpoint the pipeline needs to
// deliver replies; kept minimal so tests can substitute a fake.
type Sender interface {
	Send(buf []byte, oob []byte, to unix.Sockaddr, nonblock bool) (wouldBlock bool, err error)
}

// Pipeline owns the registry, job queue, clock, logger, and reply
// transport a daemon needs to validate, authorize, and execute
// Requests, including child supervision and auto-restart scheduling.
type Pipeline struct {
	Registry *registry.Registry
	Jobs     *job.Queue
	Clock    clock.Clock
	Sender   Sender
	Log      *slog.Logger
}

// New builds a Pipeline. log may be nil, in which case the package
// logging default logger is used.
func New(reg *registry.Registry, jobs *job.Queue, clk clock.Clock, sender Sender, log *slog.Logger) *Pipeline {
	if log == nil {
		log = logging.Default()
	}
	return &Pipeline{Registry: reg, Jobs: jobs, Clock: clk, Sender: sender, Log: log}
}

// Execute runs req to completion or to the point where it is parked
// on a Job awaiting a child exit. It never returns the reply to the
// caller: every outcome, success or error, is delivered (or
// deliberately dropped) from inside this call or a later Job
// callback, so a repliable well-formed request gets exactly one
// reply.
func (p *Pipeline) Execute(req *Request) {
	if !p.validate(req) {
		req.CloseFDs()
		return
	}

	if drop := p.precheckAndMaybeDrop(req); drop {
		req.CloseFDs()
		return
	}

	p.dispatch(req)
}

// dispatch applies the flags-update side effect and routes to either
// explicit-command execution or a default (commandless) policy. It is
// separate from Execute so a commandless reload can re-enter dispatch
// directly against the Restart action without re-running validation
// or the state pre-checks a second time against different
// permissions.
func (p *Pipeline) dispatch(req *Request) {
	if !req.NoFlagsUpdate {
		switch req.Action.Kind {
		case registry.Start, registry.Restart:
			req.Program.SetRunning(true)
		case registry.Stop:
			req.Program.SetRunning(false)
		}
	}

	if req.Action.HasCommand() {
		p.runExplicitCommand(req)
		return
	}

	switch req.Action.Kind {
	case registry.Start:
		p.replyError(req, svcerr.CodeNoCmd, "no command configured")
		req.CloseFDs()
	case registry.Restart:
		p.defaultRestart(req)
	case registry.Reload:
		req.Action = req.Program.Action(registry.Restart)
		p.dispatch(req)
	case registry.Signal:
		if !req.NoReply {
			p.sendOK(req, wire.OKReply("OK"))
		}
		req.CloseFDs()
	case registry.Stop:
		p.defaultStop(req)
	case registry.Status:
		p.defaultStatus(req)
	default:
		p.replyError(req, svcerr.CodeBadCmd, "unknown action kind")
		req.CloseFDs()
	}
}

// validate checks peer credentials and authorization: uid 0 passes,
// otherwise the peer's uid or gid must match the action's allow
// lists. Returns false if req was already terminally handled (an
// error reply sent or attempted).
func (p *Pipeline) validate(req *Request) bool {
	if req.Creds.UID == invalidCredU32 || req.Creds.GID == invalidCredU32 {
		p.replyError(req, svcerr.CodeBadMsg, "missing peer credentials")
		return false
	}

	a := req.Action
	authorized := req.Creds.UID == 0 || int(req.Creds.UID) == a.AllowUID || int(req.Creds.GID) == a.AllowGID
	if !authorized {
		p.replyError(req, svcerr.CodeEPerm, "Permission denied")
		return false
	}
	return true
}

// precheckAndMaybeDrop applies the state pre-checks (BUSY on a live
// start target, NOTRUNNING on a dead restart/reload/stop target) and
// the drop_if_running/drop_if_not_running flags that turn a would-be
// error reply into a silent drop (used by the autostart sweep and
// auto-restart scheduling). Returns true if req has already been
// fully handled (an error sent, or silently dropped) and the caller
// must not proceed.
func (p *Pipeline) precheckAndMaybeDrop(req *Request) bool {
	if req.Action.Kind == registry.Start && req.DropIfNotRunning && !req.Program.IsRunning() {
		return true
	}

	switch req.Action.Kind {
	case registry.Start:
		if req.Program.HasLivePID() {
			if req.DropIfRunning {
				return true
			}
			p.replyError(req, svcerr.CodeBusy, "program is running")
			return true
		}
	case registry.Restart, registry.Reload, registry.Stop:
		if !req.Program.HasLivePID() {
			if req.DropIfNotRunning {
				return true
			}
			p.replyError(req, svcerr.CodeNotRunning, "program is not running")
			return true
		}
	}
	return false
}

// runExplicitCommand executes an Action with a configured command.
// Start/Restart record the spawned pid as the Program's main pid and
// reply OK 0 immediately; every other kind schedules a waiter
// released by SIGCHLD.
func (p *Pipeline) runExplicitCommand(req *Request) {
	cmd := buildChildCommand(req.Program, req.Action, req.Argv, req)

	if err := cmd.Start(); err != nil {
		p.replyError(req, svcerr.CodeNoCmd, describeStartFailure(req.Program, err))
		req.CloseFDs()
		return
	}
	req.CloseFDs()
	pid := cmd.Process.Pid

	switch req.Action.Kind {
	case registry.Start, registry.Restart:
		req.Program.SetPID(pid)
		if !req.NoReply {
			p.sendOK(req, wire.OKCode(0))
		}
	default:
		p.scheduleWaiter(req, pid)
	}
}

// runStart performs the Start action against program (explicit
// command or, if none, replies NOCMD) and returns the spawned pid, or
// 0 if none was spawned. Used by defaultRestart's synthesized
// successor and by auto-restart scheduling; Execute's direct Start
// path goes through runExplicitCommand instead.
func (p *Pipeline) runStart(req *Request) int {
	action := req.Program.Action(registry.Start)
	req.Action = action
	if !action.HasCommand() {
		p.replyError(req, svcerr.CodeNoCmd, "no command configured")
		req.CloseFDs()
		return 0
	}

	cmd := buildChildCommand(req.Program, action, req.Argv, req)
	if err := cmd.Start(); err != nil {
		p.replyError(req, svcerr.CodeNoCmd, describeStartFailure(req.Program, err))
		req.CloseFDs()
		return 0
	}
	req.CloseFDs()

	pid := cmd.Process.Pid
	req.Program.SetPID(pid)
	req.Program.SetRunning(true)
	if !req.NoReply {
		p.sendOK(req, wire.OKCode(0))
	}
	return pid
}

// defaultRestart implements the commandless restart policy: SIGTERM
// the current pid, clone the outer Request for an independent Start
// successor, and schedule the successor to run once the old pid
// exits. The outer Request does not reply yet; the eventual Start
// reply (from runStart) is the only reply sent for this restart.
func (p *Pipeline) defaultRestart(req *Request) {
	pid := req.Program.GetPID()
	if pid <= 0 {
		// Already screened out by precheckAndMaybeDrop for the normal
		// path; defensive no-op for any other caller.
		req.CloseFDs()
		return
	}

	startReq := req.Clone()
	startReq.Action = req.Program.Action(registry.Start)

	successor := job.New(job.Unbound, job.Immediate, func(int) int {
		return p.runStart(startReq)
	})

	stopJob := job.New(pid, job.Immediate, func(int) int {
		p.Log.Info("sent SIGTERM for restart", "program", req.Program.Name, "pid", pid)
		return 0
	}).WithSuccessor(successor)

	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		p.Log.Warn("SIGTERM failed during restart", "program", req.Program.Name, "pid", pid, "error", err)
	}
	p.Jobs.Append(stopJob)
	req.CloseFDs()
}

// defaultStop implements the commandless stop policy: SIGTERM the
// program's pid and, if a reply is expected, schedule a waiter.
func (p *Pipeline) defaultStop(req *Request) {
	pid := req.Program.GetPID()
	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		p.Log.Warn("SIGTERM failed", "program", req.Program.Name, "pid", pid, "error", err)
	}
	if !req.NoReply {
		p.scheduleWaiter(req, pid)
	} else {
		req.CloseFDs()
	}
}

// defaultStatus implements the commandless status policy: spawn a
// child that writes "running\n" (exit 0) or "not running\n" (exit 1)
// to the forwarded stdout, then schedule a waiter (released by
// SIGCHLD) that reports the exit code as usual.
func (p *Pipeline) defaultStatus(req *Request) {
	script := "printf 'not running\\n'; exit 1"
	if req.Program.HasLivePID() {
		script = "printf 'running\\n'; exit 0"
	}

	statusAction := &registry.Action{Kind: registry.Status, Command: script, SUID: -1, SGID: -1}
	cmd := buildChildCommand(req.Program, statusAction, nil, req)

	if err := cmd.Start(); err != nil {
		p.replyError(req, svcerr.CodeNoCmd, describeStartFailure(req.Program, err))
		req.CloseFDs()
		return
	}
	req.CloseFDs()
	p.scheduleWaiter(req, cmd.Process.Pid)
}

// scheduleWaiter registers a Job bound to pid whose callback builds
// and sends an "OK <code>" reply when pid is reaped. If req carries
// no reply address or NoReply is set, no Job is scheduled at all;
// there would be nothing to deliver.
func (p *Pipeline) scheduleWaiter(req *Request, pid int) {
	if req.NoReply || req.ReplyTo == nil {
		return
	}
	p.Jobs.Append(job.New(pid, job.Immediate, func(exitCode int) int {
		p.sendOK(req, wire.OKCode(exitCode))
		return 0
	}))
}

// HandleChildExit is called once per pid reaped by the event loop's
// waitpid(-1, WNOHANG) loop. It clears the owning Program's pid (if
// any) before running every Job bound to pid, then applies the
// restart-delay and lingering-deletion rules.
func (p *Pipeline) HandleChildExit(pid int, ws syscall.WaitStatus) {
	exitCode := exitCodeFromState(ws)
	now := p.Clock.Now()

	prog := p.Registry.FindByPID(pid)
	if prog != nil {
		prog.SetPID(0)
		p.Log.Info("child exited", "program", prog.Name, "pid", pid, "status", exitCode)
	}

	for _, j := range p.Jobs.Extract(pid, now) {
		job.Run(p.Jobs, j, exitCode)
	}

	if prog == nil {
		return
	}

	if prog.IsRunning() && prog.HasRestart && prog.RestartDelay > 0 {
		p.scheduleAutoRestart(prog, now)
	}
	if prog.RemovePending {
		p.Registry.RemoveIfPendingAndDead(prog.Name)
	}
}

// scheduleAutoRestart schedules a time-gated, unbound internal Start
// request: the job fires at now+delay and, via DropIfNotRunning,
// silently does nothing if the program's desired running state has
// been cleared in the meantime (e.g. an intervening stop).
func (p *Pipeline) scheduleAutoRestart(prog *registry.Program, now time.Time) {
	p.Log.Info("scheduling restart", "program", prog.Name, "delay_seconds", prog.RestartDelay)

	req := &Request{
		Program:          prog,
		Action:           prog.Action(registry.Start),
		Creds:            Root,
		NoReply:          true,
		DropIfNotRunning: true,
	}
	notBefore := clock.DelayFrom(now, prog.RestartDelay)
	p.Jobs.Append(job.New(job.Unbound, notBefore, func(int) int {
		if req.DropIfNotRunning && !prog.IsRunning() {
			return 0
		}
		return p.runStart(req)
	}))
}

// sendOK sends a non-error reply if req is repliable, logging (not
// failing the request) on a send error: a failure to deliver an
// already-computed success reply is transient, not a pipeline
// failure.
func (p *Pipeline) sendOK(req *Request, reply wire.Reply) {
	p.send(req, reply)
}

// replyError sends the wire error-reply form for code/description, if
// req is repliable and a reply was requested at all.
func (p *Pipeline) replyError(req *Request, code, description string) {
	if req.NoReply {
		return
	}
	p.send(req, wire.ErrorReply(code, description))
}

func (p *Pipeline) send(req *Request, reply wire.Reply) {
	if req.ReplyTo == nil {
		return
	}
	buf, err := reply.Encode()
	if err != nil {
		p.Log.Error("encode reply", "error", err)
		return
	}
	if _, err := p.Sender.Send(buf, nil, req.ReplyTo, false); err != nil {
		p.Log.Error("send reply", "error", err, "reply", reply.String())
	}
}
