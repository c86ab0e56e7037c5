package request

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"syscall"

	"svcd/registry"
)

// Shell is the interpreter action commands run under, invoked as
// sh -c <command> <extra args...>.
const Shell = "/bin/sh"

// buildChildCommand constructs the exec.Cmd for running action's
// command against program, forwarding req's stdio triple (if any)
// and argv. The setpgid and setgid/setuid steps are expressed via
// cmd.SysProcAttr, which the runtime applies in the forked child
// before exec; a failure in these steps is reported synchronously
// from Start() rather than observed as a later exit. Foreign-fd
// closure relies on close-on-exec: descriptors Go opens carry it,
// MarkInheritedFDsCloseOnExec sets it on those inherited at startup,
// and ExtraFiles is never set.
func buildChildCommand(program *registry.Program, action *registry.Action, argv []string, req *Request) *exec.Cmd {
	args := append([]string{"-c", action.Command}, argv...)
	cmd := exec.Command(Shell, args...)

	cmd.Env = childEnv(program, action)
	if program.Cwd != "" {
		cmd.Dir = program.Cwd
	}

	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if action.SUID != -1 || action.SGID != -1 {
		uid := uint32(os.Geteuid())
		gid := uint32(os.Getegid())
		if action.SUID != -1 {
			uid = uint32(action.SUID)
		}
		if action.SGID != -1 {
			gid = uint32(action.SGID)
		}
		cmd.SysProcAttr.Credential = &syscall.Credential{Uid: uid, Gid: gid}
	}

	if req.HasFDs {
		cmd.Stdin = os.NewFile(uintptr(req.FDs[0]), "stdin")
		cmd.Stdout = os.NewFile(uintptr(req.FDs[1]), "stdout")
		cmd.Stderr = os.NewFile(uintptr(req.FDs[2]), "stderr")
	}

	return cmd
}

// childEnv builds the whitelisted child environment: exactly PATH,
// SHELL, PROGNAME, ACTION, PID.
func childEnv(program *registry.Program, action *registry.Action) []string {
	pidStr := ""
	if pid := program.GetPID(); pid > 0 {
		pidStr = strconv.Itoa(pid)
	}
	return []string{
		"PATH=/bin:/usr/bin",
		"SHELL=" + Shell,
		"PROGNAME=" + program.Name,
		"ACTION=" + action.Kind.String(),
		"PID=" + pidStr,
	}
}

// MarkInheritedFDsCloseOnExec marks every descriptor above stderr
// that this process inherited from its own parent (e.g. a systemd
// socket activation fd) close-on-exec, via a single /proc/self/fd
// enumeration.
// This has no effect on fds opened by Go's own runtime after process
// start, which os/exec already marks close-on-exec; it exists to
// cover descriptors this process never opened itself, and is called
// once at daemon startup before the event loop begins forking action
// children.
func MarkInheritedFDsCloseOnExec() {
	entries, err := os.ReadDir("/proc/self/fd")
	if err != nil {
		return
	}
	for _, e := range entries {
		fd, err := strconv.Atoi(e.Name())
		if err != nil || fd <= 2 {
			continue
		}
		syscall.CloseOnExec(fd)
	}
}

// exitCodeFromState translates a reaped child's wait status into a
// signed exit code: a signal-induced exit is reported as the negative
// signal number, clamped to the open interval (-256, 256).
func exitCodeFromState(ws syscall.WaitStatus) int {
	var code int
	switch {
	case ws.Exited():
		code = ws.ExitStatus()
	case ws.Signaled():
		code = -int(ws.Signal())
	default:
		code = -1
	}
	return clampExitCode(code)
}

func clampExitCode(n int) int {
	if n <= -256 {
		return -255
	}
	if n >= 256 {
		return 255
	}
	return n
}

// describeStartFailure renders an os/exec Start() failure for the
// NOCMD error reply's description field.
func describeStartFailure(program *registry.Program, err error) string {
	return fmt.Sprintf("%s: %v", program.Name, err)
}
