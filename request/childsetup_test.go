package request

import (
	"os/exec"
	"strings"
	"syscall"
	"testing"

	"svcd/registry"
)

func TestExitCodeFromStateNormalExit(t *testing.T) {
	cmd := exec.Command("/bin/sh", "-c", "exit 7")
	if err := cmd.Run(); err == nil {
		t.Fatalf("expected a non-zero exit error")
	}
	ws := cmd.ProcessState.Sys().(syscall.WaitStatus)
	if got := exitCodeFromState(ws); got != 7 {
		t.Fatalf("exitCodeFromState = %d, want 7", got)
	}
}

func TestExitCodeFromStateSignaled(t *testing.T) {
	cmd := exec.Command("sleep", "5")
	if err := cmd.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		t.Fatalf("signal: %v", err)
	}
	_ = cmd.Wait()
	ws := cmd.ProcessState.Sys().(syscall.WaitStatus)
	if got := exitCodeFromState(ws); got != -int(syscall.SIGTERM) {
		t.Fatalf("exitCodeFromState = %d, want %d", got, -int(syscall.SIGTERM))
	}
}

func TestClampExitCodeBounds(t *testing.T) {
	cases := []struct{ in, want int }{
		{0, 0},
		{255, 255},
		{-255, -255},
		{256, 255},
		{-256, -255},
		{10000, 255},
		{-10000, -255},
	}
	for _, c := range cases {
		if got := clampExitCode(c.in); got != c.want {
			t.Errorf("clampExitCode(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestChildEnvContainsOnlyWhitelistedVars(t *testing.T) {
	prog := registry.NewProgram("svc")
	prog.SetPID(4242)
	action := prog.Action(registry.Start)

	env := childEnv(prog, action)
	if len(env) != 5 {
		t.Fatalf("expected exactly 5 env vars, got %d: %v", len(env), env)
	}

	want := map[string]bool{
		"PATH=/bin:/usr/bin": false,
		"SHELL=/bin/sh":      false,
		"PROGNAME=svc":       false,
		"ACTION=start":       false,
		"PID=4242":           false,
	}
	for _, kv := range env {
		if _, ok := want[kv]; !ok {
			t.Errorf("unexpected env var %q", kv)
			continue
		}
		want[kv] = true
	}
	for kv, seen := range want {
		if !seen {
			t.Errorf("missing expected env var %q", kv)
		}
	}
}

func TestChildEnvEmptyPidWhenNotRunning(t *testing.T) {
	prog := registry.NewProgram("svc")
	action := prog.Action(registry.Stop)

	env := childEnv(prog, action)
	found := false
	for _, kv := range env {
		if strings.HasPrefix(kv, "PID=") {
			found = true
			if kv != "PID=" {
				t.Errorf("expected empty PID, got %q", kv)
			}
		}
	}
	if !found {
		t.Fatalf("expected a PID= entry even with no live pid")
	}
}
