package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "svcd.conf")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAndGetLastWins(t *testing.T) {
	path := writeConfig(t, `
socket-path = /var/run/svcd
autostart = 1

[hello]
cmd-start = /bin/echo hi
cmd-start = /bin/echo hi again
allow-uid = 1000
`)

	store, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if v, ok := store.Global("socket-path"); !ok || v != "/var/run/svcd" {
		t.Fatalf("global socket-path = %q, %v", v, ok)
	}

	if v, ok := store.Get("hello", "cmd-start"); !ok || v != "/bin/echo hi again" {
		t.Fatalf("cmd-start last-wins = %q, %v", v, ok)
	}

	sections := store.Sections()
	if len(sections) != 1 || sections[0] != "hello" {
		t.Fatalf("Sections() = %v", sections)
	}
}

func TestReloadSwapsAtomically(t *testing.T) {
	path := writeConfig(t, "[a]\ncmd-start = /bin/true\n")
	store, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := os.WriteFile(path, []byte("[b]\ncmd-start = /bin/false\n"), 0644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if err := store.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	if _, ok := store.Get("a", "cmd-start"); ok {
		t.Fatalf("stale section 'a' still present after reload")
	}
	if v, ok := store.Get("b", "cmd-start"); !ok || v != "/bin/false" {
		t.Fatalf("b.cmd-start = %q, %v", v, ok)
	}
}

func TestReloadKeepsOldOnParseFailure(t *testing.T) {
	path := writeConfig(t, "[a]\ncmd-start = /bin/true\n")
	store, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := store.Reload(); err == nil {
		t.Fatalf("Reload: expected error for missing file")
	}

	if v, ok := store.Get("a", "cmd-start"); !ok || v != "/bin/true" {
		t.Fatalf("previous snapshot lost after failed reload: %q, %v", v, ok)
	}
}

func TestParseInt(t *testing.T) {
	cases := map[string]int{"none": -1, "yes": 1, "no": 0, "42": 42, "-1": -1}
	for in, want := range cases {
		got, err := ParseInt(in)
		if err != nil {
			t.Fatalf("ParseInt(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseInt(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestParseFloat(t *testing.T) {
	if f, ok, err := ParseFloat("none"); err != nil || ok || f != 0 {
		t.Fatalf("ParseFloat(none) = %v, %v, %v", f, ok, err)
	}
	if f, ok, err := ParseFloat("3.5"); err != nil || !ok || f != 3.5 {
		t.Fatalf("ParseFloat(3.5) = %v, %v, %v", f, ok, err)
	}
}
