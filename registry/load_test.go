package registry

import "testing"

// fakeStore is a minimal in-memory config.Store for exercising
// LoadFromStore without touching the INI file format.
type fakeStore struct {
	sections []string
	values   map[string]map[string]string
}

func (f *fakeStore) Sections() []string { return f.sections }

func (f *fakeStore) Get(section, key string) (string, bool) {
	sec, ok := f.values[section]
	if !ok {
		return "", false
	}
	v, ok := sec[key]
	return v, ok
}

func (f *fakeStore) Global(key string) (string, bool) { return f.Get("", key) }

func (f *fakeStore) Reload() error { return nil }

func TestLoadFromStoreBuildsPrograms(t *testing.T) {
	store := &fakeStore{
		sections: []string{"hello"},
		values: map[string]map[string]string{
			"hello": {
				"cmd-start":     "/bin/echo hi",
				"allow-uid":     "1000",
				"restart-delay": "3",
				"autostart":     "1",
			},
		},
	}

	r, errs := LoadFromStore(store)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	p := r.Get("hello")
	if p == nil {
		t.Fatalf("expected program 'hello'")
	}
	if !p.HasRestart || p.RestartDelay != 3 {
		t.Fatalf("restart delay not parsed: %+v", p)
	}
	if p.AutostartGroup != 1 {
		t.Fatalf("autostart group not parsed: %d", p.AutostartGroup)
	}

	start := p.Action(Start)
	if start.Command != "/bin/echo hi" {
		t.Fatalf("cmd-start not parsed: %q", start.Command)
	}
	if start.AllowUID != 1000 {
		t.Fatalf("allow-uid not inherited into action: %d", start.AllowUID)
	}

	stop := p.Action(Stop)
	if stop.HasCommand() {
		t.Fatalf("cmd-stop was never set, should remain commandless")
	}
}

func TestLoadFromStoreGlobalAllowFallback(t *testing.T) {
	store := &fakeStore{
		sections: []string{"plain", "override"},
		values: map[string]map[string]string{
			"": {
				"allow-uid": "500",
				"allow-gid": "600",
			},
			"plain": {
				"cmd-start": "/bin/true",
			},
			"override": {
				"cmd-start": "/bin/true",
				"allow-uid": "700",
			},
		},
	}

	r, errs := LoadFromStore(store)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	plain := r.Get("plain").Action(Start)
	if plain.AllowUID != 500 || plain.AllowGID != 600 {
		t.Fatalf("global allow-uid/allow-gid not inherited: uid=%d gid=%d", plain.AllowUID, plain.AllowGID)
	}

	override := r.Get("override").Action(Start)
	if override.AllowUID != 700 {
		t.Fatalf("section allow-uid should override the global: %d", override.AllowUID)
	}
	if override.AllowGID != 600 {
		t.Fatalf("absent section allow-gid should keep the global: %d", override.AllowGID)
	}
}

func TestLoadFromStoreDefaultSUIDScopes(t *testing.T) {
	store := &fakeStore{
		sections: []string{"inherits", "overrides"},
		values: map[string]map[string]string{
			"": {
				"default-suid": "100",
				"default-sgid": "200",
			},
			"inherits": {
				"cmd-start": "/bin/true",
			},
			"overrides": {
				"cmd-start":    "/bin/true",
				"default-suid": "300",
				"suid-stop":    "400",
			},
		},
	}

	r, errs := LoadFromStore(store)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	inherited := r.Get("inherits").Action(Start)
	if inherited.SUID != 100 || inherited.SGID != 200 {
		t.Fatalf("global default-suid/default-sgid not inherited: suid=%d sgid=%d", inherited.SUID, inherited.SGID)
	}

	prog := r.Get("overrides")
	start := prog.Action(Start)
	if start.SUID != 300 {
		t.Fatalf("section default-suid should override the global: %d", start.SUID)
	}
	if start.SGID != 200 {
		t.Fatalf("absent section default-sgid should keep the global: %d", start.SGID)
	}
	stop := prog.Action(Stop)
	if stop.SUID != 400 {
		t.Fatalf("suid-stop should override the section default: %d", stop.SUID)
	}
}

func TestLoadFromStoreNoRestartByDefault(t *testing.T) {
	store := &fakeStore{
		sections: []string{"svc"},
		values:   map[string]map[string]string{"svc": {"cmd-start": "/bin/true"}},
	}
	r, errs := LoadFromStore(store)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	p := r.Get("svc")
	if p.HasRestart {
		t.Fatalf("restart-delay absent from config should disable auto-restart")
	}
}
