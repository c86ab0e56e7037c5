// Package registry implements the Program/Action data model and the
// in-memory program catalog: an ordered collection of supervised
// programs, merged in place on configuration reload.
package registry

import (
	"sync"

	"svcd/config"
)

// ActionKind names one of the six operations a Program supports.
type ActionKind int

const (
	Start ActionKind = iota
	Restart
	Reload
	Signal
	Stop
	Status
)

// actionKinds lists every kind in a stable order, for iteration (e.g.
// when building a fresh Program from configuration).
var actionKinds = [...]ActionKind{Start, Restart, Reload, Signal, Stop, Status}

// String renders the kind the way it appears in config keys and log
// lines ("cmd-start", "Program 'svc' ... restart").
func (k ActionKind) String() string {
	switch k {
	case Start:
		return "start"
	case Restart:
		return "restart"
	case Reload:
		return "reload"
	case Signal:
		return "signal"
	case Stop:
		return "stop"
	case Status:
		return "status"
	default:
		return "unknown"
	}
}

// ParseActionKind maps a wire/config verb to its ActionKind.
func ParseActionKind(s string) (ActionKind, bool) {
	for _, k := range actionKinds {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// Action is bound to one kind and is immutable once built; a config
// reload replaces it wholesale rather than mutating fields in place.
type Action struct {
	Kind ActionKind

	// Command is the shell command string; the zero value ("") means
	// "use the default policy for this kind".
	Command string

	// AllowUID/AllowGID: who may invoke this action. -1 means "no one
	// unless root".
	AllowUID int
	AllowGID int

	// SUID/SGID: identity to switch to before exec. -1 means inherit.
	SUID int
	SGID int
}

// HasCommand reports whether this Action carries an explicit command,
// as opposed to directing the default policy for its kind.
func (a *Action) HasCommand() bool {
	return a != nil && a.Command != ""
}

// Program is identified by a unique name and owns at most one "main"
// child pid at a time.
type Program struct {
	mu sync.Mutex

	Name string

	// PID is the current main child's pid, or 0 for none.
	PID int

	// Running is the declared desired state.
	Running bool

	// RestartDelay is the restart delay in seconds; HasRestart is
	// false when auto-restart is disabled ("none" in config).
	RestartDelay float64
	HasRestart   bool

	// AutostartGroup is 0 for "no autostart group".
	AutostartGroup int

	// Cwd is the optional working directory; empty means none.
	Cwd string

	// RemovePending marks a Program slated for deletion: the reload
	// sweep deletes it if it has no live child, otherwise it lingers
	// until the supervision path removes it when its child exits.
	RemovePending bool

	actions [len(actionKinds)]*Action
}

// NewProgram builds a Program with a default (commandless) Action for
// every kind; callers then fill in configured Actions via SetAction.
func NewProgram(name string) *Program {
	p := &Program{Name: name}
	for _, k := range actionKinds {
		p.actions[k] = &Action{Kind: k, AllowUID: -1, AllowGID: -1, SUID: -1, SGID: -1}
	}
	return p
}

// Action returns the Program's Action for kind. Never nil.
func (p *Program) Action(kind ActionKind) *Action {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.actions[kind]
}

// SetAction replaces the Action for its Kind wholesale.
func (p *Program) SetAction(a *Action) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.actions[a.Kind] = a
}

// HasLivePID reports whether the Program currently owns a child pid
// that has not yet been reaped.
func (p *Program) HasLivePID() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.PID > 0
}

// SetPID sets or clears (with 0) the Program's current pid.
func (p *Program) SetPID(pid int) {
	p.mu.Lock()
	p.PID = pid
	p.mu.Unlock()
}

// GetPID returns the current pid (0 = none).
func (p *Program) GetPID() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.PID
}

// SetRunning sets the declared desired-running flag.
func (p *Program) SetRunning(running bool) {
	p.mu.Lock()
	p.Running = running
	p.mu.Unlock()
}

// IsRunning returns the declared desired-running flag.
func (p *Program) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Running
}

// State renders the LIST verb's per-program state string. The
// "dead lingering ?!" marker flags the nominally impossible
// dead-and-still-remove-pending state, observable only in the window
// between a reap and its registry cleanup; it is deliberate, as a
// diagnostic, not a formatting accident.
func (p *Program) State() string {
	p.mu.Lock()
	running := p.PID > 0
	pending := p.RemovePending
	p.mu.Unlock()

	switch {
	case running && pending:
		return "running lingering"
	case running:
		return "running"
	case pending:
		return "dead lingering ?!"
	default:
		return "dead"
	}
}

// Registry is an ordered catalog of Programs, preserving
// configuration order for deterministic listings. Get is linear,
// acceptable for the small N this daemon is built for; a name->index
// map would pay off only once N grows.
type Registry struct {
	mu       sync.RWMutex
	programs []*Program
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{}
}

// Get returns the Program named name, or nil if absent.
func (r *Registry) Get(name string) *Program {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.programs {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// FindByPID returns the Program whose current pid equals pid, or nil.
// Used by the supervision path to locate which Program a reaped
// SIGCHLD pid belongs to.
func (r *Registry) FindByPID(pid int) *Program {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.programs {
		if p.GetPID() == pid {
			return p
		}
	}
	return nil
}

// All returns a snapshot slice of every Program, in registration
// order.
func (r *Registry) All() []*Program {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Program, len(r.programs))
	copy(out, r.programs)
	return out
}

// Append adds p at the tail (used both at initial load and for
// brand-new programs introduced by a reload).
func (r *Registry) Append(p *Program) {
	r.mu.Lock()
	r.programs = append(r.programs, p)
	r.mu.Unlock()
}

// replaceAt swaps the Program at index i in place, preserving
// position.
func (r *Registry) replaceAt(i int, p *Program) {
	r.programs[i] = p
}

// removeAt deletes the Program at index i.
func (r *Registry) removeAt(i int) {
	r.programs = append(r.programs[:i], r.programs[i+1:]...)
}

// MarkAllRemovePending sets RemovePending on every current Program,
// the first step of a reload merge.
func (r *Registry) MarkAllRemovePending() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.programs {
		p.mu.Lock()
		p.RemovePending = true
		p.mu.Unlock()
	}
}

// Merge absorbs a freshly parsed shadow Program into the registry
// during a reload: if a same-named
// Program already exists, its pid and running flag transfer to the
// new Program, RemovePending is cleared, and the new Program swaps in
// at the old position; otherwise the new Program is appended.
func (r *Registry) Merge(fresh *Program) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, old := range r.programs {
		if old.Name != fresh.Name {
			continue
		}
		old.mu.Lock()
		fresh.PID = old.PID
		fresh.Running = old.Running
		old.mu.Unlock()
		fresh.RemovePending = false
		r.replaceAt(i, fresh)
		return
	}

	r.programs = append(r.programs, fresh)
}

// Sweep deletes every Program still RemovePending with no live child,
// the final step of a reload merge. Remove-pending Programs with a
// live child linger until the child exits. It returns the names
// actually removed, for logging.
func (r *Registry) Sweep() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []string
	kept := r.programs[:0:0]
	for _, p := range r.programs {
		p.mu.Lock()
		drop := p.RemovePending && p.PID <= 0
		p.mu.Unlock()
		if drop {
			removed = append(removed, p.Name)
			continue
		}
		kept = append(kept, p)
	}
	r.programs = kept
	return removed
}

// RemoveIfPendingAndDead deletes the named Program iff it is
// RemovePending and has no live pid; the supervision path calls it
// when a lingering program's child exits. Returns true if removed.
func (r *Registry) RemoveIfPendingAndDead(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, p := range r.programs {
		if p.Name != name {
			continue
		}
		p.mu.Lock()
		drop := p.RemovePending && p.PID <= 0
		p.mu.Unlock()
		if drop {
			r.removeAt(i)
			return true
		}
		return false
	}
	return false
}

// LoadFromStore builds a fresh shadow Registry from a config.Store,
// one Program per non-global section. Parse failures are collected
// and returned. An unparsable restart-delay or autostart value skips
// its section entirely; an unparsable uid/gid key is reported and the
// value falls back to the next broader default (action key, then
// section key, then global key, then -1), so the section still loads.
func LoadFromStore(store config.Store) (*Registry, []error) {
	r := New()
	var errs []error

	defaultSUID, _ := store.Global("default-suid")
	defaultSGID, _ := store.Global("default-sgid")
	dSUID := parseOrDefault(defaultSUID, -1, &errs)
	dSGID := parseOrDefault(defaultSGID, -1, &errs)

	globalAllowUID, _ := store.Global("allow-uid")
	globalAllowGID, _ := store.Global("allow-gid")
	gAllowUID := parseOrDefault(globalAllowUID, -1, &errs)
	gAllowGID := parseOrDefault(globalAllowGID, -1, &errs)

	for _, name := range store.Sections() {
		p := NewProgram(name)

		if v, ok := store.Get(name, "cwd"); ok {
			p.Cwd = v
		}
		if v, ok := store.Get(name, "restart-delay"); ok {
			f, has, err := config.ParseFloat(v)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			p.RestartDelay, p.HasRestart = f, has
		}
		if v, ok := store.Get(name, "autostart"); ok {
			n, err := config.ParseInt(v)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if n < 0 {
				n = 0
			}
			p.AutostartGroup = n
		}

		// Section-level defaults fall back to the global section's.
		allowUID, _ := store.Get(name, "allow-uid")
		allowGID, _ := store.Get(name, "allow-gid")
		gUID := parseOrDefault(allowUID, gAllowUID, &errs)
		gGID := parseOrDefault(allowGID, gAllowGID, &errs)

		sectionSUID, _ := store.Get(name, "default-suid")
		sectionSGID, _ := store.Get(name, "default-sgid")
		sSUID := parseOrDefault(sectionSUID, dSUID, &errs)
		sSGID := parseOrDefault(sectionSGID, dSGID, &errs)

		for _, k := range actionKinds {
			a := &Action{Kind: k, AllowUID: gUID, AllowGID: gGID, SUID: sSUID, SGID: sSGID}
			if v, ok := store.Get(name, "cmd-"+k.String()); ok {
				a.Command = v
			}
			if v, ok := store.Get(name, "uid-"+k.String()); ok {
				a.AllowUID = parseOrDefault(v, gUID, &errs)
			}
			if v, ok := store.Get(name, "gid-"+k.String()); ok {
				a.AllowGID = parseOrDefault(v, gGID, &errs)
			}
			if v, ok := store.Get(name, "suid-"+k.String()); ok {
				a.SUID = parseOrDefault(v, sSUID, &errs)
			}
			if v, ok := store.Get(name, "sgid-"+k.String()); ok {
				a.SGID = parseOrDefault(v, sSGID, &errs)
			}
			p.SetAction(a)
		}

		r.Append(p)
	}

	return r, errs
}

func parseOrDefault(s string, def int, errs *[]error) int {
	if s == "" {
		return def
	}
	n, err := config.ParseInt(s)
	if err != nil {
		*errs = append(*errs, err)
		return def
	}
	return n
}
