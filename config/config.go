// Package config provides an ordered, section-keyed,
// last-assignment-wins view over an INI-style program configuration
// file, plus an atomic-swap-on-reload concrete store backed by
// github.com/go-ini/ini.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/go-ini/ini"
)

// GlobalSection is the key under which the unnamed/default INI
// section is exposed.
const GlobalSection = ""

// Store is the interface the registry and daemon startup consume to
// load program and global configuration.
type Store interface {
	// Sections enumerates every section name, in file order, the
	// global section excluded (callers reach it via Global).
	Sections() []string

	// Get returns the last assignment of key within section
	// (repeated keys: last wins), and whether the key was present.
	Get(section, key string) (string, bool)

	// Global is a convenience for Get(GlobalSection, key).
	Global(key string) (string, bool)

	// Reload re-reads the backing source and atomically swaps this
	// store's contents in place; on parse failure the previous
	// contents are retained and an error is returned.
	Reload() error
}

// IniStore implements Store on top of a github.com/go-ini/ini file.
// Section/key lookups always resolve through the last-loaded
// snapshot, swapped atomically under mu so a reload never yields a
// torn read.
type IniStore struct {
	mu   sync.RWMutex
	path string
	file *ini.File
}

// Load parses path as the initial configuration.
func Load(path string) (*IniStore, error) {
	f, err := ini.LoadSources(ini.LoadOptions{AllowShadows: true}, path)
	if err != nil {
		return nil, fmt.Errorf("config: load %s: %w", path, err)
	}
	return &IniStore{path: path, file: f}, nil
}

// Sections implements Store.
func (s *IniStore) Sections() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for _, sec := range s.file.Sections() {
		if sec.Name() == ini.DefaultSection {
			continue
		}
		out = append(out, sec.Name())
	}
	return out
}

// Get implements Store. The backing file tolerates repeated keys
// within a section; they are collapsed to "last wins" here, at the
// consumer, not in the container.
func (s *IniStore) Get(section, key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	name := section
	if name == GlobalSection {
		name = ini.DefaultSection
	}
	sec, err := s.file.GetSection(name)
	if err != nil {
		return "", false
	}
	k, err := sec.GetKey(key)
	if err != nil {
		return "", false
	}
	vals := k.ValueWithShadows()
	if len(vals) == 0 {
		return "", false
	}
	return vals[len(vals)-1], true
}

// Global implements Store.
func (s *IniStore) Global(key string) (string, bool) {
	return s.Get(GlobalSection, key)
}

// Reload implements Store. Parse failures leave the existing snapshot
// untouched and are reported to the caller as a non-fatal error.
func (s *IniStore) Reload() error {
	f, err := ini.LoadSources(ini.LoadOptions{AllowShadows: true}, s.path)
	if err != nil {
		return fmt.Errorf("config: reload %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.file = f
	s.mu.Unlock()
	return nil
}

// ParseInt decodes a config value: "none" -> -1, "yes" -> 1,
// "no" -> 0, otherwise a base-10 integer.
func ParseInt(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return -1, nil
	case "yes":
		return 1, nil
	case "no":
		return 0, nil
	}
	return strconv.Atoi(strings.TrimSpace(s))
}

// ParseFloat decodes a restart-delay-shaped value: "none" disables it
// and yields 0 with ok=false; anything else is parsed as a base-10
// float and returned with ok=true.
func ParseFloat(s string) (float64, bool, error) {
	if strings.EqualFold(strings.TrimSpace(s), "none") {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false, err
	}
	return f, true, nil
}
