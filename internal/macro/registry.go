package macro

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/text/unicode/norm"
)

var (
	// ErrDuplicate is wrapped by DuplicateError.
	ErrDuplicate = errors.New("macro already registered")
	// ErrNotFound is wrapped by NotFoundError.
	ErrNotFound = errors.New("macro not found")
)

// Key identifies a registered macro.
type Key struct {
	Module string
	Name   string
}

// newKey builds a key with both parts in Unicode NFC, so composed and
// decomposed spellings of a name resolve to the same macro.
func newKey(module, name string) Key {
	return Key{Module: norm.NFC.String(module), Name: norm.NFC.String(name)}
}

func (k Key) String() string {
	if k.Module == "" {
		return k.Name
	}
	return k.Module + "::" + k.Name
}

// DuplicateError reports a second registration of the same key.
type DuplicateError struct {
	Key Key
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("macro %s already registered", e.Key)
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicate }

// NotFoundError reports a failed lookup. ByName is set when the module was
// ignored.
type NotFoundError struct {
	Key    Key
	ByName bool
}

func (e *NotFoundError) Error() string {
	if e.ByName {
		return fmt.Sprintf("no macro named %q in any module", e.Key.Name)
	}
	return fmt.Sprintf("macro %s not found", e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// Entry describes one registration.
type Entry struct {
	Key   Key
	Macro Macro
	// Seq is the registration order, starting at 1.
	Seq uint64
}

// Registry maps (module, name) to macro implementations. It is safe for
// concurrent use; lookups take a read lock only.
type Registry struct {
	mu      sync.RWMutex
	entries map[Key]Entry
	// byName keeps keys in registration order, so LookupByName is
	// deterministic: the earliest registration wins.
	byName map[string][]Key
	seq    uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[Key]Entry),
		byName:  make(map[string][]Key),
	}
}

// Register adds m under (module, name). It fails with *DuplicateError when
// the key is taken and leaves the existing entry untouched.
func (r *Registry) Register(module, name string, m Macro) error {
	if m == nil {
		return fmt.Errorf("register %s: nil macro", Key{Module: module, Name: name})
	}
	key := newKey(module, name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[key]; exists {
		return &DuplicateError{Key: key}
	}
	r.seq++
	r.entries[key] = Entry{Key: key, Macro: m, Seq: r.seq}
	r.byName[key.Name] = append(r.byName[key.Name], key)
	return nil
}

// Lookup finds the exact (module, name) key.
func (r *Registry) Lookup(module, name string) (Macro, error) {
	key := newKey(module, name)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.entries[key]; ok {
		return e.Macro, nil
	}
	return nil, &NotFoundError{Key: key}
}

// LookupByName ignores the module. When several modules register the same
// name, the one registered first is returned.
func (r *Registry) LookupByName(name string) (Macro, error) {
	name = norm.NFC.String(name)
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, key := range r.byName[name] {
		if e, ok := r.entries[key]; ok {
			return e.Macro, nil
		}
	}
	return nil, &NotFoundError{Key: Key{Name: name}, ByName: true}
}

// LookupWithFallback tries the exact key, then the name alone.
func (r *Registry) LookupWithFallback(module, name string) (Macro, error) {
	if m, err := r.Lookup(module, name); err == nil {
		return m, nil
	}
	return r.LookupByName(name)
}

// Contains reports whether the exact key is registered.
func (r *Registry) Contains(module, name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[newKey(module, name)]
	return ok
}

// Len returns the number of registrations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Entries returns all registrations sorted by module, then name.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Key.Module != out[j].Key.Module {
			return out[i].Key.Module < out[j].Key.Module
		}
		return out[i].Key.Name < out[j].Key.Name
	})
	return out
}

// Fingerprint summarises registered keys and versions; the driver cache uses
// it to avoid serving results produced by a different macro set.
func (r *Registry) Fingerprint() string {
	entries := r.Entries()
	var b []byte
	for _, e := range entries {
		b = fmt.Appendf(b, "%s@%d;", e.Key, VersionOf(e.Macro))
	}
	return string(b)
}

// Clear drops every registration. Meant for tests and resets.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[Key]Entry)
	r.byName = make(map[string][]Key)
	r.seq = 0
}

// Package is a set of macros registered together.
type Package interface {
	Register(r *Registry) error
}

// PackageFunc adapts a registration function to Package.
type PackageFunc func(r *Registry) error

func (f PackageFunc) Register(r *Registry) error { return f(r) }

// RegisterAll registers each package once, in order, and stops at the first
// failure.
func RegisterAll(r *Registry, pkgs ...Package) error {
	for i, p := range pkgs {
		if err := p.Register(r); err != nil {
			return fmt.Errorf("macro package #%d: %w", i+1, err)
		}
	}
	return nil
}
