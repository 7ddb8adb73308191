package macro

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func namedMacro(name string) *Func {
	return &Func{MacroName: name, Fn: func(context.Context, *Input) Result { return Result{} }}
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	first := namedMacro("Debug")
	if err := r.Register("@tsderive/builtin", "Debug", first); err != nil {
		t.Fatalf("first register: %v", err)
	}
	err := r.Register("@tsderive/builtin", "Debug", namedMacro("Debug"))
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	var dup *DuplicateError
	if !errors.As(err, &dup) || dup.Key.String() != "@tsderive/builtin::Debug" {
		t.Fatalf("unexpected duplicate error: %#v", err)
	}
	got, err := r.Lookup("@tsderive/builtin", "Debug")
	if err != nil || got != Macro(first) {
		t.Fatalf("original entry replaced: %v %v", got, err)
	}
}

func TestLookupNotFound(t *testing.T) {
	r := NewRegistry()
	_, err := r.Lookup("m", "Missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_, err = r.LookupByName("Missing")
	var nf *NotFoundError
	if !errors.As(err, &nf) || !nf.ByName {
		t.Fatalf("expected by-name NotFoundError, got %v", err)
	}
}

func TestLookupWithFallbackEquivalence(t *testing.T) {
	r := NewRegistry()
	m := namedMacro("Clone")
	if err := r.Register("@acme/macros", "Clone", m); err != nil {
		t.Fatal(err)
	}

	exact, err := r.LookupWithFallback("@acme/macros", "Clone")
	if err != nil {
		t.Fatal(err)
	}
	fallback, err := r.LookupWithFallback("@other/module", "Clone")
	if err != nil {
		t.Fatal(err)
	}
	if exact != fallback || exact != Macro(m) {
		t.Fatalf("fallback resolved a different handle")
	}
}

func TestLookupByNameEarliestWins(t *testing.T) {
	r := NewRegistry()
	a, b := namedMacro("Hash"), namedMacro("Hash")
	if err := r.Register("z-module", "Hash", a); err != nil {
		t.Fatal(err)
	}
	if err := r.Register("a-module", "Hash", b); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		got, err := r.LookupByName("Hash")
		if err != nil {
			t.Fatal(err)
		}
		if got != Macro(a) {
			t.Fatalf("LookupByName returned a later registration")
		}
	}
}

func TestConcurrentRegisterSameKey(t *testing.T) {
	r := NewRegistry()
	const workers = 32
	var ok atomic.Int32
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if err := r.Register("m", "Debug", namedMacro("Debug")); err == nil {
				ok.Add(1)
			} else if !errors.Is(err, ErrDuplicate) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if ok.Load() != 1 {
		t.Fatalf("%d registrations succeeded, want exactly 1", ok.Load())
	}
	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}
}

func TestEntriesSortedAndClear(t *testing.T) {
	r := NewRegistry()
	for _, k := range []Key{{"b", "Y"}, {"a", "Z"}, {"b", "X"}} {
		if err := r.Register(k.Module, k.Name, namedMacro(k.Name)); err != nil {
			t.Fatal(err)
		}
	}
	var got []string
	for _, e := range r.Entries() {
		got = append(got, e.Key.String())
	}
	want := []string{"a::Z", "b::X", "b::Y"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Entries = %v, want %v", got, want)
		}
	}
	if !r.Contains("b", "X") || r.Contains("a", "X") {
		t.Fatal("Contains mismatch")
	}
	r.Clear()
	if r.Len() != 0 || r.Contains("b", "X") {
		t.Fatal("Clear left entries behind")
	}
	if _, err := r.LookupByName("X"); err == nil {
		t.Fatal("by-name index survived Clear")
	}
}

func TestRegisterAllStopsAtDuplicate(t *testing.T) {
	r := NewRegistry()
	calls := 0
	pkg := PackageFunc(func(r *Registry) error {
		calls++
		return r.Register("m", "Debug", namedMacro("Debug"))
	})
	err := RegisterAll(r, pkg, pkg, pkg)
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestLookupNormalizesNames(t *testing.T) {
	r := NewRegistry()
	composed := "Caf\u00e9"
	decomposed := "Cafe\u0301"
	if err := r.Register("m", composed, namedMacro(composed)); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := r.Lookup("m", decomposed); err != nil {
		t.Fatalf("decomposed lookup: %v", err)
	}
	if _, err := r.LookupByName(decomposed); err != nil {
		t.Fatalf("decomposed name lookup: %v", err)
	}
	if err := r.Register("m", decomposed, namedMacro(decomposed)); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate for equivalent spelling, got %v", err)
	}
}
