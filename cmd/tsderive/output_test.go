package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"tsderive/internal/driver"
	"tsderive/internal/expand"
)

func TestTypesPath(t *testing.T) {
	tests := []struct{ in, want string }{
		{"src/user.ts", "src/user.derive.d.ts"},
		{"view.tsx", "view.derive.d.ts"},
	}
	for _, tt := range tests {
		if got := typesPath(tt.in); got != filepath.FromSlash(tt.want) && got != tt.want {
			t.Fatalf("typesPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMirrorPath(t *testing.T) {
	got, err := mirrorPath("out", "src", filepath.Join("src", "models", "user.ts"))
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join("out", "models", "user.ts"); got != want {
		t.Fatalf("mirrorPath = %q, want %q", got, want)
	}
	if _, err := mirrorPath("out", "src", filepath.Join("lib", "x.ts")); err == nil {
		t.Fatalf("expected error for a path outside the base directory")
	}
}

func TestEmitter(t *testing.T) {
	types := "declare const t: 1;\n"
	res := &expand.Result{Code: "const a = 1;\n", TypeOutput: &types, Changed: true}

	t.Run("stdout", func(t *testing.T) {
		var buf bytes.Buffer
		e := outputEmitter{stdout: &buf}
		if err := e.emit(driver.FileResult{Path: "a.ts", Result: res}); err != nil {
			t.Fatal(err)
		}
		if buf.String() != res.Code {
			t.Fatalf("stdout = %q", buf.String())
		}
	})

	t.Run("out dir", func(t *testing.T) {
		base := t.TempDir()
		outDir := t.TempDir()
		e := outputEmitter{outDir: outDir, baseDir: base, types: true}
		if err := e.emit(driver.FileResult{Path: filepath.Join(base, "m", "a.ts"), Result: res}); err != nil {
			t.Fatal(err)
		}
		code, err := os.ReadFile(filepath.Join(outDir, "m", "a.ts"))
		if err != nil || string(code) != res.Code {
			t.Fatalf("code = %q, err = %v", code, err)
		}
		typed, err := os.ReadFile(filepath.Join(outDir, "m", "a.derive.d.ts"))
		if err != nil || string(typed) != types {
			t.Fatalf("types = %q, err = %v", typed, err)
		}
	})

	t.Run("write skips unchanged", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "a.ts")
		e := outputEmitter{write: true}
		if err := e.emit(driver.FileResult{Path: path, Result: &expand.Result{Code: "x"}}); err != nil {
			t.Fatal(err)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("unchanged result should not be written, stat err = %v", err)
		}
	})
}

func TestReadUIMode(t *testing.T) {
	for in, want := range map[string]uiMode{"": uiModeAuto, "AUTO": uiModeAuto, "on": uiModeOn, " off ": uiModeOff} {
		got, err := readUIMode(in)
		if err != nil || got != want {
			t.Fatalf("readUIMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := readUIMode("sometimes"); err == nil {
		t.Fatalf("expected error")
	}
	if shouldUseTUI(uiModeAuto, 1, false) {
		t.Fatalf("auto mode should not start the view for one file")
	}
	if !shouldUseTUI(uiModeOn, 1, true) || shouldUseTUI(uiModeOff, 5, false) {
		t.Fatalf("explicit modes must win")
	}
}
