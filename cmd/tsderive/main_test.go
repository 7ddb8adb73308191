package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"tsderive/internal/diagfmt"
)

const sampleTS = `/** @derive(Debug) */
export class User {
  name: string;
}
`

// resetFlags puts every flag back to its default so commands can be
// executed more than once in one process.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	finish(err, &stderr)
	return stdout.String(), stderr.String(), err
}

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExpandPrintsCode(t *testing.T) {
	path := writeSource(t, t.TempDir(), "user.ts", sampleTS)

	stdout, stderr, err := execute(t, "expand", "--ui", "off", "--no-cache", path)
	if err != nil {
		t.Fatalf("expand: %v\nstderr: %s", err, stderr)
	}
	if strings.Contains(stdout, "@derive") {
		t.Fatalf("marker left in output:\n%s", stdout)
	}
	if !strings.Contains(stdout, "toString(): string {") {
		t.Fatalf("generated method missing:\n%s", stdout)
	}
}

func TestExpandWriteWithTypes(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "src/user.ts", sampleTS)
	plain := writeSource(t, dir, "src/plain.ts", "export const x = 1;\n")

	_, stderr, err := execute(t, "expand", "--ui", "off", "--no-cache", "--write", "--types", dir)
	if err != nil {
		t.Fatalf("expand: %v\nstderr: %s", err, stderr)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(got), "@derive") {
		t.Fatalf("file not rewritten:\n%s", got)
	}
	if _, err := os.Stat(typesPath(path)); err != nil {
		t.Fatalf("type view not written: %v", err)
	}
	if untouched, _ := os.ReadFile(plain); string(untouched) != "export const x = 1;\n" {
		t.Fatalf("unchanged file was rewritten: %q", untouched)
	}
}

func TestExpandJSONReportsErrors(t *testing.T) {
	src := `/** @derive(Debug) */
class User {
  name: string;
  toString(): string { return ""; }
}
`
	path := writeSource(t, t.TempDir(), "user.ts", src)

	stdout, _, err := execute(t, "expand", "--ui", "off", "--no-cache", "--format", "json", path)
	if !errors.Is(err, errFailed) {
		t.Fatalf("expected errFailed, got %v", err)
	}
	var out diagfmt.Output
	if err := json.Unmarshal([]byte(stdout), &out); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, stdout)
	}
	if len(out.Files) != 1 || len(out.Files[0].Diagnostics) != 1 {
		t.Fatalf("unexpected output: %+v", out)
	}
	if d := out.Files[0].Diagnostics[0]; d.Severity != "error" {
		t.Fatalf("severity = %q, want error", d.Severity)
	}
}

func TestTraceRingDumpedOnFailure(t *testing.T) {
	dir := t.TempDir()
	good := writeSource(t, dir, "good.ts", sampleTS)
	bad := writeSource(t, dir, "bad.ts", "/** @derive(Missing) */\nclass Bad {}\n")

	_, stderr, err := execute(t, "--trace-mode", "ring", "expand", "--ui", "off", "--no-cache", good)
	if err != nil {
		t.Fatalf("expand: %v\nstderr: %s", err, stderr)
	}
	if strings.Contains(stderr, "trace:") {
		t.Fatalf("ring dumped on success:\n%s", stderr)
	}

	_, stderr, err = execute(t, "--trace-mode", "ring", "--trace-ring-size", "64", "expand", "--ui", "off", "--no-cache", bad)
	if !errors.Is(err, errFailed) {
		t.Fatalf("expected errFailed, got %v", err)
	}
	if !strings.Contains(stderr, "trace: last events before failure:") || !strings.Contains(stderr, "expand") {
		t.Fatalf("ring not dumped on failure:\n%s", stderr)
	}
	if traceRing != nil {
		t.Fatal("cleanup should release the ring")
	}
}

func TestExpandRejectsBadFlags(t *testing.T) {
	path := writeSource(t, t.TempDir(), "user.ts", sampleTS)
	tests := [][]string{
		{"expand", "--format", "xml", path},
		{"expand", "--write", "--out", "dist", path},
		{"expand", "--ui", "maybe", path},
		{"--max-diagnostics", "-1", "expand", path},
		{"--trace-mode", "tape", "expand", path},
		{"--trace-mode", "ring", "--trace-ring-size", "-1", "expand", path},
	}
	for _, args := range tests {
		if _, _, err := execute(t, args...); err == nil {
			t.Fatalf("%v: expected error", args)
		}
	}
}

func TestMacrosJSON(t *testing.T) {
	stdout, _, err := execute(t, "macros", "--format", "json")
	if err != nil {
		t.Fatalf("macros: %v", err)
	}
	var rows []macroPayload
	if err := json.Unmarshal([]byte(stdout), &rows); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, r.Name)
	}
	for _, want := range []string{"Debug", "Clone", "Hash", "PartialEq"} {
		if !strings.Contains(strings.Join(names, ","), want) {
			t.Fatalf("macro %s missing from %v", want, names)
		}
	}
}

func TestVersionJSON(t *testing.T) {
	stdout, _, err := execute(t, "version", "--format", "json", "--hash")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	var payload map[string]string
	if err := json.Unmarshal([]byte(stdout), &payload); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if payload["tool"] != "tsderive" || payload["version"] == "" {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if _, ok := payload["git_commit"]; !ok {
		t.Fatalf("--hash should include git_commit: %v", payload)
	}
}
