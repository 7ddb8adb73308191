package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"tsderive/internal/driver"
)

// typesSuffix names the type view written next to an expanded file. The
// .d.ts ending keeps it out of later directory scans.
const typesSuffix = ".derive.d.ts"

// outputEmitter delivers expanded code: to stdout, in place, or mirrored
// under outDir.
type outputEmitter struct {
	stdout  io.Writer
	write   bool
	outDir  string
	baseDir string
	types   bool
}

func (e outputEmitter) emit(fr driver.FileResult) error {
	if fr.Err != nil || fr.Result == nil {
		return nil
	}
	res := fr.Result
	switch {
	case e.write:
		if !res.Changed {
			return nil
		}
		if err := writeFileKeepMode(fr.Path, res.Code); err != nil {
			return err
		}
		if e.types && res.TypeOutput != nil {
			return writeFileKeepMode(typesPath(fr.Path), *res.TypeOutput)
		}
		return nil
	case e.outDir != "":
		dest, err := mirrorPath(e.outDir, e.baseDir, fr.Path)
		if err != nil {
			return err
		}
		if err := writeFileKeepMode(dest, res.Code); err != nil {
			return err
		}
		if e.types && res.TypeOutput != nil {
			return writeFileKeepMode(typesPath(dest), *res.TypeOutput)
		}
		return nil
	default:
		if _, err := io.WriteString(e.stdout, res.Code); err != nil {
			return err
		}
		if e.types && res.TypeOutput != nil {
			if _, err := fmt.Fprintf(e.stdout, "\n// types: %s\n%s", fr.Path, *res.TypeOutput); err != nil {
				return err
			}
		}
		return nil
	}
}

// typesPath maps src/user.ts to src/user.derive.d.ts.
func typesPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + typesSuffix
}

// mirrorPath places path under outDir at its position relative to baseDir.
func mirrorPath(outDir, baseDir, path string) (string, error) {
	rel, err := filepath.Rel(baseDir, path)
	if err != nil {
		return "", fmt.Errorf("failed to place %s under %s: %w", path, outDir, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s", path, baseDir)
	}
	return filepath.Join(outDir, rel), nil
}

func writeFileKeepMode(path, content string) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), mode)
}
