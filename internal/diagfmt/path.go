package diagfmt

import (
	"path/filepath"
	"strings"

	"tsderive/internal/source"
)

func displayPath(path string, mode PathMode, base string) string {
	switch mode {
	case PathModeAbsolute:
		if abs, err := filepath.Abs(path); err == nil {
			return filepath.ToSlash(abs)
		}
		return path
	case PathModeBasename:
		return filepath.Base(path)
	case PathModeRelative:
		return relative(path, base)
	default:
		if base == "" {
			return path
		}
		rel := relative(path, base)
		if len(rel) < len(path) && !strings.HasPrefix(rel, "..") {
			return rel
		}
		return path
	}
}

func relative(path, base string) string {
	if base == "" {
		return path
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if abs, err := filepath.Abs(base); err == nil {
		base = abs
	}
	rel, err := source.RelativePath(path, base)
	if err != nil {
		return path
	}
	return rel
}
