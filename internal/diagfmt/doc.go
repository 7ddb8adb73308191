// Package diagfmt renders diagnostics for people (Pretty) and tools (JSON).
package diagfmt
