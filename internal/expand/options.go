package expand

import "tsderive/internal/macro"

// DefaultMaxDiagnostics is the per-file cap used when none is configured.
const DefaultMaxDiagnostics = 100

// Options tune one Pipeline.
type Options struct {
	// MaxDiagnostics caps the diagnostics returned per file. 0 reports none.
	MaxDiagnostics int
	// Module is the registry module macro names resolve against first.
	Module string
	// Version is the compatibility version requested from every macro.
	Version uint32
	// TypeBase is the text type patches are applied to. nil means the
	// original source.
	TypeBase *string
}

// DefaultOptions returns options with every field set to its default.
func DefaultOptions() Options {
	return Options{
		MaxDiagnostics: DefaultMaxDiagnostics,
		Module:         macro.DefaultModule,
		Version:        macro.StableVersion,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxDiagnostics < 0 {
		o.MaxDiagnostics = 0
	}
	if o.Module == "" {
		o.Module = macro.DefaultModule
	}
	if o.Version == 0 {
		o.Version = macro.StableVersion
	}
	return o
}
