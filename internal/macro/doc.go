// Package macro defines the plugin contract for derive macros, the Registry
// that stores implementations under (module, name) keys, and the Dispatcher
// that resolves and runs one macro call.
//
// # Contract
//
// A macro is any value implementing Macro. Two optional interfaces extend it:
// Versioned reports a compatibility version (StableVersion when absent) and
// Described provides a human-readable description. Run is called at most
// once per (declaration, macro name) pair per expansion and may be called
// concurrently from different files, so implementations must be stateless or
// synchronize internally.
//
// # Registration
//
// Macro packages expose a Package (usually a func Register(*Registry) error)
// which the host calls once at startup; RegisterAll stops at the first
// duplicate key. Registration is explicit so that ordering and collisions are
// visible and testable.
//
// # Dispatch
//
// Dispatcher.Dispatch never panics and never returns an error. Unknown
// macros, version mismatches, bad input and panics inside Run each degrade to
// a single Error diagnostic with no patches.
package macro
