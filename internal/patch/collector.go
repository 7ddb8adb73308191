package patch

import "fmt"

// Collector accumulates the patches of one file on two independent channels:
// runtime patches rewrite the emitted source, type patches rewrite the
// parallel type-declaration text. A Collector is not safe for concurrent use;
// each file expansion owns its own.
type Collector struct {
	runtime []Patch
	types   []Patch
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// AddRuntime appends patches to the runtime channel.
func (c *Collector) AddRuntime(patches ...Patch) {
	c.runtime = append(c.runtime, patches...)
}

// AddType appends patches to the type-declaration channel.
func (c *Collector) AddType(patches ...Patch) {
	c.types = append(c.types, patches...)
}

func (c *Collector) RuntimeLen() int { return len(c.runtime) }

func (c *Collector) TypeLen() int { return len(c.types) }

// RuntimePatches returns a copy of the runtime channel in accumulation order.
func (c *Collector) RuntimePatches() []Patch {
	return append([]Patch(nil), c.runtime...)
}

// TypePatches returns a copy of the type channel in accumulation order.
func (c *Collector) TypePatches() []Patch {
	return append([]Patch(nil), c.types...)
}

// ApplyRuntime rewrites the original source with the runtime channel.
func (c *Collector) ApplyRuntime(src string) (string, error) {
	out, err := Apply(src, c.runtime)
	if err != nil {
		return "", fmt.Errorf("runtime patches: %w", err)
	}
	return out, nil
}

// ApplyType rewrites the type-declaration base text with the type channel.
func (c *Collector) ApplyType(base string) (string, error) {
	out, err := Apply(base, c.types)
	if err != nil {
		return "", fmt.Errorf("type patches: %w", err)
	}
	return out, nil
}
