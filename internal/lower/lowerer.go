// Package lower turns TypeScript source text into the structural description
// consumed by the expansion pipeline: declarations, their members and the
// markers attached to them.
//
// The pipeline only depends on the Lowerer interface; TreeSitter is the
// production implementation.
package lower

import (
	"context"
	"strings"
)

// DeriveMarker is the substring whose absence lets the pipeline skip a file
// without lowering it. Marker names match case-insensitively, so the check
// does too; see MayContainDerive.
const DeriveMarker = "@derive"

// DeriveName is the marker name that requests macro expansion.
const DeriveName = "derive"

// MayContainDerive reports whether src contains DeriveMarker in any ASCII
// case. A false result means no declaration in src can carry a derive marker.
func MayContainDerive(src string) bool {
	for i := 0; i+len(DeriveMarker) <= len(src); i++ {
		j := strings.IndexByte(src[i:], '@')
		if j < 0 {
			return false
		}
		i += j
		if i+len(DeriveMarker) <= len(src) && strings.EqualFold(src[i:i+len(DeriveMarker)], DeriveMarker) {
			return true
		}
	}
	return false
}

// Lowerer produces the structural description of one file. Implementations
// must be safe for concurrent use.
type Lowerer interface {
	Lower(ctx context.Context, src, fileName string) (*File, error)
}

// LowererFunc adapts a function to Lowerer.
type LowererFunc func(ctx context.Context, src, fileName string) (*File, error)

func (f LowererFunc) Lower(ctx context.Context, src, fileName string) (*File, error) {
	return f(ctx, src, fileName)
}
