package lower_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"tsderive/internal/lower"
	"tsderive/internal/testkit"
)

func TestTreeSitter_SpanInvariants(t *testing.T) {
	inputs := map[string]string{
		"classes": `/** @derive(Debug) */
export class A { x: number; y(): void {} }
@derive(Clone) class B { static z = 1; }
`,
		"mixed": `interface I { a: string }
enum E { One, Two }
type T = { k: number };
export declare class D {}
`,
		"broken": "class { @derive(\n interface X {",
		"empty":  "",
	}
	for name, src := range inputs {
		t.Run(name, func(t *testing.T) {
			f, err := lower.NewTreeSitter().Lower(context.Background(), src, name+".ts")
			require.NoError(t, err)
			require.NoError(t, testkit.CheckLowered(f, src))
		})
	}
}
