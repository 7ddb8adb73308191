package fuzztests

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

const maxSeedBytes = 64 << 10

var fixedSeeds = []string{
	"",
	"/** @derive(Debug) */\nclass A { x: number; }\n",
	"@derive(Clone, Hash) export class B { static s = 1; y?: string }",
	"/** @derive( */ interface C { a: string }",
	"/** @derive() */ enum D { One }",
	"class E { /** @debug(skip) */ secret: string; toString(): string { return \"\"; } }",
	"/** @derive(Debug) */ /** @derive(Clone) */ export interface F {}",
}

func addCorpusSeeds(f *testing.F) {
	for _, s := range fixedSeeds {
		f.Add([]byte(s))
	}
	addTestdataSeeds(f)
}

// addTestdataSeeds adds every .ts file under the repository testdata tree.
func addTestdataSeeds(f *testing.F) {
	root := filepath.Join("..", "..", "testdata")
	if _, err := os.Stat(root); err != nil {
		return
	}
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() || filepath.Ext(path) != ".ts" {
			return nil
		}
		// #nosec G304 -- path comes from repository testdata walk
		src, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		f.Add(clampSeed(src))
		return nil
	})
}

func clampSeed(src []byte) []byte {
	if len(src) <= maxSeedBytes {
		return append([]byte(nil), src...)
	}
	return append([]byte(nil), src[:maxSeedBytes]...)
}
