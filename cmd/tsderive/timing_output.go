package main

import (
	"fmt"
	"io"

	"tsderive/internal/driver"
)

func printTimings(out io.Writer, s driver.Summary) {
	if out == nil {
		return
	}
	fmt.Fprintf(out, "%d files: %d changed, %d cached, %d failed\n", s.Files, s.Changed, s.Cached, s.Failed)
	if s.CacheHits > 0 {
		fmt.Fprintf(out, "cache hits: %d\n", s.CacheHits)
	}
	if len(s.Timings.Stages) > 0 {
		fmt.Fprint(out, s.Timings.String())
	}
}
