// Package observ measures how long each stage of an expansion takes.
package observ

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Stage records the duration of one pipeline stage.
type Stage struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Note  string
}

// Timer tracks stage durations for one file. It is not safe for concurrent
// use; the driver merges per-file reports with an Aggregate.
type Timer struct {
	stages []Stage
}

// NewTimer creates a new empty Timer.
func NewTimer() *Timer { return &Timer{stages: make([]Stage, 0, 8)} }

// Begin starts a new stage and returns its index.
func (t *Timer) Begin(name string) int {
	t.stages = append(t.stages, Stage{Name: name, Start: time.Now()})
	return len(t.stages) - 1
}

// End finishes a stage by its index.
func (t *Timer) End(idx int, note string) {
	if idx < 0 || idx >= len(t.stages) {
		return
	}
	s := &t.stages[idx]
	s.Dur = time.Since(s.Start)
	s.Note = note
}

// Summary returns a human-readable table of all tracked stages.
func (t *Timer) Summary() string {
	return t.Report().String()
}

// StageReport is the serialisable form of a stage.
type StageReport struct {
	Name       string  `json:"name" msgpack:"name"`
	DurationMS float64 `json:"duration_ms" msgpack:"duration_ms"`
	Note       string  `json:"note,omitempty" msgpack:"note,omitempty"`
}

// Report aggregates stage durations in milliseconds.
type Report struct {
	TotalMS float64       `json:"total_ms" msgpack:"total_ms"`
	Stages  []StageReport `json:"stages" msgpack:"stages"`
}

// Report returns the stages and their total.
func (t *Timer) Report() Report {
	if t == nil || len(t.stages) == 0 {
		return Report{}
	}
	report := Report{
		Stages: make([]StageReport, len(t.stages)),
	}
	var total time.Duration
	for i, s := range t.stages {
		total += s.Dur
		report.Stages[i] = StageReport{
			Name:       s.Name,
			DurationMS: durationToMillis(s.Dur),
			Note:       s.Note,
		}
	}
	report.TotalMS = durationToMillis(total)
	return report
}

// String renders the report as an aligned table.
func (r Report) String() string {
	var sb strings.Builder
	sb.WriteString("timings:\n")
	for _, s := range r.Stages {
		fmt.Fprintf(&sb, "  %-20s %7.2f ms", s.Name, s.DurationMS)
		if s.Note != "" {
			sb.WriteString("  // " + s.Note)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "  %-20s %7.2f ms\n", "total", r.TotalMS)
	return sb.String()
}

// Aggregate sums reports by stage name, keeping first-seen stage order.
// Safe for concurrent use.
type Aggregate struct {
	mu     sync.Mutex
	order  []string
	totals map[string]float64
	files  int
}

// NewAggregate creates an empty aggregate.
func NewAggregate() *Aggregate {
	return &Aggregate{totals: make(map[string]float64)}
}

// Add merges one file's report.
func (a *Aggregate) Add(r Report) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.files++
	for _, s := range r.Stages {
		if _, seen := a.totals[s.Name]; !seen {
			a.order = append(a.order, s.Name)
		}
		a.totals[s.Name] += s.DurationMS
	}
}

// Files returns how many reports were added.
func (a *Aggregate) Files() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.files
}

// Report returns the summed stages.
func (a *Aggregate) Report() Report {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := Report{Stages: make([]StageReport, 0, len(a.order))}
	for _, name := range a.order {
		ms := a.totals[name]
		out.Stages = append(out.Stages, StageReport{Name: name, DurationMS: ms})
		out.TotalMS += ms
	}
	return out
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
