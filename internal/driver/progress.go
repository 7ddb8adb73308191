package driver

// Status is where a file is in a run.
type Status uint8

const (
	StatusQueued Status = iota
	StatusWorking
	StatusDone
	StatusCached
	StatusUnchanged
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusWorking:
		return "working"
	case StatusDone:
		return "done"
	case StatusCached:
		return "cached"
	case StatusUnchanged:
		return "unchanged"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further events follow for the file.
func (s Status) Terminal() bool {
	return s >= StatusDone
}

// Event reports a status change of one file.
type Event struct {
	Index  int
	Total  int
	File   string
	Status Status
	// Errors counts Error diagnostics for a finished file.
	Errors int
	Err    error
}

// ProgressSink receives events. OnEvent is called from worker goroutines and
// must be safe for concurrent use.
type ProgressSink interface {
	OnEvent(Event)
}

// ProgressFunc adapts a function to ProgressSink.
type ProgressFunc func(Event)

func (f ProgressFunc) OnEvent(ev Event) { f(ev) }

// ChannelSink forwards events to a channel; the UI reads from it.
type ChannelSink struct {
	ch chan<- Event
}

// NewChannelSink returns a sink writing to ch. Sends block, so ch should be
// drained for the whole run.
func NewChannelSink(ch chan<- Event) *ChannelSink {
	return &ChannelSink{ch: ch}
}

func (s *ChannelSink) OnEvent(ev Event) {
	s.ch <- ev
}

type nopSink struct{}

func (nopSink) OnEvent(Event) {}
