package clone

import "sync"

// Stage is a step of the clone state machine.
type Stage string

const (
	FetchingSchema   Stage = "FetchingSchema"
	CreatingSchema   Stage = "CreatingSchema"
	FetchingRowCount Stage = "FetchingRowCount"
	CopyingData      Stage = "CopyingData"
	Completed        Stage = "Completed"
	Canceled         Stage = "Canceled"
)

// Terminal reports whether no further progress follows s.
func (s Stage) Terminal() bool {
	return s == Completed || s == Canceled
}

// Progress is one report. Table is empty outside the per-table stages and
// Percent only moves forward within a table.
type Progress struct {
	Stage   Stage
	Table   string
	Percent int
}

// Tracker keeps the last reported progress for callers that poll instead
// of reading the channel.
type Tracker struct {
	mu   sync.RWMutex
	last Progress
}

// Progress returns the last report.
func (t *Tracker) Progress() Progress {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}

func (t *Tracker) set(p Progress) {
	t.mu.Lock()
	t.last = p
	t.mu.Unlock()
}

// reporter fans a report out to the optional sinks without blocking.
type reporter struct {
	ch      chan<- Progress
	tracker *Tracker
}

func (r reporter) report(p Progress) {
	if r.tracker != nil {
		r.tracker.set(p)
	}
	if r.ch == nil {
		return
	}
	select {
	case r.ch <- p:
	default:
	}
}

// percent returns copied/total as 0-100. An empty table is complete.
func percent(copied, total int64) int {
	if total <= 0 {
		return 100
	}
	p := int(copied * 100 / total)
	if p > 100 {
		return 100
	}
	return p
}
