// Package progress derives throughput and ETA figures for periodic
// reporting. The tracker is purely observational: it never touches pipeline
// control flow, and a nil tracker is a valid headless mode.
package progress

import (
	"time"

	"golang.org/x/sys/unix"
)

// DefaultInterval bounds how often the sink is invoked.
const DefaultInterval = time.Second

// Snapshot is one progress observation handed to the sink.
type Snapshot struct {
	Processed     int64
	Total         int64
	Percent       float64
	RowsPerSecond float64
	// ETA is only meaningful when HasETA is true; at zero measured rate no
	// estimate is produced.
	ETA         time.Duration
	HasETA      bool
	Elapsed     time.Duration
	MemoryBytes uint64
}

// Sink receives throttled snapshots, typically a terminal renderer.
type Sink func(Snapshot)

// Options configures a Tracker. The clock and memory hooks are injectable
// for tests.
type Options struct {
	Total    int64
	Interval time.Duration
	Now      func() time.Time
	Memory   func() uint64
	Sink     Sink
}

// Tracker throttles per-row progress reports to at most one sink call per
// interval.
type Tracker struct {
	total    int64
	interval time.Duration
	now      func() time.Time
	memory   func() uint64
	sink     Sink

	start     time.Time
	lastEmit  time.Time
	processed int64
}

// NewTracker builds a tracker reporting against the given row total.
func NewTracker(total int64, sink Sink) *Tracker {
	return NewTrackerWithOptions(Options{Total: total, Sink: sink})
}

// NewTrackerWithOptions builds a tracker, filling defaults for unset hooks.
func NewTrackerWithOptions(opts Options) *Tracker {
	t := &Tracker{
		total:    opts.Total,
		interval: opts.Interval,
		now:      opts.Now,
		memory:   opts.Memory,
		sink:     opts.Sink,
	}
	if t.interval <= 0 {
		t.interval = DefaultInterval
	}
	if t.now == nil {
		t.now = time.Now
	}
	if t.memory == nil {
		t.memory = PeakRSS
	}
	t.start = t.now()
	t.lastEmit = t.start
	return t
}

// Report records that processed rows have been handled and emits a snapshot
// when the reporting interval has elapsed. Nil-safe.
func (t *Tracker) Report(processed int64) {
	if t == nil || t.sink == nil {
		return
	}
	t.processed = processed
	now := t.now()
	if now.Sub(t.lastEmit) < t.interval {
		return
	}
	t.lastEmit = now
	t.sink(t.snapshot(now))
}

// Final returns a snapshot regardless of the reporting interval, for the
// end-of-run summary. Nil-safe; returns the zero Snapshot on a nil tracker.
func (t *Tracker) Final() Snapshot {
	if t == nil {
		return Snapshot{}
	}
	return t.snapshot(t.now())
}

func (t *Tracker) snapshot(now time.Time) Snapshot {
	s := Snapshot{
		Processed:   t.processed,
		Total:       t.total,
		Elapsed:     now.Sub(t.start),
		MemoryBytes: t.memory(),
	}
	if t.total > 0 {
		s.Percent = float64(t.processed) / float64(t.total) * 100
	}
	if s.Elapsed > 0 {
		s.RowsPerSecond = float64(t.processed) / s.Elapsed.Seconds()
	}
	if s.RowsPerSecond > 0 && t.total >= t.processed {
		remaining := float64(t.total - t.processed)
		s.ETA = time.Duration(remaining / s.RowsPerSecond * float64(time.Second))
		s.HasETA = true
	}
	return s
}

// PeakRSS reports the peak resident set size of the process.
func PeakRSS() uint64 {
	var usage unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &usage); err != nil {
		return 0
	}
	// ru_maxrss is in KiB on Linux.
	return uint64(usage.Maxrss) * 1024
}
