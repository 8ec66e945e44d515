package progress_test

import (
	"testing"
	"time"

	"gtfscache/internal/progress"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestTracker(total int64, clock *fakeClock, sink progress.Sink) *progress.Tracker {
	return progress.NewTrackerWithOptions(progress.Options{
		Total:  total,
		Now:    func() time.Time { return clock.now },
		Memory: func() uint64 { return 64 << 20 },
		Sink:   sink,
	})
}

func TestReportThrottledToInterval(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	var emitted []progress.Snapshot
	tracker := newTestTracker(1000, clock, func(s progress.Snapshot) { emitted = append(emitted, s) })

	for i := int64(1); i <= 1500; i++ {
		clock.advance(time.Millisecond)
		tracker.Report(i)
	}
	// 1500 reports across 1.5s cross the one-second boundary exactly once.
	if len(emitted) != 1 {
		t.Fatalf("expected exactly one emission, got %d", len(emitted))
	}
}

func TestSnapshotMath(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	var last progress.Snapshot
	tracker := newTestTracker(1000, clock, func(s progress.Snapshot) { last = s })

	clock.advance(2 * time.Second)
	tracker.Report(250)

	if last.Processed != 250 || last.Total != 1000 {
		t.Fatalf("unexpected counters: %+v", last)
	}
	if last.Percent != 25 {
		t.Fatalf("percent: got %v want 25", last.Percent)
	}
	if last.RowsPerSecond != 125 {
		t.Fatalf("rows/s: got %v want 125", last.RowsPerSecond)
	}
	if !last.HasETA {
		t.Fatal("expected an ETA at nonzero rate")
	}
	if last.ETA != 6*time.Second {
		t.Fatalf("eta: got %v want 6s", last.ETA)
	}
	if last.MemoryBytes != 64<<20 {
		t.Fatalf("memory: got %d", last.MemoryBytes)
	}
}

func TestNoETAAtZeroRate(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	var last progress.Snapshot
	tracker := newTestTracker(1000, clock, func(s progress.Snapshot) { last = s })

	clock.advance(2 * time.Second)
	tracker.Report(0)
	if last.HasETA {
		t.Fatalf("expected no ETA at zero rate: %+v", last)
	}
}

func TestFinalIgnoresInterval(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	tracker := newTestTracker(10, clock, func(progress.Snapshot) {})

	clock.advance(100 * time.Millisecond)
	tracker.Report(10)
	final := tracker.Final()
	if final.Processed != 10 || final.Percent != 100 {
		t.Fatalf("unexpected final snapshot: %+v", final)
	}
}

func TestNilTrackerIsHeadless(t *testing.T) {
	var tracker *progress.Tracker
	tracker.Report(5) // must not panic
	if s := tracker.Final(); s.Processed != 0 {
		t.Fatalf("nil tracker final: %+v", s)
	}
}
