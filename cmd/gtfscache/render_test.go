package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"gtfscache/internal/pipeline"
	"gtfscache/internal/progress"
)

func TestFormatSnapshot(t *testing.T) {
	line := formatSnapshot(progress.Snapshot{
		Processed:     2500,
		Total:         10000,
		Percent:       25,
		RowsPerSecond: 1250,
		ETA:           6 * time.Second,
		HasETA:        true,
		MemoryBytes:   32 << 20,
	})
	if !strings.Contains(line, "25.0%") {
		t.Fatalf("missing percent: %q", line)
	}
	if !strings.Contains(line, "2,500/10,000") {
		t.Fatalf("missing counts: %q", line)
	}
	if !strings.Contains(line, "1,250 rows/s") {
		t.Fatalf("missing rate: %q", line)
	}
	if !strings.Contains(line, "ETA: 6s") {
		t.Fatalf("missing eta: %q", line)
	}
}

func TestFormatSnapshotOmitsETAAtZeroRate(t *testing.T) {
	line := formatSnapshot(progress.Snapshot{Total: 100})
	if strings.Contains(line, "ETA") {
		t.Fatalf("eta should be omitted: %q", line)
	}
}

func TestCountSpinnerClearsExactlyOnce(t *testing.T) {
	var buf bytes.Buffer
	s := newCountSpinnerWriter(&buf)
	s.set(1234)
	if buf.Len() == 0 {
		t.Fatal("expected spinner output after set")
	}

	before := buf.Len()
	s.clear()
	after := buf.Len()
	if after == before {
		t.Fatal("clear wrote nothing")
	}
	s.clear()
	if buf.Len() != after {
		t.Fatal("second clear wrote additional output")
	}
}

func TestNilCountSpinnerIsSafe(t *testing.T) {
	var s *countSpinner
	s.set(1)
	s.clear()
}

func TestRenderSummaryIncludesRejectionReasons(t *testing.T) {
	out := renderSummary(&pipeline.Result{
		TotalRows: 10,
		Accepted:  8,
		Rejected:  2,
		RejectedByReason: map[string]int64{
			pipeline.ReasonInvalidSequence: 1,
			pipeline.ReasonFieldTooLong:    1,
		},
		OutputBytes: 512,
		Elapsed:     1500 * time.Millisecond,
	})
	for _, want := range []string{"Rows read", "Records encoded", "field_too_long", "invalid_sequence", "Elapsed"} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q:\n%s", want, out)
		}
	}
}
