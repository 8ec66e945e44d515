package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"gtfscache/internal/pipeline"
	"gtfscache/internal/stoptimes"
	"gtfscache/internal/testsupport"
)

type decodedRecord struct {
	TripID        string `msgpack:"trip_id"`
	StopID        string `msgpack:"stop_id"`
	ArrivalTime   string `msgpack:"arrival_time"`
	DepartureTime string `msgpack:"departure_time"`
	StopSequence  int32  `msgpack:"stop_sequence"`
}

type decodedEnvelope struct {
	StopTimes []decodedRecord `msgpack:"stop_times"`
}

func decodeOutput(t *testing.T, path string) decodedEnvelope {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var out decodedEnvelope
	if err := msgpack.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	return out
}

func TestRunHappyPath(t *testing.T) {
	input := testsupport.WriteInput(t, testsupport.CanonicalHeader,
		"T1,S1,08:00:00,08:01:00,1",
		"T1,S2,08:05:00,08:06:00,2",
		"T2,S1,09:00:00,09:00:30,1",
	)
	output := testsupport.OutputPath(t)

	result, err := pipeline.New(pipeline.Options{}).Run(context.Background(), input, output)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.TotalRows != 3 || result.Accepted != 3 || result.Rejected != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.OutputBytes <= 0 {
		t.Fatal("expected output size in result")
	}

	out := decodeOutput(t, output)
	if len(out.StopTimes) != 3 {
		t.Fatalf("decoded %d records, want 3", len(out.StopTimes))
	}
	first := out.StopTimes[0]
	if first.TripID != "T1" || first.StopID != "S1" || first.StopSequence != 1 {
		t.Fatalf("unexpected first record: %+v", first)
	}
	// Records appear in input order.
	if out.StopTimes[2].TripID != "T2" {
		t.Fatalf("unexpected order: %+v", out.StopTimes)
	}
}

func TestRunNonCanonicalHeaderOrder(t *testing.T) {
	input := testsupport.WriteInput(t, "trip_id,arrival_time,departure_time,stop_id,stop_sequence",
		"T1,08:00:00,08:01:00,S1,3",
	)
	output := testsupport.OutputPath(t)

	result, err := pipeline.New(pipeline.Options{}).Run(context.Background(), input, output)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Accepted != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	out := decodeOutput(t, output)
	if len(out.StopTimes) != 1 {
		t.Fatalf("decoded %d records, want 1", len(out.StopTimes))
	}
	want := decodedRecord{TripID: "T1", StopID: "S1", ArrivalTime: "08:00:00", DepartureTime: "08:01:00", StopSequence: 3}
	if out.StopTimes[0] != want {
		t.Fatalf("got %+v want %+v", out.StopTimes[0], want)
	}
}

func TestRunQuotedFieldWithComma(t *testing.T) {
	input := testsupport.WriteInput(t, testsupport.CanonicalHeader,
		`"T,1",S1,08:00:00,08:01:00,3`,
	)
	output := testsupport.OutputPath(t)

	if _, err := pipeline.New(pipeline.Options{}).Run(context.Background(), input, output); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	out := decodeOutput(t, output)
	if out.StopTimes[0].TripID != "T,1" {
		t.Fatalf("trip_id: got %q want %q", out.StopTimes[0].TripID, "T,1")
	}
}

func TestRunSkipsRejectedRows(t *testing.T) {
	long := strings.Repeat("x", stoptimes.MaxIDLength+1)
	input := testsupport.WriteInput(t, testsupport.CanonicalHeader,
		"T1,S1,08:00:00,08:01:00,1",
		long+",S1,08:00:00,08:01:00,2",
		"T1,S2,08:05:00,08:06:00,notanumber",
		"T1,S3,08:07:00,08:08:00,-4",
		`"T1,S4,08:09:00,08:10:00,5`,
		"T1,S5,08:11:00,08:12:00,6",
	)
	output := testsupport.OutputPath(t)

	result, err := pipeline.New(pipeline.Options{}).Run(context.Background(), input, output)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.TotalRows != 6 || result.Accepted != 2 || result.Rejected != 4 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.RejectedByReason[pipeline.ReasonFieldTooLong] != 1 {
		t.Fatalf("field_too_long count: %+v", result.RejectedByReason)
	}
	if result.RejectedByReason[pipeline.ReasonInvalidSequence] != 2 {
		t.Fatalf("invalid_sequence count: %+v", result.RejectedByReason)
	}
	if result.RejectedByReason[pipeline.ReasonBadQuoting] != 1 {
		t.Fatalf("bad_quoting count: %+v", result.RejectedByReason)
	}

	out := decodeOutput(t, output)
	if len(out.StopTimes) != 2 {
		t.Fatalf("decoded %d records, want 2", len(out.StopTimes))
	}
	if out.StopTimes[0].StopID != "S1" || out.StopTimes[1].StopID != "S5" {
		t.Fatalf("unexpected surviving records: %+v", out.StopTimes)
	}
}

func TestRunSkipsOverlongLine(t *testing.T) {
	long := "T9,S9,08:00:00,08:01:00," + strings.Repeat("9", 2<<20)
	input := testsupport.WriteInput(t, testsupport.CanonicalHeader,
		"T1,S1,08:00:00,08:01:00,1",
		long,
		"T2,S2,09:00:00,09:01:00,2",
	)
	output := testsupport.OutputPath(t)

	result, err := pipeline.New(pipeline.Options{}).Run(context.Background(), input, output)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.TotalRows != 3 || result.Accepted != 2 || result.Rejected != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.RejectedByReason[pipeline.ReasonFieldTooLong] != 1 {
		t.Fatalf("field_too_long count: %+v", result.RejectedByReason)
	}

	out := decodeOutput(t, output)
	if len(out.StopTimes) != 2 {
		t.Fatalf("decoded %d records, want 2", len(out.StopTimes))
	}
	if out.StopTimes[0].TripID != "T1" || out.StopTimes[1].TripID != "T2" {
		t.Fatalf("unexpected surviving records: %+v", out.StopTimes)
	}
}

func TestRunRemovesLockFile(t *testing.T) {
	input := testsupport.WriteInput(t, testsupport.CanonicalHeader,
		"T1,S1,08:00:00,08:01:00,1",
	)
	output := testsupport.OutputPath(t)

	if _, err := pipeline.New(pipeline.Options{}).Run(context.Background(), input, output); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if _, err := os.Stat(output + ".lock"); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("lock file should be removed after the run")
	}
}

func TestRunMissingColumnWritesNothing(t *testing.T) {
	input := testsupport.WriteInput(t, "trip_id,stop_id,arrival_time,departure_time",
		"T1,S1,08:00:00,08:01:00",
	)
	output := testsupport.OutputPath(t)

	_, err := pipeline.New(pipeline.Options{}).Run(context.Background(), input, output)
	var missing *stoptimes.MissingColumnError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingColumnError, got %v", err)
	}
	if _, err := os.Stat(output); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("output path should be untouched after header failure")
	}
}

func TestRunEmptyInputFails(t *testing.T) {
	input := testsupport.WriteInput(t, "")
	output := testsupport.OutputPath(t)

	// A single blank line is no usable header.
	_, err := pipeline.New(pipeline.Options{}).Run(context.Background(), input, output)
	if err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestRunHeaderOnlyProducesEmptyArray(t *testing.T) {
	input := testsupport.WriteInput(t, testsupport.CanonicalHeader)
	output := testsupport.OutputPath(t)

	result, err := pipeline.New(pipeline.Options{}).Run(context.Background(), input, output)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.TotalRows != 0 || result.Accepted != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	out := decodeOutput(t, output)
	if len(out.StopTimes) != 0 {
		t.Fatalf("expected empty array, got %d records", len(out.StopTimes))
	}
}

func TestRunCancelledContext(t *testing.T) {
	rows := make([]string, 0, 10000)
	for i := 0; i < 10000; i++ {
		rows = append(rows, fmt.Sprintf("T%d,S%d,08:00:00,08:01:00,%d", i, i, i))
	}
	input := testsupport.WriteInput(t, testsupport.CanonicalHeader, rows...)
	output := testsupport.OutputPath(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pipeline.New(pipeline.Options{}).Run(ctx, input, output)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := os.Stat(output); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("output path should be untouched after cancellation")
	}
}

func TestRunCountProgressCallback(t *testing.T) {
	rows := make([]string, 0, 5000)
	for i := 0; i < 5000; i++ {
		rows = append(rows, fmt.Sprintf("T%d,S%d,08:00:00,08:01:00,%d", i, i, i))
	}
	input := testsupport.WriteInput(t, testsupport.CanonicalHeader, rows...)
	output := testsupport.OutputPath(t)

	var last int64
	p := pipeline.New(pipeline.Options{CountProgress: func(rows int64) { last = rows }})
	if _, err := p.Run(context.Background(), input, output); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if last != 5000 {
		t.Fatalf("final count progress: got %d want 5000", last)
	}
}

func TestRunMissingInput(t *testing.T) {
	_, err := pipeline.New(pipeline.Options{}).Run(context.Background(), "/nonexistent/stop_times.txt", testsupport.OutputPath(t))
	if err == nil {
		t.Fatal("expected error for missing input")
	}
}
