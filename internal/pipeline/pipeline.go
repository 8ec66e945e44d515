// Package pipeline orchestrates the stop_times transcoding run.
//
// A run is two passes over the input: the first resolves the header and
// counts the rows that will survive validation, so the output array length
// can be declared before the first record; the second rewinds and streams
// rows through the CPU governor, the parser, and the encoder. Per-row
// validation failures are logged (bounded) and counted, never fatal; header,
// I/O, and encoding failures abort the run with the output path untouched.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gofrs/flock"

	"gtfscache/internal/encode"
	"gtfscache/internal/fileutil"
	"gtfscache/internal/governor"
	"gtfscache/internal/logging"
	"gtfscache/internal/progress"
	"gtfscache/internal/stoptimes"
)

// ErrNoHeader is returned when the input is empty or its header line cannot
// be read.
var ErrNoHeader = errors.New("pipeline: input has no header line")

const (
	// ctxCheckEvery bounds how often the counting pass polls for
	// cancellation.
	ctxCheckEvery = 4096
	// defaultMaxLoggedRowErrors caps per-row diagnostics; totals by reason
	// always appear in the result.
	defaultMaxLoggedRowErrors = 10

	// maxLineBytes caps a single row. A line over the cap is rejected like
	// any other invalid row, never fatal.
	maxLineBytes = 1 << 20
)

// Rejection reasons aggregated in Result.RejectedByReason.
const (
	ReasonFieldTooLong    = "field_too_long"
	ReasonInvalidSequence = "invalid_sequence"
	ReasonMissingFields   = "missing_fields"
	ReasonBadQuoting      = "bad_quoting"
)

// Options configures a Pipeline.
type Options struct {
	Logger *slog.Logger
	// Governor throttles the streaming pass; nil disables throttling.
	Governor *governor.Governor
	// ProgressSink receives throttled streaming-pass snapshots; nil runs
	// headless.
	ProgressSink     progress.Sink
	ProgressInterval time.Duration
	// CountProgress is invoked periodically during the counting pass with
	// the number of rows seen so far; nil disables it.
	CountProgress func(rows int64)
	// MaxLoggedRowErrors caps individual rejection log lines per run.
	MaxLoggedRowErrors int
}

// Result summarizes a completed run.
type Result struct {
	TotalRows        int64
	Accepted         int64
	Rejected         int64
	RejectedByReason map[string]int64
	OutputBytes      int64
	Elapsed          time.Duration
}

// Pipeline drives a transcoding run. Construct with New; a zero Pipeline is
// not usable.
type Pipeline struct {
	logger        *slog.Logger
	governor      *governor.Governor
	progressSink  progress.Sink
	progressEvery time.Duration
	countProgress func(int64)
	maxRowErrors  int
}

// New builds a pipeline from options, filling defaults for unset fields.
func New(opts Options) *Pipeline {
	p := &Pipeline{
		logger:        opts.Logger,
		governor:      opts.Governor,
		progressSink:  opts.ProgressSink,
		progressEvery: opts.ProgressInterval,
		countProgress: opts.CountProgress,
		maxRowErrors:  opts.MaxLoggedRowErrors,
	}
	if p.logger == nil {
		p.logger = logging.NewNop()
	}
	p.logger = p.logger.With("component", "pipeline")
	if p.maxRowErrors <= 0 {
		p.maxRowErrors = defaultMaxLoggedRowErrors
	}
	return p
}

// Run transcodes inputPath into outputPath. On any fatal error the output
// path is left untouched. Rejected rows are counted in the result and do not
// fail the run.
func (p *Pipeline) Run(ctx context.Context, inputPath, outputPath string) (*Result, error) {
	start := time.Now()

	in, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	p.logger.Debug("resolving header", "input", inputPath)
	reader := newLineReader(in)
	header, err := reader.next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoHeader
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := stoptimes.ResolveColumns(header)
	if err != nil {
		return nil, err
	}
	parser := stoptimes.NewParser(cols)

	p.logger.Debug("counting rows")
	totalRows, acceptedCount, err := p.countPass(ctx, reader, parser)
	if err != nil {
		return nil, err
	}
	p.logger.Info("counted input rows", "rows", totalRows, "valid", acceptedCount)

	if _, err := in.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind input: %w", err)
	}
	reader = newLineReader(in)
	if _, err := reader.next(); err != nil {
		return nil, ErrNoHeader
	}

	lock := flock.New(outputPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock output: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("output %s is being written by another run", outputPath)
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(lock.Path())
	}()

	var tracker *progress.Tracker
	if p.progressSink != nil {
		tracker = progress.NewTrackerWithOptions(progress.Options{
			Total:    totalRows,
			Interval: p.progressEvery,
			Sink:     p.progressSink,
		})
	}

	p.logger.Debug("streaming rows", "output", outputPath)
	result := &Result{
		TotalRows:        totalRows,
		RejectedByReason: map[string]int64{},
	}
	err = fileutil.WriteAtomic(outputPath, func(w io.Writer) error {
		return p.stream(ctx, reader, parser, w, acceptedCount, tracker, result)
	})
	if err != nil {
		return nil, err
	}
	if tracker != nil {
		p.progressSink(tracker.Final())
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return nil, fmt.Errorf("stat output: %w", err)
	}
	result.OutputBytes = info.Size()
	result.Elapsed = time.Since(start)

	p.logger.Info("run complete",
		"rows", result.TotalRows,
		"encoded", result.Accepted,
		"rejected", result.Rejected,
		"output_bytes", result.OutputBytes,
		"elapsed", result.Elapsed.Round(time.Millisecond))
	return result, nil
}

// countPass scans the remaining lines, counting all data rows and the subset
// that passes validation. The accepted count becomes the declared array
// length, so it must match what the streaming pass will encode. Over-limit
// lines count as rows but never as accepted.
func (p *Pipeline) countPass(ctx context.Context, reader *lineReader, parser *stoptimes.Parser) (totalRows, accepted int64, err error) {
	for {
		line, rerr := reader.next()
		if errors.Is(rerr, io.EOF) {
			break
		}
		totalRows++
		if rerr == nil {
			if _, perr := parser.Parse(line); perr == nil {
				accepted++
			}
		} else if !errors.Is(rerr, errLineTooLong) {
			return 0, 0, fmt.Errorf("count rows: %w", rerr)
		}
		if totalRows%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return 0, 0, err
			}
			if p.countProgress != nil {
				p.countProgress(totalRows)
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	if p.countProgress != nil {
		p.countProgress(totalRows)
	}
	return totalRows, accepted, nil
}

func (p *Pipeline) stream(ctx context.Context, reader *lineReader, parser *stoptimes.Parser, w io.Writer, acceptedCount int64, tracker *progress.Tracker, result *Result) error {
	enc := encode.NewEncoder(w)
	if err := enc.WriteEnvelope(acceptedCount); err != nil {
		return err
	}

	var seen int64
	var loggedErrors int
	for {
		line, rerr := reader.next()
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil && !errors.Is(rerr, errLineTooLong) {
			return fmt.Errorf("stream rows: %w", rerr)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		p.governor.Observe()
		seen++

		var rec stoptimes.Record
		perr := rerr
		if perr == nil {
			rec, perr = parser.Parse(line)
		}
		if perr != nil {
			result.Rejected++
			result.RejectedByReason[classifyRowError(perr)]++
			if loggedErrors < p.maxRowErrors {
				p.logger.Warn("row rejected", "row", seen, "error", perr)
				loggedErrors++
				if loggedErrors == p.maxRowErrors {
					p.logger.Warn("further row rejections will not be logged individually")
				}
			}
		} else {
			if err := enc.WriteRecord(rec); err != nil {
				return err
			}
			result.Accepted++
		}
		tracker.Report(seen)
	}
	// Fails if the input changed between passes.
	return enc.Close()
}

func classifyRowError(err error) string {
	var tooLong *stoptimes.FieldTooLongError
	var invalidSeq *stoptimes.InvalidSequenceError
	var missing *stoptimes.MissingFieldsError
	switch {
	case errors.As(err, &tooLong):
		return ReasonFieldTooLong
	case errors.As(err, &invalidSeq):
		return ReasonInvalidSequence
	case errors.As(err, &missing):
		return ReasonMissingFields
	case errors.Is(err, errLineTooLong):
		return ReasonFieldTooLong
	case errors.Is(err, stoptimes.ErrUnterminatedQuote), errors.Is(err, stoptimes.ErrBareQuote):
		return ReasonBadQuoting
	default:
		return "invalid_row"
	}
}
