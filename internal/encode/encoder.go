// Package encode writes the precache MessagePack envelope consumed by the
// schedule explorer backend.
//
// The output is a single top-level map with one key, "stop_times", holding an
// array of per-record maps. The array length is declared before the first
// record, so callers must know the final record count up front; Close
// verifies the declared and written counts agree and fails the run on any
// mismatch rather than leaving a structurally broken file.
package encode

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"gtfscache/internal/stoptimes"
)

// EnvelopeKey is the sole top-level map key in the output.
const EnvelopeKey = "stop_times"

// Encoder streams records into a MessagePack envelope on w.
type Encoder struct {
	enc      *msgpack.Encoder
	declared int64
	written  int64
	open     bool
}

// NewEncoder wraps w. WriteEnvelope must be called before the first record.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{enc: msgpack.NewEncoder(w)}
}

// WriteEnvelope emits the top-level map and the array header declaring the
// exact number of records that will follow.
func (e *Encoder) WriteEnvelope(count int64) error {
	if e.open {
		return fmt.Errorf("encode: envelope already written")
	}
	if count < 0 {
		return fmt.Errorf("encode: negative record count %d", count)
	}
	if err := e.enc.EncodeMapLen(1); err != nil {
		return fmt.Errorf("encode envelope map: %w", err)
	}
	if err := e.enc.EncodeString(EnvelopeKey); err != nil {
		return fmt.Errorf("encode envelope key: %w", err)
	}
	if err := e.enc.EncodeArrayLen(int(count)); err != nil {
		return fmt.Errorf("encode array header: %w", err)
	}
	e.declared = count
	e.open = true
	return nil
}

// WriteRecord appends one record as a fixed five-entry map with stable key
// order. String lengths come from the actual field content; stop_sequence is
// written as a fixed-width 32-bit signed integer.
func (e *Encoder) WriteRecord(rec stoptimes.Record) error {
	if !e.open {
		return fmt.Errorf("encode: record before envelope")
	}
	if e.written >= e.declared {
		return fmt.Errorf("encode: more than the declared %d records", e.declared)
	}
	if err := e.enc.EncodeMapLen(5); err != nil {
		return fmt.Errorf("encode record map: %w", err)
	}
	pairs := []struct {
		key   string
		value string
	}{
		{stoptimes.FieldTripID, rec.TripID},
		{stoptimes.FieldStopID, rec.StopID},
		{stoptimes.FieldArrivalTime, rec.ArrivalTime},
		{stoptimes.FieldDepartureTime, rec.DepartureTime},
	}
	for _, p := range pairs {
		if err := e.enc.EncodeString(p.key); err != nil {
			return fmt.Errorf("encode key %s: %w", p.key, err)
		}
		if err := e.enc.EncodeString(p.value); err != nil {
			return fmt.Errorf("encode %s: %w", p.key, err)
		}
	}
	if err := e.enc.EncodeString(stoptimes.FieldStopSequence); err != nil {
		return fmt.Errorf("encode key %s: %w", stoptimes.FieldStopSequence, err)
	}
	if err := e.enc.EncodeInt32(rec.StopSequence); err != nil {
		return fmt.Errorf("encode %s: %w", stoptimes.FieldStopSequence, err)
	}
	e.written++
	return nil
}

// Written reports how many records have been encoded so far.
func (e *Encoder) Written() int64 {
	return e.written
}

// Close verifies the declared array length was honored exactly.
func (e *Encoder) Close() error {
	if !e.open {
		return fmt.Errorf("encode: envelope never written")
	}
	if e.written != e.declared {
		return fmt.Errorf("encode: declared %d records, wrote %d", e.declared, e.written)
	}
	return nil
}
