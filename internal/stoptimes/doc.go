// Package stoptimes decodes GTFS stop_times rows into validated records.
//
// It resolves the five required header columns (trip_id, stop_id,
// arrival_time, departure_time, stop_sequence) to physical positions, splits
// raw data lines with quote-aware field extraction, and enforces field length
// ceilings and strict sequence parsing. Rows that fail validation produce
// typed errors so the pipeline can skip them, count them by reason, and keep
// going.
//
// The package never truncates over-length input; a field beyond its ceiling
// rejects the whole row.
package stoptimes
