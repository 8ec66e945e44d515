package stoptimes

import (
	"strconv"
	"strings"
)

// Parser converts raw data lines into validated Records using a resolved
// column mapping.
type Parser struct {
	cols     Columns
	required int
}

// NewParser builds a parser bound to the given column mapping.
func NewParser(cols Columns) *Parser {
	return &Parser{cols: cols, required: cols.minFieldCount()}
}

// Parse splits one raw line into fields and validates the five mapped
// columns. It returns a typed error for malformed quoting, short rows,
// over-length fields, and non-numeric or negative sequence values.
func (p *Parser) Parse(line string) (Record, error) {
	fields, err := splitFields(line)
	if err != nil {
		return Record{}, err
	}
	if len(fields) < p.required {
		return Record{}, &MissingFieldsError{Found: len(fields), Expected: p.required}
	}

	rec := Record{}
	if rec.TripID, err = boundedField(FieldTripID, fields[p.cols.TripID], MaxIDLength); err != nil {
		return Record{}, err
	}
	if rec.StopID, err = boundedField(FieldStopID, fields[p.cols.StopID], MaxIDLength); err != nil {
		return Record{}, err
	}
	if rec.ArrivalTime, err = boundedField(FieldArrivalTime, fields[p.cols.ArrivalTime], MaxTimeLength); err != nil {
		return Record{}, err
	}
	if rec.DepartureTime, err = boundedField(FieldDepartureTime, fields[p.cols.DepartureTime], MaxTimeLength); err != nil {
		return Record{}, err
	}

	seq := strings.TrimSpace(fields[p.cols.StopSequence])
	// ParseUint refuses signs and trailing garbage; 31 bits keeps the value
	// representable as a non-negative int32.
	value, err := strconv.ParseUint(seq, 10, 31)
	if err != nil {
		return Record{}, &InvalidSequenceError{Value: seq}
	}
	rec.StopSequence = int32(value)
	return rec, nil
}

func boundedField(name, value string, max int) (string, error) {
	if len(value) > max {
		return "", &FieldTooLongError{Field: name, Length: len(value), Max: max}
	}
	return value, nil
}

// splitFields extracts comma-separated fields from one line. A field whose
// first non-blank byte is a double quote is parsed RFC-4180 style: embedded
// commas are preserved and a doubled quote stands for one literal quote. Any
// other field is split at the next comma and stripped of surrounding
// whitespace and stray quote characters. A quoted field that never closes,
// or that is followed by anything other than blanks and a delimiter, fails
// the whole line.
func splitFields(line string) ([]string, error) {
	fields := make([]string, 0, 8)
	n := len(line)
	i := 0
	for {
		j := i
		for j < n && (line[j] == ' ' || line[j] == '\t') {
			j++
		}
		if j < n && line[j] == '"' {
			var b strings.Builder
			k := j + 1
			closed := false
			for k < n {
				c := line[k]
				if c == '"' {
					if k+1 < n && line[k+1] == '"' {
						b.WriteByte('"')
						k += 2
						continue
					}
					closed = true
					k++
					break
				}
				b.WriteByte(c)
				k++
			}
			if !closed {
				return nil, ErrUnterminatedQuote
			}
			for k < n && (line[k] == ' ' || line[k] == '\t' || line[k] == '\r') {
				k++
			}
			if k < n && line[k] != ',' {
				return nil, ErrBareQuote
			}
			fields = append(fields, b.String())
			if k >= n {
				return fields, nil
			}
			i = k + 1
			continue
		}

		rest := line[i:]
		comma := strings.IndexByte(rest, ',')
		if comma < 0 {
			fields = append(fields, trimBareField(rest))
			return fields, nil
		}
		fields = append(fields, trimBareField(rest[:comma]))
		i += comma + 1
	}
}

func trimBareField(s string) string {
	s = strings.Trim(s, " \t\r\n")
	return strings.Trim(s, "\"")
}
