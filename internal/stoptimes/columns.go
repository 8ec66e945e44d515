package stoptimes

import "strings"

// Columns maps the five required logical fields to physical column
// positions in the input file. Positions are zero-based.
type Columns struct {
	TripID        int
	StopID        int
	ArrivalTime   int
	DepartureTime int
	StopSequence  int
}

// minFieldCount returns how many fields a data row must carry for every
// mapped column to be addressable.
func (c Columns) minFieldCount() int {
	max := c.TripID
	for _, idx := range []int{c.StopID, c.ArrivalTime, c.DepartureTime, c.StopSequence} {
		if idx > max {
			max = idx
		}
	}
	return max + 1
}

// ResolveColumns parses the header line and locates the five required
// columns. Matching is exact and case-sensitive on the trimmed, unquoted
// token; column order is arbitrary and extra columns are ignored. There is
// no positional fallback: a missing column fails the run.
func ResolveColumns(header string) (Columns, error) {
	positions := map[string]int{}
	for i, token := range strings.Split(header, ",") {
		name := trimHeaderToken(token)
		if _, ok := positions[name]; !ok {
			positions[name] = i
		}
	}

	cols := Columns{}
	for _, name := range RequiredFields {
		idx, ok := positions[name]
		if !ok {
			return Columns{}, &MissingColumnError{Name: name}
		}
		switch name {
		case FieldTripID:
			cols.TripID = idx
		case FieldStopID:
			cols.StopID = idx
		case FieldArrivalTime:
			cols.ArrivalTime = idx
		case FieldDepartureTime:
			cols.DepartureTime = idx
		case FieldStopSequence:
			cols.StopSequence = idx
		}
	}
	return cols, nil
}

// trimHeaderToken strips surrounding whitespace, line terminators, and quote
// characters from a header cell.
func trimHeaderToken(token string) string {
	return strings.Trim(token, " \t\r\n\"'")
}
