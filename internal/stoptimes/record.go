package stoptimes

// Field length ceilings. Input beyond these is rejected, never truncated.
const (
	MaxIDLength   = 63
	MaxTimeLength = 15
)

// Canonical field names, in output key order.
const (
	FieldTripID        = "trip_id"
	FieldStopID        = "stop_id"
	FieldArrivalTime   = "arrival_time"
	FieldDepartureTime = "departure_time"
	FieldStopSequence  = "stop_sequence"
)

// RequiredFields lists every header column a stop_times file must provide.
var RequiredFields = []string{
	FieldTripID,
	FieldStopID,
	FieldArrivalTime,
	FieldDepartureTime,
	FieldStopSequence,
}

// Record is one validated stop-time entry. Time fields keep the GTFS
// HH:MM:SS form and may exceed 24 hours for trips past midnight.
type Record struct {
	TripID        string
	StopID        string
	ArrivalTime   string
	DepartureTime string
	StopSequence  int32
}
