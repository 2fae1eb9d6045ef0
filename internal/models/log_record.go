package models

import (
	"encoding/json"
	"math"
	"time"
)

// LogRecord is one raw entry of a device log buffer, owned by the collaborator
// that fetched it.
type LogRecord struct {
	Timestamp   DateTime    `json:"timestamp" yaml:"timestamp"`
	Datum       RawLogDatum `json:"logDatum" yaml:"datum"`
	StatusFlags StatusFlags `json:"statusFlags" yaml:"status_flags"`
}

// DecodedRecord is a log record after timestamp reconstruction and union projection.
type DecodedRecord struct {
	Timestamp time.Time   `json:"timestamp" msgpack:"timestamp"`
	Choice    DatumChoice `json:"choice" msgpack:"choice"`
	Value     any         `json:"value" msgpack:"value"`
	Status    StatusFlags `json:"status" msgpack:"status"`

	datum LogDatum
}

// NewDecodedRecord pairs a reconstructed timestamp with a resolved datum.
func NewDecodedRecord(ts time.Time, datum LogDatum, status StatusFlags) DecodedRecord {
	return DecodedRecord{
		Timestamp: ts,
		Choice:    datum.Choice(),
		Value:     datum.Value(),
		Status:    status,
		datum:     datum,
	}
}

// MarshalJSON writes non-finite real values as the strings "NaN", "+Inf" and
// "-Inf", which JSON numbers cannot express.
func (r DecodedRecord) MarshalJSON() ([]byte, error) {
	type plain DecodedRecord
	p := plain(r)
	p.Value = jsonValue(r.Value)
	return json.Marshal(p)
}

// Datum returns the typed payload.
func (r DecodedRecord) Datum() LogDatum {
	return r.datum
}

// ValuePoint is one (timestamp, value) pair of a decoded series.
type ValuePoint struct {
	Timestamp time.Time `json:"timestamp" msgpack:"timestamp"`
	Value     any       `json:"value" msgpack:"value"`
}

// MarshalJSON writes non-finite values the same way DecodedRecord does.
func (p ValuePoint) MarshalJSON() ([]byte, error) {
	type plain ValuePoint
	q := plain(p)
	q.Value = jsonValue(p.Value)
	return json.Marshal(q)
}

func jsonValue(v any) any {
	var f float64
	switch x := v.(type) {
	case float32:
		f = float64(x)
	case float64:
		f = x
	default:
		return v
	}
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	return v
}

// StatusPoint is one (timestamp, status flags) pair of a decoded series.
type StatusPoint struct {
	Timestamp time.Time   `json:"timestamp" msgpack:"timestamp"`
	Status    StatusFlags `json:"status" msgpack:"status"`
}
