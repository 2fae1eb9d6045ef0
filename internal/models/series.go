package models

import "time"

// DecodedSeries is the time-indexed result of decoding a log buffer.
// Index, choice, value and status are aligned by position. A series is never
// modified after construction; every accessor returns a fresh slice.
type DecodedSeries struct {
	records []DecodedRecord
}

// NewDecodedSeries takes ownership of records.
func NewDecodedSeries(records []DecodedRecord) *DecodedSeries {
	if records == nil {
		records = make([]DecodedRecord, 0)
	}
	return &DecodedSeries{records: records}
}

// Len returns the number of records.
func (s *DecodedSeries) Len() int {
	return len(s.records)
}

// Index returns the timestamps in device order.
func (s *DecodedSeries) Index() []time.Time {
	out := make([]time.Time, len(s.records))
	for i, r := range s.records {
		out[i] = r.Timestamp
	}
	return out
}

// Choices returns the union tag of every record.
func (s *DecodedSeries) Choices() []DatumChoice {
	out := make([]DatumChoice, len(s.records))
	for i, r := range s.records {
		out[i] = r.Choice
	}
	return out
}

// Values returns the (timestamp, value) projection.
func (s *DecodedSeries) Values() []ValuePoint {
	out := make([]ValuePoint, len(s.records))
	for i, r := range s.records {
		out[i] = ValuePoint{Timestamp: r.Timestamp, Value: r.datum.Value()}
	}
	return out
}

// Status returns the (timestamp, status flags) projection.
func (s *DecodedSeries) Status() []StatusPoint {
	out := make([]StatusPoint, len(s.records))
	for i, r := range s.records {
		out[i] = StatusPoint{Timestamp: r.Timestamp, Status: r.Status}
	}
	return out
}

// Raw returns the full structured records.
func (s *DecodedSeries) Raw() []DecodedRecord {
	out := make([]DecodedRecord, len(s.records))
	for i, r := range s.records {
		out[i] = NewDecodedRecord(r.Timestamp, r.datum, r.Status)
	}
	return out
}

// At returns the record at position i.
func (s *DecodedSeries) At(i int) DecodedRecord {
	r := s.records[i]
	return NewDecodedRecord(r.Timestamp, r.datum, r.Status)
}

// TimeRange spans the first and last records by position, nil when empty.
// Device buffers are not re-sorted, so Start may be after End.
func (s *DecodedSeries) TimeRange() *TimeRange {
	if len(s.records) == 0 {
		return nil
	}
	return &TimeRange{
		Start: s.records[0].Timestamp,
		End:   s.records[len(s.records)-1].Timestamp,
	}
}

// Float64 projects record i onto a float for numeric consumers.
// Booleans map to 0/1. Choices without a numeric reading report false.
func (s *DecodedSeries) Float64(i int) (float64, bool) {
	return DatumFloat64(s.records[i].datum)
}

// DatumFloat64 is the numeric projection of a single datum.
func DatumFloat64(d LogDatum) (float64, bool) {
	switch v := d.(type) {
	case RealDatum:
		return float64(v), true
	case TimeChangeDatum:
		return float64(v), true
	case UnsignedDatum:
		return float64(v), true
	case SignedDatum:
		return float64(v), true
	case EnumeratedDatum:
		return float64(v), true
	case BooleanDatum:
		if v {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// TimeRange represents a time window.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
