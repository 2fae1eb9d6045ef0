package parser

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/trendlog-viewer/backend/internal/models"
)

// Sentinels matched by the typed decode errors through errors.Is.
var (
	ErrTimestampDecode = errors.New("timestamp decode error")
	ErrMalformedRecord = errors.New("malformed log record")
	ErrOutOfOrder      = errors.New("log record out of order")

	// ErrUnspecifiedField marks a date/time field holding the 0xFF "unspecified" octet.
	ErrUnspecifiedField = errors.New("unspecified field")
	// ErrFieldOutOfRange marks a date/time field outside its calendar range.
	ErrFieldOutOfRange = errors.New("field out of range")
)

// TimestampDecodeError reports a record whose date/time could not be
// reconstructed into an absolute timestamp.
type TimestampDecodeError struct {
	Index int
	Field string
	Raw   models.DateTime
	Err   error
}

func (e *TimestampDecodeError) Error() string {
	return fmt.Sprintf("record %d %s: %v: %s: %v", e.Index, e.Raw, ErrTimestampDecode, e.Field, e.Err)
}

func (e *TimestampDecodeError) Unwrap() error { return e.Err }

func (e *TimestampDecodeError) Is(target error) bool { return target == ErrTimestampDecode }

// MalformedRecordError reports a record whose datum union has zero or several
// populated variants.
type MalformedRecordError struct {
	Index     int
	Timestamp models.DateTime
	Populated []models.DatumChoice
}

func (e *MalformedRecordError) Error() string {
	if len(e.Populated) == 0 {
		return fmt.Sprintf("record %d %s: %v: no datum variant populated", e.Index, e.Timestamp, ErrMalformedRecord)
	}
	names := make([]string, len(e.Populated))
	for i, c := range e.Populated {
		names[i] = string(c)
	}
	return fmt.Sprintf("record %d %s: %v: %d datum variants populated (%s)",
		e.Index, e.Timestamp, ErrMalformedRecord, len(e.Populated), strings.Join(names, ", "))
}

func (e *MalformedRecordError) Is(target error) bool { return target == ErrMalformedRecord }

// OutOfOrderError reports a timestamp earlier than its predecessor when the
// decoder runs with OrderReject.
type OutOfOrderError struct {
	Index    int
	Previous time.Time
	Current  time.Time
}

func (e *OutOfOrderError) Error() string {
	return fmt.Sprintf("record %d: %v: %s precedes %s",
		e.Index, ErrOutOfOrder, e.Current.Format(time.RFC3339Nano), e.Previous.Format(time.RFC3339Nano))
}

func (e *OutOfOrderError) Is(target error) bool { return target == ErrOutOfOrder }
