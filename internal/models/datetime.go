package models

import "fmt"

// Unspecified is the BACnet octet value meaning "any" / "not specified".
const Unspecified = 0xFF

// BACnetDate is a date exactly as the device encodes it.
// Year is an offset from 1900; month and day are 1-based; DayOfWeek is 1 (Monday) to 7 (Sunday).
type BACnetDate struct {
	Year      uint8 `json:"year" yaml:"year" msgpack:"year"`
	Month     uint8 `json:"month" yaml:"month" msgpack:"month"`
	Day       uint8 `json:"day" yaml:"day" msgpack:"day"`
	DayOfWeek uint8 `json:"dayOfWeek" yaml:"day_of_week" msgpack:"dayOfWeek"`
}

// BACnetTime is a time of day exactly as the device encodes it.
// Fraction holds hundredths or milliseconds depending on the device resolution.
type BACnetTime struct {
	Hour     uint8  `json:"hour" yaml:"hour" msgpack:"hour"`
	Minute   uint8  `json:"minute" yaml:"minute" msgpack:"minute"`
	Second   uint8  `json:"second" yaml:"second" msgpack:"second"`
	Fraction uint16 `json:"fraction" yaml:"fraction" msgpack:"fraction"`
}

// DateTime is the split date/time pair carried by every log record.
type DateTime struct {
	Date BACnetDate `json:"date" yaml:"date" msgpack:"date"`
	Time BACnetTime `json:"time" yaml:"time" msgpack:"time"`
}

// String renders the raw fields for diagnostics, e.g. "(124,3,15,2) (14,30,5,50)".
func (dt DateTime) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d) (%d,%d,%d,%d)",
		dt.Date.Year, dt.Date.Month, dt.Date.Day, dt.Date.DayOfWeek,
		dt.Time.Hour, dt.Time.Minute, dt.Time.Second, dt.Time.Fraction)
}
