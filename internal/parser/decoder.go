package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/trendlog-viewer/backend/internal/models"
)

// OrderPolicy controls how the decoder treats timestamps that go backwards.
type OrderPolicy int

const (
	// OrderPassThrough keeps the device order untouched, including collisions
	// and clock jumps.
	OrderPassThrough OrderPolicy = iota
	// OrderReject fails the decode on the first timestamp earlier than its predecessor.
	OrderReject
)

func (p OrderPolicy) String() string {
	if p == OrderReject {
		return "reject"
	}
	return "passthrough"
}

// ParseOrderPolicy accepts "passthrough" or "reject".
func ParseOrderPolicy(s string) (OrderPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "passthrough", "pass-through":
		return OrderPassThrough, nil
	case "reject":
		return OrderReject, nil
	}
	return OrderPassThrough, fmt.Errorf("unknown order policy: %q", s)
}

// DecoderConfig holds the device conventions a Decoder applies.
type DecoderConfig struct {
	Resolution      FractionResolution
	Order           OrderPolicy
	StrictDayOfWeek bool
	Location        *time.Location
}

// DefaultDecoderConfig returns hundredths resolution, pass-through ordering and UTC.
func DefaultDecoderConfig() DecoderConfig {
	return DecoderConfig{
		Resolution: Hundredths,
		Order:      OrderPassThrough,
		Location:   time.UTC,
	}
}

// DecoderOption adjusts a DecoderConfig.
type DecoderOption func(*DecoderConfig)

func WithFractionResolution(r FractionResolution) DecoderOption {
	return func(c *DecoderConfig) { c.Resolution = r }
}

func WithOrderPolicy(p OrderPolicy) DecoderOption {
	return func(c *DecoderConfig) { c.Order = p }
}

func WithStrictDayOfWeek(strict bool) DecoderOption {
	return func(c *DecoderConfig) { c.StrictDayOfWeek = strict }
}

// WithLocation sets the zone device local times are interpreted in.
func WithLocation(loc *time.Location) DecoderOption {
	return func(c *DecoderConfig) {
		if loc != nil {
			c.Location = loc
		}
	}
}

// Decoder converts a raw trend log buffer into a DecodedSeries.
// It holds only its configuration and is safe for concurrent use.
type Decoder struct {
	cfg DecoderConfig
}

// NewDecoder creates a Decoder with the default configuration plus opts.
func NewDecoder(opts ...DecoderOption) *Decoder {
	cfg := DefaultDecoderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Decoder{cfg: cfg}
}

// Config returns the decoder configuration.
func (d *Decoder) Config() DecoderConfig {
	return d.cfg
}

// Decode converts records in input order. The first invalid record aborts the
// whole decode and no partial series is returned. An empty buffer yields an
// empty series.
func (d *Decoder) Decode(records []models.LogRecord) (*models.DecodedSeries, error) {
	out := make([]models.DecodedRecord, 0, len(records))
	for i, rec := range records {
		decoded, err := d.DecodeRecord(i, rec)
		if err != nil {
			return nil, err
		}
		if d.cfg.Order == OrderReject && i > 0 {
			prev := out[i-1].Timestamp
			if decoded.Timestamp.Before(prev) {
				return nil, &OutOfOrderError{Index: i, Previous: prev, Current: decoded.Timestamp}
			}
		}
		out = append(out, decoded)
	}
	return models.NewDecodedSeries(out), nil
}

// DecodeTimestamp reconstructs a single device date/time with the decoder's
// resolution, location and day-of-week policy. Errors carry index -1.
func (d *Decoder) DecodeTimestamp(dt models.DateTime) (time.Time, error) {
	ts, field, err := reconstructTimestamp(dt, d.cfg.Resolution, d.cfg.Location, d.cfg.StrictDayOfWeek)
	if err != nil {
		return time.Time{}, &TimestampDecodeError{Index: -1, Field: field, Raw: dt, Err: err}
	}
	return ts, nil
}

// DecodeRecord decodes a single record; index only labels errors.
func (d *Decoder) DecodeRecord(index int, rec models.LogRecord) (models.DecodedRecord, error) {
	ts, field, err := reconstructTimestamp(rec.Timestamp, d.cfg.Resolution, d.cfg.Location, d.cfg.StrictDayOfWeek)
	if err != nil {
		return models.DecodedRecord{}, &TimestampDecodeError{
			Index: index,
			Field: field,
			Raw:   rec.Timestamp,
			Err:   err,
		}
	}

	datum, ok := rec.Datum.Datum()
	if !ok {
		return models.DecodedRecord{}, &MalformedRecordError{
			Index:     index,
			Timestamp: rec.Timestamp,
			Populated: rec.Datum.Populated(),
		}
	}

	return models.NewDecodedRecord(ts, datum, rec.StatusFlags), nil
}
