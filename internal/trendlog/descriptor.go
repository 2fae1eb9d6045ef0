package trendlog

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/trendlog-viewer/backend/internal/models"
)

// DescriptorProperties are read in one request when a descriptor is created.
var DescriptorProperties = []models.PropertyIdentifier{
	models.PropObjectName,
	models.PropDescription,
	models.PropRecordCount,
	models.PropBufferSize,
	models.PropTotalRecordCount,
	models.PropLogDeviceObjectProperty,
	models.PropStatusFlags,
}

// ErrMetadataRead is matched by every MetadataReadError.
var ErrMetadataRead = errors.New("metadata read error")

// MetadataReadError reports a failed or incomplete descriptor read.
// Property is empty when the read itself failed.
type MetadataReadError struct {
	ObjectID models.ObjectIdentifier
	Property models.PropertyIdentifier
	Err      error
}

func (e *MetadataReadError) Error() string {
	if e.Property == "" {
		return fmt.Sprintf("%s: %v: %v", e.ObjectID, ErrMetadataRead, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s: %v", e.ObjectID, ErrMetadataRead, e.Property, e.Err)
}

func (e *MetadataReadError) Unwrap() error { return e.Err }

func (e *MetadataReadError) Is(target error) bool { return target == ErrMetadataRead }

// LogDescriptor is the static metadata of one trend log. It is populated once
// at construction and never changes afterwards.
type LogDescriptor struct {
	props models.TrendLogProperties
}

// NewLogDescriptor reads the descriptor properties of id with a single request.
// Either every property is present and well formed, or a *MetadataReadError is
// returned and no descriptor exists. There are no retries at this level.
func NewLogDescriptor(ctx context.Context, id models.ObjectIdentifier, reader MetadataReader) (*LogDescriptor, error) {
	values, err := reader.ReadProperties(ctx, id, DescriptorProperties)
	if err != nil {
		return nil, &MetadataReadError{ObjectID: id, Err: err}
	}

	props := models.TrendLogProperties{ObjectID: id}
	fail := func(p models.PropertyIdentifier, err error) (*LogDescriptor, error) {
		return nil, &MetadataReadError{ObjectID: id, Property: p, Err: err}
	}

	if props.ObjectName, err = stringProperty(values, models.PropObjectName); err != nil {
		return fail(models.PropObjectName, err)
	}
	if props.Description, err = stringProperty(values, models.PropDescription); err != nil {
		return fail(models.PropDescription, err)
	}
	if props.RecordCount, err = countProperty(values, models.PropRecordCount); err != nil {
		return fail(models.PropRecordCount, err)
	}
	if props.BufferSize, err = countProperty(values, models.PropBufferSize); err != nil {
		return fail(models.PropBufferSize, err)
	}
	if props.TotalRecordCount, err = countProperty(values, models.PropTotalRecordCount); err != nil {
		return fail(models.PropTotalRecordCount, err)
	}
	if props.LoggedPropertyReference, err = referenceProperty(values, models.PropLogDeviceObjectProperty); err != nil {
		return fail(models.PropLogDeviceObjectProperty, err)
	}
	if props.StatusFlags, err = statusFlagsProperty(values, models.PropStatusFlags); err != nil {
		return fail(models.PropStatusFlags, err)
	}

	return &LogDescriptor{props: props}, nil
}

// ObjectID returns the identity of the trend log.
func (d *LogDescriptor) ObjectID() models.ObjectIdentifier { return d.props.ObjectID }

func (d *LogDescriptor) ObjectName() string { return d.props.ObjectName }

func (d *LogDescriptor) Description() string { return d.props.Description }

// BufferSize is the capacity of the device-side circular buffer.
func (d *LogDescriptor) BufferSize() uint32 { return d.props.BufferSize }

// RecordCount is the number of records currently held.
func (d *LogDescriptor) RecordCount() uint32 { return d.props.RecordCount }

// TotalRecordCount is the lifetime number of records produced.
func (d *LogDescriptor) TotalRecordCount() uint32 { return d.props.TotalRecordCount }

// LoggedProperty returns a copy of the monitored property reference.
func (d *LogDescriptor) LoggedProperty() models.DeviceObjectPropertyReference {
	return d.props.LoggedPropertyReference.Clone()
}

func (d *LogDescriptor) StatusFlags() models.StatusFlags { return d.props.StatusFlags }

// Properties returns a copy of all descriptor fields.
func (d *LogDescriptor) Properties() models.TrendLogProperties {
	p := d.props
	p.LoggedPropertyReference = d.props.LoggedPropertyReference.Clone()
	return p
}

var errMissing = errors.New("property missing from response")

func lookup(values map[models.PropertyIdentifier]any, p models.PropertyIdentifier) (any, error) {
	v, ok := values[p]
	if !ok || v == nil {
		return nil, errMissing
	}
	return v, nil
}

func stringProperty(values map[models.PropertyIdentifier]any, p models.PropertyIdentifier) (string, error) {
	v, err := lookup(values, p)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected character string, got %T", v)
	}
	return s, nil
}

// countProperty accepts any integer representation (collaborators differ in
// what they decode Unsigned to) as long as it fits an unsigned 32-bit count.
func countProperty(values map[models.PropertyIdentifier]any, p models.PropertyIdentifier) (uint32, error) {
	v, err := lookup(values, p)
	if err != nil {
		return 0, err
	}
	var n int64
	switch x := v.(type) {
	case int:
		n = int64(x)
	case int32:
		n = int64(x)
	case int64:
		n = x
	case uint:
		if uint64(x) > math.MaxUint32 {
			return 0, fmt.Errorf("count %d out of range", x)
		}
		n = int64(x)
	case uint32:
		n = int64(x)
	case uint64:
		if x > math.MaxUint32 {
			return 0, fmt.Errorf("count %d out of range", x)
		}
		n = int64(x)
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("count %v is not an integer", x)
		}
		if x < 0 || x > math.MaxUint32 {
			return 0, fmt.Errorf("count %v out of range", x)
		}
		n = int64(x)
	default:
		return 0, fmt.Errorf("expected unsigned, got %T", v)
	}
	if n < 0 || n > math.MaxUint32 {
		return 0, fmt.Errorf("count %d out of range", n)
	}
	return uint32(n), nil
}

func referenceProperty(values map[models.PropertyIdentifier]any, p models.PropertyIdentifier) (models.DeviceObjectPropertyReference, error) {
	v, err := lookup(values, p)
	if err != nil {
		return models.DeviceObjectPropertyReference{}, err
	}
	switch ref := v.(type) {
	case models.DeviceObjectPropertyReference:
		return ref.Clone(), nil
	case *models.DeviceObjectPropertyReference:
		if ref == nil {
			return models.DeviceObjectPropertyReference{}, errMissing
		}
		return ref.Clone(), nil
	}
	return models.DeviceObjectPropertyReference{}, fmt.Errorf("expected device object property reference, got %T", v)
}

func statusFlagsProperty(values map[models.PropertyIdentifier]any, p models.PropertyIdentifier) (models.StatusFlags, error) {
	v, err := lookup(values, p)
	if err != nil {
		return models.StatusFlags{}, err
	}
	switch f := v.(type) {
	case models.StatusFlags:
		return f, nil
	case []bool:
		if len(f) != 4 {
			return models.StatusFlags{}, fmt.Errorf("status flags bit string has %d bits, want 4", len(f))
		}
		return models.StatusFlagsFromBits(f), nil
	}
	return models.StatusFlags{}, fmt.Errorf("expected status flags, got %T", v)
}
