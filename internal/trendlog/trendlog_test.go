package trendlog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendlog-viewer/backend/internal/models"
	"github.com/trendlog-viewer/backend/internal/parser"
)

var trendLog1 = models.ObjectIdentifier{Type: "trendLog", Instance: 1}

// fakeDevice is an in-memory Source that counts requests.
type fakeDevice struct {
	props      map[models.PropertyIdentifier]any
	records    []models.LogRecord
	readErr    error
	rangeErr   error
	propCalls  int
	rangeCalls int
	requested  []models.PropertyIdentifier
}

func (f *fakeDevice) ReadProperties(_ context.Context, _ models.ObjectIdentifier, props []models.PropertyIdentifier) (map[models.PropertyIdentifier]any, error) {
	f.propCalls++
	f.requested = props
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.props, nil
}

func (f *fakeDevice) ReadRange(_ context.Context, _ models.ObjectIdentifier) ([]models.LogRecord, error) {
	f.rangeCalls++
	if f.rangeErr != nil {
		return nil, f.rangeErr
	}
	return f.records, nil
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		props: map[models.PropertyIdentifier]any{
			models.PropObjectName:       "TL-ZoneTemp",
			models.PropDescription:      "zone temperature trend",
			models.PropRecordCount:      2,
			models.PropBufferSize:       uint32(1000),
			models.PropTotalRecordCount: uint64(15320),
			models.PropLogDeviceObjectProperty: models.DeviceObjectPropertyReference{
				Object:   models.ObjectIdentifier{Type: "analogInput", Instance: 3},
				Property: "presentValue",
			},
			models.PropStatusFlags: []bool{false, false, true, false},
		},
		records: []models.LogRecord{
			{
				Timestamp: models.DateTime{
					Date: models.BACnetDate{Year: 124, Month: 3, Day: 15, DayOfWeek: 5},
					Time: models.BACnetTime{Hour: 14, Minute: 30, Second: 5, Fraction: 50},
				},
				Datum: models.RawDatumOf(models.RealDatum(21.5)),
			},
			{
				Timestamp: models.DateTime{
					Date: models.BACnetDate{Year: 124, Month: 3, Day: 15, DayOfWeek: 5},
					Time: models.BACnetTime{Hour: 14, Minute: 45, Second: 5, Fraction: 0},
				},
				Datum:       models.RawDatumOf(models.RealDatum(21.75)),
				StatusFlags: models.StatusFlags{InAlarm: true},
			},
		},
	}
}

func TestNewLogDescriptor(t *testing.T) {
	dev := newFakeDevice()

	desc, err := NewLogDescriptor(context.Background(), trendLog1, dev)
	require.NoError(t, err)
	assert.Equal(t, 1, dev.propCalls)
	assert.Equal(t, DescriptorProperties, dev.requested)

	assert.Equal(t, trendLog1, desc.ObjectID())
	assert.Equal(t, "TL-ZoneTemp", desc.ObjectName())
	assert.Equal(t, "zone temperature trend", desc.Description())
	assert.Equal(t, uint32(2), desc.RecordCount())
	assert.Equal(t, uint32(1000), desc.BufferSize())
	assert.Equal(t, uint32(15320), desc.TotalRecordCount())
	assert.Equal(t, "analogInput:3.presentValue", desc.LoggedProperty().String())
	assert.Equal(t, models.StatusFlags{Overridden: true}, desc.StatusFlags())
}

func TestNewLogDescriptor_DefaultStatusFlags(t *testing.T) {
	dev := newFakeDevice()
	dev.props[models.PropStatusFlags] = models.StatusFlags{}

	desc, err := NewLogDescriptor(context.Background(), trendLog1, dev)
	require.NoError(t, err)
	assert.False(t, desc.StatusFlags().Any())
}

func TestNewLogDescriptor_ReadFailure(t *testing.T) {
	dev := newFakeDevice()
	cause := errors.New("no response from controller")
	dev.readErr = cause

	desc, err := NewLogDescriptor(context.Background(), trendLog1, dev)
	assert.Nil(t, desc)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMetadataRead)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, dev.propCalls, "no retries")

	var mErr *MetadataReadError
	require.True(t, errors.As(err, &mErr))
	assert.Equal(t, trendLog1, mErr.ObjectID)
	assert.Empty(t, mErr.Property)
}

func TestNewLogDescriptor_MalformedResponse(t *testing.T) {
	cases := []struct {
		name string
		prop models.PropertyIdentifier
		val  any
	}{
		{"missing name", models.PropObjectName, nil},
		{"name wrong type", models.PropObjectName, 12},
		{"missing description", models.PropDescription, nil},
		{"negative record count", models.PropRecordCount, -1},
		{"fractional buffer size", models.PropBufferSize, 10.5},
		{"total count overflow", models.PropTotalRecordCount, uint64(1) << 33},
		{"reference wrong type", models.PropLogDeviceObjectProperty, "analogInput:3"},
		{"nil reference pointer", models.PropLogDeviceObjectProperty, (*models.DeviceObjectPropertyReference)(nil)},
		{"short status bit string", models.PropStatusFlags, []bool{true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dev := newFakeDevice()
			if tc.val == nil {
				delete(dev.props, tc.prop)
			} else {
				dev.props[tc.prop] = tc.val
			}

			desc, err := NewLogDescriptor(context.Background(), trendLog1, dev)
			assert.Nil(t, desc)
			var mErr *MetadataReadError
			require.True(t, errors.As(err, &mErr), "got %v", err)
			assert.Equal(t, tc.prop, mErr.Property)
			assert.ErrorIs(t, err, ErrMetadataRead)
		})
	}
}

func TestLogDescriptor_PropertiesAreCopies(t *testing.T) {
	dev := newFakeDevice()
	idx := uint32(1)
	dev.props[models.PropLogDeviceObjectProperty] = &models.DeviceObjectPropertyReference{
		Object:     models.ObjectIdentifier{Type: "analogInput", Instance: 3},
		Property:   "presentValue",
		ArrayIndex: &idx,
	}

	desc, err := NewLogDescriptor(context.Background(), trendLog1, dev)
	require.NoError(t, err)

	idx = 7
	p := desc.Properties()
	*p.LoggedPropertyReference.ArrayIndex = 9
	p.ObjectName = "changed"

	assert.Equal(t, uint32(1), *desc.LoggedProperty().ArrayIndex)
	assert.Equal(t, "TL-ZoneTemp", desc.ObjectName())
}

func TestTrendLog_ReadLogBuffer(t *testing.T) {
	dev := newFakeDevice()

	tl, err := Open(context.Background(), trendLog1, dev, nil)
	require.NoError(t, err)
	assert.Nil(t, tl.History())

	series, err := tl.ReadLogBuffer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, dev.rangeCalls)
	require.Equal(t, 2, series.Len())

	history := tl.History()
	require.Len(t, history, 2)
	assert.Equal(t, float32(21.5), history[0].Value)
	assert.Equal(t, float32(21.75), history[1].Value)
	assert.Equal(t, models.StatusFlags{InAlarm: true}, series.Status()[1].Status)
	assert.Same(t, series, tl.Series())
}

func TestTrendLog_BufferReadFailure(t *testing.T) {
	dev := newFakeDevice()
	tl, err := Open(context.Background(), trendLog1, dev, nil)
	require.NoError(t, err)

	dev.rangeErr = errors.New("timeout")
	series, err := tl.ReadLogBuffer(context.Background())
	assert.Nil(t, series)
	assert.ErrorIs(t, err, ErrBufferRead)
	var bErr *BufferReadError
	require.True(t, errors.As(err, &bErr))
	assert.Equal(t, trendLog1, bErr.ObjectID)
}

func TestTrendLog_DecodeFailureKeepsHistory(t *testing.T) {
	dev := newFakeDevice()
	tl, err := Open(context.Background(), trendLog1, dev, parser.NewDecoder())
	require.NoError(t, err)

	_, err = tl.ReadLogBuffer(context.Background())
	require.NoError(t, err)

	dev.records = append(dev.records, models.LogRecord{Timestamp: dev.records[0].Timestamp})
	series, err := tl.ReadLogBuffer(context.Background())
	assert.Nil(t, series)
	assert.ErrorIs(t, err, parser.ErrMalformedRecord)
	assert.Len(t, tl.History(), 2)
}

func TestOpen_MetadataFailure(t *testing.T) {
	dev := newFakeDevice()
	dev.readErr = errors.New("unknown object")

	tl, err := Open(context.Background(), trendLog1, dev, nil)
	assert.Nil(t, tl)
	assert.ErrorIs(t, err, ErrMetadataRead)
	assert.Equal(t, 0, dev.rangeCalls)
}
