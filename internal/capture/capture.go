// Package capture loads recorded device responses from YAML files and serves
// them back as a trendlog.Source, so trend logs can be inspected offline.
package capture

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/trendlog-viewer/backend/internal/models"
	"github.com/trendlog-viewer/backend/internal/trendlog"
)

// ErrUnknownObject is returned for objects that are not part of the capture.
var ErrUnknownObject = errors.New("unknown object")

// Capture is one recorded device.
type Capture struct {
	Device     string           `yaml:"device"`
	CapturedAt time.Time        `yaml:"captured_at"`
	TrendLogs  []TrendLogRecord `yaml:"trend_logs"`

	index map[models.ObjectIdentifier]*TrendLogRecord
}

// TrendLogRecord holds what the device answered for one trend log. The error
// fields replay a failed request instead of its payload.
type TrendLogRecord struct {
	Object        string             `yaml:"object"`
	Properties    RecordedProperties `yaml:"properties"`
	Records       []models.LogRecord `yaml:"records"`
	MetadataError string             `yaml:"metadata_error,omitempty"`
	BufferError   string             `yaml:"buffer_error,omitempty"`

	id models.ObjectIdentifier
}

// RecordedProperties is the ReadPropertyMultiple answer. Absent properties
// stay nil and are left out of the response.
type RecordedProperties struct {
	ObjectName              *string                               `yaml:"object_name"`
	Description             *string                               `yaml:"description"`
	RecordCount             *int64                                `yaml:"record_count"`
	BufferSize              *int64                                `yaml:"buffer_size"`
	TotalRecordCount        *int64                                `yaml:"total_record_count"`
	LogDeviceObjectProperty *models.DeviceObjectPropertyReference `yaml:"log_device_object_property"`
	StatusFlags             *models.StatusFlags                   `yaml:"status_flags"`
}

func (p RecordedProperties) values() map[models.PropertyIdentifier]any {
	out := make(map[models.PropertyIdentifier]any, 7)
	if p.ObjectName != nil {
		out[models.PropObjectName] = *p.ObjectName
	}
	if p.Description != nil {
		out[models.PropDescription] = *p.Description
	}
	if p.RecordCount != nil {
		out[models.PropRecordCount] = *p.RecordCount
	}
	if p.BufferSize != nil {
		out[models.PropBufferSize] = *p.BufferSize
	}
	if p.TotalRecordCount != nil {
		out[models.PropTotalRecordCount] = *p.TotalRecordCount
	}
	if p.LogDeviceObjectProperty != nil {
		out[models.PropLogDeviceObjectProperty] = p.LogDeviceObjectProperty.Clone()
	}
	if p.StatusFlags != nil {
		out[models.PropStatusFlags] = *p.StatusFlags
	}
	return out
}

// gzipMagic starts every gzip stream.
var gzipMagic = []byte{0x1f, 0x8b}

// Load parses a capture from r. Unknown keys are rejected. Gzip-compressed
// captures are decompressed transparently.
func Load(r io.Reader) (*Capture, error) {
	br := bufio.NewReader(r)
	if magic, err := br.Peek(len(gzipMagic)); err == nil && bytes.Equal(magic, gzipMagic) {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("opening gzip capture: %w", err)
		}
		defer zr.Close()
		return decode(zr)
	}
	return decode(br)
}

func decode(r io.Reader) (*Capture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var c Capture
	if err := dec.Decode(&c); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing capture: empty document")
		}
		return nil, fmt.Errorf("parsing capture: %w", err)
	}

	c.index = make(map[models.ObjectIdentifier]*TrendLogRecord, len(c.TrendLogs))
	for i := range c.TrendLogs {
		tl := &c.TrendLogs[i]
		id, err := models.ParseObjectIdentifier(tl.Object)
		if err != nil {
			return nil, fmt.Errorf("trend log %d: %w", i, err)
		}
		if _, dup := c.index[id]; dup {
			return nil, fmt.Errorf("trend log %d: duplicate object %s", i, id)
		}
		tl.id = id
		c.index[id] = tl
	}

	return &c, nil
}

// LoadFile parses the capture file at path.
func LoadFile(path string) (*Capture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening capture: %w", err)
	}
	defer f.Close()

	c, err := Load(f)
	if err != nil {
		return nil, err
	}
	fmt.Printf("[Capture] Loaded %s: device %s, %d trend logs\n", path, c.Device, len(c.TrendLogs))
	return c, nil
}

// ObjectIDs lists the trend logs in file order.
func (c *Capture) ObjectIDs() []models.ObjectIdentifier {
	ids := make([]models.ObjectIdentifier, len(c.TrendLogs))
	for i, tl := range c.TrendLogs {
		ids[i] = tl.id
	}
	return ids
}

// Summary describes the capture for listing endpoints.
func (c *Capture) Summary(file *models.FileInfo) *models.CaptureSummary {
	return &models.CaptureSummary{
		File:       file,
		Device:     c.Device,
		CapturedAt: c.CapturedAt,
		TrendLogs:  c.ObjectIDs(),
	}
}

func (c *Capture) lookup(id models.ObjectIdentifier) (*TrendLogRecord, error) {
	tl, ok := c.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownObject, id)
	}
	return tl, nil
}

// ReadProperties answers with the recorded subset of props.
func (c *Capture) ReadProperties(ctx context.Context, id models.ObjectIdentifier, props []models.PropertyIdentifier) (map[models.PropertyIdentifier]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tl, err := c.lookup(id)
	if err != nil {
		return nil, err
	}
	if tl.MetadataError != "" {
		return nil, errors.New(tl.MetadataError)
	}

	recorded := tl.Properties.values()
	out := make(map[models.PropertyIdentifier]any, len(props))
	for _, p := range props {
		if v, ok := recorded[p]; ok {
			out[p] = v
		}
	}
	return out, nil
}

// ReadRange returns a copy of the recorded log buffer.
func (c *Capture) ReadRange(ctx context.Context, id models.ObjectIdentifier) ([]models.LogRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tl, err := c.lookup(id)
	if err != nil {
		return nil, err
	}
	if tl.BufferError != "" {
		return nil, errors.New(tl.BufferError)
	}

	out := make([]models.LogRecord, len(tl.Records))
	copy(out, tl.Records)
	return out, nil
}

var _ trendlog.Source = (*Capture)(nil)
