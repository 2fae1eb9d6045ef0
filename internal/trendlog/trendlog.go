package trendlog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/trendlog-viewer/backend/internal/models"
	"github.com/trendlog-viewer/backend/internal/parser"
)

// ErrBufferRead is matched by every BufferReadError.
var ErrBufferRead = errors.New("log buffer read error")

// BufferReadError reports a failed ReadRange of the log buffer.
type BufferReadError struct {
	ObjectID models.ObjectIdentifier
	Err      error
}

func (e *BufferReadError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.ObjectID, ErrBufferRead, e.Err)
}

func (e *BufferReadError) Unwrap() error { return e.Err }

func (e *BufferReadError) Is(target error) bool { return target == ErrBufferRead }

// TrendLog ties a descriptor to the device it was read from and decodes its
// log buffer on demand.
type TrendLog struct {
	descriptor *LogDescriptor
	fetcher    BufferFetcher
	decoder    *parser.Decoder

	mu      sync.RWMutex
	history *models.DecodedSeries
}

// Open reads the descriptor of id from src. A nil decoder uses the defaults.
func Open(ctx context.Context, id models.ObjectIdentifier, src Source, decoder *parser.Decoder) (*TrendLog, error) {
	desc, err := NewLogDescriptor(ctx, id, src)
	if err != nil {
		return nil, err
	}
	if decoder == nil {
		decoder = parser.NewDecoder()
	}
	return &TrendLog{
		descriptor: desc,
		fetcher:    src,
		decoder:    decoder,
	}, nil
}

// Descriptor returns the trend log's static metadata.
func (t *TrendLog) Descriptor() *LogDescriptor {
	return t.descriptor
}

// ReadLogBuffer fetches the whole buffer with one request and decodes it.
// On success the result replaces the previous history wholesale; on failure
// the previous history is kept.
func (t *TrendLog) ReadLogBuffer(ctx context.Context) (*models.DecodedSeries, error) {
	id := t.descriptor.ObjectID()
	records, err := t.fetcher.ReadRange(ctx, id)
	if err != nil {
		return nil, &BufferReadError{ObjectID: id, Err: err}
	}

	series, err := t.decoder.Decode(records)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", id, err)
	}

	if n := uint32(len(records)); n != t.descriptor.RecordCount() {
		fmt.Printf("[TrendLog] %s: buffer returned %d records, descriptor reported %d\n",
			id, n, t.descriptor.RecordCount())
	}

	t.mu.Lock()
	t.history = series
	t.mu.Unlock()
	return series, nil
}

// History returns the value series of the last successful ReadLogBuffer, or
// nil if the buffer has not been read yet.
func (t *TrendLog) History() []models.ValuePoint {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.history == nil {
		return nil
	}
	return t.history.Values()
}

// Series returns the last decoded series, or nil.
func (t *TrendLog) Series() *models.DecodedSeries {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.history
}
