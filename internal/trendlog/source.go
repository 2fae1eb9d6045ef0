// Package trendlog builds trend log descriptors and decoded histories on top of
// the device collaborators that read BACnet properties.
package trendlog

import (
	"context"

	"github.com/trendlog-viewer/backend/internal/models"
)

// MetadataReader reads several properties of one object in a single round trip
// (ReadPropertyMultiple). Missing properties are simply absent from the result.
type MetadataReader interface {
	ReadProperties(ctx context.Context, id models.ObjectIdentifier, props []models.PropertyIdentifier) (map[models.PropertyIdentifier]any, error)
}

// BufferFetcher returns the full log buffer of a trend log (ReadRange on logBuffer).
type BufferFetcher interface {
	ReadRange(ctx context.Context, id models.ObjectIdentifier) ([]models.LogRecord, error)
}

// Source is a device that can serve both requests.
type Source interface {
	MetadataReader
	BufferFetcher
}
