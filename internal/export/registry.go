// Package export renders decoded trend log series in tabular and binary formats.
package export

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/trendlog-viewer/backend/internal/models"
)

// Exporter writes one decoded series in a specific format.
type Exporter interface {
	Name() string
	ContentType() string
	Export(w io.Writer, props models.TrendLogProperties, series *models.DecodedSeries) error
}

// Document is the structured form written by the json and msgpack exporters.
type Document struct {
	TrendLog models.TrendLogProperties `json:"trendLog" msgpack:"trendLog"`
	Range    *models.TimeRange          `json:"range,omitempty" msgpack:"range,omitempty"`
	Records  []models.DecodedRecord     `json:"records" msgpack:"records"`
}

// NewDocument snapshots series together with its descriptor.
func NewDocument(props models.TrendLogProperties, series *models.DecodedSeries) Document {
	return Document{
		TrendLog: props,
		Range:    series.TimeRange(),
		Records:  series.Raw(),
	}
}

// Registry holds the available exporters by name.
type Registry struct {
	exporters map[string]Exporter
}

// NewRegistry returns a registry with the json, msgpack, csv and mebo exporters.
func NewRegistry() *Registry {
	r := &Registry{exporters: make(map[string]Exporter)}
	r.Register(JSONExporter{})
	r.Register(MsgpackExporter{})
	r.Register(CSVExporter{})
	r.Register(MeboExporter{})
	return r
}

// Register adds or replaces an exporter.
func (r *Registry) Register(e Exporter) {
	r.exporters[strings.ToLower(e.Name())] = e
}

// Get returns an exporter by its name.
func (r *Registry) Get(name string) (Exporter, error) {
	e, ok := r.exporters[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown export format: %q (available: %s)", name, strings.Join(r.Names(), ", "))
	}
	return e, nil
}

// Names lists registered formats alphabetically.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.exporters))
	for name := range r.exporters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func formatTimestamp(ts time.Time) string {
	return ts.Format(time.RFC3339Nano)
}
