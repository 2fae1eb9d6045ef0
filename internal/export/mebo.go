package export

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/arloliu/mebo"

	"github.com/trendlog-viewer/backend/internal/models"
)

// maxMeboPoints is the per-metric data point limit of a mebo blob.
const maxMeboPoints = 65535

// ErrNoNumericData is returned when a series has nothing to put in a numeric blob.
var ErrNoNumericData = errors.New("series has no numeric records")

// MeboExporter packs the numeric records of a series into a mebo blob: one
// metric, microsecond timestamps, the datum choice as the point tag. Records
// without a numeric reading (log status, failures, bit strings, null, any)
// are skipped.
type MeboExporter struct {
	// MetricName defaults to the trend log identifier, e.g. "trendLog:1".
	MetricName string
}

func (MeboExporter) Name() string        { return "mebo" }
func (MeboExporter) ContentType() string { return "application/octet-stream" }

// MetricFor returns the metric name used for props.
func (e MeboExporter) MetricFor(props models.TrendLogProperties) string {
	if e.MetricName != "" {
		return e.MetricName
	}
	return props.ObjectID.String()
}

func (e MeboExporter) Export(w io.Writer, props models.TrendLogProperties, series *models.DecodedSeries) error {
	type point struct {
		ts  int64
		val float64
		tag string
	}

	points := make([]point, 0, series.Len())
	var start time.Time
	for i, rec := range series.Raw() {
		v, ok := series.Float64(i)
		if !ok {
			continue
		}
		if start.IsZero() || rec.Timestamp.Before(start) {
			start = rec.Timestamp
		}
		points = append(points, point{ts: rec.Timestamp.UnixMicro(), val: v, tag: string(rec.Choice)})
	}
	if len(points) == 0 {
		return ErrNoNumericData
	}
	if len(points) > maxMeboPoints {
		return fmt.Errorf("series has %d numeric records, mebo allows %d per metric", len(points), maxMeboPoints)
	}

	enc, err := mebo.NewTaggedNumericEncoder(start)
	if err != nil {
		return fmt.Errorf("creating mebo encoder: %w", err)
	}
	if err := enc.StartMetricName(e.MetricFor(props), len(points)); err != nil {
		return fmt.Errorf("starting mebo metric: %w", err)
	}
	for _, p := range points {
		if err := enc.AddDataPoint(p.ts, p.val, p.tag); err != nil {
			return fmt.Errorf("adding mebo data point: %w", err)
		}
	}
	if err := enc.EndMetric(); err != nil {
		return fmt.Errorf("ending mebo metric: %w", err)
	}

	data, err := enc.Finish()
	if err != nil {
		return fmt.Errorf("finishing mebo blob: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// MeboPoint is one data point read back from a mebo blob.
type MeboPoint struct {
	Timestamp time.Time
	Value     float64
	Choice    models.DatumChoice
}

// DecodeMebo reads the points of metric from a blob written by MeboExporter.
func DecodeMebo(data []byte, metric string) ([]MeboPoint, error) {
	dec, err := mebo.NewNumericDecoder(data)
	if err != nil {
		return nil, fmt.Errorf("opening mebo blob: %w", err)
	}
	blob, err := dec.Decode()
	if err != nil {
		return nil, fmt.Errorf("decoding mebo blob: %w", err)
	}

	var out []MeboPoint
	for _, dp := range blob.AllByName(metric) {
		out = append(out, MeboPoint{
			Timestamp: time.UnixMicro(dp.Ts).UTC(),
			Value:     dp.Val,
			Choice:    models.DatumChoice(dp.Tag),
		})
	}
	if out == nil {
		return nil, fmt.Errorf("metric %q not found in blob", metric)
	}
	return out, nil
}
