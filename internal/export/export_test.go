package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendlog-viewer/backend/internal/models"
)

var zoneTemp = models.TrendLogProperties{
	ObjectID:    models.ObjectIdentifier{Type: "trendLog", Instance: 1},
	ObjectName:  "TL-ZoneTemp",
	RecordCount: 4,
	BufferSize:  1000,
}

var t0 = time.Date(2024, 3, 15, 14, 30, 5, 500_000_000, time.UTC)

func sampleSeries() *models.DecodedSeries {
	return models.NewDecodedSeries([]models.DecodedRecord{
		models.NewDecodedRecord(t0, models.RealDatum(21.5), models.StatusFlags{}),
		models.NewDecodedRecord(t0.Add(15*time.Minute), models.BooleanDatum(true), models.StatusFlags{InAlarm: true}),
		models.NewDecodedRecord(t0.Add(30*time.Minute), models.LogStatus{BufferPurged: true}, models.StatusFlags{}),
		models.NewDecodedRecord(t0.Add(45*time.Minute), models.UnsignedDatum(42), models.StatusFlags{Fault: true}),
	})
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"csv", "json", "mebo", "msgpack"}, r.Names())

	e, err := r.Get(" JSON ")
	require.NoError(t, err)
	assert.Equal(t, "application/json", e.ContentType())

	_, err = r.Get("parquet")
	assert.ErrorContains(t, err, "available: csv, json, mebo, msgpack")

	r.Register(MeboExporter{MetricName: "zone"})
	e, _ = r.Get("mebo")
	assert.Equal(t, "zone", e.(MeboExporter).MetricName)
}

func TestJSONExporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSONExporter{}.Export(&buf, zoneTemp, sampleSeries()))

	var doc struct {
		TrendLog models.TrendLogProperties `json:"trendLog"`
		Range    models.TimeRange          `json:"range"`
		Records  []struct {
			Timestamp time.Time          `json:"timestamp"`
			Choice    models.DatumChoice `json:"choice"`
			Value     json.RawMessage    `json:"value"`
			Status    models.StatusFlags `json:"status"`
		} `json:"records"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, "TL-ZoneTemp", doc.TrendLog.ObjectName)
	assert.True(t, doc.Range.Start.Equal(t0))
	require.Len(t, doc.Records, 4)
	assert.Equal(t, models.ChoiceReal, doc.Records[0].Choice)
	assert.JSONEq(t, `21.5`, string(doc.Records[0].Value))
	assert.JSONEq(t, `{"logDisabled":false,"bufferPurged":true,"logInterrupted":false}`, string(doc.Records[2].Value))
	assert.True(t, doc.Records[1].Status.InAlarm)
}

func TestJSONExporter_NonFinite(t *testing.T) {
	series := models.NewDecodedSeries([]models.DecodedRecord{
		models.NewDecodedRecord(t0, models.RealDatum(float32(math.NaN())), models.StatusFlags{Fault: true}),
		models.NewDecodedRecord(t0.Add(time.Minute), models.RealDatum(float32(math.Inf(-1))), models.StatusFlags{}),
		models.NewDecodedRecord(t0.Add(2*time.Minute), models.RealDatum(20), models.StatusFlags{}),
	})

	var buf bytes.Buffer
	require.NoError(t, JSONExporter{}.Export(&buf, zoneTemp, series))

	var doc struct {
		Records []struct {
			Value json.RawMessage `json:"value"`
		} `json:"records"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Records, 3)
	assert.JSONEq(t, `"NaN"`, string(doc.Records[0].Value))
	assert.JSONEq(t, `"-Inf"`, string(doc.Records[1].Value))
	assert.JSONEq(t, `20`, string(doc.Records[2].Value))

	buf.Reset()
	require.NoError(t, CSVExporter{}.Export(&buf, zoneTemp, series))
	assert.Contains(t, buf.String(), "realValue,NaN,")
}

func TestJSONExporter_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSONExporter{}.Export(&buf, zoneTemp, models.NewDecodedSeries(nil)))
	assert.Contains(t, buf.String(), `"records":[]`)
	assert.NotContains(t, buf.String(), `"range"`)
}

func TestMsgpackExporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, MsgpackExporter{}.Export(&buf, zoneTemp, sampleSeries()))

	doc, err := DecodeMsgpack(&buf)
	require.NoError(t, err)

	trendLog, ok := doc["trendLog"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "TL-ZoneTemp", trendLog["objectName"])

	records, ok := doc["records"].([]interface{})
	require.True(t, ok)
	require.Len(t, records, 4)
	first := records[0].(map[string]interface{})
	assert.Equal(t, "realValue", first["choice"])
	assert.EqualValues(t, float32(21.5), first["value"])
}

func TestCSVExporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSVExporter{}.Export(&buf, zoneTemp, sampleSeries()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{"2024-03-15T14:30:05.5Z", "realValue", "21.5", "false", "false", "false", "false"}, rows[1])
	assert.Equal(t, "true", rows[2][2])
	assert.Equal(t, "true", rows[2][3])
	assert.Equal(t, "010", rows[3][2])
	assert.Equal(t, "42", rows[4][2])
}

func TestMeboExporter(t *testing.T) {
	var buf bytes.Buffer
	exp := MeboExporter{}
	require.NoError(t, exp.Export(&buf, zoneTemp, sampleSeries()))

	points, err := DecodeMebo(buf.Bytes(), "trendLog:1")
	require.NoError(t, err)
	require.Len(t, points, 3, "logStatus record is skipped")

	assert.True(t, points[0].Timestamp.Equal(t0))
	assert.Equal(t, 21.5, points[0].Value)
	assert.Equal(t, models.ChoiceReal, points[0].Choice)
	assert.Equal(t, 1.0, points[1].Value)
	assert.Equal(t, models.ChoiceBoolean, points[1].Choice)
	assert.Equal(t, 42.0, points[2].Value)
	assert.True(t, points[2].Timestamp.Equal(t0.Add(45*time.Minute)))

	_, err = DecodeMebo(buf.Bytes(), "trendLog:2")
	assert.Error(t, err)
}

func TestMeboExporter_DeviceOrderKept(t *testing.T) {
	series := models.NewDecodedSeries([]models.DecodedRecord{
		models.NewDecodedRecord(t0, models.RealDatum(1), models.StatusFlags{}),
		models.NewDecodedRecord(t0.Add(-time.Hour), models.RealDatum(2), models.StatusFlags{}),
		models.NewDecodedRecord(t0.Add(time.Minute), models.RealDatum(3), models.StatusFlags{}),
	})

	var buf bytes.Buffer
	exp := MeboExporter{MetricName: "zone"}
	require.NoError(t, exp.Export(&buf, zoneTemp, series))

	points, err := DecodeMebo(buf.Bytes(), "zone")
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, []float64{1, 2, 3}, []float64{points[0].Value, points[1].Value, points[2].Value})
	assert.True(t, points[1].Timestamp.Equal(t0.Add(-time.Hour)))
}

func TestMeboExporter_NoNumericData(t *testing.T) {
	series := models.NewDecodedSeries([]models.DecodedRecord{
		models.NewDecodedRecord(t0, models.LogStatus{LogDisabled: true}, models.StatusFlags{}),
		models.NewDecodedRecord(t0, models.FailureDatum{ErrorClass: 1}, models.StatusFlags{}),
	})

	var buf bytes.Buffer
	err := MeboExporter{}.Export(&buf, zoneTemp, series)
	assert.ErrorIs(t, err, ErrNoNumericData)
	assert.Zero(t, buf.Len())

	err = MeboExporter{}.Export(&buf, zoneTemp, models.NewDecodedSeries(nil))
	assert.ErrorIs(t, err, ErrNoNumericData)
}
