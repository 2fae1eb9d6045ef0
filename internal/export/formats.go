package export

import (
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/trendlog-viewer/backend/internal/models"
)

// JSONExporter writes a Document as JSON.
type JSONExporter struct{}

func (JSONExporter) Name() string        { return "json" }
func (JSONExporter) ContentType() string { return "application/json" }

func (JSONExporter) Export(w io.Writer, props models.TrendLogProperties, series *models.DecodedSeries) error {
	return json.NewEncoder(w).Encode(NewDocument(props, series))
}

// MsgpackExporter writes a Document as MessagePack. Field names match the JSON output.
type MsgpackExporter struct{}

func (MsgpackExporter) Name() string        { return "msgpack" }
func (MsgpackExporter) ContentType() string { return "application/msgpack" }

func (MsgpackExporter) Export(w io.Writer, props models.TrendLogProperties, series *models.DecodedSeries) error {
	enc := msgpack.NewEncoder(w)
	enc.SetCustomStructTag("json")
	return enc.Encode(NewDocument(props, series))
}

// DecodeMsgpack reads a document written by MsgpackExporter. Values come back
// as generic msgpack types.
func DecodeMsgpack(r io.Reader) (map[string]interface{}, error) {
	dec := msgpack.NewDecoder(r)
	dec.SetCustomStructTag("json")
	var out map[string]interface{}
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding msgpack document: %w", err)
	}
	return out, nil
}

// CSVExporter writes one row per record with the status flags as columns.
type CSVExporter struct{}

var csvHeader = []string{"timestamp", "choice", "value", "in_alarm", "fault", "overridden", "out_of_service"}

func (CSVExporter) Name() string        { return "csv" }
func (CSVExporter) ContentType() string { return "text/csv" }

func (CSVExporter) Export(w io.Writer, _ models.TrendLogProperties, series *models.DecodedSeries) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, rec := range series.Raw() {
		row := []string{
			formatTimestamp(rec.Timestamp),
			string(rec.Choice),
			formatValue(rec.Datum()),
			strconv.FormatBool(rec.Status.InAlarm),
			strconv.FormatBool(rec.Status.Fault),
			strconv.FormatBool(rec.Status.Overridden),
			strconv.FormatBool(rec.Status.OutOfService),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatValue(d models.LogDatum) string {
	switch v := d.(type) {
	case models.RealDatum:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case models.TimeChangeDatum:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case models.NullDatum:
		return ""
	case models.AnyDatum:
		return hex.EncodeToString(v)
	case models.BitStringDatum:
		return bitString(v)
	case models.LogStatus:
		return bitString([]bool{v.LogDisabled, v.BufferPurged, v.LogInterrupted})
	case models.FailureDatum:
		return fmt.Sprintf("error %d/%d", v.ErrorClass, v.ErrorCode)
	}
	return fmt.Sprint(d.Value())
}

func bitString(bits []bool) string {
	out := make([]byte, len(bits))
	for i, b := range bits {
		out[i] = '0'
		if b {
			out[i] = '1'
		}
	}
	return string(out)
}
