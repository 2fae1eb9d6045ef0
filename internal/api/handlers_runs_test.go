// handlers_runs_test.go - Tests for persisted series handlers
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trendlog-viewer/backend/internal/models"
	"github.com/trendlog-viewer/backend/internal/parser"
)

var runStart = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func seededRunStore(t *testing.T) (*memoryRunStore, string) {
	t.Helper()
	runs := newMemoryRunStore()
	series := models.NewDecodedSeries([]models.DecodedRecord{
		models.NewDecodedRecord(runStart, models.RealDatum(20), models.StatusFlags{}),
		models.NewDecodedRecord(runStart.Add(time.Hour), models.RealDatum(21), models.StatusFlags{}),
		models.NewDecodedRecord(runStart.Add(2*time.Hour), models.RealDatum(22), models.StatusFlags{Fault: true}),
	})
	props := models.TrendLogProperties{
		ObjectID:   models.ObjectIdentifier{Type: "trendLog", Instance: 1},
		ObjectName: "TL-ZoneTemp",
	}
	run, err := runs.SaveSeries(context.Background(), sampleID, props, series)
	require.NoError(t, err)
	return runs, run.ID
}

func TestRunHandler_Disabled(t *testing.T) {
	handler := NewRunHandler(nil)

	c, _ := newContext(http.MethodGet, "/api/runs", nil, nil)
	expectAPIError(t, handler.HandleListRuns(c), http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE")

	c, _ = newContext(http.MethodGet, "/", nil, map[string]string{"runId": "run-1"})
	expectAPIError(t, handler.HandleGetRunRecords(c), http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE")
}

func TestRunHandler_HandleListRuns(t *testing.T) {
	runs, id := seededRunStore(t)
	handler := NewRunHandler(runs)

	c, rec := newContext(http.MethodGet, "/api/runs", nil, nil)
	require.NoError(t, handler.HandleListRuns(c))

	var list []parser.StoredRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
	assert.Equal(t, 3, list[0].RecordCount)
}

func TestRunHandler_HandleGetRunRecords(t *testing.T) {
	runs, id := seededRunStore(t)
	handler := NewRunHandler(runs)

	tests := []struct {
		name      string
		target    string
		runID     string
		wantCount int
		errStatus int
		errCode   string
	}{
		{name: "all records", target: "/", runID: id, wantCount: 3},
		{name: "rfc3339 range", target: "/?start=2024-03-15T12:30:00Z&end=2024-03-15T14:00:00Z", runID: id, wantCount: 2},
		{name: "open end", target: "/?start=2024-03-15T13:00:00Z", runID: id, wantCount: 2},
		{name: "unix millis", target: "/?end=" + formatMillis(runStart.Add(time.Minute)), runID: id, wantCount: 1},
		{name: "bad start", target: "/?start=yesterday", runID: id, errStatus: http.StatusBadRequest, errCode: "VALIDATION_ERROR"},
		{name: "inverted range", target: "/?start=2024-03-15T14:00:00Z&end=2024-03-15T12:00:00Z", runID: id, errStatus: http.StatusBadRequest, errCode: "BAD_REQUEST"},
		{name: "unknown run", target: "/", runID: "run-404", errStatus: http.StatusNotFound, errCode: "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext(http.MethodGet, tt.target, nil, map[string]string{"runId": tt.runID})
			err := handler.HandleGetRunRecords(c)

			if tt.errCode != "" {
				expectAPIError(t, err, tt.errStatus, tt.errCode)
				return
			}
			require.NoError(t, err)

			var resp struct {
				Run     parser.StoredRun       `json:"run"`
				Count   int                    `json:"count"`
				Records []models.DecodedRecord `json:"records"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, id, resp.Run.ID)
			assert.Equal(t, tt.wantCount, resp.Count)
			assert.Len(t, resp.Records, tt.wantCount)
		})
	}
}

func TestRunHandler_HandleDeleteRun(t *testing.T) {
	runs, id := seededRunStore(t)
	handler := NewRunHandler(runs)

	c, rec := newContext(http.MethodDelete, "/", nil, map[string]string{"runId": id})
	require.NoError(t, handler.HandleDeleteRun(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, runs.runs)

	c, _ = newContext(http.MethodDelete, "/", nil, map[string]string{"runId": id})
	expectAPIError(t, handler.HandleDeleteRun(c), http.StatusNotFound, "NOT_FOUND")
}

func formatMillis(ts time.Time) string {
	return strconv.FormatInt(ts.UnixMilli(), 10)
}
