package api

import (
	"context"
	"fmt"
	"io"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/trendlog-viewer/backend/internal/models"
	"github.com/trendlog-viewer/backend/internal/parser"
	"github.com/trendlog-viewer/backend/internal/session"
	"github.com/trendlog-viewer/backend/internal/testutil"
)

const sampleID = "cap-1"

// newSampleSessions returns a session manager whose store holds SampleCapture as cap-1.
func newSampleSessions() (*session.Manager, *testutil.MockStorage) {
	store := testutil.NewMockStorage()
	store.AddFile(sampleID, "site.yaml", []byte(testutil.SampleCapture))
	return session.NewManager(store, nil), store
}

// newContext builds an echo context with the given path parameters.
func newContext(method, target string, body io.Reader, params map[string]string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, body)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	values := make([]string, len(names))
	for i, name := range names {
		values[i] = params[name]
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	return c, rec
}

// expectAPIError checks that err is an *APIError with the given status and code.
func expectAPIError(t *testing.T, err error, status int, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %s, got nil", code)
	}
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if apiErr.Status != status {
		t.Errorf("expected status %d, got %d (%s)", status, apiErr.Status, apiErr.Message)
	}
	if apiErr.Code != code {
		t.Errorf("expected error code %s, got %s", code, apiErr.Code)
	}
}

// memoryRunStore is an in-memory RunStore.
type memoryRunStore struct {
	mu     sync.Mutex
	runs   map[string]*parser.StoredRun
	series map[string]*models.DecodedSeries
	next   int
}

func newMemoryRunStore() *memoryRunStore {
	return &memoryRunStore{
		runs:   make(map[string]*parser.StoredRun),
		series: make(map[string]*models.DecodedSeries),
	}
}

func (m *memoryRunStore) SaveSeries(_ context.Context, captureID string, props models.TrendLogProperties, series *models.DecodedSeries) (*parser.StoredRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	run := &parser.StoredRun{
		ID:          fmt.Sprintf("run-%d", m.next),
		CaptureID:   captureID,
		ObjectID:    props.ObjectID,
		ObjectName:  props.ObjectName,
		RecordCount: series.Len(),
		StoredAt:    time.Now().UTC(),
	}
	m.runs[run.ID] = run
	m.series[run.ID] = series
	return run, nil
}

func (m *memoryRunStore) Runs(context.Context) ([]parser.StoredRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]parser.StoredRun, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memoryRunStore) Run(_ context.Context, id string) (*parser.StoredRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, nil
	}
	c := *r
	return &c, nil
}

func (m *memoryRunStore) QueryRange(_ context.Context, id string, start, end time.Time) (*models.DecodedSeries, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.DecodedRecord
	for _, r := range m.series[id].Raw() {
		if !start.IsZero() && r.Timestamp.Before(start) {
			continue
		}
		if !end.IsZero() && r.Timestamp.After(end) {
			continue
		}
		out = append(out, r)
	}
	return models.NewDecodedSeries(out), nil
}

func (m *memoryRunStore) DeleteRun(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[id]; !ok {
		return fmt.Errorf("run not found: %s", id)
	}
	delete(m.runs, id)
	delete(m.series, id)
	return nil
}

var _ RunStore = (*memoryRunStore)(nil)
var _ RunStore = (*parser.DuckStore)(nil)
var _ SessionManager = (*session.Manager)(nil)
