package parser

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marcboeker/go-duckdb"
	"github.com/trendlog-viewer/backend/internal/models"
)

// DuckOptions tunes the DuckDB connection.
type DuckOptions struct {
	Threads     int
	MemoryLimit string // e.g. "1GB"
}

// DefaultDuckOptions mirrors the settings used for large log buffers.
func DefaultDuckOptions() DuckOptions {
	return DuckOptions{Threads: 4, MemoryLimit: "1GB"}
}

// StoredRun describes one decoded series written to the store.
type StoredRun struct {
	ID          string                  `json:"id"`
	CaptureID   string                  `json:"captureId"`
	ObjectID    models.ObjectIdentifier `json:"objectId"`
	ObjectName  string                  `json:"objectName"`
	RecordCount int                     `json:"recordCount"`
	StoredAt    time.Time               `json:"storedAt"`
}

// DuckStore persists decoded trend log series in a DuckDB file so that long
// histories can be range-queried without decoding the capture again.
type DuckStore struct {
	db        *sql.DB
	dbPath    string
	batchSize int

	// Semaphore to limit concurrent queries
	querySem chan struct{}
}

// NewDuckStore opens (or creates) trendlogs.duckdb in dir.
func NewDuckStore(dir string, opts DuckOptions) (*DuckStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	return NewDuckStoreAtPath(filepath.Join(dir, "trendlogs.duckdb"), opts)
}

// NewDuckStoreAtPath opens (or creates) the store at dbPath.
func NewDuckStoreAtPath(dbPath string, opts DuckOptions) (*DuckStore, error) {
	fmt.Printf("[DuckStore] Opening database at: %s\n", dbPath)

	if opts.Threads <= 0 {
		opts.Threads = DefaultDuckOptions().Threads
	}
	if opts.MemoryLimit == "" {
		opts.MemoryLimit = DefaultDuckOptions().MemoryLimit
	}

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			fmt.Sprintf("PRAGMA memory_limit='%s'", opts.MemoryLimit),
			fmt.Sprintf("PRAGMA threads=%d", opts.Threads),
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				fmt.Printf("[DuckStore] Pragma error: %v\n", err)
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)

	schema := []string{
		`CREATE TABLE IF NOT EXISTS trend_runs (
			run_id          VARCHAR PRIMARY KEY,
			capture_id      VARCHAR NOT NULL,
			object_type     VARCHAR NOT NULL,
			object_instance BIGINT NOT NULL,
			object_name     VARCHAR,
			record_count    INTEGER NOT NULL,
			stored_at       BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS trend_records (
			run_id         VARCHAR NOT NULL,
			seq            INTEGER NOT NULL,
			timestamp      BIGINT NOT NULL,
			choice         VARCHAR NOT NULL,
			val_bool       BOOLEAN,
			val_int        BIGINT,
			val_float      DOUBLE,
			val_str        VARCHAR,
			in_alarm       BOOLEAN NOT NULL,
			fault          BOOLEAN NOT NULL,
			overridden     BOOLEAN NOT NULL,
			out_of_service BOOLEAN NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_run_ts ON trend_records(run_id, timestamp)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	fmt.Printf("[DuckStore] Ready (threads=%d, memory_limit=%s)\n", opts.Threads, opts.MemoryLimit)
	return &DuckStore{
		db:        db,
		dbPath:    dbPath,
		batchSize: 50000,
		querySem:  make(chan struct{}, 3), // Max 3 concurrent queries
	}, nil
}

// Path returns the database file path.
func (ds *DuckStore) Path() string {
	return ds.dbPath
}

// SaveSeries writes series as a new run and returns the run metadata.
func (ds *DuckStore) SaveSeries(ctx context.Context, captureID string, props models.TrendLogProperties, series *models.DecodedSeries) (*StoredRun, error) {
	run := &StoredRun{
		ID:          uuid.New().String(),
		CaptureID:   captureID,
		ObjectID:    props.ObjectID,
		ObjectName:  props.ObjectName,
		RecordCount: series.Len(),
		StoredAt:    time.Now().UTC(),
	}

	start := time.Now()
	if err := ds.appendRecords(ctx, run.ID, series.Raw()); err != nil {
		ds.deleteRecords(ctx, run.ID)
		return nil, err
	}

	_, err := ds.db.ExecContext(ctx,
		`INSERT INTO trend_runs VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CaptureID, run.ObjectID.Type, int64(run.ObjectID.Instance),
		run.ObjectName, run.RecordCount, run.StoredAt.UnixMicro(),
	)
	if err != nil {
		ds.deleteRecords(ctx, run.ID)
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	fmt.Printf("[DuckStore] Stored run %s (%s, %d records) in %v\n",
		run.ID, run.ObjectID, run.RecordCount, time.Since(start))
	return run, nil
}

// appendRecords writes records using the native Appender API, flushing every batchSize rows.
func (ds *DuckStore) appendRecords(ctx context.Context, runID string, records []models.DecodedRecord) error {
	if len(records) == 0 {
		return nil
	}

	conn, err := ds.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	err = conn.Raw(func(driverConn interface{}) error {
		dConn, ok := driverConn.(*duckdb.Conn)
		if !ok {
			return fmt.Errorf("failed to cast to duckdb.Conn")
		}

		appender, err := duckdb.NewAppenderFromConn(dConn, "", "trend_records")
		if err != nil {
			return fmt.Errorf("failed to create appender: %w", err)
		}
		defer appender.Close()

		for i, rec := range records {
			v := encodeDatum(rec.Datum())
			err := appender.AppendRow(
				runID,
				int32(i),
				rec.Timestamp.UnixMicro(),
				string(rec.Choice),
				v.b,
				v.i,
				v.f,
				v.s,
				rec.Status.InAlarm,
				rec.Status.Fault,
				rec.Status.Overridden,
				rec.Status.OutOfService,
			)
			if err != nil {
				return fmt.Errorf("failed to append record %d: %w", i, err)
			}
			if (i+1)%ds.batchSize == 0 {
				if err := appender.Flush(); err != nil {
					return err
				}
			}
		}
		return appender.Flush()
	})
	if err != nil {
		return fmt.Errorf("appender error: %w", err)
	}
	return nil
}

// deleteRecords removes the records of a run. It ignores cancellation of ctx,
// which is often the reason a write is being rolled back.
func (ds *DuckStore) deleteRecords(ctx context.Context, runID string) {
	if _, err := ds.db.ExecContext(context.WithoutCancel(ctx), `DELETE FROM trend_records WHERE run_id = ?`, runID); err != nil {
		fmt.Printf("[DuckStore] Warning: cleanup of run %s failed: %v\n", runID, err)
	}
}

// Runs lists stored runs, newest first.
func (ds *DuckStore) Runs(ctx context.Context) ([]StoredRun, error) {
	rows, err := ds.db.QueryContext(ctx, `
		SELECT run_id, capture_id, object_type, object_instance, object_name, record_count, stored_at
		FROM trend_runs ORDER BY stored_at DESC, run_id
	`)
	if err != nil {
		return nil, fmt.Errorf("runs query failed: %w", err)
	}
	defer rows.Close()

	runs := make([]StoredRun, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Run returns one stored run, or nil if it does not exist.
func (ds *DuckStore) Run(ctx context.Context, runID string) (*StoredRun, error) {
	row := ds.db.QueryRowContext(ctx, `
		SELECT run_id, capture_id, object_type, object_instance, object_name, record_count, stored_at
		FROM trend_runs WHERE run_id = ?
	`, runID)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// QueryRange returns the records of a run with start <= timestamp <= end in
// the order the device delivered them. A zero start or end leaves that side open.
func (ds *DuckStore) QueryRange(ctx context.Context, runID string, start, end time.Time) (*models.DecodedSeries, error) {
	select {
	case ds.querySem <- struct{}{}:
		defer func() { <-ds.querySem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	query := `
		SELECT timestamp, choice, val_bool, val_int, val_float, val_str,
		       in_alarm, fault, overridden, out_of_service
		FROM trend_records WHERE run_id = ?`
	args := []interface{}{runID}
	if !start.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, start.UnixMicro())
	}
	if !end.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, end.UnixMicro())
	}
	query += " ORDER BY seq"

	rows, err := ds.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("range query failed: %w", err)
	}
	defer rows.Close()

	records := make([]models.DecodedRecord, 0, 1000)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return models.NewDecodedSeries(records), nil
}

// DeleteRun removes a run and its records.
func (ds *DuckStore) DeleteRun(ctx context.Context, runID string) error {
	res, err := ds.db.ExecContext(ctx, `DELETE FROM trend_runs WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}
	ds.deleteRecords(ctx, runID)
	return nil
}

// Close closes the database. The file is kept.
func (ds *DuckStore) Close() error {
	if ds.db != nil {
		return ds.db.Close()
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (StoredRun, error) {
	var run StoredRun
	var instance, storedAt int64
	var name sql.NullString
	err := row.Scan(&run.ID, &run.CaptureID, &run.ObjectID.Type, &instance, &name, &run.RecordCount, &storedAt)
	if err != nil {
		return StoredRun{}, err
	}
	run.ObjectID.Instance = uint32(instance)
	run.ObjectName = name.String
	run.StoredAt = time.UnixMicro(storedAt).UTC()
	return run, nil
}

func scanRecord(row scanner) (models.DecodedRecord, error) {
	var tsMicro int64
	var choice string
	var valBool sql.NullBool
	var valInt sql.NullInt64
	var valFloat sql.NullFloat64
	var valStr sql.NullString
	var status models.StatusFlags

	err := row.Scan(&tsMicro, &choice, &valBool, &valInt, &valFloat, &valStr,
		&status.InAlarm, &status.Fault, &status.Overridden, &status.OutOfService)
	if err != nil {
		return models.DecodedRecord{}, err
	}

	datum, err := decodeDatum(models.DatumChoice(choice), valBool.Bool, valInt.Int64, valFloat.Float64, valStr.String)
	if err != nil {
		return models.DecodedRecord{}, err
	}
	return models.NewDecodedRecord(time.UnixMicro(tsMicro).UTC(), datum, status), nil
}

// storedValue holds the column values of one datum; unused columns stay NULL.
type storedValue struct {
	b interface{}
	i interface{}
	f interface{}
	s interface{}
}

func encodeDatum(d models.LogDatum) storedValue {
	switch v := d.(type) {
	case models.BooleanDatum:
		return storedValue{b: bool(v)}
	case models.RealDatum:
		return storedValue{f: float64(v)}
	case models.TimeChangeDatum:
		return storedValue{f: float64(v)}
	case models.EnumeratedDatum:
		return storedValue{i: int64(v)}
	case models.UnsignedDatum:
		// Stored bit-for-bit; values above MaxInt64 read back unchanged.
		return storedValue{i: int64(v)}
	case models.SignedDatum:
		return storedValue{i: int64(v)}
	case models.BitStringDatum:
		return storedValue{s: bitsToString(v)}
	case models.LogStatus:
		return storedValue{s: bitsToString([]bool{v.LogDisabled, v.BufferPurged, v.LogInterrupted})}
	case models.FailureDatum:
		return storedValue{s: fmt.Sprintf("%d:%d", v.ErrorClass, v.ErrorCode)}
	case models.AnyDatum:
		return storedValue{s: hex.EncodeToString(v)}
	}
	return storedValue{}
}

func decodeDatum(choice models.DatumChoice, b bool, i int64, f float64, s string) (models.LogDatum, error) {
	switch choice {
	case models.ChoiceBoolean:
		return models.BooleanDatum(b), nil
	case models.ChoiceReal:
		return models.RealDatum(float32(f)), nil
	case models.ChoiceTimeChange:
		return models.TimeChangeDatum(float32(f)), nil
	case models.ChoiceEnumerated:
		return models.EnumeratedDatum(uint32(i)), nil
	case models.ChoiceUnsigned:
		return models.UnsignedDatum(uint64(i)), nil
	case models.ChoiceSigned:
		return models.SignedDatum(i), nil
	case models.ChoiceNull:
		return models.NullDatum{}, nil
	case models.ChoiceBitString:
		return models.BitStringDatum(stringToBits(s)), nil
	case models.ChoiceLogStatus:
		bits := stringToBits(s)
		if len(bits) != 3 {
			return nil, fmt.Errorf("stored log status %q: want 3 bits", s)
		}
		return models.LogStatus{LogDisabled: bits[0], BufferPurged: bits[1], LogInterrupted: bits[2]}, nil
	case models.ChoiceFailure:
		class, code, ok := strings.Cut(s, ":")
		if !ok {
			return nil, fmt.Errorf("stored failure %q: want class:code", s)
		}
		c1, err1 := strconv.ParseUint(class, 10, 32)
		c2, err2 := strconv.ParseUint(code, 10, 32)
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("stored failure %q: not numeric", s)
		}
		return models.FailureDatum{ErrorClass: uint32(c1), ErrorCode: uint32(c2)}, nil
	case models.ChoiceAny:
		raw, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("stored any value: %w", err)
		}
		return models.AnyDatum(raw), nil
	}
	return nil, fmt.Errorf("unknown stored choice: %q", choice)
}

func bitsToString(bits []bool) string {
	var b strings.Builder
	for _, set := range bits {
		if set {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

func stringToBits(s string) []bool {
	bits := make([]bool, len(s))
	for i := range s {
		bits[i] = s[i] == '1'
	}
	return bits
}
