package sink

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/ghalamif/ProbeFlow/internal/domain"
)

func sampleEvent(t *testing.T, seq uint32, at time.Time) *domain.Event {
	t.Helper()
	s, err := domain.NewSample(seq, []float64{1, 2, 3, 4, 5, 6, 7, 8})
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	return domain.SampleEvent(0x10AB, 2, s, at)
}

func TestSampleArchiveWriteBatchPostgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	archive := NewSampleArchive(db, "probe_samples", Postgres)
	ts := time.Unix(1700000000, 0)

	events := []*domain.Event{
		{Kind: domain.EventSessionStarted, ProbeSerial: 0x10AB, SessionID: 2, SamplePeriodMs: 1000},
		sampleEvent(t, 5, ts),
	}

	expectedQuery := regexp.QuoteMeta("INSERT INTO probe_samples (probe_serial, session_id, seq, observed_at, t1, t2, t3, t4, t5, t6, t7, t8) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12) ON CONFLICT (probe_serial, session_id, seq) DO NOTHING")
	mock.ExpectExec(expectedQuery).
		WithArgs(int64(0x10AB), int64(2), int64(5), ts.UTC(), 1.0, 2.0, 3.0, 4.0, 5.0, 6.0, 7.0, 8.0).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := archive.WriteBatch(events); err != nil {
		t.Fatalf("write batch: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSampleArchiveWriteBatchSQLitePlaceholders(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	archive := NewSampleArchive(db, "probe_samples", SQLite)
	ts := time.Unix(1700000000, 0)

	row := "(" + strings.TrimSuffix(strings.Repeat("?,", 12), ",") + ")"
	expected := "INSERT INTO probe_samples (" + sampleColumns + ") VALUES " + row + "," + row +
		" ON CONFLICT (probe_serial, session_id, seq) DO NOTHING"
	mock.ExpectExec(expected).WillReturnResult(sqlmock.NewResult(2, 2))

	if err := archive.WriteBatch([]*domain.Event{sampleEvent(t, 1, ts), sampleEvent(t, 2, ts)}); err != nil {
		t.Fatalf("write batch: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSampleArchiveWriteBatchNoSamples(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	archive := NewSampleArchive(db, "probe_samples", Postgres)
	if err := archive.WriteBatch(nil); err != nil {
		t.Fatalf("expected nil error for empty batch, got %v", err)
	}
	retired := &domain.Event{Kind: domain.EventSessionRetired, SessionID: 1}
	if err := archive.WriteBatch([]*domain.Event{retired}); err != nil {
		t.Fatalf("expected nil error for batch without samples, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSampleArchiveEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS probe_samples \(.*observed_at TIMESTAMPTZ.*t8 DOUBLE PRECISION.*PRIMARY KEY \(probe_serial, session_id, seq\)\)`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := NewSampleArchive(db, "probe_samples", Postgres).EnsureSchema(); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSampleArchiveName(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	archive := NewSampleArchive(db, "probe_samples", SQLite)
	if archive.Name() != "sql-archive/sqlite3" {
		t.Fatalf("unexpected archive name %s", archive.Name())
	}
	if d, err := DialectForDriver("pgx"); err != nil || d != Postgres {
		t.Fatalf("expected pgx to map to postgres, got %s %v", d, err)
	}
	if _, err := DialectForDriver("mysql"); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}
