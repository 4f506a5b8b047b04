package sink

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/ghalamif/ProbeFlow/internal/domain"
	"github.com/ghalamif/ProbeFlow/internal/ports"
)

// Dialect selects placeholder and DDL syntax.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite3"
)

// DialectForDriver maps a database/sql driver name to its dialect.
func DialectForDriver(driver string) (Dialect, error) {
	switch driver {
	case "postgres", "pgx":
		return Postgres, nil
	case "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("unsupported archive driver %q", driver)
	}
}

const sampleColumns = "probe_serial, session_id, seq, observed_at, t1, t2, t3, t4, t5, t6, t7, t8"

// SampleArchive stores raw samples. Rows are keyed by (probe, session, seq), so
// replaying the journal after a crash does not duplicate them.
type SampleArchive struct {
	db        *sql.DB
	tableName string
	dialect   Dialect
}

func NewSampleArchive(db *sql.DB, table string, dialect Dialect) *SampleArchive {
	return &SampleArchive{db: db, tableName: table, dialect: dialect}
}

func (a *SampleArchive) Name() string { return "sql-archive/" + string(a.dialect) }

// EnsureSchema creates the archive table if it does not exist.
func (a *SampleArchive) EnsureSchema() error {
	ts := "TIMESTAMPTZ"
	if a.dialect == SQLite {
		ts = "TIMESTAMP"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (", a.tableName)
	b.WriteString("probe_serial BIGINT NOT NULL, session_id BIGINT NOT NULL, seq BIGINT NOT NULL, ")
	fmt.Fprintf(&b, "observed_at %s NOT NULL, ", ts)
	for i := 1; i <= domain.ChannelCount; i++ {
		fmt.Fprintf(&b, "t%d DOUBLE PRECISION NOT NULL, ", i)
	}
	b.WriteString("PRIMARY KEY (probe_serial, session_id, seq))")
	_, err := a.db.Exec(b.String())
	return err
}

func (a *SampleArchive) WriteBatch(events []*domain.Event) error {
	const perRow = 4 + domain.ChannelCount

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(a.tableName)
	b.WriteString(" (" + sampleColumns + ") VALUES ")

	args := make([]any, 0, len(events)*perRow)
	rows := 0
	for _, e := range events {
		if e == nil || e.Kind != domain.EventSampleRecorded || e.Sample == nil {
			continue
		}
		if rows > 0 {
			b.WriteString(",")
		}
		b.WriteString("(")
		for i := 0; i < perRow; i++ {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString(a.placeholder(len(args) + i + 1))
		}
		b.WriteString(")")

		args = append(args,
			int64(e.ProbeSerial),
			int64(e.SessionID),
			int64(e.Sample.SequenceNumber),
			e.ObservedAt.UTC(),
		)
		for _, v := range e.Sample.Temperatures {
			args = append(args, v)
		}
		rows++
	}
	if rows == 0 {
		return nil
	}

	b.WriteString(" ON CONFLICT (probe_serial, session_id, seq) DO NOTHING")

	_, err := a.db.Exec(b.String(), args...)
	return err
}

func (a *SampleArchive) placeholder(n int) string {
	if a.dialect == SQLite {
		return "?"
	}
	return fmt.Sprintf("$%d", n)
}

var _ ports.Sink = (*SampleArchive)(nil)
