// Package export renders a reconstructed probe timeline as a delimited text table
// preceded by a metadata header, and writes it to a uniquely named file.
package export

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ghalamif/ProbeFlow/internal/domain"
	"github.com/ghalamif/ProbeFlow/internal/timeline"
)

const (
	Title         = "Probe Data"
	FormatVersion = 2

	// Placeholder is shown for identity fields the probe has not reported.
	Placeholder = "??"

	headerDateLayout = "2006-01-02 15:04:05"
	fileDateLayout   = "2006-01-02 15_04_05"
)

// Mode selects the table column set.
type Mode uint8

const (
	// Combined lists every session with anchor-relative timestamps.
	Combined Mode = iota
	// Simple lists a single session by sequence number only.
	Simple
)

func (m Mode) String() string {
	if m == Simple {
		return "simple"
	}
	return "combined"
}

// ParseMode accepts "combined" and "simple".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "combined":
		return Combined, nil
	case "simple", "session":
		return Simple, nil
	default:
		return Combined, fmt.Errorf("unknown export mode %q", s)
	}
}

// Columns returns the table header fields for the mode.
func (m Mode) Columns() []string {
	cols := make([]string, 0, 3+domain.ChannelCount)
	if m == Combined {
		cols = append(cols, "Timestamp", "SessionID")
	}
	cols = append(cols, "SequenceNumber")
	for i := 0; i < domain.ChannelCount; i++ {
		cols = append(cols, domain.ChannelLabel(i))
	}
	return cols
}

// Metadata is the header block of an export.
type Metadata struct {
	Probe      domain.ProbeIdentity
	ExportedAt time.Time
	AppVersion string
}

// Document is a fully materialized export ready to be written.
type Document struct {
	Meta Metadata
	Mode Mode
	Rows []timeline.Row
}

// NewCombined exports every session of the snapshot. Row count always equals the
// snapshot's sample count; timestamps follow Reconstructor.Relative.
func NewCombined(r *timeline.Reconstructor, meta Metadata) *Document {
	return &Document{Meta: meta, Mode: Combined, Rows: r.Rows()}
}

// NewSimple exports a single session.
func NewSimple(r *timeline.Reconstructor, sessionID uint32, meta Metadata) (*Document, error) {
	rows, ok := r.SessionRows(sessionID)
	if !ok {
		return nil, fmt.Errorf("export session %d: %w", sessionID, domain.ErrUnknownSession)
	}
	return &Document{Meta: meta, Mode: Simple, Rows: rows}, nil
}

// Filename is "Probe Data - <serial hex> - <yyyy-MM-dd HH_mm_ss>.csv".
func (d *Document) Filename() string {
	return fmt.Sprintf("%s - %s - %s.csv", Title, d.Meta.Probe.SerialHex(), d.Meta.ExportedAt.Format(fileDateLayout))
}

// WriteTo writes header, blank line, then the table. Lines are joined with "\n".
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	bw := bufio.NewWriter(cw)

	lines := d.headerLines()
	lines = append(lines, "", strings.Join(d.Mode.Columns(), ","))
	for i, line := range lines {
		if i > 0 {
			bw.WriteByte('\n')
		}
		bw.WriteString(line)
	}

	buf := make([]byte, 0, 128)
	for _, row := range d.Rows {
		buf = buf[:0]
		buf = append(buf, '\n')
		buf = appendRow(buf, d.Mode, row)
		if _, err := bw.Write(buf); err != nil {
			return cw.n, err
		}
	}
	if err := bw.Flush(); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

func (d *Document) String() string {
	var b strings.Builder
	_, _ = d.WriteTo(&b)
	return b.String()
}

func (d *Document) headerLines() []string {
	p := d.Meta.Probe
	return []string{
		Title,
		fmt.Sprintf("CSV version: %d", FormatVersion),
		"Probe S/N: " + p.SerialHex(),
		"Probe FW version: " + orPlaceholder(p.FirmwareVersion),
		"Probe HW revision: " + orPlaceholder(p.HardwareRevision),
		d.Meta.ExportedAt.Format(headerDateLayout),
		"App version: " + orPlaceholder(nonEmpty(d.Meta.AppVersion)),
	}
}

func appendRow(buf []byte, mode Mode, row timeline.Row) []byte {
	if mode == Combined {
		buf = strconv.AppendInt(buf, row.Timestamp, 10)
		buf = append(buf, ',')
		buf = strconv.AppendUint(buf, uint64(row.SessionID), 10)
		buf = append(buf, ',')
	}
	buf = strconv.AppendUint(buf, uint64(row.SequenceNumber), 10)
	for _, v := range row.Temperatures {
		buf = append(buf, ',')
		buf = strconv.AppendFloat(buf, v, 'f', 2, 64)
	}
	return buf
}

func orPlaceholder(s *string) string {
	if s == nil {
		return Placeholder
	}
	return *s
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
