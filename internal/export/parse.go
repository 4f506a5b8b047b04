package export

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ghalamif/ProbeFlow/internal/domain"
	"github.com/ghalamif/ProbeFlow/internal/timeline"
)

var ErrBadFormat = errors.New("unrecognized export format")

// Parsed is an export read back from disk.
type Parsed struct {
	Version int
	Meta    Metadata
	Mode    Mode
	Rows    []timeline.Row
}

// Parse reads a document produced by WriteTo. Temperatures come back with the
// two-decimal precision they were written with.
func Parse(r io.Reader) (*Parsed, error) {
	br := bufio.NewReader(r)
	out := &Parsed{}

	headerDone := false
	for lineNo := 1; ; lineNo++ {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if lineNo == 1 && line != Title {
			return nil, fmt.Errorf("%w: missing title line", ErrBadFormat)
		}
		if line == "" && lineNo > 1 {
			headerDone = true
			break
		}
		if lineNo > 1 {
			if perr := out.parseHeaderLine(line); perr != nil {
				return nil, fmt.Errorf("header line %d: %w", lineNo, perr)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
	}
	if !headerDone {
		return nil, fmt.Errorf("%w: missing table", ErrBadFormat)
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cols, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: table header: %v", ErrBadFormat, err)
	}
	switch strings.Join(cols, ",") {
	case strings.Join(Combined.Columns(), ","):
		out.Mode = Combined
	case strings.Join(Simple.Columns(), ","):
		out.Mode = Simple
	default:
		return nil, fmt.Errorf("%w: table header %q", ErrBadFormat, strings.Join(cols, ","))
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row, err := parseRow(out.Mode, rec)
		if err != nil {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("table line %d: %w", line, err)
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

func (p *Parsed) parseHeaderLine(line string) error {
	key, val, ok := strings.Cut(line, ": ")
	if !ok {
		t, err := time.ParseInLocation(headerDateLayout, line, time.Local)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrBadFormat, line)
		}
		p.Meta.ExportedAt = t
		return nil
	}
	switch key {
	case "CSV version":
		v, err := strconv.Atoi(val)
		if err != nil {
			return err
		}
		p.Version = v
	case "Probe S/N":
		sn, err := strconv.ParseUint(strings.TrimSpace(val), 16, 32)
		if err != nil {
			return err
		}
		p.Meta.Probe.SerialNumber = uint32(sn)
	case "Probe FW version":
		p.Meta.Probe.FirmwareVersion = fromPlaceholder(val)
	case "Probe HW revision":
		p.Meta.Probe.HardwareRevision = fromPlaceholder(val)
	case "App version":
		if v := fromPlaceholder(val); v != nil {
			p.Meta.AppVersion = *v
		}
	}
	return nil
}

func parseRow(mode Mode, rec []string) (timeline.Row, error) {
	var row timeline.Row
	fixed := 1
	if mode == Combined {
		fixed = 3
	}
	if len(rec) != fixed+domain.ChannelCount {
		return row, fmt.Errorf("%w: %d fields, want %d", domain.ErrMalformedSample, len(rec), fixed+domain.ChannelCount)
	}
	if mode == Combined {
		ts, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			return row, err
		}
		sid, err := strconv.ParseUint(rec[1], 10, 32)
		if err != nil {
			return row, err
		}
		row.Timestamp = ts
		row.SessionID = uint32(sid)
	}
	seq, err := strconv.ParseUint(rec[fixed-1], 10, 32)
	if err != nil {
		return row, err
	}
	temps := make([]float64, domain.ChannelCount)
	for i, f := range rec[fixed:] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return row, err
		}
		temps[i] = v
	}
	s, err := domain.NewSample(uint32(seq), temps)
	if err != nil {
		return row, err
	}
	row.SequenceNumber = s.SequenceNumber
	row.Temperatures = s.Temperatures
	return row, nil
}

func fromPlaceholder(v string) *string {
	if v == Placeholder || v == "" {
		return nil
	}
	return &v
}
