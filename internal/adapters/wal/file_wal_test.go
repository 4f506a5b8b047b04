package wal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ghalamif/ProbeFlow/internal/domain"
	"github.com/ghalamif/ProbeFlow/internal/ports"
)

func TestFileWALAppendIterateAndReplay(t *testing.T) {
	dir := t.TempDir()

	w, err := NewFileWAL(dir)
	if err != nil {
		t.Fatalf("new wal: %v", err)
	}

	started := &domain.Event{Kind: domain.EventSessionStarted, ProbeSerial: 1, SessionID: 3, SamplePeriodMs: 1000}
	s, err := domain.NewSample(0, []float64{20, 21, 22, 23, 24, 25, 26, 27})
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	recorded := domain.SampleEvent(1, 3, s, time.Unix(1700000000, 0))

	id1, err := w.Append(started)
	if err != nil || id1 == 0 {
		t.Fatalf("append event 1: %v id=%d", err, id1)
	}
	id2, err := w.Append(recorded)
	if err != nil || id2 == 0 {
		t.Fatalf("append event 2: %v id=%d", err, id2)
	}

	var kinds []domain.EventKind
	if err := w.Iterate(1, func(id ports.WALEntryID, e *domain.Event) error {
		kinds = append(kinds, e.Kind)
		if e.Kind == domain.EventSampleRecorded && e.Sample.Temperatures[7] != 27 {
			t.Fatalf("sample payload not preserved: %+v", e.Sample)
		}
		return nil
	}); err != nil {
		t.Fatalf("iterate: %v", err)
	}
	if len(kinds) != 2 || kinds[0] != domain.EventSessionStarted {
		t.Fatalf("unexpected replay order: %v", kinds)
	}

	if err := w.Commit(id1); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close wal: %v", err)
	}

	// Reopen and ensure committed metadata was persisted.
	w2, err := NewFileWAL(dir)
	if err != nil {
		t.Fatalf("reopen wal: %v", err)
	}

	stats := w2.Stats()
	if stats.LatestAppended != id2 {
		t.Fatalf("expected latest appended %d, got %d", id2, stats.LatestAppended)
	}
	if stats.OldestUncommitted != id1+1 {
		t.Fatalf("expected oldest uncommitted %d, got %d", id1+1, stats.OldestUncommitted)
	}

	var replayed int
	if err := w2.Iterate(stats.OldestUncommitted, func(ports.WALEntryID, *domain.Event) error {
		replayed++
		return nil
	}); err != nil {
		t.Fatalf("iterate uncommitted: %v", err)
	}
	if replayed != 1 {
		t.Fatalf("expected 1 uncommitted event, got %d", replayed)
	}

	if err := w2.Close(); err != nil {
		t.Fatalf("close wal2: %v", err)
	}

	// A torn tail from a crash must be cut off on the next open.
	path := filepath.Join(dir, "events.log")
	before, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if err := appendGarbage(path); err != nil {
		t.Fatalf("append garbage: %v", err)
	}

	w3, err := NewFileWAL(dir)
	if err != nil {
		t.Fatalf("reopen after garbage: %v", err)
	}
	defer w3.Close()

	after, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if after.Size() != before.Size() {
		t.Fatalf("expected torn tail truncated to %d bytes, got %d", before.Size(), after.Size())
	}
	if id, err := w3.Append(started); err != nil || id != id2+1 {
		t.Fatalf("append after recovery: id=%d err=%v", id, err)
	}
}

func appendGarbage(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write([]byte{0xFF, 0xAA})
	return err
}

func TestReadDirLeavesTornTailInPlace(t *testing.T) {
	dir := t.TempDir()
	w, err := NewFileWAL(dir)
	if err != nil {
		t.Fatalf("new wal: %v", err)
	}
	for i := uint32(1); i <= 3; i++ {
		if _, err := w.Append(&domain.Event{Kind: domain.EventSessionStarted, ProbeSerial: 1, SessionID: i, SamplePeriodMs: 1000}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close wal: %v", err)
	}

	// a writer that has only flushed part of the next record
	path := filepath.Join(dir, "events.log")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	if _, err := f.Write([]byte{0, 0, 0, 0, 0, 0, 0, 4, 0, 0, 0, 40, '{'}); err != nil {
		t.Fatalf("write partial record: %v", err)
	}
	f.Close()
	before, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}

	var sessions []uint32
	if err := ReadDir(dir, 2, func(_ ports.WALEntryID, e *domain.Event) error {
		sessions = append(sessions, e.SessionID)
		return nil
	}); err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(sessions) != 2 || sessions[0] != 2 || sessions[1] != 3 {
		t.Fatalf("expected sessions 2 and 3, got %v", sessions)
	}

	after, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if after.Size() != before.Size() {
		t.Fatalf("journal must not be truncated: %d -> %d bytes", before.Size(), after.Size())
	}

	if err := ReadDir(filepath.Join(dir, "missing"), 1, func(ports.WALEntryID, *domain.Event) error {
		t.Fatalf("missing journal must yield nothing")
		return nil
	}); err != nil {
		t.Fatalf("read missing dir: %v", err)
	}
}
