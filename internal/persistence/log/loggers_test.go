package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func TestAuditLoggerRoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewAuditLogger(dir)

	entries := []AuditEntry{
		{Tick: 1, AgentID: "u1", Role: "hauler", Event: EventAssign, Kind: "TAKE_FROM_PILE", Target: "pile1", Reserved: 50},
		{Tick: 2, AgentID: "u1", Role: "hauler", Event: EventComplete, Kind: "TAKE_FROM_PILE", Target: "pile1"},
		{Tick: 2, AgentID: "u2", Event: EventDestroy},
	}
	for _, e := range entries {
		if err := l.Write(e); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "audit", "audit-*.jsonl.zst"))
	if err != nil || len(files) != 1 {
		t.Fatalf("audit files = %v (err %v), want exactly one", files, err)
	}

	f, err := os.Open(files[0])
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()

	var got []AuditEntry
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var e AuditEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("line %d: %v", len(got), err)
		}
		got = append(got, e)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("got %d entries, want %d", len(got), len(entries))
	}
	for i := range entries {
		if got[i] != entries[i] {
			t.Fatalf("entry %d mismatch: got %+v want %+v", i, got[i], entries[i])
		}
	}
}

func TestSegmentLayoutControlsFileNaming(t *testing.T) {
	segName := func(t *testing.T, layout string) string {
		t.Helper()
		dir := t.TempDir()
		w := NewJSONLZstdWriter(dir, "trail", layout)
		if err := w.Write(AuditEntry{Tick: 1, AgentID: "u1", Event: EventRegister}); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		files, err := filepath.Glob(filepath.Join(dir, "trail-*.jsonl.zst"))
		if err != nil || len(files) != 1 {
			t.Fatalf("files = %v (err %v), want exactly one", files, err)
		}
		base := filepath.Base(files[0])
		return base[len("trail-") : len(base)-len(".jsonl.zst")]
	}

	if seg := segName(t, SegmentDaily); len(seg) != len(SegmentDaily) {
		t.Fatalf("daily segment %q does not match layout %q", seg, SegmentDaily)
	}
	// Empty layout defaults to hourly.
	if seg := segName(t, ""); len(seg) != len(SegmentHourly) {
		t.Fatalf("default segment %q does not match layout %q", seg, SegmentHourly)
	}
}

func TestNilAuditLoggerDiscards(t *testing.T) {
	var l *AuditLogger
	if err := l.Write(AuditEntry{Tick: 1}); err != nil {
		t.Fatalf("nil Write: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("nil Close: %v", err)
	}
}
