// Package log writes the scheduler's append-only audit trail: compressed
// JSONL files rotated on a configurable time segment. These files are the
// durable record; the sqlite index is derived and disposable.
package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// AuditEntry records one scheduling event: a task entering a queue, a
// task leaving it, or an agent appearing or disappearing.
type AuditEntry struct {
	Tick     uint64 `json:"tick"`
	AgentID  string `json:"agent_id"`
	Role     string `json:"role,omitempty"`
	Event    string `json:"event"`
	Kind     string `json:"kind,omitempty"`
	Target   string `json:"target,omitempty"`
	Reserved int    `json:"reserved,omitempty"`
}

const (
	EventAssign    = "assign"
	EventComplete  = "complete"
	EventDestroy   = "destroy"
	EventRegister  = "register"
	EventSpawnSent = "spawn_sent"
)

// Segment layouts: the formatted UTC time names the output file, so its
// granularity sets the rotation period.
const (
	SegmentHourly = "2006-01-02-15"
	SegmentDaily  = "2006-01-02"
)

// JSONLZstdWriter appends JSON lines to zstd-compressed files, starting a
// new file whenever the formatted segment of the current time changes.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string
	layout  string

	mu  sync.Mutex
	cur string
	f   *os.File
	enc *zstd.Encoder
	buf *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix, layout string) *JSONLZstdWriter {
	if layout == "" {
		layout = SegmentHourly
	}
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		layout:  layout,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	seg := time.Now().UTC().Format(w.layout)
	if seg != w.cur {
		if err := w.rotateLocked(seg); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.buf.Write(b); err != nil {
		return err
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return err
	}
	return w.buf.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(seg string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	path := w.segmentPath(seg)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.buf = bufio.NewWriterSize(enc, 128*1024)
	w.cur = seg
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.buf != nil {
		_ = w.buf.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.buf = nil
	return err1
}

func (w *JSONLZstdWriter) segmentPath(seg string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, seg))
}

// AuditLogger writes scheduling audit entries (compressed). A nil logger
// discards writes so the audit trail can be disabled. Daily segments:
// the scheduler emits a handful of events per agent per tick, a small
// fraction of a raw world event stream.
type AuditLogger struct{ w *JSONLZstdWriter }

func NewAuditLogger(dataDir string) *AuditLogger {
	return &AuditLogger{w: NewJSONLZstdWriter(filepath.Join(dataDir, "audit"), "audit", SegmentDaily)}
}

func (l *AuditLogger) Write(e AuditEntry) error {
	if l == nil {
		return nil
	}
	return l.w.Write(e)
}

func (l *AuditLogger) Close() error {
	if l == nil {
		return nil
	}
	return l.w.Close()
}
