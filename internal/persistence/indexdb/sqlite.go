// Package indexdb maintains a queryable sqlite index of tick summaries
// and task assignments. It is a secondary artifact: writes are async and
// drop under pressure, the JSONL audit log remains the source of truth.
package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// TickRow summarizes one completed tick.
type TickRow struct {
	Tick         uint64  `json:"tick"`
	Agents       int     `json:"agents"`
	Proposals    int     `json:"proposals"`
	Executed     int     `json:"executed"`
	MovesIssued  int     `json:"moves_issued"`
	MovesSkipped int     `json:"moves_skipped"`
	CPUUsed      float64 `json:"cpu_used"`
}

// AssignmentRow records one task entering an agent's queue.
type AssignmentRow struct {
	Tick     uint64 `json:"tick"`
	AgentID  string `json:"agent_id"`
	Role     string `json:"role"`
	Kind     string `json:"kind"`
	Target   string `json:"target,omitempty"`
	Reserved int    `json:"reserved,omitempty"`
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqAssignment
)

type req struct {
	kind       reqKind
	tick       TickRow
	assignment AssignmentRow
}

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

func Open(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		// Sized for a burst of assignments when a whole colony re-proposes.
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits the append-only write pattern; NORMAL durability is fine
	// for a rebuildable index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			tick INTEGER PRIMARY KEY,
			agents INTEGER NOT NULL,
			proposals INTEGER NOT NULL,
			executed INTEGER NOT NULL,
			moves_issued INTEGER NOT NULL,
			moves_skipped INTEGER NOT NULL,
			cpu_used REAL NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS assignments (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			agent_id TEXT NOT NULL,
			role TEXT NOT NULL,
			kind TEXT NOT NULL,
			target TEXT,
			reserved INTEGER NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_assignments_agent_tick ON assignments(agent_id, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_assignments_kind_tick ON assignments(kind, tick);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// WriteTick queues a tick summary; drops silently when the indexer is
// behind or closed. Nil receiver is a no-op so callers can run with the
// index disabled.
func (s *SQLiteIndex) WriteTick(row TickRow) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqTick, tick: row}:
	default:
	}
}

func (s *SQLiteIndex) WriteAssignment(row AssignmentRow) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqAssignment, assignment: row}:
	default:
	}
}

// TickCount reports how many tick rows are indexed (admin/test helper).
func (s *SQLiteIndex) TickCount() (int, error) {
	if s == nil {
		return 0, nil
	}
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM ticks`).Scan(&n)
	return n, err
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(tick,agents,proposals,executed,moves_issued,moves_skipped,cpu_used) VALUES(?,?,?,?,?,?,?)`)
	insertAssignment, _ := s.db.Prepare(`INSERT OR REPLACE INTO assignments(tick,seq,agent_id,role,kind,target,reserved) VALUES(?,?,?,?,?,?,?)`)
	defer func() {
		if insertTick != nil {
			_ = insertTick.Close()
		}
		if insertAssignment != nil {
			_ = insertAssignment.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 1000
		commitMaxWait = 2 * time.Second

		lastAssignTick uint64
		assignSeq      int
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTick:
			if insertTick == nil {
				continue
			}
			row := r.tick
			if _, err := tx.Stmt(insertTick).Exec(
				int64(row.Tick),
				row.Agents,
				row.Proposals,
				row.Executed,
				row.MovesIssued,
				row.MovesSkipped,
				row.CPUUsed,
			); err != nil {
				rollback()
				continue
			}
			opCount++

		case reqAssignment:
			if insertAssignment == nil {
				continue
			}
			a := r.assignment
			if a.Tick != lastAssignTick {
				lastAssignTick = a.Tick
				assignSeq = 0
			}
			seq := assignSeq
			assignSeq++
			if _, err := tx.Stmt(insertAssignment).Exec(
				int64(a.Tick),
				seq,
				a.AgentID,
				a.Role,
				a.Kind,
				a.Target,
				a.Reserved,
			); err != nil {
				rollback()
				continue
			}
			opCount++
		}

		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}
