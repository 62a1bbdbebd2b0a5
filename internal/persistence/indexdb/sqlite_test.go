package indexdb

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func TestSQLiteIndex_TickAndAssignments(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.db")

	idx, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	idx.WriteTick(TickRow{Tick: 7, Agents: 4, Proposals: 2, Executed: 4, MovesIssued: 3, MovesSkipped: 0, CPUUsed: 1.5})
	idx.WriteAssignment(AssignmentRow{Tick: 7, AgentID: "u1", Role: "hauler", Kind: "DELIVER_TO_STRUCTURE", Target: "spawn1", Reserved: 50})
	idx.WriteAssignment(AssignmentRow{Tick: 7, AgentID: "u2", Role: "builder", Kind: "BUILD", Target: "site1", Reserved: 40})

	// Writes are async; Close drains the queue.
	time.Sleep(20 * time.Millisecond)
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()

	var (
		agents  int
		cpuUsed float64
	)
	row := db.QueryRow(`SELECT agents,cpu_used FROM ticks WHERE tick=7`)
	if err := row.Scan(&agents, &cpuUsed); err != nil {
		t.Fatalf("Scan ticks: %v", err)
	}
	if agents != 4 || cpuUsed != 1.5 {
		t.Fatalf("tick row mismatch: agents=%d cpu=%v", agents, cpuUsed)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM assignments WHERE tick=7`).Scan(&n); err != nil {
		t.Fatalf("Scan assignments: %v", err)
	}
	if n != 2 {
		t.Fatalf("assignments = %d, want 2", n)
	}

	var kind, target string
	row = db.QueryRow(`SELECT kind,target FROM assignments WHERE agent_id='u1'`)
	if err := row.Scan(&kind, &target); err != nil {
		t.Fatalf("Scan assignment: %v", err)
	}
	if kind != "DELIVER_TO_STRUCTURE" || target != "spawn1" {
		t.Fatalf("assignment mismatch: kind=%q target=%q", kind, target)
	}
}

func TestSQLiteIndex_NilReceiverNoops(t *testing.T) {
	var idx *SQLiteIndex
	idx.WriteTick(TickRow{Tick: 1})
	idx.WriteAssignment(AssignmentRow{Tick: 1})
	if n, err := idx.TickCount(); err != nil || n != 0 {
		t.Fatalf("nil index: n=%d err=%v", n, err)
	}
}
