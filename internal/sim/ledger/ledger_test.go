package ledger

import (
	"math"
	"math/rand"
	"testing"

	"colonyd/internal/sim/tasks"
)

func TestLedger_ClaimReleaseCurrent(t *testing.T) {
	l := New()
	id := tasks.TakeFromPile("pile-1").Identity()

	if got := l.Current(id); got != 0 {
		t.Fatalf("fresh ledger current=%d want 0", got)
	}

	l.Claim(id, 50)
	l.Claim(id, 50)
	if got := l.Current(id); got != 100 {
		t.Fatalf("current=%d want 100", got)
	}

	l.Release(id, 40)
	if got := l.Current(id); got != 60 {
		t.Fatalf("current=%d want 60", got)
	}

	l.Release(id, 60)
	if got := l.Current(id); got != 0 {
		t.Fatalf("current=%d want 0", got)
	}
	if l.Len() != 0 {
		t.Fatalf("zero-value entry persisted, len=%d", l.Len())
	}
}

func TestLedger_SaturatingArithmetic(t *testing.T) {
	l := New()
	id := tasks.Build("site-1").Identity()

	// Over-release clips at zero and removes the entry.
	l.Claim(id, 10)
	l.Release(id, 25)
	if got := l.Current(id); got != 0 {
		t.Fatalf("over-release current=%d want 0", got)
	}
	if l.Len() != 0 {
		t.Fatalf("over-release left entry, len=%d", l.Len())
	}

	// Release with no claim is a no-op.
	l.Release(id, 5)
	if l.Len() != 0 {
		t.Fatalf("release-without-claim created entry")
	}

	// Claim near MaxInt saturates instead of wrapping.
	l.Claim(id, math.MaxInt-1)
	l.Claim(id, 100)
	if got := l.Current(id); got != math.MaxInt {
		t.Fatalf("saturated current=%d want MaxInt", got)
	}

	// Negative amounts are ignored on both sides.
	l.Claim(id, -3)
	l.Release(id, -3)
	if got := l.Current(id); got != math.MaxInt {
		t.Fatalf("negative amounts mutated ledger: %d", got)
	}
}

// Conservation: for any sequence of claims and releases the ledger value
// equals sum(claims)-sum(releases) clipped at zero, and the identity is
// absent exactly when that value is zero.
func TestLedger_ConservationProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ids := []tasks.Identity{
		tasks.TakeFromPile("p1").Identity(),
		tasks.DeliverToStructure("s1", "energy").Identity(),
		tasks.Repair("s1").Identity(),
		tasks.HarvestUntilFull("src1").Identity(),
	}

	for trial := 0; trial < 200; trial++ {
		l := New()
		want := map[tasks.Identity]int{}
		for op := 0; op < 100; op++ {
			id := ids[rng.Intn(len(ids))]
			amt := rng.Intn(80) + 1
			if rng.Intn(2) == 0 {
				l.Claim(id, amt)
				want[id] += amt
			} else {
				l.Release(id, amt)
				want[id] -= amt
				if want[id] < 0 {
					want[id] = 0
				}
			}
		}
		entries := 0
		for id, w := range want {
			if got := l.Current(id); got != w {
				t.Fatalf("trial %d: current(%v)=%d want %d", trial, id, got, w)
			}
			if w > 0 {
				entries++
			}
		}
		if l.Len() != entries {
			t.Fatalf("trial %d: len=%d want %d (no zero entries)", trial, l.Len(), entries)
		}
	}
}

func TestLedger_EnterAndReplay(t *testing.T) {
	l := New()

	idle := l.Enter(tasks.IdleUntil(100), 5)
	if idle.Reserved != 0 {
		t.Fatalf("no-reservation kind got reserved=%d", idle.Reserved)
	}

	e1 := l.Enter(tasks.TakeFromPile("p1"), 50)
	e2 := l.Enter(tasks.TakeFromPile("p1"), 50)
	id := tasks.TakeFromPile("p1").Identity()
	if got := l.Current(id); got != 100 {
		t.Fatalf("current=%d want 100", got)
	}

	// Rebuild from the surviving entries only.
	l.Reset()
	l.Replay([]tasks.Entry{e1, idle})
	if got := l.Current(id); got != 50 {
		t.Fatalf("after replay current=%d want 50", got)
	}

	l.ReleaseEntry(e1)
	if l.Len() != 0 {
		t.Fatalf("release-entry left %d entries", l.Len())
	}
	_ = e2
}

// Every task kind must map to a reservation classification; a new kind
// that falls through to the default is caught here.
func TestTaskReservationKinds_Exhaustive(t *testing.T) {
	cases := map[tasks.Kind]tasks.ReservationKind{
		tasks.KindIdleUntil:          tasks.ReserveNone,
		tasks.KindMoveToPosition:     tasks.ReserveNone,
		tasks.KindWaitToSpawn:        tasks.ReserveNone,
		tasks.KindHarvestUntilFull:   tasks.ReserveWorkerCount,
		tasks.KindHarvestForever:     tasks.ReserveWorkerCount,
		tasks.KindUpgrade:            tasks.ReserveWorkerCount,
		tasks.KindSpawnAgent:         tasks.ReserveWorkerCount,
		tasks.KindBuild:              tasks.ReserveResourceCapacity,
		tasks.KindRepair:             tasks.ReserveResourceCapacity,
		tasks.KindTakeFromPile:       tasks.ReserveResourceCapacity,
		tasks.KindTakeFromStructure:  tasks.ReserveResourceCapacity,
		tasks.KindDeliverToStructure: tasks.ReserveResourceCapacity,
	}
	for kind, want := range cases {
		got := tasks.Task{Kind: kind}.ReservationKind()
		if got != want {
			t.Errorf("kind %s reservation=%v want %v", kind, got, want)
		}
	}
}
