// Package ledger tracks per-tick reservations against contested targets.
// The ledger is rebuilt from scratch at the start of each tick's proposal
// phase by replaying the reservation amounts of every still-queued entry;
// it is never persisted.
package ledger

import (
	"math"

	"colonyd/internal/sim/tasks"
)

type Ledger struct {
	claims map[tasks.Identity]int
}

func New() *Ledger {
	return &Ledger{claims: map[tasks.Identity]int{}}
}

// Claim saturating-adds amount to the entry for id. Non-positive amounts
// are ignored.
func (l *Ledger) Claim(id tasks.Identity, amount int) {
	if amount <= 0 {
		return
	}
	cur := l.claims[id]
	if cur > math.MaxInt-amount {
		cur = math.MaxInt
	} else {
		cur += amount
	}
	l.claims[id] = cur
}

// Release saturating-subtracts amount, removing the entry when it reaches
// zero. A release exceeding the recorded claim clips at zero rather than
// corrupting the map; that situation indicates a bookkeeping bug upstream
// and is asserted against in tests, never panicked on here.
func (l *Ledger) Release(id tasks.Identity, amount int) {
	if amount <= 0 {
		return
	}
	cur, ok := l.claims[id]
	if !ok {
		return
	}
	cur -= amount
	if cur <= 0 {
		delete(l.claims, id)
		return
	}
	l.claims[id] = cur
}

// Current returns the claimed amount for id, zero if absent.
func (l *Ledger) Current(id tasks.Identity) int {
	return l.claims[id]
}

func (l *Ledger) Len() int {
	return len(l.claims)
}

// Reset empties the ledger for a new tick's proposal phase.
func (l *Ledger) Reset() {
	l.claims = map[tasks.Identity]int{}
}

// Enter registers a claim for t and returns the queue entry carrying it.
// Reservation-free task kinds produce an unreserved entry regardless of
// amount.
func (l *Ledger) Enter(t tasks.Task, amount int) tasks.Entry {
	if t.ReservationKind() == tasks.ReserveNone || amount <= 0 {
		return tasks.Unreserved(t)
	}
	l.Claim(t.Identity(), amount)
	return tasks.Entry{Task: t, Reserved: amount}
}

// ReleaseEntry gives back the claim held by a queue entry. Call exactly
// once, when the entry leaves its queue.
func (l *Ledger) ReleaseEntry(e tasks.Entry) {
	if e.Reserved <= 0 {
		return
	}
	l.Release(e.Task.Identity(), e.Reserved)
}

// Replay re-registers the reservations of still-active queue entries when
// rebuilding the ledger at tick start.
func (l *Ledger) Replay(entries []tasks.Entry) {
	for _, e := range entries {
		if e.Reserved > 0 && e.Task.ReservationKind() != tasks.ReserveNone {
			l.Claim(e.Task.Identity(), e.Reserved)
		}
	}
}
