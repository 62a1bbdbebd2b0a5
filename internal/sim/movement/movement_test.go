package movement

import (
	"testing"

	"colonyd/internal/sim/localworld"
	"colonyd/internal/sim/tasks"
	"colonyd/internal/sim/tuning"
	"colonyd/internal/sim/worldview"
)

func newPhase() *Phase {
	return NewPhase(tuning.Defaults(), nil)
}

func TestRunWalksAgentToGoal(t *testing.T) {
	w := localworld.New(localworld.Config{Width: 20, Height: 20, CPULimit: 100})
	w.AddUnit("u1", worldview.Position{X: 2, Y: 2}, 50, "")
	p := newPhase()
	goal := tasks.MovementGoal{Pos: worldview.Position{X: 8, Y: 2}, Range: 1}

	for i := 0; i < 10; i++ {
		pos, _ := w.UnitPos("u1")
		if pos.RangeTo(goal.Pos) <= goal.Range {
			return
		}
		p.Request("u1", goal)
		issued, skipped := p.Run(w)
		if issued != 1 || skipped != 0 {
			t.Fatalf("tick %d: issued=%d skipped=%d, want 1/0", i, issued, skipped)
		}
		w.Advance()
	}
	pos, _ := w.UnitPos("u1")
	t.Fatalf("agent never arrived, stuck at %v", pos)
}

func TestGoalBufferClearsEveryTick(t *testing.T) {
	w := localworld.New(localworld.Config{Width: 20, Height: 20, CPULimit: 100})
	w.AddUnit("u1", worldview.Position{X: 2, Y: 2}, 50, "")
	p := newPhase()

	p.Request("u1", tasks.MovementGoal{Pos: worldview.Position{X: 8, Y: 2}, Range: 1})
	p.Run(w)
	if p.Pending() != 0 {
		t.Fatalf("buffer must be empty after Run, holds %d", p.Pending())
	}
	// Nothing re-requested: the next Run issues nothing.
	if issued, skipped := p.Run(w); issued != 0 || skipped != 0 {
		t.Fatalf("stale goal acted on: issued=%d skipped=%d", issued, skipped)
	}
}

func TestCPUGateSkipsWholeBatch(t *testing.T) {
	w := localworld.New(localworld.Config{Width: 20, Height: 20, CPULimit: 100})
	w.AddUnit("u1", worldview.Position{X: 2, Y: 2}, 50, "")
	w.AddUnit("u2", worldview.Position{X: 3, Y: 3}, 50, "")
	p := newPhase()
	goal := tasks.MovementGoal{Pos: worldview.Position{X: 10, Y: 10}, Range: 1}

	w.SetCPU(99, 5000) // over the usage fraction
	p.Request("u1", goal)
	p.Request("u2", goal)
	issued, skipped := p.Run(w)
	if issued != 0 || skipped != 2 {
		t.Fatalf("over budget: issued=%d skipped=%d, want 0/2", issued, skipped)
	}
	if pos, _ := w.UnitPos("u1"); pos != (worldview.Position{X: 2, Y: 2}) {
		t.Fatalf("agent moved under a closed gate")
	}

	w.SetCPU(0, 100) // bank below the floor
	p.Request("u1", goal)
	issued, skipped = p.Run(w)
	if issued != 0 || skipped != 1 {
		t.Fatalf("low bank: issued=%d skipped=%d, want 0/1", issued, skipped)
	}
	if p.Pending() != 0 {
		t.Fatalf("skipped goals must still be dropped from the buffer")
	}
}

func TestArrivedAgentIssuesNothing(t *testing.T) {
	w := localworld.New(localworld.Config{Width: 20, Height: 20, CPULimit: 100})
	w.AddUnit("u1", worldview.Position{X: 5, Y: 5}, 50, "")
	p := newPhase()

	p.Request("u1", tasks.MovementGoal{Pos: worldview.Position{X: 6, Y: 6}, Range: 1})
	issued, skipped := p.Run(w)
	if issued != 0 || skipped != 0 {
		t.Fatalf("already in range: issued=%d skipped=%d", issued, skipped)
	}
}

func TestStuckAgentRepathsAroundBlocker(t *testing.T) {
	w := localworld.New(localworld.Config{Width: 20, Height: 20, CPULimit: 100})
	w.AddUnit("mover", worldview.Position{X: 2, Y: 5}, 50, "")
	w.AddUnit("parked", worldview.Position{X: 3, Y: 5}, 50, "")
	p := newPhase()
	goal := tasks.MovementGoal{Pos: worldview.Position{X: 6, Y: 5}, Range: 0}

	arrived := false
	for i := 0; i < 20; i++ {
		pos, _ := w.UnitPos("mover")
		if pos == goal.Pos {
			arrived = true
			break
		}
		p.Request("mover", goal)
		p.Run(w)
		w.Advance()
	}
	if !arrived {
		pos, _ := w.UnitPos("mover")
		t.Fatalf("mover never routed around the parked agent, at %v", pos)
	}
	if pos, _ := w.UnitPos("parked"); pos != (worldview.Position{X: 3, Y: 5}) {
		t.Fatalf("parked agent was displaced to %v", pos)
	}
}
