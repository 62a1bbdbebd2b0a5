// Package movement batches the relocation requests produced during the
// act phase and resolves them together at the end of the tick. Paths are
// cached per agent across ticks; the goal buffer is not, it empties every
// tick whether or not any step was issued.
package movement

import (
	"log"
	"sort"

	"colonyd/internal/sim/tasks"
	"colonyd/internal/sim/tuning"
	"colonyd/internal/sim/worldview"
)

type cached struct {
	goal     tasks.MovementGoal
	steps    []worldview.Position
	lastPos  worldview.Position
	stuckFor int
}

type Phase struct {
	tune tuning.Tuning
	log  *log.Logger

	goals map[string]tasks.MovementGoal
	cache map[string]*cached
}

func NewPhase(tune tuning.Tuning, logger *log.Logger) *Phase {
	return &Phase{
		tune:  tune,
		log:   logger,
		goals: map[string]tasks.MovementGoal{},
		cache: map[string]*cached{},
	}
}

// Request buffers a goal for this tick. A later request for the same
// agent in the same tick wins.
func (p *Phase) Request(agentID string, goal tasks.MovementGoal) {
	p.goals[agentID] = goal
}

// Forget drops an agent's cached path and stuck counter, for agents that
// were destroyed during the act phase.
func (p *Phase) Forget(agentID string) {
	delete(p.cache, agentID)
}

// Pending reports how many goals are buffered (test and metrics hook).
func (p *Phase) Pending() int {
	return len(p.goals)
}

// Run resolves the buffered goals against the world. Movement is the
// shock absorber for compute pressure: when the tick has already spent
// past its budget share, or the banked reserve is low, the whole batch
// is skipped. Skipping is cheap to recover from since the act phase
// re-requests every unmet goal next tick.
func (p *Phase) Run(view worldview.World) (issued, skipped int) {
	goals := p.goals
	p.goals = map[string]tasks.MovementGoal{}
	if len(goals) == 0 {
		return 0, 0
	}

	if view.CPUUsed() > p.tune.CPUUsedFrac*view.CPULimit() || view.CPUBank() < p.tune.CPUBankMin {
		p.warnf("movement skipped: cpu used=%.2f/%.2f bank=%.0f, %d goals deferred",
			view.CPUUsed(), view.CPULimit(), view.CPUBank(), len(goals))
		return 0, len(goals)
	}

	positions := map[string]worldview.Position{}
	for _, u := range view.Units() {
		positions[u.ID] = u.Pos
	}

	ids := make([]string, 0, len(goals))
	for id := range goals {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		goal := goals[id]
		pos, ok := positions[id]
		if !ok {
			p.Forget(id)
			skipped++
			continue
		}
		if pos.RangeTo(goal.Pos) <= goal.Range {
			p.Forget(id)
			continue
		}
		if p.step(view, id, pos, goal) {
			issued++
		} else {
			skipped++
		}
	}
	return issued, skipped
}

func (p *Phase) step(view worldview.World, id string, pos worldview.Position, goal tasks.MovementGoal) bool {
	c := p.cache[id]
	if c == nil || c.goal != goal {
		c = &cached{goal: goal, lastPos: pos}
		p.cache[id] = c
	} else if pos == c.lastPos {
		c.stuckFor++
	} else {
		c.lastPos = pos
		c.stuckFor = 0
	}

	avoid := goal.AvoidAgents
	if c.stuckFor >= p.tune.StuckTicks {
		// Parked this long means the cached path runs through somebody.
		// Replan around live agents instead of pushing into them.
		c.steps = nil
		c.stuckFor = 0
		avoid = true
	}

	if len(c.steps) == 0 {
		steps, ok := view.FindPath(worldview.PathRequest{
			From:          pos,
			To:            goal.Pos,
			Range:         goal.Range,
			RoadsOneToOne: goal.Profile == tasks.ProfileRoadsOneToOne,
			AvoidAgents:   avoid,
		})
		if !ok || len(steps) == 0 {
			p.warnf("agent %s: no path from %v to %v", id, pos, goal.Pos)
			p.Forget(id)
			return false
		}
		c.steps = steps
	}

	next := c.steps[0]
	if err := view.MoveStep(id, next); err != nil {
		if worldview.IsCode(err, worldview.ErrBlocked) {
			// Keep the counter running so a persistent blocker triggers
			// the avoid-agents replan above.
			return false
		}
		p.warnf("agent %s: step to %v failed: %v", id, next, err)
		p.Forget(id)
		return false
	}
	c.steps = c.steps[1:]
	return true
}

func (p *Phase) warnf(format string, args ...any) {
	if p.log != nil {
		p.log.Printf("WARN "+format, args...)
	}
}
