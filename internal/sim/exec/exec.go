// Package exec runs one queue entry for one agent against the current
// tick's world view and reports the outcome. It never mutates queues or
// the ledger; reservations are released by the outcome handling that
// removes entries from queues. It also never moves an agent: not being
// in range yields a RequestMove result for the movement phase.
package exec

import (
	"log"

	"github.com/google/uuid"

	"colonyd/internal/sim/tasks"
	"colonyd/internal/sim/worldview"
)

const (
	interactRange = 1
	workRange     = 3

	// Ticks a spawner sits out after issuing a spawn, covering the
	// world-side production time so it doesn't re-propose against a
	// spawn that is still busy.
	spawnSettleTicks = 3
)

// SpawnIntent is an opaque "produce a new agent" request buffered during
// the act pass and issued by the orchestrator strictly after it, so spawn
// side effects never race the same tick's registry scan.
type SpawnIntent struct {
	SpawnID string
	Role    string
	Name    string
}

type Engine struct {
	log     *log.Logger
	intents []SpawnIntent
}

func New(logger *log.Logger) *Engine {
	return &Engine{log: logger}
}

// TakeSpawnIntents drains the intents buffered during this act pass.
func (e *Engine) TakeSpawnIntents() []SpawnIntent {
	out := e.intents
	e.intents = nil
	return out
}

// Execute runs the entry's task for this tick. Target resolution failure
// is an expected condition: references live one tick, so a vanished
// target abandons the task as Complete, never as an error.
func (e *Engine) Execute(view worldview.World, info worldview.AgentInfo, entry tasks.Entry, profile tasks.MovementProfile) tasks.Result {
	t := entry.Task
	switch t.Kind {
	case tasks.KindIdleUntil:
		if t.UntilTick == tasks.IdleForever {
			// Indefinite idles park agents through a visibility blackout;
			// re-evaluate as soon as the operating area is observable.
			if view.HomeVisible() {
				return tasks.Completed()
			}
			return tasks.Working()
		}
		if view.Tick() >= t.UntilTick {
			return tasks.Completed()
		}
		return tasks.Working()

	case tasks.KindMoveToPosition:
		if info.Pos.RangeTo(t.Pos) <= t.Range {
			return tasks.Completed()
		}
		return tasks.MoveMeTo(tasks.MovementGoal{Pos: t.Pos, Range: t.Range, Profile: profile})

	case tasks.KindWaitToSpawn:
		if info.Spawning {
			return tasks.Working()
		}
		return tasks.Completed()

	case tasks.KindHarvestUntilFull:
		return e.harvest(view, info, t, profile, false)
	case tasks.KindHarvestForever:
		return e.harvest(view, info, t, profile, true)
	case tasks.KindBuild:
		return e.build(view, info, t, profile)
	case tasks.KindRepair:
		return e.repair(view, info, t, profile)
	case tasks.KindUpgrade:
		return e.upgrade(view, info, t, profile)
	case tasks.KindTakeFromPile:
		return e.takeFromPile(view, info, t, profile)
	case tasks.KindTakeFromStructure:
		return e.takeFromStructure(view, info, t, profile)
	case tasks.KindDeliverToStructure:
		return e.deliverToStructure(view, info, t, profile)
	case tasks.KindSpawnAgent:
		return e.spawnAgent(view, t)

	default:
		e.warnf("agent %s: unknown task kind %q, dropping", info.ID, t.Kind)
		return tasks.Completed()
	}
}

func (e *Engine) spawnAgent(view worldview.World, t tasks.Task) tasks.Result {
	name := t.Role + "-" + uuid.NewString()[:8]
	e.intents = append(e.intents, SpawnIntent{SpawnID: string(t.Target), Role: t.Role, Name: name})
	return tasks.CompletePushBack(tasks.Unreserved(tasks.IdleUntil(view.Tick() + spawnSettleTicks)))
}

// fail maps an action rejection to an outcome: a vanished acting agent is
// terminal, everything else completes the task so the agent re-proposes.
func (e *Engine) fail(info worldview.AgentInfo, verb string, err error) tasks.Result {
	if worldview.IsCode(err, worldview.ErrUnknownAgent) {
		return tasks.Destroyed()
	}
	e.warnf("agent %s: couldn't %s: %v", info.ID, verb, err)
	return tasks.Completed()
}

func (e *Engine) warnf(format string, args ...any) {
	if e.log != nil {
		e.log.Printf("WARN "+format, args...)
	}
}

func moveTo(pos worldview.Position, rng int, profile tasks.MovementProfile) tasks.Result {
	return tasks.MoveMeTo(tasks.MovementGoal{Pos: pos, Range: rng, Profile: profile})
}
