// Package tasks defines the closed union of agent objectives, the queue
// entries that pair an objective with its reservation, and the results a
// task execution can produce.
package tasks

import (
	"math"

	"colonyd/internal/sim/worldview"
)

type Kind string

const (
	KindIdleUntil          Kind = "IDLE_UNTIL"
	KindMoveToPosition     Kind = "MOVE_TO_POSITION"
	KindHarvestUntilFull   Kind = "HARVEST_UNTIL_FULL"
	KindHarvestForever     Kind = "HARVEST_FOREVER"
	KindBuild              Kind = "BUILD"
	KindRepair             Kind = "REPAIR"
	KindUpgrade            Kind = "UPGRADE"
	KindTakeFromPile       Kind = "TAKE_FROM_PILE"
	KindTakeFromStructure  Kind = "TAKE_FROM_STRUCTURE"
	KindDeliverToStructure Kind = "DELIVER_TO_STRUCTURE"
	KindSpawnAgent         Kind = "SPAWN_AGENT"
	KindWaitToSpawn        Kind = "WAIT_TO_SPAWN"
)

// ReservationKind classifies how a task contends for its target.
type ReservationKind int

const (
	// ReserveNone: the task holds no claim against any target.
	ReserveNone ReservationKind = iota
	// ReserveWorkerCount: contention is by number of assigned workers.
	ReserveWorkerCount
	// ReserveResourceCapacity: contention is by resource quantity.
	ReserveResourceCapacity
)

// IdleForever is the until-tick used for indefinite idling (orphaned
// agents, facilities with nothing to do).
const IdleForever uint64 = math.MaxUint64

// Task is an immutable objective. Target-bearing kinds carry only the
// target's stable identity; the execution engine re-resolves it against
// the current tick's world view before every use.
type Task struct {
	Kind      Kind               `json:"kind"`
	Target    worldview.ObjectID `json:"target,omitempty"`
	Resource  worldview.Resource `json:"resource,omitempty"`
	Pos       worldview.Position `json:"pos,omitempty"`
	Range     int                `json:"range,omitempty"`
	UntilTick uint64             `json:"until_tick,omitempty"`
	Role      string             `json:"role,omitempty"`
}

func IdleUntil(tick uint64) Task {
	return Task{Kind: KindIdleUntil, UntilTick: tick}
}

func MoveToPosition(pos worldview.Position, rng int) Task {
	return Task{Kind: KindMoveToPosition, Pos: pos, Range: rng}
}

func HarvestUntilFull(target worldview.ObjectID) Task {
	return Task{Kind: KindHarvestUntilFull, Target: target}
}

func HarvestForever(target worldview.ObjectID) Task {
	return Task{Kind: KindHarvestForever, Target: target}
}

func Build(target worldview.ObjectID) Task {
	return Task{Kind: KindBuild, Target: target}
}

func Repair(target worldview.ObjectID) Task {
	return Task{Kind: KindRepair, Target: target}
}

func Upgrade(target worldview.ObjectID) Task {
	return Task{Kind: KindUpgrade, Target: target}
}

func TakeFromPile(target worldview.ObjectID) Task {
	return Task{Kind: KindTakeFromPile, Target: target}
}

func TakeFromStructure(target worldview.ObjectID, res worldview.Resource) Task {
	return Task{Kind: KindTakeFromStructure, Target: target, Resource: res}
}

func DeliverToStructure(target worldview.ObjectID, res worldview.Resource) Task {
	return Task{Kind: KindDeliverToStructure, Target: target, Resource: res}
}

func SpawnAgent(spawnID worldview.ObjectID, role string) Task {
	return Task{Kind: KindSpawnAgent, Target: spawnID, Role: role}
}

func WaitToSpawn() Task {
	return Task{Kind: KindWaitToSpawn}
}

// ReservationKind classifies every task kind; unknown kinds reserve
// nothing. Exhaustiveness over the union is asserted in tests.
func (t Task) ReservationKind() ReservationKind {
	switch t.Kind {
	case KindIdleUntil, KindMoveToPosition, KindWaitToSpawn:
		return ReserveNone
	case KindHarvestUntilFull, KindHarvestForever, KindUpgrade, KindSpawnAgent:
		return ReserveWorkerCount
	case KindBuild, KindRepair, KindTakeFromPile, KindTakeFromStructure, KindDeliverToStructure:
		return ReserveResourceCapacity
	default:
		return ReserveNone
	}
}

// Identity keys the reservation ledger: task kind plus target identity,
// excluding embedded amounts and resources so two claims against the same
// target never alias to different keys.
type Identity struct {
	Kind   Kind
	Target worldview.ObjectID
}

func (t Task) Identity() Identity {
	return Identity{Kind: t.Kind, Target: t.Target}
}

// Entry pairs a task with the amount claimed against the ledger when the
// entry was created. A reservation is released exactly once, when the
// entry leaves an agent's queue.
type Entry struct {
	Task     Task `json:"task"`
	Reserved int  `json:"reserved,omitempty"`
}

// Unreserved wraps a task that holds no claim.
func Unreserved(t Task) Entry {
	return Entry{Task: t}
}
