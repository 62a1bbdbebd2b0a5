package roles

import (
	"colonyd/internal/sim/ledger"
	"colonyd/internal/sim/registry"
	"colonyd/internal/sim/tasks"
	"colonyd/internal/sim/worldview"
)

// tryClaim accepts a candidate when its remaining capacity, net of what
// the ledger already records, still leaves room for this agent's claim.
// Returns the accepted entry and true, or false to continue scanning.
func tryClaim(led *ledger.Ledger, t tasks.Task, want, capacity int) (tasks.Entry, bool) {
	remaining := capacity - led.Current(t.Identity())
	if remaining <= 0 {
		return tasks.Entry{}, false
	}
	claim := want
	if claim > remaining {
		claim = remaining
	}
	if claim <= 0 {
		return tasks.Entry{}, false
	}
	return led.Enter(t, claim), true
}

func (e *Engine) proposeWithCargo(cfg Config, carrying int, view worldview.World, led *ledger.Ledger) tasks.Entry {
	objects := view.Objects()

	if cfg.UpgradeOnly {
		for _, o := range objects {
			if o.Kind == worldview.KindController {
				return led.Enter(tasks.Upgrade(o.ID), 1)
			}
		}
		return e.idle(view, cfg)
	}

	// High-priority consumers first: spawning facilities before bulk
	// storage, in the configured class order.
	for _, kind := range cfg.DeliverPriority {
		for _, o := range objects {
			if o.Kind != kind {
				continue
			}
			t := tasks.DeliverToStructure(o.ID, worldview.ResourceEnergy)
			if entry, ok := tryClaim(led, t, carrying, o.Store.Free()); ok {
				return entry
			}
		}
	}

	if cfg.BuildRepair {
		// Urgent repair before new construction. HitsMax zero means
		// indestructible; below-watermark plus below-half-hits matches
		// what counts as urgent.
		for _, o := range objects {
			if o.HitsMax == 0 || o.Hits >= cfg.RepairWatermark || o.Hits*2 >= o.HitsMax {
				continue
			}
			t := tasks.Repair(o.ID)
			if entry, ok := tryClaim(led, t, carrying, o.HitsMax-o.Hits); ok {
				return entry
			}
		}
		for _, o := range objects {
			if o.Kind != worldview.KindSite {
				continue
			}
			t := tasks.Build(o.ID)
			if entry, ok := tryClaim(led, t, carrying, o.ProgressTotal-o.Progress); ok {
				return entry
			}
		}
	}

	if cfg.DeliverStorageFallback {
		for _, o := range objects {
			if o.Kind != worldview.KindTerminal {
				continue
			}
			if o.Store.Used(worldview.ResourceEnergy) >= cfg.TerminalEnergyTarget {
				continue
			}
			t := tasks.DeliverToStructure(o.ID, worldview.ResourceEnergy)
			if entry, ok := tryClaim(led, t, carrying, o.Store.Free()); ok {
				return entry
			}
		}
		for _, o := range objects {
			if o.Kind != worldview.KindStorage {
				continue
			}
			t := tasks.DeliverToStructure(o.ID, worldview.ResourceEnergy)
			if entry, ok := tryClaim(led, t, carrying, o.Store.Free()); ok {
				return entry
			}
		}
	}

	if cfg.UpgradeAfterBuild {
		for _, o := range objects {
			if o.Kind == worldview.KindController {
				return led.Enter(tasks.Upgrade(o.ID), 1)
			}
		}
	}

	return e.idle(view, cfg)
}

func (e *Engine) proposeForPickup(cfg Config, free int, view worldview.World, led *ledger.Ledger) tasks.Entry {
	objects := view.Objects()

	// Dropped piles big enough to be worth the walk.
	for _, o := range objects {
		if o.Kind != worldview.KindPile || o.Amount < cfg.PickupThreshold {
			continue
		}
		t := tasks.TakeFromPile(o.ID)
		if entry, ok := tryClaim(led, t, free, o.Amount); ok {
			return entry
		}
	}

	// Withdraw from bulk stores only; spawns and extensions are refill
	// targets, not sources.
	for _, o := range objects {
		switch o.Kind {
		case worldview.KindContainer, worldview.KindStorage, worldview.KindTerminal:
		default:
			continue
		}
		stored := o.Store.Used(worldview.ResourceEnergy)
		if stored < cfg.WithdrawThreshold {
			continue
		}
		t := tasks.TakeFromStructure(o.ID, worldview.ResourceEnergy)
		if entry, ok := tryClaim(led, t, free, stored); ok {
			return entry
		}
	}

	if cfg.HarvestFallback {
		for _, o := range objects {
			if o.Kind != worldview.KindSource || o.Amount == 0 {
				continue
			}
			t := tasks.HarvestUntilFull(o.ID)
			if entry, ok := tryClaim(led, t, 1, harvestSlots(view, o.Pos)); ok {
				return entry
			}
		}
	}

	return e.idle(view, cfg)
}

// harvestSlots counts the walkable tiles adjacent to a source; that is
// the worker-count capacity for harvest reservations.
func harvestSlots(view worldview.World, pos worldview.Position) int {
	slots := 0
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			p := worldview.Position{X: pos.X + dx, Y: pos.Y + dy}
			if view.Terrain(p) != worldview.TerrainWall {
				slots++
			}
		}
	}
	return slots
}

// proposeSourceHarvester pins a dedicated harvester to the source at its
// anchor position: harvest forever when the source is there, walk to the
// anchor when it is not yet in view.
func (e *Engine) proposeSourceHarvester(a *registry.Agent, view worldview.World, led *ledger.Ledger) tasks.Entry {
	for _, o := range view.Objects() {
		if o.Kind == worldview.KindSource && o.Pos == a.Anchor {
			return led.Enter(tasks.HarvestForever(o.ID), 1)
		}
	}
	return tasks.Unreserved(tasks.MoveToPosition(a.Anchor, 1))
}

// proposeSpawner walks the configured spawn order and proposes producing
// the first role whose live population is below target, provided the
// colony's banked spawn energy covers the body cost. One pending spawn
// per facility at a time.
func (e *Engine) proposeSpawner(a *registry.Agent, counts map[string]int, view worldview.World, led *ledger.Ledger) tasks.Entry {
	available := spawnEnergyAvailable(view)
	for _, role := range e.tune.SpawnOrder {
		target := e.tune.Population[role]
		if target <= 0 || counts[role] >= target {
			continue
		}
		if available < e.tune.RoleFor(role).BodyCost {
			// Deficit exists but energy does not; retry after backoff.
			break
		}
		t := tasks.SpawnAgent(worldview.ObjectID(a.ID), role)
		if entry, ok := tryClaim(led, t, 1, 1); ok {
			return entry
		}
	}
	return tasks.Unreserved(tasks.IdleUntil(view.Tick() + e.tune.NoTaskIdleTicks))
}

func spawnEnergyAvailable(view worldview.World) int {
	total := 0
	for _, o := range view.Objects() {
		if o.Kind == worldview.KindSpawn || o.Kind == worldview.KindExtension {
			total += o.Store.Used(worldview.ResourceEnergy)
		}
	}
	return total
}
