// Package roles turns an agent's inventory plus the current world view
// into its next task. All mobile worker roles share one proposal engine
// parameterized by a Config table; only the pinned source harvester and
// the spawner facility have their own flows.
package roles

import (
	"log"

	"colonyd/internal/sim/ledger"
	"colonyd/internal/sim/registry"
	"colonyd/internal/sim/tasks"
	"colonyd/internal/sim/tuning"
	"colonyd/internal/sim/worldview"
)

const (
	RoleStartup         = "startup"
	RoleBuilder         = "builder"
	RoleHauler          = "hauler"
	RoleUpgrader        = "upgrader"
	RoleSourceHarvester = "source_harvester"
	RoleSpawner         = "spawner"
	RoleTower           = "tower"
)

// Config is the per-role parameterization of the shared proposal engine.
type Config struct {
	Role string

	PickupThreshold   int
	WithdrawThreshold int
	RepairWatermark   int

	// Cargo branch: delivery classes scanned first, in order.
	DeliverPriority []worldview.ObjectKind
	// Then terminal (below target stock) and storage as bulk sinks.
	DeliverStorageFallback bool
	TerminalEnergyTarget   int

	// Then urgent repair and new construction.
	BuildRepair bool
	// Startup falls through to upgrading; upgraders do nothing else.
	UpgradeAfterBuild bool
	UpgradeOnly       bool

	// Empty branch: harvest a source directly as a last resort.
	HarvestFallback bool

	Profile   tasks.MovementProfile
	IdleTicks uint64
}

// Engine owns the role config table and proposes tasks. It mutates the
// ledger: an accepted candidate's claim is registered before the entry is
// returned.
type Engine struct {
	tune tuning.Tuning
	cfgs map[string]Config
	log  *log.Logger
}

func NewEngine(tune tuning.Tuning, logger *log.Logger) *Engine {
	return &Engine{tune: tune, cfgs: buildConfigs(tune), log: logger}
}

func buildConfigs(tune tuning.Tuning) map[string]Config {
	idle := tune.NoTaskIdleTicks
	cfg := func(role string, c Config) Config {
		rt := tune.RoleFor(role)
		c.Role = role
		c.PickupThreshold = rt.PickupThreshold
		c.WithdrawThreshold = rt.WithdrawThreshold
		c.RepairWatermark = rt.RepairWatermark
		c.IdleTicks = idle
		return c
	}
	return map[string]Config{
		RoleStartup: cfg(RoleStartup, Config{
			DeliverPriority:   []worldview.ObjectKind{worldview.KindSpawn, worldview.KindExtension},
			BuildRepair:       true,
			UpgradeAfterBuild: true,
			HarvestFallback:   true,
			Profile:           tasks.ProfileRoadsOneToOne,
		}),
		RoleBuilder: cfg(RoleBuilder, Config{
			BuildRepair:     true,
			HarvestFallback: true,
		}),
		RoleHauler: cfg(RoleHauler, Config{
			DeliverPriority:        []worldview.ObjectKind{worldview.KindSpawn, worldview.KindExtension, worldview.KindTower},
			DeliverStorageFallback: true,
			TerminalEnergyTarget:   10_000,
		}),
		RoleUpgrader: cfg(RoleUpgrader, Config{
			UpgradeOnly:     true,
			HarvestFallback: true,
		}),
	}
}

// ProfileFor returns the movement cost profile for a role.
func (e *Engine) ProfileFor(role string) tasks.MovementProfile {
	if c, ok := e.cfgs[role]; ok {
		return c.Profile
	}
	return tasks.ProfileDefault
}

// Propose returns exactly one queue entry for the agent; it never fails.
// Agents with nothing useful to do receive an unreserved idle entry with
// a bounded backoff so they retry instead of rescanning every tick.
func (e *Engine) Propose(a *registry.Agent, info worldview.AgentInfo, counts map[string]int, view worldview.World, led *ledger.Ledger) tasks.Entry {
	switch a.Role {
	case RoleSourceHarvester:
		return e.proposeSourceHarvester(a, view, led)
	case RoleSpawner:
		return e.proposeSpawner(a, counts, view, led)
	case RoleTower:
		// Tower targeting heuristics live outside the scheduling core.
		return tasks.Unreserved(tasks.IdleUntil(view.Tick() + e.tune.NoTaskIdleTicks))
	}

	cfg, ok := e.cfgs[a.Role]
	if !ok {
		cfg = e.cfgs[RoleStartup]
	}

	if !view.HomeVisible() {
		e.warnf("agent %s: operating area not visible, idling", a.ID)
		return tasks.Unreserved(tasks.IdleUntil(tasks.IdleForever))
	}

	carrying := info.Store.Used(worldview.ResourceEnergy)
	if carrying > 0 {
		return e.proposeWithCargo(cfg, carrying, view, led)
	}
	free := info.Store.Free()
	if free == 0 {
		e.warnf("agent %s: no carry capacity, idling", a.ID)
		return tasks.Unreserved(tasks.IdleUntil(view.Tick() + e.tune.NoTaskIdleTicks))
	}
	return e.proposeForPickup(cfg, free, view, led)
}

func (e *Engine) warnf(format string, args ...any) {
	if e.log != nil {
		e.log.Printf("WARN "+format, args...)
	}
}

func (e *Engine) idle(view worldview.World, cfg Config) tasks.Entry {
	return tasks.Unreserved(tasks.IdleUntil(view.Tick() + cfg.IdleTicks))
}
