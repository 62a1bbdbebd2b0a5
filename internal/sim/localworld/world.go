// Package localworld is an in-memory implementation of the worldview
// interfaces: a small grid world with game-like action semantics. It
// backs the headless demo run in cmd/colonyd and the integration tests;
// it is a reference collaborator, not a game engine.
package localworld

import (
	"fmt"
	"sort"

	"colonyd/internal/sim/worldview"
)

type Config struct {
	Width    int
	Height   int
	CPULimit float64
}

const (
	harvestYield = 10
	buildPower   = 5
	repairPower  = 100
	spawnTicks   = 3
	bankCap      = 10_000
)

type unit struct {
	info     worldview.AgentInfo
	readyAt  uint64
	bodyCost int
}

type World struct {
	cfg     Config
	tick    uint64
	terrain []worldview.Terrain

	objects map[worldview.ObjectID]*worldview.Object
	order   []worldview.ObjectID

	units map[string]*unit

	cpuUsed float64
	cpuBank float64

	homeVisible bool
}

func New(cfg Config) *World {
	if cfg.Width <= 0 {
		cfg.Width = 50
	}
	if cfg.Height <= 0 {
		cfg.Height = 50
	}
	if cfg.CPULimit <= 0 {
		cfg.CPULimit = 20
	}
	w := &World{
		cfg:         cfg,
		terrain:     make([]worldview.Terrain, cfg.Width*cfg.Height),
		objects:     map[worldview.ObjectID]*worldview.Object{},
		units:       map[string]*unit{},
		cpuBank:     bankCap / 2,
		homeVisible: true,
	}
	for x := 0; x < cfg.Width; x++ {
		w.setTerrain(worldview.Position{X: x, Y: 0}, worldview.TerrainWall)
		w.setTerrain(worldview.Position{X: x, Y: cfg.Height - 1}, worldview.TerrainWall)
	}
	for y := 0; y < cfg.Height; y++ {
		w.setTerrain(worldview.Position{X: 0, Y: y}, worldview.TerrainWall)
		w.setTerrain(worldview.Position{X: cfg.Width - 1, Y: y}, worldview.TerrainWall)
	}
	return w
}

func (w *World) inBounds(p worldview.Position) bool {
	return p.X >= 0 && p.X < w.cfg.Width && p.Y >= 0 && p.Y < w.cfg.Height
}

func (w *World) setTerrain(p worldview.Position, t worldview.Terrain) {
	if w.inBounds(p) {
		w.terrain[p.Y*w.cfg.Width+p.X] = t
	}
}

// SetTerrain overrides a tile; out-of-bounds writes are ignored.
func (w *World) SetTerrain(p worldview.Position, t worldview.Terrain) {
	w.setTerrain(p, t)
}

// Advance moves the simulated world one tick forward: CPU bank refills
// with the unspent budget, spawning units finish, and the usage counter
// resets.
func (w *World) Advance() {
	w.tick++
	w.cpuBank += w.cfg.CPULimit - w.cpuUsed
	if w.cpuBank > bankCap {
		w.cpuBank = bankCap
	}
	if w.cpuBank < 0 {
		w.cpuBank = 0
	}
	w.cpuUsed = 0
	for _, u := range w.units {
		if u.info.Spawning && w.tick >= u.readyAt {
			u.info.Spawning = false
		}
	}
}

func (w *World) useCPU(x float64) {
	w.cpuUsed += x
}

// --- construction helpers (tests and demo setup) ---

func (w *World) addObject(o worldview.Object) {
	cp := o
	w.objects[o.ID] = &cp
	w.order = append(w.order, o.ID)
}

func (w *World) AddSource(id worldview.ObjectID, pos worldview.Position, amount int) {
	w.addObject(worldview.Object{ID: id, Kind: worldview.KindSource, Pos: pos, Amount: amount})
}

func (w *World) AddPile(id worldview.ObjectID, pos worldview.Position, amount int) {
	w.addObject(worldview.Object{ID: id, Kind: worldview.KindPile, Pos: pos, Amount: amount})
}

func (w *World) AddStructure(id worldview.ObjectID, kind worldview.ObjectKind, pos worldview.Position, capacity, energy, hits, hitsMax int) {
	w.addObject(worldview.Object{
		ID: id, Kind: kind, Pos: pos,
		Hits: hits, HitsMax: hitsMax,
		Store: worldview.Store{Stock: map[worldview.Resource]int{worldview.ResourceEnergy: energy}, Capacity: capacity},
	})
}

func (w *World) AddSite(id worldview.ObjectID, pos worldview.Position, progress, total int) {
	w.addObject(worldview.Object{ID: id, Kind: worldview.KindSite, Pos: pos, Progress: progress, ProgressTotal: total})
}

func (w *World) AddController(id worldview.ObjectID, pos worldview.Position) {
	w.addObject(worldview.Object{ID: id, Kind: worldview.KindController, Pos: pos, ProgressTotal: 1 << 20})
}

// AddSpawn registers a spawn facility: a deliverable structure and a
// fixed schedulable entity under the same identity.
func (w *World) AddSpawn(id string, pos worldview.Position, capacity, energy int) {
	w.AddStructure(worldview.ObjectID(id), worldview.KindSpawn, pos, capacity, energy, 5000, 5000)
	w.units[id] = &unit{info: worldview.AgentInfo{ID: id, Kind: worldview.KindSpawn, Pos: pos}}
}

func (w *World) AddTower(id string, pos worldview.Position, capacity, energy int) {
	w.AddStructure(worldview.ObjectID(id), worldview.KindTower, pos, capacity, energy, 3000, 3000)
	w.units[id] = &unit{info: worldview.AgentInfo{ID: id, Kind: worldview.KindTower, Pos: pos}}
}

func (w *World) AddUnit(id string, pos worldview.Position, capacity int, roleHint string) {
	w.units[id] = &unit{info: worldview.AgentInfo{
		ID: id, Kind: worldview.KindUnit, Pos: pos, CanMove: true, RoleHint: roleHint,
		Store: worldview.Store{Stock: map[worldview.Resource]int{}, Capacity: capacity},
	}}
}

func (w *World) RemoveObject(id worldview.ObjectID) {
	if _, ok := w.objects[id]; !ok {
		return
	}
	delete(w.objects, id)
	for i, oid := range w.order {
		if oid == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
}

func (w *World) RemoveUnit(id string) {
	delete(w.units, id)
}

// SetUnitEnergy overwrites a unit's cargo (test setup).
func (w *World) SetUnitEnergy(id string, amount int) {
	if u, ok := w.units[id]; ok {
		u.info.Store.Stock[worldview.ResourceEnergy] = amount
	}
}

func (w *World) SetUnitPos(id string, pos worldview.Position) {
	if u, ok := w.units[id]; ok {
		u.info.Pos = pos
	}
}

func (w *World) SetHomeVisible(v bool) {
	w.homeVisible = v
}

func (w *World) SetCPU(used, bank float64) {
	w.cpuUsed = used
	w.cpuBank = bank
}

// UnitPos reports a unit's current position (test assertions).
func (w *World) UnitPos(id string) (worldview.Position, bool) {
	u, ok := w.units[id]
	if !ok {
		return worldview.Position{}, false
	}
	return u.info.Pos, true
}

// --- worldview.World ---

func (w *World) Tick() uint64 {
	return w.tick
}

func (w *World) Units() []worldview.AgentInfo {
	return w.agentInfos(true)
}

func (w *World) Facilities() []worldview.AgentInfo {
	return w.agentInfos(false)
}

func (w *World) agentInfos(mobile bool) []worldview.AgentInfo {
	ids := make([]string, 0, len(w.units))
	for id, u := range w.units {
		if u.info.CanMove == mobile {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	out := make([]worldview.AgentInfo, 0, len(ids))
	for _, id := range ids {
		info := w.units[id].info
		info.Store = copyStore(info.Store)
		out = append(out, info)
	}
	return out
}

func (w *World) Objects() []worldview.Object {
	out := make([]worldview.Object, 0, len(w.order))
	for _, id := range w.order {
		o := *w.objects[id]
		o.Store = copyStore(o.Store)
		out = append(out, o)
	}
	return out
}

func (w *World) HomeVisible() bool {
	return w.homeVisible
}

func (w *World) Resolve(id worldview.ObjectID) (worldview.Object, bool) {
	o, ok := w.objects[id]
	if !ok {
		return worldview.Object{}, false
	}
	cp := *o
	cp.Store = copyStore(cp.Store)
	return cp, true
}

func (w *World) Terrain(p worldview.Position) worldview.Terrain {
	if !w.inBounds(p) {
		return worldview.TerrainWall
	}
	return w.terrain[p.Y*w.cfg.Width+p.X]
}

func copyStore(s worldview.Store) worldview.Store {
	if s.Stock == nil {
		return s
	}
	stock := make(map[worldview.Resource]int, len(s.Stock))
	for k, v := range s.Stock {
		stock[k] = v
	}
	s.Stock = stock
	return s
}

func (w *World) unitByID(id string) (*unit, error) {
	u, ok := w.units[id]
	if !ok {
		return nil, worldview.Reject(worldview.ErrUnknownAgent, fmt.Sprintf("no unit %q", id))
	}
	return u, nil
}
