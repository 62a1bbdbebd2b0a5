package localworld

import (
	"colonyd/internal/sim/worldview"
)

const (
	interactRange = 1
	workRange     = 3
	actionCost    = 0.2
)

func (w *World) Harvest(agentID string, target worldview.ObjectID) error {
	w.useCPU(actionCost)
	u, err := w.unitByID(agentID)
	if err != nil {
		return err
	}
	src, ok := w.objects[target]
	if !ok || src.Kind != worldview.KindSource {
		return worldview.Reject(worldview.ErrInvalidTarget, "not a source")
	}
	if u.info.Pos.RangeTo(src.Pos) > interactRange {
		return worldview.Reject(worldview.ErrOutOfRange, "")
	}
	if src.Amount <= 0 {
		return worldview.Reject(worldview.ErrEmpty, "source exhausted")
	}
	yield := harvestYield
	if yield > src.Amount {
		yield = src.Amount
	}
	src.Amount -= yield
	// Overflow past the carrier's capacity is dropped on the ground,
	// so harvesting with a full store still succeeds.
	take := yield
	if free := u.info.Store.Free(); take > free {
		take = free
	}
	u.info.Store.Stock[worldview.ResourceEnergy] += take
	return nil
}

func (w *World) Build(agentID string, target worldview.ObjectID) error {
	w.useCPU(actionCost)
	u, err := w.unitByID(agentID)
	if err != nil {
		return err
	}
	site, ok := w.objects[target]
	if !ok || site.Kind != worldview.KindSite {
		return worldview.Reject(worldview.ErrInvalidTarget, "not a construction site")
	}
	if u.info.Pos.RangeTo(site.Pos) > workRange {
		return worldview.Reject(worldview.ErrOutOfRange, "")
	}
	have := u.info.Store.Used(worldview.ResourceEnergy)
	if have <= 0 {
		return worldview.Reject(worldview.ErrNoResource, "no energy")
	}
	spend := buildPower
	if spend > have {
		spend = have
	}
	if remaining := site.ProgressTotal - site.Progress; spend > remaining {
		spend = remaining
	}
	u.info.Store.Stock[worldview.ResourceEnergy] -= spend
	site.Progress += spend
	if site.Progress >= site.ProgressTotal {
		w.RemoveObject(target)
	}
	return nil
}

func (w *World) Repair(agentID string, target worldview.ObjectID) error {
	w.useCPU(actionCost)
	u, err := w.unitByID(agentID)
	if err != nil {
		return err
	}
	o, ok := w.objects[target]
	if !ok || o.HitsMax == 0 {
		return worldview.Reject(worldview.ErrInvalidTarget, "not repairable")
	}
	if u.info.Pos.RangeTo(o.Pos) > workRange {
		return worldview.Reject(worldview.ErrOutOfRange, "")
	}
	if u.info.Store.Used(worldview.ResourceEnergy) <= 0 {
		return worldview.Reject(worldview.ErrNoResource, "no energy")
	}
	if o.Hits >= o.HitsMax {
		return worldview.Reject(worldview.ErrFull, "already at full hits")
	}
	u.info.Store.Stock[worldview.ResourceEnergy]--
	o.Hits += repairPower
	if o.Hits > o.HitsMax {
		o.Hits = o.HitsMax
	}
	return nil
}

func (w *World) Upgrade(agentID string, target worldview.ObjectID) error {
	w.useCPU(actionCost)
	u, err := w.unitByID(agentID)
	if err != nil {
		return err
	}
	o, ok := w.objects[target]
	if !ok || o.Kind != worldview.KindController {
		return worldview.Reject(worldview.ErrInvalidTarget, "not a controller")
	}
	if u.info.Pos.RangeTo(o.Pos) > workRange {
		return worldview.Reject(worldview.ErrOutOfRange, "")
	}
	if u.info.Store.Used(worldview.ResourceEnergy) <= 0 {
		return worldview.Reject(worldview.ErrNoResource, "no energy")
	}
	u.info.Store.Stock[worldview.ResourceEnergy]--
	o.Progress++
	return nil
}

func (w *World) Pickup(agentID string, target worldview.ObjectID) error {
	w.useCPU(actionCost)
	u, err := w.unitByID(agentID)
	if err != nil {
		return err
	}
	pile, ok := w.objects[target]
	if !ok || pile.Kind != worldview.KindPile {
		return worldview.Reject(worldview.ErrInvalidTarget, "not a pile")
	}
	if u.info.Pos.RangeTo(pile.Pos) > interactRange {
		return worldview.Reject(worldview.ErrOutOfRange, "")
	}
	free := u.info.Store.Free()
	if free <= 0 {
		return worldview.Reject(worldview.ErrFull, "carrier full")
	}
	take := pile.Amount
	if take > free {
		take = free
	}
	u.info.Store.Stock[worldview.ResourceEnergy] += take
	pile.Amount -= take
	if pile.Amount <= 0 {
		w.RemoveObject(target)
	}
	return nil
}

func (w *World) Withdraw(agentID string, target worldview.ObjectID, res worldview.Resource) error {
	w.useCPU(actionCost)
	u, err := w.unitByID(agentID)
	if err != nil {
		return err
	}
	o, ok := w.objects[target]
	if !ok || o.Store.Capacity == 0 {
		return worldview.Reject(worldview.ErrInvalidTarget, "no store")
	}
	if u.info.Pos.RangeTo(o.Pos) > interactRange {
		return worldview.Reject(worldview.ErrOutOfRange, "")
	}
	stored := o.Store.Used(res)
	if stored <= 0 {
		return worldview.Reject(worldview.ErrEmpty, "")
	}
	free := u.info.Store.Free()
	if free <= 0 {
		return worldview.Reject(worldview.ErrFull, "carrier full")
	}
	take := stored
	if take > free {
		take = free
	}
	o.Store.Stock[res] -= take
	u.info.Store.Stock[res] += take
	return nil
}

func (w *World) Transfer(agentID string, target worldview.ObjectID, res worldview.Resource) error {
	w.useCPU(actionCost)
	u, err := w.unitByID(agentID)
	if err != nil {
		return err
	}
	o, ok := w.objects[target]
	if !ok || o.Store.Capacity == 0 {
		return worldview.Reject(worldview.ErrInvalidTarget, "no store")
	}
	if u.info.Pos.RangeTo(o.Pos) > interactRange {
		return worldview.Reject(worldview.ErrOutOfRange, "")
	}
	have := u.info.Store.Used(res)
	if have <= 0 {
		return worldview.Reject(worldview.ErrNoResource, "")
	}
	free := o.Store.Free()
	if free <= 0 {
		return worldview.Reject(worldview.ErrFull, "target full")
	}
	give := have
	if give > free {
		give = free
	}
	u.info.Store.Stock[res] -= give
	if o.Store.Stock == nil {
		o.Store.Stock = map[worldview.Resource]int{}
	}
	o.Store.Stock[res] += give
	return nil
}

func (w *World) SpawnAgent(spawnID string, role string, name string) error {
	w.useCPU(actionCost)
	sp, err := w.unitByID(spawnID)
	if err != nil {
		return err
	}
	if sp.info.Kind != worldview.KindSpawn {
		return worldview.Reject(worldview.ErrInvalidTarget, "not a spawn")
	}
	for _, u := range w.units {
		if u.info.Spawning && u.info.Pos.RangeTo(sp.info.Pos) <= 1 {
			return worldview.Reject(worldview.ErrBusy, "spawn in progress")
		}
	}
	obj := w.objects[worldview.ObjectID(spawnID)]
	const spawnCost = 200
	if obj == nil || obj.Store.Used(worldview.ResourceEnergy) < spawnCost {
		return worldview.Reject(worldview.ErrNoResource, "not enough spawn energy")
	}
	obj.Store.Stock[worldview.ResourceEnergy] -= spawnCost

	pos := w.freeNeighbor(sp.info.Pos)
	w.units[name] = &unit{
		info: worldview.AgentInfo{
			ID: name, Kind: worldview.KindUnit, Pos: pos, CanMove: true,
			Spawning: true, RoleHint: role,
			Store: worldview.Store{Stock: map[worldview.Resource]int{}, Capacity: 50},
		},
		readyAt:  w.tick + spawnTicks,
		bodyCost: spawnCost,
	}
	return nil
}

func (w *World) freeNeighbor(pos worldview.Position) worldview.Position {
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			p := worldview.Position{X: pos.X + dx, Y: pos.Y + dy}
			if w.Terrain(p) != worldview.TerrainWall && !w.occupied(p) {
				return p
			}
		}
	}
	return pos
}

func (w *World) occupied(p worldview.Position) bool {
	for _, u := range w.units {
		if u.info.CanMove && u.info.Pos == p {
			return true
		}
	}
	return false
}
