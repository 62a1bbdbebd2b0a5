package orch

import (
	auditlog "colonyd/internal/persistence/log"
	"colonyd/internal/sim/registry"
	"colonyd/internal/sim/roles"
	"colonyd/internal/sim/tasks"
	"colonyd/internal/sim/worldview"
)

// reconcile aligns the registry with what the world reports this tick and
// returns the per-agent info snapshot used by the proposal and execution
// passes. Mobile agents register on sight; facilities register on the
// first tick and on the rescan period; anything registered but gone from
// the view is removed with its reservations.
func (o *Orchestrator) reconcile(view worldview.World, tick uint64) map[string]worldview.AgentInfo {
	infos := map[string]worldview.AgentInfo{}

	for _, u := range view.Units() {
		infos[u.ID] = u
		if o.reg.Has(u.ID) {
			continue
		}
		role := u.RoleHint
		if role == "" {
			role = roles.RoleStartup
		}
		a := &registry.Agent{ID: u.ID, Role: role, CanMove: true}
		if role == roles.RoleSourceHarvester {
			a.Anchor = o.harvestAnchor(view)
		}
		if u.Spawning {
			// Hold the newborn until the world reports it operational.
			a.Queue = []tasks.Entry{tasks.Unreserved(tasks.WaitToSpawn())}
		}
		o.reg.Add(a)
		o.audit(auditlog.AuditEntry{Tick: tick, AgentID: a.ID, Role: a.Role, Event: auditlog.EventRegister})
	}

	addFacilities := !o.facilitiesScanned ||
		(o.cfg.Tuning.FacilityRescanTicks > 0 && tick%o.cfg.Tuning.FacilityRescanTicks == 0)
	for _, f := range view.Facilities() {
		infos[f.ID] = f
		if o.reg.Has(f.ID) || !addFacilities {
			continue
		}
		var role string
		switch f.Kind {
		case worldview.KindSpawn:
			role = roles.RoleSpawner
		case worldview.KindTower:
			role = roles.RoleTower
		default:
			continue
		}
		o.reg.Add(&registry.Agent{ID: f.ID, Role: role, Anchor: f.Pos})
		o.audit(auditlog.AuditEntry{Tick: tick, AgentID: f.ID, Role: role, Event: auditlog.EventRegister})
	}
	o.facilitiesScanned = true

	for _, id := range o.reg.SortedIDs() {
		if _, ok := infos[id]; ok {
			continue
		}
		o.reg.Remove(id, o.led)
		o.move.Forget(id)
		o.audit(auditlog.AuditEntry{Tick: tick, AgentID: id, Event: auditlog.EventDestroy})
	}
	return infos
}

// harvestAnchor picks the source a new dedicated harvester should pin to:
// the first source no other harvester has claimed, or the first source at
// all when every one is taken.
func (o *Orchestrator) harvestAnchor(view worldview.World) worldview.Position {
	taken := map[worldview.Position]bool{}
	for _, id := range o.reg.SortedIDs() {
		a := o.reg.Get(id)
		if a.Role == roles.RoleSourceHarvester {
			taken[a.Anchor] = true
		}
	}
	var first worldview.Position
	haveFirst := false
	for _, obj := range view.Objects() {
		if obj.Kind != worldview.KindSource {
			continue
		}
		if !haveFirst {
			first = obj.Pos
			haveFirst = true
		}
		if !taken[obj.Pos] {
			return obj.Pos
		}
	}
	return first
}
