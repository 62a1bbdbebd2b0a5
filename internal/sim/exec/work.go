package exec

import (
	"colonyd/internal/sim/tasks"
	"colonyd/internal/sim/worldview"
)

func (e *Engine) harvest(view worldview.World, info worldview.AgentInfo, t tasks.Task, profile tasks.MovementProfile, forever bool) tasks.Result {
	src, ok := view.Resolve(t.Target)
	if !ok {
		return tasks.Completed()
	}
	if !forever && info.Store.Free() <= 0 {
		return tasks.Completed()
	}
	if info.Pos.RangeTo(src.Pos) > interactRange {
		return moveTo(src.Pos, interactRange, profile)
	}
	if err := view.Harvest(info.ID, t.Target); err != nil {
		if worldview.IsCode(err, worldview.ErrEmpty) {
			// Exhausted sources regenerate; a pinned harvester waits in
			// place instead of abandoning its post.
			if forever {
				return tasks.Working()
			}
			return tasks.Completed()
		}
		return e.fail(info, "harvest", err)
	}
	return tasks.Working()
}

func (e *Engine) build(view worldview.World, info worldview.AgentInfo, t tasks.Task, profile tasks.MovementProfile) tasks.Result {
	site, ok := view.Resolve(t.Target)
	if !ok {
		// Finished sites vanish from the view; done either way.
		return tasks.Completed()
	}
	if info.Store.Used(worldview.ResourceEnergy) <= 0 {
		return tasks.Completed()
	}
	if info.Pos.RangeTo(site.Pos) > workRange {
		return moveTo(site.Pos, workRange, profile)
	}
	if err := view.Build(info.ID, t.Target); err != nil {
		return e.fail(info, "build", err)
	}
	return tasks.Working()
}

func (e *Engine) repair(view worldview.World, info worldview.AgentInfo, t tasks.Task, profile tasks.MovementProfile) tasks.Result {
	o, ok := view.Resolve(t.Target)
	if !ok {
		return tasks.Completed()
	}
	if o.Hits >= o.HitsMax || info.Store.Used(worldview.ResourceEnergy) <= 0 {
		return tasks.Completed()
	}
	if info.Pos.RangeTo(o.Pos) > workRange {
		return moveTo(o.Pos, workRange, profile)
	}
	if err := view.Repair(info.ID, t.Target); err != nil {
		if worldview.IsCode(err, worldview.ErrFull) {
			return tasks.Completed()
		}
		return e.fail(info, "repair", err)
	}
	return tasks.Working()
}

func (e *Engine) upgrade(view worldview.World, info worldview.AgentInfo, t tasks.Task, profile tasks.MovementProfile) tasks.Result {
	o, ok := view.Resolve(t.Target)
	if !ok {
		return tasks.Completed()
	}
	if info.Store.Used(worldview.ResourceEnergy) <= 0 {
		return tasks.Completed()
	}
	if info.Pos.RangeTo(o.Pos) > workRange {
		return moveTo(o.Pos, workRange, profile)
	}
	if err := view.Upgrade(info.ID, t.Target); err != nil {
		return e.fail(info, "upgrade", err)
	}
	return tasks.Working()
}
