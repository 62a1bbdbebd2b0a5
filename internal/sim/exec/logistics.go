package exec

import (
	"colonyd/internal/sim/tasks"
	"colonyd/internal/sim/worldview"
)

// Logistics tasks are one-shot: a single successful pickup, withdraw or
// transfer completes the task and the agent re-proposes with its new
// inventory. "Soft" rejections (empty pile, full target) are ordinary
// completions, not failures.

func (e *Engine) takeFromPile(view worldview.World, info worldview.AgentInfo, t tasks.Task, profile tasks.MovementProfile) tasks.Result {
	pile, ok := view.Resolve(t.Target)
	if !ok {
		return tasks.Completed()
	}
	if info.Store.Free() <= 0 {
		return tasks.Completed()
	}
	if info.Pos.RangeTo(pile.Pos) > interactRange {
		return moveTo(pile.Pos, interactRange, profile)
	}
	if err := view.Pickup(info.ID, t.Target); err != nil {
		if worldview.IsCode(err, worldview.ErrEmpty) || worldview.IsCode(err, worldview.ErrFull) {
			return tasks.Completed()
		}
		return e.fail(info, "pick up", err)
	}
	return tasks.Completed()
}

func (e *Engine) takeFromStructure(view worldview.World, info worldview.AgentInfo, t tasks.Task, profile tasks.MovementProfile) tasks.Result {
	o, ok := view.Resolve(t.Target)
	if !ok {
		return tasks.Completed()
	}
	if info.Store.Free() <= 0 || o.Store.Used(t.Resource) <= 0 {
		return tasks.Completed()
	}
	if info.Pos.RangeTo(o.Pos) > interactRange {
		return moveTo(o.Pos, interactRange, profile)
	}
	if err := view.Withdraw(info.ID, t.Target, t.Resource); err != nil {
		if worldview.IsCode(err, worldview.ErrEmpty) || worldview.IsCode(err, worldview.ErrFull) {
			return tasks.Completed()
		}
		return e.fail(info, "withdraw", err)
	}
	return tasks.Completed()
}

func (e *Engine) deliverToStructure(view worldview.World, info worldview.AgentInfo, t tasks.Task, profile tasks.MovementProfile) tasks.Result {
	o, ok := view.Resolve(t.Target)
	if !ok {
		return tasks.Completed()
	}
	if info.Store.Used(t.Resource) <= 0 || o.Store.Free() <= 0 {
		return tasks.Completed()
	}
	if info.Pos.RangeTo(o.Pos) > interactRange {
		return moveTo(o.Pos, interactRange, profile)
	}
	if err := view.Transfer(info.ID, t.Target, t.Resource); err != nil {
		if worldview.IsCode(err, worldview.ErrFull) || worldview.IsCode(err, worldview.ErrNoResource) {
			return tasks.Completed()
		}
		return e.fail(info, "transfer", err)
	}
	return tasks.Completed()
}
