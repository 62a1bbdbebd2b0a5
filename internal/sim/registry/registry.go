// Package registry owns the per-agent task queues and the outcome rules
// that mutate them from task results. Queue and ledger mutations happen
// together here so no other agent ever observes a half-applied state
// within a tick.
package registry

import (
	"sort"

	"colonyd/internal/sim/ledger"
	"colonyd/internal/sim/tasks"
	"colonyd/internal/sim/worldview"
)

// Agent is the scheduling core's cross-tick record of one schedulable
// entity. Position, store and the like are never cached here; they are
// read fresh from the world view every tick.
type Agent struct {
	ID      string
	Role    string
	CanMove bool

	// Anchor is role-dependent fixed data: the pinned source position
	// for source harvesters, the facility position for spawns/towers.
	Anchor worldview.Position

	Queue []tasks.Entry
}

func (a *Agent) Front() (tasks.Entry, bool) {
	if len(a.Queue) == 0 {
		return tasks.Entry{}, false
	}
	return a.Queue[0], true
}

func (a *Agent) pushFront(e tasks.Entry) {
	a.Queue = append([]tasks.Entry{e}, a.Queue...)
}

func (a *Agent) pushBack(e tasks.Entry) {
	a.Queue = append(a.Queue, e)
}

func (a *Agent) popFront() (tasks.Entry, bool) {
	if len(a.Queue) == 0 {
		return tasks.Entry{}, false
	}
	e := a.Queue[0]
	a.Queue = a.Queue[1:]
	return e, true
}

type Registry struct {
	agents map[string]*Agent
}

func New() *Registry {
	return &Registry{agents: map[string]*Agent{}}
}

func (r *Registry) Get(id string) *Agent {
	return r.agents[id]
}

func (r *Registry) Has(id string) bool {
	_, ok := r.agents[id]
	return ok
}

func (r *Registry) Len() int {
	return len(r.agents)
}

func (r *Registry) Add(a *Agent) {
	r.agents[a.ID] = a
}

// Remove drops an agent and releases every reservation its queue still
// holds.
func (r *Registry) Remove(id string, led *ledger.Ledger) {
	a, ok := r.agents[id]
	if !ok {
		return
	}
	for _, e := range a.Queue {
		led.ReleaseEntry(e)
	}
	delete(r.agents, id)
}

// SortedIDs returns agent ids in a stable order; proposal and execution
// passes iterate in this order so the same world state always produces
// the same assignments.
func (r *Registry) SortedIDs() []string {
	ids := make([]string, 0, len(r.agents))
	for id := range r.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RoleCounts tallies live agents per role (spawner population checks).
func (r *Registry) RoleCounts() map[string]int {
	out := map[string]int{}
	for _, a := range r.agents {
		out[a.Role]++
	}
	return out
}

// Enqueue appends a proposed entry to an agent's queue. The entry's
// reservation was already registered by its creator.
func (r *Registry) Enqueue(a *Agent, e tasks.Entry) {
	a.pushBack(e)
}

// Apply consumes a task result against the agent's front entry, mutating
// queue and ledger consistently. Returns true when the agent was removed.
func (r *Registry) Apply(a *Agent, res tasks.Result, led *ledger.Ledger) (destroyed bool) {
	switch res.Kind {
	case tasks.Complete:
		if e, ok := a.popFront(); ok {
			led.ReleaseEntry(e)
		}
	case tasks.StillWorking, tasks.RequestMove:
		// Queue untouched; movement goals are buffered by the caller.
	case tasks.AddTaskToFront:
		a.pushFront(res.Next)
	case tasks.CompleteAddTaskToFront:
		if e, ok := a.popFront(); ok {
			led.ReleaseEntry(e)
		}
		a.pushFront(res.Next)
	case tasks.CompleteAddTaskToBack:
		if e, ok := a.popFront(); ok {
			led.ReleaseEntry(e)
		}
		a.pushBack(res.Next)
	case tasks.DestroyAgent:
		r.Remove(a.ID, led)
		return true
	}
	return false
}

// ReplayAll rebuilds the ledger from every agent's still-active entries.
func (r *Registry) ReplayAll(led *ledger.Ledger) {
	led.Reset()
	for _, id := range r.SortedIDs() {
		led.Replay(r.agents[id].Queue)
	}
}
