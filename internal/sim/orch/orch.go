// Package orch drives the tick pipeline: reconcile the registry with the
// world, rebuild the reservation ledger, propose tasks for idle agents,
// execute every queue front, issue deferred spawns, then resolve batched
// movement. One RunTick call per world tick, single goroutine.
package orch

import (
	"fmt"
	"log"
	"sync"

	"colonyd/internal/persistence/indexdb"
	auditlog "colonyd/internal/persistence/log"
	"colonyd/internal/persistence/state"
	"colonyd/internal/sim/exec"
	"colonyd/internal/sim/ledger"
	"colonyd/internal/sim/movement"
	"colonyd/internal/sim/registry"
	"colonyd/internal/sim/roles"
	"colonyd/internal/sim/tasks"
	"colonyd/internal/sim/tuning"
	"colonyd/internal/sim/worldview"
)

// Metrics is a point-in-time summary of the last completed tick,
// published to the observer endpoint.
type Metrics struct {
	Tick         uint64  `json:"tick"`
	Agents       int     `json:"agents"`
	Proposals    int     `json:"proposals"`
	Executed     int     `json:"executed"`
	MovesIssued  int     `json:"moves_issued"`
	MovesSkipped int     `json:"moves_skipped"`
	CPUUsed      float64 `json:"cpu_used"`
}

type Config struct {
	Tuning tuning.Tuning
	Logger *log.Logger

	// All three are optional; nil disables the concern.
	Store *state.Store
	Index *indexdb.SQLiteIndex
	Audit *auditlog.AuditLogger
}

type Orchestrator struct {
	cfg   Config
	log   *log.Logger
	reg   *registry.Registry
	led   *ledger.Ledger
	roles *roles.Engine
	exec  *exec.Engine
	move  *movement.Phase

	loaded            bool
	initTick          uint64
	facilitiesScanned bool

	mu      sync.Mutex
	metrics Metrics
}

func New(cfg Config) *Orchestrator {
	return &Orchestrator{
		cfg:   cfg,
		log:   cfg.Logger,
		reg:   registry.New(),
		led:   ledger.New(),
		roles: roles.NewEngine(cfg.Tuning, cfg.Logger),
		exec:  exec.New(cfg.Logger),
		move:  movement.NewPhase(cfg.Tuning, cfg.Logger),
	}
}

// Metrics returns the last tick's summary; safe to call from the
// observer goroutine while RunTick runs.
func (o *Orchestrator) Metrics() Metrics {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.metrics
}

// Registry exposes the agent registry for integration tests.
func (o *Orchestrator) Registry() *registry.Registry {
	return o.reg
}

// Ledger exposes the reservation ledger for integration tests.
func (o *Orchestrator) Ledger() *ledger.Ledger {
	return o.led
}

// RunTick advances the scheduling core by one tick against the given
// world view. Persisted state is loaded lazily on the first call so the
// world's tick counter is known before the cold-start stamp is taken.
func (o *Orchestrator) RunTick(view worldview.World) error {
	tick := view.Tick()

	if !o.loaded {
		if err := o.load(tick); err != nil {
			return err
		}
	}

	infos := o.reconcile(view, tick)
	o.reg.ReplayAll(o.led)

	counts := o.reg.RoleCounts()
	proposals := 0
	for _, id := range o.reg.SortedIDs() {
		a := o.reg.Get(id)
		if len(a.Queue) > 0 {
			continue
		}
		info, ok := infos[id]
		if !ok {
			continue
		}
		entry := o.roles.Propose(a, info, counts, view, o.led)
		o.reg.Enqueue(a, entry)
		proposals++
		o.audit(auditlog.AuditEntry{
			Tick: tick, AgentID: id, Role: a.Role, Event: auditlog.EventAssign,
			Kind: string(entry.Task.Kind), Target: string(entry.Task.Target), Reserved: entry.Reserved,
		})
		o.cfg.Index.WriteAssignment(indexdb.AssignmentRow{
			Tick: tick, AgentID: id, Role: a.Role,
			Kind: string(entry.Task.Kind), Target: string(entry.Task.Target), Reserved: entry.Reserved,
		})
	}

	executed := 0
	for _, id := range o.reg.SortedIDs() {
		a := o.reg.Get(id)
		if a == nil {
			continue
		}
		entry, ok := a.Front()
		if !ok {
			continue
		}
		info, ok := infos[id]
		if !ok {
			continue
		}
		res := o.exec.Execute(view, info, entry, o.roles.ProfileFor(a.Role))
		executed++
		if res.Kind == tasks.RequestMove {
			o.move.Request(id, res.Goal)
		}
		if o.reg.Apply(a, res, o.led) {
			o.move.Forget(id)
			o.audit(auditlog.AuditEntry{Tick: tick, AgentID: id, Role: a.Role, Event: auditlog.EventDestroy})
			continue
		}
		switch res.Kind {
		case tasks.Complete, tasks.CompleteAddTaskToFront, tasks.CompleteAddTaskToBack:
			o.audit(auditlog.AuditEntry{
				Tick: tick, AgentID: id, Role: a.Role, Event: auditlog.EventComplete,
				Kind: string(entry.Task.Kind), Target: string(entry.Task.Target),
			})
		}
	}

	// Spawns are issued strictly after the act pass so a newborn never
	// participates in the tick that requested it.
	for _, in := range o.exec.TakeSpawnIntents() {
		if err := view.SpawnAgent(in.SpawnID, in.Role, in.Name); err != nil {
			o.warnf("spawn %s from %s: %v", in.Name, in.SpawnID, err)
			continue
		}
		o.audit(auditlog.AuditEntry{
			Tick: tick, AgentID: in.Name, Role: in.Role, Event: auditlog.EventSpawnSent, Target: in.SpawnID,
		})
	}

	issued, skipped := o.move.Run(view)

	if err := o.persist(); err != nil {
		return err
	}

	m := Metrics{
		Tick:         tick,
		Agents:       o.reg.Len(),
		Proposals:    proposals,
		Executed:     executed,
		MovesIssued:  issued,
		MovesSkipped: skipped,
		CPUUsed:      view.CPUUsed(),
	}
	o.cfg.Index.WriteTick(indexdb.TickRow{
		Tick: m.Tick, Agents: m.Agents, Proposals: m.Proposals, Executed: m.Executed,
		MovesIssued: m.MovesIssued, MovesSkipped: m.MovesSkipped, CPUUsed: m.CPUUsed,
	})
	o.mu.Lock()
	o.metrics = m
	o.mu.Unlock()
	return nil
}

func (o *Orchestrator) load(tick uint64) error {
	o.loaded = true
	o.initTick = tick
	if o.cfg.Store == nil {
		return nil
	}
	st, err := o.cfg.Store.LoadOrInit(tick)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	o.initTick = st.InitTick
	for _, as := range st.Agents {
		o.reg.Add(&registry.Agent{
			ID: as.ID, Role: as.Role, CanMove: as.CanMove,
			Anchor: as.Anchor, Queue: as.Queue,
		})
	}
	if len(st.Agents) > 0 && o.log != nil {
		o.log.Printf("restored %d agents from state (init tick %d)", len(st.Agents), st.InitTick)
	}
	return nil
}

func (o *Orchestrator) persist() error {
	if o.cfg.Store == nil {
		return nil
	}
	st := &state.ProcessState{Version: state.Version, InitTick: o.initTick}
	for _, id := range o.reg.SortedIDs() {
		a := o.reg.Get(id)
		st.Agents = append(st.Agents, state.AgentState{
			ID: a.ID, Role: a.Role, CanMove: a.CanMove,
			Anchor: a.Anchor, Queue: a.Queue,
		})
	}
	if err := o.cfg.Store.Persist(st); err != nil {
		return fmt.Errorf("persist state: %w", err)
	}
	return nil
}

func (o *Orchestrator) audit(e auditlog.AuditEntry) {
	if err := o.cfg.Audit.Write(e); err != nil {
		o.warnf("audit write: %v", err)
	}
}

func (o *Orchestrator) warnf(format string, args ...any) {
	if o.log != nil {
		o.log.Printf("WARN "+format, args...)
	}
}
