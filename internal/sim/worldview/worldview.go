// Package worldview defines the interface between the scheduling core and
// the external world-query layer. Every object reference obtained from a
// view is valid only for the tick it was fetched in; callers re-resolve
// identities through Resolve before each use.
package worldview

type Resource string

const ResourceEnergy Resource = "energy"

type Terrain int

const (
	TerrainPlain Terrain = iota
	TerrainSwamp
	TerrainWall
)

type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// RangeTo is the Chebyshev distance between two positions; interaction
// ranges and movement goal acceptance use this metric.
func (p Position) RangeTo(o Position) int {
	dx := p.X - o.X
	if dx < 0 {
		dx = -dx
	}
	dy := p.Y - o.Y
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}

// ObjectID is a stable identity for a world object. The identity outlives
// a tick; the attributes returned by Resolve do not.
type ObjectID string

type ObjectKind string

const (
	KindSource     ObjectKind = "SOURCE"
	KindPile       ObjectKind = "PILE"
	KindContainer  ObjectKind = "CONTAINER"
	KindStorage    ObjectKind = "STORAGE"
	KindTerminal   ObjectKind = "TERMINAL"
	KindSpawn      ObjectKind = "SPAWN"
	KindExtension  ObjectKind = "EXTENSION"
	KindTower      ObjectKind = "TOWER"
	KindSite       ObjectKind = "SITE"
	KindController ObjectKind = "CONTROLLER"
	KindUnit       ObjectKind = "UNIT"
)

// Store is a per-resource inventory with a single shared capacity.
type Store struct {
	Stock    map[Resource]int `json:"stock,omitempty"`
	Capacity int              `json:"capacity"`
}

func (s Store) Used(r Resource) int {
	return s.Stock[r]
}

func (s Store) UsedTotal() int {
	total := 0
	for _, n := range s.Stock {
		total += n
	}
	return total
}

func (s Store) Free() int {
	f := s.Capacity - s.UsedTotal()
	if f < 0 {
		return 0
	}
	return f
}

// Object is a one-tick snapshot of a world object's attributes.
type Object struct {
	ID   ObjectID
	Kind ObjectKind
	Pos  Position

	Hits    int
	HitsMax int

	// Amount is the remaining quantity for dropped resource piles and
	// the remaining stock for sources.
	Amount int

	// Construction sites.
	Progress      int
	ProgressTotal int

	Store Store
}

// AgentInfo is a one-tick snapshot of a schedulable entity owned by this
// process: a mobile unit or a fixed facility.
type AgentInfo struct {
	ID       string
	Kind     ObjectKind
	Pos      Position
	CanMove  bool
	Spawning bool
	// RoleHint is the role requested in the spawn intent that produced
	// this unit; empty for facilities and units of unknown origin.
	RoleHint string
	Store    Store
}

// PathRequest describes a single path computation. RoadsOneToOne selects
// the uniform-cost profile (plains and swamp weighted equally).
type PathRequest struct {
	From          Position
	To            Position
	Range         int
	RoadsOneToOne bool
	AvoidAgents   bool
}

// World is the per-tick read surface plus command surface of the external
// world. Implementations return a fresh, consistent view for the current
// tick; nothing obtained through it may be retained past tick end except
// ObjectID and Position values.
type World interface {
	Tick() uint64

	// Units and Facilities enumerate the schedulable entities visible to
	// this process, in a stable order.
	Units() []AgentInfo
	Facilities() []AgentInfo

	// Objects enumerates all targetable objects in the operating area, in
	// a stable order. HomeVisible reports whether the operating area is
	// observable at all this tick.
	Objects() []Object
	HomeVisible() bool

	Resolve(id ObjectID) (Object, bool)
	Terrain(p Position) Terrain

	Actor
	Pather
	CPU
}

// Actor issues action commands for an agent. A nil return means the world
// accepted the action this tick; rejections carry an *ActionError.
type Actor interface {
	Harvest(agentID string, target ObjectID) error
	Build(agentID string, target ObjectID) error
	Repair(agentID string, target ObjectID) error
	Upgrade(agentID string, target ObjectID) error
	Pickup(agentID string, target ObjectID) error
	Withdraw(agentID string, target ObjectID, res Resource) error
	Transfer(agentID string, target ObjectID, res Resource) error

	// SpawnAgent emits a spawn intent to the spawning subsystem. The new
	// unit, if any, appears in Units() on a later tick carrying the role
	// as its RoleHint.
	SpawnAgent(spawnID string, role string, name string) error
}

// Pather exposes path computation and single-step movement. FindPath is
// the most expensive call available and is only invoked from the movement
// phase.
type Pather interface {
	FindPath(req PathRequest) ([]Position, bool)
	MoveStep(agentID string, to Position) error
}

// CPU reports the global compute budget signals used to gate the movement
// phase.
type CPU interface {
	CPUUsed() float64
	CPULimit() float64
	CPUBank() float64
}
