// Package tuning holds the yaml-backed knobs of the scheduling core.
package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz int `yaml:"tick_rate_hz"`

	// Registry maintenance.
	FacilityRescanTicks uint64 `yaml:"facility_rescan_ticks"`

	// Proposal backoff when no task qualifies.
	NoTaskIdleTicks uint64 `yaml:"no_task_idle_ticks"`

	// Movement phase.
	CPUUsedFrac float64 `yaml:"cpu_used_frac"` // skip moves when used > frac*limit
	CPUBankMin  float64 `yaml:"cpu_bank_min"`  // skip moves when bank below this
	StuckTicks  int     `yaml:"stuck_ticks"`   // identical-position ticks before repath

	// Population targets the spawner keeps alive, checked in SpawnOrder.
	Population map[string]int `yaml:"population"`
	SpawnOrder []string       `yaml:"spawn_order"`

	Roles map[string]RoleTuning `yaml:"roles"`
}

type RoleTuning struct {
	PickupThreshold   int `yaml:"pickup_threshold"`   // min pile size worth walking to
	WithdrawThreshold int `yaml:"withdraw_threshold"` // min stored amount worth withdrawing
	RepairWatermark   int `yaml:"repair_watermark"`   // repair structures below this many hits
	BodyCost          int `yaml:"body_cost"`          // colony energy needed to spawn one
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz:          5,
		FacilityRescanTicks: 100,
		NoTaskIdleTicks:     10,
		CPUUsedFrac:         0.85,
		CPUBankMin:          500,
		StuckTicks:          3,
		Population: map[string]int{
			"startup":          2,
			"hauler":           2,
			"builder":          1,
			"upgrader":         1,
			"source_harvester": 1,
		},
		SpawnOrder: []string{"startup", "source_harvester", "hauler", "upgrader", "builder"},
		Roles: map[string]RoleTuning{
			"startup":          {PickupThreshold: 35, WithdrawThreshold: 50, RepairWatermark: 10_000, BodyCost: 250},
			"builder":          {PickupThreshold: 35, WithdrawThreshold: 50, RepairWatermark: 10_000, BodyCost: 200},
			"hauler":           {PickupThreshold: 35, WithdrawThreshold: 100, BodyCost: 300},
			"upgrader":         {PickupThreshold: 35, WithdrawThreshold: 50, BodyCost: 250},
			"source_harvester": {BodyCost: 550},
		},
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// RoleFor returns the tuning block for a role, falling back to the
// startup block for unknown roles.
func (t Tuning) RoleFor(role string) RoleTuning {
	if rt, ok := t.Roles[role]; ok {
		return rt
	}
	return t.Roles["startup"]
}
