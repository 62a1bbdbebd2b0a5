package state_test

import (
	"encoding/json"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"colonyd/internal/persistence/state"
	"colonyd/internal/sim/tasks"
	"colonyd/internal/sim/worldview"
)

func sampleState() *state.ProcessState {
	return &state.ProcessState{
		Version:  state.Version,
		InitTick: 42,
		Agents: []state.AgentState{
			{
				ID: "hauler-a1b2c3d4", Role: "hauler", CanMove: true,
				Queue: []tasks.Entry{
					{Task: tasks.DeliverToStructure("spawn1", worldview.ResourceEnergy), Reserved: 50},
					{Task: tasks.IdleUntil(100)},
				},
			},
			{
				ID: "harv-1", Role: "source_harvester", CanMove: true,
				Anchor: worldview.Position{X: 12, Y: 7},
				Queue:  []tasks.Entry{{Task: tasks.HarvestForever("src1"), Reserved: 1}},
			},
			{ID: "spawn1", Role: "spawner"},
		},
	}
}

func TestLoadOrInitColdStart(t *testing.T) {
	s := state.NewStore(filepath.Join(t.TempDir(), "state.zst"), nil)
	st, err := s.LoadOrInit(17)
	if err != nil {
		t.Fatalf("LoadOrInit: %v", err)
	}
	if st.Version != state.Version || st.InitTick != 17 || len(st.Agents) != 0 {
		t.Fatalf("unexpected cold state %+v", st)
	}
}

func TestPersistRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.zst")
	s := state.NewStore(path, nil)

	want := sampleState()
	if err := s.Persist(want); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	got, err := s.LoadOrInit(0)
	if err != nil {
		t.Fatalf("LoadOrInit: %v", err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", want, got)
	}
}

func TestPersistOverwritesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.zst")
	s := state.NewStore(path, nil)

	first := sampleState()
	if err := s.Persist(first); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	second := sampleState()
	second.InitTick = 99
	if err := s.Persist(second); err != nil {
		t.Fatalf("Persist again: %v", err)
	}
	got, err := s.LoadOrInit(0)
	if err != nil {
		t.Fatalf("LoadOrInit: %v", err)
	}
	if got.InitTick != 99 {
		t.Fatalf("InitTick = %d, want 99", got.InitTick)
	}
}

func TestStateMatchesSchema(t *testing.T) {
	schema, err := jsonschema.Compile(filepath.Join("..", "..", "..", "schemas", "state.schema.json"))
	if err != nil {
		t.Fatalf("compile schema: %v", err)
	}

	raw, err := json.Marshal(sampleState())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := schema.Validate(doc); err != nil {
		t.Fatalf("validate: %v", err)
	}
}
