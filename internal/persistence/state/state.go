// Package state persists the scheduling core's only cross-tick memory:
// which agents exist, their roles and anchors, and their task queues.
// Everything else is rebuilt from the world view each tick.
package state

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"colonyd/internal/sim/tasks"
	"colonyd/internal/sim/worldview"
)

const Version = 1

type AgentState struct {
	ID      string             `json:"id"`
	Role    string             `json:"role"`
	CanMove bool               `json:"can_move,omitempty"`
	Anchor  worldview.Position `json:"anchor,omitempty"`
	Queue   []tasks.Entry      `json:"queue,omitempty"`
}

type ProcessState struct {
	Version  int          `json:"version"`
	InitTick uint64       `json:"init_tick"`
	Agents   []AgentState `json:"agents"`
}

// Store reads and writes the zstd-compressed state blob. Writes go to a
// temp file in the same directory and rename over the target, so a crash
// mid-write leaves the previous blob intact.
type Store struct {
	path string
	log  *log.Logger
}

func NewStore(path string, logger *log.Logger) *Store {
	return &Store{path: path, log: logger}
}

// LoadOrInit returns the persisted state, or a fresh one stamped with the
// current tick when no blob exists yet. A corrupt blob is an error, not a
// silent reinit; losing the queues also loses every reservation.
func (s *Store) LoadOrInit(nowTick uint64) (*ProcessState, error) {
	blob, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		if s.log != nil {
			s.log.Printf("no state at %s, cold start at tick %d", s.path, nowTick)
		}
		return &ProcessState{Version: Version, InitTick: nowTick}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress state: %w", err)
	}

	var st ProcessState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	if st.Version != Version {
		return nil, fmt.Errorf("state version %d, want %d", st.Version, Version)
	}
	return &st, nil
}

func (s *Store) Persist(st *ProcessState) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return err
	}
	blob := enc.EncodeAll(raw, nil)
	if err := enc.Close(); err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".state-*.zst")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
