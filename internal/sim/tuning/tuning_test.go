package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	d := Defaults()
	if d.NoTaskIdleTicks == 0 {
		t.Fatalf("no-task backoff must be positive")
	}
	if d.CPUUsedFrac <= 0 || d.CPUUsedFrac > 1 {
		t.Fatalf("cpu_used_frac out of range: %v", d.CPUUsedFrac)
	}
	if d.RoleFor("hauler").PickupThreshold != 35 {
		t.Fatalf("hauler pickup threshold = %d", d.RoleFor("hauler").PickupThreshold)
	}
	// Unknown roles fall back to startup.
	if d.RoleFor("nosuch") != d.RoleFor("startup") {
		t.Fatalf("unknown role did not fall back to startup")
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "tuning.yaml")
	body := []byte("tick_rate_hz: 2\nstuck_ticks: 7\nroles:\n  hauler:\n    pickup_threshold: 99\n")
	if err := os.WriteFile(p, body, 0o644); err != nil {
		t.Fatal(err)
	}

	tune, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tune.TickRateHz != 2 || tune.StuckTicks != 7 {
		t.Fatalf("overrides not applied: %+v", tune)
	}
	if tune.Roles["hauler"].PickupThreshold != 99 {
		t.Fatalf("role override not applied: %+v", tune.Roles["hauler"])
	}
	// Untouched defaults survive.
	if tune.NoTaskIdleTicks != Defaults().NoTaskIdleTicks {
		t.Fatalf("default lost on partial load")
	}
}

func TestLoad_MissingFileKeepsDefaults(t *testing.T) {
	tune, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
	if !os.IsNotExist(err) {
		t.Fatalf("want not-exist error, got %v", err)
	}
	if tune.TickRateHz != Defaults().TickRateHz {
		t.Fatalf("defaults not returned alongside error")
	}
}
