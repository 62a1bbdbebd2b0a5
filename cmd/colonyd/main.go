package main

import (
	"flag"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"colonyd/internal/persistence/indexdb"
	auditlog "colonyd/internal/persistence/log"
	"colonyd/internal/persistence/state"
	"colonyd/internal/sim/localworld"
	"colonyd/internal/sim/orch"
	"colonyd/internal/sim/tuning"
	"colonyd/internal/sim/worldview"
	"colonyd/internal/transport/observer"
)

func main() {
	var (
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
		ticks      = flag.Int("ticks", 0, "stop after this many ticks (0 = run until signalled)")
		seed       = flag.Int64("seed", 1337, "demo world seed")
		obsListen  = flag.String("obs_listen", "127.0.0.1:8091", "observer websocket listen address (empty to disable)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite tick index")
		disableLog = flag.Bool("disable_audit", false, "disable the JSONL audit log")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[colonyd] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", *tuningPath)
	}

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		logger.Fatalf("data dir: %v", err)
	}

	cfg := orch.Config{
		Tuning: tune,
		Logger: logger,
		Store:  state.NewStore(filepath.Join(*dataDir, "state.zst"), logger),
	}
	if !*disableDB {
		idx, err := indexdb.Open(filepath.Join(*dataDir, "index.db"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		cfg.Index = idx
	}
	if !*disableLog {
		audit := auditlog.NewAuditLogger(*dataDir)
		defer audit.Close()
		cfg.Audit = audit
	}

	o := orch.New(cfg)
	w := buildDemoWorld(*seed)

	if addr := strings.TrimSpace(*obsListen); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/v1/observer/ws", observer.NewServer(o, logger).WSHandler())
		go func() {
			logger.Printf("observer listening on %s", addr)
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.Printf("observer: %v", err)
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	rate := tune.TickRateHz
	if rate <= 0 {
		rate = 5
	}
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	logger.Printf("running at %d ticks/s, data in %s", rate, *dataDir)
	ran := 0
	for {
		select {
		case <-stop:
			logger.Printf("signal received, stopping at tick %d", w.Tick())
			return
		case <-ticker.C:
			if err := o.RunTick(w); err != nil {
				logger.Fatalf("tick %d: %v", w.Tick(), err)
			}
			w.Advance()
			ran++
			if *ticks > 0 && ran >= *ticks {
				m := o.Metrics()
				logger.Printf("done: %d ticks, %d agents, last cpu %.2f", ran, m.Agents, m.CPUUsed)
				return
			}
		}
	}
}

// buildDemoWorld lays out a small colony start: one spawn, two sources,
// a controller, some construction work and scattered swamp.
func buildDemoWorld(seed int64) *localworld.World {
	rng := rand.New(rand.NewSource(seed))
	w := localworld.New(localworld.Config{Width: 50, Height: 50, CPULimit: 20})

	for i := 0; i < 120; i++ {
		p := worldview.Position{X: 1 + rng.Intn(48), Y: 1 + rng.Intn(48)}
		w.SetTerrain(p, worldview.TerrainSwamp)
	}

	w.AddSpawn("spawn1", worldview.Position{X: 25, Y: 25}, 300, 300)
	w.AddSource("src1", worldview.Position{X: 12, Y: 20}, 100_000)
	w.AddSource("src2", worldview.Position{X: 38, Y: 31}, 100_000)
	w.AddController("ctrl1", worldview.Position{X: 25, Y: 10})
	w.AddStructure("ext1", worldview.KindExtension, worldview.Position{X: 23, Y: 25}, 50, 0, 1000, 1000)
	w.AddStructure("ext2", worldview.KindExtension, worldview.Position{X: 27, Y: 25}, 50, 0, 1000, 1000)
	w.AddSite("site1", worldview.Position{X: 24, Y: 27}, 0, 1500)
	w.AddStructure("box1", worldview.KindContainer, worldview.Position{X: 13, Y: 20}, 2000, 0, 120_000, 250_000)
	return w
}
