package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"runtime"
	"time"

	"github.com/pkg/profile"

	"github.com/plus3/syskernel/ecs"
	"github.com/plus3/syskernel/ecs/debugui"
	debugui_ebiten "github.com/plus3/syskernel/ecs/debugui/ebiten"
)

const maxComponentsPerEntity = 5

func main() {
	duration := flag.Duration("duration", 10*time.Second, "The total duration the test should run for.")
	entityCount := flag.Int("entities", 10000, "The initial number of entities to create.")
	systemCount := flag.Int("systems", 50, "The number of randomized systems to schedule.")
	workers := flag.Int("workers", 0, "Maximum systems running at once within a batch (0 = unlimited).")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Seed for entity and system generation.")
	profileMode := flag.String("profile", "none", "Write a profile to the working directory: cpu, mem or none.")
	gcPauseMetrics := flag.Bool("gc-pause-metrics", false, "Enable detailed GC pause metrics in the report.")
	debug := flag.Bool("debug", false, "Log every system run to stderr.")
	ui := flag.Bool("ui", false, "Open the inspector window instead of running headless; -duration is ignored.")
	flag.Parse()

	switch *profileMode {
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "none":
	default:
		log.Fatalf("unknown -profile mode %q (want cpu, mem or none)", *profileMode)
	}

	if *debug {
		ecs.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	log.Println("Starting ECS stress test...")
	rng := rand.New(rand.NewSource(*seed))

	// 1. Setup registry, world, resources and scheduler
	registry := ecs.NewComponentRegistry()
	registerComponents(registry)
	if *ui {
		debugui.RegisterDebugUIComponents(registry)
	}
	world := ecs.NewWorld(registry)
	resources := ecs.NewResources()
	insertResources(resources)
	if *ui {
		debugui.InsertDebugUIResources(resources)
	}

	scheduler := ecs.NewScheduler(world, resources, ecs.WithParallelism(*workers))
	for _, system := range buildSystems(rng, *systemCount) {
		scheduler.Register(system)
	}

	// 2. Populate the world with initial entities
	log.Printf("Populating world with %d entities...\n", *entityCount)
	for i := 0; i < *entityCount; i++ {
		spawnRandomEntity(world, rng, maxComponentsPerEntity)
	}
	log.Printf("Population complete: %d archetypes.\n", len(world.Archetypes()))

	// 3. Run the simulation loop
	report := &Report{
		Duration:       *duration,
		Entities:       *entityCount,
		Components:     componentCount,
		Systems:        *systemCount,
		Workers:        *workers,
		Seed:           *seed,
		GCPauseMetrics: *gcPauseMetrics,
		UpdateTime: Stats{
			Samples: make([]time.Duration, 0),
		},
	}

	runtime.ReadMemStats(&report.MemStatsStart)

	startTime := time.Now()
	if *ui {
		log.Println("Running simulation until the inspector window is closed...")
		report.TotalUpdates = runInspector(scheduler)
	} else {
		log.Printf("Running simulation for %s...\n", *duration)
		report.TotalUpdates = runHeadless(scheduler, *duration, &report.UpdateTime)
	}

	report.TotalTime = time.Since(startTime)
	report.UpdateTime.Finalize()
	runtime.ReadMemStats(&report.MemStatsEnd)
	report.World = world.CollectStats()
	report.AddSchedule(scheduler)

	log.Println("Simulation finished.")

	// 4. Generate report to console
	fmt.Println("\n\n--- Stress Test Report ---")
	if err := report.Generate(os.Stdout); err != nil {
		log.Fatalf("Failed to generate report: %v", err)
	}
	fmt.Println("--- End of Report ---")

	log.Println("Stress test complete.")
}

func runHeadless(scheduler *ecs.Scheduler, duration time.Duration, updateTime *Stats) int64 {
	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	var totalUpdates int64
	lastFrameTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			return totalUpdates
		default:
			deltaTime := time.Since(lastFrameTime)
			lastFrameTime = time.Now()

			updateStart := time.Now()
			scheduler.Once(deltaTime.Seconds())
			updateTime.Samples = append(updateTime.Samples, time.Since(updateStart))
			totalUpdates++
		}
	}
}

// runInspector drives the scheduler from the Ebiten loop with the debug panels open and
// returns the number of ticks executed.
func runInspector(scheduler *ecs.Scheduler) int64 {
	scheduler.Register(debugui.NewImguiSystem(nil))
	debugui.SpawnDebugUI(scheduler)

	host := debugui_ebiten.NewHost("ECS Stress Inspector", 1280, 720, scheduler)
	if err := host.Run(); err != nil {
		log.Fatalf("Inspector window failed: %v", err)
	}

	frame, ok := ecs.ReadResource[ecs.UpdateFrame](scheduler.Resources())
	if !ok {
		return 0
	}
	return int64(frame.Tick) + 1
}
