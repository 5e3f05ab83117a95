package ecs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
)

// SchedulerStats provides statistics about scheduler execution.
type SchedulerStats struct {
	SystemCount     int
	BatchCount      int
	TotalExecutions int64
	Systems         []SystemStats
}

// SystemStats provides execution statistics for a single system.
type SystemStats struct {
	Name           SystemId
	Batch          int
	ExecutionCount int64
	MinDuration    time.Duration
	MaxDuration    time.Duration
	AvgDuration    time.Duration
	LastDuration   time.Duration
	TotalDuration  time.Duration
}

type systemStatsInternal struct {
	executionCount int64
	minDuration    time.Duration
	maxDuration    time.Duration
	totalDuration  time.Duration
	lastDuration   time.Duration
}

func (s *systemStatsInternal) record(d time.Duration) {
	s.executionCount++
	s.lastDuration = d
	s.totalDuration += d
	if d < s.minDuration {
		s.minDuration = d
	}
	if d > s.maxDuration {
		s.maxDuration = d
	}
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithParallelism caps how many systems of one batch run at the same time.
// Zero or less means no cap.
func WithParallelism(n int) SchedulerOption {
	return func(s *Scheduler) {
		s.parallelism = n
	}
}

// WithSchedulerLogger sets the scheduler's logger instead of the package logger.
func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// Scheduler runs systems against one world and resource container. Systems are grouped
// into batches whose declared accesses are pairwise conflict-free; each batch runs in
// parallel, and every system's command buffer is applied serially at the end of a tick.
type Scheduler struct {
	world       *World
	resources   *Resources
	systems     []Runnable
	systemStats []*systemStatsInternal
	batches     [][]int
	batchOf     []int
	compiled    bool
	parallelism int
	logger      *slog.Logger
	tick        uint64
}

// NewScheduler creates a scheduler. A nil resources container is replaced by an empty one.
func NewScheduler(world *World, resources *Resources, opts ...SchedulerOption) *Scheduler {
	if resources == nil {
		resources = NewResources()
	}
	s := &Scheduler{
		world:     world,
		resources: resources,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// World returns the world the scheduler drives.
func (s *Scheduler) World() *World { return s.world }

// Resources returns the resource container passed to every system.
func (s *Scheduler) Resources() *Resources { return s.resources }

// Register adds a system. Batches are recomputed on the next tick.
func (s *Scheduler) Register(system Runnable) {
	s.systems = append(s.systems, system)
	s.systemStats = append(s.systemStats, &systemStatsInternal{
		minDuration: time.Duration(1<<63 - 1),
	})
	s.compiled = false
}

// Systems returns the registered systems in registration order.
func (s *Scheduler) Systems() []Runnable {
	return slices.Clone(s.systems)
}

// Batches returns the systems grouped as they will run.
func (s *Scheduler) Batches() [][]Runnable {
	s.compile()
	out := make([][]Runnable, len(s.batches))
	for i, batch := range s.batches {
		out[i] = make([]Runnable, len(batch))
		for j, idx := range batch {
			out[i][j] = s.systems[idx]
		}
	}
	return out
}

// compile groups systems greedily in registration order. A system joins the current
// batch only if it conflicts neither with the batch nor with an earlier system that was
// pushed to a later batch, so conflicting systems keep their registration order.
func (s *Scheduler) compile() {
	if s.compiled {
		return
	}

	s.batches = s.batches[:0]
	s.batchOf = make([]int, len(s.systems))
	remaining := make([]int, len(s.systems))
	for i := range remaining {
		remaining[i] = i
	}

	for len(remaining) > 0 {
		var batch, deferred []int
		for _, idx := range remaining {
			if s.conflictsWithAny(idx, batch) || s.conflictsWithAny(idx, deferred) {
				deferred = append(deferred, idx)
				continue
			}
			batch = append(batch, idx)
		}
		for _, idx := range batch {
			s.batchOf[idx] = len(s.batches)
		}
		s.batches = append(s.batches, batch)
		remaining = deferred
	}

	s.compiled = true
	s.log().Debug("compiled schedule", "systems", len(s.systems), "batches", len(s.batches))
}

// conflictsWithAny also treats a second registration of the same instance as a conflict,
// since a system must never run concurrently with itself.
func (s *Scheduler) conflictsWithAny(idx int, indices []int) bool {
	system := s.systems[idx]
	access := system.Access()
	for _, other := range indices {
		if s.systems[other] == system || access.ConflictsWith(s.systems[other].Access()) {
			return true
		}
	}
	return false
}

// Once executes every registered system once with the given delta time, then applies
// the command buffers.
//
// A panic in a system propagates to the caller of Once with its original value, whether
// the system ran alone or in a parallel batch. The rest of its batch finishes first;
// later batches do not run and no command buffer is applied.
func (s *Scheduler) Once(dt float64) {
	s.compile()
	s.writeFrame(dt)

	for _, batch := range s.batches {
		for _, idx := range batch {
			s.systems[idx].Prepare(s.world)
		}
		s.runBatch(batch)
	}

	buffers := make([]*CommandBuffer, len(s.systems))
	for i, system := range s.systems {
		buffers[i] = system.CommandBuffer(s.world)
	}
	if err := ApplyCommandBuffers(s.world, buffers...); err != nil {
		panic(err.Error())
	}
	s.tick++
}

func (s *Scheduler) writeFrame(dt float64) {
	frame := UpdateFrame{DeltaTime: dt, Tick: s.tick}
	if ref, ok := GetResourceMut[UpdateFrame](s.resources); ok {
		*ref.Get() = frame
		ref.Release()
		return
	}
	InsertResource(s.resources, frame)
}

func (s *Scheduler) runBatch(batch []int) {
	if len(batch) == 1 {
		s.runSystem(batch[0])
		return
	}

	var g errgroup.Group
	if s.parallelism > 0 {
		g.SetLimit(s.parallelism)
	}
	for _, idx := range batch {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &systemPanic{system: s.systems[idx].Name(), value: r}
				}
			}()
			s.runSystem(idx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var p *systemPanic
		if errors.As(err, &p) {
			panic(p.value)
		}
	}
}

// systemPanic carries a panic out of an errgroup goroutine so it can be re-raised on
// the goroutine that called Once.
type systemPanic struct {
	system SystemId
	value  any
}

func (p *systemPanic) Error() string {
	return fmt.Sprintf("system %q panicked: %v", p.system, p.value)
}

func (s *Scheduler) runSystem(idx int) {
	start := time.Now()
	s.systems[idx].Run(s.world, s.resources)
	s.systemStats[idx].record(time.Since(start))
}

// Run executes all systems repeatedly at the given interval until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dt := now.Sub(lastTime).Seconds()
			lastTime = now
			s.Once(dt)
		}
	}
}

// GetStats returns statistics about system execution.
func (s *Scheduler) GetStats() *SchedulerStats {
	s.compile()
	stats := &SchedulerStats{
		SystemCount: len(s.systems),
		BatchCount:  len(s.batches),
		Systems:     make([]SystemStats, len(s.systemStats)),
	}

	var totalExecs int64
	for i, internal := range s.systemStats {
		avgDuration := time.Duration(0)
		minDuration := time.Duration(0)
		if internal.executionCount > 0 {
			avgDuration = internal.totalDuration / time.Duration(internal.executionCount)
			minDuration = internal.minDuration
		}

		stats.Systems[i] = SystemStats{
			Name:           s.systems[i].Name(),
			Batch:          s.batchOf[i],
			ExecutionCount: internal.executionCount,
			MinDuration:    minDuration,
			MaxDuration:    internal.maxDuration,
			AvgDuration:    avgDuration,
			LastDuration:   internal.lastDuration,
			TotalDuration:  internal.totalDuration,
		}
		totalExecs += internal.executionCount
	}

	stats.TotalExecutions = totalExecs
	return stats
}

func (s *Scheduler) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return Logger()
}
