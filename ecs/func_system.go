package ecs

import (
	"context"
	"log/slog"
	"runtime/trace"
)

// SystemState tracks where a system is in its lifecycle.
type SystemState uint8

const (
	// StateBuilt: access declared, archetype cache not yet populated.
	StateBuilt SystemState = iota
	// StatePrepared: archetype cache refreshed for the current world.
	StatePrepared
	// StateRan: the closure executed since the last Prepare.
	StateRan
)

func (s SystemState) String() string {
	switch s {
	case StatePrepared:
		return "prepared"
	case StateRan:
		return "ran"
	default:
		return "built"
	}
}

type systemConfig struct {
	componentReads  []ComponentTypeId
	componentWrites []ComponentTypeId
	logger          *slog.Logger
}

// SystemOption configures a system when it is built.
type SystemOption func(*systemConfig)

// ReadsComponent declares read access to component T on every archetype, for systems
// that look components up through the SubWorld rather than a query.
func ReadsComponent[T any]() SystemOption {
	return func(c *systemConfig) {
		c.componentReads = append(c.componentReads, ComponentTypeOf[T]())
	}
}

// WritesComponent declares write access to component T on every archetype.
func WritesComponent[T any]() SystemOption {
	return func(c *systemConfig) {
		c.componentWrites = append(c.componentWrites, ComponentTypeOf[T]())
	}
}

// WithLogger sets the logger of the system instead of the package logger.
func WithLogger(logger *slog.Logger) SystemOption {
	return func(c *systemConfig) {
		c.logger = logger
	}
}

// System wraps a SystemFn together with everything needed to schedule it: its declared
// access, its query holder, the cached archetype membership and one command buffer per
// world it has run against. Build it with NewSystem or NewSystemFromFn.
//
// R is the resource set fetched on every run and Q the query holder, a struct whose
// ecs.Query fields are discovered when the system is built. Other fields of Q are kept
// between runs and can hold system state.
type System[R ResourceSet[R], Q any] struct {
	name       SystemId
	regionName string
	queries    *Q
	querySets  []querySet
	fn         SystemFn[R, Q]
	archetypes ArchetypeAccess
	access     SystemAccess
	state      SystemState
	logger     *slog.Logger

	// Buffers are created on first use and reused; Apply drains them between ticks.
	commandBuffers map[WorldId]*CommandBuffer
}

// NewSystem builds a system from a function.
func NewSystem[R ResourceSet[R], Q any](name string, fn SystemFunc[R, Q], opts ...SystemOption) *System[R, Q] {
	return NewSystemFromFn[R, Q](name, fn, opts...)
}

// NewSystemFromFn builds a system from any SystemFn.
func NewSystemFromFn[R ResourceSet[R], Q any](name string, fn SystemFn[R, Q], opts ...SystemOption) *System[R, Q] {
	var cfg systemConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	queries := new(Q)
	querySets := collectQueries(queries)

	var resources R
	components := Access[ComponentTypeId]{
		Reads:  append([]ComponentTypeId(nil), cfg.componentReads...),
		Writes: append([]ComponentTypeId(nil), cfg.componentWrites...),
	}
	for _, qs := range querySets {
		a := qs.componentAccess()
		components.Reads = append(components.Reads, a.Reads...)
		components.Writes = append(components.Writes, a.Writes...)
	}

	kind := NoArchetypes
	switch {
	case len(cfg.componentReads)+len(cfg.componentWrites) > 0:
		kind = AllArchetypes
	case len(querySets) > 0:
		kind = SomeArchetypes
	}

	return &System[R, Q]{
		name:       SystemId(name),
		regionName: "System " + name,
		queries:    queries,
		querySets:  querySets,
		fn:         fn,
		archetypes: newArchetypeAccess(kind),
		access: SystemAccess{
			Resources: Access[ResourceTypeId]{
				Reads:  resources.ReadTypes(),
				Writes: resources.WriteTypes(),
			}.normalize(),
			Components: components.normalize(),
		},
		logger:         cfg.logger,
		commandBuffers: make(map[WorldId]*CommandBuffer),
	}
}

func (s *System[R, Q]) Name() SystemId {
	return s.name
}

func (s *System[R, Q]) Reads() ([]ResourceTypeId, []ComponentTypeId) {
	return s.access.Resources.Reads, s.access.Components.Reads
}

func (s *System[R, Q]) Writes() ([]ResourceTypeId, []ComponentTypeId) {
	return s.access.Resources.Writes, s.access.Components.Writes
}

func (s *System[R, Q]) Access() SystemAccess {
	return s.access
}

// Queries returns the query holder, for seeding or inspecting system state between runs.
func (s *System[R, Q]) Queries() *Q {
	return s.queries
}

// State returns the lifecycle state.
func (s *System[R, Q]) State() SystemState {
	return s.state
}

// Prepare refreshes the cached archetype membership. The cache is only rebuilt when the
// world or its generation differs from the last refresh.
func (s *System[R, Q]) Prepare(world *World) {
	s.state = StatePrepared
	if s.archetypes.kind != SomeArchetypes || !s.archetypes.stale(world) {
		return
	}

	s.archetypes.bits.ClearAll()
	for _, qs := range s.querySets {
		qs.filterArchetypes(world, s.archetypes.bits)
	}
	s.archetypes.markFresh(world)
}

func (s *System[R, Q]) AccessesArchetypes() *ArchetypeAccess {
	return &s.archetypes
}

// CommandBuffer returns the system's command buffer for the world, creating it on first
// use. The same world always yields the same buffer.
func (s *System[R, Q]) CommandBuffer(world *World) *CommandBuffer {
	cmd, ok := s.commandBuffers[world.Id()]
	if !ok {
		cmd = NewCommandBuffer(world)
		s.commandBuffers[world.Id()] = cmd
	}
	return cmd
}

// Run fetches the declared resources, prepares the queries, restricts the world to the
// declared access and calls the system function. See Runnable for the safety contract.
func (s *System[R, Q]) Run(world *World, resources *Resources) {
	ctx := context.Background()
	defer trace.StartRegion(ctx, s.regionName).End()

	logger := s.log()
	logger.LogAttrs(ctx, slog.LevelDebug, "Initializing", slog.String("system", string(s.name)))

	scope := newScope(s.name)
	defer scope.end()

	var set R
	fetched := set.FetchUnchecked(resources, scope)

	for _, qs := range s.querySets {
		qs.prepare()
	}
	defer func() {
		for _, qs := range s.querySets {
			qs.release()
		}
	}()

	sub := NewSubWorld(world, s.name, &s.access.Components, &s.archetypes)
	cmd := s.CommandBuffer(world)

	logger.LogAttrs(ctx, slog.LevelInfo, "Running", slog.String("system", string(s.name)))
	s.fn.Run(cmd, sub, fetched, s.queries)
	s.state = StateRan
}

func (s *System[R, Q]) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return Logger()
}
