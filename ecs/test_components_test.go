package ecs_test

import "github.com/plus3/syskernel/ecs"

// Common test component types
type Position struct {
	X, Y float32
}

type Velocity struct {
	DX, DY float32
}

type Name struct {
	Value string
}

type Health struct {
	Current int
	Max     int
}

type AI struct {
	State int
}

// Custom primitive types for testing non-pointer components
type Score int32
type Tag string
type Temperature float64

type Inventory struct {
	Items []string
}

type Stats struct {
	Attributes map[string]int
}

type Inner struct {
	Value int
}

type Outer struct {
	Data *Inner
	List []*Inner
}

// Resource types
type ScoreBoard struct {
	Points int
}

type Gravity struct {
	X, Y float64
}

type Settings struct {
	Volume     int
	Difficulty int
}

type EventLog struct {
	Lines []string
}

func newTestRegistry() *ecs.ComponentRegistry {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Position](registry)
	ecs.RegisterComponent[Velocity](registry)
	ecs.RegisterComponent[Name](registry)
	ecs.RegisterComponent[Health](registry)
	ecs.RegisterComponent[AI](registry)
	ecs.RegisterComponent[Score](registry)
	ecs.RegisterComponent[Tag](registry)
	ecs.RegisterComponent[Temperature](registry)
	ecs.RegisterComponent[int32](registry)
	ecs.RegisterComponent[float64](registry)
	ecs.RegisterComponent[string](registry)
	ecs.RegisterComponent[Inventory](registry)
	ecs.RegisterComponent[Stats](registry)
	ecs.RegisterComponent[Inner](registry)
	ecs.RegisterComponent[Outer](registry)
	return registry
}

func newTestWorld() *ecs.World {
	return ecs.NewWorld(newTestRegistry())
}

// runOnce prepares and runs a system outside a scheduler, then applies its commands.
func runOnce(system ecs.Runnable, world *ecs.World, resources *ecs.Resources) {
	system.Prepare(world)
	system.Run(world, resources)
	system.CommandBuffer(world).Apply(world)
}
