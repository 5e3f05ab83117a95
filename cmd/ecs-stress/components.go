package main

import (
	"math/rand"

	"github.com/plus3/syskernel/ecs"
)

// Components are plain scalars so the generic systems can do arithmetic on them.
type (
	C0 float64
	C1 float64
	C2 float64
	C3 float64
	C4 float64
	C5 float64
	C6 float64
	C7 float64
)

type component interface {
	~float64
}

// Resources shared by the generated systems.
type (
	R0 float64
	R1 float64
	R2 float64
	R3 float64
)

type resource interface {
	~float64
}

const componentCount = 8

func registerComponents(registry *ecs.ComponentRegistry) {
	ecs.RegisterComponent[C0](registry)
	ecs.RegisterComponent[C1](registry)
	ecs.RegisterComponent[C2](registry)
	ecs.RegisterComponent[C3](registry)
	ecs.RegisterComponent[C4](registry)
	ecs.RegisterComponent[C5](registry)
	ecs.RegisterComponent[C6](registry)
	ecs.RegisterComponent[C7](registry)
}

func insertResources(resources *ecs.Resources) {
	ecs.InsertResource(resources, R0(0.5))
	ecs.InsertResource(resources, R1(1))
	ecs.InsertResource(resources, R2(0))
	ecs.InsertResource(resources, R3(0))
}

var componentMakers = [componentCount]func(v float64) any{
	func(v float64) any { return C0(v) },
	func(v float64) any { return C1(v) },
	func(v float64) any { return C2(v) },
	func(v float64) any { return C3(v) },
	func(v float64) any { return C4(v) },
	func(v float64) any { return C5(v) },
	func(v float64) any { return C6(v) },
	func(v float64) any { return C7(v) },
}

// randomComponents picks n distinct component types with random values.
func randomComponents(rng *rand.Rand, n int) []any {
	n = max(1, min(n, componentCount))
	components := make([]any, 0, n)
	for _, i := range rng.Perm(componentCount)[:n] {
		components = append(components, componentMakers[i](rng.Float64()))
	}
	return components
}

// spawnRandomEntity spawns an entity with 1 to maxComponents random components.
func spawnRandomEntity(world *ecs.World, rng *rand.Rand, maxComponents int) ecs.EntityId {
	return world.Spawn(randomComponents(rng, rng.Intn(maxComponents)+1)...)
}
