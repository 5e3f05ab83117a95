package ecs_test

import (
	"fmt"

	"github.com/plus3/syskernel/ecs"
)

// ExampleWorld shows the basic entity lifecycle: spawning, reading and moving an
// entity between archetypes by adding a component.
func ExampleWorld() {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Position](registry)
	ecs.RegisterComponent[Velocity](registry)
	world := ecs.NewWorld(registry)

	id := world.Spawn(Position{X: 1, Y: 2})
	fmt.Println("entities:", world.Len(), "archetypes:", len(world.Archetypes()))

	id = world.AddComponent(id, Velocity{DX: 3})
	pos := ecs.ReadComponent[Position](world, id)
	vel := ecs.ReadComponent[Velocity](world, id)
	fmt.Printf("position (%.0f, %.0f) velocity %.0f\n", pos.X, pos.Y, vel.DX)
	fmt.Println("entities:", world.Len(), "archetypes:", len(world.Archetypes()))

	// Output:
	// entities: 1 archetypes: 1
	// position (1, 2) velocity 3
	// entities: 1 archetypes: 2
}

// ExampleView demonstrates unscheduled iteration with optional components and
// an EntityId field.
func ExampleView() {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Name](registry)
	ecs.RegisterComponent[Health](registry)
	world := ecs.NewWorld(registry)

	world.Spawn(Name{Value: "knight"}, Health{Current: 30, Max: 40})
	world.Spawn(Name{Value: "ghost"})

	view := ecs.NewView[struct {
		ID     ecs.EntityId
		Name   *Name
		Health *Health `ecs:"optional"`
	}](world)

	for item := range view.Values() {
		if item.Health == nil {
			fmt.Printf("%s has no health\n", item.Name.Value)
			continue
		}
		fmt.Printf("%s %d/%d\n", item.Name.Value, item.Health.Current, item.Health.Max)
	}

	// Output:
	// knight 30/40
	// ghost has no health
}
