package main

import (
	"fmt"
	"math/rand"

	"github.com/plus3/syskernel/ecs"
)

type transferQueries[A, B component] struct {
	Items ecs.Query[struct {
		Dst *A
		Src *B `ecs:"read"`
	}]
}

// transfer moves a share of B into A, scaled by resource X.
func transfer[A, B component, X resource](name string, _ int64) ecs.Runnable {
	return ecs.NewSystem[ecs.Read[X], transferQueries[A, B]](name,
		func(_ *ecs.CommandBuffer, world *ecs.SubWorld, scale ecs.Read[X], q *transferQueries[A, B]) {
			k := float64(*scale.Get())
			for item := range q.Items.Values(world) {
				*item.Dst = A(float64(*item.Dst)*0.5 + float64(*item.Src)*k)
			}
		})
}

type sumQueries[A component] struct {
	Items ecs.Query[struct {
		Value *A `ecs:"read"`
	}]
}

// accumulate sums every A into resource X.
func accumulate[A component, X resource](name string, _ int64) ecs.Runnable {
	return ecs.NewSystem[ecs.Write[X], sumQueries[A]](name,
		func(_ *ecs.CommandBuffer, world *ecs.SubWorld, total ecs.Write[X], q *sumQueries[A]) {
			var sum float64
			for item := range q.Items.Values(world) {
				sum += float64(*item.Value)
			}
			*total.Get() = X(sum)
		})
}

type churnQueries[A component] struct {
	Items ecs.Query[struct {
		ID    ecs.EntityId
		Value *A `ecs:"read"`
	}]
	rng *rand.Rand
}

// churn replaces entities whose A drifted above a threshold with fresh random ones.
// Structural edits go through the command buffer.
func churn[A component](name string, seed int64) ecs.Runnable {
	system := ecs.NewSystem[ecs.Read[ecs.UpdateFrame], churnQueries[A]](name,
		func(commands *ecs.CommandBuffer, world *ecs.SubWorld, frame ecs.Read[ecs.UpdateFrame], q *churnQueries[A]) {
			if frame.Get().Tick%10 != 0 {
				return
			}
			for item := range q.Items.Values(world) {
				if float64(*item.Value) > 0.95 {
					commands.Delete(item.ID)
					commands.Spawn(randomComponents(q.rng, q.rng.Intn(4)+1)...)
				}
			}
		})
	system.Queries().rng = rand.New(rand.NewSource(seed))
	return system
}

type retagQueries[A, B component] struct {
	Items ecs.Query[struct {
		ID  ecs.EntityId
		Src *B `ecs:"read"`
		Dst *A `ecs:"optional,read"`
	}]
}

// retag gives entities holding a large B an A copied from it.
func retag[A, B component](name string, _ int64) ecs.Runnable {
	return ecs.NewSystem[ecs.Read[ecs.UpdateFrame], retagQueries[A, B]](name,
		func(commands *ecs.CommandBuffer, world *ecs.SubWorld, frame ecs.Read[ecs.UpdateFrame], q *retagQueries[A, B]) {
			if frame.Get().Tick%25 != 0 {
				return
			}
			for item := range q.Items.Values(world) {
				if item.Dst == nil && *item.Src > 0.9 {
					commands.AddComponent(item.ID, A(*item.Src))
				}
			}
		})
}

// systemFactories is the pool randomized schedules draw from. Every entry declares a
// different mix of component and resource reads and writes.
var systemFactories = []struct {
	kind string
	new  func(name string, seed int64) ecs.Runnable
}{
	{"transfer", transfer[C0, C1, R0]},
	{"transfer", transfer[C1, C2, R0]},
	{"transfer", transfer[C2, C3, R1]},
	{"transfer", transfer[C3, C0, R1]},
	{"transfer", transfer[C4, C5, R0]},
	{"transfer", transfer[C5, C6, R1]},
	{"transfer", transfer[C6, C7, R0]},
	{"transfer", transfer[C7, C4, R1]},
	{"accumulate", accumulate[C0, R2]},
	{"accumulate", accumulate[C4, R3]},
	{"accumulate", accumulate[C2, R2]},
	{"churn", churn[C1]},
	{"churn", churn[C5]},
	{"retag", retag[C6, C3]},
	{"retag", retag[C2, C7]},
}

// buildSystems draws count systems from the factory pool.
func buildSystems(rng *rand.Rand, count int) []ecs.Runnable {
	systems := make([]ecs.Runnable, 0, count)
	for i := range count {
		f := systemFactories[rng.Intn(len(systemFactories))]
		systems = append(systems, f.new(fmt.Sprintf("%s-%03d", f.kind, i), rng.Int63()))
	}
	return systems
}
