package ecs

// Runnable is the contract between a system and the scheduler driving it.
//
// Reads, Writes and Access never change after the system is built; the scheduler uses
// them to decide which systems may run at the same time. Prepare refreshes the cached
// archetype membership and must be called whenever the world's archetype set may have
// changed since the last run.
//
// Run executes the system. It takes no locks: it is only valid when the caller has
// established that no concurrently running system has a conflicting read or write on the
// same resource or component types of the same world. The same instance must not run
// concurrently with itself. Panics raised by the system propagate to the caller.
type Runnable interface {
	Name() SystemId
	Reads() ([]ResourceTypeId, []ComponentTypeId)
	Writes() ([]ResourceTypeId, []ComponentTypeId)
	Access() SystemAccess
	Prepare(world *World)
	AccessesArchetypes() *ArchetypeAccess
	CommandBuffer(world *World) *CommandBuffer
	Run(world *World, resources *Resources)
}

// SystemFn is the body of a system. R is the value produced by the system's resource set
// and Q its query holder.
type SystemFn[R, Q any] interface {
	Run(commands *CommandBuffer, world *SubWorld, resources R, queries *Q)
}

// SystemFunc adapts an ordinary function to SystemFn.
type SystemFunc[R, Q any] func(commands *CommandBuffer, world *SubWorld, resources R, queries *Q)

// Run calls f.
func (f SystemFunc[R, Q]) Run(commands *CommandBuffer, world *SubWorld, resources R, queries *Q) {
	f(commands, world, resources, queries)
}

var _ Runnable = (*System[NoResources, NoQueries])(nil)
