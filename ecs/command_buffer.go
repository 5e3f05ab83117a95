package ecs

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrWorldMismatch is returned when a command buffer is applied to a world other than
// the one it was created for.
var ErrWorldMismatch = errors.New("command buffer applied to a different world")

// CommandBuffer records structural edits (spawns, deletions, component additions and
// removals) made while systems run in parallel, so they can be applied later in a
// serialized phase. A buffer belongs to one world and is reused tick after tick: Apply
// drains it.
type CommandBuffer struct {
	world   WorldId
	spawns  []spawnCommand
	deletes []EntityId
	adds    []addComponentCommand
	removes []removeComponentCommand
	defers  []func()
}

type spawnCommand struct {
	components []any
}

type addComponentCommand struct {
	entity    EntityId
	component any
}

type removeComponentCommand struct {
	entity   EntityId
	compType reflect.Type
}

// NewCommandBuffer creates an empty buffer bound to the world.
func NewCommandBuffer(world *World) *CommandBuffer {
	return &CommandBuffer{world: world.Id()}
}

// WorldId returns the identity of the world the buffer applies to.
func (c *CommandBuffer) WorldId() WorldId {
	return c.world
}

// Defer queues a function to run at the end of the apply phase.
func (c *CommandBuffer) Defer(fn func()) {
	c.defers = append(c.defers, fn)
}

// Spawn queues an entity spawn operation with the given components.
func (c *CommandBuffer) Spawn(components ...any) {
	if len(components) == 0 {
		panic("cannot spawn entity without components")
	}
	c.spawns = append(c.spawns, spawnCommand{components: components})
}

// Delete queues an entity deletion operation.
func (c *CommandBuffer) Delete(entity EntityId) {
	c.deletes = append(c.deletes, entity)
}

// AddComponent queues a component addition operation.
func (c *CommandBuffer) AddComponent(entity EntityId, component any) {
	c.adds = append(c.adds, addComponentCommand{entity: entity, component: component})
}

// RemoveComponent queues a component removal operation.
func (c *CommandBuffer) RemoveComponent(entity EntityId, compType reflect.Type) {
	c.removes = append(c.removes, removeComponentCommand{entity: entity, compType: compType})
}

// RemoveComponentFor queues removal of the T component.
func RemoveComponentFor[T any](c *CommandBuffer, entity EntityId) {
	c.RemoveComponent(entity, reflect.TypeFor[T]())
}

// Len returns the number of queued commands.
func (c *CommandBuffer) Len() int {
	return len(c.spawns) + len(c.deletes) + len(c.adds) + len(c.removes) + len(c.defers)
}

// IsEmpty reports whether nothing is queued.
func (c *CommandBuffer) IsEmpty() bool {
	return c.Len() == 0
}

// Apply executes every queued command against the world and resets the buffer.
// Deletions run first; removals and additions targeting an entity deleted by the same
// buffer are skipped. Panics if the world is not the one the buffer was created for.
func (c *CommandBuffer) Apply(world *World) {
	if err := c.TryApply(world); err != nil {
		panic(err.Error())
	}
}

// TryApply is Apply returning ErrWorldMismatch instead of panicking.
func (c *CommandBuffer) TryApply(world *World) error {
	return ApplyCommandBuffers(world, c)
}

// ApplyCommandBuffers applies the buffers in order and resets them. Entity ids are
// tracked across buffers, so commands queued by a later buffer reach an entity that an
// earlier buffer moved to another archetype, and skip one an earlier buffer deleted.
// Nothing is applied when any buffer belongs to another world.
func ApplyCommandBuffers(world *World, buffers ...*CommandBuffer) error {
	for _, c := range buffers {
		if world.Id() != c.world {
			return fmt.Errorf("%w: buffer world %s, got %s", ErrWorldMismatch, c.world, world.Id())
		}
	}

	r := relocations{
		current: make(map[EntityId]EntityId),
		deleted: make(map[EntityId]bool),
	}
	for _, c := range buffers {
		c.apply(world, &r)
	}
	return nil
}

// relocations remembers where each queued entity currently lives. Structural moves
// change ids, and commands are always queued against the id seen during the run.
type relocations struct {
	current map[EntityId]EntityId
	deleted map[EntityId]bool
}

func (r *relocations) resolve(id EntityId) EntityId {
	if now, ok := r.current[id]; ok {
		return now
	}
	return id
}

func (r *relocations) moved(from, to EntityId) {
	if to == 0 {
		r.deleted[from] = true
		return
	}
	r.current[from] = to
}

func (c *CommandBuffer) apply(world *World, r *relocations) {
	for _, id := range c.deletes {
		if r.deleted[id] {
			continue
		}
		world.Delete(r.resolve(id))
		r.deleted[id] = true
	}

	for _, cmd := range c.removes {
		if r.deleted[cmd.entity] {
			continue
		}
		r.moved(cmd.entity, world.RemoveComponent(r.resolve(cmd.entity), cmd.compType))
	}

	for _, cmd := range c.adds {
		if r.deleted[cmd.entity] {
			continue
		}
		r.moved(cmd.entity, world.AddComponent(r.resolve(cmd.entity), cmd.component))
	}

	for _, cmd := range c.spawns {
		world.Spawn(cmd.components...)
	}

	for _, fn := range c.defers {
		fn()
	}

	c.reset()
}

func (c *CommandBuffer) reset() {
	clear(c.spawns)
	clear(c.adds)
	clear(c.defers)
	c.spawns = c.spawns[:0]
	c.deletes = c.deletes[:0]
	c.adds = c.adds[:0]
	c.removes = c.removes[:0]
	c.defers = c.defers[:0]
}
