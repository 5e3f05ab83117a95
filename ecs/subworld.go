package ecs

import (
	"fmt"
	"reflect"
)

// SubWorld is the view of a World handed to a running system. It only exposes the
// component types the system declared and the archetypes in its cached membership;
// touching anything else panics. Structural edits go through the CommandBuffer.
type SubWorld struct {
	world      *World
	system     SystemId
	access     *Access[ComponentTypeId]
	archetypes *ArchetypeAccess
}

// NewSubWorld restricts world to the given component access and archetype membership.
func NewSubWorld(world *World, system SystemId, access *Access[ComponentTypeId], archetypes *ArchetypeAccess) *SubWorld {
	return &SubWorld{
		world:      world,
		system:     system,
		access:     access,
		archetypes: archetypes,
	}
}

// WorldId returns the identity of the underlying world.
func (w *SubWorld) WorldId() WorldId {
	return w.world.Id()
}

// Archetypes returns the membership the view is restricted to.
func (w *SubWorld) Archetypes() *ArchetypeAccess {
	return w.archetypes
}

// Contains reports whether the entity is alive and inside an accessible archetype.
func (w *SubWorld) Contains(id EntityId) bool {
	archetype := w.world.ArchetypeByID(id.ArchetypeId())
	return archetype != nil && w.archetypes.Contains(archetype.index) && archetype.Contains(id.Index())
}

// HasComponent reports whether an accessible entity has the component type.
func (w *SubWorld) HasComponent(id EntityId, compType reflect.Type) bool {
	return w.Contains(id) && w.world.HasComponent(id, compType)
}

// GetComponent returns the component for reading. The type must be declared as read or
// write by the system.
func (w *SubWorld) GetComponent(id EntityId, compType reflect.Type) any {
	return w.get(id, compType, false)
}

// GetComponentMut returns the component for writing. The type must be declared as a write.
func (w *SubWorld) GetComponentMut(id EntityId, compType reflect.Type) any {
	return w.get(id, compType, true)
}

func (w *SubWorld) get(id EntityId, compType reflect.Type, write bool) any {
	if !w.access.allows(ComponentTypeId{compType}, write) {
		mode := "read"
		if write {
			mode = "write"
		}
		panic(fmt.Sprintf("system %q did not declare %s access to component %s", w.system, mode, compType))
	}

	archetype := w.world.ArchetypeByID(id.ArchetypeId())
	if archetype == nil {
		return nil
	}
	if !w.archetypes.Contains(archetype.index) {
		panic(fmt.Sprintf("system %q has no access to archetype %08x of entity %s", w.system, archetype.id, id))
	}
	return archetype.GetComponent(id.Index(), compType)
}

// WriteComponent returns the T component of the entity for writing, or nil.
func WriteComponent[T any](w *SubWorld, id EntityId) *T {
	c, _ := w.GetComponentMut(id, reflect.TypeFor[T]()).(*T)
	return c
}
