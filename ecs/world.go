package ecs

import (
	"reflect"
	"slices"
	"sort"
	"unsafe"

	"github.com/google/uuid"
	"github.com/kamstrup/intmap"
)

// World is the entity and component store systems run against. Each world carries a
// stable WorldId so systems can keep per-world state such as command buffers.
//
// World is not safe for concurrent structural edits. During a parallel run phase the
// world is only read structurally; entities are created or destroyed through
// CommandBuffers applied afterwards.
type World struct {
	id         WorldId
	registry   *ComponentRegistry
	byHash     *intmap.Map[uint32, *Archetype]
	archetypes []*Archetype
	generation uint64
}

// NewWorld creates an empty world using the given component registry.
func NewWorld(registry *ComponentRegistry) *World {
	return &World{
		id:       uuid.New(),
		registry: registry,
		byHash:   intmap.New[uint32, *Archetype](64),
	}
}

// Id returns the world's stable identity.
func (w *World) Id() WorldId {
	return w.id
}

// Generation changes whenever a new archetype is created. Caches keyed on archetype
// membership are valid for as long as the generation is unchanged.
func (w *World) Generation() uint64 {
	return w.generation
}

// Registry returns the component registry the world was created with.
func (w *World) Registry() *ComponentRegistry {
	return w.registry
}

// Archetypes returns every archetype in creation order; the position of an archetype
// in the slice equals its Index. The slice must not be modified.
func (w *World) Archetypes() []*Archetype {
	return w.archetypes
}

// ArchetypeByID returns the archetype with the given hash id.
func (w *World) ArchetypeByID(id uint32) *Archetype {
	a, _ := w.byHash.Get(id)
	return a
}

// GetArchetypeByTypes returns the archetype for exactly these component types, if any.
func (w *World) GetArchetypeByTypes(types []reflect.Type) *Archetype {
	sorted := slices.Clone(types)
	sort.Sort(byTypeName(sorted))
	return w.ArchetypeByID(hashTypesToUint32(sorted))
}

func (w *World) archetypeFor(types []reflect.Type) *Archetype {
	id := hashTypesToUint32(types)
	if a, ok := w.byHash.Get(id); ok {
		return a
	}
	a := newArchetype(id, len(w.archetypes), types, w.registry)
	w.byHash.Put(id, a)
	w.archetypes = append(w.archetypes, a)
	w.generation++
	return a
}

// Spawn creates a new entity with the provided components
func (w *World) Spawn(components ...any) EntityId {
	if len(components) == 0 {
		panic("cannot spawn entity without components")
	}

	archetype := w.archetypeFor(extractComponentTypes(components))
	return NewEntityId(archetype.id, archetype.spawn(components))
}

// Delete removes the entity and all of its components.
func (w *World) Delete(id EntityId) {
	if archetype := w.ArchetypeByID(id.ArchetypeId()); archetype != nil {
		archetype.delete(id.Index())
	}
}

// Contains reports whether the entity is alive.
func (w *World) Contains(id EntityId) bool {
	archetype := w.ArchetypeByID(id.ArchetypeId())
	return archetype != nil && archetype.Contains(id.Index())
}

// AddComponent moves the entity to the archetype that also holds the component type and
// returns its new id. Adding a type the entity already has overwrites the value in place.
func (w *World) AddComponent(id EntityId, component any) EntityId {
	old := w.ArchetypeByID(id.ArchetypeId())
	if old == nil || !old.Contains(id.Index()) {
		return id
	}

	compType := reflect.TypeOf(component)
	if compType.Kind() == reflect.Ptr {
		compType = compType.Elem()
	}

	if idx := old.column(compType); idx != -1 {
		reflect.ValueOf(old.storages[idx].Get(int(id.Index()))).Elem().Set(reflect.Indirect(reflect.ValueOf(component)))
		return id
	}

	newTypes := append(slices.Clone(old.types), compType)
	sort.Sort(byTypeName(newTypes))

	components := make([]any, 0, len(newTypes))
	for _, typ := range newTypes {
		if typ == compType {
			components = append(components, component)
		} else {
			components = append(components, old.GetComponent(id.Index(), typ))
		}
	}

	return w.move(id, old, newTypes, components)
}

// RemoveComponent moves the entity to the archetype without the component type and
// returns its new id. Removing the last component deletes the entity and returns 0.
func (w *World) RemoveComponent(id EntityId, compType reflect.Type) EntityId {
	old := w.ArchetypeByID(id.ArchetypeId())
	if old == nil || !old.Contains(id.Index()) || !old.HasComponent(compType) {
		return id
	}

	newTypes := make([]reflect.Type, 0, len(old.types)-1)
	components := make([]any, 0, len(old.types)-1)
	for _, typ := range old.types {
		if typ != compType {
			newTypes = append(newTypes, typ)
			components = append(components, old.GetComponent(id.Index(), typ))
		}
	}

	if len(newTypes) == 0 {
		old.delete(id.Index())
		return 0
	}

	return w.move(id, old, newTypes, components)
}

func (w *World) move(id EntityId, old *Archetype, newTypes []reflect.Type, components []any) EntityId {
	archetype := w.archetypeFor(newTypes)
	newIndex := archetype.spawn(components)
	old.delete(id.Index())
	return NewEntityId(archetype.id, newIndex)
}

// GetComponent returns a pointer to the component for the given entity ID and component
// type, or nil.
func (w *World) GetComponent(id EntityId, compType reflect.Type) any {
	archetype := w.ArchetypeByID(id.ArchetypeId())
	if archetype == nil {
		return nil
	}
	return archetype.GetComponent(id.Index(), compType)
}

// HasComponent checks if an entity has a specific component type
func (w *World) HasComponent(id EntityId, compType reflect.Type) bool {
	archetype := w.ArchetypeByID(id.ArchetypeId())
	return archetype != nil && archetype.Contains(id.Index()) && archetype.HasComponent(compType)
}

// Len returns the number of live entities.
func (w *World) Len() int {
	n := 0
	for _, a := range w.archetypes {
		n += a.Len()
	}
	return n
}

// WorldStats summarizes the contents of a world.
type WorldStats struct {
	ArchetypeCount     int
	TotalEntityCount   int
	Generation         uint64
	ArchetypeBreakdown []ArchetypeStats
}

// ArchetypeStats describes one archetype.
type ArchetypeStats struct {
	ID             uint32
	Index          int
	ComponentTypes []string
	EntityCount    int
}

// CollectStats gathers archetype and entity counts.
func (w *World) CollectStats() WorldStats {
	stats := WorldStats{
		ArchetypeCount:     len(w.archetypes),
		Generation:         w.generation,
		ArchetypeBreakdown: make([]ArchetypeStats, 0, len(w.archetypes)),
	}
	for _, a := range w.archetypes {
		names := make([]string, len(a.types))
		for i, t := range a.types {
			names[i] = t.String()
		}
		count := a.Len()
		stats.TotalEntityCount += count
		stats.ArchetypeBreakdown = append(stats.ArchetypeBreakdown, ArchetypeStats{
			ID:             a.id,
			Index:          a.index,
			ComponentTypes: names,
			EntityCount:    count,
		})
	}
	return stats
}

// extractComponentTypes extracts and sorts component types from a slice of components
func extractComponentTypes(components []any) []reflect.Type {
	types := make([]reflect.Type, 0, len(components))
	for _, comp := range components {
		compType := reflect.TypeOf(comp)

		if compType.Kind() == reflect.Ptr {
			compType = compType.Elem()
		}

		// Components are value types; a pointer to a pointer, maps, channels and
		// functions are rejected.
		switch compType.Kind() {
		case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func:
			panic("components cannot be pointers, maps, channels, or functions")
		}

		if slices.Contains(types, compType) {
			panic("duplicate component type " + compType.String())
		}
		types = append(types, compType)
	}
	sort.Sort(byTypeName(types))
	return types
}

// hashTypesToUint32 generates a FNV-1a hash for a sorted slice of types
func hashTypesToUint32(types []reflect.Type) uint32 {
	var h uint32 = 2166136261     // FNV-1a 32-bit offset basis
	const prime uint32 = 16777619 // FNV-1a 32-bit prime

	for _, t := range types {
		// The rtype address identifies the type for the life of the process.
		ptr := uintptr((*iface)(unsafe.Pointer(&t)).data)
		val := uint32(ptr)
		if unsafe.Sizeof(uintptr(0)) == 8 {
			val ^= uint32(uint64(ptr) >> 32)
		}

		h ^= val
		h *= prime
	}

	return h
}

// ComponentReader reads components by entity and type. World and SubWorld implement it.
type ComponentReader interface {
	GetComponent(EntityId, reflect.Type) any
}

// ReadComponent returns the T component of the entity, or nil.
func ReadComponent[T any](reader ComponentReader, entityId EntityId) *T {
	c, _ := reader.GetComponent(entityId, reflect.TypeFor[T]()).(*T)
	return c
}
