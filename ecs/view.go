package ecs

import (
	"iter"
	"reflect"
	"strings"
	"unsafe"
)

// iface represents the internal memory layout of an interface{}.
type iface struct {
	typ  unsafe.Pointer
	data unsafe.Pointer
}

type viewField struct {
	typ      reflect.Type
	offset   uintptr
	optional bool
	readOnly bool
}

// viewLayout is the world-independent shape of a view struct: which component pointer
// sits at which offset, and how each one is accessed.
type viewLayout struct {
	fields   []viewField
	idOffset uintptr
	hasId    bool
}

var entityIdType = reflect.TypeFor[EntityId]()

func newViewLayout(structType reflect.Type) *viewLayout {
	if structType.Kind() != reflect.Struct {
		panic("View type parameter must be a struct")
	}

	layout := &viewLayout{fields: make([]viewField, 0, structType.NumField())}
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)

		if field.Type == entityIdType {
			if layout.hasId {
				panic("View struct may hold at most one EntityId field")
			}
			layout.idOffset = field.Offset
			layout.hasId = true
			continue
		}

		if field.Type.Kind() != reflect.Ptr {
			panic("View struct fields must be pointer types")
		}

		vf := viewField{typ: field.Type.Elem(), offset: field.Offset}
		if tag := field.Tag.Get("ecs"); tag != "" {
			for _, opt := range strings.Split(tag, ",") {
				switch opt {
				case "optional":
					if field.Anonymous {
						panic("embedded View field " + field.Name + " cannot be optional")
					}
					vf.optional = true
				case "read":
					vf.readOnly = true
				default:
					panic("invalid ecs tag value: \"" + opt + "\" (only \"optional\" and \"read\" are supported)")
				}
			}
		}
		layout.fields = append(layout.fields, vf)
	}

	return layout
}

// componentAccess returns the component types read and written through the layout.
func (l *viewLayout) componentAccess() Access[ComponentTypeId] {
	var access Access[ComponentTypeId]
	for _, f := range l.fields {
		if f.readOnly {
			access.Reads = append(access.Reads, ComponentTypeId{f.typ})
		} else {
			access.Writes = append(access.Writes, ComponentTypeId{f.typ})
		}
	}
	return access
}

// matches checks if an archetype contains every required component type.
func (l *viewLayout) matches(archetype *Archetype) bool {
	for _, f := range l.fields {
		if !f.optional && !archetype.HasComponent(f.typ) {
			return false
		}
	}
	return true
}

func (l *viewLayout) storageIndices(archetype *Archetype) []int {
	indices := make([]int, len(l.fields))
	for i, f := range l.fields {
		indices[i] = archetype.column(f.typ)
	}
	return indices
}

func (l *viewLayout) populate(resultPtr unsafe.Pointer, archetype *Archetype, entityIndex int, storageIndices []int) bool {
	for i, storageIdx := range storageIndices {
		fieldPtr := unsafe.Pointer(uintptr(resultPtr) + l.fields[i].offset)

		var component any
		if storageIdx != -1 {
			component = archetype.storages[storageIdx].Get(entityIndex)
		}
		if component == nil {
			if !l.fields[i].optional {
				return false
			}
			*(*unsafe.Pointer)(fieldPtr) = nil
			continue
		}

		*(*unsafe.Pointer)(fieldPtr) = (*iface)(unsafe.Pointer(&component)).data
	}

	if l.hasId {
		*(*EntityId)(unsafe.Pointer(uintptr(resultPtr) + l.idOffset)) = NewEntityId(archetype.id, uint32(entityIndex))
	}
	return true
}

// iterArchetype yields every entity of archetype as a populated view struct.
func iterArchetype[T any](l *viewLayout, archetype *Archetype, yield func(EntityId, T) bool) bool {
	if len(archetype.storages) == 0 {
		return true
	}

	indices := l.storageIndices(archetype)
	var result T
	resultPtr := unsafe.Pointer(&result)

	for entityIndex := range archetype.storages[0].Iter() {
		if !l.populate(resultPtr, archetype, entityIndex, indices) {
			continue
		}
		if !yield(NewEntityId(archetype.id, uint32(entityIndex)), result) {
			return false
		}
	}
	return true
}

// View gives direct, unscheduled access to entities of one world.
// The type T should be a struct with embedded or named pointer fields for each component
// type. Named fields can be marked optional with the `ecs:"optional"` struct tag, and a
// field of type EntityId receives the entity's id.
type View[T any] struct {
	world  *World
	layout *viewLayout
}

// NewView creates a new view for the given struct type
func NewView[T any](world *World) *View[T] {
	return &View[T]{
		world:  world,
		layout: newViewLayout(reflect.TypeFor[T]()),
	}
}

// Fill populates the provided struct pointer with component data for the given entity.
// Returns false if the entity is missing any required components.
func (v *View[T]) Fill(id EntityId, ptr *T) bool {
	archetype := v.world.ArchetypeByID(id.ArchetypeId())
	if archetype == nil || !archetype.Contains(id.Index()) {
		return false
	}
	return v.layout.populate(unsafe.Pointer(ptr), archetype, int(id.Index()), v.layout.storageIndices(archetype))
}

// Get returns a populated view struct for the given entity, or nil if the entity
// doesn't have all the required components
func (v *View[T]) Get(id EntityId) *T {
	var result T
	if !v.Fill(id, &result) {
		return nil
	}
	return &result
}

// Iter returns an iterator over all entities that have all the required components.
func (v *View[T]) Iter() iter.Seq2[EntityId, T] {
	return func(yield func(EntityId, T) bool) {
		for _, archetype := range v.world.archetypes {
			if !v.layout.matches(archetype) {
				continue
			}
			if !iterArchetype(v.layout, archetype, yield) {
				return
			}
		}
	}
}

// Values returns an iterator over just the view structs.
func (v *View[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, value := range v.Iter() {
			if !yield(value) {
				return
			}
		}
	}
}
