package ecs

import (
	"reflect"
	"slices"
	"strings"

	"github.com/bits-and-blooms/bitset"
	"github.com/google/uuid"
)

// SystemId is the stable name of a system.
type SystemId string

func (id SystemId) String() string {
	return string(id)
}

// ResourceTypeId identifies a resource type without requiring the concrete type at
// the declaration site. The zero value identifies no type.
type ResourceTypeId struct {
	typ reflect.Type
}

// ResourceTypeOf returns the ResourceTypeId of T.
func ResourceTypeOf[T any]() ResourceTypeId {
	return ResourceTypeId{typ: reflect.TypeFor[T]()}
}

// Type returns the underlying reflect.Type.
func (id ResourceTypeId) Type() reflect.Type { return id.typ }

func (id ResourceTypeId) String() string { return typeName(id.typ) }

// ComponentTypeId identifies a component type.
type ComponentTypeId struct {
	typ reflect.Type
}

// ComponentTypeOf returns the ComponentTypeId of T.
func ComponentTypeOf[T any]() ComponentTypeId {
	return ComponentTypeId{typ: reflect.TypeFor[T]()}
}

// ComponentTypeFor wraps an existing reflect.Type.
func ComponentTypeFor(t reflect.Type) ComponentTypeId {
	return ComponentTypeId{typ: t}
}

// Type returns the underlying reflect.Type.
func (id ComponentTypeId) Type() reflect.Type { return id.typ }

func (id ComponentTypeId) String() string { return typeName(id.typ) }

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

// WorldId distinguishes independent worlds that share the same compiled systems.
type WorldId = uuid.UUID

// Access is a pair of read and write type sets.
type Access[T interface {
	comparable
	String() string
}] struct {
	Reads  []T
	Writes []T
}

// normalize deduplicates both sets, sorts them by type name and drops reads that are
// also writes.
func (a Access[T]) normalize() Access[T] {
	writes := dedupe(a.Writes)
	reads := dedupe(slices.DeleteFunc(slices.Clone(a.Reads), func(t T) bool {
		return slices.Contains(writes, t)
	}))
	return Access[T]{Reads: reads, Writes: writes}
}

// ConflictsWith reports whether a writes anything b touches, or the other way round.
func (a Access[T]) ConflictsWith(b Access[T]) bool {
	for _, w := range a.Writes {
		if slices.Contains(b.Writes, w) || slices.Contains(b.Reads, w) {
			return true
		}
	}
	for _, w := range b.Writes {
		if slices.Contains(a.Reads, w) {
			return true
		}
	}
	return false
}

func (a Access[T]) allows(t T, write bool) bool {
	if slices.Contains(a.Writes, t) {
		return true
	}
	return !write && slices.Contains(a.Reads, t)
}

func dedupe[T interface {
	comparable
	String() string
}](in []T) []T {
	out := make([]T, 0, len(in))
	for _, t := range in {
		if !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b T) int { return strings.Compare(a.String(), b.String()) })
	return out
}

// SystemAccess is everything a system declares it will touch. It is computed once when
// the system is built and never changes afterwards.
type SystemAccess struct {
	Resources  Access[ResourceTypeId]
	Components Access[ComponentTypeId]
}

// ConflictsWith reports whether two systems may not run in the same batch.
func (a SystemAccess) ConflictsWith(b SystemAccess) bool {
	return a.Resources.ConflictsWith(b.Resources) || a.Components.ConflictsWith(b.Components)
}

// ArchetypeAccessKind selects how an ArchetypeAccess matches archetypes.
type ArchetypeAccessKind uint8

const (
	NoArchetypes ArchetypeAccessKind = iota
	AllArchetypes
	SomeArchetypes
)

func (k ArchetypeAccessKind) String() string {
	switch k {
	case AllArchetypes:
		return "all"
	case SomeArchetypes:
		return "some"
	default:
		return "none"
	}
}

// ArchetypeAccess describes which archetypes a system may touch. SomeArchetypes keeps a
// membership bitset over World archetype indices, valid for the world and generation
// it was last refreshed against.
type ArchetypeAccess struct {
	kind       ArchetypeAccessKind
	bits       *bitset.BitSet
	world      WorldId
	generation uint64
	fresh      bool
}

func newArchetypeAccess(kind ArchetypeAccessKind) ArchetypeAccess {
	a := ArchetypeAccess{kind: kind}
	if kind == SomeArchetypes {
		a.bits = bitset.New(0)
	}
	return a
}

// Kind returns the access kind.
func (a *ArchetypeAccess) Kind() ArchetypeAccessKind {
	return a.kind
}

// Contains reports whether the archetype at the given world index is accessible.
func (a *ArchetypeAccess) Contains(index int) bool {
	switch a.kind {
	case AllArchetypes:
		return true
	case SomeArchetypes:
		return index >= 0 && a.bits.Test(uint(index))
	default:
		return false
	}
}

// Count returns the number of matched archetypes, or -1 for AllArchetypes.
func (a *ArchetypeAccess) Count() int {
	switch a.kind {
	case AllArchetypes:
		return -1
	case SomeArchetypes:
		return int(a.bits.Count())
	default:
		return 0
	}
}

// Bits returns a copy of the membership bitset, or nil unless the kind is SomeArchetypes.
func (a *ArchetypeAccess) Bits() *bitset.BitSet {
	if a.bits == nil {
		return nil
	}
	return a.bits.Clone()
}

// Equal reports whether two accesses describe the same membership.
func (a *ArchetypeAccess) Equal(b *ArchetypeAccess) bool {
	if a.kind != b.kind {
		return false
	}
	if a.kind != SomeArchetypes {
		return true
	}
	return a.bits.Equal(b.bits)
}

// IsDisjoint reports whether two accesses cannot touch a common archetype.
func (a *ArchetypeAccess) IsDisjoint(b *ArchetypeAccess) bool {
	switch {
	case a.kind == NoArchetypes || b.kind == NoArchetypes:
		return true
	case a.kind == AllArchetypes || b.kind == AllArchetypes:
		return false
	default:
		return a.bits.IntersectionCardinality(b.bits) == 0
	}
}

func (a *ArchetypeAccess) stale(world *World) bool {
	return !a.fresh || a.world != world.Id() || a.generation != world.Generation()
}

func (a *ArchetypeAccess) markFresh(world *World) {
	a.world = world.Id()
	a.generation = world.Generation()
	a.fresh = true
}
