package ecs

import (
	"iter"
	"reflect"
	"strings"

	"github.com/bits-and-blooms/bitset"
)

// querySet is the part of a Query a System drives: declaring component access,
// filtering archetypes into the system's membership bitset and preparing for a run.
type querySet interface {
	init()
	componentAccess() Access[ComponentTypeId]
	filterArchetypes(world *World, bits *bitset.BitSet)
	prepare()
	release()
}

// Query iterates entities on behalf of a system. It is declared as a field of the
// system's query struct; the System initializes it when built and prepares it on
// every run. Fields of T tagged `ecs:"read"` are declared as reads, all other component
// fields as writes.
//
// Queries keep the archetypes they matched per world and only rescan when the world's
// generation changes.
type Query[T any] struct {
	layout     *viewLayout
	world      WorldId
	generation uint64
	scanned    bool
	matched    []*Archetype
	prepared   bool
}

func (q *Query[T]) init() {
	if q.layout == nil {
		q.layout = newViewLayout(reflect.TypeFor[T]())
	}
}

func (q *Query[T]) componentAccess() Access[ComponentTypeId] {
	q.init()
	return q.layout.componentAccess()
}

// refresh rebuilds the matched archetype list when the world or its generation changed.
func (q *Query[T]) refresh(world *World) {
	q.init()
	if q.scanned && q.world == world.Id() && q.generation == world.Generation() {
		return
	}

	q.matched = q.matched[:0]
	for _, archetype := range world.Archetypes() {
		if q.layout.matches(archetype) {
			q.matched = append(q.matched, archetype)
		}
	}
	q.world = world.Id()
	q.generation = world.Generation()
	q.scanned = true
}

func (q *Query[T]) filterArchetypes(world *World, bits *bitset.BitSet) {
	q.refresh(world)
	for _, archetype := range q.matched {
		bits.Set(uint(archetype.index))
	}
}

func (q *Query[T]) prepare() {
	q.init()
	q.prepared = true
}

func (q *Query[T]) release() {
	q.prepared = false
}

// Iter returns an iterator over the entities matched by the query inside the sub-world.
// Panics when called outside of a system run.
func (q *Query[T]) Iter(world *SubWorld) iter.Seq2[EntityId, T] {
	if !q.prepared {
		panic("Query.Iter() called outside of a system run")
	}
	q.refresh(world.world)

	return func(yield func(EntityId, T) bool) {
		for _, archetype := range q.matched {
			if !world.archetypes.Contains(archetype.index) {
				continue
			}
			if !iterArchetype(q.layout, archetype, yield) {
				return
			}
		}
	}
}

// Values returns an iterator over component data only.
func (q *Query[T]) Values(world *SubWorld) iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, item := range q.Iter(world) {
			if !yield(item) {
				return
			}
		}
	}
}

// Count returns the number of entities the query visits in the sub-world.
func (q *Query[T]) Count(world *SubWorld) int {
	n := 0
	for range q.Iter(world) {
		n++
	}
	return n
}

// NoQueries is the query holder of systems that iterate nothing.
type NoQueries struct{}

// collectQueries finds every Query field of the struct holder points to.
func collectQueries(holder any) []querySet {
	v := reflect.ValueOf(holder).Elem()
	if v.Kind() != reflect.Struct {
		panic("system queries must be a struct, got " + v.Type().String())
	}

	var sets []querySet
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if isQueryType(field.Type()) && field.Kind() == reflect.Pointer {
			panic("query field " + v.Type().Field(i).Name + " must be an ecs.Query value, not a pointer")
		}
		if field.Kind() != reflect.Struct || !isQueryType(field.Type()) {
			continue
		}
		if !field.CanAddr() || !v.Type().Field(i).IsExported() {
			panic("query field " + v.Type().Field(i).Name + " must be exported")
		}
		qs, ok := field.Addr().Interface().(querySet)
		if !ok {
			panic("query field " + v.Type().Field(i).Name + " is not an ecs.Query")
		}
		qs.init()
		sets = append(sets, qs)
	}
	return sets
}

// isQueryType reports whether t is a Query[...] or a pointer to one.
func isQueryType(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct && t.PkgPath() == queryPkgPath && strings.HasPrefix(t.Name(), "Query[")
}

var queryPkgPath = reflect.TypeFor[NoQueries]().PkgPath()
