package ecs

import (
	"cmp"
	"fmt"
	"slices"
	"sync/atomic"
	"unsafe"
)

// Scope is the capability a System hands to the accessors it fetches for one run.
// The scope ends when the run returns, after which every accessor bound to it panics
// on use. Accessors fetched with a nil scope are unbound.
type Scope struct {
	system SystemId
	ended  atomic.Bool
}

func newScope(system SystemId) *Scope {
	return &Scope{system: system}
}

// System returns the system the scope belongs to.
func (s *Scope) System() SystemId {
	return s.system
}

// Alive reports whether accessors bound to the scope may still be used.
func (s *Scope) Alive() bool {
	return s == nil || !s.ended.Load()
}

func (s *Scope) end() {
	s.ended.Store(true)
}

func (s *Scope) check(id func() ResourceTypeId) {
	if s != nil && s.ended.Load() {
		panic(fmt.Sprintf("resource %s accessed after system %q finished running", id(), s.system))
	}
}

// ResourceSet is a statically declared set of resources a system fetches at the start of
// every run. The methods are called on the zero value: ReadTypes and WriteTypes describe
// the set for conflict detection, FetchUnchecked produces the value passed to the closure.
type ResourceSet[P any] interface {
	// FetchUnchecked looks the resources up without borrow bookkeeping. The caller must
	// guarantee no concurrently running system holds a conflicting accessor.
	// Panics when a resource is missing.
	FetchUnchecked(resources *Resources, scope *Scope) P
	ReadTypes() []ResourceTypeId
	WriteTypes() []ResourceTypeId
}

// Read is a shared accessor to the resource of type T. It is a thin reference, so copying
// it is cheap; equality and ordering compare the referenced address.
type Read[T any] struct {
	value *T
	scope *Scope
}

func (Read[T]) FetchUnchecked(resources *Resources, scope *Scope) Read[T] {
	return Read[T]{value: (*T)(resources.mustCell(ResourceTypeOf[T]()).ptr), scope: scope}
}

func (Read[T]) ReadTypes() []ResourceTypeId  { return []ResourceTypeId{ResourceTypeOf[T]()} }
func (Read[T]) WriteTypes() []ResourceTypeId { return nil }

// Get returns the resource. It must not be modified through a Read accessor.
func (r Read[T]) Get() *T {
	r.scope.check(ResourceTypeOf[T])
	return r.value
}

// Equal reports whether both accessors reference the same resource value.
func (r Read[T]) Equal(o Read[T]) bool { return r.value == o.value }

// Compare orders accessors by referenced address.
func (r Read[T]) Compare(o Read[T]) int { return cmp.Compare(r.Addr(), o.Addr()) }

// Addr returns the referenced address, usable as a hash key.
func (r Read[T]) Addr() uintptr { return uintptr(unsafe.Pointer(r.value)) }

// MapRead derives an accessor over a part of the resource.
func MapRead[T, K any](r Read[T], f func(*T) *K) Read[K] {
	return Read[K]{value: f(r.Get()), scope: r.scope}
}

// Write is an exclusive accessor to the resource of type T.
type Write[T any] struct {
	value *T
	scope *Scope
}

func (Write[T]) FetchUnchecked(resources *Resources, scope *Scope) Write[T] {
	return Write[T]{value: (*T)(resources.mustCell(ResourceTypeOf[T]()).ptr), scope: scope}
}

func (Write[T]) ReadTypes() []ResourceTypeId  { return nil }
func (Write[T]) WriteTypes() []ResourceTypeId { return []ResourceTypeId{ResourceTypeOf[T]()} }

// Get returns the resource for modification.
func (w Write[T]) Get() *T {
	w.scope.check(ResourceTypeOf[T])
	return w.value
}

// Equal reports whether both accessors reference the same resource value.
func (w Write[T]) Equal(o Write[T]) bool { return w.value == o.value }

// Compare orders accessors by referenced address.
func (w Write[T]) Compare(o Write[T]) int { return cmp.Compare(w.Addr(), o.Addr()) }

// Addr returns the referenced address, usable as a hash key.
func (w Write[T]) Addr() uintptr { return uintptr(unsafe.Pointer(w.value)) }

// MapWrite turns the accessor into one over a part of the resource.
func MapWrite[T, K any](w Write[T], f func(*T) *K) Write[K] {
	return Write[K]{value: f(w.Get()), scope: w.scope}
}

// PreparedRead fetches through a checked shared borrow and releases it immediately,
// keeping only the address. Validity afterwards rests on the scheduler's guarantees.
type PreparedRead[T any] struct {
	value *T
	scope *Scope
}

func (PreparedRead[T]) FetchUnchecked(resources *Resources, scope *Scope) PreparedRead[T] {
	ref, ok := GetResource[T](resources)
	if !ok {
		panic(fmt.Sprintf("%s: %s", ErrResourceNotFound, ResourceTypeOf[T]()))
	}
	value := ref.Get()
	ref.Release()
	return PreparedRead[T]{value: value, scope: scope}
}

func (PreparedRead[T]) ReadTypes() []ResourceTypeId  { return []ResourceTypeId{ResourceTypeOf[T]()} }
func (PreparedRead[T]) WriteTypes() []ResourceTypeId { return nil }

// Get returns the resource. It must not be modified through a PreparedRead accessor.
func (r PreparedRead[T]) Get() *T {
	r.scope.check(ResourceTypeOf[T])
	return r.value
}

// PreparedWrite fetches through a checked exclusive borrow and releases it immediately.
type PreparedWrite[T any] struct {
	value *T
	scope *Scope
}

func (PreparedWrite[T]) FetchUnchecked(resources *Resources, scope *Scope) PreparedWrite[T] {
	ref, ok := GetResourceMut[T](resources)
	if !ok {
		panic(fmt.Sprintf("%s: %s", ErrResourceNotFound, ResourceTypeOf[T]()))
	}
	value := ref.Get()
	ref.Release()
	return PreparedWrite[T]{value: value, scope: scope}
}

func (PreparedWrite[T]) ReadTypes() []ResourceTypeId  { return nil }
func (PreparedWrite[T]) WriteTypes() []ResourceTypeId { return []ResourceTypeId{ResourceTypeOf[T]()} }

// Get returns the resource for modification.
func (w PreparedWrite[T]) Get() *T {
	w.scope.check(ResourceTypeOf[T])
	return w.value
}

// NoResources is the resource set of systems that fetch nothing.
type NoResources struct{}

func (NoResources) FetchUnchecked(*Resources, *Scope) NoResources { return NoResources{} }
func (NoResources) ReadTypes() []ResourceTypeId                  { return nil }
func (NoResources) WriteTypes() []ResourceTypeId                 { return nil }

// Res2 fetches two resource sets.
type Res2[A ResourceSet[A], B ResourceSet[B]] struct {
	First  A
	Second B
}

func (Res2[A, B]) FetchUnchecked(resources *Resources, scope *Scope) Res2[A, B] {
	var a A
	var b B
	return Res2[A, B]{
		First:  a.FetchUnchecked(resources, scope),
		Second: b.FetchUnchecked(resources, scope),
	}
}

func (Res2[A, B]) ReadTypes() []ResourceTypeId {
	var a A
	var b B
	return slices.Concat(a.ReadTypes(), b.ReadTypes())
}

func (Res2[A, B]) WriteTypes() []ResourceTypeId {
	var a A
	var b B
	return slices.Concat(a.WriteTypes(), b.WriteTypes())
}

// Res3 fetches three resource sets.
type Res3[A ResourceSet[A], B ResourceSet[B], C ResourceSet[C]] struct {
	First  A
	Second B
	Third  C
}

func (Res3[A, B, C]) FetchUnchecked(resources *Resources, scope *Scope) Res3[A, B, C] {
	var a A
	var b B
	var c C
	return Res3[A, B, C]{
		First:  a.FetchUnchecked(resources, scope),
		Second: b.FetchUnchecked(resources, scope),
		Third:  c.FetchUnchecked(resources, scope),
	}
}

func (Res3[A, B, C]) ReadTypes() []ResourceTypeId {
	var a A
	var b B
	var c C
	return slices.Concat(a.ReadTypes(), b.ReadTypes(), c.ReadTypes())
}

func (Res3[A, B, C]) WriteTypes() []ResourceTypeId {
	var a A
	var b B
	var c C
	return slices.Concat(a.WriteTypes(), b.WriteTypes(), c.WriteTypes())
}

// Res4 fetches four resource sets.
type Res4[A ResourceSet[A], B ResourceSet[B], C ResourceSet[C], D ResourceSet[D]] struct {
	First  A
	Second B
	Third  C
	Fourth D
}

func (Res4[A, B, C, D]) FetchUnchecked(resources *Resources, scope *Scope) Res4[A, B, C, D] {
	var a A
	var b B
	var c C
	var d D
	return Res4[A, B, C, D]{
		First:  a.FetchUnchecked(resources, scope),
		Second: b.FetchUnchecked(resources, scope),
		Third:  c.FetchUnchecked(resources, scope),
		Fourth: d.FetchUnchecked(resources, scope),
	}
}

func (Res4[A, B, C, D]) ReadTypes() []ResourceTypeId {
	var a A
	var b B
	var c C
	var d D
	return slices.Concat(a.ReadTypes(), b.ReadTypes(), c.ReadTypes(), d.ReadTypes())
}

func (Res4[A, B, C, D]) WriteTypes() []ResourceTypeId {
	var a A
	var b B
	var c C
	var d D
	return slices.Concat(a.WriteTypes(), b.WriteTypes(), c.WriteTypes(), d.WriteTypes())
}
