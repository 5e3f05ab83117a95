package ecs

import (
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"
)

var (
	// ErrResourceNotFound is returned when no value is registered for a resource type.
	ErrResourceNotFound = errors.New("resource not found")
	// ErrResourceBorrowed is returned when a checked borrow conflicts with an outstanding one.
	ErrResourceBorrowed = errors.New("resource already borrowed")
)

// resourceCell holds one resource value and its borrow state:
// 0 unborrowed, n > 0 shared borrows, -1 exclusive borrow.
type resourceCell struct {
	typ    ResourceTypeId
	ptr    unsafe.Pointer
	borrow atomic.Int64
}

func (c *resourceCell) acquireShared() bool {
	for {
		n := c.borrow.Load()
		if n < 0 {
			return false
		}
		if c.borrow.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (c *resourceCell) acquireExclusive() bool {
	return c.borrow.CompareAndSwap(0, -1)
}

// Resources is the global resource container: one value per type, stored in a table and
// addressed by ResourceTypeId. It offers checked borrows (GetResource, GetResourceMut)
// that count readers and writers, and an unchecked lookup used by system accessors whose
// exclusivity is established by the scheduler instead.
//
// Insert and Remove must not run concurrently with systems.
type Resources struct {
	cells []*resourceCell
	index map[ResourceTypeId]int
	free  []int
}

// NewResources creates an empty container.
func NewResources() *Resources {
	return &Resources{index: make(map[ResourceTypeId]int)}
}

// InsertResource stores value as the resource of type T, replacing any previous value.
func InsertResource[T any](r *Resources, value T) {
	id := ResourceTypeOf[T]()
	boxed := new(T)
	*boxed = value
	if r.index == nil {
		r.index = make(map[ResourceTypeId]int)
	}

	if i, ok := r.index[id]; ok {
		cell := r.cells[i]
		if cell.borrow.Load() != 0 {
			panic(fmt.Sprintf("cannot replace resource %s while it is borrowed", id))
		}
		cell.ptr = unsafe.Pointer(boxed)
		return
	}

	cell := &resourceCell{typ: id, ptr: unsafe.Pointer(boxed)}
	if n := len(r.free); n > 0 {
		i := r.free[n-1]
		r.free = r.free[:n-1]
		r.cells[i] = cell
		r.index[id] = i
		return
	}
	r.cells = append(r.cells, cell)
	r.index[id] = len(r.cells) - 1
}

// RemoveResource removes the resource of type T and returns its value.
func RemoveResource[T any](r *Resources) (T, bool) {
	var zero T
	id := ResourceTypeOf[T]()
	i, ok := r.index[id]
	if !ok {
		return zero, false
	}
	cell := r.cells[i]
	if cell.borrow.Load() != 0 {
		panic(fmt.Sprintf("cannot remove resource %s while it is borrowed", id))
	}
	delete(r.index, id)
	r.cells[i] = nil
	r.free = append(r.free, i)
	return *(*T)(cell.ptr), true
}

// Contains reports whether a value is registered for the resource type.
func (r *Resources) Contains(id ResourceTypeId) bool {
	_, ok := r.index[id]
	return ok
}

// Len returns the number of registered resources.
func (r *Resources) Len() int {
	return len(r.index)
}

// Types returns the registered resource types.
func (r *Resources) Types() []ResourceTypeId {
	types := make([]ResourceTypeId, 0, len(r.index))
	for _, cell := range r.cells {
		if cell != nil {
			types = append(types, cell.typ)
		}
	}
	return dedupe(types)
}

func (r *Resources) cell(id ResourceTypeId) *resourceCell {
	i, ok := r.index[id]
	if !ok {
		return nil
	}
	return r.cells[i]
}

// mustCell is the unchecked lookup. A missing resource means the program registered a
// system against resources that were never inserted, so it panics.
func (r *Resources) mustCell(id ResourceTypeId) *resourceCell {
	cell := r.cell(id)
	if cell == nil {
		panic(fmt.Sprintf("%s: %s", ErrResourceNotFound, id))
	}
	return cell
}

// ResourceRef is a checked shared borrow of a resource. Release it when done.
type ResourceRef[T any] struct {
	cell  *resourceCell
	value *T
}

// Get returns the resource. The value must not be modified through a shared borrow.
func (r ResourceRef[T]) Get() *T {
	return r.value
}

// Release ends the borrow. Releasing twice is a no-op.
func (r *ResourceRef[T]) Release() {
	if r.cell != nil {
		r.cell.borrow.Add(-1)
		r.cell = nil
	}
}

// ResourceRefMut is a checked exclusive borrow of a resource. Release it when done.
type ResourceRefMut[T any] struct {
	cell  *resourceCell
	value *T
}

// Get returns the resource for modification.
func (r ResourceRefMut[T]) Get() *T {
	return r.value
}

// Release ends the borrow. Releasing twice is a no-op.
func (r *ResourceRefMut[T]) Release() {
	if r.cell != nil {
		r.cell.borrow.Store(0)
		r.cell = nil
	}
}

// TryGetResource takes a shared borrow of the resource of type T.
func TryGetResource[T any](r *Resources) (ResourceRef[T], error) {
	id := ResourceTypeOf[T]()
	cell := r.cell(id)
	if cell == nil {
		return ResourceRef[T]{}, fmt.Errorf("%w: %s", ErrResourceNotFound, id)
	}
	if !cell.acquireShared() {
		return ResourceRef[T]{}, fmt.Errorf("%w: %s is mutably borrowed", ErrResourceBorrowed, id)
	}
	return ResourceRef[T]{cell: cell, value: (*T)(cell.ptr)}, nil
}

// TryGetResourceMut takes an exclusive borrow of the resource of type T.
func TryGetResourceMut[T any](r *Resources) (ResourceRefMut[T], error) {
	id := ResourceTypeOf[T]()
	cell := r.cell(id)
	if cell == nil {
		return ResourceRefMut[T]{}, fmt.Errorf("%w: %s", ErrResourceNotFound, id)
	}
	if !cell.acquireExclusive() {
		return ResourceRefMut[T]{}, fmt.Errorf("%w: %s", ErrResourceBorrowed, id)
	}
	return ResourceRefMut[T]{cell: cell, value: (*T)(cell.ptr)}, nil
}

// GetResource takes a shared borrow of the resource of type T. It returns false when
// the resource is missing and panics when the resource is exclusively borrowed.
func GetResource[T any](r *Resources) (ResourceRef[T], bool) {
	ref, err := TryGetResource[T](r)
	if errors.Is(err, ErrResourceNotFound) {
		return ref, false
	}
	if err != nil {
		panic(err.Error())
	}
	return ref, true
}

// GetResourceMut takes an exclusive borrow of the resource of type T. It returns false
// when the resource is missing and panics when the resource is borrowed.
func GetResourceMut[T any](r *Resources) (ResourceRefMut[T], bool) {
	ref, err := TryGetResourceMut[T](r)
	if errors.Is(err, ErrResourceNotFound) {
		return ref, false
	}
	if err != nil {
		panic(err.Error())
	}
	return ref, true
}

// ReadResource copies the current value of the resource of type T using a checked borrow.
func ReadResource[T any](r *Resources) (T, bool) {
	ref, ok := GetResource[T](r)
	if !ok {
		var zero T
		return zero, false
	}
	defer ref.Release()
	return *ref.Get(), true
}
