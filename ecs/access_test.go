package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type accessA struct{}
type accessB struct{}
type accessC struct{}

func TestAccessNormalize(t *testing.T) {
	a, b, c := ResourceTypeOf[accessA](), ResourceTypeOf[accessB](), ResourceTypeOf[accessC]()

	access := Access[ResourceTypeId]{
		Reads:  []ResourceTypeId{c, a, c, b},
		Writes: []ResourceTypeId{b, b},
	}.normalize()

	assert.Equal(t, []ResourceTypeId{a, c}, access.Reads)
	assert.Equal(t, []ResourceTypeId{b}, access.Writes)
}

func TestAccessConflicts(t *testing.T) {
	a, b := ComponentTypeOf[accessA](), ComponentTypeOf[accessB]()

	tests := []struct {
		name     string
		x, y     Access[ComponentTypeId]
		conflict bool
	}{
		{"empty", Access[ComponentTypeId]{}, Access[ComponentTypeId]{}, false},
		{"read read", Access[ComponentTypeId]{Reads: []ComponentTypeId{a}}, Access[ComponentTypeId]{Reads: []ComponentTypeId{a}}, false},
		{"read write", Access[ComponentTypeId]{Reads: []ComponentTypeId{a}}, Access[ComponentTypeId]{Writes: []ComponentTypeId{a}}, true},
		{"write read", Access[ComponentTypeId]{Writes: []ComponentTypeId{a}}, Access[ComponentTypeId]{Reads: []ComponentTypeId{a}}, true},
		{"write write", Access[ComponentTypeId]{Writes: []ComponentTypeId{a}}, Access[ComponentTypeId]{Writes: []ComponentTypeId{a}}, true},
		{"disjoint writes", Access[ComponentTypeId]{Writes: []ComponentTypeId{a}}, Access[ComponentTypeId]{Writes: []ComponentTypeId{b}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.conflict, tt.x.ConflictsWith(tt.y))
			assert.Equal(t, tt.conflict, tt.y.ConflictsWith(tt.x))
		})
	}

	// Resource and component namespaces are independent
	resources := SystemAccess{Resources: Access[ResourceTypeId]{Writes: []ResourceTypeId{ResourceTypeOf[accessA]()}}}
	components := SystemAccess{Components: Access[ComponentTypeId]{Writes: []ComponentTypeId{a}}}
	assert.False(t, resources.ConflictsWith(components))
	assert.True(t, resources.ConflictsWith(resources))
}

func TestAccessAllows(t *testing.T) {
	a, b, c := ComponentTypeOf[accessA](), ComponentTypeOf[accessB](), ComponentTypeOf[accessC]()
	access := Access[ComponentTypeId]{Reads: []ComponentTypeId{a}, Writes: []ComponentTypeId{b}}

	assert.True(t, access.allows(a, false))
	assert.False(t, access.allows(a, true))
	assert.True(t, access.allows(b, false))
	assert.True(t, access.allows(b, true))
	assert.False(t, access.allows(c, false))
}

func TestArchetypeAccessStaleness(t *testing.T) {
	registry := NewComponentRegistry()
	RegisterComponent[accessA](registry)
	RegisterComponent[accessB](registry)
	world := NewWorld(registry)

	access := newArchetypeAccess(SomeArchetypes)
	assert.True(t, access.stale(world))

	access.markFresh(world)
	assert.False(t, access.stale(world))

	world.Spawn(accessA{})
	assert.True(t, access.stale(world), "a new archetype invalidates the cache")
	access.markFresh(world)

	world.Spawn(accessA{})
	assert.False(t, access.stale(world), "spawning into a known archetype does not")

	assert.True(t, access.stale(NewWorld(registry)))

	assert.Equal(t, "none", NoArchetypes.String())
	assert.Equal(t, "all", AllArchetypes.String())
	assert.Equal(t, "some", SomeArchetypes.String())
}

func TestResourceCellBorrows(t *testing.T) {
	var cell resourceCell

	assert.True(t, cell.acquireShared())
	assert.True(t, cell.acquireShared())
	assert.False(t, cell.acquireExclusive())
	assert.Equal(t, int64(2), cell.borrow.Load())

	cell.borrow.Store(0)
	assert.True(t, cell.acquireExclusive())
	assert.False(t, cell.acquireShared())
	assert.False(t, cell.acquireExclusive())
	assert.Equal(t, int64(-1), cell.borrow.Load())
}

func TestScope(t *testing.T) {
	var unbound *Scope
	assert.True(t, unbound.Alive())
	assert.NotPanics(t, func() { unbound.check(ResourceTypeOf[accessA]) })

	scope := newScope("sys")
	assert.Equal(t, SystemId("sys"), scope.System())
	assert.True(t, scope.Alive())

	scope.end()
	assert.False(t, scope.Alive())
	assert.PanicsWithValue(t, `resource ecs.accessA accessed after system "sys" finished running`, func() {
		scope.check(ResourceTypeOf[accessA])
	})
}
