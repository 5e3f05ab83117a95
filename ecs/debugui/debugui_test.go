package debugui_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plus3/syskernel/ecs"
	"github.com/plus3/syskernel/ecs/debugui"
)

type Mass float64

type Charge float64

type Counter int

type massReaders struct {
	Items ecs.Query[struct {
		Mass *Mass `ecs:"read"`
	}]
}

func newRegistry() *ecs.ComponentRegistry {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Mass](registry)
	ecs.RegisterComponent[Charge](registry)
	debugui.RegisterDebugUIComponents(registry)
	return registry
}

func noop[R ecs.ResourceSet[R], Q any](name string, opts ...ecs.SystemOption) ecs.Runnable {
	return ecs.NewSystem[R, Q](name, func(*ecs.CommandBuffer, *ecs.SubWorld, R, *Q) {}, opts...)
}

func TestImguiSystem(t *testing.T) {
	world := ecs.NewWorld(newRegistry())
	resources := ecs.NewResources()
	debugui.InsertDebugUIResources(resources)

	var calls []string
	world.Spawn(debugui.ImguiItem{Render: func() { calls = append(calls, "first") }})
	world.Spawn(debugui.ImguiItem{})
	world.Spawn(debugui.ImguiItem{Render: func() { calls = append(calls, "second") }})

	system := debugui.NewImguiSystem(func() debugui.ImguiInputState {
		return debugui.ImguiInputState{WantCaptureMouse: true}
	})

	resourceWrites, _ := system.Writes()
	assert.Equal(t, []ecs.ResourceTypeId{ecs.ResourceTypeOf[debugui.ImguiInputState]()}, resourceWrites)
	_, componentReads := system.Reads()
	assert.Equal(t, []ecs.ComponentTypeId{ecs.ComponentTypeOf[debugui.ImguiItem]()}, componentReads)

	system.Prepare(world)
	system.Run(world, resources)
	assert.Empty(t, calls, "render functions wait for the command apply phase")

	state, ok := ecs.ReadResource[debugui.ImguiInputState](resources)
	require.True(t, ok)
	assert.True(t, state.WantCaptureMouse)
	assert.False(t, state.WantCaptureKeyboard)

	system.CommandBuffer(world).Apply(world)
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestCollectArchetypes(t *testing.T) {
	world := ecs.NewWorld(newRegistry())
	for range 3 {
		world.Spawn(Mass(1))
	}
	world.Spawn(Mass(1), Charge(1))
	for range 2 {
		world.Spawn(Charge(1))
	}

	scheduler := ecs.NewScheduler(world, nil)
	scheduler.Register(noop[ecs.NoResources, massReaders]("weigh"))
	scheduler.Register(noop[ecs.NoResources, ecs.NoQueries]("charges", ecs.ReadsComponent[Charge]()))
	scheduler.Register(noop[ecs.NoResources, ecs.NoQueries]("idle"))
	scheduler.Once(0)

	rows := debugui.CollectArchetypes(world, scheduler.Systems())
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"debugui_test.Mass"}, rows[0].ComponentTypes)
	assert.Equal(t, 3, rows[0].EntityCount)
	assert.Equal(t, []ecs.SystemId{"weigh", "charges"}, rows[0].Systems)
	assert.Equal(t, []string{"debugui_test.Charge", "debugui_test.Mass"}, rows[1].ComponentTypes)
	assert.Equal(t, []ecs.SystemId{"weigh", "charges"}, rows[1].Systems)
	assert.Equal(t, []ecs.SystemId{"charges"}, rows[2].Systems)

	t.Run("filter by system", func(t *testing.T) {
		assert.Len(t, debugui.FilterBySystem(rows, "weigh"), 2)
		assert.Len(t, debugui.FilterBySystem(rows, "charges"), 3)
		assert.Empty(t, debugui.FilterBySystem(rows, "idle"))
		assert.Len(t, debugui.FilterBySystem(rows, ""), 3)
	})

	t.Run("sort", func(t *testing.T) {
		sorted := append([]debugui.ArchetypeInfo(nil), rows...)
		debugui.SortArchetypes(sorted, debugui.SortByEntities, false)
		assert.Equal(t, []int{3, 2, 1}, []int{sorted[0].EntityCount, sorted[1].EntityCount, sorted[2].EntityCount})

		debugui.SortArchetypes(sorted, debugui.SortBySystems, true)
		assert.Equal(t, []ecs.SystemId{"charges"}, sorted[0].Systems)
	})

	t.Run("membership follows prepare", func(t *testing.T) {
		world.Spawn(Mass(2), debugui.ImguiItem{})
		stale := debugui.CollectArchetypes(world, scheduler.Systems())
		require.Len(t, stale, 4)
		assert.Equal(t, []ecs.SystemId{"charges"}, stale[3].Systems)

		scheduler.Once(0)
		fresh := debugui.CollectArchetypes(world, scheduler.Systems())
		assert.Equal(t, []ecs.SystemId{"weigh", "charges"}, fresh[3].Systems)
	})
}

func TestCollectSchedule(t *testing.T) {
	world := ecs.NewWorld(newRegistry())
	world.Spawn(Mass(1))
	resources := ecs.NewResources()
	ecs.InsertResource(resources, Counter(0))

	scheduler := ecs.NewScheduler(world, resources)
	scheduler.Register(noop[ecs.Write[Counter], ecs.NoQueries]("count"))
	scheduler.Register(noop[ecs.Read[Counter], ecs.NoQueries]("display"))
	scheduler.Register(noop[ecs.NoResources, massReaders]("weigh"))
	scheduler.Once(0)

	batches := debugui.CollectSchedule(scheduler)
	require.Len(t, batches, 2)
	require.Len(t, batches[0], 2)
	require.Len(t, batches[1], 1)

	count, weigh, display := batches[0][0], batches[0][1], batches[1][0]
	assert.Equal(t, ecs.SystemId("count"), count.Name)
	assert.Equal(t, []string{"debugui_test.Counter"}, count.ResourceWrites)
	assert.Equal(t, "none", count.Archetypes)
	assert.Equal(t, []ecs.SystemId{"display"}, count.ConflictsWith)

	assert.Equal(t, ecs.SystemId("weigh"), weigh.Name)
	assert.Equal(t, []string{"debugui_test.Mass"}, weigh.ComponentReads)
	assert.Empty(t, weigh.ComponentWrites)
	assert.Equal(t, "1 archetypes", weigh.Archetypes)
	assert.Empty(t, weigh.ConflictsWith)

	assert.Equal(t, 1, display.Batch)
	assert.Equal(t, []string{"debugui_test.Counter"}, display.ResourceReads)
	assert.Equal(t, []ecs.SystemId{"count"}, display.ConflictsWith)
	assert.Equal(t, int64(1), display.Executions)
}

func TestPerformanceStats(t *testing.T) {
	stats := debugui.NewPerformanceStats(4)
	assert.Zero(t, stats.AverageFrameTime())

	stats.Record(0.010)
	stats.Record(0.020)
	assert.InDelta(t, 15.0, stats.AverageFrameTime(), 1e-3)

	for range 4 {
		stats.Record(0.005)
	}
	assert.InDelta(t, 5.0, stats.AverageFrameTime(), 1e-3)
}

func TestSpawnDebugUI(t *testing.T) {
	world := ecs.NewWorld(newRegistry())
	scheduler := ecs.NewScheduler(world, nil)

	panels := debugui.SpawnDebugUI(scheduler)
	assert.NotNil(t, panels.Performance)
	assert.NotNil(t, panels.Archetypes)
	assert.NotNil(t, panels.Schedule)
	assert.Empty(t, panels.Archetypes.SelectedSystem())

	items := 0
	for item := range ecs.NewView[struct{ *debugui.ImguiItem }](world).Values() {
		assert.NotNil(t, item.Render)
		items++
	}
	assert.Equal(t, 3, items)
}
