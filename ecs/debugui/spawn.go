package debugui

import "github.com/plus3/syskernel/ecs"

// Panels groups the inspector windows spawned by SpawnDebugUI.
type Panels struct {
	Performance *PerformanceStats
	Archetypes  *ArchetypeViewer
	Schedule    *ScheduleInspector
}

// SpawnDebugUI spawns one ImguiItem per panel, each rendering against the scheduler and
// its world. NewImguiSystem must be registered for the panels to draw.
func SpawnDebugUI(scheduler *ecs.Scheduler) Panels {
	world := scheduler.World()
	panels := Panels{
		Performance: NewPerformanceStats(120),
		Archetypes:  NewArchetypeViewer(),
		Schedule:    NewScheduleInspector(),
	}
	timer := NewFrameTimer()

	world.Spawn(ImguiItem{Render: func() {
		panels.Performance.Render(world, scheduler, timer.GetDeltaTime())
	}})
	world.Spawn(ImguiItem{Render: func() {
		panels.Archetypes.Render(world, scheduler.Systems())
	}})
	world.Spawn(ImguiItem{Render: func() {
		panels.Schedule.Render(scheduler)
	}})
	return panels
}
