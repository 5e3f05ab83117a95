// Package debugui provides Dear ImGui panels for inspecting a running kernel: world and
// scheduler statistics, per-system archetype membership and the access sets behind the
// batch layout. Render functions are queued as deferred commands, so they run on the
// goroutine applying command buffers and never inside a parallel batch.
package debugui

import (
	"github.com/AllenDang/cimgui-go/imgui"

	"github.com/plus3/syskernel/ecs"
)

// ImguiItem is a component that holds a Dear ImGui render function.
// Attach this to entities that should render ImGui widgets each frame.
type ImguiItem struct {
	Render func()
}

// ImguiInputState tracks Dear ImGui's input capture state as a resource.
// Use this to determine if ImGui is consuming mouse or keyboard input.
type ImguiInputState struct {
	WantCaptureMouse    bool
	WantCaptureKeyboard bool
}

// InputReader reports the current input capture state.
type InputReader func() ImguiInputState

// CurrentInput reads the capture flags of the current ImGui context.
func CurrentInput() ImguiInputState {
	io := imgui.CurrentIO()
	return ImguiInputState{
		WantCaptureMouse:    io.WantCaptureMouse(),
		WantCaptureKeyboard: io.WantCaptureKeyboard(),
	}
}

type imguiQueries struct {
	Items ecs.Query[struct {
		Item *ImguiItem `ecs:"read"`
	}]
}

// NewImguiSystem builds the system that updates ImguiInputState and defers every
// ImguiItem render function. A nil input reader uses CurrentInput.
func NewImguiSystem(input InputReader) ecs.Runnable {
	if input == nil {
		input = CurrentInput
	}
	return ecs.NewSystem[ecs.Write[ImguiInputState], imguiQueries]("debugui",
		func(commands *ecs.CommandBuffer, world *ecs.SubWorld, state ecs.Write[ImguiInputState], q *imguiQueries) {
			*state.Get() = input()
			for item := range q.Items.Values(world) {
				if item.Item.Render != nil {
					commands.Defer(item.Item.Render)
				}
			}
		})
}

// RegisterDebugUIComponents registers the component types spawned by SpawnDebugUI.
func RegisterDebugUIComponents(registry *ecs.ComponentRegistry) {
	ecs.RegisterComponent[ImguiItem](registry)
}

// InsertDebugUIResources adds the resources NewImguiSystem writes.
func InsertDebugUIResources(resources *ecs.Resources) {
	ecs.InsertResource(resources, ImguiInputState{})
}
