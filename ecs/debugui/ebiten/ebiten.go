// Package ebiten provides Dear ImGui backend integration for the Ebiten game engine.
package ebiten

import (
	ebitenbackend "github.com/AllenDang/cimgui-go/backend/ebiten-backend"
	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/plus3/syskernel/ecs"
)

// ImguiBackend wraps the Ebiten-specific Dear ImGui backend implementation.
type ImguiBackend struct {
	*ebitenbackend.EbitenBackend
}

// Host implements ebiten.Game. Each Update runs one scheduler tick between the ImGui
// frame begin and end, so render functions deferred by debugui systems land in that
// frame.
type Host struct {
	Backend   ImguiBackend
	Scheduler *ecs.Scheduler
	// DrawFunc draws game content under the ImGui overlay. Optional.
	DrawFunc func(screen *ebiten.Image)
}

// NewHost creates the ImGui window for the scheduler. Call Run to start the loop.
func NewHost(title string, width, height int, scheduler *ecs.Scheduler) *Host {
	backend := ebitenbackend.NewEbitenBackend()
	backend.CreateWindow(title, width, height)
	imgui.CurrentIO().SetIniFilename("")

	return &Host{
		Backend:   ImguiBackend{EbitenBackend: backend},
		Scheduler: scheduler,
	}
}

func (h *Host) Update() error {
	h.Backend.BeginFrame()
	h.Scheduler.Once(1.0 / float64(ebiten.TPS()))
	h.Backend.EndFrame()
	return nil
}

func (h *Host) Draw(screen *ebiten.Image) {
	if h.DrawFunc != nil {
		h.DrawFunc(screen)
	}
	h.Backend.Draw(screen)
}

func (h *Host) Layout(outsideWidth, outsideHeight int) (int, int) {
	h.Backend.Layout(outsideWidth, outsideHeight)
	return outsideWidth, outsideHeight
}

// Run blocks until the window is closed.
func (h *Host) Run() error {
	return ebiten.RunGame(h)
}
