package debugui

import (
	"fmt"
	"strings"
	"time"

	"github.com/AllenDang/cimgui-go/imgui"

	"github.com/plus3/syskernel/ecs"
)

// SystemInfo is the declared access and runtime of one scheduled system.
type SystemInfo struct {
	Name            ecs.SystemId
	Batch           int
	ResourceReads   []string
	ResourceWrites  []string
	ComponentReads  []string
	ComponentWrites []string
	Archetypes      string
	Executions      int64
	Avg             time.Duration
	Last            time.Duration
	// ConflictsWith names the systems that may never share a batch with this one.
	ConflictsWith []ecs.SystemId
}

// CollectSchedule returns the scheduler's systems grouped by batch.
func CollectSchedule(scheduler *ecs.Scheduler) [][]SystemInfo {
	stats := scheduler.GetStats()
	systems := scheduler.Systems()

	batches := make([][]SystemInfo, stats.BatchCount)
	for i, system := range systems {
		access := system.Access()
		s := stats.Systems[i]
		info := SystemInfo{
			Name:            system.Name(),
			Batch:           s.Batch,
			ResourceReads:   typeNames(access.Resources.Reads),
			ResourceWrites:  typeNames(access.Resources.Writes),
			ComponentReads:  typeNames(access.Components.Reads),
			ComponentWrites: typeNames(access.Components.Writes),
			Archetypes:      describeArchetypes(system.AccessesArchetypes()),
			Executions:      s.ExecutionCount,
			Avg:             s.AvgDuration,
			Last:            s.LastDuration,
		}
		for j, other := range systems {
			if j != i && (other == system || access.ConflictsWith(other.Access())) {
				info.ConflictsWith = append(info.ConflictsWith, other.Name())
			}
		}
		batches[s.Batch] = append(batches[s.Batch], info)
	}
	return batches
}

func typeNames[T fmt.Stringer](types []T) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return names
}

func describeArchetypes(access *ecs.ArchetypeAccess) string {
	if access.Kind() == ecs.SomeArchetypes {
		return fmt.Sprintf("%d archetypes", access.Count())
	}
	return access.Kind().String()
}

// ScheduleInspector shows every batch with the access sets that placed its systems
// there, and the conflicts of a selected system.
type ScheduleInspector struct {
	selected ecs.SystemId
}

func NewScheduleInspector() *ScheduleInspector {
	return &ScheduleInspector{}
}

func (si *ScheduleInspector) Render(scheduler *ecs.Scheduler) {
	if !imgui.BeginV("Schedule Inspector", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	batches := CollectSchedule(scheduler)
	imgui.Text(fmt.Sprintf("Batches: %d", len(batches)))
	imgui.Separator()

	var selected *SystemInfo
	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg
	for b, batch := range batches {
		if !imgui.TreeNodeStr(fmt.Sprintf("Batch %d (%d systems)", b, len(batch))) {
			continue
		}
		if imgui.BeginTableV(fmt.Sprintf("Batch%dTable", b), 5, tableFlags, imgui.NewVec2(0, 0), 0) {
			imgui.TableSetupColumn("System")
			imgui.TableSetupColumn("Reads")
			imgui.TableSetupColumn("Writes")
			imgui.TableSetupColumn("Archetypes")
			imgui.TableSetupColumn("Avg")
			imgui.TableHeadersRow()

			for i := range batch {
				info := &batch[i]
				imgui.TableNextRow()

				imgui.TableNextColumn()
				if imgui.SelectableBoolV(info.Name.String(), si.selected == info.Name, imgui.SelectableFlagsSpanAllColumns, imgui.NewVec2(0, 0)) {
					si.selected = info.Name
				}

				imgui.TableNextColumn()
				imgui.Text(joinAccess(info.ResourceReads, info.ComponentReads))
				imgui.TableNextColumn()
				imgui.Text(joinAccess(info.ResourceWrites, info.ComponentWrites))
				imgui.TableNextColumn()
				imgui.Text(info.Archetypes)
				imgui.TableNextColumn()
				imgui.Text(info.Avg.String())
			}

			imgui.EndTable()
		}
		imgui.TreePop()
	}

	for b := range batches {
		for i := range batches[b] {
			if batches[b][i].Name == si.selected {
				selected = &batches[b][i]
			}
		}
	}

	if selected != nil {
		imgui.Separator()
		imgui.Text(fmt.Sprintf("%s (batch %d, %d runs, last %s)",
			selected.Name, selected.Batch, selected.Executions, selected.Last))
		if len(selected.ConflictsWith) == 0 {
			imgui.Text("No conflicts")
		}
		for _, name := range selected.ConflictsWith {
			imgui.BulletText(name.String())
		}
	}

	imgui.End()
}

func joinAccess(resources, components []string) string {
	parts := make([]string, 0, len(resources)+len(components))
	for _, r := range resources {
		parts = append(parts, "res:"+r)
	}
	parts = append(parts, components...)
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}
