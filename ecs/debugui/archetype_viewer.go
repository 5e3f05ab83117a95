package debugui

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/AllenDang/cimgui-go/imgui"

	"github.com/plus3/syskernel/ecs"
)

// ArchetypeInfo is one archetype row together with the systems whose cached membership
// includes it.
type ArchetypeInfo struct {
	ID             uint32
	Index          int
	ComponentTypes []string
	EntityCount    int
	Systems        []ecs.SystemId
}

// Sort columns of the archetype table.
const (
	SortByID = iota
	SortByComponents
	SortByEntities
	SortBySystems
)

// CollectArchetypes lists the world's archetypes and, for each, the systems that may
// touch it. Membership reflects each system's last Prepare.
func CollectArchetypes(world *ecs.World, systems []ecs.Runnable) []ArchetypeInfo {
	archetypes := world.Archetypes()
	rows := make([]ArchetypeInfo, 0, len(archetypes))
	for _, arch := range archetypes {
		names := make([]string, len(arch.Types()))
		for i, t := range arch.Types() {
			names[i] = t.String()
		}

		row := ArchetypeInfo{
			ID:             arch.ID(),
			Index:          arch.Index(),
			ComponentTypes: names,
			EntityCount:    arch.Len(),
		}
		for _, system := range systems {
			if system.AccessesArchetypes().Contains(arch.Index()) {
				row.Systems = append(row.Systems, system.Name())
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// FilterBySystem keeps the rows the named system can reach. An empty name keeps all.
func FilterBySystem(rows []ArchetypeInfo, name ecs.SystemId) []ArchetypeInfo {
	if name == "" {
		return rows
	}
	return slices.DeleteFunc(slices.Clone(rows), func(row ArchetypeInfo) bool {
		return !slices.Contains(row.Systems, name)
	})
}

// SortArchetypes orders rows by one of the Sort* columns.
func SortArchetypes(rows []ArchetypeInfo, column int, ascending bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !ascending {
			a, b = b, a
		}
		switch column {
		case SortByID:
			return a.ID < b.ID
		case SortByComponents:
			return strings.Join(a.ComponentTypes, ",") < strings.Join(b.ComponentTypes, ",")
		case SortBySystems:
			return len(a.Systems) < len(b.Systems)
		default:
			return a.EntityCount < b.EntityCount
		}
	})
}

// ArchetypeViewer lists archetypes with their entity counts and reaching systems, and
// can narrow the table to a single system's membership.
type ArchetypeViewer struct {
	selectedSystem ecs.SystemId
	sortColumn     int
	sortAscending  bool
}

func NewArchetypeViewer() *ArchetypeViewer {
	return &ArchetypeViewer{sortColumn: SortByEntities}
}

// SelectedSystem returns the system the table is filtered by, or "".
func (av *ArchetypeViewer) SelectedSystem() ecs.SystemId {
	return av.selectedSystem
}

func (av *ArchetypeViewer) Render(world *ecs.World, systems []ecs.Runnable) {
	if !imgui.BeginV("Archetype Viewer", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	rows := CollectArchetypes(world, systems)

	if imgui.TreeNodeStr("Filter by System") {
		if imgui.Button("Clear Filter") {
			av.selectedSystem = ""
		}
		for _, system := range systems {
			access := system.AccessesArchetypes()
			label := fmt.Sprintf("%s (%s)", system.Name(), access.Kind())
			if imgui.SelectableBoolV(label, av.selectedSystem == system.Name(), 0, imgui.NewVec2(0, 0)) {
				av.selectedSystem = system.Name()
			}
		}
		imgui.TreePop()
	}

	rows = FilterBySystem(rows, av.selectedSystem)
	if av.selectedSystem != "" {
		imgui.Text(fmt.Sprintf("%s reaches %d archetypes", av.selectedSystem, len(rows)))
	}
	imgui.Separator()

	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg | imgui.TableFlagsSortable | imgui.TableFlagsScrollY
	if imgui.BeginTableV("ArchetypeTable", 4, tableFlags, imgui.NewVec2(0, 0), 0) {
		imgui.TableSetupColumn("Archetype ID")
		imgui.TableSetupColumn("Components")
		imgui.TableSetupColumn("Entity Count")
		imgui.TableSetupColumn("Systems")
		imgui.TableHeadersRow()

		sortSpecs := imgui.TableGetSortSpecs()
		if sortSpecs.SpecsDirty() && sortSpecs.SpecsCount() > 0 {
			spec := sortSpecs.Specs()
			av.sortColumn = int(spec.ColumnIndex())
			av.sortAscending = spec.SortDirection() == imgui.SortDirectionAscending
			sortSpecs.SetSpecsDirty(false)
		}
		SortArchetypes(rows, av.sortColumn, av.sortAscending)

		for _, arch := range rows {
			imgui.TableNextRow()

			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("0x%X", arch.ID))

			imgui.TableNextColumn()
			imgui.Text(strings.Join(arch.ComponentTypes, ", "))

			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", arch.EntityCount))

			imgui.TableNextColumn()
			names := make([]string, len(arch.Systems))
			for i, name := range arch.Systems {
				names[i] = name.String()
			}
			imgui.Text(strings.Join(names, ", "))
		}

		imgui.EndTable()
	}

	imgui.End()
}
