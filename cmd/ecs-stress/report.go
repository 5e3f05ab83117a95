package main

import (
	"fmt"
	"io"
	"runtime"
	"strings"
	"text/template"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/plus3/syskernel/ecs"
)

type Report struct {
	// Configuration
	Duration   time.Duration
	Entities   int
	Components int
	Systems    int
	Workers    int
	Seed       int64

	// Results
	TotalUpdates   int64
	TotalTime      time.Duration
	UpdateTime     Stats
	GCPauseMetrics bool
	MemStatsStart  runtime.MemStats
	MemStatsEnd    runtime.MemStats
	World          ecs.WorldStats
	Batches        int
	SystemRows     []SystemRow
}

// SystemRow is one line of the per-system table.
type SystemRow struct {
	Name       string
	Batch      int
	Reads      string
	Writes     string
	Executions int64
	Avg        time.Duration
}

type Stats struct {
	Min     time.Duration
	Max     time.Duration
	Avg     time.Duration
	Samples []time.Duration
}

func (s *Stats) Finalize() {
	if len(s.Samples) == 0 {
		return
	}

	var total time.Duration
	s.Min = s.Samples[0]
	s.Max = s.Samples[0]

	for _, sample := range s.Samples {
		s.Min = min(s.Min, sample)
		s.Max = max(s.Max, sample)
		total += sample
	}
	s.Avg = total / time.Duration(len(s.Samples))
}

// AddSchedule copies the batch layout and per-system timings of the scheduler.
func (r *Report) AddSchedule(scheduler *ecs.Scheduler) {
	stats := scheduler.GetStats()
	r.Batches = stats.BatchCount

	batches := scheduler.Batches()
	r.SystemRows = make([]SystemRow, 0, len(stats.Systems))
	for _, s := range stats.Systems {
		row := SystemRow{
			Name:       s.Name.String(),
			Batch:      s.Batch,
			Executions: s.ExecutionCount,
			Avg:        s.AvgDuration,
		}
		for _, system := range batches[s.Batch] {
			if system.Name() == s.Name {
				row.Reads = formatAccess(system.Reads())
				row.Writes = formatAccess(system.Writes())
				break
			}
		}
		r.SystemRows = append(r.SystemRows, row)
	}
}

func formatAccess(resources []ecs.ResourceTypeId, components []ecs.ComponentTypeId) string {
	names := make([]string, 0, len(resources)+len(components))
	for _, t := range resources {
		names = append(names, "res:"+shortName(t.String()))
	}
	for _, t := range components {
		names = append(names, shortName(t.String()))
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, " ")
}

func shortName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// formatTable renders rows as left-aligned columns. Widths are measured in terminal
// cells so wide runes in system names do not skew the layout.
func formatTable(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		for i, cell := range cells {
			if i > 0 {
				b.WriteString("  ")
			}
			if i == len(cells)-1 {
				b.WriteString(cell)
				continue
			}
			b.WriteString(runewidth.FillRight(cell, widths[i]))
		}
		b.WriteByte('\n')
	}

	writeRow(header)
	rule := make([]string, len(header))
	for i, w := range widths {
		rule[i] = strings.Repeat("-", w)
	}
	writeRow(rule)
	for _, row := range rows {
		writeRow(row)
	}
	return b.String()
}

func systemTable(rows []SystemRow) string {
	cells := make([][]string, len(rows))
	for i, row := range rows {
		cells[i] = []string{
			row.Name,
			fmt.Sprint(row.Batch),
			fmt.Sprint(row.Executions),
			row.Avg.String(),
			row.Reads,
			row.Writes,
		}
	}
	return formatTable([]string{"SYSTEM", "BATCH", "RUNS", "AVG", "READS", "WRITES"}, cells)
}

func (r *Report) Generate(w io.Writer) error {
	const reportTemplate = `
# ECS Stress Test Report

## Test Configuration
- **Run Duration:** {{.Duration}}
- **Initial Entities:** {{.Entities}}
- **Component Types:** {{.Components}}
- **Systems:** {{.Systems}}
- **Workers:** {{if .Workers}}{{.Workers}}{{else}}unlimited{{end}}
- **Seed:** {{.Seed}}

## Performance Results
- **Total Updates:** {{.TotalUpdates}}
- **Total Test Time:** {{.TotalTime}}
- **Update Time (Frame):**
  - **Avg:** {{.UpdateTime.Avg}}
  - **Min:** {{.UpdateTime.Min}}
  - **Max:** {{.UpdateTime.Max}}

## World
- **Live Entities:** {{.World.TotalEntityCount}}
- **Archetypes:** {{.World.ArchetypeCount}} (generation {{.World.Generation}})

## Schedule ({{.Batches}} batches)
{{table .SystemRows}}
## Memory Usage (MiB)
- Heap Alloc:     {{mb .MemStatsStart.HeapAlloc}} (start) -> {{mb .MemStatsEnd.HeapAlloc}} (end) -> delta: {{mb (bsub .MemStatsEnd.HeapAlloc .MemStatsStart.HeapAlloc)}}
- Total Alloc:    {{mb .MemStatsStart.TotalAlloc}} (start) -> {{mb .MemStatsEnd.TotalAlloc}} (end) -> delta: {{mb (bsub .MemStatsEnd.TotalAlloc .MemStatsStart.TotalAlloc)}}
- Sys Memory:     {{mb .MemStatsStart.Sys}} (start) -> {{mb .MemStatsEnd.Sys}} (end) -> delta: {{mb (bsub .MemStatsEnd.Sys .MemStatsStart.Sys)}}
- Num GC:         {{.MemStatsStart.NumGC}} (start) -> {{.MemStatsEnd.NumGC}} (end) -> delta: {{usub .MemStatsEnd.NumGC .MemStatsStart.NumGC}}

{{if .GCPauseMetrics}}
## GC Pause Durations
- **Total GC Pause:** {{.MemStatsEnd.PauseTotalNs | ns}}
- **Num GC Cycles:** {{ usub .MemStatsEnd.NumGC .MemStatsStart.NumGC }}
{{end}}
`

	fm := template.FuncMap{
		"mb": func(v any) string {
			switch val := v.(type) {
			case uint64:
				return fmt.Sprintf("%.2f", float64(val)/1024/1024)
			case int64:
				return fmt.Sprintf("%.2f", float64(val)/1024/1024)
			default:
				return "N/A"
			}
		},
		"bsub": func(a, b uint64) int64 {
			return int64(a) - int64(b)
		},
		"usub": func(a, b uint32) uint32 {
			return a - b
		},
		"ns": func(ns uint64) string {
			return time.Duration(ns).String()
		},
		"table": systemTable,
	}

	tmpl, err := template.New("report").Funcs(fm).Parse(reportTemplate)
	if err != nil {
		return err
	}

	return tmpl.Execute(w, r)
}
