package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// renderTable lays out headers/rows in a bordered grid, column widths
// sized to their widest cell. Mirrors the static (non-interactive)
// table rendering path a REPL prints results through.
func renderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	var b strings.Builder
	border := renderBorder(widths)

	b.WriteString(border)
	b.WriteString("\n")
	b.WriteString(renderRow(headers, widths, headerStyle))
	b.WriteString("\n")
	b.WriteString(border)
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString(renderRow(row, widths, cellStyle))
		b.WriteString("\n")
	}
	b.WriteString(border)
	return b.String()
}

func renderRow(cells []string, widths []int, style lipgloss.Style) string {
	parts := make([]string, len(widths))
	for i := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		parts[i] = style.Width(widths[i] + 2).Render(cell)
	}
	return "|" + strings.Join(parts, "|") + "|"
}

func renderBorder(widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		parts[i] = strings.Repeat("-", w+2)
	}
	return "+" + strings.Join(parts, "+") + "+"
}

// columnsOf collects every key present across rows (result-set column
// names aren't preserved once decoded into a generic map) and returns
// them sorted, for a stable and deterministic column order to display.
func columnsOf(rows []map[string]any) []string {
	seen := make(map[string]bool)
	for _, row := range rows {
		for k := range row {
			seen[k] = true
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

func rowsToStrings(rows []map[string]any, cols []string) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		cells := make([]string, len(cols))
		for j, col := range cols {
			cells[j] = fmt.Sprintf("%v", row[col])
		}
		out[i] = cells
	}
	return out
}
