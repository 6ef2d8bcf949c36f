package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vburojevic/buildtl/internal/layout"
)

var palette = []lipgloss.Color{"39", "213", "114", "220", "141", "209", "81", "177"}

const (
	cellEmpty   = "·"
	cellRunning = "▒"
)

// alternating fills keep adjacent units in one slot apart without color
var cellFills = []string{"█", "▓"}

// RenderBars draws one line per slot, scaling total to width cells
func RenderBars(rows []layout.Row, slots int, total time.Duration, width int, styled bool) string {
	if slots == 0 || width <= 0 {
		return ""
	}
	if total <= 0 {
		total = time.Millisecond
	}

	type cell struct {
		text  string
		color int
	}
	grid := make([][]cell, slots)
	for i := range grid {
		grid[i] = make([]cell, width)
		for j := range grid[i] {
			grid[i][j] = cell{text: cellEmpty, color: -1}
		}
	}

	placed := make([]int, slots)
	for i, r := range rows {
		if r.Slot < 0 || r.Slot >= slots {
			continue
		}
		from := scale(r.Offset, total, width)
		to := scale(r.Offset+r.Duration, total, width)
		if to <= from {
			to = from + 1
		}
		fill := cellFills[placed[r.Slot]%len(cellFills)]
		if r.Running {
			fill = cellRunning
		}
		placed[r.Slot]++
		for x := from; x < to && x < width; x++ {
			grid[r.Slot][x] = cell{text: fill, color: i % len(palette)}
		}
	}

	labelWidth := len(fmt.Sprintf("%d", slots-1))
	var b strings.Builder
	for s, line := range grid {
		fmt.Fprintf(&b, "%*d │", labelWidth, s)
		for _, c := range line {
			if styled && c.color >= 0 {
				b.WriteString(lipgloss.NewStyle().Foreground(palette[c.color]).Render(c.text))
			} else {
				b.WriteString(c.text)
			}
		}
		b.WriteString("│\n")
	}
	axis := fmt.Sprintf("%*s 0%s%s", labelWidth, "", strings.Repeat(" ", max(width-len(FormatDuration(total)), 1)), FormatDuration(total))
	b.WriteString(axis)
	return b.String()
}

func scale(d, total time.Duration, width int) int {
	if d <= 0 {
		return 0
	}
	x := int(int64(d) * int64(width) / int64(total))
	return min(x, width)
}
