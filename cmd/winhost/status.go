package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/1broseidon/winhost/internal/ipc"
	"github.com/1broseidon/winhost/internal/window"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	readyStyle  = cellStyle.Foreground(lipgloss.Color("42"))
	goneStyle   = cellStyle.Foreground(lipgloss.Color("196"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// renderStatus formats the host status as a table.
func renderStatus(status *ipc.StatusData) string {
	rows := make([][]string, 0, len(status.Windows))
	for _, w := range status.Windows {
		rows = append(rows, statusRow(w))
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("ID", "STATE", "BOUNDS", "FULLSCREEN", "ZOOM", "SAMPLING").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 1 && row >= 0 && row < len(rows) {
				switch rows[row][1] {
				case window.StateReady.String():
					return readyStyle
				case "destroyed":
					return goneStyle
				}
			}
			return cellStyle
		})

	summary := dimStyle.Render(fmt.Sprintf("uptime %ds  attention %v  windows %d",
		status.UptimeSeconds, status.Attention, len(status.Windows)))
	return t.Render() + "\n" + summary
}

func statusRow(w window.Info) []string {
	state := w.ReadyState
	if w.Destroyed {
		state = "destroyed"
	}
	return []string{
		w.ID,
		state,
		fmt.Sprintf("%dx%d+%d+%d", w.Bounds.Width, w.Bounds.Height, w.Bounds.X, w.Bounds.Y),
		strconv.FormatBool(w.Fullscreen),
		strconv.FormatFloat(w.ZoomLevel, 'g', -1, 64),
		strconv.FormatBool(w.Sampling),
	}
}
