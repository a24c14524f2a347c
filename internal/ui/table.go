package ui

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// StatsRow is one labelled counter in the stats table.
type StatsRow struct {
	Name  string
	Value int
}

// StatsTable renders server counters as a two column table. Counters are
// right aligned and zero values are dimmed.
func StatsTable(rows []StatsRow) string {
	if len(rows) == 0 {
		return MutedStyle.Render("No data")
	}

	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		data = append(data, []string{r.Name, strconv.Itoa(r.Value)})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Accent)).
		BorderRow(false).
		Headers("Counter", "Value").
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			style := TableRowStyle
			if row%2 == 1 {
				style = TableRowAltStyle
			}
			if col == 1 {
				style = style.Align(lipgloss.Right)
				if rows[row].Value == 0 {
					style = style.Foreground(Muted)
				}
			}
			return style
		}).
		Render()
}
