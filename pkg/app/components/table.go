package components

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/kerbaras/mangadl/pkg/app/styles"
)

// NewTable returns a borderless table in the theme's header and cell styles.
func NewTable(headers ...string) *table.Table {
	header := styles.HeaderStyle.Align(lipgloss.Center)

	return table.New().
		Border(lipgloss.HiddenBorder()).
		BorderStyle(styles.BorderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return header
			default:
				return styles.CellStyle
			}
		}).
		Headers(headers...)
}
