package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/kerbaras/mangadl/pkg/app/styles"
	"github.com/kerbaras/mangadl/pkg/data"
)

type LibraryItem struct {
	Manga           *data.LibraryManga
	ChapterCount    int
	DownloadedCount int
}

var libraryColumns = []table.Column{
	{Title: "Title", Width: 40},
	{Title: "Status", Width: 12},
	{Title: "Chapters", Width: 10},
	{Title: "Path", Width: 50},
}

// LibraryRows renders items as table rows.
func LibraryRows(items []LibraryItem) []table.Row {
	rows := make([]table.Row, 0, len(items))
	for _, item := range items {
		status := item.Manga.Status
		if status == "" {
			status = "unknown"
		}
		rows = append(rows, table.Row{
			item.Manga.Title,
			status,
			fmt.Sprintf("%d/%d", item.DownloadedCount, item.ChapterCount),
			item.Manga.Path,
		})
	}
	return rows
}

// NewLibraryTable builds a static table of the library.
func NewLibraryTable(items []LibraryItem) table.Model {
	s := table.DefaultStyles()
	s.Header = styles.HeaderStyle.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Muted).
		BorderBottom(true)
	s.Cell = styles.CellStyle
	s.Selected = lipgloss.NewStyle()

	return table.New(
		table.WithColumns(libraryColumns),
		table.WithRows(LibraryRows(items)),
		table.WithStyles(s),
		table.WithHeight(len(items)+2),
		table.WithFocused(false),
	)
}

// LibraryView renders the library, or a placeholder when it is empty.
func LibraryView(items []LibraryItem) string {
	if len(items) == 0 {
		return styles.MutedStyle.Render("No manga in library")
	}
	t := NewLibraryTable(items)
	return t.View()
}
