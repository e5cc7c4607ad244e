package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Color palette
	Primary    = lipgloss.Color("#FF6B9D")
	Secondary  = lipgloss.Color("#C792EA")
	Success    = lipgloss.Color("#C3E88D")
	Warning    = lipgloss.Color("#FFCB6B")
	Error      = lipgloss.Color("#F07178")
	Info       = lipgloss.Color("#82AAFF")
	Muted      = lipgloss.Color("#546E7A")
	Foreground = lipgloss.Color("#EEFFFF")
)

// Base styles
var (
	TitleStyle = lipgloss.NewStyle().
		Foreground(Primary).
		Bold(true).
		MarginBottom(1)

	TextStyle = lipgloss.NewStyle().
		Foreground(Foreground)

	MutedStyle = lipgloss.NewStyle().
		Foreground(Muted)

	StatusDownloading = lipgloss.NewStyle().
		Foreground(Info).
		Bold(true)

	StatusRetrying = lipgloss.NewStyle().
		Foreground(Warning).
		Bold(true)

	StatusCompleted = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	StatusError = lipgloss.NewStyle().
		Foreground(Error).
		Bold(true)

	ProgressBarStyle = lipgloss.NewStyle().
		Foreground(Primary)

	ProgressEmptyStyle = lipgloss.NewStyle().
		Foreground(Muted)

	// Table header and cells for the list, search and fetch commands.
	HeaderStyle = lipgloss.NewStyle().
		Foreground(Secondary).
		Bold(true).
		Padding(0, 1)

	CellStyle = lipgloss.NewStyle().
		Foreground(Foreground).
		Padding(0, 1)

	BorderStyle = lipgloss.NewStyle().
		Foreground(Muted)

	HelpStyle = lipgloss.NewStyle().
		Foreground(Muted).
		Italic(true).
		MarginTop(1)
)

// StatusStyle maps download and library states to a style.
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case "preparing", "downloading", "processing":
		return StatusDownloading
	case "retrying":
		return StatusRetrying
	case "completed", "complete":
		return StatusCompleted
	case "error", "partial":
		return StatusError
	default:
		return MutedStyle
	}
}
