package components

import (
	"fmt"
	"strings"

	"github.com/kerbaras/mangadl/pkg/app/styles"
	"github.com/kerbaras/mangadl/pkg/services"
)

// ProgressTracker folds download events into one line per chapter, in the
// order chapters were first seen.
type ProgressTracker struct {
	downloads map[string]*services.DownloadProgress
	order     []string
	done      int
	failed    int
	width     int
}

func NewProgressTracker(width int) *ProgressTracker {
	return &ProgressTracker{
		downloads: make(map[string]*services.DownloadProgress),
		width:     width,
	}
}

func (p *ProgressTracker) SetWidth(width int) {
	p.width = width
}

func (p *ProgressTracker) Update(progress services.DownloadProgress) {
	key := progress.MangaID + ":" + progress.ChapterID

	switch progress.Status {
	case services.StateDone:
		if _, ok := p.downloads[key]; ok {
			p.remove(key)
		}
		p.done++
		return
	case services.StateFailed:
		p.failed++
	}

	if _, ok := p.downloads[key]; !ok {
		p.order = append(p.order, key)
	}
	prog := progress // Copy
	p.downloads[key] = &prog
}

func (p *ProgressTracker) remove(key string) {
	delete(p.downloads, key)
	for i, k := range p.order {
		if k == key {
			p.order = append(p.order[:i], p.order[i+1:]...)
			return
		}
	}
}

func (p *ProgressTracker) Clear() {
	p.downloads = make(map[string]*services.DownloadProgress)
	p.order = nil
}

func (p *ProgressTracker) HasActive() bool {
	return len(p.downloads) > 0
}

// Done and Failed count finished chapters.
func (p *ProgressTracker) Done() int   { return p.done }
func (p *ProgressTracker) Failed() int { return p.failed }

func (p *ProgressTracker) View() string {
	if len(p.downloads) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("Active Downloads"))
	b.WriteString("\n")

	for _, key := range p.order {
		progress := p.downloads[key]

		chapterText := progress.Folder
		if chapterText == "" {
			chapterText = fmt.Sprintf("Chapter %s", progress.ChapterNumber)
		}
		b.WriteString(styles.TextStyle.Render(chapterText))
		b.WriteString("\n")

		status := string(progress.Status)
		statusText := status
		if progress.TotalPages > 0 {
			percentage := float64(progress.CurrentPage) / float64(progress.TotalPages) * 100
			statusText = fmt.Sprintf("%s (%d/%d pages - %.0f%%)",
				status, progress.CurrentPage, progress.TotalPages, percentage)

			b.WriteString(renderProgressBar(progress.CurrentPage, progress.TotalPages, p.width-4))
			b.WriteString("\n")
		}
		if progress.Attempt > 1 {
			statusText += fmt.Sprintf(" attempt %d", progress.Attempt)
		}

		b.WriteString(styles.StatusStyle(status).Render(statusText))
		b.WriteString("\n")

		if progress.Error != nil {
			b.WriteString(styles.StatusError.Render(fmt.Sprintf("Error: %s", progress.Error)))
			b.WriteString("\n")
		}

		b.WriteString("\n")
	}

	return b.String()
}

func renderProgressBar(current, total, width int) string {
	if total == 0 || width <= 0 {
		return ""
	}

	filled := int(float64(current) / float64(total) * float64(width))
	if filled > width {
		filled = width
	}

	return styles.ProgressBarStyle.Render(strings.Repeat("█", filled)) +
		styles.ProgressEmptyStyle.Render(strings.Repeat("░", width-filled))
}
