package screens

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/mangadl/pkg/app/components"
	"github.com/kerbaras/mangadl/pkg/app/styles"
	"github.com/kerbaras/mangadl/pkg/services"
)

// DownloadFunc runs a download and returns when it has finished.
type DownloadFunc func(ctx context.Context) error

type progressMsg services.DownloadProgress

type progressClosedMsg struct{}

type downloadDoneMsg struct {
	err error
}

// DownloadScreen shows live chapter progress while a download runs.
// Pressing q or ctrl+c cancels the download; the screen exits once the
// download has returned.
type DownloadScreen struct {
	title    string
	run      DownloadFunc
	progress <-chan services.DownloadProgress

	ctx    context.Context
	cancel context.CancelFunc

	tracker   *components.ProgressTracker
	spinner   spinner.Model
	done      bool
	canceling bool
	err       error

	width int
}

func NewDownloadScreen(ctx context.Context, title string, run DownloadFunc, progress <-chan services.DownloadProgress) *DownloadScreen {
	ctx, cancel := context.WithCancel(ctx)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.StatusDownloading

	return &DownloadScreen{
		title:    title,
		run:      run,
		progress: progress,
		ctx:      ctx,
		cancel:   cancel,
		tracker:  components.NewProgressTracker(60),
		spinner:  s,
		width:    80,
	}
}

func (d *DownloadScreen) Init() tea.Cmd {
	return tea.Batch(d.start(), d.waitForProgress(), d.spinner.Tick)
}

func (d *DownloadScreen) start() tea.Cmd {
	return func() tea.Msg {
		return downloadDoneMsg{err: d.run(d.ctx)}
	}
}

func (d *DownloadScreen) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		p, ok := <-d.progress
		if !ok {
			return progressClosedMsg{}
		}
		return progressMsg(p)
	}
}

func (d *DownloadScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.tracker.SetWidth(msg.Width - 4)
		return d, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if d.done {
				return d, tea.Quit
			}
			d.canceling = true
			d.cancel()
		}
		return d, nil

	case progressMsg:
		d.tracker.Update(services.DownloadProgress(msg))
		return d, d.waitForProgress()

	case progressClosedMsg:
		return d, nil

	case downloadDoneMsg:
		d.done = true
		d.err = msg.err
		d.cancel()
		return d, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		d.spinner, cmd = d.spinner.Update(msg)
		return d, cmd
	}

	return d, nil
}

func (d *DownloadScreen) View() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render(d.title))
	b.WriteString("\n\n")
	b.WriteString(d.tracker.View())

	summary := fmt.Sprintf("%d chapters done, %d failed", d.tracker.Done(), d.tracker.Failed())
	switch {
	case d.done && d.err != nil:
		b.WriteString(styles.StatusError.Render("Finished with errors: " + summary))
	case d.done:
		b.WriteString(styles.StatusCompleted.Render("Finished: " + summary))
	case d.canceling:
		b.WriteString(d.spinner.View() + " " + styles.StatusRetrying.Render("Stopping after the current page..."))
	default:
		b.WriteString(d.spinner.View() + " " + styles.MutedStyle.Render(summary))
	}
	b.WriteString("\n")

	if !d.done {
		b.WriteString(styles.HelpStyle.Render("q: cancel"))
		b.WriteString("\n")
	}
	return b.String()
}

// Err is the error the download returned.
func (d *DownloadScreen) Err() error {
	return d.err
}

// Done reports whether the download has returned.
func (d *DownloadScreen) Done() bool {
	return d.done
}
