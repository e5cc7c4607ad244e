// Package app is the terminal UI shown by `mangadl download --tui`.
package app

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/mangadl/pkg/app/screens"
	"github.com/kerbaras/mangadl/pkg/services"
)

type App struct {
	opts []tea.ProgramOption
}

func NewApp(opts ...tea.ProgramOption) *App {
	return &App{opts: opts}
}

// RunDownload renders progress events while run executes. It returns the
// download's own error, or the UI error if the program failed.
func (a *App) RunDownload(ctx context.Context, title string, run screens.DownloadFunc, progress <-chan services.DownloadProgress) error {
	model := screens.NewDownloadScreen(ctx, title, run, progress)
	p := tea.NewProgram(model, a.opts...)
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("failed to run ui: %w", err)
	}
	screen, ok := final.(*screens.DownloadScreen)
	if !ok {
		return nil
	}
	return screen.Err()
}
