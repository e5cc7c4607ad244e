package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kerbaras/mangadl/pkg/app"
	"github.com/kerbaras/mangadl/pkg/services"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var downloadCmd = &cobra.Command{
	Use:   "download <url|id>",
	Short: "Download manga chapters",
	Long: `Download every chapter of a manga in one language.

Pages already on disk are skipped unless --replace is given, so an
interrupted download can be resumed by running the same command again.`,
	Args: cobra.ExactArgs(1),
	RunE: runDownload,
}

func init() {
	f := downloadCmd.Flags()
	f.String("folder", ".", "Folder the manga directory is created in")
	f.StringP("language", "l", "en", "Language code or name (see `mangadl languages`)")
	f.Bool("replace", false, "Download pages again even if they exist")
	f.Bool("compressed", false, "Download data-saver (compressed) pages")
	f.Float64("start-chapter", 0, "First chapter to download")
	f.Float64("end-chapter", 0, "Last chapter to download")
	f.Bool("no-oneshot", false, "Skip oneshot chapters")
	f.String("cover", services.CoverOriginal, "Cover quality: original, 512px, 256px or none")
	f.String("format", "", "Also package each chapter: cbz, zip, pdf or epub")
	f.Bool("grayscale", false, "Convert pages to grayscale when packaging pdf or epub")
	f.Int("max-width", 0, "Scale packaged pdf or epub pages down to this width (0 keeps the original)")
	f.Int("max-height", 0, "Scale packaged pdf or epub pages down to this height (0 keeps the original)")
	f.Int("max-attempts", 10, "Fetch attempts per chapter before giving up (0 retries forever)")
	f.Bool("tui", false, "Show an interactive progress view")

	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := services.OptionsFromConfig(cfg)
	flags := cmd.Flags()
	if flags.Changed("start-chapter") {
		v, _ := flags.GetFloat64("start-chapter")
		opts.Start = &v
	}
	if flags.Changed("end-chapter") {
		v, _ := flags.GetFloat64("end-chapter")
		opts.End = &v
	}
	// Reject bad options before touching the network.
	if err := opts.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctrl, err := services.NewMangaController(ctx, cfg, newLogger())
	if err != nil {
		return err
	}
	downloader := ctrl.Downloader()

	tui, _ := flags.GetBool("tui")
	if tui {
		err := app.NewApp().RunDownload(ctx, "📥 "+args[0], func(ctx context.Context) error {
			_, err := downloader.DownloadManga(ctx, args[0], opts)
			return err
		}, downloader.GetProgressChannel())
		return errors.Join(err, ctrl.Close())
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		renderProgress(downloader.GetProgressChannel())
	}()

	fmt.Printf("📥 Downloading %s (language: %s)\n", args[0], opts.Language)
	manga, err := downloader.DownloadManga(ctx, args[0], opts)
	closeErr := ctrl.Close()
	<-done

	if err != nil {
		var failed *services.ChapterFailedError
		if errors.As(err, &failed) {
			fmt.Println("⚠️  Some chapters could not be downloaded; run the command again to resume")
		}
		return err
	}
	if closeErr != nil {
		return closeErr
	}
	fmt.Printf("✅ Download complete: %s\n", manga.Title)
	return nil
}

// renderProgress draws one progress bar per chapter until progress closes.
func renderProgress(progress <-chan services.DownloadProgress) {
	var bar *progressbar.ProgressBar
	var current string

	for p := range progress {
		if p.ChapterID != current {
			current = p.ChapterID
			bar = nil
		}

		switch p.Status {
		case services.StateDownloading:
			if bar == nil && p.TotalPages > 0 {
				bar = progressbar.NewOptions(p.TotalPages,
					progressbar.OptionSetDescription(p.Folder),
					progressbar.OptionSetWriter(os.Stdout),
					progressbar.OptionShowCount(),
					progressbar.OptionSetItsString("page"),
					progressbar.OptionSetTheme(progressbar.Theme{
						Saucer:        "=",
						SaucerHead:    ">",
						SaucerPadding: " ",
						BarStart:      "[",
						BarEnd:        "]",
					}),
				)
			}
			if bar != nil {
				bar.Set(p.CurrentPage)
			}
		case services.StateRetrying:
			if bar != nil {
				bar.Clear()
				bar = nil
			}
			fmt.Printf("\n🔁 %s: retrying (attempt %d)\n", p.Folder, p.Attempt)
		case services.StateProcessing:
			if bar != nil {
				bar.Finish()
			}
		case services.StateDone:
			if bar != nil {
				bar.Finish()
				bar = nil
			}
			fmt.Printf("\n✅ %s\n", p.Folder)
		case services.StateFailed:
			bar = nil
			fmt.Printf("\n❌ %s: %v\n", p.Folder, p.Error)
		}
	}
}
