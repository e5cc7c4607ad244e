package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kerbaras/mangadl/pkg/app/components"
	"github.com/kerbaras/mangadl/pkg/data"
	"github.com/kerbaras/mangadl/pkg/services"
	"github.com/kerbaras/mangadl/pkg/sources"
	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <url|id>",
	Short: "Show a manga and its chapters",
	Long:  "Fetch manga metadata and the chapter list from MangaDex without downloading pages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := newLogger()
		source := sources.NewMangaDex(services.NewAPI(cfg.API, logger))

		fmt.Printf("🔍 Fetching %s...\n", args[0])
		manga, err := services.FetchManga(cmd.Context(), source, logger, args[0], cfg.Language)
		if err != nil {
			return err
		}

		printManga(manga)

		if save, _ := cmd.Flags().GetBool("save"); save {
			if err := saveToLibrary(cfg.Library, manga); err != nil {
				return err
			}
			fmt.Printf("✅ Added '%s' to library with %d chapters\n", manga.Title, manga.Chapters.Len())
			fmt.Printf("💡 To download chapters, use: mangadl download %s --language %s\n", manga.ID, cfg.Language)
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringP("language", "l", "en", "Language of the chapter list")
	fetchCmd.Flags().Bool("save", false, "Record the manga and its chapters in the library")

	rootCmd.AddCommand(fetchCmd)
}

func printManga(manga *data.Manga) {
	fmt.Printf("\n📚 %s\n", manga.Title)
	if len(manga.Authors) > 0 {
		fmt.Printf("   Author: %s\n", strings.Join(manga.Authors, ", "))
	}
	if len(manga.Artists) > 0 {
		fmt.Printf("   Artist: %s\n", strings.Join(manga.Artists, ", "))
	}
	if manga.Status != "" {
		fmt.Printf("   Status: %s\n", manga.Status)
	}
	if len(manga.Tags) > 0 {
		fmt.Printf("   Genre:  %s\n", strings.Join(manga.Tags, ", "))
	}
	fmt.Println()

	t := components.NewTable("#", "Volume", "Chapter", "Title", "Pages", "Folder")
	for i, ch := range manga.Chapters.All() {
		t.Row(
			strconv.Itoa(i+1),
			ch.Volume,
			ch.Number,
			truncateString(ch.Title, 40),
			strconv.Itoa(ch.Pages),
			services.ChapterFolder(ch.Volume, ch.Number),
		)
	}
	fmt.Println(t)
}

func saveToLibrary(path string, manga *data.Manga) error {
	if path == "" {
		return fmt.Errorf("no library configured")
	}
	repo, err := data.OpenRepository(path)
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.SaveManga(&data.LibraryManga{
		ID:     manga.ID,
		Title:  manga.Title,
		Source: "mangadex",
		Status: "ready",
	}); err != nil {
		return fmt.Errorf("failed to save manga: %w", err)
	}

	known, err := repo.GetChapters(manga.ID)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(known))
	for _, ch := range known {
		seen[ch.ID] = true
	}

	for _, ch := range manga.Chapters.All() {
		if seen[ch.ID] {
			continue
		}
		err := repo.SaveChapter(&data.LibraryChapter{
			ID:       ch.ID,
			MangaID:  manga.ID,
			Title:    ch.Title,
			Language: ch.Language,
			Volume:   ch.Volume,
			Number:   ch.Number,
		})
		if err != nil {
			fmt.Printf("⚠️  Failed to save chapter %s: %v\n", ch.Number, err)
		}
	}
	return nil
}
