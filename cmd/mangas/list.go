package cmd

import (
	"fmt"

	"github.com/kerbaras/mangadl/pkg/app/components"
	"github.com/kerbaras/mangadl/pkg/data"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all manga in your library",
	Long:  "Display all downloaded manga recorded in the library in a formatted table",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openLibrary(cmd)
		if err != nil {
			return err
		}
		defer repo.Close()

		mangas, err := repo.ListMangas()
		if err != nil {
			return err
		}

		if len(mangas) == 0 {
			fmt.Println("📚 No manga in library. Use 'mangadl download' to get started.")
			return nil
		}

		items := make([]components.LibraryItem, 0, len(mangas))
		for _, manga := range mangas {
			_, total, downloaded, err := repo.GetMangaWithChapterCount(manga.ID)
			if err != nil {
				return err
			}
			items = append(items, components.LibraryItem{
				Manga:           manga,
				ChapterCount:    total,
				DownloadedCount: downloaded,
			})
		}

		fmt.Printf("\n📚 Library (%d manga)\n\n", len(mangas))
		fmt.Println(components.LibraryView(items))
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <manga-id>",
	Short: "Remove a manga from your library",
	Long:  "Forget a manga and its chapters. Files on disk are left untouched.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openLibrary(cmd)
		if err != nil {
			return err
		}
		defer repo.Close()

		manga, err := repo.GetManga(args[0])
		if err != nil {
			return err
		}
		if manga == nil {
			return fmt.Errorf("manga %s is not in the library", args[0])
		}
		if err := repo.DeleteManga(manga.ID); err != nil {
			return err
		}
		fmt.Printf("🗑️  Removed '%s' from library\n", manga.Title)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(removeCmd)
}

func openLibrary(cmd *cobra.Command) (*data.Repository, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.Library == "" {
		return nil, fmt.Errorf("no library configured")
	}
	return data.OpenRepository(cfg.Library)
}
