package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kerbaras/mangadl/pkg/app/components"
	"github.com/kerbaras/mangadl/pkg/services"
	"github.com/kerbaras/mangadl/pkg/sources"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search for manga",
	Long:  "Search for manga on MangaDex and display results in a table",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		query := strings.Join(args, " ")
		source := sources.NewMangaDex(services.NewAPI(cfg.API, newLogger()))

		results, err := source.Search(cmd.Context(), query)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}

		if len(results) == 0 {
			fmt.Println("No results found.")
			return nil
		}

		t := components.NewTable("#", "Title", "Status", "ID")
		for i, manga := range results {
			t.Row(strconv.Itoa(i+1), truncateString(manga.Title, 58), manga.Status, manga.ID)
		}

		fmt.Println(t)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
}
