package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/kerbaras/mangadl/pkg/config"
	"github.com/kerbaras/mangadl/pkg/utils"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "mangadl",
	Short:         "Download manga from MangaDex",
	Long:          "Download manga chapters from MangaDex into folders, cbz, pdf or epub files",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("library", "", "DuckDB library file; an empty value disables the library")
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

// loadConfig layers defaults, the config file, MANGADL_ variables and the
// flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadFromFile(configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("library") {
		cfg.Library, _ = flags.GetString("library")
	}
	if flags.Changed("folder") {
		cfg.Folder, _ = flags.GetString("folder")
	}
	if flags.Changed("language") {
		cfg.Language, _ = flags.GetString("language")
	}
	if flags.Changed("format") {
		cfg.Format, _ = flags.GetString("format")
	}
	if flags.Changed("cover") {
		cfg.Cover, _ = flags.GetString("cover")
	}
	if flags.Changed("compressed") {
		cfg.Compressed, _ = flags.GetBool("compressed")
	}
	if flags.Changed("replace") {
		cfg.Replace, _ = flags.GetBool("replace")
	}
	if flags.Changed("no-oneshot") {
		cfg.NoOneshot, _ = flags.GetBool("no-oneshot")
	}
	if flags.Changed("grayscale") {
		cfg.Grayscale, _ = flags.GetBool("grayscale")
	}
	if flags.Changed("max-width") {
		cfg.MaxWidth, _ = flags.GetInt("max-width")
	}
	if flags.Changed("max-height") {
		cfg.MaxHeight, _ = flags.GetInt("max-height")
	}
	if flags.Changed("max-attempts") {
		cfg.Retry.Attempts, _ = flags.GetInt("max-attempts")
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newLogger() *slog.Logger {
	return utils.NewLogger(os.Stderr, verbose)
}

func truncateString(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
