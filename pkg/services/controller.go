package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kerbaras/mangadl/pkg/config"
	"github.com/kerbaras/mangadl/pkg/data"
	"github.com/kerbaras/mangadl/pkg/integrations"
	"github.com/kerbaras/mangadl/pkg/sources"
	"github.com/kerbaras/mangadl/pkg/utils"
)

// MangaController wires the source, downloader, packagers and library
// together from a Config.
type MangaController struct {
	source     sources.Source
	repo       *data.Repository
	downloader *Downloader
}

// NewMangaController builds the download stack. Packager workers are tied
// to ctx.
func NewMangaController(ctx context.Context, cfg config.Config, logger *slog.Logger) (*MangaController, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	api := NewAPI(cfg.API, logger)
	source := sources.NewMangaDex(api)
	pages := NewPageDownloader(api.Client(), api.Limiter(), logger).WithUserAgent(api.UserAgent())
	downloader := NewDownloader(source, pages, logger)
	c := &MangaController{source: source, downloader: downloader}

	if cfg.Format != "" {
		p, err := integrations.NewPackager(ctx, cfg.Format, PackagerOptions(cfg, logger))
		if err != nil {
			return nil, &ConfigError{Field: "format", Reason: err.Error()}
		}
		downloader.WithPackagers(p)
	}

	if cfg.Library != "" {
		repo, err := data.OpenRepository(cfg.Library)
		if err != nil {
			downloader.Close()
			return nil, fmt.Errorf("failed to open library: %w", err)
		}
		c.repo = repo
		downloader.WithLibrary(repo)
	}
	return c, nil
}

// NewAPI builds the MangaDex API client from its configuration.
func NewAPI(cfg config.APIConfig, logger *slog.Logger) *utils.API {
	opts := utils.DefaultOptions()
	opts.Timeout = cfg.Timeout
	opts.RetryAttempts = cfg.Retries
	opts.RequestsPerSecond = cfg.RequestsPerSecond
	return utils.NewAPI(cfg.BaseURL, opts, logger)
}

// PackagerOptions maps the image settings of cfg onto packager options.
func PackagerOptions(cfg config.Config, logger *slog.Logger) integrations.Options {
	opts := integrations.DefaultOptions()
	opts.Grayscale = cfg.Grayscale
	opts.MaxWidth = cfg.MaxWidth
	opts.MaxHeight = cfg.MaxHeight
	opts.Logger = logger
	return opts
}

// OptionsFromConfig maps the configuration onto download options. Chapter
// bounds are not part of the configuration and are left open.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Folder:     cfg.Folder,
		Language:   cfg.Language,
		Replace:    cfg.Replace,
		Compressed: cfg.Compressed,
		NoOneshot:  cfg.NoOneshot,
		Cover:      cfg.Cover,
		Retry: RetryPolicy{
			MaxAttempts: cfg.Retry.Attempts,
			Backoff:     cfg.Retry.Backoff,
			MaxBackoff:  cfg.Retry.MaxBackoff,
		},
	}
}

func (c *MangaController) Source() sources.Source { return c.source }

func (c *MangaController) Downloader() *Downloader { return c.downloader }

// Library returns the library repository, or nil when it is disabled.
func (c *MangaController) Library() *data.Repository { return c.repo }

func (c *MangaController) Close() error {
	err := c.downloader.Close()
	if c.repo != nil {
		err = errors.Join(err, c.repo.Close())
	}
	return err
}
