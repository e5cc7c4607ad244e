package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kerbaras/mangadl/pkg/data"
	"github.com/kerbaras/mangadl/pkg/sources"
	"github.com/kerbaras/mangadl/pkg/utils"
)

// FetchManga resolves a manga URL or id into a fully populated Manga:
// metadata, author and artist names, cover URLs and the chapter list for
// language. It never touches the filesystem.
func FetchManga(ctx context.Context, source sources.Source, logger *slog.Logger, rawURL, language string) (*data.Manga, error) {
	if source == nil {
		return nil, fmt.Errorf("source cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	lang, err := utils.GetLanguage(language)
	if err != nil {
		return nil, &ConfigError{Field: "language", Reason: err.Error()}
	}
	id, err := utils.ParseMangaID(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, rawURL)
	}

	info, err := source.GetManga(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch manga: %w", err)
	}
	manga := info.Manga

	manga.Authors, err = resolveNames(ctx, source, info.AuthorIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch authors: %w", err)
	}
	manga.Artists, err = resolveNames(ctx, source, info.ArtistIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch artists: %w", err)
	}

	if info.CoverID != "" {
		cover, err := source.GetCoverArt(ctx, info.CoverID)
		switch {
		case errors.Is(err, sources.ErrNotFound):
			logger.Warn("cover art not found", "manga", manga.ID, "cover", info.CoverID)
		case err != nil:
			return nil, fmt.Errorf("failed to fetch cover art: %w", err)
		default:
			manga.CoverURL, manga.CoverURL512, manga.CoverURL256 = source.CoverURLs(manga.ID, cover.FileName)
		}
	}

	refs, err := source.GetAllChapters(ctx, manga.ID, lang.Code)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chapters: %w", err)
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: %s has no %s chapters", sources.ErrChapterNotFound, manga.Title, lang.Name)
	}

	manga.Chapters = data.NewChapterList(lang.Code)
	for _, ref := range refs {
		if err := manga.Chapters.Add(ref); err != nil {
			logger.Warn("skipping chapter", "chapter", ref.ID, "error", err)
		}
	}

	logger.Debug("fetched manga", "id", manga.ID, "title", manga.Title, "chapters", manga.Chapters.Len())
	return manga, nil
}

func resolveNames(ctx context.Context, source sources.Source, ids []string) ([]string, error) {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		name, err := source.GetAuthor(ctx, id)
		if err != nil {
			return nil, err
		}
		if name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}
