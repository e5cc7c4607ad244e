package sources

import (
	"context"

	"github.com/kerbaras/mangadl/pkg/data"
)

// Source is the upstream comic API. Implementations must be safe for
// sequential use by one download at a time; nothing is shared globally.
type Source interface {
	Search(ctx context.Context, query string) ([]*data.Manga, error)
	GetManga(ctx context.Context, id string) (*MangaInfo, error)
	GetAuthor(ctx context.Context, id string) (string, error)
	GetCoverArt(ctx context.Context, id string) (*CoverArt, error)
	// CoverURLs returns the original, 512px and 256px URLs of a cover file.
	CoverURLs(mangaID, fileName string) (string, string, string)
	GetAllChapters(ctx context.Context, mangaID, language string) ([]*data.ChapterRef, error)
	GetChapterPages(ctx context.Context, chapterID string) (*ChapterPages, error)
}

// MangaInfo is a manga record before its relationships are resolved.
type MangaInfo struct {
	Manga     *data.Manga
	AuthorIDs []string
	ArtistIDs []string
	CoverID   string
}

type CoverArt struct {
	ID       string
	MangaID  string
	FileName string
}

// ChapterPages is the at-home server answer for a chapter: image file
// names for both quality variants, served under BaseURL and Hash.
type ChapterPages struct {
	BaseURL   string
	Hash      string
	Data      []string
	DataSaver []string
}
