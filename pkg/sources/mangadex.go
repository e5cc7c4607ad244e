package sources

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/kerbaras/mangadl/pkg/data"
	"github.com/kerbaras/mangadl/pkg/utils"
)

const (
	DefaultBaseURL    = "https://api.mangadex.org"
	DefaultUploadsURL = "https://uploads.mangadex.org"

	feedPageSize = 500
)

var contentRatings = []string{"safe", "suggestive", "erotica", "pornographic"}

type relationship struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type Manga struct {
	ID         string `json:"id"`
	Attributes struct {
		Title       map[string]string   `json:"title"`
		AltTitles   []map[string]string `json:"altTitles"`
		Description map[string]string   `json:"description"`
		Status      string              `json:"status"`
		Year        *int                `json:"year"`
		Tags        []struct {
			Attributes struct {
				Name map[string]string `json:"name"`
			} `json:"attributes"`
		} `json:"tags"`
	} `json:"attributes"`
	Relationships []relationship `json:"relationships"`
}

func (m *Manga) ToManga() *data.Manga {
	manga := &data.Manga{
		ID:          m.ID,
		Title:       localized(m.Attributes.Title),
		Description: localized(m.Attributes.Description),
		Status:      m.Attributes.Status,
	}
	if m.Attributes.Year != nil {
		manga.Year = *m.Attributes.Year
	}
	for _, alt := range m.Attributes.AltTitles {
		if t := localized(alt); t != "" {
			manga.AltTitles = append(manga.AltTitles, t)
		}
	}
	for _, tag := range m.Attributes.Tags {
		if name := localized(tag.Attributes.Name); name != "" {
			manga.Tags = append(manga.Tags, name)
		}
	}
	if manga.Title == "" && len(manga.AltTitles) > 0 {
		manga.Title = manga.AltTitles[0]
	}
	return manga
}

type Chapter struct {
	ID         string `json:"id"`
	Attributes struct {
		Title       *string `json:"title"`
		Language    string  `json:"translatedLanguage"`
		Volume      *string `json:"volume"`
		Number      *string `json:"chapter"`
		Pages       int     `json:"pages"`
		ExternalURL *string `json:"externalUrl"`
	} `json:"attributes"`
}

func (c *Chapter) ToChapter() *data.ChapterRef {
	return data.NewChapterRef(
		c.ID,
		deref(c.Attributes.Volume),
		deref(c.Attributes.Number),
		deref(c.Attributes.Title),
		c.Attributes.Language,
		c.Attributes.Pages,
	)
}

type MangaDex struct {
	api        *utils.API
	uploadsURL string
}

func NewMangaDex(api *utils.API) *MangaDex {
	return &MangaDex{api: api, uploadsURL: DefaultUploadsURL}
}

// WithUploadsURL overrides the host cover art is served from.
func (m *MangaDex) WithUploadsURL(u string) *MangaDex {
	m.uploadsURL = u
	return m
}

func (m *MangaDex) Search(ctx context.Context, query string) ([]*data.Manga, error) {
	params := url.Values{}
	params.Set("title", query)
	params.Set("limit", "20")
	for _, r := range contentRatings {
		params.Add("contentRating[]", r)
	}

	var mangas struct {
		Data []Manga `json:"data"`
	}
	if err := m.api.Get(ctx, "/manga", params, &mangas); err != nil {
		return nil, err
	}

	out := make([]*data.Manga, len(mangas.Data))
	for i := range mangas.Data {
		out[i] = mangas.Data[i].ToManga()
	}
	return out, nil
}

func (m *MangaDex) GetManga(ctx context.Context, id string) (*MangaInfo, error) {
	var manga struct {
		Data Manga `json:"data"`
	}
	if err := m.api.Get(ctx, "/manga/"+url.PathEscape(id), nil, &manga); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidManga, id)
		}
		return nil, err
	}

	info := &MangaInfo{Manga: manga.Data.ToManga()}
	for _, rel := range manga.Data.Relationships {
		switch rel.Type {
		case "author":
			info.AuthorIDs = append(info.AuthorIDs, rel.ID)
		case "artist":
			info.ArtistIDs = append(info.ArtistIDs, rel.ID)
		case "cover_art":
			info.CoverID = rel.ID
		}
	}
	return info, nil
}

func (m *MangaDex) GetAuthor(ctx context.Context, id string) (string, error) {
	var author struct {
		Data struct {
			Attributes struct {
				Name string `json:"name"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := m.api.Get(ctx, "/author/"+url.PathEscape(id), nil, &author); err != nil {
		return "", err
	}
	return author.Data.Attributes.Name, nil
}

func (m *MangaDex) GetCoverArt(ctx context.Context, id string) (*CoverArt, error) {
	var cover struct {
		Data struct {
			ID         string `json:"id"`
			Attributes struct {
				FileName string `json:"fileName"`
			} `json:"attributes"`
			Relationships []relationship `json:"relationships"`
		} `json:"data"`
	}
	if err := m.api.Get(ctx, "/cover/"+url.PathEscape(id), nil, &cover); err != nil {
		return nil, err
	}

	art := &CoverArt{ID: cover.Data.ID, FileName: cover.Data.Attributes.FileName}
	for _, rel := range cover.Data.Relationships {
		if rel.Type == "manga" {
			art.MangaID = rel.ID
		}
	}
	return art, nil
}

func (m *MangaDex) CoverURLs(mangaID, fileName string) (string, string, string) {
	base := fmt.Sprintf("%s/covers/%s/%s", m.uploadsURL, mangaID, fileName)
	return base, base + ".512.jpg", base + ".256.jpg"
}

// GetAllChapters walks the whole chapter feed for one language, following
// pagination. External chapters have no images and are skipped.
func (m *MangaDex) GetAllChapters(ctx context.Context, mangaID, language string) ([]*data.ChapterRef, error) {
	var out []*data.ChapterRef
	for offset := 0; ; {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(feedPageSize))
		params.Set("offset", strconv.Itoa(offset))
		params.Add("translatedLanguage[]", language)
		params.Set("order[volume]", "asc")
		params.Set("order[chapter]", "asc")
		for _, r := range contentRatings {
			params.Add("contentRating[]", r)
		}

		var feed struct {
			Data  []Chapter `json:"data"`
			Total int       `json:"total"`
		}
		if err := m.api.Get(ctx, fmt.Sprintf("/manga/%s/feed", url.PathEscape(mangaID)), params, &feed); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrInvalidManga, mangaID)
			}
			return nil, err
		}

		for i := range feed.Data {
			if feed.Data[i].Attributes.ExternalURL != nil {
				continue
			}
			out = append(out, feed.Data[i].ToChapter())
		}

		offset += len(feed.Data)
		if len(feed.Data) == 0 || offset >= feed.Total {
			break
		}
	}
	return out, nil
}

func (m *MangaDex) GetChapterPages(ctx context.Context, chapterID string) (*ChapterPages, error) {
	var server struct {
		BaseURL string `json:"baseUrl"`
		Chapter struct {
			Hash      string   `json:"hash"`
			Data      []string `json:"data"`
			DataSaver []string `json:"dataSaver"`
		} `json:"chapter"`
	}
	if err := m.api.Get(ctx, "/at-home/server/"+url.PathEscape(chapterID), nil, &server); err != nil {
		return nil, err
	}
	return &ChapterPages{
		BaseURL:   server.BaseURL,
		Hash:      server.Chapter.Hash,
		Data:      server.Chapter.Data,
		DataSaver: server.Chapter.DataSaver,
	}, nil
}

// localized picks the English entry of a MangaDex localized string map,
// falling back to the first key in sorted order.
func localized(m map[string]string) string {
	if v, ok := m["en"]; ok && v != "" {
		return v
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if m[k] != "" {
			return m[k]
		}
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
