package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/kerbaras/mangadl/pkg/data"
	"github.com/kerbaras/mangadl/pkg/sources"
)

const testMangaID = "6b1eb93e-473a-4ab3-9922-1a66d2a29a4a"

// Mock implementations for testing

type mockSource struct {
	calls atomic.Int32

	searchFunc          func(ctx context.Context, query string) ([]*data.Manga, error)
	getMangaFunc        func(ctx context.Context, id string) (*sources.MangaInfo, error)
	getAuthorFunc       func(ctx context.Context, id string) (string, error)
	getCoverArtFunc     func(ctx context.Context, id string) (*sources.CoverArt, error)
	getAllChaptersFunc  func(ctx context.Context, mangaID, language string) ([]*data.ChapterRef, error)
	getChapterPagesFunc func(ctx context.Context, chapterID string) (*sources.ChapterPages, error)
	coverBase           string
}

func (m *mockSource) Search(ctx context.Context, query string) ([]*data.Manga, error) {
	m.calls.Add(1)
	if m.searchFunc != nil {
		return m.searchFunc(ctx, query)
	}
	return nil, nil
}

func (m *mockSource) GetManga(ctx context.Context, id string) (*sources.MangaInfo, error) {
	m.calls.Add(1)
	if m.getMangaFunc != nil {
		return m.getMangaFunc(ctx, id)
	}
	return nil, sources.ErrInvalidManga
}

func (m *mockSource) GetAuthor(ctx context.Context, id string) (string, error) {
	m.calls.Add(1)
	if m.getAuthorFunc != nil {
		return m.getAuthorFunc(ctx, id)
	}
	return "", nil
}

func (m *mockSource) GetCoverArt(ctx context.Context, id string) (*sources.CoverArt, error) {
	m.calls.Add(1)
	if m.getCoverArtFunc != nil {
		return m.getCoverArtFunc(ctx, id)
	}
	return nil, sources.ErrNotFound
}

func (m *mockSource) CoverURLs(mangaID, fileName string) (string, string, string) {
	base := m.coverBase + "/covers/" + mangaID + "/" + fileName
	return base, base + ".512.jpg", base + ".256.jpg"
}

func (m *mockSource) GetAllChapters(ctx context.Context, mangaID, language string) ([]*data.ChapterRef, error) {
	m.calls.Add(1)
	if m.getAllChaptersFunc != nil {
		return m.getAllChaptersFunc(ctx, mangaID, language)
	}
	return nil, nil
}

func (m *mockSource) GetChapterPages(ctx context.Context, chapterID string) (*sources.ChapterPages, error) {
	m.calls.Add(1)
	if m.getChapterPagesFunc != nil {
		return m.getChapterPagesFunc(ctx, chapterID)
	}
	return nil, sources.ErrNotFound
}

type mockLibrary struct {
	mu       sync.Mutex
	mangas   []*data.LibraryManga
	chapters []*data.LibraryChapter
}

func (m *mockLibrary) SaveManga(manga *data.LibraryManga) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mangas = append(m.mangas, manga)
	return nil
}

func (m *mockLibrary) SaveChapter(chapter *data.LibraryChapter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chapters = append(m.chapters, chapter)
	return nil
}

// Test helpers

// imageServer serves deterministic bytes for every path and counts hits.
type imageServer struct {
	*httptest.Server

	mu   sync.Mutex
	hits map[string]int
	fail func(path string) bool
}

func newImageServer(t *testing.T) *imageServer {
	t.Helper()
	s := &imageServer{hits: make(map[string]int)}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		fail := s.fail
		s.mu.Unlock()

		if fail != nil && fail(r.URL.Path) {
			w.WriteHeader(http.StatusGone)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(pageBody(r.URL.Path))
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *imageServer) setFail(fail func(path string) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

func (s *imageServer) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *imageServer) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, h := range s.hits {
		n += h
	}
	return n
}

func pageBody(path string) []byte {
	return []byte("image bytes for " + path)
}

type chapterFixture struct {
	id, volume, number string
}

// newTestSource returns a source for one manga with the given chapters.
// Every chapter has two pages served by srv under hash "h-<id>".
func newTestSource(srv *imageServer, chapters ...chapterFixture) *mockSource {
	return &mockSource{
		coverBase: srv.URL,
		getMangaFunc: func(ctx context.Context, id string) (*sources.MangaInfo, error) {
			return &sources.MangaInfo{
				Manga: &data.Manga{
					ID:          id,
					Title:       "Test: Manga?",
					Description: "A test manga.",
					Status:      "ongoing",
					Tags:        []string{"Action"},
				},
				AuthorIDs: []string{"author-1"},
				ArtistIDs: []string{"author-1"},
				CoverID:   "cover-1",
			}, nil
		},
		getAuthorFunc: func(ctx context.Context, id string) (string, error) {
			return "Author One", nil
		},
		getCoverArtFunc: func(ctx context.Context, id string) (*sources.CoverArt, error) {
			return &sources.CoverArt{ID: id, MangaID: testMangaID, FileName: "cover.png"}, nil
		},
		getAllChaptersFunc: func(ctx context.Context, mangaID, language string) ([]*data.ChapterRef, error) {
			refs := make([]*data.ChapterRef, len(chapters))
			for i, c := range chapters {
				refs[i] = data.NewChapterRef(c.id, c.volume, c.number, "", language, 2)
			}
			return refs, nil
		},
		getChapterPagesFunc: func(ctx context.Context, chapterID string) (*sources.ChapterPages, error) {
			return &sources.ChapterPages{
				BaseURL:   srv.URL,
				Hash:      "h-" + chapterID,
				Data:      []string{"p1.png", "p2.png"},
				DataSaver: []string{"p1.jpg", "p2.jpg"},
			}, nil
		},
	}
}

func newTestDownloader(source *mockSource, srv *imageServer) *Downloader {
	return NewDownloader(source, NewPageDownloader(srv.Client(), nil, nil), nil)
}

func testOptions(folder string) Options {
	return Options{
		Folder:   folder,
		Language: "en",
		Cover:    CoverNone,
		Retry:    RetryPolicy{MaxAttempts: 5},
	}
}

func float(f float64) *float64 { return &f }
