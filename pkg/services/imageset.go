package services

import (
	"context"
	"fmt"
	"iter"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/kerbaras/mangadl/pkg/data"
	"github.com/kerbaras/mangadl/pkg/sources"
)

// PageSource is the part of sources.Source an image set needs.
type PageSource interface {
	GetChapterPages(ctx context.Context, chapterID string) (*sources.ChapterPages, error)
}

// Page is one image of a chapter. Number is 1-based.
type Page struct {
	Number   int
	URL      string
	Filename string
}

// ChapterImageSet holds the current page URLs of one chapter. Page URLs
// expire upstream; Fetch replaces the whole list with fresh ones.
type ChapterImageSet struct {
	source     PageSource
	chapter    *data.ChapterRef
	compressed bool

	mu      sync.RWMutex
	pages   []Page
	fetches int
}

func NewChapterImageSet(source PageSource, chapter *data.ChapterRef, compressed bool) *ChapterImageSet {
	return &ChapterImageSet{source: source, chapter: chapter, compressed: compressed}
}

func (s *ChapterImageSet) Chapter() *data.ChapterRef { return s.chapter }

func (s *ChapterImageSet) Compressed() bool { return s.compressed }

// Fetch asks the upstream for the chapter's page list and swaps it in.
// On error the previous list is kept.
func (s *ChapterImageSet) Fetch(ctx context.Context) error {
	res, err := s.source.GetChapterPages(ctx, s.chapter.ID)
	if err != nil {
		return fmt.Errorf("failed to fetch pages for chapter %s: %w", s.chapter.ID, err)
	}

	files, variant := res.Data, "data"
	if s.compressed {
		files, variant = res.DataSaver, "data-saver"
	}

	pages := make([]Page, len(files))
	for i, file := range files {
		u := fmt.Sprintf("%s/%s/%s/%s", strings.TrimRight(res.BaseURL, "/"), variant, res.Hash, file)
		pages[i] = Page{Number: i + 1, URL: u, Filename: PageFilename(i+1, u)}
	}

	s.mu.Lock()
	s.pages = pages
	s.fetches++
	s.mu.Unlock()
	return nil
}

// All yields the pages of the most recent fetch in order. Every range over
// the returned sequence starts from the list current at that moment.
func (s *ChapterImageSet) All() iter.Seq[Page] {
	return func(yield func(Page) bool) {
		s.mu.RLock()
		pages := s.pages
		s.mu.RUnlock()

		for _, p := range pages {
			if !yield(p) {
				return
			}
		}
	}
}

func (s *ChapterImageSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pages)
}

// Fetches reports how many successful fetches have happened.
func (s *ChapterImageSet) Fetches() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetches
}

// PageFilename names page n after its number and the extension of its URL,
// so the same page always maps to the same file.
func PageFilename(n int, rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	ext := strings.ToLower(path.Ext(p))
	if ext == "" || len(ext) > 5 {
		ext = ".jpg"
	}
	return fmt.Sprintf("%04d%s", n, ext)
}
