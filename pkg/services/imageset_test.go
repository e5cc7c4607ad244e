package services

import (
	"context"
	"errors"
	"testing"

	"github.com/kerbaras/mangadl/pkg/data"
	"github.com/kerbaras/mangadl/pkg/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectPages(s *ChapterImageSet) []Page {
	var pages []Page
	for p := range s.All() {
		pages = append(pages, p)
	}
	return pages
}

func TestChapterImageSet_Fetch(t *testing.T) {
	source := &mockSource{
		getChapterPagesFunc: func(ctx context.Context, chapterID string) (*sources.ChapterPages, error) {
			assert.Equal(t, "ch-1", chapterID)
			return &sources.ChapterPages{
				BaseURL:   "https://cdn.test/",
				Hash:      "abc",
				Data:      []string{"x1.png", "x2.webp"},
				DataSaver: []string{"x1.jpg", "x2.jpg"},
			}, nil
		},
	}
	ref := data.NewChapterRef("ch-1", "1", "1", "", "en", 2)

	full := NewChapterImageSet(source, ref, false)
	assert.Equal(t, 0, full.Len(), "nothing is fetched at construction")
	require.NoError(t, full.Fetch(context.Background()))
	assert.Equal(t, []Page{
		{Number: 1, URL: "https://cdn.test/data/abc/x1.png", Filename: "0001.png"},
		{Number: 2, URL: "https://cdn.test/data/abc/x2.webp", Filename: "0002.webp"},
	}, collectPages(full))
	assert.Equal(t, 1, full.Fetches())

	saver := NewChapterImageSet(source, ref, true)
	require.NoError(t, saver.Fetch(context.Background()))
	assert.Equal(t, "https://cdn.test/data-saver/abc/x1.jpg", collectPages(saver)[0].URL)
}

func TestChapterImageSet_FetchErrorKeepsPreviousPages(t *testing.T) {
	fail := false
	source := &mockSource{
		getChapterPagesFunc: func(ctx context.Context, chapterID string) (*sources.ChapterPages, error) {
			if fail {
				return nil, sources.ErrUpstreamUnavailable
			}
			return &sources.ChapterPages{BaseURL: "https://cdn.test", Hash: "h", Data: []string{"a.png"}}, nil
		},
	}
	set := NewChapterImageSet(source, data.NewChapterRef("ch-1", "", "1", "", "en", 1), false)
	require.NoError(t, set.Fetch(context.Background()))

	fail = true
	err := set.Fetch(context.Background())
	assert.True(t, errors.Is(err, sources.ErrUpstreamUnavailable))
	assert.Equal(t, 1, set.Len())
	assert.Equal(t, 1, set.Fetches())
}

func TestChapterImageSet_AllIsRestartable(t *testing.T) {
	hash := "first"
	source := &mockSource{
		getChapterPagesFunc: func(ctx context.Context, chapterID string) (*sources.ChapterPages, error) {
			return &sources.ChapterPages{BaseURL: "https://cdn.test", Hash: hash, Data: []string{"a.png", "b.png"}}, nil
		},
	}
	set := NewChapterImageSet(source, data.NewChapterRef("ch-1", "", "1", "", "en", 2), false)
	require.NoError(t, set.Fetch(context.Background()))

	seq := set.All()
	for p := range seq {
		assert.Contains(t, p.URL, "/first/")
		break
	}

	hash = "second"
	require.NoError(t, set.Fetch(context.Background()))

	pages := collectPages(set)
	require.Len(t, pages, 2)
	assert.Contains(t, pages[0].URL, "/second/", "a new range starts from the refreshed list")
}

func TestPageFilename(t *testing.T) {
	tests := []struct {
		n    int
		url  string
		want string
	}{
		{1, "https://cdn.test/data/h/x1-abc.png", "0001.png"},
		{12, "https://cdn.test/data/h/X.JPG", "0012.jpg"},
		{3, "https://cdn.test/data/h/noext", "0003.jpg"},
		{4, "https://cdn.test/data/h/a.webp?token=1", "0004.webp"},
		{10000, "https://cdn.test/a.gif", "10000.gif"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PageFilename(tt.n, tt.url), tt.url)
		assert.Equal(t, PageFilename(tt.n, tt.url), PageFilename(tt.n, tt.url))
	}
}
