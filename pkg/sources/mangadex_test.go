package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/kerbaras/mangadl/pkg/data"
	"github.com/kerbaras/mangadl/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const narutoID = "6b1eb93e-473a-4ab3-9922-1a66d2a29a4a"

func newTestMangaDex(t *testing.T, handler http.Handler) *MangaDex {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts := utils.DefaultOptions()
	opts.RetryBackoff = 0
	opts.RetryAttempts = 1
	opts.RequestsPerSecond = 0
	return NewMangaDex(utils.NewAPI(server.URL, opts, nil)).WithUploadsURL("https://uploads.test")
}

func TestMangaDex_Search(t *testing.T) {
	md := newTestMangaDex(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/manga", r.URL.Path)
		assert.Equal(t, "naruto", r.URL.Query().Get("title"))
		assert.Len(t, r.URL.Query()["contentRating[]"], 4)
		fmt.Fprintf(w, `{"data":[{"id":%q,"attributes":{"title":{"en":"Naruto"}}},
			{"id":"other","attributes":{"title":{"ja-ro":"Naruto Gaiden"}}}]}`, narutoID)
	}))

	mangas, err := md.Search(context.Background(), "naruto")
	require.NoError(t, err)
	require.Len(t, mangas, 2)
	assert.Equal(t, narutoID, mangas[0].ID)
	assert.Equal(t, "Naruto", mangas[0].Title)
	assert.Equal(t, "Naruto Gaiden", mangas[1].Title)
}

func TestMangaDex_GetManga(t *testing.T) {
	md := newTestMangaDex(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/manga/"+narutoID, r.URL.Path)
		fmt.Fprintf(w, `{"data":{"id":%q,"attributes":{
			"title":{"en":"Naruto"},
			"altTitles":[{"ja":"ナルト"}],
			"description":{"en":"Ninja."},
			"status":"completed","year":1999,
			"tags":[{"attributes":{"name":{"en":"Action"}}}]},
			"relationships":[
				{"id":"author-1","type":"author"},
				{"id":"artist-1","type":"artist"},
				{"id":"cover-1","type":"cover_art"}]}}`, narutoID)
	}))

	info, err := md.GetManga(context.Background(), narutoID)
	require.NoError(t, err)
	assert.Equal(t, narutoID, info.Manga.ID)
	assert.Equal(t, "Naruto", info.Manga.Title)
	assert.Equal(t, []string{"ナルト"}, info.Manga.AltTitles)
	assert.Equal(t, "Ninja.", info.Manga.Description)
	assert.Equal(t, "completed", info.Manga.Status)
	assert.Equal(t, 1999, info.Manga.Year)
	assert.Equal(t, []string{"Action"}, info.Manga.Tags)
	assert.Equal(t, []string{"author-1"}, info.AuthorIDs)
	assert.Equal(t, []string{"artist-1"}, info.ArtistIDs)
	assert.Equal(t, "cover-1", info.CoverID)
}

func TestMangaDex_GetMangaNotFound(t *testing.T) {
	md := newTestMangaDex(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := md.GetManga(context.Background(), narutoID)
	assert.ErrorIs(t, err, ErrInvalidManga)
}

func TestMangaDex_GetAuthorAndCover(t *testing.T) {
	md := newTestMangaDex(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/author/author-1":
			w.Write([]byte(`{"data":{"attributes":{"name":"Kishimoto Masashi"}}}`))
		case "/cover/cover-1":
			fmt.Fprintf(w, `{"data":{"id":"cover-1","attributes":{"fileName":"abc.jpg"},
				"relationships":[{"id":%q,"type":"manga"}]}}`, narutoID)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	name, err := md.GetAuthor(context.Background(), "author-1")
	require.NoError(t, err)
	assert.Equal(t, "Kishimoto Masashi", name)

	cover, err := md.GetCoverArt(context.Background(), "cover-1")
	require.NoError(t, err)
	assert.Equal(t, "abc.jpg", cover.FileName)
	assert.Equal(t, narutoID, cover.MangaID)

	orig, c512, c256 := md.CoverURLs(cover.MangaID, cover.FileName)
	assert.Equal(t, "https://uploads.test/covers/"+narutoID+"/abc.jpg", orig)
	assert.Equal(t, orig+".512.jpg", c512)
	assert.Equal(t, orig+".256.jpg", c256)
}

func TestMangaDex_GetAllChaptersPaginates(t *testing.T) {
	const total = 3
	var requests int
	md := newTestMangaDex(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		q := r.URL.Query()
		assert.Equal(t, "/manga/"+narutoID+"/feed", r.URL.Path)
		assert.Equal(t, []string{"en"}, q["translatedLanguage[]"])
		assert.Equal(t, "asc", q.Get("order[chapter]"))

		offset, _ := strconv.Atoi(q.Get("offset"))
		switch offset {
		case 0:
			// Pretend the server caps the page at two entries.
			fmt.Fprintf(w, `{"total":%d,"data":[
				{"id":"c1","attributes":{"volume":"1","chapter":"1","title":"Uzumaki Naruto!","translatedLanguage":"en","pages":53}},
				{"id":"ext","attributes":{"volume":"1","chapter":"2","translatedLanguage":"en","externalUrl":"https://elsewhere"}}]}`, total)
		default:
			fmt.Fprintf(w, `{"total":%d,"data":[
				{"id":"c3","attributes":{"volume":null,"chapter":null,"translatedLanguage":"en","pages":10}}]}`, total)
		}
	}))

	chapters, err := md.GetAllChapters(context.Background(), narutoID, "en")
	require.NoError(t, err)
	require.Len(t, chapters, 2)

	assert.Equal(t, "c1", chapters[0].ID)
	assert.Equal(t, "Uzumaki Naruto!", chapters[0].Title)
	assert.Equal(t, "1", chapters[0].Volume)
	assert.Equal(t, "1", chapters[0].Number)
	assert.Equal(t, 53, chapters[0].Pages)

	assert.Equal(t, data.None, chapters[1].Volume)
	assert.Equal(t, data.None, chapters[1].Number)
	assert.Equal(t, 2, requests)
}

func TestMangaDex_GetChapterPages(t *testing.T) {
	md := newTestMangaDex(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/at-home/server/ch-1", r.URL.Path)
		w.Write([]byte(`{"baseUrl":"https://cdn.test","chapter":{"hash":"h","data":["a.png","b.png"],"dataSaver":["a.jpg","b.jpg"]}}`))
	}))

	pages, err := md.GetChapterPages(context.Background(), "ch-1")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test", pages.BaseURL)
	assert.Equal(t, "h", pages.Hash)
	assert.Equal(t, []string{"a.png", "b.png"}, pages.Data)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, pages.DataSaver)
}

func TestMangaDex_UpstreamUnavailable(t *testing.T) {
	md := newTestMangaDex(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := md.GetChapterPages(context.Background(), "ch-1")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}
