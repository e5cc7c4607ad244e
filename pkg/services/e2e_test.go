package services

import (
	"archive/zip"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/kerbaras/mangadl/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMangaDex serves the parts of the MangaDex API a download touches,
// plus the at-home image host.
func fakeMangaDex(t *testing.T, flakyPages int32) *httptest.Server {
	t.Helper()

	var failures atomic.Int32
	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("/manga/"+testMangaID, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"data":{"id":%q,"attributes":{
			"title":{"en":"E2E Manga"},"description":{"en":"End to end."},"status":"completed",
			"tags":[{"attributes":{"name":{"en":"Drama"}}}]},
			"relationships":[{"id":"a1","type":"author"},{"id":"a1","type":"artist"},{"id":"cv","type":"cover_art"}]}}`, testMangaID)
	})
	mux.HandleFunc("/author/a1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"attributes":{"name":"Mangaka"}}}`))
	})
	mux.HandleFunc("/cover/cv", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"id":"cv","attributes":{"fileName":"cover.jpg"}}}`))
	})
	mux.HandleFunc("/manga/"+testMangaID+"/feed", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total":2,"data":[
			{"id":"ch1","attributes":{"volume":"1","chapter":"1","title":"One","translatedLanguage":"en","pages":2}},
			{"id":"ch2","attributes":{"volume":"1","chapter":"2","title":"Two","translatedLanguage":"en","pages":2}}]}`))
	})
	mux.HandleFunc("/at-home/server/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/at-home/server/")
		fmt.Fprintf(w, `{"baseUrl":%q,"chapter":{"hash":"h-%s","data":["a.png","b.png"],"dataSaver":["a.jpg","b.jpg"]}}`, srv.URL, id)
	})
	mux.HandleFunc("/data/", func(w http.ResponseWriter, r *http.Request) {
		if failures.Add(1) <= flakyPages {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write(pageBody(r.URL.Path))
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestE2E_FullDownloadPipeline(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping E2E test in short mode")
	}

	srv := fakeMangaDex(t, 1)
	testDir := t.TempDir()

	cfg := config.Default()
	cfg.Folder = filepath.Join(testDir, "downloads")
	cfg.Library = filepath.Join(testDir, "library.db")
	cfg.Format = "cbz"
	cfg.Cover = "none"
	cfg.API.BaseURL = srv.URL
	cfg.API.RequestsPerSecond = 0
	cfg.Retry.Backoff = 0

	controller, err := NewMangaController(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer controller.Close()

	manga, err := controller.Downloader().DownloadManga(context.Background(), "https://mangadex.org/title/"+testMangaID, OptionsFromConfig(cfg))
	require.NoError(t, err)
	assert.Equal(t, []string{"Mangaka"}, manga.Authors)

	base := filepath.Join(cfg.Folder, "E2E Manga")
	assert.FileExists(t, filepath.Join(base, "details.json"))
	for _, ch := range []string{"Volume. 1 Chapter. 1", "Volume. 1 Chapter. 2"} {
		assert.FileExists(t, filepath.Join(base, ch, "0001.png"))
		assert.FileExists(t, filepath.Join(base, ch, "0002.png"))

		zr, err := zip.OpenReader(filepath.Join(base, ch+".cbz"))
		require.NoError(t, err)
		assert.Len(t, zr.File, 3)
		zr.Close()
	}

	lib := controller.Library()
	stored, err := lib.GetManga(testMangaID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "completed", stored.Status)
	assert.Equal(t, base, stored.Path)

	chapters, err := lib.GetChapters(testMangaID)
	require.NoError(t, err)
	require.Len(t, chapters, 2)
	for _, ch := range chapters {
		assert.True(t, ch.Downloaded)
		assert.Equal(t, ch.FilePath+".cbz", ch.Archive)
	}
}

func TestE2E_ResumeSkipsExistingPages(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping E2E test in short mode")
	}

	srv := fakeMangaDex(t, 0)
	cfg := config.Default()
	cfg.Folder = t.TempDir()
	cfg.Library = ""
	cfg.Cover = "none"
	cfg.API.BaseURL = srv.URL
	cfg.API.RequestsPerSecond = 0

	base := filepath.Join(cfg.Folder, "E2E Manga", "Volume. 1 Chapter. 1")
	require.NoError(t, os.MkdirAll(base, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "0001.png"), []byte("kept"), 0644))

	controller, err := NewMangaController(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer controller.Close()

	_, err = controller.Downloader().DownloadManga(context.Background(), testMangaID, OptionsFromConfig(cfg))
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(base, "0001.png"))
	require.NoError(t, err)
	assert.Equal(t, "kept", string(got))

	got, err = os.ReadFile(filepath.Join(base, "0002.png"))
	require.NoError(t, err)
	assert.Equal(t, pageBody("/data/h-ch1/b.png"), got)
}
