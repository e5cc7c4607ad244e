package utils

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	opts := DefaultOptions()
	opts.RetryBackoff = 0
	opts.RequestsPerSecond = 0
	opts.RetryAttempts = 2
	return opts
}

func TestAPI_GetDecodesJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/manga", r.URL.Path)
		assert.Equal(t, "naruto", r.URL.Query().Get("title"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`{"result":"ok","total":3}`))
	}))
	defer server.Close()

	api := NewAPI(server.URL, testOptions(), nil)

	var out struct {
		Result string `json:"result"`
		Total  int    `json:"total"`
	}
	err := api.Get(context.Background(), "/manga", map[string][]string{"title": {"naruto"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Result)
	assert.Equal(t, 3, out.Total)
}

func TestAPI_GetRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	api := NewAPI(server.URL, testOptions(), nil)

	var out map[string]any
	require.NoError(t, api.Get(context.Background(), "/x", nil, &out))
	assert.Equal(t, int32(3), calls.Load())
}

func TestAPI_GetExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	api := NewAPI(server.URL, testOptions(), nil)

	var out map[string]any
	err := api.Get(context.Background(), "/x", nil, &out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUpstreamUnavailable))

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.Code)
	assert.Equal(t, int32(3), calls.Load())
}

func TestAPI_GetNotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	api := NewAPI(server.URL, testOptions(), nil)

	var out map[string]any
	err := api.Get(context.Background(), "/x", nil, &out)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(1), calls.Load())
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, time.Duration(0), Backoff(0, time.Minute, 3))
	assert.Equal(t, time.Second, Backoff(time.Second, time.Minute, 1))
	assert.Equal(t, 4*time.Second, Backoff(time.Second, time.Minute, 3))
	assert.Equal(t, 10*time.Second, Backoff(time.Second, 10*time.Second, 8))
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"One Piece", "One Piece"},
		{"Re:Zero", "Re_Zero"},
		{"What? A/B", "What_ A_B"},
		{"  ..Dots..  ", "Dots"},
		{"", "untitled"},
		{"tab\there", "tabhere"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeFilename(tt.in), "input %q", tt.in)
	}

	long := SanitizeFilename(strings.Repeat("é", 300))
	assert.LessOrEqual(t, len(long), maxFilenameLength)
	assert.True(t, strings.HasPrefix(long, "é"))
}

func TestParseMangaID(t *testing.T) {
	const id = "a96676e5-8ae2-425e-b549-7f15dd34a6d8"

	for _, in := range []string{
		id,
		"https://mangadex.org/title/" + id,
		"https://mangadex.org/title/" + id + "/komi-san-wa-komyushou-desu",
		"https://www.mangadex.org/title/" + id + "?tab=chapters",
	} {
		got, err := ParseMangaID(in)
		require.NoError(t, err, in)
		assert.Equal(t, id, got)
	}

	for _, in := range []string{"", "naruto", "https://example.com/title/" + id, "https://mangadex.org/chapter/nope"} {
		_, err := ParseMangaID(in)
		assert.ErrorIs(t, err, ErrInvalidURL, in)
	}
}

func TestGetLanguage(t *testing.T) {
	lang, err := GetLanguage("EN")
	require.NoError(t, err)
	assert.Equal(t, "en", lang.Code)

	lang, err = GetLanguage("portuguese (brazil)")
	require.NoError(t, err)
	assert.Equal(t, "pt-br", lang.Code)

	_, err = GetLanguage("klingon")
	assert.Error(t, err)

	assert.Contains(t, LanguageCodes(), "ja")
}
