package utils

import (
	"errors"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

var ErrInvalidURL = errors.New("not a valid MangaDex url or manga id")

// ParseMangaID accepts a raw manga id or a mangadex.org title URL such as
// https://mangadex.org/title/<id>/<slug> and returns the canonical id.
func ParseMangaID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if id, err := uuid.Parse(raw); err == nil {
		return id.String(), nil
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", ErrInvalidURL
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	if host != "mangadex.org" {
		return "", ErrInvalidURL
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] != "title" && parts[i] != "manga" {
			continue
		}
		if id, err := uuid.Parse(parts[i+1]); err == nil {
			return id.String(), nil
		}
	}
	return "", ErrInvalidURL
}
