package sources

import (
	"errors"

	"github.com/kerbaras/mangadl/pkg/utils"
)

var (
	ErrNotFound            = utils.ErrNotFound
	ErrUpstreamUnavailable = utils.ErrUpstreamUnavailable
	ErrInvalidURL          = utils.ErrInvalidURL

	// ErrInvalidManga means the requested manga does not exist upstream.
	ErrInvalidManga = errors.New("manga not found")
	// ErrChapterNotFound means the manga has no chapters in the requested language.
	ErrChapterNotFound = errors.New("no chapters found")
)
