package integrations

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// ChapterJob describes a downloaded chapter: its page files in reading
// order and the folder they live in.
type ChapterJob struct {
	MangaID    string
	MangaTitle string
	Authors    []string
	Volume     string
	Chapter    string
	Title      string
	Language   string
	Folder     string
	Pages      []string
}

// Name is the human readable chapter title used inside archives.
func (j ChapterJob) Name() string {
	name := fmt.Sprintf("Chapter %s", j.Chapter)
	if j.Volume != "" && j.Volume != "none" {
		name = fmt.Sprintf("Vol. %s %s", j.Volume, name)
	}
	if j.Title != "" {
		name = fmt.Sprintf("%s: %s", name, j.Title)
	}
	return name
}

// Packager turns a downloaded chapter folder into a single file written
// next to it.
type Packager interface {
	Format() string
	Package(ctx context.Context, job ChapterJob) (string, error)
	Close() error
}

type Options struct {
	// Grayscale converts pages to gray before packaging (pdf, epub).
	Grayscale bool
	// MaxWidth and MaxHeight bound page size for pdf and epub. Zero keeps the
	// original size.
	MaxWidth  int
	MaxHeight int
	// Quality is the JPEG quality used when pages are re-encoded.
	Quality int
	Logger  *slog.Logger
}

func DefaultOptions() Options {
	return Options{Quality: 85}
}

var formats = []string{"cbz", "zip", "pdf", "epub"}

// Formats lists the accepted packager names.
func Formats() []string {
	return append([]string(nil), formats...)
}

// UnsupportedFormatError is returned by NewPackager for unknown formats.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format %q (want one of %s)", e.Format, strings.Join(formats, ", "))
}

// NewPackager returns the packager for format. The packager's worker is
// started with ctx; cancelling ctx lets the archive being written finish
// and then refuses further jobs.
func NewPackager(ctx context.Context, format string, opts Options) (Packager, error) {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = DefaultOptions().Quality
	}

	switch strings.ToLower(format) {
	case "cbz":
		return NewArchivePackager(ctx, "cbz", opts), nil
	case "zip":
		return NewArchivePackager(ctx, "zip", opts), nil
	case "pdf":
		return NewPDFPackager(ctx, opts), nil
	case "epub":
		return NewEPUBPackager(ctx, opts), nil
	}
	return nil, &UnsupportedFormatError{Format: format}
}
