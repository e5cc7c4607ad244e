package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kerbaras/mangadl/pkg/data"
	"github.com/kerbaras/mangadl/pkg/integrations"
	"github.com/kerbaras/mangadl/pkg/sources"
	"github.com/kerbaras/mangadl/pkg/utils"
)

// ChapterState is the stage a chapter download is in.
type ChapterState string

const (
	StatePreparing   ChapterState = "preparing"
	StateDownloading ChapterState = "downloading"
	StateRetrying    ChapterState = "retrying"
	StateProcessing  ChapterState = "processing"
	StateDone        ChapterState = "complete"
	StateFailed      ChapterState = "error"
)

// DownloadProgress represents the progress of a download operation
type DownloadProgress struct {
	MangaID       string
	ChapterID     string
	ChapterNumber string
	Volume        string
	Folder        string
	CurrentPage   int
	TotalPages    int
	Attempt       int
	Status        ChapterState
	Error         error
}

// RetryPolicy bounds how often a chapter is re-fetched after a failed pass.
// MaxAttempts <= 0 retries until the context is cancelled.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
	MaxBackoff  time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 10, Backoff: time.Second, MaxBackoff: 30 * time.Second}
}

// Cover qualities.
const (
	CoverOriginal = "original"
	Cover512      = "512px"
	Cover256      = "256px"
	CoverNone     = "none"
)

type Options struct {
	Folder     string
	Language   string
	Replace    bool
	Compressed bool
	Start      *float64
	End        *float64
	NoOneshot  bool
	Cover      string
	Retry      RetryPolicy
}

// Validate fills in defaults and checks every option. It performs no I/O.
func (o *Options) Validate() error {
	if o.Folder == "" {
		o.Folder = "."
	}
	if o.Language == "" {
		o.Language = "en"
	}
	lang, err := utils.GetLanguage(o.Language)
	if err != nil {
		return &ConfigError{Field: "language", Reason: err.Error()}
	}
	o.Language = lang.Code

	if o.Cover == "" {
		o.Cover = CoverOriginal
	}
	switch o.Cover {
	case CoverOriginal, Cover512, Cover256, CoverNone:
	default:
		return &ConfigError{
			Field:  "cover",
			Reason: fmt.Sprintf("%q is not one of %s, %s, %s, %s", o.Cover, CoverOriginal, Cover512, Cover256, CoverNone),
		}
	}

	if o.Retry.Backoff < 0 || o.Retry.MaxBackoff < 0 {
		return &ConfigError{Field: "retry backoff", Reason: "must not be negative"}
	}
	return ValidateRange(o.Start, o.End)
}

// CoverURL picks the cover URL for quality. CoverNone yields "".
func CoverURL(manga *data.Manga, quality string) (string, error) {
	switch quality {
	case CoverOriginal, "":
		return manga.CoverURL, nil
	case Cover512:
		return manga.CoverURL512, nil
	case Cover256:
		return manga.CoverURL256, nil
	case CoverNone:
		return "", nil
	}
	return "", &ConfigError{Field: "cover", Reason: fmt.Sprintf("unknown quality %q", quality)}
}

// Library records finished downloads.
type Library interface {
	SaveManga(manga *data.LibraryManga) error
	SaveChapter(chapter *data.LibraryChapter) error
}

// Downloader drives a manga download: chapters one after another, pages
// one after another, re-fetching a chapter's page list whenever a page
// cannot be downloaded.
type Downloader struct {
	source       sources.Source
	pages        *PageDownloader
	library      Library
	packagers    []integrations.Packager
	logger       *slog.Logger
	progressChan chan DownloadProgress
	closeOnce    sync.Once
}

func NewDownloader(source sources.Source, pages *PageDownloader, logger *slog.Logger) *Downloader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Downloader{
		source:       source,
		pages:        pages,
		logger:       logger,
		progressChan: make(chan DownloadProgress, 100),
	}
}

func (d *Downloader) WithLibrary(lib Library) *Downloader {
	d.library = lib
	return d
}

// WithPackagers adds packagers run on every completed chapter. The
// downloader closes them in Close.
func (d *Downloader) WithPackagers(packagers ...integrations.Packager) *Downloader {
	d.packagers = append(d.packagers, packagers...)
	return d
}

// GetProgressChannel returns the channel for receiving download progress updates
func (d *Downloader) GetProgressChannel() <-chan DownloadProgress {
	return d.progressChan
}

// Fetch resolves rawURL into a manga with its chapter list.
func (d *Downloader) Fetch(ctx context.Context, rawURL, language string) (*data.Manga, error) {
	return FetchManga(ctx, d.source, d.logger, rawURL, language)
}

// DownloadManga downloads every selected chapter of the manga at rawURL
// into opts.Folder. Options are validated before any request is made.
//
// A chapter that exhausts its retry budget does not stop the run; all such
// failures are returned together once the remaining chapters are done.
func (d *Downloader) DownloadManga(ctx context.Context, rawURL string, opts Options) (*data.Manga, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	manga, err := d.Fetch(ctx, rawURL, opts.Language)
	if err != nil {
		return nil, err
	}

	it, err := NewChapterIterator(d.source, manga.Chapters, IterOptions{
		Start:      opts.Start,
		End:        opts.End,
		NoOneshot:  opts.NoOneshot,
		Compressed: opts.Compressed,
	})
	if err != nil {
		return manga, err
	}

	base := filepath.Join(opts.Folder, utils.SanitizeFilename(manga.Title))
	if err := os.MkdirAll(base, 0755); err != nil {
		return manga, fmt.Errorf("failed to create manga folder: %w", err)
	}
	d.logger.Info("downloading manga", "title", manga.Title, "folder", base, "chapters", manga.Chapters.Len())

	d.downloadCover(ctx, manga, base, opts.Cover, opts.Replace)
	if _, err := WriteDetails(manga, base); err != nil {
		return manga, err
	}
	d.saveManga(manga, base, "downloading")

	var failures []error
	for item := range it.Chapters() {
		if err := ctx.Err(); err != nil {
			d.saveManga(manga, base, "partial")
			return manga, errors.Join(append(failures, err)...)
		}

		if _, err := d.DownloadChapter(ctx, manga, base, item, opts); err != nil {
			if ctx.Err() != nil {
				d.saveManga(manga, base, "partial")
				return manga, errors.Join(append(failures, ctx.Err())...)
			}
			d.logger.Error("chapter failed", "folder", ChapterFolder(item.Volume, item.Chapter), "error", err)
			failures = append(failures, err)
		}
	}

	if len(failures) > 0 {
		d.saveManga(manga, base, "partial")
	} else {
		d.saveManga(manga, base, "completed")
	}
	return manga, errors.Join(failures...)
}

// DownloadChapter downloads one chapter into its folder under base and runs
// the packagers on it. It returns the chapter folder.
func (d *Downloader) DownloadChapter(ctx context.Context, manga *data.Manga, base string, item ChapterItem, opts Options) (string, error) {
	if manga == nil {
		return "", fmt.Errorf("manga cannot be nil")
	}
	if item.Ref == nil || item.Images == nil {
		return "", fmt.Errorf("chapter cannot be nil")
	}

	folder := ChapterFolder(item.Volume, item.Chapter)
	dir := filepath.Join(base, folder)
	progress := DownloadProgress{
		MangaID:       manga.ID,
		ChapterID:     item.Ref.ID,
		ChapterNumber: item.Chapter,
		Volume:        item.Volume,
		Folder:        folder,
	}

	d.sendProgress(progress, StatePreparing)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create chapter folder: %w", err)
	}

	files, err := d.downloadPages(ctx, dir, item, opts, progress)
	if err != nil {
		progress.Error = err
		d.sendProgress(progress, StateFailed)
		return "", err
	}
	progress.CurrentPage, progress.TotalPages = len(files), len(files)

	d.saveChapter(manga, item, dir, "")

	if len(d.packagers) > 0 {
		d.sendProgress(progress, StateProcessing)
		archive, err := d.pack(ctx, manga, item, dir, files)
		if err != nil {
			progress.Error = err
			d.sendProgress(progress, StateFailed)
			return dir, err
		}
		d.saveChapter(manga, item, dir, archive)
	}

	d.sendProgress(progress, StateDone)
	return dir, nil
}

// downloadPages runs passes over the chapter until one completes without a
// failed page. Every pass starts with a fresh page list.
func (d *Downloader) downloadPages(ctx context.Context, dir string, item ChapterItem, opts Options, progress DownloadProgress) ([]string, error) {
	policy := opts.Retry
	// Pages saved during this call are never transferred twice, even with
	// Replace set.
	saved := make(map[string]bool)

	for attempt := 1; ; attempt++ {
		progress.Attempt = attempt
		files, failure, err := d.pass(ctx, dir, item.Images, opts.Replace, saved, progress)
		if err != nil {
			return nil, err
		}
		if failure == nil {
			return files, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if policy.MaxAttempts > 0 && attempt >= policy.MaxAttempts {
			return nil, &ChapterFailedError{
				ChapterID: item.Ref.ID,
				Folder:    progress.Folder,
				Attempts:  attempt,
				Err:       failure,
			}
		}

		d.logger.Warn("download failed, re-fetching chapter", "folder", progress.Folder, "attempt", attempt, "error", failure)
		progress.Error = failure
		d.sendProgress(progress, StateRetrying)
		progress.Error = nil

		if err := sleep(ctx, utils.Backoff(policy.Backoff, policy.MaxBackoff, attempt)); err != nil {
			return nil, err
		}
	}
}

// pass fetches the page list and downloads every page in order. failure is
// set when the pass should be retried; err only for unrecoverable problems.
func (d *Downloader) pass(ctx context.Context, dir string, images *ChapterImageSet, replace bool, saved map[string]bool, progress DownloadProgress) (files []string, failure error, err error) {
	if err := images.Fetch(ctx); err != nil {
		return nil, err, nil
	}

	if images.Len() == 0 {
		return nil, errors.New("chapter has no pages"), nil
	}

	progress.TotalPages = images.Len()
	d.sendProgress(progress, StateDownloading)

	for page := range images.All() {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		dest := filepath.Join(dir, page.Filename)
		ok, err := d.pages.Download(ctx, page.URL, dest, replace && !saved[page.Filename])
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			return nil, fmt.Errorf("page %d could not be downloaded", page.Number), nil
		}
		saved[page.Filename] = true
		files = append(files, dest)

		progress.CurrentPage = page.Number
		d.sendProgress(progress, StateDownloading)
	}
	return files, nil, nil
}

func (d *Downloader) downloadCover(ctx context.Context, manga *data.Manga, base, quality string, replace bool) {
	url, err := CoverURL(manga, quality)
	if err != nil || url == "" {
		return
	}
	ok, err := d.pages.Download(ctx, url, filepath.Join(base, "cover.jpg"), replace)
	if err != nil || !ok {
		d.logger.Warn("failed to download cover", "url", url, "error", err)
	}
}

func (d *Downloader) pack(ctx context.Context, manga *data.Manga, item ChapterItem, dir string, files []string) (string, error) {
	job := integrations.ChapterJob{
		MangaID:    manga.ID,
		MangaTitle: manga.Title,
		Authors:    manga.Authors,
		Volume:     item.Volume,
		Chapter:    item.Chapter,
		Title:      item.Ref.Title,
		Language:   item.Ref.Language,
		Folder:     dir,
		Pages:      files,
	}

	var archive string
	for _, p := range d.packagers {
		out, err := p.Package(ctx, job)
		if err != nil {
			return archive, fmt.Errorf("failed to package %s as %s: %w", filepath.Base(dir), p.Format(), err)
		}
		d.logger.Debug("packaged chapter", "format", p.Format(), "path", out)
		archive = out
	}
	return archive, nil
}

func (d *Downloader) saveManga(manga *data.Manga, base, status string) {
	if d.library == nil {
		return
	}
	err := d.library.SaveManga(&data.LibraryManga{
		ID:     manga.ID,
		Title:  manga.Title,
		Path:   base,
		Source: "mangadex",
		Status: status,
	})
	if err != nil {
		d.logger.Warn("failed to save manga to library", "manga", manga.ID, "error", err)
	}
}

func (d *Downloader) saveChapter(manga *data.Manga, item ChapterItem, dir, archive string) {
	if d.library == nil {
		return
	}
	err := d.library.SaveChapter(&data.LibraryChapter{
		ID:         item.Ref.ID,
		MangaID:    manga.ID,
		Title:      item.Ref.Title,
		Language:   item.Ref.Language,
		Volume:     item.Volume,
		Number:     item.Chapter,
		Downloaded: true,
		FilePath:   dir,
		Archive:    archive,
	})
	if err != nil {
		d.logger.Warn("failed to save chapter to library", "chapter", item.Ref.ID, "error", err)
	}
}

// sendProgress sends a progress update (non-blocking)
func (d *Downloader) sendProgress(progress DownloadProgress, state ChapterState) {
	progress.Status = state
	select {
	case d.progressChan <- progress:
	default:
		// Channel full, skip this update
	}
}

// Close shuts down the packagers and closes the progress channel. It must
// not be called while a download is running.
func (d *Downloader) Close() error {
	var errs []error
	d.closeOnce.Do(func() {
		for _, p := range d.packagers {
			if err := p.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		close(d.progressChan)
	})
	return errors.Join(errs...)
}

func sleep(ctx context.Context, wait time.Duration) error {
	if wait <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
