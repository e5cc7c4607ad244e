package integrations

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/kerbaras/mangadl/pkg/worker"
)

// ComicInfo is the metadata file comic readers look for in a CBZ.
type ComicInfo struct {
	XMLName     xml.Name `xml:"ComicInfo"`
	Title       string   `xml:"Title,omitempty"`
	Series      string   `xml:"Series"`
	Number      string   `xml:"Number,omitempty"`
	Volume      string   `xml:"Volume,omitempty"`
	Writer      string   `xml:"Writer,omitempty"`
	LanguageISO string   `xml:"LanguageISO,omitempty"`
	PageCount   int      `xml:"PageCount"`
	Manga       string   `xml:"Manga"`
}

func NewComicInfo(job ChapterJob) *ComicInfo {
	info := &ComicInfo{
		Title:       job.Title,
		Series:      job.MangaTitle,
		Writer:      strings.Join(job.Authors, ", "),
		LanguageISO: job.Language,
		PageCount:   len(job.Pages),
		Manga:       "Yes",
	}
	if job.Chapter != "none" {
		info.Number = job.Chapter
	}
	if job.Volume != "none" {
		info.Volume = job.Volume
	}
	return info
}

// ArchivePackager stores the pages of a chapter uncompressed in a zip
// file. The cbz flavour adds ComicInfo.xml.
type ArchivePackager struct {
	format string
	worker *worker.Worker
	logger *slog.Logger
}

func NewArchivePackager(ctx context.Context, format string, opts Options) *ArchivePackager {
	w := worker.New(opts.Logger)
	w.Start(ctx)
	return &ArchivePackager{format: format, worker: w, logger: opts.Logger}
}

func (p *ArchivePackager) Format() string { return p.format }

func (p *ArchivePackager) Package(ctx context.Context, job ChapterJob) (string, error) {
	if err := validateJob(job); err != nil {
		return "", err
	}

	dest := outputPath(job, p.format)
	err := p.worker.Submit(func(ctx context.Context) error {
		return writeAtomic(dest, func(f *os.File) error {
			return p.write(f, job)
		})
	})
	if err != nil {
		return "", fmt.Errorf("failed to write %s: %w", filepath.Base(dest), err)
	}

	p.logger.Debug("archive written", "path", dest, "pages", len(job.Pages))
	return dest, nil
}

func (p *ArchivePackager) write(w io.Writer, job ChapterJob) error {
	zw := zip.NewWriter(w)

	for _, page := range job.Pages {
		if err := addFile(zw, page); err != nil {
			return err
		}
	}

	if p.format == "cbz" {
		b, err := xml.MarshalIndent(NewComicInfo(job), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode ComicInfo.xml: %w", err)
		}
		fw, err := zw.Create("ComicInfo.xml")
		if err != nil {
			return err
		}
		if _, err := fw.Write(append([]byte(xml.Header), b...)); err != nil {
			return err
		}
	}

	return zw.Close()
}

func addFile(zw *zip.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open page: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	// Images are already compressed.
	header.Method = zip.Store

	fw, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(fw, f)
	return err
}

// Close lets an archive in progress finish and stops the worker.
func (p *ArchivePackager) Close() error {
	return p.worker.Close()
}
