package integrations

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-shiori/go-epub"
	"github.com/kerbaras/mangadl/pkg/worker"
)

// EPUBPackager builds one EPUB per chapter: a single section holding every
// page, with the first page as cover.
type EPUBPackager struct {
	worker    *worker.Worker
	processor *ImageProcessor
	logger    *slog.Logger
}

func NewEPUBPackager(ctx context.Context, opts Options) *EPUBPackager {
	w := worker.New(opts.Logger)
	w.Start(ctx)
	return &EPUBPackager{worker: w, processor: NewImageProcessor(opts), logger: opts.Logger}
}

func (p *EPUBPackager) Format() string { return "epub" }

func (p *EPUBPackager) Package(ctx context.Context, job ChapterJob) (string, error) {
	if err := validateJob(job); err != nil {
		return "", err
	}

	dest := outputPath(job, "epub")
	err := p.worker.Submit(func(ctx context.Context) error {
		return p.write(job, dest)
	})
	if err != nil {
		return "", fmt.Errorf("failed to write %s: %w", filepath.Base(dest), err)
	}

	p.logger.Debug("epub written", "path", dest, "pages", len(job.Pages))
	return dest, nil
}

func (p *EPUBPackager) write(job ChapterJob, dest string) error {
	title := job.Name()
	if job.MangaTitle != "" {
		title = fmt.Sprintf("%s - %s", job.MangaTitle, title)
	}

	e, err := epub.NewEpub(title)
	if err != nil {
		return fmt.Errorf("failed to create EPub: %w", err)
	}
	if len(job.Authors) > 0 {
		e.SetAuthor(strings.Join(job.Authors, ", "))
	}
	if job.Language != "" {
		e.SetLang(job.Language)
	}

	pages := job.Pages
	if p.processor.Transforms() {
		// go-epub reads image sources when the book is written.
		scratch, err := os.MkdirTemp("", "mangadl-epub-*")
		if err != nil {
			return fmt.Errorf("failed to create scratch dir: %w", err)
		}
		defer os.RemoveAll(scratch)

		if pages, err = p.processPages(job.Pages, scratch); err != nil {
			return err
		}
	}

	var body strings.Builder
	fmt.Fprintf(&body, "<h1>%s</h1>\n", title)
	for i, page := range pages {
		internal, err := e.AddImage(page, fmt.Sprintf("page%04d%s", i+1, strings.ToLower(filepath.Ext(page))))
		if err != nil {
			return fmt.Errorf("failed to add page %d: %w", i+1, err)
		}
		if i == 0 {
			e.SetCover(internal, "")
		}
		fmt.Fprintf(&body, `<div class="page"><img src="%s" alt="Page %d" style="width:100%%;height:auto;"/></div>`+"\n", internal, i+1)
	}

	if _, err := e.AddSection(body.String(), job.Name(), "", ""); err != nil {
		return fmt.Errorf("failed to add section: %w", err)
	}

	return writeAtomic(dest, func(f *os.File) error {
		// go-epub writes by path; the temp file is rewritten in place.
		return e.Write(f.Name())
	})
}

func (p *EPUBPackager) processPages(pages []string, dir string) ([]string, error) {
	out := make([]string, len(pages))
	for i, page := range pages {
		img, err := p.processor.ProcessFile(page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		out[i] = filepath.Join(dir, fmt.Sprintf("%04d.jpg", i+1))
		if err := os.WriteFile(out[i], img.Data, 0644); err != nil {
			return nil, fmt.Errorf("failed to write page %d: %w", i+1, err)
		}
	}
	return out, nil
}

func (p *EPUBPackager) Close() error {
	return p.worker.Close()
}
