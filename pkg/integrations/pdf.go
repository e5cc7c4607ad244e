package integrations

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/kerbaras/mangadl/pkg/worker"
)

// PDFPackager renders a chapter as a PDF with one page per image, each PDF
// page sized to its image.
type PDFPackager struct {
	worker    *worker.Worker
	processor *ImageProcessor
	logger    *slog.Logger
}

func NewPDFPackager(ctx context.Context, opts Options) *PDFPackager {
	w := worker.New(opts.Logger)
	w.Start(ctx)
	return &PDFPackager{worker: w, processor: NewImageProcessor(opts), logger: opts.Logger}
}

func (p *PDFPackager) Format() string { return "pdf" }

func (p *PDFPackager) Package(ctx context.Context, job ChapterJob) (string, error) {
	if err := validateJob(job); err != nil {
		return "", err
	}

	dest := outputPath(job, "pdf")
	err := p.worker.Submit(func(ctx context.Context) error {
		doc, err := p.render(job)
		if err != nil {
			return err
		}
		return writeAtomic(dest, func(f *os.File) error {
			return doc.Output(f)
		})
	})
	if err != nil {
		return "", fmt.Errorf("failed to write %s: %w", filepath.Base(dest), err)
	}

	p.logger.Debug("pdf written", "path", dest, "pages", len(job.Pages))
	return dest, nil
}

func (p *PDFPackager) render(job ChapterJob) (*fpdf.Fpdf, error) {
	doc := fpdf.New("P", "pt", "A4", "")
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)
	doc.SetTitle(fmt.Sprintf("%s - %s", job.MangaTitle, job.Name()), true)
	doc.SetAuthor(strings.Join(job.Authors, ", "), true)
	doc.SetCreator("mangadl", false)

	opts := fpdf.ImageOptions{ImageType: "JPG"}
	for i, page := range job.Pages {
		img, err := p.processor.ProcessFile(page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}

		name := fmt.Sprintf("page-%04d", i+1)
		w, h := float64(img.Width), float64(img.Height)
		doc.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})
		doc.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.Data))
		doc.ImageOptions(name, 0, 0, w, h, false, opts, 0, "")
	}

	if err := doc.Error(); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return doc, nil
}

func (p *PDFPackager) Close() error {
	return p.worker.Close()
}
