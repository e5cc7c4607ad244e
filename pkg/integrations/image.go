package integrations

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ProcessedImage is a page re-encoded as JPEG.
type ProcessedImage struct {
	Data   []byte
	Width  int
	Height int
}

// ImageProcessor normalises pages for formats that embed them: any of
// jpeg, png, gif or webp in, JPEG out, optionally scaled down and gray.
type ImageProcessor struct {
	maxWidth  int
	maxHeight int
	grayscale bool
	quality   int
}

func NewImageProcessor(opts Options) *ImageProcessor {
	quality := opts.Quality
	if quality <= 0 || quality > 100 {
		quality = DefaultOptions().Quality
	}
	return &ImageProcessor{
		maxWidth:  opts.MaxWidth,
		maxHeight: opts.MaxHeight,
		grayscale: opts.Grayscale,
		quality:   quality,
	}
}

// Transforms reports whether Process changes pixels, not just the encoding.
func (p *ImageProcessor) Transforms() bool {
	return p.grayscale || p.maxWidth > 0 || p.maxHeight > 0
}

func (p *ImageProcessor) ProcessFile(path string) (*ProcessedImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()
	return p.Process(f)
}

func (p *ImageProcessor) Process(r io.Reader) (*ProcessedImage, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := p.fit(bounds.Dx(), bounds.Dy())
	if width != bounds.Dx() || height != bounds.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	if p.grayscale {
		gray := image.NewGray(img.Bounds())
		draw.Draw(gray, gray.Bounds(), img, img.Bounds().Min, draw.Src)
		img = gray
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return &ProcessedImage{Data: buf.Bytes(), Width: width, Height: height}, nil
}

// fit scales width and height into the configured bounds, keeping the
// aspect ratio. A zero bound is unlimited.
func (p *ImageProcessor) fit(width, height int) (int, int) {
	scale := 1.0
	if p.maxWidth > 0 && width > p.maxWidth {
		scale = float64(p.maxWidth) / float64(width)
	}
	if p.maxHeight > 0 && height > p.maxHeight {
		if s := float64(p.maxHeight) / float64(height); s < scale {
			scale = s
		}
	}
	if scale == 1.0 {
		return width, height
	}
	return max(1, int(float64(width)*scale)), max(1, int(float64(height)*scale))
}
