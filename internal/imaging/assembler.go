package imaging

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// SliceCount is the fixed number of output bands per product. The hosted
// detail template references exactly this many image URLs.
const SliceCount = 10

const jpegQuality = 90

// Assembler downloads a product's validated detail images, stitches them into
// one vertical strip, and slices the strip into SliceCount bands on disk.
type Assembler struct {
	client *http.Client
	logger *slog.Logger
}

func NewAssembler() *Assembler {
	return &Assembler{
		client: &http.Client{Timeout: 30 * time.Second},
		logger: slog.Default().With("component", "assembler"),
	}
}

// Assemble writes {counter:03}_{slice:03}.jpg files into outDir and returns
// their paths in slice order. At least one source image must download and
// decode; partial failures are logged and skipped.
func (a *Assembler) Assemble(ctx context.Context, urls []string, outDir string, counter int) ([]string, error) {
	var images []image.Image
	for _, url := range urls {
		img, err := a.download(ctx, url)
		if err != nil {
			a.logger.Warn("detail image download failed", "url", url, "error", err)
			continue
		}
		images = append(images, img)
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("no detail images could be downloaded")
	}

	strip := StitchVertical(images)
	bands := SliceBands(strip, SliceCount)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	// Slices are numbered from 1 to match the hosted detail-description URLs.
	paths := make([]string, 0, len(bands))
	for i, band := range bands {
		path := filepath.Join(outDir, fmt.Sprintf("%03d_%03d.jpg", counter, i+1))
		if err := writeJPEG(path, band); err != nil {
			return nil, fmt.Errorf("write slice %d: %w", i, err)
		}
		paths = append(paths, path)
	}

	a.logger.Info("detail images assembled",
		"sources", len(images), "slices", len(paths), "dir", outDir)
	return paths, nil
}

func (a *Assembler) download(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return img, nil
}

// StitchVertical stacks images top to bottom on a white canvas as wide as the
// widest source. Narrower images are left-aligned.
func StitchVertical(images []image.Image) *image.RGBA {
	width, height := 0, 0
	for _, img := range images {
		b := img.Bounds()
		if b.Dx() > width {
			width = b.Dx()
		}
		height += b.Dy()
	}

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	y := 0
	for _, img := range images {
		b := img.Bounds()
		dst := image.Rect(0, y, b.Dx(), y+b.Dy())
		draw.Draw(canvas, dst, img, b.Min, draw.Src)
		y += b.Dy()
	}
	return canvas
}

// SliceBands cuts the strip into n horizontal bands. The first n-1 bands are
// exactly height/n tall; the last band absorbs the remainder so no pixel rows
// are lost.
func SliceBands(strip *image.RGBA, n int) []*image.RGBA {
	b := strip.Bounds()
	bandHeight := b.Dy() / n
	if bandHeight == 0 {
		bandHeight = 1
	}

	bands := make([]*image.RGBA, 0, n)
	for i := 0; i < n; i++ {
		top := b.Min.Y + i*bandHeight
		bottom := top + bandHeight
		if i == n-1 {
			bottom = b.Max.Y
		}
		if top >= b.Max.Y {
			// Strip shorter than n rows: emit a single white filler row.
			filler := image.NewRGBA(image.Rect(0, 0, b.Dx(), 1))
			draw.Draw(filler, filler.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
			bands = append(bands, filler)
			continue
		}
		band := strip.SubImage(image.Rect(b.Min.X, top, b.Max.X, bottom)).(*image.RGBA)
		bands = append(bands, band)
	}
	return bands
}

func writeJPEG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
