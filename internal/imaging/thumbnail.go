package imaging

import (
	"fmt"
	"image"
	"image/color"
	stddraw "image/draw"
	"os"
	"strings"
	"unicode/utf8"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Thumbnail canvas geometry. The layout is fixed; only the texts and the
// product image vary per product.
const (
	thumbSize       = 650
	captionBandY    = 550
	captionBandH    = 100
	productMaxSide  = 400
	badgeX          = 530
	badgeW          = 120
	topBadgeH       = 80
	bottomBadgeH    = 40
	captionMaxWidth = 600
	captionMaxRunes = 13
)

var (
	captionBandColor = color.RGBA{56, 56, 56, 255}
	topBadgeColor    = color.RGBA{0, 82, 204, 255}
	bottomBadgeColor = color.RGBA{255, 61, 70, 255}
	strokeColor      = color.RGBA{0, 0, 0, 255}
)

// ThumbnailSpec carries the per-site knobs for thumbnail composition.
type ThumbnailSpec struct {
	BadgeTop    string // short badge text, e.g. a channel code
	BadgeBottom string
	FontPath    string // optional TTF/OTF; the embedded bold face is the fallback
}

// Composer renders 650x650 listing thumbnails.
type Composer struct {
	spec ThumbnailSpec
	face *opentype.Font
}

func NewComposer(spec ThumbnailSpec) (*Composer, error) {
	var data []byte
	if spec.FontPath != "" {
		b, err := os.ReadFile(spec.FontPath)
		if err != nil {
			return nil, fmt.Errorf("read font: %w", err)
		}
		data = b
	} else {
		data = gobold.TTF
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &Composer{spec: spec, face: f}, nil
}

// Compose renders the thumbnail for one product: the product image centered
// in the upper area, a dark caption band with the truncated name, and the two
// corner badges.
func (c *Composer) Compose(product image.Image, name string) (*image.RGBA, error) {
	canvas := image.NewRGBA(image.Rect(0, 0, thumbSize, thumbSize))
	stddraw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, stddraw.Src)

	c.drawProduct(canvas, product)

	stddraw.Draw(canvas,
		image.Rect(0, captionBandY, thumbSize, captionBandY+captionBandH),
		image.NewUniform(captionBandColor), image.Point{}, stddraw.Src)

	if err := c.drawCaption(canvas, CaptionText(name)); err != nil {
		return nil, err
	}
	if err := c.drawBadges(canvas); err != nil {
		return nil, err
	}
	return canvas, nil
}

// ComposeToFile renders and writes the thumbnail as JPEG.
func (c *Composer) ComposeToFile(product image.Image, name, path string) error {
	img, err := c.Compose(product, name)
	if err != nil {
		return err
	}
	return writeJPEG(path, img)
}

// CaptionText normalizes a product name for the caption band: hyphens are
// dropped and anything past the rune limit is elided.
func CaptionText(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "-", ""))
	if utf8.RuneCountInString(name) <= captionMaxRunes {
		return name
	}
	runes := []rune(name)
	return string(runes[:captionMaxRunes]) + "..."
}

// drawProduct scales the product image down to fit productMaxSide and centers
// it in the area above the caption band. Images already small enough are not
// upscaled.
func (c *Composer) drawProduct(canvas *image.RGBA, product image.Image) {
	b := product.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return
	}

	scale := 1.0
	if w > productMaxSide || h > productMaxSide {
		sw := float64(productMaxSide) / float64(w)
		sh := float64(productMaxSide) / float64(h)
		if sw < sh {
			scale = sw
		} else {
			scale = sh
		}
	}
	dw := int(float64(w) * scale)
	dh := int(float64(h) * scale)

	x0 := (thumbSize - dw) / 2
	y0 := (captionBandY - dh) / 2
	dst := image.Rect(x0, y0, x0+dw, y0+dh)
	xdraw.CatmullRom.Scale(canvas, dst, product, b, xdraw.Over, nil)
}

// fitCaptionFace walks font sizes downward until the caption fits the band
// width. The smallest size is used even when the text still overflows.
func (c *Composer) fitCaptionFace(text string) (font.Face, error) {
	const (
		maxSize = 80
		minSize = 32
		step    = 2
	)
	var face font.Face
	for size := maxSize; size >= minSize; size -= step {
		f, err := opentype.NewFace(c.face, &opentype.FaceOptions{
			Size: float64(size), DPI: 72, Hinting: font.HintingFull,
		})
		if err != nil {
			return nil, err
		}
		face = f
		if font.MeasureString(face, text).Ceil() <= captionMaxWidth {
			break
		}
	}
	return face, nil
}

func (c *Composer) drawCaption(canvas *image.RGBA, text string) error {
	if text == "" {
		return nil
	}
	face, err := c.fitCaptionFace(text)
	if err != nil {
		return err
	}

	width := font.MeasureString(face, text).Ceil()
	metrics := face.Metrics()
	x := (thumbSize - width) / 2
	// Baseline centered vertically in the caption band.
	y := captionBandY + (captionBandH+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2

	drawOutlinedText(canvas, face, text, x, y, color.White, strokeColor, 2)
	return nil
}

func (c *Composer) drawBadges(canvas *image.RGBA) error {
	stddraw.Draw(canvas,
		image.Rect(badgeX, 0, badgeX+badgeW, topBadgeH),
		image.NewUniform(topBadgeColor), image.Point{}, stddraw.Src)
	stddraw.Draw(canvas,
		image.Rect(badgeX, topBadgeH, badgeX+badgeW, topBadgeH+bottomBadgeH),
		image.NewUniform(bottomBadgeColor), image.Point{}, stddraw.Src)

	if err := c.drawBadgeText(canvas, c.spec.BadgeTop, 60,
		image.Rect(badgeX, 0, badgeX+badgeW, topBadgeH)); err != nil {
		return err
	}
	return c.drawBadgeText(canvas, c.spec.BadgeBottom, 16,
		image.Rect(badgeX, topBadgeH, badgeX+badgeW, topBadgeH+bottomBadgeH))
}

func (c *Composer) drawBadgeText(canvas *image.RGBA, text string, size float64, box image.Rectangle) error {
	if text == "" {
		return nil
	}
	face, err := opentype.NewFace(c.face, &opentype.FaceOptions{
		Size: size, DPI: 72, Hinting: font.HintingFull,
	})
	if err != nil {
		return err
	}
	width := font.MeasureString(face, text).Ceil()
	metrics := face.Metrics()
	x := box.Min.X + (box.Dx()-width)/2
	y := box.Min.Y + (box.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2

	drawText(canvas, face, text, x, y, color.White)
	return nil
}

// drawOutlinedText draws the text once per stroke offset in the outline color
// and then once in the fill color on top.
func drawOutlinedText(dst *image.RGBA, face font.Face, text string, x, y int, fill, stroke color.Color, width int) {
	for dx := -width; dx <= width; dx++ {
		for dy := -width; dy <= width; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			drawText(dst, face, text, x+dx, y+dy, stroke)
		}
	}
	drawText(dst, face, text, x, y, fill)
}

func drawText(dst *image.RGBA, face font.Face, text string, x, y int, col color.Color) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
