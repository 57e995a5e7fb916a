// Package imaging turns ordinary images into the 1-bit bitmaps the printer
// consumes.
//
// A Builder holds an 8-bit grayscale working copy. Transparent pixels are
// flattened onto white when the image is loaded, and Render maps every
// pixel darker than Threshold to black.
//
//	bm, err := imaging.Open("label.png")
//	...
//	bm.FitWidth(720).FlipVertical().Dither().Render()
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"os"

	"github.com/makeworld-the-better-one/dither/v2"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/nixxel-company-limited/ql-print-server/bitmap"
)

// Threshold is the luma below which a pixel prints black.
const Threshold = 127

// ErrImageTooLarge is returned for an image with more pixels than allowed.
var ErrImageTooLarge = errors.New("image too large")

// Builder prepares an image for printing. Methods modify the builder in
// place and return it for chaining.
type Builder struct {
	img *image.Gray
}

// Open decodes the image file at path.
func Open(path string) (*Builder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Decode(f)
}

// Decode reads an image in any registered format: PNG, JPEG, GIF, BMP,
// TIFF or WebP.
func Decode(r io.Reader) (*Builder, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%s image is empty", format)
	}
	return FromImage(img), nil
}

// DecodeBytes decodes data like Decode but first reads the image header
// and rejects images larger than maxPixels without decoding them. A
// maxPixels of zero disables the check.
func DecodeBytes(data []byte, maxPixels int) (*Builder, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if err := checkSize(cfg.Width, cfg.Height, maxPixels); err != nil {
		return nil, fmt.Errorf("%s image: %w", format, err)
	}
	return Decode(bytes.NewReader(data))
}

func checkSize(width, height, maxPixels int) error {
	if maxPixels > 0 && int64(width)*int64(height) > int64(maxPixels) {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrImageTooLarge, width, height, maxPixels)
	}
	return nil
}

// FromImage copies img into a grayscale working image with its origin at
// (0, 0), flattened onto a white background.
func FromImage(img image.Image) *Builder {
	return &Builder{img: flatten(img)}
}

func flatten(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Over)
	return gray
}

// Image returns the current working image.
func (b *Builder) Image() *image.Gray {
	return b.img
}

// FlipVertical mirrors the image top to bottom.
func (b *Builder) FlipVertical() *Builder {
	src := b.img
	h := src.Rect.Dy()
	out := image.NewGray(src.Rect)
	for y := 0; y < h; y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+src.Rect.Dx()],
			src.Pix[(h-1-y)*src.Stride:(h-1-y)*src.Stride+src.Rect.Dx()])
	}
	b.img = out
	return b
}

// FitWidth shrinks the image to width pixels, keeping the aspect ratio.
// Images that already fit are left alone.
func (b *Builder) FitWidth(width int) *Builder {
	if width <= 0 || b.img.Rect.Dx() <= width {
		return b
	}
	b.img = flatten(resize.Resize(uint(width), 0, b.img, resize.Lanczos3))
	return b
}

// Gamma applies gamma correction, mapping luma x to x^(1/gamma). Values
// above 1 lighten the image.
func (b *Builder) Gamma(gamma float64) *Builder {
	if gamma <= 0 || gamma == 1 {
		return b
	}

	var table [256]uint8
	for i := range table {
		table[i] = uint8(math.Round(255 * math.Pow(float64(i)/255, 1/gamma)))
	}
	for i, v := range b.img.Pix {
		b.img.Pix[i] = table[v]
	}
	return b
}

// Dither reduces the image to pure black and white with Floyd-Steinberg
// error diffusion.
func (b *Builder) Dither() *Builder {
	d := dither.NewDitherer([]color.Color{color.Black, color.White})
	d.Matrix = dither.FloydSteinberg
	d.Serpentine = true

	b.img = flatten(d.DitherPaletted(b.img))
	return b
}

// Render returns the printable bitmap.
func (b *Builder) Render() (*bitmap.Bitmap, error) {
	r := b.img.Rect
	bm, err := bitmap.New(r.Dx(), r.Dy())
	if err != nil {
		return nil, err
	}
	for y := 0; y < r.Dy(); y++ {
		row := b.img.Pix[y*b.img.Stride : y*b.img.Stride+r.Dx()]
		for x, luma := range row {
			if luma < Threshold {
				bm.Set(x, y, true)
			}
		}
	}
	return bm, nil
}
