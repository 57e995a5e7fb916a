// Package bitmap holds the 1-bit image a printer consumes: a row-major slice
// of pixels, true meaning black, plus the pixel width of one row.
package bitmap

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// ErrInvalidWidth is returned for a width that is not positive.
var ErrInvalidWidth = errors.New("bitmap width must be positive")

// Bitmap is a row-major 1-bit image. Row 0 is the printer's leading edge.
//
// Bitmap implements image.Image so a rendered label can be previewed or
// encoded with the standard image codecs.
type Bitmap struct {
	bits  []bool
	width int
}

// New returns an all-white bitmap of the given size.
func New(width, height int) (*Bitmap, error) {
	if width <= 0 {
		return nil, ErrInvalidWidth
	}
	if height < 0 {
		return nil, fmt.Errorf("bitmap height must not be negative, got %d", height)
	}
	return &Bitmap{bits: make([]bool, width*height), width: width}, nil
}

// FromBits wraps bits without copying. A trailing partial row is kept but
// never reported by Lines or Row.
func FromBits(bits []bool, width int) (*Bitmap, error) {
	if width <= 0 {
		return nil, ErrInvalidWidth
	}
	return &Bitmap{bits: bits, width: width}, nil
}

// Width returns the number of pixels per row.
func (b *Bitmap) Width() int { return b.width }

// Lines returns the number of complete rows.
func (b *Bitmap) Lines() int { return len(b.bits) / b.width }

// Len returns the number of pixels stored.
func (b *Bitmap) Len() int { return len(b.bits) }

// Bits returns the underlying pixels.
func (b *Bitmap) Bits() []bool { return b.bits }

// Row returns row y as a sub-slice of the bitmap. It panics if y is out of
// range.
func (b *Bitmap) Row(y int) []bool {
	if y < 0 || y >= b.Lines() {
		panic(fmt.Sprintf("bitmap: row %d out of range [0,%d)", y, b.Lines()))
	}
	start := y * b.width
	return b.bits[start : start+b.width : start+b.width]
}

// Get reports whether the pixel at (x, y) is black. Pixels outside the
// bitmap are white.
func (b *Bitmap) Get(x, y int) bool {
	if !b.inside(x, y) {
		return false
	}
	return b.bits[y*b.width+x]
}

// Set paints the pixel at (x, y). Pixels outside the bitmap are ignored.
func (b *Bitmap) Set(x, y int, black bool) {
	if !b.inside(x, y) {
		return
	}
	b.bits[y*b.width+x] = black
}

func (b *Bitmap) inside(x, y int) bool {
	return x >= 0 && x < b.width && y >= 0 && y < b.Lines()
}

// Black counts the black pixels.
func (b *Bitmap) Black() int {
	n := 0
	for _, px := range b.bits {
		if px {
			n++
		}
	}
	return n
}

func (b *Bitmap) ColorModel() color.Model { return color.GrayModel }

func (b *Bitmap) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.width, b.Lines())
}

func (b *Bitmap) At(x, y int) color.Color {
	if b.Get(x, y) {
		return color.Black
	}
	return color.White
}
