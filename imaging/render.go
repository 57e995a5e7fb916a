package imaging

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"unicode/utf8"

	"golang.org/x/image/font"

	"github.com/nixxel-company-limited/ql-print-server/bitmap"
)

// DefaultMaxPixels bounds the size of a decoded document.
const DefaultMaxPixels = 25 << 20

// Options control how a document becomes a bitmap.
type Options struct {
	// Width is the print width in pixels. Wider images are scaled down
	// and text is wrapped at this width.
	Width        int
	Gamma        float64
	Dither       bool
	FlipVertical bool
	Font         string
	FontSize     float64

	// MaxPixels rejects documents that would decode to a larger image.
	// Zero means DefaultMaxPixels.
	MaxPixels int
}

// Renderer converts raw documents into printable bitmaps. A document is
// either an encoded image or UTF-8 text. It is safe for concurrent use.
type Renderer struct {
	opts Options

	// mu guards face.
	mu   sync.Mutex
	face font.Face
}

// NewRenderer loads the text font once and returns a renderer.
func NewRenderer(opts Options) (*Renderer, error) {
	if opts.Width <= 0 {
		return nil, fmt.Errorf("render width must be positive, got %d", opts.Width)
	}
	if opts.FontSize <= 0 {
		opts.FontSize = 12
	}
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = DefaultMaxPixels
	}

	face, err := LoadFont(opts.Font, opts.FontSize)
	if err != nil {
		return nil, err
	}
	return &Renderer{opts: opts, face: face}, nil
}

// Render decodes data and prepares it for printing. Data that is no known
// image format but valid UTF-8 is typeset as text.
func (r *Renderer) Render(data []byte) (*bitmap.Bitmap, error) {
	b, err := DecodeBytes(data, r.opts.MaxPixels)
	if errors.Is(err, image.ErrFormat) && utf8.Valid(data) {
		b, err = r.renderText(string(data))
	}
	if err != nil {
		return nil, err
	}

	b.FitWidth(r.opts.Width).Gamma(r.opts.Gamma)
	if r.opts.Dither {
		b.Dither()
	}
	if r.opts.FlipVertical {
		b.FlipVertical()
	}
	return b.Render()
}

func (r *Renderer) renderText(text string) (*Builder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return renderText(text, r.opts.Width, r.face, r.opts.MaxPixels)
}
