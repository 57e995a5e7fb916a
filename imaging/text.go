package imaging

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// ErrNoText is returned for text without a single printable word.
var ErrNoText = errors.New("no text to render")

// Built-in font names.
const (
	FontRegular = "goregular"
	FontBold    = "gobold"
	FontMono    = "gomono"
)

// LoadFont returns a face of a built-in font at size points, rendered at
// the 300 dpi of the print head.
func LoadFont(name string, size float64) (font.Face, error) {
	var data []byte
	switch name {
	case FontRegular, "":
		data = goregular.TTF
	case FontBold:
		data = gobold.TTF
	case FontMono:
		data = gomono.TTF
	default:
		return nil, fmt.Errorf("unknown font %q", name)
	}

	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font %s: %w", name, err)
	}

	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     300,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	return face, nil
}

// RenderText draws text black on white, word-wrapped to width pixels.
// Explicit line breaks are kept. The image is as tall as the text.
//
// A font.Face is not safe for concurrent use; callers sharing face must
// serialize calls.
func RenderText(text string, width int, face font.Face) (*Builder, error) {
	return renderText(text, width, face, 0)
}

// renderText is RenderText with a limit on the pixel count of the result.
// A maxPixels of zero disables the limit.
func renderText(text string, width int, face font.Face, maxPixels int) (*Builder, error) {
	if width <= 0 {
		return nil, fmt.Errorf("text width must be positive, got %d", width)
	}

	var lines []string
	for _, paragraph := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		lines = append(lines, wrapText(paragraph, width, face)...)
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return nil, ErrNoText
	}

	metrics := face.Metrics()
	lineHeight := metrics.Height.Ceil()
	height := lineHeight * len(lines)
	if err := checkSize(width, height, maxPixels); err != nil {
		return nil, fmt.Errorf("text: %w", err)
	}
	img := image.NewGray(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.Black,
		Face: face,
	}
	for i, line := range lines {
		d.Dot = fixed.Point26_6{
			X: 0,
			Y: fixed.I(i*lineHeight) + metrics.Ascent,
		}
		d.DrawString(line)
	}

	return &Builder{img: img}, nil
}

// wrapText breaks text into lines no wider than maxWidth. A single word
// wider than maxWidth gets a line of its own and is clipped when drawn.
// A blank paragraph yields one empty line.
func wrapText(text string, maxWidth int, face font.Face) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	line := words[0]
	for _, word := range words[1:] {
		candidate := line + " " + word
		if font.MeasureString(face, candidate).Ceil() > maxWidth {
			lines = append(lines, line)
			line = word
			continue
		}
		line = candidate
	}
	return append(lines, line)
}
