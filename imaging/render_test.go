package imaging

import (
	"bytes"
	"image/png"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFont(t *testing.T) {
	for _, name := range []string{"", FontRegular, FontBold, FontMono} {
		face, err := LoadFont(name, 10)
		require.NoError(t, err, name)
		assert.Positive(t, face.Metrics().Height.Ceil())
	}

	_, err := LoadFont("comic-sans", 10)
	assert.Error(t, err)
}

func TestRenderText(t *testing.T) {
	face, err := LoadFont(FontRegular, 12)
	require.NoError(t, err)
	lineHeight := face.Metrics().Height.Ceil()

	b, err := RenderText("Hello", 720, face)
	require.NoError(t, err)
	assert.Equal(t, 720, b.Image().Bounds().Dx())
	assert.Equal(t, lineHeight, b.Image().Bounds().Dy())

	bm, err := b.Render()
	require.NoError(t, err)
	assert.Positive(t, bm.Black())

	b, err = RenderText("first\nsecond\n", 720, face)
	require.NoError(t, err)
	assert.Equal(t, 2*lineHeight, b.Image().Bounds().Dy())
}

func TestRenderTextWraps(t *testing.T) {
	face, err := LoadFont(FontMono, 12)
	require.NoError(t, err)

	lines := wrapText("one two three four five six seven eight nine ten", 200, face)
	assert.Greater(t, len(lines), 1)
	for _, line := range lines {
		assert.NotEmpty(t, line)
	}
	assert.Equal(t, []string{""}, wrapText("   ", 200, face))
}

func TestRenderTextEmpty(t *testing.T) {
	face, err := LoadFont(FontRegular, 12)
	require.NoError(t, err)

	_, err = RenderText("\n\n", 720, face)
	assert.ErrorIs(t, err, ErrNoText)

	_, err = RenderText("x", 0, face)
	assert.Error(t, err)
}

func TestRendererImage(t *testing.T) {
	r, err := NewRenderer(Options{Width: 720, Dither: true})
	require.NoError(t, err)

	var data bytes.Buffer
	require.NoError(t, png.Encode(&data, halves(1440, 40)))

	bm, err := r.Render(data.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 720, bm.Width())
	assert.Equal(t, 20, bm.Lines())
	assert.True(t, bm.Get(10, 2))
	assert.False(t, bm.Get(10, 18))
}

func TestRendererFlip(t *testing.T) {
	r, err := NewRenderer(Options{Width: 720, FlipVertical: true})
	require.NoError(t, err)

	var data bytes.Buffer
	require.NoError(t, png.Encode(&data, halves(8, 4)))

	bm, err := r.Render(data.Bytes())
	require.NoError(t, err)
	assert.False(t, bm.Get(0, 0))
	assert.True(t, bm.Get(0, 3))
}

func TestRendererText(t *testing.T) {
	r, err := NewRenderer(Options{Width: 720, Font: FontBold, FontSize: 14})
	require.NoError(t, err)

	bm, err := r.Render([]byte("Shipping label\nRoom 42"))
	require.NoError(t, err)
	assert.Equal(t, 720, bm.Width())
	assert.Positive(t, bm.Black())
}

func TestRendererRejectsBinary(t *testing.T) {
	r, err := NewRenderer(Options{Width: 720})
	require.NoError(t, err)

	_, err = r.Render([]byte{0xFF, 0xFE, 0x00, 0x81})
	assert.Error(t, err)
}

func TestNewRendererValidates(t *testing.T) {
	_, err := NewRenderer(Options{})
	assert.Error(t, err)

	_, err = NewRenderer(Options{Width: 720, Font: "papyrus"})
	assert.Error(t, err)
}

func TestRendererConcurrentText(t *testing.T) {
	r, err := NewRenderer(Options{Width: 720})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				_, err := r.Render([]byte("hello world, this is a shipping label"))
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestRendererRejectsHugeImage(t *testing.T) {
	r, err := NewRenderer(Options{Width: 720, MaxPixels: 1 << 20})
	require.NoError(t, err)

	_, err = r.Render(pngWithSize(t, 60000, 60000))
	assert.ErrorIs(t, err, ErrImageTooLarge)
}

func TestRendererRejectsHugeText(t *testing.T) {
	r, err := NewRenderer(Options{Width: 720, MaxPixels: 720 * 1000})
	require.NoError(t, err)

	_, err = r.Render([]byte(strings.Repeat("line\n", 1000)))
	assert.ErrorIs(t, err, ErrImageTooLarge)

	_, err = r.Render([]byte("line"))
	assert.NoError(t, err)
}
