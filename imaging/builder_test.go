package imaging

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

// halves returns a w x h image, black on top and white at the bottom.
func halves(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
			if y < h/2 {
				c = color.RGBA{0, 0, 0, 0xFF}
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func TestRender(t *testing.T) {
	bm, err := FromImage(halves(8, 4)).Render()
	require.NoError(t, err)

	assert.Equal(t, 8, bm.Width())
	assert.Equal(t, 4, bm.Lines())
	assert.True(t, bm.Get(0, 0))
	assert.True(t, bm.Get(7, 1))
	assert.False(t, bm.Get(0, 2))
	assert.Equal(t, 16, bm.Black())
}

func TestRenderThreshold(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 3, 1))
	img.Pix = []uint8{126, 127, 128}

	bm, err := FromImage(img).Render()
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, false}, bm.Row(0))
}

func TestTransparentFlattensToWhite(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{0, 0, 0, 0})
	img.SetNRGBA(1, 0, color.NRGBA{0, 0, 0, 0xFF})

	bm, err := FromImage(img).Render()
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true}, bm.Row(0))
}

func TestFromImageMovesOrigin(t *testing.T) {
	img := halves(4, 4).SubImage(image.Rect(1, 1, 3, 3))

	b := FromImage(img)
	assert.Equal(t, image.Rect(0, 0, 2, 2), b.Image().Bounds())

	bm, err := b.Render()
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true}, bm.Row(0))
	assert.Equal(t, []bool{false, false}, bm.Row(1))
}

func TestFlipVertical(t *testing.T) {
	bm, err := FromImage(halves(4, 4)).FlipVertical().Render()
	require.NoError(t, err)

	assert.False(t, bm.Get(0, 0))
	assert.False(t, bm.Get(0, 1))
	assert.True(t, bm.Get(0, 2))
	assert.True(t, bm.Get(0, 3))
}

func TestFitWidth(t *testing.T) {
	b := FromImage(halves(1440, 200)).FitWidth(720)
	assert.Equal(t, 720, b.Image().Bounds().Dx())
	assert.Equal(t, 100, b.Image().Bounds().Dy())

	// Narrow images are not enlarged
	b = FromImage(halves(100, 50)).FitWidth(720)
	assert.Equal(t, 100, b.Image().Bounds().Dx())
}

func TestGamma(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 3, 1))
	img.Pix = []uint8{0, 64, 255}

	b := FromImage(img).Gamma(2)
	assert.Equal(t, []uint8{0, 128, 255}, b.Image().Pix)

	b = FromImage(img).Gamma(0.5)
	assert.Equal(t, []uint8{0, 16, 255}, b.Image().Pix)

	// A gamma of 1 is the identity
	b = FromImage(img).Gamma(1)
	assert.Equal(t, []uint8{0, 64, 255}, b.Image().Pix)
}

func TestDitherMidGray(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = 128
	}

	b := FromImage(img).Dither()
	for _, v := range b.Image().Pix {
		require.True(t, v == 0 || v == 255, "dithered pixel %d is not pure", v)
	}

	bm, err := b.Render()
	require.NoError(t, err)

	// A mid-gray field turns into a mix, never a solid fill
	ratio := float64(bm.Black()) / float64(bm.Len())
	assert.Greater(t, ratio, 0.1)
	assert.Less(t, ratio, 0.9)
}

func TestDecodeFormats(t *testing.T) {
	src := halves(8, 4)

	var pngData, bmpData bytes.Buffer
	require.NoError(t, png.Encode(&pngData, src))
	require.NoError(t, bmp.Encode(&bmpData, src))

	for name, data := range map[string][]byte{"png": pngData.Bytes(), "bmp": bmpData.Bytes()} {
		t.Run(name, func(t *testing.T) {
			b, err := Decode(bytes.NewReader(data))
			require.NoError(t, err)

			bm, err := b.Render()
			require.NoError(t, err)
			assert.Equal(t, 16, bm.Black())
		})
	}
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte{0x00, 0x01, 0x02}))
	assert.ErrorIs(t, err, image.ErrFormat)
}

// pngWithSize returns a valid 1x1 PNG whose header claims w x h pixels.
func pngWithSize(t *testing.T, w, h uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))))

	// signature(8) length(4) "IHDR"(4) width(4) height(4) ... crc at 29
	data := buf.Bytes()
	binary.BigEndian.PutUint32(data[16:20], w)
	binary.BigEndian.PutUint32(data[20:24], h)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func TestDecodeBytesRejectsHugeHeader(t *testing.T) {
	data := pngWithSize(t, 60000, 60000)

	_, err := DecodeBytes(data, 1<<20)
	assert.ErrorIs(t, err, ErrImageTooLarge)
	assert.Contains(t, err.Error(), "60000x60000")
}

func TestDecodeBytes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, halves(8, 4)))

	b, err := DecodeBytes(buf.Bytes(), 32)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 4), b.Image().Bounds())

	_, err = DecodeBytes(buf.Bytes(), 31)
	assert.ErrorIs(t, err, ErrImageTooLarge)

	// Zero disables the limit
	_, err = DecodeBytes(buf.Bytes(), 0)
	assert.NoError(t, err)

	_, err = DecodeBytes([]byte("plain text"), 32)
	assert.ErrorIs(t, err, image.ErrFormat)
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "label.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, halves(16, 2)))
	require.NoError(t, f.Close())

	b, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 16, 2), b.Image().Bounds())

	_, err = Open(filepath.Join(t.TempDir(), "missing.png"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
