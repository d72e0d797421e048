package assets

import (
	"bytes"
	"errors"
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

// twoRows is 1x2: red on top, blue below.
func twoRows() image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 2))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	img.Set(0, 1, color.NRGBA{B: 255, A: 255})
	return img
}

func TestDecode_PNGFlipped(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, twoRows()))

	img, err := Decode(&buf, true)
	require.NoError(t, err)
	assert.Equal(t, 1, img.Width)
	assert.Equal(t, 2, img.Height)
	assert.Equal(t, 4, img.Stride)
	assert.Equal(t, []byte{0, 0, 255, 255, 255, 0, 0, 255}, img.Pix, "bottom row first")
}

func TestDecode_BMPUnflipped(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, twoRows()))

	img, err := Decode(&buf, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{255, 0, 0, 255, 0, 0, 255, 255}, img.Pix)
}

func TestLoader_MissingFile(t *testing.T) {
	l := NewLoader(t.TempDir(), nil)
	_, err := l.LoadImage("nope.png")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLoader_Garbage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.png"), []byte("not an image"), 0o644))
	l := NewLoader(dir, nil)
	_, err := l.LoadImage("bad.png")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestLoader_ReadsFile(t *testing.T) {
	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "t.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, twoRows()))
	require.NoError(t, f.Close())

	img, err := NewLoader(dir, nil).LoadImage("t.png")
	require.NoError(t, err)
	assert.Equal(t, 2, img.Height)
}

func TestImage_Resize(t *testing.T) {
	img := Solid(10, 20, 30, 255).Resize(4, 4)
	assert.Equal(t, 4, img.Width)
	assert.Len(t, img.Pix, 64)
	assert.InDelta(t, 10, int(img.Pix[60]), 1)
	assert.InDelta(t, 30, int(img.Pix[62]), 1)
}

func TestProcedural(t *testing.T) {
	faces := SkyFaces(8)
	for _, f := range faces {
		require.NotNil(t, f)
		assert.Len(t, f.Pix, 8*8*4)
	}
	a := DudvNoise(16, 7)
	b := DudvNoise(16, 7)
	assert.Equal(t, a.Pix, b.Pix)
}
