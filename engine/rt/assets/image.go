package assets

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	agp "github.com/vsRushy/AGP-Project2"
)

var ErrNotFound = errors.New("asset not found")

// Image is decoded RGBA8 pixel data, rows bottom-up when flipped for upload.
type Image struct {
	Width    int
	Height   int
	Channels int
	Stride   int
	Pix      []byte
}

// Loader decodes images relative to Dir.
type Loader struct {
	Dir string
	// FlipY stores rows bottom-up, the order GL texture uploads expect.
	FlipY bool

	log agp.Logger
}

func NewLoader(dir string, log agp.Logger) *Loader {
	return &Loader{Dir: dir, FlipY: true, log: agp.OrNop(log)}
}

func (l *Loader) resolve(path string) string {
	if l.Dir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(l.Dir, path)
}

// LoadImage decodes png, jpeg, gif, bmp, tiff or webp. A missing file
// returns an error wrapping ErrNotFound.
func (l *Loader) LoadImage(path string) (*Image, error) {
	full := l.resolve(path)
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("image %s: %w", full, ErrNotFound)
		}
		return nil, fmt.Errorf("image %s: %w", full, err)
	}
	defer f.Close()

	img, err := Decode(f, l.FlipY)
	if err != nil {
		return nil, fmt.Errorf("image %s: %w", full, err)
	}
	l.log.Debugf("image %s: %dx%d", full, img.Width, img.Height)
	return img, nil
}

// Decode reads any registered image format into tightly packed RGBA8.
func Decode(r io.Reader, flipY bool) (*Image, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}
	return FromImage(src, flipY), nil
}

func FromImage(src image.Image, flipY bool) *Image {
	bounds := src.Bounds()
	rgba, ok := src.(*image.RGBA)
	if !ok || rgba.Stride != 4*bounds.Dx() {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), src, bounds.Min, draw.Src)
	}
	img := &Image{
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		Channels: 4,
		Stride:   rgba.Stride,
		Pix:      rgba.Pix,
	}
	if flipY {
		img.Pix = flipRows(img.Pix, img.Stride, img.Height)
	}
	return img
}

func flipRows(pix []byte, stride, height int) []byte {
	out := make([]byte, len(pix))
	for y := 0; y < height; y++ {
		copy(out[y*stride:(y+1)*stride], pix[(height-1-y)*stride:(height-y)*stride])
	}
	return out
}

// Resize scales an image to w x h with bilinear filtering.
func (img *Image) Resize(w, h int) *Image {
	if img.Width == w && img.Height == h {
		return img
	}
	src := &image.RGBA{Pix: img.Pix, Stride: img.Stride, Rect: image.Rect(0, 0, img.Width, img.Height)}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return &Image{Width: w, Height: h, Channels: 4, Stride: dst.Stride, Pix: dst.Pix}
}
