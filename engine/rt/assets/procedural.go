package assets

import (
	"math/rand"
)

// Solid is a 1x1 image of one colour.
func Solid(r, g, b, a uint8) *Image {
	return &Image{Width: 1, Height: 1, Channels: 4, Stride: 4, Pix: []byte{r, g, b, a}}
}

// SkyFaces generates six cubemap faces fading from horizon to zenith. Face
// order is +X, -X, +Y, -Y, +Z, -Z.
func SkyFaces(size int) [6]*Image {
	horizon := [3]float32{0.85, 0.9, 1.0}
	zenith := [3]float32{0.25, 0.45, 0.85}
	ground := [3]float32{0.3, 0.3, 0.32}

	var faces [6]*Image
	for f := range faces {
		img := &Image{Width: size, Height: size, Channels: 4, Stride: 4 * size, Pix: make([]byte, 4*size*size)}
		for y := 0; y < size; y++ {
			t := float32(y) / float32(max(size-1, 1))
			var c [3]float32
			switch f {
			case 2:
				c = zenith
			case 3:
				c = ground
			default:
				// rows are bottom-up: t=0 is the horizon side
				for i := range c {
					c[i] = horizon[i] + (zenith[i]-horizon[i])*t
				}
			}
			for x := 0; x < size; x++ {
				o := y*img.Stride + 4*x
				img.Pix[o] = uint8(c[0] * 255)
				img.Pix[o+1] = uint8(c[1] * 255)
				img.Pix[o+2] = uint8(c[2] * 255)
				img.Pix[o+3] = 255
			}
		}
		faces[f] = img
	}
	return faces
}

// DudvNoise generates a tiling distortion map for the water shader. The same
// seed always gives the same map.
func DudvNoise(size int, seed int64) *Image {
	rng := rand.New(rand.NewSource(seed))
	const cells = 8
	grid := make([][2]float32, cells*cells)
	for i := range grid {
		grid[i] = [2]float32{rng.Float32(), rng.Float32()}
	}
	at := func(x, y int) [2]float32 { return grid[(y%cells)*cells+(x%cells)] }

	img := &Image{Width: size, Height: size, Channels: 4, Stride: 4 * size, Pix: make([]byte, 4*size*size)}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			fx := float32(x) / float32(size) * cells
			fy := float32(y) / float32(size) * cells
			ix, iy := int(fx), int(fy)
			tx, ty := fx-float32(ix), fy-float32(iy)
			a, b := at(ix, iy), at(ix+1, iy)
			c, d := at(ix, iy+1), at(ix+1, iy+1)
			o := y*img.Stride + 4*x
			for ch := 0; ch < 2; ch++ {
				top := a[ch] + (b[ch]-a[ch])*tx
				bottom := c[ch] + (d[ch]-c[ch])*tx
				img.Pix[o+ch] = uint8((top + (bottom-top)*ty) * 255)
			}
			img.Pix[o+3] = 255
		}
	}
	return img
}
