// Package imaging holds the pixel surface used by the enhancement pipeline
// together with decode/encode helpers and the per-pixel filters.
package imaging

import (
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"
)

// PixelBuffer is an owned RGBA surface. Pix holds non-premultiplied samples,
// four bytes per pixel, rows packed without padding.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewPixelBuffer allocates a zeroed buffer.
func NewPixelBuffer(width, height int) (*PixelBuffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid buffer size %dx%d", width, height)
	}
	return &PixelBuffer{Width: width, Height: height, Pix: make([]uint8, width*height*4)}, nil
}

// FromImage copies img into a new buffer of the same size.
func FromImage(img image.Image) (*PixelBuffer, error) {
	b := img.Bounds()
	buf, err := NewPixelBuffer(b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}
	xdraw.Draw(buf.NRGBA(), image.Rect(0, 0, buf.Width, buf.Height), img, b.Min, xdraw.Src)
	return buf, nil
}

// NRGBA exposes the buffer as an image without copying.
func (b *PixelBuffer) NRGBA() *image.NRGBA {
	return &image.NRGBA{Pix: b.Pix, Stride: b.Width * 4, Rect: image.Rect(0, 0, b.Width, b.Height)}
}

// Clone returns a deep copy.
func (b *PixelBuffer) Clone() *PixelBuffer {
	pix := make([]uint8, len(b.Pix))
	copy(pix, b.Pix)
	return &PixelBuffer{Width: b.Width, Height: b.Height, Pix: pix}
}

// At returns the RGBA samples of pixel (x, y).
func (b *PixelBuffer) At(x, y int) (r, g, bl, a uint8) {
	i := (y*b.Width + x) * 4
	return b.Pix[i], b.Pix[i+1], b.Pix[i+2], b.Pix[i+3]
}

// Set writes the RGBA samples of pixel (x, y).
func (b *PixelBuffer) Set(x, y int, r, g, bl, a uint8) {
	i := (y*b.Width + x) * 4
	b.Pix[i], b.Pix[i+1], b.Pix[i+2], b.Pix[i+3] = r, g, bl, a
}
