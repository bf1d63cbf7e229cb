package imaging

import (
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"
)

// Upscale resamples img by scale with Catmull-Rom interpolation. Target
// dimensions are truncated to whole pixels, never below one.
func Upscale(img image.Image, scale float64) (*PixelBuffer, error) {
	if scale <= 0 {
		return nil, fmt.Errorf("invalid scale %v", scale)
	}
	src := img.Bounds()
	w := max(int(float64(src.Dx())*scale), 1)
	h := max(int(float64(src.Dy())*scale), 1)
	buf, err := NewPixelBuffer(w, h)
	if err != nil {
		return nil, err
	}
	xdraw.CatmullRom.Scale(buf.NRGBA(), image.Rect(0, 0, w, h), img, src, xdraw.Src, nil)
	return buf, nil
}

// Preview squeezes img into a fixed w x h buffer, ignoring aspect ratio.
func Preview(img image.Image, w, h int) (*PixelBuffer, error) {
	buf, err := NewPixelBuffer(w, h)
	if err != nil {
		return nil, err
	}
	xdraw.BiLinear.Scale(buf.NRGBA(), image.Rect(0, 0, w, h), img, img.Bounds(), xdraw.Src, nil)
	return buf, nil
}
