package imaging

import (
	"context"
	"math"
)

// Kernel is a 3x3 convolution kernel in row-major order.
type Kernel [9]float64

var (
	SharpenKernel = Kernel{0, -1, 0, -1, 5, -1, 0, -1, 0}
	DenoiseKernel = Kernel{1, 2, 1, 2, 4, 2, 1, 2, 1}
)

const (
	SharpenDivisor = 1
	DenoiseDivisor = 16

	ThresholdRadius   = 15
	ThresholdConstant = 5
)

func clampRound(v float64) uint8 {
	v = math.Floor(v + 0.5)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Grayscale replaces RGB with luminosity 0.299R + 0.587G + 0.114B.
func (b *PixelBuffer) Grayscale() {
	p := b.Pix
	for i := 0; i+3 < len(p); i += 4 {
		gray := 0.299*float64(p[i]) + 0.587*float64(p[i+1]) + 0.114*float64(p[i+2])
		g := uint8(math.RoundToEven(gray))
		p[i], p[i+1], p[i+2] = g, g, g
	}
}

// ContrastFactor is the remap factor applied around 128 for contrast c.
func ContrastFactor(c float64) float64 {
	return (259 * (c*255 + 255)) / (255 * (259 - c*255))
}

// Contrast remaps each colour channel around 128. A contrast of exactly 1.0
// leaves the buffer untouched.
func (b *PixelBuffer) Contrast(c float64) {
	if c == 1.0 {
		return
	}
	factor := ContrastFactor(c)
	var lut [256]uint8
	for v := range lut {
		lut[v] = clampRound(factor*(float64(v)-128) + 128)
	}
	b.applyLUT(&lut)
}

// Brightness adds delta to each colour channel with clamping.
func (b *PixelBuffer) Brightness(delta float64) {
	if delta == 0 {
		return
	}
	var lut [256]uint8
	for v := range lut {
		lut[v] = clampRound(float64(v) + delta)
	}
	b.applyLUT(&lut)
}

func (b *PixelBuffer) applyLUT(lut *[256]uint8) {
	p := b.Pix
	for i := 0; i+3 < len(p); i += 4 {
		p[i], p[i+1], p[i+2] = lut[p[i]], lut[p[i+1]], lut[p[i+2]]
	}
}

// Convolve applies k over RGB. Taps falling outside the image are skipped
// and the divisor stays fixed. ctx is checked once per row.
func (b *PixelBuffer) Convolve(ctx context.Context, k Kernel, divisor float64) error {
	src := make([]uint8, len(b.Pix))
	copy(src, b.Pix)
	w, h := b.Width, b.Height
	for y := 0; y < h; y++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for x := 0; x < w; x++ {
			var r, g, bl float64
			for cy := 0; cy < 3; cy++ {
				sy := y + cy - 1
				if sy < 0 || sy >= h {
					continue
				}
				for cx := 0; cx < 3; cx++ {
					sx := x + cx - 1
					if sx < 0 || sx >= w {
						continue
					}
					wt := k[cy*3+cx]
					if wt == 0 {
						continue
					}
					off := (sy*w + sx) * 4
					r += float64(src[off]) * wt
					g += float64(src[off+1]) * wt
					bl += float64(src[off+2]) * wt
				}
			}
			dst := (y*w + x) * 4
			b.Pix[dst] = clampRound(r / divisor)
			b.Pix[dst+1] = clampRound(g / divisor)
			b.Pix[dst+2] = clampRound(bl / divisor)
		}
	}
	return nil
}

// Sharpen runs the 3x3 sharpening kernel.
func (b *PixelBuffer) Sharpen(ctx context.Context) error {
	return b.Convolve(ctx, SharpenKernel, SharpenDivisor)
}

// Denoise runs the 3x3 gaussian kernel.
func (b *PixelBuffer) Denoise(ctx context.Context) error {
	return b.Convolve(ctx, DenoiseKernel, DenoiseDivisor)
}

// AdaptiveThreshold binarizes the buffer. Each pixel's red sample is compared
// with the mean red sample of the (2*radius+1)^2 window around it, clipped at
// the borders; pixels brighter than mean-c become white, the rest black.
// Means are taken over the pre-threshold values via a summed-area table.
func (b *PixelBuffer) AdaptiveThreshold(ctx context.Context, radius, c int) error {
	w, h := b.Width, b.Height
	// integral has a zero row and column in front: sat[(y+1)*(w+1)+(x+1)] = sum over [0..x]x[0..y]
	stride := w + 1
	sat := make([]int64, stride*(h+1))
	for y := 0; y < h; y++ {
		var row int64
		for x := 0; x < w; x++ {
			row += int64(b.Pix[(y*w+x)*4])
			sat[(y+1)*stride+x+1] = sat[y*stride+x+1] + row
		}
	}

	for y := 0; y < h; y++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		y0, y1 := max(y-radius, 0), min(y+radius, h-1)
		for x := 0; x < w; x++ {
			x0, x1 := max(x-radius, 0), min(x+radius, w-1)
			sum := sat[(y1+1)*stride+x1+1] - sat[y0*stride+x1+1] - sat[(y1+1)*stride+x0] + sat[y0*stride+x0]
			count := int64((y1 - y0 + 1) * (x1 - x0 + 1))

			i := (y*w + x) * 4
			v := int64(b.Pix[i])
			var out uint8
			// v > sum/count - c, kept in integers
			if v*count > sum-int64(c)*count {
				out = 255
			}
			b.Pix[i], b.Pix[i+1], b.Pix[i+2] = out, out, out
		}
	}
	return nil
}

// Stats summarises per-pixel brightness.
type Stats struct {
	Mean   float64
	StdDev float64
}

// BrightnessStats returns the mean and population standard deviation of
// (R+G+B)/3 over every pixel.
func (b *PixelBuffer) BrightnessStats() Stats {
	n := len(b.Pix) / 4
	if n == 0 {
		return Stats{}
	}
	var total float64
	for i := 0; i+3 < len(b.Pix); i += 4 {
		total += (float64(b.Pix[i]) + float64(b.Pix[i+1]) + float64(b.Pix[i+2])) / 3
	}
	mean := total / float64(n)
	var variance float64
	for i := 0; i+3 < len(b.Pix); i += 4 {
		d := (float64(b.Pix[i])+float64(b.Pix[i+1])+float64(b.Pix[i+2]))/3 - mean
		variance += d * d
	}
	return Stats{Mean: mean, StdDev: math.Sqrt(variance / float64(n))}
}
