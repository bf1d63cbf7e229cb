package imaging

import (
	"context"
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniform(t *testing.T, w, h int, v uint8) *PixelBuffer {
	t.Helper()
	buf, err := NewPixelBuffer(w, h)
	require.NoError(t, err)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			buf.Set(x, y, v, v, v, 255)
		}
	}
	return buf
}

func randomBuffer(t *testing.T, w, h int, seed int64) *PixelBuffer {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	buf, err := NewPixelBuffer(w, h)
	require.NoError(t, err)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(rng.Intn(256))
			buf.Set(x, y, v, v, v, uint8(rng.Intn(256)))
		}
	}
	return buf
}

func TestContrastBrightnessIdentity(t *testing.T) {
	buf := randomBuffer(t, 17, 9, 1)
	before := buf.Clone()

	buf.Contrast(1.0)
	buf.Brightness(0)

	assert.Equal(t, before.Pix, buf.Pix)
}

func TestContrastKeepsAlphaAndMidpoint(t *testing.T) {
	buf := uniform(t, 2, 2, 128)
	buf.Set(1, 1, 128, 128, 128, 7)

	buf.Contrast(1.5)

	r, g, b, a := buf.At(0, 0)
	assert.Equal(t, []uint8{128, 128, 128, 255}, []uint8{r, g, b, a})
	_, _, _, a = buf.At(1, 1)
	assert.Equal(t, uint8(7), a)
}

func TestBrightnessClamps(t *testing.T) {
	buf := uniform(t, 1, 1, 250)
	buf.Brightness(15)
	r, _, _, _ := buf.At(0, 0)
	assert.Equal(t, uint8(255), r)

	buf = uniform(t, 1, 1, 3)
	buf.Brightness(-10)
	r, _, _, _ = buf.At(0, 0)
	assert.Equal(t, uint8(0), r)
}

func TestGrayscaleLuminosity(t *testing.T) {
	buf, err := NewPixelBuffer(1, 1)
	require.NoError(t, err)
	buf.Set(0, 0, 200, 100, 50, 90)

	buf.Grayscale()

	// 0.299*200 + 0.587*100 + 0.114*50 = 124.2
	r, g, b, a := buf.At(0, 0)
	assert.Equal(t, []uint8{124, 124, 124, 90}, []uint8{r, g, b, a})
}

func TestConvolveSkipsOutOfBoundsTaps(t *testing.T) {
	ctx := context.Background()

	buf := uniform(t, 3, 3, 40)
	require.NoError(t, buf.Sharpen(ctx))
	corner, _, _, _ := buf.At(0, 0)
	edge, _, _, _ := buf.At(1, 0)
	center, _, _, _ := buf.At(1, 1)
	assert.Equal(t, uint8(120), corner) // 5v - 2v
	assert.Equal(t, uint8(80), edge)    // 5v - 3v
	assert.Equal(t, uint8(40), center)

	buf = uniform(t, 3, 3, 160)
	require.NoError(t, buf.Denoise(ctx))
	corner, _, _, _ = buf.At(0, 0)
	center, _, _, _ = buf.At(1, 1)
	assert.Equal(t, uint8(90), corner) // 9/16 of 160
	assert.Equal(t, uint8(160), center)
}

func TestConvolveHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	buf := uniform(t, 4, 4, 10)
	err := buf.Sharpen(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// bruteThreshold is the direct O(window^2) definition.
func bruteThreshold(src *PixelBuffer, radius, c int) []uint8 {
	out := make([]uint8, len(src.Pix))
	copy(out, src.Pix)
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			sum, count := 0, 0
			for dy := -radius; dy <= radius; dy++ {
				for dx := -radius; dx <= radius; dx++ {
					ny, nx := y+dy, x+dx
					if ny >= 0 && ny < src.Height && nx >= 0 && nx < src.Width {
						sum += int(src.Pix[(ny*src.Width+nx)*4])
						count++
					}
				}
			}
			i := (y*src.Width + x) * 4
			v := uint8(0)
			if float64(src.Pix[i]) > float64(sum)/float64(count)-float64(c) {
				v = 255
			}
			out[i], out[i+1], out[i+2] = v, v, v
		}
	}
	return out
}

func TestAdaptiveThresholdMatchesDirectDefinition(t *testing.T) {
	for _, size := range []image.Point{{1, 1}, {5, 3}, {40, 33}} {
		buf := randomBuffer(t, size.X, size.Y, int64(size.X*100+size.Y))
		want := bruteThreshold(buf, ThresholdRadius, ThresholdConstant)

		require.NoError(t, buf.AdaptiveThreshold(context.Background(), ThresholdRadius, ThresholdConstant))
		assert.Equal(t, want, buf.Pix, "size %v", size)
	}
}

func TestAdaptiveThresholdCorners(t *testing.T) {
	buf := uniform(t, 64, 64, 0)
	// a bright corner block against black
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			buf.Set(x, y, 200, 200, 200, 255)
		}
	}
	buf.Set(63, 63, 90, 90, 90, 128)

	require.NoError(t, buf.AdaptiveThreshold(context.Background(), ThresholdRadius, ThresholdConstant))

	r, g, b, _ := buf.At(0, 0)
	assert.Equal(t, []uint8{255, 255, 255}, []uint8{r, g, b})
	r, _, _, a := buf.At(63, 63)
	assert.Equal(t, uint8(255), r)
	assert.Equal(t, uint8(128), a)
	// uniform black interior: 0 > 0-5
	r, _, _, _ = buf.At(40, 40)
	assert.Equal(t, uint8(255), r)
	// dark pixel next to the bright block
	r, _, _, _ = buf.At(5, 5)
	assert.Equal(t, uint8(0), r)
}

func TestUpscaleDimensions(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 11, 7))
	for i := range src.Pix {
		src.Pix[i] = 200
	}

	buf, err := Upscale(src, 2.5)
	require.NoError(t, err)
	assert.Equal(t, 27, buf.Width)
	assert.Equal(t, 17, buf.Height)

	_, err = Upscale(src, 0)
	assert.Error(t, err)
}

func TestBrightnessStatsUniformGray(t *testing.T) {
	src := image.NewUniform(color.NRGBA{R: 128, G: 128, B: 128, A: 255})
	buf, err := Preview(imageOf(src, 320, 240), 100, 100)
	require.NoError(t, err)

	s := buf.BrightnessStats()
	assert.InDelta(t, 128, s.Mean, 1e-9)
	assert.InDelta(t, 0, s.StdDev, 1e-9)
}

func imageOf(src image.Image, w, h int) image.Image {
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Set(x, y, src.At(x, y))
		}
	}
	return dst
}
