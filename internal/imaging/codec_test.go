package imaging

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/medrecords/constants"
)

func TestEncodeDecodeKeepsMediaType(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 4))
	img.Set(3, 2, color.NRGBA{R: 255, A: 255})

	for _, mt := range []string{constants.MediaTypePNG, constants.MediaTypeJPEG, constants.MediaTypeBMP, constants.MediaTypeTIFF} {
		data, got, err := EncodeBytes(img, mt)
		require.NoError(t, err, mt)
		assert.Equal(t, mt, got)

		buf, err := DecodeBuffer(data)
		require.NoError(t, err, mt)
		assert.Equal(t, 8, buf.Width)
		assert.Equal(t, 4, buf.Height)
	}
}

func TestEncodeWebPFallsBackToPNG(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	_, got, err := EncodeBytes(img, constants.MediaTypeWEBP)
	require.NoError(t, err)
	assert.Equal(t, constants.MediaTypePNG, got)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, _, err := Decode([]byte("not an image"))
	assert.Error(t, err)
	_, _, err = Decode(nil)
	assert.Error(t, err)
}
