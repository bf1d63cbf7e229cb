package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/joseph-ayodele/medrecords/constants"
)

// JPEGQuality matches the 0.95 quality the enhanced output is written with.
const JPEGQuality = 95

// Decode reads any registered raster format (png, jpeg, gif, bmp, tiff, webp).
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("empty image data")
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return img, format, nil
}

// DecodeBuffer decodes data straight into a PixelBuffer.
func DecodeBuffer(data []byte) (*PixelBuffer, error) {
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return FromImage(img)
}

// Encode writes img in the requested media type and returns the media type
// actually produced. Formats without an encoder (webp) are written as PNG.
func Encode(w io.Writer, img image.Image, mediaType string) (string, error) {
	switch mt := constants.NormalizeMediaType(mediaType); mt {
	case constants.MediaTypeJPEG, "image/jpg":
		return constants.MediaTypeJPEG, jpeg.Encode(w, img, &jpeg.Options{Quality: JPEGQuality})
	case constants.MediaTypeGIF:
		return mt, gif.Encode(w, img, nil)
	case constants.MediaTypeBMP:
		return mt, bmp.Encode(w, img)
	case constants.MediaTypeTIFF:
		return mt, tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case constants.MediaTypePNG:
		return mt, png.Encode(w, img)
	default:
		return constants.MediaTypePNG, png.Encode(w, img)
	}
}

// EncodeBytes is Encode into a fresh byte slice.
func EncodeBytes(img image.Image, mediaType string) ([]byte, string, error) {
	var buf bytes.Buffer
	mt, err := Encode(&buf, img, mediaType)
	if err != nil {
		return nil, "", fmt.Errorf("encode %s: %w", mediaType, err)
	}
	return buf.Bytes(), mt, nil
}
