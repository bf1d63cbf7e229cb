package constants

import "strings"

// Source formats a document can be routed to.
const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
)

// Media types the pipeline knows how to decode or extract.
const (
	MediaTypePDF  = "application/pdf"
	MediaTypePNG  = "image/png"
	MediaTypeJPEG = "image/jpeg"
	MediaTypeGIF  = "image/gif"
	MediaTypeBMP  = "image/bmp"
	MediaTypeTIFF = "image/tiff"
	MediaTypeWEBP = "image/webp"
	MediaTypeHEIC = "image/heic"
	MediaTypeHEIF = "image/heif"
)

// AllowedExtensions maps accepted file extensions (lowercase, no dot) to their media type.
var AllowedExtensions = map[string]string{
	"pdf":  MediaTypePDF,
	"jpg":  MediaTypeJPEG,
	"jpeg": MediaTypeJPEG,
	"png":  MediaTypePNG,
	"gif":  MediaTypeGIF,
	"bmp":  MediaTypeBMP,
	"tif":  MediaTypeTIFF,
	"tiff": MediaTypeTIFF,
	"webp": MediaTypeWEBP,
	"heic": MediaTypeHEIC,
	"heif": MediaTypeHEIF,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// NormalizeMediaType lowercases a media type and strips any parameters.
func NormalizeMediaType(mt string) string {
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

// MediaTypeForExt returns the media type registered for ext, or "" if unknown.
func MediaTypeForExt(ext string) string {
	return AllowedExtensions[NormalizeExt(ext)]
}

// MapExtToFormat maps a file extension to PDF or IMAGE; "" when unsupported.
func MapExtToFormat(ext string) string {
	return MapMediaTypeToFormat(MediaTypeForExt(ext))
}

// MapMediaTypeToFormat maps a media type to PDF or IMAGE; "" when unsupported.
func MapMediaTypeToFormat(mt string) string {
	switch {
	case IsPDFMediaType(mt):
		return PDF
	case IsImageMediaType(mt):
		return IMAGE
	default:
		return ""
	}
}

// IsImageMediaType reports whether mt is any image/* type.
func IsImageMediaType(mt string) bool {
	return strings.HasPrefix(NormalizeMediaType(mt), "image/")
}

// IsPDFMediaType reports whether mt is application/pdf.
func IsPDFMediaType(mt string) bool {
	return NormalizeMediaType(mt) == MediaTypePDF
}

// IsHEICMediaType reports whether mt needs an external HEIC/HEIF conversion before decoding.
func IsHEICMediaType(mt string) bool {
	mt = NormalizeMediaType(mt)
	return mt == MediaTypeHEIC || mt == MediaTypeHEIF
}
