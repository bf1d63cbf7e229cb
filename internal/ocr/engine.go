package ocr

import "context"

// Options parameterise a recognition run.
type Options struct {
	Languages   []string
	PSM         int
	OEM         int
	TessdataDir string
}

// Recognition is what an engine reports for one image.
type Recognition struct {
	Text       string
	Confidence float64 // mean word confidence, 0..100
	Words      int
}

// Engine recognises text in an encoded raster image.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, image []byte, opts Options) (Recognition, error)
}
