package constants

// ProcessingMethod records which path produced a ProcessingResult.
type ProcessingMethod string

// Stable values (stored verbatim by the persistence layer).
const (
	MethodOCR    ProcessingMethod = "ocr"    // raster image recognition
	MethodPDF    ProcessingMethod = "pdf"    // PDF text layer
	MethodNone   ProcessingMethod = "none"   // unsupported media type
	MethodFailed ProcessingMethod = "failed" // extraction error or cancellation
)

// Stage labels emitted on the progress stream, in emission order.
type Stage string

const (
	StagePreprocessing Stage = "preprocessing" // image path only
	StageExtracting    Stage = "extracting"
	StageAnalyzing     Stage = "analyzing"
	StageComplete      Stage = "complete"
)

// ProcessingMethodDescription returns the human-readable name of the path a media type takes.
func ProcessingMethodDescription(mediaType string) string {
	switch MapMediaTypeToFormat(mediaType) {
	case IMAGE:
		return "OCR (Optical Character Recognition)"
	case PDF:
		return "PDF Text Extraction"
	default:
		return "Not Supported"
	}
}
