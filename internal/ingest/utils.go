package ingest

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/medrecords/constants"
)

// AllowedExt checks if a file extension is one the pipeline can route.
func AllowedExt(ext string) bool {
	_, ok := constants.AllowedExtensions[constants.NormalizeExt(ext)]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}

// DetectMediaType prefers the extension of name and falls back to sniffing data.
func DetectMediaType(name string, data []byte) string {
	if mt := constants.MediaTypeForExt(filepath.Ext(name)); mt != "" {
		return mt
	}
	return constants.NormalizeMediaType(http.DetectContentType(data))
}
