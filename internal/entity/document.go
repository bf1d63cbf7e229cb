package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

// RawDocument is an uploaded file handed to the pipeline. The pipeline only
// reads Data and never retains it after Process returns.
type RawDocument struct {
	Name       string `json:"name"`
	MediaType  string `json:"media_type"`
	Data       []byte `json:"-"`
	SourcePath string `json:"source_path,omitempty"`
}

// Size returns the length of the payload in bytes.
func (d RawDocument) Size() int64 { return int64(len(d.Data)) }

// Ext returns the lowercase extension of Name without the dot.
func (d RawDocument) Ext() string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(d.Name), "."))
}

// ContentHash returns the hex SHA-256 of Data.
func (d RawDocument) ContentHash() string {
	sum := sha256.Sum256(d.Data)
	return hex.EncodeToString(sum[:])
}
