// Package extract obtains raw text from uploaded files. Rich formats such
// as PDF are handled by external extractors behind the same interface.
package extract

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"docchat/internal/domain"
)

// PlainText extracts text from plain-text files (.txt, .md and friends).
type PlainText struct{}

func NewPlainText() *PlainText { return &PlainText{} }

var textExtensions = map[string]bool{
	"":     true,
	".txt": true,
	".md":  true,
	".rst": true,
	".log": true,
}

// Extract returns the file content as a string. Unknown extensions and
// binary content are rejected.
func (PlainText) Extract(filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !textExtensions[ext] {
		return "", fmt.Errorf("%w: unsupported file type %q", domain.ErrExtraction, ext)
	}
	if bytes.ContainsRune(data, 0) || !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s does not contain valid text", domain.ErrExtraction, filename)
	}
	return string(data), nil
}
