package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/domain"
)

func TestExtractPlainText(t *testing.T) {
	e := NewPlainText()

	text, err := e.Extract("notes.txt", []byte("Hello there."))
	require.NoError(t, err)
	assert.Equal(t, "Hello there.", text)

	// extension matching is case-insensitive, no extension is fine
	_, err = e.Extract("README.MD", []byte("# hi"))
	assert.NoError(t, err)
	_, err = e.Extract("LICENSE", []byte("plain"))
	assert.NoError(t, err)
}

func TestExtractRejectsUnknownExtension(t *testing.T) {
	e := NewPlainText()

	_, err := e.Extract("report.pdf", []byte("%PDF-1.4"))
	assert.ErrorIs(t, err, domain.ErrExtraction)
}

func TestExtractRejectsBinaryContent(t *testing.T) {
	e := NewPlainText()

	_, err := e.Extract("data.txt", []byte{0x00, 0x01, 0x02})
	assert.ErrorIs(t, err, domain.ErrExtraction)

	_, err = e.Extract("bad.txt", []byte{0xff, 0xfe, 0xfd})
	assert.ErrorIs(t, err, domain.ErrExtraction)
}
