package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-screening-go/internal/processor"
	"resume-screening-go/internal/types"
)

const sampleDocumentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p>
    <w:p><w:r><w:t xml:space="preserve">Skills: </w:t></w:r><w:r><w:t>Python</w:t></w:r><w:r><w:tab/><w:t>Docker</w:t></w:r></w:p>
    <w:p><w:r><w:t>5 years of experience</w:t></w:r></w:p>
  </w:body>
</w:document>`

func buildDocx(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestFormatFromFilename(t *testing.T) {
	cases := map[string]types.DocumentFormat{
		"cv.txt":         types.FormatText,
		"CV.DOCX":        types.FormatRichText,
		"dir/resume.pdf": types.FormatPaginated,
	}
	for name, want := range cases {
		got, err := FormatFromFilename(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := FormatFromFilename("photo.png")
	assert.True(t, errors.Is(err, processor.ErrUnsupportedFormat))
	_, err = FormatFromFilename("README")
	assert.True(t, errors.Is(err, processor.ErrUnsupportedFormat))
}

func TestIsAllowedExtension(t *testing.T) {
	allowed := []string{"pdf", ".docx", "txt"}
	assert.True(t, IsAllowedExtension("a.PDF", allowed))
	assert.True(t, IsAllowedExtension("a.docx", allowed))
	assert.False(t, IsAllowedExtension("a.doc", allowed))
	assert.False(t, IsAllowedExtension("noext", allowed))
}

func TestExtractPlainText(t *testing.T) {
	doc := NewDocumentExtractor(nil)

	text, err := doc.ExtractBytes(context.Background(), "cv.txt", []byte("Python and Go"), "")
	require.NoError(t, err)
	assert.Equal(t, "Python and Go", text)

	_, err = doc.ExtractBytes(context.Background(), "cv.txt", []byte{0xff, 0xfe, 0x00}, types.FormatText)
	assert.True(t, errors.Is(err, processor.ErrCorruptDocument), "非UTF-8文本应视为损坏")
}

func TestExtractDocx(t *testing.T) {
	doc := NewDocumentExtractor(nil)
	data := buildDocx(t, map[string]string{"word/document.xml": sampleDocumentXML})

	text, err := doc.ExtractBytes(context.Background(), "cv.docx", data, "")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nSkills: Python\tDocker\n5 years of experience", text)
}

func TestExtractDocxCorrupt(t *testing.T) {
	doc := NewDocumentExtractor(nil)

	_, err := doc.ExtractBytes(context.Background(), "cv.docx", []byte("not a zip"), "")
	assert.True(t, errors.Is(err, processor.ErrCorruptDocument))

	noBody := buildDocx(t, map[string]string{"word/styles.xml": "<x/>"})
	_, err = doc.ExtractBytes(context.Background(), "cv.docx", noBody, "")
	assert.True(t, errors.Is(err, processor.ErrCorruptDocument))
}

func TestExtractPaginatedWithoutParser(t *testing.T) {
	doc := NewDocumentExtractor(nil)
	_, err := doc.ExtractBytes(context.Background(), "cv.pdf", []byte("%PDF"), "")
	assert.True(t, errors.Is(err, processor.ErrUnsupportedFormat))
}

type staticPDF struct{ text string }

func (s staticPDF) ExtractTextFromBytes(context.Context, []byte, string) (string, error) {
	return s.text, nil
}

func TestExtractTextFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resume.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0644))

	doc := NewDocumentExtractor(nil, WithPaginatedExtractor(staticPDF{text: "Kubernetes"}))
	text, err := doc.ExtractText(context.Background(), path, "")
	require.NoError(t, err)
	assert.Equal(t, "Kubernetes", text)

	_, err = doc.ExtractText(context.Background(), filepath.Join(dir, "missing.txt"), "")
	assert.True(t, errors.Is(err, processor.ErrInvalidInput))

	_, err = doc.ExtractText(context.Background(), filepath.Join(dir, "image.png"), "")
	assert.True(t, errors.Is(err, processor.ErrUnsupportedFormat))
}
