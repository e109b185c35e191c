package parser

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-screening-go/internal/processor"
	"resume-screening-go/internal/types"
)

// 创建一个模拟的Tika服务器，记录收到的请求头
func createMockTikaServer(t *testing.T, status int) (*httptest.Server, *http.Header) {
	t.Helper()
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_, _ = io.ReadAll(r.Body)
		if r.URL.Path != "/tika" || r.Method != http.MethodPut {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write([]byte("Senior engineer with Kubernetes and Docker"))
		}
	}))
	t.Cleanup(server.Close)
	return server, &got
}

func TestNewTikaExtractor(t *testing.T) {
	extractor := NewTikaExtractor("http://localhost:9998/", WithTimeout(30*time.Second), WithAnnotations(false))
	assert.Equal(t, "http://localhost:9998", extractor.ServerURL, "末尾的斜杠应被去掉")
	assert.Equal(t, 30*time.Second, extractor.Client.Timeout)
	assert.False(t, extractor.extractAnnotations)
}

func TestTikaExtract(t *testing.T) {
	server, headers := createMockTikaServer(t, http.StatusOK)
	extractor := NewTikaExtractor(server.URL, WithAnnotations(false))

	text, err := extractor.Extract(context.Background(), []byte("%PDF-1.4"), "cv.pdf", types.FormatPaginated)
	require.NoError(t, err)
	assert.Equal(t, "Senior engineer with Kubernetes and Docker", text)
	assert.Equal(t, "application/pdf", headers.Get("Content-Type"))
	assert.Equal(t, "text/plain", headers.Get("Accept"))
	assert.Equal(t, "cv.pdf", headers.Get("X-Tika-Resource-Name"))
	assert.Equal(t, "false", headers.Get("X-Tika-PDFExtractAnnotationText"))
}

// TestDocumentExtractorWithTika 配置Tika后docx也交给Tika处理
func TestDocumentExtractorWithTika(t *testing.T) {
	server, headers := createMockTikaServer(t, http.StatusOK)
	doc := NewDocumentExtractor(nil, WithTika(NewTikaExtractor(server.URL)))

	text, err := doc.ExtractBytes(context.Background(), "cv.docx", []byte("PK"), "")
	require.NoError(t, err)
	assert.Contains(t, text, "Kubernetes")
	assert.Equal(t, contentTypes[types.FormatRichText], headers.Get("Content-Type"))
}

func TestTikaServerError(t *testing.T) {
	server, _ := createMockTikaServer(t, http.StatusUnprocessableEntity)
	doc := NewDocumentExtractor(nil, WithTika(NewTikaExtractor(server.URL)))

	_, err := doc.ExtractBytes(context.Background(), "cv.pdf", []byte("%PDF"), types.FormatPaginated)
	require.Error(t, err)
	assert.True(t, errors.Is(err, processor.ErrCorruptDocument))
}
