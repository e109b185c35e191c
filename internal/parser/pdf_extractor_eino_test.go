package parser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-screening-go/internal/processor"
	"resume-screening-go/internal/types"
)

func TestNewEinoPDFTextExtractor(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	extractor, err := NewEinoPDFTextExtractor(ctx, WithEinoTimeout(3*time.Second))
	require.NoError(t, err, "创建PDF提取器不应返回错误")
	require.NotNil(t, extractor.parser, "PDF提取器内部的parser不应为nil")
	assert.Equal(t, 3*time.Second, extractor.timeout)
}

// TestEinoPDFRejectsGarbage 非PDF内容应当被识别为损坏文档
func TestEinoPDFRejectsGarbage(t *testing.T) {
	ctx := context.Background()
	extractor, err := NewEinoPDFTextExtractor(ctx)
	require.NoError(t, err)

	doc := NewDocumentExtractor(extractor)
	_, err = doc.ExtractBytes(ctx, "resume.pdf", []byte("definitely not a pdf"), types.FormatPaginated)
	require.Error(t, err)
	assert.True(t, errors.Is(err, processor.ErrCorruptDocument))
}
