package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"resume-screening-go/internal/logger"
	"resume-screening-go/internal/processor"
	"resume-screening-go/internal/types"
)

// BinaryExtractor 从文档字节中取出纯文本
type BinaryExtractor interface {
	ExtractTextFromBytes(ctx context.Context, data []byte, uri string) (string, error)
}

// 确保DocumentExtractor实现了processor.TextExtractor接口
var _ processor.TextExtractor = (*DocumentExtractor)(nil)

// FormatFromFilename 根据扩展名推断文档格式
func FormatFromFilename(name string) (types.DocumentFormat, error) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")) {
	case "txt":
		return types.FormatText, nil
	case "docx":
		return types.FormatRichText, nil
	case "pdf":
		return types.FormatPaginated, nil
	default:
		return "", processor.NewUnsupportedFormatError(name, "仅支持 pdf, docx, txt")
	}
}

// IsAllowedExtension 判断文件扩展名是否在允许列表中
func IsAllowedExtension(name string, allowed []string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" {
		return false
	}
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimPrefix(a, "."), ext) {
			return true
		}
	}
	return false
}

// DocumentExtractor 按文档格式分派到具体的提取器
type DocumentExtractor struct {
	paginated BinaryExtractor
	richText  BinaryExtractor
	log       zerolog.Logger
}

// ExtractorOption DocumentExtractor 的配置选项
type ExtractorOption func(*DocumentExtractor)

// WithTika 使用 Tika 服务器处理分页与富文本文档
func WithTika(t *TikaExtractor) ExtractorOption {
	return func(d *DocumentExtractor) {
		if t == nil {
			return
		}
		d.paginated = t.forFormat(types.FormatPaginated)
		d.richText = t.forFormat(types.FormatRichText)
	}
}

// WithPaginatedExtractor 替换分页文档提取器
func WithPaginatedExtractor(e BinaryExtractor) ExtractorOption {
	return func(d *DocumentExtractor) {
		d.paginated = e
	}
}

// NewDocumentExtractor 创建文档提取器。pdf 为 nil 时分页文档不可用，除非通过 WithTika 配置
func NewDocumentExtractor(pdf *EinoPDFTextExtractor, opts ...ExtractorOption) *DocumentExtractor {
	d := &DocumentExtractor{
		richText: DocxExtractor{},
		log:      logger.Component("document_extractor"),
	}
	if pdf != nil {
		d.paginated = pdf
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ExtractText 从本地文件提取纯文本
func (d *DocumentExtractor) ExtractText(ctx context.Context, path string, format types.DocumentFormat) (string, error) {
	name := filepath.Base(path)
	if format == "" {
		f, err := FormatFromFilename(name)
		if err != nil {
			return "", err
		}
		format = f
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", processor.NewInputError("ingest", fmt.Sprintf("文件不存在: %s", path))
		}
		return "", processor.NewCorruptDocumentError(name, err.Error())
	}
	return d.ExtractBytes(ctx, name, data, format)
}

// ExtractBytes 从内存中的文档内容提取纯文本
func (d *DocumentExtractor) ExtractBytes(ctx context.Context, name string, data []byte, format types.DocumentFormat) (string, error) {
	if format == "" {
		f, err := FormatFromFilename(name)
		if err != nil {
			return "", err
		}
		format = f
	}

	var (
		text string
		err  error
	)
	switch format {
	case types.FormatText:
		if !utf8.Valid(data) {
			return "", processor.NewCorruptDocumentError(name, "文本不是有效的UTF-8编码")
		}
		text = string(data)
	case types.FormatRichText:
		text, err = d.richText.ExtractTextFromBytes(ctx, data, name)
	case types.FormatPaginated:
		if d.paginated == nil {
			return "", processor.NewUnsupportedFormatError(name, "未配置PDF解析器")
		}
		text, err = d.paginated.ExtractTextFromBytes(ctx, data, name)
	default:
		return "", processor.NewUnsupportedFormatError(name, fmt.Sprintf("未知格式 %q", format))
	}

	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		d.log.Warn().Err(err).Str("document", name).Str("format", string(format)).Msg("文档解析失败")
		return "", processor.NewCorruptDocumentError(name, err.Error())
	}
	return text, nil
}
