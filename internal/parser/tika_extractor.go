package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"resume-screening-go/internal/logger"
	"resume-screening-go/internal/types"
)

// contentTypes Tika 请求头使用的 MIME 类型
var contentTypes = map[types.DocumentFormat]string{
	types.FormatPaginated: "application/pdf",
	types.FormatRichText:  "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	types.FormatText:      "text/plain",
}

// TikaExtractor 是基于Apache Tika服务器的文本提取器，支持 PDF 与 DOCX
type TikaExtractor struct {
	// Tika服务器地址，例如 http://localhost:9998
	ServerURL string
	// HTTP客户端，可配置超时等参数
	Client *http.Client
	// 是否提取链接注释文本
	extractAnnotations bool
	log                zerolog.Logger
}

// TikaOption 定义配置选项函数
type TikaOption func(*TikaExtractor)

// WithAnnotations 配置是否提取PDF链接注释文本
func WithAnnotations(extract bool) TikaOption {
	return func(e *TikaExtractor) {
		e.extractAnnotations = extract
	}
}

// WithTikaLogger 配置自定义日志记录器
func WithTikaLogger(l zerolog.Logger) TikaOption {
	return func(e *TikaExtractor) {
		e.log = l
	}
}

// WithTimeout 配置HTTP客户端超时时间
func WithTimeout(timeout time.Duration) TikaOption {
	return func(e *TikaExtractor) {
		e.Client.Timeout = timeout
	}
}

// NewTikaExtractor 创建一个新的Tika文本提取器
func NewTikaExtractor(serverURL string, options ...TikaOption) *TikaExtractor {
	extractor := &TikaExtractor{
		ServerURL:          strings.TrimRight(serverURL, "/"),
		Client:             &http.Client{Timeout: 60 * time.Second},
		extractAnnotations: true,
		log:                logger.Component("tika"),
	}
	for _, option := range options {
		option(extractor)
	}
	return extractor
}

// forFormat 返回绑定了文档格式的提取器
func (e *TikaExtractor) forFormat(format types.DocumentFormat) BinaryExtractor {
	return tikaFormat{e: e, format: format}
}

type tikaFormat struct {
	e      *TikaExtractor
	format types.DocumentFormat
}

func (t tikaFormat) ExtractTextFromBytes(ctx context.Context, data []byte, uri string) (string, error) {
	return t.e.Extract(ctx, data, uri, t.format)
}

// Extract 将文档内容 PUT 到 /tika，返回纯文本
func (e *TikaExtractor) Extract(ctx context.Context, data []byte, uri string, format types.DocumentFormat) (string, error) {
	startTime := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, e.ServerURL+"/tika", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("创建HTTP请求失败: %w", err)
	}

	if ct, ok := contentTypes[format]; ok {
		req.Header.Set("Content-Type", ct)
	}
	req.Header.Set("Accept", "text/plain")
	if uri != "" {
		req.Header.Set("X-Tika-Resource-Name", uri)
	}
	if !e.extractAnnotations {
		req.Header.Set("X-Tika-PDFExtractAnnotationText", "false")
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("发送请求到Tika服务器失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tika服务器返回错误状态码: %d", resp.StatusCode)
	}

	textBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("读取Tika响应失败: %w", err)
	}

	e.log.Debug().
		Str("uri", uri).
		Str("format", string(format)).
		Int("chars", len(textBytes)).
		Dur("elapsed", time.Since(startTime)).
		Msg("Tika文本提取完成")
	return string(textBytes), nil
}
