package processor

import (
	"errors"
	"fmt"
)

// 定义基础错误类型
var (
	ErrInvalidInput            = errors.New("输入为空或缺失")
	ErrUnsupportedFormat       = errors.New("不支持的文档格式")
	ErrCorruptDocument         = errors.New("文档损坏或无法解析")
	ErrClassifierScoring       = errors.New("分类器评分失败")
	ErrAugmentationUnavailable = errors.New("AI增强服务不可用")
	ErrNoCorpusSource          = errors.New("未配置训练语料来源")
)

// 错误类别标签，用于批量结果与HTTP响应
const (
	KindInput       = "input_error"
	KindUnsupported = "unsupported_format"
	KindCorrupt     = "corrupt_document"
	KindInternal    = "internal_error"
)

// AnalysisError 包含详细错误信息的自定义错误
type AnalysisError struct {
	Document string
	Op       string
	BaseErr  error
	Detail   string
}

func (e *AnalysisError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (操作:%s, 文档:%s): %s", e.BaseErr, e.Op, e.Document, e.Detail)
	}
	return fmt.Sprintf("%s (操作:%s, 文档:%s)", e.BaseErr, e.Op, e.Document)
}

func (e *AnalysisError) Unwrap() error {
	return e.BaseErr
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *AnalysisError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// 错误构造函数
func NewInputError(op, detail string) error {
	return &AnalysisError{
		Op:      op,
		BaseErr: ErrInvalidInput,
		Detail:  detail,
	}
}

func NewUnsupportedFormatError(document, detail string) error {
	return &AnalysisError{
		Document: document,
		Op:       "ingest",
		BaseErr:  ErrUnsupportedFormat,
		Detail:   detail,
	}
}

func NewCorruptDocumentError(document, detail string) error {
	return &AnalysisError{
		Document: document,
		Op:       "ingest",
		BaseErr:  ErrCorruptDocument,
		Detail:   detail,
	}
}

func NewAugmentationError(detail string) error {
	return &AnalysisError{
		Op:      "enrich",
		BaseErr: ErrAugmentationUnavailable,
		Detail:  detail,
	}
}

// ErrorKind 将错误映射为对外的类别标签
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return KindInput
	case errors.Is(err, ErrUnsupportedFormat):
		return KindUnsupported
	case errors.Is(err, ErrCorruptDocument):
		return KindCorrupt
	default:
		return KindInternal
	}
}
