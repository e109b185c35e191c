package processor

import (
	"context"
	"time"

	"resume-screening-go/internal/types"
)

//
// 文档解析相关接口
//

// TextExtractor 文档文本提取接口。format 为空时由实现根据文件名推断
type TextExtractor interface {
	// ExtractText 从本地文件提取纯文本
	ExtractText(ctx context.Context, path string, format types.DocumentFormat) (string, error)

	// ExtractBytes 从内存中的文档内容提取纯文本
	ExtractBytes(ctx context.Context, name string, data []byte, format types.DocumentFormat) (string, error)
}

//
// AI增强相关接口
//

// TextEnricher 外部AI增强接口，失败时返回 ErrAugmentationUnavailable
type TextEnricher interface {
	Enrich(ctx context.Context, text string) (*types.Enrichment, error)
}

//
// 训练语料与模型相关接口
//

// CorpusLoader 训练语料加载接口
type CorpusLoader interface {
	Load(ctx context.Context) ([]types.TrainingSample, error)
}

// JobCatalog 岗位模板与示例职位来源
type JobCatalog interface {
	Templates() []types.JobTemplate
	Postings() []types.JobPosting
}

//
// 缓存与指标
//

// ResultCache 分析结果缓存接口，未命中时 found 为 false
type ResultCache interface {
	GetAnalysis(ctx context.Context, key string) (result *types.AnalysisResult, found bool, err error)
	SetAnalysis(ctx context.Context, key string, result *types.AnalysisResult) error
}

// MetricsRecorder 指标记录接口
type MetricsRecorder interface {
	ObserveAnalysis(method types.AnalysisMethod, elapsed time.Duration)
	ObserveEnrichment(outcome string)
	AddClassifierFaults(n int)
	SetModelState(trained bool, classifiers int)
}

type nopMetrics struct{}

func (nopMetrics) ObserveAnalysis(types.AnalysisMethod, time.Duration) {}
func (nopMetrics) ObserveEnrichment(string)                            {}
func (nopMetrics) AddClassifierFaults(int)                             {}
func (nopMetrics) SetModelState(bool, int)                             {}
