package processor

import (
	"time"

	"github.com/rs/zerolog"

	"resume-screening-go/internal/classifier"
)

// Option SkillAnalyzer 选项函数类型
type Option func(*SkillAnalyzer)

// WithTextExtractor 设置文档文本提取器
func WithTextExtractor(extractor TextExtractor) Option {
	return func(a *SkillAnalyzer) {
		a.extractor = extractor
	}
}

// WithEnricher 设置AI增强器及其超时时间
func WithEnricher(enricher TextEnricher, timeout time.Duration) Option {
	return func(a *SkillAnalyzer) {
		a.enricher = enricher
		if timeout > 0 {
			a.enrichTimeout = timeout
		}
	}
}

// WithCorpusLoader 设置重新训练使用的语料来源
func WithCorpusLoader(loader CorpusLoader) Option {
	return func(a *SkillAnalyzer) {
		a.corpus = loader
	}
}

// WithCatalog 设置岗位模板与示例职位
func WithCatalog(catalog JobCatalog) Option {
	return func(a *SkillAnalyzer) {
		a.catalog = catalog
	}
}

// WithResultCache 设置分析结果缓存
func WithResultCache(cache ResultCache) Option {
	return func(a *SkillAnalyzer) {
		a.cache = cache
	}
}

// WithMetrics 设置指标记录器
func WithMetrics(m MetricsRecorder) Option {
	return func(a *SkillAnalyzer) {
		if m != nil {
			a.metrics = m
		}
	}
}

// WithTopN 设置分类器返回的技能上限
func WithTopN(n int) Option {
	return func(a *SkillAnalyzer) {
		if n > 0 {
			a.topN = n
		}
	}
}

// WithBatchConcurrency 设置批量分析并发数
func WithBatchConcurrency(n int) Option {
	return func(a *SkillAnalyzer) {
		if n > 0 {
			a.batchConcurrency = n
		}
	}
}

// WithTemplateShortcut 开启JD模板快捷匹配：与模板描述共有超过 threshold 个词时直接复用模板技能
func WithTemplateShortcut(enabled bool, threshold int) Option {
	return func(a *SkillAnalyzer) {
		a.templateShortcut = enabled
		if threshold > 0 {
			a.templateThreshold = threshold
		}
	}
}

// WithClassifierOptions 设置重新训练时的分类器参数
func WithClassifierOptions(opts ...classifier.Option) Option {
	return func(a *SkillAnalyzer) {
		a.classifierOpts = append(a.classifierOpts, opts...)
	}
}

// WithLogger 设置日志记录器
func WithLogger(l zerolog.Logger) Option {
	return func(a *SkillAnalyzer) {
		a.log = l
	}
}
