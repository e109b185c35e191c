// Package bootstrap 按配置组装分析服务的各个组件，供 HTTP 服务和命令行工具共用
package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"resume-screening-go/internal/agent"
	"resume-screening-go/internal/classifier"
	"resume-screening-go/internal/config"
	"resume-screening-go/internal/logger"
	"resume-screening-go/internal/parser"
	"resume-screening-go/internal/processor"
	"resume-screening-go/internal/reference"
	"resume-screening-go/internal/skills"
	"resume-screening-go/internal/storage"
)

// Components 组装好的分析组件
type Components struct {
	Catalog   *reference.Catalog
	Vocab     *skills.Vocabulary
	Extractor *parser.DocumentExtractor
	Analyzer  *processor.SkillAnalyzer
}

// Build 创建词表、文档提取器、增强器和语料来源，并返回分析编排器。
// store 可为 nil，metrics 可为 nil
func Build(ctx context.Context, cfg *config.Config, store *storage.Storage, metrics processor.MetricsRecorder) (*Components, error) {
	catalog, err := reference.NewCatalog()
	if err != nil {
		return nil, fmt.Errorf("加载参考数据失败: %w", err)
	}
	source, err := catalog.LoadVocabularySource(cfg.Skills.VocabularyFile)
	if err != nil {
		return nil, err
	}
	// 词表为空时进程无法工作
	vocab, err := skills.NewVocabulary(source)
	if err != nil {
		return nil, fmt.Errorf("初始化技能词表失败: %w", err)
	}

	extractor, err := NewExtractor(ctx, cfg)
	if err != nil {
		return nil, err
	}
	enricher, err := NewEnricher(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts := []processor.Option{
		processor.WithTextExtractor(extractor),
		processor.WithCatalog(catalog),
		processor.WithTopN(cfg.Skills.TopN),
		processor.WithBatchConcurrency(cfg.Skills.BatchConcurrency),
		processor.WithTemplateShortcut(cfg.Skills.TemplateShortcut.Enabled, cfg.Skills.TemplateShortcut.Threshold),
		processor.WithClassifierOptions(ClassifierOptions(cfg.Classifier)...),
	}
	if enricher != nil {
		opts = append(opts, processor.WithEnricher(enricher, config.GetDuration(cfg.Enricher.Timeout, 10*time.Second)))
	}
	if loader, err := NewCorpusLoader(cfg.Corpus, store); err != nil {
		logger.Warn().Err(err).Str("source", cfg.Corpus.Source).Msg("训练语料来源不可用，模型训练接口将被禁用")
	} else if loader != nil {
		opts = append(opts, processor.WithCorpusLoader(loader))
	}
	if store != nil && store.Redis != nil {
		opts = append(opts, processor.WithResultCache(store.Redis))
	}
	if metrics != nil {
		opts = append(opts, processor.WithMetrics(metrics))
	}

	return &Components{
		Catalog:   catalog,
		Vocab:     vocab,
		Extractor: extractor,
		Analyzer:  processor.NewSkillAnalyzer(vocab, nil, nil, opts...),
	}, nil
}

// ClassifierOptions 将配置转换为分类器选项
func ClassifierOptions(c config.ClassifierConfig) []classifier.Option {
	return []classifier.Option{
		classifier.WithMaxFeatures(c.MaxFeatures),
		classifier.WithMinPositives(c.MinPositives),
		classifier.WithMinAccuracy(c.MinAccuracy),
		classifier.WithThreshold(c.Threshold),
		classifier.WithFallbackConfidence(c.FallbackConfidence),
		classifier.WithSeed(c.Seed),
		classifier.WithIterations(c.Iterations),
		classifier.WithLearningRate(c.LearningRate),
		classifier.WithC(c.C),
	}
}

// NewExtractor 配置了 Tika 时由 Tika 处理 pdf 与 docx，否则使用 eino PDF 解析器和内置 docx 解析
func NewExtractor(ctx context.Context, cfg *config.Config) (*parser.DocumentExtractor, error) {
	if cfg.Tika.ServerURL != "" {
		tika := parser.NewTikaExtractor(cfg.Tika.ServerURL,
			parser.WithTimeout(time.Duration(cfg.Tika.Timeout)*time.Second),
			parser.WithTikaLogger(logger.Component("tika")),
		)
		logger.Info().Str("server", cfg.Tika.ServerURL).Msg("使用Tika文档解析器")
		return parser.NewDocumentExtractor(nil, parser.WithTika(tika)), nil
	}

	pdf, err := parser.NewEinoPDFTextExtractor(ctx, parser.WithEinoLogger(logger.Component("eino_pdf")))
	if err != nil {
		return nil, fmt.Errorf("创建Eino PDF提取器失败: %w", err)
	}
	logger.Info().Msg("使用Eino PDF解析器")
	return parser.NewDocumentExtractor(pdf), nil
}

// NewEnricher 按 provider 创建外部AI增强器，none 返回 nil
func NewEnricher(ctx context.Context, cfg *config.Config) (processor.TextEnricher, error) {
	ec := cfg.Enricher
	resilience := parser.ResilienceConfig{
		Name:        ec.Provider,
		MaxFailures: ec.Breaker.MaxFailures,
		OpenTimeout: config.GetDuration(ec.Breaker.OpenTimeout, 30*time.Second),
		Interval:    config.GetDuration(ec.Breaker.Interval, time.Minute),
		QPM:         ec.QPM,
	}

	switch strings.ToLower(ec.Provider) {
	case "", "none":
		return nil, nil
	case "gemini":
		if cfg.Gemini.APIKey == "" {
			return nil, fmt.Errorf("gemini 增强需要配置 api_key")
		}
		gemini, err := parser.NewGeminiEnricher(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.Temperature)
		if err != nil {
			return nil, fmt.Errorf("初始化Gemini增强器失败: %w", err)
		}
		logger.Info().Str("model", cfg.Gemini.Model).Msg("Gemini增强器初始化成功")
		return parser.NewResilientEnricher(gemini, resilience), nil
	case "qwen":
		qwen, err := agent.NewQwenChatModel(cfg.Aliyun.APIKey, cfg.Aliyun.Model, cfg.Aliyun.APIURL, agent.WithJSONMode(true))
		if err != nil {
			return nil, fmt.Errorf("初始化通义千问模型失败: %w", err)
		}
		// 限流放在模型层
		llm := agent.NewRateLimitedChatModel(qwen, ec.QPM)
		resilience.QPM = 0
		logger.Info().Str("model", cfg.Aliyun.Model).Int("qpm", ec.QPM).Msg("通义千问增强器初始化成功")
		return parser.NewResilientEnricher(parser.NewChatModelEnricher(llm), resilience), nil
	default:
		return nil, fmt.Errorf("未知的增强器类型: %s", ec.Provider)
	}
}

// NewCorpusLoader 按 source 返回训练语料来源，none 返回 nil
func NewCorpusLoader(c config.CorpusConfig, store *storage.Storage) (processor.CorpusLoader, error) {
	switch strings.ToLower(c.Source) {
	case "", "none":
		return nil, nil
	case "file":
		return reference.FileCorpusLoader{Path: c.Path}, nil
	case "minio":
		if store == nil || store.MinIO == nil {
			return nil, fmt.Errorf("语料来源为 minio 但 MinIO 未初始化")
		}
		return storage.MinIOCorpusLoader{Store: store.MinIO, ObjectKey: c.ObjectKey}, nil
	case "mysql":
		if store == nil || store.MySQL == nil {
			return nil, fmt.Errorf("语料来源为 mysql 但 MySQL 未初始化")
		}
		return storage.MySQLCorpusLoader{DB: store.MySQL}, nil
	default:
		return nil, fmt.Errorf("未知的语料来源: %s", c.Source)
	}
}
