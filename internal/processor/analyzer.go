package processor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"resume-screening-go/internal/classifier"
	"resume-screening-go/internal/logger"
	"resume-screening-go/internal/skills"
	"resume-screening-go/internal/tracing"
	"resume-screening-go/internal/types"
)

var tracer = otel.Tracer("processor")

const (
	defaultBatchConcurrency  = 4
	defaultEnrichTimeout     = 10 * time.Second
	defaultTemplateThreshold = 10
)

// SkillAnalyzer 技能提取与分析编排器
// 词表与词法提取器只读；统计模型通过原子指针整体替换
type SkillAnalyzer struct {
	vocab   *skills.Vocabulary
	lexical *skills.LexicalExtractor
	model   atomic.Pointer[classifier.Model]

	retrainMu sync.Mutex

	extractor TextExtractor
	enricher  TextEnricher
	corpus    CorpusLoader
	catalog   JobCatalog
	cache     ResultCache
	metrics   MetricsRecorder

	topN              int
	batchConcurrency  int
	enrichTimeout     time.Duration
	templateShortcut  bool
	templateThreshold int
	classifierOpts    []classifier.Option

	log zerolog.Logger
}

// NewSkillAnalyzer 创建编排器。model 为 nil 时使用未训练模型
func NewSkillAnalyzer(vocab *skills.Vocabulary, lexical *skills.LexicalExtractor, model *classifier.Model, opts ...Option) *SkillAnalyzer {
	a := &SkillAnalyzer{
		vocab:             vocab,
		lexical:           lexical,
		metrics:           nopMetrics{},
		batchConcurrency:  defaultBatchConcurrency,
		enrichTimeout:     defaultEnrichTimeout,
		templateThreshold: defaultTemplateThreshold,
		log:               logger.Component("processor"),
	}
	if a.lexical == nil && vocab != nil {
		a.lexical = skills.NewLexicalExtractor(vocab)
	}
	for _, opt := range opts {
		opt(a)
	}
	if model == nil {
		model = classifier.Untrained(a.classifierOpts...)
	}
	a.SwapModel(model)
	return a
}

// Model 当前发布的模型
func (a *SkillAnalyzer) Model() *classifier.Model {
	return a.model.Load()
}

// SwapModel 发布一个已完整构建的模型
func (a *SkillAnalyzer) SwapModel(m *classifier.Model) {
	if m == nil {
		return
	}
	a.model.Store(m)
	a.metrics.SetModelState(m.Trained(), len(m.ClassifierSkills()))
}

// Retrain 从语料来源重新训练并替换模型，同一时间只允许一次训练
func (a *SkillAnalyzer) Retrain(ctx context.Context) (*classifier.Model, error) {
	if a.corpus == nil {
		return nil, ErrNoCorpusSource
	}
	a.retrainMu.Lock()
	defer a.retrainMu.Unlock()

	ctx, span := tracer.Start(ctx, "RetrainModel")
	defer span.End()

	samples, err := a.corpus.Load(ctx)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		return nil, fmt.Errorf("加载训练语料失败: %w", err)
	}
	start := time.Now()
	m := classifier.Train(samples, a.classifierOpts...)
	a.SwapModel(m)

	span.SetAttributes(
		attribute.Int("corpus.size", len(samples)),
		attribute.Int("classifier.count", len(m.ClassifierSkills())),
		attribute.Bool("model.trained", m.Trained()),
	)
	a.log.Info().
		Int("corpus_size", len(samples)).
		Int("unique_skills", len(m.Skills())).
		Int("classifiers", len(m.ClassifierSkills())).
		Int("features", m.FeatureCount()).
		Dur("elapsed", time.Since(start)).
		Msg("模型重新训练完成")
	return m, nil
}

// ExtractSkills 词法提取与统计分类结果合并
func (a *SkillAnalyzer) ExtractSkills(ctx context.Context, text string) (*types.ExtractionResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, NewInputError("extract_skills", "文本为空")
	}
	lexical := a.lexical.Extract(text)

	model := a.model.Load()
	pred := model.Predict(text, a.topN)
	if pred.Faults > 0 {
		a.metrics.AddClassifierFaults(pred.Faults)
		tracing.RecordError(trace.SpanFromContext(ctx), ErrClassifierScoring, tracing.ErrorTypeModel,
			attribute.Int("classifier.faults", pred.Faults))
		logger.Ctx(ctx).Warn().
			Err(ErrClassifierScoring).
			Int("faults", pred.Faults).
			Msg("部分技能分类器评分失败，已回退到子串判断")
	}
	ml := pred.Names()

	method := types.MethodTraditional
	if len(ml) > 0 {
		method = types.MethodHybrid
	}
	return &types.ExtractionResult{
		Skills:        unionSkills(lexical, ml),
		Method:        method,
		LexicalSkills: lexical,
		MLSkills:      ml,
	}, nil
}

// ExtractJobSkills 从岗位描述提取技能，结果按字母序排列
func (a *SkillAnalyzer) ExtractJobSkills(ctx context.Context, description string) (*types.ExtractionResult, error) {
	if strings.TrimSpace(description) == "" {
		return nil, NewInputError("extract_job_skills", "岗位描述为空")
	}
	if a.templateShortcut && a.catalog != nil {
		if tpl, ok := matchTemplate(description, a.catalog.Templates(), a.templateThreshold); ok {
			required := make([]string, len(tpl.RequiredSkills))
			copy(required, tpl.RequiredSkills)
			sort.Strings(required)
			return &types.ExtractionResult{
				Skills:        required,
				Method:        types.MethodTraditional,
				LexicalSkills: []string{},
				MLSkills:      []string{},
				Template:      tpl.Title,
			}, nil
		}
	}
	res, err := a.ExtractSkills(ctx, description)
	if err != nil {
		return nil, err
	}
	sort.Strings(res.Skills)
	return res, nil
}

// ModelStatus 模型与词表状态
func (a *SkillAnalyzer) ModelStatus() types.ModelStatus {
	m := a.model.Load()
	status := types.ModelStatus{
		Trained:           m.Trained(),
		UniqueSkillsCount: len(m.Skills()),
		VocabularySize:    a.vocab.Len(),
		ModelsAvailable:   m.ModelNames(),
		ClassifierCount:   len(m.ClassifierSkills()),
		FeatureCount:      m.FeatureCount(),
		CorpusSize:        m.CorpusSize(),
		Fingerprint:       m.Fingerprint(),
	}
	if t := m.TrainedAt(); !t.IsZero() {
		status.TrainedAt = &t
	}
	return status
}

// Vocabulary 使用中的技能词表
func (a *SkillAnalyzer) Vocabulary() *skills.Vocabulary {
	return a.vocab
}

// unionSkills 大小写不敏感合并，保留首次出现的写法与顺序
func unionSkills(lists ...[]string) []string {
	out := make([]string, 0)
	seen := make(map[string]struct{})
	for _, list := range lists {
		for _, s := range list {
			key := skills.Normalize(s)
			if key == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
