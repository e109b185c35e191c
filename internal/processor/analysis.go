package processor

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"resume-screening-go/internal/logger"
	"resume-screening-go/internal/matcher"
	"resume-screening-go/internal/tracing"
	"resume-screening-go/internal/types"
)

// 增强结果标签
const (
	EnrichmentDisabled = "disabled"
	EnrichmentOK       = "ok"
	EnrichmentFallback = "fallback"
)

// CacheKey 分析结果缓存键：文本MD5 + 模型指纹
func CacheKey(text, fingerprint string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:]) + ":" + fingerprint
}

// AnalyzeText 对纯文本做完整分析
func (a *SkillAnalyzer) AnalyzeText(ctx context.Context, text string) (*types.AnalysisResult, error) {
	ctx, span := tracer.Start(ctx, "AnalyzeText", trace.WithAttributes(attribute.Int("text.length", len(text))))
	defer span.End()
	log := logger.Ctx(ctx)
	start := time.Now()

	model := a.model.Load()
	key := CacheKey(text, model.Fingerprint())
	if a.cache != nil {
		cached, found, err := a.cache.GetAnalysis(ctx, key)
		if err != nil {
			log.Warn().Err(err).Msg("读取分析缓存失败，继续分析")
		} else if found && cached != nil {
			span.AddEvent("cache_hit")
			res := *cached
			res.ID = uuid.NewString()
			return &res, nil
		}
	}

	extraction, err := a.ExtractSkills(ctx, text)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return nil, err
	}

	enrichment, enriched := a.enrich(ctx, text)
	all := unionSkills(extraction.Skills, enrichment.Skills)

	res := &types.AnalysisResult{
		ID:                uuid.NewString(),
		Skills:            all,
		MLSkills:          extraction.MLSkills,
		Experience:        extractExperience(text),
		Education:         extractEducation(text),
		Score:             heuristicScore(len(all)),
		Method:            extraction.Method,
		Text:              textPreview(text),
		Strengths:         enrichment.Strengths,
		Weaknesses:        enrichment.Weaknesses,
		ExperienceSummary: enrichment.ExperienceSummary,
		EducationSummary:  enrichment.EducationSummary,
		AIScore:           enrichment.OverallScore,
		Enriched:          enriched,
	}
	span.SetAttributes(
		attribute.String("analysis.method", string(res.Method)),
		attribute.Int("analysis.skills", len(res.Skills)),
		attribute.Bool("analysis.enriched", enriched),
	)
	a.metrics.ObserveAnalysis(res.Method, time.Since(start))

	// 增强失败时的默认结果不写缓存，恢复后重新分析
	if a.cache != nil && (enriched || a.enricher == nil) {
		if err := a.cache.SetAnalysis(ctx, key, res); err != nil {
			log.Warn().Err(err).Msg("写入分析缓存失败")
		}
	}
	return res, nil
}

// enrich 在超时控制下调用增强器，任何失败都退回默认值
func (a *SkillAnalyzer) enrich(ctx context.Context, text string) (types.Enrichment, bool) {
	if a.enricher == nil {
		a.metrics.ObserveEnrichment(EnrichmentDisabled)
		return fallbackEnrichment(), false
	}
	ctx, cancel := context.WithTimeout(ctx, a.enrichTimeout)
	defer cancel()

	e, err := a.enricher.Enrich(ctx, text)
	if err != nil || e == nil {
		if err == nil {
			err = NewAugmentationError("增强器返回空结果")
		}
		tracing.RecordError(trace.SpanFromContext(ctx), err, tracing.ErrorTypeExternal)
		logger.Ctx(ctx).Warn().Err(err).Msg("AI增强不可用，使用默认分析结果")
		a.metrics.ObserveEnrichment(EnrichmentFallback)
		return fallbackEnrichment(), false
	}
	a.metrics.ObserveEnrichment(EnrichmentOK)
	return mergeEnrichment(e), true
}

// AnalyzeDocument 提取文档文本后分析，解析错误直接返回
func (a *SkillAnalyzer) AnalyzeDocument(ctx context.Context, doc types.DocumentInput) (*types.AnalysisResult, error) {
	name := documentName(doc)
	ctx, span := tracer.Start(ctx, "AnalyzeDocument", trace.WithAttributes(
		attribute.String("document.name", tracing.SafeDocumentName(name)),
		attribute.String("document.format", string(doc.Format)),
	))
	defer span.End()

	text, err := a.ExtractText(ctx, doc)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return nil, err
	}

	res, err := a.AnalyzeText(ctx, text)
	if err != nil {
		var ae *AnalysisError
		if errors.As(err, &ae) && ae.Document == "" {
			ae.Document = name
		}
		return nil, err
	}
	res.Filename = name
	return res, nil
}

// ExtractText 通过文档解析器取得纯文本
func (a *SkillAnalyzer) ExtractText(ctx context.Context, doc types.DocumentInput) (string, error) {
	name := documentName(doc)
	if a.extractor == nil {
		return "", NewUnsupportedFormatError(name, "未配置文档解析器")
	}
	switch {
	case len(doc.Data) > 0:
		return a.extractor.ExtractBytes(ctx, name, doc.Data, doc.Format)
	case doc.Path != "":
		return a.extractor.ExtractText(ctx, doc.Path, doc.Format)
	default:
		return "", NewInputError("analyze_document", "文档内容为空")
	}
}

func documentName(doc types.DocumentInput) string {
	if doc.Name != "" {
		return doc.Name
	}
	if doc.Path != "" {
		return filepath.Base(doc.Path)
	}
	return "document"
}

// BatchAnalyze 并发分析多个文档，结果顺序与输入一致，单个失败不影响其他文档
func (a *SkillAnalyzer) BatchAnalyze(ctx context.Context, docs []types.DocumentInput) *types.BatchResult {
	ctx, span := tracer.Start(ctx, "BatchAnalyze", trace.WithAttributes(attribute.Int("batch.size", len(docs))))
	defer span.End()

	items := make([]types.BatchItem, len(docs))
	sem := make(chan struct{}, a.batchConcurrency)
	var wg sync.WaitGroup
	for i, doc := range docs {
		wg.Add(1)
		go func(i int, doc types.DocumentInput) {
			defer wg.Done()
			item := types.BatchItem{Index: i, Filename: documentName(doc)}

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				item.Error = ctx.Err().Error()
				item.ErrorKind = KindInternal
				items[i] = item
				return
			}

			res, err := a.AnalyzeDocument(ctx, doc)
			if err != nil {
				item.Error = err.Error()
				item.ErrorKind = ErrorKind(err)
			} else {
				item.Success = true
				item.Result = res
			}
			items[i] = item
		}(i, doc)
	}
	wg.Wait()

	out := &types.BatchResult{
		TotalResumes: len(docs),
		Results:      items,
	}
	for _, item := range items {
		if item.Success {
			out.Succeeded++
		} else {
			out.Failed++
		}
	}
	out.Status = batchStatus(out.Succeeded, out.Failed)
	span.SetAttributes(
		attribute.Int("batch.succeeded", out.Succeeded),
		attribute.Int("batch.failed", out.Failed),
	)
	logger.Ctx(ctx).Info().
		Int("total", out.TotalResumes).
		Int("succeeded", out.Succeeded).
		Int("failed", out.Failed).
		Msg("批量分析完成")
	return out
}

func batchStatus(succeeded, failed int) types.BatchStatus {
	switch {
	case failed == 0:
		return types.BatchStatusCompleted
	case succeeded == 0:
		return types.BatchStatusFailed
	default:
		return types.BatchStatusPartial
	}
}

// Match 简历文本与岗位描述的技能匹配（百分比模式）
func (a *SkillAnalyzer) Match(ctx context.Context, resumeText, requirementText string) (*types.MatchReport, error) {
	ctx, span := tracer.Start(ctx, "MatchResume")
	defer span.End()

	resume, err := a.ExtractSkills(ctx, resumeText)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return nil, err
	}
	job, err := a.ExtractJobSkills(ctx, requirementText)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return nil, err
	}

	res := matcher.Percentage(resume.Skills, job.Skills)
	span.SetAttributes(attribute.Int("match.score", res.Percentage))
	return &types.MatchReport{
		MatchScore:        res.Percentage,
		MatchedSkills:     res.Matched,
		MissingSkills:     res.Missing,
		ResumeSkillsCount: res.CandidateCount,
		JobSkillsCount:    res.RequiredCount,
		ResumeSkills:      resume.Skills,
		JobSkills:         job.Skills,
		Similarity:        matcher.Jaccard(resume.Skills, job.Skills),
		Method:            resume.Method,
	}, nil
}

// MatchDocument 解析简历文档后与岗位描述匹配
func (a *SkillAnalyzer) MatchDocument(ctx context.Context, doc types.DocumentInput, requirementText string) (*types.MatchReport, error) {
	text, err := a.ExtractText(ctx, doc)
	if err != nil {
		return nil, err
	}
	return a.Match(ctx, text, requirementText)
}
