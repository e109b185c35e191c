package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"resume-screening-go/internal/processor"
	"resume-screening-go/internal/types"
)

// maxPromptChars 发送给模型的简历文本上限（按字符计）
const maxPromptChars = 4000

const enrichmentPrompt = `Analyze this resume text and provide a comprehensive analysis in JSON format with the following structure:
{
    "skills": ["list", "of", "technical", "skills"],
    "strengths": ["list", "of", "key", "strengths"],
    "weaknesses": ["list", "of", "potential", "weaknesses"],
    "experience_summary": "brief summary of experience",
    "education_summary": "brief summary of education",
    "overall_score": 85
}

Resume Text:
%s

Return only valid JSON, no additional text.`

// BuildEnrichmentPrompt 生成增强分析提示词，简历文本截断到 4000 个字符
func BuildEnrichmentPrompt(text string) string {
	runes := []rune(text)
	if len(runes) > maxPromptChars {
		runes = runes[:maxPromptChars]
	}
	return fmt.Sprintf(enrichmentPrompt, string(runes))
}

// ParseEnrichment 去掉 markdown 代码块标记后解析模型输出
func ParseEnrichment(response string) (*types.Enrichment, error) {
	cleaned := strings.ReplaceAll(response, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	if !strings.HasPrefix(cleaned, "{") {
		// 模型在JSON前后附带了说明文字
		cleaned = extractJSON(cleaned)
	}
	if cleaned == "" {
		return nil, processor.NewAugmentationError("模型输出中没有JSON对象")
	}

	var e types.Enrichment
	if err := json.Unmarshal([]byte(cleaned), &e); err != nil {
		return nil, processor.NewAugmentationError(fmt.Sprintf("解析JSON失败: %v", err))
	}
	return &e, nil
}

// extractJSON 返回文本中第一个括号配平的JSON对象
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}
	level := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			level++
		case '}':
			level--
			if level == 0 {
				return strings.TrimSpace(text[start : i+1])
			}
		}
	}
	return ""
}

// NoopEnricher 未配置外部服务时使用，总是返回不可用
type NoopEnricher struct{}

var _ processor.TextEnricher = NoopEnricher{}

func (NoopEnricher) Enrich(context.Context, string) (*types.Enrichment, error) {
	return nil, processor.NewAugmentationError("未配置AI增强服务")
}
