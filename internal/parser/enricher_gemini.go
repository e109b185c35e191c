package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"resume-screening-go/internal/logger"
	"resume-screening-go/internal/processor"
	"resume-screening-go/internal/types"
)

const defaultGeminiModel = "gemini-1.5-flash"

// contentGenerator 单轮文本生成
type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// genaiGenerator 基于 Google GenAI 客户端的生成器
type genaiGenerator struct {
	client      *genai.Client
	model       string
	temperature float64
}

func (g *genaiGenerator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	if g.temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(g.temperature))
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || strings.TrimSpace(part.Text) == "" {
				continue
			}
			builder.WriteString(part.Text)
		}
	}
	if builder.Len() == 0 {
		return "", errors.New("gemini api returned empty response")
	}
	return builder.String(), nil
}

// GeminiEnricher 调用 Gemini 生成简历的优势、不足与总结
type GeminiEnricher struct {
	gen   contentGenerator
	model string
	log   zerolog.Logger
}

var _ processor.TextEnricher = (*GeminiEnricher)(nil)

// NewGeminiEnricher 创建 Gemini 增强器
func NewGeminiEnricher(ctx context.Context, apiKey, model string, temperature float64) (*GeminiEnricher, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if model = strings.TrimSpace(model); model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGeminiEnricher(&genaiGenerator{client: client, model: model, temperature: temperature}, model), nil
}

func newGeminiEnricher(gen contentGenerator, model string) *GeminiEnricher {
	return &GeminiEnricher{
		gen:   gen,
		model: model,
		log:   logger.Component("gemini_enricher"),
	}
}

// Enrich 实现 processor.TextEnricher
func (g *GeminiEnricher) Enrich(ctx context.Context, text string) (*types.Enrichment, error) {
	out, err := g.gen.GenerateContent(ctx, BuildEnrichmentPrompt(text))
	if err != nil {
		g.log.Warn().Err(err).Str("model", g.model).Msg("Gemini调用失败")
		return nil, processor.NewAugmentationError(err.Error())
	}
	return ParseEnrichment(out)
}
