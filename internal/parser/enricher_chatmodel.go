package parser

import (
	"context"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"resume-screening-go/internal/logger"
	"resume-screening-go/internal/processor"
	"resume-screening-go/internal/types"
)

const enrichmentSystemPrompt = "You are an experienced technical recruiter. Answer with a single JSON object only."

// ChatModelEnricher 通过任意 eino 聊天模型完成增强分析
type ChatModelEnricher struct {
	llm model.BaseChatModel
	log zerolog.Logger
}

var _ processor.TextEnricher = (*ChatModelEnricher)(nil)

// NewChatModelEnricher 创建基于聊天模型的增强器
func NewChatModelEnricher(llm model.BaseChatModel) *ChatModelEnricher {
	return &ChatModelEnricher{
		llm: llm,
		log: logger.Component("chat_enricher"),
	}
}

// Enrich 实现 processor.TextEnricher
func (c *ChatModelEnricher) Enrich(ctx context.Context, text string) (*types.Enrichment, error) {
	if c.llm == nil {
		return nil, processor.NewAugmentationError("聊天模型未初始化")
	}

	messages := []*einoschema.Message{
		einoschema.SystemMessage(enrichmentSystemPrompt),
		einoschema.UserMessage(BuildEnrichmentPrompt(text)),
	}
	resp, err := c.llm.Generate(ctx, messages)
	if err != nil {
		c.log.Warn().Err(err).Msg("LLM调用失败")
		return nil, processor.NewAugmentationError(err.Error())
	}
	if resp == nil {
		return nil, processor.NewAugmentationError("LLM返回空消息")
	}
	return ParseEnrichment(resp.Content)
}
