package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"
)

// RateLimitedChatModel 对LLM模型的调用进行限流的代理
type RateLimitedChatModel struct {
	original model.ToolCallingChatModel
	limiter  *rate.Limiter
}

var _ model.ToolCallingChatModel = (*RateLimitedChatModel)(nil)

// NewRateLimitedChatModel 创建限流代理。qpm<=0 时默认 30，突发容量为 QPM 的一半
func NewRateLimitedChatModel(original model.ToolCallingChatModel, qpm int) *RateLimitedChatModel {
	if qpm <= 0 {
		qpm = 30
	}
	burst := qpm / 2
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedChatModel{
		original: original,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(qpm)), burst),
	}
}

func (rl *RateLimitedChatModel) wait(ctx context.Context) error {
	if err := rl.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("等待LLM调用令牌失败: %w", err)
	}
	return nil
}

// Generate 代理Generate方法
func (rl *RateLimitedChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if err := rl.wait(ctx); err != nil {
		return nil, err
	}
	return rl.original.Generate(ctx, messages, opts...)
}

// Stream 代理Stream方法
func (rl *RateLimitedChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	if err := rl.wait(ctx); err != nil {
		return nil, err
	}
	return rl.original.Stream(ctx, messages, opts...)
}

// WithTools 代理WithTools方法，新实例共享同一个限流器
func (rl *RateLimitedChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	m, err := rl.original.WithTools(tools)
	if err != nil {
		return nil, err
	}
	return &RateLimitedChatModel{original: m, limiter: rl.limiter}, nil
}
