package parser

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"resume-screening-go/internal/logger"
	"resume-screening-go/internal/processor"
	"resume-screening-go/internal/types"
)

// ResilienceConfig 熔断与限流参数
type ResilienceConfig struct {
	Name        string
	MaxFailures uint32        // 连续失败次数达到该值时打开熔断
	OpenTimeout time.Duration // 打开状态持续时间
	Interval    time.Duration // 关闭状态下计数清零周期，0 表示不清零
	QPM         int           // 每分钟请求数，0 表示不限
}

// ResilientEnricher 为任意增强器加上熔断器和令牌桶限流
type ResilientEnricher struct {
	next    processor.TextEnricher
	breaker *gobreaker.CircuitBreaker[*types.Enrichment]
	limiter *rate.Limiter
	log     zerolog.Logger
}

var _ processor.TextEnricher = (*ResilientEnricher)(nil)

// NewResilientEnricher 包装 next
func NewResilientEnricher(next processor.TextEnricher, cfg ResilienceConfig) *ResilientEnricher {
	if cfg.Name == "" {
		cfg.Name = "enricher"
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}

	r := &ResilientEnricher{
		next: next,
		log:  logger.Component("resilient_enricher"),
	}
	if cfg.QPM > 0 {
		r.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.QPM)), 1)
	}

	maxFailures := cfg.MaxFailures
	r.breaker = gobreaker.NewCircuitBreaker[*types.Enrichment](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			// 调用方主动取消不计入失败
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("熔断器状态变化")
		},
	})
	return r
}

// State 当前熔断器状态
func (r *ResilientEnricher) State() gobreaker.State {
	return r.breaker.State()
}

// Enrich 实现 processor.TextEnricher。熔断打开或等待令牌超时均视为不可用
func (r *ResilientEnricher) Enrich(ctx context.Context, text string) (*types.Enrichment, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, processor.NewAugmentationError("限流等待超时: " + err.Error())
		}
	}

	result, err := r.breaker.Execute(func() (*types.Enrichment, error) {
		return r.next.Enrich(ctx, text)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, processor.NewAugmentationError("熔断器已打开")
		}
		if !errors.Is(err, processor.ErrAugmentationUnavailable) {
			return nil, processor.NewAugmentationError(err.Error())
		}
		return nil, err
	}
	return result, nil
}
