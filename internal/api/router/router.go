package router

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"
	"github.com/hertz-contrib/keyauth"

	"resume-screening-go/internal/api/handler"
	"resume-screening-go/internal/logger"
	"resume-screening-go/internal/metrics"
)

// HeaderRequestID 请求ID响应头
const HeaderRequestID = "X-Request-ID"

// Options 路由选项
type Options struct {
	APIKeys []string         // 为空时不启用鉴权
	Metrics *metrics.Metrics // 为空时不记录请求指标
}

// RegisterRoutes 注册 API 路由
func RegisterRoutes(h *server.Hertz, hd *handler.Handler, opts Options) {
	h.Use(requestID())
	if opts.Metrics != nil {
		h.Use(opts.Metrics.Middleware())
	}

	api := h.Group("/api/v1")
	// 健康检查不需要鉴权
	api.GET("/health", hd.Health)

	secured := api.Group("")
	if len(opts.APIKeys) > 0 {
		secured.Use(apiKeyAuth(opts.APIKeys))
	}

	secured.POST("/skills/extract", hd.ExtractSkills)
	secured.GET("/skills/search", hd.SearchSkills)

	secured.POST("/resumes/analyze", hd.AnalyzeResume)
	secured.POST("/resumes/batch", hd.BatchAnalyze)
	secured.GET("/resumes/batch/:batch_id", hd.GetBatch)
	secured.POST("/resumes/match", hd.MatchResume)

	secured.POST("/jobs/recommend", hd.RecommendJobs)
	secured.POST("/jobs/rank", hd.RankJobs)
	secured.GET("/jobs/templates", hd.ListTemplates)
	secured.GET("/jobs/templates/:title/skills", hd.TemplateSkills)

	secured.GET("/model/status", hd.ModelStatus)
	secured.POST("/model/train", hd.TrainModel)
}

// requestID 沿用或生成请求ID，并放入日志上下文
func requestID() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		id := string(c.GetHeader(HeaderRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Response.Header.Set(HeaderRequestID, id)
		c.Next(logger.WithRequestID(ctx, id))
	}
}

// apiKeyAuth 校验 X-API-Key 请求头
func apiKeyAuth(keys []string) app.HandlerFunc {
	allowed := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		allowed[k] = struct{}{}
	}
	return keyauth.New(
		keyauth.WithKeyLookUp("header:X-API-Key", ""),
		keyauth.WithValidator(func(_ context.Context, _ *app.RequestContext, key string) (bool, error) {
			_, ok := allowed[key]
			return ok, nil
		}),
		keyauth.WithErrorHandler(func(_ context.Context, c *app.RequestContext, err error) {
			c.AbortWithStatusJSON(consts.StatusUnauthorized, utils.H{"error": "invalid or missing API key"})
		}),
	)
}
